package models

import (
	"time"

	"github.com/google/uuid"
)

// Category - узел дерева категорий, под которым публикуются услуги.
type Category struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Slug        string     `db:"slug" json:"slug"`
	Name        *string    `db:"name" json:"name,omitempty"`
	Description *string    `db:"description" json:"description,omitempty"`
	ParentID    *uuid.UUID `db:"parent_id" json:"parent_id"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`

	// Связанные данные (загружаются по CategoryOptions)
	Parent   *Category  `db:"-" json:"parent,omitempty"`
	Children []Category `db:"-" json:"children,omitempty"`
	Services []Service  `db:"-" json:"services,omitempty"`
}

// IsRoot сообщает, что у категории нет родителя.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// CategoryOptions перечисляет все поддерживаемые флаги подгрузки связей.
type CategoryOptions struct {
	IncludeChildren bool
	IncludeParent   bool
	IncludeServices bool
}

// CategoryFilter описывает выборку категорий.
// RootsOnly выбирает только корневые категории; ParentID - прямых потомков;
// без обоих полей возвращаются категории любой глубины.
type CategoryFilter struct {
	ParentID  *uuid.UUID
	RootsOnly bool
	CategoryOptions
}

// CreateCategoryInput содержит данные для создания категории.
type CreateCategoryInput struct {
	Slug        string
	Name        *string
	Description *string
	ParentID    *uuid.UUID
}

// CategoryPatch - частичное обновление категории.
// ClearParent переносит категорию в корень и несовместим с ParentID.
type CategoryPatch struct {
	Name        *string
	Slug        *string
	Description *string
	ParentID    *uuid.UUID
	ClearParent bool
}

// IsEmpty сообщает, что в патче нет ни одного поля.
func (p CategoryPatch) IsEmpty() bool {
	return p.Name == nil && p.Slug == nil && p.Description == nil && p.ParentID == nil && !p.ClearParent
}

// DeleteCategoryOptions управляет удалением категории.
type DeleteCategoryOptions struct {
	Force bool
}

// CategoryDeleteState - категория и её зависимости, прочитанные под
// блокировкой внутри транзакции удаления.
type CategoryDeleteState struct {
	Category Category
	Children int
	Services int
}

// CategoryDeletePlan - что сделать с зависимыми записями перед удалением.
type CategoryDeletePlan struct {
	// NewParentID получают дочерние категории (nil - становятся корневыми).
	NewParentID *uuid.UUID
	// ServiceTargetID получают услуги удаляемой категории (nil - услуг нет).
	ServiceTargetID *uuid.UUID
}

// CategoryDeleteDecision по состоянию категории возвращает план удаления
// или ошибку, отменяющую удаление.
type CategoryDeleteDecision func(state CategoryDeleteState) (CategoryDeletePlan, error)

// CategoryHierarchy - положение категории в дереве.
// Ancestors упорядочены от корня; Descendants - вложенное дерево через Children.
type CategoryHierarchy struct {
	Ancestors   []Category `json:"ancestors"`
	Self        Category   `json:"self"`
	Descendants []Category `json:"descendants"`
}
