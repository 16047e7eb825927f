package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Service - услуга исполнителя в каталоге.
type Service struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	Title       string          `db:"title" json:"title"`
	Description *string         `db:"description" json:"description,omitempty"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Currency    string          `db:"currency" json:"currency"`
	CategoryID  uuid.UUID       `db:"category_id" json:"category_id"`
	ProviderID  uuid.UUID       `db:"provider_id" json:"provider_id"`
	Tags        pq.StringArray  `db:"tags" json:"tags"`
	Images      pq.StringArray  `db:"images" json:"images"`
	WorkingTime pq.StringArray  `db:"working_time" json:"working_time"`
	IsActive    bool            `db:"is_active" json:"is_active"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// CreateServiceInput содержит данные для публикации услуги.
type CreateServiceInput struct {
	Title       string
	Description *string
	Price       decimal.Decimal
	Currency    string
	CategoryID  uuid.UUID
	ProviderID  uuid.UUID
	Tags        []string
	Images      []string
	WorkingTime []string
	IsActive    *bool
}

// ServicePatch - частичное обновление услуги.
type ServicePatch struct {
	Title       *string
	Description *string
	Price       *decimal.Decimal
	Currency    *string
	CategoryID  *uuid.UUID
	Tags        []string
	Images      []string
	WorkingTime []string
	IsActive    *bool
}

// IsEmpty сообщает, что в патче нет ни одного поля.
func (p ServicePatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Price == nil && p.Currency == nil &&
		p.CategoryID == nil && p.Tags == nil && p.Images == nil && p.WorkingTime == nil && p.IsActive == nil
}

// ServiceFilter описывает выборку услуг.
type ServiceFilter struct {
	ProviderID *uuid.UUID
	CategoryID *uuid.UUID
	IsActive   *bool
	Skip       int
	Take       int
}
