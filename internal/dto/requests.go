package dto

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/marketplace-backend/internal/models"
)

// OptionalUUID различает отсутствующее поле, явный null и значение.
type OptionalUUID struct {
	Set   bool
	Value *uuid.UUID
}

// UnmarshalJSON вызывается только для присутствующего в теле поля.
func (o *OptionalUUID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var id uuid.UUID
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	o.Value = &id
	return nil
}

// RegisterRequest - тело POST /api/auth/register.
type RegisterRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// LoginRequest - тело POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest - тело POST /api/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// CreateCategoryRequest - тело POST /api/categories.
type CreateCategoryRequest struct {
	Slug        string     `json:"slug"`
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	ParentID    *uuid.UUID `json:"parent_id"`
}

// ToInput переводит запрос во входные данные сервиса.
func (r CreateCategoryRequest) ToInput() models.CreateCategoryInput {
	return models.CreateCategoryInput{
		Slug:        r.Slug,
		Name:        r.Name,
		Description: r.Description,
		ParentID:    r.ParentID,
	}
}

// UpdateCategoryRequest - тело PATCH /api/categories/:id.
// "parent_id": null переносит категорию в корень.
type UpdateCategoryRequest struct {
	Slug        *string      `json:"slug"`
	Name        *string      `json:"name"`
	Description *string      `json:"description"`
	ParentID    OptionalUUID `json:"parent_id"`
}

// ToPatch переводит запрос в патч категории.
func (r UpdateCategoryRequest) ToPatch() models.CategoryPatch {
	patch := models.CategoryPatch{
		Slug:        r.Slug,
		Name:        r.Name,
		Description: r.Description,
	}
	if r.ParentID.Set {
		if r.ParentID.Value == nil {
			patch.ClearParent = true
		} else {
			patch.ParentID = r.ParentID.Value
		}
	}
	return patch
}

// CreateServiceRequest - тело POST /api/services.
type CreateServiceRequest struct {
	Title       string          `json:"title"`
	Description *string         `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	CategoryID  uuid.UUID       `json:"category_id"`
	ProviderID  uuid.UUID       `json:"provider_id"`
	Tags        []string        `json:"tags"`
	Images      []string        `json:"images"`
	WorkingTime []string        `json:"working_time"`
	IsActive    *bool           `json:"is_active"`
}

// ToInput переводит запрос во входные данные сервиса.
func (r CreateServiceRequest) ToInput() models.CreateServiceInput {
	return models.CreateServiceInput{
		Title:       r.Title,
		Description: r.Description,
		Price:       r.Price,
		Currency:    r.Currency,
		CategoryID:  r.CategoryID,
		ProviderID:  r.ProviderID,
		Tags:        r.Tags,
		Images:      r.Images,
		WorkingTime: r.WorkingTime,
		IsActive:    r.IsActive,
	}
}

// UpdateServiceRequest - тело PATCH /api/services/:id.
type UpdateServiceRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Currency    *string          `json:"currency"`
	CategoryID  *uuid.UUID       `json:"category_id"`
	Tags        []string         `json:"tags"`
	Images      []string         `json:"images"`
	WorkingTime []string         `json:"working_time"`
	IsActive    *bool            `json:"is_active"`
}

// ToPatch переводит запрос в патч услуги.
func (r UpdateServiceRequest) ToPatch() models.ServicePatch {
	return models.ServicePatch{
		Title:       r.Title,
		Description: r.Description,
		Price:       r.Price,
		Currency:    r.Currency,
		CategoryID:  r.CategoryID,
		Tags:        r.Tags,
		Images:      r.Images,
		WorkingTime: r.WorkingTime,
		IsActive:    r.IsActive,
	}
}

// SubmitReviewRequest - тело POST /api/reviews. Автор берётся из токена.
type SubmitReviewRequest struct {
	RevieweeID uuid.UUID  `json:"reviewee_id"`
	ServiceID  *uuid.UUID `json:"service_id"`
	Rating     int        `json:"rating"`
	Comment    *string    `json:"comment"`
}

// ToInput переводит запрос во входные данные сервиса.
func (r SubmitReviewRequest) ToInput(reviewerID uuid.UUID) models.SubmitReviewInput {
	return models.SubmitReviewInput{
		ReviewerID: reviewerID,
		RevieweeID: r.RevieweeID,
		ServiceID:  r.ServiceID,
		Rating:     r.Rating,
		Comment:    r.Comment,
	}
}
