package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/marketplace-backend/internal/dto"
	"github.com/ignatzorin/marketplace-backend/internal/http/handlers/common"
	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/pagination"
)

// ReviewAggregator - операции с отзывами.
type ReviewAggregator interface {
	Submit(ctx context.Context, in models.SubmitReviewInput) (*models.ReviewResult, error)
	StatsFor(ctx context.Context, targetID uuid.UUID) (*models.ReviewStats, error)
	ListGiven(ctx context.Context, userID uuid.UUID, page, limit int) (*models.ReviewPage, error)
	ListReceived(ctx context.Context, userID uuid.UUID, page, limit int) (*models.ReviewPage, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	Delete(ctx context.Context, reviewID, requesterID uuid.UUID) error
}

type ReviewHandler struct {
	reviews ReviewAggregator
}

func NewReviewHandler(reviews ReviewAggregator) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// Submit POST /api/reviews
// Повторный отзыв той же паре перезаписывает предыдущий и отвечает 200.
func (h *ReviewHandler) Submit(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req dto.SubmitReviewRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	result, err := h.reviews.Submit(c.Request.Context(), req.ToInput(userID))
	if err != nil {
		common.Fail(c, err)
		return
	}

	status := http.StatusCreated
	if result.IsUpdate {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

// Get GET /api/reviews/:id
func (h *ReviewHandler) Get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	review, err := h.reviews.GetByID(c.Request.Context(), id)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

// Delete DELETE /api/reviews/:id
func (h *ReviewHandler) Delete(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	if err := h.reviews.Delete(c.Request.Context(), id, userID); err != nil {
		common.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Stats GET /api/reviews/stats/:targetId
// targetId - пользователь или услуга.
func (h *ReviewHandler) Stats(c *gin.Context) {
	targetID, err := common.ParseUUIDParam(c, "targetId")
	if err != nil {
		common.Fail(c, err)
		return
	}

	stats, err := h.reviews.StatsFor(c.Request.Context(), targetID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListGiven GET /api/users/:id/reviews/given
func (h *ReviewHandler) ListGiven(c *gin.Context) {
	h.list(c, h.reviews.ListGiven)
}

// ListReceived GET /api/users/:id/reviews/received
func (h *ReviewHandler) ListReceived(c *gin.Context) {
	h.list(c, h.reviews.ListReceived)
}

func (h *ReviewHandler) list(c *gin.Context, load func(context.Context, uuid.UUID, int, int) (*models.ReviewPage, error)) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	page := common.ParseIntQuery(c, "page", pagination.DefaultPage)
	limit := common.ParseIntQuery(c, "limit", pagination.DefaultLimit)

	result, err := load(c.Request.Context(), userID, page, limit)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
