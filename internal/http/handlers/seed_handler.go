package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/marketplace-backend/internal/http/handlers/common"
	"github.com/ignatzorin/marketplace-backend/internal/service"
)

// Seeder заполняет базу демо-данными.
type Seeder interface {
	Seed(ctx context.Context) (*service.SeedResult, error)
}

// SeedHandler обрабатывает запросы на генерацию демо-данных.
type SeedHandler struct {
	seeder Seeder
}

// NewSeedHandler создаёт новый хэндлер.
func NewSeedHandler(seeder Seeder) *SeedHandler {
	return &SeedHandler{seeder: seeder}
}

// Seed POST /api/seed (только в development).
func (h *SeedHandler) Seed(c *gin.Context) {
	result, err := h.seeder.Seed(c.Request.Context())
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
