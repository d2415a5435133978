package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dca-case-service/internal/api/dto"
	"github.com/spec-kit/dca-case-service/internal/domain"
	"github.com/spec-kit/dca-case-service/internal/repository"
	"github.com/spec-kit/dca-case-service/internal/service"
	apperrors "github.com/spec-kit/dca-case-service/pkg/util"
)

// AgenciesHandler manages collection agency endpoints.
type AgenciesHandler struct {
	agencies  repository.DCARepository
	allocator *service.AllocationService
}

// NewAgenciesHandler constructs handler.
func NewAgenciesHandler(agencies repository.DCARepository, allocator *service.AllocationService) *AgenciesHandler {
	return &AgenciesHandler{agencies: agencies, allocator: allocator}
}

// CreateAgency POST /agencies.
func (h *AgenciesHandler) CreateAgency(c *fiber.Ctx) error {
	var req dto.CreateDCARequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Name) == "" {
		return apperrors.NewValidationError("name is required", nil)
	}

	dca := &domain.DCA{Name: strings.TrimSpace(req.Name), Region: req.Region}
	if err := h.agencies.Create(c.Context(), dca); err != nil {
		return apperrors.NewStorageError("insert dca", err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": agencyResponse(dca)})
}

// ListAgencies GET /agencies. Includes current workload per agency.
func (h *AgenciesHandler) ListAgencies(c *fiber.Ctx) error {
	loads, err := h.allocator.Loads(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.DCALoadResponse, 0, len(loads))
	for _, load := range loads {
		items = append(items, dto.DCALoadResponse{
			DCAResponse: agencyResponse(&load.DCA),
			ActiveCases: load.ActiveCases,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func agencyResponse(dca *domain.DCA) dto.DCAResponse {
	return dto.DCAResponse{
		ID:        dca.ID,
		Name:      dca.Name,
		Region:    dca.Region,
		CreatedAt: dca.CreatedAt,
	}
}
