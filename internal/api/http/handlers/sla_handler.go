package handlers

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dca-case-service/internal/api/dto"
	"github.com/spec-kit/dca-case-service/internal/observability"
	"github.com/spec-kit/dca-case-service/internal/service"
	apperrors "github.com/spec-kit/dca-case-service/pkg/util"
)

// SLAHandler exposes the breach sweep for external schedulers.
type SLAHandler struct {
	sla        *service.SLAService
	metrics    *observability.Metrics
	cronSecret string
}

// NewSLAHandler constructs handler.
func NewSLAHandler(sla *service.SLAService, metrics *observability.Metrics, cronSecret string) *SLAHandler {
	return &SLAHandler{sla: sla, metrics: metrics, cronSecret: cronSecret}
}

// Sweep POST /internal/sla/sweep. Authenticated by a shared secret header
// instead of a user token; schedulers have no operator identity.
func (h *SLAHandler) Sweep(c *fiber.Ctx) error {
	if h.cronSecret == "" {
		return apperrors.NewForbidden("sweep endpoint disabled")
	}
	provided := c.Get("X-Cron-Secret")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.cronSecret)) != 1 {
		return apperrors.NewUnauthorized("invalid cron secret")
	}

	result, err := h.sla.RunSweep(c.Context())
	if err != nil {
		return err
	}
	h.metrics.RecordSweep(len(result.ProcessedCaseIDs), len(result.Errors))

	resp := dto.SweepResponse{
		ProcessedCaseIDs: result.ProcessedCaseIDs,
		Errors:           make([]dto.SweepErrorItem, 0, len(result.Errors)),
		RanAt:            result.RanAt,
	}
	for _, sweepErr := range result.Errors {
		resp.Errors = append(resp.Errors, dto.SweepErrorItem{CaseID: sweepErr.CaseID, Error: sweepErr.Error})
	}
	return c.JSON(fiber.Map{"data": resp})
}
