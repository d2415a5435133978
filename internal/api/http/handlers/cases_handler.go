package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dca-case-service/internal/api/dto"
	"github.com/spec-kit/dca-case-service/internal/auth"
	"github.com/spec-kit/dca-case-service/internal/domain"
	"github.com/spec-kit/dca-case-service/internal/repository"
	"github.com/spec-kit/dca-case-service/internal/service"
	apperrors "github.com/spec-kit/dca-case-service/pkg/util"
)

// CasesHandler manages case endpoints.
type CasesHandler struct {
	cases       *service.CaseService
	transitions *service.TransitionService
	scorer      *service.ScoringService
	allocator   *service.AllocationService
}

// NewCasesHandler constructs handler.
func NewCasesHandler(cases *service.CaseService, transitions *service.TransitionService, scorer *service.ScoringService, allocator *service.AllocationService) *CasesHandler {
	return &CasesHandler{cases: cases, transitions: transitions, scorer: scorer, allocator: allocator}
}

// CreateCase POST /cases.
func (h *CasesHandler) CreateCase(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	created, err := h.cases.CreateCase(c.Context(), service.CreateCaseInput{
		ExternalRef:     req.ExternalRef,
		CustomerName:    req.CustomerName,
		CustomerContact: req.CustomerContact,
		Amount:          req.Amount,
		Currency:        req.Currency,
		AgeingDays:      req.AgeingDays,
		CreatedBy:       &principal.User.ID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": caseSummary(created)})
}

// ListCases GET /cases.
func (h *CasesHandler) ListCases(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	cases, err := h.cases.ListCases(c.Context(), parseCaseQuery(c), principal.User)
	if err != nil {
		return err
	}
	items := make([]dto.CaseSummary, 0, len(cases))
	for i := range cases {
		items = append(items, caseSummary(&cases[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetCase GET /cases/:id.
func (h *CasesHandler) GetCase(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	detail, err := h.cases.GetCase(c.Context(), c.Params("id"), principal.User)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": caseDetail(detail)})
}

// Transition POST /cases/:id/transition.
func (h *CasesHandler) Transition(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.transitions.Transition(c.Context(), service.TransitionInput{
		CaseID:      c.Params("id"),
		NewStatus:   req.NewStatus,
		ActorUserID: &principal.User.ID,
		ActorRole:   principal.User.Role,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TransitionResponse{
		CaseID:         result.CaseID,
		PreviousStatus: result.PreviousStatus,
		NewStatus:      result.NewStatus,
	}})
}

// Score POST /cases/:id/score.
func (h *CasesHandler) Score(c *fiber.Ctx) error {
	outcome, err := h.scorer.ScoreCase(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ScoreResponse{
		CaseID:          outcome.CaseID,
		RecoveryProb30d: outcome.RecoveryProb30d,
		PriorityScore:   outcome.PriorityScore,
		ReasonCodes:     outcome.ReasonCodes,
		Trace:           outcome.Trace,
	}})
}

// Allocate POST /cases/:id/allocate.
func (h *CasesHandler) Allocate(c *fiber.Ctx) error {
	result, err := h.allocator.Allocate(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AllocationResponse{
		CaseID:          result.CaseID,
		DCAID:           result.DCAID,
		DCAName:         result.DCAName,
		AlreadyAssigned: result.AlreadyAssigned,
	}})
}

// LogActivity POST /cases/:id/activities.
func (h *CasesHandler) LogActivity(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.LogActivityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	activity, err := h.cases.LogActivity(c.Context(), service.LogActivityInput{
		CaseID:      c.Params("id"),
		Type:        req.Type,
		Payload:     req.Payload,
		ActorUserID: &principal.User.ID,
		ActorRole:   principal.User.Role,
		ActorDCAID:  principal.User.DCAID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": activityResponse(activity)})
}

func parseCaseQuery(c *fiber.Ctx) repository.CaseFilter {
	filter := repository.CaseFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.CaseStatus(strings.TrimSpace(part)))
		}
	}
	if dcaID := c.Query("dca_id"); dcaID != "" {
		filter.AssignedDCAID = &dcaID
	}
	if c.Query("unassigned") == "true" {
		filter.Unassigned = true
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	if minAgeing := parseOptionalInt(c.Query("min_ageing_days")); minAgeing != nil {
		filter.MinAgeingDays = minAgeing
	}
	if maxAgeing := parseOptionalInt(c.Query("max_ageing_days")); maxAgeing != nil {
		filter.MaxAgeingDays = maxAgeing
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseOptionalInt(val string) *int {
	if val == "" {
		return nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return nil
	}
	return &parsed
}

func caseSummary(c *domain.Case) dto.CaseSummary {
	return dto.CaseSummary{
		ID:              c.ID,
		ExternalRef:     c.ExternalRef,
		CustomerName:    c.CustomerName,
		Amount:          c.Amount,
		Currency:        c.Currency,
		AgeingDays:      c.AgeingDays,
		AgeingBucket:    domain.AgeingBucket(c.AgeingDays),
		Status:          c.Status,
		AssignedDCAID:   c.AssignedDCAID,
		RecoveryProb30d: c.RecoveryProb30d,
		PriorityScore:   c.PriorityScore,
		PriorityLabel:   domain.PriorityLabel(c.PriorityScore),
		ReasonCodes:     c.ReasonCodes,
		SLADueAt:        c.SLADueAt,
		NextActionDueAt: c.NextActionDueAt,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func caseDetail(detail *service.CaseDetail) dto.CaseDetailResponse {
	activities := make([]dto.ActivityResponse, 0, len(detail.Activities))
	for i := range detail.Activities {
		activities = append(activities, activityResponse(&detail.Activities[i]))
	}
	audits := make([]dto.AuditResponse, 0, len(detail.Audits))
	for _, entry := range detail.Audits {
		audits = append(audits, dto.AuditResponse{
			ID:          entry.ID,
			ActorUserID: entry.ActorUserID,
			Action:      entry.Action,
			Before:      entry.Before,
			After:       entry.After,
			CreatedAt:   entry.CreatedAt,
		})
	}

	resp := dto.CaseDetailResponse{
		CaseSummary:     caseSummary(detail.Case),
		CustomerContact: detail.Case.CustomerContact,
		PTPDate:         detail.Case.PTPDate,
		PTPAmount:       detail.Case.PTPAmount,
		ClosureReason:   detail.Case.ClosureReason,
		ClosedAt:        detail.Case.ClosedAt,
		NextMoves:       detail.NextMoves,
		Activities:      activities,
		Audits:          audits,
	}
	if detail.SLA != nil {
		resp.SLA = &dto.SLAResponse{
			Breached:     detail.SLA.Breached,
			BreachedAt:   detail.SLA.BreachedAt,
			BreachReason: detail.SLA.BreachReason,
			Escalated:    detail.SLA.Escalated,
			EscalatedAt:  detail.SLA.EscalatedAt,
		}
	}
	return resp
}

func activityResponse(activity *domain.CaseActivity) dto.ActivityResponse {
	return dto.ActivityResponse{
		ID:          activity.ID,
		ActorUserID: activity.ActorUserID,
		ActorRole:   activity.ActorRole,
		Type:        activity.Type,
		Payload:     activity.Payload,
		CreatedAt:   activity.CreatedAt,
	}
}
