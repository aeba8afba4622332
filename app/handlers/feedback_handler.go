package handlers

import (
	"github.com/amirphl/pick-intro/app/dto"
	businessflow "github.com/amirphl/pick-intro/business_flow"
	"github.com/amirphl/pick-intro/models"
	"github.com/gofiber/fiber/v3"
)

// FeedbackHandlerInterface defines the contract for intro feedback handlers
type FeedbackHandlerInterface interface {
	GetEligibility(c fiber.Ctx) error
	Submit(c fiber.Ctx) error
	Dismiss(c fiber.Ctx) error
}

// FeedbackHandler serves the feedback prompt on generated intro messages
type FeedbackHandler struct {
	sessionHandler
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(registry *businessflow.DraftSessionRegistry) *FeedbackHandler {
	return &FeedbackHandler{sessionHandler: newSessionHandler(registry)}
}

// GetEligibility reports whether the caller should be asked for feedback
// @Summary Check feedback eligibility
// @Description Profiles that are not complete and saved are never prompted.
// @Tags Feedback
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.FeedbackEligibilityResponse} "Eligibility retrieved successfully"
// @Failure 502 {object} dto.APIResponse "Feedback service failed"
// @Router /api/v1/feedback/eligibility [get]
func (h *FeedbackHandler) GetEligibility(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/feedback/eligibility", defaultRequestTimeout)
	defer cancel()

	session, err := h.session(ctx, c)
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	eligibility, err := session.Feedback.CheckEligibility(ctx)
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Eligibility retrieved successfully", dto.FeedbackEligibilityResponse{Eligibility: *eligibility})
}

// Submit stores feedback for the open milestone
// @Summary Submit intro feedback
// @Tags Feedback
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SubmitFeedbackRequest true "Feedback"
// @Success 201 {object} dto.APIResponse{data=dto.SubmitFeedbackResponse} "Feedback saved"
// @Failure 409 {object} dto.APIResponse "No feedback milestone open"
// @Failure 422 {object} dto.APIResponse "Invalid rating or outcome"
// @Failure 502 {object} dto.APIResponse "Feedback service failed"
// @Router /api/v1/feedback [post]
func (h *FeedbackHandler) Submit(c fiber.Ctx) error {
	var req dto.SubmitFeedbackRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/feedback", defaultRequestTimeout)
	defer cancel()

	session, err := h.session(ctx, c)
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	receipt, err := session.Feedback.Submit(ctx, models.FeedbackSubmission{
		AIMessageQuality: req.AIMessageQuality,
		Outcome:          req.Outcome,
		MatchCode:        req.MatchCode,
		Comment:          req.Comment,
	})
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusCreated, receipt.Message, dto.SubmitFeedbackResponse{Receipt: *receipt})
}

// Dismiss hides the prompt until eligibility is checked again
// @Summary Dismiss the feedback prompt
// @Tags Feedback
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.FeedbackEligibilityResponse} "Prompt dismissed"
// @Router /api/v1/feedback/dismiss [post]
func (h *FeedbackHandler) Dismiss(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/feedback/dismiss", defaultRequestTimeout)
	defer cancel()

	session, err := h.session(ctx, c)
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Prompt dismissed", dto.FeedbackEligibilityResponse{Eligibility: session.Feedback.Dismiss()})
}
