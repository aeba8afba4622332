package handlers

import (
	"github.com/amirphl/pick-intro/app/dto"
	businessflow "github.com/amirphl/pick-intro/business_flow"
	"github.com/amirphl/pick-intro/models"
	"github.com/gofiber/fiber/v3"
)

type ReportHandlerInterface interface {
	ReportUser(c fiber.Ctx) error
}

type ReportHandler struct {
	baseHandler
	flow businessflow.ReportFlow
}

func NewReportHandler(flow businessflow.ReportFlow) *ReportHandler {
	return &ReportHandler{baseHandler: newBaseHandler(), flow: flow}
}

// ReportUser flags another user for moderation
// @Summary Report a user
// @Tags Reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ReportUserRequest true "Report"
// @Success 201 {object} dto.APIResponse{data=dto.ReportUserResponse} "Report received"
// @Failure 400 {object} dto.APIResponse "Invalid request"
// @Failure 502 {object} dto.APIResponse "Report could not be sent"
// @Router /api/v1/reports [post]
func (h *ReportHandler) ReportUser(c fiber.Ctx) error {
	var req dto.ReportUserRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/reports", defaultRequestTimeout)
	defer cancel()

	receipt, err := h.flow.ReportUser(ctx, models.UserReport{
		ReportedUserID: req.ReportedUserID,
		Reason:         req.Reason,
		Context:        req.Context,
	})
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Report received", dto.ReportUserResponse{ReportedAt: receipt.ReportedAt})
}
