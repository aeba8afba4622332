package handlers

import (
	"github.com/amirphl/pick-intro/app/dto"
	businessflow "github.com/amirphl/pick-intro/business_flow"
	"github.com/gofiber/fiber/v3"
)

// InterestHandlerInterface defines the contract for interest handlers
type InterestHandlerInterface interface {
	Search(c fiber.Ctx) error
	Resolve(c fiber.Ctx) error
	Select(c fiber.Ctx) error
}

// InterestHandler searches and resolves interest tags for the caller's draft
type InterestHandler struct {
	sessionHandler
}

// NewInterestHandler creates a new interest handler
func NewInterestHandler(registry *businessflow.DraftSessionRegistry) *InterestHandler {
	return &InterestHandler{sessionHandler: newSessionHandler(registry)}
}

// Search lists interests matching a query. An empty query returns the starter set.
// @Summary Search interests
// @Tags Interests
// @Produce json
// @Security BearerAuth
// @Param q query string false "Search text"
// @Success 200 {object} dto.APIResponse{data=dto.InterestSearchResponse} "Interests retrieved successfully"
// @Failure 502 {object} dto.APIResponse "Interest service failed"
// @Router /api/v1/interests/search [get]
func (h *InterestHandler) Search(c fiber.Ctx) error {
	var req dto.SearchInterestsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/interests/search", defaultRequestTimeout)
	defer cancel()

	session, err := h.session(ctx, c)
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	interests, err := session.Resolver.Search(ctx, req.Query)
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Interests retrieved successfully", dto.InterestSearchResponse{
		Query:     req.Query,
		Interests: interests,
	})
}

// Resolve maps free text to an interest id without selecting it
// @Summary Resolve an interest label
// @Description Map free text to a canonical interest. Unknown labels create a pending interest.
// @Tags Interests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.InterestLabelRequest true "Label"
// @Success 200 {object} dto.APIResponse{data=dto.InterestResolutionResponse} "Interest resolved successfully"
// @Failure 400 {object} dto.APIResponse "Label is required"
// @Failure 502 {object} dto.APIResponse "Interest service failed"
// @Router /api/v1/interests/resolve [post]
func (h *InterestHandler) Resolve(c fiber.Ctx) error {
	var req dto.InterestLabelRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/interests/resolve", defaultRequestTimeout)
	defer cancel()

	session, err := h.session(ctx, c)
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	resolution, err := session.Resolver.ResolveLabel(ctx, req.Label)
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Interest resolved successfully", dto.InterestResolutionResponse{
		Resolution: *resolution,
		Pending:    session.Resolver.IsPending(resolution.InterestID),
	})
}

// Select resolves a label and adds the resulting interest to the draft
// @Summary Add an interest by label
// @Tags Profile Draft
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.InterestLabelRequest true "Label"
// @Success 200 {object} dto.APIResponse{data=dto.InterestSelectionResponse} "Interest added successfully"
// @Failure 409 {object} dto.APIResponse "Interest limit reached"
// @Failure 502 {object} dto.APIResponse "Interest service failed"
// @Router /api/v1/profile/draft/interests [post]
func (h *InterestHandler) Select(c fiber.Ctx) error {
	var req dto.InterestLabelRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/profile/draft/interests", defaultRequestTimeout)
	defer cancel()

	session, err := h.session(ctx, c)
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	resolution, err := session.Resolver.SelectByLabel(ctx, session.Store, req.Label)
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Interest added successfully", dto.InterestSelectionResponse{
		Resolution: *resolution,
		Pending:    session.Resolver.IsPending(resolution.InterestID),
		Draft:      draftResponse(session),
	})
}
