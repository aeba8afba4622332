package handlers

import (
	"strings"

	"github.com/amirphl/pick-intro/app/dto"
	businessflow "github.com/amirphl/pick-intro/business_flow"
	"github.com/gofiber/fiber/v3"
)

// MatchHandlerInterface defines the contract for match handlers
type MatchHandlerInterface interface {
	ListMatches(c fiber.Ctx) error
	GetBoard(c fiber.Ctx) error
	GetDashboard(c fiber.Ctx) error
	RequestIntro(c fiber.Ctx) error
	RefreshPreview(c fiber.Ctx) error
	OpenIntro(c fiber.Ctx) error
}

// MatchHandler serves recommendations and intro hand-offs
type MatchHandler struct {
	sessionHandler
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(registry *businessflow.DraftSessionRegistry) *MatchHandler {
	return &MatchHandler{sessionHandler: newSessionHandler(registry)}
}

// ListMatches fetches recommendations and replaces the caller's match board
// @Summary List match recommendations
// @Tags Matches
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of matches (clamped to 1..20, default 5)"
// @Success 200 {object} dto.APIResponse{data=dto.MatchListResponse} "Matches retrieved successfully"
// @Failure 502 {object} dto.APIResponse "Matching service failed"
// @Router /api/v1/matches [get]
func (h *MatchHandler) ListMatches(c fiber.Ctx) error {
	var req dto.ListMatchesRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/matches", defaultRequestTimeout)
	defer cancel()

	session, err := h.session(ctx, c)
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	matches, err := session.Orchestrator.LoadRecommendations(ctx, req.Limit)
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Matches retrieved successfully", dto.MatchListResponse{
		Matches:  matches,
		LoadedAt: session.Board().LoadedAt(),
	})
}

// GetBoard returns the last loaded matches with their current intro previews
// @Summary Get match board
// @Tags Matches
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.MatchListResponse} "Board retrieved successfully"
// @Router /api/v1/matches/board [get]
func (h *MatchHandler) GetBoard(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/matches/board", defaultRequestTimeout)
	defer cancel()

	session, err := h.session(ctx, c)
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Board retrieved successfully", dto.MatchListResponse{
		Matches:  session.Board().List(),
		LoadedAt: session.Board().LoadedAt(),
	})
}

// GetDashboard loads the match dashboard, whose matches carry intro previews, into the caller's board
// @Summary Load the match dashboard
// @Description Matches come with an intro preview already attached. Later intro requests reuse each preview's match code.
// @Tags Matches
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of matches (clamped to 1..20, default 5)"
// @Success 200 {object} dto.APIResponse{data=dto.MatchListResponse} "Dashboard retrieved successfully"
// @Failure 502 {object} dto.APIResponse "Matching service failed"
// @Router /api/v1/matches/dashboard [get]
func (h *MatchHandler) GetDashboard(c fiber.Ctx) error {
	var req dto.ListMatchesRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/matches/dashboard", defaultRequestTimeout)
	defer cancel()

	session, err := h.session(ctx, c)
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	matches, err := session.Orchestrator.LoadDashboard(ctx, req.Limit)
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Dashboard retrieved successfully", dto.MatchListResponse{
		Matches:  matches,
		LoadedAt: session.Board().LoadedAt(),
	})
}

// RequestIntro generates an intro for a match, reusing its current match code
// @Summary Request an intro
// @Description Generate a new intro message. The match's previous code is reused unless one is given.
// @Tags Matches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Match user id"
// @Param request body dto.OpenIntroRequest false "Optional match code"
// @Success 200 {object} dto.APIResponse{data=dto.IntroPreviewResponse} "Intro generated successfully"
// @Failure 404 {object} dto.APIResponse "Match not found"
// @Failure 409 {object} dto.APIResponse "Profile not ready"
// @Failure 429 {object} dto.APIResponse "Rate limited"
// @Failure 502 {object} dto.APIResponse "Matching service failed"
// @Router /api/v1/matches/{id}/intro [post]
func (h *MatchHandler) RequestIntro(c fiber.Ctx) error {
	req, err := h.bindOptionalIntroRequest(c)
	if req == nil {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/matches/intro", defaultRequestTimeout)
	defer cancel()

	session, err := h.session(ctx, c)
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	payload, err := session.Orchestrator.RequestIntro(ctx, c.Params("id"), req.MatchCode)
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Intro generated successfully", dto.IntroPreviewResponse{Intro: *payload})
}

// RefreshPreview generates a new intro without reusing the match code
// @Summary Refresh an intro preview
// @Tags Matches
// @Produce json
// @Security BearerAuth
// @Param id path string true "Match user id"
// @Success 200 {object} dto.APIResponse{data=dto.IntroPreviewResponse} "Preview refreshed successfully"
// @Failure 404 {object} dto.APIResponse "Match not found"
// @Failure 429 {object} dto.APIResponse "Rate limited"
// @Router /api/v1/matches/{id}/preview [post]
func (h *MatchHandler) RefreshPreview(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/matches/preview", defaultRequestTimeout)
	defer cancel()

	session, err := h.session(ctx, c)
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	payload, err := session.Orchestrator.RefreshPreview(ctx, c.Params("id"))
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Preview refreshed successfully", dto.IntroPreviewResponse{Intro: *payload})
}

// OpenIntro generates an intro and plans the WhatsApp hand-off for the caller's device
// @Summary Open an intro in WhatsApp
// @Description Generate an intro and return the browser navigation that opens the chat. Desktop clients must open a blank window synchronously before calling this endpoint and use it for the "navigate" step; the plan never includes that blank window itself. When the window is missing or closed, follow the "open" step instead. Identical hand-offs inside the debounce window are suppressed.
// @Tags Matches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Match user id"
// @Param request body dto.OpenIntroRequest false "Optional match code"
// @Success 200 {object} dto.APIResponse{data=dto.OpenIntroResponse} "Intro ready"
// @Failure 404 {object} dto.APIResponse "Match not found"
// @Failure 409 {object} dto.APIResponse "Profile not ready"
// @Failure 429 {object} dto.APIResponse "Rate limited"
// @Router /api/v1/matches/{id}/open [post]
func (h *MatchHandler) OpenIntro(c fiber.Ctx) error {
	req, err := h.bindOptionalIntroRequest(c)
	if req == nil {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/matches/open", defaultRequestTimeout)
	defer cancel()

	session, err := h.session(ctx, c)
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}

	userAgent := c.Get(fiber.HeaderUserAgent)
	browser := businessflow.NewRecordingBrowser(userAgent)
	result, err := session.Orchestrator.OpenIntroWithCode(ctx, c.Params("id"), req.MatchCode, session.NewDispatcher(browser))
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}

	platform := "desktop"
	if businessflow.IsMobileUserAgent(userAgent) {
		platform = "mobile"
	}
	steps := browser.Steps()
	navigation := make([]dto.NavigationStep, 0, len(steps))
	for _, step := range steps {
		// The client opens the blank window before the request is sent
		if step.Action == businessflow.NavigationOpenBlank {
			continue
		}
		navigation = append(navigation, dto.NavigationStep{Action: step.Action, URL: step.URL, Window: step.Window})
	}

	message := "Intro ready"
	if !result.Dispatched {
		message = "Intro ready, chat already opened"
	}
	return h.SuccessResponse(c, fiber.StatusOK, message, dto.OpenIntroResponse{
		Intro:      result.Payload,
		Dispatched: result.Dispatched,
		Platform:   platform,
		Navigation: navigation,
	})
}

// bindOptionalIntroRequest accepts an empty body. A nil request means a response was already written.
func (h *MatchHandler) bindOptionalIntroRequest(c fiber.Ctx) (*dto.OpenIntroRequest, error) {
	req := &dto.OpenIntroRequest{}
	if len(strings.TrimSpace(string(c.Body()))) > 0 {
		if err := c.Bind().JSON(req); err != nil {
			return nil, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
	}
	if ok, err := h.validate(c, req); !ok {
		return nil, err
	}
	return req, nil
}
