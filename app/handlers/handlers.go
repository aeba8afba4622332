// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/pick-intro/app/dto"
	"github.com/amirphl/pick-intro/app/middleware"
	"github.com/amirphl/pick-intro/app/services"
	businessflow "github.com/amirphl/pick-intro/business_flow"
	"github.com/amirphl/pick-intro/models"
	"github.com/amirphl/pick-intro/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

const defaultRequestTimeout = 30 * time.Second

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "min":
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "len":
		return err.Field() + " must be exactly " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

// flowErrorStatus maps a business error code to an HTTP status
func flowErrorStatus(code string) int {
	switch code {
	case "UNKNOWN_FIELD", "INTEREST_LABEL_REQUIRED", "REPORTED_USER_REQUIRED":
		return fiber.StatusBadRequest
	case "SESSION_USER_REQUIRED":
		return fiber.StatusUnauthorized
	case "MATCH_NOT_FOUND":
		return fiber.StatusNotFound
	case "SUBMIT_IN_FLIGHT", "PROFILE_NOT_READY", "INTEREST_LIMIT_REACHED", "FEEDBACK_NOT_ELIGIBLE":
		return fiber.StatusConflict
	case "PROFILE_INVALID", "PHOTO_ENCODING_FAILED", "FEEDBACK_INVALID":
		return fiber.StatusUnprocessableEntity
	case "INTRO_RATE_LIMITED":
		return fiber.StatusTooManyRequests
	}
	if strings.HasSuffix(code, "_FAILED") {
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

// baseHandler carries the response helpers shared by every handler
type baseHandler struct {
	validator *validator.Validate
}

func newBaseHandler() baseHandler {
	return baseHandler{validator: validator.New()}
}

func (h baseHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h baseHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// FlowErrorResponse renders a business error, falling back to a 500 for anything else
func (h baseHandler) FlowErrorResponse(c fiber.Ctx, err error) error {
	be, ok := businessflow.AsBusinessError(err)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR", nil)
	}
	if be.Code == "INTRO_RATE_LIMITED" {
		if details, ok := be.Details.(map[string]int); ok && details["retryAfterSeconds"] > 0 {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(details["retryAfterSeconds"]))
		}
	}
	return h.ErrorResponse(c, flowErrorStatus(be.Code), be.Message, be.Code, be.Details)
}

// validate runs struct validation and writes a VALIDATION_ERROR response on failure
func (h baseHandler) validate(c fiber.Ctx, req any) (bool, error) {
	if err := h.validator.Struct(req); err != nil {
		var validationErrors []string
		if fieldErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrors {
				validationErrors = append(validationErrors, getValidationErrorMessage(fe))
			}
		}
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}
	return true, nil
}

// createRequestContext builds a detached context carrying request metadata and the caller's credentials.
// The returned cancel must be called once the handler is done.
func createRequestContext(c fiber.Ctx, endpoint string, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	userID, _ := middleware.GetUserIDFromContext(c)

	ctx = context.WithValue(ctx, utils.RequestIDKey, middleware.GetRequestID(c))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.UserIDKey, userID)
	ctx = services.WithAccessToken(ctx, middleware.GetAccessTokenFromContext(c))
	ctx = services.WithUserID(ctx, userID)
	return ctx, cancel
}

// sessionHandler resolves the caller's draft session
type sessionHandler struct {
	baseHandler
	registry *businessflow.DraftSessionRegistry
}

func newSessionHandler(registry *businessflow.DraftSessionRegistry) sessionHandler {
	return sessionHandler{baseHandler: newBaseHandler(), registry: registry}
}

func (h sessionHandler) session(ctx context.Context, c fiber.Ctx) (*businessflow.DraftSession, error) {
	userID, _ := middleware.GetUserIDFromContext(c)
	displayName := ""
	if claims, ok := middleware.GetTokenClaimsFromContext(c); ok {
		displayName = claims.Name
	}
	return h.registry.Get(ctx, userID, displayName)
}

// draftResponse renders the session's draft with its derived state
func draftResponse(session *businessflow.DraftSession) dto.DraftResponse {
	snapshot := session.Store.Snapshot()
	pending := make([]string, 0)
	for _, id := range snapshot.Draft.Interests {
		if session.Resolver.IsPending(id) {
			pending = append(pending, id)
		}
	}
	errs := snapshot.Validation.Errors
	if errs == nil {
		errs = map[models.ProfileField]string{}
	}
	return dto.DraftResponse{
		Draft:            snapshot.Draft,
		PhotoPreviewURL:  snapshot.Draft.PhotoPreviewURL(),
		Errors:           errs,
		IsValid:          snapshot.Validation.IsValid,
		Status:           snapshot.Status,
		SubmitError:      snapshot.SubmitError,
		AttemptedSubmit:  snapshot.AttemptedSubmit,
		HasLoadedProfile: snapshot.HasLoadedProfile,
		IsSaved:          snapshot.IsSaved,
		IsComplete:       snapshot.IsComplete,
		CanRequestIntros: snapshot.CanRequestIntros,
		CanSelectMore:    session.Store.CanSelectInterest(),
		PendingInterests: pending,
		UpdatedAt:        snapshot.Draft.UpdatedAt,
	}
}
