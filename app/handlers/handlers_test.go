package handlers

import (
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
)

func TestFlowErrorStatus(t *testing.T) {
	cases := map[string]int{
		"UNKNOWN_FIELD":          fiber.StatusBadRequest,
		"SESSION_USER_REQUIRED":  fiber.StatusUnauthorized,
		"MATCH_NOT_FOUND":        fiber.StatusNotFound,
		"SUBMIT_IN_FLIGHT":       fiber.StatusConflict,
		"PROFILE_NOT_READY":      fiber.StatusConflict,
		"PROFILE_INVALID":        fiber.StatusUnprocessableEntity,
		"FEEDBACK_INVALID":       fiber.StatusUnprocessableEntity,
		"FEEDBACK_NOT_ELIGIBLE":  fiber.StatusConflict,
		"DASHBOARD_FAILED":       fiber.StatusBadGateway,
		"PHOTO_ENCODING_FAILED":  fiber.StatusUnprocessableEntity,
		"INTRO_RATE_LIMITED":     fiber.StatusTooManyRequests,
		"PROFILE_SAVE_FAILED":    fiber.StatusBadGateway,
		"INTEREST_SEARCH_FAILED": fiber.StatusBadGateway,
		"SOMETHING_ELSE":         fiber.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, flowErrorStatus(code), code)
	}
}
