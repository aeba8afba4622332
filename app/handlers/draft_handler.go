package handlers

import (
	"strconv"
	"time"

	"github.com/amirphl/pick-intro/app/dto"
	"github.com/amirphl/pick-intro/app/services"
	businessflow "github.com/amirphl/pick-intro/business_flow"
	"github.com/amirphl/pick-intro/models"
	"github.com/gofiber/fiber/v3"
)

// DraftHandlerInterface defines the contract for profile draft handlers
type DraftHandlerInterface interface {
	GetDraft(c fiber.Ctx) error
	UpdateDraft(c fiber.Ctx) error
	UpdateField(c fiber.Ctx) error
	UpdateCities(c fiber.Ctx) error
	ToggleInterest(c fiber.Ctx) error
	RemoveInterest(c fiber.Ctx) error
	UploadPhoto(c fiber.Ctx) error
	DeletePhoto(c fiber.Ctx) error
	SubmitDraft(c fiber.Ctx) error
}

// DraftHandler exposes the caller's profile draft
type DraftHandler struct {
	sessionHandler
}

// NewDraftHandler creates a new draft handler
func NewDraftHandler(registry *businessflow.DraftSessionRegistry) *DraftHandler {
	return &DraftHandler{sessionHandler: newSessionHandler(registry)}
}

// GetDraft returns the caller's draft, hydrating it from the stored profile on first access
// @Summary Get profile draft
// @Description Retrieve the profile draft with validation errors and derived state
// @Tags Profile Draft
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.DraftResponse} "Draft retrieved successfully"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/profile/draft [get]
func (h *DraftHandler) GetDraft(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/profile/draft", defaultRequestTimeout)
	defer cancel()

	session, err := h.session(ctx, c)
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Draft retrieved successfully", draftResponse(session))
}

// UpdateDraft merges text fields into the draft
// @Summary Update profile draft
// @Description Shallow-merge text fields into the draft. Omitted fields are left unchanged.
// @Tags Profile Draft
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateDraftRequest true "Fields to update"
// @Success 200 {object} dto.APIResponse{data=dto.DraftResponse} "Draft updated successfully"
// @Failure 400 {object} dto.APIResponse "Invalid request"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/profile/draft [patch]
func (h *DraftHandler) UpdateDraft(c fiber.Ctx) error {
	var req dto.UpdateDraftRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/profile/draft", defaultRequestTimeout)
	defer cancel()

	session, err := h.session(ctx, c)
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	if err := session.Store.ApplyPatch(req.Patch()); err != nil {
		return h.FlowErrorResponse(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Draft updated successfully", draftResponse(session))
}

// UpdateField sets one text field of the draft
// @Summary Update a draft field
// @Tags Profile Draft
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param field path string true "Field name" Enums(displayName, bio, whatsappNumber, linkedinUrl, instagramUrl)
// @Param request body dto.UpdateFieldRequest true "New value"
// @Success 200 {object} dto.APIResponse{data=dto.DraftResponse} "Field updated successfully"
// @Failure 400 {object} dto.APIResponse "Unknown field or invalid request"
// @Router /api/v1/profile/draft/fields/{field} [put]
func (h *DraftHandler) UpdateField(c fiber.Ctx) error {
	var req dto.UpdateFieldRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/profile/draft/fields", defaultRequestTimeout)
	defer cancel()

	session, err := h.session(ctx, c)
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	if err := session.Store.UpdateField(models.ProfileField(c.Params("field")), req.Value); err != nil {
		return h.FlowErrorResponse(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Field updated successfully", draftResponse(session))
}

// UpdateCities replaces the draft's city list
// @Summary Update draft cities
// @Description Replace the ordered city list. The first city is the primary one.
// @Tags Profile Draft
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateCitiesRequest true "Cities"
// @Success 200 {object} dto.APIResponse{data=dto.DraftResponse} "Cities updated successfully"
// @Failure 409 {object} dto.APIResponse "Too many cities"
// @Router /api/v1/profile/draft/cities [put]
func (h *DraftHandler) UpdateCities(c fiber.Ctx) error {
	var req dto.UpdateCitiesRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/profile/draft/cities", defaultRequestTimeout)
	defer cancel()

	session, err := h.session(ctx, c)
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	if !session.Store.UpdateCities(req.Cities) {
		limits := session.Store.Limits()
		return h.ErrorResponse(c, fiber.StatusConflict, "Pick up to "+strconv.Itoa(limits.CitiesMax)+" cities.", "CITY_LIMIT_REACHED", draftResponse(session))
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Cities updated successfully", draftResponse(session))
}

// ToggleInterest selects or deselects an interest id
// @Summary Toggle a draft interest
// @Tags Profile Draft
// @Produce json
// @Security BearerAuth
// @Param id path string true "Interest id"
// @Success 200 {object} dto.APIResponse{data=dto.DraftResponse} "Interest toggled successfully"
// @Failure 409 {object} dto.APIResponse "Interest limit reached"
// @Router /api/v1/profile/draft/interests/{id}/toggle [post]
func (h *DraftHandler) ToggleInterest(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/profile/draft/interests/toggle", defaultRequestTimeout)
	defer cancel()

	session, err := h.session(ctx, c)
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	id := c.Params("id")
	if !session.Store.ToggleInterest(id) {
		// Only an unselected id can fail to toggle, and only at the limit
		return h.ErrorResponse(c, fiber.StatusConflict, "You have already picked the maximum number of interests.", "INTEREST_LIMIT_REACHED", draftResponse(session))
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Interest toggled successfully", draftResponse(session))
}

// RemoveInterest deselects an interest id
// @Summary Remove a draft interest
// @Tags Profile Draft
// @Produce json
// @Security BearerAuth
// @Param id path string true "Interest id"
// @Success 200 {object} dto.APIResponse{data=dto.DraftResponse} "Interest removed successfully"
// @Router /api/v1/profile/draft/interests/{id} [delete]
func (h *DraftHandler) RemoveInterest(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/profile/draft/interests", defaultRequestTimeout)
	defer cancel()

	session, err := h.session(ctx, c)
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	id := c.Params("id")
	session.Store.RemoveInterest(id)
	session.Resolver.Forget(id)
	return h.SuccessResponse(c, fiber.StatusOK, "Interest removed successfully", draftResponse(session))
}

// UploadPhoto encodes an image file and stores it as the pending photo
// @Summary Upload draft photo
// @Description Encode an uploaded image as the draft's pending photo. It is sent with the next submission.
// @Tags Profile Draft
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param photo formData file true "Image file"
// @Param lastModified formData int false "Client file modification time in epoch milliseconds"
// @Success 200 {object} dto.APIResponse{data=dto.DraftResponse} "Photo updated successfully"
// @Failure 400 {object} dto.APIResponse "Missing file"
// @Failure 422 {object} dto.APIResponse "Unreadable image"
// @Router /api/v1/profile/draft/photo [put]
func (h *DraftHandler) UploadPhoto(c fiber.Ctx) error {
	fileHeader, err := c.FormFile("photo")
	if err != nil || fileHeader == nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "photo is required", "INVALID_FILE", nil)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "invalid file", "INVALID_FILE", err.Error())
	}
	defer file.Close()

	lastModified := time.Now()
	if raw := c.FormValue("lastModified"); raw != "" {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && ms > 0 {
			lastModified = time.UnixMilli(ms)
		}
	}

	ctx, cancel := createRequestContext(c, "/api/v1/profile/draft/photo", defaultRequestTimeout)
	defer cancel()

	session, err := h.session(ctx, c)
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}

	photo := &services.PhotoFile{
		FileName:     fileHeader.Filename,
		Size:         fileHeader.Size,
		LastModified: lastModified,
		Reader:       file,
	}
	if err := session.Store.SetPhoto(ctx, photo); err != nil {
		return h.FlowErrorResponse(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Photo updated successfully", draftResponse(session))
}

// DeletePhoto clears both the pending photo and the stored photo reference
// @Summary Remove draft photo
// @Tags Profile Draft
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.DraftResponse} "Photo removed successfully"
// @Router /api/v1/profile/draft/photo [delete]
func (h *DraftHandler) DeletePhoto(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/profile/draft/photo", defaultRequestTimeout)
	defer cancel()

	session, err := h.session(ctx, c)
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	if err := session.Store.SetPhoto(ctx, nil); err != nil {
		return h.FlowErrorResponse(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Photo removed successfully", draftResponse(session))
}

// SubmitDraft validates and saves the draft
// @Summary Submit profile draft
// @Description Validate the draft and save it to the profile service. Invalid drafts are never sent.
// @Tags Profile Draft
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.DraftResponse} "Profile saved"
// @Failure 409 {object} dto.APIResponse "A submission is already in progress"
// @Failure 422 {object} dto.APIResponse "Draft is invalid"
// @Failure 502 {object} dto.APIResponse "Profile service failed"
// @Router /api/v1/profile/draft/submit [post]
func (h *DraftHandler) SubmitDraft(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/profile/draft/submit", defaultRequestTimeout)
	defer cancel()

	session, err := h.session(ctx, c)
	if err != nil {
		return h.FlowErrorResponse(c, err)
	}
	if err := session.Store.SubmitProfile(ctx); err != nil {
		return h.FlowErrorResponse(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Profile saved", draftResponse(session))
}
