package dto

import "github.com/amirphl/pick-intro/models"

// SearchInterestsRequest is bound from the query string
type SearchInterestsRequest struct {
	Query string `query:"q" validate:"max=80"`
}

// InterestLabelRequest carries free text to resolve into an interest id
type InterestLabelRequest struct {
	Label string `json:"label" validate:"required,max=80"`
}

// InterestSearchResponse lists catalog matches for a query
type InterestSearchResponse struct {
	Query     string                  `json:"query"`
	Interests []models.InterestOption `json:"interests"`
}

// InterestResolutionResponse is the outcome of resolving a label
type InterestResolutionResponse struct {
	Resolution models.InterestResolution `json:"resolution"`
	Pending    bool                      `json:"pending"`
}

// InterestSelectionResponse is returned after a label was resolved and selected
type InterestSelectionResponse struct {
	Resolution models.InterestResolution `json:"resolution"`
	Pending    bool                      `json:"pending"`
	Draft      DraftResponse             `json:"draft"`
}
