package models

// InterestOption is a canonical interest tag.
type InterestOption struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Pillar      string `json:"pillar,omitempty"`
}

// InterestResolution is the outcome of resolving free text to an interest id.
// Created marks an id that is not approved yet.
type InterestResolution struct {
	InterestID string `json:"interestId"`
	Label      string `json:"label"`
	Matched    bool   `json:"matched"`
	Created    bool   `json:"created"`
}
