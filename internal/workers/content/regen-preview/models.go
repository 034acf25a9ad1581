package regenpreview

import "site-cms/internal/models"

type Input struct {
	PageID            string `json:"pageId"`
	Tone              string `json:"tone,omitempty"`
	ExtraInstructions string `json:"extraInstructions,omitempty"`
}

// Output carries the preview as a process variable so a user task can
// review it before the apply step.
type Output struct {
	PageID       string                `json:"pageId"`
	Sections     []models.SectionInput `json:"sections"`
	SectionCount int                   `json:"sectionCount"`
}
