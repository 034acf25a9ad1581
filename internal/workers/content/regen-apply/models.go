package regenapply

import (
	"time"

	"site-cms/internal/models"
)

// Input is the reviewed preview produced by content.regen-preview.
type Input struct {
	PageID   string                `json:"pageId"`
	Sections []models.SectionInput `json:"sections"`
}

type Output struct {
	PageID       string    `json:"pageId"`
	SectionIDs   []string  `json:"sectionIds"`
	SectionCount int       `json:"sectionCount"`
	AppliedAt    time.Time `json:"appliedAt"`
}
