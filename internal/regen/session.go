// Package regen drives full-page regeneration: generate a preview, then
// apply it in one replacing write or throw it away.
package regen

import (
	"context"
	"fmt"
	"sync"

	"site-cms/internal/common/errors"
	"site-cms/internal/common/logger"
	"site-cms/internal/common/observability"
	"site-cms/internal/models"
	"site-cms/internal/sections"
)

type State string

const (
	Idle       State = "idle"
	Previewing State = "previewing"
	Applied    State = "applied"
)

// Generator produces a replacement section list without persisting it.
type Generator interface {
	RegeneratePage(ctx context.Context, in models.PageRegenInput) (*models.PageGeneration, error)
}

// Writer replaces all sections of a page in one transaction.
type Writer interface {
	ReplaceSections(ctx context.Context, pageID string, sections []models.SectionInput) ([]*models.Section, error)
}

// Orchestrator creates sessions bound to shared dependencies.
type Orchestrator struct {
	gen    Generator
	writer Writer
	obs    *observability.Observability
	log    logger.Logger
}

func NewOrchestrator(gen Generator, writer Writer, obs *observability.Observability, log logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Orchestrator{gen: gen, writer: writer, obs: obs, log: log}
}

// NewSession starts an idle session for pageID.
func (o *Orchestrator) NewSession(pageID string) *Session {
	return &Session{o: o, pageID: pageID, state: Idle}
}

// Resume rebuilds a previewing session from a preview the client kept, so
// apply works across stateless requests.
func (o *Orchestrator) Resume(pageID string, preview []models.SectionInput) *Session {
	return &Session{o: o, pageID: pageID, state: Previewing, preview: copyInputs(preview)}
}

// Session is one author's regeneration of one page. Two sessions on the
// same page race; the last apply wins.
type Session struct {
	o      *Orchestrator
	pageID string

	mu      sync.Mutex
	state   State
	preview []models.SectionInput
}

func (s *Session) PageID() string { return s.pageID }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Preview returns a copy of the held preview, nil unless previewing.
func (s *Session) Preview() []models.SectionInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Previewing {
		return nil
	}
	return copyInputs(s.preview)
}

// Request generates a new preview. It is allowed from every state and never
// touches the store. On failure the session returns to Idle.
func (s *Session) Request(ctx context.Context, in models.PageRegenInput) ([]models.SectionInput, error) {
	in.PageID = s.pageID
	gen, err := s.o.gen.RegeneratePage(ctx, in)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = Idle
		s.preview = nil
		s.o.log.Warn("regeneration preview failed", map[string]interface{}{
			"pageId": s.pageID,
			"error":  err.Error(),
		})
		return nil, err
	}

	s.state = Previewing
	s.preview = s.o.knownOnly(s.pageID, gen.Sections)
	s.o.log.Info("regeneration preview ready", map[string]interface{}{
		"pageId":   s.pageID,
		"sections": len(s.preview),
	})
	return copyInputs(s.preview), nil
}

// Apply replaces the page's sections with the preview. An empty preview is
// rejected so a page never ends up with zero sections; on a failed write the
// session stays Previewing and the page is unchanged.
func (s *Session) Apply(ctx context.Context) ([]*models.Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Previewing {
		return nil, errors.NewInvalidRegenStateError(string(s.state), "apply")
	}
	if len(s.preview) == 0 {
		return nil, errors.NewEmptyRegenApplyError(s.pageID)
	}
	if err := checkTypes(s.preview); err != nil {
		return nil, err
	}

	saved, err := s.o.writer.ReplaceSections(ctx, s.pageID, s.preview)
	if err != nil {
		return nil, err
	}

	s.state = Applied
	s.preview = nil
	s.o.obs.RecordRegenApplied(ctx, len(saved))
	s.o.log.Info("regeneration applied", map[string]interface{}{
		"pageId":   s.pageID,
		"sections": len(saved),
	})
	return saved, nil
}

func (s *Session) Discard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Previewing {
		return errors.NewInvalidRegenStateError(string(s.state), "discard")
	}
	s.state = Idle
	s.preview = nil
	return nil
}

// knownOnly drops generated sections whose type has no schema. They would
// render as nothing and could not be applied.
func (o *Orchestrator) knownOnly(pageID string, in []models.SectionInput) []models.SectionInput {
	out := make([]models.SectionInput, 0, len(in))
	for _, s := range in {
		if !sections.IsKnown(s.SectionType) {
			o.log.Warn("dropping unknown section type from preview", map[string]interface{}{
				"pageId":      pageID,
				"sectionType": string(s.SectionType),
			})
			continue
		}
		out = append(out, models.SectionInput{SectionType: s.SectionType, Content: s.Content.Clone()})
	}
	return out
}

// checkTypes guards resumed previews, which come back from the client.
func checkTypes(in []models.SectionInput) error {
	for i, s := range in {
		if !sections.IsKnown(s.SectionType) {
			return errors.NewValidationError(fmt.Sprintf("sections[%d]: unknown section type %q", i, s.SectionType))
		}
	}
	return nil
}

func copyInputs(in []models.SectionInput) []models.SectionInput {
	if in == nil {
		return nil
	}
	out := make([]models.SectionInput, len(in))
	for i, s := range in {
		out[i] = models.SectionInput{SectionType: s.SectionType, Content: s.Content.Clone()}
	}
	return out
}
