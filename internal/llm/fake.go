package llm

import (
	"context"
	"encoding/json"
	"regexp"
	"sync"

	"site-cms/internal/models"
	"site-cms/internal/sections"
)

// FakeClient returns deterministic replies for offline runs and tests.
// Scripted replies win over the built-in defaults.
type FakeClient struct {
	mu      sync.Mutex
	replies map[string]string
	err     error
	calls   []Request
}

func NewFakeClient() *FakeClient {
	return &FakeClient{replies: map[string]string{}}
}

func (f *FakeClient) Name() string { return "fake" }
func (f *FakeClient) Close() error { return nil }

// Script sets the raw reply for an action.
func (f *FakeClient) Script(action models.GenerationAction, raw string) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[string(action)] = raw
	return f
}

// Fail makes every following call return err.
func (f *FakeClient) Fail(err error) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
	return f
}

func (f *FakeClient) Calls() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *FakeClient) Complete(ctx context.Context, req Request) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	raw, scripted := f.replies[req.Action]
	err := f.err
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", upstream(f.Name(), err)
	}
	if err != nil {
		return "", upstream(f.Name(), err)
	}
	if scripted {
		return raw, nil
	}
	return defaultReply(req), nil
}

var sectionTypeInPrompt = regexp.MustCompile(`for a "([a-z_]+)" website section`)

var fakePageOrder = []models.SectionType{
	models.SectionHero,
	models.SectionFeaturesGrid,
	models.SectionServicesGrid,
	models.SectionProcessSteps,
	models.SectionCTABanner,
}

func defaultReply(req Request) string {
	var obj interface{}
	switch models.GenerationAction(req.Action) {
	case models.ActionPageContent, models.ActionPageRegen:
		secs := make([]map[string]interface{}, 0, len(fakePageOrder))
		for _, t := range fakePageOrder {
			content, _ := sections.DefaultContent(t)
			secs = append(secs, map[string]interface{}{"section_type": t, "content": content})
		}
		obj = map[string]interface{}{
			"site_name":        "Fake Site",
			"meta_title":       "Fake Site",
			"meta_description": "Generated offline.",
			"sections":         secs,
		}
	case models.ActionSectionContent:
		t := models.SectionTextContent
		if m := sectionTypeInPrompt.FindStringSubmatch(req.Prompt); m != nil {
			t = models.SectionType(m[1])
		}
		content, err := sections.DefaultContent(t)
		if err != nil {
			content = models.Content{}
		}
		obj = content
	case models.ActionSEO:
		obj = map[string]interface{}{
			"meta_title":       "Fake title",
			"meta_description": "Fake description generated offline.",
			"tags":             []string{"fake"},
		}
	default:
		obj = map[string]interface{}{}
	}
	b, _ := json.Marshal(obj)
	return string(b)
}
