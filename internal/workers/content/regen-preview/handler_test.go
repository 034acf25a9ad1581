package regenpreview

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-cms/internal/authoring"
	apperrors "site-cms/internal/common/errors"
	"site-cms/internal/common/logger"
	"site-cms/internal/generation"
	"site-cms/internal/llm"
	"site-cms/internal/models"
	"site-cms/internal/prompt"
	"site-cms/internal/regen"
	"site-cms/internal/store"
)

// ==========================
// Test Helpers
// ==========================

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "page-regeneration",
		ElementId:          "Activity_RegenPreview",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func createTestHandler(t *testing.T) (*Handler, *store.MemoryStore, *llm.FakeClient) {
	t.Helper()
	log := logger.NewTestLogger(t)
	s := store.NewMemoryStore()
	fake := llm.NewFakeClient()
	svc := authoring.NewService(prompt.NewBuilder(func(string) int { return 4000 }), fake, generation.NewParser(false), log, authoring.WithStore(s))
	h := NewHandler(&Config{Timeout: 5 * time.Second}, regen.NewOrchestrator(svc, s, nil, log), nil, log)
	return h, s, fake
}

// ==========================
// Execute Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	h, s, fake := createTestHandler(t)
	ctx := context.Background()
	page, err := s.CreatePage(ctx, models.PageMeta{Title: "Gutters", PageType: models.PageTypeService})
	require.NoError(t, err)
	_, err = s.AddSection(ctx, page.ID, models.SectionHero, nil, 0)
	require.NoError(t, err)

	job := createMockJob(1, map[string]interface{}{"pageId": page.ID, "tone": "friendly"})
	var input Input
	require.NoError(t, json.Unmarshal([]byte(job.Variables), &input))

	out, err := h.Execute(ctx, &input)
	require.NoError(t, err)
	assert.Equal(t, page.ID, out.PageID)
	assert.Equal(t, 5, out.SectionCount)
	assert.Contains(t, fake.Calls()[0].Prompt, "Tone: friendly")

	// preview never writes
	secs, err := s.ListSections(ctx, page.ID)
	require.NoError(t, err)
	assert.Len(t, secs, 1)
}

func TestHandler_ExecuteErrors(t *testing.T) {
	h, _, fake := createTestHandler(t)
	ctx := context.Background()

	_, err := h.Execute(ctx, &Input{})
	assert.True(t, stderrors.Is(err, apperrors.ErrValidationFailed))

	_, err = h.Execute(ctx, &Input{PageID: "missing"})
	assert.True(t, stderrors.Is(err, apperrors.ErrPageNotFound))

	fake.Fail(stderrors.New("overloaded"))
	_, err = h.Execute(ctx, &Input{PageID: "missing"})
	assert.Error(t, err)
}

func TestOutput_WorkflowVariables(t *testing.T) {
	out := &Output{PageID: "p1", Sections: []models.SectionInput{{SectionType: models.SectionHero, Content: models.Content{}}}, SectionCount: 1}
	data, err := json.Marshal(out)
	require.NoError(t, err)

	var vars map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &vars))
	assert.Equal(t, "p1", vars["pageId"])
	assert.EqualValues(t, 1, vars["sectionCount"])
	assert.Len(t, vars["sections"], 1)
}
