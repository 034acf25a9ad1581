package regenapply

import (
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"site-cms/internal/common/errors"
	"site-cms/internal/common/logger"
	"site-cms/internal/common/metrics"
	"site-cms/internal/common/observability"
	"site-cms/internal/regen"
)

const (
	TaskType = "content-regen-apply"
)

type Handler struct {
	config   *Config
	regen    *regen.Orchestrator
	obs      *observability.Observability
	logger   logger.Logger
	failures *errors.ErrorHandler
}

func NewHandler(config *Config, orchestrator *regen.Orchestrator, obs *observability.Observability, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		regen:    orchestrator,
		obs:      obs,
		logger:   log,
		failures: errors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(ctx, client, job, errors.NewValidationError("parse input: "+err.Error()), start)
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(ctx, client, job, err, start)
		return
	}
	h.completeJob(client, job, output, start)
}

// execute resumes the reviewed preview and applies it. An empty preview is
// rejected before any write.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.PageID == "" {
		return nil, errors.NewValidationError("pageId is required")
	}

	saved, err := h.regen.Resume(input.PageID, input.Sections).Apply(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(saved))
	for i, s := range saved {
		ids[i] = s.ID
	}
	return &Output{
		PageID:       input.PageID,
		SectionIDs:   ids,
		SectionCount: len(saved),
		AppliedAt:    time.Now().UTC(),
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output, start time.Time) {
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.obs.RecordJobProcessed(context.Background(), TaskType, "completed")
	h.obs.RecordJobDuration(context.Background(), TaskType, time.Since(start), "completed")

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error, start time.Time) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.AsStandardError(err).Code)).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "failed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "failed")
	h.failures.HandleJobError(context.Background(), client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
