package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dentaflow/dentaflow-stock/jobs"
)

// JobsCLI drives manual background-job runs: trigger a sweep or warmup for
// one clinic (or all), and inspect what the scheduler has queued up.
type JobsCLI struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewJobsCLI connects the CLI helpers to the given Redis address.
func NewJobsCLI(redisAddr string) (*JobsCLI, error) {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	return &JobsCLI{
		client:    asynq.NewClient(opts),
		inspector: asynq.NewInspector(opts),
	}, nil
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// TriggerReceipt describes a manually enqueued run for terminal output.
type TriggerReceipt struct {
	TaskID string
	Queue  string
	Job    string
	Scope  string
}

// Trigger enqueues a supported job by task name. An empty clinicID runs the
// job across all clinics.
func (c *JobsCLI) Trigger(ctx context.Context, name, clinicID string) (TriggerReceipt, error) {
	if c == nil || c.client == nil {
		return TriggerReceipt{}, errors.New("jobs cli: client not configured")
	}
	var task *asynq.Task
	var err error
	switch name {
	case jobs.TaskLowStockScan:
		task, err = jobs.NewLowStockScanTask(jobs.LowStockScanPayload{ClinicID: clinicID})
	case jobs.TaskForecastWarmup:
		task, err = jobs.NewForecastWarmupTask(jobs.ForecastWarmupPayload{ClinicID: clinicID})
	default:
		return TriggerReceipt{}, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
	if err != nil {
		return TriggerReceipt{}, err
	}
	info, err := c.client.EnqueueContext(ctx, task, asynq.MaxRetry(3))
	if err != nil {
		return TriggerReceipt{}, err
	}
	return TriggerReceipt{
		TaskID: info.ID,
		Queue:  info.Queue,
		Job:    info.Type,
		Scope:  clinicScope(clinicID),
	}, nil
}

// QueueStats summarises the current state of the default queue.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
}

// InspectQueue reports queue depths for the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = int(info.Pending)
		stats.Active = int(info.Active)
		stats.Scheduled = int(info.Scheduled)
		stats.Retry = int(info.Retry)
	}
	return stats, nil
}

// ScheduledRun is a compact, clinic-scoped view of a scheduled task.
type ScheduledRun struct {
	ID      string
	Job     string
	Clinic  string
	NextRun time.Time
}

// ListScheduled returns upcoming runs with their clinic scope decoded from
// the task payload.
func (c *JobsCLI) ListScheduled(ctx context.Context, size int) ([]ScheduledRun, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	infos, err := c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
	if err != nil {
		return nil, err
	}
	runs := make([]ScheduledRun, 0, len(infos))
	for _, info := range infos {
		runs = append(runs, scheduledRun(info))
	}
	return runs, nil
}

func scheduledRun(info *asynq.TaskInfo) ScheduledRun {
	run := ScheduledRun{ID: info.ID, Job: info.Type, Clinic: "all", NextRun: info.NextProcessAt}
	var scope struct {
		ClinicID string `json:"clinic_id"`
	}
	if err := json.Unmarshal(info.Payload, &scope); err == nil && scope.ClinicID != "" {
		run.Clinic = scope.ClinicID
	}
	return run
}

func clinicScope(clinicID string) string {
	if clinicID == "" {
		return "all clinics"
	}
	return "clinic " + clinicID
}
