package cli

import (
	"context"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/dentaflow/dentaflow-stock/jobs"

	_ "github.com/dentaflow/dentaflow-stock/internal/testing/guard"
)

func TestTriggerRejectsUnknownJob(t *testing.T) {
	cli, err := NewJobsCLI("127.0.0.1:0")
	require.NoError(t, err)
	defer cli.Close()

	_, err = cli.Trigger(context.Background(), "stock:unknown", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported job")
}

func TestTriggerRequiresClient(t *testing.T) {
	var cli *JobsCLI
	_, err := cli.Trigger(context.Background(), "stock:lowstock_scan", "")
	require.Error(t, err)

	_, err = cli.InspectQueue(context.Background())
	require.Error(t, err)
}

func TestListScheduledRequiresInspector(t *testing.T) {
	var cli *JobsCLI
	_, err := cli.ListScheduled(context.Background(), 5)
	require.Error(t, err)
}

func TestScheduledRunDecodesClinicScope(t *testing.T) {
	scoped, err := jobs.NewLowStockScanTask(jobs.LowStockScanPayload{ClinicID: "clinic-9"})
	require.NoError(t, err)
	run := scheduledRun(&asynq.TaskInfo{ID: "t1", Type: scoped.Type(), Payload: scoped.Payload()})
	require.Equal(t, "clinic-9", run.Clinic)
	require.Equal(t, jobs.TaskLowStockScan, run.Job)

	global, err := jobs.NewForecastWarmupTask(jobs.ForecastWarmupPayload{})
	require.NoError(t, err)
	run = scheduledRun(&asynq.TaskInfo{ID: "t2", Type: global.Type(), Payload: global.Payload()})
	require.Equal(t, "all", run.Clinic)
}
