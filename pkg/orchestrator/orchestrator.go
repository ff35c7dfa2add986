// Package orchestrator implements C4: run(message_id) issues the six
// stable-ID, delayed task dispatches spec §4.4's table names. Grounded on
// original_source/worker/celery_app.py's task registration plus
// celery_tasks.py's task-ID scheme, mapped from Celery's
// `apply_async(countdown=...)` onto the broker contract's
// `dispatch(..., delay=...)`.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/shopdesk/pipeline/pkg/aggregator"
	"github.com/shopdesk/pipeline/pkg/broker"
	"github.com/shopdesk/pipeline/pkg/config"
	"github.com/shopdesk/pipeline/pkg/fanout"
	"github.com/shopdesk/pipeline/pkg/stages"
)

// Orchestrator dispatches the fixed per-message task graph (spec §4.4).
// Delays are soft barriers, not dependency gates: normalize and
// create_ticket read whatever is in the event log at their execution
// time, degrading gracefully if an upstream stage hasn't finished yet
// (spec §4.4, §9 Open Question 3 — implemented as the fixed-delay form).
type Orchestrator struct {
	Broker broker.Broker
	Delays config.OrchestratorDelays
}

// New builds an Orchestrator.
func New(b broker.Broker, delays config.OrchestratorDelays) *Orchestrator {
	return &Orchestrator{Broker: b, Delays: delays}
}

// Run dispatches the six tasks for a message with stable, deterministic
// task IDs (spec §4.4's table), so that calling Run twice for the same
// message_id schedules identical task IDs and the broker deduplicates the
// resubmission (spec §8 property 2).
func (o *Orchestrator) Run(ctx context.Context, messageID int64) error {
	args := map[string]any{"message_id": messageID}

	dispatches := []struct {
		name  string
		delay time.Duration
	}{
		{fanout.TaskIngestedFanout, 0},
		{stages.TaskClassify, o.Delays.Classify},
		{stages.TaskSummarize, o.Delays.Summarize},
		{stages.TaskDocQASelect, o.Delays.DocQASelect},
		{stages.TaskNormalize, o.Delays.Normalize},
		{aggregator.TaskCreateTicket, o.Delays.Ticket},
	}

	for _, d := range dispatches {
		taskID := fmt.Sprintf("%d:%s", messageID, taskIDSuffix(d.name))
		if err := o.Broker.Dispatch(ctx, d.name, args, taskID, d.delay); err != nil {
			return fmt.Errorf("orchestrator: dispatch %s for message %d: %w", d.name, messageID, err)
		}
	}
	return nil
}

// taskIDSuffix maps a task name to the stable ID suffix spec §4.4's table
// names explicitly (ingested-fanout uses ":ingested", not ":ingested_fanout";
// create_ticket uses ":ticket", not ":create_ticket").
func taskIDSuffix(taskName string) string {
	switch taskName {
	case fanout.TaskIngestedFanout:
		return "ingested"
	case aggregator.TaskCreateTicket:
		return "ticket"
	default:
		return taskName
	}
}
