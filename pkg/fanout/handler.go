package fanout

import (
	"context"

	"github.com/shopdesk/pipeline/pkg/broker"
	"github.com/shopdesk/pipeline/pkg/queue"
	"github.com/shopdesk/pipeline/pkg/retry"
	"github.com/shopdesk/pipeline/pkg/stage"
)

// TaskIngestedFanout is the task name the orchestrator dispatches to run
// this planner.
const TaskIngestedFanout = "ingested_fanout"

// Handler adapts Planner.Run to queue.Handler for registration in the
// worker pool's handler map.
func (p *Planner) Handler() queue.Handler {
	return queue.HandlerFunc(func(ctx context.Context, task *broker.Task) error {
		messageID, err := stage.Int64Arg(task.Args, "message_id")
		if err != nil {
			return retry.Permanent(TaskIngestedFanout, 0, retry.KindPermanent, err)
		}
		if err := p.Run(ctx, messageID); err != nil {
			return retry.Transient(TaskIngestedFanout, messageID, err)
		}
		return nil
	})
}
