package aggregator

import (
	"context"

	"github.com/shopdesk/pipeline/pkg/broker"
	"github.com/shopdesk/pipeline/pkg/queue"
	"github.com/shopdesk/pipeline/pkg/retry"
	"github.com/shopdesk/pipeline/pkg/stage"
)

// Handler adapts Aggregator.Run to queue.Handler for registration under
// TaskCreateTicket in the worker pool's handler map.
func (a *Aggregator) Handler() queue.Handler {
	return queue.HandlerFunc(func(ctx context.Context, task *broker.Task) error {
		messageID, err := stage.Int64Arg(task.Args, "message_id")
		if err != nil {
			return retry.Permanent(TaskCreateTicket, 0, retry.KindPermanent, err)
		}
		if err := a.Run(ctx, messageID); err != nil {
			return retry.Transient(TaskCreateTicket, messageID, err)
		}
		return nil
	})
}
