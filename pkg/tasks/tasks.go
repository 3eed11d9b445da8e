package tasks

import (
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeReconcileSubscriptions = "subscriptions:reconcile"
	TypeCheckVideos            = "videos:check"
)

func NewReconcileSubscriptionsTask() *asynq.Task {
	return asynq.NewTask(TypeReconcileSubscriptions, nil)
}

func NewCheckVideosTask() *asynq.Task {
	return asynq.NewTask(TypeCheckVideos, nil)
}

// PassOptions returns the enqueue options for a pass scheduled every
// interval. A failed pass is not retried since the next tick starts over,
// and a pass still pending makes another enqueue of the same type a no-op.
func PassOptions(interval time.Duration) []asynq.Option {
	return []asynq.Option{
		asynq.MaxRetry(0),
		asynq.Unique(interval),
	}
}
