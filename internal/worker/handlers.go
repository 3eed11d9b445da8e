package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"yt-notifier/internal/apperr"
	"yt-notifier/internal/subscriptions"
	"yt-notifier/internal/videos"
)

const errorNotificationTimeout = 30 * time.Second

type Reconciler interface {
	Reconcile(ctx context.Context, logger *slog.Logger) (subscriptions.Result, error)
}

type VideoChecker interface {
	Check(ctx context.Context, logger *slog.Logger) (videos.Result, error)
}

type ErrorNotifier interface {
	NotifyError(ctx context.Context, err error) error
}

// TaskHandler runs the scheduled passes. Only one pass runs at a time so the
// video check always sees a fully reconciled subscription set.
type TaskHandler struct {
	mu          sync.Mutex
	reconciler  Reconciler
	videos      VideoChecker
	errNotifier ErrorNotifier
	logger      *slog.Logger
}

// NewTaskHandler builds a handler. errNotifier may be nil to only log
// failed passes.
func NewTaskHandler(reconciler Reconciler, checker VideoChecker, errNotifier ErrorNotifier, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		reconciler:  reconciler,
		videos:      checker,
		errNotifier: errNotifier,
		logger:      logger,
	}
}

// HandleReconcileSubscriptionsTask never fails the task: a failed pass is
// logged and the next scheduled one starts from scratch.
func (h *TaskHandler) HandleReconcileSubscriptionsTask(ctx context.Context, t *asynq.Task) error {
	h.runPass(ctx, "subscriptions", func(ctx context.Context, logger *slog.Logger) error {
		_, err := h.reconciler.Reconcile(ctx, logger)
		return err
	})
	return nil
}

func (h *TaskHandler) HandleCheckVideosTask(ctx context.Context, t *asynq.Task) error {
	h.runPass(ctx, "videos", func(ctx context.Context, logger *slog.Logger) error {
		_, err := h.videos.Check(ctx, logger)
		return err
	})
	return nil
}

func (h *TaskHandler) runPass(ctx context.Context, name string, pass func(context.Context, *slog.Logger) error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	logger := h.logger.With(slog.String("pass", name), slog.String("passid", uuid.NewString()))
	start := time.Now()

	err := pass(ctx, logger)
	if err == nil {
		logger.Debug("pass finished", slog.Duration("took", time.Since(start)))
		return
	}

	switch {
	case errors.Is(err, apperr.ErrQuotaExceeded):
		logger.Warn("quota has run out, abandoning pass until the next timer trigger", slog.String("error", err.Error()))
		// Quota resets daily, reporting every pass would flood the chat.
		return
	case errors.Is(err, apperr.ErrNotificationFatal):
		logger.Warn("notification provider unavailable, abandoning pass until the next timer trigger", slog.String("error", err.Error()))
		// The error report would go through the same provider.
		return
	default:
		logger.Error("pass failed", slog.String("error", err.Error()))
	}

	h.notifyError(ctx, logger, err)
}

func (h *TaskHandler) notifyError(ctx context.Context, logger *slog.Logger, passErr error) {
	if h.errNotifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), errorNotificationTimeout)
	defer cancel()

	if err := h.errNotifier.NotifyError(ctx, passErr); err != nil {
		logger.Error("could not send error notification", slog.String("error", err.Error()))
	}
}
