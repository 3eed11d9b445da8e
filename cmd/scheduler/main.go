package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"yt-notifier/internal/config"
	"yt-notifier/internal/worker"
	"yt-notifier/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

// registrar is implemented by asynq.Scheduler.
type registrar interface {
	Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (string, error)
}

type pass struct {
	name     string
	task     *asynq.Task
	interval time.Duration
	kickoff  bool
}

func passes(cfg config.Config) []pass {
	return []pass{
		{
			name:     "subscriptions",
			task:     tasks.NewReconcileSubscriptionsTask(),
			interval: time.Duration(cfg.Timers.Subscriptions),
			kickoff:  cfg.Kickoff.Subscriptions,
		},
		{
			name:     "videos",
			task:     tasks.NewCheckVideosTask(),
			interval: time.Duration(cfg.Timers.Videos),
			kickoff:  cfg.Kickoff.Videos,
		},
	}
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	env, err := config.LoadEnv()
	if err != nil {
		logger.Error("could not read environment", slog.String("error", err.Error()))
		os.Exit(1)
	}

	cfg, err := config.Load(env.ConfigFile)
	if err != nil {
		logger.Error("could not load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger = config.NewLogger(cfg.Logging, os.Stderr).With(slog.String("commit", CommitSHA))

	redis := asynq.RedisClientOpt{Addr: env.RedisAddr}
	scheduler := asynq.NewScheduler(redis, &asynq.SchedulerOpts{Logger: worker.NewAsynqLogger(logger)})
	if err := register(scheduler, passes(cfg), logger); err != nil {
		logger.Error("could not register tasks", slog.String("error", err.Error()))
		os.Exit(1)
	}

	client := asynq.NewClient(redis)
	defer client.Close()
	if err := kickoff(client, passes(cfg), logger); err != nil {
		logger.Error("could not enqueue kickoff tasks", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("scheduler starting")
	if err := scheduler.Run(); err != nil {
		logger.Error("could not run scheduler", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func register(scheduler registrar, passes []pass, logger *slog.Logger) error {
	for _, p := range passes {
		spec := fmt.Sprintf("@every %s", p.interval)
		if _, err := scheduler.Register(spec, p.task, tasks.PassOptions(p.interval)...); err != nil {
			return fmt.Errorf("register %s pass: %w", p.name, err)
		}
		logger.Info("registered pass", slog.String("pass", p.name), slog.String("spec", spec))
	}
	return nil
}

// kickoff enqueues the passes configured to run right away instead of
// waiting for their first tick.
func kickoff(client tasks.TaskEnqueuer, passes []pass, logger *slog.Logger) error {
	for _, p := range passes {
		if !p.kickoff {
			continue
		}
		_, err := client.Enqueue(p.task, tasks.PassOptions(p.interval)...)
		if errors.Is(err, asynq.ErrDuplicateTask) {
			logger.Info("pass already pending", slog.String("pass", p.name))
			continue
		}
		if err != nil {
			return fmt.Errorf("enqueue %s pass: %w", p.name, err)
		}
		logger.Info("kicked off pass", slog.String("pass", p.name))
	}
	return nil
}
