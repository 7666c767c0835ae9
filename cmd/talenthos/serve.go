package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/talenthos/talenthos/db"
	"github.com/talenthos/talenthos/evaluate"
	"github.com/talenthos/talenthos/interview"
	"github.com/talenthos/talenthos/jobs"
	"github.com/talenthos/talenthos/notify"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the worker pools",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		conn, err := db.Open(cfg.Database.Path, log)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := db.Migrate(conn, log); err != nil {
			return err
		}

		// Stores and handlers are constructed explicitly and injected;
		// nothing here is a package-level singleton.
		interviews := interview.NewStore(conn)
		queue := jobs.NewQueue(conn)
		deliveries := notify.NewDeliveryStore(conn)
		evaluations := evaluate.NewStore(conn)

		mailer := notify.NewLogMailer(log)
		evaluator := newDevEvaluator()

		var limiter *rate.Limiter
		if cfg.AI.MaxCallsPerMinute > 0 {
			limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.AI.MaxCallsPerMinute)), 1)
		}

		registry := jobs.NewRegistry()
		handlers := []jobs.Handler{
			notify.NewNotificationHandler(deliveries, mailer, log),
			notify.NewReminderHandler(deliveries, interviews, mailer, log),
			notify.NewWelcomeHandler(deliveries, mailer, log),
			evaluate.NewHandler(evaluations, interviews, evaluator, limiter, log),
		}
		for _, h := range handlers {
			if err := registry.Register(h); err != nil {
				return err
			}
		}

		pollInterval := time.Duration(cfg.Jobs.PollIntervalSeconds) * time.Second
		backoffBase := time.Duration(cfg.Jobs.BackoffBaseSeconds) * time.Second
		mailTimeout := time.Duration(cfg.Mail.TimeoutSeconds) * time.Second
		aiTimeout := time.Duration(cfg.AI.TimeoutSeconds) * time.Second

		poolFor := func(queueName string, workers int, timeout time.Duration) *jobs.WorkerPool {
			return jobs.NewWorkerPool(ctx, queue, registry.Get(queueName), jobs.PoolConfig{
				Workers:        workers,
				PollInterval:   pollInterval,
				HandlerTimeout: timeout,
				BackoffBase:    backoffBase,
			}, log)
		}

		pools := []*jobs.WorkerPool{
			poolFor(notify.QueueNotification, cfg.Jobs.NotificationWorkers, mailTimeout),
			poolFor(notify.QueueReminder, cfg.Jobs.ReminderWorkers, mailTimeout),
			poolFor(notify.QueueWelcome, cfg.Jobs.WelcomeWorkers, mailTimeout),
			poolFor(evaluate.QueueEvaluation, cfg.Jobs.EvaluationWorkers, aiTimeout),
		}
		for _, pool := range pools {
			pool.Start()
		}

		janitor := jobs.NewJanitor(ctx, queue.Store(),
			time.Hour,
			time.Duration(cfg.Jobs.CompletedRetentionHours)*time.Hour,
			time.Duration(cfg.Jobs.DeadRetentionHours)*time.Hour,
			log,
		)
		janitor.Start()

		log.Infow("talenthos serving", "queues", registry.Queues())

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Infow("Shutting down", "signal", sig.String())

		cancel()
		janitor.Stop()
		for _, pool := range pools {
			pool.Stop()
		}
		return nil
	},
}
