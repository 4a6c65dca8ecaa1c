package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"subgen/internal/app"
	"subgen/internal/dispatch"
	"subgen/internal/worker"
)

// workerCmd runs the asynq consumer. Only useful with dispatcher.mode=asynq;
// the default local mode executes tasks inside the serve process.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the background transcription worker",
	Long:  `Starts the Asynq worker process that executes queued subtitle generation tasks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		return runWorker(appInstance)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(appInstance *app.App) error {
	cfg := appInstance.Config

	redisOpts := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues:      dispatch.Queues(),
			// Higher-priority queues drain fully before lower ones.
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.WithError(err).WithFields(log.Fields{
					"type": task.Type(), "payload": string(task.Payload()),
				}).Error("Asynq task failed")
			}),
		},
	)

	mux := asynq.NewServeMux()
	worker.RegisterHandlers(mux, worker.Deps{Executor: appInstance.Executor})

	log.WithFields(log.Fields{"concurrency": cfg.Worker.Concurrency, "queues": dispatch.Queues()}).
		Info("Starting worker server")
	if err := srv.Start(mux); err != nil {
		return fmt.Errorf("failed to start worker server: %w", err)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	log.Info("Shutdown signal received, finishing in-flight tasks")
	srv.Stop()
	srv.Shutdown()

	log.Info("Worker shutdown complete")
	return nil
}
