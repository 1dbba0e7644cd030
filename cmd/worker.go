package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emrgen/refgraph"
	"github.com/emrgen/refgraph/internal/cache"
	"github.com/emrgen/refgraph/internal/config"
	"github.com/emrgen/refgraph/internal/jobs"
	"github.com/emrgen/refgraph/internal/queue"
)

func init() {
	rootCmd.AddCommand(workerCommand())
}

// workerCommand starts the background reindex drainer against the shared
// redis queue. Document mutations enqueue changed references; this worker
// pops them and reindexes dependents, at least once each.
func workerCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "worker",
		Short: "run the deferred reindex worker",
		Run: func(cmd *cobra.Command, args []string) {
			cnf := config.LoadConfig()
			redis := cache.NewRedis(cnf.RedisAddr)

			worker, err := os.Hostname()
			if err != nil {
				worker = "default"
			}
			reindexQueue := queue.NewRedisQueue(redis.Client(), worker)
			if err := reindexQueue.Reclaim(context.Background()); err != nil {
				logrus.Fatalf("failed to reclaim in-flight references: %v", err)
			}

			engine := refgraph.New(config.GetDb(cnf), refgraph.Config{
				Origin: cnf.Origin,
				Queue:  reindexQueue,
				Cache:  redis,
			})

			drain := jobs.NewReindexDrain(reindexQueue, engine.Service())
			executor := jobs.NewTaskExecutor([]jobs.Job{drain}, nil)
			executor.Run()
			defer executor.Stop()

			logrus.Info("reindex worker started")

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt)
			<-stop
		},
	}

	return command
}
