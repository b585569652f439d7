/*
Copyright 2024 Regio Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.elastic.co/apm/module/apmlogrus/v2"

	"github.com/regiohub/regio"
	"github.com/regiohub/regio/config"
	"github.com/regiohub/regio/internal/notification"
)

func init() {
	logrus.AddHook(&apmlogrus.Hook{})
}

// initializeQueues weights the queues the workers consume.
func initializeQueues(cfg *config.Configuration) map[string]int {
	return map[string]int{
		cfg.Queue.WebhookQueue:     3,
		cfg.Queue.ExpiryQueue:      3,
		cfg.Queue.MaintenanceQueue: 1,
	}
}

func initializeWorkerServer(conf *config.Configuration, queues map[string]int) (*asynq.Server, error) {
	redisOption, err := regio.RedisConnOpt(conf)
	if err != nil {
		return nil, err
	}

	return asynq.NewServer(redisOption, asynq.Config{
		Concurrency: conf.Queue.Concurrency,
		Queues:      queues,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			if retried >= maxRetry {
				notification.NotifyError(fmt.Errorf("task %s exhausted its retries: %w", task.Type(), err))
			}
		}),
	}), nil
}

func initializeTaskHandlers(r *regioInstance, mux *asynq.ServeMux) {
	mux.HandleFunc(regio.TaskWebhook, regio.ProcessWebhook)
	mux.HandleFunc(regio.TaskRequestExpiry, r.regio.ProcessRequestExpiry)
	mux.HandleFunc(regio.TaskMonthlyFee, r.regio.ProcessMonthlyFee)
	mux.HandleFunc(regio.TaskDemurrage, r.regio.ProcessDemurrageTask)
}

// initializeScheduler registers the fee and demurrage crons. It returns nil when
// fees are disabled.
func initializeScheduler(conf *config.Configuration) (*asynq.Scheduler, error) {
	if !conf.Fees.Enabled {
		return nil, nil
	}
	redisOption, err := regio.RedisConnOpt(conf)
	if err != nil {
		return nil, err
	}

	scheduler := asynq.NewScheduler(redisOption, &asynq.SchedulerOpts{Location: time.UTC})
	schedule := map[string]string{
		regio.TaskMonthlyFee: conf.Fees.MonthlyFeeCron,
		regio.TaskDemurrage:  conf.Fees.DemurrageCron,
	}
	for taskType, cron := range schedule {
		task, err := regio.NewMaintenanceTask(taskType, conf.Queue.MaintenanceQueue)
		if err != nil {
			return nil, err
		}
		entryID, err := scheduler.Register(cron, task)
		if err != nil {
			return nil, fmt.Errorf("could not schedule %s at %q: %w", taskType, cron, err)
		}
		logrus.Infof("scheduled %s at %q (%s)", taskType, cron, entryID)
	}
	return scheduler, nil
}

// workerCommands defines the "workers" command. Workers deliver webhooks, expire
// payment requests and run the fee schedule.
func workerCommands(r *regioInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start regio workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			conf, err := config.Fetch()
			if err != nil {
				log.Fatal("Error fetching config:", err)
			}

			shutdown, err := initializeObservability(ctx, conf)
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				if err := shutdown(ctx); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()
			notification.RegisterWebhookSender(r.regio.WebhookSender())

			srv, err := initializeWorkerServer(conf, initializeQueues(conf))
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(r, mux)

			scheduler, err := initializeScheduler(conf)
			if err != nil {
				log.Fatal(err)
			}
			if scheduler != nil {
				if err := scheduler.Start(); err != nil {
					log.Fatalf("could not start scheduler: %v", err)
				}
				defer scheduler.Shutdown()
			}

			redisOption, _ := regio.RedisConnOpt(conf)
			h := asynqmon.New(asynqmon.Options{
				RootPath:     "/monitoring",
				RedisConnOpt: redisOption,
			})

			go func() {
				monitoringAddr := fmt.Sprintf(":%s", conf.Queue.MonitoringPort)
				log.Printf("Asynqmon server listening on %s/monitoring", monitoringAddr)
				if err := http.ListenAndServe(monitoringAddr, h); err != nil {
					log.Fatalf("could not start asynqmon server: %v", err)
				}
			}()

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
