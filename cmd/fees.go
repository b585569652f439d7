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
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/regiohub/regio"
	"github.com/regiohub/regio/model"
)

// feeCommands runs the fee batches by hand. With --queue the run is handed to
// the workers instead.
func feeCommands(r *regioInstance) *cobra.Command {
	var queue bool

	cmd := &cobra.Command{
		Use:   "fees",
		Short: "collect monthly fees and demurrage",
	}
	cmd.PersistentFlags().BoolVar(&queue, "queue", false, "enqueue the run for the workers instead of running it here")

	run := func(taskType string, inline func(ctx context.Context) (*model.FeeRunResult, error)) func(*cobra.Command, []string) {
		return func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			if queue {
				if err := r.regio.Queue().EnqueueMaintenance(ctx, taskType); err != nil {
					log.Fatal(err)
				}
				fmt.Printf("%s queued\n", taskType)
				return
			}

			result, err := inline(ctx)
			if err != nil {
				log.Fatal(err)
			}
			printJSON(result)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "monthly",
		Short: "charge every member the monthly fee",
		Run: run(regio.TaskMonthlyFee, func(ctx context.Context) (*model.FeeRunResult, error) {
			return r.regio.CollectMonthlyFees(ctx)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "demurrage",
		Short: "charge demurrage on balances above the threshold",
		Run: run(regio.TaskDemurrage, func(ctx context.Context) (*model.FeeRunResult, error) {
			return r.regio.ProcessDemurrage(ctx, r.regio.Now())
		}),
	})

	return cmd
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		log.Fatalf("Error printing result: %v\n", err)
	}
	fmt.Println(string(data))
}
