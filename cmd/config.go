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
	"log"

	"github.com/spf13/cobra"

	"github.com/regiohub/regio/config"
)

const redacted = "********"

// configCommands prints the computed configuration with secrets masked.
func configCommands(_ *regioInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "config outputs your instance's computed configuration",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Fetch()
			if err != nil {
				log.Fatalf("Error getting config: %v\n", err)
			}

			masked := *cfg
			if masked.Server.SecretKey != "" {
				masked.Server.SecretKey = redacted
			}
			if len(masked.Notification.Webhook.Headers) > 0 {
				headers := make(map[string]string, len(masked.Notification.Webhook.Headers))
				for k := range masked.Notification.Webhook.Headers {
					headers[k] = redacted
				}
				masked.Notification.Webhook.Headers = headers
			}
			printJSON(masked)
		},
	}
	return cmd
}
