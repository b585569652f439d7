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
	"log"

	"github.com/spf13/cobra"

	"github.com/regiohub/regio/model"
)

func accountCommands(r *regioInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "manage ledger accounts",
	}
	cmd.AddCommand(createAccountCommand(r))
	return cmd
}

func createAccountCommand(r *regioInstance) *cobra.Command {
	var code, tier string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "open an account for a member",
		Run: func(cmd *cobra.Command, args []string) {
			trustTier, err := model.ParseTrustTier(tier)
			if err != nil {
				log.Fatal(err)
			}
			account, err := r.regio.CreateAccount(context.Background(), code, trustTier)
			if err != nil {
				log.Fatal(err)
			}
			printJSON(account)
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "user code of the member")
	cmd.Flags().StringVar(&tier, "tier", string(model.TierT1), "initial trust tier")
	_ = cmd.MarkFlagRequired("code")

	return cmd
}
