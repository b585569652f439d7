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
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/regiohub/regio"
	"github.com/regiohub/regio/config"
	"github.com/regiohub/regio/database"
	"github.com/regiohub/regio/internal/notification"
)

// Regio represents the CLI application, encapsulating the root Cobra command.
type Regio struct {
	cmd *cobra.Command
}

// regioInstance holds the ledger service and the configuration it was built from.
type regioInstance struct {
	regio *regio.Regio
	cnf   *config.Configuration
}

// recoverPanic logs a panic and exits with an error status.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and builds the ledger service before any command runs.
func preRun(app *regioInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newRegio, err := setupRegio(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.regio = newRegio
		app.cnf = cnf
		return nil
	}
}

// setupRegio connects the configured data source and builds the service on it.
func setupRegio(cfg *config.Configuration) (*regio.Regio, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newRegio, err := regio.NewRegio(db)
	if err != nil {
		return nil, fmt.Errorf("error creating regio: %v", err)
	}
	return newRegio, nil
}

// NewCLI creates the root command and its subcommands.
func NewCLI() *Regio {
	var configFile string
	r := &regioInstance{}

	var rootCmd = &cobra.Command{
		Use:   "regio",
		Short: "Mutual credit ledger for time banks",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./regio.json", "Configuration file for regio")
	rootCmd.PersistentPreRunE = preRun(r, &configFile)

	rootCmd.AddCommand(serverCommands(r))
	rootCmd.AddCommand(workerCommands(r))
	rootCmd.AddCommand(migrateCommands(r))
	rootCmd.AddCommand(feeCommands(r))
	rootCmd.AddCommand(accountCommands(r))
	rootCmd.AddCommand(configCommands(r))

	return &Regio{cmd: rootCmd}
}

func (w Regio) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
