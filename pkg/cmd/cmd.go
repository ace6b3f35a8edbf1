// Copyright 2024 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"os"

	"github.com/secretflow/padflow/pkg/cmd/master"
	"github.com/secretflow/padflow/pkg/version"
	"github.com/spf13/cobra"
)

// NewCmd creates the root command.
func NewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "padflow",
		Short: "Node routes and computation graphs for a privacy computing platform",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
}

func newCmdVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Output version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Print(version.Current().String())
		},
	}
}

// AddPadflowCommands adds all padflow sub-commands to cmd.
func AddPadflowCommands(cmd *cobra.Command) {
	cmd.AddCommand(master.NewCmdMaster())
	cmd.AddCommand(newCmdVersion())
}

// Run runs the padflow command.
func Run() {
	cmd := NewCmd()
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	AddPadflowCommands(cmd)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
