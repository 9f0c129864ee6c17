package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/taskforge/internal/config"
)

var cfgFile string
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "taskforge",
	Short: "Agent task orchestration and planning",
	Long: `Taskforge plans and orchestrates agent work.

It decomposes free-text tasks into estimated subtasks with dependency
graphs, timelines, and risk assessment, and runs goal-oriented action
planning (GOAP) over declarative world states and action catalogs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgFile != "" {
			cfg, err = config.LoadFromPath(cfgFile)
		} else {
			cfg, err = config.Load()
		}
		return err
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: user config dir, then .taskforge.yaml)")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(goapCmd)
	rootCmd.AddCommand(readyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
