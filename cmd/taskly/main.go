package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/Celestial-0/Taskly/cmd/taskly/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "taskly",
		Short: "Taskly task manager",
		Long:  `Taskly is a personal task manager with categories, subtasks, time tracking and offline-first sync.`,
	}

	// Add commands
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewSyncCommand())
	rootCmd.AddCommand(commands.NewSeedCommand())
	rootCmd.AddCommand(commands.NewExportCommand())
	rootCmd.AddCommand(commands.NewImportCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
