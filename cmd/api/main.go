package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/Paul-Karonji/taskiq/cmd/api/commands"
)

// @title TaskIQ API
// @version 1.0
// @description Personal task management with Google Calendar sync and email digests

// @contact.name TaskIQ
// @contact.url https://github.com/Paul-Karonji/taskiq

// @license.name MIT
// @license.url https://github.com/Paul-Karonji/taskiq/blob/main/LICENSE

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	rootCmd := &cobra.Command{
		Use:   "taskiq",
		Short: "TaskIQ API Server",
		Long:  `TaskIQ is a personal task manager with Google sign-in, calendar sync, recurring tasks and notification digests.`,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
