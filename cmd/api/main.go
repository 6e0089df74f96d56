package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xpresstask/core/cmd/api/commands"
)

// @title XpressTask API
// @version 1.0
// @description Multi-user to-do list with JWT authentication

// @host localhost:3001
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	rootCmd := &cobra.Command{
		Use:           "xpresstask",
		Short:         "XpressTask API server and client",
		Long:          `XpressTask is a multi-user to-do list. Run the API with "serve" or talk to a running one with "client".`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewUserCommand())
	rootCmd.AddCommand(commands.NewClientCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		if commands.IsReported(err) {
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
