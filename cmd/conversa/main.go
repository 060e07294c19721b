package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var serverURL string

func main() {
	rootCmd := &cobra.Command{
		Use:           "conversa",
		Short:         "Terminal client for the Conversa chat API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultServer := os.Getenv("CONVERSA_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer, "API base URL")

	rootCmd.AddCommand(
		newSignupCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newHistoryCmd(),
		newShowCmd(),
		newChatCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}
