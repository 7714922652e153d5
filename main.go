package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// NewRootCommand creates the healthscreen root command.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "healthscreen",
		Short: "Bilingual health questionnaire screening service",
		Long: `healthscreen runs Thai/English health questionnaires (PHQ-9, 8Q, AUDIT and more),
scores the answers, classifies the risk and serves the results over HTTP.`,
		Version:      Version,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().String("config", "", "path to config.yaml (default: ./config/config.yaml or ./config.yaml)")

	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewMigrateCommand())
	cmd.AddCommand(NewCatalogCommand())
	cmd.AddCommand(NewScoreCommand())
	cmd.AddCommand(NewQuotaCommand())

	return cmd
}
