package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/cv-builder/internal/config"
	"github.com/jonathan/cv-builder/internal/observability"
	"github.com/jonathan/cv-builder/internal/schemas"
	"github.com/jonathan/cv-builder/internal/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate <state.json>",
	Short: "Validate a saved session state",
	Long: `Check a session state file against the state schema, then run every section
through structural validation (and semantic validation when enabled).`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Validation never touches sessions.
	cfg.StoreBackend = config.BackendMemory

	data, err := schemas.ValidateStateFile(args[0])
	if err != nil {
		return err
	}
	var st types.State
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("failed to parse state: %w", err)
	}

	a, err := newApp(cmd.Context(), cfg, newLogger(cfg, os.Stderr))
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.validator.BatchValidate(cmd.Context(), &st)
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintValidation(results)

	failed := 0
	for _, r := range results {
		if !r.Valid {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d section(s) failed validation", failed)
	}
	return nil
}
