package main

import (
	"fmt"
	"os"
	"strconv"

	"learnsphere/internal/config"

	"github.com/spf13/cobra"
)

type modelEntry struct {
	Position int    `json:"position"`
	Model    string `json:"model"`
	Role     string `json:"role"`
}

func newModelsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "Show the ordered model fallback chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := config.ResolveModels(os.Getenv("OPENROUTER_MODELS"), os.Getenv("MODELS_CONFIG_PATH"), ctx.log())
			if err != nil {
				return fmt.Errorf("resolve models: %w", err)
			}

			entries := make([]modelEntry, 0, len(models))
			for i, m := range models {
				role := "fallback"
				if i == 0 {
					role = "primary"
				}
				entries = append(entries, modelEntry{Position: i + 1, Model: m, Role: role})
			}
			if asJSON {
				return writeJSON(cmd, entries)
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{strconv.Itoa(e.Position), e.Model, e.Role})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable("", []string{"#", "Model", "Role"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft}, shouldColorize(out)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the chain as JSON")
	return cmd
}
