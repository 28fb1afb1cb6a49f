package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deepaksuthar40128/RemoteDx/pkg/inventory"
	"github.com/deepaksuthar40128/RemoteDx/pkg/machine"
)

type validateResult struct {
	Valid   []machine.Config `json:"valid"`
	Invalid []string         `json:"invalid"`
}

func newValidateCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a machine inventory without running diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.v.GetString("machines")
			configs, err := inventory.Load(path)
			if err != nil {
				return fmt.Errorf("could not load machine configuration: %w", err)
			}

			machines, errs := inventory.BuildMachines(configs, 0)
			result := validateResult{Valid: make([]machine.Config, 0, len(machines)), Invalid: []string{}}
			for _, m := range machines {
				result.Valid = append(result.Valid, m.Config())
			}
			for _, e := range errs {
				result.Invalid = append(result.Invalid, e.Error())
			}

			out := cmd.OutOrStdout()
			if g.jsonOutput() {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "Parsed %d machine configuration(s) from %s\n", len(configs), path)
				for _, m := range machines {
					fmt.Fprintf(out, "  OK    %s\n", m)
				}
				for _, e := range errs {
					fmt.Fprintf(out, "  SKIP  %v\n", e)
				}
			}

			if len(errs) > 0 {
				return fmt.Errorf("%d of %d machine configuration(s) invalid", len(errs), len(configs))
			}
			return nil
		},
	}
	cmd.Flags().String("machines", inventory.DefaultFile, "machine inventory file (JSON or YAML)")
	return cmd
}
