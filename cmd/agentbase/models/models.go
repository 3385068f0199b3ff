// Package modelscmder provides the models command that prints the catalog.
package modelscmder

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentbase/pkg/catalog"
	"github.com/papercomputeco/agentbase/pkg/cliui"
)

const modelsLongDesc string = `List the chat models agentbase can route to.

Examples:
  agentbase models
  agentbase models --tier free`

const modelsShortDesc string = "List available chat models"

func NewModelsCmd() *cobra.Command {
	var tier string

	cmd := &cobra.Command{
		Use:   "models",
		Short: modelsShortDesc,
		Long:  modelsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.OutOrStdout(), tier)
		},
	}

	cmd.Flags().StringVar(&tier, "tier", "", "Only show free or premium models")

	return cmd
}

func run(w io.Writer, tier string) error {
	var models []catalog.Model
	switch tier {
	case "":
		models = catalog.All()
	case "free":
		models = catalog.Free()
	case "premium":
		models = catalog.Premium()
	default:
		return fmt.Errorf("unknown tier %q (available: free, premium)", tier)
	}

	rows := make([][]string, 0, len(models))
	for _, m := range models {
		id := m.ID
		if id == catalog.DefaultModelID {
			id += " *"
		}
		rows = append(rows, []string{
			id,
			string(m.Provider),
			tierName(m),
			strconv.FormatBool(m.SupportsThinking),
			string(m.Status),
			fmt.Sprintf("$%.2f / $%.2f", m.CostPerMillionInput, m.CostPerMillionOutput),
		})
	}

	fmt.Fprintln(w, cliui.Table(
		[]string{"Model", "Provider", "Tier", "Thinking", "Status", "Cost per 1M (in/out)"},
		rows,
	))
	fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render("* default model"))
	return nil
}

func tierName(m catalog.Model) string {
	if m.IsPremium {
		return "premium"
	}
	return "free"
}
