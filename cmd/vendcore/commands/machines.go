package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vendcore/cmd/vendcore/output"
)

// machinesCmd lists every machine with its building.
var machinesCmd = &cobra.Command{
	Use:   "machines",
	Short: "List all vending machines",
	Long: `List every vending machine with its building and last maintenance date.

Examples:
  vendcore machines
  vendcore machines --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closer, err := openService()
		if err != nil {
			return err
		}
		defer closer()

		rows, err := svc.Inventory().ListMachines(context.Background())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(rows)
		}
		if len(rows) == 0 {
			output.Muted("no machines registered")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tBUILDING\tLOCATION\tLAST MAINTENANCE")
		for _, r := range rows {
			last := "never"
			if r.LastMaintenanceDate != nil {
				last = r.LastMaintenanceDate.String()
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", r.MachineID, r.Name, r.BuildingName, r.LocationDescription, last)
		}
		return w.Flush()
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.AddCommand(machinesCmd)
}
