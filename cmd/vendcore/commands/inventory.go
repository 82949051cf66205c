package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vendcore/cmd/vendcore/output"
	"vendcore/internal/core"
	"vendcore/pkg/domain"
)

var (
	stockQuantity     int
	lowStockThreshold int
)

// inventoryCmd shows the stock of one machine.
var inventoryCmd = &cobra.Command{
	Use:   "inventory <machine-id>",
	Short: "Show a machine's inventory",
	Long: `Show every product stocked in a machine with quantity and last restock date.

Examples:
  vendcore inventory 3
  vendcore inventory 3 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		machineID, err := parseID(args[0])
		if err != nil {
			return err
		}
		svc, closer, err := openService()
		if err != nil {
			return err
		}
		defer closer()

		rows, err := svc.Inventory().GetMachineInventory(context.Background(), machineID)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(rows)
		}
		if len(rows) == 0 {
			output.Muted("machine %d has no stock", machineID)
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PRODUCT ID\tNAME\tPRICE\tQUANTITY\tLAST RESTOCK")
		for _, r := range rows {
			fmt.Fprintf(w, "%d\t%s\t%.2f\t%d\t%s\n", r.ProductID, r.Name, r.Price, r.Quantity, r.LastRestockDate)
		}
		return w.Flush()
	},
}

// stockCmd adds a product to a machine's inventory.
var stockCmd = &cobra.Command{
	Use:   "stock <machine-id> <product-id>",
	Short: "Stock a product in a machine",
	Long: `Add a product to a machine's inventory with an initial quantity.

Examples:
  vendcore stock 3 7 --quantity 12`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		machineID, err := parseID(args[0])
		if err != nil {
			return err
		}
		productID, err := parseID(args[1])
		if err != nil {
			return err
		}
		svc, closer, err := openService()
		if err != nil {
			return err
		}
		defer closer()

		created, res, err := svc.Inventory().AddProductToMachine(context.Background(), machineID, productID, stockQuantity)
		if err != nil {
			return reportMutationError(err)
		}
		printWarnings(res)
		if jsonOutput {
			return printJSON(created)
		}
		output.Success("stocked product %d in machine %d (quantity %d)", productID, machineID, created.Quantity)
		return nil
	},
}

// restockCmd sets the quantity of an existing inventory pairing.
var restockCmd = &cobra.Command{
	Use:   "restock <machine-id> <product-id>",
	Short: "Update the stock quantity of a product in a machine",
	Long: `Set the quantity of a product already stocked in a machine. The restock
date is stamped automatically.

Examples:
  vendcore restock 3 7 --quantity 20`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		machineID, err := parseID(args[0])
		if err != nil {
			return err
		}
		productID, err := parseID(args[1])
		if err != nil {
			return err
		}
		svc, closer, err := openService()
		if err != nil {
			return err
		}
		defer closer()

		updated, res, err := svc.Inventory().UpdateInventory(context.Background(), machineID, productID, stockQuantity)
		if err != nil {
			return reportMutationError(err)
		}
		printWarnings(res)
		if jsonOutput {
			return printJSON(updated)
		}
		output.Success("machine %d now holds %d of product %d", machineID, updated.Quantity, productID)
		return nil
	},
}

// lowStockCmd lists inventory at or below a threshold.
var lowStockCmd = &cobra.Command{
	Use:   "low-stock",
	Short: "List low-stock items across all machines",
	Long: `List every inventory item at or below the threshold, joined with machine,
building, and product names.

Examples:
  vendcore low-stock
  vendcore low-stock --threshold 3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closer, err := openService()
		if err != nil {
			return err
		}
		defer closer()

		rows, err := svc.Inventory().GetLowStock(context.Background(), lowStockThreshold)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(rows)
		}
		if len(rows) == 0 {
			output.Success("no low-stock items")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MACHINE\tBUILDING\tPRODUCT\tQUANTITY")
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", r.MachineName, r.BuildingName, r.ProductName, r.Quantity)
		}
		return w.Flush()
	},
}

func parseID(arg string) (int64, error) {
	var id int64
	if _, err := fmt.Sscanf(arg, "%d", &id); err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

// reportMutationError renders rule violations and missing-entity failures as
// user-facing messages rather than raw errors.
func reportMutationError(err error) error {
	var viol domain.RuleViolationError
	if errors.As(err, &viol) {
		for _, v := range viol.Result.Violations {
			output.Error("%s: %s", v.Rule, v.Message)
		}
		return fmt.Errorf("blocked by %d rule violation(s)", len(viol.Result.Violations))
	}
	var notFound domain.ErrNotFound
	if errors.As(err, &notFound) {
		output.Error("%s", notFound.Error())
		return err
	}
	return err
}

func init() {
	stockCmd.Flags().IntVar(&stockQuantity, "quantity", 0, "Stock quantity")
	restockCmd.Flags().IntVar(&stockQuantity, "quantity", 0, "New stock quantity")
	lowStockCmd.Flags().IntVar(&lowStockThreshold, "threshold", core.DefaultLowStockThreshold, "Low-stock threshold")

	rootCmd.AddCommand(inventoryCmd, stockCmd, restockCmd, lowStockCmd)
}
