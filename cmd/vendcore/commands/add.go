package commands

import (
	"context"

	"github.com/spf13/cobra"

	"vendcore/cmd/vendcore/output"
	"vendcore/internal/core"
)

var (
	addMachineBuilding int64
	addMachineLocation string
	addProductPrice    float64
	addProductCategory string
	buildingLocation   string
)

// addBuildingCmd registers a building.
var addBuildingCmd = &cobra.Command{
	Use:   "add-building <name>",
	Short: "Register a building",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closer, err := openService()
		if err != nil {
			return err
		}
		defer closer()

		created, res, err := svc.CreateBuilding(context.Background(), core.Building{
			Name:     args[0],
			Location: buildingLocation,
		})
		if err != nil {
			return err
		}
		printWarnings(res)
		if jsonOutput {
			return printJSON(created)
		}
		output.Success("building %q registered with id %d", created.Name, created.ID)
		return nil
	},
}

// addMachineCmd registers a vending machine in a building.
var addMachineCmd = &cobra.Command{
	Use:   "add-machine <name>",
	Short: "Register a vending machine",
	Long: `Register a vending machine in a building.

Examples:
  vendcore add-machine "M1" --building 1 --location "lobby, ground floor"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closer, err := openService()
		if err != nil {
			return err
		}
		defer closer()

		created, res, err := svc.CreateMachine(context.Background(), core.Machine{
			Name:                args[0],
			BuildingID:          addMachineBuilding,
			LocationDescription: addMachineLocation,
		})
		if err != nil {
			return err
		}
		printWarnings(res)
		if jsonOutput {
			return printJSON(created)
		}
		output.Success("machine %q registered with id %d", created.Name, created.ID)
		return nil
	},
}

// addProductCmd registers a product in the catalog.
var addProductCmd = &cobra.Command{
	Use:   "add-product <name>",
	Short: "Register a product",
	Long: `Register a product in the catalog.

Examples:
  vendcore add-product "Sparkling Water" --price 1.50 --category drinks`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closer, err := openService()
		if err != nil {
			return err
		}
		defer closer()

		created, res, err := svc.Inventory().AddProduct(context.Background(), args[0], addProductPrice, addProductCategory)
		if err != nil {
			return reportMutationError(err)
		}
		printWarnings(res)
		if jsonOutput {
			return printJSON(created)
		}
		output.Success("product %q registered with id %d", created.Name, created.ID)
		return nil
	},
}

func printWarnings(res core.Result) {
	for _, v := range res.Violations {
		if v.Severity != core.SeverityBlock {
			output.Warning("%s: %s", v.Rule, v.Message)
		}
	}
}

func init() {
	addBuildingCmd.Flags().StringVar(&buildingLocation, "location", "", "Campus or street location")
	addMachineCmd.Flags().Int64Var(&addMachineBuilding, "building", 0, "Building ID (required)")
	addMachineCmd.Flags().StringVar(&addMachineLocation, "location", "", "Location within the building")
	_ = addMachineCmd.MarkFlagRequired("building")
	addProductCmd.Flags().Float64Var(&addProductPrice, "price", 0, "Unit price")
	addProductCmd.Flags().StringVar(&addProductCategory, "category", "", "Product category")

	rootCmd.AddCommand(addBuildingCmd, addMachineCmd, addProductCmd)
}
