package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vendcore/cmd/vendcore/output"
	"vendcore/internal/core"
	"vendcore/pkg/domain"
)

var (
	historyMachineID int64
	recordPerformer  string
	dueDays          int
	scheduleDate     string
	scheduleDesc     string
)

// maintenanceCmd groups the maintenance subcommands.
var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Inspect and record machine maintenance",
	Long: `Inspect and record machine maintenance.

Subcommands:
  history  - Show the maintenance log
  record   - Record performed maintenance
  due      - List machines overdue for maintenance
  schedule - Plan maintenance for a set of machines`,
}

var maintenanceHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the maintenance log, newest first",
	Long: `Show maintenance records joined with machine names, newest first.

Examples:
  vendcore maintenance history
  vendcore maintenance history --machine 3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closer, err := openService()
		if err != nil {
			return err
		}
		defer closer()

		entries, err := svc.Maintenance().History(context.Background(), historyMachineID)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(entries)
		}
		if len(entries) == 0 {
			output.Muted("no maintenance recorded")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tMACHINE\tDESCRIPTION\tPERFORMED BY")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Date, e.MachineName, e.Description, e.PerformedBy)
		}
		return w.Flush()
	},
}

var maintenanceRecordCmd = &cobra.Command{
	Use:   "record <machine-id> <description>",
	Short: "Record maintenance performed on a machine",
	Long: `Append a maintenance record dated today and update the machine's last
maintenance date.

Examples:
  vendcore maintenance record 3 "replaced coin mechanism" --by "J. Ortiz"`,
	Args: cobra.ExactArgs(2),
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

		created, res, err := svc.Maintenance().AddRecord(context.Background(), machineID, args[1], recordPerformer)
		if err != nil {
			return reportMutationError(err)
		}
		printWarnings(res)
		if jsonOutput {
			return printJSON(created)
		}
		output.Success("maintenance recorded for machine %d on %s", machineID, created.MaintenanceDate)
		return nil
	},
}

var maintenanceDueCmd = &cobra.Command{
	Use:   "due",
	Short: "List machines overdue for maintenance",
	Long: `List machines whose last maintenance is at least the given number of days
old, most overdue first. Machines never maintained are not listed.

Examples:
  vendcore maintenance due
  vendcore maintenance due --days 60`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closer, err := openService()
		if err != nil {
			return err
		}
		defer closer()

		due, err := svc.Maintenance().MachinesDueMaintenance(context.Background(), dueDays)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(due)
		}
		if len(due) == 0 {
			output.Success("no machines due for maintenance")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tMACHINE\tBUILDING\tLAST MAINTENANCE\tDAYS AGO")
		for _, d := range due {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", d.MachineID, d.Name, d.BuildingName, d.LastMaintenanceDate, d.DaysSinceMaintenance)
		}
		return w.Flush()
	},
}

var maintenanceScheduleCmd = &cobra.Command{
	Use:   "schedule <machine-id>...",
	Short: "Plan maintenance for a set of machines",
	Long: `Print a maintenance plan for the given machines. Nothing is persisted;
the plan is intended for handoff to an external scheduler.

Examples:
  vendcore maintenance schedule 1 2 3 --date 2026-10-01 --description "quarterly service"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := domain.ParseDate(scheduleDate)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		ids := make([]int64, 0, len(args))
		for _, arg := range args {
			id, err := parseID(arg)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		svc, closer, err := openService()
		if err != nil {
			return err
		}
		defer closer()

		planned, err := svc.Maintenance().ScheduleMaintenance(context.Background(), ids, date, scheduleDesc)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(planned)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tMACHINE\tDATE\tDESCRIPTION")
		for _, p := range planned {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.MachineID, p.MachineName, p.Date, p.Description)
		}
		return w.Flush()
	},
}

func init() {
	maintenanceHistoryCmd.Flags().Int64Var(&historyMachineID, "machine", 0, "Restrict to one machine (0 = all)")
	maintenanceRecordCmd.Flags().StringVar(&recordPerformer, "by", "", "Who performed the maintenance")
	maintenanceDueCmd.Flags().IntVar(&dueDays, "days", core.DefaultMaintenanceDueDays, "Staleness threshold in days")
	maintenanceScheduleCmd.Flags().StringVar(&scheduleDate, "date", "", "Planned date (YYYY-MM-DD, required)")
	maintenanceScheduleCmd.Flags().StringVar(&scheduleDesc, "description", "", "Planned work description")
	_ = maintenanceScheduleCmd.MarkFlagRequired("date")

	maintenanceCmd.AddCommand(maintenanceHistoryCmd, maintenanceRecordCmd, maintenanceDueCmd, maintenanceScheduleCmd)
	rootCmd.AddCommand(maintenanceCmd)
}
