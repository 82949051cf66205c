package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vendcore/cmd/vendcore/output"
	"vendcore/internal/adapters/reports"
	"vendcore/internal/blob"
	"vendcore/internal/config"
)

var (
	reportFormats   []string
	reportThreshold int
)

// reportCmd exports a report projection as stored artifacts.
var reportCmd = &cobra.Command{
	Use:   "report <kind>",
	Short: "Export a report as CSV, JSON, or PNG artifacts",
	Long: `Export a report projection through the artifact store configured by
VENDCORE_BLOB_* (local filesystem by default).

Kinds:
  inventory           - full inventory joined across machine/building/product
  maintenance         - full maintenance log joined with machines and buildings
  low_stock           - inventory at or below the threshold
  totals_by_machine   - total stock per machine (supports png)
  totals_by_category  - total stock per category (supports png)

Examples:
  vendcore report inventory
  vendcore report low_stock --threshold 3 --format csv
  vendcore report totals_by_machine --format png --format csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		svc, closer, err := openService()
		if err != nil {
			return err
		}
		defer closer()

		ctx := context.Background()
		store, err := blob.OpenDriver(ctx, blob.Driver(cfg.Blob.Driver), cfg.Blob.FSRoot)
		if err != nil {
			return err
		}

		worker := reports.NewWorker(svc.Reports(), reports.NewBlobObjectStore(store, cfg.Report.ArtifactPrefix), nil)
		workers := cfg.Report.ExportWorkers
		if workers < 1 {
			workers = 1
		}
		for i := 0; i < workers; i++ {
			worker.Start()
		}
		defer func() { _ = worker.Stop(context.Background()) }()

		formats := make([]reports.Format, 0, len(reportFormats))
		for _, f := range reportFormats {
			formats = append(formats, reports.Format(f))
		}
		record, err := worker.EnqueueExport(ctx, reports.ExportInput{
			Kind:        reports.Kind(args[0]),
			Threshold:   reportThreshold,
			Formats:     formats,
			RequestedBy: "cli",
		})
		if err != nil {
			return err
		}

		record, err = waitForExport(worker, record.ID, 30*time.Second)
		if err != nil {
			return err
		}
		if record.Status == reports.ExportStatusFailed {
			return fmt.Errorf("export failed: %s", record.Error)
		}
		if jsonOutput {
			return printJSON(record)
		}
		for _, artifact := range record.Artifacts {
			output.Success("%s artifact stored (%d bytes): %s", artifact.Format, artifact.SizeBytes, artifact.URL)
		}
		return nil
	},
}

func waitForExport(worker *reports.Worker, id string, timeout time.Duration) (reports.ExportRecord, error) {
	deadline := time.Now().Add(timeout)
	for {
		record, ok := worker.GetExport(id)
		if !ok {
			return reports.ExportRecord{}, fmt.Errorf("export %s not found", id)
		}
		if record.Status == reports.ExportStatusSucceeded || record.Status == reports.ExportStatusFailed {
			return record, nil
		}
		if time.Now().After(deadline) {
			return record, fmt.Errorf("export %s timed out in status %s", id, record.Status)
		}
		time.Sleep(25 * time.Millisecond)
	}
}

func init() {
	reportCmd.Flags().StringArrayVar(&reportFormats, "format", nil, "Output format: csv, json, or png (repeatable; default csv+json)")
	reportCmd.Flags().IntVar(&reportThreshold, "threshold", -1, "Low-stock threshold (low_stock kind only)")

	rootCmd.AddCommand(reportCmd)
}
