package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"time"

	"vendcore/internal/core"
)

// Kind identifies a report projection available for export.
type Kind string

const (
	KindInventory        Kind = "inventory"
	KindMaintenance      Kind = "maintenance"
	KindLowStock         Kind = "low_stock"
	KindTotalsByMachine  Kind = "totals_by_machine"
	KindTotalsByCategory Kind = "totals_by_category"
)

// Format identifies an export serialization.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatPNG  Format = "png"
)

func (k Kind) valid() bool {
	switch k {
	case KindInventory, KindMaintenance, KindLowStock, KindTotalsByMachine, KindTotalsByCategory:
		return true
	}
	return false
}

// supportsFormat reports whether the kind can render the format. PNG charts
// only make sense for the aggregate projections.
func (k Kind) supportsFormat(f Format) bool {
	switch f {
	case FormatCSV, FormatJSON:
		return k.valid()
	case FormatPNG:
		return k == KindTotalsByMachine || k == KindTotalsByCategory
	}
	return false
}

// reportTable is the format-independent intermediate the renderers consume.
// series is populated for aggregate kinds and drives chart rendering.
type reportTable struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	series  []seriesPoint
}

type seriesPoint struct {
	Label string
	Value int
}

func (w *Worker) renderTable(ctx context.Context, input ExportInput) (reportTable, error) {
	switch input.Kind {
	case KindInventory:
		rows, err := w.reports.InventoryReport(ctx)
		if err != nil {
			return reportTable{}, err
		}
		return inventoryTable(rows), nil
	case KindLowStock:
		rows, err := w.reports.LowStockReport(ctx, input.Threshold)
		if err != nil {
			return reportTable{}, err
		}
		return inventoryTable(rows), nil
	case KindMaintenance:
		rows, err := w.reports.MaintenanceReport(ctx)
		if err != nil {
			return reportTable{}, err
		}
		table := reportTable{Columns: []string{"machine", "building", "date", "description", "performed_by"}}
		for _, r := range rows {
			table.Rows = append(table.Rows, []string{r.Machine, r.Building, r.Date.String(), r.Description, r.PerformedBy})
		}
		return table, nil
	case KindTotalsByMachine:
		totals, err := w.reports.TotalsByMachine(ctx)
		if err != nil {
			return reportTable{}, err
		}
		table := reportTable{Columns: []string{"machine", "total_quantity"}}
		for _, t := range totals {
			table.Rows = append(table.Rows, []string{t.Machine, strconv.Itoa(t.TotalQuantity)})
			table.series = append(table.series, seriesPoint{Label: t.Machine, Value: t.TotalQuantity})
		}
		return table, nil
	case KindTotalsByCategory:
		totals, err := w.reports.TotalsByCategory(ctx)
		if err != nil {
			return reportTable{}, err
		}
		table := reportTable{Columns: []string{"category", "total_quantity"}}
		for _, t := range totals {
			table.Rows = append(table.Rows, []string{t.Category, strconv.Itoa(t.TotalQuantity)})
			table.series = append(table.series, seriesPoint{Label: t.Category, Value: t.TotalQuantity})
		}
		return table, nil
	}
	return reportTable{}, fmt.Errorf("unknown report kind %s", input.Kind)
}

func inventoryTable(rows []core.InventoryReportRow) reportTable {
	table := reportTable{Columns: []string{"machine", "building", "product", "category", "quantity", "last_restock"}}
	for _, r := range rows {
		table.Rows = append(table.Rows, []string{r.Machine, r.Building, r.Product, r.Category, strconv.Itoa(r.Quantity), r.LastRestock.String()})
	}
	return table
}

func materialize(format Format, kind Kind, table reportTable) (renderedArtifact, error) {
	switch format {
	case FormatJSON:
		payload, err := json.Marshal(table)
		if err != nil {
			return renderedArtifact{}, fmt.Errorf("marshal json: %w", err)
		}
		return newRendered(FormatJSON, "application/json", kind, table, payload), nil
	case FormatCSV:
		buf := &bytes.Buffer{}
		writer := csv.NewWriter(buf)
		if err := writer.Write(table.Columns); err != nil {
			return renderedArtifact{}, err
		}
		for _, row := range table.Rows {
			if err := writer.Write(row); err != nil {
				return renderedArtifact{}, err
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return renderedArtifact{}, err
		}
		return newRendered(FormatCSV, "text/csv", kind, table, buf.Bytes()), nil
	case FormatPNG:
		payload, err := buildBarChart(table.series)
		if err != nil {
			return renderedArtifact{}, err
		}
		return newRendered(FormatPNG, "image/png", kind, table, payload), nil
	}
	return renderedArtifact{}, fmt.Errorf("unsupported export format %s", format)
}

func newRendered(format Format, contentType string, kind Kind, table reportTable, payload []byte) renderedArtifact {
	return renderedArtifact{
		Artifact: ExportArtifact{
			ID:          newID(),
			Format:      format,
			ContentType: contentType,
			SizeBytes:   int64(len(payload)),
			Metadata: map[string]any{
				"kind": string(kind),
				"rows": len(table.Rows),
			},
			CreatedAt: time.Now().UTC(),
		},
		Payload: payload,
	}
}

// buildBarChart renders one bar per series point, heights scaled to the
// largest value. An empty series produces a blank canvas.
func buildBarChart(series []seriesPoint) ([]byte, error) {
	const (
		width  = 400
		height = 200
		margin = 10
	)
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

	maxValue := 0
	for _, p := range series {
		if p.Value > maxValue {
			maxValue = p.Value
		}
	}
	if maxValue > 0 {
		barWidth := (width - 2*margin) / len(series)
		if barWidth < 1 {
			barWidth = 1
		}
		for i, p := range series {
			if p.Value <= 0 {
				continue
			}
			barHeight := (height - 2*margin) * p.Value / maxValue
			x0 := margin + i*barWidth
			x1 := x0 + barWidth - 2
			if x1 <= x0 {
				x1 = x0 + 1
			}
			rect := image.Rect(x0, height-margin-barHeight, x1, height-margin)
			draw.Draw(img, rect, &image.Uniform{color.RGBA{0, 102, 204, 255}}, image.Point{}, draw.Src)
		}
	}
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
