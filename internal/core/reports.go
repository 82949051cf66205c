package core

import "context"

// ReportService holds the read-side projections: pure transformations over a
// consistent store snapshot, no mutation. Every join follows the omission
// policy: a row referencing a missing entity is dropped, never partially
// rendered.
type ReportService struct {
	store PersistentStore
	obs   *observer
}

// NewReportService constructs the report projections over the shared store.
func NewReportService(store PersistentStore) *ReportService {
	return &ReportService{store: store, obs: &observer{}}
}

// InventoryReportRow is one line of the full inventory table joined across
// machine, building, and product.
type InventoryReportRow struct {
	Machine     string
	Building    string
	Product     string
	Category    string
	Quantity    int
	LastRestock Date
}

// MaintenanceReportRow is one line of the maintenance log joined across
// machine and building.
type MaintenanceReportRow struct {
	Machine     string
	Building    string
	Date        Date
	Description string
	PerformedBy string
}

// MachineTotal aggregates stock quantity per machine.
type MachineTotal struct {
	Machine       string
	TotalQuantity int
}

// CategoryTotal aggregates stock quantity per product category.
type CategoryTotal struct {
	Category      string
	TotalQuantity int
}

// InventoryReport returns the full inventory table.
func (s *ReportService) InventoryReport(ctx context.Context) (rows []InventoryReportRow, err error) {
	ctx, finish := s.obs.begin(ctx, "reports.inventory")
	defer func() { finish(err) }()
	err = s.store.View(ctx, func(view RuleView) error {
		rows = inventoryRows(view, func(InventoryItem) bool { return true })
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// LowStockReport returns the subset of the inventory table at or below
// threshold. A negative threshold falls back to DefaultLowStockThreshold.
func (s *ReportService) LowStockReport(ctx context.Context, threshold int) (rows []InventoryReportRow, err error) {
	ctx, finish := s.obs.begin(ctx, "reports.low_stock")
	defer func() { finish(err) }()
	if threshold < 0 {
		threshold = DefaultLowStockThreshold
	}
	err = s.store.View(ctx, func(view RuleView) error {
		rows = inventoryRows(view, func(item InventoryItem) bool { return item.Quantity <= threshold })
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func inventoryRows(view RuleView, include func(InventoryItem) bool) []InventoryReportRow {
	var rows []InventoryReportRow
	for _, item := range view.ListInventory() {
		if !include(item) {
			continue
		}
		machine, ok := view.FindMachine(item.MachineID)
		if !ok {
			continue
		}
		building, ok := view.FindBuilding(machine.BuildingID)
		if !ok {
			continue
		}
		product, ok := view.FindProduct(item.ProductID)
		if !ok {
			continue
		}
		rows = append(rows, InventoryReportRow{
			Machine:     machine.Name,
			Building:    building.Name,
			Product:     product.Name,
			Category:    product.Category,
			Quantity:    item.Quantity,
			LastRestock: item.LastRestockDate,
		})
	}
	return rows
}

// MaintenanceReport returns the maintenance log joined across machine and
// building, in log order.
func (s *ReportService) MaintenanceReport(ctx context.Context) (rows []MaintenanceReportRow, err error) {
	ctx, finish := s.obs.begin(ctx, "reports.maintenance")
	defer func() { finish(err) }()
	err = s.store.View(ctx, func(view RuleView) error {
		for _, r := range view.ListMaintenanceRecords() {
			machine, ok := view.FindMachine(r.MachineID)
			if !ok {
				continue
			}
			building, ok := view.FindBuilding(machine.BuildingID)
			if !ok {
				continue
			}
			rows = append(rows, MaintenanceReportRow{
				Machine:     machine.Name,
				Building:    building.Name,
				Date:        r.MaintenanceDate,
				Description: r.Description,
				PerformedBy: r.PerformedBy,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// TotalsByMachine aggregates stock quantity per machine, in first-appearance
// order. Items whose machine is missing are dropped.
func (s *ReportService) TotalsByMachine(ctx context.Context) (totals []MachineTotal, err error) {
	ctx, finish := s.obs.begin(ctx, "reports.totals_by_machine")
	defer func() { finish(err) }()
	err = s.store.View(ctx, func(view RuleView) error {
		index := make(map[string]int)
		for _, item := range view.ListInventory() {
			machine, ok := view.FindMachine(item.MachineID)
			if !ok {
				continue
			}
			i, seen := index[machine.Name]
			if !seen {
				index[machine.Name] = len(totals)
				totals = append(totals, MachineTotal{Machine: machine.Name})
				i = len(totals) - 1
			}
			totals[i].TotalQuantity += item.Quantity
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return totals, nil
}

// TotalsByCategory aggregates stock quantity per product category, in
// first-appearance order. Items whose product is missing are dropped.
func (s *ReportService) TotalsByCategory(ctx context.Context) (totals []CategoryTotal, err error) {
	ctx, finish := s.obs.begin(ctx, "reports.totals_by_category")
	defer func() { finish(err) }()
	err = s.store.View(ctx, func(view RuleView) error {
		index := make(map[string]int)
		for _, item := range view.ListInventory() {
			product, ok := view.FindProduct(item.ProductID)
			if !ok {
				continue
			}
			i, seen := index[product.Category]
			if !seen {
				index[product.Category] = len(totals)
				totals = append(totals, CategoryTotal{Category: product.Category})
				i = len(totals) - 1
			}
			totals[i].TotalQuantity += item.Quantity
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return totals, nil
}
