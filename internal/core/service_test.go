package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"vendcore/internal/infra/persistence/memory"
	"vendcore/pkg/domain"
)

func pinStoreClock(t *testing.T, svc *Service, instant time.Time) {
	t.Helper()
	ms, ok := svc.Store().(*memory.Store)
	if !ok {
		t.Fatalf("expected memory-backed store, got %T", svc.Store())
	}
	ms.SetNowFunc(func() time.Time { return instant })
}

func seedMachine(t *testing.T, svc *Service, buildingName, machineName string) (Building, Machine) {
	t.Helper()
	ctx := context.Background()
	building, _, err := svc.CreateBuilding(ctx, Building{Name: buildingName})
	if err != nil {
		t.Fatalf("create building: %v", err)
	}
	machine, _, err := svc.CreateMachine(ctx, Machine{Name: machineName, BuildingID: building.ID})
	if err != nil {
		t.Fatalf("create machine: %v", err)
	}
	return building, machine
}

func TestLowStockScenario(t *testing.T) {
	svc := NewInMemoryService(NewDefaultRulesEngine())
	ctx := context.Background()

	building, machine := seedMachine(t, svc, "Library", "M1")
	if building.ID != 1 {
		t.Fatalf("expected building id 1, got %d", building.ID)
	}
	if machine.ID != 1 {
		t.Fatalf("expected machine id 1, got %d", machine.ID)
	}
	product, _, err := svc.Inventory().AddProduct(ctx, "Water", 1.0, "drinks")
	if err != nil {
		t.Fatalf("add product: %v", err)
	}
	if product.ID != 1 {
		t.Fatalf("expected product id 1, got %d", product.ID)
	}
	if _, _, err := svc.Inventory().AddProductToMachine(ctx, machine.ID, product.ID, 3); err != nil {
		t.Fatalf("stock machine: %v", err)
	}

	rows, err := svc.Inventory().GetLowStock(ctx, 5)
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly one low-stock row, got %d", len(rows))
	}
	row := rows[0]
	if row.BuildingName != "Library" || row.MachineName != "M1" || row.Quantity != 3 {
		t.Fatalf("unexpected low-stock row: %+v", row)
	}

	// Below the quantity the item is no longer low stock.
	rows, err = svc.Inventory().GetLowStock(ctx, 2)
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows at threshold 2, got %d", len(rows))
	}
}

func TestAddRecordStampsDerivedDate(t *testing.T) {
	svc := NewInMemoryService(NewDefaultRulesEngine())
	ctx := context.Background()
	pinStoreClock(t, svc, time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC))

	_, machine := seedMachine(t, svc, "Library", "M1")
	created, _, err := svc.Maintenance().AddRecord(ctx, machine.ID, "filter swap", "J. Ortiz")
	if err != nil {
		t.Fatalf("add record: %v", err)
	}
	if got := created.MaintenanceDate.String(); got != "2024-06-01" {
		t.Fatalf("expected record dated 2024-06-01, got %s", got)
	}

	machines, err := svc.Inventory().ListMachines(ctx)
	if err != nil {
		t.Fatalf("list machines: %v", err)
	}
	if len(machines) != 1 || machines[0].LastMaintenanceDate == nil {
		t.Fatalf("expected one machine with a maintenance date, got %+v", machines)
	}
	if got := machines[0].LastMaintenanceDate.String(); got != "2024-06-01" {
		t.Fatalf("expected derived date 2024-06-01, got %s", got)
	}

	entries, err := svc.Maintenance().History(ctx, machine.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 1 || entries[0].Date.String() != "2024-06-01" {
		t.Fatalf("expected exactly one entry dated 2024-06-01, got %+v", entries)
	}
}

func TestAddRecordUnknownMachineStillAppends(t *testing.T) {
	svc := NewInMemoryService(NewDefaultRulesEngine())
	ctx := context.Background()

	created, _, err := svc.Maintenance().AddRecord(ctx, 99, "inspection", "tech")
	if err != nil {
		t.Fatalf("add record for unknown machine: %v", err)
	}
	if created.ID != 1 {
		t.Fatalf("expected record id 1, got %d", created.ID)
	}
	entries, err := svc.Maintenance().History(ctx, 99)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 1 || entries[0].MachineName != "" {
		t.Fatalf("expected one entry with empty machine name, got %+v", entries)
	}
}

func TestDerivedDateOverwriteIsUnconditional(t *testing.T) {
	svc := NewInMemoryService(NewDefaultRulesEngine())
	ctx := context.Background()
	_, machine := seedMachine(t, svc, "Library", "M1")

	pinStoreClock(t, svc, time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC))
	if _, _, err := svc.Maintenance().AddRecord(ctx, machine.ID, "later work", "a"); err != nil {
		t.Fatalf("add record: %v", err)
	}
	// A record landing with an earlier system date regresses the cached
	// date; the log itself stays intact.
	pinStoreClock(t, svc, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	if _, _, err := svc.Maintenance().AddRecord(ctx, machine.ID, "backfilled work", "b"); err != nil {
		t.Fatalf("add record: %v", err)
	}

	machines, err := svc.Inventory().ListMachines(ctx)
	if err != nil {
		t.Fatalf("list machines: %v", err)
	}
	if got := machines[0].LastMaintenanceDate.String(); got != "2024-06-01" {
		t.Fatalf("expected regressed derived date 2024-06-01, got %s", got)
	}
	entries, err := svc.Maintenance().History(ctx, machine.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 2 || entries[0].Date.String() != "2024-06-10" {
		t.Fatalf("expected two entries newest first, got %+v", entries)
	}
}

func TestUpdateInventoryMissingPairIsReportedNoOp(t *testing.T) {
	svc := NewInMemoryService(NewDefaultRulesEngine())
	ctx := context.Background()

	_, _, err := svc.Inventory().UpdateInventory(ctx, 1, 1, 10)
	var notFound domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if notFound.Entity != EntityInventoryItem {
		t.Fatalf("unexpected entity in not-found: %+v", notFound)
	}
	rows, err := svc.Reports().InventoryReport(ctx)
	if err != nil {
		t.Fatalf("inventory report: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("no-op update must not create rows, got %+v", rows)
	}
}

func TestUpdateInventoryIsIdempotent(t *testing.T) {
	svc := NewInMemoryService(NewDefaultRulesEngine())
	ctx := context.Background()
	pinStoreClock(t, svc, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))

	_, machine := seedMachine(t, svc, "Library", "M1")
	product, _, err := svc.Inventory().AddProduct(ctx, "Water", 1.0, "drinks")
	if err != nil {
		t.Fatalf("add product: %v", err)
	}
	if _, _, err := svc.Inventory().AddProductToMachine(ctx, machine.ID, product.ID, 3); err != nil {
		t.Fatalf("stock: %v", err)
	}

	first, _, err := svc.Inventory().UpdateInventory(ctx, machine.ID, product.ID, 12)
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	second, _, err := svc.Inventory().UpdateInventory(ctx, machine.ID, product.ID, 12)
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if first != second {
		t.Fatalf("repeated update changed the record: %+v vs %+v", first, second)
	}
	if second.Quantity != 12 || second.LastRestockDate.String() != "2024-06-01" {
		t.Fatalf("unexpected updated item: %+v", second)
	}
}

func TestGetMachineInventoryDropsDanglingProduct(t *testing.T) {
	svc := NewInMemoryService(NewDefaultRulesEngine())
	ctx := context.Background()
	_, machine := seedMachine(t, svc, "Library", "M1")

	// Product 42 was never created; the stock row exists but the join fails.
	if _, _, err := svc.Inventory().AddProductToMachine(ctx, machine.ID, 42, 5); err != nil {
		t.Fatalf("stock: %v", err)
	}
	rows, err := svc.Inventory().GetMachineInventory(ctx, machine.ID)
	if err != nil {
		t.Fatalf("machine inventory: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("dangling product must be omitted, got %+v", rows)
	}
}

func TestMachinesDueMaintenanceBoundary(t *testing.T) {
	newSvcAt := func(today time.Time) *Service {
		return NewService(
			mustMemoryStore(t),
			WithClock(func() time.Time { return today }),
		)
	}

	setup := func(svc *Service) {
		ctx := context.Background()
		pinStoreClock(t, svc, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
		_, machine := seedMachine(t, svc, "Library", "M1")
		if _, _, err := svc.Maintenance().AddRecord(ctx, machine.ID, "service", "tech"); err != nil {
			t.Fatalf("add record: %v", err)
		}
	}

	// Exactly at the threshold the machine is due.
	svc := newSvcAt(time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC))
	setup(svc)
	due, err := svc.Maintenance().MachinesDueMaintenance(context.Background(), 30)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 1 || due[0].DaysSinceMaintenance != 30 {
		t.Fatalf("expected one machine 30 days stale, got %+v", due)
	}

	// One day short of the threshold it is not.
	svc = newSvcAt(time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC))
	setup(svc)
	due, err = svc.Maintenance().MachinesDueMaintenance(context.Background(), 30)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("expected no machines at 29 days, got %+v", due)
	}
}

func mustMemoryStore(t *testing.T) PersistentStore {
	t.Helper()
	store, err := OpenPersistentStore(StorageOptions{Driver: StorageMemory}, NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}

func TestMachinesDueMaintenanceOrderingAndExclusions(t *testing.T) {
	svc := NewService(
		mustMemoryStore(t),
		WithClock(func() time.Time { return time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC) }),
	)
	ctx := context.Background()

	building, _, err := svc.CreateBuilding(ctx, Building{Name: "Library"})
	if err != nil {
		t.Fatalf("create building: %v", err)
	}
	addMachineWithDate := func(name, date string) {
		t.Helper()
		machine, _, err := svc.CreateMachine(ctx, Machine{Name: name, BuildingID: building.ID})
		if err != nil {
			t.Fatalf("create machine: %v", err)
		}
		if date == "" {
			return
		}
		parsed, err := domain.ParseDate(date)
		if err != nil {
			t.Fatalf("parse date: %v", err)
		}
		if _, err := svc.Store().RunInTransaction(ctx, func(tx Transaction) error {
			_, txErr := tx.UpdateMachine(machine.ID, func(m *Machine) error {
				m.LastMaintenanceDate = &parsed
				return nil
			})
			return txErr
		}); err != nil {
			t.Fatalf("set maintenance date: %v", err)
		}
	}
	addMachineWithDate("fresh", "2024-07-20")    // 12 days, not due
	addMachineWithDate("stale", "2024-06-01")    // 61 days
	addMachineWithDate("stalest", "2024-05-01")  // 92 days
	addMachineWithDate("never-maintained", "")   // excluded

	due, err := svc.Maintenance().MachinesDueMaintenance(ctx, 30)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("expected two due machines, got %+v", due)
	}
	if due[0].Name != "stalest" || due[1].Name != "stale" {
		t.Fatalf("expected staleness-descending order, got %s then %s", due[0].Name, due[1].Name)
	}
	if due[0].DaysSinceMaintenance != 92 || due[1].DaysSinceMaintenance != 61 {
		t.Fatalf("unexpected staleness values: %+v", due)
	}
}

func TestDuplicateStockPairingBlocked(t *testing.T) {
	svc := NewInMemoryService(NewDefaultRulesEngine())
	ctx := context.Background()
	_, machine := seedMachine(t, svc, "Library", "M1")
	product, _, err := svc.Inventory().AddProduct(ctx, "Water", 1.0, "drinks")
	if err != nil {
		t.Fatalf("add product: %v", err)
	}
	if _, _, err := svc.Inventory().AddProductToMachine(ctx, machine.ID, product.ID, 3); err != nil {
		t.Fatalf("first pairing: %v", err)
	}

	_, res, err := svc.Inventory().AddProductToMachine(ctx, machine.ID, product.ID, 9)
	var viol domain.RuleViolationError
	if !errors.As(err, &viol) {
		t.Fatalf("expected RuleViolationError, got %v", err)
	}
	found := false
	for _, v := range res.Violations {
		if v.Rule == "stock_pairing_unique" && v.Severity == SeverityBlock {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected stock_pairing_unique violation, got %+v", res.Violations)
	}
	rows, err := svc.Inventory().GetMachineInventory(ctx, machine.ID)
	if err != nil {
		t.Fatalf("machine inventory: %v", err)
	}
	if len(rows) != 1 || rows[0].Quantity != 3 {
		t.Fatalf("blocked pairing must not commit, got %+v", rows)
	}
}

func TestNegativeQuantityBlocked(t *testing.T) {
	svc := NewInMemoryService(NewDefaultRulesEngine())
	ctx := context.Background()
	_, machine := seedMachine(t, svc, "Library", "M1")
	product, _, err := svc.Inventory().AddProduct(ctx, "Water", 1.0, "drinks")
	if err != nil {
		t.Fatalf("add product: %v", err)
	}
	if _, _, err := svc.Inventory().AddProductToMachine(ctx, machine.ID, product.ID, 3); err != nil {
		t.Fatalf("stock: %v", err)
	}

	_, _, err = svc.Inventory().UpdateInventory(ctx, machine.ID, product.ID, -1)
	var viol domain.RuleViolationError
	if !errors.As(err, &viol) {
		t.Fatalf("expected RuleViolationError, got %v", err)
	}
	rows, err := svc.Inventory().GetMachineInventory(ctx, machine.ID)
	if err != nil {
		t.Fatalf("machine inventory: %v", err)
	}
	if rows[0].Quantity != 3 {
		t.Fatalf("blocked update must not commit, got quantity %d", rows[0].Quantity)
	}
}

func TestNegativePriceBlocked(t *testing.T) {
	svc := NewInMemoryService(NewDefaultRulesEngine())
	_, _, err := svc.Inventory().AddProduct(context.Background(), "Broken", -0.5, "drinks")
	var viol domain.RuleViolationError
	if !errors.As(err, &viol) {
		t.Fatalf("expected RuleViolationError, got %v", err)
	}
}

func TestScheduleMaintenancePersistsNothing(t *testing.T) {
	svc := NewInMemoryService(NewDefaultRulesEngine())
	ctx := context.Background()
	_, machine := seedMachine(t, svc, "Library", "M1")
	date := domain.NewDate(2026, time.October, 1)

	planned, err := svc.Maintenance().ScheduleMaintenance(ctx, []int64{machine.ID, 77}, date, "quarterly")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(planned) != 2 {
		t.Fatalf("expected two planned entries, got %+v", planned)
	}
	if planned[0].MachineName != "M1" || planned[1].MachineName != "" {
		t.Fatalf("unexpected plan names: %+v", planned)
	}
	entries, err := svc.Maintenance().History(ctx, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("scheduling must not persist records, got %+v", entries)
	}
}

func TestStandaloneManagersShareTheStore(t *testing.T) {
	store := mustMemoryStore(t)
	ctx := context.Background()

	inventory := NewInventoryService(store)
	maintenance := NewMaintenanceService(store)
	reports := NewReportService(store)

	product, _, err := inventory.AddProduct(ctx, "Water", 1.0, "drinks")
	if err != nil {
		t.Fatalf("add product: %v", err)
	}
	if product.ID != 1 {
		t.Fatalf("expected product id 1, got %d", product.ID)
	}
	if _, _, err := maintenance.AddRecord(ctx, 1, "filter swap", "tech"); err != nil {
		t.Fatalf("add record: %v", err)
	}

	// All three managers observe the same committed state.
	rows, err := reports.InventoryReport(ctx)
	if err != nil {
		t.Fatalf("inventory report: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no stocked rows yet, got %+v", rows)
	}
	entries, err := maintenance.History(ctx, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one maintenance record, got %+v", entries)
	}
}
