package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"vendcore/pkg/domain"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vendcore.db")
	ctx := context.Background()

	store := openTestStore(t, path)
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		building, err := tx.CreateBuilding(domain.Building{Name: "Library", Location: "north campus"})
		if err != nil {
			return err
		}
		machine, err := tx.CreateMachine(domain.Machine{Name: "M1", BuildingID: building.ID, LocationDescription: "lobby"})
		if err != nil {
			return err
		}
		product, err := tx.CreateProduct(domain.Product{Name: "Water", Price: 1.0, Category: "drinks"})
		if err != nil {
			return err
		}
		_, err = tx.CreateInventoryItem(domain.InventoryItem{
			MachineID:       machine.ID,
			ProductID:       product.ID,
			Quantity:        4,
			LastRestockDate: tx.Today(),
		})
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openTestStore(t, path)
	buildings := reopened.ListBuildings()
	if len(buildings) != 1 || buildings[0].Name != "Library" || buildings[0].ID != 1 {
		t.Fatalf("unexpected buildings after reload: %+v", buildings)
	}
	items := reopened.ListInventory()
	if len(items) != 1 || items[0].Quantity != 4 {
		t.Fatalf("unexpected inventory after reload: %+v", items)
	}

	// IDs continue from the persisted maximum, not from 1.
	var machine domain.Machine
	if _, err := reopened.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		machine, err = tx.CreateMachine(domain.Machine{Name: "M2", BuildingID: 1})
		return err
	}); err != nil {
		t.Fatalf("create after reload: %v", err)
	}
	if machine.ID != 2 {
		t.Fatalf("expected machine id 2 after reload, got %d", machine.ID)
	}
}

func TestSnapshotUsesDurableBucketNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vendcore.db")
	store := openTestStore(t, path)
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateBuilding(domain.Building{Name: "Library"})
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rows, err := store.DB().Query(`SELECT bucket FROM state ORDER BY bucket`)
	if err != nil {
		t.Fatalf("query buckets: %v", err)
	}
	defer func() { _ = rows.Close() }()
	var buckets []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			t.Fatalf("scan: %v", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	want := []string{"buildings", "inventory", "maintenance_records", "products", "vending_machines"}
	if len(buckets) != len(want) {
		t.Fatalf("expected %d buckets, got %v", len(want), buckets)
	}
	for i, b := range want {
		if buckets[i] != b {
			t.Fatalf("bucket %d: expected %s, got %s", i, b, buckets[i])
		}
	}
}

func TestMaintenanceDateRoundTripsThroughSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vendcore.db")
	ctx := context.Background()

	store := openTestStore(t, path)
	date, err := domain.ParseDate("2024-06-01")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		machine, err := tx.CreateMachine(domain.Machine{Name: "M1", BuildingID: 1})
		if err != nil {
			return err
		}
		_, err = tx.UpdateMachine(machine.ID, func(m *domain.Machine) error {
			m.LastMaintenanceDate = &date
			return nil
		})
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openTestStore(t, path)
	machine, ok := reopened.GetMachine(1)
	if !ok {
		t.Fatalf("machine missing after reload")
	}
	if machine.LastMaintenanceDate == nil || machine.LastMaintenanceDate.String() != "2024-06-01" {
		t.Fatalf("unexpected maintenance date after reload: %+v", machine.LastMaintenanceDate)
	}
}

func TestBlockedTransactionWritesNothing(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(alwaysBlockRule{})
	path := filepath.Join(t.TempDir(), "vendcore.db")
	store, err := NewStore(path, engine)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateBuilding(domain.Building{Name: "Library"})
		return err
	}); err == nil {
		t.Fatalf("expected rule violation error")
	}

	var count int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM state`).Scan(&count); err != nil {
		t.Fatalf("count state rows: %v", err)
	}
	if count != 0 {
		t.Fatalf("blocked transaction must not snapshot, found %d buckets", count)
	}
}

func TestFailedSnapshotSurfacesErrorAndKeepsMemoryCommit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vendcore.db")
	store := openTestStore(t, path)

	if err := store.DB().Close(); err != nil {
		t.Fatalf("close db handle: %v", err)
	}

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateBuilding(domain.Building{Name: "Library"})
		return err
	})
	if err == nil || !strings.Contains(err.Error(), "persist snapshot") {
		t.Fatalf("expected persist snapshot error, got %v", err)
	}

	// The in-memory commit stays in place; durability is only restored by
	// the next successful snapshot.
	buildings := store.ListBuildings()
	if len(buildings) != 1 || buildings[0].Name != "Library" {
		t.Fatalf("expected committed building in memory, got %+v", buildings)
	}
}

type alwaysBlockRule struct{}

var _ domain.Rule = alwaysBlockRule{}

func (alwaysBlockRule) Name() string { return "always_block" }

func (alwaysBlockRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	if len(changes) == 0 {
		return domain.Result{}, nil
	}
	return domain.Result{Violations: []domain.Violation{
		{Rule: "always_block", Severity: domain.SeverityBlock, Message: "blocked"},
	}}, nil
}
