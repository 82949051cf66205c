package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"vendcore/pkg/domain"
)

func TestIDAssignmentStartsAtOne(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	var first, second Building
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		first, err = tx.CreateBuilding(Building{Name: "Library"})
		if err != nil {
			return err
		}
		second, err = tx.CreateBuilding(Building{Name: "Gym"})
		return err
	}); err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("expected ids 1 and 2, got %d and %d", first.ID, second.ID)
	}
}

func TestIDAssignmentIgnoresCallerValue(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	var created Product
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreateProduct(Product{ID: 99, Name: "Chips", Price: 1.25})
		return err
	}); err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
	if created.ID != 1 {
		t.Fatalf("store must assign the id, got %d", created.ID)
	}
}

func TestIDAssignmentIsMaxPlusOne(t *testing.T) {
	store := NewStore(nil)
	store.ImportState(Snapshot{
		Products: []Product{{ID: 3, Name: "Water"}, {ID: 7, Name: "Juice"}},
	})

	var created Product
	if _, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		var err error
		created, err = tx.CreateProduct(Product{Name: "Soda"})
		return err
	}); err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
	if created.ID != 8 {
		t.Fatalf("expected id 8 (max 7 + 1), got %d", created.ID)
	}
}

func TestListOrderMatchesInsertionOrder(t *testing.T) {
	store := NewStore(nil)
	names := []string{"Library", "Gym", "Cafeteria", "Annex"}
	for _, name := range names {
		if _, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
			_, err := tx.CreateBuilding(Building{Name: name})
			return err
		}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	buildings := store.ListBuildings()
	if len(buildings) != len(names) {
		t.Fatalf("expected %d buildings, got %d", len(names), len(buildings))
	}
	for i, name := range names {
		if buildings[i].Name != name {
			t.Fatalf("position %d: expected %s, got %s", i, name, buildings[i].Name)
		}
	}
}

func TestUpdateMissingMachineReturnsNotFound(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.UpdateMachine(42, func(m *Machine) error { return nil })
		return err
	})
	var notFound domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if notFound.Entity != domain.EntityMachine || notFound.ID != 42 {
		t.Fatalf("unexpected not-found detail: %+v", notFound)
	}
}

func TestFailedTransactionLeavesStateUntouched(t *testing.T) {
	store := NewStore(nil)
	sentinel := errors.New("boom")
	if _, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		if _, err := tx.CreateBuilding(Building{Name: "Library"}); err != nil {
			return err
		}
		return sentinel
	}); !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if got := len(store.ListBuildings()); got != 0 {
		t.Fatalf("aborted transaction must not commit, found %d buildings", got)
	}
}

type blockNegativeQuantity struct{}

var _ domain.Rule = blockNegativeQuantity{}

func (blockNegativeQuantity) Name() string { return "block_negative_quantity" }

func (blockNegativeQuantity) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	var res domain.Result
	for _, item := range view.ListInventory() {
		if item.Quantity < 0 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "block_negative_quantity",
				Severity: domain.SeverityBlock,
				Message:  "quantity below zero",
				Entity:   domain.EntityInventoryItem,
				EntityID: item.ID,
			})
		}
	}
	return res, nil
}

func TestBlockingRuleAbortsCommit(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockNegativeQuantity{})
	store := NewStore(engine)

	res, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreateInventoryItem(InventoryItem{MachineID: 1, ProductID: 1, Quantity: -5})
		return err
	})
	var viol domain.RuleViolationError
	if !errors.As(err, &viol) {
		t.Fatalf("expected RuleViolationError, got %v", err)
	}
	if !res.HasBlocking() {
		t.Fatalf("expected blocking violation in result: %+v", res)
	}
	if got := len(store.ListInventory()); got != 0 {
		t.Fatalf("blocked transaction must not commit, found %d items", got)
	}
}

func TestTransactionTodayUsesStoreClock(t *testing.T) {
	store := NewStore(nil)
	store.SetNowFunc(func() time.Time {
		return time.Date(2024, time.June, 1, 15, 4, 5, 0, time.UTC)
	})
	var today domain.Date
	if _, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		today = tx.Today()
		return nil
	}); err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
	if got := today.String(); got != "2024-06-01" {
		t.Fatalf("expected 2024-06-01, got %s", got)
	}
}

func TestExportStateIsDetachedFromCommittedState(t *testing.T) {
	store := NewStore(nil)
	date := domain.NewDate(2024, time.June, 1)
	store.ImportState(Snapshot{
		Machines: []Machine{{ID: 1, Name: "M1", BuildingID: 1, LastMaintenanceDate: &date}},
	})

	snapshot := store.ExportState()
	*snapshot.Machines[0].LastMaintenanceDate = domain.NewDate(2030, time.January, 1)
	snapshot.Machines[0].Name = "tampered"

	committed, ok := store.GetMachine(1)
	if !ok {
		t.Fatalf("machine missing")
	}
	if committed.Name != "M1" || committed.LastMaintenanceDate.String() != "2024-06-01" {
		t.Fatalf("export snapshot aliases committed state: %+v", committed)
	}
}

func TestViewSeesConsistentSnapshot(t *testing.T) {
	store := NewStore(nil)
	if _, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		if _, err := tx.CreateBuilding(Building{Name: "Library"}); err != nil {
			return err
		}
		_, err := tx.CreateMachine(Machine{Name: "M1", BuildingID: 1})
		return err
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	err := store.View(context.Background(), func(v RuleView) error {
		if len(v.ListBuildings()) != 1 || len(v.ListMachines()) != 1 {
			t.Fatalf("unexpected view contents")
		}
		if _, ok := v.FindMachine(1); !ok {
			t.Fatalf("machine 1 missing from view")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
}
