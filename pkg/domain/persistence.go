package domain

import (
	"context"
	"fmt"
)

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Buildings and products are immutable
// after creation and the maintenance log is append-only, so only machines and
// inventory items have update operations.
type Transaction interface {
	Snapshot() RuleView
	Today() Date
	CreateBuilding(Building) (Building, error)
	CreateMachine(Machine) (Machine, error)
	UpdateMachine(id int64, mutator func(*Machine) error) (Machine, error)
	CreateProduct(Product) (Product, error)
	CreateInventoryItem(InventoryItem) (InventoryItem, error)
	UpdateInventoryItem(id int64, mutator func(*InventoryItem) error) (InventoryItem, error)
	CreateMaintenanceRecord(MaintenanceRecord) (MaintenanceRecord, error)
	FindBuilding(id int64) (Building, bool)
	FindMachine(id int64) (Machine, bool)
	FindProduct(id int64) (Product, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers. Durable
// implementations persist the full snapshot synchronously before
// RunInTransaction returns; a persistence failure surfaces as the returned
// error with the in-memory state already committed.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(RuleView) error) error
	GetBuilding(id int64) (Building, bool)
	ListBuildings() []Building
	GetMachine(id int64) (Machine, bool)
	ListMachines() []Machine
	GetProduct(id int64) (Product, bool)
	ListProducts() []Product
	ListInventory() []InventoryItem
	ListMaintenanceRecords() []MaintenanceRecord
}

// ErrNotFound reports a missing update or lookup target. Managers treat it as
// a reportable no-op rather than a fatal condition.
type ErrNotFound struct {
	Entity EntityType
	ID     int64
}

func (e ErrNotFound) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}
