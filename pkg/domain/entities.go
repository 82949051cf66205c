// Package domain defines the persistent entities, value types, and rule
// evaluation primitives used by vendcore.
package domain

// EntityType names one of the record tables held by the store. The values
// double as snapshot bucket names.
type EntityType string

const (
	EntityBuilding          EntityType = "building"
	EntityMachine           EntityType = "vending_machine"
	EntityProduct           EntityType = "product"
	EntityInventoryItem     EntityType = "inventory_item"
	EntityMaintenanceRecord EntityType = "maintenance_record"
)

// Severity grades a rule violation. Block is the only severity that stops a
// commit; warn and log are advisory.
type Severity string

const (
	SeverityBlock Severity = "block"
	SeverityWarn  Severity = "warn"
	SeverityLog   Severity = "log"
)

// Building is a site that hosts vending machines. Immutable after creation.
type Building struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

// Machine is a vending machine placed in a building. LastMaintenanceDate is a
// derived cache of the most recently inserted maintenance record's date; it is
// written at record-insert time, never recomputed from the log.
type Machine struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	BuildingID          int64  `json:"building_id"`
	LocationDescription string `json:"location_description"`
	LastMaintenanceDate *Date  `json:"last_maintenance_date"`
}

// Product is a catalog entry. Immutable after creation.
type Product struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

// InventoryItem tracks the stock of one product in one machine. The store
// enforces at most one item per (machine, product) pair.
type InventoryItem struct {
	ID              int64 `json:"id"`
	MachineID       int64 `json:"machine_id"`
	ProductID       int64 `json:"product_id"`
	Quantity        int   `json:"quantity"`
	LastRestockDate Date  `json:"last_restock_date"`
}

// MaintenanceRecord is one entry of the append-only maintenance log.
type MaintenanceRecord struct {
	ID              int64  `json:"id"`
	MachineID       int64  `json:"machine_id"`
	MaintenanceDate Date   `json:"maintenance_date"`
	Description     string `json:"description"`
	PerformedBy     string `json:"performed_by"`
}

// Change records one mutation inside a transaction, with the entity value
// before and after the write. Rules evaluate the accumulated change list.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action is the kind of mutation a Change records. There is no delete:
// buildings and products are immutable, machines and inventory items are
// only ever updated, and the maintenance log is append-only.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// Violation is one rule failure tied to the entity that triggered it.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID int64
}

// Result collects the violations produced by a rule evaluation pass.
type Result struct {
	Violations []Violation
}

// Merge folds another result's violations into r.
func (r *Result) Merge(other Result) {
	if len(other.Violations) > 0 {
		r.Violations = append(r.Violations, other.Violations...)
	}
}

// HasBlocking reports whether any violation carries SeverityBlock.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError aborts a commit; Result carries the violations that
// caused it.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction rejected by rule evaluation"
}
