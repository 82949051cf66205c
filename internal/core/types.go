package core

import "vendcore/pkg/domain"

type (
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	Date               = domain.Date
	Building           = domain.Building
	Machine            = domain.Machine
	Product            = domain.Product
	InventoryItem      = domain.InventoryItem
	MaintenanceRecord  = domain.MaintenanceRecord
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	ErrNotFound        = domain.ErrNotFound
	Rule               = domain.Rule
	RuleView           = domain.RuleView
	RulesEngine        = domain.RulesEngine
	Transaction        = domain.Transaction
	PersistentStore    = domain.PersistentStore
)

const (
	EntityBuilding          = domain.EntityBuilding
	EntityMachine           = domain.EntityMachine
	EntityProduct           = domain.EntityProduct
	EntityInventoryItem     = domain.EntityInventoryItem
	EntityMaintenanceRecord = domain.EntityMaintenanceRecord
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
)
