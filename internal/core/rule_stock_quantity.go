package core

import (
	"context"
	"fmt"

	"vendcore/pkg/domain"
)

// NewStockQuantityRule returns the in-transaction rule rejecting negative
// stock quantities. The check blocks at the store boundary so no caller can
// commit a negative count.
func NewStockQuantityRule() domain.Rule {
	return stockQuantityRule{}
}

type stockQuantityRule struct{}

func (stockQuantityRule) Name() string { return "stock_quantity_non_negative" }

func (stockQuantityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, item := range view.ListInventory() {
		if item.Quantity < 0 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "stock_quantity_non_negative",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("inventory item %d (machine %d, product %d) has negative quantity %d", item.ID, item.MachineID, item.ProductID, item.Quantity),
				Entity:   domain.EntityInventoryItem,
				EntityID: item.ID,
			})
		}
	}
	return res, nil
}
