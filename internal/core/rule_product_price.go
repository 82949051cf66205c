package core

import (
	"context"
	"fmt"

	"vendcore/pkg/domain"
)

// NewProductPriceRule returns the in-transaction rule rejecting negative
// product prices.
func NewProductPriceRule() domain.Rule {
	return productPriceRule{}
}

type productPriceRule struct{}

func (productPriceRule) Name() string { return "product_price_non_negative" }

func (productPriceRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, p := range view.ListProducts() {
		if p.Price < 0 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "product_price_non_negative",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("product %d (%s) has negative price %.2f", p.ID, p.Name, p.Price),
				Entity:   domain.EntityProduct,
				EntityID: p.ID,
			})
		}
	}
	return res, nil
}
