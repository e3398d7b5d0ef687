package service

import (
	"strings"

	"homeaccess_backend/internal/proposals/repository"
	"homeaccess_backend/internal/proposals/transport"
	"homeaccess_backend/internal/shared/assessment"
	"homeaccess_backend/internal/shared/money"
	"homeaccess_backend/platform/sanitize"
)

type priceRule struct {
	keywords []string
	dollars  float64
}

// priceRules is checked in order; the first rule with a keyword in the
// recommendation text sets the estimate.
var priceRules = []priceRule{
	{keywords: []string{"grab bar"}, dollars: 150},
	{keywords: []string{"ramp"}, dollars: 2500},
	{keywords: []string{"walk-in shower", "shower"}, dollars: 5000},
	{keywords: []string{"doorway", "widen"}, dollars: 1500},
	{keywords: []string{"handrail", "rail"}, dollars: 300},
	{keywords: []string{"lighting", "light"}, dollars: 200},
	{keywords: []string{"flooring", "floor"}, dollars: 800},
}

const defaultEstimateDollars = 500

// EstimateCents returns the price estimate for one recommendation text.
func EstimateCents(text string) int64 {
	lower := strings.ToLower(text)
	for _, rule := range priceRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return money.CentsFromDollars(rule.dollars)
			}
		}
	}
	return money.CentsFromDollars(defaultEstimateDollars)
}

// BuildFromRecommendations turns each recommendation into an included,
// single-quantity line item priced from the estimate table.
func BuildFromRecommendations(recs []assessment.Recommendation) []repository.LineItem {
	items := make([]repository.LineItem, 0, len(recs))
	for _, rec := range recs {
		label := sanitize.Text(rec.Label())
		if label == "" {
			continue
		}
		price := EstimateCents(rec.Text())
		items = append(items, repository.LineItem{
			Description:        label,
			Quantity:           1,
			UnitPriceCents:     price,
			TotalCents:         price,
			FromRecommendation: true,
			Included:           true,
		})
	}
	return items
}

// lineItemsFromInput normalizes contractor-edited lines and prices them.
func lineItemsFromInput(inputs []transport.LineItemInput) []repository.LineItem {
	items := make([]repository.LineItem, 0, len(inputs))
	for _, in := range inputs {
		quantity := in.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		included := true
		if in.Included != nil {
			included = *in.Included
		}
		unit := money.CentsFromDollars(in.UnitPrice)
		items = append(items, repository.LineItem{
			Description:        sanitize.Text(in.Description),
			Quantity:           quantity,
			UnitPriceCents:     unit,
			TotalCents:         unit * int64(quantity),
			FromRecommendation: in.FromRecommendation,
			Included:           included,
		})
	}
	return items
}

// TotalCents sums the included lines.
func TotalCents(items []repository.LineItem) int64 {
	var total int64
	for _, item := range items {
		if item.Included {
			total += item.TotalCents
		}
	}
	return total
}

func toLineItemResponses(items []repository.LineItem) []transport.LineItemResponse {
	out := make([]transport.LineItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, transport.LineItemResponse{
			Description:        item.Description,
			Quantity:           item.Quantity,
			UnitPrice:          money.DollarsFromCents(item.UnitPriceCents),
			Total:              money.DollarsFromCents(item.TotalCents),
			FromRecommendation: item.FromRecommendation,
			Included:           item.Included,
		})
	}
	return out
}
