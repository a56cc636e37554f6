package generator

import (
	"github.com/zen-systems/questforge/pkg/adapter"
	"github.com/zen-systems/questforge/pkg/config"
)

func estimateCost(pricing config.ModelPricing, usage adapter.Usage) adapter.Cost {
	promptCost := (float64(usage.PromptTokens) / 1000.0) * pricing.PromptPer1K
	completionCost := (float64(usage.CompletionTokens) / 1000.0) * pricing.CompletionPer1K
	return adapter.Cost{
		Currency:     "USD",
		Amount:       promptCost + completionCost,
		IsEstimate:   true,
		PricingModel: "per_1k_tokens",
	}
}

// TotalCost sums the cost of every successful report.
func TotalCost(reports []adapter.CallReport) adapter.Cost {
	total := adapter.Cost{Currency: "USD"}
	for _, r := range reports {
		if r.Error != "" {
			continue
		}
		total.Amount += r.Cost.Amount
		total.IsEstimate = total.IsEstimate || r.Cost.IsEstimate
	}
	return total
}
