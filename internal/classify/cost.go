// internal/classify/cost.go
package classify

import (
	"strings"

	"github.com/user/clawboard/internal/types"
)

// modelPricing is USD per million tokens.
type modelPricing struct {
	Input      float64
	Output     float64
	CacheRead  float64
	CacheWrite float64
}

// pricingTable keys on a model-family substring. Rates follow the published
// Anthropic API price sheet.
var pricingTable = []struct {
	match   string
	pricing modelPricing
}{
	{"opus", modelPricing{Input: 15, Output: 75, CacheRead: 1.5, CacheWrite: 18.75}},
	{"sonnet", modelPricing{Input: 3, Output: 15, CacheRead: 0.3, CacheWrite: 3.75}},
	{"haiku", modelPricing{Input: 0.8, Output: 4, CacheRead: 0.08, CacheWrite: 1}},
}

func pricingFor(model string) (modelPricing, bool) {
	lower := strings.ToLower(model)
	for _, entry := range pricingTable {
		if strings.Contains(lower, entry.match) {
			return entry.pricing, true
		}
	}
	return modelPricing{}, false
}

// usagePayload is the token usage block a result frame may carry.
type usagePayload struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
}

func (u usagePayload) empty() bool {
	return u.InputTokens == 0 && u.OutputTokens == 0 &&
		u.CacheCreationInputTokens == 0 && u.CacheReadInputTokens == 0
}

// breakdown computes the four-way cost split from a usage block. When the
// model has no pricing entry the stream's reported total is used as-is.
func breakdown(model string, usage usagePayload, reportedTotal float64) types.CostBreakdown {
	pricing, ok := pricingFor(model)
	if !ok || usage.empty() {
		return types.CostBreakdown{Total: reportedTotal}
	}

	const mtok = 1_000_000
	b := types.CostBreakdown{
		Input:      float64(usage.InputTokens) * pricing.Input / mtok,
		Output:     float64(usage.OutputTokens) * pricing.Output / mtok,
		CacheRead:  float64(usage.CacheReadInputTokens) * pricing.CacheRead / mtok,
		CacheWrite: float64(usage.CacheCreationInputTokens) * pricing.CacheWrite / mtok,
	}
	b.Total = b.Input + b.Output + b.CacheRead + b.CacheWrite
	if reportedTotal > 0 {
		// The agent's own accounting is authoritative for the total.
		b.Total = reportedTotal
	}
	return b
}
