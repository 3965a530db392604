package economy

import (
	"github.com/pixil98/go-settle/internal/settlement"
)

// ApplyDelta adds a resource delta to storage and returns the new storage
// plus the waste that didn't fit. For every resource the result obeys
// 0 <= amount <= capacity and waste = max(0, amount+delta-capacity),
// exactly. The input storage is not mutated; callers swap in the returned
// copy once the whole settlement update is known to persist.
func ApplyDelta(st settlement.Storage, delta settlement.ResourceDelta) (settlement.Storage, settlement.ResourceDelta) {
	out := st.Clone()
	waste := settlement.ResourceDelta{}

	for r, amt := range delta {
		if amt == 0 {
			continue
		}

		stock := out[r]
		raw := stock.Amount + amt

		if over := raw - stock.Capacity; over > 0 {
			waste[r] = over
			raw = stock.Capacity
		}
		if raw < 0 {
			raw = 0
		}

		stock.Amount = raw
		out[r] = stock
	}

	return out, waste
}

// TotalWaste sums a waste delta across resources.
func TotalWaste(waste settlement.ResourceDelta) float64 {
	var total float64
	for _, amt := range waste {
		total += amt
	}
	return total
}
