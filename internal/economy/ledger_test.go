package economy

import (
	"testing"

	"github.com/pixil98/go-settle/internal/settlement"
	"github.com/pixil98/go-testutil"
)

func TestApplyDelta(t *testing.T) {
	tests := map[string]struct {
		storage  settlement.Storage
		delta    settlement.ResourceDelta
		expStock map[settlement.Resource]float64
		expWaste settlement.ResourceDelta
	}{
		"production fits": {
			storage: settlement.Storage{
				settlement.ResourceFood: {Amount: 0, Capacity: 100},
			},
			delta:    settlement.ResourceDelta{settlement.ResourceFood: 10},
			expStock: map[settlement.Resource]float64{settlement.ResourceFood: 10},
			expWaste: settlement.ResourceDelta{},
		},
		"overflow becomes waste": {
			storage: settlement.Storage{
				settlement.ResourceFood: {Amount: 95, Capacity: 100},
			},
			delta:    settlement.ResourceDelta{settlement.ResourceFood: 20},
			expStock: map[settlement.Resource]float64{settlement.ResourceFood: 100},
			expWaste: settlement.ResourceDelta{settlement.ResourceFood: 15},
		},
		"consumption clamps at zero": {
			storage: settlement.Storage{
				settlement.ResourceWater: {Amount: 5, Capacity: 50},
			},
			delta:    settlement.ResourceDelta{settlement.ResourceWater: -10},
			expStock: map[settlement.Resource]float64{settlement.ResourceWater: 0},
			expWaste: settlement.ResourceDelta{},
		},
		"no storage entry means no capacity": {
			storage:  settlement.Storage{},
			delta:    settlement.ResourceDelta{settlement.ResourceOre: 7},
			expStock: map[settlement.Resource]float64{settlement.ResourceOre: 0},
			expWaste: settlement.ResourceDelta{settlement.ResourceOre: 7},
		},
		"resources update independently": {
			storage: settlement.Storage{
				settlement.ResourceFood:   {Amount: 90, Capacity: 100},
				settlement.ResourceWater:  {Amount: 20, Capacity: 50},
				settlement.ResourceTimber: {Amount: 10, Capacity: 40},
			},
			delta: settlement.ResourceDelta{
				settlement.ResourceFood:   20,
				settlement.ResourceWater:  -30,
				settlement.ResourceTimber: 5,
			},
			expStock: map[settlement.Resource]float64{
				settlement.ResourceFood:   100,
				settlement.ResourceWater:  0,
				settlement.ResourceTimber: 15,
			},
			expWaste: settlement.ResourceDelta{settlement.ResourceFood: 10},
		},
		"zero delta is a no-op": {
			storage: settlement.Storage{
				settlement.ResourceFood: {Amount: 42, Capacity: 100},
			},
			delta:    settlement.ResourceDelta{settlement.ResourceFood: 0},
			expStock: map[settlement.Resource]float64{settlement.ResourceFood: 42},
			expWaste: settlement.ResourceDelta{},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, waste := ApplyDelta(tt.storage, tt.delta)

			for r, amt := range tt.expStock {
				testutil.AssertEqual(t, string(r)+" amount", got[r].Amount, amt)
			}
			testutil.AssertEqual(t, "waste count", len(waste), len(tt.expWaste))
			for r, amt := range tt.expWaste {
				testutil.AssertEqual(t, string(r)+" waste", waste[r], amt)
			}

			// The capacity invariant holds for every resource.
			for r, stock := range got {
				if stock.Amount < 0 || stock.Amount > stock.Capacity {
					t.Errorf("%s amount %v outside [0,%v]", r, stock.Amount, stock.Capacity)
				}
			}
		})
	}
}

func TestApplyDelta_DoesNotMutateInput(t *testing.T) {
	st := settlement.Storage{
		settlement.ResourceFood: {Amount: 10, Capacity: 100},
	}

	_, _ = ApplyDelta(st, settlement.ResourceDelta{settlement.ResourceFood: 25})

	testutil.AssertEqual(t, "input amount", st[settlement.ResourceFood].Amount, 10.0)
}

func TestTotalWaste(t *testing.T) {
	waste := settlement.ResourceDelta{
		settlement.ResourceFood:  10,
		settlement.ResourceStone: 2.5,
	}

	testutil.AssertEqual(t, "total", TotalWaste(waste), 12.5)
	testutil.AssertEqual(t, "empty", TotalWaste(settlement.ResourceDelta{}), 0.0)
}
