// Package rewards implements the daily spin wheel: a weighted draw over a fixed
// reward table, a per-user cooldown and delivery of the prize to the wallet.
package rewards

import (
	"errors"
	"fmt"
	"math"

	"github.com/gurman-sys/rentbuddy/pkg/models"
)

// DefaultTable is the stock spin wheel. Weights sum to 1.
func DefaultTable() []models.Reward {
	return []models.Reward{
		{Kind: models.RewardCoins, Amount: 5, Label: "₹5 Coins", Weight: 0.30},
		{Kind: models.RewardCoins, Amount: 10, Label: "₹10 Coins", Weight: 0.25},
		{Kind: models.RewardCoins, Amount: 25, Label: "₹25 Coins", Weight: 0.15},
		{Kind: models.RewardCoins, Amount: 50, Label: "₹50 Coins", Weight: 0.10},
		{Kind: models.RewardCoins, Amount: 100, Label: "₹100 Coins", Weight: 0.05},
		{Kind: models.RewardDiscount, Amount: 10, Label: "10% Off Coupon", Weight: 0.10},
		{Kind: models.RewardDiscount, Amount: 20, Label: "20% Off Coupon", Weight: 0.05},
	}
}

// Select walks table accumulating weights and returns the first entry whose
// cumulative weight reaches draw. A draw beyond the total weight selects the
// first entry. ok is false only for an empty table.
func Select(table []models.Reward, draw float64) (r models.Reward, ok bool) {
	if len(table) == 0 {
		return models.Reward{}, false
	}
	var cum float64
	for _, entry := range table {
		cum += entry.Weight
		if draw <= cum {
			return entry, true
		}
	}
	return table[0], true
}

// weightTolerance absorbs floating-point error when summing weights.
const weightTolerance = 1e-9

// ValidateTable rejects tables that cannot be drawn from. A total weight other
// than 1 is reported through sumOK rather than as an error.
func ValidateTable(table []models.Reward) (sumOK bool, err error) {
	if len(table) == 0 {
		return false, errors.New("reward table is empty")
	}
	var sum float64
	for i, r := range table {
		if r.Weight < 0 || math.IsNaN(r.Weight) {
			return false, fmt.Errorf("reward %d (%s): weight %v is negative", i, r.Label, r.Weight)
		}
		if r.Amount <= 0 {
			return false, fmt.Errorf("reward %d (%s): amount must be positive", i, r.Label)
		}
		switch r.Kind {
		case models.RewardCoins:
		case models.RewardDiscount:
			if r.Amount > 100 {
				return false, fmt.Errorf("reward %d (%s): discount above 100%%", i, r.Label)
			}
		default:
			return false, fmt.Errorf("reward %d (%s): unknown kind %q", i, r.Label, r.Kind)
		}
		sum += r.Weight
	}
	return math.Abs(sum-1) <= weightTolerance, nil
}
