package models

import "time"

// RewardKind distinguishes wallet credit from discount coupons.
type RewardKind string

const (
	RewardCoins    RewardKind = "coins"
	RewardDiscount RewardKind = "discount"
)

// Reward is one outcome of the spin wheel. Weight is the selection
// probability; the weights of a table are expected to sum to 1.
type Reward struct {
	Kind   RewardKind `json:"kind"`
	Amount float64    `json:"amount"`
	Label  string     `json:"label"`
	Weight float64    `json:"weight"`
}

// Win records a reward drawn by a user.
type Win struct {
	Label string     `json:"label"`
	Kind  RewardKind `json:"kind"`
	WonAt time.Time  `json:"won_at"`
}
