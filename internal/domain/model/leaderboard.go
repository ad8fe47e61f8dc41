package model

import (
	"math"
	"math/big"
	"strconv"
)

type LeaderboardEntry struct {
	Username string `json:"username"`
	Score    string `json:"score"` // two decimals, as displayed
}

var (
	hundred = big.NewInt(100)
	two     = big.NewInt(2)
)

// FormatScore renders a score with exactly two decimals. The exact binary value is
// rounded in decimal with ties going away from zero, so 99.625 shows as 99.63 while
// 1.005 (stored as 1.00499...) shows as 1.00.
func FormatScore(score float64) string {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return strconv.FormatFloat(score, 'f', 2, 64)
	}

	exact := new(big.Rat).SetFloat64(math.Abs(score))
	// cents = floor((2*num*100 + den) / (2*den))
	num := new(big.Int).Mul(exact.Num(), hundred)
	num.Mul(num, two).Add(num, exact.Denom())
	den := new(big.Int).Mul(exact.Denom(), two)
	cents := num.Quo(num, den)

	out := new(big.Rat).SetFrac(cents, hundred).FloatString(2)
	if score < 0 {
		// a negative score that rounds to zero keeps its sign, as in "-0.00"
		out = "-" + out
	}
	return out
}
