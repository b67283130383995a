package core

import (
	"github.com/DomeLiquid/alphalend/wad"
)

const (
	SECONDS_PER_YEAR = 31_536_000

	HOURS_PER_YEAR = 365.25 * 24
)

var (
	// ALPHA_MULTIPLIER_PRECISION scales the per-share reward accumulators.
	ALPHA_MULTIPLIER_PRECISION = wad.NewInt(1e12)

	EQUILIBRIUM          = wad.Ratio(1, 2)
	MAX_UTILIZATION_RATE = wad.Wads(1)

	DEFAULT_RESERVE_PERCENT     = wad.Ratio(5, 100)
	DEFAULT_OPTIMAL_UTILIZATION = wad.Ratio(80, 100)
)
