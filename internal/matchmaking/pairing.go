package matchmaking

import "time"

type Config struct {
	BaseRange          int
	RangeStep          int
	RangeStepEvery     time.Duration
	CategoryRelaxAfter time.Duration
	ForcePairAfter     time.Duration
	TickInterval       time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseRange:          200,
		RangeStep:          50,
		RangeStepEvery:     10 * time.Second,
		CategoryRelaxAfter: 15 * time.Second,
		ForcePairAfter:     30 * time.Second,
		TickInterval:       time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BaseRange <= 0 {
		c.BaseRange = d.BaseRange
	}
	if c.RangeStep < 0 {
		c.RangeStep = d.RangeStep
	}
	if c.RangeStepEvery <= 0 {
		c.RangeStepEvery = d.RangeStepEvery
	}
	if c.CategoryRelaxAfter <= 0 {
		c.CategoryRelaxAfter = d.CategoryRelaxAfter
	}
	if c.ForcePairAfter <= 0 {
		c.ForcePairAfter = d.ForcePairAfter
	}
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	return c
}

// RatingRange is the accepted rating gap for an anchor that has waited wait.
func (c Config) RatingRange(wait time.Duration) int {
	return c.BaseRange + int(wait/c.RangeStepEvery)*c.RangeStep
}

type pairing struct {
	anchor   int
	opponent int
	forced   bool
}

// selectPair walks anchors from the longest waiting. For each anchor the
// first acceptable candidate in queue order wins; if none is acceptable and
// the anchor is past ForcePairAfter it is paired with the next agent in line.
// ordered must be sorted by queue time.
func selectPair(ordered []*waitingAgent, now time.Time, cfg Config) (pairing, bool) {
	for i := 0; i < len(ordered)-1; i++ {
		anchor := ordered[i]
		wait := now.Sub(anchor.queuedAt)
		limit := cfg.RatingRange(wait)
		relaxed := wait > cfg.CategoryRelaxAfter
		for j := i + 1; j < len(ordered); j++ {
			cand := ordered[j]
			if absInt(anchor.Rating-cand.Rating) > limit {
				continue
			}
			if cand.Category == anchor.Category || relaxed {
				return pairing{anchor: i, opponent: j}, true
			}
		}
		if wait > cfg.ForcePairAfter {
			return pairing{anchor: i, opponent: i + 1, forced: true}, true
		}
	}
	return pairing{}, false
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
