package entities

// ConfidenceTier gates whether an automated decision executes, suggests, or escalates
type ConfidenceTier string

const (
	ConfidenceHigh   ConfidenceTier = "high"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceLow    ConfidenceTier = "low"
)

// Rank orders tiers so callers can compare them (low < medium < high)
func (c ConfidenceTier) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	}
	return 0
}

// AtLeast reports whether c is at or above the given tier
func (c ConfidenceTier) AtLeast(min ConfidenceTier) bool {
	return c.Rank() >= min.Rank()
}

// Lower returns the weaker of two tiers
func Lower(a, b ConfidenceTier) ConfidenceTier {
	if a.Rank() <= b.Rank() {
		return a
	}
	return b
}

// Actor identifies who triggered a change
type Actor string

const (
	ActorHuman      Actor = "human"
	ActorAutomation Actor = "automation"
)
