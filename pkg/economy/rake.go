package economy

// RakePolicy selects which rake rule a RakeConfig applies.
type RakePolicy string

const (
	RakeZero        RakePolicy = "zero"
	RakeStandard    RakePolicy = "standard"
	RakeTiered      RakePolicy = "tiered"
	RakeStreetBased RakePolicy = "street-based"
)

// RakeTier is one [MinPot, MaxPot) bracket of a tiered rake table.
type RakeTier struct {
	MinPot     int64
	MaxPot     int64 // exclusive; <= 0 means unbounded
	Percentage int64 // whole-percent, e.g. 5 means 5%
	Cap        int64
}

// PromotionalWaiver, when Enabled and not expired at EvaluatedAt,
// forces rake to zero.
type PromotionalWaiver struct {
	Enabled   bool
	ExpiresAt int64 // unix millis; zero means "no expiry while Enabled"
}

// RakeConfig configures a RakeCalculator (spec.md §4.4).
type RakeConfig struct {
	Policy             RakePolicy
	Percentage         int64 // used by Standard and Street-based
	Cap                int64
	NoFlopNoRake       bool
	ExcludeUncontested bool
	Tiers              []RakeTier // used by Tiered
	Promotional        *PromotionalWaiver
	SubjectToStreet    string // used by Street-based: the minimum street the hand must reach
}

// RakeResult is the outcome of RakeCalculator.Calculate.
type RakeResult struct {
	RakeAmount   int64
	PotAfterRake int64
	CapApplied   bool
	Waived       bool
	WaivedReason string
	PolicyUsed   RakePolicy
}

// RakeInput is the hand context a rake calculation depends on.
type RakeInput struct {
	Pot               int64
	ReachedFlop       bool
	PlayersAtShowdown int
	FinalStreet       string
	EvaluatedAt       int64 // unix millis, injected by the caller
}

// streetOrder ranks streets for the street-based policy's "reached at
// least configured street" comparison.
var streetOrder = map[string]int{
	"preflop": 0, "flop": 1, "turn": 2, "river": 3, "showdown": 4, "complete": 5,
}

// RakeCalculator applies a single RakeConfig's policy and waivers.
type RakeCalculator struct {
	Config RakeConfig
}

func NewRakeCalculator(cfg RakeConfig) *RakeCalculator {
	return &RakeCalculator{Config: cfg}
}

// Calculate implements spec.md §4.4's rake table and waivers, in order.
func (c *RakeCalculator) Calculate(in RakeInput) RakeResult {
	cfg := c.Config

	if cfg.NoFlopNoRake && !in.ReachedFlop {
		return waived(in.Pot, cfg.Policy, "no-flop-no-rake")
	}
	if cfg.ExcludeUncontested && in.PlayersAtShowdown < 2 {
		return waived(in.Pot, cfg.Policy, "uncontested")
	}
	if cfg.Promotional != nil && cfg.Promotional.Enabled {
		if cfg.Promotional.ExpiresAt == 0 || in.EvaluatedAt < cfg.Promotional.ExpiresAt {
			return waived(in.Pot, cfg.Policy, "promotional")
		}
	}

	var amount int64
	var capApplied bool

	switch cfg.Policy {
	case RakeZero, "":
		amount = 0
	case RakeStandard:
		amount, capApplied = percentWithCap(in.Pot, cfg.Percentage, cfg.Cap)
	case RakeTiered:
		for _, tier := range cfg.Tiers {
			if in.Pot >= tier.MinPot && (tier.MaxPot <= 0 || in.Pot < tier.MaxPot) {
				amount, capApplied = percentWithCap(in.Pot, tier.Percentage, tier.Cap)
				break
			}
		}
	case RakeStreetBased:
		if streetOrder[in.FinalStreet] >= streetOrder[cfg.SubjectToStreet] {
			amount, capApplied = percentWithCap(in.Pot, cfg.Percentage, cfg.Cap)
		}
	}

	if amount > in.Pot {
		amount = in.Pot
	}

	return RakeResult{
		RakeAmount:   amount,
		PotAfterRake: in.Pot - amount,
		CapApplied:   capApplied,
		PolicyUsed:   cfg.Policy,
	}
}

func percentWithCap(pot, percentage, cap int64) (amount int64, capApplied bool) {
	amount = pot * percentage / 100
	if cap > 0 && amount > cap {
		return cap, true
	}
	return amount, false
}

func waived(pot int64, policy RakePolicy, reason string) RakeResult {
	return RakeResult{
		RakeAmount:   0,
		PotAfterRake: pot,
		Waived:       true,
		WaivedReason: reason,
		PolicyUsed:   policy,
	}
}
