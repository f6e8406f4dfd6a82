package businessflow

import (
	"fmt"
	"math"

	"github.com/amirphl/nightpulse/config"
	"github.com/amirphl/nightpulse/models"
)

// WeightInput describes one vote as seen from one venue
type WeightInput struct {
	Intent            models.VoteIntent
	MetersFromVenue   float64
	UpdatedAgoMinutes float64
}

// VoteWeightCalculator scores a vote by intent, proximity and recency
type VoteWeightCalculator struct {
	cfg config.EngineConfig
}

// NewVoteWeightCalculator validates the tuning and builds a calculator
func NewVoteWeightCalculator(cfg config.EngineConfig) (*VoteWeightCalculator, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid weight configuration: %s", errs[0])
	}
	return &VoteWeightCalculator{cfg: cfg}, nil
}

// DefaultDistance is used for votes without a location
func (c *VoteWeightCalculator) DefaultDistance() float64 {
	return c.cfg.DefaultDistanceMeters
}

// Weight returns intent × proximity × recency. No votes weigh nothing.
func (c *VoteWeightCalculator) Weight(in WeightInput) float64 {
	intent := c.intentFactor(in.Intent)
	if intent == 0 {
		return 0
	}
	return intent * c.proximityFactor(in.MetersFromVenue) * c.recencyFactor(in.UpdatedAgoMinutes)
}

func (c *VoteWeightCalculator) intentFactor(intent models.VoteIntent) float64 {
	switch intent {
	case models.VoteIntentYes:
		return c.cfg.IntentYesFactor
	case models.VoteIntentMaybe:
		return c.cfg.IntentMaybeFactor
	default:
		return 0
	}
}

func (c *VoteWeightCalculator) proximityFactor(meters float64) float64 {
	if math.IsNaN(meters) || meters < 0 {
		meters = c.cfg.DefaultDistanceMeters
	}
	switch {
	case meters <= c.cfg.NearMeters:
		return c.cfg.NearFactor
	case meters <= c.cfg.MidMeters:
		return c.cfg.MidFactor
	default:
		return c.cfg.FarFactor
	}
}

func (c *VoteWeightCalculator) recencyFactor(minutes float64) float64 {
	if minutes < 1 || math.IsNaN(minutes) {
		minutes = 1
	}
	switch {
	case minutes <= c.cfg.FreshMinutes:
		return c.cfg.FreshFactor
	case minutes <= c.cfg.StaleMinutes:
		return c.cfg.StaleFactor
	default:
		return c.cfg.OldFactor
	}
}
