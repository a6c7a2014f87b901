package scoring

import (
	"fmt"
	"os"
	"sort"

	"sales_crm_backend/internal/leads/domain"

	"gopkg.in/yaml.v3"
)

// defaultVersion tracks the built-in weight set.
// Bump this when changing default weights significantly.
const defaultVersion = "2026-v1"

// BudgetTier awards Points when the budget amount is at least Min.
type BudgetTier struct {
	Min    float64 `yaml:"min"`
	Points float64 `yaml:"points"`
}

// CountTier awards Points when a count is at least Min.
type CountTier struct {
	Min    int     `yaml:"min"`
	Points float64 `yaml:"points"`
}

// RecencyWeights score the time since the last interaction.
type RecencyWeights struct {
	Within3Days  float64 `yaml:"within_3_days"`
	Within7Days  float64 `yaml:"within_7_days"`
	Within30Days float64 `yaml:"within_30_days"`
	Older        float64 `yaml:"older"`
}

// Weights are the tunable inputs of DefaultPolicy. Every field can be
// overridden from YAML; fields missing from the file keep their defaults.
type Weights struct {
	Version string `yaml:"version"`

	BudgetTiers             []BudgetTier `yaml:"budget_tiers"`
	UnvalidatedBudgetFactor float64      `yaml:"unvalidated_budget_factor"`
	RequirementTiers        []CountTier  `yaml:"requirement_tiers"`

	Status        map[domain.Status]float64              `yaml:"status"`
	Qualification map[domain.QualificationStatus]float64 `yaml:"qualification"`
	Source        map[domain.Source]float64              `yaml:"source"`
	Assigned      float64                                `yaml:"assigned"`

	PerInteraction float64        `yaml:"per_interaction"`
	InteractionCap int            `yaml:"interaction_cap"`
	ResponseRate   float64        `yaml:"response_rate"`
	FastResponse   float64        `yaml:"fast_response"`
	Recency        RecencyWeights `yaml:"recency"`

	PerMeeting  float64 `yaml:"per_meeting"`
	MeetingCap  float64 `yaml:"meeting_cap"`
	PerPositive float64 `yaml:"per_positive"`
	PositiveCap float64 `yaml:"positive_cap"`
	PerNegative float64 `yaml:"per_negative"`
	NegativeCap float64 `yaml:"negative_cap"`

	StalePenalty   float64 `yaml:"stale_penalty"`
	StaleAfterDays int     `yaml:"stale_after_days"`
}

// DefaultWeights returns a fresh copy of the built-in weights.
func DefaultWeights() Weights {
	return Weights{
		Version: defaultVersion,
		BudgetTiers: []BudgetTier{
			{Min: 1_000_000, Points: 25},
			{Min: 500_000, Points: 20},
			{Min: 100_000, Points: 12},
			{Min: 0.01, Points: 6},
		},
		UnvalidatedBudgetFactor: 0.5,
		RequirementTiers: []CountTier{
			{Min: 5, Points: 15},
			{Min: 3, Points: 10},
			{Min: 1, Points: 5},
		},
		Status: map[domain.Status]float64{
			domain.StatusNew:         0,
			domain.StatusContacted:   5,
			domain.StatusQualified:   12,
			domain.StatusNegotiation: 18,
			domain.StatusBooked:      25,
			domain.StatusLost:        -30,
			domain.StatusUnqualified: -25,
		},
		Qualification: map[domain.QualificationStatus]float64{
			domain.QualificationPending:      0,
			domain.QualificationQualified:    8,
			domain.QualificationDisqualified: -10,
		},
		Source: map[domain.Source]float64{
			domain.SourceReferral: 8,
			domain.SourceWalkIn:   6,
			domain.SourcePartner:  6,
			domain.SourceWebsite:  5,
			domain.SourceSocial:   3,
			domain.SourceColdCall: 1,
			domain.SourceOther:    1,
		},
		Assigned:       5,
		PerInteraction: 1.2,
		InteractionCap: 10,
		ResponseRate:   10,
		FastResponse:   3,
		Recency: RecencyWeights{
			Within3Days:  6,
			Within7Days:  3,
			Within30Days: 0,
			Older:        -5,
		},
		PerMeeting:     3,
		MeetingCap:     9,
		PerPositive:    2,
		PositiveCap:    6,
		PerNegative:    -2,
		NegativeCap:    -6,
		StalePenalty:   -5,
		StaleAfterDays: 90,
	}
}

// LoadWeights reads overrides from a YAML file on top of DefaultWeights.
// An empty path returns the defaults.
func LoadWeights(path string) (Weights, error) {
	weights := DefaultWeights()
	if path == "" {
		return weights, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Weights{}, fmt.Errorf("read score policy file: %w", err)
	}
	return ParseWeights(raw)
}

// ParseWeights decodes YAML overrides on top of DefaultWeights.
func ParseWeights(raw []byte) (Weights, error) {
	weights := DefaultWeights()
	weights.Version = ""
	if err := yaml.Unmarshal(raw, &weights); err != nil {
		return Weights{}, fmt.Errorf("parse score policy: %w", err)
	}
	if weights.Version == "" {
		weights.Version = defaultVersion + "-custom"
	}
	if err := weights.validate(); err != nil {
		return Weights{}, err
	}

	sort.Slice(weights.BudgetTiers, func(i, j int) bool {
		return weights.BudgetTiers[i].Min > weights.BudgetTiers[j].Min
	})
	sort.Slice(weights.RequirementTiers, func(i, j int) bool {
		return weights.RequirementTiers[i].Min > weights.RequirementTiers[j].Min
	})
	return weights, nil
}

func (w Weights) validate() error {
	if w.UnvalidatedBudgetFactor < 0 || w.UnvalidatedBudgetFactor > 1 {
		return fmt.Errorf("unvalidated_budget_factor must be within [0,1], got %v", w.UnvalidatedBudgetFactor)
	}
	if w.InteractionCap < 0 {
		return fmt.Errorf("interaction_cap must not be negative")
	}
	if w.StaleAfterDays < 0 {
		return fmt.Errorf("stale_after_days must not be negative")
	}
	return nil
}
