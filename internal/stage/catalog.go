package stage

import (
	"medialit-game-service/internal/domain"
)

// Built-in stage tuning. Stage 4 has no timed rounds and is not served by
// the round engine.
func defaultConfigs() map[int]domain.StageConfig {
	return map[int]domain.StageConfig{
		1: {
			Stage:             1,
			Name:              "Headline Check",
			RoundCount:        10,
			TimeLimitSeconds:  15,
			BasePointsCorrect: 25,
			BonusTiers: []domain.BonusTier{
				{ThresholdSeconds: 8, BonusPoints: 5},
				{ThresholdSeconds: 4, BonusPoints: 5},
			},
			HintMaxXPCap:   intPtr(20),
			ConsolationXP:  5,
			TimeoutXP:      5,
			MinimumXPFloor: 0,
			Comparator:     domain.CompareAllOf,
			HintsAvailable: true,
		},
		2: {
			Stage:             2,
			Name:              "Source Showdown",
			RoundCount:        10,
			TimeLimitSeconds:  15,
			BasePointsCorrect: 25,
			BonusTiers: []domain.BonusTier{
				{ThresholdSeconds: 8, BonusPoints: 5},
				{ThresholdSeconds: 4, BonusPoints: 5},
			},
			HintMaxXPCap:   intPtr(20),
			ConsolationXP:  5,
			TimeoutXP:      5,
			MinimumXPFloor: 0,
			Comparator:     domain.CompareExact,
			HintsAvailable: true,
		},
		3: {
			Stage:             3,
			Name:              "Evidence Hunt",
			RoundCount:        10,
			TimeLimitSeconds:  30,
			BasePointsCorrect: 30,
			BonusTiers: []domain.BonusTier{
				{ThresholdSeconds: 15, BonusPoints: 10},
			},
			HintMaxXPCap:   intPtr(25),
			ConsolationXP:  5,
			TimeoutXP:      5,
			MinimumXPFloor: 0,
			Comparator:     domain.CompareLabelFold,
			HintsAvailable: true,
		},
		5: {
			Stage:             5,
			Name:              "Full Article Verdict",
			RoundCount:        10,
			TimeLimitSeconds:  90,
			BasePointsCorrect: 40,
			BonusTiers: []domain.BonusTier{
				{ThresholdSeconds: 45, BonusPoints: 10},
				{ThresholdSeconds: 30, BonusPoints: 10},
			},
			ConsolationXP:  10,
			TimeoutXP:      5,
			MinimumXPFloor: 0,
			Comparator:     domain.CompareLabelFold,
			HintsAvailable: false,
		},
	}
}

// Override adjusts a built-in stage config from YAML. Only set fields apply.
type Override struct {
	Stage             int                `yaml:"stage"`
	RoundCount        *int               `yaml:"round_count"`
	TimeLimitSeconds  *int               `yaml:"time_limit_seconds"`
	BasePointsCorrect *int               `yaml:"base_points_correct"`
	BonusTiers        []domain.BonusTier `yaml:"bonus_tiers"`
	HintMaxXPCap      *int               `yaml:"hint_max_xp_cap"`
	ConsolationXP     *int               `yaml:"consolation_xp"`
	TimeoutXP         *int               `yaml:"timeout_xp"`
	MinimumXPFloor    *int               `yaml:"minimum_xp_floor"`
}

// Catalog resolves stage numbers to validated configs.
type Catalog struct {
	configs map[int]domain.StageConfig
}

// NewCatalog builds the catalog from the built-in tuning plus overrides.
// An override for an unknown stage or one that breaks validation is an error.
func NewCatalog(overrides []Override) (*Catalog, error) {
	configs := defaultConfigs()
	for _, o := range overrides {
		cfg, ok := configs[o.Stage]
		if !ok {
			return nil, domain.ErrStageNotFound
		}
		applyOverride(&cfg, o)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		configs[o.Stage] = cfg
	}
	return &Catalog{configs: configs}, nil
}

// Lookup returns the config for a stage number.
func (c *Catalog) Lookup(stage int) (domain.StageConfig, error) {
	cfg, ok := c.configs[stage]
	if !ok {
		return domain.StageConfig{}, domain.ErrStageNotFound
	}
	return cfg, nil
}

// Stages lists the known stage numbers.
func (c *Catalog) Stages() []int {
	out := make([]int, 0, len(c.configs))
	for n := range c.configs {
		out = append(out, n)
	}
	return out
}

func applyOverride(cfg *domain.StageConfig, o Override) {
	if o.RoundCount != nil {
		cfg.RoundCount = *o.RoundCount
	}
	if o.TimeLimitSeconds != nil {
		cfg.TimeLimitSeconds = *o.TimeLimitSeconds
	}
	if o.BasePointsCorrect != nil {
		cfg.BasePointsCorrect = *o.BasePointsCorrect
	}
	if o.BonusTiers != nil {
		cfg.BonusTiers = o.BonusTiers
	}
	if o.HintMaxXPCap != nil {
		cfg.HintMaxXPCap = o.HintMaxXPCap
	}
	if o.ConsolationXP != nil {
		cfg.ConsolationXP = *o.ConsolationXP
	}
	if o.TimeoutXP != nil {
		cfg.TimeoutXP = *o.TimeoutXP
	}
	if o.MinimumXPFloor != nil {
		cfg.MinimumXPFloor = *o.MinimumXPFloor
	}
}

func intPtr(v int) *int { return &v }
