package engine

import (
	"sort"
	"time"

	"github.com/galachain-tools/galabot/internal/config"
	"github.com/galachain-tools/galabot/internal/domain"
)

// Policy selects how the engine turns quotes into trades.
type Policy string

const (
	// PolicyBestOfVenues scans both orientations of every pair and executes
	// the single highest-yield opportunity.
	PolicyBestOfVenues Policy = "best_of_venues"
	// PolicyFixedDirection scans pairs only in their configured orientation.
	PolicyFixedDirection Policy = "fixed_direction"
	// PolicyThresholdRanked executes the best opportunity but keeps the full
	// ranked list visible for dashboards.
	PolicyThresholdRanked Policy = "threshold_ranked"
	// PolicyLunarHold enters a directional position on the new moon and
	// liquidates on the full moon, bounded by stop-loss/take-profit/max-hold.
	PolicyLunarHold Policy = "lunar_hold"
)

// Params is the engine's runtime configuration. A copy is taken at each
// cycle, so updates apply atomically at cycle boundaries.
type Params struct {
	Policy          Policy           `json:"policy"`
	MinProfitPct    float64          `json:"min_profit_pct"`
	MaxPositionSize domain.Amount    `json:"max_position_size"`
	CheckInterval   time.Duration    `json:"check_interval"`
	ErrorBackoff    time.Duration    `json:"error_backoff"`
	MaxSlippageBps  float64          `json:"max_slippage_bps"`
	Pairs           []domain.Pair    `json:"pairs"`
	Amounts         []domain.Amount  `json:"amounts"`
	FeeTiers        []domain.FeeTier `json:"fee_tiers"`
	PreferExotic    bool             `json:"prefer_exotic"`
	StopLossPct     float64          `json:"stop_loss_pct"`
	TakeProfitPct   float64          `json:"take_profit_pct"`
	MaxHold         time.Duration    `json:"max_hold"`
	DryRun          bool             `json:"dry_run"`
}

// ParamsFromConfig derives engine parameters from the validated config.
func ParamsFromConfig(cfg *config.Config) Params {
	maxPos, _ := domain.ParseAmount(cfg.Engine.MaxPositionSize)
	return Params{
		Policy:          Policy(cfg.Engine.Policy),
		MinProfitPct:    cfg.Engine.MinProfitPct,
		MaxPositionSize: maxPos,
		CheckInterval:   cfg.Engine.CheckInterval.Duration,
		ErrorBackoff:    cfg.Engine.ErrorBackoff.Duration,
		MaxSlippageBps:  cfg.Engine.MaxSlippageBps,
		Pairs:           cfg.EnginePairs(),
		Amounts:         sortedAmounts(cfg.EngineAmounts()),
		FeeTiers:        cfg.EngineFeeTiers(),
		PreferExotic:    cfg.Engine.PreferExotic,
		StopLossPct:     cfg.Engine.StopLossPct,
		TakeProfitPct:   cfg.Engine.TakeProfitPct,
		MaxHold:         cfg.Engine.MaxHold.Duration,
		DryRun:          cfg.Engine.DryRun,
	}
}

// Patch carries partial parameter updates. Nil fields keep the current value.
// Changes take effect at the next cycle.
type Patch struct {
	Policy          *Policy        `json:"policy,omitempty"`
	MinProfitPct    *float64       `json:"min_profit_pct,omitempty"`
	MaxPositionSize *domain.Amount `json:"max_position_size,omitempty"`
	CheckInterval   *time.Duration `json:"check_interval,omitempty"`
	ErrorBackoff    *time.Duration `json:"error_backoff,omitempty"`
	MaxSlippageBps  *float64       `json:"max_slippage_bps,omitempty"`
	PreferExotic    *bool          `json:"prefer_exotic,omitempty"`
	StopLossPct     *float64       `json:"stop_loss_pct,omitempty"`
	TakeProfitPct   *float64       `json:"take_profit_pct,omitempty"`
	MaxHold         *time.Duration `json:"max_hold,omitempty"`
	DryRun          *bool          `json:"dry_run,omitempty"`
}

// apply merges the patch into p.
func (p *Params) apply(patch Patch) {
	if patch.Policy != nil {
		p.Policy = *patch.Policy
	}
	if patch.MinProfitPct != nil {
		p.MinProfitPct = *patch.MinProfitPct
	}
	if patch.MaxPositionSize != nil {
		p.MaxPositionSize = *patch.MaxPositionSize
	}
	if patch.CheckInterval != nil {
		p.CheckInterval = *patch.CheckInterval
	}
	if patch.ErrorBackoff != nil {
		p.ErrorBackoff = *patch.ErrorBackoff
	}
	if patch.MaxSlippageBps != nil {
		p.MaxSlippageBps = *patch.MaxSlippageBps
	}
	if patch.PreferExotic != nil {
		p.PreferExotic = *patch.PreferExotic
	}
	if patch.StopLossPct != nil {
		p.StopLossPct = *patch.StopLossPct
	}
	if patch.TakeProfitPct != nil {
		p.TakeProfitPct = *patch.TakeProfitPct
	}
	if patch.MaxHold != nil {
		p.MaxHold = *patch.MaxHold
	}
	if patch.DryRun != nil {
		p.DryRun = *patch.DryRun
	}
}

// sortedAmounts returns the candidate amounts smallest-first; scanning probes
// small sizes before committing larger ones.
func sortedAmounts(in []domain.Amount) []domain.Amount {
	out := make([]domain.Amount, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
