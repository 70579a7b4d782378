package simulation

import "math"

// Kpis is the per-run indicator block. Percentages carry four decimals,
// tonnage and other floats two; rounding here is part of the export
// contract, so downstream consumers always see stable values.
type Kpis struct {
	ServiceLevelPct        float64 `json:"service_level_pct"`
	StockoutProbabilityPct float64 `json:"stockout_probability_pct"`
	StockoutDays           int     `json:"stockout_days"`
	AvgInventoryTM         float64 `json:"avg_inventory_tm"`
	MinInventoryTM         float64 `json:"min_inventory_tm"`
	MaxInventoryTM         float64 `json:"max_inventory_tm"`
	StdInventoryTM         float64 `json:"std_inventory_tm"`
	FinalInventoryTM       float64 `json:"final_inventory_tm"`
	InitialInventoryTM     float64 `json:"initial_inventory_tm"`
	AvgAutonomyDays        float64 `json:"avg_autonomy_days"`
	MinAutonomyDays        float64 `json:"min_autonomy_days"`
	TotalDemandTM          float64 `json:"total_demand_tm"`
	SatisfiedDemandTM      float64 `json:"satisfied_demand_tm"`
	UnsatisfiedDemandTM    float64 `json:"unsatisfied_demand_tm"`
	AvgDailyDemandTM       float64 `json:"avg_daily_demand_tm"`
	MaxDailyDemandTM       float64 `json:"max_daily_demand_tm"`
	MinDailyDemandTM       float64 `json:"min_daily_demand_tm"`
	TotalReceivedTM        float64 `json:"total_received_tm"`
	TotalDispatchedTM      float64 `json:"total_dispatched_tm"`
	TotalDisruptions       int     `json:"total_disruptions"`
	TotalBlockedDays       float64 `json:"total_blocked_days"`
	BlockedTimePct         float64 `json:"blocked_time_pct"`
	SimulatedDays          int     `json:"simulated_days"`
}

// Result bundles the KPI block with the raw daily series of one run.
type Result struct {
	Kpis       Kpis          `json:"kpis"`
	TimeSeries []DailyRecord `json:"time_series"`
}

// Run validates the configuration, executes one full simulation and
// returns its KPIs and time series.
func Run(cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := NewSimulator(cfg)
	s.Run()
	return &Result{Kpis: s.Kpis(), TimeSeries: s.Records()}, nil
}

// Kpis reduces the daily series into the indicator block. An empty series
// yields the zero value.
func (s *Simulator) Kpis() Kpis {
	if len(s.records) == 0 {
		return Kpis{}
	}

	inventories := make([]float64, len(s.records))
	demands := make([]float64, len(s.records))
	autonomies := make([]float64, len(s.records))
	stockoutDays := 0
	for i, rec := range s.records {
		inventories[i] = rec.InventoryTM
		demands[i] = rec.DemandTM
		autonomies[i] = rec.AutonomyDays
		if rec.Stockout {
			stockoutDays++
		}
	}
	totalDays := len(s.records)

	serviceLevel := 0.0
	if s.totalDemandTM > 0 {
		serviceLevel = s.satisfiedDemandTM / s.totalDemandTM * 100
	}
	stockoutProb := float64(stockoutDays) / float64(totalDays) * 100
	// The blockage share is measured against the configured horizon, not
	// the recorded days, so truncated runs stay comparable.
	blockedPct := s.route.TotalBlockedDays / float64(s.cfg.SimulationDays) * 100

	return Kpis{
		ServiceLevelPct:        round4(serviceLevel),
		StockoutProbabilityPct: round4(stockoutProb),
		StockoutDays:           stockoutDays,
		AvgInventoryTM:         round2(mean(inventories)),
		MinInventoryTM:         round2(seriesMin(inventories)),
		MaxInventoryTM:         round2(seriesMax(inventories)),
		StdInventoryTM:         round2(popStd(inventories)),
		FinalInventoryTM:       round2(s.container.Level()),
		InitialInventoryTM:     round2(s.cfg.InitialInventoryTM),
		AvgAutonomyDays:        round2(mean(autonomies)),
		MinAutonomyDays:        round2(seriesMin(autonomies)),
		TotalDemandTM:          round2(s.totalDemandTM),
		SatisfiedDemandTM:      round2(s.satisfiedDemandTM),
		UnsatisfiedDemandTM:    round2(s.totalDemandTM - s.satisfiedDemandTM),
		AvgDailyDemandTM:       round2(mean(demands)),
		MaxDailyDemandTM:       round2(seriesMax(demands)),
		MinDailyDemandTM:       round2(seriesMin(demands)),
		TotalReceivedTM:        round2(s.container.TotalReceivedTM),
		TotalDispatchedTM:      round2(s.container.TotalDispatchedTM),
		TotalDisruptions:       s.route.TotalDisruptions,
		TotalBlockedDays:       round2(s.route.TotalBlockedDays),
		BlockedTimePct:         round2(blockedPct),
		SimulatedDays:          totalDays,
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// popStd is the population standard deviation, two-pass for stability.
func popStd(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

func seriesMin(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func seriesMax(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }

func round4(x float64) float64 { return math.Round(x*10000) / 10000 }
