// Package montecarlo runs replicated experiments of the supply simulation:
// admission and lifecycle of experiment records, a bounded worker pool,
// aggregation of replica KPIs, the 2x3 factorial sweep and the time-series
// sampler behind the daily-band endpoint.
package montecarlo

import (
	"github.com/simresglp/simulator/internal/database"
	"github.com/simresglp/simulator/pkg/simulation"
)

// Seed derivation keeps every replica reproducible in isolation: the rules
// are part of the public contract, so a replica can be re-run outside its
// experiment and produce identical output.
const (
	// mcSeedStride separates the seed blocks of experiments with
	// different base seeds.
	mcSeedStride = 100000

	// factorialCellStride separates the seed blocks of the factorial
	// design cells.
	factorialCellStride = 1000000

	// timeSeriesOffset shifts time-series sampling away from the seeds
	// the experiment's own replicas used.
	timeSeriesOffset = 1000000
)

// ReplicaSeed derives the seed of Monte Carlo replica i (1-based).
func ReplicaSeed(base int64, replica int) int64 {
	return base*mcSeedStride + int64(replica)
}

// FactorialSeed derives the seed of a factorial replica from its design
// cell (1-based) and replica number within the cell (1-based).
func FactorialSeed(base int64, cell, replica int) int64 {
	return base + int64(cell-1)*factorialCellStride + int64(replica)
}

// TimeSeriesSeed derives the seed of time-series sample i (0-based).
func TimeSeriesSeed(base int64, sample int) int64 {
	return base*mcSeedStride + int64(sample) + timeSeriesOffset
}

// DefaultParams returns the Spanish-keyed baseline parameter set of the
// Aysén hub, the same set the defaults endpoint serves.
func DefaultParams() database.ParamsJSON {
	return database.ParamsJSON{
		"capacidad_hub_tm":              431.0,
		"punto_reorden_tm":              394.0,
		"cantidad_pedido_tm":            230.0,
		"inventario_inicial_pct":        60.0,
		"demanda_base_diaria_tm":        52.5,
		"variabilidad_demanda":          0.15,
		"amplitud_estacional":           0.30,
		"dia_pico_invernal":             200,
		"usar_estacionalidad":           true,
		"lead_time_nominal_dias":        6.0,
		"tasa_disrupciones_anual":       4.0,
		"duracion_disrupcion_min_dias":  3.0,
		"duracion_disrupcion_mode_dias": 7.0,
		"duracion_disrupcion_max_dias":  21.0,
		"duracion_simulacion_dias":      365,
		"semilla_aleatoria":             nil,
	}
}

// ConfigFromParams maps a Spanish-keyed parameter set onto a kernel
// configuration. Missing keys fall back to capacity-proportional values:
// reorder point at 70% and order quantity at 50% of capacity, initial
// inventory from inventario_inicial_pct (default 60%).
func ConfigFromParams(p database.ParamsJSON, seed int64) simulation.Config {
	cfg := simulation.DefaultConfig()

	cfg.CapacityTM = p.Float("capacidad_hub_tm", cfg.CapacityTM)
	cfg.ReorderPointTM = p.Float("punto_reorden_tm", cfg.CapacityTM*0.7)
	cfg.OrderQuantityTM = p.Float("cantidad_pedido_tm", cfg.CapacityTM*0.5)

	if _, ok := p["inventario_inicial_tm"]; ok {
		cfg.InitialInventoryTM = p.Float("inventario_inicial_tm", cfg.InitialInventoryTM)
	} else {
		cfg.InitialInventoryTM = cfg.CapacityTM * p.Float("inventario_inicial_pct", 60) / 100
	}

	cfg.BaseDailyDemandTM = p.Float("demanda_base_diaria_tm", cfg.BaseDailyDemandTM)
	cfg.DemandVariability = p.Float("variabilidad_demanda", cfg.DemandVariability)
	cfg.SeasonalAmplitude = p.Float("amplitud_estacional", cfg.SeasonalAmplitude)
	cfg.PeakWinterDay = p.Int("dia_pico_invernal", cfg.PeakWinterDay)
	cfg.UseSeasonality = p.Bool("usar_estacionalidad", cfg.UseSeasonality)

	cfg.NominalLeadTimeDays = p.Float("lead_time_nominal_dias", cfg.NominalLeadTimeDays)
	cfg.AnnualDisruptionRate = p.Float("tasa_disrupciones_anual", cfg.AnnualDisruptionRate)
	cfg.DisruptionMinDays = p.Float("duracion_disrupcion_min_dias", cfg.DisruptionMinDays)
	cfg.DisruptionModeDays = p.Float("duracion_disrupcion_mode_dias", cfg.DisruptionModeDays)
	cfg.DisruptionMaxDays = p.Float("duracion_disrupcion_max_dias", cfg.DisruptionMaxDays)

	cfg.SimulationDays = p.Int("duracion_simulacion_dias", cfg.SimulationDays)
	cfg.Seed = seed
	return cfg
}

// BaseSeed reads the configured base seed. A null or absent
// semilla_aleatoria falls back to 42.
func BaseSeed(p database.ParamsJSON) int64 {
	return int64(p.Int("semilla_aleatoria", 42))
}
