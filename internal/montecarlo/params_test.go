package montecarlo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simresglp/simulator/internal/database"
)

func TestSeedRules(t *testing.T) {
	// Monte Carlo replicas occupy base*100000 + i.
	assert.Equal(t, int64(4200001), ReplicaSeed(42, 1))
	assert.Equal(t, int64(4201000), ReplicaSeed(42, 1000))

	// Factorial cells stride by a million.
	assert.Equal(t, int64(43), FactorialSeed(42, 1, 1))
	assert.Equal(t, int64(1000045), FactorialSeed(42, 2, 3))
	assert.Equal(t, int64(5000043), FactorialSeed(42, 6, 1)) // cell 6 block

	// Time-series samples live in a disjoint block above the replicas.
	assert.Equal(t, int64(5200000), TimeSeriesSeed(42, 0))
	assert.Equal(t, int64(5200099), TimeSeriesSeed(42, 99))
	assert.Greater(t, TimeSeriesSeed(42, 0), ReplicaSeed(42, MaxReplicas))
}

func TestDefaultParamsProduceValidConfig(t *testing.T) {
	params := DefaultParams()
	cfg := ConfigFromParams(params, 42)
	require.NoError(t, cfg.Validate())

	assert.InDelta(t, 431.0, cfg.CapacityTM, 1e-9)
	assert.InDelta(t, 394.0, cfg.ReorderPointTM, 1e-9)
	assert.InDelta(t, 230.0, cfg.OrderQuantityTM, 1e-9)
	// 60% of capacity.
	assert.InDelta(t, 258.6, cfg.InitialInventoryTM, 1e-9)
	assert.Equal(t, 365, cfg.SimulationDays)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.True(t, cfg.UseSeasonality)
	assert.Equal(t, int64(42), BaseSeed(params))
}

func TestConfigFromParamsMapping(t *testing.T) {
	params := database.ParamsJSON{
		"capacidad_hub_tm":              681.0,
		"punto_reorden_tm":              619.0,
		"cantidad_pedido_tm":            361.0,
		"inventario_inicial_pct":        50.0,
		"demanda_base_diaria_tm":        60.0,
		"variabilidad_demanda":          0.2,
		"amplitud_estacional":           0.1,
		"dia_pico_invernal":             180,
		"usar_estacionalidad":           false,
		"lead_time_nominal_dias":        8.0,
		"tasa_disrupciones_anual":       2.5,
		"duracion_disrupcion_min_dias":  1.0,
		"duracion_disrupcion_mode_dias": 4.0,
		"duracion_disrupcion_max_dias":  9.0,
		"duracion_simulacion_dias":      180,
	}

	cfg := ConfigFromParams(params, 99)
	require.NoError(t, cfg.Validate())

	assert.InDelta(t, 681.0, cfg.CapacityTM, 1e-9)
	assert.InDelta(t, 619.0, cfg.ReorderPointTM, 1e-9)
	assert.InDelta(t, 361.0, cfg.OrderQuantityTM, 1e-9)
	assert.InDelta(t, 340.5, cfg.InitialInventoryTM, 1e-9)
	assert.InDelta(t, 60.0, cfg.BaseDailyDemandTM, 1e-9)
	assert.InDelta(t, 0.2, cfg.DemandVariability, 1e-9)
	assert.InDelta(t, 0.1, cfg.SeasonalAmplitude, 1e-9)
	assert.Equal(t, 180, cfg.PeakWinterDay)
	assert.False(t, cfg.UseSeasonality)
	assert.InDelta(t, 8.0, cfg.NominalLeadTimeDays, 1e-9)
	assert.InDelta(t, 2.5, cfg.AnnualDisruptionRate, 1e-9)
	assert.InDelta(t, 1.0, cfg.DisruptionMinDays, 1e-9)
	assert.InDelta(t, 4.0, cfg.DisruptionModeDays, 1e-9)
	assert.InDelta(t, 9.0, cfg.DisruptionMaxDays, 1e-9)
	assert.Equal(t, 180, cfg.SimulationDays)
	assert.Equal(t, int64(99), cfg.Seed)
}

func TestConfigFromParamsFallbacks(t *testing.T) {
	// Only capacity: reorder and order quantity scale from it, initial
	// inventory uses the 60% default.
	params := database.ParamsJSON{"capacidad_hub_tm": 1000.0}
	cfg := ConfigFromParams(params, 1)

	assert.InDelta(t, 700.0, cfg.ReorderPointTM, 1e-9)
	assert.InDelta(t, 500.0, cfg.OrderQuantityTM, 1e-9)
	assert.InDelta(t, 600.0, cfg.InitialInventoryTM, 1e-9)

	// Explicit absolute inventory wins over the percentage.
	params["inventario_inicial_tm"] = 123.0
	params["inventario_inicial_pct"] = 90.0
	cfg = ConfigFromParams(params, 1)
	assert.InDelta(t, 123.0, cfg.InitialInventoryTM, 1e-9)
}
