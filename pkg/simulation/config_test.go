package simulation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, CapacityStatusQuo, cfg.CapacityTM)
	assert.Equal(t, 394.0, cfg.ReorderPointTM)
	assert.Equal(t, BaseDailyDemand, cfg.BaseDailyDemandTM)
	assert.Equal(t, 365, cfg.SimulationDays)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.True(t, cfg.UseSeasonality)
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero capacity", func(c *Config) { c.CapacityTM = 0 }},
		{"reorder point at capacity", func(c *Config) { c.ReorderPointTM = c.CapacityTM }},
		{"zero order quantity", func(c *Config) { c.OrderQuantityTM = 0 }},
		{"initial inventory above capacity", func(c *Config) { c.InitialInventoryTM = c.CapacityTM + 1 }},
		{"zero base demand", func(c *Config) { c.BaseDailyDemandTM = 0 }},
		{"demand variability at one", func(c *Config) { c.DemandVariability = 1 }},
		{"negative seasonal amplitude", func(c *Config) { c.SeasonalAmplitude = -0.1 }},
		{"zero lead time", func(c *Config) { c.NominalLeadTimeDays = 0 }},
		{"negative disruption rate", func(c *Config) { c.AnnualDisruptionRate = -1 }},
		{"disruption min above mode", func(c *Config) { c.DisruptionMinDays = 10 }},
		{"disruption mode above max", func(c *Config) { c.DisruptionModeDays = 30 }},
		{"zero horizon", func(c *Config) { c.SimulationDays = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

func TestDerivedIndicators(t *testing.T) {
	cfg := DefaultConfig()
	assert.InDelta(t, 8.21, cfg.TheoreticalAutonomyDays(), 0.01)
	// (394 - 52.5*6) / 52.5
	assert.InDelta(t, 1.5048, cfg.SafetyStockDays(), 0.001)
	assert.Empty(t, cfg.Warnings())

	cfg.ReorderPointTM = 100
	warnings := cfg.Warnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "lead-time demand")
}

func TestFactorialConfigs(t *testing.T) {
	cells := FactorialConfigs(42, 365)
	require.Len(t, cells, 6)

	wantLabels := []string{"SQ_Short", "SQ_Medium", "SQ_Long", "P_Short", "P_Medium", "P_Long"}
	for i, cell := range cells {
		assert.Equal(t, wantLabels[i], cell.Label)
		require.NoError(t, cell.Config.Validate())
		assert.Equal(t, int64(42), cell.Config.Seed)
		assert.Equal(t, 365, cell.Config.SimulationDays)
		assert.InDelta(t, cell.Config.CapacityTM*0.91, cell.Config.ReorderPointTM, 1e-9)
		assert.InDelta(t, cell.Config.CapacityTM*0.53, cell.Config.OrderQuantityTM, 1e-9)
		assert.InDelta(t, cell.Config.CapacityTM*0.60, cell.Config.InitialInventoryTM, 1e-9)
	}

	assert.Equal(t, CapacityStatusQuo, cells[0].Config.CapacityTM)
	assert.Equal(t, CapacityProposed, cells[3].Config.CapacityTM)
	assert.Equal(t, 7.0, cells[0].Config.DisruptionMaxDays)
	assert.Equal(t, 14.0, cells[1].Config.DisruptionMaxDays)
	assert.Equal(t, 21.0, cells[2].Config.DisruptionMaxDays)
}

func TestLoadConfigYAML(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "scenario.yaml")
	body := "capacity_tm: 681\nreorder_point_tm: 620\nseed: 7\nuse_seasonality: false\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadConfigYAML(path)
	require.NoError(t, err)
	assert.Equal(t, 681.0, cfg.CapacityTM)
	assert.Equal(t, 620.0, cfg.ReorderPointTM)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.False(t, cfg.UseSeasonality)
	// Omitted fields keep their defaults.
	assert.Equal(t, BaseDailyDemand, cfg.BaseDailyDemandTM)

	badPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badPath, []byte("capacity_tm: -10\n"), 0o644))
	_, err = LoadConfigYAML(badPath)
	require.Error(t, err)

	_, err = LoadConfigYAML(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
