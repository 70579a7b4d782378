package simulation

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Logistics constants shared by every scenario.
const (
	// SafetyMargin inflates the demand expected during lead time when
	// sizing a replenishment order.
	SafetyMargin = 0.20

	// MaxConcurrentOrders caps the number of orders in transit at once.
	MaxConcurrentOrders = 3

	// CapacityStatusQuo and CapacityProposed are the two storage capacity
	// levels of the factorial study, in metric tons.
	CapacityStatusQuo = 431.0
	CapacityProposed  = 681.0

	// BaseDailyDemand is the nominal regional demand in TM/day.
	BaseDailyDemand = 52.5

	// NominalLeadTime is the unblocked resupply lead time in days.
	NominalLeadTime = 6.0
)

// Config holds every parameter of one simulation run. Quantities are in
// metric tons (TM) and times in days unless the name says otherwise.
type Config struct {
	CapacityTM           float64 `json:"capacity_tm" yaml:"capacity_tm"`
	ReorderPointTM       float64 `json:"reorder_point_tm" yaml:"reorder_point_tm"`
	OrderQuantityTM      float64 `json:"order_quantity_tm" yaml:"order_quantity_tm"`
	InitialInventoryTM   float64 `json:"initial_inventory_tm" yaml:"initial_inventory_tm"`
	BaseDailyDemandTM    float64 `json:"base_daily_demand_tm" yaml:"base_daily_demand_tm"`
	DemandVariability    float64 `json:"demand_variability" yaml:"demand_variability"`
	SeasonalAmplitude    float64 `json:"seasonal_amplitude" yaml:"seasonal_amplitude"`
	PeakWinterDay        int     `json:"peak_winter_day" yaml:"peak_winter_day"`
	NominalLeadTimeDays  float64 `json:"nominal_lead_time_days" yaml:"nominal_lead_time_days"`
	AnnualDisruptionRate float64 `json:"annual_disruption_rate" yaml:"annual_disruption_rate"`
	DisruptionMinDays    float64 `json:"disruption_min_days" yaml:"disruption_min_days"`
	DisruptionModeDays   float64 `json:"disruption_mode_days" yaml:"disruption_mode_days"`
	DisruptionMaxDays    float64 `json:"disruption_max_days" yaml:"disruption_max_days"`
	SimulationDays       int     `json:"simulation_days" yaml:"simulation_days"`
	Seed                 int64   `json:"seed" yaml:"seed"`
	UseSeasonality       bool    `json:"use_seasonality" yaml:"use_seasonality"`
}

// DefaultConfig returns the status-quo scenario of the Aysén GLP hub.
func DefaultConfig() Config {
	return Config{
		CapacityTM:           CapacityStatusQuo,
		ReorderPointTM:       394.0,
		OrderQuantityTM:      230.0,
		InitialInventoryTM:   258.6,
		BaseDailyDemandTM:    BaseDailyDemand,
		DemandVariability:    0.15,
		SeasonalAmplitude:    0.30,
		PeakWinterDay:        200,
		NominalLeadTimeDays:  NominalLeadTime,
		AnnualDisruptionRate: 4.0,
		DisruptionMinDays:    3.0,
		DisruptionModeDays:   7.0,
		DisruptionMaxDays:    21.0,
		SimulationDays:       365,
		Seed:                 42,
		UseSeasonality:       true,
	}
}

// Validate checks the structural invariants of the configuration.
func (c Config) Validate() error {
	switch {
	case c.CapacityTM <= 0:
		return fmt.Errorf("invalid config: capacity_tm must be > 0, got %v", c.CapacityTM)
	case c.ReorderPointTM >= c.CapacityTM:
		return fmt.Errorf("invalid config: reorder_point_tm (%v) must be < capacity_tm (%v)", c.ReorderPointTM, c.CapacityTM)
	case c.OrderQuantityTM <= 0:
		return fmt.Errorf("invalid config: order_quantity_tm must be > 0, got %v", c.OrderQuantityTM)
	case c.InitialInventoryTM > c.CapacityTM:
		return fmt.Errorf("invalid config: initial_inventory_tm (%v) exceeds capacity_tm (%v)", c.InitialInventoryTM, c.CapacityTM)
	case c.BaseDailyDemandTM <= 0:
		return fmt.Errorf("invalid config: base_daily_demand_tm must be > 0, got %v", c.BaseDailyDemandTM)
	case c.DemandVariability < 0 || c.DemandVariability >= 1:
		return fmt.Errorf("invalid config: demand_variability must be in [0,1), got %v", c.DemandVariability)
	case c.SeasonalAmplitude < 0 || c.SeasonalAmplitude >= 1:
		return fmt.Errorf("invalid config: seasonal_amplitude must be in [0,1), got %v", c.SeasonalAmplitude)
	case c.NominalLeadTimeDays <= 0:
		return fmt.Errorf("invalid config: nominal_lead_time_days must be > 0, got %v", c.NominalLeadTimeDays)
	case c.AnnualDisruptionRate < 0:
		return fmt.Errorf("invalid config: annual_disruption_rate must be >= 0, got %v", c.AnnualDisruptionRate)
	case c.DisruptionMinDays > c.DisruptionModeDays || c.DisruptionModeDays > c.DisruptionMaxDays:
		return fmt.Errorf("invalid config: disruption durations must satisfy min <= mode <= max, got %v/%v/%v",
			c.DisruptionMinDays, c.DisruptionModeDays, c.DisruptionMaxDays)
	case c.SimulationDays <= 0:
		return fmt.Errorf("invalid config: simulation_days must be > 0, got %v", c.SimulationDays)
	}
	return nil
}

// TheoreticalAutonomyDays is the days of supply a full hub covers at
// nominal demand.
func (c Config) TheoreticalAutonomyDays() float64 {
	return c.CapacityTM / c.BaseDailyDemandTM
}

// SafetyStockDays is the buffer, in days of nominal demand, left once the
// demand expected during a nominal lead time is subtracted from the reorder
// point.
func (c Config) SafetyStockDays() float64 {
	demandDuringLT := c.BaseDailyDemandTM * c.NominalLeadTimeDays
	return (c.ReorderPointTM - demandDuringLT) / c.BaseDailyDemandTM
}

// Warnings reports non-fatal issues with the configuration. A reorder
// point below the demand expected during a nominal lead time means every
// replenishment cycle dips into safety stock before the order lands.
func (c Config) Warnings() []string {
	var warnings []string
	if demandDuringLT := c.BaseDailyDemandTM * c.NominalLeadTimeDays; c.ReorderPointTM < demandDuringLT {
		warnings = append(warnings, fmt.Sprintf(
			"reorder_point_tm (%.1f) below expected lead-time demand (%.1f): orders arrive after safety stock is consumed",
			c.ReorderPointTM, demandDuringLT))
	}
	return warnings
}

// DisruptionProfile is a named triangular duration profile for route
// blockages.
type DisruptionProfile struct {
	Name     string  `json:"name"`
	MinDays  float64 `json:"min_days"`
	ModeDays float64 `json:"mode_days"`
	MaxDays  float64 `json:"max_days"`
}

// The three disruption severities of the factorial study.
var (
	DisruptionShort  = DisruptionProfile{Name: "Short", MinDays: 3.0, ModeDays: 5.0, MaxDays: 7.0}
	DisruptionMedium = DisruptionProfile{Name: "Medium", MinDays: 3.0, ModeDays: 7.0, MaxDays: 14.0}
	DisruptionLong   = DisruptionProfile{Name: "Long", MinDays: 3.0, ModeDays: 10.5, MaxDays: 21.0}
)

// FactorialCell is one labeled configuration of the 2x3 design.
type FactorialCell struct {
	Label  string
	Config Config
}

// FactorialConfigs builds the 2x3 design: capacity {SQ, P} crossed with the
// three disruption profiles. Labels follow the {SQ|P}_{Short|Medium|Long}
// convention; reorder point, order quantity and initial inventory scale with
// the cell's capacity.
func FactorialConfigs(baseSeed int64, simulationDays int) []FactorialCell {
	capacities := []struct {
		name  string
		value float64
	}{
		{"SQ", CapacityStatusQuo},
		{"P", CapacityProposed},
	}
	disruptions := []DisruptionProfile{DisruptionShort, DisruptionMedium, DisruptionLong}

	cells := make([]FactorialCell, 0, len(capacities)*len(disruptions))
	for _, cap := range capacities {
		for _, dis := range disruptions {
			cfg := DefaultConfig()
			cfg.CapacityTM = cap.value
			cfg.ReorderPointTM = cap.value * 0.91
			cfg.OrderQuantityTM = cap.value * 0.53
			cfg.InitialInventoryTM = cap.value * 0.60
			cfg.DisruptionMinDays = dis.MinDays
			cfg.DisruptionModeDays = dis.ModeDays
			cfg.DisruptionMaxDays = dis.MaxDays
			cfg.SimulationDays = simulationDays
			cfg.Seed = baseSeed
			cells = append(cells, FactorialCell{
				Label:  fmt.Sprintf("%s_%s", cap.name, dis.Name),
				Config: cfg,
			})
		}
	}
	return cells
}

// LoadConfigYAML reads a Config from a YAML file, applying defaults for
// omitted fields and validating the result.
func LoadConfigYAML(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
