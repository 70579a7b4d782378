// Package export writes sweep results to disk: the per-replica table as
// CSV and arbitrary aggregates as indented JSON. Column names and value
// rounding follow the KPI contract, so exported files are stable across
// runs with the same seed.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/simresglp/simulator/internal/montecarlo"
	"github.com/simresglp/simulator/pkg/simulation"
)

// factorialHeader is the replica table layout: design label, replica
// number, seed, then the full KPI block in its canonical order.
var factorialHeader = []string{
	"config_name", "replica", "seed",
	"service_level_pct", "stockout_probability_pct", "stockout_days",
	"avg_inventory_tm", "min_inventory_tm", "max_inventory_tm", "std_inventory_tm",
	"final_inventory_tm", "initial_inventory_tm",
	"avg_autonomy_days", "min_autonomy_days",
	"total_demand_tm", "satisfied_demand_tm", "unsatisfied_demand_tm",
	"avg_daily_demand_tm", "max_daily_demand_tm", "min_daily_demand_tm",
	"total_received_tm", "total_dispatched_tm",
	"total_disruptions", "total_blocked_days", "blocked_time_pct", "simulated_days",
}

// FactorialCSV writes the replica table of a sweep to w.
func FactorialCSV(w io.Writer, rows []montecarlo.FactorialRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(factorialHeader); err != nil {
		return err
	}
	for _, row := range rows {
		record := append([]string{
			row.ConfigLabel,
			strconv.Itoa(row.Replica),
			strconv.FormatInt(row.Seed, 10),
		}, kpiFields(row.Kpis)...)
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFactorialCSV writes the replica table to path, creating parent
// directories as needed.
func WriteFactorialCSV(path string, rows []montecarlo.FactorialRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := FactorialCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteJSON writes v as indented JSON to path, creating parent
// directories as needed.
func WriteJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0644)
}

func kpiFields(k simulation.Kpis) []string {
	return []string{
		ffloat(k.ServiceLevelPct), ffloat(k.StockoutProbabilityPct), strconv.Itoa(k.StockoutDays),
		ffloat(k.AvgInventoryTM), ffloat(k.MinInventoryTM), ffloat(k.MaxInventoryTM), ffloat(k.StdInventoryTM),
		ffloat(k.FinalInventoryTM), ffloat(k.InitialInventoryTM),
		ffloat(k.AvgAutonomyDays), ffloat(k.MinAutonomyDays),
		ffloat(k.TotalDemandTM), ffloat(k.SatisfiedDemandTM), ffloat(k.UnsatisfiedDemandTM),
		ffloat(k.AvgDailyDemandTM), ffloat(k.MaxDailyDemandTM), ffloat(k.MinDailyDemandTM),
		ffloat(k.TotalReceivedTM), ffloat(k.TotalDispatchedTM),
		strconv.Itoa(k.TotalDisruptions), ffloat(k.TotalBlockedDays), ffloat(k.BlockedTimePct),
		strconv.Itoa(k.SimulatedDays),
	}
}

func ffloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
