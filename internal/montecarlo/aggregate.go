package montecarlo

import (
	"math"

	"github.com/simresglp/simulator/internal/database"
	"github.com/simresglp/simulator/pkg/stats"
)

// kpiColumns is the closed set of replica indicators that aggregation and
// exports iterate over, in presentation order.
var kpiColumns = []struct {
	name string
	get  func(r *database.Replica) *float64
}{
	{"nivel_servicio", func(r *database.Replica) *float64 { return r.NivelServicioPct }},
	{"probabilidad_quiebre_stock", func(r *database.Replica) *float64 { return r.ProbabilidadQuiebreStockPct }},
	{"dias_con_quiebre", func(r *database.Replica) *float64 { return intColumn(r.DiasConQuiebre) }},
	{"inventario_promedio", func(r *database.Replica) *float64 { return r.InventarioPromedioTM }},
	{"inventario_minimo", func(r *database.Replica) *float64 { return r.InventarioMinimoTM }},
	{"autonomia_promedio", func(r *database.Replica) *float64 { return r.AutonomiaPromedioDias }},
	{"demanda_insatisfecha", func(r *database.Replica) *float64 { return r.DemandaInsatisfechaTM }},
	{"disrupciones_totales", func(r *database.Replica) *float64 { return intColumn(r.DisrupcionesTotales) }},
}

func intColumn(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}

// Aggregate reduces the completed replicas of an experiment to the closed
// <columna>_<estadístico> key set: mean, std (population), min, max and
// the 25/50/75/95 percentiles per KPI column, each over the non-null
// values of that column. An empty input yields nil, which persists as
// NULL.
func Aggregate(replicas []database.Replica) database.StatsJSON {
	if len(replicas) == 0 {
		return nil
	}

	out := make(database.StatsJSON)
	for _, col := range kpiColumns {
		values := make([]float64, 0, len(replicas))
		for i := range replicas {
			if v := col.get(&replicas[i]); v != nil {
				values = append(values, *v)
			}
		}
		s, ok := stats.Summarize(values)
		if !ok {
			continue
		}
		out[col.name+"_mean"] = round4(s.Mean)
		out[col.name+"_std"] = round4(s.Std)
		out[col.name+"_min"] = round4(s.Min)
		out[col.name+"_max"] = round4(s.Max)
		out[col.name+"_p25"] = round4(s.P25)
		out[col.name+"_p50"] = round4(s.P50)
		out[col.name+"_p75"] = round4(s.P75)
		out[col.name+"_p95"] = round4(s.P95)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }

func round6(v float64) float64 { return math.Round(v*1000000) / 1000000 }
