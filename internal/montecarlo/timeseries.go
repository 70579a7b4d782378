package montecarlo

import (
	"fmt"

	"github.com/simresglp/simulator/internal/database"
	"github.com/simresglp/simulator/pkg/simulation"
	"github.com/simresglp/simulator/pkg/stats"
)

// Sampling bounds for the daily-band endpoint.
const (
	MinMuestras     = 10
	MaxMuestras     = 500
	DefaultMuestras = 50
)

// DailyBand is the cross-replica distribution of one simulated day:
// inventory and demand bands, mean derived indicators, and the share of
// replicas (in percent) that were in stockout or had the route blocked.
type DailyBand struct {
	Dia int `json:"dia"`

	InventarioMean float64 `json:"inventario_mean"`
	InventarioStd  float64 `json:"inventario_std"`
	InventarioP5   float64 `json:"inventario_p5"`
	InventarioP25  float64 `json:"inventario_p25"`
	InventarioP50  float64 `json:"inventario_p50"`
	InventarioP75  float64 `json:"inventario_p75"`
	InventarioP95  float64 `json:"inventario_p95"`

	DemandaMean float64 `json:"demanda_mean"`
	DemandaStd  float64 `json:"demanda_std"`
	DemandaP5   float64 `json:"demanda_p5"`
	DemandaP25  float64 `json:"demanda_p25"`
	DemandaP50  float64 `json:"demanda_p50"`
	DemandaP75  float64 `json:"demanda_p75"`
	DemandaP95  float64 `json:"demanda_p95"`

	DemandaSatisfechaMean float64 `json:"demanda_satisfecha_mean"`

	DiasAutonomiaMean float64 `json:"dias_autonomia_mean"`
	DiasAutonomiaP5   float64 `json:"dias_autonomia_p5"`
	DiasAutonomiaP95  float64 `json:"dias_autonomia_p95"`

	ProbQuiebreStock  float64 `json:"prob_quiebre_stock"`
	ProbRutaBloqueada float64 `json:"prob_ruta_bloqueada"`
}

// TimeSeriesResult is the envelope of the daily-band endpoint.
type TimeSeriesResult struct {
	ExperimentoID uint        `json:"experiment_id"`
	Nombre        string      `json:"experiment_nombre"`
	NumMuestras   int         `json:"num_muestras"`
	DiasSimulados int         `json:"dias_simulados"`
	Series        []DailyBand `json:"series_temporales"`
}

// SampleTimeSeries replays numMuestras fresh replicas of the parameter set
// under the sampling seed rule and reduces them to per-day bands. The
// experiment's own replicas never stored their series, so the bands are
// recomputed from the same generator family but a disjoint seed block.
func SampleTimeSeries(params database.ParamsJSON, numMuestras int) ([]DailyBand, error) {
	if numMuestras < MinMuestras || numMuestras > MaxMuestras {
		return nil, &ValidationError{
			Field:  "num_muestras",
			Reason: fmt.Sprintf("debe estar entre %d y %d", MinMuestras, MaxMuestras),
		}
	}

	base := BaseSeed(params)
	series := make([][]simulation.DailyRecord, 0, numMuestras)
	for i := 0; i < numMuestras; i++ {
		cfg := ConfigFromParams(params, TimeSeriesSeed(base, i))
		res, err := simulation.Run(cfg)
		if err != nil {
			return nil, &ValidationError{Field: "parametros", Reason: err.Error()}
		}
		series = append(series, res.TimeSeries)
	}

	days := len(series[0])
	n := float64(numMuestras)
	bands := make([]DailyBand, 0, days)

	inv := make([]float64, numMuestras)
	dem := make([]float64, numMuestras)
	sat := make([]float64, numMuestras)
	aut := make([]float64, numMuestras)
	for d := 0; d < days; d++ {
		stockouts, blocked := 0, 0
		for i, s := range series {
			rec := s[d]
			inv[i] = rec.InventoryTM
			dem[i] = rec.DemandTM
			sat[i] = rec.SatisfiedTM
			aut[i] = rec.AutonomyDays
			if rec.Stockout {
				stockouts++
			}
			if rec.RouteBlocked {
				blocked++
			}
		}
		bands = append(bands, DailyBand{
			Dia: d + 1,

			InventarioMean: round2(stats.Mean(inv)),
			InventarioStd:  round2(stats.PopStd(inv)),
			InventarioP5:   round2(stats.Percentile(inv, 5)),
			InventarioP25:  round2(stats.Percentile(inv, 25)),
			InventarioP50:  round2(stats.Percentile(inv, 50)),
			InventarioP75:  round2(stats.Percentile(inv, 75)),
			InventarioP95:  round2(stats.Percentile(inv, 95)),

			DemandaMean: round2(stats.Mean(dem)),
			DemandaStd:  round2(stats.PopStd(dem)),
			DemandaP5:   round2(stats.Percentile(dem, 5)),
			DemandaP25:  round2(stats.Percentile(dem, 25)),
			DemandaP50:  round2(stats.Percentile(dem, 50)),
			DemandaP75:  round2(stats.Percentile(dem, 75)),
			DemandaP95:  round2(stats.Percentile(dem, 95)),

			DemandaSatisfechaMean: round2(stats.Mean(sat)),

			DiasAutonomiaMean: round2(stats.Mean(aut)),
			DiasAutonomiaP5:   round2(stats.Percentile(aut, 5)),
			DiasAutonomiaP95:  round2(stats.Percentile(aut, 95)),

			ProbQuiebreStock:  round2(float64(stockouts) / n * 100),
			ProbRutaBloqueada: round2(float64(blocked) / n * 100),
		})
	}
	return bands, nil
}

// TimeSeries samples the daily bands of a completed experiment using its
// configuration's parameters.
func (e *Executor) TimeSeries(experimentoID uint, numMuestras int) (*TimeSeriesResult, error) {
	if numMuestras == 0 {
		numMuestras = DefaultMuestras
	}

	exp, err := e.repo.GetExperimento(experimentoID)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	if exp.Estado != database.EstadoCompleted {
		return nil, &PreconditionError{Reason: "el experimento aún no ha finalizado"}
	}
	cfg, err := e.repo.GetConfiguracion(exp.ConfiguracionID)
	if err != nil {
		return nil, wrapNotFound(err)
	}

	bands, err := SampleTimeSeries(cfg.Parametros, numMuestras)
	if err != nil {
		return nil, err
	}
	return &TimeSeriesResult{
		ExperimentoID: exp.ID,
		Nombre:        exp.Nombre,
		NumMuestras:   numMuestras,
		DiasSimulados: len(bands),
		Series:        bands,
	}, nil
}
