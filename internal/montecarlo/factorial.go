package montecarlo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/simresglp/simulator/internal/database"
	"github.com/simresglp/simulator/internal/metrics"
	"github.com/simresglp/simulator/pkg/simulation"
)

// FactorialOptions drive one 2x3 capacity-by-disruption sweep.
type FactorialOptions struct {
	Nombre          string
	ReplicasPerCell int
	MaxWorkers      int
	BaseSeed        int64
	SimulationDays  int
}

// FactorialRow is one completed replica of the sweep with its full KPI
// block, kept in memory for CSV/JSON export.
type FactorialRow struct {
	ConfigLabel string          `json:"config_name"`
	Replica     int             `json:"replica"`
	Seed        int64           `json:"seed"`
	Kpis        simulation.Kpis `json:"kpis"`
}

// RunFactorial runs the full 2x3 design synchronously: each cell gets
// ReplicasPerCell replicas under the per-cell seed rule, every row lands
// in the store as one experiment, and the completed rows come back in
// design order for export. Cancelling ctx abandons the sweep and marks
// the experiment failed.
func (e *Executor) RunFactorial(ctx context.Context, opts FactorialOptions) (*database.Experimento, []FactorialRow, error) {
	if opts.ReplicasPerCell == 0 {
		opts.ReplicasPerCell = DefaultReplicas
	}
	if opts.MaxWorkers == 0 {
		opts.MaxWorkers = DefaultPoolWorkers
	}
	if opts.BaseSeed == 0 {
		opts.BaseSeed = 42
	}
	if opts.SimulationDays == 0 {
		opts.SimulationDays = 365
	}
	if opts.ReplicasPerCell < 1 || opts.ReplicasPerCell > MaxReplicas {
		return nil, nil, &ValidationError{
			Field:  "replicas",
			Reason: fmt.Sprintf("debe estar entre 1 y %d por celda", MaxReplicas),
		}
	}
	if opts.MaxWorkers < MinPoolWorkers || opts.MaxWorkers > MaxPoolWorkers {
		return nil, nil, &ValidationError{
			Field:  "max_workers",
			Reason: fmt.Sprintf("debe estar entre %d y %d", MinPoolWorkers, MaxPoolWorkers),
		}
	}

	nombre := opts.Nombre
	if nombre == "" {
		nombre = fmt.Sprintf("Factorial-2x3-%drep", opts.ReplicasPerCell)
	}

	base, err := e.factorialBaseConfig(nombre, opts)
	if err != nil {
		return nil, nil, err
	}

	cells := simulation.FactorialConfigs(opts.BaseSeed, opts.SimulationDays)
	perCell := opts.ReplicasPerCell
	total := len(cells) * perCell

	exp := &database.Experimento{
		ConfiguracionID: base.ID,
		Nombre:          nombre,
		NumReplicas:     total,
		MaxWorkers:      opts.MaxWorkers,
		Estado:          database.EstadoRunning,
		IniciadoEn:      time.Now(),
	}
	if err := e.repo.CreateExperimento(exp); err != nil {
		return nil, nil, err
	}

	logger := e.log.WithFields(logrus.Fields{
		"experimento_id": exp.ID,
		"celdas":         len(cells),
		"replicas_celda": perCell,
		"workers":        opts.MaxWorkers,
	})
	logger.Info("factorial sweep started")

	makeTask := func(i int) replicaTask {
		cell := (i - 1) / perCell
		rep := (i-1)%perCell + 1
		seed := FactorialSeed(opts.BaseSeed, cell+1, rep)
		cfg := cells[cell].Config
		cfg.Seed = seed
		return replicaTask{
			num:             i,
			seed:            seed,
			cfg:             cfg,
			capacidadTM:     cfg.CapacityTM,
			duracionMaxDias: cfg.DisruptionMaxDays,
			label:           cells[cell].Label,
		}
	}

	var (
		rows    []FactorialRow
		pending []database.Replica
		done    int
		lastPct = -1
	)
	collect := func(o replicaOutcome) {
		row := o.toReplica(exp.ID)
		pending = append(pending, row)
		metrics.ReplicasFinished.WithLabelValues(row.Estado).Inc()
		if o.err != nil {
			logger.WithError(o.err).WithField("replica", o.task.num).Warn("replica failed")
		} else {
			rows = append(rows, FactorialRow{
				ConfigLabel: o.task.label,
				Replica:     (o.task.num-1)%perCell + 1,
				Seed:        o.task.seed,
				Kpis:        *o.kpis,
			})
		}
		done++
		if pct := done * 100 / total; pct != lastPct {
			lastPct = pct
			if err := e.repo.UpdateExperimentoFields(exp.ID, map[string]interface{}{"progreso": pct}); err != nil {
				logger.WithError(err).Warn("could not update progress")
			}
			if pct%10 == 0 {
				logger.WithField("progreso", pct).Info("sweep progress")
			}
		}
	}

	metrics.ExperimentsStarted.Inc()
	metrics.ExperimentsRunning.Inc()
	defer metrics.ExperimentsRunning.Dec()

	start := time.Now()
	runPool(ctx, total, opts.MaxWorkers, makeTask, collect)

	if err := ctx.Err(); err != nil {
		if mErr := e.repo.MarkExperimentoFailed(exp.ID, "barrido factorial interrumpido"); mErr != nil {
			logger.WithError(mErr).Error("could not mark sweep as failed")
		}
		return nil, nil, err
	}

	sort.Slice(pending, func(i, j int) bool { return pending[i].ReplicaNum < pending[j].ReplicaNum })
	if err := e.repo.BatchCreateReplicas(pending); err != nil {
		if mErr := e.repo.MarkExperimentoFailed(exp.ID, fmt.Sprintf("persistiendo réplicas: %v", err)); mErr != nil {
			logger.WithError(mErr).Error("could not mark sweep as failed")
		}
		return nil, nil, err
	}

	// The cell stride dominates the replica index, so seed order is
	// design order.
	sort.Slice(rows, func(i, j int) bool { return rows[i].Seed < rows[j].Seed })

	completed, err := e.repo.GetReplicasByEstado(exp.ID, database.EstadoCompleted)
	if err != nil {
		return nil, nil, err
	}
	now := time.Now()
	if err := e.repo.UpdateExperimentoFields(exp.ID, map[string]interface{}{
		"estado":               database.EstadoCompleted,
		"progreso":             100,
		"completado_en":        now,
		"duracion_segundos":    now.Sub(start).Seconds(),
		"resultados_agregados": Aggregate(completed),
	}); err != nil {
		return nil, nil, err
	}
	logger.WithField("replicas_completadas", len(completed)).Info("factorial sweep completed")

	out, err := e.repo.GetExperimento(exp.ID)
	if err != nil {
		return nil, nil, err
	}
	return out, rows, nil
}

// factorialBaseConfig finds or creates the configuration row a sweep
// experiment hangs off. The row records the shared baseline; the per-cell
// capacity and disruption levels live on the replicas themselves.
func (e *Executor) factorialBaseConfig(nombre string, opts FactorialOptions) (*database.Configuracion, error) {
	if existing, err := e.repo.GetConfiguracionByNombre(nombre); err == nil {
		return existing, nil
	}
	params := DefaultParams()
	params["duracion_simulacion_dias"] = opts.SimulationDays
	params["semilla_aleatoria"] = opts.BaseSeed
	desc := "Base del barrido factorial 2x3 (capacidad x duración de disrupción)"
	cfg := &database.Configuracion{
		Nombre:      nombre,
		Descripcion: &desc,
		Parametros:  params,
	}
	if err := e.repo.CreateConfiguracion(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
