package montecarlo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/simresglp/simulator/internal/database"
	"github.com/simresglp/simulator/internal/metrics"
)

// Admission bounds for experiment requests.
const (
	MinReplicas     = 100
	MaxReplicas     = 100000
	DefaultReplicas = 1000

	MinPoolWorkers     = 1
	MaxPoolWorkers     = 16
	DefaultPoolWorkers = 11

	maxNombreLen = 200
)

// CancelledByUser is the terminal message written when a running
// experiment is cancelled through the API.
const CancelledByUser = "Experimento cancelado por el usuario"

// interruptedByRestart marks experiments found mid-flight at boot.
const interruptedByRestart = "interrumpido por reinicio del servidor"

// Executor owns the experiment lifecycle: it admits requests, runs the
// replica pool in the background, persists outcomes as they land and
// writes the single terminal record of each experiment.
type Executor struct {
	repo *database.Repository
	log  *logrus.Logger

	mu     sync.Mutex
	active map[uint]*runState
}

// runState tracks one in-process experiment. Its mutex serializes the
// collector's writes against cancellation, so no result can land on an
// experiment after its terminal record is written.
type runState struct {
	cancel context.CancelFunc

	mu        sync.Mutex
	cancelled bool // freeze: collector discards everything after this
	finished  bool // terminal record written by run()
}

// NewExecutor builds an executor on the given store.
func NewExecutor(repo *database.Repository, log *logrus.Logger) *Executor {
	return &Executor{
		repo:   repo,
		log:    log,
		active: make(map[uint]*runState),
	}
}

// StartOptions are the admission parameters of a new experiment. Zero
// NumReplicas and MaxWorkers take the defaults; an empty Nombre gets the
// MC-<configuración>-<N>rep convention.
type StartOptions struct {
	ConfiguracionID uint
	NumReplicas     int
	MaxWorkers      int
	Nombre          string
}

// Start validates the request, creates the pending experiment record and
// launches its replica pool in the background.
func (e *Executor) Start(opts StartOptions) (*database.Experimento, error) {
	if opts.NumReplicas == 0 {
		opts.NumReplicas = DefaultReplicas
	}
	if opts.MaxWorkers == 0 {
		opts.MaxWorkers = DefaultPoolWorkers
	}
	if opts.NumReplicas < MinReplicas || opts.NumReplicas > MaxReplicas {
		return nil, &ValidationError{
			Field:  "num_replicas",
			Reason: fmt.Sprintf("debe estar entre %d y %d", MinReplicas, MaxReplicas),
		}
	}
	if opts.MaxWorkers < MinPoolWorkers || opts.MaxWorkers > MaxPoolWorkers {
		return nil, &ValidationError{
			Field:  "max_workers",
			Reason: fmt.Sprintf("debe estar entre %d y %d", MinPoolWorkers, MaxPoolWorkers),
		}
	}
	if len(opts.Nombre) > maxNombreLen {
		return nil, &ValidationError{
			Field:  "nombre",
			Reason: fmt.Sprintf("no puede superar %d caracteres", maxNombreLen),
		}
	}

	cfg, err := e.repo.GetConfiguracion(opts.ConfiguracionID)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	if err := ConfigFromParams(cfg.Parametros, 1).Validate(); err != nil {
		return nil, &ValidationError{Field: "parametros", Reason: err.Error()}
	}

	nombre := opts.Nombre
	if nombre == "" {
		nombre = fmt.Sprintf("MC-%s-%drep", cfg.Nombre, opts.NumReplicas)
	}

	exp := &database.Experimento{
		ConfiguracionID: cfg.ID,
		Nombre:          nombre,
		NumReplicas:     opts.NumReplicas,
		MaxWorkers:      opts.MaxWorkers,
		Estado:          database.EstadoPending,
		IniciadoEn:      time.Now(),
	}
	if err := e.repo.CreateExperimento(exp); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	state := &runState{cancel: cancel}
	e.mu.Lock()
	e.active[exp.ID] = state
	e.mu.Unlock()

	metrics.ExperimentsStarted.Inc()
	go e.run(ctx, state, exp, cfg.Parametros)

	return exp, nil
}

// run executes every replica of an experiment and writes its terminal
// record. It is the only writer of the experiment row while running; user
// cancellation takes over that role under the runState mutex.
func (e *Executor) run(ctx context.Context, state *runState, exp *database.Experimento, params database.ParamsJSON) {
	defer func() {
		e.mu.Lock()
		delete(e.active, exp.ID)
		e.mu.Unlock()
		metrics.ExperimentsRunning.Dec()
	}()
	metrics.ExperimentsRunning.Inc()

	logger := e.log.WithFields(logrus.Fields{
		"experimento_id": exp.ID,
		"replicas":       exp.NumReplicas,
		"workers":        exp.MaxWorkers,
	})

	start := time.Now()
	state.mu.Lock()
	if state.cancelled {
		state.mu.Unlock()
		return
	}
	err := e.repo.UpdateExperimentoFields(exp.ID, map[string]interface{}{
		"estado":      database.EstadoRunning,
		"progreso":    0,
		"iniciado_en": start,
	})
	state.mu.Unlock()
	if err != nil {
		logger.WithError(err).Error("could not mark experiment as running")
		return
	}
	logger.Info("experiment started")

	seedBase := BaseSeed(params)
	capacidad := params.Float("capacidad_hub_tm", 431)
	duracionMax := params.Float("duracion_disrupcion_max_dias", 21)

	makeTask := func(i int) replicaTask {
		seed := ReplicaSeed(seedBase, i)
		return replicaTask{
			num:             i,
			seed:            seed,
			cfg:             ConfigFromParams(params, seed),
			capacidadTM:     capacidad,
			duracionMaxDias: duracionMax,
		}
	}

	var (
		done    int
		lastPct = -1
		execErr error
	)
	collect := func(o replicaOutcome) {
		state.mu.Lock()
		defer state.mu.Unlock()
		if state.cancelled {
			return
		}
		row := o.toReplica(exp.ID)
		if err := e.repo.CreateReplica(&row); err != nil {
			execErr = fmt.Errorf("persistiendo réplica %d: %w", o.task.num, err)
			state.cancelled = true
			state.cancel()
			return
		}
		metrics.ReplicasFinished.WithLabelValues(row.Estado).Inc()
		if o.err != nil {
			logger.WithError(o.err).WithField("replica", o.task.num).Warn("replica failed")
		}
		done++
		if pct := done * 100 / exp.NumReplicas; pct != lastPct {
			lastPct = pct
			if err := e.repo.UpdateExperimentoFields(exp.ID, map[string]interface{}{"progreso": pct}); err != nil {
				logger.WithError(err).Warn("could not update progress")
			}
		}
	}

	runPool(ctx, exp.NumReplicas, exp.MaxWorkers, makeTask, collect)

	state.mu.Lock()
	defer state.mu.Unlock()
	now := time.Now()
	elapsed := now.Sub(start).Seconds()

	switch {
	case execErr != nil:
		if err := e.repo.UpdateExperimentoFields(exp.ID, map[string]interface{}{
			"estado":            database.EstadoFailed,
			"error_mensaje":     execErr.Error(),
			"completado_en":     now,
			"duracion_segundos": elapsed,
		}); err != nil {
			logger.WithError(err).Error("could not mark experiment as failed")
			return
		}
		state.finished = true
		logger.WithError(execErr).Error("experiment failed")

	case state.cancelled:
		// User cancellation already wrote the terminal record.
		logger.Info("experiment cancelled, pool drained")

	default:
		completed, err := e.repo.GetReplicasByEstado(exp.ID, database.EstadoCompleted)
		if err != nil {
			logger.WithError(err).Error("could not load replicas for aggregation")
			return
		}
		if err := e.repo.UpdateExperimentoFields(exp.ID, map[string]interface{}{
			"estado":               database.EstadoCompleted,
			"progreso":             100,
			"completado_en":        now,
			"duracion_segundos":    elapsed,
			"resultados_agregados": Aggregate(completed),
		}); err != nil {
			logger.WithError(err).Error("could not mark experiment as completed")
			return
		}
		state.finished = true
		logger.WithFields(logrus.Fields{
			"duracion_segundos":    round2(elapsed),
			"replicas_completadas": len(completed),
		}).Info("experiment completed")
	}
}

// Cancel stops a running experiment: it freezes the collector, writes the
// failed terminal record with the given reason and aggregates over the
// replicas that finished in time. In-flight replicas are left to drain and
// their results are discarded.
func (e *Executor) Cancel(id uint, reason string) (*database.Experimento, error) {
	e.mu.Lock()
	state := e.active[id]
	e.mu.Unlock()

	exp, err := e.repo.GetExperimento(id)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	if state == nil {
		return nil, &PreconditionError{Reason: "el experimento no está en ejecución"}
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if state.finished || state.cancelled {
		return nil, &PreconditionError{Reason: "el experimento no está en ejecución"}
	}

	// Freeze writers first, then persist the terminal record: anything
	// finishing after this point is discarded.
	state.cancelled = true
	state.cancel()

	completed, err := e.repo.GetReplicasByEstado(id, database.EstadoCompleted)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if err := e.repo.UpdateExperimentoFields(id, map[string]interface{}{
		"estado":               database.EstadoFailed,
		"error_mensaje":        reason,
		"completado_en":        now,
		"duracion_segundos":    now.Sub(exp.IniciadoEn).Seconds(),
		"resultados_agregados": Aggregate(completed),
	}); err != nil {
		return nil, err
	}

	e.log.WithField("experimento_id", id).Info("experiment cancelled")
	return e.repo.GetExperimento(id)
}

// Delete cancels a running experiment (keeping its record) or removes a
// finished one together with all its replicas. The returned flag reports
// which of the two happened.
func (e *Executor) Delete(id uint) (bool, error) {
	_, err := e.Cancel(id, CancelledByUser)
	if err == nil {
		return true, nil
	}
	var pre *PreconditionError
	if !errors.As(err, &pre) {
		return false, err
	}
	return false, e.repo.DeleteExperimento(id)
}

// Progress is the polling snapshot of one experiment.
type Progress struct {
	ExperimentoID                  uint     `json:"experiment_id"`
	Estado                         string   `json:"estado"`
	Progreso                       int      `json:"progreso"`
	ReplicasTotales                int      `json:"replicas_totales"`
	ReplicasCompletadas            int      `json:"replicas_completadas"`
	TiempoTranscurridoSegundos     float64  `json:"tiempo_transcurrido_segundos"`
	TiempoEstimadoRestanteSegundos *float64 `json:"tiempo_estimado_restante_segundos"`
}

// Progress reports how far an experiment has advanced. The remaining-time
// estimate extrapolates the mean replica duration so far and is only
// present while running with at least one finished replica.
func (e *Executor) Progress(id uint) (*Progress, error) {
	exp, err := e.repo.GetExperimento(id)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	doneCount, err := e.repo.CountReplicas(id, database.EstadoCompleted, database.EstadoFailed)
	if err != nil {
		return nil, err
	}
	done := int(doneCount)

	p := &Progress{
		ExperimentoID:       exp.ID,
		Estado:              exp.Estado,
		Progreso:            exp.Progreso,
		ReplicasTotales:     exp.NumReplicas,
		ReplicasCompletadas: done,
	}

	switch {
	case exp.Estado == database.EstadoRunning:
		elapsed := time.Since(exp.IniciadoEn).Seconds()
		p.TiempoTranscurridoSegundos = round2(elapsed)
		if done > 0 && done < exp.NumReplicas {
			perReplica := elapsed / float64(done)
			remaining := round2(perReplica * float64(exp.NumReplicas-done))
			p.TiempoEstimadoRestanteSegundos = &remaining
		}
	case exp.DuracionSegundos != nil:
		p.TiempoTranscurridoSegundos = round2(*exp.DuracionSegundos)
	}
	return p, nil
}

// RecoverInterrupted marks experiments left pending or running by a
// previous process as failed. Call it once at startup, before serving.
func (e *Executor) RecoverInterrupted() (int, error) {
	recovered := 0
	for _, estado := range []string{database.EstadoRunning, database.EstadoPending} {
		exps, err := e.repo.ListExperimentosByEstado(estado)
		if err != nil {
			return recovered, err
		}
		for _, exp := range exps {
			if err := e.repo.MarkExperimentoFailed(exp.ID, interruptedByRestart); err != nil {
				return recovered, err
			}
			e.log.WithFields(logrus.Fields{
				"experimento_id": exp.ID,
				"estado":         estado,
			}).Warn("stale experiment marked as failed")
			recovered++
		}
	}
	return recovered, nil
}
