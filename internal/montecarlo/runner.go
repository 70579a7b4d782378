package montecarlo

import (
	"fmt"
	"time"

	"github.com/simresglp/simulator/internal/database"
	"github.com/simresglp/simulator/internal/metrics"
	"github.com/simresglp/simulator/pkg/simulation"
)

// replicaTask is one unit of pool work: a fully resolved kernel
// configuration plus the design-cell values its persisted row will carry.
type replicaTask struct {
	num             int
	seed            int64
	cfg             simulation.Config
	capacidadTM     float64
	duracionMaxDias float64
	label           string
}

// replicaOutcome is what a worker hands back to the collector. kpis is nil
// when the replica failed.
type replicaOutcome struct {
	task     replicaTask
	kpis     *simulation.Kpis
	err      error
	duration float64
}

// runReplica executes one replica and times it. Panics become failed
// outcomes, so a single bad replica can never take the whole experiment
// down.
func runReplica(task replicaTask) replicaOutcome {
	start := time.Now()
	kpis, err := func() (k *simulation.Kpis, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("réplica %d: panic: %v", task.num, r)
			}
		}()
		res, err := simulation.Run(task.cfg)
		if err != nil {
			return nil, err
		}
		// The daily series is dropped here: experiments keep KPIs only.
		return &res.Kpis, nil
	}()

	elapsed := time.Since(start).Seconds()
	metrics.ReplicaDuration.Observe(elapsed)
	return replicaOutcome{task: task, kpis: kpis, err: err, duration: elapsed}
}

// toReplica builds the persisted row for an outcome.
func (o replicaOutcome) toReplica(experimentoID uint) database.Replica {
	now := time.Now()
	rep := database.Replica{
		ExperimentoID:    experimentoID,
		ReplicaNum:       o.task.num,
		Semilla:          o.task.seed,
		CapacidadTM:      o.task.capacidadTM,
		DuracionMaxDias:  o.task.duracionMaxDias,
		DuracionSegundos: o.duration,
		EjecutadaEn:      &now,
	}
	if o.err != nil {
		msg := o.err.Error()
		rep.Estado = database.EstadoFailed
		rep.ErrorMensaje = &msg
		return rep
	}
	rep.Estado = database.EstadoCompleted
	rep.SetKpis(*o.kpis)
	return rep
}
