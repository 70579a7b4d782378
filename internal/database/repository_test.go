package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/simresglp/simulator/pkg/simulation"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db)
}

func testParams() ParamsJSON {
	return ParamsJSON{
		"capacidad_hub_tm":         431.0,
		"punto_reorden_tm":         394.0,
		"demanda_base_diaria_tm":   52.5,
		"duracion_simulacion_dias": 365,
		"usar_estacionalidad":      true,
	}
}

func TestConfiguracionCRUD(t *testing.T) {
	repo := newTestRepo(t)

	cfg := &Configuracion{Nombre: "Status Quo", Parametros: testParams()}
	require.NoError(t, repo.CreateConfiguracion(cfg))
	require.NotZero(t, cfg.ID)

	got, err := repo.GetConfiguracion(cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, "Status Quo", got.Nombre)
	assert.InDelta(t, 431.0, got.Parametros.Float("capacidad_hub_tm", 0), 1e-9)
	assert.Equal(t, 365, got.Parametros.Int("duracion_simulacion_dias", 0))
	assert.True(t, got.Parametros.Bool("usar_estacionalidad", false))

	byName, err := repo.GetConfiguracionByNombre("Status Quo")
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, byName.ID)

	_, err = repo.GetConfiguracion(9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// nombre is unique
	dup := &Configuracion{Nombre: "Status Quo", Parametros: testParams()}
	assert.Error(t, repo.CreateConfiguracion(dup))

	desc := "capacidad ampliada"
	got.Descripcion = &desc
	got.Parametros["capacidad_hub_tm"] = 800.0
	require.NoError(t, repo.UpdateConfiguracion(got))

	updated, err := repo.GetConfiguracion(cfg.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.Descripcion)
	assert.Equal(t, "capacidad ampliada", *updated.Descripcion)
	assert.InDelta(t, 800.0, updated.Parametros.Float("capacidad_hub_tm", 0), 1e-9)
}

func TestListConfiguracionesPagination(t *testing.T) {
	repo := newTestRepo(t)

	names := []string{"c1", "c2", "c3", "c4"}
	for _, n := range names {
		require.NoError(t, repo.CreateConfiguracion(&Configuracion{Nombre: n, Parametros: testParams()}))
	}

	page, err := repo.ListConfiguraciones(1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "c2", page[0].Nombre)
	assert.Equal(t, "c3", page[1].Nombre)

	all, err := repo.ListConfiguraciones(0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestExperimentoLifecycle(t *testing.T) {
	repo := newTestRepo(t)

	cfg := &Configuracion{Nombre: "base", Parametros: testParams()}
	require.NoError(t, repo.CreateConfiguracion(cfg))

	exp := &Experimento{
		ConfiguracionID: cfg.ID,
		Nombre:          "MC-base-100rep",
		NumReplicas:     100,
		MaxWorkers:      4,
		Estado:          EstadoPending,
		IniciadoEn:      time.Now(),
	}
	require.NoError(t, repo.CreateExperimento(exp))

	require.NoError(t, repo.UpdateExperimentoFields(exp.ID, map[string]interface{}{
		"estado":   EstadoRunning,
		"progreso": 40,
	}))

	got, err := repo.GetExperimento(exp.ID)
	require.NoError(t, err)
	assert.Equal(t, EstadoRunning, got.Estado)
	assert.Equal(t, 40, got.Progreso)
	assert.Nil(t, got.CompletadoEn)

	running, err := repo.ListExperimentosByEstado(EstadoRunning)
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, exp.ID, running[0].ID)

	require.NoError(t, repo.MarkExperimentoFailed(exp.ID, "interrumpido por reinicio del servidor"))

	failed, err := repo.GetExperimento(exp.ID)
	require.NoError(t, err)
	assert.Equal(t, EstadoFailed, failed.Estado)
	require.NotNil(t, failed.ErrorMensaje)
	assert.Equal(t, "interrumpido por reinicio del servidor", *failed.ErrorMensaje)
	assert.NotNil(t, failed.CompletadoEn)
}

func TestListExperimentosOrder(t *testing.T) {
	repo := newTestRepo(t)

	cfg := &Configuracion{Nombre: "base", Parametros: testParams()}
	require.NoError(t, repo.CreateConfiguracion(cfg))

	older := &Experimento{ConfiguracionID: cfg.ID, Nombre: "older", NumReplicas: 10, Estado: EstadoCompleted, IniciadoEn: time.Now().Add(-time.Hour)}
	newer := &Experimento{ConfiguracionID: cfg.ID, Nombre: "newer", NumReplicas: 10, Estado: EstadoCompleted, IniciadoEn: time.Now()}
	require.NoError(t, repo.CreateExperimento(older))
	require.NoError(t, repo.CreateExperimento(newer))

	exps, err := repo.ListExperimentos(0, 0)
	require.NoError(t, err)
	require.Len(t, exps, 2)
	assert.Equal(t, "newer", exps[0].Nombre)
	assert.Equal(t, "older", exps[1].Nombre)
}

func TestReplicaQueries(t *testing.T) {
	repo := newTestRepo(t)

	cfg := &Configuracion{Nombre: "base", Parametros: testParams()}
	require.NoError(t, repo.CreateConfiguracion(cfg))
	exp := &Experimento{ConfiguracionID: cfg.ID, Nombre: "exp", NumReplicas: 3, Estado: EstadoRunning, IniciadoEn: time.Now()}
	require.NoError(t, repo.CreateExperimento(exp))

	msg := "replica panic"
	reps := []Replica{
		{ExperimentoID: exp.ID, ReplicaNum: 2, Semilla: 4200002, Estado: EstadoCompleted, NivelServicioPct: f64ptr(97.1), CapacidadTM: 431, DuracionMaxDias: 21},
		{ExperimentoID: exp.ID, ReplicaNum: 1, Semilla: 4200001, Estado: EstadoCompleted, NivelServicioPct: f64ptr(98.5), CapacidadTM: 431, DuracionMaxDias: 21},
		{ExperimentoID: exp.ID, ReplicaNum: 3, Semilla: 4200003, Estado: EstadoFailed, ErrorMensaje: &msg, CapacidadTM: 431, DuracionMaxDias: 21},
	}
	require.NoError(t, repo.BatchCreateReplicas(reps))

	all, err := repo.GetReplicas(exp.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 1, all[0].ReplicaNum)
	assert.Equal(t, 3, all[2].ReplicaNum)

	completed, err := repo.GetReplicasByEstado(exp.ID, EstadoCompleted)
	require.NoError(t, err)
	assert.Len(t, completed, 2)
	require.NotNil(t, completed[0].NivelServicioPct)
	assert.InDelta(t, 98.5, *completed[0].NivelServicioPct, 1e-9)

	done, err := repo.CountReplicas(exp.ID, EstadoCompleted, EstadoFailed)
	require.NoError(t, err)
	assert.Equal(t, int64(3), done)

	failedOnly, err := repo.CountReplicas(exp.ID, EstadoFailed)
	require.NoError(t, err)
	assert.Equal(t, int64(1), failedOnly)

	require.NoError(t, repo.DeleteExperimento(exp.ID))

	_, err = repo.GetExperimento(exp.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	orphans, err := repo.GetReplicas(exp.ID)
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

func TestDeleteConfiguracionCascades(t *testing.T) {
	repo := newTestRepo(t)

	cfg := &Configuracion{Nombre: "cascade", Parametros: testParams()}
	require.NoError(t, repo.CreateConfiguracion(cfg))
	exp := &Experimento{ConfiguracionID: cfg.ID, Nombre: "exp", NumReplicas: 1, Estado: EstadoCompleted, IniciadoEn: time.Now()}
	require.NoError(t, repo.CreateExperimento(exp))
	require.NoError(t, repo.CreateReplica(&Replica{ExperimentoID: exp.ID, ReplicaNum: 1, Estado: EstadoCompleted}))

	sim := &Simulacion{ConfiguracionID: &cfg.ID, Estado: EstadoCompleted, EjecutadaEn: time.Now()}
	require.NoError(t, repo.CreateSimulacion(sim))

	require.NoError(t, repo.DeleteConfiguracion(cfg.ID))

	_, err := repo.GetConfiguracion(cfg.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = repo.GetExperimento(exp.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	reps, err := repo.GetReplicas(exp.ID)
	require.NoError(t, err)
	assert.Empty(t, reps)
	_, err = repo.GetSimulacion(sim.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSimulacionPersistsKpisAndSeries(t *testing.T) {
	repo := newTestRepo(t)

	res, err := simulation.Run(simulation.DefaultConfig())
	require.NoError(t, err)

	sim := &Simulacion{
		Estado:        EstadoCompleted,
		SemillaUsada:  42,
		SerieTemporal: res.TimeSeries,
		EjecutadaEn:   time.Now(),
	}
	sim.SetKpis(res.Kpis)
	require.NoError(t, repo.CreateSimulacion(sim))

	got, err := repo.GetSimulacion(sim.ID)
	require.NoError(t, err)
	require.NotNil(t, got.NivelServicioPct)
	assert.InDelta(t, res.Kpis.ServiceLevelPct, *got.NivelServicioPct, 1e-9)
	require.NotNil(t, got.DiasSimulados)
	assert.Equal(t, res.Kpis.SimulatedDays, *got.DiasSimulados)
	require.Len(t, got.SerieTemporal, len(res.TimeSeries))
	assert.Equal(t, res.TimeSeries[0].Day, got.SerieTemporal[0].Day)
	assert.InDelta(t, res.TimeSeries[10].InventoryTM, got.SerieTemporal[10].InventoryTM, 1e-9)
}

func TestListSimulacionesFilter(t *testing.T) {
	repo := newTestRepo(t)

	cfg := &Configuracion{Nombre: "base", Parametros: testParams()}
	require.NoError(t, repo.CreateConfiguracion(cfg))

	withCfg := &Simulacion{ConfiguracionID: &cfg.ID, Estado: EstadoCompleted, EjecutadaEn: time.Now()}
	adHoc := &Simulacion{Estado: EstadoCompleted, EjecutadaEn: time.Now().Add(time.Second)}
	require.NoError(t, repo.CreateSimulacion(withCfg))
	require.NoError(t, repo.CreateSimulacion(adHoc))

	all, err := repo.ListSimulaciones(nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, adHoc.ID, all[0].ID) // most recent first

	filtered, err := repo.ListSimulaciones(&cfg.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, withCfg.ID, filtered[0].ID)

	require.NoError(t, repo.DeleteSimulacion(adHoc.ID))
	remaining, err := repo.ListSimulaciones(nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
