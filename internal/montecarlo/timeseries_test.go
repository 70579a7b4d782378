package montecarlo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simresglp/simulator/internal/database"
)

func TestSampleTimeSeriesBands(t *testing.T) {
	params := DefaultParams()
	params["duracion_simulacion_dias"] = 25

	bands, err := SampleTimeSeries(params, 10)
	require.NoError(t, err)
	require.Len(t, bands, 25)

	for i, b := range bands {
		assert.Equal(t, i+1, b.Dia)

		assert.LessOrEqual(t, b.InventarioP5, b.InventarioP25, "día %d", b.Dia)
		assert.LessOrEqual(t, b.InventarioP25, b.InventarioP50, "día %d", b.Dia)
		assert.LessOrEqual(t, b.InventarioP50, b.InventarioP75, "día %d", b.Dia)
		assert.LessOrEqual(t, b.InventarioP75, b.InventarioP95, "día %d", b.Dia)

		assert.LessOrEqual(t, b.DemandaP5, b.DemandaP95, "día %d", b.Dia)
		assert.Greater(t, b.DemandaMean, 0.0)
		assert.LessOrEqual(t, b.DemandaSatisfechaMean, b.DemandaMean+1e-9)

		assert.GreaterOrEqual(t, b.ProbQuiebreStock, 0.0)
		assert.LessOrEqual(t, b.ProbQuiebreStock, 100.0)
		assert.GreaterOrEqual(t, b.ProbRutaBloqueada, 0.0)
		assert.LessOrEqual(t, b.ProbRutaBloqueada, 100.0)
	}

	// Every sample starts from the same initial inventory, so day one
	// carries a single day of demand noise at most.
	assert.Less(t, bands[0].InventarioStd, 30.0)

	// Same parameters, same seed block, same bands.
	again, err := SampleTimeSeries(params, 10)
	require.NoError(t, err)
	assert.Equal(t, bands, again)
}

func TestSampleTimeSeriesValidation(t *testing.T) {
	params := DefaultParams()

	var vErr *ValidationError
	_, err := SampleTimeSeries(params, MinMuestras-1)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "num_muestras", vErr.Field)

	_, err = SampleTimeSeries(params, MaxMuestras+1)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "num_muestras", vErr.Field)
}

func TestExecutorTimeSeries(t *testing.T) {
	exec, repo := newTestExecutor(t)
	cfg := createTestConfig(t, repo, "bandas", nil)

	completado := &database.Experimento{
		ConfiguracionID: cfg.ID, Nombre: "exp-bandas", NumReplicas: 100,
		MaxWorkers: 4, Estado: database.EstadoCompleted,
	}
	require.NoError(t, repo.CreateExperimento(completado))

	res, err := exec.TimeSeries(completado.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, completado.ID, res.ExperimentoID)
	assert.Equal(t, "exp-bandas", res.Nombre)
	assert.Equal(t, 10, res.NumMuestras)
	assert.Equal(t, 30, res.DiasSimulados)
	assert.Len(t, res.Series, 30)

	// Zero muestras takes the default sample size.
	res, err = exec.TimeSeries(completado.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultMuestras, res.NumMuestras)

	var vErr *ValidationError
	_, err = exec.TimeSeries(completado.ID, MaxMuestras+1)
	require.ErrorAs(t, err, &vErr)

	pendiente := &database.Experimento{
		ConfiguracionID: cfg.ID, Nombre: "exp-pendiente", NumReplicas: 100,
		MaxWorkers: 4, Estado: database.EstadoRunning,
	}
	require.NoError(t, repo.CreateExperimento(pendiente))
	var pre *PreconditionError
	_, err = exec.TimeSeries(pendiente.ID, 10)
	require.ErrorAs(t, err, &pre)

	_, err = exec.TimeSeries(777777, 10)
	assert.ErrorIs(t, err, ErrNotFound)
}
