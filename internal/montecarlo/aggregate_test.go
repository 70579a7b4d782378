package montecarlo

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simresglp/simulator/internal/database"
)

func f64ptr(v float64) *float64 { return &v }
func intptr(v int) *int         { return &v }

func fullReplica(nivel float64) database.Replica {
	days := int(nivel / 10)
	disr := int(nivel / 20)
	return database.Replica{
		Estado:                      database.EstadoCompleted,
		NivelServicioPct:            f64ptr(nivel),
		ProbabilidadQuiebreStockPct: f64ptr(100 - nivel),
		DiasConQuiebre:              intptr(days),
		InventarioPromedioTM:        f64ptr(nivel * 2),
		InventarioMinimoTM:          f64ptr(nivel / 2),
		AutonomiaPromedioDias:       f64ptr(nivel / 10),
		DemandaInsatisfechaTM:       f64ptr(100 - nivel),
		DisrupcionesTotales:         intptr(disr),
	}
}

func TestAggregateClosedKeySet(t *testing.T) {
	replicas := []database.Replica{
		fullReplica(90), fullReplica(92), fullReplica(94), fullReplica(96),
	}

	stats := Aggregate(replicas)
	require.NotNil(t, stats)
	assert.Len(t, stats, 64) // 8 columns x 8 statistics

	suffixes := []string{"mean", "std", "min", "max", "p25", "p50", "p75", "p95"}
	for _, col := range []string{
		"nivel_servicio", "probabilidad_quiebre_stock", "dias_con_quiebre",
		"inventario_promedio", "inventario_minimo", "autonomia_promedio",
		"demanda_insatisfecha", "disrupciones_totales",
	} {
		for _, sfx := range suffixes {
			_, ok := stats[fmt.Sprintf("%s_%s", col, sfx)]
			assert.True(t, ok, "missing %s_%s", col, sfx)
		}
	}
}

func TestAggregateValues(t *testing.T) {
	replicas := []database.Replica{
		fullReplica(90), fullReplica(92), fullReplica(94), fullReplica(96),
	}

	stats := Aggregate(replicas)
	require.NotNil(t, stats)

	assert.InDelta(t, 93.0, stats["nivel_servicio_mean"], 1e-9)
	assert.InDelta(t, math.Round(math.Sqrt(5)*1e4)/1e4, stats["nivel_servicio_std"], 1e-9)
	assert.InDelta(t, 90.0, stats["nivel_servicio_min"], 1e-9)
	assert.InDelta(t, 96.0, stats["nivel_servicio_max"], 1e-9)
	assert.InDelta(t, 91.5, stats["nivel_servicio_p25"], 1e-9)
	assert.InDelta(t, 93.0, stats["nivel_servicio_p50"], 1e-9)
	assert.InDelta(t, 94.5, stats["nivel_servicio_p75"], 1e-9)
	assert.InDelta(t, 95.7, stats["nivel_servicio_p95"], 1e-9)

	// Complementary column mirrors the service level.
	assert.InDelta(t, 7.0, stats["probabilidad_quiebre_stock_mean"], 1e-9)
	assert.InDelta(t, 4.0, stats["demanda_insatisfecha_min"], 1e-9)
}

func TestAggregateSkipsNullColumns(t *testing.T) {
	// Failed replicas carry no KPIs and must not contribute anywhere;
	// a completed replica may still have individual null columns.
	withGap := fullReplica(80)
	withGap.DiasConQuiebre = nil

	replicas := []database.Replica{
		withGap,
		fullReplica(90),
		{Estado: database.EstadoFailed},
	}

	stats := Aggregate(replicas)
	require.NotNil(t, stats)

	assert.InDelta(t, 85.0, stats["nivel_servicio_mean"], 1e-9)
	// Only the 90-level replica has a day count (9 days).
	assert.InDelta(t, 9.0, stats["dias_con_quiebre_mean"], 1e-9)
	assert.InDelta(t, 0.0, stats["dias_con_quiebre_std"], 1e-9)
}

func TestAggregateEmpty(t *testing.T) {
	assert.Nil(t, Aggregate(nil))
	assert.Nil(t, Aggregate([]database.Replica{}))

	// Replicas without any usable KPI yield no keys at all.
	stats := Aggregate([]database.Replica{{Estado: database.EstadoFailed}})
	assert.Empty(t, stats)
}

func TestRounding(t *testing.T) {
	assert.InDelta(t, 3.14, round2(3.14159), 1e-12)
	assert.InDelta(t, 3.1416, round4(3.14159265), 1e-12)
	assert.InDelta(t, 0.000123, round6(0.0001234567), 1e-12)
	assert.InDelta(t, -2.5, round2(-2.504), 1e-12)
}
