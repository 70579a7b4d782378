package montecarlo

import (
	"github.com/simresglp/simulator/internal/database"
	"github.com/simresglp/simulator/pkg/stats"
)

// Factor coercion: replica design values collapse onto the categorical
// levels of the 2x3 study. The thresholds sit between the status-quo
// capacity (431) and the proposed one (681), and between the short (7),
// medium (14) and long (21) disruption caps.
func capacidadCategoria(capacidadTM float64) string {
	if capacidadTM <= 450 {
		return "Status Quo"
	}
	return "Propuesta"
}

func duracionCategoria(duracionMaxDias float64) string {
	switch {
	case duracionMaxDias <= 7:
		return "Corta"
	case duracionMaxDias <= 14:
		return "Media"
	default:
		return "Larga"
	}
}

// AnovaTableRow is one line of the variance decomposition. F and PValor
// are null on the residual row.
type AnovaTableRow struct {
	Fuente string   `json:"fuente"`
	SC     float64  `json:"SC"`
	GL     float64  `json:"gl"`
	MC     float64  `json:"MC"`
	F      *float64 `json:"F"`
	PValor *float64 `json:"p_valor"`
}

// TukeyRow is one pairwise post-hoc comparison.
type TukeyRow struct {
	Grupo1           string  `json:"grupo1"`
	Grupo2           string  `json:"grupo2"`
	DiferenciaMedias float64 `json:"diferencia_medias"`
	PAjustado        float64 `json:"p_ajustado"`
	CIInferior       float64 `json:"ci_inferior"`
	CISuperior       float64 `json:"ci_superior"`
	RechazarH0       bool    `json:"rechazar_h0"`
}

// MediaConfiguracion is the mean response of one design cell with its
// 95% interval.
type MediaConfiguracion struct {
	CapacidadCat string  `json:"capacidad_cat"`
	DuracionCat  string  `json:"duracion_cat"`
	Media        float64 `json:"media"`
	Desviacion   float64 `json:"desviacion"`
	N            int     `json:"n"`
	CIInferior   float64 `json:"ci_inferior"`
	CISuperior   float64 `json:"ci_superior"`
}

// AnovaResult is the full factorial analysis of one experiment: two-way
// Type II ANOVA on the service level plus Tukey HSD per factor.
type AnovaResult struct {
	ExperimentoID          uint                 `json:"experiment_id"`
	VariableRespuesta      string               `json:"variable_respuesta"`
	NumObservaciones       int                  `json:"num_observaciones"`
	TablaAnova             []AnovaTableRow      `json:"tabla_anova"`
	EfectosPrincipales     map[string]float64   `json:"efectos_principales"`
	TamanosEfecto          map[string]float64   `json:"tamanos_efecto"`
	RCuadradoAjustado      float64              `json:"r_cuadrado_ajustado"`
	MediasPorConfiguracion []MediaConfiguracion `json:"medias_por_configuracion"`
	TukeyCapacidad         []TukeyRow           `json:"tukey_capacidad"`
	TukeyDuracion          []TukeyRow           `json:"tukey_duracion"`
}

// Anova runs the two-factor analysis of a completed experiment over the
// service level of its completed replicas. The experiment must span at
// least two levels of each coerced factor, which in practice means a
// factorial sweep.
func (e *Executor) Anova(experimentoID uint) (*AnovaResult, error) {
	exp, err := e.repo.GetExperimento(experimentoID)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	if exp.Estado != database.EstadoCompleted {
		return nil, &PreconditionError{Reason: "el experimento aún no ha finalizado"}
	}

	replicas, err := e.repo.GetReplicasByEstado(experimentoID, database.EstadoCompleted)
	if err != nil {
		return nil, err
	}

	var obs []stats.Observation
	capLevels := map[string]bool{}
	durLevels := map[string]bool{}
	capGroups := map[string][]float64{}
	durGroups := map[string][]float64{}
	for i := range replicas {
		r := &replicas[i]
		if r.NivelServicioPct == nil {
			continue
		}
		capCat := capacidadCategoria(r.CapacidadTM)
		durCat := duracionCategoria(r.DuracionMaxDias)
		obs = append(obs, stats.Observation{
			Response: *r.NivelServicioPct,
			FactorA:  capCat,
			FactorB:  durCat,
		})
		capLevels[capCat] = true
		durLevels[durCat] = true
		capGroups[capCat] = append(capGroups[capCat], *r.NivelServicioPct)
		durGroups[durCat] = append(durGroups[durCat], *r.NivelServicioPct)
	}

	if len(obs) < 4 {
		return nil, &PreconditionError{Reason: "se requieren al menos 4 réplicas completadas para el análisis"}
	}
	if len(capLevels) < 2 || len(durLevels) < 2 {
		return nil, &PreconditionError{Reason: "se requieren al menos 2 niveles por factor (ejecute un barrido factorial)"}
	}

	res, err := stats.TwoWayANOVA(obs, "Capacidad", "Duración")
	if err != nil {
		return nil, err
	}

	table := make([]AnovaTableRow, 0, len(res.Table))
	for _, row := range res.Table {
		r := AnovaTableRow{
			Fuente: row.Source,
			SC:     round4(row.SumSq),
			GL:     row.DF,
			MC:     round4(row.MeanSq),
		}
		if row.F != nil {
			f := round4(*row.F)
			r.F = &f
		}
		if row.P != nil {
			p := round6(*row.P)
			r.PValor = &p
		}
		table = append(table, r)
	}

	medias := make([]MediaConfiguracion, 0, len(res.CellMeans))
	for _, c := range res.CellMeans {
		medias = append(medias, MediaConfiguracion{
			CapacidadCat: c.FactorA,
			DuracionCat:  c.FactorB,
			Media:        round4(c.Mean),
			Desviacion:   round4(c.Std),
			N:            c.N,
			CIInferior:   round4(c.CILower),
			CISuperior:   round4(c.CIUpper),
		})
	}

	tukeyCap, err := tukeyRows(capGroups)
	if err != nil {
		return nil, err
	}
	tukeyDur, err := tukeyRows(durGroups)
	if err != nil {
		return nil, err
	}

	return &AnovaResult{
		ExperimentoID:     exp.ID,
		VariableRespuesta: "nivel_servicio",
		NumObservaciones:  len(obs),
		TablaAnova:        table,
		EfectosPrincipales: map[string]float64{
			"capacidad":   round4(res.MainEffectA),
			"duracion":    round4(res.MainEffectB),
			"interaccion": round4(res.InteractionEffect),
		},
		TamanosEfecto: map[string]float64{
			"eta_cuadrado_capacidad":   round4(res.EtaSquaredA),
			"eta_cuadrado_duracion":    round4(res.EtaSquaredB),
			"eta_cuadrado_interaccion": round4(res.EtaSquaredInter),
		},
		RCuadradoAjustado:      round4(res.AdjustedRSquared),
		MediasPorConfiguracion: medias,
		TukeyCapacidad:         tukeyCap,
		TukeyDuracion:          tukeyDur,
	}, nil
}

func tukeyRows(groups map[string][]float64) ([]TukeyRow, error) {
	tg := make([]stats.TukeyGroup, 0, len(groups))
	for name, values := range groups {
		tg = append(tg, stats.TukeyGroup{Name: name, Values: values})
	}
	comps, err := stats.TukeyHSD(tg, 0.05)
	if err != nil {
		return nil, err
	}
	rows := make([]TukeyRow, 0, len(comps))
	for _, c := range comps {
		rows = append(rows, TukeyRow{
			Grupo1:           c.Group1,
			Grupo2:           c.Group2,
			DiferenciaMedias: round4(c.MeanDiff),
			PAjustado:        round6(c.PAdjusted),
			CIInferior:       round4(c.CILower),
			CISuperior:       round4(c.CIUpper),
			RechazarH0:       c.Reject,
		})
	}
	return rows, nil
}
