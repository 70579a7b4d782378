package api

import (
	"fmt"

	"github.com/simresglp/simulator/internal/database"
	"github.com/simresglp/simulator/internal/montecarlo"
)

// ParametrosRequest is the flat parameter block accepted by configuration
// creation and ad-hoc runs. Pointer fields distinguish absent keys, which
// take the documented defaults on resolution.
type ParametrosRequest struct {
	CapacidadHubTM       *float64 `json:"capacidad_hub_tm"`
	PuntoReordenTM       *float64 `json:"punto_reorden_tm"`
	CantidadPedidoTM     *float64 `json:"cantidad_pedido_tm"`
	InventarioInicialPct *float64 `json:"inventario_inicial_pct"`

	DemandaBaseDiariaTM *float64 `json:"demanda_base_diaria_tm"`
	VariabilidadDemanda *float64 `json:"variabilidad_demanda"`
	AmplitudEstacional  *float64 `json:"amplitud_estacional"`
	DiaPicoInvernal     *int     `json:"dia_pico_invernal"`
	UsarEstacionalidad  *bool    `json:"usar_estacionalidad"`

	TasaDisrupcionesAnual      *float64 `json:"tasa_disrupciones_anual"`
	DuracionDisrupcionMinDias  *float64 `json:"duracion_disrupcion_min_dias"`
	DuracionDisrupcionModeDias *float64 `json:"duracion_disrupcion_mode_dias"`
	DuracionDisrupcionMaxDias  *float64 `json:"duracion_disrupcion_max_dias"`

	LeadTimeNominalDias    *float64 `json:"lead_time_nominal_dias"`
	DuracionSimulacionDias *int     `json:"duracion_simulacion_dias"`
	SemillaAleatoria       *int64   `json:"semilla_aleatoria"`
}

// Params resolves the request against the default parameter set: absent
// fields keep their defaults, present ones overwrite them.
func (p *ParametrosRequest) Params() database.ParamsJSON {
	params := montecarlo.DefaultParams()
	setFloat := func(key string, v *float64) {
		if v != nil {
			params[key] = *v
		}
	}
	setFloat("capacidad_hub_tm", p.CapacidadHubTM)
	setFloat("punto_reorden_tm", p.PuntoReordenTM)
	setFloat("cantidad_pedido_tm", p.CantidadPedidoTM)
	setFloat("inventario_inicial_pct", p.InventarioInicialPct)
	setFloat("demanda_base_diaria_tm", p.DemandaBaseDiariaTM)
	setFloat("variabilidad_demanda", p.VariabilidadDemanda)
	setFloat("amplitud_estacional", p.AmplitudEstacional)
	if p.DiaPicoInvernal != nil {
		params["dia_pico_invernal"] = *p.DiaPicoInvernal
	}
	if p.UsarEstacionalidad != nil {
		params["usar_estacionalidad"] = *p.UsarEstacionalidad
	}
	setFloat("tasa_disrupciones_anual", p.TasaDisrupcionesAnual)
	setFloat("duracion_disrupcion_min_dias", p.DuracionDisrupcionMinDias)
	setFloat("duracion_disrupcion_mode_dias", p.DuracionDisrupcionModeDias)
	setFloat("duracion_disrupcion_max_dias", p.DuracionDisrupcionMaxDias)
	setFloat("lead_time_nominal_dias", p.LeadTimeNominalDias)
	if p.DuracionSimulacionDias != nil {
		params["duracion_simulacion_dias"] = *p.DuracionSimulacionDias
	}
	if p.SemillaAleatoria != nil {
		params["semilla_aleatoria"] = *p.SemillaAleatoria
	}
	return params
}

// validarParametros checks a resolved parameter set against the admission
// ranges of the public API. The kernel has its own invariants; these are
// the tighter bounds a caller may not exceed.
func validarParametros(params database.ParamsJSON) error {
	rango := func(field string, v, min, max float64) error {
		if v < min || v > max {
			return &montecarlo.ValidationError{
				Field:  field,
				Reason: fmt.Sprintf("debe estar entre %g y %g", min, max),
			}
		}
		return nil
	}
	positivo := func(field string, v float64) error {
		if v <= 0 {
			return &montecarlo.ValidationError{Field: field, Reason: "debe ser mayor que 0"}
		}
		return nil
	}

	capacidad := params.Float("capacidad_hub_tm", 0)
	if err := positivo("capacidad_hub_tm", capacidad); err != nil {
		return err
	}
	if err := rango("capacidad_hub_tm", capacidad, 0, 2000); err != nil {
		return err
	}

	reorden := params.Float("punto_reorden_tm", 0)
	if err := positivo("punto_reorden_tm", reorden); err != nil {
		return err
	}
	if reorden > 2000 {
		return &montecarlo.ValidationError{Field: "punto_reorden_tm", Reason: "debe estar entre 0 y 2000"}
	}
	if reorden > capacidad {
		return &montecarlo.ValidationError{
			Field:  "punto_reorden_tm",
			Reason: "no puede exceder capacidad_hub_tm",
		}
	}

	pedido := params.Float("cantidad_pedido_tm", 0)
	if err := positivo("cantidad_pedido_tm", pedido); err != nil {
		return err
	}
	if pedido > 1000 {
		return &montecarlo.ValidationError{Field: "cantidad_pedido_tm", Reason: "debe estar entre 0 y 1000"}
	}

	if err := rango("inventario_inicial_pct", params.Float("inventario_inicial_pct", 0), 0, 100); err != nil {
		return err
	}
	if err := positivo("demanda_base_diaria_tm", params.Float("demanda_base_diaria_tm", 0)); err != nil {
		return err
	}
	if err := rango("variabilidad_demanda", params.Float("variabilidad_demanda", 0), 0, 1); err != nil {
		return err
	}
	if err := rango("amplitud_estacional", params.Float("amplitud_estacional", 0), 0, 1); err != nil {
		return err
	}
	if err := rango("dia_pico_invernal", float64(params.Int("dia_pico_invernal", 0)), 1, 365); err != nil {
		return err
	}
	if err := rango("tasa_disrupciones_anual", params.Float("tasa_disrupciones_anual", 0), 0, 50); err != nil {
		return err
	}

	minDias := params.Float("duracion_disrupcion_min_dias", 0)
	modeDias := params.Float("duracion_disrupcion_mode_dias", 0)
	maxDias := params.Float("duracion_disrupcion_max_dias", 0)
	if err := positivo("duracion_disrupcion_min_dias", minDias); err != nil {
		return err
	}
	if modeDias < minDias {
		return &montecarlo.ValidationError{
			Field:  "duracion_disrupcion_mode_dias",
			Reason: "debe ser >= duracion_disrupcion_min_dias",
		}
	}
	if maxDias < modeDias {
		return &montecarlo.ValidationError{
			Field:  "duracion_disrupcion_max_dias",
			Reason: "debe ser >= duracion_disrupcion_mode_dias",
		}
	}

	if err := positivo("lead_time_nominal_dias", params.Float("lead_time_nominal_dias", 0)); err != nil {
		return err
	}
	return rango("duracion_simulacion_dias", float64(params.Int("duracion_simulacion_dias", 0)), 1, 3650)
}

// ConfiguracionCreateRequest creates a named configuration from the flat
// parameter block.
type ConfiguracionCreateRequest struct {
	Nombre      string  `json:"nombre" binding:"required,min=1,max=100"`
	Descripcion *string `json:"descripcion"`
	ParametrosRequest
}

// ConfiguracionUpdateRequest applies a partial update; a present
// parametros block replaces the stored set after resolution.
type ConfiguracionUpdateRequest struct {
	Nombre      *string            `json:"nombre" binding:"omitempty,min=1,max=100"`
	Descripcion *string            `json:"descripcion"`
	Parametros  *ParametrosRequest `json:"parametros"`
}

// StartExperimentRequest launches a Monte Carlo experiment. Range checks
// live in the executor so CLI callers share them.
type StartExperimentRequest struct {
	ConfiguracionID uint   `json:"configuracion_id" binding:"required"`
	NumReplicas     int    `json:"num_replicas"`
	MaxWorkers      int    `json:"max_workers"`
	Nombre          string `json:"nombre"`
}

// SimulacionRequest runs one simulation from a stored configuration.
type SimulacionRequest struct {
	ConfiguracionID uint `json:"configuracion_id" binding:"required"`
}

// SimulacionResponse is a single-run record plus the name of the
// configuration it ran from, when any.
type SimulacionResponse struct {
	database.Simulacion
	ConfiguracionNombre *string `json:"configuracion_nombre"`
}

// RunResponse is the payload of an ad-hoc run: the persisted record with
// its daily series inlined.
type RunResponse struct {
	database.Simulacion
	SerieTemporal database.TimeSeriesJSON `json:"series_temporales"`
}

// ResultadoResponse flattens the KPI block of a completed run. Null
// columns coalesce to zero.
type ResultadoResponse struct {
	SimulacionID uint `json:"simulacion_id"`

	NivelServicioPct            float64 `json:"nivel_servicio_pct"`
	ProbabilidadQuiebreStockPct float64 `json:"probabilidad_quiebre_stock_pct"`
	DiasConQuiebre              int     `json:"dias_con_quiebre"`

	InventarioPromedioTM float64 `json:"inventario_promedio_tm"`
	InventarioMinimoTM   float64 `json:"inventario_minimo_tm"`
	InventarioMaximoTM   float64 `json:"inventario_maximo_tm"`
	InventarioFinalTM    float64 `json:"inventario_final_tm"`
	InventarioInicialTM  float64 `json:"inventario_inicial_tm"`
	InventarioStdTM      float64 `json:"inventario_std_tm"`

	AutonomiaPromedioDias float64 `json:"autonomia_promedio_dias"`
	AutonomiaMinimaDias   float64 `json:"autonomia_minima_dias"`

	DemandaTotalTM          float64 `json:"demanda_total_tm"`
	DemandaSatisfechaTM     float64 `json:"demanda_satisfecha_tm"`
	DemandaInsatisfechaTM   float64 `json:"demanda_insatisfecha_tm"`
	DemandaPromedioDiariaTM float64 `json:"demanda_promedio_diaria_tm"`
	DemandaMaximaDiariaTM   float64 `json:"demanda_maxima_diaria_tm"`
	DemandaMinimaDiariaTM   float64 `json:"demanda_minima_diaria_tm"`

	TotalRecibidoTM   float64 `json:"total_recibido_tm"`
	TotalDespachadoTM float64 `json:"total_despachado_tm"`

	DisrupcionesTotales int     `json:"disrupciones_totales"`
	DiasBloqueadosTotal float64 `json:"dias_bloqueados_total"`
	PctTiempoBloqueado  float64 `json:"pct_tiempo_bloqueado"`

	DiasSimulados int `json:"dias_simulados"`
}

func buildResultado(sim *database.Simulacion) ResultadoResponse {
	return ResultadoResponse{
		SimulacionID: sim.ID,

		NivelServicioPct:            f64(sim.NivelServicioPct),
		ProbabilidadQuiebreStockPct: f64(sim.ProbabilidadQuiebreStockPct),
		DiasConQuiebre:              iv(sim.DiasConQuiebre),

		InventarioPromedioTM: f64(sim.InventarioPromedioTM),
		InventarioMinimoTM:   f64(sim.InventarioMinimoTM),
		InventarioMaximoTM:   f64(sim.InventarioMaximoTM),
		InventarioFinalTM:    f64(sim.InventarioFinalTM),
		InventarioInicialTM:  f64(sim.InventarioInicialTM),
		InventarioStdTM:      f64(sim.InventarioStdTM),

		AutonomiaPromedioDias: f64(sim.AutonomiaPromedioDias),
		AutonomiaMinimaDias:   f64(sim.AutonomiaMinimaDias),

		DemandaTotalTM:          f64(sim.DemandaTotalTM),
		DemandaSatisfechaTM:     f64(sim.DemandaSatisfechaTM),
		DemandaInsatisfechaTM:   f64(sim.DemandaInsatisfechaTM),
		DemandaPromedioDiariaTM: f64(sim.DemandaPromedioDiariaTM),
		DemandaMaximaDiariaTM:   f64(sim.DemandaMaximaDiariaTM),
		DemandaMinimaDiariaTM:   f64(sim.DemandaMinimaDiariaTM),

		TotalRecibidoTM:   f64(sim.TotalRecibidoTM),
		TotalDespachadoTM: f64(sim.TotalDespachadoTM),

		DisrupcionesTotales: iv(sim.DisrupcionesTotales),
		DiasBloqueadosTotal: f64(sim.DiasBloqueadosTotal),
		PctTiempoBloqueado:  f64(sim.PctTiempoBloqueado),

		DiasSimulados: iv(sim.DiasSimulados),
	}
}

// ReplicaResumen is the per-replica row of the visualization endpoint.
type ReplicaResumen struct {
	ReplicaID                   uint    `json:"replica_id"`
	NivelServicioPct            float64 `json:"nivel_servicio_pct"`
	DiasConQuiebre              int     `json:"dias_con_quiebre"`
	InventarioPromedioTM        float64 `json:"inventario_promedio_tm"`
	AutonomiaPromedioDias       float64 `json:"autonomia_promedio_dias"`
	ProbabilidadQuiebreStockPct float64 `json:"probabilidad_quiebre_stock_pct"`
	DemandaInsatisfechaTM       float64 `json:"demanda_insatisfecha_tm"`
	DisrupcionesTotales         int     `json:"disrupciones_totales"`
}

// ExperimentoDetail embeds the experiment record with its replicas.
type ExperimentoDetail struct {
	database.Experimento
	Replicas []database.Replica `json:"replicas"`
}

func f64(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func iv(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
