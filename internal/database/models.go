package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/simresglp/simulator/pkg/simulation"
)

// Lifecycle states shared by experiments, replicas and single runs.
const (
	EstadoPending   = "pending"
	EstadoRunning   = "running"
	EstadoCompleted = "completed"
	EstadoFailed    = "failed"
)

// ParamsJSON stores a Spanish-keyed simulation parameter set as a JSON
// text column.
type ParamsJSON map[string]interface{}

// Value implements driver.Valuer.
func (p ParamsJSON) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (p *ParamsJSON) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("parametros: cannot scan %T", value)
	}
	if len(raw) == 0 {
		*p = nil
		return nil
	}
	return json.Unmarshal(raw, p)
}

// Float reads a numeric parameter, falling back when the key is absent or
// not a number. JSON numbers always decode as float64.
func (p ParamsJSON) Float(key string, fallback float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	}
	return fallback
}

// Int reads an integer parameter with a fallback.
func (p ParamsJSON) Int(key string, fallback int) int {
	if _, ok := p[key]; !ok {
		return fallback
	}
	return int(p.Float(key, float64(fallback)))
}

// Bool reads a boolean parameter with a fallback.
func (p ParamsJSON) Bool(key string, fallback bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return fallback
}

// StatsJSON stores a flat metric map (aggregated experiment results) as a
// JSON text column.
type StatsJSON map[string]float64

// Value implements driver.Valuer.
func (s StatsJSON) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *StatsJSON) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("resultados: cannot scan %T", value)
	}
	if len(raw) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(raw, s)
}

// TimeSeriesJSON stores the daily record series of a single run as a JSON
// text column.
type TimeSeriesJSON []simulation.DailyRecord

// Value implements driver.Valuer.
func (t TimeSeriesJSON) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (t *TimeSeriesJSON) Scan(value interface{}) error {
	if value == nil {
		*t = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("serie temporal: cannot scan %T", value)
	}
	if len(raw) == 0 {
		*t = nil
		return nil
	}
	return json.Unmarshal(raw, t)
}

// Configuracion is a named, reusable parameter set for the supply
// simulation. Parameters keep their Spanish wire keys end to end.
type Configuracion struct {
	ID            uint       `json:"id" gorm:"primaryKey"`
	Nombre        string     `json:"nombre" gorm:"size:100;uniqueIndex"`
	Descripcion   *string    `json:"descripcion"`
	Parametros    ParamsJSON `json:"parametros" gorm:"type:text"`
	CreadaEn      time.Time  `json:"creada_en" gorm:"autoCreateTime"`
	ActualizadaEn time.Time  `json:"actualizada_en" gorm:"autoUpdateTime"`
}

// TableName keeps the Spanish table naming of the analysis tooling.
func (Configuracion) TableName() string { return "configuraciones" }

// Experimento is one Monte Carlo batch: N independent replicas of a
// configuration plus their aggregated statistics.
type Experimento struct {
	ID              uint   `json:"id" gorm:"primaryKey"`
	ConfiguracionID uint   `json:"configuracion_id" gorm:"index"`
	Nombre          string `json:"nombre" gorm:"size:200"`
	NumReplicas     int    `json:"num_replicas"`
	MaxWorkers      int    `json:"max_workers"`
	Estado          string `json:"estado" gorm:"index"` // pending, running, completed, failed
	Progreso        int    `json:"progreso"`            // 0..100

	IniciadoEn       time.Time  `json:"iniciado_en"`
	CompletadoEn     *time.Time `json:"completado_en"`
	DuracionSegundos *float64   `json:"duracion_segundos"`

	ResultadosAgregados StatsJSON `json:"resultados_agregados" gorm:"type:text"`
	ErrorMensaje        *string   `json:"error_mensaje"`
}

func (Experimento) TableName() string { return "experimentos" }

// Replica is the persisted outcome of a single experiment replica. KPI
// columns stay NULL when the replica failed. Capacity and disruption
// duration are denormalized from the parameters at run time so factor
// analyses never re-parse configuration JSON.
type Replica struct {
	ID            uint   `json:"id" gorm:"primaryKey"`
	ExperimentoID uint   `json:"experiment_id" gorm:"index"`
	ReplicaNum    int    `json:"replica_numero"`
	Semilla       int64  `json:"semilla"`
	Estado        string `json:"estado"` // completed, failed

	NivelServicioPct            *float64 `json:"nivel_servicio_pct"`
	ProbabilidadQuiebreStockPct *float64 `json:"probabilidad_quiebre_stock_pct"`
	DiasConQuiebre              *int     `json:"dias_con_quiebre"`
	InventarioPromedioTM        *float64 `json:"inventario_promedio_tm"`
	InventarioMinimoTM          *float64 `json:"inventario_minimo_tm"`
	AutonomiaPromedioDias       *float64 `json:"autonomia_promedio_dias"`
	DemandaInsatisfechaTM       *float64 `json:"demanda_insatisfecha_tm"`
	DisrupcionesTotales         *int     `json:"disrupciones_totales"`

	CapacidadTM     float64 `json:"capacidad_tm"`
	DuracionMaxDias float64 `json:"duracion_max_dias"`

	DuracionSegundos float64    `json:"duracion_segundos"`
	EjecutadaEn      *time.Time `json:"ejecutada_en"`
	ErrorMensaje     *string    `json:"error_mensaje"`
}

func (Replica) TableName() string { return "replicas" }

// Simulacion is one standalone run with its full KPI block and daily
// series. ConfiguracionID is NULL for ad-hoc parameter sets.
type Simulacion struct {
	ID              uint   `json:"id" gorm:"primaryKey"`
	ConfiguracionID *uint  `json:"configuracion_id" gorm:"index"`
	Estado          string `json:"estado"`
	SemillaUsada    int64  `json:"semilla_usada"`

	NivelServicioPct            *float64 `json:"nivel_servicio_pct"`
	ProbabilidadQuiebreStockPct *float64 `json:"probabilidad_quiebre_stock_pct"`
	DiasConQuiebre              *int     `json:"dias_con_quiebre"`
	InventarioPromedioTM        *float64 `json:"inventario_promedio_tm"`
	InventarioMinimoTM          *float64 `json:"inventario_minimo_tm"`
	InventarioMaximoTM          *float64 `json:"inventario_maximo_tm"`
	InventarioStdTM             *float64 `json:"inventario_std_tm"`
	InventarioFinalTM           *float64 `json:"inventario_final_tm"`
	InventarioInicialTM         *float64 `json:"inventario_inicial_tm"`
	AutonomiaPromedioDias       *float64 `json:"autonomia_promedio_dias"`
	AutonomiaMinimaDias         *float64 `json:"autonomia_minima_dias"`
	DemandaTotalTM              *float64 `json:"demanda_total_tm"`
	DemandaSatisfechaTM         *float64 `json:"demanda_satisfecha_tm"`
	DemandaInsatisfechaTM       *float64 `json:"demanda_insatisfecha_tm"`
	DemandaPromedioDiariaTM     *float64 `json:"demanda_promedio_diaria_tm"`
	DemandaMaximaDiariaTM       *float64 `json:"demanda_maxima_diaria_tm"`
	DemandaMinimaDiariaTM       *float64 `json:"demanda_minima_diaria_tm"`
	TotalRecibidoTM             *float64 `json:"total_recibido_tm"`
	TotalDespachadoTM           *float64 `json:"total_despachado_tm"`
	DisrupcionesTotales         *int     `json:"disrupciones_totales"`
	DiasBloqueadosTotal         *float64 `json:"dias_bloqueados_total"`
	PctTiempoBloqueado          *float64 `json:"pct_tiempo_bloqueado"`
	DiasSimulados               *int     `json:"dias_simulados"`

	SerieTemporal TimeSeriesJSON `json:"-" gorm:"type:text"`

	EjecutadaEn      time.Time `json:"ejecutada_en"`
	DuracionSegundos *float64  `json:"duracion_segundos"`
	ErrorMensaje     *string   `json:"error_mensaje"`
}

func (Simulacion) TableName() string { return "simulaciones" }

// SetKpis copies a KPI block into the nullable result columns.
func (s *Simulacion) SetKpis(k simulation.Kpis) {
	s.NivelServicioPct = f64ptr(k.ServiceLevelPct)
	s.ProbabilidadQuiebreStockPct = f64ptr(k.StockoutProbabilityPct)
	s.DiasConQuiebre = intptr(k.StockoutDays)
	s.InventarioPromedioTM = f64ptr(k.AvgInventoryTM)
	s.InventarioMinimoTM = f64ptr(k.MinInventoryTM)
	s.InventarioMaximoTM = f64ptr(k.MaxInventoryTM)
	s.InventarioStdTM = f64ptr(k.StdInventoryTM)
	s.InventarioFinalTM = f64ptr(k.FinalInventoryTM)
	s.InventarioInicialTM = f64ptr(k.InitialInventoryTM)
	s.AutonomiaPromedioDias = f64ptr(k.AvgAutonomyDays)
	s.AutonomiaMinimaDias = f64ptr(k.MinAutonomyDays)
	s.DemandaTotalTM = f64ptr(k.TotalDemandTM)
	s.DemandaSatisfechaTM = f64ptr(k.SatisfiedDemandTM)
	s.DemandaInsatisfechaTM = f64ptr(k.UnsatisfiedDemandTM)
	s.DemandaPromedioDiariaTM = f64ptr(k.AvgDailyDemandTM)
	s.DemandaMaximaDiariaTM = f64ptr(k.MaxDailyDemandTM)
	s.DemandaMinimaDiariaTM = f64ptr(k.MinDailyDemandTM)
	s.TotalRecibidoTM = f64ptr(k.TotalReceivedTM)
	s.TotalDespachadoTM = f64ptr(k.TotalDispatchedTM)
	s.DisrupcionesTotales = intptr(k.TotalDisruptions)
	s.DiasBloqueadosTotal = f64ptr(k.TotalBlockedDays)
	s.PctTiempoBloqueado = f64ptr(k.BlockedTimePct)
	s.DiasSimulados = intptr(k.SimulatedDays)
}

// SetKpis fills the nullable KPI columns of a completed replica.
func (r *Replica) SetKpis(k simulation.Kpis) {
	r.NivelServicioPct = f64ptr(k.ServiceLevelPct)
	r.ProbabilidadQuiebreStockPct = f64ptr(k.StockoutProbabilityPct)
	r.DiasConQuiebre = intptr(k.StockoutDays)
	r.InventarioPromedioTM = f64ptr(k.AvgInventoryTM)
	r.InventarioMinimoTM = f64ptr(k.MinInventoryTM)
	r.AutonomiaPromedioDias = f64ptr(k.AvgAutonomyDays)
	r.DemandaInsatisfechaTM = f64ptr(k.UnsatisfiedDemandTM)
	r.DisrupcionesTotales = intptr(k.TotalDisruptions)
}

func f64ptr(v float64) *float64 { return &v }
func intptr(v int) *int         { return &v }
