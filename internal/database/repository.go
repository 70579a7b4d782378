package database

import (
	"time"

	"gorm.io/gorm"
)

// Repository provides data access methods
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CreateConfiguracion creates a new named parameter set
func (r *Repository) CreateConfiguracion(cfg *Configuracion) error {
	return r.db.Create(cfg).Error
}

// GetConfiguracion retrieves a configuration by ID
func (r *Repository) GetConfiguracion(id uint) (*Configuracion, error) {
	var cfg Configuracion
	err := r.db.First(&cfg, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetConfiguracionByNombre retrieves a configuration by its unique name
func (r *Repository) GetConfiguracionByNombre(nombre string) (*Configuracion, error) {
	var cfg Configuracion
	err := r.db.First(&cfg, "nombre = ?", nombre).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ListConfiguraciones lists configurations with pagination
func (r *Repository) ListConfiguraciones(skip, limit int) ([]Configuracion, error) {
	var cfgs []Configuracion
	query := r.db.Order("id ASC").Offset(skip)
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&cfgs).Error
	return cfgs, err
}

// UpdateConfiguracion updates a configuration record
func (r *Repository) UpdateConfiguracion(cfg *Configuracion) error {
	return r.db.Save(cfg).Error
}

// DeleteConfiguracion deletes a configuration and everything derived from
// it: replicas of its experiments, the experiments, and its single runs
func (r *Repository) DeleteConfiguracion(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		expIDs := tx.Model(&Experimento{}).Select("id").Where("configuracion_id = ?", id)
		if err := tx.Where("experimento_id IN (?)", expIDs).Delete(&Replica{}).Error; err != nil {
			return err
		}
		if err := tx.Where("configuracion_id = ?", id).Delete(&Experimento{}).Error; err != nil {
			return err
		}
		if err := tx.Where("configuracion_id = ?", id).Delete(&Simulacion{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&Configuracion{}).Error
	})
}

// CreateExperimento creates a new experiment record
func (r *Repository) CreateExperimento(exp *Experimento) error {
	return r.db.Create(exp).Error
}

// GetExperimento retrieves an experiment by ID
func (r *Repository) GetExperimento(id uint) (*Experimento, error) {
	var exp Experimento
	err := r.db.First(&exp, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &exp, nil
}

// ListExperimentos lists experiments, most recently started first
func (r *Repository) ListExperimentos(skip, limit int) ([]Experimento, error) {
	var exps []Experimento
	query := r.db.Order("iniciado_en DESC").Offset(skip)
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&exps).Error
	return exps, err
}

// ListExperimentosByEstado lists experiments in a given lifecycle state
func (r *Repository) ListExperimentosByEstado(estado string) ([]Experimento, error) {
	var exps []Experimento
	err := r.db.Where("estado = ?", estado).Find(&exps).Error
	return exps, err
}

// UpdateExperimento updates a full experiment record
func (r *Repository) UpdateExperimento(exp *Experimento) error {
	return r.db.Save(exp).Error
}

// UpdateExperimentoFields applies a partial update to an experiment
func (r *Repository) UpdateExperimentoFields(id uint, fields map[string]interface{}) error {
	return r.db.Model(&Experimento{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// DeleteExperimento deletes an experiment and its replicas
func (r *Repository) DeleteExperimento(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("experimento_id = ?", id).Delete(&Replica{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&Experimento{}).Error
	})
}

// CreateReplica persists one finished replica
func (r *Repository) CreateReplica(rep *Replica) error {
	return r.db.Create(rep).Error
}

// BatchCreateReplicas saves many replicas efficiently
func (r *Repository) BatchCreateReplicas(reps []Replica) error {
	if len(reps) == 0 {
		return nil
	}
	return r.db.CreateInBatches(reps, 100).Error
}

// GetReplicas retrieves all replicas of an experiment in replica order
func (r *Repository) GetReplicas(experimentoID uint) ([]Replica, error) {
	var reps []Replica
	err := r.db.Where("experimento_id = ?", experimentoID).
		Order("replica_num ASC").
		Find(&reps).Error
	return reps, err
}

// GetReplicasByEstado retrieves the replicas of an experiment in a given state
func (r *Repository) GetReplicasByEstado(experimentoID uint, estado string) ([]Replica, error) {
	var reps []Replica
	err := r.db.Where("experimento_id = ? AND estado = ?", experimentoID, estado).
		Order("replica_num ASC").
		Find(&reps).Error
	return reps, err
}

// CountReplicas counts the replicas of an experiment in any of the given states
func (r *Repository) CountReplicas(experimentoID uint, estados ...string) (int64, error) {
	var count int64
	query := r.db.Model(&Replica{}).Where("experimento_id = ?", experimentoID)
	if len(estados) > 0 {
		query = query.Where("estado IN ?", estados)
	}
	err := query.Count(&count).Error
	return count, err
}

// CreateSimulacion creates a new single-run record
func (r *Repository) CreateSimulacion(sim *Simulacion) error {
	return r.db.Create(sim).Error
}

// GetSimulacion retrieves a single run by ID
func (r *Repository) GetSimulacion(id uint) (*Simulacion, error) {
	var sim Simulacion
	err := r.db.First(&sim, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &sim, nil
}

// ListSimulaciones lists single runs, most recent first, optionally
// filtered by configuration
func (r *Repository) ListSimulaciones(configuracionID *uint, skip, limit int) ([]Simulacion, error) {
	var sims []Simulacion
	query := r.db.Order("ejecutada_en DESC").Offset(skip)
	if configuracionID != nil {
		query = query.Where("configuracion_id = ?", *configuracionID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&sims).Error
	return sims, err
}

// UpdateSimulacion updates a single-run record
func (r *Repository) UpdateSimulacion(sim *Simulacion) error {
	return r.db.Save(sim).Error
}

// DeleteSimulacion deletes a single run
func (r *Repository) DeleteSimulacion(id uint) error {
	return r.db.Where("id = ?", id).Delete(&Simulacion{}).Error
}

// MarkExperimentoFailed moves an experiment to the failed state with a
// reason, stamping the completion time
func (r *Repository) MarkExperimentoFailed(id uint, reason string) error {
	now := time.Now()
	return r.db.Model(&Experimento{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"estado":        EstadoFailed,
			"error_mensaje": reason,
			"completado_en": now,
		}).Error
}
