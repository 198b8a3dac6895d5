package repository

import (
	"context"

	"github.com/jhoicas/farmadist-api/internal/domain/entity"
)

// RecordFilter criterios de listado de registros. Los campos vacíos no filtran.
type RecordFilter struct {
	Type       string
	Status     string
	AssignedTo string
	Limit      int
	Offset     int
}

// ApprovalRecordRepository define el puerto de persistencia para ApprovalRecord (DIP).
// Los ítems, la cadena gerencial y el historial de etapas se guardan junto al registro.
type ApprovalRecordRepository interface {
	// Create inserta el registro. ErrDuplicate si ya existe uno del mismo tipo para el upstream.
	Create(ctx context.Context, rec *entity.ApprovalRecord) error
	// GetByID devuelve ErrRecordNotFound si no existe.
	GetByID(ctx context.Context, id string) (*entity.ApprovalRecord, error)
	// GetForUpdate lee el registro bloqueando la fila hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.ApprovalRecord, error)
	// Save persiste el registro si la versión guardada coincide con rec.Version y la incrementa.
	// Si otro escritor ganó devuelve ErrConcurrentModification.
	Save(ctx context.Context, rec *entity.ApprovalRecord) error
	ExistsByUpstream(ctx context.Context, recordType, upstreamID string) (bool, error)
	List(ctx context.Context, f RecordFilter) ([]*entity.ApprovalRecord, error)
}
