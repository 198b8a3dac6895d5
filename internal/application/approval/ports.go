package approval

import (
	"context"
	"time"

	"github.com/jhoicas/farmadist-api/internal/domain/entity"
	"github.com/jhoicas/farmadist-api/internal/domain/repository"
	"github.com/jhoicas/farmadist-api/internal/domain/workflow"
)

// TxRunner ejecuta fn dentro de una transacción, con el repositorio atado a esa tx.
// Si fn devuelve error no se persiste nada.
type TxRunner interface {
	Run(ctx context.Context, fn func(records repository.ApprovalRecordRepository) error) error
}

// ReceivingSource lee las recepciones de factura de las que nace un QC.
type ReceivingSource interface {
	GetReceiving(ctx context.Context, id string) (*entity.UpstreamDocument, error)
}

// Notifier publica cambios de estado. No debe bloquear ni fallar la operación.
type Notifier interface {
	Notify(ctx context.Context, ev entity.StatusEvent)
}

// GraphProvider grafo vigente del flujo.
type GraphProvider interface {
	Graph(ctx context.Context) (*workflow.Graph, error)
}

// GrantProvider grants activos del usuario.
type GrantProvider interface {
	GrantsFor(ctx context.Context, userID string) ([]entity.StagePermission, error)
}

// Metrics contadores de acciones y estados.
type Metrics interface {
	ObserveAction(action string, err error, d time.Duration)
	ObserveStatus(recordType, status string)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, entity.StatusEvent) {}

type nopMetrics struct{}

func (nopMetrics) ObserveAction(string, error, time.Duration) {}
func (nopMetrics) ObserveStatus(string, string)               {}
