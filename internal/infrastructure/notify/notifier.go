// Package notify publica los cambios de estado de los registros (envío, aprobación, rechazo)
// en NATS. La publicación corre en un pool acotado después del commit y nunca propaga errores
// al caso de uso: una notificación fallida no revierte ni bloquea la aprobación.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/panjf2000/ants/v2"

	"github.com/jhoicas/farmadist-api/internal/domain/entity"
	"github.com/jhoicas/farmadist-api/pkg/logger"
)

// Publisher lo cumple *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Notifier publica StatusEvent en <prefix>.<status>.
type Notifier struct {
	pub    Publisher
	prefix string
	pool   *ants.Pool
	log    *logger.Logger
	wg     sync.WaitGroup
}

// Connect abre la conexión NATS con reconexión indefinida.
func Connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return nc, nil
}

// New construye el notifier. pub nil deja solo el registro en el log.
func New(pub Publisher, prefix string, poolSize int, log *logger.Logger) (*Notifier, error) {
	if poolSize <= 0 {
		poolSize = 8
	}
	n := &Notifier{pub: pub, prefix: prefix, log: log}
	pool, err := ants.NewPool(poolSize,
		ants.WithPanicHandler(func(p any) {
			log.Error().Interface("panic", p).Msg("notify: panic en worker")
		}),
		ants.WithExpiryDuration(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("notify pool: %w", err)
	}
	n.pool = pool
	return n, nil
}

// Subject asunto NATS para el estado.
func (n *Notifier) Subject(status string) string {
	return n.prefix + "." + status
}

// Notify encola la publicación y vuelve de inmediato.
func (n *Notifier) Notify(ctx context.Context, ev entity.StatusEvent) {
	ctx = context.WithoutCancel(ctx)
	n.wg.Add(1)
	err := n.pool.Submit(func() {
		defer n.wg.Done()
		n.publish(ctx, ev)
	})
	if err != nil {
		n.wg.Done()
		n.log.Warn().Err(err).Str("record_id", ev.RecordID).Msg("notify: no se pudo encolar la notificación")
	}
}

func (n *Notifier) publish(_ context.Context, ev entity.StatusEvent) {
	subject := n.Subject(ev.Status)
	if n.pub == nil {
		n.log.Info().Str("subject", subject).Str("record_id", ev.RecordID).Str("status", ev.Status).
			Msg("notify: NATS deshabilitado, evento solo registrado")
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		n.log.Warn().Err(err).Str("record_id", ev.RecordID).Msg("notify: no se pudo serializar el evento")
		return
	}
	if err := n.pub.Publish(subject, data); err != nil {
		n.log.Warn().Err(err).Str("subject", subject).Str("record_id", ev.RecordID).
			Msg("notify: fallo al publicar en NATS (no fatal)")
		return
	}
	n.log.Debug().Str("subject", subject).Str("record_id", ev.RecordID).Msg("notify: evento publicado")
}

// Close espera las publicaciones en curso y libera el pool.
func (n *Notifier) Close() {
	n.wg.Wait()
	n.pool.Release()
}
