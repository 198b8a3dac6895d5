// Package cache guarda en Redis los grants por etapa de cada usuario.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/farmadist-api/internal/domain/entity"
)

// LoadFunc lee los grants activos del usuario desde la fuente de verdad.
type LoadFunc = func(ctx context.Context, userID string) ([]entity.StagePermission, error)

// GrantCache caché de grants por usuario con TTL acotado. Las lecturas concurrentes que
// fallan en caché para el mismo usuario comparten una sola carga (singleflight).
// Guarda los grants tal cual: el vencimiento lo evalúa el llamador con la hora de la consulta.
type GrantCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	group  singleflight.Group
}

// NewRedisClient abre el cliente y verifica la conexión.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// NewGrantCache construye la caché. ttl <= 0 usa 60s.
func NewGrantCache(client *redis.Client, ttl time.Duration) *GrantCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &GrantCache{client: client, ttl: ttl, prefix: "perm:grants:"}
}

func (c *GrantCache) key(userID string) string {
	return c.prefix + userID
}

type cachedGrant struct {
	ID          string              `json:"id"`
	UserID      string              `json:"user_id"`
	StageID     string              `json:"stage_id"`
	Permissions []entity.Permission `json:"permissions"`
	ExpiresAt   *time.Time          `json:"expires_at,omitempty"`
	AssignedBy  string              `json:"assigned_by,omitempty"`
	IsActive    bool                `json:"is_active"`
}

// Get devuelve los grants cacheados; ok = false si no hay entrada.
func (c *GrantCache) Get(ctx context.Context, userID string) ([]entity.StagePermission, bool, error) {
	raw, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached grants: %w", err)
	}
	var cached []cachedGrant
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, false, fmt.Errorf("decode cached grants: %w", err)
	}
	out := make([]entity.StagePermission, 0, len(cached))
	for _, g := range cached {
		out = append(out, entity.StagePermission{
			ID: g.ID, UserID: g.UserID, StageID: g.StageID, Permissions: g.Permissions,
			ExpiresAt: g.ExpiresAt, AssignedBy: g.AssignedBy, IsActive: g.IsActive,
		})
	}
	return out, true, nil
}

// Set guarda los grants del usuario con el TTL configurado.
func (c *GrantCache) Set(ctx context.Context, userID string, grants []entity.StagePermission) error {
	cached := make([]cachedGrant, 0, len(grants))
	for _, g := range grants {
		cached = append(cached, cachedGrant{
			ID: g.ID, UserID: g.UserID, StageID: g.StageID, Permissions: g.Permissions,
			ExpiresAt: g.ExpiresAt, AssignedBy: g.AssignedBy, IsActive: g.IsActive,
		})
	}
	raw, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("encode grants: %w", err)
	}
	if err := c.client.Set(ctx, c.key(userID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached grants: %w", err)
	}
	return nil
}

// Invalidate borra la entrada del usuario; se llama tras asignar o revocar.
func (c *GrantCache) Invalidate(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, c.key(userID)).Err(); err != nil {
		return fmt.Errorf("invalidate grants: %w", err)
	}
	return nil
}

// GetOrLoad lee de caché o carga con load y guarda el resultado. Un fallo de Redis no
// impide responder: se carga directo de la fuente.
func (c *GrantCache) GetOrLoad(ctx context.Context, userID string, load LoadFunc) ([]entity.StagePermission, error) {
	if grants, ok, err := c.Get(ctx, userID); err == nil && ok {
		return grants, nil
	}
	v, err, _ := c.group.Do(userID, func() (any, error) {
		grants, err := load(ctx, userID)
		if err != nil {
			return nil, err
		}
		_ = c.Set(ctx, userID, grants)
		return grants, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]entity.StagePermission), nil
}
