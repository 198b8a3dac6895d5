package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Workflow  WorkflowConfig
	Receiving ReceivingConfig
	JWT       JWTConfig
	HTTP      HTTPConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env           string // development, staging, production
	Name          string
	LogLevel      string
	StorageDriver string // postgres | memory
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int32
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string con URL encoding para caracteres especiales en la contraseña.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// RedisConfig caché de grants por etapa. URL vacía = sin caché (lectura directa al repositorio).
type RedisConfig struct {
	URL                string
	PermissionCacheTTL time.Duration
}

// NATSConfig notificaciones de cambio de estado. URL vacía = solo se registran en el log.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	PoolSize      int
}

// WorkflowConfig semilla del grafo de etapas y niveles gerenciales por tipo de documento.
type WorkflowConfig struct {
	SeedFile         string
	QCRequiredLevels int
	WARequiredLevels int
}

// ReceivingConfig servicio REST de recepción de facturas.
type ReceivingConfig struct {
	BaseURL string
	Timeout time.Duration
	Token   string // Bearer de servicio, opcional
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, REDIS_URL, NATS_URL, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:           getString(v, "APP_ENV", "development"),
			Name:          getString(v, "APP_NAME", "farmadist-api"),
			LogLevel:      getString(v, "LOG_LEVEL", "info"),
			StorageDriver: getString(v, "STORAGE_DRIVER", "postgres"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "farmadist"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			MaxConns:    int32(getInt(v, "DB_MAX_CONNS", 25)),
		},
		Redis: RedisConfig{
			URL:                getString(v, "REDIS_URL", ""),
			PermissionCacheTTL: time.Duration(getInt(v, "PERMISSION_CACHE_TTL_SECONDS", 60)) * time.Second,
		},
		NATS: NATSConfig{
			URL:           getString(v, "NATS_URL", ""),
			SubjectPrefix: getString(v, "NATS_SUBJECT_PREFIX", "farmadist.approvals"),
			PoolSize:      getInt(v, "NOTIFY_POOL_SIZE", 8),
		},
		Workflow: WorkflowConfig{
			SeedFile:         getString(v, "WORKFLOW_SEED_FILE", "configs/workflow.yaml"),
			QCRequiredLevels: getInt(v, "QC_REQUIRED_LEVELS", 1),
			WARequiredLevels: getInt(v, "WA_REQUIRED_LEVELS", 1),
		},
		Receiving: ReceivingConfig{
			BaseURL: getString(v, "RECEIVING_BASE_URL", ""),
			Timeout: time.Duration(getInt(v, "RECEIVING_TIMEOUT_SECONDS", 10)) * time.Second,
			Token:   getString(v, "RECEIVING_TOKEN", ""),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "farmadist-api"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
	}

	if cfg.App.StorageDriver != "postgres" && cfg.App.StorageDriver != "memory" {
		return nil, fmt.Errorf("STORAGE_DRIVER no soportado: %q", cfg.App.StorageDriver)
	}
	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}
