package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/farmadist-api/internal/application/approval"
	"github.com/jhoicas/farmadist-api/internal/application/permission"
	"github.com/jhoicas/farmadist-api/internal/application/workflow"
	"github.com/jhoicas/farmadist-api/internal/domain/repository"
	"github.com/jhoicas/farmadist-api/internal/infrastructure/cache"
	"github.com/jhoicas/farmadist-api/internal/infrastructure/memory"
	"github.com/jhoicas/farmadist-api/internal/infrastructure/metrics"
	"github.com/jhoicas/farmadist-api/internal/infrastructure/notify"
	"github.com/jhoicas/farmadist-api/internal/infrastructure/postgres"
	"github.com/jhoicas/farmadist-api/internal/infrastructure/receiving"
	"github.com/jhoicas/farmadist-api/internal/infrastructure/workflowconfig"
	httpRouter "github.com/jhoicas/farmadist-api/internal/interfaces/http"
	"github.com/jhoicas/farmadist-api/pkg/config"
	"github.com/jhoicas/farmadist-api/pkg/logger"
)

// storage repositorios según STORAGE_DRIVER.
type storage struct {
	records     repository.ApprovalRecordRepository
	tx          approval.TxRunner
	workflow    repository.WorkflowRepository
	permissions repository.StagePermissionRepository
	close       func()
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) storage {
	if cfg.App.StorageDriver == "memory" {
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		store := memory.NewRecordStore()
		return storage{
			records:     store,
			tx:          memory.NewTxRunner(store),
			workflow:    memory.NewWorkflowRepository(nil, nil),
			permissions: memory.NewStagePermissionRepository(),
			close:       func() {},
		}
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	return storage{
		records:     postgres.NewApprovalRecordRepository(pool),
		tx:          postgres.NewTxRunner(pool),
		workflow:    postgres.NewWorkflowRepository(pool),
		permissions: postgres.NewStagePermissionRepository(pool),
		close:       pool.Close,
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.App.StorageDriver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	store := openStorage(ctx, cfg, log)
	defer store.close()

	// Grafo de etapas: la semilla YAML solo se aplica sobre una configuración vacía.
	workflowUC := workflow.NewUseCase(store.workflow, log)
	stages, transitions, err := workflowconfig.Load(cfg.Workflow.SeedFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.Workflow.SeedFile).Msg("leer semilla del flujo")
	}
	seeded, err := workflowUC.SeedIfEmpty(ctx, stages, transitions)
	if err != nil {
		log.Fatal().Err(err).Msg("sembrar flujo")
	}
	if _, err := workflowUC.Graph(ctx); err != nil {
		log.Fatal().Err(err).Msg("cargar grafo del flujo")
	}
	log.Info().Bool("seeded", seeded).Msg("flujo cargado")

	// Caché de grants opcional. Sin REDIS_URL se lee directo del repositorio.
	var grantCache permission.GrantCache
	if cfg.Redis.URL != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer redisClient.Close()
		grantCache = cache.NewGrantCache(redisClient, cfg.Redis.PermissionCacheTTL)
	}
	permissionUC := permission.NewUseCase(store.permissions, grantCache, workflowUC, log)

	// Notificaciones: sin NATS_URL los eventos solo quedan en el log.
	var publisher notify.Publisher
	if cfg.NATS.URL != "" {
		nc, err := notify.Connect(cfg.NATS.URL, cfg.App.Name)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a NATS")
		}
		defer nc.Close()
		publisher = nc
	}
	notifier, err := notify.New(publisher, cfg.NATS.SubjectPrefix, cfg.NATS.PoolSize, log.Component("notify"))
	if err != nil {
		log.Fatal().Err(err).Msg("crear notificador")
	}

	recorder := metrics.New()

	var receivingSrc approval.ReceivingSource
	if cfg.Receiving.BaseURL != "" {
		receivingSrc = receiving.NewClient(cfg.Receiving.BaseURL, cfg.Receiving.Timeout, cfg.Receiving.Token)
	} else {
		log.Warn().Msg("RECEIVING_BASE_URL vacío: no se pueden crear controles de calidad")
	}

	approvalUC := approval.NewUseCase(approval.Deps{
		Records:   store.records,
		Tx:        store.tx,
		Graphs:    workflowUC,
		Grants:    permissionUC,
		Receiving: receivingSrc,
		Notifier:  notifier,
		Metrics:   recorder,
		Levels: approval.Levels{
			QualityControl:    cfg.Workflow.QCRequiredLevels,
			WarehouseApproval: cfg.Workflow.WARequiredLevels,
		},
		Log: log,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: httpRouter.ErrorHandler(log),
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Farmadist Approvals API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		ApprovalUC:   approvalUC,
		WorkflowUC:   workflowUC,
		PermissionUC: permissionUC,
		Metrics:      recorder.Handler(),
		JWTSecret:    cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	// Espera las publicaciones en curso antes de cerrar NATS.
	notifier.Close()

	log.Info().Msg("aplicación detenida")
}
