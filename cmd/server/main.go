package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ezhigval/wedding-bot/internal/config"
	"github.com/ezhigval/wedding-bot/internal/database"
	"github.com/ezhigval/wedding-bot/internal/handler"
	"github.com/ezhigval/wedding-bot/internal/logger"
	"github.com/ezhigval/wedding-bot/internal/metrics"
	"github.com/ezhigval/wedding-bot/internal/middleware"
	"github.com/ezhigval/wedding-bot/internal/model"
	"github.com/ezhigval/wedding-bot/internal/queue"
	"github.com/ezhigval/wedding-bot/internal/repository"
	"github.com/ezhigval/wedding-bot/internal/router"
	"github.com/ezhigval/wedding-bot/internal/seating"
	"github.com/ezhigval/wedding-bot/internal/sheets"
)

const serviceName = "wedding-bot"

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logger.InitLogger(&logger.LogConfig{
		Level:       os.Getenv("LOG_LEVEL"),
		Environment: os.Getenv("APP_ENV"),
		ServiceName: serviceName,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	metrics.Register()

	validationCell, err := sheets.ParseCell(cfg.TableValidationCell)
	if err != nil {
		return fmt.Errorf("TABLE_VALIDATION_CELL: %w", err)
	}
	client, err := newSheetsClient(ctx, cfg)
	if err != nil {
		return err
	}
	client = sheets.Instrumented(client, metrics.ObserveSheetCall)

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("redis unavailable: rate limiting and view cache disabled")
	} else {
		defer rdb.Close()
	}

	lock, err := newLockStore(cfg, client, rdb)
	if err != nil {
		return err
	}

	guests := repository.NewGuestRepo(client, cfg.GuestSheet)
	chart := repository.NewChartRepo(client, cfg.SeatingSheet)
	tables := repository.NewTableRepo(client, cfg.GuestSheet, validationCell)

	cacheCfg := config.LoadCacheConfig()
	opts := []seating.Option{
		seating.WithLogger(log.Named("seating")),
		seating.WithOnChange(func(ctx context.Context) {
			if _, err := middleware.Purge(ctx, rdb, cacheCfg.Prefix); err != nil {
				log.Warn("purge view cache failed", zap.Error(err))
			}
		}),
	}

	var runs handler.RunLister
	if cfg.JournalEnabled() {
		db, err := openJournal(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		journal := repository.NewSyncRunRepo(db)
		opts = append(opts, seating.WithJournal(journal))
		runs = journal
	}

	var edits handler.EditPublisher
	if cfg.QueueEnabled {
		pub := queue.NewPublisher(cfg.RabbitMQURL)
		opts = append(opts, seating.WithEvents(pub))
		edits = pub
	}

	svc := seating.NewService(guests, chart, tables, lock, opts...)
	dispatcher := seating.NewDispatcher(svc, repository.ColGuestTable)

	if cfg.QueueEnabled {
		consumer := queue.NewConsumer(cfg.RabbitMQURL, func(ctx context.Context, n model.EditNotification) error {
			action, err := dispatcher.HandleEdit(seating.WithTrigger(ctx, "queue"), n)
			log.Debug("edit handled", zap.String("sheet", n.SheetName), zap.String("action", string(action)))
			return err
		}, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("edit consumer stopped", zap.Error(err))
			}
		}()
	}

	if st, err := svc.LockStatus(ctx); err != nil {
		log.Warn("could not read seating lock at startup", zap.Error(err))
	} else {
		log.Info("seating lock state", zap.Bool("locked", st.Locked))
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(logger.Middleware())
	e.Use(metrics.Middleware())

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg))
	router.RegisterAdmin(e, handler.NewSeatingHandler(svc, guests, runs), cfg.JWTSecret)
	router.RegisterHooks(e, handler.NewWebhookHandler(dispatcher, edits), cfg.WebhookSecret, config.LoadRateLimitConfig(), rdb)
	router.RegisterViews(e, handler.NewViewHandler(chart, tables), cacheCfg, rdb)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("sheets", cfg.SheetsBackend), zap.String("lock", cfg.LockBackend))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newSheetsClient(ctx context.Context, cfg config.Config) (sheets.Client, error) {
	if cfg.SheetsBackend == "memory" {
		mem := sheets.NewMemory()
		seedMemory(mem, cfg)
		return mem, nil
	}
	g, err := sheets.NewGoogleClient(ctx, cfg.SpreadsheetID, cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// seedMemory creates empty tabs with the guest list header so a local
// instance starts in a usable state.
func seedMemory(mem *sheets.Memory, cfg config.Config) {
	mem.SetRows(cfg.GuestSheet, [][]string{{"ФИО", "Возраст", "Подтверждение", "Категория", "Сторона", "ID", "Стол"}})
	mem.SetRows(cfg.SeatingSheet, [][]string{{""}})
	mem.SetRows(cfg.LockSheet, [][]string{})
}

func newLockStore(cfg config.Config, client sheets.Client, rdb *redis.Client) (repository.LockStore, error) {
	if cfg.LockBackend == "redis" {
		if rdb == nil {
			return nil, errors.New("LOCK_BACKEND=redis but redis is unavailable")
		}
		return repository.NewRedisLockStore(rdb, cfg.LockKey), nil
	}
	return repository.NewSheetLockStore(client, cfg.LockSheet), nil
}

func openJournal(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := database.Open(ctx, database.Config{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
