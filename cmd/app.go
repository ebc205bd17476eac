package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/wallet-payments/internal"
	gatewaytypes "github.com/frahmantamala/wallet-payments/internal/core/datamodel/paymentgateway"
	pendingmodel "github.com/frahmantamala/wallet-payments/internal/core/datamodel/pendingorder"
	"github.com/frahmantamala/wallet-payments/internal/core/events"
	"github.com/frahmantamala/wallet-payments/internal/deposit"
	"github.com/frahmantamala/wallet-payments/internal/paymentgateway"
	"github.com/frahmantamala/wallet-payments/internal/pendingorder"
	pendingpostgres "github.com/frahmantamala/wallet-payments/internal/pendingorder/postgres"
	pendingredis "github.com/frahmantamala/wallet-payments/internal/pendingorder/redis"
	"github.com/frahmantamala/wallet-payments/internal/remote"
	"github.com/frahmantamala/wallet-payments/internal/transport/rest"
	"github.com/frahmantamala/wallet-payments/internal/wallet"
	"github.com/frahmantamala/wallet-payments/pkg/logger"
)

// App holds the wired services shared by the server, the worker and the one-shot commands.
type App struct {
	Config     *internal.Config
	Logger     *slog.Logger
	DB         *sqlx.DB
	Redis      *goredis.Client
	NATS       *nats.Conn
	Bus        *events.EventBus
	Gateways   []*paymentgateway.Client
	Deposits   *deposit.Service
	Poller     *deposit.Poller
	Dispatcher *wallet.Dispatcher
	Checks     map[string]rest.Checker

	closers []func() error
}

func newApp(cfg *internal.Config) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger.LoggerWrapper(),
		Checks: make(map[string]rest.Checker),
	}

	kv, err := app.pendingKV()
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Bus = events.NewEventBus(app.Logger)
	if cfg.Events.NATSURL != "" {
		conn, err := events.ConnectNATS(cfg.Events.NATSURL, "wallet-payments")
		if err != nil {
			app.Close()
			return nil, err
		}
		app.NATS = conn
		app.closers = append(app.closers, func() error { conn.Close(); return nil })
		app.Checks["nats"] = func(context.Context) error {
			if !conn.IsConnected() {
				return fmt.Errorf("nats status %s", conn.Status())
			}
			return nil
		}
		events.NewNATSForwarder(conn, cfg.Events.SubjectPrefix, app.Logger).Attach(app.Bus, events.AllEventTypes...)
	}

	httpClient := &http.Client{}
	paymentCaller := remote.NewClient(cfg.Payment.BackendURL, cfg.Payment.RequestTimeout, httpClient, app.Logger)
	guard := paymentgateway.NewSingleFlight()

	app.Gateways = []*paymentgateway.Client{
		paymentgateway.NewClient(paymentgateway.Config{
			Gateway:    gatewaytypes.GatewayA,
			CreatePath: cfg.Payment.GatewayA.CreatePath,
			StatusPath: cfg.Payment.GatewayA.StatusPath,
		}, paymentCaller, guard, app.Logger),
		paymentgateway.NewClient(paymentgateway.Config{
			Gateway:    gatewaytypes.GatewayB,
			CreatePath: cfg.Payment.GatewayB.CreatePath,
			StatusPath: cfg.Payment.GatewayB.StatusPath,
		}, paymentCaller, guard, app.Logger),
	}

	gateways := make([]deposit.GatewayAPI, 0, len(app.Gateways))
	for _, gw := range app.Gateways {
		gateways = append(gateways, gw)
	}

	store := pendingorder.NewStore(kv, app.Logger)
	app.Deposits = deposit.NewService(gateways, store, app.Bus, app.Logger)
	app.Poller = deposit.NewPoller(app.Deposits, cfg.Reconcile.Interval, cfg.Reconcile.MaxAttempts, app.Logger)

	ledgerCaller := remote.NewClient(cfg.Payment.BackendURL, cfg.Ledger.RequestTimeout, httpClient, app.Logger)
	app.Dispatcher = wallet.NewDispatcher(cfg.Ledger.Path, ledgerCaller, app.Bus, app.Logger)

	return app, nil
}

func (a *App) pendingKV() (pendingorder.KV, error) {
	cfg := a.Config
	gormConfig := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	switch cfg.PendingStore.Driver {
	case "memory":
		a.Logger.Warn("pending orders are kept in memory and will not survive a restart")
		return pendingorder.NewMemoryKV(), nil

	case "postgres":
		db, err := initDB(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		a.DB = db
		a.closers = append(a.closers, db.Close)
		a.Checks["postgres"] = db.PingContext

		gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to open gorm: %w", err)
		}
		return pendingpostgres.NewKV(gdb), nil

	case "sqlite":
		gdb, err := gorm.Open(sqlite.Open(cfg.Database.Source), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		if err := gdb.AutoMigrate(&pendingmodel.Entry{}); err != nil {
			return nil, fmt.Errorf("failed to migrate sqlite: %w", err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sqlDB.Close)
		a.Checks["sqlite"] = sqlDB.PingContext
		return pendingpostgres.NewKV(gdb), nil

	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		a.Redis = client
		a.closers = append(a.closers, client.Close)
		a.Checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		if cfg.PendingStore.TTL > 0 {
			a.Logger.Warn("unsettled pending orders will expire", "ttl", cfg.PendingStore.TTL)
		}
		return pendingredis.NewKV(client, cfg.PendingStore.TTL), nil
	}

	return nil, fmt.Errorf("unknown pending store driver %q", cfg.PendingStore.Driver)
}

// Close waits for in-flight event handlers, then releases connections in reverse order.
func (a *App) Close() {
	if a.Bus != nil {
		a.Bus.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Error("close failed", "error", err)
		}
	}
	a.closers = nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// withCaller puts the CLI caller's identity and token in ctx, like the auth middleware does for HTTP.
func withCaller(ctx context.Context, userID, token string) context.Context {
	if userID != "" {
		ctx = internal.ContextWithUserID(ctx, userID)
	}
	if token != "" {
		ctx = internal.ContextWithBearerToken(ctx, token)
	}
	return ctx
}
