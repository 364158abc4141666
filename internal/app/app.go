package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"evreserve/internal/cache"
	"evreserve/internal/chargemodel"
	"evreserve/internal/config"
	"evreserve/internal/events"
	httpserver "evreserve/internal/http"
	"evreserve/internal/http/handlers"
	"evreserve/internal/http/middleware"
	"evreserve/internal/metrics"
	"evreserve/internal/qr"
	"evreserve/internal/repository"
	"evreserve/internal/service"
	"evreserve/libs/db"
	libredis "evreserve/libs/redis"
	"evreserve/migrations"
)

// App wires the reservation service dependency graph.
type App struct {
	server        *httpserver.Server
	db            *sql.DB
	redisClient   *redis.Client
	bus           *events.Bus
	bookings      *service.BookingsService
	sweepInterval time.Duration
	logger        *zap.Logger
}

// New constructs the application graph.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := db.NewPostgresDB(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, sqlDB, migrations.FS); err != nil {
		sqlDB.Close()
		return nil, err
	}

	redisClient, err := libredis.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password)
	if err != nil {
		logger.Warn("redis unavailable, active session cache disabled", zap.Error(err))
		redisClient = nil
	}

	driverRepo := repository.NewDriverRepository(sqlDB)
	slotRepo := repository.NewSlotRepository(sqlDB)
	bookingRepo := repository.NewBookingRepository(sqlDB)
	sessionRepo := repository.NewSessionRepository(sqlDB)
	invoiceRepo := repository.NewInvoiceRepository(sqlDB)
	violationRepo := repository.NewViolationRepository(sqlDB)
	tariffRepo := repository.NewTariffRepository(sqlDB)

	bus := events.NewBus(64)
	events.NewNotifier(logger).Register(bus)
	metrics.Register()

	var activeStore *cache.ActiveSessionStore
	if redisClient != nil {
		activeStore = cache.NewActiveSessionStore(redisClient, cfg.ActiveSessionTTL())
	}

	signer := qr.NewSigner(cfg.QR.Secret, cfg.QR.Grace)
	model := chargemodel.NewLinear(cfg.Charging.RateDCPerHour, cfg.Charging.RateACPerHour, cfg.Charging.KWhPerPercent)

	tariffs := service.NewTariffService(tariffRepo, cfg.Billing.DefaultPricePerKWh, cfg.Billing.Currency)
	violations := service.NewViolationsService(violationRepo, driverRepo, bus, logger)
	billing := service.NewBillingService(invoiceRepo, tariffs, bus, logger)
	slots := service.NewSlotsService(slotRepo, logger)
	bookings := service.NewBookingsService(
		bookingRepo, driverRepo, signer, violations, bus, logger,
		cfg.Booking.NoShowGrace, cfg.Booking.NoShowPenalty,
	)
	sessions := service.NewSessionsService(
		sessionRepo, bookingRepo, tariffs, billing, model, activeStore, bus, logger,
		cfg.Charging.DefaultInitialSoc,
	)

	slotsHandler := handlers.NewSlotsHandler(slots, logger)
	bookingsHandler := handlers.NewBookingsHandler(bookings, logger)
	sessionsHandler := handlers.NewSessionsHandler(sessions, logger)
	liveHandler := handlers.NewSessionLiveHandler(sessions, 2*time.Second, logger)
	invoicesHandler := handlers.NewInvoicesHandler(billing, logger)
	violationsHandler := handlers.NewViolationsHandler(violations, logger)

	routes := httpserver.Routes{
		SlotsGenerate:      slotsHandler.HandleGenerate,
		SlotsList:          slotsHandler.HandleList,
		BookingCreate:      bookingsHandler.HandleCreate,
		BookingGet:         bookingsHandler.HandleGet,
		BookingConfirm:     bookingsHandler.HandleConfirm,
		BookingCancel:      bookingsHandler.HandleCancel,
		BookingsByDriver:   bookingsHandler.HandleListByDriver,
		SessionStart:       sessionsHandler.HandleStart,
		SessionGet:         sessionsHandler.HandleGet,
		SessionLive:        liveHandler.Handle,
		SessionStop:        sessionsHandler.HandleStop,
		InvoiceGet:         invoicesHandler.HandleGet,
		InvoicePay:         invoicesHandler.HandlePay,
		InvoicesUnpaid:     invoicesHandler.HandleListUnpaid,
		ViolationCreate:    violationsHandler.HandleCreate,
		ViolationsByDriver: violationsHandler.HandleListByDriver,
		TripletPaid:        violationsHandler.HandleTripletPaid,
		TripletCancel:      violationsHandler.HandleTripletCancel,
		Health:             handlers.NewHealthHandler(sqlDB),
		Metrics:            metrics.Handler(),
	}

	handler := httpserver.NewRouter(routes)
	handler = middleware.RateLimit(cfg.HTTP.RateLimit, cfg.HTTP.RateBurst)(handler)
	handler = middleware.RequestLogging(logger)(handler)

	server := httpserver.NewServer(cfg.HTTPAddress(), handler, logger)

	return &App{
		server:        server,
		db:            sqlDB,
		redisClient:   redisClient,
		bus:           bus,
		bookings:      bookings,
		sweepInterval: cfg.Booking.SweepInterval,
		logger:        logger,
	}, nil
}

// Run starts the HTTP server and the no-show sweeper, and blocks until ctx
// is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go a.runNoShowSweeper(sweepCtx)

	return a.server.Run(ctx)
}

func (a *App) runNoShowSweeper(ctx context.Context) {
	interval := a.sweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.bookings.SweepNoShows(ctx, time.Now().UTC()); err != nil {
				a.logger.Error("no-show sweep failed", zap.Error(err))
			}
		}
	}
}

// Close releases resources.
func (a *App) Close() {
	if a.bus != nil {
		a.bus.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
