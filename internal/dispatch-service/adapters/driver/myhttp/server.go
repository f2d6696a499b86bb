package myhttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"ride-dispatch/internal/config"
	"ride-dispatch/internal/dispatch-service/adapters/driven/bm"
	"ride-dispatch/internal/dispatch-service/adapters/driven/cache"
	"ride-dispatch/internal/dispatch-service/adapters/driven/db"
	"ride-dispatch/internal/dispatch-service/adapters/driven/index"
	"ride-dispatch/internal/dispatch-service/adapters/driven/offers"
	"ride-dispatch/internal/dispatch-service/adapters/driver/myhttp/handle"
	"ride-dispatch/internal/dispatch-service/adapters/driver/myhttp/middleware"
	"ride-dispatch/internal/dispatch-service/adapters/driver/myhttp/ws"
	"ride-dispatch/internal/dispatch-service/core/domain/model"
	"ride-dispatch/internal/dispatch-service/core/ports"
	"ride-dispatch/internal/dispatch-service/core/services"
	"ride-dispatch/internal/mylogger"
)

var ErrServerClosed = errors.New("Server closed")

const WaitTime = 10

type Server struct {
	mux    *http.ServeMux
	cfg    *config.Config
	srv    *http.Server
	mylog  mylogger.Logger
	db     *db.DB
	rdb    *cache.Redis
	mb     ports.IRidesBroker
	ctx    context.Context
	appCtx context.Context
	mu     sync.Mutex
	wg     sync.WaitGroup
}

func NewServer(ctx, appCtx context.Context, mylog mylogger.Logger, cfg *config.Config) *Server {
	s := &Server{
		ctx:    ctx,
		appCtx: appCtx,
		cfg:    cfg,
		mylog:  mylog,
		mux:    http.NewServeMux(),
	}

	return s
}

// Run initializes routes and starts listening. It returns when the server stops.
func (s *Server) Run() error {
	mylog := s.mylog.Action("server_started")

	// Initialize database connection
	db, err := db.New(s.ctx, s.cfg.DB, mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = db
	mylog.Info("Successful database connection")

	// Initialize redis connection
	rdb, err := cache.New(s.ctx, s.cfg.Redis, s.mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	s.rdb = rdb
	mylog.Info("Successful redis connection")

	// Initialize RabbitMQ connection
	mb, err := bm.New(s.appCtx, *s.cfg.RabbitMq, s.mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	s.mb = mb
	mylog.Info("Successful message broker connection")

	// Configure routes and handlers
	if err := s.Configure(); err != nil {
		return err
	}

	s.mu.Lock()
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%v", s.cfg.Srv.DispatchServicePort),
		Handler: s.mux,
	}
	s.mu.Unlock()

	mylog = mylog.WithGroup("details").With("port", s.cfg.Srv.DispatchServicePort)

	mylog.Info("server is running")
	return s.startHTTPServer()
}

// Stop provides a programmatic shutdown. Accepts a context for timeout control.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mylog.Info("Shutting down HTTP server...")

	s.wg.Wait()

	if s.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, WaitTime*time.Second)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.mylog.Error("Failed to shut down HTTP server gracefully", err)
			return fmt.Errorf("http server shutdown: %w", err)
		}
	}

	if s.mb != nil {
		if err := s.mb.Close(); err != nil {
			s.mylog.Error("Failed to close message broker", err)
		}
	}

	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			s.mylog.Error("Failed to close redis", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.mylog.Error("Failed to close database", err)
			return fmt.Errorf("db close: %w", err)
		}
		s.mylog.Info("Database closed")
	}

	s.mylog.Info("HTTP server shut down gracefully")
	return nil
}

func (s *Server) startHTTPServer() error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-s.ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Configure builds the object graph and registers the routes.
func (s *Server) Configure() error {
	// Repositories
	ridesRepo := db.NewRidesRepo(s.db)
	notificationsRepo := db.NewNotificationsRepo(s.db)
	presenceRepo := cache.NewPresenceRepo(s.rdb, s.mylog)

	driverIndex, err := s.buildDriverIndex(presenceRepo)
	if err != nil {
		return err
	}

	// websocket dispatcher doubles as the push side of the gateway
	dispatcher := ws.NewDispatcher(s.appCtx, s.mylog)

	// services
	notificationService := services.NewNotificationService(s.mylog, notificationsRepo, dispatcher)
	presenceService := services.NewPresenceService(s.mylog, presenceRepo, driverIndex)
	matchingService := services.NewMatchingService(s.mylog, driverIndex)
	ridesService := services.NewRidesService(s.mylog, ridesRepo, presenceService, notificationService, s.mb)
	dispatchService := services.NewDispatchService(s.appCtx, s.mylog, s.cfg.Match, ridesService, matchingService, s.mb)

	// rebuild the in-process index from the durable registry after a restart
	if err := presenceService.Warm(s.ctx); err != nil {
		s.mylog.Error("cannot warm driver index", err)
	}

	dispatcher.InitHandler(ws.NewEventHandler(dispatcher, presenceService, ridesService))

	// offer fan-out consumer
	offerConsumer := offers.New(s.appCtx, s.cfg.Match, s.mylog, s.mb, matchingService, notificationService)
	if err := offerConsumer.Run(); err != nil {
		return fmt.Errorf("failed to start offer consumer: %w", err)
	}

	// handlers
	ridesHandler := handle.NewRidesHandler(ridesService, dispatchService, s.mylog)
	driversHandler := handle.NewDriversHandler(s.cfg.Match, presenceService, matchingService, s.mylog)
	notificationsHandler := handle.NewNotificationsHandler(notificationService, s.mylog)
	healthHandler := handle.NewHealthHandler(s.db, s.rdb, s.mb)

	authMiddleware := middleware.NewAuthMiddleware(s.cfg.App.PublicJwtSecret)

	// Register routes
	s.mux.Handle("POST /rides", authMiddleware.WrapRole(string(model.ActorPassenger), ridesHandler.RequestRide()))
	s.mux.Handle("GET /rides", authMiddleware.Wrap(ridesHandler.ListRides()))
	s.mux.Handle("GET /rides/{ride_id}", authMiddleware.Wrap(ridesHandler.GetRide()))
	s.mux.Handle("POST /rides/{ride_id}/accept", authMiddleware.WrapRole(string(model.ActorDriver), ridesHandler.AcceptRide()))
	s.mux.Handle("POST /rides/{ride_id}/start", authMiddleware.WrapRole(string(model.ActorDriver), ridesHandler.StartRide()))
	s.mux.Handle("POST /rides/{ride_id}/complete", authMiddleware.WrapRole(string(model.ActorDriver), ridesHandler.CompleteRide()))
	s.mux.Handle("POST /rides/{ride_id}/cancel", authMiddleware.Wrap(ridesHandler.CancelRide()))

	s.mux.Handle("GET /drivers/nearby", authMiddleware.Wrap(driversHandler.Nearby()))
	s.mux.Handle("POST /drivers/status", authMiddleware.WrapRole(string(model.ActorDriver), driversHandler.SetStatus()))
	s.mux.Handle("POST /drivers/location", authMiddleware.WrapRole(string(model.ActorDriver), driversHandler.UpdateLocation()))

	s.mux.Handle("GET /notifications", authMiddleware.Wrap(notificationsHandler.List()))
	s.mux.Handle("GET /notifications/unread-count", authMiddleware.Wrap(notificationsHandler.UnreadCount()))
	s.mux.Handle("POST /notifications/{notification_id}/read", authMiddleware.Wrap(notificationsHandler.MarkRead()))
	s.mux.Handle("POST /notifications/read-all", authMiddleware.Wrap(notificationsHandler.MarkAllRead()))

	s.mux.Handle("GET /health", healthHandler.Health())

	// websocket routes
	s.mux.Handle("/ws/passengers/{passenger_id}", authMiddleware.WrapRole(string(model.ActorPassenger), dispatcher.WsHandler("passenger_id", string(model.ActorPassenger))))
	s.mux.Handle("/ws/drivers/{driver_id}", authMiddleware.WrapRole(string(model.ActorDriver), dispatcher.WsHandler("driver_id", string(model.ActorDriver))))

	return nil
}

// buildDriverIndex picks the candidate registry per MATCH_INDEX: "scan" and
// "rtree" mirror the durable registry in process, "redis" queries the geohash
// cell sets directly.
func (s *Server) buildDriverIndex(presenceRepo *cache.PresenceRepo) (ports.IDriverIndex, error) {
	switch s.cfg.Match.Index {
	case "scan":
		return index.NewScanRegistry(), nil
	case "rtree":
		return index.NewRTreeRegistry(), nil
	case "redis":
		return presenceRepo, nil
	default:
		return nil, fmt.Errorf("unknown MATCH_INDEX %q", s.cfg.Match.Index)
	}
}
