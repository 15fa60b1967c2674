package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/luishdz04/muscleup-gym/audit"
	"github.com/luishdz04/muscleup-gym/broadcast"
	"github.com/luishdz04/muscleup-gym/config"
	"github.com/luishdz04/muscleup-gym/controller"
	"github.com/luishdz04/muscleup-gym/dao"
	"github.com/luishdz04/muscleup-gym/db"
	"github.com/luishdz04/muscleup-gym/device"
	"github.com/luishdz04/muscleup-gym/ingest"
	logger "github.com/luishdz04/muscleup-gym/logging"
	"github.com/luishdz04/muscleup-gym/pdp/engine"
	"github.com/luishdz04/muscleup-gym/reconcile"
	"github.com/luishdz04/muscleup-gym/router"
	"github.com/luishdz04/muscleup-gym/service"
	"github.com/luishdz04/muscleup-gym/util"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	// Initialize logger
	logger.InitLogger(config.GetString("log.dir"))
	defer logger.Sync()

	// Initialize Redis (optional event mirror)
	if err := db.InitRedis(); err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer db.CloseRedis()

	// Initialize EventBus
	eventBus := util.NewEventBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eventBus.Start(ctx)

	// Connect to the biometric terminal
	driver := device.NewMemoryDriver()
	if err := driver.Connect(); err != nil {
		logger.Fatal("Failed to connect to biometric terminal",
			zap.Error(err),
			zap.String("ip", config.GetString("device.ip")),
			zap.Int("port", config.GetInt("device.port")))
	}
	defer driver.Disconnect()

	// Initialize the record store client and DAOs
	storeClient := dao.NewStoreClient(
		config.GetString("supabase.url"),
		config.GetString("supabase.serviceKey"),
		config.GetDuration("supabase.timeout"),
	)
	policyStore := dao.NewPolicyStore(storeClient)
	enrollmentDAO := dao.NewEnrollmentDAO(storeClient)

	// Initialize audit service
	auditService := audit.NewService(buildAuditRepository(ctx, policyStore.AccessDAO))

	// Initialize the decision engine
	tz, err := time.LoadLocation(config.GetString("access.timezone"))
	if err != nil {
		logger.Warn("Unknown timezone, falling back to UTC",
			zap.String("timezone", config.GetString("access.timezone")))
		tz = time.UTC
	}
	evaluator := engine.NewEvaluator(policyStore, config.GetDuration("access.cacheTTL"), tz)
	if err := evaluator.ReloadConfig(ctx); err != nil {
		logger.Warn("Could not load access configuration, using defaults", zap.Error(err))
	}

	// Initialize services
	accessService := service.NewAccessService(
		evaluator,
		driver,
		auditService,
		eventBus,
		config.GetDuration("access.unlockDuration"),
	)

	// Initialize the device reconciler
	syncOpts := reconcile.Options{
		AllowedGroupID:    config.GetInt("sync.allowedGroupId"),
		DeniedGroupID:     config.GetInt("sync.deniedGroupId"),
		AllowedTimezoneID: config.GetInt("sync.allowedTimezoneId"),
		DeniedTimezoneID:  config.GetInt("sync.deniedTimezoneId"),
	}
	authWriter := reconcile.NewPincerWriter(driver, syncOpts.AllowedGroupID, syncOpts.DeniedGroupID)
	reconciler := reconcile.NewReconciler(driver, enrollmentDAO, authWriter, evaluator, eventBus, syncOpts)
	if err := reconciler.Provision(); err != nil {
		logger.Fatal("Failed to provision access groups", zap.Error(err))
	}

	// Initialize the event monitor
	dedup := ingest.NewDedupSet(config.GetInt("access.maxProcessedEvents"))
	sources := []ingest.EventSource{
		ingest.NewRealtimeSource(driver),
		ingest.NewLogDeltaSource(driver),
	}
	var monitor *ingest.Monitor
	monitor = ingest.NewMonitor(
		sources,
		dedup,
		accessService,
		config.GetDuration("access.pollingInterval"),
		config.GetDuration("access.errorBackoff"),
		func(err error) {
			go reconnect(ctx, driver, monitor)
		},
	)

	// Fan decision and reconciliation events out to observers
	hub := broadcast.NewHub()
	redisPublisher := broadcast.NewRedisPublisher(db.RedisClient, config.GetString("redis.channel"))
	forward := func(ctx context.Context, event util.Event) error {
		hub.Broadcast(event.Payload)
		redisPublisher.Publish(ctx, event.Payload)
		return nil
	}
	eventBus.Subscribe(util.EventAccessGranted, forward)
	eventBus.Subscribe(util.EventAccessDenied, forward)
	eventBus.Subscribe(util.EventReconcileCompleted, forward)

	// Start the background workers
	reconciler.Start(ctx, config.GetDuration("sync.interval"))
	defer reconciler.Stop()
	monitor.Start(ctx)
	defer monitor.Stop()

	// Initialize controllers
	accessController := controller.NewAccessController(
		accessService,
		monitor,
		reconciler,
		driver,
		hub,
		config.GetDuration("sync.interval"),
	)

	// Set up Gin
	gin.SetMode(gin.ReleaseMode)
	engineRouter := router.SetupRouter(accessController, 100, time.Minute) // 100 requests per minute

	// Set up the server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.GetString("server.port")),
		Handler: engineRouter,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", config.GetString("server.port")))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

// buildAuditRepository selects the audit backend. The record store's
// access_logs table is the default; Elasticsearch serves deployments
// that already run the rest of their audit trail there.
func buildAuditRepository(ctx context.Context, accessDAO *dao.AccessDAO) audit.Repository {
	if config.GetString("audit.backend") == "elasticsearch" && config.GetString("elasticsearch.url") != "" {
		repo, err := audit.NewElasticsearchRepository(config.GetString("elasticsearch.url"))
		if err == nil {
			logger.Info("Audit backend: Elasticsearch")
			return repo
		}
		logger.Warn("Elasticsearch unavailable, falling back to store audit backend", zap.Error(err))
	}

	deviceID, err := accessDAO.DeviceIDByIP(ctx, config.GetString("device.ip"))
	if err != nil {
		logger.Warn("Could not resolve device id for audit rows", zap.Error(err))
	}
	return audit.NewStoreRepository(accessDAO, deviceID)
}

// reconnect retries the terminal connection until it comes back, then
// restarts event monitoring.
func reconnect(ctx context.Context, driver device.Driver, monitor *ingest.Monitor) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
		if err := driver.Connect(); err != nil {
			logger.Warn("Terminal reconnect attempt failed", zap.Error(err))
			continue
		}
		logger.Info("Terminal connection restored, resuming monitoring")
		monitor.Start(ctx)
		return
	}
}
