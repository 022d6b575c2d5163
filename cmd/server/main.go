package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tailor-pos/internal/auth"
	"tailor-pos/internal/cache"
	"tailor-pos/internal/config"
	"tailor-pos/internal/database"
	"tailor-pos/internal/db"
	"tailor-pos/internal/export"
	h "tailor-pos/internal/http"
	"tailor-pos/internal/handlers"
	"tailor-pos/internal/health"
	"tailor-pos/internal/middleware"
	"tailor-pos/internal/notify"
	"tailor-pos/internal/repositories"
	"tailor-pos/internal/services"
	"tailor-pos/internal/store"
	"tailor-pos/internal/store/memory"
	"tailor-pos/internal/timeutil"
	"tailor-pos/migrations"
)

func main() {
	port := flag.Int("port", 0, "HTTP port, overrides server.port")
	inMemory := flag.Bool("memory", false, "run against an in-process store instead of PostgreSQL")
	migrateOnly := flag.Bool("migrate-only", false, "apply database migrations and exit")
	flag.Parse()

	cfg := config.Load()
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if err := timeutil.SetLocation(cfg.Business.Timezone); err != nil {
		log.Printf("[Config] Unknown timezone %q, keeping %s", cfg.Business.Timezone, timeutil.Location)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store
	var st store.Store
	if *inMemory {
		log.Println("[Store] Using in-memory store, data is lost on exit")
		st = memory.New()
	} else {
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			log.Fatalf("[DB] %v", err)
		}
		defer pool.Close()

		if err := database.NewMigrator(pool, migrations.Files).RunMigrations(ctx); err != nil {
			log.Fatalf("[Migrations] %v", err)
		}
		if *migrateOnly {
			return
		}
		st = repositories.NewStore(pool)
	}

	// Redis is optional; every cache helper is a no-op without it
	if err := cache.Init(cache.Options{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}); err != nil {
		log.Printf("[Redis] Not available, caching disabled: %v", err)
	} else {
		log.Printf("[Redis] Connected to %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		defer cache.Close()
	}

	hub := notify.NewHub(cfg.Server.CorsAllowedOrigins)
	go hub.Run(ctx)

	// Services
	jwtManager := auth.NewJWTManager(cfg)
	userService := services.NewUserService(st, jwtManager)
	if err := userService.EnsureAdmin(ctx, os.Getenv("SEED_ADMIN_USERNAME"), os.Getenv("SEED_ADMIN_PASSWORD")); err != nil {
		log.Printf("[Users] Seeding admin failed: %v", err)
	}

	inventoryService := services.NewInventoryService(st, hub)
	inventoryService.PageSize = cfg.Business.PageSize

	customerService := services.NewCustomerService(st, hub)
	customerService.PageSize = cfg.Business.PageSize
	customerService.ImportBatchSize = cfg.Business.ImportBatchSize

	checkoutService := services.NewCheckoutService(st, hub)
	checkoutService.MaxAttempts = cfg.Business.CheckoutMaxAttempts
	checkoutService.Timeout = cfg.Business.CheckoutTimeout
	checkoutService.Backoff = cfg.Business.CheckoutBackoff
	checkoutService.WalkInName = cfg.Business.WalkInName
	checkoutService.WalkInPhone = cfg.Business.WalkInPhone

	salesService := services.NewSalesService(st, hub)
	salesService.PageSize = cfg.Business.PageSize

	catalogService := services.NewCatalogService(st, hub)
	catalogService.PageSize = cfg.Business.PageSize

	var archive services.Archiver
	if cfg.Export.Bucket != "" {
		archiver, err := export.NewS3Archiver(ctx, export.Options{
			Endpoint:  cfg.Export.Endpoint,
			Region:    cfg.Export.Region,
			Bucket:    cfg.Export.Bucket,
			AccessKey: cfg.Export.AccessKey,
			SecretKey: cfg.Export.SecretKey,
			Prefix:    cfg.Export.Prefix,
		})
		if err != nil {
			log.Printf("[Export] Report archiving disabled: %v", err)
		} else {
			archive = archiver
			log.Printf("[Export] Archiving reports to bucket %s", cfg.Export.Bucket)
		}
	}
	reportService := services.NewReportService(st, archive)
	reportService.BusinessName = cfg.Business.Name

	collector := services.NewMetricsCollector(inventoryService)
	collector.Start()
	defer collector.Stop()

	// Branch list is read by every terminal on start
	cache.RegisterPreWarm(cache.CatalogPrefix, services.BranchesCacheName, func(ctx context.Context) ([]byte, error) {
		branches, err := st.ListBranches(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(branches)
	})

	// HTTP
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, st)
	router := h.NewRouter(h.Handlers{
		Auth:      handlers.NewAuthHandler(userService),
		Users:     handlers.NewUserHandler(userService),
		Inventory: handlers.NewInventoryHandler(inventoryService),
		Customers: handlers.NewCustomerHandler(customerService),
		Checkout:  handlers.NewCheckoutHandler(checkoutService),
		Sales:     handlers.NewSalesHandler(salesService),
		Reports:   handlers.NewReportHandler(reportService),
		Catalog:   handlers.NewCatalogHandler(catalogService),
		Printer:   handlers.NewPrinterHandler(services.NewPrinterService(st, cfg.Printer.URL)),
		Health:    handlers.NewHealthHandler(health.NewHealthChecker(st, hub)),
		WebSocket: hub.ServeWS,
	}, authMiddleware)

	apiLogger := middleware.NewAPILogger()
	corsMiddleware := middleware.NewCORS(cfg)
	handler := middleware.PanicRecovery(apiLogger.Handler(corsMiddleware(router)))

	go cache.PreWarmCache()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
	apiLogger.Close()
}
