package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"iap-gateway/internal/api"
	"iap-gateway/internal/appstore"
	"iap-gateway/internal/config"
	"iap-gateway/internal/database"
	"iap-gateway/internal/googleplay"
	"iap-gateway/internal/jws"
	"iap-gateway/internal/notifications"
	"iap-gateway/internal/services"
	"iap-gateway/pkg/logging"

	"github.com/gin-gonic/gin"
	"google.golang.org/api/option"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatal("Failed to initialize config:", err)
	}
	cfg := config.AppConfig

	// Initialize logging
	if err := logging.InitLogging(cfg.LogLevel); err != nil {
		log.Fatal("Failed to initialize logging:", err)
	}
	defer logging.Sync()

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.CloseDatabase()

	ctx := context.Background()

	// App Store V2 signature verification
	var verifier jws.Verifier
	if cfg.AppleRootCAPath != "" {
		roots, err := jws.LoadRootsFromFile(cfg.AppleRootCAPath)
		if err != nil {
			log.Fatal("Failed to load Apple root certificates:", err)
		}
		resolver := jws.NewCertificateChainResolver(roots, jws.WithMarkerOIDs(cfg.AppleRequireMarkerOIDs))
		verifier = jws.NewSignatureVerifier(resolver, jws.WithTimeout(cfg.JWSVerifyTimeout()))
	} else {
		logging.Warnf("APPLE_ROOT_CA_PATH is not set, App Store V2 notifications will be rejected")
	}

	// Google Play Developer API
	var fetcher notifications.SubscriptionFetcher
	if cfg.GoogleCredentialsFile != "" {
		var opts []option.ClientOption
		if cfg.GooglePlayEndpoint != "" {
			opts = append(opts, option.WithEndpoint(cfg.GooglePlayEndpoint))
		}
		svc, err := googleplay.NewService(ctx, cfg.GoogleCredentialsFile, opts...)
		if err != nil {
			log.Fatal("Failed to create Google Play client:", err)
		}
		fetcher = googleplay.NewFetcher(svc)
	} else {
		logging.Warnf("GOOGLE_APPLICATION_CREDENTIALS is not set, Google Play subscriptions will not be fetched")
	}

	// Replay protection: shared when redis is configured
	var guard services.ReplayGuard
	if rdb := database.GetRedis(); rdb != nil {
		guard = services.NewRedisReplayGuard(rdb, cfg.ReplayTTL())
	} else {
		memory := services.NewMemoryReplayGuard(cfg.ReplayTTL())
		defer memory.Stop()
		guard = memory
	}

	// Listeners
	listeners := []services.Listener{services.NewSubscriptionStore(database.GetDB())}
	if cfg.WebhookCallbackURL != "" {
		listeners = append(listeners, services.NewWebhookNotifier(cfg.WebhookCallbackURL, cfg.WebhookSecret))
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := services.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer publisher.Close()
		listeners = append(listeners, publisher)
	}

	notificationService := services.NewNotificationService(
		notifications.NewDecoder(verifier, fetcher),
		guard,
		services.NewDispatcher(listeners...),
		cfg.AllowedBundleIDs,
	)

	receipts := appstore.NewReceiptClient(
		appstore.WithProductionURL(cfg.AppStoreProductionURL),
		appstore.WithSandboxURL(cfg.AppStoreSandboxURL),
		appstore.WithHTTPClient(&http.Client{Timeout: cfg.ReceiptTimeout()}),
	)
	verificationService := services.NewSubscriptionVerificationService(
		receipts, fetcher, database.GetDB(), cfg.AppStoreSharedSecret, cfg.ExcludeOldTransactions)

	// Set Gin mode
	gin.SetMode(cfg.Mode)

	// Create Gin engine
	r := gin.Default()

	// Setup routes
	api.SetupRoutes(r, api.NewHandler(notificationService, verificationService, database.GetDB()), cfg.APIKey)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logging.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Infof("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Errorf("Server forced to shutdown: %v", err)
	}
}
