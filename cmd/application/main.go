package main

import (
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"

	"gadgetsync/config"
	"gadgetsync/internal/alerts"
	"gadgetsync/internal/app"
	"gadgetsync/internal/pipeline/business/services/importer"
	"gadgetsync/internal/pipeline/business/services/parse"
	"gadgetsync/internal/pipeline/business/services/refresh"
	syncsvc "gadgetsync/internal/pipeline/business/services/sync"
	"gadgetsync/internal/pipeline/storage"
	"gadgetsync/internal/pipeline/storage/repositories"
	"gadgetsync/internal/wc"
	"gadgetsync/pkg/dbconnect"
	"gadgetsync/pkg/dbconnect/postgres"
	"gadgetsync/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	configPath := flag.String("config", "", "path to YAML config; environment is used when empty")
	flag.Parse()

	var cfg *config.AppConfig
	if *configPath != "" {
		var err error
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config %s: %v", *configPath, err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	appLog := logger.NewLogger(nil, "[GadgetSync]")

	// Job status, staged rows and alert subscriptions live in Postgres so
	// they survive worker restarts; without a database the pipeline still
	// runs with an in-process store.
	var kv storage.KVStore
	if cfg.Postgres.Host != "" {
		var connector dbconnect.Database = postgres.NewPgConnector(&cfg.Postgres)
		db, err := connector.Connect()
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		statusRepo := repositories.NewStatusRepository(db)
		if err := statusRepo.Migrate(); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		kv = statusRepo
		appLog.Log("status store: postgres at %s", cfg.Postgres.Host)

		// Expiry is enforced lazily on read; sweep the table so stale
		// keys do not pile up between reads.
		go func() {
			for range time.Tick(time.Hour) {
				n, err := statusRepo.Cleanup()
				if err != nil {
					appLog.Log("kv cleanup failed: %v", err)
					continue
				}
				if n > 0 {
					appLog.Log("kv cleanup removed %d expired keys", n)
				}
			}
		}()
	} else {
		kv = storage.NewMemoryStore()
		appLog.Log("status store: in-memory (no POSTGRES_HOST configured)")
	}

	staging := storage.NewStagingStore(kv)
	jobStatus := storage.NewJobStatusStore(kv)
	alertStore := storage.NewAlertStore(kv)
	mirror := storage.NewMirror(cfg.Pipeline.MirrorPath, appLog.WithPrefix("[Mirror]"))
	audit := storage.NewAuditLog(cfg.Pipeline.AuditLogPath)

	catalog, err := wc.NewClient(cfg.WooCommerce, appLog.WithPrefix("[WooCommerce]"))
	if err != nil {
		log.Fatalf("WooCommerce client: %v", err)
	}

	notifier, err := alerts.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID, appLog.WithPrefix("[Telegram]"))
	if err != nil {
		log.Fatalf("Telegram notifier: %v", err)
	}
	var engineNotifier syncsvc.Notifier
	if notifier != nil {
		engineNotifier = notifier
	}

	affiliate := parse.AffiliateParams{
		ShopeeCampaignID: cfg.Affiliate.ShopeeCampaignID,
		ShopeeSourceID:   cfg.Affiliate.ShopeeSourceID,
		LazadaPID:        cfg.Affiliate.LazadaPID,
		UTMFallback:      cfg.Affiliate.UTMFallback,
	}

	imp := importer.New(mirror, staging, jobStatus, affiliate, appLog.WithPrefix("[Importer]"))
	ref := refresh.NewRefresher(catalog, mirror, jobStatus, appLog.WithPrefix("[Refresh]"))
	engine := syncsvc.NewEngine(mirror, audit, catalog, jobStatus, staging, alertStore,
		engineNotifier, appLog.WithPrefix("[SyncEngine]"), syncsvc.Options{})

	dispatcher := app.NewDispatcher(imp, ref, engine, staging, jobStatus, appLog.WithPrefix("[Dispatcher]"))
	server := app.NewServer(dispatcher, staging, jobStatus, alertStore, appLog.WithPrefix("[HTTP]"))

	if err := server.Run(cfg.Pipeline.ListenAddr); err != nil {
		log.Fatalf("HTTP server: %v", err)
	}
}
