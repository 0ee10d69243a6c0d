package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/skywatch-data/lightcurve.report/internal/api"
	"github.com/skywatch-data/lightcurve.report/internal/archive"
	"github.com/skywatch-data/lightcurve.report/internal/config"
	"github.com/skywatch-data/lightcurve.report/internal/db"
	"github.com/skywatch-data/lightcurve.report/internal/monitoring"
	"github.com/skywatch-data/lightcurve.report/internal/scanner"
	"github.com/skywatch-data/lightcurve.report/internal/version"
)

var (
	listen       = flag.String("listen", "", "HTTP listen address (overrides config)")
	dbPath       = flag.String("db", "", "path to the cache index database (overrides config)")
	cacheDir     = flag.String("cache-dir", "", "directory holding downloaded pixel files (overrides config)")
	archiveURL   = flag.String("archive-url", "", "archive API base URL (overrides config)")
	scanInterval = flag.String("scan-interval", "", "cache rescan interval, e.g. 1m (overrides config)")
	quality      = flag.String("quality", "", "default quality preset: none, default, or hard (overrides config)")
	configPath   = flag.String("config", "", "path to a JSON config file")
	migrationsIn = flag.String("migrations", "", "apply schema migrations from this directory at startup")
	verbose      = flag.Bool("verbose", false, "enable debug logging")
	showVersion  = flag.Bool("version", false, "print version and exit")
)

// buildConfig layers settings: built-in defaults, then the config file,
// then any flags the user set explicitly.
func buildConfig() (*config.Config, error) {
	cfg := config.Empty()

	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, err
		}
		cfg.Merge(loaded)
	}

	overlay := config.Empty()
	if *listen != "" {
		overlay.ListenAddr = listen
	}
	if *dbPath != "" {
		overlay.DBPath = dbPath
	}
	if *cacheDir != "" {
		overlay.CacheDir = cacheDir
	}
	if *archiveURL != "" {
		overlay.ArchiveURL = archiveURL
	}
	if *scanInterval != "" {
		overlay.ScanInterval = scanInterval
	}
	if *quality != "" {
		overlay.Quality = quality
	}
	cfg.Merge(overlay)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	monitoring.SetVerbose(*verbose)

	cfg, err := buildConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	if err := os.MkdirAll(cfg.GetCacheDir(), 0o755); err != nil {
		log.Fatalf("failed to create cache directory: %v", err)
	}

	database, err := db.NewDB(cfg.GetDBPath())
	if err != nil {
		log.Fatalf("failed to open cache index: %v", err)
	}
	defer database.Close()

	if *migrationsIn != "" {
		if err := database.MigrateUp(*migrationsIn); err != nil {
			log.Fatalf("failed to apply migrations: %v", err)
		}
	}

	archiveClient := archive.NewClient(cfg.GetArchiveURL(), nil)
	server := api.NewServer(database, archiveClient, cfg.GetCacheDir(), cfg.GetQualityMask(), cfg.GetTimeScale())

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// index pixel files already on disk, and keep watching for new ones
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner.New(database, cfg.GetCacheDir(), cfg.GetScanInterval(), nil).Run(ctx)
		log.Print("cache scanner stopped")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		httpServer := &http.Server{
			Addr:    cfg.GetListenAddr(),
			Handler: api.LoggingMiddleware(server.ServeMux()),
		}

		go func() {
			log.Printf("listening on %s", cfg.GetListenAddr())
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := httpServer.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
