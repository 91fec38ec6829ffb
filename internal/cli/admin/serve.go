package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/orderdesk/internal/api/handlers"
	"github.com/cloo-solutions/orderdesk/internal/bridge"
	"github.com/cloo-solutions/orderdesk/internal/config"
	"github.com/cloo-solutions/orderdesk/internal/database"
	"github.com/cloo-solutions/orderdesk/internal/domain"
	"github.com/cloo-solutions/orderdesk/internal/jobs"
	"github.com/cloo-solutions/orderdesk/internal/remote"
	"github.com/cloo-solutions/orderdesk/internal/repository"
	"github.com/cloo-solutions/orderdesk/internal/search"
	"github.com/cloo-solutions/orderdesk/internal/server"
	"github.com/cloo-solutions/orderdesk/internal/service"
	"github.com/cloo-solutions/orderdesk/internal/storage"
	"github.com/cloo-solutions/orderdesk/internal/telemetry"
	"github.com/cloo-solutions/orderdesk/internal/token"
)

const (
	searchIdleTimeout  = 30 * time.Minute
	searchSweepEvery   = time.Minute
	devLoginTimeout    = 30 * time.Second
	medicationsTimeout = time.Minute
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the order desk daemon",
		Long:  "Start the order desk backend on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if cfg.SentryDSN != "" {
		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if cfg.Environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	var searchLog *service.SearchLogger
	if cfg.HasDatabase() {
		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()
		log.Println("connected to database")

		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			if err := database.Migrate(cfg.DatabaseURL); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		searchLog = newSearchLog(pool)
	} else {
		log.Println("DATABASE_URL not set: search log disabled")
	}

	var reportStore service.ObjectStore
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		reportStore = s3Client
	}

	d := newDaemon(ctx, cfg, searchLog, reportStore)
	defer d.close()

	for _, w := range d.workers {
		go w.Start(ctx)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: d.router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	for _, w := range d.workers {
		w.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Outbox streams end with ctx; cancel before Shutdown waits on them.
	cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func newSearchLog(pool *pgxpool.Pool) *service.SearchLogger {
	return service.NewSearchLogger(repository.NewSearchLogRepository(pool))
}

// daemon is the wired order desk: the bridge, the token gate, the services
// and their caches behind one router.
type daemon struct {
	router  http.Handler
	tokens  *token.Stream
	bridge  *bridge.Bridge
	orders  *service.OrderService
	meds    *service.MedicationService
	user    *service.UserService
	workers []*jobs.Worker
	closers []func()
}

// newDaemon wires every component. searchLog and reportStore may be nil.
// Host messages are followed until ctx is done.
func newDaemon(ctx context.Context, cfg *config.Config, searchLog *service.SearchLogger, reportStore service.ObjectStore) *daemon {
	d := &daemon{
		tokens: token.NewStream(),
		bridge: bridge.New(),
	}

	if cfg.APIToken != "" {
		d.tokens.Publish(cfg.APIToken)
	}
	d.tokens.Follow(ctx, d.bridge)

	frame := bridge.NewFrame(d.bridge, cfg.AppOrigin, bridge.WithTargetOrigin(cfg.TargetOrigin))

	client := remote.New(cfg.APIURL, d.tokens,
		remote.WithTimeout(cfg.APITimeout),
		remote.WithRateLimit(cfg.APIRPS),
	)

	opts := searchOptions(cfg, searchLog)

	d.orders = service.NewOrderService(client, opts...)
	d.closers = append(d.closers, d.orders.Close)
	if cfg.OrdersRefreshInterval > 0 {
		d.workers = append(d.workers, jobs.NewWorker("orders-refresh", jobs.NewOrderRefresher(d.orders), cfg.OrdersRefreshInterval))
	}

	states := make(map[domain.SearchDomain]handlers.SearchStates)
	for _, sd := range domain.SearchDomains() {
		registry := newSearchRegistry(client, sd, opts)
		states[sd] = registry
		d.closers = append(d.closers, registry.Close)
		d.workers = append(d.workers, jobs.NewWorker(string(sd)+"-search-sweep", registry, searchSweepEvery))
	}

	crmPath := filepath.Join(os.TempDir(), "orderdesk", "crm.json")
	if dir, err := os.UserConfigDir(); err == nil {
		crmPath = filepath.Join(dir, "orderdesk", "crm.json")
	}
	d.user = service.NewUserService(client, d.tokens, service.NewFileCRMStore(crmPath))
	d.user.WatchInfo(ctx, d.bridge)

	if cfg.HasDevLogin() {
		go d.devLogin(ctx, cfg.DevUsername, cfg.DevPassword)
	}

	d.meds = service.NewMedicationService(client)
	go d.loadMedications(ctx)

	var logs handlers.SearchLogReader
	if searchLog != nil {
		logs = searchLog
	}

	d.router = server.NewRouter(server.RouterConfig{
		AppOrigin:      cfg.AppOrigin,
		Tokens:         d.tokens,
		BridgeHandler:  handlers.NewBridgeHandler(d.bridge, frame),
		OrderHandler:   handlers.NewOrderHandler(d.orders),
		SearchHandler:  handlers.NewSearchHandler(states, logs),
		AdminHandler:   handlers.NewAdminHandler(service.NewAdminService(client)),
		SessionHandler: handlers.NewSessionHandler(d.user, d.meds),
		ReportHandler:  handlers.NewReportHandler(service.NewReportService(client, reportStore)),
	})
	return d
}

func searchOptions(cfg *config.Config, searchLog *service.SearchLogger) []search.Option {
	opts := []search.Option{
		search.WithWindow(cfg.SearchDebounce),
		search.WithStaleDiscard(cfg.StaleDiscard),
	}
	if searchLog != nil {
		opts = append(opts, search.WithRecorder(searchLog))
	}
	return opts
}

// newSearchRegistry keeps one search cache per owner for a domain. Every
// cache is named after the domain so the search log groups them together.
func newSearchRegistry(api service.API, sd domain.SearchDomain, opts []search.Option) *search.Registry[string, json.RawMessage] {
	fetch := service.DomainFetcher(api, sd)
	return search.NewRegistry(func(owner string) *handlers.SearchState {
		return search.NewState(string(sd), fetch, opts...)
	}, searchIdleTimeout)
}

func (d *daemon) devLogin(ctx context.Context, username, password string) {
	ctx, cancel := context.WithTimeout(ctx, devLoginTimeout)
	defer cancel()

	if err := d.user.Login(ctx, username, password); err != nil {
		log.Printf("dev login failed: %v", err)
		return
	}
	log.Printf("dev login: signed in as %s", username)
}

// loadMedications waits for the first token, then fetches the catalogues.
func (d *daemon) loadMedications(ctx context.Context) {
	if _, err := d.tokens.Wait(ctx); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, medicationsTimeout)
	defer cancel()

	if err := d.meds.Load(ctx); err != nil {
		log.Printf("failed to load medications: %v", err)
		return
	}
	generics, brands := d.meds.Counts()
	log.Printf("medications loaded: %d generics, %d brands", generics, brands)
}

func (d *daemon) close() {
	for _, c := range d.closers {
		c()
	}
}
