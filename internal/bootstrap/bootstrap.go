package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/sanitary-filing/internal/config"
	"github.com/kirillkom/sanitary-filing/internal/core/domain"
	"github.com/kirillkom/sanitary-filing/internal/core/ports"
	"github.com/kirillkom/sanitary-filing/internal/core/usecase"
	"github.com/kirillkom/sanitary-filing/internal/infrastructure/catalog"
	"github.com/kirillkom/sanitary-filing/internal/infrastructure/formschema"
	"github.com/kirillkom/sanitary-filing/internal/infrastructure/pdfcheck"
	memorybus "github.com/kirillkom/sanitary-filing/internal/infrastructure/queue/memory"
	"github.com/kirillkom/sanitary-filing/internal/infrastructure/queue/nats"
	"github.com/kirillkom/sanitary-filing/internal/infrastructure/repository/memory"
	"github.com/kirillkom/sanitary-filing/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/sanitary-filing/internal/infrastructure/resilience"
	"github.com/kirillkom/sanitary-filing/internal/infrastructure/spreadsheet"
	"github.com/kirillkom/sanitary-filing/internal/infrastructure/storage/localfs"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BusNATS         = "nats"
	BusMemory       = "memory"
)

// Observers are optional metric sinks supplied by the hosting binary.
type Observers struct {
	Validation usecase.ValidationObserver
	Submission usecase.SubmissionObserver
	Responder  usecase.ResponderObserver
}

type repositories struct {
	templates ports.TemplateRepository
	instances ports.InstanceRepository
	filings   ports.FilingRepository
	payments  ports.PaymentRepository
}

type App struct {
	Config config.Config

	Bus     ports.ValidationBus
	Storage ports.FileStorage

	Classifier   *usecase.ClassificationUseCase
	Templates    *usecase.TemplateRegistryUseCase
	Documents    *usecase.DocumentInstanceUseCase
	Completeness *usecase.CompletenessUseCase
	Filings      *usecase.FilingUseCase
	Payments     *usecase.PaymentLedgerUseCase
	Correlator   *usecase.Correlator
	Dispatcher   *usecase.ValidationDispatcher

	db        *sql.DB
	natsBus   *nats.Bus
	inProcess bool
	executor  *resilience.Executor
}

func New(ctx context.Context, cfg config.Config, observers Observers) (*App, error) {
	app := &App{Config: cfg}

	repos, err := app.openRepositories(ctx, cfg)
	if err != nil {
		return nil, err
	}

	storage, err := localfs.New(cfg.StoragePath, cfg.PublicFilesBaseURL)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init file storage: %w", err)
	}
	app.Storage = storage

	if err := app.openBus(cfg); err != nil {
		app.Close()
		return nil, err
	}

	validationTimeout := time.Duration(cfg.ValidationTimeoutMS) * time.Millisecond
	app.Correlator = usecase.NewCorrelator(app.Bus, validationTimeout, observers.Validation)
	app.Dispatcher = usecase.NewValidationDispatcher(app.Bus, map[domain.ValidationKind]ports.ValidationResponder{
		domain.ValidationMandatoryDocuments: usecase.NewDocumentValidationResponder(repos.instances),
		domain.ValidationPaymentApproved:    usecase.NewPaymentValidationResponder(repos.payments),
	}, observers.Responder)

	app.Classifier = usecase.NewClassificationUseCase()
	app.Templates = usecase.NewTemplateRegistryUseCase(repos.templates)
	app.Payments = usecase.NewPaymentLedgerUseCase(repos.payments)
	app.Documents = usecase.NewDocumentInstanceUseCase(
		repos.instances, repos.templates, repos.filings, storage,
		spreadsheet.NewRenderer(storage), formschema.New(), pdfcheck.New(),
	)
	app.Completeness = usecase.NewCompletenessUseCase(repos.filings, repos.templates, repos.instances, spreadsheet.ChecklistExporter{})
	app.Filings = usecase.NewFilingUseCase(
		repos.filings, repos.instances, repos.templates, repos.payments, storage,
		app.Correlator, observers.Submission,
		usecase.FilingConfig{
			ValidationTimeout: validationTimeout,
			PaymentMode:       cfg.PaymentValidationMode,
		},
	)

	if cfg.SeedTemplates {
		templates, err := catalog.Load(cfg.TemplateCatalogPath)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("load template catalog: %w", err)
		}
		if _, err := catalog.Seed(ctx, app.Templates, templates); err != nil {
			app.Close()
			return nil, fmt.Errorf("seed template catalog: %w", err)
		}
	}
	return app, nil
}

func (a *App) openRepositories(ctx context.Context, cfg config.Config) (repositories, error) {
	switch cfg.StoreBackend {
	case BackendMemory:
		store := memory.NewStore()
		return repositories{
			templates: store.Templates(),
			instances: store.Instances(),
			filings:   store.Filings(),
			payments:  store.Payments(),
		}, nil
	case BackendPostgres, "":
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return repositories{}, fmt.Errorf("open postgres: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return repositories{}, fmt.Errorf("ensure schema: %w", err)
		}
		a.db = db
		return repositories{
			templates: postgres.NewTemplateRepository(db),
			instances: postgres.NewInstanceRepository(db),
			filings:   postgres.NewFilingRepository(db),
			payments:  postgres.NewPaymentRepository(db),
		}, nil
	default:
		return repositories{}, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func (a *App) openBus(cfg config.Config) error {
	switch cfg.EventBus {
	case BusMemory:
		a.Bus = memorybus.NewBus()
		a.inProcess = true
		return nil
	case BusNATS, "":
		policy := resilience.DefaultConfig()
		if cfg.NATSRetryMaxAttempts > 0 {
			policy.RetryMaxAttempts = cfg.NATSRetryMaxAttempts
		}
		policy.BreakerEnabled = cfg.NATSBreakerEnabled
		a.executor = resilience.NewExecutor(policy)

		bus, err := nats.New(cfg.NATSURL, nats.Subjects{
			Requests:  cfg.NATSValidationRequestSubject,
			Responses: cfg.NATSValidationResponseSubject,
		}, nats.Options{ResilienceExecutor: a.executor})
		if err != nil {
			return fmt.Errorf("init validation bus: %w", err)
		}
		a.natsBus = bus
		a.Bus = bus
		return nil
	default:
		return fmt.Errorf("unknown event bus %q", cfg.EventBus)
	}
}

// InProcessBus reports whether validation requests only reach responders of
// this process, in which case the host must run them itself.
func (a *App) InProcessBus() bool {
	return a.inProcess
}

// RunCorrelator feeds bus responses to the correlator and sweeps abandoned
// requests. It blocks until ctx is done.
func (a *App) RunCorrelator(ctx context.Context) error {
	go a.Correlator.RunSweeper(ctx, time.Duration(a.Config.ValidationSweepIntervalMS)*time.Millisecond)
	if err := a.Bus.SubscribeValidationResponses(ctx, a.Correlator.Deliver); err != nil {
		return fmt.Errorf("subscribe validation responses: %w", err)
	}
	return nil
}

// RunResponders answers validation requests until ctx is done.
func (a *App) RunResponders(ctx context.Context) error {
	if err := a.Bus.SubscribeValidationRequests(ctx, a.Dispatcher.Handle); err != nil {
		return fmt.Errorf("subscribe validation requests: %w", err)
	}
	return nil
}

// Health reports the state of the database, the bus and its breakers.
func (a *App) Health(ctx context.Context) (bool, map[string]any) {
	healthy := true
	details := map[string]any{
		"store":               a.Config.StoreBackend,
		"bus":                 a.Config.EventBus,
		"pending_validations": a.Correlator.Pending(),
	}
	if a.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := a.db.PingContext(pingCtx); err != nil {
			healthy = false
			details["store_error"] = err.Error()
		}
	}
	if a.natsBus != nil && !a.natsBus.Healthy() {
		healthy = false
		details["bus_error"] = "nats connection unavailable"
	}
	if a.executor != nil {
		breakers := map[string]string{}
		for _, state := range a.executor.States() {
			breakers[state.Operation] = state.State
		}
		if len(breakers) > 0 {
			details["breakers"] = breakers
		}
	}
	return healthy, details
}

func (a *App) Close() {
	if a.natsBus != nil {
		a.natsBus.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			slog.Warn("db_close_failed", "error", err)
		}
	}
}
