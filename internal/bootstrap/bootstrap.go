package bootstrap

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/punchout/dashboard/internal/app"
	"github.com/punchout/dashboard/internal/artifacts"
	"github.com/punchout/dashboard/internal/backend"
	"github.com/punchout/dashboard/internal/charts"
	"github.com/punchout/dashboard/internal/config"
	"github.com/punchout/dashboard/internal/customers"
	"github.com/punchout/dashboard/internal/database"
	"github.com/punchout/dashboard/internal/environments"
	"github.com/punchout/dashboard/internal/gateway"
	"github.com/punchout/dashboard/internal/punchout"
	"github.com/punchout/dashboard/internal/worker"
)

const mockGatewayURL = "http://mock-gateway.local"

// App holds every wired component
type App struct {
	Config       *config.Config
	Customers    app.CustomerDirectory
	Environments *environments.Manager
	Backend      backend.Client
	Executor     *punchout.Executor
	DB           database.Database
	Worker       *worker.Worker
	Artifacts    *artifacts.Manager
	Charts       *charts.Generator
}

func New(cfg *config.Config) (*App, error) {
	a := &App{
		Config:    cfg,
		Artifacts: artifacts.NewManager(cfg.Artifacts.Dir, config.Duration(cfg.Artifacts.TTL)),
		Charts:    charts.NewGenerator(),
	}

	dir, err := loadCustomers(cfg)
	if err != nil {
		return nil, err
	}
	a.Customers = dir

	var submitter app.SetupSubmitter
	gatewayURL := cfg.Gateway.URL
	if cfg.Mock {
		log.Println("Using MOCK backend and gateway clients (mock mode)")
		mockBackend := backend.NewMockClient()
		if err := seedDefaultTemplates(mockBackend); err != nil {
			return nil, err
		}
		a.Backend = mockBackend
		submitter = gateway.NewMockClient(mockBackend)
		if gatewayURL == "" {
			gatewayURL = mockGatewayURL
		}
	} else {
		log.Printf("Using backend API %s and gateway %s", cfg.Backend.URL, cfg.Gateway.URL)
		realBackend, err := backend.NewRealClient(cfg.Backend.URL, cfg.Backend.Token, config.Duration(cfg.Backend.Timeout))
		if err != nil {
			return nil, fmt.Errorf("failed to create backend client: %w", err)
		}
		a.Backend = realBackend
		submitter = gateway.NewRealClient(config.Duration(cfg.Gateway.Timeout))
	}

	a.Environments = environments.NewManager(gatewayURL)
	for _, env := range cfg.Environments {
		req := environments.UpdateEnvironmentRequest{Enabled: env.Enabled}
		if env.Description != "" {
			req.Description = &env.Description
		}
		if env.GatewayURL != "" {
			req.GatewayURL = &env.GatewayURL
		}
		if _, err := a.Environments.Upsert(env.Name, req); err != nil {
			return nil, fmt.Errorf("environment %s: %w", env.Name, err)
		}
	}

	a.DB, err = openDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	a.Executor = punchout.NewExecutor(a.Backend, submitter, a.Backend, a.Environments, punchout.Options{
		CorrelationDelay:    config.Duration(cfg.Execution.CorrelationDelay),
		CorrelationAttempts: cfg.Execution.CorrelationAttempts,
		ExecutionTimeout:    config.Duration(cfg.Execution.Timeout),
	})
	a.Executor.SetRecorder(a.DB)

	if cfg.Refresh.Enabled != nil && *cfg.Refresh.Enabled {
		a.Worker = worker.NewWorker(a.Backend, a.DB, worker.Options{
			Interval: config.Duration(cfg.Refresh.Interval),
			Window:   config.Duration(cfg.Refresh.Window),
		})
	}

	return a, nil
}

// Start launches background workers until ctx is done
func (a *App) Start(ctx context.Context) {
	if a.Worker != nil {
		go a.Worker.Start(ctx)
	}
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

func loadCustomers(cfg *config.Config) (*customers.Directory, error) {
	if cfg.Customers.File == "" {
		log.Println("No customers file configured, using demo customer profiles")
		return customers.Demo(), nil
	}
	dir, err := customers.LoadFile(cfg.Customers.File)
	if err != nil {
		return nil, err
	}
	log.Printf("Loaded %d customer profiles from %s", len(dir.List()), cfg.Customers.File)
	return dir, nil
}

func openDatabase(cfg config.DatabaseConfig) (database.Database, error) {
	switch cfg.Driver {
	case "postgres":
		log.Println("Using PostgreSQL test history")
		return database.NewPostgresDatabase(cfg.URL)
	case "mysql":
		log.Println("Using MySQL test history")
		return database.NewMySQLDatabase(cfg.URL)
	default:
		log.Println("Using in-memory test history")
		return database.NewMockDatabase(), nil
	}
}

func seedDefaultTemplates(client *backend.MockClient) error {
	for _, env := range environments.DefaultNames {
		_, err := client.SaveTemplate(context.Background(), app.CxmlTemplate{
			TemplateName: fmt.Sprintf("Default %s Template", strings.ToUpper(env)),
			Environment:  env,
			CustomerID:   "DEFAULT",
			CustomerName: "Default Template",
			Body:         punchout.BuiltinTemplate(env),
			Description:  fmt.Sprintf("Default cXML template for %s environment", strings.ToUpper(env)),
			IsDefault:    true,
			CreatedBy:    "system",
		})
		if err != nil {
			return fmt.Errorf("failed to seed template for %s: %w", env, err)
		}
	}
	return nil
}
