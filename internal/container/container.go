package container

import (
	"context"
	"fmt"
	"log"

	"gofestat/adapters/excel"
	"gofestat/adapters/postgres"
	"gofestat/adapters/stats/fe"
	"gofestat/app"
	"gofestat/domain/pta"
	"gofestat/internal/config"
	"gofestat/internal/errors"
	"gofestat/internal/migration"
	"gofestat/internal/testkit"
	"gofestat/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure
	DB *sqlx.DB

	// Repositories (data access layer)
	Runs ports.RunRepository

	// Loaded pulsar array and the services built on it
	Pulsars   []*pta.Pulsar
	Params    pta.NoiseParams
	Evaluator *fe.FeStat
	Search    *app.SearchService
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return &Container{Config: cfg}, nil
}

// OpenDatabase connects to the configured database and applies migrations.
// It is a no-op when DATABASE_URL is empty.
func (c *Container) OpenDatabase(ctx context.Context) error {
	if c.Config.Database.URL == "" {
		log.Printf("[Container] DATABASE_URL not set, runs will not be persisted")
		return nil
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", c.Config.Database.URL)
	if err != nil {
		return errors.DatabaseError("failed to connect to database", err)
	}
	if err := c.InitWithDatabase(ctx, db); err != nil {
		db.Close()
		return err
	}
	return nil
}

// InitWithDatabase runs migrations on db and creates the repositories
func (c *Container) InitWithDatabase(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}

	if err := db.PingContext(ctx); err != nil {
		return errors.DatabaseError("failed to ping database", err)
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(ctx, db); err != nil {
		return errors.Wrap(err, "database migration failed")
	}
	log.Printf("[Container] Database schema %s ready", migrator.Version())

	c.DB = db
	c.Runs = postgres.NewRunRepository(db)
	return nil
}

// LoadArray builds the evaluator and search service for psrs. The search
// service persists runs when a database is open.
func (c *Container) LoadArray(psrs []*pta.Pulsar, params pta.NoiseParams, builder ports.ModelBuilder) error {
	evaluator, err := fe.New(psrs, params, builder, fe.WithEngineConfig(c.Config.Engine))
	if err != nil {
		return errors.Wrap(err, "failed to initialize Fe-statistic evaluator")
	}

	c.Pulsars = psrs
	c.Params = params
	c.Evaluator = evaluator
	c.Search = app.NewSearchService(evaluator, params, c.Runs)
	return nil
}

// LoadConfiguredArray loads the pulsar table named by PULSAR_FILE, or the
// synthetic eight-pulsar array with an injected source when none is set.
// Both use the synthetic white plus red noise model.
func (c *Container) LoadConfiguredArray(arrayCfg testkit.ArrayConfig) error {
	var (
		psrs   []*pta.Pulsar
		params pta.NoiseParams
	)

	if path := c.Config.Data.PulsarFile; path != "" {
		log.Printf("[Container] Using pulsar table: %s", path)
		loaded, err := excel.ReadPulsars(path)
		if err != nil {
			return errors.Wrapf(err, "failed to load pulsars from %s", path)
		}
		psrs, params = loaded, testkit.Params(loaded, arrayCfg)
	} else {
		log.Printf("[Container] No pulsar table configured, using a synthetic array with a source at f0=%g", testkit.DefaultSource.F0)
		psrs, params = testkit.Synthetic(arrayCfg, testkit.DefaultSource)
	}

	return c.LoadArray(psrs, params, testkit.NewBuilder(arrayCfg))
}

// Shutdown releases held resources
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			return errors.Wrap(err, "failed to close database")
		}
	}
	return nil
}
