package factory

import (
	"context"
	"fmt"
	"strconv"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dsql/auth"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/tca"
	"github.com/lychee-technology/tca/internal"
	"go.uber.org/zap"
)

// Runtime bundles the schema resolver and the services built on top of it.
//
// Usage:
//
//	cfg, err := tca.LoadConfig("tca.yaml")
//	if err != nil {
//	    // handle error
//	}
//	rt, err := factory.NewRuntime(ctx, cfg)
//	if err != nil {
//	    // handle error
//	}
//	defer rt.Close()
//
//	granted, err := rt.Voter.AccessGranted(ctx, "tt_content", row, tc)
type Runtime struct {
	Config       *tca.Config
	Resolver     *internal.SchemaResolver
	Records      tca.RecordFactory
	Restrictions *internal.RestrictionContainer
	Voter        tca.AccessVoter
	Dispatcher   *internal.EventDispatcher
	Source       tca.TCASource

	// Pool is set when the configuration is read from postgres.
	Pool *pgxpool.Pool
}

// Reload rebuilds the schema set from the runtime's source. The previous set
// stays published when the rebuild fails.
func (r *Runtime) Reload(ctx context.Context) error {
	_, err := r.Resolver.Rebuild(ctx, r.Source)
	return err
}

// Close releases the database pool, if any.
func (r *Runtime) Close() {
	if r.Pool != nil {
		r.Pool.Close()
		r.Pool = nil
	}
}

// NewRuntime connects the source selected by cfg.Source.Kind and builds the
// first schema set from it.
func NewRuntime(ctx context.Context, cfg *tca.Config) (*Runtime, error) {
	if cfg == nil {
		cfg = tca.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rt := &Runtime{Config: cfg}
	switch cfg.Source.Kind {
	case tca.SourceKindFile:
		rt.Source = internal.NewFileSource(cfg.Source.Directory, cfg.Source.ValidateDocuments)
	case tca.SourceKindPostgres:
		pool, err := createDatabasePool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		rt.Pool = pool
		rt.Source = internal.NewPostgresSource(pool, cfg.Source.RegistryTable, cfg.Source.ValidateDocuments)
	case tca.SourceKindS3:
		client, err := createS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		rt.Source = internal.NewS3Source(client, cfg.S3.Bucket, cfg.S3.Prefix, cfg.S3.Concurrency, cfg.Source.ValidateDocuments)
	}

	wire(rt, cfg)
	if _, err := rt.Resolver.Rebuild(ctx, rt.Source); err != nil {
		rt.Close()
		return nil, err
	}

	zap.S().Infow("tca runtime ready",
		"source", rt.Source.Name(),
		"tables", len(rt.Resolver.Tables()),
		"generation", rt.Resolver.Generation(),
	)
	return rt, nil
}

// NewRuntimeFromTCA builds a runtime over an in-memory configuration, using the
// default restriction settings.
func NewRuntimeFromTCA(raw tca.RawTCA) (*Runtime, error) {
	cfg := tca.DefaultConfig()
	rt := &Runtime{
		Config: cfg,
		Source: internal.NewStaticSource("static", raw),
	}
	wire(rt, cfg)
	if _, err := rt.Resolver.Load(raw); err != nil {
		return nil, err
	}
	return rt, nil
}

func wire(rt *Runtime, cfg *tca.Config) {
	rt.Resolver = internal.NewSchemaResolver(internal.NewSchemaFactory())
	rt.Dispatcher = internal.NewEventDispatcher()
	rt.Records = internal.NewRecordFactory(rt.Resolver, internal.NewFieldTransformer())
	rt.Restrictions = internal.NewDefaultRestrictionContainer(rt.Resolver, cfg.Restriction)
	rt.Voter = internal.NewAccessVoter(rt.Resolver, rt.Dispatcher)
}

// createDatabasePool creates a PostgreSQL connection pool. With IAM auth every
// new connection gets a fresh DSQL token as its password.
func createDatabasePool(ctx context.Context, db tca.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(db.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = db.MaxConnections
	poolConfig.MaxConnLifetime = db.ConnMaxLifetime
	poolConfig.ConnConfig.ConnectTimeout = db.Timeout

	if db.IAMAuth {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(db.Region))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		endpoint := db.Host + ":" + strconv.Itoa(db.Port)
		poolConfig.BeforeConnect = func(ctx context.Context, cc *pgx.ConnConfig) error {
			token, err := auth.GenerateDbConnectAuthToken(ctx, endpoint, awsCfg.Region, awsCfg.Credentials)
			if err != nil {
				return fmt.Errorf("generate dsql auth token: %w", err)
			}
			cc.Password = token
			return nil
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

func createS3Client(ctx context.Context, cfg tca.S3Config) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(cfg.Endpoint))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}
