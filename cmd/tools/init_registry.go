package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/tca"
	"github.com/lychee-technology/tca/internal"
)

type initRegistryOptions struct {
	host          string
	port          int
	database      string
	user          string
	password      string
	sslMode       string
	registryTable string
	documentDir   string
}

func runInitRegistry(args []string) error {
	flags := flag.NewFlagSet("init-registry", flag.ContinueOnError)
	flags.SetOutput(os.Stdout)
	flags.Usage = func() {
		fmt.Println("Usage: tca-tools init-registry [options]")
		fmt.Println("")
		fmt.Println("Options:")
		flags.PrintDefaults()
	}

	opts := initRegistryOptions{}
	flags.StringVar(&opts.host, "db-host", getenvDefault("DB_HOST", "localhost"), "database host")
	flags.IntVar(&opts.port, "db-port", getenvDefaultInt("DB_PORT", 5432), "database port")
	flags.StringVar(&opts.database, "db-name", getenvDefault("DB_NAME", "tca"), "database name")
	flags.StringVar(&opts.user, "db-user", getenvDefault("DB_USER", "postgres"), "database user")
	flags.StringVar(&opts.password, "db-password", getenvDefault("DB_PASSWORD", "postgres"), "database password")
	flags.StringVar(&opts.sslMode, "db-ssl-mode", getenvDefault("DB_SSL_MODE", "disable"), "database sslmode")
	flags.StringVar(&opts.registryTable, "registry-table", getenvDefault("REGISTRY_TABLE", "tca_registry"), "registry table name")
	flags.StringVar(&opts.documentDir, "dir", getenvDefault("TCA_DIR", ""), "Directory containing table documents to register (optional)")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	return initRegistry(context.Background(), opts)
}

func initRegistry(ctx context.Context, opts initRegistryOptions) error {
	var raw tca.RawTCA
	if opts.documentDir != "" {
		loaded, err := internal.NewFileSource(opts.documentDir, true).Load(ctx)
		if err != nil {
			return err
		}
		// refuse to register a configuration that does not build
		if _, err := internal.NewSchemaFactory().Build(loaded); err != nil {
			return err
		}
		raw = loaded
	}

	pool, err := pgxpool.New(ctx, buildConnString(opts))
	if err != nil {
		return fmt.Errorf("create connection pool: %w", err)
	}
	defer pool.Close()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if err := withTx(ctx, conn, func(tx pgx.Tx) error {
		if err := ensureRegistryTable(ctx, tx, opts.registryTable); err != nil {
			return err
		}
		return registerDocuments(ctx, tx, opts.registryTable, raw)
	}); err != nil {
		return err
	}

	fmt.Println("Registry initialized successfully.")
	return nil
}

func buildConnString(opts initRegistryOptions) string {
	hostPort := fmt.Sprintf("%s:%d", opts.host, opts.port)

	var userInfo *url.Userinfo
	if opts.password != "" {
		userInfo = url.UserPassword(opts.user, opts.password)
	} else {
		userInfo = url.User(opts.user)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   hostPort,
		Path:   "/" + opts.database,
	}

	q := url.Values{}
	if opts.sslMode != "" {
		q.Set("sslmode", opts.sslMode)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

func ensureRegistryTable(ctx context.Context, tx pgx.Tx, registryTable string) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		table_name     TEXT PRIMARY KEY,
		configuration  JSONB NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, quoteIdentifier(registryTable))

	if _, err := tx.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure registry table: %w", err)
	}
	fmt.Printf("Created registry table: %s\n", registryTable)
	return nil
}

// registerDocuments upserts one row per table in sorted table order.
func registerDocuments(ctx context.Context, tx pgx.Tx, registryTable string, raw tca.RawTCA) error {
	if len(raw) == 0 {
		fmt.Println("No table documents to register")
		return nil
	}

	insertSQL := fmt.Sprintf(
		`INSERT INTO %s (table_name, configuration) VALUES ($1, $2)
		ON CONFLICT (table_name) DO UPDATE SET configuration = EXCLUDED.configuration, updated_at = now()`,
		quoteIdentifier(registryTable),
	)
	for _, table := range sortedTables(raw) {
		document, err := json.Marshal(raw[table])
		if err != nil {
			return fmt.Errorf("encode %s: %w", table, err)
		}
		if _, err := tx.Exec(ctx, insertSQL, table, document); err != nil {
			return fmt.Errorf("register %s: %w", table, err)
		}
		fmt.Printf("Registered table: %s\n", table)
	}

	fmt.Printf("Registered tables, count: %d\n", len(raw))
	return nil
}

func withTx(ctx context.Context, conn *pgxpool.Conn, fn func(pgx.Tx) error) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w; rollback failed: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

func quoteIdentifier(name string) string {
	return pgx.Identifier(splitIdentifier(name)).Sanitize()
}

func splitIdentifier(name string) []string {
	parts := strings.Split(name, ".")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	if len(result) == 0 {
		return []string{name}
	}
	return result
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getenvDefaultInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}
