package e2e_harness

import (
	"context"
	"testing"
	"time"

	"github.com/lychee-technology/tca"
	"github.com/lychee-technology/tca/factory"
	"github.com/lychee-technology/tca/internal/sqlcheck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var accessTime = time.Unix(1_700_000_000, 0)

func contentRows() []tca.Row {
	ts := accessTime.Unix()
	return []tca.Row{
		{"uid": 1, "pid": 1, "CType": "text", "deleted": 0, "hidden": 0, "starttime": 0, "endtime": 0, "fe_group": ""},
		{"uid": 2, "pid": 1, "CType": "text", "deleted": 0, "hidden": 1, "starttime": 0, "endtime": 0, "fe_group": ""},
		{"uid": 3, "pid": 1, "CType": "text", "deleted": 0, "hidden": 0, "starttime": ts + 60, "endtime": 0, "fe_group": ""},
		{"uid": 4, "pid": 1, "CType": "text", "deleted": 0, "hidden": 0, "starttime": 0, "endtime": 0, "fe_group": "-2"},
		{"uid": 5, "pid": 1, "CType": "text", "deleted": 1, "hidden": 0, "starttime": 0, "endtime": 0, "fe_group": ""},
	}
}

// checkRuntime asserts the runtime published the sample tables and that the
// restrictions it renders agree with its voter.
func checkRuntime(t *testing.T, ctx context.Context, h *TestHarness, rt *factory.Runtime) {
	t.Helper()

	assert.Equal(t, []string{"fe_groups", "pages", "tt_content"}, rt.Resolver.Tables())

	schema, err := rt.Resolver.Get("tt_content")
	require.NoError(t, err)
	assert.True(t, schema.HasCapability(tca.CapabilityRestrictionUserGroup))

	tc := tca.NewContext(accessTime).WithUser(tca.NewAnonymousUser())
	uids, err := sqlcheck.NewProbe(h.Duck).VisibleUIDs(ctx, schema, contentRows(), rt.Restrictions, tc)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, uids)

	for _, row := range contentRows() {
		granted, err := rt.Voter.AccessGranted(ctx, "tt_content", row, tc)
		require.NoError(t, err)
		uid, _ := tca.IntValue(row["uid"])
		// the voter ignores soft deletion, which is a query concern
		assert.Equal(t, uid == 1 || uid == 5, granted, "uid %d", uid)
	}
}

func TestE2EHarnessMinimal(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping E2E harness in -short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	h := &TestHarness{}

	// Start Postgres
	if _, err := h.StartPostgres(ctx); err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	defer h.StopPostgres(context.Background())

	// Start S3
	if _, err := h.StartS3(ctx); err != nil {
		t.Fatalf("start rustfs: %v", err)
	}
	defer h.StopS3(context.Background())

	if err := h.StartDuckDB(ctx, tca.DuckDBConfig{}); err != nil {
		t.Fatalf("start duckdb: %v", err)
	}
	defer h.StopDuckDB()

	t.Run("postgres source", func(t *testing.T) {
		require.NoError(t, SeedRegistry(ctx, h.PGDB, "tca_registry", SampleTCA()))

		cfg := tca.DefaultConfig()
		cfg.Source.Kind = tca.SourceKindPostgres
		cfg.Database.Host = h.PGHost
		cfg.Database.Port = h.PGPort
		cfg.Database.Database = "postgres"
		cfg.Database.Username = "postgres"
		cfg.Database.Password = "password"

		rt, err := factory.NewRuntime(ctx, cfg)
		require.NoError(t, err)
		defer rt.Close()
		checkRuntime(t, ctx, h, rt)
	})

	t.Run("s3 source", func(t *testing.T) {
		client, err := NewS3Client(ctx, h.S3Endpoint, S3AccessKey, S3SecretKey)
		require.NoError(t, err)
		require.NoError(t, UploadDocuments(ctx, client, "tca-config", "tca/", SampleTCA()))

		t.Setenv("AWS_ACCESS_KEY_ID", S3AccessKey)
		t.Setenv("AWS_SECRET_ACCESS_KEY", S3SecretKey)
		cfg := tca.DefaultConfig()
		cfg.Source.Kind = tca.SourceKindS3
		cfg.S3.Bucket = "tca-config"
		cfg.S3.Prefix = "tca/"
		cfg.S3.Region = "us-east-1"
		cfg.S3.Endpoint = h.S3Endpoint
		cfg.S3.UsePathStyle = true

		rt, err := factory.NewRuntime(ctx, cfg)
		require.NoError(t, err)
		defer rt.Close()
		checkRuntime(t, ctx, h, rt)
	})
}
