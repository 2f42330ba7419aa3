package e2e_harness

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/lib/pq"
	"github.com/lychee-technology/tca"
)

func column(cfg map[string]any) map[string]any {
	return map[string]any{"config": cfg}
}

// SampleTCA returns content, pages and frontend groups with the usual enable columns.
func SampleTCA() tca.RawTCA {
	enableColumns := map[string]any{
		"disabled":  "hidden",
		"starttime": "starttime",
		"endtime":   "endtime",
		"fe_group":  "fe_group",
	}
	groupColumn := column(map[string]any{
		"type":          "select",
		"renderType":    "selectMultipleSideBySide",
		"foreign_table": "fe_groups",
	})
	return tca.RawTCA{
		"tt_content": {
			"ctrl": map[string]any{
				"title":         "Content",
				"label":         "header",
				"type":          "CType",
				"delete":        "deleted",
				"enablecolumns": enableColumns,
			},
			"columns": map[string]any{
				"CType":     column(map[string]any{"type": "select", "renderType": "selectSingle"}),
				"header":    column(map[string]any{"type": "input"}),
				"bodytext":  column(map[string]any{"type": "text"}),
				"hidden":    column(map[string]any{"type": "check"}),
				"starttime": column(map[string]any{"type": "datetime"}),
				"endtime":   column(map[string]any{"type": "datetime"}),
				"fe_group":  groupColumn,
			},
			"types": map[string]any{
				"text": map[string]any{"showitem": "CType, header, bodytext"},
			},
		},
		"pages": {
			"ctrl": map[string]any{
				"title":         "Page",
				"label":         "title",
				"delete":        "deleted",
				"enablecolumns": enableColumns,
			},
			"columns": map[string]any{
				"title":            column(map[string]any{"type": "input"}),
				"hidden":           column(map[string]any{"type": "check"}),
				"starttime":        column(map[string]any{"type": "datetime"}),
				"endtime":          column(map[string]any{"type": "datetime"}),
				"fe_group":         groupColumn,
				"extendToSubpages": column(map[string]any{"type": "check"}),
			},
		},
		"fe_groups": {
			"ctrl":    map[string]any{"title": "Frontend groups", "label": "title", "delete": "deleted"},
			"columns": map[string]any{"title": column(map[string]any{"type": "input"})},
		},
	}
}

// SeedRegistry creates the registry table and stores one JSONB document per table.
func SeedRegistry(ctx context.Context, db *sql.DB, table string, raw tca.RawTCA) error {
	quoted := pq.QuoteIdentifier(table)
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  table_name TEXT PRIMARY KEY,
  configuration JSONB NOT NULL
);`, quoted)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create registry table: %w", err)
	}

	for name, document := range raw {
		data, err := json.Marshal(document)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (table_name, configuration) VALUES ($1, $2)
ON CONFLICT (table_name) DO UPDATE SET configuration = EXCLUDED.configuration`, quoted),
			name, string(data),
		); err != nil {
			return fmt.Errorf("insert %s: %w", name, err)
		}
	}
	return nil
}

// NewS3Client returns a path style client for the object store at endpoint.
func NewS3Client(ctx context.Context, endpoint, accessKey, secretKey string) (*s3.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{
		// region is required by the SDK even for custom endpoints
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	}
	if endpoint != "" {
		loadOpts = append(loadOpts, config.WithBaseEndpoint(endpoint))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	}), nil
}

// UploadDocuments writes one <table>.json object per table below prefix,
// creating the bucket when it does not exist.
func UploadDocuments(ctx context.Context, client *s3.Client, bucket, prefix string, raw tca.RawTCA) error {
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		if _, cerr := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); cerr != nil {
			var apiErr smithy.APIError
			if !errors.As(cerr, &apiErr) {
				return fmt.Errorf("create bucket: %w", cerr)
			}
			if code := apiErr.ErrorCode(); code != "BucketAlreadyOwnedByYou" && code != "BucketAlreadyExists" {
				return fmt.Errorf("create bucket: %w", cerr)
			}
		}
	}

	uploader := manager.NewUploader(client)
	for name, document := range raw {
		data, err := json.Marshal(document)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", name, err)
		}
		if _, err := uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(bucket),
			Key:         aws.String(prefix + name + ".json"),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/json"),
		}); err != nil {
			return fmt.Errorf("s3 upload %s: %w", name, err)
		}
	}
	return nil
}
