package internal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/lychee-technology/tca"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// S3API is the subset of the S3 client the source needs.
type S3API interface {
	s3.ListObjectsV2APIClient
	manager.DownloadAPIClient
}

// S3Source loads one document per table from the objects under a prefix.
type S3Source struct {
	client      S3API
	bucket      string
	prefix      string
	concurrency int
	decoder     documentDecoder
}

func NewS3Source(client S3API, bucket, prefix string, concurrency int, validate bool) *S3Source {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &S3Source{
		client:      client,
		bucket:      bucket,
		prefix:      prefix,
		concurrency: concurrency,
		decoder:     documentDecoder{validate: validate},
	}
}

func (s *S3Source) Name() string { return "s3://" + s.bucket + "/" + s.prefix }

type s3Document struct {
	key    string
	table  string
	format documentFormat
	config map[string]any
}

func (s *S3Source) Load(ctx context.Context) (tca.RawTCA, error) {
	docs, err := s.listDocuments(ctx)
	if err != nil {
		return nil, err
	}

	downloader := manager.NewDownloader(s.client, func(d *manager.Downloader) {
		d.Concurrency = 1
	})
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range docs {
		doc := &docs[i]
		g.Go(func() error {
			buf := manager.NewWriteAtBuffer(nil)
			if _, err := downloader.Download(gctx, buf, &s3.GetObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    aws.String(doc.key),
			}); err != nil {
				return classifyS3Error(fmt.Sprintf("failed to download s3://%s/%s", s.bucket, doc.key), err)
			}
			config, err := s.decoder.decode(doc.table, doc.format, buf.Bytes())
			if err != nil {
				return err
			}
			doc.config = config
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make(tca.RawTCA, len(docs))
	for _, doc := range docs {
		if err := collect(result, doc.table, "s3://"+s.bucket+"/"+doc.key, doc.config); err != nil {
			return nil, err
		}
	}
	zap.S().Infow("loaded table configuration from s3", "bucket", s.bucket, "prefix", s.prefix, "tables", len(result))
	return result, nil
}

func (s *S3Source) listDocuments(ctx context.Context) ([]s3Document, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	var docs []s3Document
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classifyS3Error(fmt.Sprintf("failed to list s3://%s/%s", s.bucket, s.prefix), err)
		}
		for _, object := range page.Contents {
			key := aws.ToString(object.Key)
			// only direct children of the prefix are documents
			if strings.Contains(strings.TrimPrefix(key, s.prefix), "/") {
				continue
			}
			table, format, ok := documentName(key)
			if !ok {
				zap.S().Debugw("skipping non configuration object", "bucket", s.bucket, "key", key)
				continue
			}
			docs = append(docs, s3Document{key: key, table: table, format: format})
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].key < docs[j].key })
	return docs, nil
}

func classifyS3Error(message string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			return tca.NewSourceError(tca.ErrCodeSourceAccessDenied, message, err).
				WithDetail("aws_error_code", apiErr.ErrorCode())
		}
		return tca.NewSourceError(tca.ErrCodeSourceLoadFailed, message, err).
			WithDetail("aws_error_code", apiErr.ErrorCode())
	}
	return tca.NewSourceError(tca.ErrCodeSourceLoadFailed, message, err)
}
