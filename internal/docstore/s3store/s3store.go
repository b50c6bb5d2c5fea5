// Package s3store implements docstore.Store on an S3-compatible bucket.
//
// A collection is the key prefix "<collection>/"; each document is the
// object "<collection>/<name>". Commits are applied object by object and are
// therefore not atomic.
package s3store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/roach88/cfgsync/internal/cfgerr"
	"github.com/roach88/cfgsync/internal/ctxlog"
	"github.com/roach88/cfgsync/internal/docstore"
)

// Config configures a Store.
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Store is a bucket-backed document store.
type Store struct {
	client   *minio.Client
	bucket   string
	region   string
	endpoint string
	secure   bool

	// bucketReady is set once the bucket is known to exist. Failures are
	// not cached, so a later commit retries.
	bucketMu    sync.Mutex
	bucketReady bool
}

var _ docstore.Store = (*Store)(nil)

// New validates cfg and creates the client. No request is made.
func New(cfg Config) (*Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, cfgerr.InvalidConfig("s3 endpoint is required", nil)
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, cfgerr.InvalidConfig("s3 access key and secret key are required", nil)
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, cfgerr.InvalidConfig("s3 bucket is required", nil)
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, cfgerr.InvalidConfig("init s3 client", err)
	}

	return &Store{
		client:   client,
		bucket:   bucket,
		region:   region,
		endpoint: endpoint,
		secure:   cfg.UseSSL,
	}, nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	s.bucketMu.Lock()
	defer s.bucketMu.Unlock()
	if s.bucketReady {
		return nil
	}

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !exists {
		ctxlog.FromContext(ctx).Info("creating bucket", "bucket", s.bucket, "region", s.region)
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return err
		}
	}
	s.bucketReady = true
	return nil
}

// Fetch implements docstore.Store. A missing bucket reads as an empty
// collection.
func (s *Store) Fetch(ctx context.Context, collectionID string) (docstore.Collection, error) {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return nil, cfgerr.RemoteUnavailable(collectionID, "fetch", err)
	}
	docs := make(docstore.Collection)
	if !exists {
		return docs, nil
	}

	names, err := s.list(ctx, collectionID)
	if err != nil {
		return nil, cfgerr.RemoteUnavailable(collectionID, "fetch", err)
	}
	for name := range names {
		content, err := s.get(ctx, objectKey(collectionID, name))
		if err != nil {
			return nil, cfgerr.RemoteUnavailable(collectionID, "fetch "+name, err)
		}
		docs[name] = content
	}
	ctxlog.FromContext(ctx).Debug("fetched prefix", "bucket", s.bucket, "prefix", prefix(collectionID), "documents", len(docs))
	return docs, nil
}

// Commit implements docstore.Store. Deletes run before upserts.
func (s *Store) Commit(ctx context.Context, batch *docstore.Batch) (docstore.CommitResult, error) {
	id := batch.CollectionID
	if err := s.ensureBucket(ctx); err != nil {
		return docstore.CommitResult{}, cfgerr.RemoteUnavailable(id, "commit", fmt.Errorf("ensure bucket: %w", err))
	}

	ops := batch.Ops()
	for _, op := range ops {
		if op.Kind != docstore.OpDelete {
			continue
		}
		if err := s.client.RemoveObject(ctx, s.bucket, objectKey(id, op.Name), minio.RemoveObjectOptions{}); err != nil {
			return docstore.CommitResult{}, cfgerr.RemoteUnavailable(id, "delete "+op.Name, err)
		}
	}
	for _, op := range ops {
		if op.Kind != docstore.OpUpsert {
			continue
		}
		content := []byte(op.Content)
		_, err := s.client.PutObject(ctx, s.bucket, objectKey(id, op.Name), bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
			ContentType: contentType(op.Name),
		})
		if err != nil {
			return docstore.CommitResult{}, cfgerr.RemoteUnavailable(id, "upsert "+op.Name, err)
		}
	}

	sizes, err := s.list(ctx, id)
	if err != nil {
		return docstore.CommitResult{}, cfgerr.RemoteUnavailable(id, "commit", err)
	}
	result := docstore.CommitResult{
		URL:       s.collectionURL(id),
		Documents: make(map[string]docstore.DocumentInfo, len(sizes)),
	}
	for name, size := range sizes {
		result.Documents[name] = docstore.DocumentInfo{Size: size, URL: s.collectionURL(id) + name}
	}
	return result, nil
}

// list returns the document names under the collection prefix with their
// sizes. Nested keys are not documents and are skipped.
func (s *Store) list(ctx context.Context, collectionID string) (map[string]int, error) {
	p := prefix(collectionID)
	out := make(map[string]int)
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: p}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		name, ok := documentName(p, obj.Key)
		if !ok {
			continue
		}
		out[name] = int(obj.Size)
	}
	return out, nil
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Store) collectionURL(collectionID string) string {
	scheme := "http"
	if s.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucket, prefix(collectionID))
}

func prefix(collectionID string) string {
	return strings.Trim(strings.TrimSpace(collectionID), "/") + "/"
}

func objectKey(collectionID, name string) string {
	return prefix(collectionID) + strings.TrimLeft(name, "/")
}

// documentName strips the collection prefix from key. Keys in nested
// "directories" are not part of the collection.
func documentName(prefix, key string) (string, bool) {
	name, ok := strings.CutPrefix(key, prefix)
	if !ok || name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}

func contentType(name string) string {
	if strings.HasSuffix(name, ".md") {
		return "text/markdown; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}
