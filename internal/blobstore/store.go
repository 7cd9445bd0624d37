// Package blobstore persists revealed metadata payloads off-ledger, addressed
// by their keccak content hash. The registry keeps only the hash; the payload
// bytes live here. Every read re-hashes the returned bytes against the
// requested key, so a corrupted or substituted object can never be served as
// authentic.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/ethereum/go-ethereum/common"

	"github.com/chainspec/registry/internal/idempotency"
)

const (
	DriverS3     = "s3"
	DriverMemory = "memory"

	contentType = "application/octet-stream"

	defaultMaxBlobSize int64 = 16 << 20
)

var (
	ErrInvalidConfig = errors.New("blobstore: invalid config")
	ErrInvalidInput  = errors.New("blobstore: invalid input")
	ErrNotFound      = errors.New("blobstore: not found")
	ErrTooLarge      = errors.New("blobstore: blob too large")
	ErrCorrupt       = errors.New("blobstore: content hash mismatch")
)

// Store is content-addressed blob persistence. Put derives the key from the
// payload; Get verifies the payload against the key.
type Store interface {
	// Put stores payload and returns its content hash. Storing the same
	// payload twice is a no-op returning the same hash.
	Put(ctx context.Context, payload []byte) (common.Hash, error)

	// Get returns the payload for contentHash, verified against the hash.
	Get(ctx context.Context, contentHash common.Hash) ([]byte, error)

	Exists(ctx context.Context, contentHash common.Hash) (bool, error)

	Delete(ctx context.Context, contentHash common.Hash) error
}

type Config struct {
	Driver string
	Prefix string

	// MaxBlobSize bounds payloads in both directions. Defaults to 16 MiB
	// when <= 0.
	MaxBlobSize int64

	// S3 fields.
	Bucket   string
	S3Client S3Client
}

type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

func New(cfg Config) (Store, error) {
	maxSize := cfg.MaxBlobSize
	if maxSize <= 0 {
		maxSize = defaultMaxBlobSize
	}
	switch normalizeDriver(cfg.Driver) {
	case DriverMemory:
		return &memoryStore{
			maxSize: maxSize,
			blobs:   make(map[common.Hash][]byte),
		}, nil
	case DriverS3:
		return newS3Store(cfg, maxSize)
	default:
		return nil, fmt.Errorf("%w: unsupported driver %q", ErrInvalidConfig, cfg.Driver)
	}
}

func normalizeDriver(v string) string {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "" {
		return DriverS3
	}
	return v
}

func validateKey(contentHash common.Hash) error {
	if contentHash == (common.Hash{}) {
		return fmt.Errorf("%w: zero content hash", ErrInvalidInput)
	}
	return nil
}

// verify re-hashes data and checks it against the requested key.
func verify(contentHash common.Hash, data []byte) error {
	if got := idempotency.ContentHashV1(data); got != contentHash {
		return fmt.Errorf("%w: want %s, stored bytes hash to %s", ErrCorrupt, contentHash.Hex(), got.Hex())
	}
	return nil
}

type memoryStore struct {
	mu      sync.RWMutex
	maxSize int64
	blobs   map[common.Hash][]byte
}

func (m *memoryStore) Put(_ context.Context, payload []byte) (common.Hash, error) {
	if len(payload) == 0 {
		return common.Hash{}, fmt.Errorf("%w: empty payload", ErrInvalidInput)
	}
	if int64(len(payload)) > m.maxSize {
		return common.Hash{}, fmt.Errorf("%w: %d bytes, max %d", ErrTooLarge, len(payload), m.maxSize)
	}
	hash := idempotency.ContentHashV1(payload)

	m.mu.Lock()
	if _, ok := m.blobs[hash]; !ok {
		m.blobs[hash] = append([]byte(nil), payload...)
	}
	m.mu.Unlock()
	return hash, nil
}

func (m *memoryStore) Get(_ context.Context, contentHash common.Hash) ([]byte, error) {
	if err := validateKey(contentHash); err != nil {
		return nil, err
	}
	m.mu.RLock()
	data, ok := m.blobs[contentHash]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, contentHash.Hex())
	}
	out := append([]byte(nil), data...)
	if err := verify(contentHash, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *memoryStore) Exists(_ context.Context, contentHash common.Hash) (bool, error) {
	if err := validateKey(contentHash); err != nil {
		return false, err
	}
	m.mu.RLock()
	_, ok := m.blobs[contentHash]
	m.mu.RUnlock()
	return ok, nil
}

func (m *memoryStore) Delete(_ context.Context, contentHash common.Hash) error {
	if err := validateKey(contentHash); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.blobs, contentHash)
	m.mu.Unlock()
	return nil
}

type s3Store struct {
	client  S3Client
	bucket  string
	prefix  string
	maxSize int64
}

func newS3Store(cfg Config, maxSize int64) (Store, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("%w: s3 bucket is required", ErrInvalidConfig)
	}
	if cfg.S3Client == nil {
		return nil, fmt.Errorf("%w: s3 client is required", ErrInvalidConfig)
	}
	return &s3Store{
		client:  cfg.S3Client,
		bucket:  bucket,
		prefix:  strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
		maxSize: maxSize,
	}, nil
}

func (s *s3Store) objectKey(contentHash common.Hash) string {
	hex := contentHash.Hex()
	if s.prefix == "" {
		return hex
	}
	return s.prefix + "/" + hex
}

func (s *s3Store) Put(ctx context.Context, payload []byte) (common.Hash, error) {
	if len(payload) == 0 {
		return common.Hash{}, fmt.Errorf("%w: empty payload", ErrInvalidInput)
	}
	if int64(len(payload)) > s.maxSize {
		return common.Hash{}, fmt.Errorf("%w: %d bytes, max %d", ErrTooLarge, len(payload), s.maxSize)
	}
	hash := idempotency.ContentHashV1(payload)

	// Content-addressed objects are immutable; skip the write if the key is
	// already present.
	ok, err := s.Exists(ctx, hash)
	if err != nil {
		return common.Hash{}, err
	}
	if ok {
		return hash, nil
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(hash)),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("blobstore/s3: put %s: %w", hash.Hex(), err)
	}
	return hash, nil
}

func (s *s3Store) Get(ctx context.Context, contentHash common.Hash) ([]byte, error) {
	if err := validateKey(contentHash); err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(contentHash)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, contentHash.Hex())
		}
		return nil, fmt.Errorf("blobstore/s3: get %s: %w", contentHash.Hex(), err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(out.Body, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("blobstore/s3: read %s: %w", contentHash.Hex(), err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, fmt.Errorf("%w: %s exceeds max %d bytes", ErrTooLarge, contentHash.Hex(), s.maxSize)
	}
	if err := verify(contentHash, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *s3Store) Exists(ctx context.Context, contentHash common.Hash) (bool, error) {
	if err := validateKey(contentHash); err != nil {
		return false, err
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(contentHash)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("blobstore/s3: head %s: %w", contentHash.Hex(), err)
	}
	return true, nil
}

func (s *s3Store) Delete(ctx context.Context, contentHash common.Hash) error {
	if err := validateKey(contentHash); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(contentHash)),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("blobstore/s3: delete %s: %w", contentHash.Hex(), err)
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "NoSuchKey", "NotFound", "404":
		return true
	default:
		return false
	}
}
