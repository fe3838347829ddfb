// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math/big"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"github.com/blinklabs-io/elections/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"google.golang.org/api/option"
)

const defaultTimeout = 30 * time.Second

// objectStore is the subset of bucket operations used by the store
type objectStore interface {
	read(ctx context.Context, key string) ([]byte, error)
	write(ctx context.Context, key string, val []byte) error
	remove(ctx context.Context, key string) error
}

// bucketStore maps blob keys to object names with types.BlobObjectName
type bucketStore struct {
	bucket *storage.BucketHandle
}

func (b *bucketStore) object(key string) *storage.ObjectHandle {
	return b.bucket.Object(types.BlobObjectName([]byte(key)))
}

func (b *bucketStore) read(ctx context.Context, key string) ([]byte, error) {
	r, err := b.object(key).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (b *bucketStore) write(ctx context.Context, key string, val []byte) error {
	w := b.object(key).NewWriter(ctx)
	if _, err := w.Write(val); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (b *bucketStore) remove(ctx context.Context, key string) error {
	err := b.object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

// BlobStoreGCS keeps proposal state as one object per key in a Google
// Cloud Storage bucket. Writes are staged in the transaction and only
// uploaded on commit.
type BlobStoreGCS struct {
	promRegistry    prometheus.Registerer
	logger          *GcsLogger
	client          *storage.Client
	objects         objectStore
	opsTotal        prometheus.Counter
	bucketName      string
	credentialsFile string
	timeout         time.Duration
}

type gcsTxn struct {
	store     *BlobStoreGCS
	staged    *types.StagedWrites
	finished  bool
	readWrite bool
}

func NewWithOptions(opts ...BlobStoreGCSOptionFunc) (*BlobStoreGCS, error) {
	db := &BlobStoreGCS{
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(db)
	}
	if db.logger == nil {
		db.logger = NewGcsLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	}
	return db, nil
}

// ValidateCredentials checks that a configured credentials file exists
func ValidateCredentials(credentialsFile string) error {
	if credentialsFile == "" {
		return nil
	}
	if _, err := os.Stat(credentialsFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf(
				"GCS credentials file does not exist: %s",
				credentialsFile,
			)
		}
		return fmt.Errorf("GCS credentials file: %w", err)
	}
	return nil
}

func (d *BlobStoreGCS) SetLogger(logger *slog.Logger) {
	d.logger = NewGcsLogger(logger)
}

func (d *BlobStoreGCS) SetPromRegistry(registry prometheus.Registerer) {
	d.promRegistry = registry
}

func (d *BlobStoreGCS) Start() error {
	if d.bucketName == "" {
		return errors.New("gcs blob: bucket not set")
	}
	if d.objects == nil {
		if err := ValidateCredentials(d.credentialsFile); err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		clientOpts := []option.ClientOption{
			storage.WithDisabledClientMetrics(),
		}
		if d.credentialsFile != "" {
			clientOpts = append(
				clientOpts,
				option.WithCredentialsFile(d.credentialsFile),
			)
		}
		client, err := storage.NewGRPCClient(ctx, clientOpts...)
		if err != nil {
			return fmt.Errorf(
				"gcs blob: failed in creating storage client: %w",
				err,
			)
		}
		d.client = client
		d.objects = &bucketStore{bucket: client.Bucket(d.bucketName)}
	}
	d.init()
	return nil
}

func (d *BlobStoreGCS) init() {
	if d.promRegistry != nil && d.opsTotal == nil {
		d.opsTotal = promauto.With(d.promRegistry).NewCounter(
			prometheus.CounterOpts{
				Name: "database_blob_ops_total",
				Help: "Total number of GCS blob operations",
			},
		)
	}
}

func (d *BlobStoreGCS) countOp() {
	if d.opsTotal != nil {
		d.opsTotal.Inc()
	}
}

func (d *BlobStoreGCS) Stop() error {
	return d.Close()
}

func (d *BlobStoreGCS) Close() error {
	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	d.client = nil
	d.objects = nil
	return err
}

func (d *BlobStoreGCS) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d.timeout)
}

func (d *BlobStoreGCS) NewTransaction(readWrite bool) types.Txn {
	t := &gcsTxn{store: d, readWrite: readWrite}
	if readWrite {
		t.staged = types.NewStagedWrites()
	}
	return t
}

func (d *BlobStoreGCS) validateTxn(txn types.Txn) (*gcsTxn, error) {
	if txn == nil {
		return nil, types.ErrNilTxn
	}
	t, ok := txn.(*gcsTxn)
	if !ok || t.store != d {
		return nil, types.ErrTxnWrongType
	}
	if t.finished {
		return nil, types.ErrTxnFinished
	}
	if d.objects == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	return t, nil
}

func (d *BlobStoreGCS) Get(txn types.Txn, key []byte) ([]byte, error) {
	t, err := d.validateTxn(txn)
	if err != nil {
		return nil, err
	}
	if t.staged != nil {
		if val, deleted, found := t.staged.Get(key); found {
			if deleted {
				return nil, types.ErrBlobKeyNotFound
			}
			return val, nil
		}
	}
	ctx, cancel := d.opContext()
	defer cancel()
	d.countOp()
	data, err := d.objects.read(ctx, string(key))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, types.ErrBlobKeyNotFound
		}
		d.logger.Errorf("gcs get %q failed: %v", string(key), err)
		return nil, err
	}
	return data, nil
}

func (d *BlobStoreGCS) Set(txn types.Txn, key, val []byte) error {
	t, err := d.validateTxn(txn)
	if err != nil {
		return err
	}
	if !t.readWrite {
		return types.ErrTxnReadOnly
	}
	t.staged.Set(key, val)
	return nil
}

func (d *BlobStoreGCS) Delete(txn types.Txn, key []byte) error {
	t, err := d.validateTxn(txn)
	if err != nil {
		return err
	}
	if !t.readWrite {
		return types.ErrTxnReadOnly
	}
	t.staged.Delete(key)
	return nil
}

func (d *BlobStoreGCS) GetCommitTimestamp() (int64, error) {
	txn := d.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck

	val, err := d.Get(txn, []byte(types.CommitTimestampBlobKey))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return new(big.Int).SetBytes(val).Int64(), nil
}

func (d *BlobStoreGCS) SetCommitTimestamp(ts int64, txn types.Txn) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	raw := new(big.Int).SetInt64(ts).Bytes()
	return d.Set(txn, []byte(types.CommitTimestampBlobKey), raw)
}

func (t *gcsTxn) Commit() error {
	if t.finished {
		return nil
	}
	t.finished = true
	if t.staged == nil || t.staged.Len() == 0 {
		return nil
	}
	d := t.store
	if d.objects == nil {
		return types.ErrBlobStoreUnavailable
	}
	ctx, cancel := d.opContext()
	defer cancel()
	err := t.staged.Apply(
		func(key string, val []byte) error {
			d.countOp()
			return d.objects.write(ctx, key, val)
		},
		func(key string) error {
			d.countOp()
			return d.objects.remove(ctx, key)
		},
	)
	t.staged.Reset()
	if err != nil {
		d.logger.Errorf("gcs commit failed: %v", err)
		return fmt.Errorf("gcs blob: commit: %w", err)
	}
	return nil
}

func (t *gcsTxn) Rollback() error {
	if t.finished {
		return nil
	}
	if t.staged != nil {
		t.staged.Reset()
	}
	t.finished = true
	return nil
}
