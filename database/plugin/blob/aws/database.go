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

package aws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/blinklabs-io/elections/database/types"
	"github.com/prometheus/client_golang/prometheus"
)

const defaultTimeout = 60 * time.Second

// objectAPI is the subset of the S3 client used by the store
type objectAPI interface {
	GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(context.Context, *s3.DeleteObjectInput, ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// BlobStoreS3 keeps proposal state as one S3 object per key. S3 has no
// multi-object transactions, so writes are staged in the transaction and
// only uploaded on commit.
type BlobStoreS3 struct {
	promRegistry prometheus.Registerer
	logger       *S3Logger
	client       objectAPI
	metrics      *s3Metrics
	bucket       string
	prefix       string
	region       string
	endpoint     string
	timeout      time.Duration
}

type s3Txn struct {
	store     *BlobStoreS3
	staged    *types.StagedWrites
	finished  bool
	readWrite bool
}

func NewWithOptions(opts ...BlobStoreS3OptionFunc) (*BlobStoreS3, error) {
	db := &BlobStoreS3{
		timeout: defaultTimeout,
		metrics: newS3Metrics(),
	}
	for _, opt := range opts {
		opt(db)
	}
	if db.logger == nil {
		db.logger = NewS3Logger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	}
	// AWS config loading and validation happen in Start()
	return db, nil
}

func (d *BlobStoreS3) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d.timeout)
}

func (d *BlobStoreS3) SetLogger(logger *slog.Logger) {
	d.logger = NewS3Logger(logger)
}

func (d *BlobStoreS3) SetPromRegistry(registry prometheus.Registerer) {
	d.promRegistry = registry
}

func (d *BlobStoreS3) Start() error {
	if d.bucket == "" {
		return errors.New("s3 blob: bucket not set")
	}
	if d.client != nil {
		return nil
	}
	ctx, cancel := d.opContext()
	defer cancel()
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("s3 blob: load default AWS config: %w", err)
	}
	if d.region != "" {
		awsCfg.Region = d.region
	}
	d.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if d.endpoint != "" {
			// S3 compatible services such as MinIO
			o.BaseEndpoint = aws.String(d.endpoint)
			o.UsePathStyle = true
		}
	})
	return d.init()
}

func (d *BlobStoreS3) init() error {
	if d.promRegistry != nil {
		d.metrics.register(d.promRegistry)
	}
	return nil
}

func (d *BlobStoreS3) Stop() error {
	// S3 client doesn't need explicit closing
	return nil
}

func (d *BlobStoreS3) Close() error {
	return d.Stop()
}

func (d *BlobStoreS3) Bucket() string {
	return d.bucket
}

func (d *BlobStoreS3) NewTransaction(readWrite bool) types.Txn {
	t := &s3Txn{store: d, readWrite: readWrite}
	if readWrite {
		t.staged = types.NewStagedWrites()
	}
	return t
}

func (d *BlobStoreS3) validateTxn(txn types.Txn) (*s3Txn, error) {
	if txn == nil {
		return nil, types.ErrNilTxn
	}
	t, ok := txn.(*s3Txn)
	if !ok || t.store != d {
		return nil, types.ErrTxnWrongType
	}
	if t.finished {
		return nil, types.ErrTxnFinished
	}
	if d.client == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	return t, nil
}

func (t *s3Txn) assertWritable() error {
	if !t.readWrite {
		return types.ErrTxnReadOnly
	}
	return nil
}

func (d *BlobStoreS3) Get(txn types.Txn, key []byte) ([]byte, error) {
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
	data, err := d.getInternal(ctx, string(key))
	if err != nil {
		if isS3NotFound(err) {
			return nil, types.ErrBlobKeyNotFound
		}
		return nil, err
	}
	return data, nil
}

func (d *BlobStoreS3) Set(txn types.Txn, key, val []byte) error {
	t, err := d.validateTxn(txn)
	if err != nil {
		return err
	}
	if err := t.assertWritable(); err != nil {
		return err
	}
	t.staged.Set(key, val)
	return nil
}

func (d *BlobStoreS3) Delete(txn types.Txn, key []byte) error {
	t, err := d.validateTxn(txn)
	if err != nil {
		return err
	}
	if err := t.assertWritable(); err != nil {
		return err
	}
	t.staged.Delete(key)
	return nil
}

func (d *BlobStoreS3) GetCommitTimestamp() (int64, error) {
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

func (d *BlobStoreS3) SetCommitTimestamp(ts int64, txn types.Txn) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	raw := new(big.Int).SetInt64(ts).Bytes()
	return d.Set(txn, []byte(types.CommitTimestampBlobKey), raw)
}

// Commit uploads the staged writes. An upload failure part way through
// leaves the earlier objects written, which the commit timestamp check
// detects on the next startup.
func (t *s3Txn) Commit() error {
	if t.finished {
		return nil
	}
	t.finished = true
	if t.staged == nil || t.staged.Len() == 0 {
		return nil
	}
	d := t.store
	if d.client == nil {
		return types.ErrBlobStoreUnavailable
	}
	ctx, cancel := d.opContext()
	defer cancel()
	err := t.staged.Apply(
		func(key string, val []byte) error {
			return d.putInternal(ctx, key, val)
		},
		func(key string) error {
			return d.deleteInternal(ctx, key)
		},
	)
	t.staged.Reset()
	if err != nil {
		return fmt.Errorf("s3 blob: commit: %w", err)
	}
	return nil
}

func (t *s3Txn) Rollback() error {
	if t.finished {
		return nil
	}
	if t.staged != nil {
		t.staged.Reset()
	}
	t.finished = true
	return nil
}

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) &&
		(apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound") {
		return true
	}
	var noSuchKey *s3types.NoSuchKey
	return errors.As(err, &noSuchKey)
}

func (d *BlobStoreS3) fullKey(key string) string {
	return d.prefix + types.BlobObjectName([]byte(key))
}

func (d *BlobStoreS3) getInternal(
	ctx context.Context,
	key string,
) ([]byte, error) {
	d.metrics.ops.Inc()
	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.fullKey(key)),
	})
	if err != nil {
		if !isS3NotFound(err) {
			d.logger.Errorf("s3 get %q failed: %v", key, err)
		}
		return nil, err
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		d.logger.Errorf("s3 read %q failed: %v", key, err)
		return nil, err
	}
	d.metrics.bytes.Add(float64(len(data)))
	d.logger.Debugf("s3 get %q ok (%d bytes)", key, len(data))
	return data, nil
}

func (d *BlobStoreS3) putInternal(
	ctx context.Context,
	key string,
	value []byte,
) error {
	d.metrics.ops.Inc()
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.fullKey(key)),
		Body:   bytes.NewReader(value),
	})
	if err != nil {
		d.logger.Errorf("s3 put %q failed: %v", key, err)
		return err
	}
	d.metrics.bytes.Add(float64(len(value)))
	d.logger.Debugf("s3 put %q ok (%d bytes)", key, len(value))
	return nil
}

func (d *BlobStoreS3) deleteInternal(ctx context.Context, key string) error {
	d.metrics.ops.Inc()
	_, err := d.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.fullKey(key)),
	})
	if err != nil && !isS3NotFound(err) {
		d.logger.Errorf("s3 delete %q failed: %v", key, err)
		return err
	}
	return nil
}
