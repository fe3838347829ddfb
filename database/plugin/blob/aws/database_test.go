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
	"io"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/blinklabs-io/elections/database/types"
	"github.com/blinklabs-io/elections/proposal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	puts    int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) GetObject(
	_ context.Context,
	in *s3.GetObjectInput,
	_ ...func(*s3.Options),
) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(bytes.Clone(data))),
	}, nil
}

func (f *fakeS3) PutObject(
	_ context.Context,
	in *s3.PutObjectInput,
	_ ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts++
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(
	_ context.Context,
	in *s3.DeleteObjectInput,
	_ ...func(*s3.Options),
) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func newTestStore(t *testing.T, client objectAPI) *BlobStoreS3 {
	t.Helper()
	store, err := NewWithOptions(
		WithBucket("test-bucket"),
		WithPrefix("elections"),
		withClient(client),
	)
	require.NoError(t, err)
	require.NoError(t, store.Start())
	return store
}

func TestS3WritesStagedUntilCommit(t *testing.T) {
	client := newFakeS3()
	store := newTestStore(t, client)

	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("key"), []byte("value")))
	// Read your own writes
	val, err := store.Get(txn, []byte("key"))
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), val)
	assert.Empty(t, client.objects)

	require.NoError(t, txn.Commit())
	assert.Equal(t, []byte("value"), client.objects["elections/6b6579"])
}

func TestS3ObjectNamesAreUtf8(t *testing.T) {
	client := newFakeS3()
	store := newTestStore(t, client)

	voterKey := append(types.ProposalStorageKey(1), 'v')
	voterKey = append(voterKey, proposal.TokenKey(200)...)
	keys := [][]byte{types.ProposalBlobKey(128), voterKey}

	txn := store.NewTransaction(true)
	for i, key := range keys {
		require.NoError(t, store.Set(txn, key, []byte{byte(i)}))
	}
	require.NoError(t, txn.Commit())

	assert.Contains(t, client.objects, "elections/7000000080")
	assert.Contains(t, client.objects, "elections/73000000017600000000000000c8")
	for name := range client.objects {
		assert.True(t, utf8.ValidString(name), "object name %q", name)
	}

	txn = store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	for i, key := range keys {
		val, err := store.Get(txn, key)
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(i)}, val)
	}
}

func TestS3RollbackDiscardsWrites(t *testing.T) {
	client := newFakeS3()
	store := newTestStore(t, client)

	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("key"), []byte("value")))
	require.NoError(t, txn.Rollback())
	assert.Empty(t, client.objects)
	assert.Equal(t, 0, client.puts)

	_, err := store.Get(txn, []byte("key"))
	require.ErrorIs(t, err, types.ErrTxnFinished)
}

func TestS3StagedDelete(t *testing.T) {
	client := newFakeS3()
	client.objects["elections/6b6579"] = []byte("old")
	store := newTestStore(t, client)

	txn := store.NewTransaction(true)
	require.NoError(t, store.Delete(txn, []byte("key")))
	_, err := store.Get(txn, []byte("key"))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
	// Still visible outside the transaction
	assert.Contains(t, client.objects, "elections/6b6579")

	require.NoError(t, txn.Commit())
	assert.NotContains(t, client.objects, "elections/6b6579")
}

func TestS3ReadOnlyTxn(t *testing.T) {
	store := newTestStore(t, newFakeS3())
	txn := store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	require.ErrorIs(
		t,
		store.Set(txn, []byte("key"), []byte("value")),
		types.ErrTxnReadOnly,
	)
	_, err := store.Get(txn, []byte("missing"))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

func TestS3CommitError(t *testing.T) {
	client := newFakeS3()
	client.putErr = errors.New("access denied")
	store := newTestStore(t, client)

	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("key"), []byte("value")))
	err := txn.Commit()
	require.ErrorIs(t, err, client.putErr)
}

func TestS3CommitTimestamp(t *testing.T) {
	store := newTestStore(t, newFakeS3())
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(0), ts)

	txn := store.NewTransaction(true)
	require.NoError(t, store.SetCommitTimestamp(1234567, txn))
	require.NoError(t, txn.Commit())

	ts, err = store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(1234567), ts)
}

func TestS3StartRequiresBucket(t *testing.T) {
	store, err := NewWithOptions()
	require.NoError(t, err)
	require.Error(t, store.Start())
}

func TestS3Metrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	store, err := NewWithOptions(
		WithBucket("test-bucket"),
		WithPromRegistry(registry),
		withClient(newFakeS3()),
	)
	require.NoError(t, err)
	require.NoError(t, store.Start())

	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("key"), []byte("value")))
	require.NoError(t, txn.Commit())
	assert.InDelta(t, 1, testutil.ToFloat64(store.metrics.ops), 0)
	assert.InDelta(t, 5, testutil.ToFloat64(store.metrics.bytes), 0)
}

func TestNewFromCmdlineOptions(t *testing.T) {
	cmdlineOptionsMutex.Lock()
	original := cmdlineOptions
	cmdlineOptions.bucket = "test-bucket"
	cmdlineOptions.region = "us-east-1"
	cmdlineOptions.prefix = "test-prefix/"
	cmdlineOptionsMutex.Unlock()
	defer func() {
		cmdlineOptionsMutex.Lock()
		cmdlineOptions = original
		cmdlineOptionsMutex.Unlock()
	}()

	p := NewFromCmdlineOptions()
	store, ok := p.(*BlobStoreS3)
	require.True(t, ok)
	assert.Equal(t, "test-bucket", store.Bucket())
	assert.Equal(t, "test-prefix/", store.prefix)
	assert.Equal(t, "us-east-1", store.region)
}
