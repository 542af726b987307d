// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package blob

import (
	"context"
	"io"
	"testing"

	"github.com/gorse-io/roadmap/config"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore runs a write, list, read and remove cycle against a store.
func testStore(t *testing.T, store Store) {
	ctx := context.Background()

	w, err := store.Create(ctx, "test.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	assert.NoError(t, err)
	require.NoError(t, w.Close())

	names, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, names, "test.txt")

	r, err := store.Open(ctx, "test.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	assert.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.NoError(t, r.Close())

	// overwrite
	w, err = store.Create(ctx, "test.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("world"))
	assert.NoError(t, err)
	require.NoError(t, w.Close())
	r, err = store.Open(ctx, "test.txt")
	require.NoError(t, err)
	data, err = io.ReadAll(r)
	assert.NoError(t, err)
	assert.Equal(t, "world", string(data))
	assert.NoError(t, r.Close())

	_, err = store.Open(ctx, "missing.txt")
	assert.True(t, errors.Is(err, errors.NotFound), "%v", err)

	assert.NoError(t, store.Remove(ctx, "test.txt"))
	names, err = store.List(ctx)
	assert.NoError(t, err)
	assert.NotContains(t, names, "test.txt")

	assert.NoError(t, store.Close())
}

func TestOpen(t *testing.T) {
	store, err := Open(config.ModelConfig{Store: "posix", Dir: t.TempDir()})
	assert.NoError(t, err)
	assert.IsType(t, &POSIX{}, store)

	_, err = Open(config.ModelConfig{Store: "ftp"})
	assert.True(t, errors.Is(err, errors.NotSupported))

	_, err = Open(config.ModelConfig{Store: "azure"})
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestObjectName(t *testing.T) {
	assert.Equal(t, "model", objectName("", "model"))
	assert.Equal(t, "blob/model", objectName("/blob/", "model"))
	assert.Equal(t, "blob/", objectName("blob", ""))
	assert.Equal(t, "model", trimPrefix("blob", "blob/model"))
	assert.Equal(t, "model", trimPrefix("", "model"))
}

func TestPipeWriter(t *testing.T) {
	var received []byte
	w := newPipeWriter(func(r io.Reader) error {
		var err error
		received, err = io.ReadAll(r)
		return err
	})
	_, err := w.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.Equal(t, "hello", string(received))

	// upload failure is returned by Close
	w = newPipeWriter(func(r io.Reader) error {
		return errors.New("connection reset")
	})
	_, _ = w.Write([]byte("hello"))
	assert.ErrorContains(t, w.Close(), "connection reset")
}
