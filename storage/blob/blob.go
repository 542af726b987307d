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
	"strings"

	"github.com/gorse-io/roadmap/common/log"
	"github.com/gorse-io/roadmap/config"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Store keeps named binary objects. Writes become visible when the writer
// returned by Create is closed without error. Close releases the client.
type Store interface {
	io.Closer
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Create(ctx context.Context, name string) (io.WriteCloser, error)
	List(ctx context.Context) ([]string, error)
	Remove(ctx context.Context, name string) error
}

// Open creates the store selected by cfg.Store.
func Open(cfg config.ModelConfig) (Store, error) {
	switch cfg.Store {
	case "", "posix":
		return NewPOSIX(cfg.Dir), nil
	case "s3":
		log.Logger().Debug("open s3 store", zap.String("endpoint", log.RedactURL(cfg.S3.Endpoint)),
			zap.String("bucket", cfg.S3.Bucket))
		return NewS3(cfg.S3)
	case "gcs":
		log.Logger().Debug("open gcs store", zap.String("bucket", cfg.GCS.Bucket))
		return NewGCS(cfg.GCS)
	case "azure":
		endpoint := cfg.Azure.Endpoint
		if endpoint == "" {
			endpoint = cfg.Azure.ConnectionString
		}
		log.Logger().Debug("open azure store", zap.String("endpoint", log.RedactURL(endpoint)),
			zap.String("container", cfg.Azure.Container))
		return NewAzureBlob(cfg.Azure)
	default:
		return nil, errors.NotSupportedf("blob store %q", cfg.Store)
	}
}

// pipeWriter streams writes into an upload running in the background. Close
// returns once the upload has finished.
type pipeWriter struct {
	*io.PipeWriter
	done chan error
}

func newPipeWriter(upload func(r io.Reader) error) *pipeWriter {
	pr, pw := io.Pipe()
	w := &pipeWriter{PipeWriter: pw, done: make(chan error, 1)}
	go func() {
		err := upload(pr)
		// unblock the writer if the upload stopped early
		_ = pr.CloseWithError(err)
		w.done <- err
	}()
	return w
}

func (w *pipeWriter) Close() error {
	if err := w.PipeWriter.Close(); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(<-w.done)
}

func objectName(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

func trimPrefix(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	name = strings.TrimPrefix(name, prefix)
	return strings.TrimPrefix(name, "/")
}
