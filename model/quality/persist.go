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

package quality

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorse-io/roadmap/common/encoding"
	"github.com/gorse-io/roadmap/common/log"
	"github.com/gorse-io/roadmap/dataset"
	"github.com/gorse-io/roadmap/model"
	"github.com/gorse-io/roadmap/storage/blob"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

const (
	artifactMagic = "roadmap.artifact.v1"
	saveTries     = 3
)

// Metadata describes a stored predictor artifact.
type Metadata struct {
	Name      string
	SavedAt   time.Time
	Checksum  string
	SizeBytes int64
}

// Save persists a trained predictor under name. The artifact is the magic string,
// gob-encoded metadata and the gzip-compressed model. Transient store failures are
// retried.
func Save(ctx context.Context, store blob.Store, name string, p *Predictor) error {
	var raw bytes.Buffer
	if err := p.Marshal(&raw); err != nil {
		return errors.Trace(err)
	}
	hash := sha256.Sum256(raw.Bytes())
	meta := Metadata{
		Name:      name,
		SavedAt:   time.Now().UTC(),
		Checksum:  hex.EncodeToString(hash[:]),
		SizeBytes: int64(raw.Len()),
	}
	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return errors.Trace(err)
	}
	if err := gzw.Close(); err != nil {
		return errors.Trace(err)
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, writeArtifact(ctx, store, name, meta, compressed.Bytes())
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(saveTries))
	if err != nil {
		return errors.Annotatef(err, "failed to save predictor %s", name)
	}
	log.Logger().Info("save quality predictor",
		zap.String("name", name), zap.String("checksum", meta.Checksum), zap.Int64("size", meta.SizeBytes))
	return nil
}

func writeArtifact(ctx context.Context, store blob.Store, name string, meta Metadata, data []byte) error {
	w, err := store.Create(ctx, name)
	if err != nil {
		return errors.Trace(err)
	}
	if err = encoding.WriteString(w, artifactMagic); err == nil {
		if err = encoding.WriteGob(w, meta); err == nil {
			err = encoding.WriteBytes(w, data)
		}
	}
	if closeErr := w.Close(); err == nil {
		err = closeErr
	}
	return errors.Trace(err)
}

// Load reads a predictor saved by Save. A missing artifact is errors.NotFound and a
// damaged one is errors.NotValid.
func Load(ctx context.Context, store blob.Store, name string) (*Predictor, error) {
	r, err := store.Open(ctx, name)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer r.Close()

	magic, err := encoding.ReadString(r)
	if err != nil {
		return nil, errors.NewNotValid(err, "failed to read artifact header")
	}
	if magic != artifactMagic {
		return nil, errors.NotValidf("artifact header %q", magic)
	}
	var meta Metadata
	if err = encoding.ReadGob(r, &meta); err != nil {
		return nil, errors.NewNotValid(err, "failed to read artifact metadata")
	}
	compressed, err := encoding.ReadBytes(r)
	if err != nil {
		return nil, errors.NewNotValid(err, "failed to read artifact payload")
	}
	gzr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, errors.NewNotValid(err, "failed to decompress artifact")
	}
	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, errors.NewNotValid(err, "failed to decompress artifact")
	}
	hash := sha256.Sum256(raw)
	if checksum := hex.EncodeToString(hash[:]); checksum != meta.Checksum {
		return nil, errors.NotValidf("artifact checksum %s, expected %s", checksum, meta.Checksum)
	}
	p := new(Predictor)
	if err = p.Unmarshal(bytes.NewReader(raw)); err != nil {
		return nil, errors.NewNotValid(err, "failed to decode predictor")
	}
	log.Logger().Info("load quality predictor",
		zap.String("name", name), zap.Time("saved_at", meta.SavedAt))
	return p, nil
}

// LoadOrTrain loads the predictor named name. If it is missing, damaged or was
// trained with other hyper-parameters, a new predictor is trained on items and
// saved in its place. Failing to save is logged only.
func LoadOrTrain(ctx context.Context, store blob.Store, name string, params model.Params, items []*dataset.Item, config *FitConfig) (*Predictor, error) {
	fresh := NewPredictor(params)
	p, err := Load(ctx, store, name)
	switch {
	case err == nil:
		if p.GetParams().ToString() == fresh.GetParams().ToString() {
			return p, nil
		}
		log.Logger().Info("quality predictor trained with other hyper-parameters, train a new one",
			zap.String("name", name),
			zap.String("stored", p.GetParams().ToString()),
			zap.String("expected", fresh.GetParams().ToString()))
		removeArtifact(ctx, store, name)
	case errors.Is(err, errors.NotFound):
		log.Logger().Info("quality predictor not found, train a new one", zap.String("name", name))
	default:
		log.Logger().Warn("failed to load quality predictor, train a new one", zap.String("name", name), zap.Error(err))
		removeArtifact(ctx, store, name)
	}
	if _, err = fresh.Fit(ctx, items, config); err != nil {
		return nil, errors.Trace(err)
	}
	if err = Save(ctx, store, name, fresh); err != nil {
		log.Logger().Error("failed to save quality predictor", zap.String("name", name), zap.Error(err))
	}
	return fresh, nil
}

// removeArtifact deletes an unusable artifact so that a failed retrain does not
// leave it behind for the next invocation.
func removeArtifact(ctx context.Context, store blob.Store, name string) {
	if err := store.Remove(ctx, name); err != nil && !errors.Is(err, errors.NotFound) {
		log.Logger().Warn("failed to remove quality predictor", zap.String("name", name), zap.Error(err))
	}
}
