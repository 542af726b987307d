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
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gorse-io/roadmap/common/log"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

const tempSuffix = ".tmp"

type POSIX struct {
	dir string
}

func NewPOSIX(dir string) *POSIX {
	return &POSIX{dir: dir}
}

// Open a file for reading. A missing file is reported as errors.NotFound.
func (p *POSIX) Open(_ context.Context, name string) (io.ReadCloser, error) {
	file, err := os.Open(filepath.Join(p.dir, name))
	if os.IsNotExist(err) {
		return nil, errors.NotFoundf("blob %s", name)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	return file, nil
}

// Create a file for writing. Data goes to a temporary file that is renamed to its
// final name on Close, so readers never observe a partial file.
func (p *POSIX) Create(_ context.Context, name string) (io.WriteCloser, error) {
	fullPath := filepath.Join(p.dir, name)
	if err := os.MkdirAll(filepath.Dir(fullPath), os.ModePerm); err != nil {
		return nil, errors.Trace(err)
	}
	tempPath := fullPath + "." + uuid.NewString() + tempSuffix
	file, err := os.Create(tempPath)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &posixWriter{File: file, path: fullPath}, nil
}

type posixWriter struct {
	*os.File
	path string
}

func (w *posixWriter) Close() error {
	tempPath := w.File.Name()
	if err := w.File.Close(); err != nil {
		removeTemp(tempPath)
		return errors.Trace(err)
	}
	if err := os.Rename(tempPath, w.path); err != nil {
		removeTemp(tempPath)
		return errors.Trace(err)
	}
	return nil
}

func removeTemp(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Logger().Error("failed to remove temp file", zap.String("file", path), zap.Error(err))
	}
}

func (p *POSIX) Close() error {
	return nil
}

// List returns names of all files under the directory, skipping unfinished writes.
func (p *POSIX) List(_ context.Context) ([]string, error) {
	var names []string
	err := filepath.WalkDir(p.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, tempSuffix) {
			return nil
		}
		name, err := filepath.Rel(p.dir, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(name))
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	return names, errors.Trace(err)
}

func (p *POSIX) Remove(_ context.Context, name string) error {
	err := os.Remove(filepath.Join(p.dir, name))
	if os.IsNotExist(err) {
		return errors.NotFoundf("blob %s", name)
	}
	return errors.Trace(err)
}
