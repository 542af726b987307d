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

package nn

import "fmt"

// Matrix is a dense row-major matrix of float32.
type Matrix struct {
	Rows int
	Cols int
	Data []float32
}

func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{Rows: rows, Cols: cols, Data: make([]float32, rows*cols)}
}

// NewMatrixFromRows copies rows into a new matrix. All rows must have the same length.
func NewMatrixFromRows(rows [][]float32) *Matrix {
	if len(rows) == 0 {
		return NewMatrix(0, 0)
	}
	m := NewMatrix(len(rows), len(rows[0]))
	for i, row := range rows {
		if len(row) != m.Cols {
			panic(fmt.Sprintf("row %d has %d columns, expected %d", i, len(row), m.Cols))
		}
		copy(m.Row(i), row)
	}
	return m
}

func (m *Matrix) Row(i int) []float32 {
	return m.Data[i*m.Cols : (i+1)*m.Cols]
}

func (m *Matrix) At(i, j int) float32 {
	return m.Data[i*m.Cols+j]
}

// Gather returns a new matrix made of the selected rows.
func (m *Matrix) Gather(indices []int) *Matrix {
	g := NewMatrix(len(indices), m.Cols)
	for i, index := range indices {
		copy(g.Row(i), m.Row(index))
	}
	return g
}
