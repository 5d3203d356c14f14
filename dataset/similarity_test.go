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

package dataset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

const eps = 1e-5

// matrixOf builds a Matrix directly from dense values for similarity tests.
func matrixOf(values [][]float32) *Matrix {
	m := &Matrix{Values: values}
	m.userIndex = make(map[int]int32)
	m.isbnIndex = make(map[string]int32)
	for i := range values {
		m.UserIDs = append(m.UserIDs, i+1)
		m.userIndex[i+1] = int32(i)
	}
	if len(values) > 0 {
		for j := range values[0] {
			isbn := string(rune('a' + j))
			m.ISBNs = append(m.ISBNs, isbn)
			m.isbnIndex[isbn] = int32(j)
		}
	}
	for _, row := range values {
		for _, v := range row {
			if v > 0 {
				m.numRated++
			}
		}
	}
	return m
}

func TestSimilaritySymmetric(t *testing.T) {
	m := matrixOf([][]float32{
		{5, 3, 0, 1},
		{4, 0, 0, 1},
		{1, 1, 0, 5},
		{1, 0, 0, 4},
		{0, 1, 5, 4},
	})
	sim, err := Similarity(context.Background(), m, 4)
	assert.NoError(t, err)
	for i := range sim {
		for j := range sim {
			assert.InDelta(t, sim[i][j], sim[j][i], eps)
		}
		assert.InDelta(t, 1, sim[i][i], eps)
	}
}

func TestSimilarityIdenticalRows(t *testing.T) {
	m := matrixOf([][]float32{
		{5, 3, 4},
		{5, 3, 4},
		{1, 5, 2},
	})
	sim, err := Similarity(context.Background(), m, 1)
	assert.NoError(t, err)
	// identical rating vectors center identically, cosine is 1
	assert.InDelta(t, 1, sim[0][1], eps)
}

func TestSimilarityZeroRow(t *testing.T) {
	m := matrixOf([][]float32{
		{5, 3, 4},
		{0, 0, 0},
		{1, 5, 2},
	})
	sim, err := Similarity(context.Background(), m, 2)
	assert.NoError(t, err)
	// the user without ratings is similar to nobody, including themselves
	assert.Zero(t, sim[1][0])
	assert.Zero(t, sim[1][1])
	assert.Zero(t, sim[1][2])
}

func TestSimilarityCentering(t *testing.T) {
	// two users rating both books with the same relative preference but a
	// different scale bias are perfectly similar after mean-centering
	m := matrixOf([][]float32{
		{2, 4},
		{6, 8},
	})
	sim, err := Similarity(context.Background(), m, 1)
	assert.NoError(t, err)
	assert.InDelta(t, 1, sim[0][1], eps)
}
