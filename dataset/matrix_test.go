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
	"testing"

	"github.com/stretchr/testify/assert"
)

func books(isbns ...string) []Book {
	result := make([]Book, len(isbns))
	for i, isbn := range isbns {
		result[i] = Book{ISBN: isbn, Title: "title " + isbn}
	}
	return result
}

func users(ids ...int) []User {
	result := make([]User, len(ids))
	for i, id := range ids {
		result[i] = User{ID: id}
	}
	return result
}

func TestBuildMatrix(t *testing.T) {
	d := &Dataset{
		Books: books("a", "b", "c"),
		Users: users(1, 2, 3),
		Ratings: []Rating{
			{1, "a", 5}, {1, "b", 3},
			{2, "a", 4}, {2, "b", 2},
			{3, "a", 1},
			{3, "d", 9},  // unknown book, dropped by the join
			{9, "a", 9},  // unknown user, dropped by the join
			{2, "c", 0},  // absent feedback
			{1, "c", -1}, // absent feedback
		},
	}
	m, err := BuildMatrix(d, 2, 2)
	assert.NoError(t, err)
	// user 3 has a single surviving rating and is dropped
	assert.Equal(t, []int{1, 2}, m.UserIDs)
	assert.Equal(t, []string{"a", "b"}, m.ISBNs)
	assert.Equal(t, [][]float32{{5, 3}, {4, 2}}, m.Values)
	assert.Equal(t, 4, m.NumRatings())

	// threshold invariants
	for _, row := range m.Values {
		nonzero := 0
		for _, v := range row {
			if v > 0 {
				nonzero++
			}
		}
		assert.GreaterOrEqual(t, nonzero, 2)
	}
	for j := range m.ISBNs {
		nonzero := 0
		for i := range m.UserIDs {
			if m.Values[i][j] > 0 {
				nonzero++
			}
		}
		assert.GreaterOrEqual(t, nonzero, 2)
	}

	assert.Equal(t, int32(0), m.UserIndex(1))
	assert.Equal(t, int32(1), m.UserIndex(2))
	assert.Equal(t, NotId, m.UserIndex(42))
	assert.Equal(t, int32(0), m.ISBNIndex("a"))
	assert.Equal(t, NotId, m.ISBNIndex("z"))
}

func TestBuildMatrixDuplicatesAveraged(t *testing.T) {
	d := &Dataset{
		Books: books("a", "b"),
		Users: users(1, 2),
		Ratings: []Rating{
			{1, "a", 4}, {1, "a", 8}, {1, "b", 3},
			{2, "a", 5}, {2, "b", 5},
		},
	}
	m, err := BuildMatrix(d, 2, 2)
	assert.NoError(t, err)
	assert.Equal(t, float32(6), m.Values[m.UserIndex(1)][m.ISBNIndex("a")])
}

func TestBuildMatrixEmpty(t *testing.T) {
	// only absent feedback
	d := &Dataset{
		Books:   books("a"),
		Users:   users(1),
		Ratings: []Rating{{1, "a", 0}, {1, "a", 0}},
	}
	_, err := BuildMatrix(d, 3, 2)
	assert.Error(t, err)

	// nothing meets the thresholds
	d = &Dataset{
		Books:   books("a"),
		Users:   users(1),
		Ratings: []Rating{{1, "a", 5}},
	}
	_, err = BuildMatrix(d, 3, 2)
	assert.Error(t, err)
}

func TestStatsGuarded(t *testing.T) {
	m := &Matrix{}
	stats := m.Stats()
	assert.Zero(t, stats.AvgRatingsPerUser)
	assert.Zero(t, stats.Sparsity)
}

func TestStats(t *testing.T) {
	d := &Dataset{
		Books: books("a", "b"),
		Users: users(1, 2),
		Ratings: []Rating{
			{1, "a", 5}, {1, "b", 3},
			{2, "a", 4}, {2, "b", 2},
		},
	}
	m, err := BuildMatrix(d, 2, 2)
	assert.NoError(t, err)
	stats := m.Stats()
	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 2, stats.TotalBooks)
	assert.Equal(t, 4, stats.TotalRatings)
	assert.Equal(t, 2.0, stats.AvgRatingsPerUser)
	assert.Equal(t, 0.0, stats.Sparsity)
}
