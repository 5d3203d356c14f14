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

package logics

import (
	"context"
	"testing"

	"github.com/gorse-io/bookyard/dataset"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

const (
	userA = 1
	userB = 2
	userC = 3
)

// fixture builds a snapshot of 5 users and 4 books where users A and B share
// three identical ratings, B rated one extra book, C rates against the grain
// and the remaining two users carry a single uninformative rating each.
func fixture(t *testing.T) *Snapshot {
	d := &dataset.Dataset{
		Books: []dataset.Book{
			{ISBN: "w", Title: "Dune", Author: "Frank Herbert", Year: 1965, Publisher: "Chilton"},
			{ISBN: "x", Title: "Neuromancer", Author: "William Gibson", Year: 1984, Publisher: "Ace"},
			{ISBN: "y", Title: "Hyperion", Author: "Dan Simmons", Year: 1989, Publisher: "Doubleday"},
			{ISBN: "z", Title: "Solaris", Author: "Stanislaw Lem", Year: 1961, Publisher: "MON"},
		},
		Users: []dataset.User{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}, {ID: 5}},
		Ratings: []dataset.Rating{
			{UserID: userA, ISBN: "w", Value: 5}, {UserID: userA, ISBN: "x", Value: 3}, {UserID: userA, ISBN: "y", Value: 4},
			{UserID: userB, ISBN: "w", Value: 5}, {UserID: userB, ISBN: "x", Value: 3}, {UserID: userB, ISBN: "y", Value: 4},
			{UserID: userB, ISBN: "z", Value: 9},
			{UserID: userC, ISBN: "w", Value: 1}, {UserID: userC, ISBN: "x", Value: 5},
			{UserID: 4, ISBN: "w", Value: 7},
			{UserID: 5, ISBN: "w", Value: 2},
		},
	}
	matrix, err := dataset.BuildMatrix(d, 1, 1)
	assert.NoError(t, err)
	similarity, err := dataset.Similarity(context.Background(), matrix, 1)
	assert.NoError(t, err)
	return NewSnapshot(matrix, similarity, d.Books)
}

func TestRecommendSingleNeighbor(t *testing.T) {
	s := fixture(t)
	// B is the only positively similar user, so the prediction for the one
	// book B rated and A did not is B's rating scaled by weight 1.
	results, err := s.Recommend(userA, 2, 1)
	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, "z", results[0].ISBN)
	assert.Equal(t, "Solaris", results[0].Title)
	assert.Equal(t, "Stanislaw Lem", results[0].Author)
	assert.Equal(t, 1961, results[0].Year)
	assert.Equal(t, float32(9), results[0].PredictedRating)
}

func TestRecommendNeverReturnsRated(t *testing.T) {
	s := fixture(t)
	results, err := s.Recommend(userA, 4, 10)
	assert.NoError(t, err)
	for _, r := range results {
		assert.NotContains(t, []string{"w", "x", "y"}, r.ISBN)
	}
}

func TestRecommendSortedAndBounded(t *testing.T) {
	d := &dataset.Dataset{
		Books: []dataset.Book{{ISBN: "p"}, {ISBN: "q"}, {ISBN: "r"}, {ISBN: "s"}, {ISBN: "t"}},
		Users: []dataset.User{{ID: 1}, {ID: 2}, {ID: 3}},
		Ratings: []dataset.Rating{
			{UserID: 1, ISBN: "p", Value: 5}, {UserID: 1, ISBN: "q", Value: 4},
			{UserID: 2, ISBN: "p", Value: 5}, {UserID: 2, ISBN: "q", Value: 4},
			{UserID: 2, ISBN: "r", Value: 9}, {UserID: 2, ISBN: "s", Value: 6}, {UserID: 2, ISBN: "t", Value: 2},
			{UserID: 3, ISBN: "p", Value: 5}, {UserID: 3, ISBN: "q", Value: 3},
		},
	}
	matrix, err := dataset.BuildMatrix(d, 1, 1)
	assert.NoError(t, err)
	similarity, err := dataset.Similarity(context.Background(), matrix, 1)
	assert.NoError(t, err)
	s := NewSnapshot(matrix, similarity, d.Books)

	results, err := s.Recommend(1, 2, 2)
	assert.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, "r", results[0].ISBN)
	assert.Equal(t, "s", results[1].ISBN)
	assert.Greater(t, results[0].PredictedRating, results[1].PredictedRating)
}

func TestRecommendIdempotent(t *testing.T) {
	s := fixture(t)
	first, err := s.Recommend(userA, 2, 10)
	assert.NoError(t, err)
	second, err := s.Recommend(userA, 2, 10)
	assert.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRecommendClampsK(t *testing.T) {
	s := fixture(t)
	oversized, err := s.Recommend(userA, 100, 10)
	assert.NoError(t, err)
	clamped, err := s.Recommend(userA, 4, 10)
	assert.NoError(t, err)
	assert.Equal(t, clamped, oversized)
}

func TestRecommendUserNotFound(t *testing.T) {
	s := fixture(t)
	_, err := s.Recommend(42, 10, 10)
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestRecommendNoSimilarUsers(t *testing.T) {
	s := fixture(t)
	// C disagrees with A and B and the single-rating users center to zero
	// vectors, so no positive similarity remains.
	_, err := s.Recommend(userC, 4, 10)
	assert.ErrorIs(t, err, ErrNoSimilarUsers)
}

func TestRecommendNoNewBooks(t *testing.T) {
	d := &dataset.Dataset{
		Books: []dataset.Book{{ISBN: "w"}, {ISBN: "x"}},
		Users: []dataset.User{{ID: 1}, {ID: 2}},
		Ratings: []dataset.Rating{
			{UserID: 1, ISBN: "w", Value: 5}, {UserID: 1, ISBN: "x", Value: 3},
			{UserID: 2, ISBN: "w", Value: 5}, {UserID: 2, ISBN: "x", Value: 3},
		},
	}
	matrix, err := dataset.BuildMatrix(d, 1, 1)
	assert.NoError(t, err)
	similarity, err := dataset.Similarity(context.Background(), matrix, 1)
	assert.NoError(t, err)
	s := NewSnapshot(matrix, similarity, d.Books)
	_, err = s.Recommend(1, 1, 10)
	assert.ErrorIs(t, err, ErrNoNewBooks)
}
