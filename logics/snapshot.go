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

// Package logics implements the user-based collaborative filtering
// recommendation engine.
package logics

import (
	"sort"

	"github.com/gorse-io/bookyard/common/floats"
	"github.com/gorse-io/bookyard/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

var (
	// ErrNoSimilarUsers is returned when no positively similar user exists.
	ErrNoSimilarUsers = errors.New("no similar users found for recommendations")
	// ErrNoNewBooks is returned when every candidate book was already rated.
	ErrNoNewBooks = errors.New("no new books to recommend")
)

// alreadyRated marks books the target user rated so that ranking excludes them.
const alreadyRated = float32(-1)

// Recommendation is one recommended book with its predicted rating.
type Recommendation struct {
	ISBN            string  `json:"isbn"`
	Title           string  `json:"title"`
	Author          string  `json:"author"`
	Year            int     `json:"year"`
	Publisher       string  `json:"publisher"`
	PredictedRating float32 `json:"predicted_rating"`
}

// Snapshot is one immutable loaded dataset: the interaction matrix, the user
// similarity model and the book metadata. Queries against a snapshot are pure
// reads and safe to run concurrently.
type Snapshot struct {
	matrix     *dataset.Matrix
	similarity [][]float32
	books      map[string]dataset.Book
}

// NewSnapshot assembles a snapshot from a built matrix, its similarity model
// and the book metadata table.
func NewSnapshot(matrix *dataset.Matrix, similarity [][]float32, books []dataset.Book) *Snapshot {
	return &Snapshot{
		matrix:     matrix,
		similarity: similarity,
		books: lo.SliceToMap(books, func(book dataset.Book) (string, dataset.Book) {
			return book.ISBN, book
		}),
	}
}

// Matrix returns the interaction matrix of the snapshot.
func (s *Snapshot) Matrix() *dataset.Matrix {
	return s.matrix
}

// Recommend predicts ratings of unseen books for a user from the k most
// similar users and returns at most topN books ordered by predicted rating
// descending.
func (s *Snapshot) Recommend(userId, k, topN int) ([]Recommendation, error) {
	target := s.matrix.UserIndex(userId)
	if target == dataset.NotId {
		return nil, errors.NotFoundf("user %d", userId)
	}
	numUsers := s.matrix.NumUsers()
	// cannot have more neighbors than other users exist
	if k > numUsers-1 {
		k = numUsers - 1
	}
	// Clip negative similarities: only positive-correlation evidence is used.
	scores := make([]float32, numUsers)
	copy(scores, s.similarity[target])
	for i, score := range scores {
		if score <= 0 {
			scores[i] = 0
		}
	}
	// Rank the other users by similarity descending with index ascending as
	// the tie-break, so equal similarities order deterministically.
	candidates := make([]int, 0, numUsers-1)
	for i := 0; i < numUsers; i++ {
		if i != int(target) {
			candidates = append(candidates, i)
		}
	}
	sort.Slice(candidates, func(a, b int) bool {
		if scores[candidates[a]] != scores[candidates[b]] {
			return scores[candidates[a]] > scores[candidates[b]]
		}
		return candidates[a] < candidates[b]
	})
	if k < len(candidates) {
		candidates = candidates[:k]
	}
	neighbors := lo.Filter(candidates, func(i int, _ int) bool {
		return scores[i] > 0
	})
	if len(neighbors) == 0 {
		return nil, ErrNoSimilarUsers
	}
	// Normalize neighbor similarities into blending weights.
	var total float32
	for _, i := range neighbors {
		total += scores[i]
	}
	// Blend neighbor rows. A neighbor who never rated a book contributes 0,
	// pulling the prediction toward 0 rather than abstaining.
	predictions := make([]float32, s.matrix.NumBooks())
	for _, i := range neighbors {
		floats.MulConstAdd(s.matrix.Values[i], scores[i]/total, predictions)
	}
	// Exclude books the target user already rated.
	for j, v := range s.matrix.Values[target] {
		if v > 0 {
			predictions[j] = alreadyRated
		}
	}
	// Rank books by predicted rating descending, keep non-negative scores.
	ranked := make([]int, len(predictions))
	for j := range ranked {
		ranked[j] = j
	}
	sort.Slice(ranked, func(a, b int) bool {
		if predictions[ranked[a]] != predictions[ranked[b]] {
			return predictions[ranked[a]] > predictions[ranked[b]]
		}
		return ranked[a] < ranked[b]
	})
	results := make([]Recommendation, 0, topN)
	for _, j := range ranked {
		if len(results) >= topN || predictions[j] < 0 {
			break
		}
		isbn := s.matrix.ISBNs[j]
		recommendation := Recommendation{ISBN: isbn, PredictedRating: predictions[j]}
		if book, exist := s.books[isbn]; exist {
			recommendation.Title = book.Title
			recommendation.Author = book.Author
			recommendation.Year = book.Year
			recommendation.Publisher = book.Publisher
		}
		results = append(results, recommendation)
	}
	if len(results) == 0 {
		return nil, ErrNoNewBooks
	}
	// The metadata join keeps the ranking order, but sort again so callers
	// can rely on descending predicted ratings.
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].PredictedRating > results[b].PredictedRating
	})
	return results, nil
}
