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
	"sort"

	"github.com/juju/errors"
	"github.com/samber/lo"
)

// NotId represents a user or book that is absent from the matrix.
const NotId = int32(-1)

// Stats are the statistics of a built interaction matrix.
type Stats struct {
	TotalUsers        int     `json:"total_users"`
	TotalBooks        int     `json:"total_books"`
	TotalRatings      int     `json:"total_ratings"`
	AvgRatingsPerUser float64 `json:"avg_ratings_per_user"`
	Sparsity          float64 `json:"sparsity"`
}

// Matrix is the dense user-book interaction matrix. Rows are users, columns
// are books, cells hold the rating value with 0 meaning no rating. The matrix
// is immutable once built.
type Matrix struct {
	UserIDs   []int    // row -> user id, ascending
	ISBNs     []string // column -> ISBN, ascending
	Values    [][]float32
	userIndex map[int]int32
	isbnIndex map[string]int32
	numRated  int // nonzero cells
}

// BuildMatrix pivots rating triples into a dense matrix. Ratings with value
// <= 0 are treated as absent feedback and dropped, then ratings are
// inner-joined against the book and user tables, users with fewer than
// minUserRatings ratings are dropped, and books with fewer than
// minBookRatings ratings among the remaining rows are dropped. Duplicate
// (user, ISBN) pairs are averaged. An empty result is an error.
func BuildMatrix(d *Dataset, minUserRatings, minBookRatings int) (*Matrix, error) {
	// Drop absent feedback and join against metadata.
	knownBooks := lo.SliceToMap(d.Books, func(book Book) (string, struct{}) {
		return book.ISBN, struct{}{}
	})
	knownUsers := lo.SliceToMap(d.Users, func(user User) (int, struct{}) {
		return user.ID, struct{}{}
	})
	rows := lo.Filter(d.Ratings, func(r Rating, _ int) bool {
		if r.Value <= 0 {
			return false
		}
		if _, exist := knownBooks[r.ISBN]; !exist {
			return false
		}
		_, exist := knownUsers[r.UserID]
		return exist
	})
	// Drop users with too few ratings.
	userCounts := lo.CountValuesBy(rows, func(r Rating) int { return r.UserID })
	rows = lo.Filter(rows, func(r Rating, _ int) bool {
		return userCounts[r.UserID] >= minUserRatings
	})
	// Drop books with too few ratings among the remaining rows.
	bookCounts := lo.CountValuesBy(rows, func(r Rating) string { return r.ISBN })
	rows = lo.Filter(rows, func(r Rating, _ int) bool {
		return bookCounts[r.ISBN] >= minBookRatings
	})
	if len(rows) == 0 {
		return nil, errors.New("no ratings survived filtering")
	}
	// Collect surviving ids. Rows and columns are sorted so that the matrix
	// is stable across loads of the same data.
	m := &Matrix{
		UserIDs: lo.Uniq(lo.Map(rows, func(r Rating, _ int) int { return r.UserID })),
		ISBNs:   lo.Uniq(lo.Map(rows, func(r Rating, _ int) string { return r.ISBN })),
	}
	sort.Ints(m.UserIDs)
	sort.Strings(m.ISBNs)
	m.userIndex = make(map[int]int32, len(m.UserIDs))
	for i, id := range m.UserIDs {
		m.userIndex[id] = int32(i)
	}
	m.isbnIndex = make(map[string]int32, len(m.ISBNs))
	for i, isbn := range m.ISBNs {
		m.isbnIndex[isbn] = int32(i)
	}
	// Pivot. Duplicate pairs are accumulated and averaged.
	m.Values = make([][]float32, len(m.UserIDs))
	for i := range m.Values {
		m.Values[i] = make([]float32, len(m.ISBNs))
	}
	counts := make(map[[2]int32]int)
	for _, r := range rows {
		i, j := m.userIndex[r.UserID], m.isbnIndex[r.ISBN]
		m.Values[i][j] += r.Value
		counts[[2]int32{i, j}]++
	}
	for cell, count := range counts {
		if count > 1 {
			m.Values[cell[0]][cell[1]] /= float32(count)
		}
	}
	m.numRated = len(counts)
	return m, nil
}

// UserIndex resolves a user id to a row index, or NotId.
func (m *Matrix) UserIndex(userId int) int32 {
	if i, exist := m.userIndex[userId]; exist {
		return i
	}
	return NotId
}

// ISBNIndex resolves an ISBN to a column index, or NotId.
func (m *Matrix) ISBNIndex(isbn string) int32 {
	if j, exist := m.isbnIndex[isbn]; exist {
		return j
	}
	return NotId
}

// NumUsers returns the number of rows.
func (m *Matrix) NumUsers() int {
	return len(m.UserIDs)
}

// NumBooks returns the number of columns.
func (m *Matrix) NumBooks() int {
	return len(m.ISBNs)
}

// NumRatings returns the number of nonzero cells.
func (m *Matrix) NumRatings() int {
	return m.numRated
}

// Stats computes the statistics of the matrix. Divisions are guarded so an
// empty matrix yields zeros instead of NaN.
func (m *Matrix) Stats() Stats {
	stats := Stats{
		TotalUsers:   m.NumUsers(),
		TotalBooks:   m.NumBooks(),
		TotalRatings: m.numRated,
	}
	if stats.TotalUsers > 0 {
		stats.AvgRatingsPerUser = float64(stats.TotalRatings) / float64(stats.TotalUsers)
	}
	if cells := stats.TotalUsers * stats.TotalBooks; cells > 0 {
		stats.Sparsity = 1 - float64(stats.TotalRatings)/float64(cells)
	}
	return stats
}
