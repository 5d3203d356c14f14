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

	"github.com/gorse-io/bookyard/common/floats"
	"github.com/gorse-io/bookyard/common/parallel"
	"github.com/juju/errors"
)

// Similarity computes the user-user similarity matrix of an interaction
// matrix: each row is mean-centered over its observed cells, then pairwise
// cosine similarity is computed between the centered rows. The similarity of
// a zero vector is 0 by convention. Row pairs are computed on nJobs workers.
func Similarity(ctx context.Context, m *Matrix, nJobs int) ([][]float32, error) {
	numUsers := m.NumUsers()
	// Mean-center observed cells. Absent cells stay 0.
	centered := make([][]float32, numUsers)
	norms := make([]float32, numUsers)
	for i, row := range m.Values {
		centered[i] = make([]float32, len(row))
		copy(centered[i], row)
		var sum float32
		var observed int
		for _, v := range row {
			if v > 0 {
				sum += v
				observed++
			}
		}
		if observed > 0 {
			mean := sum / float32(observed)
			for j, v := range centered[i] {
				if v > 0 {
					centered[i][j] = v - mean
				}
			}
		}
		norms[i] = floats.Norm(centered[i])
	}
	// Pairwise cosine. Worker i fills row i up to the diagonal and mirrors
	// into column i, so writes of different workers never overlap.
	similarity := make([][]float32, numUsers)
	for i := range similarity {
		similarity[i] = make([]float32, numUsers)
	}
	if err := parallel.Parallel(ctx, numUsers, nJobs, func(_, i int) error {
		for j := 0; j < i; j++ {
			var sim float32
			if norms[i] > 0 && norms[j] > 0 {
				sim = floats.Dot(centered[i], centered[j]) / (norms[i] * norms[j])
			}
			similarity[i][j] = sim
			similarity[j][i] = sim
		}
		if norms[i] > 0 {
			similarity[i][i] = 1
		}
		return nil
	}); err != nil {
		return nil, errors.Trace(err)
	}
	return similarity, nil
}
