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
	"time"

	"github.com/gorse-io/bookyard/base/log"
	"github.com/gorse-io/bookyard/config"
	"github.com/gorse-io/bookyard/dataset"
	"github.com/juju/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Status describes the loaded snapshot of an engine.
type Status struct {
	Loaded       bool `json:"loaded"`
	Users        int  `json:"users"`
	Books        int  `json:"books"`
	TotalRatings int  `json:"total_ratings"`
}

// Engine owns the loaded dataset snapshot. Load builds a new snapshot off to
// the side and publishes it atomically, so queries concurrent with a load see
// either the fully-old or the fully-new dataset, never a mix. A failed load
// leaves the previous snapshot in place.
type Engine struct {
	cfg      *config.Config
	snapshot atomic.Pointer[Snapshot]
}

// NewEngine creates an empty engine.
func NewEngine(cfg *config.Config) *Engine {
	return &Engine{cfg: cfg}
}

// Load reads the configured CSV sources, builds the interaction matrix and
// the similarity model and publishes the new snapshot. rowLimit overrides the
// configured row limit when positive.
func (e *Engine) Load(ctx context.Context, rowLimit int) (dataset.Stats, error) {
	if rowLimit <= 0 {
		rowLimit = e.cfg.Data.RowLimit
	}
	start := time.Now()
	d, err := dataset.LoadDataset(
		e.cfg.Data.BooksPath(),
		e.cfg.Data.RatingsPath(),
		e.cfg.Data.UsersPath(),
		rowLimit)
	if err != nil {
		return dataset.Stats{}, errors.Trace(err)
	}
	matrix, err := dataset.BuildMatrix(d, e.cfg.Recommend.MinUserRatings, e.cfg.Recommend.MinBookRatings)
	if err != nil {
		return dataset.Stats{}, errors.Trace(err)
	}
	similarity, err := dataset.Similarity(ctx, matrix, e.cfg.Recommend.NumJobs)
	if err != nil {
		return dataset.Stats{}, errors.Trace(err)
	}
	e.snapshot.Store(NewSnapshot(matrix, similarity, d.Books))
	stats := matrix.Stats()
	log.Logger().Info("dataset loaded",
		zap.Int("users", stats.TotalUsers),
		zap.Int("books", stats.TotalBooks),
		zap.Int("ratings", stats.TotalRatings),
		zap.Float64("sparsity", stats.Sparsity),
		zap.Duration("elapsed", time.Since(start)))
	return stats, nil
}

// Status reports whether a snapshot is loaded and its shape.
func (e *Engine) Status() Status {
	snapshot := e.snapshot.Load()
	if snapshot == nil {
		return Status{}
	}
	return Status{
		Loaded:       true,
		Users:        snapshot.Matrix().NumUsers(),
		Books:        snapshot.Matrix().NumBooks(),
		TotalRatings: snapshot.Matrix().NumRatings(),
	}
}

// Recommend queries the loaded snapshot for a user.
func (e *Engine) Recommend(userId, k, topN int) ([]Recommendation, error) {
	snapshot := e.snapshot.Load()
	if snapshot == nil {
		return nil, errors.NotYetAvailablef("dataset")
	}
	if k <= 0 {
		k = e.cfg.Recommend.DefaultK
	}
	if topN <= 0 {
		topN = e.cfg.Recommend.DefaultN
	}
	return snapshot.Recommend(userId, k, topN)
}

// Users returns at most limit addressable user ids of the loaded snapshot.
func (e *Engine) Users(limit int) ([]int, error) {
	snapshot := e.snapshot.Load()
	if snapshot == nil {
		return nil, errors.NotYetAvailablef("dataset")
	}
	userIds := snapshot.Matrix().UserIDs
	if limit > 0 && limit < len(userIds) {
		userIds = userIds[:limit]
	}
	return userIds, nil
}

// Reset drops the loaded snapshot.
func (e *Engine) Reset() {
	e.snapshot.Store(nil)
}
