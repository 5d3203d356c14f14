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
	"os"
	"path/filepath"
	"testing"

	"github.com/gorse-io/bookyard/config"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func writeSources(t *testing.T, dir string) {
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "Books.csv"), []byte(
		"ISBN;Book-Title;Book-Author;Year-Of-Publication;Publisher\n"+
			"w;Dune;Frank Herbert;1965;Chilton\n"+
			"x;Neuromancer;William Gibson;1984;Ace\n"+
			"y;Hyperion;Dan Simmons;1989;Doubleday\n"+
			"z;Solaris;Stanislaw Lem;1961;MON\n"), 0644))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "Book-Ratings.csv"), []byte(
		"User-ID;ISBN;Book-Rating\n"+
			"1;w;5\n1;x;3\n1;y;4\n"+
			"2;w;5\n2;x;3\n2;y;4\n2;z;9\n"+
			"3;w;1\n3;x;5\n3;y;2\n3;z;6\n"), 0644))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "Users.csv"), []byte(
		"User-ID;Location;Age\n1;;\n2;;\n3;;\n"), 0644))
}

func newTestConfig(dir string) *config.Config {
	cfg := config.GetDefaultConfig()
	cfg.Data.Folder = dir
	cfg.Recommend.NumJobs = 1
	return cfg
}

func TestEngineLifecycle(t *testing.T) {
	dir := t.TempDir()
	writeSources(t, dir)
	engine := NewEngine(newTestConfig(dir))

	// queries before load fail with a recoverable error
	assert.False(t, engine.Status().Loaded)
	_, err := engine.Recommend(1, 10, 10)
	assert.True(t, errors.Is(err, errors.NotYetAvailable))
	_, err = engine.Users(10)
	assert.True(t, errors.Is(err, errors.NotYetAvailable))

	stats, err := engine.Load(context.Background(), 0)
	assert.NoError(t, err)
	assert.Equal(t, 3, stats.TotalUsers)
	assert.Equal(t, 4, stats.TotalBooks)

	status := engine.Status()
	assert.True(t, status.Loaded)
	assert.Equal(t, 3, status.Users)
	assert.Equal(t, 4, status.Books)
	assert.Equal(t, 11, status.TotalRatings)

	userIds, err := engine.Users(2)
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2}, userIds)

	results, err := engine.Recommend(1, 2, 1)
	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, "z", results[0].ISBN)

	engine.Reset()
	assert.False(t, engine.Status().Loaded)
}

func TestEngineFailedLoadKeepsSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeSources(t, dir)
	engine := NewEngine(newTestConfig(dir))
	_, err := engine.Load(context.Background(), 0)
	assert.NoError(t, err)

	// break the ratings source and reload
	assert.NoError(t, os.Remove(filepath.Join(dir, "Book-Ratings.csv")))
	_, err = engine.Load(context.Background(), 0)
	assert.Error(t, err)

	// the previous snapshot stays queryable
	assert.True(t, engine.Status().Loaded)
	results, err := engine.Recommend(1, 2, 1)
	assert.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestEngineLoadEmptyRatings(t *testing.T) {
	dir := t.TempDir()
	writeSources(t, dir)
	// only absent feedback in the ratings source
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "Book-Ratings.csv"), []byte(
		"User-ID;ISBN;Book-Rating\n1;w;0\n2;x;0\n"), 0644))
	engine := NewEngine(newTestConfig(dir))
	_, err := engine.Load(context.Background(), 0)
	assert.Error(t, err)
	assert.False(t, engine.Status().Loaded)
}
