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

// Package dataset loads the Book-Crossing shaped CSV sources and builds the
// dense user-book interaction matrix and the user similarity model.
package dataset

import (
	"bufio"
	"os"
	"path/filepath"

	"github.com/gorse-io/bookyard/base"
	"github.com/gorse-io/bookyard/base/log"
	"github.com/gorse-io/bookyard/common/util"
	"github.com/juju/errors"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// Separator of the CSV sources.
const Separator = ";"

// Book is the metadata of a book, keyed by ISBN. ISBNs are opaque strings and
// may contain the separator when quoted.
type Book struct {
	ISBN      string `json:"isbn"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Year      int    `json:"year"`
	Publisher string `json:"publisher"`
}

// User is a row of the users source. Only the id takes part in the join, the
// remaining fields are kept for completeness.
type User struct {
	ID       int    `json:"user_id"`
	Location string `json:"location"`
	Age      string `json:"age"`
}

// Rating is an explicit feedback triple.
type Rating struct {
	UserID int     `json:"user_id"`
	ISBN   string  `json:"isbn"`
	Value  float32 `json:"value"`
}

// Dataset holds the raw rows of the three CSV sources.
type Dataset struct {
	Books   []Book
	Users   []User
	Ratings []Rating
}

// LoadDataset reads the books, ratings and users sources. Each source has a
// header row and at most rowLimit data rows are kept (rowLimit <= 0 reads
// everything). Malformed rows are skipped with a warning instead of failing
// the whole load.
func LoadDataset(booksPath, ratingsPath, usersPath string, rowLimit int) (*Dataset, error) {
	d := new(Dataset)
	if err := readSource(booksPath, rowLimit, func(fields []string) error {
		if len(fields) < 5 {
			return errors.Errorf("expected at least 5 fields, got %d", len(fields))
		}
		year, err := util.ParseInt[int](fields[3])
		if err != nil {
			return errors.Trace(err)
		}
		d.Books = append(d.Books, Book{
			ISBN:      fields[0],
			Title:     fields[1],
			Author:    fields[2],
			Year:      year,
			Publisher: fields[4],
		})
		return nil
	}); err != nil {
		return nil, errors.Annotatef(err, "failed to load books from %s", booksPath)
	}
	if err := readSource(ratingsPath, rowLimit, func(fields []string) error {
		if len(fields) < 3 {
			return errors.Errorf("expected 3 fields, got %d", len(fields))
		}
		userId, err := util.ParseInt[int](fields[0])
		if err != nil {
			return errors.Trace(err)
		}
		value, err := util.ParseFloat[float32](fields[2])
		if err != nil {
			return errors.Trace(err)
		}
		d.Ratings = append(d.Ratings, Rating{
			UserID: userId,
			ISBN:   fields[1],
			Value:  value,
		})
		return nil
	}); err != nil {
		return nil, errors.Annotatef(err, "failed to load ratings from %s", ratingsPath)
	}
	if err := readSource(usersPath, rowLimit, func(fields []string) error {
		if len(fields) < 1 {
			return errors.Errorf("expected at least 1 field, got %d", len(fields))
		}
		userId, err := util.ParseInt[int](fields[0])
		if err != nil {
			return errors.Trace(err)
		}
		user := User{ID: userId}
		if len(fields) > 1 {
			user.Location = fields[1]
		}
		if len(fields) > 2 {
			user.Age = fields[2]
		}
		d.Users = append(d.Users, user)
		return nil
	}); err != nil {
		return nil, errors.Annotatef(err, "failed to load users from %s", usersPath)
	}
	return d, nil
}

// readSource parses one semicolon separated source. The handler receives the
// fields of one data row and returns an error to skip the row.
func readSource(path string, rowLimit int, handler func(fields []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Trace(err)
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return errors.Trace(err)
	}
	bar := progressbar.DefaultBytes(stat.Size(), "Loading "+filepath.Base(path))
	defer bar.Close()
	pbReader := progressbar.NewReader(f, bar)
	sc := bufio.NewScanner(&pbReader)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)
	rowCount, skipCount := 0, 0
	if err := base.ReadLines(sc, Separator, func(lineNumber int, fields []string) bool {
		if lineNumber == 0 {
			// header row
			return true
		}
		if err := handler(fields); err != nil {
			skipCount++
			log.Logger().Warn("skip malformed row",
				zap.String("path", path),
				zap.Int("line", lineNumber),
				zap.Error(err))
			return true
		}
		rowCount++
		return rowLimit <= 0 || rowCount < rowLimit
	}); err != nil {
		return errors.Trace(err)
	}
	log.Logger().Info("loaded source",
		zap.String("path", path),
		zap.Int("rows", rowCount),
		zap.Int("skipped", skipCount))
	return nil
}
