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

// Package storage provides the embedded book catalog database.
package storage

import (
	"database/sql"

	"github.com/juju/errors"
	_ "modernc.org/sqlite"
)

// Book is a row of the book catalog.
type Book struct {
	ID        int64  `json:"id"`
	ISBN      string `json:"isbn"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Year      int    `json:"year"`
	Publisher string `json:"publisher"`
}

// Catalog is a SQLite backed CRUD store for books.
type Catalog struct {
	db *sql.DB
}

// OpenCatalog opens the catalog database and creates its schema.
func OpenCatalog(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	c := &Catalog{db: db}
	if err := c.init(); err != nil {
		_ = db.Close()
		return nil, errors.Trace(err)
	}
	return c, nil
}

func (c *Catalog) init() error {
	_, err := c.db.Exec(`
CREATE TABLE IF NOT EXISTS books (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	isbn TEXT NOT NULL,
	title TEXT NOT NULL,
	author TEXT,
	year INTEGER,
	publisher TEXT
);`)
	return errors.Trace(err)
}

// Close closes the catalog database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Purge removes all books.
func (c *Catalog) Purge() error {
	_, err := c.db.Exec("DELETE FROM books")
	return errors.Trace(err)
}

// InsertBook inserts a book and returns it with its assigned id.
func (c *Catalog) InsertBook(book Book) (Book, error) {
	result, err := c.db.Exec(
		"INSERT INTO books (isbn, title, author, year, publisher) VALUES (?, ?, ?, ?, ?)",
		book.ISBN, book.Title, book.Author, book.Year, book.Publisher)
	if err != nil {
		return Book{}, errors.Trace(err)
	}
	book.ID, err = result.LastInsertId()
	if err != nil {
		return Book{}, errors.Trace(err)
	}
	return book, nil
}

// GetBook returns the book with the given id.
func (c *Catalog) GetBook(id int64) (Book, error) {
	var book Book
	err := c.db.QueryRow(
		"SELECT id, isbn, title, author, year, publisher FROM books WHERE id = ?", id).
		Scan(&book.ID, &book.ISBN, &book.Title, &book.Author, &book.Year, &book.Publisher)
	if errors.Is(err, sql.ErrNoRows) {
		return Book{}, errors.NotFoundf("book %d", id)
	} else if err != nil {
		return Book{}, errors.Trace(err)
	}
	return book, nil
}

// ListBooks returns at most limit books starting at offset, ordered by id.
func (c *Catalog) ListBooks(offset, limit int) ([]Book, error) {
	rows, err := c.db.Query(
		"SELECT id, isbn, title, author, year, publisher FROM books ORDER BY id LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	books := make([]Book, 0)
	for rows.Next() {
		var book Book
		if err := rows.Scan(&book.ID, &book.ISBN, &book.Title, &book.Author, &book.Year, &book.Publisher); err != nil {
			return nil, errors.Trace(err)
		}
		books = append(books, book)
	}
	return books, errors.Trace(rows.Err())
}

// UpdateBook overwrites the book with the given id.
func (c *Catalog) UpdateBook(id int64, book Book) (Book, error) {
	result, err := c.db.Exec(
		"UPDATE books SET isbn = ?, title = ?, author = ?, year = ?, publisher = ? WHERE id = ?",
		book.ISBN, book.Title, book.Author, book.Year, book.Publisher, id)
	if err != nil {
		return Book{}, errors.Trace(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return Book{}, errors.Trace(err)
	}
	if affected == 0 {
		return Book{}, errors.NotFoundf("book %d", id)
	}
	book.ID = id
	return book, nil
}

// DeleteBook removes the book with the given id.
func (c *Catalog) DeleteBook(id int64) error {
	result, err := c.db.Exec("DELETE FROM books WHERE id = ?", id)
	if err != nil {
		return errors.Trace(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Trace(err)
	}
	if affected == 0 {
		return errors.NotFoundf("book %d", id)
	}
	return nil
}
