// Package manifest records parsed atlas indexes in a sqlite database so the
// sprites of a game install can be queried without re-reading the indexes.
package manifest

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"badc0de.net/pkg/go-celeste/meta"
)

// DB is a sprite manifest.
type DB struct {
	db *sql.DB
}

// SpriteRow is a sprite as stored in the manifest.
type SpriteRow struct {
	Index    string
	DataFile string
	meta.Sprite
}

var schema = []string{
	"CREATE TABLE IF NOT EXISTS meta (id INTEGER PRIMARY KEY NOT NULL, path TEXT NOT NULL UNIQUE, version INTEGER NOT NULL, description TEXT NOT NULL, flags INTEGER NOT NULL)",
	"CREATE TABLE IF NOT EXISTS datafile (id INTEGER PRIMARY KEY NOT NULL, meta_id INTEGER NOT NULL, path TEXT NOT NULL, FOREIGN KEY(meta_id) REFERENCES meta(id) ON DELETE CASCADE)",
	"CREATE TABLE IF NOT EXISTS sprite (datafile_id INTEGER NOT NULL, seq INTEGER NOT NULL, path TEXT NOT NULL, x INTEGER NOT NULL, y INTEGER NOT NULL, width INTEGER NOT NULL, height INTEGER NOT NULL, offset_x INTEGER NOT NULL, offset_y INTEGER NOT NULL, real_width INTEGER NOT NULL, real_height INTEGER NOT NULL, FOREIGN KEY(datafile_id) REFERENCES datafile(id) ON DELETE CASCADE)",
	"CREATE INDEX IF NOT EXISTS sprite_path ON sprite(path)",
}

// Open opens or creates the manifest database at file.
func Open(file string) (*DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "manifest: creating schema")
		}
	}

	return &DB{
		db: db,
	}, nil
}

// Close closes the database.
func (db *DB) Close() error {
	return db.db.Close()
}

// AddMetadata records m under metaPath, replacing anything previously
// recorded for that path.
func (db *DB) AddMetadata(metaPath string, m *meta.Metadata) (err error) {
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec("DELETE FROM meta WHERE path = ?", metaPath); err != nil {
		return err
	}

	res, err := tx.Exec("INSERT INTO meta (path, version, description, flags) VALUES (?, ?, ?, ?)", metaPath, m.Header.Version, m.Header.Description, m.Header.Flags)
	if err != nil {
		return err
	}
	metaID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare("INSERT INTO sprite (datafile_id, seq, path, x, y, width, height, offset_x, offset_y, real_width, real_height) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, df := range m.DataFiles {
		res, err = tx.Exec("INSERT INTO datafile (meta_id, path) VALUES (?, ?)", metaID, df.Path)
		if err != nil {
			return err
		}
		dfID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for i, s := range df.Sprites {
			if _, err = stmt.Exec(dfID, i, s.Path, s.X, s.Y, s.Width, s.Height, s.OffsetX, s.OffsetY, s.RealWidth, s.RealHeight); err != nil {
				return errors.Wrapf(err, "manifest: sprite %q", s.Path)
			}
		}
	}

	return tx.Commit()
}

// FindSprite returns every recorded sprite with the passed path, ordered by
// index, data file and position in the data file.
func (db *DB) FindSprite(path string) ([]SpriteRow, error) {
	rows, err := db.db.Query(`SELECT meta.path, datafile.path, sprite.path, x, y, width, height, offset_x, offset_y, real_width, real_height
		FROM sprite
		INNER JOIN datafile ON sprite.datafile_id = datafile.id
		INNER JOIN meta ON datafile.meta_id = meta.id
		WHERE sprite.path = ?
		ORDER BY meta.path, datafile.id, sprite.seq`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SpriteRow
	for rows.Next() {
		var r SpriteRow
		if err := rows.Scan(&r.Index, &r.DataFile, &r.Path, &r.X, &r.Y, &r.Width, &r.Height, &r.OffsetX, &r.OffsetY, &r.RealWidth, &r.RealHeight); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountSprites returns the number of sprites recorded for the data file.
func (db *DB) CountSprites(metaPath, dataFile string) (int, error) {
	var n int
	err := db.db.QueryRow(`SELECT COUNT(*) FROM sprite
		INNER JOIN datafile ON sprite.datafile_id = datafile.id
		INNER JOIN meta ON datafile.meta_id = meta.id
		WHERE meta.path = ? AND datafile.path = ?`, metaPath, dataFile).Scan(&n)
	return n, err
}
