// Package graphbuild implements the Vertex Loader (spec §4.3), the
// Redirect Resolver (spec §4.4), and the Edge Resolver (spec §4.5), plus
// the sidecar SQLite schema (spec §6) they populate. Grounded on the
// teacher's build.go ingestion loops, restructured around the spec's
// required vertexes/redirects/build_info tables.
package graphbuild

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hut8/wikiwalk/internal/wikiid"
)

// Sidecar wraps the graph.db SQLite database written during a build.
type Sidecar struct {
	db *sql.DB
}

// CreateSidecar creates a fresh graph.db at path with the spec §6 schema.
// The caller must not have a file at path already.
func CreateSidecar(path string) (*Sidecar, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_journal=OFF&_sync=OFF&_locking=EXCLUSIVE")
	if err != nil {
		return nil, err
	}

	schema := `
		CREATE TABLE vertexes (
			id INTEGER PRIMARY KEY,
			title BLOB NOT NULL,
			is_redirect INTEGER NOT NULL
		);
		CREATE INDEX idx_vertexes_title ON vertexes(title);

		CREATE TABLE redirects (
			from_id INTEGER PRIMARY KEY,
			to_id INTEGER NOT NULL
		);

		CREATE TABLE build_info (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Sidecar{db: db}, nil
}

// OpenSidecar opens an existing graph.db read-only.
func OpenSidecar(path string) (*Sidecar, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&immutable=true")
	if err != nil {
		return nil, err
	}
	return &Sidecar{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Sidecar) Close() error { return s.db.Close() }

// DB exposes the underlying handle for bulk-insert callers that need to
// manage their own transactions and prepared statements.
func (s *Sidecar) DB() *sql.DB { return s.db }

// SetBuildInfo upserts one build_info key/value pair.
func (s *Sidecar) SetBuildInfo(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO build_info (key, value) VALUES (?, ?)`, key, value)
	return err
}

// BuildInfo reads one build_info value.
func (s *Sidecar) BuildInfo(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM build_info WHERE key = ?`, key).Scan(&value)
	return value, err
}

// LookupTitle returns the vertex ID and redirect flag for a title, or
// found=false if no row exists.
func (s *Sidecar) LookupTitle(title string) (id wikiid.PageID, isRedirect bool, found bool, err error) {
	var flag int
	row := s.db.QueryRow(`SELECT id, is_redirect FROM vertexes WHERE title = ?`, title)
	if scanErr := row.Scan(&id, &flag); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return 0, false, false, nil
		}
		return 0, false, false, scanErr
	}
	return id, flag != 0, true, nil
}

// RedirectTarget returns the resolved canonical target of a redirect
// source, or found=false if from is not a resolved redirect.
func (s *Sidecar) RedirectTarget(from wikiid.PageID) (to wikiid.PageID, found bool, err error) {
	row := s.db.QueryRow(`SELECT to_id FROM redirects WHERE from_id = ?`, from)
	if scanErr := row.Scan(&to); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, scanErr
	}
	return to, true, nil
}

// VertexCount returns the number of canonical (non-redirect) vertices.
func (s *Sidecar) VertexCount() (int64, error) {
	var count int64
	err := s.db.QueryRow(`SELECT count(*) FROM vertexes WHERE is_redirect = 0`).Scan(&count)
	return count, err
}

// MaxVertexID returns the largest vertex ID present, canonical or not —
// this is the bound the adjacency index file must cover.
func (s *Sidecar) MaxVertexID() (wikiid.PageID, error) {
	var max sql.NullInt64
	if err := s.db.QueryRow(`SELECT max(id) FROM vertexes`).Scan(&max); err != nil {
		return 0, err
	}
	if !max.Valid {
		return 0, nil
	}
	if max.Int64 < 0 || max.Int64 > int64(^uint32(0)) {
		return 0, fmt.Errorf("graphbuild: vertex id %d out of range", max.Int64)
	}
	return wikiid.PageID(max.Int64), nil
}

// CanonicalTitles iterates every canonical (non-redirect) vertex, calling
// fn with its ID and title. Used by the sitemap exporter.
func (s *Sidecar) CanonicalTitles(fn func(id wikiid.PageID, title string) error) error {
	rows, err := s.db.Query(`SELECT id, title FROM vertexes WHERE is_redirect = 0`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id wikiid.PageID
		var title string
		if err := rows.Scan(&id, &title); err != nil {
			return err
		}
		if err := fn(id, title); err != nil {
			return err
		}
	}
	return rows.Err()
}
