package graphbuild

import (
	"golang.org/x/text/unicode/norm"

	"github.com/hut8/wikiwalk/internal/wikidump"
	"github.com/hut8/wikiwalk/internal/wikierr"
	"github.com/hut8/wikiwalk/internal/wikiid"
)

// VertexLoader is the Vertex Loader (spec §4.3). It consumes the page
// dump once, admits namespace-0, non-redirect pages as canonical
// vertices, retains namespace-0 redirect pages separately, and writes
// both into the sidecar's vertexes table. Its in-memory title map is kept
// as a write-through cache in front of SQLite for the Redirect and Edge
// Resolvers that run immediately afterward in the same process.
type VertexLoader struct {
	Titler    map[string]wikiid.PageID
	IsRedirect map[wikiid.PageID]bool
	MaxID     wikiid.PageID
	Vertices  int64
}

// LoadVertices streams pagePath once and populates sidecar.vertexes.
func LoadVertices(sidecar *Sidecar, pagePath string) (*VertexLoader, error) {
	loader := &VertexLoader{
		Titler:     make(map[string]wikiid.PageID, 1<<20),
		IsRedirect: make(map[wikiid.PageID]bool, 1<<16),
	}

	tx, err := sidecar.db.Begin()
	if err != nil {
		return nil, err
	}
	insert, err := tx.Prepare(`INSERT INTO vertexes (id, title, is_redirect) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	defer insert.Close()

	pages, errc := wikidump.StreamPages(pagePath)
	for page := range pages {
		if page.Namespace != 0 {
			continue
		}
		title := normalizeTitle(page.Title)

		if !page.IsRedirect {
			if existing, dup := loader.Titler[title]; dup && !loader.IsRedirect[existing] {
				tx.Rollback()
				return nil, &wikierr.DuplicateTitleError{Title: title}
			}
		}

		flag := 0
		if page.IsRedirect {
			flag = 1
			loader.IsRedirect[page.ID] = true
		} else {
			loader.Vertices++
		}
		if _, err := insert.Exec(page.ID, title, flag); err != nil {
			tx.Rollback()
			return nil, err
		}
		loader.Titler[title] = page.ID
		if page.ID > loader.MaxID {
			loader.MaxID = page.ID
		}
	}
	if err := <-errc; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return loader, nil
}

// normalizeTitle applies Unicode NFC normalization so titles that differ
// only in combining-character representation compare equal, per spec
// §3's "case- and underscore-normalized as Wikipedia stores it" note —
// Wikipedia itself stores NFC-normalized titles, but dumps from older
// MediaWiki versions occasionally do not.
func normalizeTitle(title string) string {
	return norm.NFC.String(title)
}
