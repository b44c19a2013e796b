package wikidump

import (
	"compress/gzip"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hut8/wikiwalk/internal/wikiid"
)

// ChannelBuffer bounds memory use of the row channels below: the parser
// is streaming, so the only unbounded-looking state is this buffer and
// whatever one row group requires to decode (spec §4.2).
const ChannelBuffer = 4096

// PageRow is one row from the `page` table (spec §4.3).
type PageRow struct {
	ID         wikiid.PageID
	Namespace  int
	Title      string
	IsRedirect bool
}

// RedirectRow is one row from the `redirect` table (spec §4.4).
type RedirectRow struct {
	From      wikiid.PageID
	Namespace int
	Title     string
}

// PagelinkRow is one row from the `pagelinks` table (spec §4.5).
type PagelinkRow struct {
	From          wikiid.PageID
	FromNamespace int
	Namespace     int
	Title         string
}

// StreamPages parses the page dump, yielding one PageRow per row with a
// non-NULL page_id, in every namespace (filtering is the caller's job).
// The returned error channel carries at most one error and is closed after
// the row channel closes.
func StreamPages(path string) (<-chan PageRow, <-chan error) {
	out := make(chan PageRow, ChannelBuffer)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)

		reader, closer, err := openGzipSQL(path)
		if err != nil {
			errc <- err
			return
		}
		defer closer.Close()

		cols := reader.Columns()
		idIdx := indexOf(cols, "page_id")
		nsIdx := indexOf(cols, "page_namespace")
		titleIdx := indexOf(cols, "page_title")
		redirIdx := indexOf(cols, "page_is_redirect")
		if idIdx < 0 || nsIdx < 0 || titleIdx < 0 || redirIdx < 0 {
			errc <- unrecognizedColumns("page", cols)
			return
		}

		for {
			row, err := reader.Row()
			if err == io.EOF {
				return
			}
			if err != nil {
				errc <- err
				return
			}
			if row == nil {
				if err := reader.NextInsert(); err != nil {
					if err == io.EOF {
						return
					}
					errc <- err
					return
				}
				continue
			}

			ns, _ := strconv.Atoi(row[nsIdx])
			id := wikiid.ParsePageID(row[idIdx])
			if id == wikiid.Null {
				continue
			}
			out <- PageRow{
				ID:         id,
				Namespace:  ns,
				Title:      row[titleIdx],
				IsRedirect: row[redirIdx] == "1",
			}
		}
	}()
	return out, errc
}

// StreamRedirects parses the redirect dump, yielding one RedirectRow per
// admitted row (namespace 0 only is the caller's responsibility per spec
// §4.4 — this stream yields every row verbatim).
func StreamRedirects(path string) (<-chan RedirectRow, <-chan error) {
	out := make(chan RedirectRow, ChannelBuffer)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)

		reader, closer, err := openGzipSQL(path)
		if err != nil {
			errc <- err
			return
		}
		defer closer.Close()

		cols := reader.Columns()
		fromIdx := indexOf(cols, "rd_from")
		nsIdx := indexOf(cols, "rd_namespace")
		titleIdx := indexOf(cols, "rd_title")
		if fromIdx < 0 || nsIdx < 0 || titleIdx < 0 {
			errc <- unrecognizedColumns("redirect", cols)
			return
		}

		for {
			row, err := reader.Row()
			if err == io.EOF {
				return
			}
			if err != nil {
				errc <- err
				return
			}
			if row == nil {
				if err := reader.NextInsert(); err != nil {
					if err == io.EOF {
						return
					}
					errc <- err
					return
				}
				continue
			}

			ns, _ := strconv.Atoi(row[nsIdx])
			from := wikiid.ParsePageID(row[fromIdx])
			if from == wikiid.Null {
				continue
			}
			out <- RedirectRow{
				From:      from,
				Namespace: ns,
				Title:     row[titleIdx],
			}
		}
	}()
	return out, errc
}

// StreamPagelinks parses the pagelinks dump, yielding one PagelinkRow per
// row with a non-NULL pl_from, in every namespace (filtering is the
// caller's job).
func StreamPagelinks(path string) (<-chan PagelinkRow, <-chan error) {
	out := make(chan PagelinkRow, ChannelBuffer)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)

		reader, closer, err := openGzipSQL(path)
		if err != nil {
			errc <- err
			return
		}
		defer closer.Close()

		cols := reader.Columns()
		fromIdx := indexOf(cols, "pl_from")
		fromNsIdx := indexOf(cols, "pl_from_namespace")
		nsIdx := indexOf(cols, "pl_namespace")
		titleIdx := indexOf(cols, "pl_title")
		if fromIdx < 0 || nsIdx < 0 || titleIdx < 0 {
			errc <- unrecognizedColumns("pagelinks", cols)
			return
		}

		for {
			row, err := reader.Row()
			if err == io.EOF {
				return
			}
			if err != nil {
				errc <- err
				return
			}
			if row == nil {
				if err := reader.NextInsert(); err != nil {
					if err == io.EOF {
						return
					}
					errc <- err
					return
				}
				continue
			}

			from := wikiid.ParsePageID(row[fromIdx])
			if from == wikiid.Null {
				continue
			}
			fromNs := 0
			if fromNsIdx >= 0 {
				fromNs, _ = strconv.Atoi(row[fromNsIdx])
			}
			ns, _ := strconv.Atoi(row[nsIdx])
			out <- PagelinkRow{
				From:          from,
				FromNamespace: fromNs,
				Namespace:     ns,
				Title:         row[titleIdx],
			}
		}
	}()
	return out, errc
}

func openGzipSQL(path string) (*SQLReader, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	reader, err := NewSQLReader(gz)
	if err != nil {
		gz.Close()
		f.Close()
		return nil, nil, err
	}
	return reader, multiCloser{gz, f}, nil
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func indexOf(ss []string, s string) int {
	for i, v := range ss {
		if v == s {
			return i
		}
	}
	return -1
}

func unrecognizedColumns(table string, cols []string) error {
	return &columnsError{table: table, cols: cols}
}

type columnsError struct {
	table string
	cols  []string
}

func (e *columnsError) Error() string {
	return "wikidump: " + e.table + " dump missing expected columns, got " + strings.Join(e.cols, ",")
}
