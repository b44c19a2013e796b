// Package wikidump implements the Dump Locator (spec §4.1) and Dump Parser
// (spec §4.2): discovering the latest complete Wikipedia SQL dump and
// streaming typed rows out of it.
package wikidump

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/hut8/wikiwalk/internal/wikierr"
	"github.com/hut8/wikiwalk/internal/wikilang"
)

// Required job names in Wikimedia's dumpstatus.json, per spec §4.1: page,
// redirect, and the legacy full-form pagelinks table.
const (
	jobPage       = "pagetable"
	jobRedirect   = "redirecttable"
	jobPagelinks  = "pagelinkstable"
	dateLayout    = "20060102"
	defaultLook   = 12 // candidate dump dates to try before giving up
	cyclesPerYear = 24 // Wikipedia cuts dumps twice a month
)

// Files names the three dump files this system consumes for one wiki and
// one dump date.
type Files struct {
	Date         string
	PageURL      string
	RedirectURL  string
	PagelinksURL string
}

type dumpStatus struct {
	Jobs map[string]jobStatus `json:"jobs"`
}

type jobStatus struct {
	Status string               `json:"status"`
	Files  map[string]statusFile `json:"files"`
}

type statusFile struct {
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Locator discovers the latest complete Wikipedia SQL dump for a wiki.
type Locator struct {
	Mirror   string // e.g. https://dumps.wikimedia.org
	Client   *http.Client
	Lookback int // number of candidate dates to check before NoCompleteDump
}

// NewLocator creates a Locator against the given mirror with sane defaults.
func NewLocator(mirror string) *Locator {
	return &Locator{Mirror: mirror, Client: http.DefaultClient, Lookback: defaultLook}
}

// FindLatest walks candidate dump dates in descending order and returns
// the first one whose dumpstatus.json reports page, redirect, and
// pagelinks jobs as done. Returns *wikierr.NoCompleteDumpError if none in
// the lookback window qualify.
func (l *Locator) FindLatest(wiki wikilang.Wiki) (Files, error) {
	lookback := l.Lookback
	if lookback <= 0 {
		lookback = defaultLook
	}
	for _, date := range candidateDates(time.Now(), lookback) {
		files, err := l.checkDate(wiki, date)
		if err != nil {
			continue
		}
		return files, nil
	}
	return Files{}, &wikierr.NoCompleteDumpError{Wiki: wiki.Database}
}

// FilesForDate checks one explicit YYYYMMDD date rather than searching,
// for `build --dump-date`. Returns *wikierr.NoCompleteDumpError if that
// date's jobs aren't all done.
func (l *Locator) FilesForDate(wiki wikilang.Wiki, date string) (Files, error) {
	files, err := l.checkDate(wiki, date)
	if err != nil {
		return Files{}, &wikierr.NoCompleteDumpError{Wiki: wiki.Database}
	}
	return files, nil
}

// checkDate fetches dumpstatus.json for one date and, if every required
// job is done, returns the file URLs.
func (l *Locator) checkDate(wiki wikilang.Wiki, date string) (Files, error) {
	url := fmt.Sprintf("%s/%s/%s/dumpstatus.json", l.Mirror, wiki.Database, date)
	resp, err := l.Client.Get(url)
	if err != nil {
		return Files{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Files{}, fmt.Errorf("wikidump: %s returned %d", url, resp.StatusCode)
	}

	var status dumpStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return Files{}, err
	}

	pageFile, err := requireJob(status, jobPage, "page.sql.gz")
	if err != nil {
		return Files{}, err
	}
	redirFile, err := requireJob(status, jobRedirect, "redirect.sql.gz")
	if err != nil {
		return Files{}, err
	}
	linkFile, err := requireJob(status, jobPagelinks, "pagelinks.sql.gz")
	if err != nil {
		return Files{}, err
	}

	base := fmt.Sprintf("%s/%s/%s", l.Mirror, wiki.Database, date)
	return Files{
		Date:         date,
		PageURL:      base + "/" + pageFile,
		RedirectURL:  base + "/" + redirFile,
		PagelinksURL: base + "/" + linkFile,
	}, nil
}

// requireJob returns the single file name for a job whose status is
// "done" and whose files map contains an entry ending with suffix.
func requireJob(status dumpStatus, job, suffix string) (string, error) {
	j, ok := status.Jobs[job]
	if !ok || j.Status != "done" {
		return "", fmt.Errorf("wikidump: job %q not done", job)
	}
	names := make([]string, 0, len(j.Files))
	for name := range j.Files {
		names = append(names, name)
	}
	sort.Strings(names) // deterministic in case of multiple matches
	for _, name := range names {
		if len(name) >= len(suffix) && name[len(name)-len(suffix):] == suffix {
			return name, nil
		}
	}
	return "", fmt.Errorf("wikidump: job %q has no file ending in %q", job, suffix)
}

// candidateDates generates descending YYYYMMDD dump dates, approximating
// Wikipedia's twice-a-month cutting schedule (around the 1st and 20th).
func candidateDates(from time.Time, count int) []string {
	dates := make([]string, 0, count)
	year, month, _ := from.Date()
	cursor := time.Date(year, month, 20, 0, 0, 0, 0, time.UTC)
	if cursor.After(from) {
		cursor = time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	}
	for len(dates) < count {
		if !cursor.After(from) {
			dates = append(dates, cursor.Format(dateLayout))
		}
		if cursor.Day() == 20 {
			cursor = time.Date(cursor.Year(), cursor.Month(), 1, 0, 0, 0, 0, time.UTC)
		} else {
			prev := cursor.AddDate(0, -1, 0)
			cursor = time.Date(prev.Year(), prev.Month(), 20, 0, 0, 0, 0, time.UTC)
		}
	}
	return dates
}
