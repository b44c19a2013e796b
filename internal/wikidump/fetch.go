package wikidump

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cavaliercoder/grab"
	"github.com/cheggaaa/pb/v3"

	"github.com/hut8/wikiwalk/internal/wikierr"
)

// LocalFiles mirrors Files but with on-disk paths instead of URLs, once
// downloaded.
type LocalFiles struct {
	Date         string
	PagePath     string
	RedirectPath string
	PagelinksPath string
}

// Fetch downloads the three dump files named in f into dir, skipping any
// file already present with the expected sha1 hash. A progress bar is
// shown per file only when showProgress is true.
func Fetch(dir string, f Files, expectedSHA1 map[string]string, showProgress bool) (LocalFiles, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return LocalFiles{}, &wikierr.IoError{Path: dir, Cause: err}
	}

	pagePath, err := fetchOne(dir, f.PageURL, expectedSHA1["page"], showProgress)
	if err != nil {
		return LocalFiles{}, err
	}
	redirPath, err := fetchOne(dir, f.RedirectURL, expectedSHA1["redirect"], showProgress)
	if err != nil {
		return LocalFiles{}, err
	}
	linkPath, err := fetchOne(dir, f.PagelinksURL, expectedSHA1["pagelinks"], showProgress)
	if err != nil {
		return LocalFiles{}, err
	}

	return LocalFiles{
		Date:          f.Date,
		PagePath:      pagePath,
		RedirectPath:  redirPath,
		PagelinksPath: linkPath,
	}, nil
}

// fetchOne downloads a single dump file, verifying its sha1 hash if one
// was supplied, and skipping the download if a correctly-hashed copy
// already exists on disk.
func fetchOne(dir, url, sha1Hex string, showProgress bool) (string, error) {
	dest := filepath.Join(dir, filepath.Base(url))

	if sha1Hex != "" {
		if _, err := os.Stat(dest); err == nil {
			if hash, err := fileSHA1(dest); err == nil && hash == sha1Hex {
				return dest, nil
			}
		}
	}

	req, err := grab.NewRequest(dest, url)
	if err != nil {
		return "", &wikierr.IoError{Path: url, Cause: err}
	}
	if sha1Hex != "" {
		sum, err := hex.DecodeString(sha1Hex)
		if err == nil {
			req.SetChecksum(sha1.New(), sum, true)
		}
	}

	client := grab.NewClient()
	resp := client.Do(req)

	var bar *pb.ProgressBar
	if showProgress {
		bar = pb.Start64(resp.Size())
		defer bar.Finish()
	}

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
Poll:
	for {
		select {
		case <-ticker.C:
			if bar != nil {
				bar.SetCurrent(resp.BytesComplete())
			}
		case <-resp.Done:
			break Poll
		}
	}
	if bar != nil {
		bar.SetCurrent(resp.BytesComplete())
	}

	if err := resp.Err(); err != nil {
		return "", &wikierr.IoError{Path: url, Cause: fmt.Errorf("download failed: %w", err)}
	}
	return resp.Filename, nil
}

// fileSHA1 computes the hex-encoded sha1 hash of a file on disk.
func fileSHA1(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
