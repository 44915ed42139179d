// Package fetch downloads effect scripts from a remote listing into a local
// folder, so new scripts can be pulled without reinstalling the tool.
//
// The listing is plain text: one script name or absolute URL per line, with
// blank lines and #-comments ignored. Relative names resolve against the
// listing URL's directory.
package fetch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// requestTimeout bounds each individual HTTP request.
const requestTimeout = 2 * time.Minute

// Stats counts listing entries and download outcomes.
type Stats struct {
	Total      int
	Downloaded int
	Failed     int
}

// Fetcher downloads scripts over HTTP.
type Fetcher struct {
	client *http.Client
	log    *zap.SugaredLogger
}

// New builds a Fetcher with the default HTTP client.
func New(log *zap.SugaredLogger) *Fetcher {
	return &Fetcher{client: http.DefaultClient, log: log}
}

// Run fetches the listing at listingURL and downloads every script it names
// into destDir (created when missing). Per-script failures are logged and
// counted; only an unreachable or unparsable listing is an error.
func (f *Fetcher) Run(ctx context.Context, listingURL, destDir string) (Stats, error) {
	var stats Stats

	if listingURL == "" {
		return stats, errors.New("listing URL is required (use -u)")
	}
	base, err := url.Parse(listingURL)
	if err != nil {
		return stats, fmt.Errorf("invalid listing URL %q: %w", listingURL, err)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return stats, fmt.Errorf("cannot create script folder %s: %w", destDir, err)
	}

	body, err := f.get(ctx, listingURL)
	if err != nil {
		return stats, fmt.Errorf("fetching listing: %w", err)
	}
	defer body.Close()

	entries, err := ParseListing(body, base)
	if err != nil {
		return stats, fmt.Errorf("parsing listing: %w", err)
	}
	stats.Total = len(entries)
	f.log.Infof("Listing has %d scripts", len(entries))

	for _, e := range entries {
		if ctx.Err() != nil {
			f.log.Warnf("Interrupted")
			break
		}
		dest := filepath.Join(destDir, e.Name)
		if err := f.download(ctx, e.URL, dest); err != nil {
			stats.Failed++
			f.log.Warnf("%s failed: %v", e.Name, err)
			continue
		}
		stats.Downloaded++
		f.log.Infof("%s -> %s", e.Name, dest)
	}

	f.log.Infof("Done: %d downloaded, %d failed", stats.Downloaded, stats.Failed)
	return stats, nil
}

// Entry is one script named by the listing.
type Entry struct {
	Name string // Basename the script is saved under.
	URL  string // Fully resolved download URL.
}

// ParseListing reads a listing document and resolves each entry against
// base. Entries that resolve to a path with no usable basename are
// rejected.
func ParseListing(r io.Reader, base *url.URL) ([]Entry, error) {
	var entries []Entry
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		ref, err := url.Parse(line)
		if err != nil {
			return nil, fmt.Errorf("bad listing entry %q: %w", line, err)
		}
		resolved := base.ResolveReference(ref)

		name := path.Base(resolved.Path)
		if name == "" || name == "." || name == "/" {
			return nil, fmt.Errorf("listing entry %q has no script name", line)
		}
		entries = append(entries, Entry{Name: name, URL: resolved.String()})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// get issues a GET with the request timeout and returns the body on 200.
func (f *Fetcher) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("User-Agent", "magickbatch")

	resp, err := f.client.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("unexpected HTTP status: %s", resp.Status)
	}
	return &cancelReadCloser{ReadCloser: resp.Body, cancel: cancel}, nil
}

// download writes the script to a temp file next to dest and renames it
// into place, so an interrupted transfer never leaves a half-written
// executable behind. Scripts are saved executable.
func (f *Fetcher) download(ctx context.Context, rawURL, dest string) error {
	body, err := f.get(ctx, rawURL)
	if err != nil {
		return err
	}
	defer body.Close()

	tmp := dest + ".download"
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return err
	}

	_, copyErr := io.Copy(file, body)
	closeErr := file.Close()
	if copyErr != nil {
		_ = os.Remove(tmp)
		return copyErr
	}
	if closeErr != nil {
		_ = os.Remove(tmp)
		return closeErr
	}

	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// cancelReadCloser ties a request's context cancel to the body's Close.
type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
