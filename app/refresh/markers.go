package refresh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/lysyi3m/complaint-comb/app/crawler"
)

// Stdout markers of the crawl command. One marker per line; anything else on
// stdout is ignored by the parent.
const (
	markerDuplicate = "DUPLICATE_FOUND url="
	markerStopping  = "STOPPING reason="
	markerCount     = "items_scraped_count="
)

// WriteMarkers prints the summary of a finished crawl in marker form.
func WriteMarkers(w io.Writer, summary crawler.Summary, inserted int) error {
	var b strings.Builder

	if summary.DuplicateURL != "" {
		fmt.Fprintf(&b, "%s%s\n", markerDuplicate, summary.DuplicateURL)
	}
	if summary.StopReason != "" {
		fmt.Fprintf(&b, "%s%s\n", markerStopping, summary.StopReason)
	}
	fmt.Fprintf(&b, "%s%d\n", markerCount, inserted)

	_, err := io.WriteString(w, b.String())
	return err
}

// ParseProgress reads crawl output and collects the markers it finds. The
// last occurrence of a marker wins.
func ParseProgress(r io.Reader) (Progress, error) {
	var p Progress

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case strings.HasPrefix(line, markerDuplicate):
			p.DuplicateURL = strings.TrimSpace(strings.TrimPrefix(line, markerDuplicate))
		case strings.HasPrefix(line, markerStopping):
			p.StopReason = strings.TrimSpace(strings.TrimPrefix(line, markerStopping))
		case strings.HasPrefix(line, markerCount):
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, markerCount)))
			if err != nil {
				return p, fmt.Errorf("invalid item count marker %q: %w", line, err)
			}
			p.ItemsScraped = n
		}
	}

	if err := scanner.Err(); err != nil {
		return p, fmt.Errorf("failed to read crawl output: %w", err)
	}

	return p, nil
}

// WriteRefsFile stores known URLs one per line.
func WriteRefsFile(path string, known crawler.RefSet) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create refs file: %w", err)
	}

	w := bufio.NewWriter(f)
	for u := range known {
		if _, err := fmt.Fprintln(w, u); err != nil {
			f.Close()
			return fmt.Errorf("failed to write refs file: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write refs file: %w", err)
	}

	return f.Close()
}

// ReadRefsFile loads a refs file written by WriteRefsFile. Blank lines are skipped.
func ReadRefsFile(path string) (crawler.RefSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open refs file: %w", err)
	}
	defer f.Close()

	known := crawler.RefSet{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if u := strings.TrimSpace(scanner.Text()); u != "" {
			known[u] = struct{}{}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read refs file: %w", err)
	}

	return known, nil
}
