package chart

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	gochart "github.com/wcharczuk/go-chart/v2"
)

const (
	CategoryTitle = "Şikayet Kategorileri Dağılımı"
	ReasonTitle   = "Şikayet Sebepleri Dağılımı"

	chartWidth       = 1024
	chartHeight      = 768
	defaultRetention = 24 * time.Hour
)

// Renderer draws pie charts as PNG files under a directory.
type Renderer struct {
	dir       string
	retention time.Duration
	now       func() time.Time
}

func NewRenderer(dir string) *Renderer {
	return &Renderer{dir: dir, retention: defaultRetention, now: time.Now}
}

// Render writes a pie chart of counts and returns its path. Empty counts give
// an empty path and no error.
func (r *Renderer) Render(title string, counts map[string]int) (string, error) {
	slices := Aggregate(counts)
	if len(slices) == 0 {
		return "", nil
	}

	values := make([]gochart.Value, len(slices))
	for i, s := range slices {
		values[i] = gochart.Value{
			Label: fmt.Sprintf("%s (%d)", s.Label, s.Count),
			Value: float64(s.Count),
		}
	}

	pie := gochart.PieChart{
		Title:  title,
		Width:  chartWidth,
		Height: chartHeight,
		Values: values,
	}

	var buf bytes.Buffer
	if err := pie.Render(gochart.PNG, &buf); err != nil {
		return "", fmt.Errorf("failed to render chart: %w", err)
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create chart directory: %w", err)
	}

	path := filepath.Join(r.dir, uuid.NewString()+".png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write chart: %w", err)
	}

	r.prune()

	return path, nil
}

// prune removes chart files older than the retention period.
func (r *Renderer) prune() {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return
	}

	cutoff := r.now().Add(-r.retention)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".png") {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(r.dir, entry.Name())); err != nil {
			slog.Warn("Failed to remove old chart", "file", entry.Name(), "error", err)
		}
	}
}
