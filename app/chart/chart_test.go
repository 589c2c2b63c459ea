package chart

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAggregateMergesOtherVariants(t *testing.T) {
	counts := map[string]int{
		"Fırın":            40,
		"Buzdolabı":        35,
		"Televizyon":       30,
		"Çamaşır Makinesi": 25,
		"Bulaşık Makinesi": 20,
		"Klima":            15,
		"Süpürge":          10,
		"Ocak":             4,
		"Diğer":            6,
		"diğer":            3,
	}

	got := Aggregate(counts)

	if len(got) > MaxSlices {
		t.Fatalf("Expected at most %d slices, got %d", MaxSlices, len(got))
	}

	last := got[len(got)-1]
	if last.Label != OtherLabel {
		t.Fatalf("Expected last slice %q, got %q", OtherLabel, last.Label)
	}
	if last.Count != 6+3+4 {
		t.Errorf("Expected merged other count 13, got %d", last.Count)
	}

	for _, s := range got[:len(got)-1] {
		if IsOther(s.Label) {
			t.Errorf("Expected no other variant outside the merged slice, got %q", s.Label)
		}
	}

	total := 0
	for _, s := range got {
		total += s.Count
	}
	if total != 188 {
		t.Errorf("Expected counts to be preserved (188), got %d", total)
	}
}

func TestAggregateOrdering(t *testing.T) {
	got := Aggregate(map[string]int{"B": 2, "A": 2, "C": 5, "D": 0})

	expected := []Slice{{"C", 5}, {"A", 2}, {"B", 2}}
	if len(got) != len(expected) {
		t.Fatalf("Expected %d slices, got %d", len(expected), len(got))
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Expected %v at %d, got %v", expected[i], i, got[i])
		}
	}
}

func TestAggregateOverflowWithoutOther(t *testing.T) {
	counts := map[string]int{}
	for i, label := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"} {
		counts[label] = 10 - i
	}

	got := Aggregate(counts)
	if len(got) != MaxSlices {
		t.Fatalf("Expected %d slices, got %d", MaxSlices, len(got))
	}
	if got[7].Label != OtherLabel || got[7].Count != 3+2 {
		t.Errorf("Expected Diğer=5, got %v", got[7])
	}
}

func TestAggregateExactlyEight(t *testing.T) {
	counts := map[string]int{}
	for i, label := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		counts[label] = 10 - i
	}

	got := Aggregate(counts)
	if len(got) != 8 {
		t.Fatalf("Expected 8 slices, got %d", len(got))
	}
	for _, s := range got {
		if s.Label == OtherLabel {
			t.Error("Expected no Diğer slice when eight labels fit")
		}
	}
}

func TestIsOther(t *testing.T) {
	for _, label := range []string{"Diğer", "diğer", "DİĞER", "Diger", "other", " Other "} {
		if !IsOther(label) {
			t.Errorf("Expected %q to be an other variant", label)
		}
	}
	if IsOther("Fırın") {
		t.Error("Expected Fırın not to be an other variant")
	}
}

func TestRender(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	r := NewRenderer(dir)

	path, err := r.Render(CategoryTitle, map[string]int{"Fırın": 3, "Buzdolabı": 2, "Diğer": 1})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("Expected chart under %s, got %s", dir, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected chart file, got %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("Expected PNG data")
	}
}

func TestRenderEmpty(t *testing.T) {
	path, err := NewRenderer(t.TempDir()).Render(ReasonTitle, map[string]int{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if path != "" {
		t.Errorf("Expected empty path, got %s", path)
	}
}

func TestRenderPrunesOldCharts(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.png")
	if err := os.WriteFile(old, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	stale := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatal(err)
	}

	if _, err := NewRenderer(dir).Render(ReasonTitle, map[string]int{"Arıza": 2, "Kargo": 1}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("Expected old chart to be removed")
	}
}
