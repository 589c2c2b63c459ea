package refresh

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/complaint-comb/app/crawler"
	"github.com/lysyi3m/complaint-comb/app/database"
)

type mockStore struct {
	database.ComplaintStore

	mu       sync.Mutex
	urls     []string
	urlsErr  error
	inserted []database.NewComplaint
}

func (m *mockStore) AllRefURLs(ctx context.Context) ([]string, error) {
	return m.urls, m.urlsErr
}

func (m *mockStore) InsertIfAbsent(ctx context.Context, c database.NewComplaint) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.urls {
		if u == c.RefURL {
			return 1, false, nil
		}
	}
	m.urls = append(m.urls, c.RefURL)
	m.inserted = append(m.inserted, c)
	return int64(len(m.urls)), true, nil
}

type mockRunner struct {
	progress Progress
	err      error
	delay    time.Duration

	known   crawler.RefSet
	running atomic.Int32
	overlap atomic.Bool
}

func (m *mockRunner) Run(ctx context.Context, known crawler.RefSet) (Progress, error) {
	if m.running.Add(1) > 1 {
		m.overlap.Store(true)
	}
	defer m.running.Add(-1)

	m.known = known

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return Progress{}, ctx.Err()
		}
	}
	return m.progress, m.err
}

func TestWriteAndParseMarkers(t *testing.T) {
	var out strings.Builder
	summary := crawler.Summary{StopReason: crawler.StopDuplicateFound, DuplicateURL: "https://example.com/x"}

	if err := WriteMarkers(&out, summary, 7); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	expected := "DUPLICATE_FOUND url=https://example.com/x\nSTOPPING reason=duplicate_found\nitems_scraped_count=7\n"
	if out.String() != expected {
		t.Errorf("Expected %q, got %q", expected, out.String())
	}

	p, err := ParseProgress(strings.NewReader("starting\n" + out.String() + "done\n"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if p.ItemsScraped != 7 || p.StopReason != crawler.StopDuplicateFound || p.DuplicateURL != "https://example.com/x" {
		t.Errorf("Unexpected progress: %+v", p)
	}
}

func TestParseProgressWithoutMarkers(t *testing.T) {
	p, err := ParseProgress(strings.NewReader("nothing useful\n"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if p != (Progress{}) {
		t.Errorf("Expected empty progress, got %+v", p)
	}

	if _, err := ParseProgress(strings.NewReader("items_scraped_count=many\n")); err == nil {
		t.Error("Expected error for a non-numeric count")
	}
}

func TestRefsFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.txt")
	known := crawler.NewRefSet([]string{"https://example.com/a", "https://example.com/b"})

	if err := WriteRefsFile(path, known); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	got, err := ReadRefsFile(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(got) != 2 || !got.Contains("https://example.com/a") || !got.Contains("https://example.com/b") {
		t.Errorf("Expected both URLs back, got %v", got)
	}

	if _, err := ReadRefsFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("Expected error for a missing refs file")
	}
}

func TestRefresherPassesSnapshot(t *testing.T) {
	store := &mockStore{urls: []string{"u1", "u2"}}
	runner := &mockRunner{progress: Progress{ItemsScraped: 3, StopReason: crawler.StopDuplicateFound}}

	p, err := NewRefresher(store, runner, time.Second).Refresh(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if p.ItemsScraped != 3 {
		t.Errorf("Expected 3 new records, got %d", p.ItemsScraped)
	}
	if len(runner.known) != 2 || !runner.known.Contains("u1") {
		t.Errorf("Expected snapshot of known URLs, got %v", runner.known)
	}
}

func TestRefresherFailures(t *testing.T) {
	t.Run("store error", func(t *testing.T) {
		store := &mockStore{urlsErr: errors.New("disk gone")}
		if _, err := NewRefresher(store, &mockRunner{}, time.Second).Refresh(context.Background()); err == nil {
			t.Error("Expected error when known URLs cannot be loaded")
		}
	})

	t.Run("runner error", func(t *testing.T) {
		runner := &mockRunner{err: errors.New("boom")}
		if _, err := NewRefresher(&mockStore{}, runner, time.Second).Refresh(context.Background()); err == nil {
			t.Error("Expected runner error to surface")
		}
	})

	t.Run("timeout", func(t *testing.T) {
		runner := &mockRunner{delay: time.Second}
		_, err := NewRefresher(&mockStore{}, runner, 20*time.Millisecond).Refresh(context.Background())
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Expected deadline exceeded, got %v", err)
		}
	})
}

func TestRefresherSerializesRuns(t *testing.T) {
	runner := &mockRunner{delay: 20 * time.Millisecond}
	r := NewRefresher(&mockStore{}, runner, time.Second)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Refresh(context.Background())
		}()
	}
	wg.Wait()

	if runner.overlap.Load() {
		t.Error("Expected refreshes never to overlap")
	}
}

func TestInProcessRunner(t *testing.T) {
	mux := http.NewServeMux()

	mux.HandleFunc("/sikayetler", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><body>
			<article class="card-v2 ga-v ga-c"><h2 class="complaint-title"><a href="/c/new">n</a></h2></article>
			<article class="card-v2 ga-v ga-c"><h2 class="complaint-title"><a href="/c/old">o</a></h2></article>
		</body></html>`)
	})
	mux.HandleFunc("/c/new", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<h1 class="complaint-detail-title">Yeni</h1>
			<div class="complaint-detail-description">Çalışmıyor</div>
			<div class="post-time"><div>12 Mart 2025 10:30</div></div>
		</body></html>`)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	c, err := crawler.New(crawler.NewHTTPFetcher(server.Client(), "test", 0), server.URL+"/sikayetler")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	store := &mockStore{urls: []string{server.URL + "/c/old"}}
	runner := NewInProcessRunner(c, store, 2, 5)

	p, err := runner.Run(context.Background(), crawler.NewRefSet(store.urls))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if p.ItemsScraped != 1 {
		t.Errorf("Expected 1 new record, got %d", p.ItemsScraped)
	}
	if p.StopReason != crawler.StopDuplicateFound {
		t.Errorf("Expected stop reason %s, got %s", crawler.StopDuplicateFound, p.StopReason)
	}
	if len(store.inserted) != 1 || store.inserted[0].Title != "Yeni" {
		t.Errorf("Expected stored complaint Yeni, got %+v", store.inserted)
	}
}

// TestHelperProcess stands in for the crawl command when ProcessRunner tests
// re-execute the test binary.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("COMPLAINT_COMB_HELPER") == "" {
		return
	}

	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}

	switch os.Getenv("COMPLAINT_COMB_HELPER") {
	case "ok":
		var refs string
		for i, a := range args {
			if a == "--refs-file" && i+1 < len(args) {
				refs = args[i+1]
			}
		}
		known, err := ReadRefsFile(refs)
		if err != nil || args[0] != "crawl" {
			os.Exit(3)
		}
		fmt.Println("crawling...")
		WriteMarkers(os.Stdout, crawler.Summary{StopReason: crawler.StopDuplicateFound, DuplicateURL: "u1"}, len(known))
		os.Exit(0)
	case "fail":
		fmt.Println("items_scraped_count=2")
		os.Exit(1)
	case "hang":
		time.Sleep(10 * time.Second)
		os.Exit(0)
	}
}

func helperRunner(mode string) *ProcessRunner {
	return NewProcessRunner(os.Args[0], "-test.run=TestHelperProcess", "--").
		WithEnv("COMPLAINT_COMB_HELPER=" + mode)
}

func TestProcessRunner(t *testing.T) {
	known := crawler.NewRefSet([]string{"u1", "u2", "u3"})

	p, err := helperRunner("ok").Run(context.Background(), known)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if p.ItemsScraped != 3 {
		t.Errorf("Expected child to see 3 known URLs, got %d", p.ItemsScraped)
	}
	if p.StopReason != crawler.StopDuplicateFound || p.DuplicateURL != "u1" {
		t.Errorf("Unexpected progress: %+v", p)
	}
}

func TestProcessRunnerFailure(t *testing.T) {
	p, err := helperRunner("fail").Run(context.Background(), crawler.RefSet{})
	if err == nil {
		t.Fatal("Expected error for non-zero exit")
	}
	if p.ItemsScraped != 2 {
		t.Errorf("Expected partial progress to be parsed, got %d", p.ItemsScraped)
	}
}

func TestProcessRunnerTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := helperRunner("hang").Run(ctx, crawler.RefSet{})
	if !errors.Is(err, ErrCrawlTimeout) {
		t.Errorf("Expected crawl timeout, got %v", err)
	}
}
