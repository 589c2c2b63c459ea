package command

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type mockGenerator struct {
	response string
	err      error
	calls    int
	prompt   string
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.calls++
	m.prompt = prompt
	return m.response, m.err
}

var fixedNow = time.Date(2025, time.March, 15, 14, 30, 0, 0, time.UTC)

func newTestInterpreter(gen *mockGenerator) *Interpreter {
	return NewInterpreter(gen).WithClock(func() time.Time { return fixedNow })
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveHoursBackIsExactWindow(t *testing.T) {
	gen := &mockGenerator{response: `{"kind": "hours_back", "hours": 24}`}
	r := newTestInterpreter(gen).Resolve(context.Background(), "Son 24 saati analiz et", Window{})

	if r.Kind != KindDatetimeRange {
		t.Fatalf("Expected datetime_range, got %s", r.Kind)
	}
	if !r.End.Equal(fixedNow) {
		t.Errorf("Expected end %v, got %v", fixedNow, r.End)
	}
	if r.End.Sub(r.Start) != 24*time.Hour {
		t.Errorf("Expected 24h span, got %v", r.End.Sub(r.Start))
	}
	if r.Source != SourceLLM {
		t.Errorf("Expected LLM source, got %s", r.Source)
	}
}

func TestResolveDaysBackIsInclusiveWindow(t *testing.T) {
	gen := &mockGenerator{response: "```json\n{\"kind\": \"days_back\", \"days\": 7}\n```"}
	r := newTestInterpreter(gen).Resolve(context.Background(), "Son 7 günü analiz et", Window{})

	if r.Kind != KindDateRange {
		t.Fatalf("Expected date_range, got %s", r.Kind)
	}
	if !r.End.Equal(day(2025, time.March, 15)) {
		t.Errorf("Expected end 2025-03-15, got %v", r.End)
	}
	if !r.Start.Equal(day(2025, time.March, 9)) {
		t.Errorf("Expected start 2025-03-09, got %v", r.Start)
	}
	if r.End.Sub(r.Start) != 6*24*time.Hour {
		t.Errorf("Expected start 6 days before end, got %v", r.End.Sub(r.Start))
	}
}

func TestResolveLegacyCommandShape(t *testing.T) {
	gen := &mockGenerator{response: `{"success": true, "command_type": "last_count", "parameters": {"count": 10}, "description": "Son 10 şikayet analizi"}`}
	r := newTestInterpreter(gen).Resolve(context.Background(), "Son 10 şikayeti analiz et", Window{})

	if r.Kind != KindLastCount || r.Count != 10 {
		t.Errorf("Expected last_count 10, got %s %d", r.Kind, r.Count)
	}
}

func TestResolveMonthUsesDataYear(t *testing.T) {
	latest := time.Date(2024, time.December, 1, 10, 0, 0, 0, time.UTC)
	earliest := time.Date(2024, time.January, 3, 10, 0, 0, 0, time.UTC)

	gen := &mockGenerator{response: `{"kind": "month", "month": 2}`}
	r := newTestInterpreter(gen).Resolve(context.Background(), "Şubat ayını analiz et", Window{Earliest: &earliest, Latest: &latest})

	if r.Kind != KindMonth {
		t.Fatalf("Expected month, got %s", r.Kind)
	}
	if r.Year != 2024 || r.Month != time.February {
		t.Errorf("Expected 2024 February, got %d %v", r.Year, r.Month)
	}
	if !r.End.Equal(day(2024, time.February, 29)) {
		t.Errorf("Expected leap-day end, got %v", r.End)
	}
	if !strings.Contains(gen.prompt, "2024-12-01 10:00:00") {
		t.Error("Expected prompt to include the latest stored timestamp")
	}
}

func TestResolveDateRangeIsOrdered(t *testing.T) {
	gen := &mockGenerator{response: `{"kind": "date_range", "start_date": "2025-02-10", "end_date": "2025-02-01"}`}
	r := newTestInterpreter(gen).Resolve(context.Background(), "tarih aralığı", Window{})

	if r.Kind != KindDateRange {
		t.Fatalf("Expected date_range, got %s", r.Kind)
	}
	if r.Start.After(r.End) {
		t.Errorf("Expected start <= end, got %v > %v", r.Start, r.End)
	}
	if !r.Start.Equal(day(2025, time.February, 1)) {
		t.Errorf("Expected start 2025-02-01, got %v", r.Start)
	}
}

func TestResolveChatAndInvalid(t *testing.T) {
	gen := &mockGenerator{response: `{"kind": "chat", "message": "Merhaba!"}`}
	r := newTestInterpreter(gen).Resolve(context.Background(), "Selam", Window{})
	if r.Kind != KindChat || r.ChatMessage != "Merhaba!" {
		t.Errorf("Expected chat 'Merhaba!', got %s '%s'", r.Kind, r.ChatMessage)
	}
	if r.IsAnalysis() {
		t.Error("Expected chat not to be an analysis")
	}

	gen = &mockGenerator{response: `{"kind": "invalid", "message": "whatever the model said"}`}
	r = newTestInterpreter(gen).Resolve(context.Background(), "2+2 kaç eder?", Window{})
	if r.Kind != KindInvalid {
		t.Fatalf("Expected invalid, got %s", r.Kind)
	}
	if r.Message != RefusalMessage {
		t.Errorf("Expected fixed refusal message, got '%s'", r.Message)
	}
}

func TestResolveFallsBack(t *testing.T) {
	tests := []struct {
		name string
		gen  *mockGenerator
	}{
		{"transport error", &mockGenerator{err: errors.New("timeout")}},
		{"empty text", &mockGenerator{response: "   "}},
		{"not json", &mockGenerator{response: "Son 3 gün analiz edilecek"}},
		{"unknown kind", &mockGenerator{response: `{"kind": "weekly"}`}},
		{"missing parameter", &mockGenerator{response: `{"kind": "days_back"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestInterpreter(tt.gen).Resolve(context.Background(), "Son 3 günü analiz et", Window{})

			if r.Source != SourceFallback {
				t.Errorf("Expected fallback source, got %s", r.Source)
			}
			if r.Kind != KindDateRange {
				t.Fatalf("Expected date_range, got %s", r.Kind)
			}
			if !r.Start.Equal(day(2025, time.March, 13)) {
				t.Errorf("Expected start 2025-03-13, got %v", r.Start)
			}
			if tt.gen.calls != 1 {
				t.Errorf("Expected exactly one LLM call, got %d", tt.gen.calls)
			}
		})
	}
}

func TestFallbackRules(t *testing.T) {
	interp := newTestInterpreter(nil)

	tests := []struct {
		input string
		kind  Kind
		check func(t *testing.T, r Resolution)
	}{
		{"Son 24 saati analiz et", KindDatetimeRange, func(t *testing.T, r Resolution) {
			if r.End.Sub(r.Start) != 24*time.Hour || !r.End.Equal(fixedNow) {
				t.Errorf("Expected 24h window ending now, got %v - %v", r.Start, r.End)
			}
		}},
		{"LAST 6 HOURS", KindDatetimeRange, func(t *testing.T, r Resolution) {
			if r.End.Sub(r.Start) != 6*time.Hour {
				t.Errorf("Expected 6h window, got %v", r.End.Sub(r.Start))
			}
		}},
		{"son 24 saat ve son 2 gün", KindDatetimeRange, nil},
		{"Son 7 gün", KindDateRange, func(t *testing.T, r Resolution) {
			if !r.Start.Equal(day(2025, time.March, 9)) || !r.End.Equal(day(2025, time.March, 15)) {
				t.Errorf("Expected 2025-03-09..2025-03-15, got %v - %v", r.Start, r.End)
			}
		}},
		{"son 2 hafta", KindDateRange, func(t *testing.T, r Resolution) {
			if !r.Start.Equal(day(2025, time.March, 2)) {
				t.Errorf("Expected start 2025-03-02, got %v", r.Start)
			}
		}},
		{"Son günü analiz et", KindDateRange, func(t *testing.T, r Resolution) {
			if !r.Start.Equal(day(2025, time.March, 15)) || !r.End.Equal(r.Start) {
				t.Errorf("Expected today only, got %v - %v", r.Start, r.End)
			}
		}},
		{"SON 10 ŞİKAYETİ analiz et", KindLastCount, func(t *testing.T, r Resolution) {
			if r.Count != 10 {
				t.Errorf("Expected count 10, got %d", r.Count)
			}
		}},
		{"last 5 complaints", KindLastCount, func(t *testing.T, r Resolution) {
			if r.Count != 5 {
				t.Errorf("Expected count 5, got %d", r.Count)
			}
		}},
		{"Mart ayını analiz et", KindMonth, func(t *testing.T, r Resolution) {
			if !r.Start.Equal(day(2025, time.March, 1)) || !r.End.Equal(day(2025, time.March, 31)) {
				t.Errorf("Expected March 2025, got %v - %v", r.Start, r.End)
			}
		}},
		{"bu ay değil ARALIK ayı", KindMonth, func(t *testing.T, r Resolution) {
			if r.Month != time.December {
				t.Errorf("Expected December, got %v", r.Month)
			}
		}},
		{"2025-01-01 2025-01-15", KindDateRange, func(t *testing.T, r Resolution) {
			if !r.Start.Equal(day(2025, time.January, 1)) || !r.End.Equal(day(2025, time.January, 15)) {
				t.Errorf("Expected 2025-01-01..2025-01-15, got %v - %v", r.Start, r.End)
			}
		}},
		{"hava nasıl?", KindInvalid, func(t *testing.T, r Resolution) {
			if r.Message != UsageHint {
				t.Errorf("Expected usage hint, got '%s'", r.Message)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			r := interp.Fallback(tt.input)
			if r.Kind != tt.kind {
				t.Fatalf("Expected %s, got %s", tt.kind, r.Kind)
			}
			if tt.check != nil {
				tt.check(t, r)
			}
		})
	}
}

func TestFallbackIsDeterministic(t *testing.T) {
	interp := newTestInterpreter(nil)

	first := interp.Fallback("Son 3 günü analiz et")
	second := interp.Fallback("Son 3 günü analiz et")

	if first != second {
		t.Errorf("Expected identical resolutions, got %+v and %+v", first, second)
	}
}

func TestMonthRange(t *testing.T) {
	tests := []struct {
		year    int
		month   time.Month
		lastDay int
	}{
		{2025, time.January, 31},
		{2025, time.July, 31},
		{2025, time.April, 30},
		{2024, time.February, 29},
		{2025, time.February, 28},
		{2000, time.February, 29},
		{1900, time.February, 28},
		{2025, time.December, 31},
	}

	for _, tt := range tests {
		start, end := MonthRange(tt.year, tt.month, time.UTC)
		if start.Day() != 1 || start.Month() != tt.month {
			t.Errorf("%d-%02d: expected start on day 1, got %v", tt.year, tt.month, start)
		}
		if end.Day() != tt.lastDay || end.Month() != tt.month || end.Year() != tt.year {
			t.Errorf("%d-%02d: expected last day %d, got %v", tt.year, tt.month, tt.lastDay, end)
		}
	}
}
