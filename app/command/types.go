package command

import (
	"time"
)

type Kind string

const (
	KindChat          Kind = "chat"
	KindLastCount     Kind = "last_count"
	KindDateRange     Kind = "date_range"
	KindMonth         Kind = "month"
	KindDatetimeRange Kind = "datetime_range"
	KindInvalid       Kind = "invalid"
)

const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

const (
	RefusalMessage = "Bu konuda size yardımcı olamam. Vestel şikayet analizi veya sistemi hakkında soru sorabilirsiniz."
	UsageHint      = "Komut anlaşılamadı. Örnekler: 'Son 10 şikayeti analiz et', 'Son 2 günü analiz et', 'Mart ayını analiz et'"
	DefaultChat    = "Merhaba! Ben Vestel şikayet analiz asistanıyım. Örneğin 'Son 10 şikayeti analiz et' yazabilirsiniz."
)

const (
	DateLayout     = "2006-01-02"
	DatetimeLayout = "2006-01-02 15:04:05"
)

// Resolution is the structured form of a user request. Exactly one Kind is set.
// Range kinds always carry Start <= End; date kinds use midnight-aligned values
// and an inclusive End day.
type Resolution struct {
	Kind        Kind
	Count       int
	Start       time.Time
	End         time.Time
	Year        int
	Month       time.Month
	Description string
	ChatMessage string
	Message     string
	Source      string
}

func (r Resolution) IsAnalysis() bool {
	switch r.Kind {
	case KindLastCount, KindDateRange, KindMonth, KindDatetimeRange:
		return true
	}
	return false
}

// Window describes the span of stored complaints, used to resolve bare month names.
type Window struct {
	Earliest *time.Time
	Latest   *time.Time
}

// MonthRange returns the first and last calendar day of the month.
func MonthRange(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, -1)
	return start, end
}
