package command

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/lysyi3m/complaint-comb/app/locale"
)

var (
	hourPatterns = []*regexp.Regexp{
		regexp.MustCompile(`son\s+(\d+)\s+saat`),
		regexp.MustCompile(`(\d+)\s+saat`),
		regexp.MustCompile(`last\s+(\d+)\s+hours?`),
		regexp.MustCompile(`(\d+)\s+hours?`),
	}

	dayPatterns = []*regexp.Regexp{
		regexp.MustCompile(`son\s+(\d+)\s+gün`),
		regexp.MustCompile(`(\d+)\s+gün`),
		regexp.MustCompile(`last\s+(\d+)\s+days?`),
		regexp.MustCompile(`(\d+)\s+days?`),
	}

	weekPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+)\s+hafta`),
		regexp.MustCompile(`(\d+)\s+weeks?`),
	}

	todayPatterns = []*regexp.Regexp{
		regexp.MustCompile(`son\s+gün`),
		regexp.MustCompile(`bugün`),
		regexp.MustCompile(`\btoday\b`),
	}

	countPatterns = []*regexp.Regexp{
		regexp.MustCompile(`son\s+(\d+)\s+şikayet`),
		regexp.MustCompile(`last\s+(\d+)\s+compla[iı]nts?`),
	}

	// \w and \b are ASCII only in RE2, Turkish words need \p{L}.
	monthPattern = regexp.MustCompile(`(\p{L}+)\s+ay`)

	datePairPattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})\s+(\d{4}-\d{2}-\d{2})`)
)

// Fallback resolves text with ordered pattern rules. It is deterministic and
// never touches the network. Order: hours, days and weeks, today, last N
// complaints, month name, explicit date pair.
func (i *Interpreter) Fallback(text string) Resolution {
	r := i.fallback(text)
	r.Source = SourceFallback
	return r
}

func (i *Interpreter) fallback(text string) Resolution {
	lowered := locale.Lower(text)
	now := i.now()

	if n, ok := firstNumber(hourPatterns, lowered); ok {
		return HoursBack(now, n)
	}

	if n, ok := firstNumber(dayPatterns, lowered); ok {
		return DaysBack(now, n)
	}
	if n, ok := firstNumber(weekPatterns, lowered); ok {
		return DaysBack(now, n*7)
	}

	for _, p := range todayPatterns {
		if p.MatchString(lowered) {
			return Today(now)
		}
	}

	if n, ok := firstNumber(countPatterns, lowered); ok {
		return LastCount(n, "")
	}

	for _, match := range monthPattern.FindAllStringSubmatch(lowered, -1) {
		if month, ok := locale.Month(match[1]); ok {
			return MonthOf(now.Year(), month, now.Location())
		}
	}

	if match := datePairPattern.FindStringSubmatch(lowered); match != nil {
		start, err1 := time.ParseInLocation(DateLayout, match[1], now.Location())
		end, err2 := time.ParseInLocation(DateLayout, match[2], now.Location())
		if err1 == nil && err2 == nil {
			return DateRange(start, end, "")
		}
	}

	return Resolution{Kind: KindInvalid, Message: UsageHint}
}

// firstNumber returns the capture of the first pattern that matches with a positive count.
func firstNumber(patterns []*regexp.Regexp, text string) (int, bool) {
	for _, p := range patterns {
		match := p.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(match[1]))
		if err != nil || n <= 0 {
			continue
		}
		return n, true
	}
	return 0, false
}
