package locale

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Lower trims s and lower-cases it with Turkish rules ("İ" -> "i", "I" -> "ı").
// A Caser keeps state, so each call builds its own.
func Lower(s string) string {
	return cases.Lower(language.Turkish).String(strings.TrimSpace(s))
}

var months = map[string]time.Month{
	"ocak":    time.January,
	"şubat":   time.February,
	"mart":    time.March,
	"nisan":   time.April,
	"mayıs":   time.May,
	"haziran": time.June,
	"temmuz":  time.July,
	"ağustos": time.August,
	"eylül":   time.September,
	"ekim":    time.October,
	"kasım":   time.November,
	"aralık":  time.December,
}

var monthNames = [...]string{
	"", "Ocak", "Şubat", "Mart", "Nisan", "Mayıs", "Haziran",
	"Temmuz", "Ağustos", "Eylül", "Ekim", "Kasım", "Aralık",
}

// Month looks up a Turkish month name in any letter case.
func Month(name string) (time.Month, bool) {
	m, ok := months[Lower(name)]
	return m, ok
}

func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return m.String()
	}
	return monthNames[m]
}
