package crawler

import (
	"bytes"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/lysyi3m/complaint-comb/app/locale"
)

const (
	cardSelector    = "article.card-v2.ga-v.ga-c"
	linkSelector    = "h2.complaint-title a"
	dateSelector    = "div.post-time div"
	titleSelector   = "h1.complaint-detail-title"
	bodySelector    = "div.complaint-detail-description"
	futureTolerance = 24 * time.Hour
)

// Card is one entry of a listing page. Index is 1-based in document order;
// URL is empty when the card has no detail link.
type Card struct {
	Index int
	URL   string
}

type Detail struct {
	Title    string
	Body     string
	DateText string
}

func ParseListing(data []byte, base *url.URL) ([]Card, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing HTML: %w", err)
	}

	var cards []Card
	doc.Find(cardSelector).Each(func(i int, sel *goquery.Selection) {
		card := Card{Index: i + 1}
		if href, ok := sel.Find(linkSelector).First().Attr("href"); ok {
			card.URL = resolveURL(base, strings.TrimSpace(href))
		}
		cards = append(cards, card)
	})

	return cards, nil
}

func ParseDetail(data []byte) (Detail, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return Detail{}, fmt.Errorf("failed to parse detail HTML: %w", err)
	}

	return Detail{
		Title:    collapse(doc.Find(titleSelector).Text()),
		Body:     collapse(doc.Find(bodySelector).Text()),
		DateText: collapse(doc.Find(dateSelector).First().Text()),
	}, nil
}

// ParseTurkishDate reads "12 Mart 14:35" or "12 Mart 2024 14:35". Without a
// year the current one is assumed, stepping back a year when that would put
// the post more than a day in the future.
func ParseTurkishDate(text string, now time.Time) (time.Time, error) {
	parts := strings.Fields(text)
	if len(parts) != 3 && len(parts) != 4 {
		return time.Time{}, fmt.Errorf("unexpected date format: %q", text)
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day in %q: %w", text, err)
	}

	month, ok := locale.Month(parts[1])
	if !ok {
		return time.Time{}, fmt.Errorf("unknown month name %q", parts[1])
	}

	year := now.Year()
	explicitYear := len(parts) == 4
	if explicitYear {
		if year, err = strconv.Atoi(parts[2]); err != nil {
			return time.Time{}, fmt.Errorf("invalid year in %q: %w", text, err)
		}
	}

	clock, err := time.Parse("15:04", parts[len(parts)-1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time in %q: %w", text, err)
	}

	if day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("day out of range in %q", text)
	}

	t := time.Date(year, month, day, clock.Hour(), clock.Minute(), 0, 0, now.Location())
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("day out of range in %q", text)
	}

	if !explicitYear && t.After(now.Add(futureTolerance)) {
		t = t.AddDate(-1, 0, 0)
	}

	return t, nil
}

func resolveURL(base *url.URL, href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
