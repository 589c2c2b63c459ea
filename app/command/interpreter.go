package command

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lysyi3m/complaint-comb/app/llm"
	"github.com/lysyi3m/complaint-comb/app/locale"
)

type Interpreter struct {
	generator llm.Generator
	now       func() time.Time
}

func NewInterpreter(generator llm.Generator) *Interpreter {
	return &Interpreter{
		generator: generator,
		now:       time.Now,
	}
}

// WithClock replaces the time source, mainly for tests.
func (i *Interpreter) WithClock(now func() time.Time) *Interpreter {
	i.now = now
	return i
}

type llmParams struct {
	Count         int    `json:"count"`
	Hours         int    `json:"hours"`
	Days          int    `json:"days"`
	Year          int    `json:"year"`
	Month         int    `json:"month"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	StartDatetime string `json:"start_datetime"`
	EndDatetime   string `json:"end_datetime"`
}

type llmCommand struct {
	Kind        string     `json:"kind"`
	CommandType string     `json:"command_type"`
	Parameters  *llmParams `json:"parameters"`
	Message     string     `json:"message"`
	Description string     `json:"description"`
	llmParams
}

// Resolve turns free text into a Resolution. The model is asked first; any
// unusable answer, including a transport failure, falls through to Fallback.
func (i *Interpreter) Resolve(ctx context.Context, text string, window Window) Resolution {
	now := i.now()
	dataYear := now.Year()
	if window.Latest != nil {
		dataYear = window.Latest.Year()
	}

	if i.generator == nil {
		return i.Fallback(text)
	}

	response, err := i.generator.Generate(ctx, buildPrompt(text, now, window, dataYear))
	if err != nil {
		slog.Warn("Command LLM call failed, using fallback", "error", err)
		return i.Fallback(text)
	}

	cleaned := llm.StripCodeFences(response)
	if cleaned == "" {
		slog.Debug("Command LLM returned empty text, using fallback")
		return i.Fallback(text)
	}

	var cmd llmCommand
	if err := json.Unmarshal([]byte(cleaned), &cmd); err != nil {
		slog.Debug("Command LLM returned non-JSON, using fallback", "error", err)
		return i.Fallback(text)
	}

	resolution, ok := fromLLM(cmd, now, dataYear)
	if !ok {
		slog.Debug("Command LLM returned unusable command, using fallback", "kind", cmd.Kind, "command_type", cmd.CommandType)
		return i.Fallback(text)
	}

	resolution.Source = SourceLLM
	return resolution
}

func fromLLM(cmd llmCommand, now time.Time, dataYear int) (Resolution, bool) {
	kind := strings.ToLower(strings.TrimSpace(cmd.Kind))
	if kind == "" {
		kind = strings.ToLower(strings.TrimSpace(cmd.CommandType))
	}

	params := cmd.llmParams
	if cmd.Parameters != nil {
		params = *cmd.Parameters
	}

	loc := now.Location()

	switch kind {
	case string(KindInvalid):
		return Resolution{Kind: KindInvalid, Message: RefusalMessage}, true

	case string(KindChat):
		message := strings.TrimSpace(cmd.Message)
		if message == "" {
			message = DefaultChat
		}
		return Resolution{Kind: KindChat, ChatMessage: message}, true

	case string(KindLastCount):
		if params.Count <= 0 {
			return Resolution{}, false
		}
		return LastCount(params.Count, cmd.Description), true

	case "hours_back":
		if params.Hours <= 0 {
			return Resolution{}, false
		}
		return HoursBack(now, params.Hours), true

	case "days_back":
		if params.Days <= 0 {
			return Resolution{}, false
		}
		return DaysBack(now, params.Days), true

	case string(KindMonth):
		if params.Month < 1 || params.Month > 12 {
			return Resolution{}, false
		}
		year := params.Year
		if year <= 0 {
			year = dataYear
		}
		return MonthOf(year, time.Month(params.Month), loc), true

	case string(KindDateRange):
		start, err1 := time.ParseInLocation(DateLayout, strings.TrimSpace(params.StartDate), loc)
		end, err2 := time.ParseInLocation(DateLayout, strings.TrimSpace(params.EndDate), loc)
		if err1 != nil || err2 != nil {
			return Resolution{}, false
		}
		return DateRange(start, end, cmd.Description), true

	case string(KindDatetimeRange):
		start, err1 := time.ParseInLocation(DatetimeLayout, strings.TrimSpace(params.StartDatetime), loc)
		end, err2 := time.ParseInLocation(DatetimeLayout, strings.TrimSpace(params.EndDatetime), loc)
		if err1 != nil || err2 != nil {
			return Resolution{}, false
		}
		return DatetimeRange(start, end, ""), true
	}

	return Resolution{}, false
}

func LastCount(count int, description string) Resolution {
	if description == "" {
		description = fmt.Sprintf("Son %d şikayet analizi", count)
	}
	return Resolution{
		Kind:        KindLastCount,
		Count:       count,
		Description: description,
	}
}

// HoursBack covers exactly the last n hours ending at now.
func HoursBack(now time.Time, hours int) Resolution {
	start := now.Add(-time.Duration(hours) * time.Hour)
	return DatetimeRange(start, now, fmt.Sprintf("Son %d saat analizi (%s - %s)",
		hours, start.Format("2006-01-02 15:04"), now.Format("2006-01-02 15:04")))
}

// DaysBack covers n calendar days including today.
func DaysBack(now time.Time, days int) Resolution {
	end := truncateDay(now)
	start := end.AddDate(0, 0, -(days - 1))
	return DateRange(start, end, fmt.Sprintf("Son %d gün analizi (%s - %s)",
		days, start.Format(DateLayout), end.Format(DateLayout)))
}

func Today(now time.Time) Resolution {
	day := truncateDay(now)
	return DateRange(day, day, fmt.Sprintf("Bugünkü analiz (%s)", day.Format(DateLayout)))
}

func MonthOf(year int, month time.Month, loc *time.Location) Resolution {
	start, end := MonthRange(year, month, loc)
	r := DateRange(start, end, fmt.Sprintf("%d %s analizi", year, locale.MonthName(month)))
	r.Kind = KindMonth
	r.Year = year
	r.Month = month
	return r
}

// DateRange normalizes both ends to midnight and orders them.
func DateRange(start, end time.Time, description string) Resolution {
	start, end = truncateDay(start), truncateDay(end)
	if end.Before(start) {
		start, end = end, start
	}
	if description == "" {
		description = fmt.Sprintf("%s - %s arası analiz", start.Format(DateLayout), end.Format(DateLayout))
	}
	return Resolution{
		Kind:        KindDateRange,
		Start:       start,
		End:         end,
		Description: description,
	}
}

func DatetimeRange(start, end time.Time, description string) Resolution {
	if end.Before(start) {
		start, end = end, start
	}
	if description == "" {
		description = fmt.Sprintf("%s - %s arası analiz", start.Format("2006-01-02 15:04"), end.Format("2006-01-02 15:04"))
	}
	return Resolution{
		Kind:        KindDatetimeRange,
		Start:       start,
		End:         end,
		Description: description,
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
