package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/lysyi3m/complaint-comb/app/llm"
	"github.com/lysyi3m/complaint-comb/app/taxonomy"
)

const (
	MessageNothingToAnalyze = "no complaints to analyze"
	ErrNoValidInput         = "no valid input"
	ErrNothingUsable        = "model produced nothing usable"
)

// Record is one input line of a classification batch.
type Record struct {
	ComplaintID int64  `json:"complaint_id"`
	Title       string `json:"title"`
	FullComment string `json:"full_comment"`
	RefURL      string `json:"ref_url"`
	Date        string `json:"date"`
}

type Assignment struct {
	ComplaintID int64  `json:"complaint_id"`
	Category    string `json:"category"`
	Reason      string `json:"reason"`
}

// Result never carries a Go error: a failed batch is a recoverable no-op for callers.
type Result struct {
	Success     bool
	Assignments []Assignment
	Submitted   int
	Message     string
	Error       string
}

type Engine struct {
	generator llm.Generator
	taxonomy  *taxonomy.Taxonomy
}

func NewEngine(generator llm.Generator, tx *taxonomy.Taxonomy) *Engine {
	return &Engine{
		generator: generator,
		taxonomy:  tx,
	}
}

// EncodeBatch renders records as newline-delimited JSON, the engine's input format.
func EncodeBatch(records []Record) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, record := range records {
		// Encode only fails on unsupported types, Record has none.
		_ = enc.Encode(record)
	}
	return buf.String()
}

// Classify sends the whole batch to the model in a single call and maps every
// returned line back onto the taxonomy.
func (e *Engine) Classify(ctx context.Context, batch string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Classification panicked", "panic", r)
			result = Result{Success: false, Error: fmt.Sprintf("classification failed: %v", r)}
		}
	}()

	if strings.TrimSpace(batch) == "" {
		return Result{Success: true, Message: MessageNothingToAnalyze}
	}

	submitted := countRecords(batch)
	if submitted == 0 {
		return Result{Success: false, Error: ErrNoValidInput}
	}

	response, err := e.generator.Generate(ctx, buildPrompt(e.taxonomy, batch))
	if err != nil {
		slog.Warn("Classification LLM call failed", "records", submitted, "error", err)
		return Result{Success: false, Submitted: submitted, Error: fmt.Sprintf("%s: %v", ErrNothingUsable, err)}
	}

	assignments := e.ParseResponse(response)
	if len(assignments) == 0 {
		return Result{Success: false, Submitted: submitted, Error: ErrNothingUsable}
	}

	slog.Debug("Classification batch parsed", "submitted", submitted, "assignments", len(assignments))

	return Result{
		Success:     true,
		Assignments: assignments,
		Submitted:   submitted,
	}
}

// ParseResponse reads one JSON object per line. Lines that are blank, fenced,
// malformed or missing a required key are skipped. When an id repeats, the
// later line wins but keeps the position of the first occurrence.
func (e *Engine) ParseResponse(response string) []Assignment {
	var assignments []Assignment
	position := make(map[int64]int)

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || llm.IsFence(line) {
			continue
		}

		assignment, ok := e.parseLine(line)
		if !ok {
			continue
		}

		if i, seen := position[assignment.ComplaintID]; seen {
			assignments[i] = assignment
			continue
		}
		position[assignment.ComplaintID] = len(assignments)
		assignments = append(assignments, assignment)
	}

	return assignments
}

func (e *Engine) parseLine(line string) (Assignment, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return Assignment{}, false
	}

	rawID, ok := lookup(fields, "complaint_id", "Complaint_ID")
	if !ok {
		return Assignment{}, false
	}
	id, ok := parseID(rawID)
	if !ok {
		return Assignment{}, false
	}

	category, ok := stringField(fields, "category")
	if !ok {
		return Assignment{}, false
	}
	reason, ok := stringField(fields, "reason")
	if !ok {
		return Assignment{}, false
	}

	return Assignment{
		ComplaintID: id,
		Category:    e.taxonomy.ResolveCategory(category),
		Reason:      e.taxonomy.ResolveReason(reason),
	}, true
}

func countRecords(batch string) int {
	count := 0
	for _, line := range strings.Split(batch, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var fields map[string]json.RawMessage
		if err := json.Unmarshal([]byte(line), &fields); err != nil {
			continue
		}
		if rawID, ok := lookup(fields, "complaint_id", "Complaint_ID"); ok {
			if _, ok := parseID(rawID); ok {
				count++
			}
		}
	}
	return count
}

func lookup(fields map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, key := range keys {
		if raw, ok := fields[key]; ok {
			return raw, true
		}
	}
	return nil, false
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false
	}
	return value, true
}

// parseID accepts integral JSON numbers and numeric strings.
func parseID(raw json.RawMessage) (int64, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		return id, err == nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	if id, err := n.Int64(); err == nil {
		return id, true
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}
