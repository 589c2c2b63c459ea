package database

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// sqlite caps bound parameters per statement; id lists are queried in chunks.
const idChunkSize = 500

const complaintColumns = `c.id, c.ref_url, c.title, c.full_text, c.occurred_at, c.stored_at`

var _ ComplaintStore = (*ComplaintRepository)(nil)

// ComplaintRepository handles database operations for scraped complaints
type ComplaintRepository struct {
	db  *DB
	now func() time.Time
}

func NewComplaintRepository(db *DB) *ComplaintRepository {
	return &ComplaintRepository{db: db, now: time.Now}
}

// InsertIfAbsent stores a complaint unless its reference URL is already known.
// It returns the row id and whether a new row was written.
func (r *ComplaintRepository) InsertIfAbsent(ctx context.Context, c NewComplaint) (int64, bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO complaints (ref_url, title, full_text, occurred_at, stored_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (ref_url) DO NOTHING
	`, c.RefURL, c.Title, c.FullText, formatTime(c.OccurredAt), formatTime(r.now()))
	if err != nil {
		return 0, false, fmt.Errorf("failed to insert complaint: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected > 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return 0, false, fmt.Errorf("failed to read inserted id: %w", err)
		}
		return id, true, nil
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, `SELECT id FROM complaints WHERE ref_url = ?`, c.RefURL).Scan(&id); err != nil {
		return 0, false, fmt.Errorf("failed to look up existing complaint: %w", err)
	}
	return id, false, nil
}

func (r *ComplaintRepository) GetByID(ctx context.Context, id int64) (*Complaint, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+complaintColumns+` FROM complaints c WHERE c.id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get complaint: %w", err)
	}

	complaints, err := scanComplaints(rows)
	if err != nil {
		return nil, err
	}
	if len(complaints) == 0 {
		return nil, nil
	}
	return &complaints[0], nil
}

func (r *ComplaintRepository) AllRefURLs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT ref_url FROM complaints`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reference URLs: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan reference URL: %w", err)
		}
		urls = append(urls, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reference URLs: %w", err)
	}

	return urls, nil
}

// DateRange returns the earliest and latest occurred_at, both nil on an empty table.
func (r *ComplaintRepository) DateRange(ctx context.Context) (*time.Time, *time.Time, error) {
	var earliest, latest sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT MIN(occurred_at), MAX(occurred_at) FROM complaints`).Scan(&earliest, &latest)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get date range: %w", err)
	}

	if !earliest.Valid || !latest.Valid {
		return nil, nil, nil
	}

	e, err := parseTime(earliest.String)
	if err != nil {
		return nil, nil, err
	}
	l, err := parseTime(latest.String)
	if err != nil {
		return nil, nil, err
	}

	return &e, &l, nil
}

// Counts returns the number of complaints and how many of them are categorized.
func (r *ComplaintRepository) Counts(ctx context.Context) (int, int, error) {
	var total, categorized int
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM complaints),
			(SELECT COUNT(*) FROM assignments a WHERE `+categorizedCondition+`)
	`).Scan(&total, &categorized)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get complaint counts: %w", err)
	}
	return total, categorized, nil
}

// ListByCount returns the n most recent complaints, newest first.
func (r *ComplaintRepository) ListByCount(ctx context.Context, n int) ([]Complaint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+complaintColumns+`
		FROM complaints c
		ORDER BY c.occurred_at DESC, c.id DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to list complaints by count: %w", err)
	}
	return scanComplaints(rows)
}

// ListByDateRange returns complaints from the start day through the whole end day.
func (r *ComplaintRepository) ListByDateRange(ctx context.Context, start, end time.Time) ([]Complaint, error) {
	from := dayStart(start)
	until := dayStart(end).AddDate(0, 0, 1)

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+complaintColumns+`
		FROM complaints c
		WHERE c.occurred_at >= ? AND c.occurred_at < ?
		ORDER BY c.occurred_at DESC, c.id DESC
	`, formatTime(from), formatTime(until))
	if err != nil {
		return nil, fmt.Errorf("failed to list complaints by date range: %w", err)
	}
	return scanComplaints(rows)
}

// ListByDatetimeRange returns complaints with start <= occurred_at <= end.
func (r *ComplaintRepository) ListByDatetimeRange(ctx context.Context, start, end time.Time) ([]Complaint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+complaintColumns+`
		FROM complaints c
		WHERE c.occurred_at >= ? AND c.occurred_at <= ?
		ORDER BY c.occurred_at DESC, c.id DESC
	`, formatTime(start), formatTime(end))
	if err != nil {
		return nil, fmt.Errorf("failed to list complaints by datetime range: %w", err)
	}
	return scanComplaints(rows)
}

// ListUncategorized returns complaints among ids that have no usable
// assignment. A nil ids slice means every stored complaint.
func (r *ComplaintRepository) ListUncategorized(ctx context.Context, ids []int64) ([]Complaint, error) {
	base := `
		SELECT ` + complaintColumns + `
		FROM complaints c
		LEFT JOIN assignments a ON a.complaint_id = c.id
		WHERE NOT (` + categorizedCondition + `)`

	if ids == nil {
		rows, err := r.db.QueryContext(ctx, base+` ORDER BY c.occurred_at DESC, c.id DESC`)
		if err != nil {
			return nil, fmt.Errorf("failed to list uncategorized complaints: %w", err)
		}
		return scanComplaints(rows)
	}

	var result []Complaint
	for _, chunk := range chunkIDs(ids) {
		rows, err := r.db.QueryContext(ctx, base+` AND c.id IN (`+placeholders(len(chunk))+`) ORDER BY c.occurred_at DESC, c.id DESC`, idArgs(chunk)...)
		if err != nil {
			return nil, fmt.Errorf("failed to list uncategorized complaints: %w", err)
		}
		complaints, err := scanComplaints(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, complaints...)
	}

	slices.SortFunc(result, newestFirst)
	return result, nil
}

// categorizedCondition matches assignment rows with a real category. Older
// rows may carry the literal string NULL.
const categorizedCondition = `a.complaint_id IS NOT NULL AND a.category IS NOT NULL AND TRIM(a.category) <> '' AND UPPER(TRIM(a.category)) <> 'NULL'`

func scanComplaints(rows *sql.Rows) ([]Complaint, error) {
	defer rows.Close()

	var complaints []Complaint
	for rows.Next() {
		var c Complaint
		var occurredAt, storedAt string

		if err := rows.Scan(&c.ID, &c.RefURL, &c.Title, &c.FullText, &occurredAt, &storedAt); err != nil {
			return nil, fmt.Errorf("failed to scan complaint: %w", err)
		}

		var err error
		if c.OccurredAt, err = parseTime(occurredAt); err != nil {
			return nil, err
		}
		if c.StoredAt, err = parseTime(storedAt); err != nil {
			return nil, err
		}

		complaints = append(complaints, c)
	}

	if err := rows.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("complaint query timed out: %w", err)
		}
		return nil, fmt.Errorf("error iterating complaints: %w", err)
	}

	return complaints, nil
}

func newestFirst(a, b Complaint) int {
	if c := b.OccurredAt.Compare(a.OccurredAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

func dayStart(t time.Time) time.Time {
	t = t.In(time.Local)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func chunkIDs(ids []int64) [][]int64 {
	var chunks [][]int64
	for len(ids) > idChunkSize {
		chunks = append(chunks, ids[:idChunkSize])
		ids = ids[idChunkSize:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func idArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
