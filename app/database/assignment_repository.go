package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var _ AssignmentStore = (*AssignmentRepository)(nil)

// AssignmentRepository handles database operations for category assignments
type AssignmentRepository struct {
	db  *DB
	now func() time.Time
}

func NewAssignmentRepository(db *DB) *AssignmentRepository {
	return &AssignmentRepository{db: db, now: time.Now}
}

// UpsertAssignments writes assignments in one transaction, replacing any
// previous assignment of the same complaint. It returns the number written.
func (r *AssignmentRepository) UpsertAssignments(ctx context.Context, assignments []Assignment) (int, error) {
	if len(assignments) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO assignments (complaint_id, category, reason, assigned_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (complaint_id) DO UPDATE SET
			category = excluded.category,
			reason = excluded.reason,
			assigned_at = excluded.assigned_at
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare assignment upsert: %w", err)
	}
	defer stmt.Close()

	assignedAt := formatTime(r.now())
	for _, a := range assignments {
		if _, err := stmt.ExecContext(ctx, a.ComplaintID, a.Category, a.Reason, assignedAt); err != nil {
			return 0, fmt.Errorf("failed to upsert assignment for complaint %d: %w", a.ComplaintID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit assignments: %w", err)
	}

	return len(assignments), nil
}

func (r *AssignmentRepository) GetByComplaintID(ctx context.Context, complaintID int64) (*Assignment, error) {
	var a Assignment
	var assignedAt string

	err := r.db.QueryRowContext(ctx, `
		SELECT complaint_id, category, reason, assigned_at
		FROM assignments
		WHERE complaint_id = ?
	`, complaintID).Scan(&a.ComplaintID, &a.Category, &a.Reason, &assignedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	if a.AssignedAt, err = parseTime(assignedAt); err != nil {
		return nil, err
	}

	return &a, nil
}

// StatsForComplaints counts categories and reasons of the categorized
// complaints among ids.
func (r *AssignmentRepository) StatsForComplaints(ctx context.Context, ids []int64) (Stats, error) {
	stats := Stats{
		Categories: make(map[string]int),
		Reasons:    make(map[string]int),
	}

	for _, chunk := range chunkIDs(ids) {
		rows, err := r.db.QueryContext(ctx, `
			SELECT a.category, a.reason
			FROM assignments a
			WHERE a.complaint_id IN (`+placeholders(len(chunk))+`) AND `+categorizedCondition,
			idArgs(chunk)...)
		if err != nil {
			return Stats{}, fmt.Errorf("failed to query assignment stats: %w", err)
		}

		if err := collectStats(rows, &stats); err != nil {
			return Stats{}, err
		}
	}

	return stats, nil
}

func collectStats(rows *sql.Rows, stats *Stats) error {
	defer rows.Close()

	for rows.Next() {
		var category string
		var reason sql.NullString
		if err := rows.Scan(&category, &reason); err != nil {
			return fmt.Errorf("failed to scan assignment stats: %w", err)
		}

		stats.Categories[strings.TrimSpace(category)]++
		if r := strings.TrimSpace(reason.String); r != "" {
			stats.Reasons[r]++
		}
		stats.Total++
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating assignment stats: %w", err)
	}
	return nil
}
