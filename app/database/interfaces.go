package database

import (
	"context"
	"time"
)

type ComplaintStore interface {
	InsertIfAbsent(ctx context.Context, complaint NewComplaint) (int64, bool, error)
	GetByID(ctx context.Context, id int64) (*Complaint, error)
	AllRefURLs(ctx context.Context) ([]string, error)
	DateRange(ctx context.Context) (*time.Time, *time.Time, error)
	Counts(ctx context.Context) (int, int, error)

	ListByCount(ctx context.Context, n int) ([]Complaint, error)
	ListByDateRange(ctx context.Context, start, end time.Time) ([]Complaint, error)
	ListByDatetimeRange(ctx context.Context, start, end time.Time) ([]Complaint, error)
	ListUncategorized(ctx context.Context, ids []int64) ([]Complaint, error)
}

type AssignmentStore interface {
	UpsertAssignments(ctx context.Context, assignments []Assignment) (int, error)
	GetByComplaintID(ctx context.Context, complaintID int64) (*Assignment, error)
	StatsForComplaints(ctx context.Context, ids []int64) (Stats, error)
}
