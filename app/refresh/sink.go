package refresh

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/complaint-comb/app/crawler"
	"github.com/lysyi3m/complaint-comb/app/database"
)

// StoreSink writes crawled records to the complaint store and counts the
// rows that were actually new.
type StoreSink struct {
	store    database.ComplaintStore
	Inserted int
}

func NewStoreSink(store database.ComplaintStore) *StoreSink {
	return &StoreSink{store: store}
}

func (s *StoreSink) Emit(ctx context.Context, record crawler.Record) error {
	_, inserted, err := s.store.InsertIfAbsent(ctx, database.NewComplaint{
		RefURL:     record.RefURL,
		Title:      record.Title,
		FullText:   record.FullText,
		OccurredAt: record.OccurredAt,
	})
	if err != nil {
		return err
	}

	if inserted {
		s.Inserted++
	} else {
		slog.Debug("Complaint already stored", "url", record.RefURL)
	}

	return nil
}
