package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/matthewbaird/partmanager/internal/types"
)

// Store is the interface for reading and writing activity entries.
type Store interface {
	// WriteEntries writes one or more activity entries (one event → many entries).
	WriteEntries(ctx context.Context, entries []types.ActivityEntry) error

	// QueryByEntity returns activity entries for a specific entity, newest first.
	QueryByEntity(ctx context.Context, entityType, entityID string, opts QueryOptions) (entries []types.ActivityEntry, nextCursor string, totalCount int, err error)

	// Search matches activity summaries case-insensitively.
	Search(ctx context.Context, query string, opts SearchOptions) (entries []types.ActivityEntry, totalCount int, err error)
}

const table = "activity_entries"

var columns = []string{
	"event_id", "event_type", "occurred_at", "indexed_entity_type", "indexed_entity_id",
	"entity_role", "source_refs", "summary", "category", "payload",
}

// SQLStore implements Store on the activity_entries table created by the
// store migrations. It works on SQLite and Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

// NewSQLStore creates a new SQLStore. entDialect is an ent dialect name.
func NewSQLStore(db *sql.DB, entDialect string) *SQLStore {
	return &SQLStore{db: db, dialect: entDialect}
}

// WriteEntries inserts activity entries, ignoring ones already stored.
func (s *SQLStore) WriteEntries(ctx context.Context, entries []types.ActivityEntry) error {
	if len(entries) == 0 {
		return nil
	}

	ins := entsql.Dialect(s.dialect).Insert(table).Columns(columns...)
	for _, e := range entries {
		refsJSON, err := json.Marshal(e.SourceRefs)
		if err != nil {
			return fmt.Errorf("encoding source refs: %w", err)
		}
		payload := string(e.Payload)
		if payload == "" {
			payload = "null"
		}
		ins.Values(
			e.EventID, e.EventType, e.OccurredAt.UnixNano(), e.IndexedEntityType, e.IndexedEntityID,
			e.EntityRole, string(refsJSON), e.Summary, e.Category, payload,
		)
	}
	ins.OnConflict(
		entsql.ConflictColumns("indexed_entity_type", "indexed_entity_id", "event_id"),
		entsql.DoNothing(),
	)

	query, args := ins.Query()
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

// QueryByEntity returns activity entries for a specific entity with filtering and pagination.
func (s *SQLStore) QueryByEntity(ctx context.Context, entityType, entityID string, opts QueryOptions) ([]types.ActivityEntry, string, int, error) {
	where := func() *entsql.Predicate {
		preds := []*entsql.Predicate{
			entsql.EQ("indexed_entity_type", entityType),
			entsql.EQ("indexed_entity_id", entityID),
		}
		if opts.Since != nil {
			preds = append(preds, entsql.GTE("occurred_at", opts.Since.UnixNano()))
		}
		if opts.Until != nil {
			preds = append(preds, entsql.LTE("occurred_at", opts.Until.UnixNano()))
		}
		if len(opts.Categories) > 0 {
			preds = append(preds, entsql.In("category", anySlice(opts.Categories)...))
		}
		if c, ok := opts.cursor(); ok {
			preds = append(preds, entsql.LT("occurred_at", c.UnixNano()))
		}
		return entsql.And(preds...)
	}

	limit := opts.limit()
	b := entsql.Dialect(s.dialect)
	sel := b.Select(columns...).From(b.Table(table)).
		Where(where()).
		OrderBy(entsql.Desc("occurred_at")).
		Limit(limit + 1)

	entries, err := s.scan(ctx, sel)
	if err != nil {
		return nil, "", 0, fmt.Errorf("querying activity entries: %w", err)
	}

	var nextCursor string
	if len(entries) > limit {
		entries = entries[:limit]
		nextCursor = entries[len(entries)-1].OccurredAt.Format(time.RFC3339Nano)
	}

	count := b.Select(entsql.Count("*")).From(b.Table(table)).Where(where())
	totalCount, err := s.count(ctx, count)
	if err != nil {
		return nil, "", 0, fmt.Errorf("counting activity entries: %w", err)
	}
	return entries, nextCursor, totalCount, nil
}

// Search matches summaries case-insensitively.
func (s *SQLStore) Search(ctx context.Context, query string, opts SearchOptions) ([]types.ActivityEntry, int, error) {
	where := func() *entsql.Predicate {
		preds := []*entsql.Predicate{entsql.ContainsFold("summary", query)}
		if opts.EntityType != "" {
			preds = append(preds, entsql.EQ("indexed_entity_type", opts.EntityType))
		}
		if opts.Since != nil {
			preds = append(preds, entsql.GTE("occurred_at", opts.Since.UnixNano()))
		}
		if len(opts.Categories) > 0 {
			preds = append(preds, entsql.In("category", anySlice(opts.Categories)...))
		}
		return entsql.And(preds...)
	}

	b := entsql.Dialect(s.dialect)
	sel := b.Select(columns...).From(b.Table(table)).
		Where(where()).
		OrderBy(entsql.Desc("occurred_at")).
		Limit(opts.limit())

	entries, err := s.scan(ctx, sel)
	if err != nil {
		return nil, 0, fmt.Errorf("searching activity entries: %w", err)
	}
	totalCount, err := s.count(ctx, b.Select(entsql.Count("*")).From(b.Table(table)).Where(where()))
	if err != nil {
		return nil, 0, fmt.Errorf("counting activity entries: %w", err)
	}
	return entries, totalCount, nil
}

func (s *SQLStore) scan(ctx context.Context, sel *entsql.Selector) ([]types.ActivityEntry, error) {
	query, args := sel.Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []types.ActivityEntry
	for rows.Next() {
		var e types.ActivityEntry
		var occurred int64
		var refsJSON, payload string
		err := rows.Scan(
			&e.EventID, &e.EventType, &occurred, &e.IndexedEntityType, &e.IndexedEntityID,
			&e.EntityRole, &refsJSON, &e.Summary, &e.Category, &payload,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning activity entry: %w", err)
		}
		e.OccurredAt = time.Unix(0, occurred)
		_ = json.Unmarshal([]byte(refsJSON), &e.SourceRefs)
		if payload != "null" {
			e.Payload = json.RawMessage(payload)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLStore) count(ctx context.Context, sel *entsql.Selector) (int, error) {
	query, args := sel.Query()
	var n int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
