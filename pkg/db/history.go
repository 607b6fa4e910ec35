package db

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/hughisie/agent0-article-pipeline/models"
	"github.com/hughisie/agent0-article-pipeline/pkg/urlnorm"
)

// sqliteTime matches the text CURRENT_TIMESTAMP writes, so comparisons stay lexical.
const sqliteTime = "2006-01-02 15:04:05"

// RecordValidation stores a verdict together with its redirect hops.
func (db *DB) RecordValidation(ctx context.Context, r models.ValidationResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	urlID, err := db.InsertURL(r.OriginalURL)
	if err != nil {
		return err
	}
	accessID, err := db.RecordAccess(urlID, Access{
		StatusCode:  r.StatusCode,
		Reason:      r.Reason,
		ContentType: r.ContentType,
		FinalURL:    r.FinalURL,
		Success:     r.OK,
	})
	if err != nil {
		return err
	}

	sourceID := urlID
	for hop, target := range r.RedirectChain {
		targetID, err := db.InsertURL(target)
		if err != nil {
			return fmt.Errorf("failed to insert redirect target: %w", err)
		}
		if err := db.RecordRedirect(accessID, sourceID, targetID, hop); err != nil {
			return err
		}
		sourceID = targetID
	}
	return nil
}

// HistoryFilter narrows ListAccesses. Zero values match everything.
type HistoryFilter struct {
	URL     string // any spelling with the same canonical form
	Domain  string // substring of the host
	Reason  string // prefix, so "status_4" matches every 4xx
	Success *bool
	Since   time.Time
	Limit   int
}

// HistoryEntry is one stored verdict joined with its URL.
type HistoryEntry struct {
	URL        string
	Domain     string
	DomainType string
	AccessRecord
}

// ListAccesses returns stored verdicts, newest first.
func (db *DB) ListAccesses(ctx context.Context, f HistoryFilter) ([]HistoryEntry, error) {
	query := filtered(sq.Select(
		"a.access_id", "u.original_url", "u.domain", "COALESCE(u.domain_type, '')",
		"a.accessed_at", "COALESCE(a.status_code, 0)", "a.reason",
		"COALESCE(a.content_type, '')", "COALESCE(a.final_url, '')", "a.success",
	).From("url_accesses a").Join("urls u ON a.url_id = u.url_id"), f).
		OrderBy("a.access_id DESC")
	if f.Limit > 0 {
		query = query.Limit(uint64(f.Limit))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build history query: %w", err)
	}
	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.AccessID, &e.URL, &e.Domain, &e.DomainType,
			&e.AccessedAt, &e.StatusCode, &e.Reason, &e.ContentType, &e.FinalURL, &e.Success); err != nil {
			return nil, fmt.Errorf("failed to scan access: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ReasonCount is the number of stored verdicts sharing a reason.
type ReasonCount struct {
	Reason string
	Count  int
}

// CountByReason groups the verdicts matching f by reason, most frequent first.
// Successful verdicts appear under the empty reason.
func (db *DB) CountByReason(ctx context.Context, f HistoryFilter) ([]ReasonCount, error) {
	stmt, args, err := filtered(sq.Select("a.reason", "COUNT(*) AS n").
		From("url_accesses a").Join("urls u ON a.url_id = u.url_id"), f).
		GroupBy("a.reason").
		OrderBy("n DESC", "a.reason").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build reason query: %w", err)
	}
	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count reasons: %w", err)
	}
	defer rows.Close()

	counts := []ReasonCount{}
	for rows.Next() {
		var c ReasonCount
		if err := rows.Scan(&c.Reason, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan reason count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func filtered(b sq.SelectBuilder, f HistoryFilter) sq.SelectBuilder {
	if f.URL != "" {
		b = b.Where(sq.Eq{"u.canonical_url": urlnorm.Normalize(f.URL)})
	}
	if f.Domain != "" {
		b = b.Where(sq.Like{"u.domain": "%" + f.Domain + "%"})
	}
	if f.Reason != "" {
		b = b.Where(sq.Like{"a.reason": f.Reason + "%"})
	}
	if f.Success != nil {
		b = b.Where(sq.Eq{"a.success": *f.Success})
	}
	if !f.Since.IsZero() {
		b = b.Where(sq.GtOrEq{"a.accessed_at": f.Since.UTC().Format(sqliteTime)})
	}
	return b
}

// PruneAccesses deletes verdicts older than cutoff and returns how many went.
func (db *DB) PruneAccesses(ctx context.Context, cutoff time.Time) (int64, error) {
	stmt, args, err := sq.Delete("url_accesses").
		Where(sq.Lt{"accessed_at": cutoff.UTC().Format(sqliteTime)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build prune query: %w", err)
	}
	res, err := db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return res.RowsAffected()
}
