package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// Run is one batch run of the article pipeline.
type Run struct {
	RunID           string
	CreatedAt       time.Time
	FinishedAt      *time.Time
	ArticleCount    int
	SuccessCount    int
	FailedCount     int
	UnresolvedCount int
}

// RunArticle is the outcome of one article within a run.
type RunArticle struct {
	ArticleID        string
	Status           string
	ResolutionReason string
	PrimaryURL       string
	LinksRemoved     int
	ErrorMessage     string
}

// CreateRun records the start of a run.
func (db *DB) CreateRun(ctx context.Context, runID string, articleCount int) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO runs (run_id, article_count)
		VALUES (?, ?)
	`, runID, articleCount)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// InsertRunArticle records an article outcome. Re-recording an article replaces it.
func (db *DB) InsertRunArticle(ctx context.Context, runID string, a RunArticle) error {
	_, err := db.ExecContext(ctx, `
		INSERT OR REPLACE INTO run_articles
			(run_id, article_id, status, resolution_reason, primary_url, links_removed, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, runID, a.ArticleID, a.Status, NewNullString(a.ResolutionReason), NewNullString(a.PrimaryURL),
		a.LinksRemoved, NewNullString(a.ErrorMessage))
	if err != nil {
		return fmt.Errorf("failed to insert run article: %w", err)
	}
	return nil
}

// FinishRun stamps the run with its final counts.
func (db *DB) FinishRun(ctx context.Context, runID string, successCount, failedCount, unresolvedCount int) error {
	res, err := db.ExecContext(ctx, `
		UPDATE runs
		SET finished_at = CURRENT_TIMESTAMP, success_count = ?, failed_count = ?, unresolved_count = ?
		WHERE run_id = ?
	`, successCount, failedCount, unresolvedCount, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

var runColumns = []string{
	"run_id", "created_at", "finished_at", "article_count",
	"success_count", "failed_count", "unresolved_count",
}

func scanRun(row interface{ Scan(...any) error }) (Run, error) {
	var r Run
	var finished sql.NullTime
	err := row.Scan(&r.RunID, &r.CreatedAt, &finished, &r.ArticleCount,
		&r.SuccessCount, &r.FailedCount, &r.UnresolvedCount)
	if finished.Valid {
		r.FinishedAt = &finished.Time
	}
	return r, err
}

// GetRun retrieves a run by its ID.
func (db *DB) GetRun(ctx context.Context, runID string) (*Run, error) {
	stmt, args, err := sq.Select(runColumns...).From("runs").Where(sq.Eq{"run_id": runID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build run query: %w", err)
	}
	r, err := scanRun(db.QueryRowContext(ctx, stmt, args...))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &r, nil
}

// ListRuns retrieves runs ordered by most recent first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := sq.Select(runColumns...).From("runs").OrderBy("created_at DESC", "rowid DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build runs query: %w", err)
	}

	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRunArticles retrieves the article outcomes of a run in insertion order.
func (db *DB) GetRunArticles(ctx context.Context, runID string) ([]RunArticle, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT article_id, status, COALESCE(resolution_reason, ''), COALESCE(primary_url, ''),
		       links_removed, COALESCE(error_message, '')
		FROM run_articles
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run articles: %w", err)
	}
	defer rows.Close()

	var articles []RunArticle
	for rows.Next() {
		var a RunArticle
		if err := rows.Scan(&a.ArticleID, &a.Status, &a.ResolutionReason, &a.PrimaryURL,
			&a.LinksRemoved, &a.ErrorMessage); err != nil {
			return nil, fmt.Errorf("failed to scan run article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}
