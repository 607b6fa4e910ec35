package db

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hughisie/agent0-article-pipeline/pkg/detector"
	"github.com/hughisie/agent0-article-pipeline/pkg/urlnorm"
)

// InsertURL stores a URL once, keyed by its exact text, and returns its url_id.
// canonical_url is urlnorm.Normalize of the text, so txt.php?id=BOE-A-... keeps
// its id while utm_* and fragments are dropped. Tracking pairs are not stored
// in url_query_params.
func (db *DB) InsertURL(rawURL string) (int64, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsed.Host == "" {
		return 0, fmt.Errorf("failed to parse URL: no host in %q", rawURL)
	}

	var existingID int64
	err = db.QueryRow("SELECT url_id FROM urls WHERE original_url = ?", rawURL).Scan(&existingID)
	if err == nil {
		return existingID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to check existing URL: %w", err)
	}

	result, err := db.Exec(`
		INSERT INTO urls (original_url, canonical_url, scheme, domain, path, domain_type)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rawURL, urlnorm.Normalize(rawURL), strings.ToLower(parsed.Scheme), strings.ToLower(parsed.Hostname()),
		parsed.Path, detector.DomainType(rawURL))
	if err != nil {
		return 0, fmt.Errorf("failed to insert URL: %w", err)
	}

	urlID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get URL ID: %w", err)
	}

	params, err := url.ParseQuery(parsed.RawQuery)
	if err != nil {
		return urlID, nil
	}
	for key, values := range params {
		if urlnorm.IsTrackingParam(key) {
			continue
		}
		for _, value := range values {
			if _, err := db.Exec(`
				INSERT INTO url_query_params (url_id, key, value)
				VALUES (?, ?, ?)
			`, urlID, key, value); err != nil {
				return 0, fmt.Errorf("failed to insert query param: %w", err)
			}
		}
	}
	return urlID, nil
}

// Access is one validation verdict to record.
type Access struct {
	StatusCode  int
	Reason      string
	ContentType string
	FinalURL    string
	Success     bool
}

// RecordAccess records a validation attempt in url_accesses and returns its access_id.
func (db *DB) RecordAccess(urlID int64, a Access) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO url_accesses (url_id, status_code, reason, content_type, final_url, success)
		VALUES (?, ?, ?, ?, ?, ?)
	`, urlID, a.StatusCode, a.Reason, NewNullString(a.ContentType), NewNullString(a.FinalURL), a.Success)
	if err != nil {
		return 0, fmt.Errorf("failed to record access: %w", err)
	}
	accessID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get access ID: %w", err)
	}
	return accessID, nil
}

// RecordRedirect records one hop of the redirect chain seen by an access.
func (db *DB) RecordRedirect(accessID, sourceURLID, targetURLID int64, hop int) error {
	_, err := db.Exec(`
		INSERT INTO url_redirects (access_id, source_url_id, target_url_id, hop)
		VALUES (?, ?, ?, ?)
	`, accessID, sourceURLID, targetURLID, hop)
	if err != nil {
		return fmt.Errorf("failed to record redirect: %w", err)
	}
	return nil
}

// GetLastAccess returns the most recent access record for a URL.
func (db *DB) GetLastAccess(urlID int64) (*AccessRecord, error) {
	var record AccessRecord
	var contentType, finalURL sql.NullString
	err := db.QueryRow(`
		SELECT access_id, accessed_at, status_code, reason, content_type, final_url, success
		FROM url_accesses
		WHERE url_id = ?
		ORDER BY access_id DESC
		LIMIT 1
	`, urlID).Scan(&record.AccessID, &record.AccessedAt, &record.StatusCode, &record.Reason, &contentType, &finalURL, &record.Success)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last access: %w", err)
	}
	record.ContentType = contentType.String
	record.FinalURL = finalURL.String
	return &record, nil
}

// AccessRecord represents a stored validation verdict.
type AccessRecord struct {
	AccessID    int64
	AccessedAt  time.Time
	StatusCode  int
	Reason      string
	ContentType string
	FinalURL    string
	Success     bool
}

// GetRedirectChain returns the target URLs recorded for an access, in hop order.
func (db *DB) GetRedirectChain(accessID int64) ([]string, error) {
	rows, err := db.Query(`
		SELECT u.original_url
		FROM url_redirects r
		JOIN urls u ON r.target_url_id = u.url_id
		WHERE r.access_id = ?
		ORDER BY r.hop
	`, accessID)
	if err != nil {
		return nil, fmt.Errorf("failed to get redirect chain: %w", err)
	}
	defer rows.Close()

	chain := []string{}
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan redirect: %w", err)
		}
		chain = append(chain, u)
	}
	return chain, rows.Err()
}

// GetURLID returns the url_id for a given original URL.
func (db *DB) GetURLID(originalURL string) (int64, error) {
	var urlID int64
	err := db.QueryRow("SELECT url_id FROM urls WHERE original_url = ?", originalURL).Scan(&urlID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("URL not found: %s", originalURL)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get URL ID: %w", err)
	}
	return urlID, nil
}

// NewNullString creates a sql.NullString from a string value.
func NewNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
