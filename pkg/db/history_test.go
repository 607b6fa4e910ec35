package db

import (
	"context"
	"testing"
	"time"

	"github.com/hughisie/agent0-article-pipeline/models"
)

func seedHistory(t *testing.T, db *DB) {
	t.Helper()
	results := []models.ValidationResult{
		{
			OriginalURL:   "http://www.boe.es/diario_boe/txt.php?id=BOE-A-2025-1",
			FinalURL:      "https://www.boe.es/diario_boe/txt.php?id=BOE-A-2025-1",
			StatusCode:    200,
			ContentType:   "text/html",
			RedirectChain: []string{"https://www.boe.es/diario_boe/txt.php?id=BOE-A-2025-1"},
			OK:            true,
		},
		{
			OriginalURL:   "https://www.boe.es/old/page",
			StatusCode:    404,
			RedirectChain: []string{},
			Reason:        models.StatusReason(404),
		},
		{
			OriginalURL:   "https://example.com/gone",
			StatusCode:    410,
			RedirectChain: []string{},
			Reason:        models.StatusReason(410),
		},
		{
			OriginalURL:   "https://example.com/slow",
			RedirectChain: []string{},
			Reason:        "request_error: context deadline exceeded",
		},
	}
	for _, r := range results {
		if err := db.RecordValidation(context.Background(), r); err != nil {
			t.Fatalf("RecordValidation(%s) failed: %v", r.OriginalURL, err)
		}
	}
}

func TestRecordValidation_Redirects(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	seedHistory(t, db)

	urlID, err := db.GetURLID("http://www.boe.es/diario_boe/txt.php?id=BOE-A-2025-1")
	if err != nil {
		t.Fatalf("GetURLID() failed: %v", err)
	}
	last, err := db.GetLastAccess(urlID)
	if err != nil || last == nil {
		t.Fatalf("GetLastAccess() = %v, %v", last, err)
	}
	if !last.Success || last.FinalURL != "https://www.boe.es/diario_boe/txt.php?id=BOE-A-2025-1" {
		t.Errorf("last access = %+v", last)
	}

	chain, err := db.GetRedirectChain(last.AccessID)
	if err != nil {
		t.Fatalf("GetRedirectChain() failed: %v", err)
	}
	if len(chain) != 1 || chain[0] != "https://www.boe.es/diario_boe/txt.php?id=BOE-A-2025-1" {
		t.Errorf("GetRedirectChain() = %v", chain)
	}
}

func TestRecordValidation_CancelledContext(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := db.RecordValidation(ctx, models.ValidationResult{OriginalURL: "https://example.com"}); err == nil {
		t.Error("RecordValidation() with cancelled context should fail")
	}
}

func TestListAccesses(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	seedHistory(t, db)

	failed := false
	tests := []struct {
		name   string
		filter HistoryFilter
		want   []string
	}{
		{
			name:   "no filter is newest first",
			filter: HistoryFilter{},
			want: []string{
				"https://example.com/slow",
				"https://example.com/gone",
				"https://www.boe.es/old/page",
				"http://www.boe.es/diario_boe/txt.php?id=BOE-A-2025-1",
			},
		},
		{
			name:   "canonical URL ignores scheme, tracking and fragment",
			filter: HistoryFilter{URL: "https://www.boe.es/diario_boe/txt.php?id=BOE-A-2025-1&utm_source=newsletter#art-1"},
			want:   []string{"http://www.boe.es/diario_boe/txt.php?id=BOE-A-2025-1"},
		},
		{
			name:   "canonical URL keeps the document id",
			filter: HistoryFilter{URL: "https://www.boe.es/diario_boe/txt.php?id=BOE-A-2025-2"},
			want:   []string{},
		},
		{
			name:   "domain substring",
			filter: HistoryFilter{Domain: "boe.es"},
			want:   []string{"https://www.boe.es/old/page", "http://www.boe.es/diario_boe/txt.php?id=BOE-A-2025-1"},
		},
		{
			name:   "reason prefix",
			filter: HistoryFilter{Reason: "status_4"},
			want:   []string{"https://example.com/gone", "https://www.boe.es/old/page"},
		},
		{
			name:   "failures on a domain",
			filter: HistoryFilter{Domain: "example.com", Success: &failed},
			want:   []string{"https://example.com/slow", "https://example.com/gone"},
		},
		{
			name:   "limit",
			filter: HistoryFilter{Limit: 1},
			want:   []string{"https://example.com/slow"},
		},
		{
			name:   "since the future",
			filter: HistoryFilter{Since: time.Now().Add(time.Hour)},
			want:   []string{},
		},
		{
			name:   "since an hour ago",
			filter: HistoryFilter{Since: time.Now().Add(-time.Hour), Domain: "example.com"},
			want:   []string{"https://example.com/slow", "https://example.com/gone"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ListAccesses(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("ListAccesses() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ListAccesses() returned %d entries, want %d: %+v", len(got), len(tt.want), got)
			}
			for i, u := range tt.want {
				if got[i].URL != u {
					t.Errorf("entry[%d].URL = %q, want %q", i, got[i].URL, u)
				}
			}
		})
	}
}

func TestListAccesses_Fields(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	seedHistory(t, db)

	got, err := db.ListAccesses(context.Background(), HistoryFilter{Reason: "status_404"})
	if err != nil {
		t.Fatalf("ListAccesses() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ListAccesses() = %+v, want one entry", got)
	}
	e := got[0]
	if e.Domain != "www.boe.es" || e.DomainType != "official" || e.StatusCode != 404 || e.Success {
		t.Errorf("entry = %+v", e)
	}
}

func TestCountByReason(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	seedHistory(t, db)

	urlID, _ := db.GetURLID("https://example.com/gone")
	db.RecordAccess(urlID, Access{StatusCode: 410, Reason: models.StatusReason(410)})

	got, err := db.CountByReason(context.Background(), HistoryFilter{})
	if err != nil {
		t.Fatalf("CountByReason() error = %v", err)
	}
	want := []ReasonCount{
		{Reason: "status_410", Count: 2},
		{Reason: "", Count: 1},
		{Reason: "request_error: context deadline exceeded", Count: 1},
		{Reason: "status_404", Count: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("CountByReason() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("CountByReason()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestPruneAccesses(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	seedHistory(t, db)

	n, err := db.PruneAccesses(context.Background(), time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("PruneAccesses() error = %v", err)
	}
	if n != 0 {
		t.Errorf("PruneAccesses(hour ago) removed %d, want 0", n)
	}

	n, err = db.PruneAccesses(context.Background(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("PruneAccesses() error = %v", err)
	}
	if n != 4 {
		t.Errorf("PruneAccesses(future) removed %d, want 4", n)
	}

	var redirects int
	db.QueryRow("SELECT COUNT(*) FROM url_redirects").Scan(&redirects)
	if redirects != 0 {
		t.Errorf("url_redirects has %d rows after prune, want 0", redirects)
	}
}
