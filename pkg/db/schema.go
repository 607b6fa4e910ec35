package db

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- URLs table: every URL that was validated or redirected to
CREATE TABLE IF NOT EXISTS urls (
    url_id INTEGER PRIMARY KEY AUTOINCREMENT,
    original_url TEXT NOT NULL UNIQUE,
    canonical_url TEXT,
    scheme TEXT NOT NULL,
    domain TEXT NOT NULL,
    path TEXT,
    domain_type TEXT,            -- official, gov, social, mobile, news, commercial
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_urls_domain ON urls(domain);
CREATE INDEX IF NOT EXISTS idx_urls_canonical ON urls(canonical_url);
CREATE INDEX IF NOT EXISTS idx_urls_domain_type ON urls(domain_type);

-- URL query parameters: normalized query strings
CREATE TABLE IF NOT EXISTS url_query_params (
    param_id INTEGER PRIMARY KEY AUTOINCREMENT,
    url_id INTEGER NOT NULL,
    key TEXT NOT NULL,
    value TEXT,
    FOREIGN KEY (url_id) REFERENCES urls(url_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_params_url ON url_query_params(url_id);
CREATE INDEX IF NOT EXISTS idx_params_key ON url_query_params(key);

-- URL accesses: every validation verdict
CREATE TABLE IF NOT EXISTS url_accesses (
    access_id INTEGER PRIMARY KEY AUTOINCREMENT,
    url_id INTEGER NOT NULL,
    accessed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    status_code INTEGER,
    reason TEXT NOT NULL DEFAULT '',
    content_type TEXT,
    final_url TEXT,
    success BOOLEAN NOT NULL,
    FOREIGN KEY (url_id) REFERENCES urls(url_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_accesses_url ON url_accesses(url_id);
CREATE INDEX IF NOT EXISTS idx_accesses_time ON url_accesses(accessed_at);
CREATE INDEX IF NOT EXISTS idx_accesses_success ON url_accesses(success);
CREATE INDEX IF NOT EXISTS idx_accesses_reason ON url_accesses(reason);

-- URL redirects: one row per hop of a redirect chain
CREATE TABLE IF NOT EXISTS url_redirects (
    redirect_id INTEGER PRIMARY KEY AUTOINCREMENT,
    access_id INTEGER NOT NULL,
    source_url_id INTEGER NOT NULL,
    target_url_id INTEGER NOT NULL,
    hop INTEGER NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (access_id) REFERENCES url_accesses(access_id) ON DELETE CASCADE,
    FOREIGN KEY (source_url_id) REFERENCES urls(url_id) ON DELETE CASCADE,
    FOREIGN KEY (target_url_id) REFERENCES urls(url_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_redirects_access ON url_redirects(access_id);
CREATE INDEX IF NOT EXISTS idx_redirects_source ON url_redirects(source_url_id);
CREATE INDEX IF NOT EXISTS idx_redirects_target ON url_redirects(target_url_id);

-- Runs: one row per batch run of the article pipeline
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    finished_at TIMESTAMP,
    article_count INTEGER NOT NULL,
    success_count INTEGER DEFAULT 0,
    failed_count INTEGER DEFAULT 0,
    unresolved_count INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);

-- Run articles: per-article outcome within a run
CREATE TABLE IF NOT EXISTS run_articles (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    article_id TEXT NOT NULL,
    status TEXT NOT NULL,          -- ok, failed
    resolution_reason TEXT,
    primary_url TEXT,
    links_removed INTEGER DEFAULT 0,
    error_message TEXT,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE,
    UNIQUE(run_id, article_id)
);

CREATE INDEX IF NOT EXISTS idx_run_articles_run ON run_articles(run_id);
`
