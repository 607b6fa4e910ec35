package help

const ColdstartYAML = `# a0 Quick Start

config:
  file: "config.yaml (or --config); a missing file means defaults"
  env_overrides:
    - "GEMINI_API_KEY"
    - "VALIDATE_OUTBOUND_URLS (true/false)"
    - "PRIMARY_SOURCE_STRICT (true/false)"
    - "A0_REGISTRY_PATH"
    - "A0_DB_PATH"
  without_api_key: "rediscovery, repair search and LLM weaving are skipped"

commands:
  validate_urls: |
    a0 validate "https://www.boe.es/diario_boe/txt.php?id=BOE-A-2025-1"
    a0 validate --expect-pdf "https://example.org/report.pdf"
    a0 validate --original-source "https://x.com/user/status/123"

  resolve_primary_source: |
    a0 resolve --proposal proposal.json --article-id 101 --source-url "https://..."

  check_outbound_links: |
    a0 links --file article.html --out clean.html --source-url "https://..."
    a0 fixlinks --file article.html --search

  weave_internal_links: |
    a0 weave --file article.html --related related.yaml --max-links 3

  check_source_content: |
    a0 check-source "https://..." --title "..." --keyword vivienda

  full_pipeline: |
    a0 run jobs/ --output-dir results --metrics-addr :9090

  registry: |
    a0 registry list --domain gencat.cat --table
    a0 registry audit --fix

  history: |
    a0 db history --failed --since 24h
    a0 db reasons
    a0 db runs
    a0 db run <run_id>
    a0 db prune --older-than 720h

job_file:
  article: "{id, filename, run_id, date, title, source_url}"
  primary_source: "{primary_source: {url, title, confidence, ...}, alternatives: [...]}"
  content: "Gutenberg HTML"
  related_links: "[{url, anchor_text}]"

validation_reasons:
  ok: "2xx, supported content type, not a soft 404"
  status_NNN: "HTTP error status"
  "request_error: ...": "transport failure after retries"
  unsupported_content_type: "neither HTML nor PDF"
  expected_pdf_but_not_pdf: "--expect-pdf and the response is not a PDF"
  homepage_or_generic_page: "root, language-only or index path"
  soft_404_signature: "error text in the first part of the page"
  soft_404_short_html: "HTML too short to be an article"
  not_found_path: "redirected to a 404-style path"

pipeline_invariants:
  - "At most 2 articles are processed at once"
  - "A primary source is only linked after it validates"
  - "The original article is credited when no reliable primary source exists"
  - "Each internal link appears at most once"
  - "Broken links are repaired, or replaced by their text"

error_behavior:
  - "Malformed URLs: skipped with a warning before fetching"
  - "validate/check-source exit 1 when any URL fails"
  - "resolve exits 2 when no primary source validates in strict mode"
  - "run exits 1 when any article fails"
`
