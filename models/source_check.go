package models

// SourceCheck is the content-level verdict on a primary source page:
// does the page actually talk about the article's subject.
type SourceCheck struct {
	URL               string   `json:"url" yaml:"url"`
	IsValid           bool     `json:"is_valid" yaml:"is_valid"`
	StatusCode        int      `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	ContentMatchScore float64  `json:"content_match_score" yaml:"content_match_score"`
	TitleMatchScore   float64  `json:"title_match_score" yaml:"title_match_score"`
	Issues            []string `json:"issues" yaml:"issues"`
	Warnings          []string `json:"warnings" yaml:"warnings"`
	ExtractedTitle    string   `json:"extracted_title,omitempty" yaml:"extracted_title,omitempty"`
	ExtractedDate     string   `json:"extracted_date,omitempty" yaml:"extracted_date,omitempty"`
	Language          string   `json:"language,omitempty" yaml:"language,omitempty"` // ISO-639-1, e.g. "es"
}
