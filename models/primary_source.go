package models

const (
	SourceTypePrimary = "primary"
	SourceTypeNews    = "news"

	ResolutionValidated    = "validated_candidate"
	ResolutionRediscovered = "rediscovered"
	ResolutionFallback     = "fallback_to_news"
)

// Candidate is one LLM-suggested primary source.
// Confidence is an untrusted hint in [0,1]; it is never used to reorder candidates.
type Candidate struct {
	URL            string  `json:"url" yaml:"url"`
	Title          string  `json:"title,omitempty" yaml:"title,omitempty"`
	PublisherGuess string  `json:"publisher_guess,omitempty" yaml:"publisher_guess,omitempty"`
	TypeGuess      string  `json:"type_guess,omitempty" yaml:"type_guess,omitempty"`
	Confidence     float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	SourceType     string  `json:"source_type,omitempty" yaml:"source_type,omitempty"`
}

// PrimarySourceProposal is the research step output for one article.
type PrimarySourceProposal struct {
	PrimarySource    Candidate   `json:"primary_source" yaml:"primary_source"`
	Alternatives     []Candidate `json:"alternatives,omitempty" yaml:"alternatives,omitempty"`
	ReasoningSummary string      `json:"reasoning_summary,omitempty" yaml:"reasoning_summary,omitempty"`
}

// Article identifies the news article being processed.
type Article struct {
	ID        string `json:"id" yaml:"id"`
	Filename  string `json:"filename,omitempty" yaml:"filename,omitempty"`
	RunID     string `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Date      string `json:"date,omitempty" yaml:"date,omitempty"`
	Title     string `json:"title,omitempty" yaml:"title,omitempty"`
	SourceURL string `json:"source_url,omitempty" yaml:"source_url,omitempty"`
}

// Ref returns the registry reference for the article.
func (a *Article) Ref() ArticleRef {
	if a == nil {
		return ArticleRef{}
	}
	return ArticleRef{ID: a.ID, Filename: a.Filename, RunID: a.RunID, Date: a.Date}
}

// ResolutionReport is the audit trail of one resolution.
type ResolutionReport struct {
	CandidatesTried []ValidationResult `json:"candidates_tried" yaml:"candidates_tried"`
	Selected        string             `json:"selected,omitempty" yaml:"selected,omitempty"`
	Reason          string             `json:"reason" yaml:"reason"`
	SourceType      string             `json:"source_type" yaml:"source_type"`
}

// Resolution is the Resolver's answer for one article.
// An empty ResolvedURL means no source could be found.
type Resolution struct {
	ResolvedURL        string            `json:"resolved_url,omitempty" yaml:"resolved_url,omitempty"`
	Report             ResolutionReport  `json:"report" yaml:"report"`
	SelectedValidation *ValidationResult `json:"selected_validation,omitempty" yaml:"selected_validation,omitempty"`
}

// Resolved reports whether a URL was selected.
func (r Resolution) Resolved() bool {
	return r.ResolvedURL != ""
}
