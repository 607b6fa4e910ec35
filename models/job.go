package models

import "time"

// ArticleJob is one article handed to the pipeline: the written content plus
// the research step's proposals.
type ArticleJob struct {
	Article       Article               `json:"article" yaml:"article"`
	PrimarySource PrimarySourceProposal `json:"primary_source" yaml:"primary_source"`
	Content       string                `json:"content" yaml:"content"`
	RelatedLinks  []RelatedLink         `json:"related_links,omitempty" yaml:"related_links,omitempty"`
}

// ArticleOutcome is what the pipeline produced for one article.
type ArticleOutcome struct {
	ArticleID     string      `json:"article_id" yaml:"article_id"`
	Content       string      `json:"content,omitempty" yaml:"content,omitempty"`
	PrimarySource Candidate   `json:"primary_source" yaml:"primary_source"`
	Resolution    Resolution  `json:"resolution" yaml:"resolution"`
	Weave         WeaveReport `json:"weave" yaml:"weave"`
	Links         LinkReport  `json:"links" yaml:"links"`
	Error         string      `json:"error,omitempty" yaml:"error,omitempty"`
}

// RunSummary totals one batch run.
type RunSummary struct {
	RunID      string        `json:"run_id" yaml:"run_id"`
	Articles   int           `json:"articles" yaml:"articles"`
	Succeeded  int           `json:"succeeded" yaml:"succeeded"`
	Failed     int           `json:"failed" yaml:"failed"`
	Unresolved int           `json:"unresolved" yaml:"unresolved"`
	Elapsed    time.Duration `json:"elapsed" yaml:"elapsed"`
}
