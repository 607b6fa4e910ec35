package models

// RelatedLink is an internal link recommendation.
type RelatedLink struct {
	URL        string `json:"url" yaml:"url"`
	AnchorText string `json:"anchor_text" yaml:"anchor_text"`
}

// Insertion records where a link was woven in.
// Appended is set when the link went into a new trailing paragraph;
// ParagraphIndex is then -1.
type Insertion struct {
	URL            string `json:"url" yaml:"url"`
	ParagraphIndex int    `json:"paragraph_index" yaml:"paragraph_index"`
	Appended       bool   `json:"appended,omitempty" yaml:"appended,omitempty"`
}

type SkippedLink struct {
	URL    string `json:"url" yaml:"url"`
	Reason string `json:"reason" yaml:"reason"`
}

type WeaveReport struct {
	TotalRelated     int           `json:"total_related" yaml:"total_related"`
	Inserted         []Insertion   `json:"inserted" yaml:"inserted"`
	Skipped          []SkippedLink `json:"skipped" yaml:"skipped"`
	FallbackInserted bool          `json:"fallback_inserted" yaml:"fallback_inserted"`
	UsedLLM          bool          `json:"used_llm,omitempty" yaml:"used_llm,omitempty"`
}
