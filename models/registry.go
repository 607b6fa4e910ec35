package models

// ArticleRef points back at the article that used a source.
type ArticleRef struct {
	ID       string `json:"id,omitempty" yaml:"id,omitempty"`
	Filename string `json:"filename,omitempty" yaml:"filename,omitempty"`
	RunID    string `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Date     string `json:"date,omitempty" yaml:"date,omitempty"`
}

// IsZero reports whether no field is set.
func (r ArticleRef) IsZero() bool {
	return r == ArticleRef{}
}

// RegistryEntry is one persisted line of the primary sources registry.
type RegistryEntry struct {
	URL         string       `json:"url" yaml:"url"`
	FirstSeen   string       `json:"first_seen" yaml:"first_seen"` // ISO-8601
	LastSeen    string       `json:"last_seen" yaml:"last_seen"`
	SourceType  string       `json:"source_type" yaml:"source_type"`
	ArticleIDs  []string     `json:"article_ids" yaml:"article_ids"`
	ArticleRefs []ArticleRef `json:"article_refs" yaml:"article_refs"`
}

// RegistryView is a RegistryEntry plus read-side derived fields.
type RegistryView struct {
	RegistryEntry   `yaml:",inline"`
	Domain          string `json:"domain" yaml:"domain"`
	UsageCount      int    `json:"usage_count" yaml:"usage_count"`
	LastSeenDaysAgo *int   `json:"last_seen_days_ago" yaml:"last_seen_days_ago"`
}
