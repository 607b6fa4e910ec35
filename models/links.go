package models

// Link removal reasons decided without a network call.
const (
	ReasonGenericHomepage  = "generic homepage URL without specific content"
	ReasonFabricatedSocial = "likely fabricated social media URL"
)

type RemovedLink struct {
	URL    string `json:"url" yaml:"url"`
	Reason string `json:"reason" yaml:"reason"`
}

type RepairedLink struct {
	OriginalURL string `json:"original_url" yaml:"original_url"`
	RepairedURL string `json:"repaired_url" yaml:"repaired_url"`
	Reason      string `json:"reason" yaml:"reason"`
}

type KeptLink struct {
	URL string `json:"url" yaml:"url"`
}

// LinkReport summarises one outbound link validation pass.
// It is surfaced verbatim to operators.
type LinkReport struct {
	Enabled       bool           `json:"enabled" yaml:"enabled"`
	RepairEnabled bool           `json:"repair_enabled" yaml:"repair_enabled"`
	Checked       int            `json:"checked" yaml:"checked"`
	Broken        int            `json:"broken" yaml:"broken"`
	Repaired      int            `json:"repaired" yaml:"repaired"`
	RemovedLinks  []RemovedLink  `json:"removed_links" yaml:"removed_links"`
	RepairedLinks []RepairedLink `json:"repaired_links" yaml:"repaired_links"`
	KeptLinks     []KeptLink     `json:"kept_links" yaml:"kept_links"`
}

// NewLinkReport returns a report with empty (non-nil) lists.
func NewLinkReport(enabled, repairEnabled bool) LinkReport {
	return LinkReport{
		Enabled:       enabled,
		RepairEnabled: repairEnabled,
		RemovedLinks:  []RemovedLink{},
		RepairedLinks: []RepairedLink{},
		KeptLinks:     []KeptLink{},
	}
}

const (
	LinkActionReplaced = "replaced"
	LinkActionUnlinked = "unlinked"
)

type LinkAction struct {
	Href        string `json:"href" yaml:"href"`
	Action      string `json:"action" yaml:"action"`
	Replacement string `json:"replacement,omitempty" yaml:"replacement,omitempty"`
}

// FixReport summarises a validate-and-fix pass over every anchor.
type FixReport struct {
	TotalLinks    int          `json:"total_links" yaml:"total_links"`
	BrokenLinks   int          `json:"broken_links" yaml:"broken_links"`
	ReplacedLinks int          `json:"replaced_links" yaml:"replaced_links"`
	UnlinkedLinks int          `json:"unlinked_links" yaml:"unlinked_links"`
	Actions       []LinkAction `json:"actions" yaml:"actions"`
	Skipped       bool         `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}
