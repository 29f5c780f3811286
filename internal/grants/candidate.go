package grants

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/spigell/grant-matcher/internal/textutil"
)

const (
	CandidateIDField     = "ID"
	CandidateFunderField = "Funder"
)

// SourceKind classifies where an opportunity was published.
type SourceKind string

const (
	SourceFederal    SourceKind = "federal"
	SourceState      SourceKind = "state"
	SourceLocal      SourceKind = "local"
	SourceFoundation SourceKind = "foundation"
	SourceCorporate  SourceKind = "corporate"
	SourceUnknown    SourceKind = "unknown"
)

// ParseSourceKind maps free-form labels to a SourceKind. Unrecognized labels are SourceUnknown.
func ParseSourceKind(s string) SourceKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "federal", "government", "gov":
		return SourceFederal
	case "state":
		return SourceState
	case "local", "city", "county", "community":
		return SourceLocal
	case "foundation", "private":
		return SourceFoundation
	case "corporate", "corporation", "company":
		return SourceCorporate
	default:
		return SourceUnknown
	}
}

// Candidate is a normalized funding opportunity returned by a source connector.
type Candidate struct {
	ID          string     `json:"id,omitempty" yaml:"id" mapstructure:"id"`
	Source      string     `json:"source,omitempty" yaml:"source" mapstructure:"source"`
	SourceKind  SourceKind `json:"source_kind,omitempty" yaml:"source_kind" mapstructure:"source_kind"`
	Title       string     `json:"title,omitempty" yaml:"title" mapstructure:"title"`
	Funder      string     `json:"funder,omitempty" yaml:"funder" mapstructure:"funder"`
	Description string     `json:"description,omitempty" yaml:"description" mapstructure:"description"`
	AmountMin   *float64   `json:"amount_min,omitempty" yaml:"amount_min" mapstructure:"amount_min"`
	AmountMax   *float64   `json:"amount_max,omitempty" yaml:"amount_max" mapstructure:"amount_max"`
	Deadline    *time.Time `json:"deadline,omitempty" yaml:"deadline" mapstructure:"deadline"`
	Geography   string     `json:"geography,omitempty" yaml:"geography" mapstructure:"geography"`
	Eligibility string     `json:"eligibility,omitempty" yaml:"eligibility" mapstructure:"eligibility"`
	FocusAreas  []string   `json:"focus_areas,omitempty" yaml:"focus_areas" mapstructure:"focus_areas"`
	GrantType   string     `json:"grant_type,omitempty" yaml:"grant_type" mapstructure:"grant_type"`
	URL         string     `json:"url,omitempty" yaml:"url" mapstructure:"url"`
}

// MaxAward returns the largest amount the opportunity may award, preferring AmountMax.
func (c *Candidate) MaxAward() (float64, bool) {
	if c.AmountMax != nil && *c.AmountMax > 0 {
		return *c.AmountMax, true
	}
	if c.AmountMin != nil && *c.AmountMin > 0 {
		return *c.AmountMin, true
	}
	return 0, false
}

// DaysUntilDeadline returns whole days between now and the deadline. ok is false for
// rolling opportunities without a deadline.
func (c *Candidate) DaysUntilDeadline(now time.Time) (int, bool) {
	if c.Deadline == nil || c.Deadline.IsZero() {
		return 0, false
	}
	return int(c.Deadline.Sub(now).Hours() / 24), true
}

// Text returns every free-text field of the candidate joined for keyword matching.
func (c *Candidate) Text() string {
	parts := []string{c.Title, c.Description, strings.Join(c.FocusAreas, " ")}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// DedupKey identifies the same opportunity published by several sources.
func (c *Candidate) DedupKey() string {
	if u := normalizeURL(c.URL); u != "" {
		return "url:" + u
	}
	return "title:" + textutil.Normalize(c.Title) + "|" + textutil.Normalize(c.Funder)
}

// EnsureID fills ID with a stable hash when the connector did not provide one.
func (c *Candidate) EnsureID() {
	if strings.TrimSpace(c.ID) != "" {
		return
	}

	seed := normalizeURL(c.URL)
	if seed == "" {
		seed = strings.Join([]string{
			textutil.Normalize(c.Source),
			textutil.Normalize(c.Title),
			textutil.Normalize(c.Funder),
		}, "|")
	}

	h := sha1.Sum([]byte(seed))
	c.ID = "opp-" + hex.EncodeToString(h[:8])
}

func (c *Candidate) GetStringField(name string) string {
	switch name {
	case CandidateIDField:
		return c.ID
	case CandidateFunderField:
		return c.Funder
	default:
		return ""
	}
}

func normalizeURL(u string) string {
	u = strings.ToLower(strings.TrimSpace(u))
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "www.")
	return strings.TrimRight(u, "/")
}

// Candidates is an ordered list of opportunities flowing through the filters.
type Candidates struct {
	Items []*Candidate
}

func (c *Candidates) Len() int {
	return len(c.Items)
}

// Exclude removes candidates whose field matches any of the targets, case-insensitively.
// Order of the remaining items is preserved. It returns the removed IDs.
func (c *Candidates) Exclude(name string, targets []string) []string {
	if len(targets) == 0 {
		return nil
	}

	lookup := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		lookup[strings.ToLower(strings.TrimSpace(target))] = struct{}{}
	}

	var excluded []string
	kept := c.Items[:0:0]
	for _, candidate := range c.Items {
		if _, ok := lookup[strings.ToLower(strings.TrimSpace(candidate.GetStringField(name)))]; ok {
			excluded = append(excluded, candidate.ID)
			continue
		}
		kept = append(kept, candidate)
	}
	c.Items = kept

	return excluded
}

// Retain keeps only candidates for which keep returns true and returns the removed ones.
func (c *Candidates) Retain(keep func(*Candidate) bool) []*Candidate {
	var removed []*Candidate
	kept := make([]*Candidate, 0, len(c.Items))
	for _, candidate := range c.Items {
		if keep(candidate) {
			kept = append(kept, candidate)
			continue
		}
		removed = append(removed, candidate)
	}
	c.Items = kept
	return removed
}

// DumpToTmpFile writes v as indented JSON into a new temp file and returns its name.
func DumpToTmpFile(pattern string, v any) (string, error) {
	file, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return file.Name(), nil
}
