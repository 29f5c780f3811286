package grants

import (
	"encoding/json"
	"errors"
	"os"
	"time"
)

const (
	DismissActorUser = "user"
	DismissActorAuto = "auto"
)

// Dismissed is the list of opportunities an organization no longer wants to see.
type Dismissed struct {
	Items []*DismissedOpportunity
}

type DismissedOpportunity struct {
	ID          string
	URL         string
	Funder      string
	DismissedAt time.Time
	Actor       string `json:",omitempty"`
	Reason      string `json:",omitempty"`
}

// ToDismissed converts the candidates into dismissal records.
func (c *Candidates) ToDismissed(actor, reason string) *Dismissed {
	dismissed := &Dismissed{}
	for _, candidate := range c.Items {
		dismissed.Items = append(dismissed.Items, &DismissedOpportunity{
			ID:          candidate.ID,
			URL:         candidate.URL,
			Funder:      candidate.Funder,
			DismissedAt: time.Now().UTC(),
			Actor:       actor,
			Reason:      reason,
		})
	}
	return dismissed
}

// LoadDismissed reads a dismissed opportunities file. A missing or empty file is an empty list.
func LoadDismissed(path string) (*Dismissed, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Dismissed{}, nil
		}
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &Dismissed{}, nil
	}

	var dismissed Dismissed
	if err := json.NewDecoder(file).Decode(&dismissed); err != nil {
		return nil, err
	}
	return &dismissed, nil
}

// Append adds records that are not already present.
func (d *Dismissed) Append(s *Dismissed) {
	known := make(map[string]struct{}, len(d.Items))
	for _, item := range d.Items {
		known[item.ID] = struct{}{}
	}
	for _, item := range s.Items {
		if _, ok := known[item.ID]; ok {
			continue
		}
		known[item.ID] = struct{}{}
		d.Items = append(d.Items, item)
	}
}

func (d *Dismissed) IDs() []string {
	ids := make([]string, 0, len(d.Items))
	for _, item := range d.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

func (d *Dismissed) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}
