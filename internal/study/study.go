// Package study loads the study catalog: per-study trial information and the
// ordered eligibility criteria that drive the interview.
package study

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/medscreen/medscreen/internal/models"
)

// Trial holds descriptive information about the clinical trial.
type Trial struct {
	Title           string `json:"title"`
	Category        string `json:"category"`
	Description     string `json:"description,omitempty"`
	Phase           string `json:"phase"`
	Sponsor         string `json:"sponsor"`
	NCTID           string `json:"nct_id"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	LastAmended     string `json:"last_amended,omitempty"`
}

// Overview summarizes what participation involves.
type Overview struct {
	Purpose               string   `json:"purpose"`
	ParticipantCommitment string   `json:"participant_commitment"`
	KeyProcedures         []string `json:"key_procedures"`
}

// Study is one entry in the catalog: trial info plus the ordered screening
// criteria.
type Study struct {
	ID          string             `json:"id"`
	Trial       Trial              `json:"trial"`
	Overview    Overview           `json:"overview"`
	ContactInfo string             `json:"contact_info"`
	Criteria    []models.Criterion `json:"criteria"`
}

// Summary is the listing view of a study exposed by the API.
type Summary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	Phase       string `json:"phase"`
	Sponsor     string `json:"sponsor"`
	NCTID       string `json:"nct_id"`
	Purpose     string `json:"purpose"`
	Commitment  string `json:"commitment"`
	Questions   int    `json:"total_questions"`
}

// Catalog is the loaded set of studies, keyed by study ID.
type Catalog struct {
	studies map[string]*Study
	order   []string
}

type catalogFile struct {
	Studies []*Study `json:"studies"`
}

// LoadCatalog reads the study catalog JSON file. Studies with invalid
// criteria (missing IDs or unknown priorities) are rejected so a broken
// catalog is caught at startup rather than mid-interview.
func LoadCatalog(path string) (*Catalog, error) {
	slog.Debug("study.LoadCatalog: loading catalog", "path", path)

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read study catalog %s: %w", path, err)
	}

	var file catalogFile
	if err := json.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to parse study catalog %s: %w", path, err)
	}

	cat := &Catalog{studies: make(map[string]*Study)}
	for _, s := range file.Studies {
		if s.ID == "" {
			return nil, fmt.Errorf("study catalog %s contains a study without an id", path)
		}
		if _, dup := cat.studies[s.ID]; dup {
			return nil, fmt.Errorf("study catalog %s contains duplicate study id %q", path, s.ID)
		}
		for i, c := range s.Criteria {
			if c.ID == "" {
				return nil, fmt.Errorf("study %q criterion %d has no id", s.ID, i)
			}
			if !c.Priority.Valid() {
				return nil, fmt.Errorf("study %q criterion %q has invalid priority %q", s.ID, c.ID, c.Priority)
			}
		}
		cat.studies[s.ID] = s
		cat.order = append(cat.order, s.ID)
	}

	slog.Info("study.LoadCatalog: catalog loaded", "path", path, "studies", len(cat.order))
	return cat, nil
}

// ErrStudyNotFound is returned when a study ID is not in the catalog.
var ErrStudyNotFound = fmt.Errorf("study not found")

// Study returns the study with the given ID.
func (c *Catalog) Study(id string) (*Study, error) {
	s, ok := c.studies[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStudyNotFound, id)
	}
	return s, nil
}

// Summaries lists all studies in catalog order.
func (c *Catalog) Summaries() []Summary {
	out := make([]Summary, 0, len(c.order))
	for _, id := range c.order {
		s := c.studies[id]
		out = append(out, Summary{
			ID:          s.ID,
			Title:       s.Trial.Title,
			Category:    s.Trial.Category,
			Description: s.Trial.Description,
			Phase:       s.Trial.Phase,
			Sponsor:     s.Trial.Sponsor,
			NCTID:       s.Trial.NCTID,
			Purpose:     s.Overview.Purpose,
			Commitment:  s.Overview.ParticipantCommitment,
			Questions:   len(s.Criteria),
		})
	}
	return out
}
