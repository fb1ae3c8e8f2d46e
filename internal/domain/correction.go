package domain

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Correctable record fields.
const (
	FieldName        = "name"
	FieldGender      = "gender"
	FieldAffiliation = "affiliation"
	FieldReleaseDate = "release_date"
)

// CorrectionMatch selects records. Every non-empty matcher must hold; a
// match with no matchers selects nothing.
type CorrectionMatch struct {
	Name                string `yaml:"name,omitempty"`
	ReleaseDateContains string `yaml:"release_date_contains,omitempty"`
	Affiliation         string `yaml:"affiliation,omitempty"`
}

func (m CorrectionMatch) Empty() bool {
	return m.Name == "" && m.ReleaseDateContains == "" && m.Affiliation == ""
}

func (m CorrectionMatch) Matches(record CharacterRecord) bool {
	if m.Empty() {
		return false
	}
	if m.Name != "" && record.Name != m.Name {
		return false
	}
	if m.ReleaseDateContains != "" && !strings.Contains(record.ReleaseDate, m.ReleaseDateContains) {
		return false
	}
	if m.Affiliation != "" && record.Affiliation != m.Affiliation {
		return false
	}
	return true
}

type Correction struct {
	Game        GameID          `yaml:"game"`
	Match       CorrectionMatch `yaml:"match"`
	Field       string          `yaml:"field"`
	Replacement string          `yaml:"replacement"`
	Note        string          `yaml:"note,omitempty"`
}

// Apply rewrites the field of record when the matcher holds.
func (c Correction) Apply(record *CharacterRecord) bool {
	if !c.Match.Matches(*record) {
		return false
	}
	switch c.Field {
	case FieldName:
		record.Name = c.Replacement
	case FieldGender:
		record.Gender = c.Replacement
	case FieldAffiliation:
		record.Affiliation = c.Replacement
	case FieldReleaseDate:
		record.ReleaseDate = c.Replacement
	default:
		return false
	}
	return true
}

func (c Correction) Validate() error {
	if c.Game == "" {
		return fmt.Errorf("correction: game is required")
	}
	if c.Match.Empty() {
		return fmt.Errorf("correction for %s: at least one matcher is required", c.Game)
	}
	switch c.Field {
	case FieldName, FieldGender, FieldAffiliation, FieldReleaseDate:
	default:
		return fmt.Errorf("correction for %s: unknown field %q", c.Game, c.Field)
	}
	return nil
}

type CorrectionTable struct {
	Corrections []Correction `yaml:"corrections"`
}

//go:embed data/corrections.yaml
var correctionsYAML []byte

// LoadCorrections reads the correction table from path, or the embedded
// default table when path is empty.
func LoadCorrections(path string) (*CorrectionTable, error) {
	data := correctionsYAML
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read corrections: %w", err)
		}
		data = raw
	}
	return ParseCorrections(data)
}

func ParseCorrections(data []byte) (*CorrectionTable, error) {
	var table CorrectionTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse corrections: %w", err)
	}
	for _, c := range table.Corrections {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}
	return &table, nil
}

// ForGame returns the rules of one game in file order.
func (t *CorrectionTable) ForGame(game GameID) []Correction {
	if t == nil {
		return nil
	}
	result := make([]Correction, 0)
	for _, c := range t.Corrections {
		if c.Game == game {
			result = append(result, c)
		}
	}
	return result
}
