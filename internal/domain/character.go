package domain

import "strings"

// Sentinel values substituted when a field cannot be determined.
const (
	SentinelGender  = "Any"
	SentinelUnknown = "Unknown"
)

// CharacterRecord is the unit of extraction. Gender and Affiliation are
// free categorical text until the star-schema builder replaces them with keys.
type CharacterRecord struct {
	Name        string `json:"name"`
	Gender      string `json:"gender"`
	Affiliation string `json:"affiliation"`
	ReleaseDate string `json:"release_date"`
}

// NewCharacterRecord trims every field and substitutes sentinels for empty ones.
func NewCharacterRecord(name, gender, affiliation, releaseDate string) CharacterRecord {
	record := CharacterRecord{
		Name:        strings.TrimSpace(name),
		Gender:      strings.TrimSpace(gender),
		Affiliation: strings.TrimSpace(affiliation),
		ReleaseDate: strings.TrimSpace(releaseDate),
	}
	record.ApplyDefaults()
	return record
}

func (r *CharacterRecord) ApplyDefaults() {
	if r.Gender == "" {
		r.Gender = SentinelGender
	}
	if r.Affiliation == "" {
		r.Affiliation = SentinelUnknown
	}
	if r.ReleaseDate == "" {
		r.ReleaseDate = SentinelUnknown
	}
}

// Dataset is the ordered record sequence of one game.
type Dataset struct {
	Game    GameID
	Records []CharacterRecord
}

func NewDataset(game GameID) *Dataset {
	return &Dataset{
		Game:    game,
		Records: make([]CharacterRecord, 0),
	}
}

func (d *Dataset) Add(record CharacterRecord) {
	d.Records = append(d.Records, record)
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

func (d *Dataset) IndexOf(name string) int {
	for i, record := range d.Records {
		if record.Name == name {
			return i
		}
	}
	return -1
}

func (d *Dataset) Clone() *Dataset {
	records := make([]CharacterRecord, len(d.Records))
	copy(records, d.Records)
	return &Dataset{Game: d.Game, Records: records}
}
