package domain

import "fmt"

type DimensionRow struct {
	ID    int
	Value string
}

// Dimension maps dense 1-based surrogate keys to distinct categorical values.
// Keys are handed out in first-seen order.
type Dimension struct {
	Name string
	Rows []DimensionRow

	index map[string]int
}

func NewDimension(name string) *Dimension {
	return &Dimension{
		Name:  name,
		Rows:  make([]DimensionRow, 0),
		index: make(map[string]int),
	}
}

// NewDimensionFromRows rebuilds a dimension read back from storage.
// Keys must be dense and start at 1.
func NewDimensionFromRows(name string, rows []DimensionRow) (*Dimension, error) {
	d := NewDimension(name)
	for i, row := range rows {
		if row.ID != i+1 {
			return nil, fmt.Errorf("dimension %s: key %d at position %d is not dense", name, row.ID, i)
		}
		if _, dup := d.index[row.Value]; dup {
			return nil, fmt.Errorf("dimension %s: duplicate value %q", name, row.Value)
		}
		d.index[row.Value] = row.ID
		d.Rows = append(d.Rows, row)
	}
	return d, nil
}

// Key returns the surrogate key of value, adding a row on first sight.
func (d *Dimension) Key(value string) int {
	if id, ok := d.index[value]; ok {
		return id
	}
	id := len(d.Rows) + 1
	d.Rows = append(d.Rows, DimensionRow{ID: id, Value: value})
	d.index[value] = id
	return id
}

func (d *Dimension) Lookup(value string) (int, bool) {
	id, ok := d.index[value]
	return id, ok
}

func (d *Dimension) Value(id int) (string, bool) {
	if id < 1 || id > len(d.Rows) {
		return "", false
	}
	return d.Rows[id-1].Value, true
}

func (d *Dimension) Len() int {
	return len(d.Rows)
}

// FactRow is one row of character_info.
type FactRow struct {
	CharacterID   int
	Name          string
	GenderID      int
	AffiliationID int
	ReleaseDate   string
}

type RejectedRecord struct {
	Record CharacterRecord
	Err    error
}

// StarSchema is the builder output handed to export and the loader.
type StarSchema struct {
	Game         *Game
	Genders      *Dimension
	Affiliations *Dimension
	Facts        []FactRow
	Rejected     []RejectedRecord
}
