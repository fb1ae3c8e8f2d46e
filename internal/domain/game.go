package domain

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

type GameID string

const (
	WutheringWaves  GameID = "wuthering_waves"
	GenshinImpact   GameID = "genshin_impact"
	ZenlessZoneZero GameID = "zenless_zone_zero"
	HonkaiStarRail  GameID = "honkai_star_rail"
	Overwatch2      GameID = "overwatch_2"
)

// AffiliationKind names the second dimension of a game: where a character
// comes from (region) or whom they belong to (faction).
type AffiliationKind string

const (
	AffiliationRegion  AffiliationKind = "region"
	AffiliationFaction AffiliationKind = "faction"
)

// Date truncation rules applied by the cleaner.
const (
	DateTruncateCommaYear   = "comma_year"
	DateTruncateBeforeParen = "before_paren"
)

type LaunchCohort struct {
	First    string `yaml:"first"`
	Boundary string `yaml:"boundary"`
}

type CleanSteps struct {
	AffiliationBeforeParen bool          `yaml:"affiliation_before_paren"`
	DateTruncate           string        `yaml:"date_truncate"`
	LaunchCohort           *LaunchCohort `yaml:"launch_cohort,omitempty"`
}

type Game struct {
	ID               GameID          `yaml:"id"`
	Title            string          `yaml:"title"`
	Tag              string          `yaml:"tag"`
	Database         string          `yaml:"database"`
	Schema           string          `yaml:"schema"`
	Affiliation      AffiliationKind `yaml:"affiliation"`
	PageURL          string          `yaml:"page_url"`
	RosterURL        string          `yaml:"roster_url"`
	RosterFile       string          `yaml:"roster_file"`
	DateLayouts      []string        `yaml:"date_layouts"`
	UnreleasedMarker string          `yaml:"unreleased_marker"`
	Clean            CleanSteps      `yaml:"clean"`
}

func (g *Game) AffiliationColumn() string {
	return string(g.Affiliation)
}

func (g *Game) AffiliationIDColumn() string {
	return string(g.Affiliation) + "_id"
}

func (g *Game) AffiliationTable() string {
	return string(g.Affiliation) + "_dim"
}

// RawFileName is the CSV holding the extracted, not yet normalized dataset.
func (g *Game) RawFileName() string {
	return string(g.ID) + "_character_data.csv"
}

func (g *Game) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("game id is required")
	}
	if g.Tag == "" {
		return fmt.Errorf("game %s: tag is required", g.ID)
	}
	if g.Database == "" || g.Schema == "" {
		return fmt.Errorf("game %s: database and schema are required", g.ID)
	}
	if g.Affiliation != AffiliationRegion && g.Affiliation != AffiliationFaction {
		return fmt.Errorf("game %s: affiliation must be region or faction, got %q", g.ID, g.Affiliation)
	}
	if len(g.DateLayouts) == 0 {
		return fmt.Errorf("game %s: at least one date layout is required", g.ID)
	}
	switch g.Clean.DateTruncate {
	case "", DateTruncateCommaYear, DateTruncateBeforeParen:
	default:
		return fmt.Errorf("game %s: unknown date truncation %q", g.ID, g.Clean.DateTruncate)
	}
	if c := g.Clean.LaunchCohort; c != nil && (c.First == "" || c.Boundary == "") {
		return fmt.Errorf("game %s: launch cohort needs first and boundary", g.ID)
	}
	return nil
}

// LogicalDatabase groups the per-game schemas living in one database.
type LogicalDatabase struct {
	Name    string
	Schemas []string
}

type Catalog struct {
	Games []*Game `yaml:"games"`

	byID     map[GameID]*Game
	bySchema map[string]*Game
}

//go:embed data/games.yaml
var gamesYAML []byte

// LoadCatalog parses the embedded game catalog and merges the optional
// override file over it, game by game.
func LoadCatalog(overridePath string) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(gamesYAML, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse embedded catalog: %w", err)
	}

	if overridePath != "" {
		data, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog override: %w", err)
		}
		var override Catalog
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to parse catalog override: %w", err)
		}
		if err := catalog.merge(&override); err != nil {
			return nil, err
		}
	}

	if err := catalog.index(); err != nil {
		return nil, err
	}
	return &catalog, nil
}

func (c *Catalog) merge(override *Catalog) error {
	for _, game := range override.Games {
		if game == nil {
			continue
		}
		base := c.find(game.ID)
		if base == nil {
			c.Games = append(c.Games, game)
			continue
		}
		if err := mergo.Merge(base, *game, mergo.WithOverride); err != nil {
			return fmt.Errorf("failed to merge catalog entry %s: %w", game.ID, err)
		}
	}
	return nil
}

func (c *Catalog) find(id GameID) *Game {
	for _, game := range c.Games {
		if game != nil && game.ID == id {
			return game
		}
	}
	return nil
}

func (c *Catalog) index() error {
	c.byID = make(map[GameID]*Game, len(c.Games))
	c.bySchema = make(map[string]*Game, len(c.Games))
	for _, game := range c.Games {
		if game == nil {
			continue
		}
		if err := game.Validate(); err != nil {
			return err
		}
		if _, dup := c.byID[game.ID]; dup {
			return fmt.Errorf("duplicate game id %s", game.ID)
		}
		c.byID[game.ID] = game
		c.bySchema[game.Schema] = game
	}
	return nil
}

func (c *Catalog) Get(id GameID) (*Game, bool) {
	game, ok := c.byID[id]
	return game, ok
}

func (c *Catalog) BySchema(schema string) (*Game, bool) {
	game, ok := c.bySchema[schema]
	return game, ok
}

// IDs returns game ids in catalog order.
func (c *Catalog) IDs() []GameID {
	ids := make([]GameID, 0, len(c.Games))
	for _, game := range c.Games {
		if game != nil {
			ids = append(ids, game.ID)
		}
	}
	return ids
}

// Databases returns the logical databases sorted by name, each with its
// schemas sorted.
func (c *Catalog) Databases() []LogicalDatabase {
	grouped := make(map[string][]string)
	for _, game := range c.Games {
		if game == nil {
			continue
		}
		grouped[game.Database] = append(grouped[game.Database], game.Schema)
	}

	names := make([]string, 0, len(grouped))
	for name := range grouped {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]LogicalDatabase, 0, len(names))
	for _, name := range names {
		schemas := grouped[name]
		sort.Strings(schemas)
		result = append(result, LogicalDatabase{Name: name, Schemas: schemas})
	}
	return result
}
