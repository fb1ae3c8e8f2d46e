package loader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kapu/game-character-etl/internal/domain"
	"github.com/kapu/game-character-etl/internal/service/database"
	"github.com/kapu/game-character-etl/internal/service/schema"
	etlerrors "github.com/kapu/game-character-etl/pkg/errors"
)

func newManager(t *testing.T) *database.Manager {
	t.Helper()
	m, err := database.NewManager(database.Config{Driver: database.DriverSQLite, SQLiteDir: database.MemoryDir}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func buildStar(t *testing.T, id domain.GameID, records ...domain.CharacterRecord) *domain.StarSchema {
	t.Helper()
	catalog, err := domain.LoadCatalog("")
	require.NoError(t, err)
	game, ok := catalog.Get(id)
	require.True(t, ok)

	d := domain.NewDataset(id)
	for _, r := range records {
		d.Add(r)
	}
	star, err := schema.NewBuilder(zap.NewNop()).Build(game, d)
	require.NoError(t, err)
	return star
}

func count(t *testing.T, h *database.Handle, schemaName, table string) int {
	t.Helper()
	var n int
	require.NoError(t, h.DB.QueryRow("SELECT COUNT(*) FROM "+h.Dialect.Table(schemaName, table)).Scan(&n))
	return n
}

func TestLoadCreatesAndFillsTables(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	star := buildStar(t, domain.HonkaiStarRail,
		domain.CharacterRecord{Name: "Himeko", Gender: "Female", Affiliation: "Astral Express", ReleaseDate: "April 26, 2023"},
		domain.CharacterRecord{Name: "Kafka", Gender: "Female", Affiliation: "Stellaron Hunters", ReleaseDate: "April 26, 2023"},
		domain.CharacterRecord{Name: "Welt", Gender: "Male", Affiliation: "Astral Express", ReleaseDate: "April 26, 2023"},
	)

	summary, err := New(m, zap.NewNop()).Load(ctx, star)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Characters)
	assert.Equal(t, 2, summary.Genders)
	assert.Equal(t, 2, summary.Affiliations)

	h, err := m.Open(ctx, "hoyo_characters")
	require.NoError(t, err)
	assert.Equal(t, 3, count(t, h, "honkai_star_rail", "character_info"))
	assert.Equal(t, 2, count(t, h, "honkai_star_rail", "faction_dim"))

	var faction string
	err = h.DB.QueryRow(`SELECT f.faction FROM "honkai_star_rail"."character_info" c
		JOIN "honkai_star_rail"."faction_dim" f ON f.faction_id = c.faction_id
		WHERE c.name = ?`, "Kafka").Scan(&faction)
	require.NoError(t, err)
	assert.Equal(t, "Stellaron Hunters", faction)
}

func TestLoadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	l := New(m, zap.NewNop())

	first := buildStar(t, domain.Overwatch2,
		domain.CharacterRecord{Name: "Tracer", Gender: "Female", Affiliation: "United Kingdom", ReleaseDate: "24 May 2016"},
		domain.CharacterRecord{Name: "Ana", Gender: "Female", Affiliation: "Egypt", ReleaseDate: "19 Jul 2016"},
	)
	_, err := l.Load(ctx, first)
	require.NoError(t, err)

	second := buildStar(t, domain.Overwatch2,
		domain.CharacterRecord{Name: "Ana", Gender: "Female", Affiliation: "Egypt", ReleaseDate: "19 Jul 2016"},
	)
	_, err = l.Load(ctx, second)
	require.NoError(t, err)

	h, err := m.Open(ctx, "blizzard_characters")
	require.NoError(t, err)
	assert.Equal(t, 1, count(t, h, "overwatch_2", "character_info"))
	assert.Equal(t, 1, count(t, h, "overwatch_2", "region_dim"))
}

func TestLoadRejectsInconsistentStar(t *testing.T) {
	star := buildStar(t, domain.GenshinImpact,
		domain.CharacterRecord{Name: "Albedo", Gender: "Male", Affiliation: "Mondstadt", ReleaseDate: "December 23, 2020"},
	)
	star.Facts[0].AffiliationID = 9

	_, err := New(newManager(t), zap.NewNop()).Load(context.Background(), star)
	require.Error(t, err)
	assert.Equal(t, etlerrors.CodeLoad, etlerrors.CodeOf(err))

	var loadErr *etlerrors.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "genshin_impact", loadErr.Schema)
}

func TestInsertStatementUsesDialectPlaceholders(t *testing.T) {
	catalog, err := domain.LoadCatalog("")
	require.NoError(t, err)
	game, _ := catalog.Get(domain.ZenlessZoneZero)

	m := newManager(t)
	h, err := m.Open(context.Background(), game.Database, game.Schema)
	require.NoError(t, err)

	tb := newTables(h.Dialect, game)
	assert.Equal(t, `INSERT INTO "zenless_zone_zero"."character_info" (character_id, name, gender_id, faction_id, release_date) VALUES (?, ?, ?, ?, ?)`,
		tb.insertCharacter)
}
