package console

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kapu/game-character-etl/internal/domain"
	"github.com/kapu/game-character-etl/internal/service/database"
	"github.com/kapu/game-character-etl/internal/service/loader"
	"github.com/kapu/game-character-etl/internal/service/schema"
	etlerrors "github.com/kapu/game-character-etl/pkg/errors"
)

func newService(t *testing.T, cfg Config) *Service {
	t.Helper()
	ctx := context.Background()

	catalog, err := domain.LoadCatalog("")
	require.NoError(t, err)
	dbs, err := database.NewManager(database.Config{Driver: database.DriverSQLite, SQLiteDir: database.MemoryDir}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbs.Close() })

	game, ok := catalog.Get(domain.HonkaiStarRail)
	require.True(t, ok)
	d := domain.NewDataset(game.ID)
	d.Add(domain.CharacterRecord{Name: "Himeko", Gender: "Female", Affiliation: "Astral Express", ReleaseDate: "April 26, 2023"})
	d.Add(domain.CharacterRecord{Name: "Kafka", Gender: "Female", Affiliation: "Stellaron Hunters", ReleaseDate: "April 26, 2023"})
	d.Add(domain.CharacterRecord{Name: "Welt", Gender: "Male", Affiliation: "Astral Express", ReleaseDate: "April 26, 2023"})
	star, err := schema.NewBuilder(zap.NewNop()).Build(game, d)
	require.NoError(t, err)
	_, err = loader.New(dbs, zap.NewNop()).Load(ctx, star)
	require.NoError(t, err)

	return NewService(catalog, dbs, cfg, zap.NewNop())
}

func TestDatabasesGroupSchemas(t *testing.T) {
	s := newService(t, Config{})

	schemas, err := s.Schemas("hoyo_characters")
	require.NoError(t, err)
	assert.Equal(t, []string{"genshin_impact", "honkai_star_rail", "zenless_zone_zero"}, schemas)

	_, err = s.Schemas("nope")
	assert.Equal(t, etlerrors.CodeValidation, etlerrors.CodeOf(err))
}

func TestTablesOfLoadedSchema(t *testing.T) {
	s := newService(t, Config{})

	tables, err := s.Tables(context.Background(), "hoyo_characters", "honkai_star_rail")
	require.NoError(t, err)
	assert.Equal(t, []string{"character_info", "faction_dim", "gender_dim"}, tables)

	_, err = s.Tables(context.Background(), "hoyo_characters", "overwatch_2")
	assert.Error(t, err)
}

func TestExamplesUseAffiliationTable(t *testing.T) {
	s := newService(t, Config{})

	examples, err := s.Examples("hoyo_characters", "honkai_star_rail")
	require.NoError(t, err)
	require.Len(t, examples, 3)
	assert.Contains(t, examples[1].Query, "honkai_star_rail.faction_dim")

	ow, err := s.Examples("blizzard_characters", "overwatch_2")
	require.NoError(t, err)
	assert.Contains(t, ow[1].Query, "overwatch_2.region_dim")
}

func TestRunExamples(t *testing.T) {
	ctx := context.Background()
	s := newService(t, Config{})
	examples, err := s.Examples("hoyo_characters", "honkai_star_rail")
	require.NoError(t, err)

	genders, err := s.Run(ctx, "hoyo_characters", examples[0].Query)
	require.NoError(t, err)
	assert.Equal(t, []string{"gender", "gender_count"}, genders.Columns)
	require.Len(t, genders.Rows, 2)
	assert.Equal(t, "Female", genders.Rows[0][0])
	assert.EqualValues(t, 2, genders.Rows[0][1])

	factions, err := s.Run(ctx, "hoyo_characters", examples[1].Query)
	require.NoError(t, err)
	assert.Equal(t, "Astral Express", factions.Rows[0][0])

	total, err := s.Run(ctx, "hoyo_characters", examples[2].Query)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total.Rows[0][0])
}

func TestRunCapsRows(t *testing.T) {
	s := newService(t, Config{MaxRows: 2})

	result, err := s.Run(context.Background(), "hoyo_characters",
		"SELECT name FROM honkai_star_rail.character_info ORDER BY character_id")
	require.NoError(t, err)
	assert.Len(t, result.Rows, 2)
	assert.True(t, result.Truncated)
}

func TestRunRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	s := newService(t, Config{})

	_, err := s.Run(ctx, "hoyo_characters", "   ")
	assert.Equal(t, etlerrors.CodeValidation, etlerrors.CodeOf(err))

	_, err = s.Run(ctx, "unknown", "SELECT 1")
	assert.Equal(t, etlerrors.CodeValidation, etlerrors.CodeOf(err))

	_, err = s.Run(ctx, "hoyo_characters", "SELECT * FROM nowhere")
	require.Error(t, err)
	assert.Equal(t, etlerrors.CodeETLError, etlerrors.CodeOf(err))
}

func TestRunDoesNotPersistWrites(t *testing.T) {
	ctx := context.Background()
	s := newService(t, Config{})

	_, err := s.Run(ctx, "hoyo_characters", "DELETE FROM honkai_star_rail.character_info")
	require.NoError(t, err)

	total, err := s.Run(ctx, "hoyo_characters", "SELECT COUNT(*) FROM honkai_star_rail.character_info")
	require.NoError(t, err)
	assert.EqualValues(t, 3, total.Rows[0][0])
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, "abc", normalizeValue([]byte("abc")))
	assert.Equal(t, "2023-04-26", normalizeValue(time.Date(2023, 4, 26, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, int64(7), normalizeValue(int64(7)))
	assert.Equal(t, "NULL", FormatValue(nil))
}

func TestRenderResult(t *testing.T) {
	var buf bytes.Buffer
	RenderResult(&buf, &Result{
		Columns:   []string{"gender", "gender_count"},
		Rows:      [][]any{{"Female", int64(2)}},
		Truncated: true,
		Elapsed:   1500 * time.Millisecond,
	})
	out := buf.String()
	assert.Contains(t, out, "Female")
	assert.Contains(t, out, "(showing first 1 rows)")
	assert.Contains(t, out, "Query executed in 1.500 seconds")
}

func TestServerRoutes(t *testing.T) {
	s := newService(t, Config{})
	srv := httptest.NewServer(NewServer(":0", s, zap.NewNop()).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/databases/hoyo_characters/schemas/missing/examples")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerWebSocketQuery(t *testing.T) {
	s := newService(t, Config{})
	srv := httptest.NewServer(NewServer(":0", s, zap.NewNop()).Router())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/query"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(QueryRequest{
		Database: "hoyo_characters",
		Query:    "SELECT COUNT(*) AS n FROM honkai_star_rail.character_info",
	}))
	var ok QueryResponse
	require.NoError(t, conn.ReadJSON(&ok))
	assert.Empty(t, ok.Error)
	assert.Equal(t, []string{"n"}, ok.Columns)
	assert.EqualValues(t, 3, ok.Rows[0][0])

	require.NoError(t, conn.WriteJSON(QueryRequest{Database: "hoyo_characters", Query: "SELEC"}))
	var bad QueryResponse
	require.NoError(t, conn.ReadJSON(&bad))
	assert.NotEmpty(t, bad.Error)
}

func TestClientAgainstServer(t *testing.T) {
	s := newService(t, Config{})
	srv := httptest.NewServer(NewServer(":0", s, zap.NewNop()).Router())
	defer srv.Close()

	ctx := context.Background()
	client := NewClient(srv.URL, zap.NewNop())
	defer client.Close()

	views, err := client.Databases(ctx)
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, "blizzard_characters", views[0].Name)

	examples, err := client.Examples(ctx, "hoyo_characters", "honkai_star_rail")
	require.NoError(t, err)
	require.Len(t, examples, 3)

	result, err := client.Query(ctx, "hoyo_characters", examples[2].Query)
	require.NoError(t, err)
	assert.Equal(t, []string{"character_number"}, result.Columns)
	assert.EqualValues(t, 3, result.Rows[0][0])

	_, err = client.Query(ctx, "hoyo_characters", "SELECT * FROM nowhere")
	assert.Error(t, err)

	// the connection survives a failed query
	result, err = client.Query(ctx, "hoyo_characters", "SELECT 1 AS one")
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Rows[0][0])

	_, err = client.Examples(ctx, "hoyo_characters", "nope")
	assert.Error(t, err)
}
