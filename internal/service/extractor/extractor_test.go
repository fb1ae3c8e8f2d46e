package extractor

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kapu/game-character-etl/internal/domain"
	"github.com/kapu/game-character-etl/internal/service/fetcher"
	etlerrors "github.com/kapu/game-character-etl/pkg/errors"
)

type fakeFetcher struct {
	pages     map[string]fetcher.Result
	requested []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: make(map[string]fetcher.Result)}
}

func (f *fakeFetcher) page(url, html string) {
	f.pages[url] = fetcher.Ok(url, []byte(html))
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) fetcher.Result {
	f.requested = append(f.requested, url)
	if result, ok := f.pages[url]; ok {
		return result
	}
	return fetcher.Failed(url, http.StatusNotFound, "Not Found")
}

func loadGame(t *testing.T, id domain.GameID) *domain.Game {
	t.Helper()
	catalog, err := domain.LoadCatalog("")
	require.NoError(t, err)
	game, ok := catalog.Get(id)
	require.True(t, ok)
	return game
}

func writeInput(t *testing.T, dir, name string, lines ...string) {
	t.Helper()
	content := strings.Join(lines, "\n") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func infoboxPage(heading string, fields map[string]string) string {
	var b strings.Builder
	b.WriteString("<html><body><h1>" + heading + "</h1><aside>")
	for source, value := range fields {
		b.WriteString(`<div data-source="` + source + `"><h3>` + source + `</h3><div>` + value + `</div></div>`)
	}
	b.WriteString("</aside></body></html>")
	return b.String()
}

func newExtractor(t *testing.T, id domain.GameID, f fetcher.Fetcher, inputDir string) Extractor {
	t.Helper()
	ex, err := New(loadGame(t, id), Deps{Fetcher: f, InputDir: inputDir, Logger: zap.NewNop()})
	require.NoError(t, err)
	return ex
}

func TestSupportedCoversEveryCatalogGame(t *testing.T) {
	catalog, err := domain.LoadCatalog("")
	require.NoError(t, err)

	supported := Supported()
	for _, id := range catalog.IDs() {
		assert.Contains(t, supported, id)
	}
}

func TestNewRequiresFetcher(t *testing.T) {
	_, err := New(loadGame(t, domain.GenshinImpact), Deps{})
	assert.Error(t, err)
}

func TestWutheringWavesExtract(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "character_list_wuwa.txt", "Jinhsi", "Rover", "Camellya", "", "Missing One")

	f := newFakeFetcher()
	base := "https://wutheringwaves.fandom.com/wiki/"
	f.page(base+"Jinhsi", infoboxPage("Jinhsi", map[string]string{
		"gender":      "Female",
		"nation":      "Huanglong",
		"releaseDate": "June 28, 2024<br/>Version 1.1",
	}))
	f.page(base+"Rover", infoboxPage("Rover", map[string]string{
		"nation":      "Unknown",
		"releaseDate": "May 22, 2024",
	}))
	f.page(base+"Camellya", infoboxPage("Camellya", map[string]string{
		"gender":      "Female",
		"birthplace":  "Black Shores",
		"releaseDate": "September 19, 2024",
	}))

	dataset, err := newExtractor(t, domain.WutheringWaves, f, dir).Extract(context.Background())
	require.NoError(t, err)

	want := []domain.CharacterRecord{
		{Name: "Jinhsi", Gender: "Female", Affiliation: "Huanglong", ReleaseDate: "June 28, 2024"},
		{Name: "Rover", Gender: "Any", Affiliation: "Unknown", ReleaseDate: "May 22, 2024"},
		{Name: "Camellya", Gender: "Female", Affiliation: "Black Shores", ReleaseDate: "September 19, 2024"},
	}
	if diff := cmp.Diff(want, dataset.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, f.requested, base+"Missing_One")
}

func TestWutheringWavesMissingHeadingSkips(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "character_list_wuwa.txt", "Broken", "Jinhsi")

	f := newFakeFetcher()
	base := "https://wutheringwaves.fandom.com/wiki/"
	f.page(base+"Broken", `<html><body><p>no heading</p></body></html>`)
	f.page(base+"Jinhsi", infoboxPage("Jinhsi", map[string]string{"gender": "Female"}))

	dataset, err := newExtractor(t, domain.WutheringWaves, f, dir).Extract(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, dataset.Len())
	assert.Equal(t, domain.CharacterRecord{
		Name: "Jinhsi", Gender: "Female", Affiliation: "Unknown", ReleaseDate: "Unknown",
	}, dataset.Records[0])
}

func TestBlockedAbortsRunWithoutPartialDataset(t *testing.T) {
	dir := t.TempDir()
	names := []string{"One", "Two", "Three", "Four", "Five"}
	writeInput(t, dir, "character_list_zzz.txt", names...)

	f := newFakeFetcher()
	base := "https://zenless-zone-zero.fandom.com/wiki/"
	for _, name := range names {
		f.page(base+name, `<span class="mw-page-title-main">`+name+`</span>`)
	}
	f.pages[base+"Three"] = fetcher.Blocked(base+"Three", http.StatusTooManyRequests)

	dataset, err := newExtractor(t, domain.ZenlessZoneZero, f, dir).Extract(context.Background())
	require.Error(t, err)
	assert.True(t, etlerrors.IsBlocked(err))
	assert.Nil(t, dataset)
	assert.Equal(t, []string{base + "One", base + "Two", base + "Three"}, f.requested)
}

func TestZenlessZoneZeroCollapsesFaction(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "character_list_zzz.txt", "Ellen Joe")

	f := newFakeFetcher()
	f.page("https://zenless-zone-zero.fandom.com/wiki/Ellen_Joe", `<html><body>
		<h1><span class="mw-page-title-main">Ellen Joe</span></h1>
		<div data-source="gender"><div>Female</div></div>
		<div data-source="faction"><div><a>Victoria Housekeeping</a><a>Victoria Housekeeping</a></div></div>
		<div data-source="releaseDate"><div>July 4, 2024<br>Version 1.0</div></div>
	</body></html>`)

	dataset, err := newExtractor(t, domain.ZenlessZoneZero, f, dir).Extract(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, dataset.Len())
	assert.Equal(t, domain.CharacterRecord{
		Name: "Ellen Joe", Gender: "Female", Affiliation: "Victoria Housekeeping", ReleaseDate: "July 4, 2024",
	}, dataset.Records[0])
}

func TestZenlessZoneZeroCollapsesSeparatedFaction(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "character_list_zzz.txt", "Lycaon")

	f := newFakeFetcher()
	f.page("https://zenless-zone-zero.fandom.com/wiki/Lycaon", `<html><body>
		<h1><span class="mw-page-title-main">Lycaon</span></h1>
		<div data-source="gender"><div>Male</div></div>
		<div data-source="faction"><div><a>Victoria Housekeeping</a>
<a>Victoria Housekeeping</a></div></div>
		<div data-source="releaseDate"><div>July 4, 2024<br>Version 1.0</div></div>
	</body></html>`)

	dataset, err := newExtractor(t, domain.ZenlessZoneZero, f, dir).Extract(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, dataset.Len())
	assert.Equal(t, "Victoria Housekeeping", dataset.Records[0].Affiliation)
}

const genshinRoster = `<html><body><table><tbody>
<tr><th>Icon</th><th>Name</th><th>Quality</th><th>Element</th><th>Weapon</th><th>Region</th><th>Model</th><th>Release</th><th>Version</th></tr>
<tr><td>i</td><td>Albedo</td><td>5</td><td>Geo</td><td>Sword</td><td>Mondstadt</td><td>Medium Male</td><td>December 23, 2020</td><td>1.2</td></tr>
<tr><td>i</td><td>Aloy</td><td>5</td><td>Cryo</td><td>Bow</td><td>None</td><td>Medium Female</td><td>September 21, 2021</td><td>2.1</td></tr>
<tr><td>i</td><td>Traveler</td><td>5</td><td>Anemo</td><td>Sword</td><td>None</td><td>Medium Male</td><td>September 28, 2020</td><td>1.0</td></tr>
<tr><td>broken</td><td>row</td></tr>
</tbody></table></body></html>`

func TestGenshinImpactExtract(t *testing.T) {
	f := newFakeFetcher()
	f.page("https://genshin-impact.fandom.com/wiki/Character/List", genshinRoster)

	dataset, err := newExtractor(t, domain.GenshinImpact, f, t.TempDir()).Extract(context.Background())
	require.NoError(t, err)

	want := []domain.CharacterRecord{
		{Name: "Albedo", Gender: "Male", Affiliation: "Mondstadt", ReleaseDate: "December 23, 2020"},
		{Name: "Aloy", Gender: "Female", Affiliation: "Unknown", ReleaseDate: "September 21, 2021"},
		{Name: "Traveler", Gender: "Any", Affiliation: "Unknown", ReleaseDate: "September 28, 2020"},
	}
	if diff := cmp.Diff(want, dataset.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestGenshinImpactMissingTableFailsRun(t *testing.T) {
	f := newFakeFetcher()
	f.page("https://genshin-impact.fandom.com/wiki/Character/List", `<html><body>maintenance</body></html>`)

	_, err := newExtractor(t, domain.GenshinImpact, f, t.TempDir()).Extract(context.Background())
	require.Error(t, err)
	assert.True(t, etlerrors.IsFieldMissing(err))
}

func TestGenshinImpactRosterBlocked(t *testing.T) {
	url := "https://genshin-impact.fandom.com/wiki/Character/List"
	f := newFakeFetcher()
	f.pages[url] = fetcher.Blocked(url, http.StatusForbidden)

	_, err := newExtractor(t, domain.GenshinImpact, f, t.TempDir()).Extract(context.Background())
	assert.True(t, etlerrors.IsBlocked(err))
}

func TestHonkaiStarRailTwoStage(t *testing.T) {
	f := newFakeFetcher()
	f.page("https://www.thegamer.com/honkai-star-rail-playable-character-age-height-path-element/", `<table><tbody>
<tr><td>Name</td><td>Age</td><td>Gender</td></tr>
<tr><td>Trailblazer</td><td>Unknown</td><td>Player Choice</td></tr>
<tr><td>Himeko</td><td>Unknown</td><td>Adult Female</td></tr>
<tr><td>Welt</td><td>Unknown</td><td>Adult Male</td></tr>
<tr><td>Aventurine</td><td>Unknown</td><td>Adult Male</td></tr>
</tbody></table>`)

	wiki := "https://honkai-star-rail.fandom.com/wiki/"
	f.page(wiki+"Trailblazer", `<div data-source="faction"><div>Astral Express</div></div>
<div data-source="release_date"><div>April 26, 2023 (Version 1.0)</div></div>`)
	f.page(wiki+"Himeko", `<div data-source="faction"><div>Astral Express (Navigator)</div></div>
<div data-source="release_date"><div>April 26, 2023 (Version 1.0)</div></div>`)
	f.page(wiki+"Aventurine", `<div data-source="faction"><div>Interastral Peace Corporation</div></div>
<div data-source="release_date"><div>June 19, 2024</div></div>`)

	dataset, err := newExtractor(t, domain.HonkaiStarRail, f, t.TempDir()).Extract(context.Background())
	require.NoError(t, err)

	want := []domain.CharacterRecord{
		{Name: "Trailblazer", Gender: "Any", Affiliation: "Astral Express", ReleaseDate: "April 26, 2023 (Version 1.0)"},
		{Name: "Himeko", Gender: "Female", Affiliation: "Astral Express (Navigator)", ReleaseDate: "April 26, 2023 (Version 1.0)"},
		{Name: "Aventurine", Gender: "Male", Affiliation: "Interastral Peace Corporation", ReleaseDate: "June 19, 2024"},
	}
	if diff := cmp.Diff(want, dataset.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, f.requested, wiki+"Welt")
}

func TestHSRTitleEncodesAnd(t *testing.T) {
	assert.Equal(t, "Dan_Heng_%26_Imbibitor", hsrTitle("Dan Heng and Imbibitor"))
	assert.Equal(t, "Sandman", hsrTitle("Sandman"))
}

const overwatchRoster = `<html><body>
<table><tbody><tr><td>navigation</td></tr></tbody></table>
<table><tbody>
<tr><th>Portrait</th><th>Role</th><th>Name</th><th>Real name</th><th>Age</th><th>Nationality</th><th>Release</th></tr>
<tr><td>p</td><td>Damage</td><td>Tracer</td><td>Lena Oxton</td><td>26</td><td>United Kingdom</td><td>24 May 2016</td></tr>
<tr><td>p</td><td>Damage</td><td>Torbjörn</td><td>Torbjörn Lindholm</td><td>57</td><td>Sweden</td><td>24 May 2016</td></tr>
<tr><td>p</td><td>Support</td><td>Ana</td><td>Ana Amari</td><td>60</td><td>Egypt</td><td>19 Jul 2016</td></tr>
<tr><td>p</td><td>Tank</td><td>Mystery</td><td>Unknown</td><td>Nowhere</td></tr>
<tr><td>p</td><td>Damage</td><td>Sojourn</td><td>Vivian Chase</td><td>37</td><td>Canada</td><td>Overwatch 2</td><td>4 Oct 2022</td></tr>
</tbody></table></body></html>`

func TestOverwatchExtract(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "character_list_ow.txt", "Tracer - Female", "Ana - Female", "Sojourn - Female")

	f := newFakeFetcher()
	f.page("https://overwatch.fandom.com/wiki/Heroes", overwatchRoster)

	dataset, err := newExtractor(t, domain.Overwatch2, f, dir).Extract(context.Background())
	require.NoError(t, err)

	want := []domain.CharacterRecord{
		{Name: "Tracer", Gender: "Female", Affiliation: "United Kingdom", ReleaseDate: "24 May 2016"},
		{Name: "Torbjörn", Gender: "Male", Affiliation: "Sweden", ReleaseDate: "24 May 2016"},
		{Name: "Ana", Gender: "Female", Affiliation: "Egypt", ReleaseDate: "19 Jul 2016"},
		{Name: "Mystery", Gender: "Any", Affiliation: "Nowhere", ReleaseDate: "Nowhere"},
		{Name: "Sojourn", Gender: "Female", Affiliation: "Canada", ReleaseDate: "4 Oct 2022"},
	}
	if diff := cmp.Diff(want, dataset.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestOwRegionIndex(t *testing.T) {
	assert.Equal(t, -1, owRegionIndex(5))
	assert.Equal(t, -1, owRegionIndex(6))
	assert.Equal(t, -2, owRegionIndex(7))
	assert.Equal(t, -3, owRegionIndex(8))
}

func TestGuardConvertsPanic(t *testing.T) {
	b := newBase(loadGame(t, domain.Overwatch2), Deps{Logger: zap.NewNop()})
	_, err := guard(&b, "Lucio", func() (domain.CharacterRecord, error) {
		var cells []string
		_ = cells[4]
		return domain.CharacterRecord{}, nil
	})
	require.Error(t, err)
	assert.True(t, etlerrors.IsFieldMissing(err))
}

func TestOverwatchGenderFoldsDiacritics(t *testing.T) {
	e := NewOverwatch(loadGame(t, domain.Overwatch2), Deps{Fetcher: newFakeFetcher(), Logger: zap.NewNop()}).(*Overwatch)
	genders := map[string]string{"Lucio": "Male", "D.Va": "Female"}

	assert.Equal(t, "Male", e.gender("Lúcio", genders))
	assert.Equal(t, "Female", e.gender("D.Va", genders))
	assert.Equal(t, "Male", e.gender("Torbjörn", genders))
	assert.Equal(t, "Male", e.gender("Aqua Reinhardt", genders))
	assert.Equal(t, domain.SentinelGender, e.gender("Nobody", genders))
}
