package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Dan Heng", CleanText("  Dan \n\t Heng "))
	assert.Equal(t, "Lúcio", CleanText("Lúcio"))
}

func TestFoldKey(t *testing.T) {
	assert.Equal(t, "torbjorn", FoldKey(" Torbjörn "))
	assert.Equal(t, FoldKey("Lucio"), FoldKey("Lúcio"))
}

func TestLastWord(t *testing.T) {
	assert.Equal(t, "Female", LastWord("Medium Female"))
	assert.Equal(t, "", LastWord("   "))
}

func TestBeforeParen(t *testing.T) {
	assert.Equal(t, "Astral Express", BeforeParen("Astral Express (Navigator)"))
	assert.Equal(t, "Xianzhou", BeforeParen("Xianzhou"))
}

func TestCollapseRepeat(t *testing.T) {
	assert.Equal(t, "Victoria Housekeeping", CollapseRepeat("Victoria HousekeepingVictoria Housekeeping"))
	assert.Equal(t, "Belobog", CollapseRepeat("Belobog"))
	assert.Equal(t, "", CollapseRepeat(""))
	assert.Equal(t, "Belobog", CollapseRepeat("Belobog Belobog"))
	assert.Equal(t, "Victoria Housekeeping", CollapseRepeat(" Victoria Housekeeping Victoria Housekeeping "))
	assert.Equal(t, "Section 6", CollapseRepeat("Section 6"))
	assert.Equal(t, "abXab", CollapseRepeat("abXab"))
}

func TestWikiTitle(t *testing.T) {
	assert.Equal(t, "Xiangli_Yao", WikiTitle(" Xiangli Yao "))
}

func TestCanonicalDate(t *testing.T) {
	tests := []struct {
		value   string
		layouts []string
		want    string
	}{
		{"April 26, 2023", []string{"January 2, 2006"}, "2023-04-26"},
		{"24 May 2016", []string{"2 January 2006", "2 Jan 2006"}, "2016-05-24"},
		{"19 Jul 2016", []string{"2 January 2006", "2 Jan 2006"}, "2016-07-19"},
		{"4-Oct-22", []string{"2-Jan-06"}, "2022-10-04"},
		{"2016-05-24", []string{"January 2, 2006"}, "2016-05-24"},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := CanonicalDate(tt.value, tt.layouts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := CanonicalDate("TBA", []string{"January 2, 2006"})
	assert.Error(t, err)
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "etl.log")

	logger, err := NewLogger("debug", path)
	require.NoError(t, err)
	logger.Info("Extraction finished")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "INFO | ")
	assert.Contains(t, string(data), "Extraction finished")
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger("loud", "")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))
	assert.True(t, logger.Core().Enabled(0))
}
