package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	blocked := NewFetchBlockedError("https://example.org/wiki/Ana", 403)
	wrapped := fmt.Errorf("overwatch_2: %w", blocked)
	joined := stderrors.Join(stderrors.New("other"), wrapped)

	assert.True(t, IsBlocked(joined))
	assert.False(t, IsFetchFailed(joined))
	assert.Equal(t, CodeFetchBlocked, CodeOf(joined))
	assert.Equal(t, StageExtract, blocked.Stage)
}

func TestCauseIsUnwrapped(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := NewFetchFailedError("u", 0, "transport error", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "fetch failed: transport error: connection reset", err.Error())
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"field missing", NewFieldMissingError("wuthering_waves", "", "heading", "u"), CodeFieldMissing},
		{"date parse", NewDateParseError("Ana", "soon", []string{"2 January 2006"}), CodeDateParse},
		{"date format", NewDateFormatError("honkai_star_rail", "Himeko", "TBD", "comma_year"), CodeDateFormat},
		{"duplicate", NewDuplicateNameError("Ana"), CodeDuplicateName},
		{"load", NewLoadError("insert failed", "hoyo_characters", "genshin_impact", "character_info", nil), CodeLoad},
		{"validation", NewValidationError("bad", "game", "tetris"), CodeValidation},
		{"cache", NewCacheError("down", "get", "k", nil), CodeCache},
		{"plain", stderrors.New("x"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestFieldMissingLabel(t *testing.T) {
	err := NewFieldMissingError("wuthering_waves", "", "heading", "u")
	assert.Contains(t, err.Error(), "<unknown>")
	assert.True(t, IsFieldMissing(err))
}

func TestDateErrorPredicates(t *testing.T) {
	assert.True(t, IsDateParse(NewDateParseError("Ana", "soon", nil)))
	assert.True(t, IsDateFormat(NewDateFormatError("g", "c", "v", "r")))
	assert.False(t, IsDateParse(NewDateFormatError("g", "c", "v", "r")))
}
