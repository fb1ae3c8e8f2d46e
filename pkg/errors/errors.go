package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Error codes
const (
	CodeETLError      = "ETL_ERROR"
	CodeFetchBlocked  = "FETCH_BLOCKED"
	CodeFetchFailed   = "FETCH_FAILED"
	CodeFieldMissing  = "FIELD_MISSING"
	CodeDateParse     = "DATE_PARSE_ERROR"
	CodeDateFormat    = "DATE_FORMAT_ERROR"
	CodeUnresolvedKey = "UNRESOLVED_FOREIGN_KEY"
	CodeDuplicateName = "DUPLICATE_NAME"
	CodeLoad          = "LOAD_ERROR"
	CodeValidation    = "VALIDATION_ERROR"
	CodeCache         = "CACHE_ERROR"
)

// Pipeline stages used as error context.
const (
	StageExtract = "extract"
	StageClean   = "clean"
	StageBuild   = "build"
	StageExport  = "export"
	StageLoad    = "load"
	StageQuery   = "query"
)

type ETLError struct {
	Message string
	Code    string
	Stage   string
	Context map[string]any
	Cause   error
}

func (e *ETLError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ETLError) Unwrap() error {
	return e.Cause
}

func (e *ETLError) ErrorCode() string {
	return e.Code
}

func NewETLError(message, code, stage string, context map[string]any) *ETLError {
	return &ETLError{
		Message: message,
		Code:    code,
		Stage:   stage,
		Context: context,
	}
}

func (e *ETLError) WithCause(cause error) *ETLError {
	e.Cause = cause
	return e
}

// FetchBlockedError means the source identified the process as automated.
// It aborts the whole extraction run of the game.
type FetchBlockedError struct {
	*ETLError
	URL        string
	StatusCode int
}

func NewFetchBlockedError(url string, statusCode int) *FetchBlockedError {
	return &FetchBlockedError{
		ETLError: &ETLError{
			Message: fmt.Sprintf("fetch blocked with status %d", statusCode),
			Code:    CodeFetchBlocked,
			Stage:   StageExtract,
			Context: map[string]any{
				"url":    url,
				"status": statusCode,
			},
		},
		URL:        url,
		StatusCode: statusCode,
	}
}

// FetchFailedError is recoverable: the affected character or row is skipped.
type FetchFailedError struct {
	*ETLError
	URL        string
	StatusCode int
	Reason     string
}

func NewFetchFailedError(url string, statusCode int, reason string, cause error) *FetchFailedError {
	return &FetchFailedError{
		ETLError: &ETLError{
			Message: fmt.Sprintf("fetch failed: %s", reason),
			Code:    CodeFetchFailed,
			Stage:   StageExtract,
			Context: map[string]any{
				"url":    url,
				"status": statusCode,
			},
			Cause: cause,
		},
		URL:        url,
		StatusCode: statusCode,
		Reason:     reason,
	}
}

type FieldMissingError struct {
	*ETLError
	Game      string
	Character string
	Field     string
	URL       string
}

func NewFieldMissingError(game, character, field, url string) *FieldMissingError {
	label := character
	if label == "" {
		label = "<unknown>"
	}
	return &FieldMissingError{
		ETLError: &ETLError{
			Message: fmt.Sprintf("%s: required element %q missing for %s", game, field, label),
			Code:    CodeFieldMissing,
			Stage:   StageExtract,
			Context: map[string]any{
				"game":      game,
				"character": character,
				"field":     field,
				"url":       url,
			},
		},
		Game:      game,
		Character: character,
		Field:     field,
		URL:       url,
	}
}

// DateParseError is raised by the star-schema builder; it rejects one record.
type DateParseError struct {
	*ETLError
	Character string
	Value     string
	Layouts   []string
}

func NewDateParseError(character, value string, layouts []string) *DateParseError {
	return &DateParseError{
		ETLError: &ETLError{
			Message: fmt.Sprintf("release date %q of %s matches none of [%s]", value, character, strings.Join(layouts, "; ")),
			Code:    CodeDateParse,
			Stage:   StageBuild,
			Context: map[string]any{
				"character": character,
				"value":     value,
			},
		},
		Character: character,
		Value:     value,
		Layouts:   layouts,
	}
}

// DateFormatError is raised by the cleaner when a date does not have the
// shape a truncation rule expects. The value is left untouched.
type DateFormatError struct {
	*ETLError
	Game      string
	Character string
	Value     string
	Rule      string
}

func NewDateFormatError(game, character, value, rule string) *DateFormatError {
	return &DateFormatError{
		ETLError: &ETLError{
			Message: fmt.Sprintf("%s: release date %q of %s does not fit rule %s", game, value, character, rule),
			Code:    CodeDateFormat,
			Stage:   StageClean,
			Context: map[string]any{
				"game":      game,
				"character": character,
				"value":     value,
				"rule":      rule,
			},
		},
		Game:      game,
		Character: character,
		Value:     value,
		Rule:      rule,
	}
}

type DuplicateNameError struct {
	*ETLError
	Character string
}

func NewDuplicateNameError(character string) *DuplicateNameError {
	return &DuplicateNameError{
		ETLError: &ETLError{
			Message: fmt.Sprintf("duplicate character name %q", character),
			Code:    CodeDuplicateName,
			Stage:   StageBuild,
			Context: map[string]any{"character": character},
		},
		Character: character,
	}
}

// UnresolvedForeignKeyError signals an internal consistency bug in the builder.
type UnresolvedForeignKeyError struct {
	*ETLError
	Dimension string
	Value     string
}

func NewUnresolvedForeignKeyError(dimension, value string) *UnresolvedForeignKeyError {
	return &UnresolvedForeignKeyError{
		ETLError: &ETLError{
			Message: fmt.Sprintf("value %q has no row in dimension %s", value, dimension),
			Code:    CodeUnresolvedKey,
			Stage:   StageBuild,
			Context: map[string]any{
				"dimension": dimension,
				"value":     value,
			},
		},
		Dimension: dimension,
		Value:     value,
	}
}

type LoadError struct {
	*ETLError
	Database string
	Schema   string
	Table    string
}

func NewLoadError(message, database, schema, table string, cause error) *LoadError {
	return &LoadError{
		ETLError: &ETLError{
			Message: message,
			Code:    CodeLoad,
			Stage:   StageLoad,
			Context: map[string]any{
				"database": database,
				"schema":   schema,
				"table":    table,
			},
			Cause: cause,
		},
		Database: database,
		Schema:   schema,
		Table:    table,
	}
}

type ValidationError struct {
	*ETLError
	Field string
	Value interface{}
}

func NewValidationError(message, field string, value interface{}) *ValidationError {
	return &ValidationError{
		ETLError: &ETLError{
			Message: message,
			Code:    CodeValidation,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

type CacheError struct {
	*ETLError
	Operation string
	Key       string
}

func NewCacheError(message, operation, key string, cause error) *CacheError {
	return &CacheError{
		ETLError: &ETLError{
			Message: message,
			Code:    CodeCache,
			Context: map[string]any{
				"operation": operation,
				"key":       key,
			},
			Cause: cause,
		},
		Operation: operation,
		Key:       key,
	}
}

func IsBlocked(err error) bool {
	var target *FetchBlockedError
	return stderrors.As(err, &target)
}

func IsFetchFailed(err error) bool {
	var target *FetchFailedError
	return stderrors.As(err, &target)
}

func IsFieldMissing(err error) bool {
	var target *FieldMissingError
	return stderrors.As(err, &target)
}

func IsDateParse(err error) bool {
	var target *DateParseError
	return stderrors.As(err, &target)
}

func IsDateFormat(err error) bool {
	var target *DateFormatError
	return stderrors.As(err, &target)
}

// CodeOf returns the code of the first typed error in the chain, or "".
func CodeOf(err error) string {
	var target interface{ ErrorCode() string }
	if stderrors.As(err, &target) {
		return target.ErrorCode()
	}
	return ""
}
