package extractor

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadNameList(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "names.txt", "\ufeffJinhsi", "  Changli  ", "", "Rover")

	names, err := ReadNameList(filepath.Join(dir, "names.txt"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Jinhsi", "Changli", "Rover"}, names)
}

func TestReadNameListMissingFile(t *testing.T) {
	_, err := ReadNameList(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}

func TestReadGenderList(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "ow.txt", "Tracer - Female", "Soldier: 76 - Male", "Junker-Queen - Female")

	genders, err := ReadGenderList(filepath.Join(dir, "ow.txt"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"Tracer":       "Female",
		"Soldier: 76":  "Male",
		"Junker-Queen": "Female",
	}, genders)
}

func TestReadGenderListRejectsMalformedLine(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "ow.txt", "Tracer Female")

	_, err := ReadGenderList(filepath.Join(dir, "ow.txt"))
	assert.Error(t, err)
}
