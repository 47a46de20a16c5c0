package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BartekS5/rawimport/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings(t *testing.T) {
	t.Setenv("RAWIMPORT_LOG_LEVEL", "debug")
	t.Setenv("RAWIMPORT_INDEX_FOLDER", "/var/lib/rawimport/indices")

	s, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, "console", s.LogFormat)
	assert.Equal(t, "/var/lib/rawimport/indices", s.IndexFolder)
	assert.Equal(t, "import.yaml", s.Config)
}

func TestReferenceFiles(t *testing.T) {
	dir := t.TempDir()
	book := filepath.Join(dir, "book.json")
	inv := filepath.Join(dir, "inv.json")
	require.NoError(t, os.WriteFile(book, []byte(`{"555": 12, "556": "bob"}`), 0o644))
	require.NoError(t, os.WriteFile(inv, []byte(`{"AA:BB": [{"user": 1, "start": 0, "end": 100}]}`), 0o644))

	refs := NewReferenceFiles(models.References{PhoneBook: book, DeviceInventory: inv})

	pb, err := refs.PhoneBook()
	require.NoError(t, err)
	assert.Len(t, pb, 2)
	assert.Equal(t, "bob", pb["556"])

	di, err := refs.DeviceInventory()
	require.NoError(t, err)
	assert.Equal(t, models.DeviceInventory{"AA:BB": {{User: 1, Start: 0, End: 100}}}, di)
}

func TestReferenceFilesErrors(t *testing.T) {
	dir := t.TempDir()
	inv := filepath.Join(dir, "inv.json")
	require.NoError(t, os.WriteFile(inv, []byte(`{"AA:BB": [{"user": 1, "start": 100, "end": 0}]}`), 0o644))

	refs := NewReferenceFiles(models.References{PhoneBook: filepath.Join(dir, "missing.json"), DeviceInventory: inv})
	_, err := refs.PhoneBook()
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = refs.DeviceInventory()
	assert.ErrorContains(t, err, "ends before it starts")

	defaults := NewReferenceFiles(models.References{})
	assert.Equal(t, "phone_book", defaults.PhoneBookPath)
	assert.Equal(t, "device_inventory", defaults.DeviceInventoryPath)
}
