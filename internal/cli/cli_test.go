package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.ExecuteContext(context.Background()), out.String())
	return strings.TrimSpace(out.String())
}

func writeImportConfig(t *testing.T, dir string) string {
	t.Helper()
	source := filepath.Join(dir, "calls.json")
	require.NoError(t, os.WriteFile(source, []byte(`[
		{"id": 1, "user": 1, "timestamp": 1396310400, "number": "555", "duration": 10, "type": "outgoing"},
		{"id": 2, "user": 1, "timestamp": 1396310500, "number": "556", "duration": 5, "type": "incoming"},
		{"id": 3, "user": 2, "timestamp": 1398902400, "number": "555", "duration": 7, "type": "outgoing"}
	]`), 0o644))

	cfg := fmt.Sprintf(`
source_db:
  db_type: json
  source_file: %s
  table: calllog
target_db:
  db_type: json
  database: %s
  table: calllog
fields_to_index:
  - [number, number]
  - [type, call_type]
data_type: calllog
resumable: true
index_folder: %s
`, source, filepath.Join(dir, "target"), filepath.Join(dir, "indices"))

	path := filepath.Join(dir, "import.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func TestImportCommand(t *testing.T) {
	t.Setenv("RAWIMPORT_INDEX_FOLDER", "")
	dir := t.TempDir()
	cfg := writeImportConfig(t, dir)

	execute(t, "import", "-c", cfg)
	assert.FileExists(t, filepath.Join(dir, "target", "april_2014.json"))
	assert.FileExists(t, filepath.Join(dir, "target", "may_2014.json"))

	assert.Equal(t, "3", execute(t, "checkpoint", "-c", cfg))

	indices := filepath.Join(dir, "indices")
	assert.Equal(t, "1", execute(t, "index", "get", "number", "555", "--folder", indices))
	assert.Equal(t, "2", execute(t, "index", "get", "call_type", "incoming", "--folder", indices))
	assert.Equal(t, "-1", execute(t, "index", "get", "number", "999", "--folder", indices))
	assert.Equal(t, "call_type\t2\nnumber\t2", execute(t, "index", "list", "--folder", indices))

	// second run finds nothing new
	execute(t, "import", "-c", cfg)
	assert.Equal(t, "3", execute(t, "checkpoint", "-c", cfg))
}

func TestImportCommandDryRun(t *testing.T) {
	t.Setenv("RAWIMPORT_INDEX_FOLDER", "")
	dir := t.TempDir()
	cfg := writeImportConfig(t, dir)

	execute(t, "import", "-c", cfg, "--dry-run")
	assert.NoDirExists(t, filepath.Join(dir, "indices"))
	assert.Equal(t, "0", execute(t, "checkpoint", "-c", cfg))
}

func TestIndexFolderPrecedence(t *testing.T) {
	assert.Equal(t, "flag", indexFolder("flag", nil, nil))
	assert.Equal(t, "indices", indexFolder("", nil, nil))
}
