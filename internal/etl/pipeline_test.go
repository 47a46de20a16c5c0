package etl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/BartekS5/rawimport/pkg/models"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dir     string
	source  *JSONStore
	target  *JSONStore
	indexer *Indexer
}

func writeSourceFile(t *testing.T, dir string, rows []map[string]interface{}) string {
	t.Helper()
	data, err := json.Marshal(rows)
	require.NoError(t, err)
	path := filepath.Join(dir, "source.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// newFixture wires a JSON source file to a JSON target directory. The same
// dir can be reused to simulate a later run.
func newFixture(t *testing.T, dir string, rows []map[string]interface{}, specs []models.FieldIndexSpec) *fixture {
	t.Helper()
	src, err := NewJSONStore(models.AdapterConfig{DBType: "json", Table: "raw", SourceFile: writeSourceFile(t, dir, rows)}, 0)
	require.NoError(t, err)
	tgt, err := NewJSONStore(models.AdapterConfig{DBType: "json", Database: filepath.Join(dir, "target"), Table: "calllog"}, 0)
	require.NoError(t, err)
	ix := NewIndexer(filepath.Join(dir, "indices"), specs)
	require.NoError(t, ix.Load())
	return &fixture{dir: dir, source: src, target: tgt, indexer: ix}
}

func callRows() []map[string]interface{} {
	return []map[string]interface{}{
		{"id": 1, "user": 1, "timestamp": 1396310400, "number": "+4511111111", "duration": 10, "type": "outgoing"},
		{"id": 2, "user": 1, "timestamp": 1396310500, "number": "+4522222222", "duration": 20, "type": "incoming"},
		{"id": 3, "user": 2, "timestamp": 1396310600, "number": "+4511111111", "duration": 30, "type": "outgoing"},
		{"id": 4, "user": 2, "timestamp": 1396310700, "number": "+4533333333", "type": "missed"},
	}
}

func TestImporterCallLog(t *testing.T) {
	specs := []models.FieldIndexSpec{{Field: "number", Index: "number"}, {Field: "type", Index: "call_type"}}
	f := newFixture(t, t.TempDir(), callRows(), specs)

	im := NewImporter(f.source, f.target, f.indexer)
	im.Mapper = NewPhoneNumberMapper(models.PhoneBook{"+4522222222": "+4511111111"}, "number")
	v, err := NewValidator("calllog")
	require.NoError(t, err)
	im.Validator = v

	require.NoError(t, im.Run(context.Background()))
	assert.Equal(t, Stats{Read: 4, Written: 3, Invalid: 1}, im.Stats)

	rows, err := f.target.Partition("calllog")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, int64(1), rows[0]["number"])
	assert.Equal(t, int64(1), rows[1]["number"], "phone book merges both numbers")
	assert.Equal(t, int64(1), rows[2]["number"])
	assert.Equal(t, int64(2), rows[1]["type"])

	reloaded := NewIndexer(filepath.Join(f.dir, "indices"), specs)
	require.NoError(t, reloaded.Load())
	n, ok := reloaded.Lookup("call_type", "incoming")
	assert.True(t, ok)
	assert.Equal(t, int64(2), n)
	_, ok = reloaded.Lookup("number", "+4533333333")
	assert.False(t, ok, "invalid rows never reach the indexer")
}

func TestImporterDryRun(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, dir, callRows(), []models.FieldIndexSpec{{Field: "number", Index: "number"}})

	im := NewImporter(f.source, f.target, f.indexer)
	im.DryRun = true
	require.NoError(t, im.Run(context.Background()))

	assert.Equal(t, 4, im.Stats.Written)
	assert.NoDirExists(t, filepath.Join(dir, "indices"))
	assert.NoFileExists(t, filepath.Join(dir, "target", "calllog.json"))
}

func TestImporterExpandsPackedRows(t *testing.T) {
	rec := accelerometerRecord()
	rows := []map[string]interface{}{rec, {"id": 10, "user": 3, "x": "bad"}}
	f := newFixture(t, t.TempDir(), rows, nil)

	im := NewImporter(f.source, f.target, f.indexer)
	im.Expanders = NewExpanderChain("packed_array")
	v, err := NewValidator("accelerometer")
	require.NoError(t, err)
	im.Validator = v

	require.NoError(t, im.Run(context.Background()))
	assert.Equal(t, Stats{Read: 2, Written: 3, Malformed: 1}, im.Stats)

	out, err := f.target.Partition("calllog")
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, int64(300), out[2]["event_timestamp"])
}

func TestImporterMapsBeforeEachExpansionDepth(t *testing.T) {
	rows := []map[string]interface{}{
		{"id": 1, "bt_mac": "AA:BB", "timestamp": 50, "x": packed("1,2"), "y": packed("1,2")},
	}
	f := newFixture(t, t.TempDir(), rows, nil)

	im := NewImporter(f.source, f.target, f.indexer)
	im.Mapper = NewDeviceInventoryMapper(inventory, "bt_mac", "timestamp")
	im.Expanders = []Expander{NewPackedArrayExpander("x", "y"), IdentityExpander{}}

	require.NoError(t, im.Run(context.Background()))
	out, err := f.target.Partition("calllog")
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, r := range out {
		assert.Equal(t, int64(1), r["bt_mac"], "mapping twice keeps the mapped user")
	}
}
