package utils

import (
	stdjson "encoding/json"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		in   interface{}
		want interface{}
	}{
		{nil, nil},
		{[]byte("555"), "555"},
		{int32(7), int64(7)},
		{uint8(3), int64(3)},
		{float32(1.5), float64(1.5)},
		{json.Number("12"), int64(12)},
		{stdjson.Number("1.25"), 1.25},
		{"x", "x"},
		{true, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeValue(tt.in), "%T %v", tt.in, tt.in)
	}

	ts := time.Date(2014, 4, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, ts, NormalizeValue(primitive.NewDateTimeFromTime(ts)))
}

func TestToInt64(t *testing.T) {
	for _, in := range []interface{}{42, int32(42), int64(42), 42.9, " 42 ", []byte("42"), json.Number("42"), uint16(42)} {
		n, err := ToInt64(in)
		require.NoError(t, err, "%T", in)
		assert.Equal(t, int64(42), n, "%T", in)
	}

	_, err := ToInt64("forty-two")
	assert.Error(t, err)
	_, err = ToInt64([]int{1})
	assert.Error(t, err)
}

func TestToTime(t *testing.T) {
	want := time.Date(2014, 4, 1, 12, 30, 0, 0, time.UTC)
	for _, in := range []interface{}{
		want,
		want.Unix(),
		int(want.Unix()),
		float64(want.Unix()),
		"2014-04-01T12:30:00Z",
		"2014-04-01 12:30:00",
		"1396355400",
		json.Number("1396355400"),
	} {
		got, err := ToTime(in)
		require.NoError(t, err, "%T %v", in, in)
		assert.True(t, want.Equal(got), "%T %v gave %v", in, in, got)
	}

	_, err := ToTime("yesterday")
	assert.Error(t, err)
	_, err = ToTime(map[string]int{})
	assert.Error(t, err)
}

func TestParseScalar(t *testing.T) {
	assert.Equal(t, int64(-3), ParseScalar(" -3 "))
	assert.Equal(t, 0.25, ParseScalar("0.25"))
	assert.Equal(t, "abc", ParseScalar("abc"))
}
