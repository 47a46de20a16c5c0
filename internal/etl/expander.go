package etl

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/BartekS5/rawimport/pkg/logger"
	"github.com/BartekS5/rawimport/pkg/models"
	"github.com/BartekS5/rawimport/pkg/utils"
)

// ExpanderKind selects one of the built-in expanders.
type ExpanderKind string

const (
	ExpanderNone        ExpanderKind = ""
	ExpanderIdentity    ExpanderKind = "identity"
	ExpanderPackedArray ExpanderKind = "packed_array"
)

func ParseExpanderKind(s string) (ExpanderKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ExpanderNone, nil
	case "identity":
		return ExpanderIdentity, nil
	case "packed_array", "base64", "accelerometer":
		return ExpanderPackedArray, nil
	}
	return ExpanderNone, fmt.Errorf("unknown expander %q", s)
}

// NewExpanderChain builds the expanders applied at successive recursion
// depths. Unknown names are skipped with a warning.
func NewExpanderChain(names ...string) []Expander {
	var chain []Expander
	for _, name := range names {
		k, err := ParseExpanderKind(name)
		if err != nil {
			logger.Warnf("Expander disabled: %v", err)
			continue
		}
		switch k {
		case ExpanderIdentity:
			chain = append(chain, IdentityExpander{})
		case ExpanderPackedArray:
			chain = append(chain, NewPackedArrayExpander())
		}
	}
	return chain
}

type IdentityExpander struct{}

func (IdentityExpander) Expand(rec models.Record) ([]models.Record, error) {
	return []models.Record{rec}, nil
}

// DefaultPackedFields are the accelerometer arrays packed into one row.
var DefaultPackedFields = []string{"x", "y", "z", "event_timestamp", "accuracy"}

// PackedArrayExpander unpacks parallel base64-encoded, comma-separated
// arrays into one row per position. Every other field is copied to each row.
type PackedArrayExpander struct {
	Fields []string
}

func NewPackedArrayExpander(fields ...string) *PackedArrayExpander {
	if len(fields) == 0 {
		fields = DefaultPackedFields
	}
	return &PackedArrayExpander{Fields: fields}
}

func (e *PackedArrayExpander) Expand(rec models.Record) ([]models.Record, error) {
	arrays := make(map[string][]string, len(e.Fields))
	n := -1
	for _, f := range e.Fields {
		items, err := decodePacked(rec, f)
		if err != nil {
			return nil, err
		}
		if n >= 0 && len(items) != n {
			return nil, fmt.Errorf("%w: %s has %d items, expected %d", ErrMalformedPackedField, f, len(items), n)
		}
		n = len(items)
		arrays[f] = items
	}

	shared := rec.Clone()
	for _, f := range e.Fields {
		delete(shared, f)
	}

	out := make([]models.Record, 0, n)
	for i := 0; i < n; i++ {
		row := shared.Clone()
		for f, items := range arrays {
			row[f] = utils.ParseScalar(items[i])
		}
		out = append(out, row)
	}
	return out, nil
}

func decodePacked(rec models.Record, field string) ([]string, error) {
	v, ok := rec.Get(field)
	if !ok {
		return nil, fmt.Errorf("%w: %s missing", ErrMalformedPackedField, field)
	}
	encoded, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T, not a packed string", ErrMalformedPackedField, field, v)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedPackedField, field, err)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, ","), nil
}
