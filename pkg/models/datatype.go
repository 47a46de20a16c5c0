package models

import (
	"fmt"
	"sort"
)

// DataType describes the fields a record of a given kind must carry once
// it reaches the target store.
type DataType struct {
	Name     string
	Required []string
}

var dataTypes = map[string]DataType{
	"calllog": {
		Name:     "calllog",
		Required: []string{"user", "timestamp", "number", "duration", "type"},
	},
	"sms": {
		Name:     "sms",
		Required: []string{"user", "timestamp", "number", "type"},
	},
	"bluetooth": {
		Name:     "bluetooth",
		Required: []string{"user", "timestamp", "bt_mac"},
	},
	"location": {
		Name:     "location",
		Required: []string{"user", "timestamp", "lat", "lon"},
	},
	"wifi": {
		Name:     "wifi",
		Required: []string{"user", "timestamp", "bssid"},
	},
	"accelerometer": {
		Name:     "accelerometer",
		Required: []string{"user", "x", "y", "z", "event_timestamp"},
	},
}

// LookupDataType returns the schema registered under name.
func LookupDataType(name string) (DataType, error) {
	dt, ok := dataTypes[name]
	if !ok {
		return DataType{}, fmt.Errorf("unknown data type %q (known: %v)", name, DataTypeNames())
	}
	return dt, nil
}

// DataTypeNames lists every registered data type.
func DataTypeNames() []string {
	names := make([]string, 0, len(dataTypes))
	for n := range dataTypes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Missing returns the required fields absent from r.
func (d DataType) Missing(r Record) []string {
	var missing []string
	for _, f := range d.Required {
		if v, ok := r.Get(f); !ok || v == nil {
			missing = append(missing, f)
		}
	}
	return missing
}
