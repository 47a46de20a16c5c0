package models

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ImportConfig represents the root of an import config file.
type ImportConfig struct {
	SourceDB      AdapterConfig    `yaml:"source_db" json:"source_db"`
	TargetDB      AdapterConfig    `yaml:"target_db" json:"target_db"`
	FieldsToIndex []FieldIndexSpec `yaml:"fields_to_index" json:"fields_to_index"`
	Mapper        string           `yaml:"mapper,omitempty" json:"mapper,omitempty"`
	Expander      string           `yaml:"expander,omitempty" json:"expander,omitempty"`
	DataType      string           `yaml:"data_type,omitempty" json:"data_type,omitempty"`

	Resumable       bool   `yaml:"resumable" json:"resumable"`
	IDField         string `yaml:"id_field,omitempty" json:"id_field,omitempty"`
	TimestampField  string `yaml:"timestamp_field,omitempty" json:"timestamp_field,omitempty"`
	PartitionLayout string `yaml:"partition_layout,omitempty" json:"partition_layout,omitempty"`

	IndexFolder     string `yaml:"index_folder,omitempty" json:"index_folder,omitempty"`
	IndexStartValue int64  `yaml:"index_start_value,omitempty" json:"index_start_value,omitempty"`
	BatchSize       int    `yaml:"batch_size,omitempty" json:"batch_size,omitempty"`

	References References `yaml:"references" json:"references"`
}

// AdapterConfig describes one store endpoint.
type AdapterConfig struct {
	DBType      string   `yaml:"db_type" json:"db_type"`
	DSN         string   `yaml:"dsn,omitempty" json:"dsn,omitempty"`
	Hostname    string   `yaml:"hostname,omitempty" json:"hostname,omitempty"`
	Port        int      `yaml:"port,omitempty" json:"port,omitempty"`
	User        string   `yaml:"user,omitempty" json:"user,omitempty"`
	Password    string   `yaml:"password,omitempty" json:"password,omitempty"`
	Database    string   `yaml:"database" json:"database"`
	Table       string   `yaml:"table" json:"table"`
	QueryFields []string `yaml:"query_fields,omitempty" json:"query_fields,omitempty"`
	SourceFile  string   `yaml:"source_file,omitempty" json:"source_file,omitempty"`
}

// References points at the read-only lookup tables used by mappers.
type References struct {
	PhoneBook       string `yaml:"phone_book,omitempty" json:"phone_book,omitempty"`
	DeviceInventory string `yaml:"device_inventory,omitempty" json:"device_inventory,omitempty"`
	DeviceField     string `yaml:"device_field,omitempty" json:"device_field,omitempty"`
	NumberField     string `yaml:"number_field,omitempty" json:"number_field,omitempty"`
}

// FieldIndexSpec pairs a record field with the index that encodes it.
// In config files it is written either as [field, index] or {field:, index:}.
type FieldIndexSpec struct {
	Field string `yaml:"field" json:"field"`
	Index string `yaml:"index" json:"index"`
}

func (f *FieldIndexSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var pair []string
		if err := node.Decode(&pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("line %d: fields_to_index entry needs [field, index], got %d items", node.Line, len(pair))
		}
		f.Field, f.Index = pair[0], pair[1]
	case yaml.MappingNode:
		var m struct {
			Field string `yaml:"field"`
			Index string `yaml:"index"`
		}
		if err := node.Decode(&m); err != nil {
			return err
		}
		f.Field, f.Index = m.Field, m.Index
		if f.Index == "" {
			f.Index = f.Field
		}
	case yaml.ScalarNode:
		// bare field name indexes into an index of the same name
		f.Field, f.Index = node.Value, node.Value
	default:
		return fmt.Errorf("line %d: unsupported fields_to_index entry", node.Line)
	}
	if f.Field == "" {
		return fmt.Errorf("line %d: fields_to_index entry has empty field", node.Line)
	}
	return nil
}
