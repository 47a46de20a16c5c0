package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BartekS5/rawimport/pkg/models"
	"gopkg.in/yaml.v3"
)

// LoadImportConfig reads an import definition. JSON files parse as YAML.
func LoadImportConfig(filePath string) (*models.ImportConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", filePath, err)
	}
	cfg, err := ParseImportConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", filePath, err)
	}
	return cfg, nil
}

// ParseImportConfig expands ${VAR} references, decodes and validates data.
func ParseImportConfig(data []byte) (*models.ImportConfig, error) {
	var cfg models.ImportConfig
	if err := yaml.Unmarshal([]byte(expandEnv(string(data))), &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *models.ImportConfig) {
	if cfg.IDField == "" {
		cfg.IDField = "id"
	}
	if cfg.TimestampField == "" {
		cfg.TimestampField = "timestamp"
	}
	if cfg.References.DeviceField == "" {
		cfg.References.DeviceField = "bt_mac"
	}
	if cfg.References.NumberField == "" {
		cfg.References.NumberField = "number"
	}
}

func validate(cfg *models.ImportConfig) error {
	var errs []error
	if cfg.SourceDB.DBType == "" {
		errs = append(errs, errors.New("source_db.db_type is required"))
	}
	if cfg.TargetDB.DBType == "" {
		errs = append(errs, errors.New("target_db.db_type is required"))
	}
	if cfg.DataType != "" {
		if _, err := models.LookupDataType(cfg.DataType); err != nil {
			errs = append(errs, err)
		}
	}
	if cfg.Resumable && cfg.TargetDB.DBType == "csv" {
		errs = append(errs, errors.New("resumable imports need a queryable target, csv is write-only"))
	}
	if cfg.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("batch_size must not be negative, got %d", cfg.BatchSize))
	}
	return errors.Join(errs...)
}
