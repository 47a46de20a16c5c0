package etl

import (
	"fmt"
	"strings"

	"github.com/BartekS5/rawimport/pkg/models"
)

// Validator checks records against a data type before they are written.
type Validator struct {
	Type models.DataType
}

func NewValidator(dataType string) (*Validator, error) {
	dt, err := models.LookupDataType(dataType)
	if err != nil {
		return nil, err
	}
	return &Validator{Type: dt}, nil
}

// ValidateRecord reports the required fields rec is missing.
func (v *Validator) ValidateRecord(rec models.Record) error {
	if missing := v.Type.Missing(rec); len(missing) > 0 {
		return fmt.Errorf("%w: %s record missing %s", ErrInvalidRecord, v.Type.Name, strings.Join(missing, ", "))
	}
	return nil
}
