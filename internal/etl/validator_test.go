package etl

import (
	"testing"

	"github.com/BartekS5/rawimport/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator(t *testing.T) {
	v, err := NewValidator("bluetooth")
	require.NoError(t, err)

	assert.NoError(t, v.ValidateRecord(models.Record{"user": int64(1), "timestamp": int64(2), "bt_mac": models.UnmappedUser}))

	err = v.ValidateRecord(models.Record{"user": int64(1), "bt_mac": nil})
	assert.ErrorIs(t, err, ErrInvalidRecord)
	assert.Contains(t, err.Error(), "timestamp, bt_mac")

	_, err = NewValidator("telepathy")
	assert.Error(t, err)
}
