package etl

import (
	"fmt"
	"strings"

	"github.com/BartekS5/rawimport/pkg/logger"
	"github.com/BartekS5/rawimport/pkg/models"
	"github.com/BartekS5/rawimport/pkg/utils"
)

// MapperKind selects one of the built-in mappers.
type MapperKind string

const (
	MapperNone            MapperKind = ""
	MapperIdentity        MapperKind = "identity"
	MapperPhoneNumber     MapperKind = "phone_number"
	MapperDeviceInventory MapperKind = "device_inventory"
)

// ParseMapperKind accepts the config spelling, case-insensitively, plus the
// legacy class-style names.
func ParseMapperKind(s string) (MapperKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return MapperNone, nil
	case "identity":
		return MapperIdentity, nil
	case "phone_number", "phonenumbermapper":
		return MapperPhoneNumber, nil
	case "device_inventory", "bluetooth_mac", "bluetoothmacmapper":
		return MapperDeviceInventory, nil
	}
	return MapperNone, fmt.Errorf("unknown mapper %q", s)
}

// ReferenceSource loads the lookup tables mappers depend on.
type ReferenceSource interface {
	PhoneBook() (models.PhoneBook, error)
	DeviceInventory() (models.DeviceInventory, error)
}

// MapperOptions configures NewMapper.
type MapperOptions struct {
	References     ReferenceSource
	NumberField    string
	DeviceField    string
	TimestampField string
}

// NewMapper builds the mapper for kind. It returns nil for MapperNone. A
// mapper that cannot be built is replaced by the identity mapper with a
// warning, so the run continues without that stage.
func NewMapper(kind string, opts MapperOptions) Mapper {
	k, err := ParseMapperKind(kind)
	if err != nil {
		logger.Warnf("Mapper disabled: %v", err)
		return IdentityMapper{}
	}

	switch k {
	case MapperNone:
		return nil
	case MapperIdentity:
		return IdentityMapper{}
	case MapperPhoneNumber:
		if opts.References == nil {
			logger.Warnf("Mapper %s disabled: no reference tables configured", k)
			return IdentityMapper{}
		}
		book, err := opts.References.PhoneBook()
		if err != nil {
			logger.Warnf("Mapper %s disabled: %v", k, err)
			return IdentityMapper{}
		}
		return NewPhoneNumberMapper(book, opts.NumberField)
	case MapperDeviceInventory:
		if opts.References == nil {
			logger.Warnf("Mapper %s disabled: no reference tables configured", k)
			return IdentityMapper{}
		}
		inv, err := opts.References.DeviceInventory()
		if err != nil {
			logger.Warnf("Mapper %s disabled: %v", k, err)
			return IdentityMapper{}
		}
		return NewDeviceInventoryMapper(inv, opts.DeviceField, opts.TimestampField)
	}
	return IdentityMapper{}
}

type IdentityMapper struct{}

func (IdentityMapper) Map(rec models.Record) models.Record { return rec }
func (IdentityMapper) Commit() error                      { return nil }

// PhoneNumberMapper swaps a raw number for its phone-book identity.
type PhoneNumberMapper struct {
	Book  models.PhoneBook
	Field string
}

func NewPhoneNumberMapper(book models.PhoneBook, field string) *PhoneNumberMapper {
	if field == "" {
		field = "number"
	}
	return &PhoneNumberMapper{Book: book, Field: field}
}

func (m *PhoneNumberMapper) Map(rec models.Record) models.Record {
	v, ok := rec.Get(m.Field)
	if !ok {
		return rec
	}
	number, ok := v.(string)
	if !ok {
		return rec
	}
	if canonical, ok := m.Book[number]; ok && canonical != nil {
		rec[m.Field] = utils.NormalizeValue(canonical)
	}
	return rec
}

func (m *PhoneNumberMapper) Commit() error { return nil }

// DeviceInventoryMapper replaces a device id with the user that owned the
// device at the record's timestamp, or models.UnmappedUser.
type DeviceInventoryMapper struct {
	Inventory      models.DeviceInventory
	DeviceField    string
	TimestampField string
}

func NewDeviceInventoryMapper(inv models.DeviceInventory, deviceField, timestampField string) *DeviceInventoryMapper {
	if deviceField == "" {
		deviceField = "bt_mac"
	}
	if timestampField == "" {
		timestampField = "timestamp"
	}
	return &DeviceInventoryMapper{Inventory: inv, DeviceField: deviceField, TimestampField: timestampField}
}

func (m *DeviceInventoryMapper) Map(rec models.Record) models.Record {
	v, ok := rec.Get(m.DeviceField)
	if !ok {
		return rec
	}
	// already mapped
	device, ok := v.(string)
	if !ok {
		return rec
	}

	user := models.UnmappedUser
	if raw, ok := rec.Get(m.TimestampField); ok {
		if ts, err := utils.ToTime(raw); err == nil {
			user = m.UserAt(device, ts.Unix())
		}
	}
	rec[m.DeviceField] = user
	return rec
}

// UserAt returns the owner of device at unix, or models.UnmappedUser.
func (m *DeviceInventoryMapper) UserAt(device string, unix int64) int64 {
	for _, o := range m.Inventory[device] {
		if o.Start <= unix && unix <= o.End {
			return o.User
		}
	}
	return models.UnmappedUser
}

func (m *DeviceInventoryMapper) Commit() error { return nil }
