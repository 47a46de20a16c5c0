package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BartekS5/rawimport/pkg/models"
	"github.com/goccy/go-json"
)

// ReferenceFiles loads lookup tables from JSON files.
type ReferenceFiles struct {
	PhoneBookPath       string
	DeviceInventoryPath string
}

func NewReferenceFiles(refs models.References) ReferenceFiles {
	r := ReferenceFiles{
		PhoneBookPath:       refs.PhoneBook,
		DeviceInventoryPath: refs.DeviceInventory,
	}
	if r.PhoneBookPath == "" {
		r.PhoneBookPath = "phone_book"
	}
	if r.DeviceInventoryPath == "" {
		r.DeviceInventoryPath = "device_inventory"
	}
	return r
}

// PhoneBook reads a {"number": canonical} object.
func (r ReferenceFiles) PhoneBook() (models.PhoneBook, error) {
	var book models.PhoneBook
	if err := readJSONFile(r.PhoneBookPath, &book); err != nil {
		return nil, err
	}
	return book, nil
}

// DeviceInventory reads a {"device": [{"user", "start", "end"}]} object.
func (r ReferenceFiles) DeviceInventory() (models.DeviceInventory, error) {
	var inv models.DeviceInventory
	if err := readJSONFile(r.DeviceInventoryPath, &inv); err != nil {
		return nil, err
	}
	for device, owners := range inv {
		for _, o := range owners {
			if o.End < o.Start {
				return nil, fmt.Errorf("device %s: ownership of user %d ends before it starts", device, o.User)
			}
		}
	}
	return inv, nil
}

func readJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read reference file '%s': %w", path, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to parse reference file '%s': %w", path, err)
	}
	return nil
}
