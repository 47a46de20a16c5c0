package models

import "sort"

// Record is one row moving through the importer. Values are scalars:
// int64, float64, string, bool or time.Time.
type Record map[string]interface{}

// Get reports the value of field and whether the field is present at all.
// A present field may still hold a sentinel such as UnmappedUser.
func (r Record) Get(field string) (interface{}, bool) {
	v, ok := r[field]
	return v, ok
}

// Clone returns a shallow copy; scalar values make it independent.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Fields returns the field names in sorted order.
func (r Record) Fields() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// UnmappedUser marks a device that could not be attributed to a user.
// Valid user ids are never negative.
const UnmappedUser int64 = -1

// Ownership is one interval during which user held a device. Bounds are
// Unix seconds, both inclusive.
type Ownership struct {
	User  int64 `json:"user"`
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// DeviceInventory maps a device id (e.g. a bluetooth MAC) to its owners.
type DeviceInventory map[string][]Ownership

// PhoneBook maps a raw phone number to its canonical identity.
type PhoneBook map[string]interface{}
