package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

// StringArray is a custom type for handling TEXT[] arrays in PostgreSQL
type StringArray []string

// Value implements the driver.Valuer interface
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "{}", nil
	}
	return pq.Array([]string(a)).Value()
}

// Scan implements the sql.Scanner interface
func (a *StringArray) Scan(src interface{}) error {
	if src == nil {
		*a = StringArray{}
		return nil
	}
	slice := (*[]string)(a)
	return pq.Array(slice).Scan(src)
}

// scanJSON decodes a JSONB column into dest
func scanJSON(src interface{}, dest interface{}, name string) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("type assertion to []byte failed for %s", name)
	}
}

// LocalizedText maps a locale code (en, fr, es...) to text
type LocalizedText map[string]string

func (t LocalizedText) Value() (driver.Value, error) {
	if t == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(t)
}

func (t *LocalizedText) Scan(src interface{}) error {
	return scanJSON(src, t, "LocalizedText")
}

// Get returns the text for locale, falling back to English and then to any locale
func (t LocalizedText) Get(locale string) string {
	if v, ok := t[locale]; ok && v != "" {
		return v
	}
	if v, ok := t["en"]; ok && v != "" {
		return v
	}
	for _, v := range t {
		if v != "" {
			return v
		}
	}
	return ""
}

// LocalizedList maps a locale code to a list of entries
type LocalizedList map[string][]string

func (l LocalizedList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(l)
}

func (l *LocalizedList) Scan(src interface{}) error {
	return scanJSON(src, l, "LocalizedList")
}
