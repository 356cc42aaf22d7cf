package transfer

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/tidwall/gjson"
)

// Version is written to every combined export.
const Version = "2.0"

// Exporter renders one collection as a JSON document.
type Exporter interface {
	ExportData() (string, error)
}

// Importer replaces one collection from a JSON document.
type Importer interface {
	ImportData(blob string) error
}

// Envelope is the combined export file.
type Envelope struct {
	Expenses   json.RawMessage `json:"expenses"`
	Income     json.RawMessage `json:"income"`
	Lending    json.RawMessage `json:"lending"`
	ExportDate string          `json:"exportDate"`
	Version    string          `json:"version"`
}

// Export builds a combined export of the three collections stamped with now.
func Export(expenses, income, lending Exporter, now time.Time) (string, error) {
	env := Envelope{
		ExportDate: now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Version:    Version,
	}

	parts := []struct {
		name string
		src  Exporter
		dst  *json.RawMessage
	}{
		{"expenses", expenses, &env.Expenses},
		{"income", income, &env.Income},
		{"lending", lending, &env.Lending},
	}
	for _, p := range parts {
		blob, err := p.src.ExportData()
		if err != nil {
			return "", fmt.Errorf("export %s: %w", p.name, err)
		}
		*p.dst = json.RawMessage(blob)
	}

	return Encode(env)
}

// IsEnvelope reports whether blob is a combined export: a version plus all
// three collection keys.
func IsEnvelope(blob string) bool {
	res := gjson.GetMany(blob, "version", "expenses", "income", "lending")
	for _, r := range res {
		if !r.Exists() {
			return false
		}
	}
	return true
}

// Import restores a combined export, or treats any other blob as a legacy
// expense-only export.
//
// Collections are imported in the order expenses, income, lending. The first
// failure stops the import; collections imported before it stay replaced.
func Import(blob string, expenses, income, lending Importer) error {
	if !gjson.Valid(blob) || !IsEnvelope(blob) {
		return expenses.ImportData(blob)
	}

	parts := []struct {
		key string
		dst Importer
	}{
		{"expenses", expenses},
		{"income", income},
		{"lending", lending},
	}
	for _, p := range parts {
		if err := p.dst.ImportData(gjson.Get(blob, p.key).Raw); err != nil {
			return err
		}
	}
	return nil
}

// ImportReader reads the whole of r before importing it.
func ImportReader(r io.Reader, expenses, income, lending Importer) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read import: %w", err)
	}
	return Import(string(b), expenses, income, lending)
}
