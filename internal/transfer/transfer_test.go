package transfer

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCollection struct {
	blob     string
	imported []string
	err      error
}

func (f *fakeCollection) ExportData() (string, error) { return f.blob, f.err }

func (f *fakeCollection) ImportData(blob string) error {
	if f.err != nil {
		return f.err
	}
	f.imported = append(f.imported, blob)
	return nil
}

func TestExportEnvelope(t *testing.T) {
	exp := &fakeCollection{blob: `{"userId":"default","months":{}}`}
	inc := &fakeCollection{blob: `{"userId":"default","months":{"2024-01":{"month":"2024-01","amount":10}}}`}
	lend := &fakeCollection{blob: `{"userId":"default","lendings":[]}`}

	out, err := Export(exp, inc, lend, time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.FixedZone("IST", 19800)))
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.Equal(t, "2.0", env.Version)
	assert.Equal(t, "2024-01-01T21:34:05.006Z", env.ExportDate)
	assert.JSONEq(t, exp.blob, string(env.Expenses))
	assert.JSONEq(t, inc.blob, string(env.Income))
	assert.JSONEq(t, lend.blob, string(env.Lending))
	assert.True(t, IsEnvelope(out))
}

func TestExportPropagatesErrors(t *testing.T) {
	ok := &fakeCollection{blob: `{}`}
	bad := &fakeCollection{err: errors.New("boom")}

	_, err := Export(ok, bad, ok, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export income")
}

func TestImportRoutesEnvelope(t *testing.T) {
	exp, inc, lend := &fakeCollection{}, &fakeCollection{}, &fakeCollection{}
	blob := `{"expenses":{"months":{}},"income":{"months":{}},"lending":{"lendings":[]},"exportDate":"2024-01-01T00:00:00.000Z","version":"2.0"}`

	require.NoError(t, Import(blob, exp, inc, lend))

	require.Len(t, exp.imported, 1)
	assert.JSONEq(t, `{"months":{}}`, exp.imported[0])
	assert.JSONEq(t, `{"months":{}}`, inc.imported[0])
	assert.JSONEq(t, `{"lendings":[]}`, lend.imported[0])
}

func TestImportLegacyBlob(t *testing.T) {
	exp, inc, lend := &fakeCollection{}, &fakeCollection{}, &fakeCollection{}

	// Missing version: the whole document goes to the expense importer.
	legacy := `{"expenses":{},"income":{},"lending":{},"userId":"default","months":{}}`
	require.NoError(t, Import(legacy, exp, inc, lend))

	assert.Equal(t, []string{legacy}, exp.imported)
	assert.Empty(t, inc.imported)
	assert.Empty(t, lend.imported)
}

func TestImportInvalidJSONGoesToExpenses(t *testing.T) {
	exp := &fakeCollection{err: &ImportError{Entity: "expenses", Err: errors.New("bad")}}

	err := Import("{nope", exp, &fakeCollection{}, &fakeCollection{})
	assert.ErrorIs(t, err, ErrInvalidImport)
}

func TestImportStopsAtFirstFailureWithoutRollback(t *testing.T) {
	exp := &fakeCollection{}
	inc := &fakeCollection{err: errors.New("income rejected")}
	lend := &fakeCollection{}
	blob := `{"expenses":{"months":{}},"income":{},"lending":{"lendings":[]},"version":"2.0"}`

	err := Import(blob, exp, inc, lend)
	require.EqualError(t, err, "income rejected")

	assert.Len(t, exp.imported, 1, "earlier import stays applied")
	assert.Empty(t, lend.imported, "later import never runs")
}

func TestImportReader(t *testing.T) {
	exp := &fakeCollection{}
	require.NoError(t, ImportReader(strings.NewReader(`{"months":{}}`), exp, &fakeCollection{}, &fakeCollection{}))
	assert.Equal(t, []string{`{"months":{}}`}, exp.imported)
}

func TestDecode(t *testing.T) {
	var v struct {
		Months map[string]any `json:"months"`
	}
	require.NoError(t, Decode("expenses", "months", `{"months":{}}`, &v))

	err := Decode("expenses", "months", `{"userId":"x"}`, &v)
	var importErr *ImportError
	require.True(t, errors.As(err, &importErr))
	assert.Equal(t, "expenses", importErr.Entity)
	assert.Contains(t, err.Error(), `missing "months"`)

	err = Decode("expenses", "months", `{"months":`, &v)
	var syntaxErr *json.SyntaxError
	assert.True(t, errors.As(err, &syntaxErr) || errors.Is(err, ErrInvalidImport))
}
