package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRecordsCSV(t *testing.T) {
	in := "email, name,country\na@example.com,Ann,US\nb@example.com,,CA\n"

	records, err := readRecords(strings.NewReader(in), "contacts.CSV", "")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, []string{"email", "name", "country"}, records[0].Keys())
	assert.Equal(t, []string{"email", "country"}, records[1].Keys(), "empty cells are left out")
	name, ok := records[0].Get("name")
	require.True(t, ok)
	assert.Equal(t, "Ann", name.Text())
}

func TestReadRecordsCSVErrors(t *testing.T) {
	_, err := readRecords(strings.NewReader("meeting:time\n12:30\n"), "in.csv", "")
	assert.Error(t, err, "header keys may not contain ':'")

	_, err = readRecords(strings.NewReader("email,name\na@example.com\n"), "in.csv", "")
	assert.Error(t, err, "short row")

	records, err := readRecords(strings.NewReader(""), "in.csv", "")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadRecordsJSON(t *testing.T) {
	in := `[{"email":"a@example.com","age":30},{"email":"b@example.com"}]`

	records, err := readRecords(strings.NewReader(in), "export.txt", "json")
	require.NoError(t, err)
	require.Len(t, records, 2)
	age, ok := records[0].Get("age")
	require.True(t, ok)
	assert.Equal(t, "30", age.Text())
}

func TestReadRecordsUnknownFormat(t *testing.T) {
	_, err := readRecords(strings.NewReader(""), "contacts.xlsx", "")
	assert.Error(t, err)
}

func TestParseAssignments(t *testing.T) {
	fields, err := parseAssignments([]string{"email=a@example.com", "note=a=b", "blank="})
	require.NoError(t, err)
	assert.Equal(t, []string{"email", "note", "blank"}, fields.Keys())
	note, _ := fields.Get("note")
	assert.Equal(t, "a=b", note.Text())

	for _, bad := range []string{"email", "=x", " =x"} {
		_, err := parseAssignments([]string{bad})
		assert.Error(t, err, bad)
	}
}
