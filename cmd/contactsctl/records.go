package main

import (
	"contacts-backend/internal/contact"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// readRecords parses an import file. Format is "csv" or "json"; an empty
// format is taken from name's extension.
func readRecords(r io.Reader, name, format string) ([]contact.Fields, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	}
	switch format {
	case "csv":
		return readCSV(r)
	case "json":
		var records []contact.Fields
		if err := json.NewDecoder(r).Decode(&records); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return records, nil
	}
	return nil, fmt.Errorf("unsupported import format %q, want csv or json", format)
}

// readCSV reads a header row followed by one contact per row. Empty cells
// are left out of the record.
func readCSV(r io.Reader) ([]contact.Fields, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, key := range header {
		header[i] = strings.TrimSpace(key)
		if err := contact.ValidateKey(header[i]); err != nil {
			return nil, fmt.Errorf("csv column %d: %w", i+1, err)
		}
	}

	var records []contact.Fields
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		fields := contact.NewFields()
		for i, cell := range row {
			if cell == "" {
				continue
			}
			fields.Set(header[i], contact.String(cell))
		}
		if fields.Len() > 0 {
			records = append(records, fields)
		}
	}
}

// parseAssignments turns "key=value" arguments into fields.
func parseAssignments(list []string) (contact.Fields, error) {
	fields := contact.NewFields()
	for _, a := range list {
		key, value, ok := strings.Cut(a, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return fields, fmt.Errorf("invalid assignment %q, want key=value", a)
		}
		fields.Set(key, contact.String(value))
	}
	return fields, nil
}
