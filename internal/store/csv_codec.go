package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
)

// EncodeCSV serializes records with a header row. Columns are the union of
// all record keys, "id" first and the rest sorted. An empty collection
// encodes to the empty string.
func EncodeCSV(recs []Record) (string, error) {
	if len(recs) == 0 {
		return "", nil
	}

	columns := columnsOf(recs)

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(columns); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(columns))
	for _, r := range recs {
		for i, col := range columns {
			row[i] = r[col]
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return sb.String(), nil
}

// DecodeCSV parses text produced by EncodeCSV (or any CSV with a header
// row). Blank rows are skipped; short rows leave trailing columns empty.
func DecodeCSV(text string) ([]Record, error) {
	if strings.TrimSpace(text) == "" {
		return []Record{}, nil
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	recs := make([]Record, 0)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if blank(row) {
			continue
		}

		rec := make(Record, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = ""
			}
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func columnsOf(recs []Record) []string {
	seen := make(map[string]struct{})
	for _, r := range recs {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	delete(seen, IDColumn)

	cols := make([]string, 0, len(seen)+1)
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return append([]string{IDColumn}, cols...)
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
