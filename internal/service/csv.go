package service

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"class-election/pkg/errors"
)

// csvRecord is one data row keyed by lowercased header name.
type csvRecord struct {
	Line   int
	Fields map[string]string
}

func (r csvRecord) get(column string) string {
	return strings.TrimSpace(r.Fields[column])
}

// readCSV reads a header row followed by data rows. Every required column
// must appear in the header. Line numbers start at 2, the first data row.
func readCSV(r io.Reader, required ...string) ([]csvRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if stderrors.Is(err, io.EOF) {
		return nil, errors.NewValidationError("CSV file is empty", nil)
	}
	if err != nil {
		return nil, errors.NewValidationError("Invalid CSV file", map[string]interface{}{"error": err.Error()})
	}

	columns := make([]string, len(header))
	present := make(map[string]bool, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		columns[i] = name
		present[name] = true
	}

	var missing []string
	for _, col := range required {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, errors.NewValidationError(
			fmt.Sprintf("CSV must have headers: %s", strings.Join(required, ", ")),
			map[string]interface{}{"missing": missing},
		)
	}

	var records []csvRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.NewValidationError("Invalid CSV file", map[string]interface{}{
				"line":  line,
				"error": err.Error(),
			})
		}
		if isBlankRow(row) {
			continue
		}
		fields := make(map[string]string, len(columns))
		for i, value := range row {
			if i < len(columns) {
				fields[columns[i]] = value
			}
		}
		records = append(records, csvRecord{Line: line, Fields: fields})
	}
	return records, nil
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
