package export

import (
	"encoding/json"
	"fmt"
)

// JSONExporter renders Dataset records into an indented JSON array. Column
// order follows the header list so consumers see stable key ordering per row.
type JSONExporter struct{}

// NewJSONExporter builds a JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

// Render produces JSON encoded bytes for the dataset.
func (e *JSONExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("json export requires at least one header")
	}
	rows := make([]map[string]string, 0, len(data.Rows))
	for _, row := range data.Rows {
		record := make(map[string]string, len(data.Headers))
		for _, header := range data.Headers {
			record[header] = row[header]
		}
		rows = append(rows, record)
	}
	payload, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json export: %w", err)
	}
	return payload, nil
}
