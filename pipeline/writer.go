package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
)

// NewWriter opens the writer for format: "csv", "json", or "dual". Dual
// output writes the CSV to path and the JSON document next to it with a
// .json extension.
func NewWriter(format, path string) (OutputWriter, error) {
	switch format {
	case "csv":
		return NewCSVWriter(path)
	case "json":
		return NewJSONWriter(path)
	case "dual":
		csvWriter, err := NewCSVWriter(path)
		if err != nil {
			return nil, err
		}
		jsonWriter, err := NewJSONWriter(strings.TrimSuffix(path, filepath.Ext(path)) + ".json")
		if err != nil {
			csvWriter.Close()
			return nil, err
		}
		return MultiWriter{csvWriter, jsonWriter}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}
