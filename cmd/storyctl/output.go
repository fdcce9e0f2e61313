package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// outputFormat values accepted by -o.
const (
	formatYAML = "yaml"
	formatJSON = "json"
)

var activeFormat = formatYAML

func setOutputFormat(format string) error {
	switch format {
	case formatYAML, formatJSON:
		activeFormat = format
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want yaml or json)", format)
	}
}

// output writes data to stdout in the selected format.
func output(data any) error {
	return outputTo(os.Stdout, activeFormat, data)
}

func outputTo(w io.Writer, format string, data any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// decodeJSON turns stored JSON into plain values so YAML output shows
// fields instead of a byte dump.
func decodeJSON(raw []byte) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}
