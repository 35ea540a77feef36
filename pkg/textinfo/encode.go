package textinfo

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// Output formats understood by Encode
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatText = "text"
)

// Encode writes the records in the requested format. JSON is a list of
// {uniqueID, text, frame:{x,y,width,height}}.
func Encode(w io.Writer, infos []TextInfo, format string) error {
	if infos == nil {
		infos = []TextInfo{}
	}

	switch strings.ToLower(format) {
	case "", FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(infos); err != nil {
			return err
		}
		return enc.Close()
	case FormatText:
		_, err := fmt.Fprintln(w, Texts(infos))
		return err
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// Decode reads a JSON list of records, as written by Encode
func Decode(r io.Reader) ([]TextInfo, error) {
	var infos []TextInfo
	if err := json.NewDecoder(r).Decode(&infos); err != nil {
		return nil, fmt.Errorf("failed to decode text records: %w", err)
	}
	return infos, nil
}
