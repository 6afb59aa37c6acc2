// Package highlights loads highlight documents: a source video plus the
// intervals worth watching, as produced by an upstream selector.
package highlights

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/tessro/reel/internal/core"
)

// Document is a highlight document.
type Document struct {
	Video      string                   `json:"video" yaml:"video" toml:"video"`
	Title      string                   `json:"title,omitempty" yaml:"title,omitempty" toml:"title,omitempty"`
	Highlights []core.HighlightInterval `json:"highlights" yaml:"highlights" toml:"highlights"`
}

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// DetectFormat picks an encoding from the file name, then the content
// type, then the first significant byte of the data.
func DetectFormat(name, contentType string, data []byte) Format {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	}

	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return FormatJSON
	case strings.Contains(ct, "yaml"):
		return FormatYAML
	case strings.Contains(ct, "toml"):
		return FormatTOML
	}

	trimmed := bytes.TrimSpace(data)
	if bytes.Contains(trimmed, []byte("[[highlights]]")) {
		return FormatTOML
	}
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return FormatJSON
	}
	return FormatYAML
}

// Parse decodes data in the given format. A bare JSON or YAML list of
// intervals is accepted as a document without a video.
func Parse(data []byte, f Format) (*Document, error) {
	var doc Document

	switch f {
	case FormatJSON:
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &doc.Highlights); err != nil {
				return nil, fmt.Errorf("parse json: %w", err)
			}
			return &doc, nil
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}

	case FormatYAML:
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		if len(node.Content) == 0 {
			return &doc, nil
		}
		if node.Content[0].Kind == yaml.SequenceNode {
			if err := node.Content[0].Decode(&doc.Highlights); err != nil {
				return nil, fmt.Errorf("parse yaml: %w", err)
			}
			return &doc, nil
		}
		if err := node.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}

	case FormatTOML:
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}

	default:
		return nil, fmt.Errorf("unknown format %q", f)
	}

	return &doc, nil
}
