// Package snapshot decodes serialized UI trees and exposes them as capture.Node.
//
// A document is a nested object:
//
//	source: com.foo
//	children:
//	  - text: Hello
//	    id: com.foo:id/title
//	  - gone: true
//
// A node without a source inherits its parent's. A node marked gone is
// reported as vanished when its parent tries to acquire it.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Doc is one node of a serialized snapshot.
type Doc struct {
	Text     *string `json:"text,omitempty" yaml:"text,omitempty"`
	ID       *string `json:"id,omitempty" yaml:"id,omitempty"`
	Source   *string `json:"source,omitempty" yaml:"source,omitempty"`
	Gone     bool    `json:"gone,omitempty" yaml:"gone,omitempty"`
	Children []*Doc  `json:"children,omitempty" yaml:"children,omitempty"`
}

// FormatForPath picks a format from a file extension. Unknown extensions are JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Decode parses data as a snapshot document.
func Decode(data []byte, format Format) (*Doc, error) {
	doc := &Doc{}
	var err error
	switch format {
	case FormatJSON, "":
		err = json.Unmarshal(data, doc)
	case FormatYAML:
		err = yaml.Unmarshal(data, doc)
	default:
		return nil, fmt.Errorf("unknown snapshot format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s snapshot: %w", format, err)
	}
	inheritSource(doc, nil)
	return doc, nil
}

// ReadFile reads and decodes the snapshot at path.
func ReadFile(path string) (*Doc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data, FormatForPath(path))
}

// inheritSource fills missing sources from the nearest ancestor.
func inheritSource(d *Doc, parent *string) {
	if d == nil {
		return
	}
	if d.Source == nil {
		d.Source = parent
	}
	for _, c := range d.Children {
		inheritSource(c, d.Source)
	}
}
