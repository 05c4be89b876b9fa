package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the decoder from the file extension; anything that is not
// .yaml or .yml is treated as JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Document is the on-disk catalog shape.
type Document struct {
	Movies OrderedMap[RawEntry] `json:"movies" yaml:"movies"`
	Series OrderedMap[RawEntry] `json:"series" yaml:"series"`
}

type RawEntry struct {
	Title       string                 `json:"title" yaml:"title"`
	Type        string                 `json:"type,omitempty" yaml:"type,omitempty"`
	Poster      string                 `json:"poster" yaml:"poster"`
	VideoPath   *string                `json:"video_path,omitempty" yaml:"video_path,omitempty"`
	TrailerPath *string                `json:"trailer_path" yaml:"trailer_path"`
	Year        *int                   `json:"year" yaml:"year"`
	Description *string                `json:"description" yaml:"description"`
	Seasons     *OrderedMap[RawSeason] `json:"seasons,omitempty" yaml:"seasons,omitempty"`
}

type RawSeason struct {
	Episodes OrderedMap[RawEpisode] `json:"episodes" yaml:"episodes"`
}

type RawEpisode struct {
	Title     string `json:"title" yaml:"title"`
	VideoPath string `json:"video_path" yaml:"video_path"`
	Duration  string `json:"duration,omitempty" yaml:"duration,omitempty"`
}

var sections = []string{"movies", "series"}

// Decode parses a catalog document. Malformed syntax yields ErrDecode; a
// well-formed document without both top-level mappings yields
// ErrInvalidSchema.
func Decode(data []byte, format Format) (Document, error) {
	if format == FormatYAML {
		return decodeYAML(data)
	}
	return decodeJSON(data)
}

func decodeJSON(data []byte) (Document, error) {
	var doc Document
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return doc, fmt.Errorf("%w: top level must be an object", ErrInvalidSchema)
		}
		return doc, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if top == nil {
		return doc, fmt.Errorf("%w: top level must be an object", ErrInvalidSchema)
	}
	targets := map[string]*OrderedMap[RawEntry]{"movies": &doc.Movies, "series": &doc.Series}
	for _, key := range sections {
		raw, ok := top[key]
		if !ok {
			return Document{}, fmt.Errorf("%w: missing %q mapping", ErrInvalidSchema, key)
		}
		if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '{' {
			return Document{}, fmt.Errorf("%w: %q must be an object", ErrInvalidSchema, key)
		}
		if err := json.Unmarshal(raw, targets[key]); err != nil {
			return Document{}, fmt.Errorf("%w: %s: %v", ErrInvalidSchema, key, err)
		}
	}
	return doc, nil
}

func decodeYAML(data []byte) (Document, error) {
	var doc Document
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return doc, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return doc, fmt.Errorf("%w: empty document", ErrInvalidSchema)
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return doc, fmt.Errorf("%w: top level must be a mapping", ErrInvalidSchema)
	}
	targets := map[string]*OrderedMap[RawEntry]{"movies": &doc.Movies, "series": &doc.Series}
	for _, key := range sections {
		node := mappingValue(top, key)
		if node == nil {
			return Document{}, fmt.Errorf("%w: missing %q mapping", ErrInvalidSchema, key)
		}
		if node.Kind == yaml.AliasNode && node.Alias != nil {
			node = node.Alias
		}
		if node.Kind != yaml.MappingNode {
			return Document{}, fmt.Errorf("%w: %q must be a mapping", ErrInvalidSchema, key)
		}
		if err := node.Decode(targets[key]); err != nil {
			return Document{}, fmt.Errorf("%w: %s: %v", ErrInvalidSchema, key, err)
		}
	}
	return doc, nil
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// Encode writes a document in the given format with two-space indentation.
func Encode(doc Document, format Format) ([]byte, error) {
	if format == FormatYAML {
		return encodeYAML(doc)
	}
	raw, err := json.Marshal(struct {
		Movies OrderedMap[RawEntry] `json:"movies"`
		Series OrderedMap[RawEntry] `json:"series"`
	}{doc.Movies, doc.Series})
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// encodeYAML goes through JSON so the ordered mappings keep their order;
// JSON is valid YAML and yaml.v3 re-emits the node tree in block style.
func encodeYAML(doc Document) ([]byte, error) {
	raw, err := Encode(doc, FormatJSON)
	if err != nil {
		return nil, err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, err
	}
	clearStyle(&node)
	var out bytes.Buffer
	enc := yaml.NewEncoder(&out)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func clearStyle(node *yaml.Node) {
	node.Style = 0
	for _, child := range node.Content {
		clearStyle(child)
	}
}
