package value

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DirectiveTags are the Home Assistant YAML extensions that decode to a
// "!tag value" placeholder string instead of being resolved. Includes are
// never followed and secrets are never read.
var DirectiveTags = map[string]bool{
	"!include":                 true,
	"!include_dir_named":       true,
	"!include_dir_merge_named": true,
	"!include_dir_merge_list":  true,
	"!include_dir_list":        true,
	"!input":                   true,
	"!secret":                  true,
}

// maxAliasDepth bounds how deeply aliases may refer through one another.
const maxAliasDepth = 64

// maxNodes bounds the size of one decoded document after aliases are
// expanded. Each alias is copied in full, so nested anchors can grow a
// small file exponentially.
const maxNodes = 1 << 20

// ErrTooLarge is returned when a document expands past maxNodes.
var ErrTooLarge = errors.New("document expands to too many nodes")

// ErrMultipleDocuments is returned for a stream with more than one
// document.
var ErrMultipleDocuments = errors.New("expected a single document in the stream")

// Parse decodes a single YAML document. An empty document (no content,
// or only comments) yields a nil Value and no error.
func Parse(data []byte) (Value, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}

	var extra yaml.Node
	switch err := dec.Decode(&extra); {
	case errors.Is(err, io.EOF):
	case err != nil:
		return nil, err
	default:
		return nil, fmt.Errorf("line %d: %w", extra.Line, ErrMultipleDocuments)
	}

	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}
	var c converter
	return c.convert(doc.Content[0], 0)
}

// ParseFile reads and decodes path.
func ParseFile(path string) (Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// converter turns a yaml.Node tree into a Value, counting the nodes it
// produces.
type converter struct {
	nodes int
}

func (c *converter) convert(n *yaml.Node, depth int) (Value, error) {
	if depth > maxAliasDepth {
		return nil, fmt.Errorf("line %d: alias nesting too deep", n.Line)
	}
	c.nodes++
	if c.nodes > maxNodes {
		return nil, fmt.Errorf("line %d: %w (limit %d)", n.Line, ErrTooLarge, maxNodes)
	}

	if isLocalTag(n.Tag) {
		if !DirectiveTags[n.Tag] {
			return nil, fmt.Errorf("line %d: unknown tag %s", n.Line, n.Tag)
		}
		if n.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: %s expects a scalar", n.Line, n.Tag)
		}
		return String(n.Tag + " " + n.Value), nil
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null{}, nil
		}
		return c.convert(n.Content[0], depth)

	case yaml.AliasNode:
		if n.Alias == nil {
			return nil, fmt.Errorf("line %d: unresolved alias", n.Line)
		}
		return c.convert(n.Alias, depth+1)

	case yaml.SequenceNode:
		seq := make(Sequence, 0, len(n.Content))
		for _, child := range n.Content {
			v, err := c.convert(child, depth)
			if err != nil {
				return nil, err
			}
			seq = append(seq, v)
		}
		return seq, nil

	case yaml.MappingNode:
		return c.convertMapping(n, depth)

	case yaml.ScalarNode:
		return convertScalar(n)
	}

	return nil, fmt.Errorf("line %d: unsupported node kind %d", n.Line, n.Kind)
}

func (c *converter) convertMapping(n *yaml.Node, depth int) (Value, error) {
	m := make(Mapping, 0, len(n.Content)/2)
	var merged []Mapping

	for i := 0; i+1 < len(n.Content); i += 2 {
		kn, vn := n.Content[i], n.Content[i+1]

		if kn.Kind == yaml.ScalarNode && kn.ShortTag() == "!!merge" {
			srcs, err := c.mergeSources(vn, depth)
			if err != nil {
				return nil, err
			}
			merged = append(merged, srcs...)
			continue
		}

		k, err := c.convert(kn, depth)
		if err != nil {
			return nil, err
		}
		v, err := c.convert(vn, depth)
		if err != nil {
			return nil, err
		}
		m = append(m, Entry{Key: k, Value: v})
	}

	// Explicit keys win over merged ones; earlier merge sources win over
	// later ones.
	for _, src := range merged {
		for _, e := range src {
			if s, ok := e.Key.(String); ok && m.Has(string(s)) {
				continue
			}
			m = append(m, e)
		}
	}
	return m, nil
}

func (c *converter) mergeSources(n *yaml.Node, depth int) ([]Mapping, error) {
	v, err := c.convert(n, depth)
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case Mapping:
		return []Mapping{t}, nil
	case Sequence:
		out := make([]Mapping, 0, len(t))
		for _, item := range t {
			m, ok := item.(Mapping)
			if !ok {
				return nil, fmt.Errorf("line %d: merge sequence must hold mappings", n.Line)
			}
			out = append(out, m)
		}
		return out, nil
	}
	return nil, fmt.Errorf("line %d: merge value must be a mapping", n.Line)
}

func convertScalar(n *yaml.Node) (Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return Null{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return Bool(b), nil
	case "!!int", "!!float":
		return Number(n.Value), nil
	default:
		// !!str, !!timestamp and !!binary all stay textual.
		return String(n.Value), nil
	}
}

// isLocalTag reports whether tag is an application tag such as "!secret"
// rather than one of the core "!!" tags.
func isLocalTag(tag string) bool {
	return len(tag) > 1 && tag[0] == '!' && tag[1] != '!'
}
