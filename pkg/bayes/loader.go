package bayes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	keyNodes     = "nodes"
	keyRelations = "relations"
)

var (
	// ErrFileNotFound is returned when the definition file does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrEmptyFile is returned when the definition file has no content.
	ErrEmptyFile = errors.New("file is empty")
	// ErrMissingKey is returned when a required top level key is absent.
	ErrMissingKey = errors.New("missing required key")
	// ErrEmptyKey is returned when a required top level key holds no entries.
	ErrEmptyKey = errors.New("required key is empty")
	// ErrMalformedKey is returned when a probability key does not match the node's parents.
	ErrMalformedKey = errors.New("malformed probability key")
	// ErrDuplicateName is returned when a node or parent name is declared twice.
	ErrDuplicateName = errors.New("duplicate name")
)

// Definition is the serialised form of a network:
//
//	{
//	  "nodes": ["burglary", "alarm"],
//	  "relations": {
//	    "alarm": {
//	      "parents": ["burglary"],
//	      "probabilities": {"T,T": 0.94, "T,F": 0.06, ...}
//	    }, ...
//	  }
//	}
//
// A probability key is the parent values in parents order followed by the
// node's own value, joined by commas.
type Definition struct {
	Nodes     []string            `json:"nodes" yaml:"nodes"`
	Relations map[string]Relation `json:"relations" yaml:"relations"`
}

// Relation holds the parents and probability table of one node.
type Relation struct {
	Parents       []string           `json:"parents" yaml:"parents"`
	Probabilities map[string]float64 `json:"probabilities" yaml:"probabilities"`
}

// DecodeDefinition decodes a JSON definition from r.
func DecodeDefinition(r io.Reader) (*Definition, error) {
	var def Definition
	if err := json.NewDecoder(r).Decode(&def); err != nil {
		return nil, fmt.Errorf("failed to decode json network: %w", err)
	}
	return &def, nil
}

// DecodeDefinitionYAML decodes a YAML definition with the same structure as
// the JSON one from r.
func DecodeDefinitionYAML(r io.Reader) (*Definition, error) {
	var def Definition
	if err := yaml.NewDecoder(r).Decode(&def); err != nil {
		return nil, fmt.Errorf("failed to decode yaml network: %w", err)
	}
	return &def, nil
}

// ReadDefinitionFile reads a definition from path. Files ending in .yaml or
// .yml are decoded as YAML, everything else as JSON. A missing or empty file
// is reported as an error.
func ReadDefinitionFile(path string) (*Definition, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("could not stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeDefinitionYAML(f)
	default:
		return DecodeDefinition(f)
	}
}

// Build turns the definition into nodes keyed by name, along with the
// declared node order. It checks the structure only; probability tables are
// checked by Node.Validate.
func (d *Definition) Build() (map[string]*Node, []string, error) {
	if d.Nodes == nil {
		return nil, nil, fmt.Errorf("%w '%s'", ErrMissingKey, keyNodes)
	}
	if d.Relations == nil {
		return nil, nil, fmt.Errorf("%w '%s'", ErrMissingKey, keyRelations)
	}
	if len(d.Nodes) == 0 {
		return nil, nil, fmt.Errorf("%w '%s'", ErrEmptyKey, keyNodes)
	}
	if len(d.Relations) == 0 {
		return nil, nil, fmt.Errorf("%w '%s'", ErrEmptyKey, keyRelations)
	}

	nodes := make(map[string]*Node, len(d.Nodes))
	for _, name := range d.Nodes {
		if _, dup := nodes[name]; dup {
			return nil, nil, fmt.Errorf("%w: node '%s'", ErrDuplicateName, name)
		}
		nodes[name] = NewNode(name)
	}

	for _, name := range slices.Sorted(maps.Keys(d.Relations)) {
		node, ok := nodes[name]
		if !ok {
			return nil, nil, fmt.Errorf("relations: %w: '%s'", ErrUnknownVariable, name)
		}
		if err := node.apply(d.Relations[name], nodes); err != nil {
			return nil, nil, fmt.Errorf("node '%s': %w", name, err)
		}
	}
	return nodes, slices.Clone(d.Nodes), nil
}

// apply fills the node from its relation.
func (n *Node) apply(rel Relation, nodes map[string]*Node) error {
	seen := make(map[string]struct{}, len(rel.Parents))
	for _, parent := range rel.Parents {
		if _, ok := nodes[parent]; !ok {
			return fmt.Errorf("parent: %w: '%s'", ErrUnknownVariable, parent)
		}
		if _, dup := seen[parent]; dup {
			return fmt.Errorf("%w: parent '%s'", ErrDuplicateName, parent)
		}
		seen[parent] = struct{}{}
	}
	if len(rel.Parents) > 0 {
		n.Parents = slices.Clone(rel.Parents)
	}

	values := make(map[string]struct{})
	for _, key := range slices.Sorted(maps.Keys(rel.Probabilities)) {
		if tokens := strings.Count(key, ",") + 1; tokens != len(n.Parents)+1 {
			return fmt.Errorf("%w '%s': have %d values, want %d", ErrMalformedKey, key, tokens, len(n.Parents)+1)
		}
		p := rel.Probabilities[key]
		if p < 0 || p > 1 {
			return fmt.Errorf("probability %v for key '%s' is outside [0, 1]", p, key)
		}
		parents, child := SplitKey(key)
		values[child] = struct{}{}
		n.Probabilities = append(n.Probabilities, ConditionalProbability{
			Parents:     parents,
			Child:       child,
			Probability: p,
		})
	}
	n.Values = slices.Sorted(maps.Keys(values))
	n.Sort()
	return nil
}

// Definition returns the serialised form of the loaded network.
func (n *Network) Definition() *Definition {
	def := &Definition{
		Nodes:     slices.Clone(n.order),
		Relations: make(map[string]Relation, len(n.order)),
	}
	for _, name := range n.order {
		node := n.nodes[name]
		rel := Relation{
			Parents:       slices.Clone(node.Parents),
			Probabilities: make(map[string]float64, len(node.Probabilities)),
		}
		if rel.Parents == nil {
			rel.Parents = []string{}
		}
		for _, row := range node.Probabilities {
			rel.Probabilities[JoinKey(row.Parents, row.Child)] = row.Probability
		}
		def.Relations[name] = rel
	}
	return def
}

// Export writes the loaded network to w as indented JSON in the format read
// by Load.
func (n *Network) Export(w io.Writer) error {
	if !n.Loaded() {
		return ErrNotLoaded
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(n.Definition())
}
