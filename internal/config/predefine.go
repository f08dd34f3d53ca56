package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Predefines holds the named control templates a shorthand string or a
// merge_from reference resolves against, loaded from a separate file per
// spec.md §6.
type Predefines struct {
	Midi     map[string]*yaml.Node `yaml:"midi"`
	Mouse    map[string]*yaml.Node `yaml:"mouse"`
	Joystick map[string]*yaml.Node `yaml:"joystick"`
}

// LoadPredefines reads and decodes a predefines file. An empty path yields
// an empty set, not an error - predefines are optional.
func LoadPredefines(path string) (*Predefines, error) {
	p := &Predefines{
		Midi:     map[string]*yaml.Node{},
		Mouse:    map[string]*yaml.Node{},
		Joystick: map[string]*yaml.Node{},
	}
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading predefines %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("config: parsing predefines %q: %w", path, err)
	}
	return p, nil
}

// expandControlEntry resolves a node that is either a bare scalar predefine
// name or a mapping (optionally with merge_from) into the fully merged
// mapping node, ready for strict decoding into a typed struct.
func expandControlEntry(node *yaml.Node, table map[string]*yaml.Node) (*yaml.Node, error) {
	if node == nil {
		return nil, nil
	}
	if node.Kind == yaml.ScalarNode {
		def, ok := table[node.Value]
		if !ok {
			return nil, fmt.Errorf("config: unknown predefine %q", node.Value)
		}
		return def, nil
	}
	if node.Kind != yaml.MappingNode {
		return node, nil
	}

	var mergeFromName string
	for i := 0; i < len(node.Content); i += 2 {
		if node.Content[i].Value == "merge_from" {
			mergeFromName = node.Content[i+1].Value
		}
	}
	if mergeFromName == "" {
		return node, nil
	}

	base, ok := table[mergeFromName]
	if !ok {
		return nil, fmt.Errorf("config: unknown predefine reference %q", mergeFromName)
	}
	return mergeMappingNodes(base, node), nil
}

// mergeMappingNodes produces a new mapping node with base's fields as
// defaults, overridden field-by-field by override's own keys (except
// merge_from itself, which is a directive, not a field to keep).
func mergeMappingNodes(base, override *yaml.Node) *yaml.Node {
	merged := &yaml.Node{Kind: yaml.MappingNode}
	seen := map[string]bool{}

	for i := 0; i < len(override.Content); i += 2 {
		k, v := override.Content[i], override.Content[i+1]
		if k.Value == "merge_from" {
			continue
		}
		merged.Content = append(merged.Content, k, v)
		seen[k.Value] = true
	}
	for i := 0; i < len(base.Content); i += 2 {
		k, v := base.Content[i], base.Content[i+1]
		if seen[k.Value] {
			continue
		}
		merged.Content = append(merged.Content, k, v)
	}
	return merged
}
