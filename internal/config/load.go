package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads configPath, resolves _include directives, expands predefine
// shorthand and merge_from references using predefinesPath (optional, pass
// "" if none), and strictly decodes the result into a Config. Unknown
// fields anywhere outside predefines are a load error.
func Load(configPath, predefinesPath string) (*Config, error) {
	predefines, err := LoadPredefines(predefinesPath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: reading %q: %w", configPath, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, annotateParseError(err, data)
	}

	baseDir := filepath.Dir(configPath)
	if err := resolveIncludes(&doc, baseDir, 0); err != nil {
		return nil, err
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
		root = root.Content[0]
	}
	if err := expandPredefineShorthand(root, predefines); err != nil {
		return nil, err
	}

	var cfg Config
	expanded, err := yaml.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("config: re-encoding resolved document: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %q: %w", configPath, err)
	}
	return &cfg, nil
}

// expandPredefineShorthand walks root for the specific spots the schema
// allows a shorthand predefine name or a merge_from reference: each virtual
// joystick's controls map, and each mapping's source.midi entry.
func expandPredefineShorthand(root *yaml.Node, predefines *Predefines) error {
	joysticks := findKey(root, "virtual_joysticks")
	if joysticks != nil && joysticks.Kind == yaml.SequenceNode {
		for _, js := range joysticks.Content {
			controls := findKey(js, "controls")
			if controls == nil || controls.Kind != yaml.MappingNode {
				continue
			}
			for i := 1; i < len(controls.Content); i += 2 {
				expanded, err := expandControlEntry(controls.Content[i], predefines.Joystick)
				if err != nil {
					return err
				}
				controls.Content[i] = expanded
			}
		}
	}

	mappings := findKey(root, "mappings")
	if mappings != nil && mappings.Kind == yaml.SequenceNode {
		for _, mapping := range mappings.Content {
			source := findKey(mapping, "source")
			if source == nil {
				continue
			}
			midi := findKey(source, "midi")
			if midi == nil {
				continue
			}
			expanded, err := expandControlEntry(midi, predefines.Midi)
			if err != nil {
				return err
			}
			replaceKeyValue(source, "midi", expanded)
		}
	}
	return nil
}

func findKey(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func replaceKeyValue(node *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			node.Content[i+1] = value
			return
		}
	}
}

// annotateParseError adds a small window of surrounding source lines to a
// YAML syntax error, the "7-line context" §7 requires.
func annotateParseError(err error, data []byte) error {
	typeErr, ok := err.(*yaml.TypeError)
	if ok {
		return fmt.Errorf("config: %v", typeErr)
	}
	line := 0
	fmt.Sscanf(err.Error(), "yaml: line %d:", &line)
	return fmt.Errorf("config: parse error: %w\n%s", err, contextWindow(data, line, 7))
}

// contextWindow returns up to lines source lines centered on the 1-based
// line; an unknown line (0) yields the first lines of the file.
func contextWindow(data []byte, line int, lines int) string {
	all := bytes.Split(data, []byte("\n"))
	start := line - 1 - lines/2
	if start < 0 {
		start = 0
	}
	end := start + lines
	if end > len(all) {
		end = len(all)
	}
	if start > end {
		start = end
	}
	return string(bytes.Join(all[start:end], []byte("\n")))
}
