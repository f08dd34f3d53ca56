package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// resolveIncludes walks a decoded document tree looking for mapping nodes
// with an "_include" key and splices in the referenced content in place.
// The value is a slash-separated path: the first segment(s) name a file
// (resolved relative to baseDir); any remaining segments are regex-matched
// against the keys of nested mapping nodes inside that file, narrowing down
// to a single node.
func resolveIncludes(node *yaml.Node, baseDir string, depth int) error {
	if depth > 16 {
		return fmt.Errorf("config: _include nesting too deep (possible cycle)")
	}
	if node == nil {
		return nil
	}

	switch node.Kind {
	case yaml.DocumentNode:
		for _, c := range node.Content {
			if err := resolveIncludes(c, baseDir, depth); err != nil {
				return err
			}
		}
	case yaml.MappingNode:
		for i := 0; i < len(node.Content); i += 2 {
			key := node.Content[i]
			if key.Value == "_include" {
				replacement, err := loadIncludeTarget(node.Content[i+1].Value, baseDir, depth)
				if err != nil {
					return err
				}
				*node = *replacement
				return resolveIncludes(node, baseDir, depth+1)
			}
		}
		for i := 1; i < len(node.Content); i += 2 {
			if err := resolveIncludes(node.Content[i], baseDir, depth); err != nil {
				return err
			}
		}
	case yaml.SequenceNode:
		for _, c := range node.Content {
			if err := resolveIncludes(c, baseDir, depth); err != nil {
				return err
			}
		}
	}
	return nil
}

// loadIncludeTarget resolves one "_include" directive's value into the
// yaml.Node it points at.
func loadIncludeTarget(spec string, baseDir string, depth int) (*yaml.Node, error) {
	parts := strings.Split(spec, "/")
	if len(parts) == 0 || parts[0] == "" {
		return nil, fmt.Errorf("config: empty _include path")
	}

	// The shortest leading run of segments that names a regular file is the
	// file; with no such run, the first segment is tried as the file.
	fileParts := 1
	for i := 1; i <= len(parts); i++ {
		info, err := os.Stat(filepath.Join(baseDir, filepath.Join(parts[:i]...)))
		if err == nil && info.Mode().IsRegular() {
			fileParts = i
			break
		}
	}
	path := filepath.Join(baseDir, filepath.Join(parts[:fileParts]...))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: _include %q: %w", path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: _include %q: %w", path, err)
	}
	if err := resolveIncludes(&doc, filepath.Dir(path), depth+1); err != nil {
		return nil, err
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
		root = root.Content[0]
	}

	for _, segment := range parts[fileParts:] {
		re, err := regexp.Compile(segment)
		if err != nil {
			return nil, fmt.Errorf("config: _include segment %q: %w", segment, err)
		}
		match, err := matchMappingKey(root, re)
		if err != nil {
			return nil, fmt.Errorf("config: _include %q: %w", spec, err)
		}
		root = match
	}
	return root, nil
}

func matchMappingKey(node *yaml.Node, re *regexp.Regexp) (*yaml.Node, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping to navigate by key, got %v", node.Kind)
	}
	for i := 0; i < len(node.Content); i += 2 {
		if re.MatchString(node.Content[i].Value) {
			return node.Content[i+1], nil
		}
	}
	return nil, fmt.Errorf("no key matching %q", re.String())
}
