package utils

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// DecodeTOML decodes a TOML file into out.
func DecodeTOML(path string, out any) error {
	if _, err := toml.DecodeFile(path, out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// DecodeTOMLTree reads a TOML file into an untyped tree. Config falls back
// to this when strict decoding fails, salvaging whatever tables still parse.
func DecodeTOMLTree(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tree := make(map[string]any)
	if _, err := toml.Decode(string(data), &tree); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return tree, nil
}

// Section pulls one table out of a decoded tree.
func Section(tree map[string]any, name string) (map[string]any, bool) {
	table, ok := tree[name].(map[string]any)
	return table, ok
}

// IntValue reads an integer key from a table. TOML integers decode as
// int64; callers want int.
func IntValue(table map[string]any, key string) (int, bool) {
	if val, ok := table[key].(int64); ok {
		return int(val), true
	}
	return 0, false
}
