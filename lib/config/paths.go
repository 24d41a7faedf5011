package config

import (
	"path/filepath"

	yaml "github.com/goccy/go-yaml"
)

type CfgPath string

// UnmarshalBase is the directory relative paths are resolved against; Parse
// sets it to the config file's directory.
var UnmarshalBase string

func (c *CfgPath) UnmarshalYAML(b []byte) error {
	var path string

	err := yaml.Unmarshal(b, &path)
	if err != nil {
		return err
	}

	if filepath.IsAbs(path) || path == "" {
		*c = CfgPath(path)
	} else {
		*c = CfgPath(filepath.Join(UnmarshalBase, path))
	}
	return nil
}
