package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// LoadFile decodes the TOML config file at path into a FileConfig. A
// missing file is not an error: it returns a zero-valued FileConfig so
// callers fall through to built-in defaults, the way
// fyrsmithlabs-contextd's pkg/secrets/allowlist.go treats a missing
// allowlist file as "nothing to merge" rather than a failure.
func LoadFile(path string) (*FileConfig, error) {
	var fc FileConfig
	if path == "" {
		return &fc, nil
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &fc, nil
		}
		return nil, fmt.Errorf("config: stat %s: %w", path, err)
	}

	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &fc, nil
}
