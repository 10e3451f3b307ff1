package repo

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/gritvcs/grit/pkg/object"
)

// Config is the repository-local configuration stored at .grit/config.
type Config struct {
	Core CoreConfig `toml:"core"`
}

// CoreConfig selects the content-addressing digest and the on-disk
// object compression. Both are fixed for the life of the repository:
// changing the digest would re-key every object.
type CoreConfig struct {
	Digest      string `toml:"digest"`
	Compression string `toml:"compression"`
}

// DefaultConfig returns the configuration written by Init when the
// caller does not override it.
func DefaultConfig() Config {
	return Config{
		Core: CoreConfig{
			Digest:      string(object.SHA256),
			Compression: string(object.CompressionZstd),
		},
	}
}

// digest returns the validated digest algorithm.
func (c Config) digest() (object.Algorithm, error) {
	return object.ParseAlgorithm(c.Core.Digest)
}

// compression returns the validated compression setting.
func (c Config) compression() (object.Compression, error) {
	return object.ParseCompression(c.Core.Compression)
}

func (c Config) validate() error {
	if _, err := c.digest(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.compression(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func readConfig(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// writeConfig atomically writes the TOML config file.
func writeConfig(path string, cfg Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("write config: encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-tmp-*")
	if err != nil {
		return fmt.Errorf("write config: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: rename: %w", err)
	}
	return nil
}
