package gen

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is the content of an aotsql.yaml file:
//
//	dialect: postgres
//	workers: 4
//	file_name: aotsql_generated.go
//	cache_size: 512
//	build_flags: ["-tags=integration"]
//	packages: ["./..."]
type FileConfig struct {
	Dialect    string   `yaml:"dialect"`
	Workers    int      `yaml:"workers"`
	FileName   string   `yaml:"file_name"`
	Header     string   `yaml:"header"`
	CacheSize  int      `yaml:"cache_size"`
	BuildFlags []string `yaml:"build_flags"`
	Packages   []string `yaml:"packages"`
}

// LoadConfigFile reads a yaml configuration file. Unknown keys are errors.
func LoadConfigFile(path string) (*FileConfig, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	fc := &FileConfig{}
	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)
	if err := dec.Decode(fc); err != nil {
		return nil, NewConfigError("File", path, err.Error())
	}
	return fc, nil
}

// Options returns the options set in the file. Zero values are left out so
// that they do not override defaults.
func (fc *FileConfig) Options() []Option {
	var opts []Option
	if fc.Dialect != "" {
		opts = append(opts, WithDialect(fc.Dialect))
	}
	if fc.Workers != 0 {
		opts = append(opts, WithWorkers(fc.Workers))
	}
	if fc.FileName != "" {
		opts = append(opts, WithFileName(fc.FileName))
	}
	if fc.Header != "" {
		opts = append(opts, WithHeader(fc.Header))
	}
	if fc.CacheSize != 0 {
		opts = append(opts, WithCacheSize(fc.CacheSize))
	}
	if len(fc.BuildFlags) > 0 {
		opts = append(opts, WithBuildFlags(fc.BuildFlags...))
	}
	return opts
}
