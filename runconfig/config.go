// Package runconfig loads the project configuration file that tells asmtest
// where suites live and which commands prepare and run a case.
package runconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/asmtest/types"
)

const (
	DefaultFile           = "asmtest.json"
	DefaultTestPath       = "test"
	DefaultRenderedFile   = "test.asm"
	DefaultWorkingDir     = ".asmtest"
	DefaultSuiteExtension = ".asmtest"
)

// DefaultRun is the target command used when the configuration names none.
var DefaultRun = types.Command{".asmtest/test.a"}

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the resolved run configuration.
type Config struct {
	// Dir is the absolute directory holding the configuration file. Every
	// command runs in it and relative paths are resolved against it.
	Dir            string
	TestPath       string
	Init           []types.Command
	BeforeEach     []types.Command
	Run            types.Command
	RenderedFile   string
	WorkingDir     string
	SuiteExtension string
}

// fileConfig mirrors the on-disk layout. Pointers and nil slices tell unset
// keys apart from empty ones.
type fileConfig struct {
	TestPath       *string       `json:"test_path" yaml:"test_path" toml:"test_path"`
	Init           []commandSpec `json:"init" yaml:"init" toml:"init"`
	BeforeEach     []commandSpec `json:"before_each" yaml:"before_each" toml:"before_each"`
	Run            *commandSpec  `json:"run" yaml:"run" toml:"run"`
	RenderedFile   *string       `json:"rendered_file" yaml:"rendered_file" toml:"rendered_file"`
	WorkingDir     *string       `json:"working_dir" yaml:"working_dir" toml:"working_dir"`
	SuiteExtension *string       `json:"suite_extension" yaml:"suite_extension" toml:"suite_extension"`
}

// commandSpec accepts either an argv list or a single string that is split
// on whitespace.
type commandSpec []string

func (c *commandSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*c = strings.Fields(node.Value)
		return nil
	case yaml.SequenceNode:
		var argv []string
		if err := node.Decode(&argv); err != nil {
			return fmt.Errorf("line %d: command arguments must be strings: %w", node.Line, err)
		}
		*c = argv
		return nil
	default:
		return fmt.Errorf("line %d: command must be a string or a list of strings", node.Line)
	}
}

func (c *commandSpec) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = strings.Fields(s)
		return nil
	}
	var argv []string
	if err := json.Unmarshal(data, &argv); err != nil {
		return fmt.Errorf("command must be a string or a list of strings, got %s", data)
	}
	*c = argv
	return nil
}

func (c *commandSpec) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case string:
		*c = strings.Fields(v)
		return nil
	case []any:
		argv := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("command argument %d must be a string, got %T", i, item)
			}
			argv = append(argv, s)
		}
		*c = argv
		return nil
	default:
		return fmt.Errorf("command must be a string or a list of strings, got %T", data)
	}
}

// Load reads the configuration at path. The format follows the extension:
// ".json" files are JSON, ".toml" files are TOML, ".hcl" files are HCL and
// everything else is read as YAML. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for config '%s': %w", path, err)
	}
	raw, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(absPath)) {
	case ".json":
		err = decodeJSON(raw, &fc)
	case ".toml":
		err = decodeTOML(raw, &fc)
	case ".hcl":
		err = decodeHCL(absPath, raw, &fc)
	default:
		err = decodeYAML(raw, &fc)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, absPath, err)
	}

	cfg := fc.resolve(filepath.Dir(absPath))
	if err := cfg.Check(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, absPath, err)
	}
	return cfg, nil
}

// decodeJSON reads a JSON configuration. An empty file is an empty
// configuration. A key given twice keeps its last value.
func decodeJSON(raw []byte, fc *fileConfig) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(fc); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after the configuration object")
	}
	return nil
}

func decodeYAML(raw []byte, fc *fileConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(fc); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func decodeTOML(raw []byte, fc *fileConfig) error {
	md, err := toml.Decode(string(raw), fc)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func (fc *fileConfig) resolve(dir string) *Config {
	cfg := &Config{
		Dir:            dir,
		TestPath:       DefaultTestPath,
		Init:           commands(fc.Init),
		BeforeEach:     commands(fc.BeforeEach),
		Run:            DefaultRun,
		RenderedFile:   DefaultRenderedFile,
		WorkingDir:     DefaultWorkingDir,
		SuiteExtension: DefaultSuiteExtension,
	}
	if fc.TestPath != nil {
		cfg.TestPath = *fc.TestPath
	}
	if fc.Run != nil {
		cfg.Run = types.Command(*fc.Run)
	}
	if fc.RenderedFile != nil {
		cfg.RenderedFile = *fc.RenderedFile
	}
	if fc.WorkingDir != nil {
		cfg.WorkingDir = *fc.WorkingDir
	}
	if fc.SuiteExtension != nil {
		cfg.SuiteExtension = *fc.SuiteExtension
	}
	return cfg
}

func commands(specs []commandSpec) []types.Command {
	if len(specs) == 0 {
		return nil
	}
	out := make([]types.Command, 0, len(specs))
	for _, s := range specs {
		out = append(out, types.Command(s))
	}
	return out
}

// Check validates a resolved configuration.
func (c *Config) Check() error {
	if c.TestPath == "" {
		return errors.New("test_path must not be empty")
	}
	if len(c.Run) == 0 {
		return errors.New("run must name a command")
	}
	if c.RenderedFile == "" || strings.ContainsRune(c.RenderedFile, '/') {
		return fmt.Errorf("rendered_file must be a plain file name, got %q", c.RenderedFile)
	}
	if c.WorkingDir == "" {
		return errors.New("working_dir must not be empty")
	}
	if !strings.HasPrefix(c.SuiteExtension, ".") || len(c.SuiteExtension) < 2 {
		return fmt.Errorf("suite_extension must start with a dot, got %q", c.SuiteExtension)
	}
	for i, hook := range c.Init {
		if len(hook) == 0 {
			return fmt.Errorf("init command %d is empty", i)
		}
	}
	for i, hook := range c.BeforeEach {
		if len(hook) == 0 {
			return fmt.Errorf("before_each command %d is empty", i)
		}
	}
	return nil
}

// SuiteRoot returns the absolute directory suites are resolved against.
func (c *Config) SuiteRoot() string {
	return c.resolvePath(c.TestPath)
}

// ArtifactDir returns the absolute working directory for rendered artifacts.
func (c *Config) ArtifactDir() string {
	return c.resolvePath(c.WorkingDir)
}

func (c *Config) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}
