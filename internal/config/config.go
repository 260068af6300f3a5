// Package config resolves the options for a provisioning run.
//
// Options come from three layers, later layers winning:
//
//  1. built-in defaults (.venv, requirements.txt, python3)
//  2. an optional project config file
//  3. command-line flags that were explicitly set
//
// The config file may be YAML (.venv-setup.yaml / .venv-setup.yml),
// JSON with comments (.venv-setup.json, parsed with github.com/tidwall/jsonc),
// or a [tool.venv-setup] table in pyproject.toml. All formats share the
// same kebab-case keys as the CLI flags.
package config

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
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/venv-setup/internal/model"
)

const (
	// DefaultVenvDir is the environment directory used when neither a
	// flag nor a config file names one.
	DefaultVenvDir = ".venv"

	// DefaultReqFile is the requirements listing used by default.
	DefaultReqFile = "requirements.txt"

	// EnvPython overrides the default interpreter.
	EnvPython = "VENV_SETUP_PYTHON"

	// PyprojectFile is only used when it carries a [tool.venv-setup] table.
	PyprojectFile = "pyproject.toml"
)

// SearchOrder lists the file names Discover looks for, in priority order.
var SearchOrder = []string{
	".venv-setup.yaml",
	".venv-setup.yml",
	".venv-setup.json",
	PyprojectFile,
}

// File is the parsed content of a config file. Pointer fields distinguish
// an absent key from one set to its zero value.
type File struct {
	VenvDir    *string `yaml:"venv-dir" json:"venv-dir" toml:"venv-dir"`
	ReqFile    *string `yaml:"req-file" json:"req-file" toml:"req-file"`
	Clean      *bool   `yaml:"clean" json:"clean" toml:"clean"`
	UpgradePip *bool   `yaml:"upgrade-pip" json:"upgrade-pip" toml:"upgrade-pip"`
	Python     *string `yaml:"python" json:"python" toml:"python"`

	// Path is the file this configuration was read from.
	Path string `yaml:"-" json:"-" toml:"-"`
}

// pyproject is the subset of pyproject.toml we read.
type pyproject struct {
	Tool struct {
		VenvSetup *File `toml:"venv-setup"`
	} `toml:"tool"`
}

// DefaultPython returns the interpreter used when nothing else is
// configured. getenv is usually os.Getenv.
func DefaultPython(goos string, getenv func(string) string) string {
	if p := strings.TrimSpace(getenv(EnvPython)); p != "" {
		return p
	}
	if goos == "windows" {
		return "python"
	}
	return "python3"
}

// Defaults returns the built-in options for the given platform.
func Defaults(goos string, getenv func(string) string) model.Options {
	return model.Options{
		VenvDir: DefaultVenvDir,
		ReqFile: DefaultReqFile,
		Python:  DefaultPython(goos, getenv),
	}
}

// Apply overlays the fields set in f onto o. A nil File is a no-op.
func (f *File) Apply(o *model.Options) {
	if f == nil {
		return
	}
	if f.VenvDir != nil {
		o.VenvDir = *f.VenvDir
	}
	if f.ReqFile != nil {
		o.ReqFile = *f.ReqFile
	}
	if f.Clean != nil {
		o.Clean = *f.Clean
	}
	if f.UpgradePip != nil {
		o.UpgradePip = *f.UpgradePip
	}
	if f.Python != nil {
		o.Python = *f.Python
	}
}

// Load reads a config file, choosing the parser from its name.
// Unknown keys are rejected so typos do not pass silently.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, configError(fmt.Sprintf("config file not found: %s", path), err)
		}
		return nil, configError(fmt.Sprintf("failed to read config file %s", path), err)
	}

	var f *File
	switch {
	case filepath.Base(path) == PyprojectFile:
		f, err = parsePyproject(data)
	case hasExt(path, ".yaml", ".yml"):
		f, err = parseYAML(data)
	case hasExt(path, ".json", ".jsonc"):
		f, err = parseJSONC(data)
	case hasExt(path, ".toml"):
		f, err = parseTOML(data)
	default:
		return nil, configError(fmt.Sprintf("unsupported config file type: %s", path), nil)
	}
	if err != nil {
		return nil, configError(fmt.Sprintf("failed to parse config file %s", path), err)
	}
	if f == nil {
		f = &File{}
	}
	f.Path = path
	return f, nil
}

// Discover looks in dir for the first file in SearchOrder and loads it.
// A pyproject.toml without a [tool.venv-setup] table, or one that does not
// parse, is skipped. It returns nil, nil when no config file applies.
func Discover(dir string) (*File, error) {
	for _, name := range SearchOrder {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}

		if name == PyprojectFile {
			if !hasToolTable(path) {
				continue
			}
		}
		return Load(path)
	}
	return nil, nil
}

func parseYAML(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		// An empty document is a valid, empty configuration.
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, err
	}
	return &f, nil
}

func parseJSONC(data []byte) (*File, error) {
	// Strip // and /* */ comments and trailing commas, then parse strictly.
	clean := jsonc.ToJSON(data)
	if len(bytes.TrimSpace(clean)) == 0 {
		return &File{}, nil
	}

	var f File
	dec := json.NewDecoder(bytes.NewReader(clean))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

func parseTOML(data []byte) (*File, error) {
	var f File
	meta, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	return &f, nil
}

func parsePyproject(data []byte) (*File, error) {
	var p pyproject
	meta, err := toml.Decode(string(data), &p)
	if err != nil {
		return nil, err
	}
	// Other tools' tables are none of our business; only keys inside our
	// own table must be known.
	for _, key := range meta.Undecoded() {
		if len(key) > 2 && key[0] == "tool" && key[1] == "venv-setup" {
			return nil, fmt.Errorf("unknown key %q", key.String())
		}
	}
	return p.Tool.VenvSetup, nil
}

// hasToolTable reports whether a pyproject.toml defines [tool.venv-setup].
// The file belongs to other tools too, so one that does not parse is
// treated as having no table.
func hasToolTable(path string) bool {
	var p pyproject
	meta, err := toml.DecodeFile(path, &p)
	if err != nil {
		return false
	}
	return meta.IsDefined("tool", "venv-setup")
}

func hasExt(path string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func configError(message string, err error) error {
	return model.NewKindError(model.KindConfig, model.ExitGeneralError, message, err)
}
