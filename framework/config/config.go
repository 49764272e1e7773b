// Package config loads external key/value configuration and binds named
// sections of it onto plugin-declared structs.
//
// Values come from two places. An optional YAML file holds sections:
//
//	app:
//	  name: orders
//	  port: 9000
//	greeting:
//	  salutation: Howdy
//
// Environment variables named <SECTION>_<FIELD> override the file, so
// APP_PORT=8080 wins over app.port. .env files are loaded into the
// environment first.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"sigs.k8s.io/yaml"
)

// FileEnv names the environment variable that points at the YAML file.
const FileEnv = "PIBOX_CONFIG"

// DefaultFile is read when FileEnv is unset. A missing file is not an error.
const DefaultFile = "config.yaml"

var (
	// ErrInvalidTarget is returned by Bind for anything but a non-nil struct
	// pointer.
	ErrInvalidTarget = errors.New("config target must be a non-nil pointer to a struct")

	// ErrInvalidFile is returned when the YAML file cannot be parsed.
	ErrInvalidFile = errors.New("invalid config file")
)

// Source is a loaded configuration.
type Source struct {
	sections map[string]any
	lookup   func(string) (string, bool)
}

// Load reads .env files (default ".env") into the environment, then the YAML
// file named by PIBOX_CONFIG or config.yaml. Missing files are skipped, except
// a file PIBOX_CONFIG names explicitly.
func Load(envFiles ...string) (*Source, error) {
	path, explicit := os.LookupEnv(FileEnv)
	if !explicit {
		path = DefaultFile
	}
	src, err := LoadPath(path, envFiles...)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return FromMap(nil), nil
	}
	return src, err
}

// LoadPath is Load with an explicit YAML path, which must exist.
func LoadPath(path string, envFiles ...string) (*Source, error) {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	return LoadFile(path)
}

// LoadFile reads sections from the YAML file at path.
func LoadFile(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sections map[string]any
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrInvalidFile, path, err)
	}
	return FromMap(sections), nil
}

// FromMap builds a Source from in-memory sections. Environment overrides
// still apply.
func FromMap(sections map[string]any) *Source {
	if sections == nil {
		sections = map[string]any{}
	}
	return &Source{sections: sections, lookup: os.LookupEnv}
}

// Section returns the raw values of section. Dotted names walk nested maps.
func (s *Source) Section(section string) (map[string]any, bool) {
	var cur any = s.sections
	for part := range strings.SplitSeq(section, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	m, ok := cur.(map[string]any)
	return m, ok
}

// Bind decodes section onto target, a pointer to a struct. Fields keep any
// value the section does not mention, so defaults set by a constructor
// survive. Field names follow `mapstructure` tags and match keys
// case-insensitively; only top-level fields have environment overrides, and
// empty variables are ignored.
func (s *Source) Bind(section string, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: got %T", ErrInvalidTarget, target)
	}

	input := map[string]any{}
	if values, ok := s.Section(section); ok {
		for k, v := range values {
			input[k] = v
		}
	}
	prefix := envPrefix(section)
	for _, name := range fieldNames(rv.Elem().Type()) {
		if v, ok := s.lookup(prefix + strings.ToUpper(name)); ok && v != "" {
			input[name] = v
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("binding section %q: %w", section, err)
	}
	return nil
}

func envPrefix(section string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(section)) + "_"
}

func fieldNames(t reflect.Type) []string {
	var out []string
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ","); tag == "-" {
			continue
		} else if tag != "" {
			name = tag
		}
		out = append(out, name)
	}
	return out
}

// ── Environment helpers ──────────────────────────────────────────────────────

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	i, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return b
}
