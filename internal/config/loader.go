package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	l := NewLoader(EnvPrefix)

	if err := l.LoadFromFile(path, cfg); err != nil {
		return nil, err
	}
	if err := l.LoadFromEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Loader handles loading configuration from a file and the environment.
type Loader struct {
	envPrefix string

	// LookupEnv reads a variable; it defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// NewLoader creates a loader whose variables are named PREFIX_SECTION_FIELD
// after the yaml tags.
func NewLoader(envPrefix string) *Loader {
	return &Loader{envPrefix: envPrefix, LookupEnv: os.LookupEnv}
}

// LoadFromFile merges a YAML file into cfg. Keys absent from the file keep
// their current values.
func (l *Loader) LoadFromFile(path string, cfg *Config) error {
	if path == "" {
		return nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml)", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse YAML config file %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv applies MENU_LENS_* overrides, then the service account
// variables GOOGLE_CLIENT_EMAIL and GOOGLE_PRIVATE_KEY.
func (l *Loader) LoadFromEnv(cfg *Config) error {
	if err := l.loadStruct(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return err
	}
	if v, ok := l.LookupEnv("GOOGLE_CLIENT_EMAIL"); ok && v != "" {
		cfg.Recognizer.ClientEmail = v
	}
	if v, ok := l.LookupEnv("GOOGLE_PRIVATE_KEY"); ok && v != "" {
		cfg.Recognizer.PrivateKey = strings.ReplaceAll(v, `\n`, "\n")
	}
	return nil
}

func (l *Loader) loadStruct(value reflect.Value, prefix string) error {
	t := value.Type()
	for i := 0; i < value.NumField(); i++ {
		field := value.Field(i)
		ft := t.Field(i)
		if !field.CanSet() {
			continue
		}

		name := strings.Split(ft.Tag.Get("yaml"), ",")[0]
		if name == "" {
			name = strings.ToLower(ft.Name)
		}
		if prefix != "" {
			name = prefix + "_" + name
		}

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := l.loadStruct(field, name); err != nil {
				return err
			}
			continue
		}

		envName := l.envName(name)
		raw, ok := l.LookupEnv(envName)
		if !ok || raw == "" {
			continue
		}
		if err := setField(field, raw); err != nil {
			return fmt.Errorf("failed to set %s from %s: %w", ft.Name, envName, err)
		}
	}
	return nil
}

func (l *Loader) envName(name string) string {
	name = strings.ToUpper(name)
	if l.envPrefix != "" {
		return l.envPrefix + "_" + name
	}
	return name
}

func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid bool value: %s", value)
		}
		field.SetBool(b)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration value: %s", value)
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid int value: %s", value)
		}
		field.SetInt(n)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid float value: %s", value)
		}
		field.SetFloat(f)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type())
		}
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		field.Set(reflect.ValueOf(out))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Type())
	}
	return nil
}
