// Package config loads menu-lens settings from defaults, an optional YAML
// file and the environment, in that order.
package config

import (
	"fmt"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment override, e.g. MENU_LENS_LOG_LEVEL.
const EnvPrefix = "MENU_LENS"

// Config is the complete runtime configuration.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	HTTP       HTTPConfig       `yaml:"http"`
	Recognizer RecognizerConfig `yaml:"recognizer"`
	Preprocess PreprocessConfig `yaml:"preprocess"`
	Menu       MenuConfig       `yaml:"menu"`
	Layout     LayoutConfig     `yaml:"layout"`
	Cache      CacheConfig      `yaml:"cache"`
	Overlay    OverlayConfig    `yaml:"overlay"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type HTTPConfig struct {
	// Addr enables the HTTP API when set, e.g. ":8080".
	Addr           string        `yaml:"addr"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
}

type RecognizerConfig struct {
	// Backend is "vision" or "tesseract".
	Backend string `yaml:"backend"`

	ClientEmail     string   `yaml:"client_email"`
	PrivateKey      string   `yaml:"private_key"`
	CredentialsFile string   `yaml:"credentials_file"`
	APIKey          string   `yaml:"api_key"`
	Endpoint        string   `yaml:"endpoint"`
	LanguageHints   []string `yaml:"language_hints"`

	Language       string  `yaml:"language"`
	TessdataPrefix string  `yaml:"tessdata_prefix"`
	Level          string  `yaml:"level"`
	MinConfidence  float64 `yaml:"min_confidence"`

	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	Timeout           time.Duration `yaml:"timeout"`
}

type PreprocessConfig struct {
	MaxBytes     int     `yaml:"max_bytes"`
	MaxDimension int     `yaml:"max_dimension"`
	Enhance      bool    `yaml:"enhance"`
	Contrast     float64 `yaml:"contrast"`
}

type MenuConfig struct {
	Path      string `yaml:"path"`
	Encoding  string `yaml:"encoding"`
	Delimiter string `yaml:"delimiter"`
	Fallback  string `yaml:"fallback"`
}

type LayoutConfig struct {
	// Strategy is "natural" or "scaled".
	Strategy         string `yaml:"strategy"`
	NormalizeCorners bool   `yaml:"normalize_corners"`
}

type CacheConfig struct {
	// Backend is "memory", "redis" or "none".
	Backend       string        `yaml:"backend"`
	Size          int           `yaml:"size"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
	KeyPrefix     string        `yaml:"key_prefix"`
}

type OverlayConfig struct {
	Color  string `yaml:"color"`
	Stroke int    `yaml:"stroke"`
	Labels bool   `yaml:"labels"`
}

// Default returns a Config populated with standard defaults.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "json"},
		HTTP: HTTPConfig{
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   60 * time.Second,
			MaxUploadBytes: 20 << 20,
		},
		Recognizer: RecognizerConfig{
			Backend:           "vision",
			LanguageHints:     []string{"ja"},
			Language:          "jpn+eng",
			Level:             "word",
			RequestsPerSecond: 5,
			Burst:             5,
			Timeout:           30 * time.Second,
		},
		Preprocess: PreprocessConfig{
			MaxBytes:     1 << 20,
			MaxDimension: 1024,
			Contrast:     0.3,
		},
		Menu: MenuConfig{
			Encoding:  "auto",
			Delimiter: ",",
			Fallback:  "説明は見つかりませんでした",
		},
		Layout: LayoutConfig{Strategy: "natural"},
		Cache: CacheConfig{
			Backend:   "memory",
			Size:      128,
			RedisAddr: "localhost:6379",
			TTL:       24 * time.Hour,
			KeyPrefix: "menu-lens:ocr:",
		},
		Overlay: OverlayConfig{Color: "#FF0000", Stroke: 2, Labels: true},
	}
}

var (
	logLevels     = []string{"debug", "info", "warn", "error"}
	logFormats    = []string{"json", "text"}
	backends      = []string{"vision", "tesseract"}
	levels        = []string{"word", "line"}
	cacheBackends = []string{"memory", "redis", "none"}
	strategies    = []string{"natural", "natural-pixel", "scaled", "scaled-display"}
	encodings     = []string{"auto", "utf-8", "utf8", "shift_jis", "sjis", "euc-jp"}
)

// Validate clamps numeric values to safe ranges and rejects unknown enum values.
func (c *Config) Validate() error {
	d := Default()

	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "warning" {
		c.Log.Level = "warn"
	}
	if err := oneOf("log.level", &c.Log.Level, d.Log.Level, logLevels); err != nil {
		return err
	}
	if err := oneOf("log.format", &c.Log.Format, d.Log.Format, logFormats); err != nil {
		return err
	}

	if c.HTTP.ReadTimeout <= 0 {
		c.HTTP.ReadTimeout = d.HTTP.ReadTimeout
	}
	if c.HTTP.WriteTimeout <= 0 {
		c.HTTP.WriteTimeout = d.HTTP.WriteTimeout
	}
	if c.HTTP.MaxUploadBytes <= 0 {
		c.HTTP.MaxUploadBytes = d.HTTP.MaxUploadBytes
	}

	r := &c.Recognizer
	if err := oneOf("recognizer.backend", &r.Backend, d.Recognizer.Backend, backends); err != nil {
		return err
	}
	if err := oneOf("recognizer.level", &r.Level, d.Recognizer.Level, levels); err != nil {
		return err
	}
	if r.Language == "" {
		r.Language = d.Recognizer.Language
	}
	if r.MinConfidence < 0 || r.MinConfidence > 100 {
		r.MinConfidence = 0
	}
	if r.RequestsPerSecond < 0 {
		r.RequestsPerSecond = 0
	}
	if r.Burst <= 0 {
		r.Burst = 1
	}
	if r.Timeout <= 0 {
		r.Timeout = d.Recognizer.Timeout
	}

	p := &c.Preprocess
	if p.MaxBytes <= 0 {
		p.MaxBytes = d.Preprocess.MaxBytes
	}
	if p.MaxDimension <= 0 {
		p.MaxDimension = d.Preprocess.MaxDimension
	}
	if p.Contrast <= -1 || p.Contrast > 1 {
		p.Contrast = d.Preprocess.Contrast
	}

	if err := oneOf("menu.encoding", &c.Menu.Encoding, d.Menu.Encoding, encodings); err != nil {
		return err
	}
	if c.Menu.Delimiter == "" {
		c.Menu.Delimiter = d.Menu.Delimiter
	}
	if c.Menu.Delimiter == `\t` || c.Menu.Delimiter == "tab" {
		c.Menu.Delimiter = "\t"
	}
	if len([]rune(c.Menu.Delimiter)) != 1 {
		return fmt.Errorf("menu.delimiter must be a single character, got %q", c.Menu.Delimiter)
	}
	if strings.TrimSpace(c.Menu.Fallback) == "" {
		c.Menu.Fallback = d.Menu.Fallback
	}

	if err := oneOf("layout.strategy", &c.Layout.Strategy, d.Layout.Strategy, strategies); err != nil {
		return err
	}

	if err := oneOf("cache.backend", &c.Cache.Backend, d.Cache.Backend, cacheBackends); err != nil {
		return err
	}
	if c.Cache.Size <= 0 {
		c.Cache.Size = d.Cache.Size
	}
	if c.Cache.TTL < 0 {
		c.Cache.TTL = 0
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr is required for the redis cache")
	}

	if c.Overlay.Color == "" {
		c.Overlay.Color = d.Overlay.Color
	}
	if c.Overlay.Stroke <= 0 {
		c.Overlay.Stroke = d.Overlay.Stroke
	}
	return nil
}

// MenuDelimiter returns the configured field separator as a rune.
func (c *Config) MenuDelimiter() rune {
	for _, r := range c.Menu.Delimiter {
		return r
	}
	return ','
}

func oneOf(name string, v *string, def string, allowed []string) error {
	*v = strings.ToLower(strings.TrimSpace(*v))
	if *v == "" {
		*v = def
		return nil
	}
	for _, a := range allowed {
		if *v == a {
			return nil
		}
	}
	return fmt.Errorf("invalid %s %q (allowed: %s)", name, *v, strings.Join(allowed, ", "))
}
