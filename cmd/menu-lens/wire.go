package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ironsheep/menu-lens/internal/config"
	"github.com/ironsheep/menu-lens/internal/httpapi"
	"github.com/ironsheep/menu-lens/internal/imaging"
	"github.com/ironsheep/menu-lens/internal/layout"
	"github.com/ironsheep/menu-lens/internal/menu"
	"github.com/ironsheep/menu-lens/internal/ocr"
	"github.com/ironsheep/menu-lens/internal/region"
	"github.com/ironsheep/menu-lens/internal/server"
	"github.com/ironsheep/menu-lens/internal/session"
)

// run wires the components described by cfg and serves until ctx ends.
func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	m, err := loadMenu(cfg)
	if err != nil {
		return err
	}
	log.Info("menu loaded", "path", cfg.Menu.Path, "entries", m.Len())

	rec, err := buildRecognizer(ctx, cfg.Recognizer, log)
	if err != nil {
		return err
	}
	rec, err = withCache(ctx, rec, cfg, log)
	if err != nil {
		return err
	}

	opts, err := sessionOptions(cfg, rec, m, log)
	if err != nil {
		return err
	}

	if cfg.HTTP.Addr != "" {
		api := httpapi.New(httpapi.Options{
			Sessions:       session.NewRegistry(opts, session.DefaultMaxSessions),
			Recognizer:     rec,
			Menu:           m,
			MaxUploadBytes: cfg.HTTP.MaxUploadBytes,
			ReadTimeout:    cfg.HTTP.ReadTimeout,
			WriteTimeout:   cfg.HTTP.WriteTimeout,
			Logger:         log,
		})
		return api.ListenAndServe(ctx, cfg.HTTP.Addr)
	}

	srv := server.New(session.New("stdio", opts),
		server.WithLogger(log),
		server.WithVersion(Version),
		server.WithMaxUploadBytes(cfg.HTTP.MaxUploadBytes),
	)
	err = srv.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func loadMenu(cfg *config.Config) (*menu.Map, error) {
	c := cfg.Menu
	if c.Path == "" {
		return menu.New(nil, menu.WithFallback(c.Fallback)), nil
	}
	m, err := menu.LoadFile(c.Path, menu.LoadOptions{
		Encoding:  c.Encoding,
		Delimiter: cfg.MenuDelimiter(),
		Fallback:  c.Fallback,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load menu: %w", err)
	}
	return m, nil
}

// buildRecognizer returns the configured backend. Missing Vision credentials
// are not fatal: the server still answers lookups and every recognition
// fails with ocr.ErrNoCredentials.
func buildRecognizer(ctx context.Context, c config.RecognizerConfig, log *slog.Logger) (ocr.Recognizer, error) {
	switch c.Backend {
	case "tesseract":
		log.Info("using tesseract recognizer", "language", c.Language, "level", c.Level)
		return ocr.NewTesseractRecognizer(ocr.TesseractOptions{
			Language:       c.Language,
			TessdataPrefix: c.TessdataPrefix,
			Level:          c.Level,
			MinConfidence:  c.MinConfidence,
		}), nil
	default:
		v, err := ocr.NewVisionRecognizer(ctx, ocr.VisionOptions{
			ClientEmail:       c.ClientEmail,
			PrivateKey:        c.PrivateKey,
			CredentialsFile:   c.CredentialsFile,
			APIKey:            c.APIKey,
			Endpoint:          c.Endpoint,
			LanguageHints:     c.LanguageHints,
			RequestsPerSecond: c.RequestsPerSecond,
			Burst:             c.Burst,
		})
		if errors.Is(err, ocr.ErrNoCredentials) {
			log.Warn("no Vision credentials configured; recognition will fail")
			return ocr.RecognizerFunc(func(context.Context, []byte) (*region.RawResponse, error) {
				return nil, ocr.ErrNoCredentials
			}), nil
		}
		if err != nil {
			return nil, err
		}
		log.Info("using vision recognizer", "hints", c.LanguageHints, "rps", c.RequestsPerSecond)
		return v, nil
	}
}

func withCache(ctx context.Context, rec ocr.Recognizer, cfg *config.Config, log *slog.Logger) (ocr.Recognizer, error) {
	c := cfg.Cache
	var store ocr.Store
	switch c.Backend {
	case "none":
		return rec, nil
	case "redis":
		rs, err := ocr.NewRedisStore(ctx, ocr.RedisOptions{
			Addr:      c.RedisAddr,
			Password:  c.RedisPassword,
			DB:        c.RedisDB,
			TTL:       c.TTL,
			KeyPrefix: c.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		store = rs
	default:
		store = ocr.NewMemoryStore(c.Size)
	}
	log.Info("recognition cache enabled", "backend", c.Backend)
	return ocr.NewCachingRecognizer(rec, store, cacheNamespace(cfg.Recognizer), log), nil
}

// cacheNamespace separates cached payloads of backends and settings that
// would recognize the same bytes differently.
func cacheNamespace(c config.RecognizerConfig) string {
	if c.Backend == "tesseract" {
		return fmt.Sprintf("tesseract:%s:%s", c.Language, c.Level)
	}
	return fmt.Sprintf("vision:%v", c.LanguageHints)
}

func sessionOptions(cfg *config.Config, rec ocr.Recognizer, m *menu.Map, log *slog.Logger) (session.Options, error) {
	strategy, err := layout.ParseStrategy(cfg.Layout.Strategy)
	if err != nil {
		return session.Options{}, err
	}
	return session.Options{
		Compressor: imaging.Compressor{
			MaxBytes:     cfg.Preprocess.MaxBytes,
			MaxDimension: cfg.Preprocess.MaxDimension,
			Enhance:      cfg.Preprocess.Enhance,
			Contrast:     cfg.Preprocess.Contrast,
		},
		Recognizer: rec,
		Menu:       m,
		Mapper:     layout.NewMapper(strategy),
		Extract:    region.ExtractOptions{NormalizeCorners: cfg.Layout.NormalizeCorners},
		Timeout:    cfg.Recognizer.Timeout,
		Images:     imaging.NewImageCache(8),
		Overlay: imaging.OverlayOptions{
			Color:     cfg.Overlay.Color,
			Stroke:    cfg.Overlay.Stroke,
			Labels:    cfg.Overlay.Labels,
			Highlight: -1,
		},
		Logger: log,
	}, nil
}
