// Package providers contains dependency injection providers for the sorter.
package providers

import (
	"io"
	"os"

	"github.com/samber/do/v2"

	"github.com/koloyyee/java-sorter/internal/config"
	"github.com/koloyyee/java-sorter/internal/logger"
)

// LogOutput is where log records are written.
type LogOutput struct {
	io.Writer
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg, err := do.Invoke[*config.Config](i)
	if err != nil {
		return nil, err
	}

	var out io.Writer = os.Stderr
	if o, err := do.Invoke[LogOutput](i); err == nil && o.Writer != nil {
		out = o.Writer
	}

	log := logger.New(logger.Config{
		Writer:      out,
		Format:      cfg.Logger.Format,
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.Logger.Level == "debug",
		Environment: cfg.App.Environment,
	})

	log.Info("starting sorter",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"source", cfg.Watch.Source,
		"destination", cfg.Routing.Destination,
		"keyword", cfg.Routing.Keyword,
		"images_dir", cfg.Routing.ImagesDir,
	)

	return log, nil
}
