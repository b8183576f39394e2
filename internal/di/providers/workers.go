package providers

import (
	"os"

	"github.com/samber/do/v2"

	"github.com/koloyyee/java-sorter/internal/classify"
	"github.com/koloyyee/java-sorter/internal/config"
	"github.com/koloyyee/java-sorter/internal/errors"
	"github.com/koloyyee/java-sorter/internal/logger"
	"github.com/koloyyee/java-sorter/internal/sorter"
	"github.com/koloyyee/java-sorter/internal/watcher"
)

// WatcherHandle wraps the file watcher with shutdown capability.
type WatcherHandle struct {
	*watcher.Watcher
}

// Shutdown implements do.Shutdownable.
func (h *WatcherHandle) Shutdown() error {
	return h.Close()
}

// ProvideWatcher provides the watcher with the source directory registered.
// The instance lock is taken first so a second sorter fails before it
// registers anything. A source that is missing or not a directory is a
// startup error.
func ProvideWatcher(i do.Injector) (*WatcherHandle, error) {
	cfg, err := do.Invoke[*config.Config](i)
	if err != nil {
		return nil, err
	}
	log, err := do.Invoke[*logger.Logger](i)
	if err != nil {
		return nil, err
	}
	if _, err := do.Invoke[*InstanceLockHandle](i); err != nil {
		return nil, err
	}

	info, err := os.Stat(cfg.Watch.Source)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeStartup, "source %s", cfg.Watch.Source)
	}
	if !info.IsDir() {
		return nil, errors.Startupf("source %s is not a directory", cfg.Watch.Source)
	}

	opts := watcher.Options{Backend: cfg.Watch.Backend}
	if cfg.Watch.IgnorePartial {
		opts = watcher.IgnorePartial(cfg.Watch.Backend)
	}

	w, err := watcher.New(log.Logger, opts)
	if err != nil {
		return nil, err
	}

	if _, err := w.Register(cfg.Watch.Source); err != nil {
		_ = w.Close()
		return nil, err
	}

	log.Info("watching",
		"source", cfg.Watch.Source,
		"backend", cfg.Watch.Backend,
		"dirs", w.Registry().Len(),
		"ignore_partial", cfg.Watch.IgnorePartial,
	)

	return &WatcherHandle{Watcher: w}, nil
}

// ProvideClassifier provides the content-type classifier.
func ProvideClassifier(i do.Injector) (classify.Classifier, error) {
	cfg, err := do.Invoke[*config.Config](i)
	if err != nil {
		return nil, err
	}
	return classify.New(cfg.Routing.Classifier)
}

// ProvideMover provides the file mover.
func ProvideMover(i do.Injector) (*sorter.Mover, error) {
	log, err := do.Invoke[*logger.Logger](i)
	if err != nil {
		return nil, err
	}
	return sorter.NewMover(log.Logger), nil
}

// ProvideDispatcher provides the dispatch loop. It is not started here.
func ProvideDispatcher(i do.Injector) (*sorter.Dispatcher, error) {
	cfg, err := do.Invoke[*config.Config](i)
	if err != nil {
		return nil, err
	}
	log, err := do.Invoke[*logger.Logger](i)
	if err != nil {
		return nil, err
	}
	w, err := do.Invoke[*WatcherHandle](i)
	if err != nil {
		return nil, err
	}
	classifier, err := do.Invoke[classify.Classifier](i)
	if err != nil {
		return nil, err
	}
	mover, err := do.Invoke[*sorter.Mover](i)
	if err != nil {
		return nil, err
	}

	rules := sorter.Rules{
		Keyword:     cfg.Routing.Keyword,
		Destination: cfg.Routing.Destination,
		ImagesDir:   cfg.Routing.ImagesDir,
	}

	return sorter.NewDispatcher(w.Watcher, classifier, mover, rules, log.Logger), nil
}
