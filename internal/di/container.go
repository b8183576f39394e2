// Package di provides dependency injection configuration for the sorter.
package di

import (
	"io"

	"github.com/samber/do/v2"

	"github.com/koloyyee/java-sorter/internal/config"
	"github.com/koloyyee/java-sorter/internal/di/providers"
	"github.com/koloyyee/java-sorter/internal/logger"
	"github.com/koloyyee/java-sorter/internal/sorter"
)

// NewContainer creates the DI container for one run. Configuration is
// resolved by the caller; logs go to logOutput.
func NewContainer(cfg *config.Config, logOutput io.Writer) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, providers.LogOutput{Writer: logOutput})
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideInstanceLock)

	// Watch and dispatch
	do.Provide(injector, providers.ProvideWatcher)
	do.Provide(injector, providers.ProvideClassifier)
	do.Provide(injector, providers.ProvideMover)
	do.Provide(injector, providers.ProvideDispatcher)

	return injector
}

// Bootstrap initializes every service in dependency order and returns the
// dispatcher, ready to run. The first failure is returned unchanged so its
// error code survives.
func Bootstrap(injector *do.RootScope) (*sorter.Dispatcher, error) {
	if _, err := do.Invoke[*logger.Logger](injector); err != nil {
		return nil, err
	}
	if _, err := do.Invoke[*providers.InstanceLockHandle](injector); err != nil {
		return nil, err
	}
	if _, err := do.Invoke[*providers.WatcherHandle](injector); err != nil {
		return nil, err
	}
	return do.Invoke[*sorter.Dispatcher](injector)
}
