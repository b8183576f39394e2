package providers

import (
	"github.com/samber/do/v2"

	"github.com/koloyyee/java-sorter/internal/config"
	"github.com/koloyyee/java-sorter/internal/instance"
	"github.com/koloyyee/java-sorter/internal/logger"
)

// InstanceLockHandle wraps the instance lock with shutdown capability.
type InstanceLockHandle struct {
	*instance.Lock
}

// Shutdown implements do.Shutdownable.
func (h *InstanceLockHandle) Shutdown() error {
	return h.Release()
}

// ProvideInstanceLock acquires the per-source instance lock.
func ProvideInstanceLock(i do.Injector) (*InstanceLockHandle, error) {
	cfg, err := do.Invoke[*config.Config](i)
	if err != nil {
		return nil, err
	}
	log, err := do.Invoke[*logger.Logger](i)
	if err != nil {
		return nil, err
	}

	var lock *instance.Lock
	if cfg.Watch.LockDir != "" {
		lock = instance.New(cfg.Watch.LockDir, cfg.Watch.Source, log.Logger)
	} else {
		lock, err = instance.Default(cfg.Watch.Source, log.Logger)
		if err != nil {
			return nil, err
		}
	}

	if err := lock.Acquire(); err != nil {
		return nil, err
	}

	return &InstanceLockHandle{Lock: lock}, nil
}
