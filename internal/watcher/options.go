package watcher

import (
	"path/filepath"
	"strings"
)

// Backend names accepted by Options.Backend.
const (
	BackendAuto     = "auto"
	BackendInotify  = "inotify"
	BackendFsnotify = "fsnotify"
)

// PartialPatterns match OS metadata files and downloads still in progress.
var PartialPatterns = []string{
	".DS_Store",
	"Thumbs.db",
	"desktop.ini",
	"*.tmp",
	"*.temp",
	"*.crdownload",
	"*.part",
	"*.download",
}

// Options configures the file watcher behavior. The zero value passes every
// entry through.
type Options struct {
	// Backend selects the notification facility: auto, inotify or fsnotify.
	// Auto picks inotify on Linux and fsnotify everywhere else.
	Backend string
	// IgnorePatterns are filepath.Match patterns tested against entry names.
	IgnorePatterns []string
	IgnoreHidden   bool
}

// IgnorePartial returns options that skip hidden entries and PartialPatterns.
func IgnorePartial(backend string) Options {
	return Options{
		Backend:        backend,
		IgnorePatterns: PartialPatterns,
		IgnoreHidden:   true,
	}
}

// setDefaults applies default values to unset options.
func (o *Options) setDefaults() {
	if o.Backend == "" {
		o.Backend = BackendAuto
	}
}

// shouldIgnore checks if an entry name matches ignore patterns.
func (o *Options) shouldIgnore(name string) bool {
	base := filepath.Base(name)

	if o.IgnoreHidden && strings.HasPrefix(base, ".") && base != "." && base != ".." {
		return true
	}

	for _, pattern := range o.IgnorePatterns {
		matched, err := filepath.Match(pattern, base)
		if err == nil && matched {
			return true
		}
	}

	return false
}
