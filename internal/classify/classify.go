// Package classify labels files with a content type such as "image/png".
//
// The dispatcher only depends on the Classifier interface, so the probing
// strategy (magic bytes, file extension, or both) can be swapped freely.
package classify

import (
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/koloyyee/java-sorter/internal/errors"
)

// Classifier kinds accepted by New.
const (
	KindMagic     = "magic"
	KindExtension = "extension"
	KindChain     = "chain"
)

// Classifier returns a content-type label for a path.
//
// An empty label with a nil error means "nothing to act on": the path is not
// a regular file or has vanished. A non-nil error is an I/O failure for this
// path only.
type Classifier interface {
	Classify(path string) (string, error)
}

// Func adapts a plain function to the Classifier interface.
type Func func(path string) (string, error)

// Classify calls f(path).
func (f Func) Classify(path string) (string, error) {
	return f(path)
}

// New returns the classifier registered under kind.
func New(kind string) (Classifier, error) {
	switch kind {
	case KindMagic:
		return Magic{}, nil
	case KindExtension:
		return Extension{}, nil
	case KindChain, "":
		return Chain{Magic{}, Extension{}}, nil
	default:
		return nil, errors.Validation("unknown classifier " + kind)
	}
}

// regularFile reports whether path is a regular file. A vanished path is not
// an error: it was most likely moved by an earlier event.
func regularFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, errors.Wrapf(err, errors.CodeClassification, "stat %s", path)
	}
	return info.Mode().IsRegular(), nil
}

// Magic detects the content type from the file's leading bytes.
type Magic struct{}

// Classify implements Classifier.
func (Magic) Classify(path string) (string, error) {
	ok, err := regularFile(path)
	if err != nil || !ok {
		return "", err
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", errors.Wrapf(err, errors.CodeClassification, "detect %s", path)
	}
	return baseType(mt.String()), nil
}

// Extension maps the file extension to a content type using the system
// MIME tables.
type Extension struct{}

// Classify implements Classifier.
func (Extension) Classify(path string) (string, error) {
	ok, err := regularFile(path)
	if err != nil || !ok {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "", nil
	}
	return baseType(mime.TypeByExtension(ext)), nil
}

// Chain asks each classifier in turn and keeps the first specific answer.
// Generic answers (octet-stream, plain text) are used only when nothing more
// specific turns up.
type Chain []Classifier

// Classify implements Classifier.
func (c Chain) Classify(path string) (string, error) {
	fallback := ""
	for _, classifier := range c {
		label, err := classifier.Classify(path)
		if err != nil {
			return "", err
		}
		if label == "" {
			continue
		}
		if !generic(label) {
			return label, nil
		}
		if fallback == "" {
			fallback = label
		}
	}
	return fallback, nil
}

// generic reports whether a label says little about the content.
func generic(label string) bool {
	return label == "application/octet-stream" || label == "text/plain"
}

// baseType strips parameters such as "; charset=utf-8".
func baseType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.TrimSpace(contentType)
}
