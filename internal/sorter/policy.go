package sorter

import (
	"path/filepath"
	"strings"
)

// Rule names the routing rule that picked a destination.
type Rule string

// Routing rules, in precedence order.
const (
	RuleImage       Rule = "image"
	RuleKeyword     Rule = "keyword"
	RuleDestination Rule = "destination"
)

// ImagesDirName is the bucket created under the desktop for images.
const ImagesDirName = "images"

// Rules is the routing configuration for one sorter run.
type Rules struct {
	// Keyword routes files whose name contains it to Destination/Keyword.
	// Matching is a case-sensitive substring test.
	Keyword string
	// Destination is the explicitly configured target directory, if any.
	Destination string
	// ImagesDir receives images when no Destination is configured.
	ImagesDir string
}

// Decision is the destination picked for one file.
type Decision struct {
	Dir  string
	Rule Rule
}

// Route picks exactly one destination for a classified file. The first
// matching rule wins:
//  1. label contains "image" and no destination is configured: ImagesDir
//  2. keyword set and contained in name: Destination/Keyword
//  3. destination configured: Destination
//
// ok is false when nothing matches; that is a deliberate no-op.
func Route(label, name string, rules Rules) (Decision, bool) {
	if strings.Contains(label, "image") && rules.Destination == "" && rules.ImagesDir != "" {
		return Decision{Dir: rules.ImagesDir, Rule: RuleImage}, true
	}

	// A keyword bucket only exists under an explicit destination.
	if rules.Keyword != "" && rules.Destination != "" && strings.Contains(name, rules.Keyword) {
		return Decision{Dir: filepath.Join(rules.Destination, rules.Keyword), Rule: RuleKeyword}, true
	}

	if rules.Destination != "" {
		return Decision{Dir: rules.Destination, Rule: RuleDestination}, true
	}

	return Decision{}, false
}
