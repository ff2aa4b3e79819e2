package segment

import (
	"fmt"
	"sort"

	"github.com/ElectronicsArchiver/splat/internal/addr"
	"github.com/ElectronicsArchiver/splat/internal/config"
)

// Constructor builds a concrete segment from its descriptor and
// resolved range.
type Constructor func(desc Descriptor, rng addr.Range, opts *config.Options) (Segment, error)

// registry maps type tags to constructors. Resolved once per
// descriptor at graph-build time; unknown tags are rejected explicitly
// rather than silently defaulted.
var registry = map[string]Constructor{}

// Register installs a constructor for a type tag. Built-in types
// register from init; external segment-type packages register theirs
// the same way. Re-registering a tag panics: two behaviors for one tag
// is a programming error, not a configuration error.
func Register(tag string, ctor Constructor) {
	if _, exists := registry[tag]; exists {
		panic(fmt.Sprintf("segment: type tag %q registered twice", tag))
	}
	registry[tag] = ctor
}

// Lookup resolves a type tag, failing with an UnknownSegmentType build
// error when no behavior is registered.
func Lookup(tag string) (Constructor, error) {
	ctor, ok := registry[tag]
	if !ok {
		return nil, &BuildError{
			Code:    ErrCodeUnknownType,
			Message: fmt.Sprintf("no behavior registered for type tag %q (known: %v)", tag, registeredTags()),
		}
	}
	return ctor, nil
}

func registeredTags() []string {
	tags := make([]string, 0, len(registry))
	for tag := range registry {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
