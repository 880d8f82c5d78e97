// Package category assigns category labels to ledger entries.
package category

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

// Resolver maps a merchant or description to a category label.
type Resolver interface {
	// Resolve returns "" with a nil error when no mapping exists.
	Resolve(ctx context.Context, description string) (string, error)
	// Learn records that description belongs to category.
	Learn(ctx context.Context, description, category string) error
}

// ResolveOrUnknown resolves description and never fails: a missing mapping,
// a nil resolver or a resolver error all yield model.UnknownCategory. The
// returned error is non-nil only when the resolver was unavailable, so callers
// can count the fallback; the label is usable either way.
func ResolveOrUnknown(ctx context.Context, r Resolver, description string) (string, error) {
	if r == nil || strings.TrimSpace(description) == "" {
		return model.UnknownCategory, nil
	}
	label, err := r.Resolve(ctx, description)
	if err != nil {
		return model.UnknownCategory, errors.Join(common.ErrResolverUnavailable, err)
	}
	if label = strings.TrimSpace(label); label == "" {
		return model.UnknownCategory, nil
	}
	return label, nil
}

var spaceRun = regexp.MustCompile(`\s+`)

// Normalize canonicalizes a description for lookups: trimmed, upper case and
// single-spaced.
func Normalize(description string) string {
	return spaceRun.ReplaceAllString(strings.ToUpper(strings.TrimSpace(description)), " ")
}

// Static is a fixed in-memory mapping keyed by normalized description.
type Static map[string]string

// Resolve implements Resolver.
func (s Static) Resolve(_ context.Context, description string) (string, error) {
	return s[Normalize(description)], nil
}

// Learn implements Resolver.
func (s Static) Learn(_ context.Context, description, category string) error {
	s[Normalize(description)] = category
	return nil
}
