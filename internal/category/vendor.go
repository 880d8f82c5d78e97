package category

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
)

const regexVendorsKey = "\x00regex-vendors"

type regexVendor struct {
	re       *regexp.Regexp
	category string
}

// VendorResolver resolves descriptions from the persisted vendor mappings,
// then regex vendors, then the built-in rule matcher. Lookups are cached.
type VendorResolver struct {
	store   service.VendorStore
	matcher *Matcher
	cache   *cache.Cache
	logger  *slog.Logger
}

// NewVendorResolver creates a resolver. matcher may be nil.
func NewVendorResolver(store service.VendorStore, matcher *Matcher, ttl time.Duration, logger *slog.Logger) *VendorResolver {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VendorResolver{
		store:   store,
		matcher: matcher,
		cache:   cache.New(ttl, 2*ttl),
		logger:  logger.With("component", "category_resolver"),
	}
}

// Resolve implements Resolver.
func (r *VendorResolver) Resolve(ctx context.Context, description string) (string, error) {
	key := Normalize(description)
	if key == "" {
		return "", nil
	}
	if cached, ok := r.cache.Get(key); ok {
		return cached.(string), nil
	}

	label, err := r.lookup(ctx, key)
	if err != nil {
		return "", err
	}
	r.cache.SetDefault(key, label)
	return label, nil
}

func (r *VendorResolver) lookup(ctx context.Context, key string) (string, error) {
	vendor, err := r.store.GetVendor(ctx, key)
	switch {
	case err == nil:
		return vendor.Category, nil
	case !errors.Is(err, common.ErrNotFound):
		return "", fmt.Errorf("vendor lookup: %w", err)
	}

	patterns, err := r.regexVendors(ctx)
	if err != nil {
		return "", err
	}
	for _, p := range patterns {
		if p.re.MatchString(key) {
			return p.category, nil
		}
	}

	if r.matcher != nil {
		if rule, ok := r.matcher.Match(key); ok {
			r.logger.Debug("description matched rule", "rule", rule.Name, "category", rule.Category)
			return rule.Category, nil
		}
	}
	return "", nil
}

func (r *VendorResolver) regexVendors(ctx context.Context) ([]regexVendor, error) {
	if cached, ok := r.cache.Get(regexVendorsKey); ok {
		return cached.([]regexVendor), nil
	}
	vendors, err := r.store.GetAllVendors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load vendors: %w", err)
	}
	var out []regexVendor
	for _, v := range vendors {
		if !v.IsRegex {
			continue
		}
		re, err := regexp.Compile("(?i)" + v.Name)
		if err != nil {
			r.logger.Warn("skipping invalid vendor pattern", "pattern", v.Name, "error", err)
			continue
		}
		out = append(out, regexVendor{re: re, category: v.Category})
	}
	r.cache.SetDefault(regexVendorsKey, out)
	return out, nil
}

// Learn implements Resolver by upserting an exact vendor mapping.
func (r *VendorResolver) Learn(ctx context.Context, description, category string) error {
	key := Normalize(description)
	if key == "" || category == "" {
		return nil
	}

	useCount := 1
	if existing, err := r.store.GetVendor(ctx, key); err == nil {
		useCount = existing.UseCount + 1
	} else if !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("vendor lookup: %w", err)
	}

	vendor := &model.Vendor{
		Name:        key,
		Category:    category,
		Source:      model.SourceAuto,
		UseCount:    useCount,
		LastUpdated: time.Now(),
	}
	if err := r.store.SaveVendor(ctx, vendor); err != nil {
		return fmt.Errorf("failed to learn vendor %q: %w", key, err)
	}
	r.cache.SetDefault(key, category)
	return nil
}

// Flush drops every cached lookup.
func (r *VendorResolver) Flush() {
	r.cache.Flush()
}
