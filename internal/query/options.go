package query

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
)

// OptionLoader fetches the values of a filter option list.
type OptionLoader func(ctx context.Context) ([]string, error)

// OptionList holds the choices for one filter (categories, rarities, ...).
// A failed load leaves it empty; it never reports an error to the view.
type OptionList struct {
	name   string
	load   OptionLoader
	logger *slog.Logger

	mu     sync.RWMutex
	values []string
}

// NewOptionList creates an unloaded option list.
func NewOptionList(name string, load OptionLoader, logger *slog.Logger) *OptionList {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &OptionList{name: name, load: load, logger: logger, values: []string{}}
}

// Load fetches the options and returns them. On failure the list becomes
// empty and the error is logged.
func (o *OptionList) Load(ctx context.Context) []string {
	vals, err := o.load(ctx)
	if err != nil {
		o.logger.WarnContext(ctx, "option list unavailable", "options", o.name, "error", err)
		vals = []string{}
	}
	if vals == nil {
		vals = []string{}
	}
	o.mu.Lock()
	o.values = slices.Clone(vals)
	o.mu.Unlock()
	return vals
}

// Name returns the option list label.
func (o *OptionList) Name() string { return o.name }

// Values returns the loaded options.
func (o *OptionList) Values() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return slices.Clone(o.values)
}

// Contains reports whether v is one of the options, ignoring case.
func (o *OptionList) Contains(v string) bool {
	_, ok := o.Canonical(v)
	return ok
}

// Canonical returns the option equal to v ignoring case.
func (o *OptionList) Canonical(v string) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, opt := range o.values {
		if strings.EqualFold(opt, v) {
			return opt, true
		}
	}
	return "", false
}

// Closest returns the option nearest to v by edit distance, if one is close
// enough to be a plausible typo.
func (o *OptionList) Closest(v string) (string, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "", false
	}
	o.mu.RLock()
	defer o.mu.RUnlock()

	best, bestDist := "", -1
	for _, opt := range o.values {
		d := levenshtein.ComputeDistance(v, strings.ToLower(opt))
		if d > distanceLimit(len(opt)) {
			continue
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = opt, d
		}
	}
	return best, bestDist >= 0
}

func distanceLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}
