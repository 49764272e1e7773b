// Package ordering computes the deterministic order in which plugins of one
// extension point are applied.
//
// Two orders exist. ByComponent ranks plugins by the component that declared
// them: framework components first, third-party components next, the host's
// own component last, so the host can override what the framework set up.
// ByAttribute orders pipeline middleware by its explicit order attribute.
// Both break ties by catalog discovery order.
package ordering

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/km-arc/pibox/framework/catalog"
)

// DefaultReservedPrefix is the component-name prefix reserved for framework
// components.
const DefaultReservedPrefix = "PiBox"

// Rank is the component tier of a plugin. Lower ranks are applied first.
type Rank int

const (
	// RankFramework is the rank of plugins from components whose name begins
	// with the reserved prefix.
	RankFramework Rank = iota

	// RankOther is the rank of plugins from every other component.
	RankOther

	// RankHost is the rank of plugins from the host's entry component.
	RankHost
)

// String returns the human-readable name of the rank.
func (r Rank) String() string {
	switch r {
	case RankFramework:
		return "framework"
	case RankOther:
		return "other"
	case RankHost:
		return "host"
	default:
		return "unknown"
	}
}

// Entry is a plugin paired with its zero-based position in the applied order.
type Entry[T any] struct {
	Index  int
	Plugin T
}

// Policy ranks plugins against a catalog.
type Policy struct {
	catalog *catalog.Catalog
	prefix  string
}

// Option configures a Policy.
type Option func(*Policy)

// WithReservedPrefix replaces DefaultReservedPrefix.
func WithReservedPrefix(prefix string) Option {
	return func(p *Policy) { p.prefix = prefix }
}

// NewPolicy creates a policy for plugins discovered in cat.
func NewPolicy(cat *catalog.Catalog, opts ...Option) *Policy {
	p := &Policy{catalog: cat, prefix: DefaultReservedPrefix}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Catalog returns the catalog the policy ranks against.
func (p *Policy) Catalog() *catalog.Catalog { return p.catalog }

// Rank returns the tier of comp. A reserved-prefix name takes precedence
// over the host flag: framework code always establishes the baseline.
func (p *Policy) Rank(comp *catalog.Component) Rank {
	switch {
	case comp == nil:
		return RankOther
	case p.prefix != "" && hasPrefixFold(comp.Name(), p.prefix):
		return RankFramework
	case comp.IsHost():
		return RankHost
	default:
		return RankOther
	}
}

// RankOf returns the tier of the component that declared plugin's type.
// Plugins whose type is not in the catalog rank as RankOther.
func (p *Policy) RankOf(plugin any) Rank {
	t, ok := p.catalog.LookupValue(plugin)
	if !ok {
		return RankOther
	}
	return p.Rank(t.Component())
}

// ── Orders ────────────────────────────────────────────────────────────────────

// key is the sort key of one plugin: primary, then discovery position, then
// input position for plugins unknown to the catalog.
type key struct {
	primary  int
	position int
	input    int
}

// ByComponent orders plugins by (rank, discovery order).
func ByComponent[T any](p *Policy, plugins []T) []Entry[T] {
	return sortBy(p, plugins, func(t *catalog.Type) int {
		if t == nil {
			return int(RankOther)
		}
		return int(p.Rank(t.Component()))
	})
}

// ByAttribute orders plugins by their explicit order attribute, ascending.
// Plugins without one run after all ordered plugins. Ties keep discovery
// order.
func ByAttribute[T any](p *Policy, plugins []T) []Entry[T] {
	return sortBy(p, plugins, func(t *catalog.Type) int {
		if t == nil {
			return math.MaxInt
		}
		if order, ok := t.Order(); ok {
			return order
		}
		return math.MaxInt
	})
}

func sortBy[T any](p *Policy, plugins []T, primary func(*catalog.Type) int) []Entry[T] {
	type keyed struct {
		key    key
		plugin T
	}
	items := make([]keyed, len(plugins))
	for i, plugin := range plugins {
		t, ok := p.catalog.LookupValue(plugin)
		position := math.MaxInt
		if ok {
			position = p.catalog.Position(t)
		} else {
			t = nil
		}
		items[i] = keyed{key: key{primary: primary(t), position: position, input: i}, plugin: plugin}
	}

	slices.SortStableFunc(items, func(a, b keyed) int {
		return compareKeys(a.key, b.key)
	})

	out := make([]Entry[T], len(items))
	for i, it := range items {
		out[i] = Entry[T]{Index: i, Plugin: it.plugin}
	}
	return out
}

func compareKeys(a, b key) int {
	switch {
	case a.primary != b.primary:
		return cmp.Compare(a.primary, b.primary)
	case a.position != b.position:
		return cmp.Compare(a.position, b.position)
	default:
		return cmp.Compare(a.input, b.input)
	}
}

// hasPrefixFold compares rune by rune, since case-folded runes can differ in
// encoded length.
func hasPrefixFold(s, prefix string) bool {
	for _, want := range prefix {
		got, size := utf8.DecodeRuneInString(s)
		if size == 0 || !strings.EqualFold(string(got), string(want)) {
			return false
		}
		s = s[size:]
	}
	return true
}
