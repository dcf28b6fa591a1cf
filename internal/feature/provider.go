package feature

import (
	"fmt"
	"sort"
)

// Provider is one keyed record of feature values, checked against a schema
// when it is built.
type Provider struct {
	values map[string]Value
}

// NewProvider validates values against schema. Every schema entry must be
// present and no extra names are accepted.
func NewProvider(values map[string]Value, schema Schema) (Provider, error) {
	for _, d := range schema {
		v, ok := values[d.Name]
		if !ok {
			return Provider{}, fmt.Errorf("%w: missing feature %q", ErrSchemaMismatch, d.Name)
		}
		if err := d.Validate(v); err != nil {
			return Provider{}, err
		}
	}
	for name := range values {
		if _, ok := schema.Lookup(name); !ok {
			return Provider{}, fmt.Errorf("%w: unexpected feature %q", ErrSchemaMismatch, name)
		}
	}
	copied := make(map[string]Value, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return Provider{values: copied}, nil
}

// Value returns the feature stored under name.
func (p Provider) Value(name string) (Value, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Names returns the feature names in sorted order.
func (p Provider) Names() []string {
	names := make([]string, 0, len(p.values))
	for k := range p.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Batch is an ordered, immutable list of records.
type Batch struct {
	providers []Provider
}

// NewBatch copies providers into a Batch.
func NewBatch(providers ...Provider) Batch {
	return Batch{providers: append([]Provider(nil), providers...)}
}

func (b Batch) Len() int { return len(b.providers) }

func (b Batch) At(i int) Provider { return b.providers[i] }
