// Package catalog holds the static, ordered list of achievement definitions
// and the single table that says which stat backs each one.
//
// The binding from definition id to stat is data, not code: every entry
// carries a Source, and the evaluator dispatches on Source.Kind. Adding an
// achievement never requires touching evaluation logic.
package catalog

import (
	"errors"
	"fmt"

	"github.com/daviddao/badgekeeper/pkg/model"
)

// SourceKind selects how an achievement's progress is read.
type SourceKind int

const (
	// SourceNone marks an unmapped id. It always evaluates to progress 0.
	SourceNone SourceKind = iota
	// SourceCounter reads an integer counter.
	SourceCounter
	// SourceSetSize reads the cardinality of a string set.
	SourceSetSize
	// SourceFlag reads the moment flag named after the definition id.
	SourceFlag
	// SourceMeta counts other unlocked achievements.
	SourceMeta
)

func (k SourceKind) String() string {
	switch k {
	case SourceCounter:
		return "counter"
	case SourceSetSize:
		return "set"
	case SourceFlag:
		return "flag"
	case SourceMeta:
		return "meta"
	default:
		return "none"
	}
}

// MetaRule names what a meta achievement counts.
type MetaRule int

const (
	// MetaCollector counts unlocked non-secret, non-meta achievements
	// against a fixed requirement.
	MetaCollector MetaRule = iota + 1
	// MetaCompletionist counts the same thing against the total number of
	// non-secret, non-meta definitions.
	MetaCompletionist
	// MetaSecretKeeper counts unlocked secret, non-meta achievements
	// against their total.
	MetaSecretKeeper
)

// Source binds a definition to the stat it reads.
type Source struct {
	Kind SourceKind
	Stat model.StatKey // counter or set key; empty for flags and metas
	Meta MetaRule      // only for SourceMeta
}

// Entry is one catalog row: a definition plus its source.
type Entry struct {
	model.Definition
	Source Source
}

// Catalog is an immutable, validated, ordered set of entries.
type Catalog struct {
	entries      []Entry
	index        map[string]int
	nonSecret    int64
	secret       int64
	secretKeeper string
}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid catalog")

// New validates entries and builds a catalog. Requirements of Completionist
// and Secret Keeper metas are derived from the catalog itself, overwriting
// whatever the entry carried.
func New(entries []Entry) (*Catalog, error) {
	c := &Catalog{
		entries: make([]Entry, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	copy(c.entries, entries)

	for i, e := range c.entries {
		if e.ID == "" {
			return nil, fmt.Errorf("%w: entry %d has no id", ErrInvalid, i)
		}
		if _, dup := c.index[e.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalid, e.ID)
		}
		c.index[e.ID] = i
		if e.SuperSecret && !e.Secret {
			return nil, fmt.Errorf("%w: %q is super-secret but not secret", ErrInvalid, e.ID)
		}
		isMetaSource := e.Source.Kind == SourceMeta
		if e.Meta != isMetaSource {
			return nil, fmt.Errorf("%w: %q meta flag disagrees with its source", ErrInvalid, e.ID)
		}
		switch {
		case e.Meta:
			if e.Source.Meta == MetaSecretKeeper {
				if c.secretKeeper != "" {
					return nil, fmt.Errorf("%w: more than one secret keeper (%q, %q)", ErrInvalid, c.secretKeeper, e.ID)
				}
				c.secretKeeper = e.ID
			}
		case e.Secret:
			c.secret++
		default:
			c.nonSecret++
		}
	}

	for i := range c.entries {
		e := &c.entries[i]
		if e.Meta {
			switch e.Source.Meta {
			case MetaCompletionist:
				e.Requirement = c.nonSecret
			case MetaSecretKeeper:
				e.Requirement = c.secret
			case MetaCollector:
				if e.Requirement > c.nonSecret {
					return nil, fmt.Errorf("%w: %q needs %d unlocks but only %d non-secret achievements exist",
						ErrInvalid, e.ID, e.Requirement, c.nonSecret)
				}
			default:
				return nil, fmt.Errorf("%w: %q has unknown meta rule %d", ErrInvalid, e.ID, e.Source.Meta)
			}
		}
		if e.Requirement < 1 {
			return nil, fmt.Errorf("%w: %q requirement %d < 1", ErrInvalid, e.ID, e.Requirement)
		}
		if e.Source.Kind == SourceFlag && e.Requirement != 1 {
			return nil, fmt.Errorf("%w: flag %q must have requirement 1", ErrInvalid, e.ID)
		}
		if (e.Source.Kind == SourceCounter || e.Source.Kind == SourceSetSize) && e.Source.Stat == "" {
			return nil, fmt.Errorf("%w: %q reads a %s without a stat key", ErrInvalid, e.ID, e.Source.Kind)
		}
	}
	return c, nil
}

// MustNew is New that panics; for package-level catalogs.
func MustNew(entries []Entry) *Catalog {
	c, err := New(entries)
	if err != nil {
		panic(err)
	}
	return c
}

// Len returns the number of definitions.
func (c *Catalog) Len() int { return len(c.entries) }

// Entries returns a copy of the entries in catalog order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Definitions returns the definitions in catalog order.
func (c *Catalog) Definitions() []model.Definition {
	out := make([]model.Definition, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Definition
	}
	return out
}

// Definition looks up a definition by id.
func (c *Catalog) Definition(id string) (model.Definition, bool) {
	i, ok := c.index[id]
	if !ok {
		return model.Definition{}, false
	}
	return c.entries[i].Definition, true
}

// Source returns the stat binding for id. Unknown ids get SourceNone.
func (c *Catalog) Source(id string) Source {
	i, ok := c.index[id]
	if !ok {
		return Source{}
	}
	return c.entries[i].Source
}

// Position returns id's index in catalog order, or -1.
func (c *Catalog) Position(id string) int {
	if i, ok := c.index[id]; ok {
		return i
	}
	return -1
}

// TotalNonSecret is the number of non-secret, non-meta definitions.
func (c *Catalog) TotalNonSecret() int64 { return c.nonSecret }

// TotalSecretExcludingKeeper is the number of secret, non-meta definitions.
func (c *Catalog) TotalSecretExcludingKeeper() int64 { return c.secret }

// SecretKeeperID returns the id of the secret-keeper meta, if any.
func (c *Catalog) SecretKeeperID() string { return c.secretKeeper }
