// Package term models the quadratic expansion terms of a response-surface
// design and their canonical string labels.
//
// A term is one of three kinds:
//
//   - Linear:      the raw value of a single factor, labeled "A"
//   - Square:      the squared value of a single factor, labeled "A^2"
//   - Interaction: the product of two distinct factors, labeled "A B"
//
// The label grammar is the stable interchange encoding for selected model
// structures. Encode and Decode are exact inverses; term reconstruction never
// relies on ad hoc string splitting outside this package.
package term

import (
	"fmt"
	"strings"
)

// Kind identifies the shape of an expansion term.
type Kind uint8

const (
	// KindLinear is the raw value of a single factor.
	KindLinear Kind = iota
	// KindSquare is the squared value of a single factor.
	KindSquare
	// KindInteraction is the product of two distinct factors.
	KindInteraction
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindLinear:
		return "linear"
	case KindSquare:
		return "square"
	case KindInteraction:
		return "interaction"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Term is one expansion term of a quadratic response-surface model.
// The zero value is not a valid term; use Linear, Square or Interaction.
type Term struct {
	Kind Kind
	// A is the factor name. For interactions it is the first factor.
	A string
	// B is the second factor of an interaction and empty otherwise.
	B string
}

// Linear returns the linear term for factor a.
func Linear(a string) Term {
	return Term{Kind: KindLinear, A: a}
}

// Square returns the squared term for factor a.
func Square(a string) Term {
	return Term{Kind: KindSquare, A: a}
}

// Interaction returns the interaction term for factors a and b.
// The factor order is preserved as given; pools built by FullQuadratic
// emit interactions in factor-list order.
func Interaction(a, b string) Term {
	return Term{Kind: KindInteraction, A: a, B: b}
}

// Label returns the canonical string encoding of the term.
func (t Term) Label() string {
	switch t.Kind {
	case KindSquare:
		return t.A + "^2"
	case KindInteraction:
		return t.A + " " + t.B
	default:
		return t.A
	}
}

// String returns the canonical label.
func (t Term) String() string { return t.Label() }

// Factors returns the base factors the term depends on: one name for linear
// and square terms, two for interactions.
func (t Term) Factors() []string {
	if t.Kind == KindInteraction {
		return []string{t.A, t.B}
	}
	return []string{t.A}
}

// Eval evaluates the term against factor values supplied by val.
func (t Term) Eval(val func(factor string) float64) float64 {
	switch t.Kind {
	case KindSquare:
		v := val(t.A)
		return v * v
	case KindInteraction:
		return val(t.A) * val(t.B)
	default:
		return val(t.A)
	}
}

// ErrEmptyLabel is returned by Decode for an empty or blank label.
var ErrEmptyLabel = fmt.Errorf("term: empty label")

// Decode parses a canonical term label back into a Term.
// It is the exact inverse of Label.
func Decode(label string) (Term, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Term{}, ErrEmptyLabel
	}

	if name, ok := strings.CutSuffix(label, "^2"); ok {
		if name == "" || strings.ContainsAny(name, " ^") {
			return Term{}, fmt.Errorf("term: malformed square label %q", label)
		}
		return Square(name), nil
	}

	if a, b, ok := strings.Cut(label, " "); ok {
		b = strings.TrimSpace(b)
		if a == "" || b == "" || strings.ContainsAny(b, " ^") || strings.Contains(a, "^") {
			return Term{}, fmt.Errorf("term: malformed interaction label %q", label)
		}
		if a == b {
			return Term{}, fmt.Errorf("term: interaction %q references the same factor twice", label)
		}
		return Interaction(a, b), nil
	}

	if strings.Contains(label, "^") {
		return Term{}, fmt.Errorf("term: malformed label %q", label)
	}

	return Linear(label), nil
}

// DecodeAll parses a list of canonical labels into a Pool.
func DecodeAll(labels []string) (Pool, error) {
	pool := make(Pool, 0, len(labels))
	for _, label := range labels {
		t, err := Decode(label)
		if err != nil {
			return nil, err
		}
		pool = append(pool, t)
	}
	return pool, nil
}

// Pool is an ordered list of expansion terms.
type Pool []Term

// FullQuadratic builds the canonical full quadratic pool for the given
// factors: all linear terms, then all square terms, then all pairwise
// interactions, each group in factor-list order. For k factors the pool has
// 2k + k(k-1)/2 terms.
func FullQuadratic(factors []string) Pool {
	k := len(factors)
	pool := make(Pool, 0, 2*k+k*(k-1)/2)
	for _, f := range factors {
		pool = append(pool, Linear(f))
	}
	for _, f := range factors {
		pool = append(pool, Square(f))
	}
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			pool = append(pool, Interaction(factors[i], factors[j]))
		}
	}
	return pool
}

// FirstOrder builds a linear-only pool in factor-list order.
func FirstOrder(factors []string) Pool {
	pool := make(Pool, 0, len(factors))
	for _, f := range factors {
		pool = append(pool, Linear(f))
	}
	return pool
}

// Labels returns the canonical labels of all terms in order.
func (p Pool) Labels() []string {
	labels := make([]string, len(p))
	for i, t := range p {
		labels[i] = t.Label()
	}
	return labels
}

// Factors returns the distinct base factors referenced by the pool,
// in first-appearance order.
func (p Pool) Factors() []string {
	seen := make(map[string]struct{}, len(p))
	var factors []string
	for _, t := range p {
		for _, f := range t.Factors() {
			if _, ok := seen[f]; !ok {
				seen[f] = struct{}{}
				factors = append(factors, f)
			}
		}
	}
	return factors
}

// Index returns the position of t in the pool, or -1 if absent.
func (p Pool) Index(t Term) int {
	for i, candidate := range p {
		if candidate == t {
			return i
		}
	}
	return -1
}

// Select returns the terms at the given indices, preserving index order.
func (p Pool) Select(indices []int) Pool {
	out := make(Pool, len(indices))
	for i, idx := range indices {
		out[i] = p[idx]
	}
	return out
}
