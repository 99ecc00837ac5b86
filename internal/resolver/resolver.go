package resolver

import (
	"errors"
	"fmt"

	"tfvm/internal/expression"
	"tfvm/internal/version"
)

var ErrUnresolvableVersion = errors.New("unresolvable version expression")

// Resolve picks one concrete version for expr out of catalog.
//
// Equality expressions return their anchor verbatim without consulting the
// catalog. Pessimistic and bounded expressions return the highest non
// prerelease entry that satisfies the constraint. The catalog must be sorted
// ascending; Resolve does not sort it.
func Resolve(expr expression.Expression, catalog version.Catalog) (string, error) {
	var match func(version.Version) bool

	switch expr.Kind {
	case expression.Equality:
		return expr.Anchor(), nil
	case expression.Pessimistic:
		lower := expr.First.Version
		upper := PessimisticUpperBound(lower)
		match = func(v version.Version) bool {
			return v.Compare(lower) >= 0 && v.LessThan(upper)
		}
	case expression.Bounded:
		first, second := expr.First, expr.Second
		match = func(v version.Version) bool {
			return first.Op.Holds(v, first.Version) && second.Op.Holds(v, second.Version)
		}
	default:
		return "", fmt.Errorf("%w: unsupported expression kind %s", expression.ErrInvalidExpression, expr.Kind)
	}

	for i := len(catalog) - 1; i >= 0; i-- {
		candidate := catalog[i]
		if candidate.IsPrerelease() {
			continue
		}
		if match(candidate) {
			return candidate.String(), nil
		}
	}
	return "", fmt.Errorf("%w: no release satisfies %q", ErrUnresolvableVersion, expr.String())
}

// PessimisticUpperBound returns the exclusive upper bound of "~> anchor": the
// prerelease is dropped, the last written component is dropped when more than
// one was written, and the new last component is incremented.
//
//	~> 1.2.3  ->  1.3.0
//	~> 1.2    ->  2.0.0
//	~> 1      ->  2.0.0
func PessimisticUpperBound(anchor version.Version) version.Version {
	parts := anchor.Numeric()
	if len(parts) > 1 {
		parts = parts[:len(parts)-1]
	}
	parts[len(parts)-1]++

	upper := version.New(0, 0, 0, "")
	fields := []*uint64{&upper.Major, &upper.Minor, &upper.Patch}
	for i, p := range parts {
		*fields[i] = p
	}
	return upper
}
