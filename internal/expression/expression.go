package expression

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"tfvm/internal/version"
)

var (
	ErrInvalidExpression  = errors.New("invalid version expression")
	ErrUnparseableVersion = errors.New("unparseable version in expression")
)

// Kind identifies the form of an expression.
type Kind int

const (
	Equality Kind = iota
	Pessimistic
	Bounded
)

func (k Kind) String() string {
	switch k {
	case Equality:
		return "equality"
	case Pessimistic:
		return "pessimistic"
	case Bounded:
		return "bounded"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Operator is a comparison used by Bounded expressions.
type Operator string

const (
	OpEqual        Operator = "="
	OpGreaterEqual Operator = ">="
	OpGreater      Operator = ">"
	OpLessEqual    Operator = "<="
	OpLess         Operator = "<"
	OpPessimistic  Operator = "~>"
)

// Holds reports whether "candidate op anchor" is true.
func (op Operator) Holds(candidate, anchor version.Version) bool {
	c := candidate.Compare(anchor)
	switch op {
	case OpGreaterEqual:
		return c >= 0
	case OpGreater:
		return c > 0
	case OpLessEqual:
		return c <= 0
	case OpLess:
		return c < 0
	case OpEqual:
		return c == 0
	default:
		return false
	}
}

func (op Operator) bounded() bool {
	switch op {
	case OpGreaterEqual, OpGreater, OpLessEqual, OpLess:
		return true
	}
	return false
}

// Clause is one "operator version" pair.
type Clause struct {
	Op      Operator
	Version version.Version
	// Text is the version exactly as written.
	Text string
}

func (c Clause) String() string {
	return string(c.Op) + " " + c.Text
}

// Expression is a parsed version constraint.
//
// Equality and Pessimistic use only First. Bounded always carries both
// clauses; a single-clause input duplicates First into Second.
type Expression struct {
	Kind   Kind
	First  Clause
	Second Clause
	Raw    string
}

// Anchor is the version the expression is built around.
func (e Expression) Anchor() string {
	return e.First.Text
}

func (e Expression) String() string {
	switch e.Kind {
	case Equality:
		return e.First.Text
	case Pessimistic:
		return e.First.String()
	default:
		if e.First == e.Second {
			return e.First.String()
		}
		return e.First.String() + ", " + e.Second.String()
	}
}

var (
	// leadRegex splits a clause into its operator and operand. Longer operators
	// come first so ">=" never reads as ">".
	leadRegex = regexp.MustCompile(`(?s)^(~>|>=|<=|>|<|=)?\s*(.*)$`)

	tokenRegex  = regexp.MustCompile(`^` + version.Token + `$`)
	tripleRegex = regexp.MustCompile(`^\d+\.\d+\.\d+(?:-\w+)?$`)
)

// Parse reads a version expression:
//
//	1.2.3 | = 1.2.3       equality
//	~> 1.2                pessimistic
//	>= 1.0, < 2.0         bounded (one or two clauses)
func Parse(raw string) (Expression, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Expression{}, fmt.Errorf("%w: empty expression", ErrInvalidExpression)
	}

	parts := strings.Split(trimmed, ",")
	if len(parts) > 2 {
		return Expression{}, fmt.Errorf("%w: %q has more than two clauses", ErrInvalidExpression, raw)
	}

	first, err := splitClause(parts[0], raw)
	if err != nil {
		return Expression{}, err
	}

	expr := Expression{Raw: raw, First: first}
	switch {
	case first.Op == "" || first.Op == OpEqual:
		expr.Kind = Equality
		if len(parts) == 2 {
			return Expression{}, fmt.Errorf("%w: %q equality takes a single version", ErrInvalidExpression, raw)
		}
		if !tripleRegex.MatchString(first.Text) {
			return Expression{}, fmt.Errorf("%w: %q equality needs major.minor.patch", ErrInvalidExpression, raw)
		}
		expr.First.Op = OpEqual
	case first.Op == OpPessimistic:
		expr.Kind = Pessimistic
		if len(parts) == 2 {
			return Expression{}, fmt.Errorf("%w: %q pessimistic constraint takes a single clause", ErrInvalidExpression, raw)
		}
	default:
		expr.Kind = Bounded
		expr.Second = first
		if len(parts) == 2 {
			second, err := splitClause(parts[1], raw)
			if err != nil {
				return Expression{}, err
			}
			if !second.Op.bounded() {
				return Expression{}, fmt.Errorf("%w: %q second clause needs one of >=, >, <=, <", ErrInvalidExpression, raw)
			}
			if err := parseOperand(&second, raw); err != nil {
				return Expression{}, err
			}
			expr.Second = second
		}
	}

	if err := parseOperand(&expr.First, raw); err != nil {
		return Expression{}, err
	}
	if expr.Kind == Bounded && len(parts) == 1 {
		expr.Second = expr.First
	}
	return expr, nil
}

// MustParse is Parse for literals; it panics on error.
func MustParse(raw string) Expression {
	e, err := Parse(raw)
	if err != nil {
		panic(fmt.Sprintf("expression.MustParse: %v", err))
	}
	return e
}

// splitClause checks the outer shape of one clause: a known operator (or a
// bare version starting with a digit) followed by a non-empty operand.
func splitClause(part, raw string) (Clause, error) {
	part = strings.TrimSpace(part)
	m := leadRegex.FindStringSubmatch(part)
	op, operand := Operator(m[1]), strings.TrimSpace(m[2])
	if operand == "" {
		return Clause{}, fmt.Errorf("%w: %q has no version", ErrInvalidExpression, raw)
	}
	if op == "" && (operand[0] < '0' || operand[0] > '9') {
		return Clause{}, fmt.Errorf("%w: %q", ErrInvalidExpression, raw)
	}
	return Clause{Op: op, Text: operand}, nil
}

func parseOperand(c *Clause, raw string) error {
	if !tokenRegex.MatchString(c.Text) {
		return fmt.Errorf("%w: %q in %q", ErrUnparseableVersion, c.Text, raw)
	}
	v, err := version.Parse(c.Text)
	if err != nil {
		return fmt.Errorf("%w: %q in %q: %v", ErrUnparseableVersion, c.Text, raw, err)
	}
	c.Version = v
	return nil
}
