package cottontail

import (
	"fmt"
	"strings"
)

// CompareOp enumerates the comparison operators a predicate atom may use
// (§6 "atoms compare columns to literal values with operators =, ≠, <,
// ≤, >, ≥, LIKE, IN, BETWEEN, IS NULL").
type CompareOp string

const (
	OpEqual        CompareOp = "="
	OpNotEqual     CompareOp = "!="
	OpLess         CompareOp = "<"
	OpLessEqual    CompareOp = "<="
	OpGreater      CompareOp = ">"
	OpGreaterEqual CompareOp = ">="
	OpLike         CompareOp = "LIKE"
	OpIn           CompareOp = "IN"
	OpBetween      CompareOp = "BETWEEN"
	OpIsNull       CompareOp = "IS NULL"
)

// BoolLogic is the connective of a CompositeCondition.
type BoolLogic string

const (
	LogicAnd BoolLogic = "AND"
	LogicOr  BoolLogic = "OR"
	LogicNot BoolLogic = "NOT"
)

// Predicate is the boolean-predicate tree node interface: either a leaf
// Atom comparing one column to a literal, or a CompositeCondition
// combining child predicates with AND/OR/NOT.
type Predicate interface {
	IsLeaf() bool
	// Eval tests the predicate against a record, widening as Value.Compare
	// and Value.Equals already do. A null column value makes every
	// comparison operator except IS NULL evaluate to false, never error
	// (§7 propagation policy: recoverable conditions handled locally).
	Eval(r Record) (bool, error)
}

// Atom is a leaf predicate: columnName `op` literal (or [lo, hi] for
// BETWEEN, or a literal set for IN).
type Atom struct {
	Column  string
	Op      CompareOp
	Literal Value
	Set     []Value // used by OpIn
	Lo, Hi  Value   // used by OpBetween
}

func (Atom) IsLeaf() bool { return true }

func (a Atom) Eval(r Record) (bool, error) {
	v, ok := r.Get(a.Column)
	if !ok {
		return false, NewBindError(CodeUnknownColumn, "unknown column "+a.Column)
	}
	if a.Op == OpIsNull {
		return v.IsNull(), nil
	}
	if v.IsNull() {
		return false, nil
	}
	switch a.Op {
	case OpEqual:
		return v.Equals(a.Literal)
	case OpNotEqual:
		eq, err := v.Equals(a.Literal)
		if err != nil {
			return false, err
		}
		return !eq, nil
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		c, err := v.Compare(a.Literal)
		if err != nil {
			return false, err
		}
		switch a.Op {
		case OpLess:
			return c < 0, nil
		case OpLessEqual:
			return c <= 0, nil
		case OpGreater:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	case OpLike:
		s, err := v.AsString()
		if err != nil {
			return false, err
		}
		pattern, err := a.Literal.AsString()
		if err != nil {
			return false, err
		}
		return likeMatch(s, pattern), nil
	case OpIn:
		for _, lit := range a.Set {
			eq, err := v.Equals(lit)
			if err != nil {
				return false, err
			}
			if eq {
				return true, nil
			}
		}
		return false, nil
	case OpBetween:
		lo, err := v.Compare(a.Lo)
		if err != nil {
			return false, err
		}
		hi, err := v.Compare(a.Hi)
		if err != nil {
			return false, err
		}
		return lo >= 0 && hi <= 0, nil
	default:
		return false, NewBindError(CodeMalformedPredicate, fmt.Sprintf("unsupported operator %q", a.Op))
	}
}

// likeMatch implements SQL LIKE semantics restricted to the '%' wildcard
// (matches any run of characters); '_' is treated literally, matching the
// subset of LIKE that column predicates require (§6).
func likeMatch(s, pattern string) bool {
	segments := strings.Split(pattern, "%")
	if len(segments) == 1 {
		return s == pattern
	}
	pos := 0
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		switch {
		case i == 0:
			if !strings.HasPrefix(s[pos:], seg) {
				return false
			}
			pos += len(seg)
		case i == len(segments)-1:
			return strings.HasSuffix(s[pos:], seg)
		default:
			idx := strings.Index(s[pos:], seg)
			if idx < 0 {
				return false
			}
			pos += idx + len(seg)
		}
	}
	return true
}

// CompositeCondition combines child predicates under AND/OR/NOT (§6).
// NOT requires exactly one child.
type CompositeCondition struct {
	Logic      BoolLogic
	Conditions []Predicate
}

func (CompositeCondition) IsLeaf() bool { return false }

func (c CompositeCondition) Eval(r Record) (bool, error) {
	switch c.Logic {
	case LogicAnd:
		for _, child := range c.Conditions {
			ok, err := child.Eval(r)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case LogicOr:
		for _, child := range c.Conditions {
			ok, err := child.Eval(r)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case LogicNot:
		if len(c.Conditions) != 1 {
			return false, NewBindError(CodeMalformedPredicate, "NOT requires exactly one child condition")
		}
		ok, err := c.Conditions[0].Eval(r)
		if err != nil {
			return false, err
		}
		return !ok, nil
	default:
		return false, NewBindError(CodeMalformedPredicate, fmt.Sprintf("unknown logic %q", c.Logic))
	}
}
