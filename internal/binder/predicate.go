package binder

import (
	"fmt"

	"github.com/cottontaildb/cottontail"
	"github.com/cottontaildb/cottontail/internal/wire"
)

// toPredicate converts a wire.PredicateRequest tree into the
// cottontail.Predicate the planner/executor consume, resolving each
// atom's literal against its column's declared type (§6 atoms).
func toPredicate(entity cottontail.Entity, req wire.PredicateRequest) (cottontail.Predicate, error) {
	switch {
	case req.Atom != nil:
		return toAtom(entity, *req.Atom)
	case req.Composite != nil:
		return toComposite(entity, *req.Composite)
	default:
		return nil, cottontail.NewBindError(cottontail.CodeMissingField, "predicate request has neither atom nor composite")
	}
}

func toAtom(entity cottontail.Entity, req wire.AtomRequest) (cottontail.Atom, error) {
	col, ok := entity.Column(req.Column)
	if !ok {
		return cottontail.Atom{}, cottontail.NewBindError(cottontail.CodeUnknownColumn, fmt.Sprintf("unknown column %s.%s.%s", entity.Schema, entity.Name, req.Column))
	}

	atom := cottontail.Atom{Column: req.Column, Op: req.Op}

	if req.Op == cottontail.OpIsNull {
		return atom, nil
	}

	if req.Op == cottontail.OpIn {
		set := make([]cottontail.Value, len(req.Set))
		for i, raw := range req.Set {
			v, err := anyToValue(raw, col.Type)
			if err != nil {
				return cottontail.Atom{}, err
			}
			set[i] = v
		}
		atom.Set = set
		return atom, nil
	}

	if req.Op == cottontail.OpBetween {
		lo, err := anyToValue(req.Lo, col.Type)
		if err != nil {
			return cottontail.Atom{}, err
		}
		hi, err := anyToValue(req.Hi, col.Type)
		if err != nil {
			return cottontail.Atom{}, err
		}
		atom.Lo, atom.Hi = lo, hi
		return atom, nil
	}

	literal, err := anyToValue(req.Literal, col.Type)
	if err != nil {
		return cottontail.Atom{}, err
	}
	atom.Literal = literal
	return atom, nil
}

func toComposite(entity cottontail.Entity, req wire.CompositeRequest) (cottontail.CompositeCondition, error) {
	if req.Logic == cottontail.LogicNot && len(req.Children) != 1 {
		return cottontail.CompositeCondition{}, cottontail.NewBindError(cottontail.CodeMalformedPredicate, "NOT requires exactly one child")
	}
	children := make([]cottontail.Predicate, len(req.Children))
	for i, c := range req.Children {
		p, err := toPredicate(entity, c)
		if err != nil {
			return cottontail.CompositeCondition{}, err
		}
		children[i] = p
	}
	return cottontail.CompositeCondition{Logic: req.Logic, Conditions: children}, nil
}

// anyToValue converts a JSON-decoded literal (float64, string, bool, or
// []any for vectors) into a cottontail.Value of the declared column
// type.
func anyToValue(raw any, t cottontail.ValueType) (cottontail.Value, error) {
	if raw == nil {
		return cottontail.NullValue(t), nil
	}

	if t.IsVector() {
		items, ok := raw.([]any)
		if !ok {
			return cottontail.Value{}, cottontail.NewTypeError(cottontail.CodeTypeMismatch, "expected an array literal for a vector column")
		}
		floats := make([]float64, len(items))
		for i, item := range items {
			f, ok := item.(float64)
			if !ok {
				return cottontail.Value{}, cottontail.NewTypeError(cottontail.CodeTypeMismatch, "vector literal elements must be numeric")
			}
			floats[i] = f
		}
		return cottontail.DoubleVectorValue(floats), nil
	}

	switch t {
	case cottontail.TypeBoolean:
		b, ok := raw.(bool)
		if !ok {
			return cottontail.Value{}, cottontail.NewTypeError(cottontail.CodeTypeMismatch, "expected a boolean literal")
		}
		return cottontail.BoolValue(b), nil
	case cottontail.TypeString:
		s, ok := raw.(string)
		if !ok {
			return cottontail.Value{}, cottontail.NewTypeError(cottontail.CodeTypeMismatch, "expected a string literal")
		}
		return cottontail.StringValue(s), nil
	default:
		f, ok := raw.(float64)
		if !ok {
			return cottontail.Value{}, cottontail.NewTypeError(cottontail.CodeTypeMismatch, "expected a numeric literal")
		}
		return cottontail.DoubleValue(f), nil
	}
}
