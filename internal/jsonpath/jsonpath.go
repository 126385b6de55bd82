// Package jsonpath wraps the JSONPath evaluator used to apply presentation
// definition field constraints against disclosed credential claims.
package jsonpath

import (
	"context"

	"github.com/PaesslerAG/gval"
	"github.com/PaesslerAG/jsonpath"
	"github.com/pkg/errors"
)

// Compile validates a JSONPath expression without evaluating it.
func Compile(path string) (gval.Evaluable, error) {
	eval, err := jsonpath.New(path)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid JSONPath %q", path)
	}
	return eval, nil
}

// Get evaluates path against doc and returns the selected value. A path that
// selects nothing returns an error.
func Get(path string, doc any) (any, error) {
	eval, err := Compile(path)
	if err != nil {
		return nil, err
	}
	value, err := eval(context.Background(), doc)
	if err != nil {
		return nil, errors.Wrapf(err, "JSONPath %q did not match", path)
	}
	return value, nil
}
