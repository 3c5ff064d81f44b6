package cmdargs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli"
)

// ParamsParsingDoc is a documentation for parameters parsing.
const ParamsParsingDoc = `   Parameters are strings by default. To pass an integer use "int:value"
   syntax, "string:value" can be used for strings starting with a type
   prefix. Query parameters are given as key=value pairs, the value follows
   the same rules.
`

var errInvalidParam = errors.New("invalid parameter")

// EnsureNone returns an error if there are any positional arguments present.
// It can be used to check for them in commands that don't accept arguments.
func EnsureNone(ctx *cli.Context) *cli.ExitError {
	if ctx.Args().Present() {
		return cli.NewExitError(fmt.Errorf("unknown arguments: %s", strings.Join(ctx.Args(), ", ")), 1)
	}
	return nil
}

// ParseParam parses a single parameter with an optional type prefix.
func ParseParam(s string) (any, error) {
	typ, val, ok := strings.Cut(s, ":")
	if !ok {
		return s, nil
	}
	switch typ {
	case "int":
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", errInvalidParam, s, err)
		}
		return n, nil
	case "string":
		return val, nil
	default:
		return s, nil
	}
}

// ParsePathParams parses a list of path parameters.
func ParsePathParams(args []string) ([]any, error) {
	var res []any
	for _, a := range args {
		p, err := ParseParam(a)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, nil
}

// ParseQueryParams parses a list of key=value pairs into a flat key, value
// list. Keys are always strings.
func ParseQueryParams(args []string) ([]any, error) {
	var res []any
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w %q: key=value expected", errInvalidParam, a)
		}
		p, err := ParseParam(v)
		if err != nil {
			return nil, err
		}
		res = append(res, k, p)
	}
	return res, nil
}
