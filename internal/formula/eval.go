// Package formula evaluates author and student math expressions with a
// restricted arithmetic grammar: variables, numeric literals, whitelisted
// functions and constants. No other code can run inside an expression.
package formula

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
)

// ErrUndefinedVariable reports an identifier that is neither a bound
// variable nor a whitelisted function or constant.
var ErrUndefinedVariable = errors.New("undefined variable")

// ErrBadExpression reports an expression that could not be parsed.
var ErrBadExpression = errors.New("cannot parse expression")

func baseEnv() map[string]interface{} {
	return map[string]interface{}{
		"pi": math.Pi,
		"e":  math.E,
		"g":  9.80665,
		"c":  2.998e8,

		"sin":  math.Sin,
		"cos":  math.Cos,
		"tan":  math.Tan,
		"sqrt": math.Sqrt,
		"log":  math.Log10,
		"ln":   math.Log,
		"exp":  math.Exp,
		"abs":  math.Abs,
		"pow":  math.Pow,
	}
}

// rewrite maps author/student notation onto the evaluator grammar: the
// caret is exponentiation in problem content, not XOR.
func rewrite(s string, caseSensitive bool) string {
	s = strings.ReplaceAll(s, "^", "**")
	if !caseSensitive {
		s = strings.ToLower(s)
	}
	return s
}

// Eval evaluates a restricted expression against the given variables.
// Unknown identifiers yield ErrUndefinedVariable, malformed input
// ErrBadExpression; both carry the offending expression context.
func Eval(source string, vars map[string]float64, caseSensitive bool) (float64, error) {
	env := baseEnv()
	for name, v := range vars {
		if !caseSensitive {
			name = strings.ToLower(name)
		}
		env[name] = v
	}
	program, err := expr.Compile(rewrite(source, caseSensitive), expr.Env(env))
	if err != nil {
		if strings.Contains(err.Error(), "unknown name") {
			return 0, ErrUndefinedVariable
		}
		return 0, ErrBadExpression
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return 0, ErrBadExpression
	}
	switch v := out.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, ErrBadExpression
	}
}

// EvalNumber evaluates a numeric answer that may be a complex literal
// ("2+3i") or a real-valued expression ("sqrt(2)/2").
func EvalNumber(source string, vars map[string]float64) (complex128, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(source), " ", "")
	if c, err := strconv.ParseComplex(trimmed, 128); err == nil {
		return c, nil
	}
	v, err := Eval(source, vars, false)
	if err != nil {
		return 0, err
	}
	return complex(v, 0), nil
}
