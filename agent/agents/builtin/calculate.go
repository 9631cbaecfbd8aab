package builtin

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/spf13/cast"
	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
)

const (
	calculateMetricName = "CalculateMetric"
	maxDecimals         = 15
)

// CalculateMetric evaluates arithmetic over named business figures, e.g.
// "(revenue - cost) / revenue * 100" with revenue and cost supplied as variables.
type CalculateMetric struct{}

func NewCalculateMetric() (*CalculateMetric, error) {
	return &CalculateMetric{}, nil
}

func (c *CalculateMetric) Descriptor() contractx.Descriptor {
	return contractx.Descriptor{
		Name:        calculateMetricName,
		Description: "Evaluates an arithmetic expression over business figures. Supports + - * / % ^ and parentheses. Use variables to name the inputs.",
		Parameters: map[string]contractx.Parameter{
			"expression": {Type: "string", Description: "Expression to evaluate, e.g. (revenue - cost) / revenue * 100"},
			"variables":  {Type: "object", Description: "Map of variable name to numeric value used in the expression"},
			"decimals":   {Type: "integer", Description: "Round the result to this many decimal places", Default: 2},
		},
		Required: []string{"expression"},
	}
}

type calculateParams struct {
	Expression string         `mapstructure:"expression"`
	Variables  map[string]any `mapstructure:"variables"`
	Decimals   *int           `mapstructure:"decimals"`
}

func (c *CalculateMetric) Perform(_ context.Context, params map[string]any) (string, error) {
	var p calculateParams
	if err := decode(params, &p); err != nil {
		return paramError(err), nil
	}

	expression := strings.TrimSpace(p.Expression)
	if expression == "" {
		return envelope(map[string]any{"status": "error", "message": "expression is required"}), nil
	}

	vars := make(map[string]float64, len(p.Variables))
	for name, raw := range p.Variables {
		v, err := cast.ToFloat64E(raw)
		if err != nil {
			return envelope(map[string]any{"status": "error", "message": fmt.Sprintf("variable %q is not a number", name)}), nil
		}
		vars[strings.ToLower(name)] = v
	}

	result, err := Evaluate(expression, vars)
	if err != nil {
		return envelope(map[string]any{"status": "error", "message": err.Error(), "expression": expression}), nil
	}

	decimals := 2
	if p.Decimals != nil {
		decimals = min(max(*p.Decimals, 0), maxDecimals)
	}
	scale := math.Pow(10, float64(decimals))
	result = math.Round(result*scale) / scale

	return envelope(map[string]any{
		"status":     "success",
		"expression": expression,
		"result":     result,
	}), nil
}

var errUnexpectedEnd = errors.New("unexpected end of expression")

// Evaluate computes expression. Identifiers are looked up case-insensitively in vars.
func Evaluate(expression string, vars map[string]float64) (float64, error) {
	tokens, err := tokenize(expression)
	if err != nil {
		return 0, err
	}
	if len(tokens) == 0 {
		return 0, errors.New("expression is empty")
	}
	e := &evaluator{tokens: tokens, vars: vars}
	value, err := e.sum()
	if err != nil {
		return 0, err
	}
	if e.pos < len(e.tokens) {
		return 0, fmt.Errorf("unexpected %q", e.tokens[e.pos].text)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, errors.New("result is not a finite number")
	}
	return value, nil
}

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokOp
)

type token struct {
	kind  tokenKind
	text  string
	value float64
}

func tokenize(s string) ([]token, error) {
	var out []token
	rs := []rune(s)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsDigit(r) || r == '.':
			start := i
			for i < len(rs) && (unicode.IsDigit(rs[i]) || rs[i] == '.' || rs[i] == ',') {
				i++
			}
			text := strings.ReplaceAll(string(rs[start:i]), ",", "")
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q", string(rs[start:i]))
			}
			out = append(out, token{kind: tokNumber, text: text, value: v})
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(rs) && (unicode.IsLetter(rs[i]) || unicode.IsDigit(rs[i]) || rs[i] == '_') {
				i++
			}
			out = append(out, token{kind: tokIdent, text: string(rs[start:i])})
		case strings.ContainsRune("+-*/%^()", r):
			out = append(out, token{kind: tokOp, text: string(r)})
			i++
		default:
			return nil, fmt.Errorf("invalid character %q", r)
		}
	}
	return out, nil
}

type evaluator struct {
	tokens []token
	pos    int
	vars   map[string]float64
}

func (e *evaluator) accept(op string) bool {
	if e.pos < len(e.tokens) && e.tokens[e.pos].kind == tokOp && e.tokens[e.pos].text == op {
		e.pos++
		return true
	}
	return false
}

func (e *evaluator) sum() (float64, error) {
	left, err := e.product()
	if err != nil {
		return 0, err
	}
	for {
		switch {
		case e.accept("+"):
			right, err := e.product()
			if err != nil {
				return 0, err
			}
			left += right
		case e.accept("-"):
			right, err := e.product()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (e *evaluator) product() (float64, error) {
	left, err := e.power()
	if err != nil {
		return 0, err
	}
	for {
		var op string
		switch {
		case e.accept("*"):
			op = "*"
		case e.accept("/"):
			op = "/"
		case e.accept("%"):
			op = "%"
		default:
			return left, nil
		}
		right, err := e.power()
		if err != nil {
			return 0, err
		}
		switch op {
		case "*":
			left *= right
		case "/":
			if right == 0 {
				return 0, errors.New("division by zero")
			}
			left /= right
		case "%":
			if right == 0 {
				return 0, errors.New("modulo by zero")
			}
			left = math.Mod(left, right)
		}
	}
}

// power is right associative: 2^3^2 == 2^9.
func (e *evaluator) power() (float64, error) {
	base, err := e.unary()
	if err != nil {
		return 0, err
	}
	if !e.accept("^") {
		return base, nil
	}
	exp, err := e.power()
	if err != nil {
		return 0, err
	}
	return math.Pow(base, exp), nil
}

func (e *evaluator) unary() (float64, error) {
	switch {
	case e.accept("+"):
		return e.unary()
	case e.accept("-"):
		v, err := e.unary()
		return -v, err
	}
	return e.primary()
}

func (e *evaluator) primary() (float64, error) {
	if e.pos >= len(e.tokens) {
		return 0, errUnexpectedEnd
	}
	if e.accept("(") {
		v, err := e.sum()
		if err != nil {
			return 0, err
		}
		if !e.accept(")") {
			return 0, errors.New("missing closing parenthesis")
		}
		return v, nil
	}

	tok := e.tokens[e.pos]
	switch tok.kind {
	case tokNumber:
		e.pos++
		return tok.value, nil
	case tokIdent:
		e.pos++
		v, ok := e.vars[strings.ToLower(tok.text)]
		if !ok {
			return 0, fmt.Errorf("unknown variable %q", tok.text)
		}
		return v, nil
	default:
		return 0, fmt.Errorf("unexpected %q", tok.text)
	}
}
