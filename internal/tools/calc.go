// Package tools implements the non-RAG query handlers: calculator, weather
// lookup, web search, todo list, and outgoing mail. Each tool accepts free
// text and fails closed with an error instead of hanging or guessing.
package tools

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/atelier-labs/docent/internal/domain"
)

// Calculation is the result of evaluating a math expression found in text.
type Calculation struct {
	Expression string // normalized expression actually evaluated
	Result     string
}

var (
	mathBlockRe = regexp.MustCompile(`(?i)(?:sqrt|sin|cos|tan|log10|log|exp|pi|\d|\s|[+\-*/%().,^°²³×∙·÷−–—])+`)
	firstMathRe = regexp.MustCompile(`(?i)(sqrt|sin|cos|tan|log10|log|exp|\d)`)

	squaredRe = regexp.MustCompile(`(\d+)\s*²`)
	cubedRe   = regexp.MustCompile(`(\d+)\s*³`)

	inlineTrigRe  = regexp.MustCompile(`(?i)\b(sin|cos|tan)\s*'?\s*([0-9]+(?:\.[0-9]+)?)\b`)
	inlineFuncRe  = regexp.MustCompile(`(?i)\b(sqrt|log10|log|exp)\s*([0-9]+(?:\.[0-9]+)?)\b`)
	trigDegSpace  = regexp.MustCompile(`(?i)\b(sin|cos|tan)\s+([0-9]+(?:\.[0-9]+)?)\s*(?:°|deg\b)`)
	trigCallRe    = regexp.MustCompile(`(?i)\b(sin|cos|tan)\s*\(\s*([^)]+?)\s*\)`)
	degreeValueRe = regexp.MustCompile(`(?i)^([0-9]+(?:\.[0-9]+)?)\s*(?:°|deg)$`)
)

var unicodeOps = strings.NewReplacer(
	",", ".",
	"×", "*",
	"∙", "*",
	"·", "*",
	"÷", "/",
	"−", "-",
	"–", "-",
	"—", "-",
	"**", "^",
)

// Calculate extracts a math expression from free text, normalizes it, and
// evaluates it. Returns domain.ErrEmptyExpression when the text holds
// nothing mathematical.
func Calculate(text string) (Calculation, error) {
	expr := extractExpression(text)
	if expr == "" {
		return Calculation{}, domain.ErrEmptyExpression
	}

	val, err := evalExpression(expr)
	if err != nil {
		return Calculation{Expression: expr}, err
	}
	return Calculation{Expression: expr, Result: formatResult(val)}, nil
}

// extractExpression finds the first math-looking block in free text and
// normalizes it: unicode operators to ASCII, ²/³ to powers, inline and
// degree trigonometric forms to radian calls, unbalanced parens repaired.
func extractExpression(text string) string {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return ""
	}

	// Prose produces several small blocks (stray spaces, hyphens); the
	// expression is the first block that actually carries a digit.
	var expr string
	for _, block := range mathBlockRe.FindAllString(raw, -1) {
		block = strings.TrimSpace(block)
		if block != "" && strings.ContainsAny(block, "0123456789") {
			expr = block
			break
		}
	}
	if expr == "" {
		if loc := firstMathRe.FindStringIndex(raw); loc != nil {
			expr = strings.TrimSpace(raw[loc[0]:])
		} else {
			return ""
		}
	}

	expr = unicodeOps.Replace(expr)
	expr = balanceParens(expr)
	expr = squaredRe.ReplaceAllString(expr, "$1^2")
	expr = cubedRe.ReplaceAllString(expr, "$1^3")

	// "sin 45°" and "sin 45deg" become calls first, so the inline pass
	// below does not strip the degree marker.
	expr = trigDegSpace.ReplaceAllString(expr, "$1($2°)")

	// "sin45", "sin'45" become plain calls in degrees? No: bare inline trig
	// arguments are degrees in practice (copy-pasted homework), converted
	// to radians here.
	expr = inlineTrigRe.ReplaceAllStringFunc(expr, func(m string) string {
		parts := inlineTrigRe.FindStringSubmatch(m)
		deg, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return m
		}
		return fmt.Sprintf("%s(%g)", strings.ToLower(parts[1]), deg*math.Pi/180)
	})
	expr = inlineFuncRe.ReplaceAllString(expr, "$1($2)")

	// "sin(45°)" converts to radians; plain "sin(0.5)" stays untouched.
	expr = trigCallRe.ReplaceAllStringFunc(expr, func(m string) string {
		parts := trigCallRe.FindStringSubmatch(m)
		inner := parts[2]
		dm := degreeValueRe.FindStringSubmatch(inner)
		if dm == nil {
			return m
		}
		deg, err := strconv.ParseFloat(dm[1], 64)
		if err != nil {
			return m
		}
		return fmt.Sprintf("%s(%g)", strings.ToLower(parts[1]), deg*math.Pi/180)
	})

	return strings.TrimSpace(expr)
}

func balanceParens(s string) string {
	open := 0
	var b strings.Builder
	for _, ch := range s {
		switch ch {
		case '(':
			open++
			b.WriteRune(ch)
		case ')':
			if open > 0 {
				open--
				b.WriteRune(ch)
			}
			// excess closing parens are dropped
		default:
			b.WriteRune(ch)
		}
	}
	return b.String() + strings.Repeat(")", open)
}

func formatResult(v float64) string {
	if math.Abs(v-math.Round(v)) < 1e-12 && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(math.Round(v)), 10)
	}
	s := strconv.FormatFloat(v, 'f', 10, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

// --- Expression evaluation ---
//
// Recursive-descent parser over a restricted grammar: numbers, pi/e, the
// whitelisted functions, + - * / % ^ and unary minus. Nothing else parses,
// so arbitrary input cannot reach anything dangerous.

var allowedFuncs = map[string]func(float64) float64{
	"sqrt":  math.Sqrt,
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"log":   math.Log,
	"log10": math.Log10,
	"exp":   math.Exp,
}

var allowedConsts = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

type exprParser struct {
	input []rune
	pos   int
}

func evalExpression(expr string) (float64, error) {
	p := &exprParser{input: []rune(expr)}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected %q at position %d", string(p.input[p.pos]), p.pos)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("result is not a finite number")
	}
	return v, nil
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *exprParser) peek() rune {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			left *= right
		case '/':
			p.pos++
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		case '%':
			p.pos++
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left = math.Mod(left, right)
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseUnary() (float64, error) {
	if p.peek() == '-' {
		p.pos++
		v, err := p.parseUnary()
		return -v, err
	}
	return p.parsePower()
}

func (p *exprParser) parsePower() (float64, error) {
	base, err := p.parseAtom()
	if err != nil {
		return 0, err
	}
	if p.peek() == '^' {
		p.pos++
		// right-associative: 2^3^2 = 2^(3^2)
		exp, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func (p *exprParser) parseAtom() (float64, error) {
	c := p.peek()
	switch {
	case c == '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil

	case c >= '0' && c <= '9' || c == '.':
		return p.parseNumber()

	case c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z':
		return p.parseIdent()

	case c == 0:
		return 0, fmt.Errorf("unexpected end of expression")

	default:
		return 0, fmt.Errorf("unexpected %q at position %d", string(c), p.pos)
	}
}

func (p *exprParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c >= '0' && c <= '9' || c == '.' {
			p.pos++
			continue
		}
		break
	}
	v, err := strconv.ParseFloat(string(p.input[start:p.pos]), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", string(p.input[start:p.pos]))
	}
	return v, nil
}

func (p *exprParser) parseIdent() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		break
	}
	name := strings.ToLower(string(p.input[start:p.pos]))

	if v, ok := allowedConsts[name]; ok {
		return v, nil
	}
	fn, ok := allowedFuncs[name]
	if !ok {
		return 0, fmt.Errorf("unknown symbol %q", name)
	}
	if p.peek() != '(' {
		return 0, fmt.Errorf("function %s requires parentheses", name)
	}
	p.pos++
	arg, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.peek() != ')' {
		return 0, fmt.Errorf("missing closing parenthesis")
	}
	p.pos++
	return fn(arg), nil
}
