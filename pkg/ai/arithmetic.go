package ai

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Arithmetic input is evaluated by a dedicated parser, never by a general
// expression evaluator: only numeric literals, + - * /, unary minus and
// parentheses are reachable.

var errDivisionByZero = errors.New("division by zero")

// isArithmetic reports whether the message looks like a plain arithmetic
// expression: only allow-listed characters, at least one digit and at least
// one operator.
func isArithmetic(message string) bool {
	message = strings.TrimSpace(message)
	if message == "" {
		return false
	}

	hasDigit, hasOperator := false, false
	for _, r := range message {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case r == '+' || r == '-' || r == '*' || r == '/':
			hasOperator = true
		case r == '(' || r == ')' || r == '.' || unicode.IsSpace(r):
		default:
			return false
		}
	}
	return hasDigit && hasOperator
}

// evalArithmetic evaluates the expression with a recursive-descent parser.
func evalArithmetic(expr string) (float64, error) {
	tokens, err := tokenize(expr)
	if err != nil {
		return 0, err
	}

	p := &parser{tokens: tokens}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.tokens) {
		return 0, fmt.Errorf("unexpected token %q", p.tokens[p.pos])
	}
	return v, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func tokenize(expr string) ([]string, error) {
	var tokens []string
	runes := []rune(expr)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case strings.ContainsRune("+-*/()", r):
			tokens = append(tokens, string(r))
			i++
		case unicode.IsDigit(r) || r == '.':
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				i++
			}
			tokens = append(tokens, string(runes[start:i]))
		default:
			return nil, fmt.Errorf("unexpected character %q", r)
		}
	}
	if len(tokens) == 0 {
		return nil, errors.New("empty expression")
	}
	return tokens, nil
}

type parser struct {
	tokens []string
	pos    int
}

func (p *parser) peek() string {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return ""
}

// parseExpr handles + and -.
func (p *parser) parseExpr() (float64, error) {
	v, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case "+":
			p.pos++
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			v += rhs
		case "-":
			p.pos++
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			v -= rhs
		default:
			return v, nil
		}
	}
}

// parseTerm handles * and /.
func (p *parser) parseTerm() (float64, error) {
	v, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case "*":
			p.pos++
			rhs, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			v *= rhs
		case "/":
			p.pos++
			rhs, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			if rhs == 0 {
				return 0, errDivisionByZero
			}
			v /= rhs
		default:
			return v, nil
		}
	}
}

// parseFactor handles literals, parentheses and unary minus.
func (p *parser) parseFactor() (float64, error) {
	switch tok := p.peek(); tok {
	case "":
		return 0, errors.New("unexpected end of expression")
	case "-":
		p.pos++
		v, err := p.parseFactor()
		return -v, err
	case "(":
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ")" {
			return 0, errors.New("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	default:
		p.pos++
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", tok)
		}
		return v, nil
	}
}
