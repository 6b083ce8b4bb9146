// Package eval implements the boolean expression core used by the
// !eval command: a tokenizer, a shunting-yard infix-to-postfix
// converter, and a postfix evaluator over a truth set.
//
// Ported from original_source/simple_eval.py, generalized to Go and
// extended with the non-associativity rule spec.md §4.1 requires:
// two operators of equal precedence adjacent on the stack without
// parentheses is a syntax error, not a silent left-to-right reduction.
package eval

import (
	"fmt"
	"strings"
)

const (
	opAnd      = '&'
	opOr       = '|'
	opNot      = '~'
	leftParen  = '('
	rightParen = ')'
)

// precedence of each operator/paren rune; parens are 0 so they never
// trigger an operator-vs-operator pop in the shunting yard.
var precedence = map[rune]int{
	leftParen:  0,
	rightParen: 0,
	opAnd:      1,
	opOr:       1,
	opNot:      2,
}

func isOperator(r rune) bool {
	_, ok := precedence[r]
	return ok
}

func isIdentChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}

// InvalidTokenError reports a lexeme at a position the tokenizer,
// shunting-yard, or evaluator rejected (spec.md §4.1, §7).
type InvalidTokenError struct {
	Pos    int
	Lexeme string
}

func (e *InvalidTokenError) Error() string {
	return fmt.Sprintf("Invalid token %s at position %d", e.Lexeme, e.Pos)
}

// Token is a (position, lexeme) pair produced by Tokenize.
type Token struct {
	Position int
	Text     string
}

// Tokenize scans expr into a sequence of tokens. Identifiers
// ([A-Za-z_]+) are accumulated; operators and parentheses flush the
// current identifier and are emitted on their own. Any other
// character fails with InvalidTokenError.
func Tokenize(expr string) ([]Token, error) {
	var tokens []Token
	var buf strings.Builder
	bufStart := -1

	flush := func() {
		if buf.Len() > 0 {
			tokens = append(tokens, Token{Position: bufStart, Text: buf.String()})
			buf.Reset()
			bufStart = -1
		}
	}

	for i, r := range expr {
		switch {
		case isWhitespace(r):
			flush()
		case isOperator(r):
			flush()
			tokens = append(tokens, Token{Position: i, Text: string(r)})
		case isIdentChar(r):
			if bufStart < 0 {
				bufStart = i
			}
			buf.WriteRune(r)
		default:
			return nil, &InvalidTokenError{Pos: i, Lexeme: string(r)}
		}
	}
	flush()
	return tokens, nil
}

// ToPostfix runs the shunting-yard algorithm over tokens, returning
// the expression in postfix (RPN) order. It fails with
// InvalidTokenError when:
//   - a binary operator would pop a same-precedence operator off the
//     stack instead of yielding to it (no implicit left-to-right
//     reduction across equal-precedence operators without parens), or
//   - parentheses are unmatched.
func ToPostfix(tokens []Token) ([]Token, error) {
	var (
		out   []Token
		stack []Token
	)

	pop := func() Token {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return t
	}

	for _, tok := range tokens {
		r := []rune(tok.Text)
		switch {
		case tok.Text == string(leftParen):
			stack = append(stack, tok)

		case tok.Text == string(rightParen):
			matched := false
			for len(stack) > 0 {
				top := pop()
				if top.Text == string(leftParen) {
					matched = true
					break
				}
				out = append(out, top)
			}
			if !matched {
				return nil, &InvalidTokenError{Pos: tok.Position, Lexeme: tok.Text}
			}

		case len(r) == 1 && isOperator(r[0]):
			for len(stack) > 0 {
				top := stack[len(stack)-1]
				topR := []rune(top.Text)
				if len(topR) != 1 || !isOperator(topR[0]) || topR[0] == leftParen {
					break
				}
				switch {
				case precedence[topR[0]] > precedence[r[0]]:
					// strictly higher precedence operator on top: yield
					// to it, the usual shunting-yard pop.
					out = append(out, pop())
				case precedence[topR[0]] == precedence[r[0]]:
					// same-precedence operator sitting on the stack
					// without parens to disambiguate: a syntax error
					// per spec.md §4.1, not a left-to-right reduction.
					return nil, &InvalidTokenError{Pos: tok.Position, Lexeme: tok.Text}
				default:
					goto pushOperator
				}
			}
		pushOperator:
			stack = append(stack, tok)

		default:
			out = append(out, tok)
		}
	}

	for len(stack) > 0 {
		top := pop()
		if top.Text == string(leftParen) || top.Text == string(rightParen) {
			return nil, &InvalidTokenError{Pos: top.Position, Lexeme: top.Text}
		}
		out = append(out, top)
	}

	return out, nil
}

// Eval walks the postfix token stream and evaluates it against
// truths, a set of identifiers considered true. Identifiers absent
// from truths evaluate to false.
func Eval(postfix []Token, truths map[string]bool) (bool, error) {
	var stack []bool

	popBool := func() bool {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}

	for _, tok := range postfix {
		r := []rune(tok.Text)
		switch {
		case len(r) == 1 && r[0] == opNot:
			if len(stack) < 1 {
				return false, &InvalidTokenError{Pos: tok.Position, Lexeme: tok.Text}
			}
			stack = append(stack, !popBool())

		case len(r) == 1 && r[0] == opAnd:
			if len(stack) < 2 {
				return false, &InvalidTokenError{Pos: tok.Position, Lexeme: tok.Text}
			}
			a, b := popBool(), popBool()
			stack = append(stack, a && b)

		case len(r) == 1 && r[0] == opOr:
			if len(stack) < 2 {
				return false, &InvalidTokenError{Pos: tok.Position, Lexeme: tok.Text}
			}
			a, b := popBool(), popBool()
			stack = append(stack, a || b)

		default:
			stack = append(stack, truths[tok.Text])
		}
	}

	if len(stack) != 1 {
		return false, &InvalidTokenError{Pos: 0, Lexeme: ""}
	}
	return stack[0], nil
}

// EvalBool tokenizes, converts to postfix, and evaluates expr against
// truths in one call — the Go equivalent of simple_eval.eval_bool.
func EvalBool(expr string, truths map[string]bool) (bool, error) {
	tokens, err := Tokenize(expr)
	if err != nil {
		return false, err
	}
	postfix, err := ToPostfix(tokens)
	if err != nil {
		return false, err
	}
	return Eval(postfix, truths)
}

// TruthSet builds a truths map from a comma-separated list of
// identifiers, as used by the !eval command's "t1,t2,...:expr" syntax.
func TruthSet(list []string) map[string]bool {
	truths := make(map[string]bool, len(list))
	for _, s := range list {
		s = strings.TrimSpace(s)
		if s != "" {
			truths[s] = true
		}
	}
	return truths
}
