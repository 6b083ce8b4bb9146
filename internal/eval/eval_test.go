package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalBool_HappyPath(t *testing.T) {
	// S1: !eval foo,bar:foo & bar -> Result: True
	truths := TruthSet([]string{"foo", "bar"})
	got, err := EvalBool("foo & bar", truths)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestEvalBool_False(t *testing.T) {
	// S2: !eval bar:foo -> Result: False
	truths := TruthSet([]string{"bar"})
	got, err := EvalBool("foo", truths)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestEvalBool_SyntaxError(t *testing.T) {
	// S3: !eval :a&&b -> Invalid token & at position 2
	_, err := EvalBool("a&&b", nil)
	require.Error(t, err)
	var tokErr *InvalidTokenError
	require.ErrorAs(t, err, &tokErr)
	assert.Equal(t, "Invalid token & at position 2", tokErr.Error())
}

func TestEvalBool_DeMorgan(t *testing.T) {
	// Invariant 2: ~(a&b)&~(~a|~b) is false for every truth set.
	cases := []map[string]bool{
		{},
		{"a": true},
		{"b": true},
		{"a": true, "b": true},
	}
	for _, truths := range cases {
		got, err := EvalBool("~(a&b)&~(~a|~b)", truths)
		require.NoError(t, err)
		assert.False(t, got, "truths=%v", truths)
	}
}

func TestTokenize_RoundTrip(t *testing.T) {
	// Invariant 1: concatenating lexemes recovers whitespace-stripped input.
	expr := "foo & ( bar | ~baz )"
	tokens, err := Tokenize(expr)
	require.NoError(t, err)

	var rebuilt string
	for _, tok := range tokens {
		rebuilt += tok.Text
	}
	assert.Equal(t, "foo&(bar|~baz)", rebuilt)
}

func TestTokenize_InvalidChar(t *testing.T) {
	_, err := Tokenize("a@b")
	require.Error(t, err)
	var tokErr *InvalidTokenError
	require.ErrorAs(t, err, &tokErr)
	assert.Equal(t, 1, tokErr.Pos)
	assert.Equal(t, "@", tokErr.Lexeme)
}

func TestToPostfix_UnmatchedParen(t *testing.T) {
	tokens, err := Tokenize("(a&b")
	require.NoError(t, err)
	_, err = ToPostfix(tokens)
	require.Error(t, err)
}

func TestToPostfix_UnmatchedClosing(t *testing.T) {
	tokens, err := Tokenize("a&b)")
	require.NoError(t, err)
	_, err = ToPostfix(tokens)
	require.Error(t, err)
}

func TestEvalBool_NotPrecedence(t *testing.T) {
	truths := TruthSet([]string{"a"})
	got, err := EvalBool("~a & ~b", truths)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestEvalBool_Parens(t *testing.T) {
	truths := TruthSet([]string{"a"})
	got, err := EvalBool("(a|b)&(a|~b)", truths)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestEvalBool_UnknownIdentifierIsFalse(t *testing.T) {
	got, err := EvalBool("nope", map[string]bool{})
	require.NoError(t, err)
	assert.False(t, got)
}
