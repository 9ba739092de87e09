package dsl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func collectTokens(t *testing.T, input string) []Token {
	t.Helper()
	l := NewLexer(input)
	var toks []Token
	for {
		tok, err := l.NextToken()
		require.NoError(t, err)
		toks = append(toks, tok)
		if tok.Kind == TokenEOF {
			break
		}
	}
	return toks
}

func TestLexerTokenizesComponentLine(t *testing.T) {
	toks := collectTokens(t, "R1 in out 10k\n")
	require.Equal(t, TokenIdentifier, toks[0].Kind)
	require.Equal(t, "R1", toks[0].Text)
	require.Equal(t, TokenIdentifier, toks[1].Kind)
	require.Equal(t, "in", toks[1].Text)
	require.Equal(t, TokenIdentifier, toks[2].Kind)
	require.Equal(t, "out", toks[2].Text)
	require.Equal(t, TokenNumber, toks[3].Kind)
	require.Equal(t, "10k", toks[3].Text)
	require.Equal(t, TokenNewline, toks[4].Kind)
	require.Equal(t, TokenEOF, toks[5].Kind)
}

func TestLexerTokenizesDirective(t *testing.T) {
	toks := collectTokens(t, ".input in")
	require.Equal(t, TokenDirective, toks[0].Kind)
	require.Equal(t, ".input", toks[0].Text)
}

func TestLexerSkipsCommentsAndWhitespace(t *testing.T) {
	toks := collectTokens(t, "  # a comment\nR1 a b 1k ; trailing comment\n")
	var kinds []TokenKind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	require.Contains(t, kinds, TokenIdentifier)
	require.NotContains(t, kinds, TokenDirective)
}

func TestLexerParsesNegativeAndScientificNumbers(t *testing.T) {
	toks := collectTokens(t, "-5 1.5e-3 100n")
	require.Equal(t, "-5", toks[0].Text)
	require.Equal(t, "1.5e-3", toks[1].Text)
	require.Equal(t, "100n", toks[2].Text)
}

func TestLexerParsesModelParenExpression(t *testing.T) {
	toks := collectTokens(t, "GERM D(is=1e-6 n=1.5)")
	var kinds []TokenKind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	require.Contains(t, kinds, TokenOpenParen)
	require.Contains(t, kinds, TokenCloseParen)
	require.Contains(t, kinds, TokenEquals)
}

func TestLexerRejectsUnknownCharacter(t *testing.T) {
	l := NewLexer("R1 a b @")
	var err error
	for i := 0; i < 10; i++ {
		var tok Token
		tok, err = l.NextToken()
		if err != nil || tok.Kind == TokenEOF {
			break
		}
	}
	require.Error(t, err)
}
