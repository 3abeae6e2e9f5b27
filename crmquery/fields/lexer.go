package fields

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Token kinds produced by the lexer
const (
	LParen = "("
	RParen = ")"
)

// Lexer splits a field selection into words and parentheses
type Lexer struct {
	input []rune
	pos   int
}

// NewLexer creates a lexer over s with filter and count qualifiers removed.
// Whitespace is deleted, so "first name" reads as one word.
func NewLexer(s string) *Lexer {
	s = stripSpans(s, '{', '}')
	s = stripSpans(s, '[', ']')
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return &Lexer{input: []rune(s)}
}

// Tokenize returns the word and parenthesis tokens of s
func Tokenize(s string) []string {
	l := NewLexer(s)
	var tokens []string
	for {
		tok, ok := l.Next()
		if !ok {
			return tokens
		}
		tokens = append(tokens, tok)
	}
}

// Next returns the next token, or false at end of input
func (l *Lexer) Next() (string, bool) {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case ch == '(':
			l.pos++
			return LParen, true
		case ch == ')':
			l.pos++
			return RParen, true
		case isWord(ch):
			return l.scanWord(), true
		default:
			// separators and stray brackets
			l.pos++
		}
	}
	return "", false
}

func (l *Lexer) scanWord() string {
	start := l.pos
	for l.pos < len(l.input) && isWord(l.input[l.pos]) {
		l.pos++
	}
	return string(l.input[start:l.pos])
}

func isWord(ch rune) bool {
	return ch == '_' || (ch < unicode.MaxASCII && (unicode.IsLetter(ch) || unicode.IsDigit(ch)))
}

// stripSpans removes every open...close span, each ending at the first close
// after its open. An unterminated open character is dropped on its own.
func stripSpans(s string, open, close rune) string {
	if !strings.ContainsRune(s, open) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for {
		i := strings.IndexRune(s, open)
		if i < 0 {
			sb.WriteString(s)
			return sb.String()
		}
		sb.WriteString(s[:i])
		rest := s[i+utf8.RuneLen(open):]
		j := strings.IndexRune(rest, close)
		if j < 0 {
			s = rest
			continue
		}
		s = rest[j+utf8.RuneLen(close):]
	}
}
