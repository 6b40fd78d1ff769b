// Package lexer turns UTF-8 source text into a stream of Tokens (spec.md
// §4.1). Whitespace and line comments are consumed silently; malformed
// input is recorded as an accumulated error and the lexer resynchronizes
// at the next delimiter rather than stopping.
package lexer

import (
	"strings"
	"unicode"

	"github.com/eskemec-lang/eskemec/internal/diag"
	"github.com/eskemec-lang/eskemec/internal/intern"
)

type ErrorKind int

const (
	ErrUnterminatedString ErrorKind = iota
	ErrUnterminatedChar
	ErrIllegalCharacter
	ErrMalformedNumber
)

type LexError struct {
	Kind    ErrorKind
	Message string
	Span    Span
}

func (k ErrorKind) diagnosticCode() diag.Code {
	switch k {
	case ErrUnterminatedString:
		return diag.CodeLexUnterminatedString
	case ErrUnterminatedChar:
		return diag.CodeLexUnterminatedChar
	case ErrMalformedNumber:
		return diag.CodeLexMalformedNumber
	default:
		return diag.CodeLexIllegalCharacter
	}
}

// ToDiagnostic converts a lexer error into a shared diagnostic.
func (e LexError) ToDiagnostic() diag.Diagnostic {
	return diag.Diagnostic{
		Stage:    diag.StageLexer,
		Severity: diag.SeverityError,
		Code:     e.Kind.diagnosticCode(),
		Message:  e.Message,
		Span: diag.Span{
			Filename: e.Span.Filename,
			Line:     e.Span.Line,
			Column:   e.Span.Column,
			Start:    e.Span.ByteOffset,
			End:      e.Span.ByteOffset + e.Span.Length,
		},
	}
}

// delimiters are characters that end an identifier or number without
// being part of it.
func isDelimiter(ch rune) bool {
	switch ch {
	case 0, ' ', '\t', '\n', '\r', '(', ')', '[', ']', '"', ';', '\'':
		return true
	}
	return false
}

// Lexer scans a single source file's runes into Tokens.
type Lexer struct {
	filename string
	input    []rune
	pos      int
	ch       rune
	line     int
	column   int
	interner *intern.Table

	Errors []LexError
}

// New creates a Lexer for filename's contents, interning identifiers and
// strings into tbl.
func New(filename, src string, tbl *intern.Table) *Lexer {
	l := &Lexer{
		filename: filename,
		input:    []rune(src),
		pos:      -1,
		line:     1,
		column:   0,
		interner: tbl,
	}
	l.read()
	return l
}

func (l *Lexer) addError(kind ErrorKind, msg string, span Span) {
	l.Errors = append(l.Errors, LexError{Kind: kind, Message: msg, Span: span})
}

func (l *Lexer) read() {
	l.pos++
	prevPos := l.pos - 1
	n := len(l.input)

	if l.pos >= n {
		if prevPos >= 0 && prevPos < n && l.input[prevPos] == '\n' {
			l.line++
			l.column = 1
		} else if prevPos < 0 {
			l.column = 1
		} else {
			l.column++
		}
		l.ch = 0
		return
	}

	l.ch = l.input[l.pos]
	if prevPos >= 0 && prevPos < n && l.input[prevPos] == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
}

func (l *Lexer) peek() rune {
	if l.pos+1 >= len(l.input) {
		return 0
	}
	return l.input[l.pos+1]
}

func (l *Lexer) here() (line, column, pos int) {
	return l.line, l.column, l.pos
}

func (l *Lexer) makeToken(kind TokenKind, startLine, startColumn, startPos int, raw, value string) Token {
	return Token{
		Kind: kind,
		Raw:  raw,
		Value: value,
		Span: Span{
			Filename:   l.filename,
			Line:       startLine,
			Column:     startColumn,
			ByteOffset: startPos,
			Length:     l.pos - startPos,
		},
	}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.read()
		}
		if l.ch == ';' {
			for l.ch != '\n' && l.ch != 0 {
				l.read()
			}
			continue
		}
		break
	}
}

// Next returns the next token from the input, or an EOF token once the
// input is exhausted.
func (l *Lexer) Next() Token {
	l.skipWhitespaceAndComments()

	startLine, startColumn, startPos := l.here()

	switch {
	case l.ch == 0:
		return l.makeToken(EOF, startLine, startColumn, startPos, "", "")

	case l.ch == '(':
		l.read()
		return l.makeToken(LPAREN, startLine, startColumn, startPos, "(", "")

	case l.ch == ')':
		l.read()
		return l.makeToken(RPAREN, startLine, startColumn, startPos, ")", "")

	case l.ch == '[':
		l.read()
		return l.makeToken(LBRACKET, startLine, startColumn, startPos, "[", "")

	case l.ch == ']':
		l.read()
		return l.makeToken(RBRACKET, startLine, startColumn, startPos, "]", "")

	case l.ch == '\'':
		l.read()
		return l.makeToken(QUOTE, startLine, startColumn, startPos, "'", "")

	case l.ch == '`':
		l.read()
		return l.makeToken(BACKTICK, startLine, startColumn, startPos, "`", "")

	case l.ch == ',':
		l.read()
		if l.ch == '@' {
			l.read()
			return l.makeToken(COMMA_AT, startLine, startColumn, startPos, ",@", "")
		}
		return l.makeToken(COMMA, startLine, startColumn, startPos, ",", "")

	case l.ch == '"':
		return l.readString(startLine, startColumn, startPos)

	case l.ch == '#':
		return l.readHash(startLine, startColumn, startPos)

	case l.ch == '.' && isDelimiter(l.peek()):
		l.read()
		return l.makeToken(DOT, startLine, startColumn, startPos, ".", "")

	case isDigitStart(l.ch, l.peek()):
		return l.readNumber(startLine, startColumn, startPos)

	default:
		return l.readIdentifierLike(startLine, startColumn, startPos)
	}
}

// isDigitStart reports whether ch begins a number: a digit, or a sign
// immediately followed by a digit.
func isDigitStart(ch, next rune) bool {
	if ch >= '0' && ch <= '9' {
		return true
	}
	if (ch == '+' || ch == '-') && next >= '0' && next <= '9' {
		return true
	}
	return false
}

func (l *Lexer) readHash(startLine, startColumn, startPos int) Token {
	l.read() // consume '#'
	switch l.ch {
	case 't':
		l.read()
		return l.makeToken(BOOL, startLine, startColumn, startPos, "#t", "true")
	case 'f':
		l.read()
		return l.makeToken(BOOL, startLine, startColumn, startPos, "#f", "false")
	case '(':
		l.read()
		return l.makeToken(HASH_LPAREN, startLine, startColumn, startPos, "#(", "")
	case '\\':
		return l.readChar(startLine, startColumn, startPos)
	default:
		raw := "#" + string(l.ch)
		l.read()
		l.addError(ErrIllegalCharacter, "illegal character after #: "+raw, Span{
			Filename: l.filename, Line: startLine, Column: startColumn,
			ByteOffset: startPos, Length: l.pos - startPos,
		})
		return l.makeToken(ILLEGAL, startLine, startColumn, startPos, raw, "")
	}
}

var namedChars = map[string]rune{
	"space": ' ', "newline": '\n', "tab": '\t', "return": '\r', "null": 0,
}

func (l *Lexer) readChar(startLine, startColumn, startPos int) Token {
	l.read() // consume backslash
	if l.ch == 0 {
		l.addError(ErrUnterminatedChar, "unterminated character literal", Span{
			Filename: l.filename, Line: startLine, Column: startColumn,
			ByteOffset: startPos, Length: l.pos - startPos,
		})
		return l.makeToken(ILLEGAL, startLine, startColumn, startPos, "#\\", "")
	}

	if isLetter(l.ch) {
		nameStart := l.pos
		for isLetter(l.ch) || isDigit(l.ch) {
			l.read()
		}
		name := string(l.input[nameStart:l.pos])
		if len(name) == 1 {
			return l.makeToken(CHAR, startLine, startColumn, startPos, "#\\"+name, name)
		}
		if r, ok := namedChars[strings.ToLower(name)]; ok {
			return l.makeToken(CHAR, startLine, startColumn, startPos, "#\\"+name, string(r))
		}
		l.addError(ErrIllegalCharacter, "unknown named character #\\"+name, Span{
			Filename: l.filename, Line: startLine, Column: startColumn,
			ByteOffset: startPos, Length: l.pos - startPos,
		})
		return l.makeToken(ILLEGAL, startLine, startColumn, startPos, "#\\"+name, "")
	}

	ch := l.ch
	l.read()
	return l.makeToken(CHAR, startLine, startColumn, startPos, "#\\"+string(ch), string(ch))
}

func (l *Lexer) readString(startLine, startColumn, startPos int) Token {
	l.read() // consume opening quote
	var raw, decoded strings.Builder
	raw.WriteByte('"')

	for {
		if l.ch == 0 || l.ch == '\n' {
			l.addError(ErrUnterminatedString, "unterminated string literal", Span{
				Filename: l.filename, Line: startLine, Column: startColumn,
				ByteOffset: startPos, Length: l.pos - startPos,
			})
			return l.makeToken(ILLEGAL, startLine, startColumn, startPos, raw.String(), "")
		}
		if l.ch == '"' {
			raw.WriteByte('"')
			l.read()
			id := l.interner.Intern(decoded.String())
			return l.makeToken(STRING, startLine, startColumn, startPos, raw.String(), itoa(int(id)))
		}
		if l.ch == '\\' {
			raw.WriteRune(l.ch)
			l.read()
			raw.WriteRune(l.ch)
			switch l.ch {
			case 'n':
				decoded.WriteByte('\n')
			case 't':
				decoded.WriteByte('\t')
			case 'r':
				decoded.WriteByte('\r')
			case '0':
				decoded.WriteByte(0)
			case '\\':
				decoded.WriteByte('\\')
			case '"':
				decoded.WriteByte('"')
			default:
				decoded.WriteRune(l.ch)
			}
			l.read()
			continue
		}
		raw.WriteRune(l.ch)
		decoded.WriteRune(l.ch)
		l.read()
	}
}

func (l *Lexer) readNumber(startLine, startColumn, startPos int) Token {
	if l.ch == '+' || l.ch == '-' {
		l.read()
	}
	for isDigit(l.ch) {
		l.read()
	}
	if l.ch == '.' && isDigit(l.peek()) {
		l.read()
		for isDigit(l.ch) {
			l.read()
		}
	}
	raw := string(l.input[startPos:l.pos])
	if !isDelimiter(l.ch) {
		// trailing garbage glued to the number, e.g. "3x"
		for !isDelimiter(l.ch) {
			l.read()
		}
		raw = string(l.input[startPos:l.pos])
		l.addError(ErrMalformedNumber, "malformed number literal: "+raw, Span{
			Filename: l.filename, Line: startLine, Column: startColumn,
			ByteOffset: startPos, Length: l.pos - startPos,
		})
		return l.makeToken(ILLEGAL, startLine, startColumn, startPos, raw, "")
	}
	return l.makeToken(NUMBER, startLine, startColumn, startPos, raw, raw)
}

// readIdentifierLike scans a maximal run of non-delimiter characters and
// classifies it: the complete tokens ":" and "->" are recognized as
// COLON/ARROW, keywords as KEYWORD, everything else as IDENTIFIER.
func (l *Lexer) readIdentifierLike(startLine, startColumn, startPos int) Token {
	if isDelimiter(l.ch) {
		raw := string(l.ch)
		l.read()
		l.addError(ErrIllegalCharacter, "illegal character "+quoteRune(rune(raw[0])), Span{
			Filename: l.filename, Line: startLine, Column: startColumn,
			ByteOffset: startPos, Length: l.pos - startPos,
		})
		return l.makeToken(ILLEGAL, startLine, startColumn, startPos, raw, "")
	}

	for !isDelimiter(l.ch) {
		l.read()
	}
	raw := string(l.input[startPos:l.pos])

	switch raw {
	case ":":
		return l.makeToken(COLON, startLine, startColumn, startPos, raw, "")
	case "->":
		return l.makeToken(ARROW, startLine, startColumn, startPos, raw, "")
	}

	kind := LookupIdentifier(raw)
	id := l.interner.Intern(raw)
	value := itoa(int(id))
	if kind == KEYWORD {
		value = raw
	}
	return l.makeToken(kind, startLine, startColumn, startPos, raw, value)
}

func isLetter(ch rune) bool {
	return unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func quoteRune(r rune) string {
	return "'" + string(r) + "'"
}
