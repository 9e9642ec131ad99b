package lexer

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// Lexer scans vorth source text into a stream of Token values. It is driven
// one token at a time via Next, mirroring the lazy token-stream shape of a
// hand-rolled scanner: the whole source is held in memory (compilation units
// are source files, not an open-ended stream) but tokens are produced on
// demand so a caller that only wants to peek ahead a little (the parser)
// never forces the rest of the file to be scanned.
type Lexer struct {
	src  []byte
	pos  int // byte offset into src
	line int // 1-indexed
	col  int // 1-indexed, in display columns (accounts for wide runes)

	done bool
}

// New creates a Lexer over the given source text.
func New(src []byte) *Lexer {
	return &Lexer{src: src, pos: 0, line: 1, col: 1}
}

func (lx *Lexer) atEOF() bool {
	return lx.pos >= len(lx.src)
}

// peekRune returns the rune at the current position and its byte width,
// without consuming it. It returns (0, 0) at EOF.
func (lx *Lexer) peekRune() (rune, int) {
	if lx.atEOF() {
		return 0, 0
	}
	r, size := utf8.DecodeRune(lx.src[lx.pos:])
	return r, size
}

// peekRuneAt looks ahead n runes from the current position without
// consuming anything. It returns (0, false) if that position is past EOF.
func (lx *Lexer) peekRuneAt(n int) (rune, bool) {
	p := lx.pos
	for i := 0; i < n; i++ {
		if p >= len(lx.src) {
			return 0, false
		}
		_, size := utf8.DecodeRune(lx.src[p:])
		p += size
	}
	if p >= len(lx.src) {
		return 0, false
	}
	r, _ := utf8.DecodeRune(lx.src[p:])
	return r, true
}

// advance consumes and returns the current rune, updating line/col.
func (lx *Lexer) advance() rune {
	r, size := utf8.DecodeRune(lx.src[lx.pos:])
	lx.pos += size
	if r == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col += runeDisplayWidth(r)
	}
	return r
}

// runeDisplayWidth returns the number of display columns a rune occupies,
// using x/text/width so that wide (East Asian fullwidth/wide) runes advance
// column positions correctly in diagnostics.
func runeDisplayWidth(r rune) int {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	case width.EastAsianAmbiguous:
		return 1
	default:
		return 1
	}
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\r', '\n', '\v':
		return true
	}
	return false
}

// Next scans and returns the next Token. Once end of input is reached, every
// subsequent call returns a KindEOF token at the final position.
func (lx *Lexer) Next() (Token, *LexError) {
	for {
		lx.skipSpace()
		if lx.atEOF() {
			lx.done = true
			return Token{Kind: KindEOF, Line: lx.line, Column: lx.col}, nil
		}

		startLine, startCol := lx.line, lx.col
		r, _ := lx.peekRune()

		switch {
		case r == '\\' && followedByBoundary(lx, 1):
			tok, skip := lx.scanLineComment(startLine, startCol)
			if skip {
				continue
			}
			return tok, nil
		case r == '(' && followedByBoundary(lx, 1):
			tok, err := lx.scanParenComment(startLine, startCol)
			if err != nil {
				return Token{}, err
			}
			return tok, nil
		case r == '.' && peekIs(lx, 1, '"'):
			return lx.scanString(startLine, startCol)
		default:
			return lx.scanAtom(startLine, startCol)
		}
	}
}

// followedByBoundary reports whether the rune n positions ahead of the
// current one is whitespace or EOF (used to require that `\` and `(` are
// "surrounded by whitespace" per spec sec 4.1).
func followedByBoundary(lx *Lexer, n int) bool {
	r, ok := lx.peekRuneAt(n)
	if !ok {
		return true
	}
	return isSpace(r)
}

func peekIs(lx *Lexer, n int, want rune) bool {
	r, ok := lx.peekRuneAt(n)
	return ok && r == want
}

func (lx *Lexer) skipSpace() {
	for {
		r, size := lx.peekRune()
		if size == 0 || !isSpace(r) {
			return
		}
		lx.advance()
	}
}

// scanLineComment consumes a `\` line comment through end of line (or EOF).
// The second return is always false; it exists so the call site in Next can
// continue its loop uniformly with the paren-comment branch, which may need
// to skip whitespace-only comments too. Line comments are returned as
// KindLineComment tokens rather than silently discarded, per the AST's
// contract to preserve comments for round-tripping (spec sec 8, property 1).
func (lx *Lexer) scanLineComment(line, col int) (Token, bool) {
	lx.advance() // consume '\'
	start := lx.pos
	for {
		r, size := lx.peekRune()
		if size == 0 || r == '\n' {
			break
		}
		lx.advance()
	}
	text := strings.TrimSpace(string(lx.src[start:lx.pos]))
	return Token{Kind: KindLineComment, Text: text, Line: line, Column: col}, false
}

// scanParenComment consumes a `(` comment, tracking nesting depth, and
// classifies it as a stack-effect comment when it contains a `--` divider.
func (lx *Lexer) scanParenComment(line, col int) (Token, *LexError) {
	lx.advance() // consume '('
	depth := 1
	start := lx.pos
	for depth > 0 {
		r, size := lx.peekRune()
		if size == 0 {
			return Token{}, &LexError{Kind: UnterminatedComment, Position: Location{Line: line, Column: col}}
		}
		if r == '(' {
			depth++
		} else if r == ')' {
			depth--
			if depth == 0 {
				inner := string(lx.src[start:lx.pos])
				lx.advance() // consume closing ')'
				return classifyParenComment(inner, line, col), nil
			}
		}
		lx.advance()
	}
	// unreachable
	return Token{}, &LexError{Kind: UnterminatedComment, Position: Location{Line: line, Column: col}}
}

func classifyParenComment(inner string, line, col int) Token {
	fields := strings.Fields(inner)
	dashIdx := -1
	for i, f := range fields {
		if f == "--" {
			dashIdx = i
			break
		}
	}
	if dashIdx < 0 {
		return Token{Kind: KindParenComment, Text: strings.TrimSpace(inner), Line: line, Column: col}
	}
	return Token{
		Kind: KindStackEffectComment,
		Text: strings.TrimSpace(inner),
		StackEffect: StackEffectSig{
			Inputs:  append([]string{}, fields[:dashIdx]...),
			Outputs: append([]string{}, fields[dashIdx+1:]...),
		},
		Line:   line,
		Column: col,
	}
}

// scanString consumes a `." ... "` string literal, expanding escapes.
func (lx *Lexer) scanString(line, col int) (Token, *LexError) {
	lx.advance() // '.'
	lx.advance() // '"'
	if r, size := lx.peekRune(); size > 0 && isSpace(r) {
		lx.advance() // the delimiting space is not part of the string
	}

	var sb strings.Builder
	for {
		r, size := lx.peekRune()
		if size == 0 {
			return Token{}, &LexError{Kind: UnterminatedString, Position: Location{Line: line, Column: col}}
		}
		if r == '"' {
			lx.advance()
			return Token{Kind: KindString, Text: sb.String(), StringVal: sb.String(), Line: line, Column: col}, nil
		}
		if r == '\\' {
			lx.advance()
			esc, size := lx.peekRune()
			if size == 0 {
				return Token{}, &LexError{Kind: UnterminatedString, Position: Location{Line: line, Column: col}}
			}
			lx.advance()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			default:
				// unrecognized escape: keep literally, matching the
				// conservative behavior of not silently eating characters.
				sb.WriteByte('\\')
				sb.WriteRune(esc)
			}
			continue
		}
		lx.advance()
		sb.WriteRune(r)
	}
}

// scanAtom consumes a maximal run of non-whitespace characters and classifies
// it as punctuation, a reserved construct, a literal, or a word.
func (lx *Lexer) scanAtom(line, col int) (Token, *LexError) {
	start := lx.pos
	for {
		r, size := lx.peekRune()
		if size == 0 || isSpace(r) {
			break
		}
		lx.advance()
	}
	text := string(lx.src[start:lx.pos])
	return classifyAtom(text, line, col)
}

func classifyAtom(text string, line, col int) (Token, *LexError) {
	switch text {
	case ":":
		return Token{Kind: KindColon, Text: text, Line: line, Column: col}, nil
	case ";":
		return Token{Kind: KindSemicolon, Text: text, Line: line, Column: col}, nil
	}
	if kind, ok := reservedWords[text]; ok {
		return Token{Kind: kind, Text: text, Line: line, Column: col}, nil
	}

	if looksLikeNumber(text) {
		if iv, err := strconv.ParseInt(text, 10, 64); err == nil {
			return Token{Kind: KindInt, Text: text, IntVal: iv, Line: line, Column: col}, nil
		}
		if isFloatShape(text) {
			if fv, err := strconv.ParseFloat(text, 64); err == nil {
				return Token{Kind: KindFloat, Text: text, FloatVal: fv, Line: line, Column: col}, nil
			}
		}
		return Token{}, &LexError{Kind: InvalidNumber, Position: Location{Line: line, Column: col}, Detail: text}
	}

	return Token{Kind: KindWord, Text: text, Line: line, Column: col}, nil
}

// looksLikeNumber decides whether an atom should be scanned as a numeric
// literal at all, vs. a word that merely happens to start with a digit (e.g.
// "2dup", "2>r", per spec sec 4.1's explicit examples). An atom is only a
// number candidate if, after an optional leading sign, every remaining
// character is a digit, a single '.', or part of an exponent ('e'/'E' with
// an optional sign) -- i.e. the whole atom's charset is numeric.
func looksLikeNumber(s string) bool {
	if s == "" {
		return false
	}
	i := 0
	if s[0] == '+' || s[0] == '-' {
		i = 1
	}
	if i >= len(s) {
		return false
	}
	if s[i] < '0' || s[i] > '9' {
		if s[i] != '.' || i+1 >= len(s) || s[i+1] < '0' || s[i+1] > '9' {
			return false
		}
	}
	sawDigitAfterSign := false
	for ; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			sawDigitAfterSign = true
		case c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-':
			// allowed punctuation within a numeric atom; validated more
			// strictly by isFloatShape / strconv parses.
		default:
			return false
		}
	}
	return sawDigitAfterSign
}

// isFloatShape enforces spec sec 4.1: "a token containing exactly one '.'
// with digits on at least one side, or scientific notation".
func isFloatShape(s string) bool {
	body := s
	if len(body) > 0 && (body[0] == '+' || body[0] == '-') {
		body = body[1:]
	}

	mantissa := body
	hasExponent := false
	for i, c := range body {
		if c == 'e' || c == 'E' {
			mantissa = body[:i]
			exp := body[i+1:]
			hasExponent = true
			if !isSignedDigits(exp) {
				return false
			}
			break
		}
	}

	dotCount := strings.Count(mantissa, ".")
	if dotCount > 1 {
		return false
	}
	if dotCount == 1 {
		parts := strings.SplitN(mantissa, ".", 2)
		leftDigits := isDigits(parts[0])
		rightDigits := isDigits(parts[1])
		if parts[0] != "" && !leftDigits {
			return false
		}
		if parts[1] != "" && !rightDigits {
			return false
		}
		return parts[0] != "" || parts[1] != ""
	}
	// no dot: only valid as a float if it has an exponent (scientific
	// notation on an integral mantissa, e.g. "5e3").
	return hasExponent && isDigits(mantissa)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isSignedDigits(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}
	return isDigits(s)
}

// All scans the entirety of the source and returns every token up to and
// including the terminal KindEOF, or the first LexError encountered.
func All(src []byte) ([]Token, *LexError) {
	lx := New(src)
	var toks []Token
	for {
		tok, err := lx.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == KindEOF {
			return toks, nil
		}
	}
}
