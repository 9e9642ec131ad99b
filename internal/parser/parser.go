// Package parser implements the recursive-descent parser described in spec
// sec 4.2: it turns a lexer.Token stream into an *ast.Program, rejecting any
// lexically ill-nested control structure at parse time rather than letting
// it reach semantic analysis.
package parser

import (
	"github.com/dekarrin/vorth/internal/ast"
	"github.com/dekarrin/vorth/internal/lexer"
)

// Parser holds the token buffer and cursor for one compilation unit.
type Parser struct {
	toks []lexer.Token
	pos  int
}

// New creates a Parser over an already-lexed token slice (as returned by
// lexer.All), which must end with a KindEOF token.
func New(toks []lexer.Token) *Parser {
	return &Parser{toks: toks}
}

// Parse lexes and parses src in one step.
func Parse(src []byte) (*ast.Program, *ParseError, *lexer.LexError) {
	toks, lexErr := lexer.All(src)
	if lexErr != nil {
		return nil, nil, lexErr
	}
	p := New(toks)
	prog, err := p.ParseProgram()
	return prog, err, nil
}

func (p *Parser) cur() lexer.Token {
	return p.toks[p.pos]
}

func (p *Parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) atEOF() bool {
	return p.cur().Kind == lexer.KindEOF
}

// ParseProgram parses an entire compilation unit.
func (p *Parser) ParseProgram() (*ast.Program, *ParseError) {
	prog := &ast.Program{}

	for !p.atEOF() {
		switch p.cur().Kind {
		case lexer.KindColon:
			def, err := p.parseDefinition()
			if err != nil {
				return nil, err
			}
			prog.Definitions = append(prog.Definitions, def)
		case lexer.KindLineComment, lexer.KindParenComment, lexer.KindStackEffectComment:
			p.advance()
		default:
			node, err := p.parseTopLevelNode(prog.TopLevel)
			if err != nil {
				return nil, err
			}
			if node != nil {
				prog.TopLevel = append(prog.TopLevel, node)
			}
		}
	}

	return prog, nil
}

// parseDefinition parses `: NAME ( effect )? body ; IMMEDIATE?`. The
// leading `:` must be the current token.
func (p *Parser) parseDefinition() (*ast.Definition, *ParseError) {
	colon := p.advance() // ':'

	if p.cur().Kind != lexer.KindWord {
		return nil, &ParseError{Kind: UnexpectedToken, Position: p.cur(), Detail: "expected a word name after ':'"}
	}
	nameTok := p.advance()

	def := &ast.Definition{Name: nameTok.Text}
	def.Line, def.Col = colon.Line, colon.Column

	if p.cur().Kind == lexer.KindStackEffectComment {
		se := p.advance()
		def.DeclaredEffect = &ast.DeclaredEffect{
			Inputs:  se.StackEffect.Inputs,
			Outputs: se.StackEffect.Outputs,
		}
	}

	body, err := p.parseBody(&colon, lexer.KindSemicolon)
	if err != nil {
		return nil, err
	}
	if p.atEOF() {
		return nil, &ParseError{Kind: UnterminatedDefinition, Position: p.cur(), Opener: &colon, Detail: "unterminated definition of " + def.Name}
	}
	p.advance() // ';'
	def.Body = body

	if p.cur().Kind == lexer.KindImmediate {
		p.advance()
		def.Immediate = true
	}

	return def, nil
}

// parseBody parses nodes until the current token's kind is one of stop, or
// EOF is reached, or (inside a construct other than a `:` definition) a `;`
// is reached (the caller decides whether stopping short of its closer is an
// error).
func (p *Parser) parseBody(opener *lexer.Token, stop ...lexer.Kind) ([]ast.Node, *ParseError) {
	var body []ast.Node
	for {
		if p.atEOF() || isStop(p.cur().Kind, stop) || (p.cur().Kind == lexer.KindSemicolon && opener.Kind != lexer.KindColon) {
			return body, nil
		}
		node, err := p.parseNode(body)
		if err != nil {
			return nil, err
		}
		if node != nil {
			body = append(body, node)
		}
	}
}

func isStop(k lexer.Kind, stop []lexer.Kind) bool {
	for _, s := range stop {
		if k == s {
			return true
		}
	}
	return false
}

// parseTopLevelNode is like parseNode but operates over the program's
// top-level accumulator, so CONSTANT at the top level can still pop the
// immediately preceding literal.
func (p *Parser) parseTopLevelNode(accum []ast.Node) (ast.Node, *ParseError) {
	return p.parseNode(accum)
}

// parseNode parses a single body element. accum is the list of nodes parsed
// so far in the enclosing body, consulted only by CONSTANT to find its
// preceding literal.
func (p *Parser) parseNode(accum []ast.Node) (ast.Node, *ParseError) {
	tok := p.cur()
	switch tok.Kind {
	case lexer.KindLineComment, lexer.KindParenComment, lexer.KindStackEffectComment:
		p.advance()
		return nil, nil
	case lexer.KindInt:
		p.advance()
		return &ast.Literal{NodeBase: ast.At(tok.Line, tok.Column), Kind: ast.IntLiteral, Int: tok.IntVal}, nil
	case lexer.KindFloat:
		p.advance()
		return &ast.Literal{NodeBase: ast.At(tok.Line, tok.Column), Kind: ast.FloatLiteral, Float: tok.FloatVal}, nil
	case lexer.KindString:
		p.advance()
		return &ast.Literal{NodeBase: ast.At(tok.Line, tok.Column), Kind: ast.StringLiteral, Str: tok.StringVal}, nil
	case lexer.KindWord:
		p.advance()
		return &ast.WordRef{NodeBase: ast.At(tok.Line, tok.Column), Name: tok.Text}, nil
	case lexer.KindRecurse:
		p.advance()
		return &ast.Recurse{NodeBase: ast.At(tok.Line, tok.Column)}, nil
	case lexer.KindExit:
		p.advance()
		return &ast.Exit{NodeBase: ast.At(tok.Line, tok.Column)}, nil
	case lexer.KindIf:
		return p.parseIf()
	case lexer.KindBegin:
		return p.parseBegin()
	case lexer.KindDo:
		return p.parseDo()
	case lexer.KindVariable:
		return p.parseVariable()
	case lexer.KindConstant:
		return p.parseConstant(accum, tok)
	case lexer.KindColon:
		return nil, &ParseError{Kind: UnexpectedToken, Position: tok, Detail: "nested ':' definitions are not allowed"}
	default:
		return nil, &ParseError{Kind: UnexpectedToken, Position: tok, Detail: "unexpected " + tok.Kind.String()}
	}
}

func (p *Parser) parseIf() (ast.Node, *ParseError) {
	ifTok := p.advance()

	thenBody, err := p.parseBody(&ifTok, lexer.KindThen, lexer.KindElse)
	if err != nil {
		return nil, err
	}

	var elseBody []ast.Node
	if p.cur().Kind == lexer.KindElse {
		p.advance()
		elseBody, err = p.parseBody(&ifTok, lexer.KindThen)
		if err != nil {
			return nil, err
		}
	}

	if p.cur().Kind != lexer.KindThen {
		return nil, &ParseError{Kind: UnterminatedIf, Position: p.cur(), Opener: &ifTok, Detail: "unterminated IF"}
	}
	p.advance() // THEN

	return &ast.If{NodeBase: ast.At(ifTok.Line, ifTok.Column), Then: thenBody, Else: elseBody}, nil
}

func (p *Parser) parseBegin() (ast.Node, *ParseError) {
	beginTok := p.advance()

	first, err := p.parseBody(&beginTok, lexer.KindUntil, lexer.KindWhile)
	if err != nil {
		return nil, err
	}

	switch p.cur().Kind {
	case lexer.KindUntil:
		p.advance()
		return &ast.BeginUntil{NodeBase: ast.At(beginTok.Line, beginTok.Column), Body: first}, nil
	case lexer.KindWhile:
		p.advance()
		body, err := p.parseBody(&beginTok, lexer.KindRepeat)
		if err != nil {
			return nil, err
		}
		if p.cur().Kind != lexer.KindRepeat {
			return nil, &ParseError{Kind: UnterminatedBegin, Position: p.cur(), Opener: &beginTok, Detail: "unterminated BEGIN...WHILE"}
		}
		p.advance() // REPEAT
		return &ast.BeginWhileRepeat{NodeBase: ast.At(beginTok.Line, beginTok.Column), Cond: first, Body: body}, nil
	default:
		return nil, &ParseError{Kind: UnterminatedBegin, Position: p.cur(), Opener: &beginTok, Detail: "unterminated BEGIN"}
	}
}

func (p *Parser) parseDo() (ast.Node, *ParseError) {
	doTok := p.advance()

	body, err := p.parseBody(&doTok, lexer.KindLoop, lexer.KindPlusLoop)
	if err != nil {
		return nil, err
	}

	if p.cur().Kind != lexer.KindLoop && p.cur().Kind != lexer.KindPlusLoop {
		return nil, &ParseError{Kind: UnterminatedDo, Position: p.cur(), Opener: &doTok, Detail: "unterminated DO"}
	}
	variant := ast.Loop
	if p.cur().Kind == lexer.KindPlusLoop {
		variant = ast.PlusLoop
	}
	p.advance()

	return &ast.DoLoop{NodeBase: ast.At(doTok.Line, doTok.Column), Body: body, StepVariant: variant}, nil
}

func (p *Parser) parseVariable() (ast.Node, *ParseError) {
	varTok := p.advance()
	if p.cur().Kind != lexer.KindWord {
		return nil, &ParseError{Kind: UnexpectedToken, Position: p.cur(), Detail: "expected a name after VARIABLE"}
	}
	name := p.advance()
	return &ast.Variable{NodeBase: ast.At(varTok.Line, varTok.Column), Name: name.Text}, nil
}

func (p *Parser) parseConstant(accum []ast.Node, constTok lexer.Token) (ast.Node, *ParseError) {
	p.advance() // CONSTANT
	if p.cur().Kind != lexer.KindWord {
		return nil, &ParseError{Kind: UnexpectedToken, Position: p.cur(), Detail: "expected a name after CONSTANT"}
	}
	name := p.advance()

	if len(accum) == 0 {
		return nil, &ParseError{Kind: ConstantWithoutValue, Position: constTok, Detail: "CONSTANT " + name.Text + " has no preceding literal"}
	}
	lit, ok := accum[len(accum)-1].(*ast.Literal)
	if !ok {
		return nil, &ParseError{Kind: ConstantWithoutValue, Position: constTok, Detail: "CONSTANT " + name.Text + " must immediately follow a literal"}
	}

	// Pop the literal off the accumulator by returning a node that the
	// caller (parseBody) must replace the prior entry with. Since parseBody
	// only appends, we instead mutate accum in place here: the last slot is
	// overwritten with the Constant and the caller's slice length stays the
	// same, net effect identical to a pop-then-push.
	accum[len(accum)-1] = &ast.Constant{NodeBase: ast.At(constTok.Line, constTok.Column), Name: name.Text, Value: lit}
	return nil, nil
}
