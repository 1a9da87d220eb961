// Package parser implements a recursive-descent parser for regression test
// sources. It returns one top-level statement per call to [Parser.Next] so
// that the caller can evaluate each statement before the next is read.
package parser

import (
	"io"
	"log/slog"
	"strconv"

	"github.com/dtcenter/METplus-sub003/lang/ast"
	"github.com/dtcenter/METplus-sub003/lang/diag"
	"github.com/dtcenter/METplus-sub003/lang/lexer"
	"github.com/dtcenter/METplus-sub003/lang/token"
)

// Flags select which statements a block accepts.
type Flags uint8

const (
	// TopLevel permits load, run and autodetect.
	TopLevel Flags = 1 << iota
	// AllowDecl permits nested declarations (tasks, hashes, embeds, ...).
	AllowDecl
	// AllowUse permits "use name".
	AllowUse
	// AllowNull permits a bare name declaring a parameter without default.
	AllowNull
	// ScalarsOnly restricts assigned values to strings, numbers and names.
	ScalarsOnly
)

// Block flag sets.
const (
	topFlags    = TopLevel | AllowDecl
	bodyFlags   = AllowDecl | AllowUse
	paramFlags  = AllowNull
	argFlags    = Flags(0)
	scalarFlags = ScalarsOnly
)

func (f Flags) has(g Flags) bool { return f&g != 0 }

// Parser reads statements from one source file.
type Parser struct {
	lex *lexer.Lexer
	buf []token.Token
}

// New returns a parser over src.
func New(file string, src []byte) *Parser {
	return &Parser{lex: lexer.New(file, src)}
}

// Next parses the next top-level statement. It returns [io.EOF] once the
// input is exhausted.
func (p *Parser) Next() (ast.Stmt, error) {
	if err := p.skipTerminators(); err != nil {
		return nil, err
	}

	if ok, err := p.at(token.EOF); err != nil || ok {
		if err == nil {
			err = io.EOF
		}

		return nil, err
	}

	s, err := p.statement(topFlags, "top level")
	if err != nil {
		return nil, err
	}

	if err := p.terminate(token.EOF, "top level"); err != nil {
		return nil, err
	}

	return s, nil
}

// All parses every remaining statement.
func (p *Parser) All() ([]ast.Stmt, error) {
	var out []ast.Stmt

	for {
		s, err := p.Next()
		if err == io.EOF {
			return out, nil
		}

		if err != nil {
			return out, err
		}

		out = append(out, s)
	}
}

func (p *Parser) statement(f Flags, ctx string) (ast.Stmt, error) {
	tok, err := p.peek(0)
	if err != nil {
		return nil, err
	}

	if tok.Kind != token.Ident {
		return nil, unexpected(tok, ctx)
	}

	next, err := p.peek(1)
	if err != nil {
		return nil, err
	}

	if next.Kind != token.Assign {
		switch kw := tok.Text; {
		case f.has(TopLevel) && kw == "load":
			return p.load()
		case f.has(TopLevel) && kw == "run":
			return p.run()
		case f.has(TopLevel) && kw == "autodetect":
			return p.autodetect()
		case f.has(AllowUse) && kw == "use":
			return p.use()
		case f.has(AllowDecl) && kw == "spawn":
			return p.spawn()
		case f.has(AllowDecl) && (kw == "filters" || kw == "criteria"):
			return p.filters()
		case f.has(AllowDecl) && (kw == "build" || kw == "test" || kw == "platform"):
			return p.task()
		case f.has(AllowDecl) && kw == "hash":
			return p.hash()
		case f.has(AllowDecl) && kw == "embed":
			return p.embed()
		}
	}

	return p.binding(f, ctx)
}

func (p *Parser) binding(f Flags, ctx string) (ast.Stmt, error) {
	name, err := p.expect(token.Ident, ctx)
	if err != nil {
		return nil, err
	}

	ok, err := p.accept(token.Assign)
	if err != nil {
		return nil, err
	}

	if !ok {
		if f.has(AllowNull) {
			return &ast.Null{At: ast.At{Pos: name.Pos}, Name: name.Text}, nil
		}

		tok, _ := p.peek(0)

		return nil, syntaxError(tok, ctx).With(slog.String("expected", "="))
	}

	val, err := p.rvalue(ctx)
	if err != nil {
		return nil, err
	}

	if f.has(ScalarsOnly) {
		switch val.(type) {
		case *ast.StringLit, *ast.NumberLit, *ast.NameRef:
		default:
			return nil, diag.ErrSyntax.WithPosition(val.Position()).With(
				slog.String("context", ctx),
				slog.String("expected", "scalar value"),
			)
		}
	}

	return &ast.Assign{At: ast.At{Pos: name.Pos}, Name: name.Text, Value: val}, nil
}

func (p *Parser) rvalue(ctx string) (ast.Expr, error) {
	tok, err := p.peek(0)
	if err != nil {
		return nil, err
	}

	at := ast.At{Pos: tok.Pos}

	switch {
	case tok.Kind.IsString():
		p.advance()

		return &ast.StringLit{At: at, Text: tok.Text}, nil

	case tok.Kind == token.Number:
		p.advance()

		v, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, syntaxError(tok, ctx).Wrap(err)
		}

		return &ast.NumberLit{At: at, Text: tok.Text, Value: v}, nil

	case tok.Kind == token.LBrace:
		body, err := p.block(token.LBrace, token.RBrace, bodyFlags, "hash")
		if err != nil {
			return nil, err
		}

		return &ast.HashLit{At: at, Body: body}, nil

	case tok.Kind == token.Ident:
		p.advance()

		ok, err := p.at(token.LParen)
		if err != nil {
			return nil, err
		}

		if !ok {
			return &ast.NameRef{At: at, Name: tok.Text}, nil
		}

		args, err := p.block(token.LParen, token.RParen, argFlags, "argument list")
		if err != nil {
			return nil, err
		}

		return &ast.Call{At: at, Name: tok.Text, Args: args}, nil

	default:
		return nil, unexpected(tok, ctx)
	}
}

// block parses statements between open and close.
func (p *Parser) block(open, close token.Kind, f Flags, ctx string) ([]ast.Stmt, error) {
	if _, err := p.expect(open, ctx); err != nil {
		return nil, err
	}

	var body []ast.Stmt

	for {
		if err := p.skipTerminators(); err != nil {
			return nil, err
		}

		if ok, err := p.accept(close); err != nil || ok {
			return body, err
		}

		s, err := p.statement(f, ctx)
		if err != nil {
			return nil, err
		}

		body = append(body, s)

		if err := p.terminate(close, ctx); err != nil {
			return nil, err
		}
	}
}

func (p *Parser) name(ctx string) (token.Token, error) {
	p.advance() // keyword

	return p.expect(token.Ident, ctx)
}

func (p *Parser) load() (ast.Stmt, error) {
	kw := p.advance()

	tok, err := p.peek(0)
	if err != nil {
		return nil, err
	}

	if !tok.Kind.IsString() {
		return nil, unexpected(tok, "load")
	}

	p.advance()

	next, err := p.peek(0)
	if err != nil {
		return nil, err
	}

	switch next.Kind {
	case token.EOL, token.BlankLine, token.Comment, token.EOF:
	default:
		return nil, unexpected(next, "load")
	}

	return &ast.Load{
		At:   ast.At{Pos: kw.Pos},
		Path: &ast.StringLit{At: ast.At{Pos: tok.Pos}, Text: tok.Text},
	}, nil
}

func (p *Parser) run() (ast.Stmt, error) {
	kw := p.advance()

	val, err := p.rvalue("run")
	if err != nil {
		return nil, err
	}

	return &ast.Run{At: ast.At{Pos: kw.Pos}, Value: val}, nil
}

func (p *Parser) use() (ast.Stmt, error) {
	name, err := p.name("use")
	if err != nil {
		return nil, err
	}

	return &ast.Use{At: ast.At{Pos: name.Pos}, Name: name.Text}, nil
}

func (p *Parser) autodetect() (ast.Stmt, error) {
	name, err := p.name("autodetect")
	if err != nil {
		return nil, err
	}

	refs, err := p.nameList(token.RankOpen, token.RankClose, "platform list")
	if err != nil {
		return nil, err
	}

	return &ast.AutoDetect{
		At:        ast.At{Pos: name.Pos},
		Name:      name.Text,
		Platforms: refs,
	}, nil
}

// nameList parses names separated by commas or line breaks, optionally
// enclosed by open and close. An open of token.EOF means no delimiters: the
// list ends before the first token that is neither a name nor a comma.
func (p *Parser) nameList(open, close token.Kind, ctx string) ([]*ast.NameRef, error) {
	delimited := open != token.EOF
	if delimited {
		if _, err := p.expect(open, ctx); err != nil {
			return nil, err
		}
	}

	var refs []*ast.NameRef

	for {
		if delimited {
			if err := p.skipTerminators(); err != nil {
				return nil, err
			}

			if ok, err := p.accept(close); err != nil || ok {
				return refs, err
			}
		}

		tok, err := p.expect(token.Ident, ctx)
		if err != nil {
			return nil, err
		}

		refs = append(refs, &ast.NameRef{At: ast.At{Pos: tok.Pos}, Name: tok.Text})

		if delimited {
			continue
		}

		if ok, err := p.accept(token.Comma); err != nil || !ok {
			return refs, err
		}
	}
}

func (p *Parser) task() (ast.Stmt, error) {
	kw := p.advance()

	name, err := p.expect(token.Ident, kw.Text)
	if err != nil {
		return nil, err
	}

	t := &ast.Task{At: ast.At{Pos: kw.Pos}, Name: name.Text}

	switch kw.Text {
	case "build":
		t.Kind = ast.BuildTask
	case "test":
		t.Kind = ast.TestTask
	default:
		t.Kind = ast.PlatformTask
	}

	if t.Params, err = p.params(kw.Text); err != nil {
		return nil, err
	}

	if t.Deps, err = p.deps(kw.Text); err != nil {
		return nil, err
	}

	if t.Body, err = p.block(token.LBrace, token.RBrace, bodyFlags, kw.Text); err != nil {
		return nil, err
	}

	more, err := p.deps(kw.Text)
	if err != nil {
		return nil, err
	}

	t.Deps = append(t.Deps, more...)

	return t, nil
}

// params parses an optional parenthesized parameter list. A nil result
// means no list was present.
func (p *Parser) params(ctx string) ([]ast.Stmt, error) {
	if ok, err := p.at(token.LParen); err != nil || !ok {
		return nil, err
	}

	list, err := p.block(token.LParen, token.RParen, paramFlags, ctx+" parameters")
	if list == nil && err == nil {
		list = []ast.Stmt{}
	}

	return list, err
}

// deps parses an optional ": name, name" dependency list.
func (p *Parser) deps(ctx string) ([]*ast.NameRef, error) {
	if ok, err := p.accept(token.Colon); err != nil || !ok {
		return nil, err
	}

	return p.nameList(token.EOF, token.EOF, ctx+" dependencies")
}

func (p *Parser) hash() (ast.Stmt, error) {
	name, err := p.name("hash")
	if err != nil {
		return nil, err
	}

	h := &ast.Hash{At: ast.At{Pos: name.Pos}, Name: name.Text}

	if h.Params, err = p.params("hash"); err != nil {
		return nil, err
	}

	if h.Body, err = p.block(token.LBrace, token.RBrace, bodyFlags, "hash"); err != nil {
		return nil, err
	}

	return h, nil
}

func (p *Parser) embed() (ast.Stmt, error) {
	kw := p.advance()

	lang, err := p.expect(token.Ident, "embed")
	if err != nil {
		return nil, err
	}

	name, err := p.expect(token.Ident, "embed")
	if err != nil {
		return nil, err
	}

	e := &ast.Embed{At: ast.At{Pos: kw.Pos}, Lang: lang.Text, Name: name.Text}

	if e.Params, err = p.params("embed"); err != nil {
		return nil, err
	}

	if e.Params == nil {
		tok, _ := p.peek(0)

		return nil, syntaxError(tok, "embed").With(slog.String("expected", "("))
	}

	if err := p.skipLineBreaks(); err != nil {
		return nil, err
	}

	if ok, err := p.at(token.LBrace); err != nil {
		return nil, err
	} else if ok {
		if e.Vars, err = p.block(token.LBrace, token.RBrace, scalarFlags, "embed variables"); err != nil {
			return nil, err
		}
	}

	if err := p.skipLineBreaks(); err != nil {
		return nil, err
	}

	tok, err := p.peek(0)
	if err != nil {
		return nil, err
	}

	if !tok.Kind.IsString() {
		return nil, unexpected(tok, "embed template")
	}

	p.advance()

	e.Template = &ast.StringLit{At: ast.At{Pos: tok.Pos}, Text: tok.Text}

	return e, nil
}

func (p *Parser) spawn() (ast.Stmt, error) {
	name, err := p.name("spawn")
	if err != nil {
		return nil, err
	}

	s := &ast.Spawn{At: ast.At{Pos: name.Pos}, Name: name.Text}

	if _, err := p.expect(token.LBrace, "spawn"); err != nil {
		return nil, err
	}

	for {
		if err := p.skipTerminators(); err != nil {
			return nil, err
		}

		if ok, err := p.accept(token.RBrace); err != nil || ok {
			return s, err
		}

		r, err := p.rank()
		if err != nil {
			return nil, err
		}

		s.Ranks = append(s.Ranks, r)

		if err := p.terminate(token.RBrace, "spawn"); err != nil {
			return nil, err
		}
	}
}

// rank parses "{ command, name = value, ... }".
func (p *Parser) rank() (*ast.Rank, error) {
	open, err := p.expect(token.LBrace, "spawn rank")
	if err != nil {
		return nil, err
	}

	if err := p.skipLineBreaks(); err != nil {
		return nil, err
	}

	cmd, err := p.rvalue("spawn rank")
	if err != nil {
		return nil, err
	}

	r := &ast.Rank{At: ast.At{Pos: open.Pos}, Command: cmd}

	for {
		if err := p.skipTerminators(); err != nil {
			return nil, err
		}

		if ok, err := p.accept(token.RBrace); err != nil || ok {
			return r, err
		}

		s, err := p.binding(scalarFlags, "spawn rank")
		if err != nil {
			return nil, err
		}

		r.Options = append(r.Options, s.(*ast.Assign))
	}
}

func (p *Parser) filters() (ast.Stmt, error) {
	kw := p.advance()

	name, err := p.expect(token.Ident, kw.Text)
	if err != nil {
		return nil, err
	}

	f := &ast.Filters{
		At:       ast.At{Pos: kw.Pos},
		Name:     name.Text,
		Criteria: kw.Text == "criteria",
	}

	if _, err := p.expect(token.LBrace, kw.Text); err != nil {
		return nil, err
	}

	for {
		if err := p.skipTerminators(); err != nil {
			return nil, err
		}

		if ok, err := p.accept(token.RBrace); err != nil || ok {
			return f, err
		}

		s, err := p.filterEntry(kw.Text)
		if err != nil {
			return nil, err
		}

		f.Body = append(f.Body, s)

		if err := p.terminate(token.RBrace, kw.Text); err != nil {
			return nil, err
		}
	}
}

func (p *Parser) filterEntry(ctx string) (ast.Stmt, error) {
	tok, err := p.peek(0)
	if err != nil {
		return nil, err
	}

	next, err := p.peek(1)
	if err != nil {
		return nil, err
	}

	if tok.Kind == token.Ident && tok.Text == "use" && next.Kind == token.Ident {
		return p.use()
	}

	target, err := p.rvalue(ctx)
	if err != nil {
		return nil, err
	}

	op, err := p.expect(token.Operator, ctx)
	if err != nil {
		return nil, err
	}

	src, err := p.rvalue(ctx)
	if err != nil {
		return nil, err
	}

	return &ast.FilterEntry{
		At:     ast.At{Pos: target.Position()},
		Target: target,
		Op:     op.Text,
		Source: src,
	}, nil
}
