package parser

import (
	"log/slog"

	"github.com/dtcenter/METplus-sub003/lang/diag"
	"github.com/dtcenter/METplus-sub003/lang/token"
)

// peek returns the token n positions ahead without consuming it.
func (p *Parser) peek(n int) (token.Token, error) {
	for len(p.buf) <= n {
		tok, err := p.lex.Next()
		if err != nil {
			return token.Token{}, err
		}

		p.buf = append(p.buf, tok)
	}

	return p.buf[n], nil
}

// advance consumes the current token. Callers peek first, so lexical errors
// have already been reported.
func (p *Parser) advance() token.Token {
	if len(p.buf) == 0 {
		tok, _ := p.lex.Next()

		return tok
	}

	tok := p.buf[0]
	p.buf = p.buf[1:]

	return tok
}

// at reports whether the current token is of the given kind.
func (p *Parser) at(kind token.Kind) (bool, error) {
	tok, err := p.peek(0)

	return err == nil && tok.Kind == kind, err
}

// accept consumes the current token if it is of the given kind.
func (p *Parser) accept(kind token.Kind) (bool, error) {
	ok, err := p.at(kind)
	if ok {
		p.advance()
	}

	return ok, err
}

// expect consumes a token of the given kind or reports a syntax error naming
// the grammar context.
func (p *Parser) expect(kind token.Kind, ctx string) (token.Token, error) {
	tok, err := p.peek(0)
	if err != nil {
		return tok, err
	}

	if tok.Kind != kind {
		return tok, syntaxError(tok, ctx).With(slog.String("expected", kind.String()))
	}

	return p.advance(), nil
}

// terminate requires a statement terminator or the closing token of the
// enclosing block. Terminators are consumed; the closing token is not.
func (p *Parser) terminate(close token.Kind, ctx string) error {
	tok, err := p.peek(0)
	if err != nil {
		return err
	}

	switch {
	case tok.Kind == close:
		return nil
	case tok.Kind.EndsStatement():
		if tok.Kind != token.EOF {
			p.advance()
		}

		return nil
	default:
		return unexpected(tok, ctx)
	}
}

// skipTerminators discards empty statements.
func (p *Parser) skipTerminators() error {
	for {
		tok, err := p.peek(0)
		if err != nil {
			return err
		}

		if tok.Kind == token.EOF || !tok.Kind.EndsStatement() {
			return nil
		}

		p.advance()
	}
}

// skipLineBreaks discards line ends and comments.
func (p *Parser) skipLineBreaks() error {
	for {
		tok, err := p.peek(0)
		if err != nil {
			return err
		}

		switch tok.Kind {
		case token.EOL, token.BlankLine, token.Comment:
			p.advance()
		default:
			return nil
		}
	}
}

func syntaxError(tok token.Token, ctx string) *diag.Error {
	return diag.ErrSyntax.WithPosition(tok.Pos).With(
		slog.String("context", ctx),
		slog.String("got", tok.String()),
	)
}

func unexpected(tok token.Token, ctx string) error {
	return syntaxError(tok, ctx)
}
