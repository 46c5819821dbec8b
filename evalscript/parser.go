package evalscript

import "github.com/scriptlang/scriptlang/internal/scriptlangerr"

// Parser is a recursive-descent/Pratt parser over the expression
// sublanguage, built the same way the teacher's parser.go is: a
// lookahead-one token stream with per-precedence-level binary parse methods.
type Parser struct {
	lex     *Lexer
	cur     Token
	peek    Token
	lexErr  error
}

func NewParser(source string) (*Parser, error) {
	p := &Parser{lex: NewLexer(source)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) advance() error {
	p.cur = p.peek
	tok, err := p.lex.NextToken()
	if err != nil {
		return err
	}
	p.peek = tok
	return nil
}

func (p *Parser) expect(tt TokenType) (Token, error) {
	if p.cur.Type != tt {
		return Token{}, scriptlangerr.WithSpanf("ENGINE_EXPR_PARSE_ERROR",
			scriptlangerr.Span{StartLine: p.cur.Line, StartColumn: p.cur.Column},
			"expected %s but found %s", tt, p.cur.Type)
	}
	tok := p.cur
	err := p.advance()
	return tok, err
}

// ParseProgram parses a full <code> block: semicolon-separated statements,
// a trailing semicolon optional.
func (p *Parser) ParseProgram() (*Program, error) {
	prog := &Program{}
	for p.cur.Type != TokEOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Statements = append(prog.Statements, stmt)
		for p.cur.Type == TokSemicolon {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	return prog, nil
}

// ParseExpr parses a single standalone expression (used for `when`
// conditions, <var> initializers, and ${...} interpolation segments) and
// requires the whole input to be consumed.
func (p *Parser) ParseExpr() (Expr, error) {
	e, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != TokEOF {
		return nil, scriptlangerr.WithSpanf("ENGINE_EXPR_PARSE_ERROR",
			scriptlangerr.Span{StartLine: p.cur.Line, StartColumn: p.cur.Column},
			"unexpected trailing input starting with %s", p.cur.Type)
	}
	return e, nil
}

func (p *Parser) parseStatement() (Expr, error) {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() (Expr, error) {
	left, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur.Type == TokAssign {
		if err := p.advance(); err != nil {
			return nil, err
		}
		value, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		if !isAssignable(left) {
			return nil, scriptlangerr.New("ENGINE_EXPR_PARSE_ERROR", "left-hand side of assignment must be a variable, index, or field access")
		}
		return &AssignExpr{Target: left, Value: value}, nil
	}
	return left, nil
}

func isAssignable(e Expr) bool {
	switch e.(type) {
	case *Identifier, *IndexExpr, *FieldAccess:
		return true
	default:
		return false
	}
}

func (p *Parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokOr {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: TokOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokAnd {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: TokAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseEquality() (Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokEqual || p.cur.Type == TokNotEqual {
		op := p.cur.Type
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokLT || p.cur.Type == TokGT || p.cur.Type == TokLTE || p.cur.Type == TokGTE {
		op := p.cur.Type
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokPlus || p.cur.Type == TokMinus {
		op := p.cur.Type
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokStar || p.cur.Type == TokSlash || p.cur.Type == TokPercent {
		op := p.cur.Type
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Expr, error) {
	if p.cur.Type == TokNot || p.cur.Type == TokMinus {
		op := p.cur.Type
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: op, Operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur.Type {
		case TokDot:
			if err := p.advance(); err != nil {
				return nil, err
			}
			name, err := p.expect(TokIdent)
			if err != nil {
				return nil, err
			}
			expr = &FieldAccess{Object: expr, Field: name.Literal}
		case TokLBracket:
			if err := p.advance(); err != nil {
				return nil, err
			}
			index, err := p.parseAssignment()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokRBracket); err != nil {
				return nil, err
			}
			expr = &IndexExpr{Object: expr, Index: index}
		case TokLParen:
			if err := p.advance(); err != nil {
				return nil, err
			}
			var args []Expr
			for p.cur.Type != TokRParen {
				arg, err := p.parseAssignment()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.cur.Type == TokComma {
					if err := p.advance(); err != nil {
						return nil, err
					}
				}
			}
			if _, err := p.expect(TokRParen); err != nil {
				return nil, err
			}
			expr = &CallExpr{Callee: expr, Args: args}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.cur
	switch tok.Type {
	case TokNumber:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &NumberLiteral{Value: tok.Number}, nil
	case TokString:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &StringLiteral{Value: tok.Literal}, nil
	case TokTrue:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &BoolLiteral{Value: true}, nil
	case TokFalse:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &BoolLiteral{Value: false}, nil
	case TokIdent:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Identifier{Name: tok.Literal}, nil
	case TokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	case TokLBracket:
		return p.parseArrayLiteral()
	case TokLBrace:
		return p.parseMapLiteral()
	default:
		return nil, scriptlangerr.WithSpanf("ENGINE_EXPR_PARSE_ERROR",
			scriptlangerr.Span{StartLine: tok.Line, StartColumn: tok.Column},
			"unexpected token %s", tok.Type)
	}
}

func (p *Parser) parseArrayLiteral() (Expr, error) {
	if _, err := p.expect(TokLBracket); err != nil {
		return nil, err
	}
	var elements []Expr
	for p.cur.Type != TokRBracket {
		el, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		elements = append(elements, el)
		if p.cur.Type == TokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.expect(TokRBracket); err != nil {
		return nil, err
	}
	return &ArrayLiteral{Elements: elements}, nil
}

func (p *Parser) parseMapLiteral() (Expr, error) {
	if _, err := p.expect(TokLBrace); err != nil {
		return nil, err
	}
	var entries []MapEntry
	for p.cur.Type != TokRBrace {
		var key string
		switch p.cur.Type {
		case TokIdent:
			key = p.cur.Literal
			if err := p.advance(); err != nil {
				return nil, err
			}
		case TokString:
			key = p.cur.Literal
			if err := p.advance(); err != nil {
				return nil, err
			}
		default:
			return nil, scriptlangerr.WithSpanf("ENGINE_EXPR_PARSE_ERROR",
				scriptlangerr.Span{StartLine: p.cur.Line, StartColumn: p.cur.Column},
				"expected map key but found %s", p.cur.Type)
		}
		if _, err := p.expect(TokColon); err != nil {
			return nil, err
		}
		value, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		entries = append(entries, MapEntry{Key: key, Value: value})
		if p.cur.Type == TokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.expect(TokRBrace); err != nil {
		return nil, err
	}
	return &MapLiteral{Entries: entries}, nil
}
