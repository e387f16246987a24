package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/starford/ansuz/internal/query/vals"
)

// Parse compiles query text into a Query. Errors are always *ParseError with
// a byte offset into the input.
func Parse(input string) (*Query, error) {
	toks, lerr := lex(input)
	if lerr != nil {
		return nil, lerr
	}
	p := &parser{input: input, toks: toks}
	q, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	return q, nil
}

type parser struct {
	input string
	toks  []token
	i     int
}

func (p *parser) cur() token  { return p.toks[p.i] }
func (p *parser) peek() token { return p.toks[min(p.i+1, len(p.toks)-1)] }

func (p *parser) advance() token {
	t := p.toks[p.i]
	if p.i < len(p.toks)-1 {
		p.i++
	}
	return t
}

func (p *parser) errf(pos int, format string, args ...interface{}) *ParseError {
	return &ParseError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

var clauseKeywords = []string{"FROM", "WHERE", "SORT", "GROUP", "FLATTEN", "LIMIT"}

func (p *parser) atClauseOrEOF() bool {
	t := p.cur()
	if t.kind == tokEOF {
		return true
	}
	for _, kw := range clauseKeywords {
		if t.isKeyword(kw) {
			return true
		}
	}
	return false
}

func (p *parser) parseQuery() (*Query, *ParseError) {
	q := &Query{Kind: KindList}

	switch {
	case p.cur().isKeyword("TABLE"):
		p.advance()
		q.Kind = KindTable
		if p.cur().isKeyword("WITHOUT") {
			at := p.advance().pos
			if !p.cur().isKeyword("ID") {
				return nil, p.errf(at, "expected ID after WITHOUT")
			}
			p.advance()
			q.WithoutID = true
		}
		if !p.atClauseOrEOF() {
			cols, err := p.parseCols()
			if err != nil {
				return nil, err
			}
			q.Cols = cols
		}
	case p.cur().isKeyword("LIST"):
		p.advance()
		if !p.atClauseOrEOF() {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			q.ListExpr = e
		}
	case p.cur().isKeyword("TASK"):
		p.advance()
		q.Kind = KindTask
	}

	for p.cur().kind != tokEOF {
		c, err := p.parseClause()
		if err != nil {
			return nil, err
		}
		q.Clauses = append(q.Clauses, c)
	}
	return q, nil
}

// sourceText returns the input slice from start up to the current token,
// used as the default column header.
func (p *parser) sourceText(start int) string {
	end := p.cur().pos
	if end > len(p.input) {
		end = len(p.input)
	}
	return strings.TrimSpace(p.input[start:end])
}

func (p *parser) parseCols() ([]Col, *ParseError) {
	var cols []Col
	for {
		start := p.cur().pos
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		name := p.sourceText(start)
		if p.cur().isKeyword("AS") {
			p.advance()
			name, err = p.parseAliasName()
			if err != nil {
				return nil, err
			}
		}
		cols = append(cols, Col{Expr: e, Name: name})
		if p.cur().kind != tokComma {
			return cols, nil
		}
		p.advance()
	}
}

func (p *parser) parseAliasName() (string, *ParseError) {
	t := p.cur()
	if t.kind == tokString || t.kind == tokIdent {
		p.advance()
		return t.text, nil
	}
	return "", p.errf(t.pos, "expected name after AS")
}

func (p *parser) parseClause() (Clause, *ParseError) {
	t := p.cur()
	switch {
	case t.isKeyword("FROM"):
		p.advance()
		src, err := p.parseSource()
		if err != nil {
			return nil, err
		}
		return FromClause{Src: src}, nil

	case t.isKeyword("WHERE"):
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return WhereClause{Cond: e}, nil

	case t.isKeyword("SORT"):
		p.advance()
		var keys []SortKey
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			key := SortKey{Expr: e}
			if p.cur().isKeyword("DESC") {
				key.Desc = true
				p.advance()
			} else if p.cur().isKeyword("ASC") {
				p.advance()
			}
			keys = append(keys, key)
			if p.cur().kind != tokComma {
				break
			}
			p.advance()
		}
		return SortClause{Keys: keys}, nil

	case t.isKeyword("GROUP"):
		at := p.advance().pos
		if !p.cur().isKeyword("BY") {
			return nil, p.errf(at, "expected BY after GROUP")
		}
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		g := GroupClause{Expr: e}
		if p.cur().isKeyword("AS") {
			p.advance()
			g.Name, err = p.parseAliasName()
			if err != nil {
				return nil, err
			}
		}
		return g, nil

	case t.isKeyword("FLATTEN"):
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		f := FlattenClause{Expr: e}
		if p.cur().isKeyword("AS") {
			p.advance()
			f.Name, err = p.parseAliasName()
			if err != nil {
				return nil, err
			}
		} else {
			switch x := e.(type) {
			case Ident:
				f.Name = x.Name
			case Field:
				f.Name = x.Name
			default:
				return nil, p.errf(e.Pos(), "FLATTEN of a computed expression needs AS")
			}
		}
		return f, nil

	case t.isKeyword("LIMIT"):
		p.advance()
		nt := p.cur()
		if nt.kind != tokNumber {
			return nil, p.errf(nt.pos, "LIMIT takes an integer")
		}
		n, err := strconv.Atoi(nt.text)
		if err != nil {
			return nil, p.errf(nt.pos, "LIMIT takes an integer")
		}
		p.advance()
		return LimitClause{N: n}, nil
	}

	return nil, p.errf(t.pos, "expected FROM, WHERE, SORT, GROUP BY, FLATTEN, or LIMIT")
}

func (p *parser) parseSource() (Source, *ParseError) {
	left, err := p.parseSourceAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().isKeyword("OR") {
		p.advance()
		right, err := p.parseSourceAnd()
		if err != nil {
			return nil, err
		}
		left = SrcOr{X: left, Y: right}
	}
	return left, nil
}

func (p *parser) parseSourceAnd() (Source, *ParseError) {
	left, err := p.parseSourceNot()
	if err != nil {
		return nil, err
	}
	for p.cur().isKeyword("AND") {
		p.advance()
		right, err := p.parseSourceNot()
		if err != nil {
			return nil, err
		}
		left = SrcAnd{X: left, Y: right}
	}
	return left, nil
}

func (p *parser) parseSourceNot() (Source, *ParseError) {
	if p.cur().kind == tokBang {
		p.advance()
		x, err := p.parseSourceNot()
		if err != nil {
			return nil, err
		}
		return SrcNot{X: x}, nil
	}
	return p.parseSourceAtom()
}

func (p *parser) parseSourceAtom() (Source, *ParseError) {
	t := p.cur()
	switch t.kind {
	case tokString:
		p.advance()
		return SrcFolder{Prefix: strings.Trim(t.text, "/")}, nil
	case tokTag:
		p.advance()
		return SrcTag{Tag: t.text}, nil
	case tokLink:
		p.advance()
		target, _ := splitLinkLiteral(t.text)
		if target == "" {
			return nil, p.errf(t.pos, "empty link target in FROM")
		}
		return SrcLink{Target: target}, nil
	case tokLParen:
		p.advance()
		src, err := p.parseSource()
		if err != nil {
			return nil, err
		}
		if p.cur().kind != tokRParen {
			return nil, p.errf(p.cur().pos, "expected ')' in FROM")
		}
		p.advance()
		return src, nil
	}
	return nil, p.errf(t.pos, "expected folder, #tag, or [[link]] in FROM")
}

func (p *parser) parseExpr() (Expr, *ParseError) {
	return p.parseOr()
}

func (p *parser) parseOr() (Expr, *ParseError) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().isKeyword("OR") {
		at := p.advance().pos
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: "or", X: left, Y: right, At: at}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, *ParseError) {
	left, err := p.parseCmp()
	if err != nil {
		return nil, err
	}
	for p.cur().isKeyword("AND") {
		at := p.advance().pos
		right, err := p.parseCmp()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: "and", X: left, Y: right, At: at}
	}
	return left, nil
}

var cmpOps = map[tokKind]string{
	tokEq:   "=",
	tokEqEq: "=",
	tokNeq:  "!=",
	tokLt:   "<",
	tokLte:  "<=",
	tokGt:   ">",
	tokGte:  ">=",
}

func (p *parser) parseCmp() (Expr, *ParseError) {
	left, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	if op, ok := cmpOps[p.cur().kind]; ok {
		at := p.advance().pos
		right, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		return Binary{Op: op, X: left, Y: right, At: at}, nil
	}
	return left, nil
}

func (p *parser) parseSum() (Expr, *ParseError) {
	left, err := p.parseProd()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokPlus || p.cur().kind == tokMinus {
		op := "+"
		if p.cur().kind == tokMinus {
			op = "-"
		}
		at := p.advance().pos
		right, err := p.parseProd()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, X: left, Y: right, At: at}
	}
	return left, nil
}

func (p *parser) parseProd() (Expr, *ParseError) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch p.cur().kind {
		case tokStar:
			op = "*"
		case tokSlash:
			op = "/"
		case tokPercent:
			op = "%"
		default:
			return left, nil
		}
		at := p.advance().pos
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, X: left, Y: right, At: at}
	}
}

func (p *parser) parseUnary() (Expr, *ParseError) {
	t := p.cur()
	if t.kind == tokBang || t.kind == tokMinus {
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		op := "!"
		if t.kind == tokMinus {
			op = "-"
		}
		return Unary{Op: op, X: x, At: t.pos}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (Expr, *ParseError) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().kind {
		case tokDot:
			at := p.advance().pos
			nt := p.cur()
			if nt.kind != tokIdent {
				return nil, p.errf(nt.pos, "expected field name after '.'")
			}
			p.advance()
			x = Field{X: x, Name: nt.text, At: at}
		case tokLBracket:
			at := p.advance().pos
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if p.cur().kind != tokRBracket {
				return nil, p.errf(p.cur().pos, "expected ']'")
			}
			p.advance()
			x = Index{X: x, I: idx, At: at}
		default:
			return x, nil
		}
	}
}

func (p *parser) parsePrimary() (Expr, *ParseError) {
	t := p.cur()
	switch t.kind {
	case tokNumber:
		p.advance()
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errf(t.pos, "invalid number %q", t.text)
		}
		return Lit{Val: vals.Number(f), At: t.pos}, nil

	case tokString:
		p.advance()
		return Lit{Val: vals.String(t.text), At: t.pos}, nil

	case tokDate:
		p.advance()
		lower := strings.ToLower(t.text)
		if lower == "today" || lower == "now" {
			// Relative dates resolve against the evaluation clock, not at
			// parse time, so cached queries stay correct.
			return Call{Name: "date", Args: []Expr{Lit{Val: vals.String(lower), At: t.pos}}, At: t.pos}, nil
		}
		d, ok := vals.ParseDate(t.text)
		if !ok {
			return nil, p.errf(t.pos, "invalid date literal %q", t.text)
		}
		return Lit{Val: d, At: t.pos}, nil

	case tokDur:
		p.advance()
		d, ok := vals.ParseDuration(t.text)
		if !ok {
			return nil, p.errf(t.pos, "invalid duration literal %q", t.text)
		}
		return Lit{Val: d, At: t.pos}, nil

	case tokLink:
		p.advance()
		target, alias := splitLinkLiteral(t.text)
		if target == "" {
			return nil, p.errf(t.pos, "empty link target")
		}
		return Lit{Val: vals.Link{Target: target, Alias: alias}, At: t.pos}, nil

	case tokLBracket:
		p.advance()
		list := ListExpr{At: t.pos}
		if p.cur().kind == tokRBracket {
			p.advance()
			return list, nil
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			list.Elems = append(list.Elems, e)
			if p.cur().kind == tokComma {
				p.advance()
				continue
			}
			break
		}
		if p.cur().kind != tokRBracket {
			return nil, p.errf(p.cur().pos, "expected ']' to close list")
		}
		p.advance()
		return list, nil

	case tokIdent:
		switch {
		case t.isKeyword("true"):
			p.advance()
			return Lit{Val: vals.Bool(true), At: t.pos}, nil
		case t.isKeyword("false"):
			p.advance()
			return Lit{Val: vals.Bool(false), At: t.pos}, nil
		case t.isKeyword("null"):
			p.advance()
			return Lit{Val: vals.Null{}, At: t.pos}, nil
		}
		if p.peek().kind == tokLParen {
			return p.parseCall()
		}
		p.advance()
		return Ident{Name: t.text, At: t.pos}, nil

	case tokLParen:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.cur().kind != tokRParen {
			return nil, p.errf(p.cur().pos, "expected ')'")
		}
		p.advance()
		return e, nil
	}
	return nil, p.errf(t.pos, "expected expression")
}

func (p *parser) parseCall() (Expr, *ParseError) {
	t := p.advance()
	name := strings.ToLower(t.text)
	if !isFunc(name) {
		return nil, p.errf(t.pos, "unknown function %q", t.text)
	}
	p.advance() // '('
	call := Call{Name: name, At: t.pos}
	if p.cur().kind == tokRParen {
		p.advance()
		return call, nil
	}
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, e)
		if p.cur().kind == tokComma {
			p.advance()
			continue
		}
		break
	}
	if p.cur().kind != tokRParen {
		return nil, p.errf(p.cur().pos, "expected ')' to close call")
	}
	p.advance()
	return call, nil
}

// splitLinkLiteral splits raw [[...]] content into target and alias,
// dropping any #heading from the target.
func splitLinkLiteral(inner string) (target, alias string) {
	target = inner
	if i := strings.Index(inner, "|"); i >= 0 {
		target, alias = inner[:i], strings.TrimSpace(inner[i+1:])
	}
	if i := strings.Index(target, "#"); i >= 0 {
		target = target[:i]
	}
	return strings.TrimSpace(target), alias
}
