package michelson

type parser struct {
	toks []token
	i    int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

// Parse reads a value literal such as
//
//	Pair "XTZ-USD" (Pair 1000 None)
//
// Primitive applications take atoms as arguments; nested applications must
// be parenthesized.
func Parse(literal string) (Node, error) {
	toks, err := tokenize(literal)
	if err != nil {
		return Node{}, err
	}
	p := &parser{toks: toks}
	n, err := p.expr()
	if err != nil {
		return Node{}, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return Node{}, errorf(t.pos, "trailing input")
	}
	return n, nil
}

func (p *parser) expr() (Node, error) {
	t := p.peek()
	if t.kind != tokIdent {
		return p.atom()
	}
	p.next()
	n := Node{Kind: PrimNode, Prim: t.text, pos: t.pos}
	for {
		switch p.peek().kind {
		case tokAnnot:
			p.next()
		case tokInt, tokString, tokBytes, tokIdent, tokLParen:
			a, err := p.atom()
			if err != nil {
				return Node{}, err
			}
			n.Args = append(n.Args, a)
		default:
			return n, nil
		}
	}
}

func (p *parser) atom() (Node, error) {
	t := p.next()
	switch t.kind {
	case tokInt:
		return Node{Kind: IntNode, Int: t.int, pos: t.pos}, nil
	case tokString:
		return Node{Kind: StringNode, Str: t.text, pos: t.pos}, nil
	case tokBytes:
		return Node{Kind: BytesNode, Bytes: t.bytes, pos: t.pos}, nil
	case tokIdent:
		return Node{Kind: PrimNode, Prim: t.text, pos: t.pos}, nil
	case tokLParen:
		n, err := p.expr()
		if err != nil {
			return Node{}, err
		}
		if c := p.next(); c.kind != tokRParen {
			return Node{}, errorf(c.pos, "expected )")
		}
		return n, nil
	case tokEOF:
		return Node{}, errorf(t.pos, "unexpected end of input")
	default:
		return Node{}, errorf(t.pos, "unexpected token")
	}
}
