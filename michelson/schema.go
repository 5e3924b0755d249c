package michelson

import "strings"

// Schema is a Michelson type expression.
type Schema struct {
	Prim string
	Args []Schema
}

// arity of each supported type constructor; -1 means two or more.
var arity = map[string]int{
	"pair":      -1,
	"option":    1,
	"string":    0,
	"nat":       0,
	"int":       0,
	"mutez":     0,
	"timestamp": 0,
	"key":       0,
	"bytes":     0,
	"bool":      0,
	"unit":      0,
}

var (
	// CandleSchema is the layout the oracle contract expects for one candle:
	// asset name, start, end, open, high, low, close, volume.
	CandleSchema = MustParseSchema(
		"pair string (pair timestamp (pair timestamp (pair nat (pair nat (pair nat (pair nat nat))))))")

	// RevokeSchema carries an optional replacement key; None revokes.
	RevokeSchema = MustParseSchema("option key")
)

// ParseSchema parses a type expression. Annotations are accepted and
// dropped; pair combs (pair a b c) are expanded to right-nested pairs.
func ParseSchema(expr string) (Schema, error) {
	toks, err := tokenize(expr)
	if err != nil {
		return Schema{}, err
	}
	p := &parser{toks: toks}
	s, err := p.schema(true)
	if err != nil {
		return Schema{}, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return Schema{}, errorf(t.pos, "trailing input")
	}
	return s, nil
}

// MustParseSchema is like ParseSchema but panics on error.
func MustParseSchema(expr string) Schema {
	s, err := ParseSchema(expr)
	if err != nil {
		panic(err)
	}
	return s
}

func (p *parser) schema(withArgs bool) (Schema, error) {
	t := p.next()
	if t.kind == tokLParen {
		s, err := p.schema(true)
		if err != nil {
			return Schema{}, err
		}
		if c := p.next(); c.kind != tokRParen {
			return Schema{}, errorf(c.pos, "expected )")
		}
		return s, nil
	}
	if t.kind != tokIdent {
		return Schema{}, errorf(t.pos, "expected type")
	}
	want, ok := arity[t.text]
	if !ok {
		return Schema{}, errorf(t.pos, "unsupported type %q", t.text)
	}

	s := Schema{Prim: t.text}
	for withArgs {
		next := p.peek().kind
		if next == tokAnnot {
			p.next()
			continue
		}
		if next != tokIdent && next != tokLParen {
			break
		}
		a, err := p.schema(false)
		if err != nil {
			return Schema{}, err
		}
		s.Args = append(s.Args, a)
	}

	switch {
	case want == -1 && len(s.Args) < 2:
		return Schema{}, errorf(t.pos, "%s needs at least 2 arguments", t.text)
	case want >= 0 && len(s.Args) != want:
		if !withArgs && want > 0 {
			return Schema{}, errorf(t.pos, "%s needs parentheses", t.text)
		}
		return Schema{}, errorf(t.pos, "%s takes %d arguments, got %d", t.text, want, len(s.Args))
	}
	if s.Prim == "pair" {
		return comb(s.Args), nil
	}
	return s, nil
}

func comb(args []Schema) Schema {
	if len(args) == 1 {
		return args[0]
	}
	return Schema{Prim: "pair", Args: []Schema{args[0], comb(args[1:])}}
}

func (s Schema) String() string {
	var sb strings.Builder
	s.write(&sb, false)
	return sb.String()
}

func (s Schema) write(sb *strings.Builder, nested bool) {
	if nested && len(s.Args) > 0 {
		sb.WriteByte('(')
	}
	sb.WriteString(s.Prim)
	for _, a := range s.Args {
		sb.WriteByte(' ')
		a.write(sb, true)
	}
	if nested && len(s.Args) > 0 {
		sb.WriteByte(')')
	}
}
