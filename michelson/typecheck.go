package michelson

import (
	"math/big"
	"time"

	"github.com/yitech/harbinger/b58check"
)

// typecheck verifies n against s and rewrites it into its optimized binary
// form: timestamps become ints, keys become tagged bytes, pair combs are
// nested.
func typecheck(n Node, s Schema) (Node, error) {
	switch s.Prim {
	case "nat", "mutez":
		if n.Kind != IntNode {
			return Node{}, mismatch(n, s)
		}
		if n.Int.Sign() < 0 {
			return Node{}, errorf(n.pos, "%s must not be negative", s.Prim)
		}
		return n, nil

	case "int":
		if n.Kind != IntNode {
			return Node{}, mismatch(n, s)
		}
		return n, nil

	case "string":
		if n.Kind != StringNode {
			return Node{}, mismatch(n, s)
		}
		return n, nil

	case "bytes":
		if n.Kind != BytesNode {
			return Node{}, mismatch(n, s)
		}
		return n, nil

	case "timestamp":
		switch n.Kind {
		case IntNode:
			return n, nil
		case StringNode:
			t, err := time.Parse(time.RFC3339, n.Str)
			if err != nil {
				return Node{}, errorf(n.pos, "bad timestamp %q", n.Str)
			}
			return Node{Kind: IntNode, Int: big.NewInt(t.Unix()), pos: n.pos}, nil
		}
		return Node{}, mismatch(n, s)

	case "key":
		return keyBytes(n)

	case "bool":
		if n.Kind == PrimNode && len(n.Args) == 0 && (n.Prim == "True" || n.Prim == "False") {
			return n, nil
		}
		return Node{}, mismatch(n, s)

	case "unit":
		if n.Kind == PrimNode && len(n.Args) == 0 && n.Prim == "Unit" {
			return n, nil
		}
		return Node{}, mismatch(n, s)

	case "option":
		if n.Kind != PrimNode {
			return Node{}, mismatch(n, s)
		}
		switch {
		case n.Prim == "None" && len(n.Args) == 0:
			return n, nil
		case n.Prim == "Some" && len(n.Args) == 1:
			v, err := typecheck(n.Args[0], s.Args[0])
			if err != nil {
				return Node{}, err
			}
			return Node{Kind: PrimNode, Prim: "Some", Args: []Node{v}, pos: n.pos}, nil
		}
		return Node{}, mismatch(n, s)

	case "pair":
		if n.Kind != PrimNode || n.Prim != "Pair" || len(n.Args) < 2 {
			return Node{}, mismatch(n, s)
		}
		left, err := typecheck(n.Args[0], s.Args[0])
		if err != nil {
			return Node{}, err
		}
		rest := n.Args[1]
		if len(n.Args) > 2 {
			rest = Node{Kind: PrimNode, Prim: "Pair", Args: n.Args[1:], pos: n.Args[1].pos}
		}
		right, err := typecheck(rest, s.Args[1])
		if err != nil {
			return Node{}, err
		}
		return Node{Kind: PrimNode, Prim: "Pair", Args: []Node{left, right}, pos: n.pos}, nil
	}
	return Node{}, errorf(n.pos, "unsupported type %s", s.Prim)
}

// keyBytes converts a public key literal to its tagged binary form:
// one curve byte (0 ed25519, 1 secp256k1, 2 p256) followed by the key.
func keyBytes(n Node) (Node, error) {
	switch n.Kind {
	case StringNode:
		p, payload, err := b58check.DecodeAny(n.Str, b58check.PublicKeys...)
		if err != nil {
			return Node{}, errorf(n.pos, "bad key %q: %v", n.Str, err)
		}
		var tag byte
		for i, k := range b58check.PublicKeys {
			if k.Name == p.Name {
				tag = byte(i)
			}
		}
		return Node{Kind: BytesNode, Bytes: append([]byte{tag}, payload...), pos: n.pos}, nil
	case BytesNode:
		if len(n.Bytes) == 0 || int(n.Bytes[0]) >= len(b58check.PublicKeys) ||
			len(n.Bytes)-1 != b58check.PublicKeys[n.Bytes[0]].PayloadSize {
			return Node{}, errorf(n.pos, "bad key bytes")
		}
		return n, nil
	}
	return Node{}, errorf(n.pos, "expected key, got %s", n.describe())
}

func mismatch(n Node, s Schema) *EncodingError {
	return errorf(n.pos, "expected %s, got %s", s, n.describe())
}

func (n Node) describe() string {
	switch n.Kind {
	case IntNode:
		return "int " + n.Int.String()
	case StringNode:
		return "string"
	case BytesNode:
		return "bytes"
	}
	return n.Prim
}
