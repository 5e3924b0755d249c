package michelson

import (
	"math/big"
	"strconv"
	"strings"
)

// NodeKind discriminates the Micheline node variants.
type NodeKind int

const (
	IntNode NodeKind = iota
	StringNode
	BytesNode
	PrimNode
)

// Node is one Micheline expression: an int, string or bytes literal, or a
// primitive applied to arguments.
type Node struct {
	Kind  NodeKind
	Int   *big.Int
	Str   string
	Bytes []byte
	Prim  string
	Args  []Node

	pos int
}

func Int(v int64) Node { return Node{Kind: IntNode, Int: big.NewInt(v), pos: -1} }

func Nat(v uint64) Node { return Node{Kind: IntNode, Int: new(big.Int).SetUint64(v), pos: -1} }

func String(s string) Node { return Node{Kind: StringNode, Str: s, pos: -1} }

func Bytes(b []byte) Node { return Node{Kind: BytesNode, Bytes: b, pos: -1} }

func Prim(name string, args ...Node) Node {
	return Node{Kind: PrimNode, Prim: name, Args: args, pos: -1}
}

// Pair builds a right comb: Pair(a, b, c) is Pair a (Pair b c).
func Pair(first Node, rest ...Node) Node {
	if len(rest) == 0 {
		return first
	}
	return Prim("Pair", first, Pair(rest[0], rest[1:]...))
}

// String renders n as a literal that Parse reads back to the same node.
func (n Node) String() string {
	var sb strings.Builder
	n.write(&sb, false)
	return sb.String()
}

func (n Node) write(sb *strings.Builder, nested bool) {
	switch n.Kind {
	case IntNode:
		sb.WriteString(n.Int.String())
	case StringNode:
		sb.WriteString(strconv.Quote(n.Str))
	case BytesNode:
		sb.WriteString("0x")
		const digits = "0123456789abcdef"
		for _, b := range n.Bytes {
			sb.WriteByte(digits[b>>4])
			sb.WriteByte(digits[b&0x0f])
		}
	case PrimNode:
		if nested && len(n.Args) > 0 {
			sb.WriteByte('(')
		}
		sb.WriteString(n.Prim)
		for _, a := range n.Args {
			sb.WriteByte(' ')
			a.write(sb, true)
		}
		if nested && len(n.Args) > 0 {
			sb.WriteByte(')')
		}
	}
}
