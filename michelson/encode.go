package michelson

import (
	"bytes"
	"encoding/binary"
	"math/big"
)

// Micheline binary node tags.
const (
	tagInt        = 0x00
	tagString     = 0x01
	tagPrim0      = 0x03
	tagPrim1      = 0x05
	tagPrim2      = 0x07
	tagBytes      = 0x0a
	packWatermark = 0x05
)

// primitive data constructor opcodes.
var opcodes = map[string]byte{
	"False": 0x03,
	"Elt":   0x04,
	"Left":  0x05,
	"None":  0x06,
	"Pair":  0x07,
	"Right": 0x08,
	"Some":  0x09,
	"True":  0x0a,
	"Unit":  0x0b,
}

func encode(buf *bytes.Buffer, n Node) error {
	switch n.Kind {
	case IntNode:
		buf.WriteByte(tagInt)
		writeZarith(buf, n.Int)
	case StringNode:
		buf.WriteByte(tagString)
		writeSized(buf, []byte(n.Str))
	case BytesNode:
		buf.WriteByte(tagBytes)
		writeSized(buf, n.Bytes)
	case PrimNode:
		op, ok := opcodes[n.Prim]
		if !ok {
			return errorf(n.pos, "unknown primitive %s", n.Prim)
		}
		if len(n.Args) > 2 {
			return errorf(n.pos, "%s: too many arguments", n.Prim)
		}
		buf.WriteByte(tagPrim0 + 2*byte(len(n.Args)))
		buf.WriteByte(op)
		for _, a := range n.Args {
			if err := encode(buf, a); err != nil {
				return err
			}
		}
	default:
		return errorf(n.pos, "unknown node kind %d", n.Kind)
	}
	return nil
}

func writeSized(buf *bytes.Buffer, b []byte) {
	var l [4]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(b)))
	buf.Write(l[:])
	buf.Write(b)
}

// writeZarith writes v in the signed variable-length encoding: the first
// byte carries a continuation bit, a sign bit and 6 value bits, every later
// byte a continuation bit and 7 value bits, least significant group first.
func writeZarith(buf *bytes.Buffer, v *big.Int) {
	abs := new(big.Int).Abs(v)
	lo := byte(new(big.Int).And(abs, big.NewInt(0x3f)).Uint64())
	abs.Rsh(abs, 6)

	first := lo
	if v.Sign() < 0 {
		first |= 0x40
	}
	if abs.Sign() > 0 {
		first |= 0x80
	}
	buf.WriteByte(first)

	mask := big.NewInt(0x7f)
	for abs.Sign() > 0 {
		b := byte(new(big.Int).And(abs, mask).Uint64())
		abs.Rsh(abs, 7)
		if abs.Sign() > 0 {
			b |= 0x80
		}
		buf.WriteByte(b)
	}
}

// packNode prepends the PACK watermark to the binary form of n.
func packNode(n Node) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(packWatermark)
	if err := encode(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
