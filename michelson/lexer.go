package michelson

import (
	"encoding/hex"
	"math/big"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLParen
	tokRParen
	tokInt
	tokString
	tokBytes
	tokIdent
	tokAnnot
)

type token struct {
	kind  tokenKind
	pos   int
	text  string
	int   *big.Int
	bytes []byte
}

// tokenize splits a Michelson expression into tokens. Sequences ({ ... })
// are not part of the accepted grammar.
func tokenize(src string) ([]token, error) {
	var out []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			out = append(out, token{kind: tokLParen, pos: i})
			i++
		case c == ')':
			out = append(out, token{kind: tokRParen, pos: i})
			i++
		case c == '"':
			s, n, err := lexString(src, i)
			if err != nil {
				return nil, err
			}
			out = append(out, token{kind: tokString, pos: i, text: s})
			i += n
		case c == '0' && i+1 < len(src) && src[i+1] == 'x':
			j := i + 2
			for j < len(src) && isHex(src[j]) {
				j++
			}
			b, err := hex.DecodeString(src[i+2 : j])
			if err != nil {
				return nil, errorf(i, "bad bytes literal %q", src[i:j])
			}
			out = append(out, token{kind: tokBytes, pos: i, bytes: b})
			i = j
		case c == '-' || isDigit(c):
			j := i + 1
			for j < len(src) && isDigit(src[j]) {
				j++
			}
			n, ok := new(big.Int).SetString(src[i:j], 10)
			if !ok {
				return nil, errorf(i, "bad int literal %q", src[i:j])
			}
			out = append(out, token{kind: tokInt, pos: i, int: n})
			i = j
		case c == '%' || c == ':' || c == '@':
			j := i + 1
			for j < len(src) && isIdent(src[j]) {
				j++
			}
			out = append(out, token{kind: tokAnnot, pos: i, text: src[i:j]})
			i = j
		case isIdent(c):
			j := i + 1
			for j < len(src) && isIdent(src[j]) {
				j++
			}
			out = append(out, token{kind: tokIdent, pos: i, text: src[i:j]})
			i = j
		default:
			return nil, errorf(i, "unexpected character %q", c)
		}
	}
	return append(out, token{kind: tokEOF, pos: len(src)}), nil
}

// lexString reads a quoted string starting at src[start] and returns the
// unescaped value and the number of bytes consumed. Only printable ASCII is
// allowed between the quotes.
func lexString(src string, start int) (string, int, error) {
	var sb strings.Builder
	i := start + 1
	for i < len(src) {
		c := src[i]
		switch {
		case c == '"':
			return sb.String(), i + 1 - start, nil
		case c == '\\':
			if i+1 >= len(src) {
				return "", 0, errorf(i, "unterminated escape")
			}
			switch src[i+1] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case 'b':
				sb.WriteByte('\b')
			case '\\', '"':
				sb.WriteByte(src[i+1])
			default:
				return "", 0, errorf(i, "unknown escape \\%c", src[i+1])
			}
			i += 2
		case c < 0x20 || c > 0x7e:
			return "", 0, errorf(i, "non-printable character in string")
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return "", 0, errorf(start, "unterminated string")
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdent(c byte) bool {
	return c == '_' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
