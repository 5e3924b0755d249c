// Package michelson packs typed Michelson values into the binary form that
// the on-chain PACK instruction produces, so that contracts can check
// signatures over it.
package michelson

// Pack parses message, checks it against schema and returns the packed bytes.
// Identical inputs always produce identical bytes. Failures are
// *EncodingError.
func Pack(message string, schema Schema) ([]byte, error) {
	n, err := Parse(message)
	if err != nil {
		return nil, err
	}
	return PackNode(n, schema)
}

// PackNode is Pack for an already built value.
func PackNode(n Node, schema Schema) ([]byte, error) {
	typed, err := typecheck(n, schema)
	if err != nil {
		return nil, err
	}
	return packNode(typed)
}
