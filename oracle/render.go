package oracle

import (
	"github.com/yitech/harbinger/michelson"
	"github.com/yitech/harbinger/model/candle"
)

// RevokeLiteral is the key update that revokes the oracle key.
const RevokeLiteral = "None"

// Render writes c as the pair literal expected under michelson.CandleSchema:
//
//	Pair "<asset>" (Pair <start> (Pair <end> (Pair <open> (Pair <high> (Pair <low> (Pair <close> <volume>))))))
func Render(c candle.Candle) string {
	return michelson.Pair(
		michelson.String(c.AssetName),
		michelson.Int(c.StartTimestamp),
		michelson.Int(c.EndTimestamp),
		michelson.Nat(c.Open),
		michelson.Nat(c.High),
		michelson.Nat(c.Low),
		michelson.Nat(c.Close),
		michelson.Nat(c.Volume),
	).String()
}
