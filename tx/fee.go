package tx

import (
	"fmt"
	"math"

	"github.com/bsv-blockchain/go-sdk/util"

	"github.com/bitfsorg/presto-go/internal/log"
)

const (
	// DustLimit is the minimum output value in satoshis the network relays.
	DustLimit = uint64(546)

	// MinAmount is the floor applied to a payment amount.
	MinAmount = DustLimit + 1

	// ChangeOutputSize is the serialized size of a P2PKH change output.
	ChangeOutputSize = 34

	// P2PKHInputSize is the serialized size of a signed P2PKH input.
	P2PKHInputSize = 148
)

// Rates holds per-byte fee rates in satoshis for each byte class.
type Rates struct {
	Standard float64 `json:"standard"`
	Data     float64 `json:"data"`
}

// DefaultRates is half a satoshi per byte for both classes.
var DefaultRates = Rates{Standard: 0.5, Data: 0.5}

// Validate rejects negative or non-finite rates.
func (r Rates) Validate() error {
	for name, v := range map[string]float64{"standard": r.Standard, "data": r.Data} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s rate %v", ErrInvalidRates, name, v)
		}
	}
	return nil
}

// SizeEstimate is an estimated transaction size split by byte class.
type SizeEstimate struct {
	Standard int
	Data     int
}

// Total returns the combined estimated size.
func (e SizeEstimate) Total() int {
	return e.Standard + e.Data
}

// Fee prices each byte class at its rate, rounding each class up.
func (e SizeEstimate) Fee(r Rates) uint64 {
	return ceilBytes(e.Standard, r.Standard) + ceilBytes(e.Data, r.Data)
}

func ceilBytes(n int, rate float64) uint64 {
	return uint64(math.Ceil(float64(n) * rate))
}

// EstimateSize estimates the size of a transaction spending inputs into
// outputs. The estimate always reserves room for one P2PKH change output.
// When there are no inputs and assumeOneChangeInput is set, one P2PKH
// funding input is assumed.
//
// Inputs whose locking script is not P2PKH contribute nothing; a warning is
// logged for each.
func EstimateSize(inputs []*Input, outputs []*Output, assumeOneChangeInput bool) SizeEstimate {
	var est SizeEstimate

	// version + locktime + counts
	est.Standard += 4 + 4
	est.Standard += util.VarInt(uint64(len(inputs))).Length()
	est.Standard += util.VarInt(uint64(len(outputs))).Length()
	est.Standard += ChangeOutputSize

	for i, in := range inputs {
		if in.IsPubKeyHash() {
			est.Standard += P2PKHInputSize
			continue
		}
		log.Tx.Warn().
			Int("input", i).
			Str("outpoint", in.Outpoint()).
			Msg(ErrUnsupportedScript.Error())
	}

	if len(inputs) == 0 && assumeOneChangeInput {
		est.Standard += P2PKHInputSize
	}

	for _, out := range outputs {
		n := 8 + util.VarInt(uint64(out.ScriptLen())).Length() + out.ScriptLen()
		if IsDataScript(out.LockingScript) {
			est.Data += n
		} else {
			est.Standard += n
		}
	}

	return est
}

// EstimateFee returns the fee in satoshis for the given inputs and outputs.
func EstimateFee(inputs []*Input, outputs []*Output, rates Rates, assumeOneChangeInput bool) uint64 {
	return EstimateSize(inputs, outputs, assumeOneChangeInput).Fee(rates)
}
