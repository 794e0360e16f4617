package tx

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
)

// InputKind distinguishes inputs resolved from literal params from inputs
// supplied as prepared transaction inputs.
type InputKind int

const (
	// InputPubKeyHash is an input resolved from a txid/vout/satoshis/script
	// literal and signed with a P2PKH key.
	InputPubKeyHash InputKind = iota
	// InputCast is a prepared transaction input carried verbatim, signed by
	// its own unlocking template if it has one.
	InputCast
)

// InputParams is the literal shape of an input descriptor, as decoded from
// JSON. Vout and OutputIndex are aliases, as are Satoshis and Amount.
type InputParams struct {
	TxID        string  `json:"txid,omitempty"`
	Vout        *uint32 `json:"vout,omitempty"`
	OutputIndex *uint32 `json:"outputIndex,omitempty"`
	Satoshis    *uint64 `json:"satoshis,omitempty"`
	Amount      *uint64 `json:"amount,omitempty"`
	Script      string  `json:"script,omitempty"`
}

// Input is a resolved input descriptor.
type Input struct {
	Kind InputKind
	// TxID is in internal byte order.
	TxID          *chainhash.Hash
	Vout          uint32
	Satoshis      uint64
	LockingScript *script.Script

	// Template signs a cast input. Nil for InputPubKeyHash.
	Template transaction.UnlockingScriptTemplate
	// UnlockingScript is set once the input is signed, or carried in from a
	// cast input that arrived already signed.
	UnlockingScript *script.Script
}

// IsPubKeyHash reports whether the input spends a P2PKH output.
func (in *Input) IsPubKeyHash() bool {
	return IsPubKeyHashScript(in.LockingScript)
}

// Outpoint returns the "txid:vout" form of the spent output, txid in display
// order.
func (in *Input) Outpoint() string {
	if in.TxID == nil {
		return fmt.Sprintf(":%d", in.Vout)
	}
	return fmt.Sprintf("%s:%d", in.TxID.String(), in.Vout)
}

func (in *Input) sameOutpoint(txid *chainhash.Hash, vout uint32) bool {
	return in.Vout == vout && in.TxID != nil && txid != nil && in.TxID.IsEqual(txid)
}

// Resolve converts input params into an Input.
func (p InputParams) Resolve() (*Input, error) {
	if p.TxID == "" {
		return nil, fmt.Errorf("%w: missing txid", ErrInvalidInput)
	}
	if len(p.TxID) != chainhash.HashSize*2 {
		return nil, fmt.Errorf("%w: txid must be %d hex characters", ErrInvalidInput, chainhash.HashSize*2)
	}
	txid, err := chainhash.NewHashFromHex(p.TxID)
	if err != nil {
		return nil, fmt.Errorf("%w: txid: %w", ErrInvalidInput, err)
	}

	var vout uint32
	switch {
	case p.Vout != nil:
		vout = *p.Vout
	case p.OutputIndex != nil:
		vout = *p.OutputIndex
	default:
		return nil, fmt.Errorf("%w: missing vout", ErrInvalidInput)
	}

	var sats uint64
	switch {
	case p.Satoshis != nil:
		sats = *p.Satoshis
	case p.Amount != nil:
		sats = *p.Amount
	default:
		return nil, fmt.Errorf("%w: missing satoshis", ErrInvalidInput)
	}

	if p.Script == "" {
		return nil, fmt.Errorf("%w: missing script", ErrInvalidInput)
	}
	lockingScript, err := script.NewFromHex(p.Script)
	if err != nil {
		return nil, fmt.Errorf("%w: script: %w", ErrInvalidInput, err)
	}

	return &Input{
		Kind:          InputPubKeyHash,
		TxID:          txid,
		Vout:          vout,
		Satoshis:      sats,
		LockingScript: lockingScript,
	}, nil
}

// CastInput wraps a prepared transaction input. The input must reference
// its source transaction and carry its source output.
func CastInput(ti *transaction.TransactionInput) (*Input, error) {
	if ti == nil {
		return nil, fmt.Errorf("%w: transaction input", ErrNilParam)
	}
	if ti.SourceTXID == nil {
		return nil, fmt.Errorf("%w: cast input has no source txid", ErrInvalidInput)
	}
	src := ti.SourceTxOutput()
	if src == nil {
		return nil, fmt.Errorf("%w: cast input has no source output", ErrInvalidInput)
	}
	return &Input{
		Kind:            InputCast,
		TxID:            ti.SourceTXID,
		Vout:            ti.SourceTxOutIndex,
		Satoshis:        src.Satoshis,
		LockingScript:   src.LockingScript,
		Template:        ti.UnlockingScriptTemplate,
		UnlockingScript: ti.UnlockingScript,
	}, nil
}

// OutputKind records which descriptor shape produced an output.
type OutputKind int

const (
	// OutputScript carries an explicit locking script.
	OutputScript OutputKind = iota
	// OutputData is a zero-value OP_FALSE OP_RETURN data output.
	OutputData
	// OutputAddress pays to a base58 address.
	OutputAddress
	// OutputPrebuilt is a transaction output supplied verbatim.
	OutputPrebuilt
)

// OutputParams is the literal shape of an output descriptor. The first of
// Script, Data and To that is present decides the kind.
type OutputParams struct {
	Satoshis *uint64 `json:"satoshis,omitempty"`
	Amount   *uint64 `json:"amount,omitempty"`
	Script   string  `json:"script,omitempty"`
	Data     []any   `json:"data,omitempty"`
	To       string  `json:"to,omitempty"`
}

// Output is a resolved output descriptor.
type Output struct {
	Kind          OutputKind
	Satoshis      uint64
	LockingScript *script.Script
}

// ScriptLen returns the length of the locking script in bytes.
func (o *Output) ScriptLen() int {
	if o.LockingScript == nil {
		return 0
	}
	return len(*o.LockingScript)
}

// TransactionOutput returns the output in transaction form.
func (o *Output) TransactionOutput() *transaction.TransactionOutput {
	return &transaction.TransactionOutput{
		Satoshis:      o.Satoshis,
		LockingScript: o.LockingScript,
	}
}

func (p OutputParams) value() uint64 {
	switch {
	case p.Satoshis != nil:
		return *p.Satoshis
	case p.Amount != nil:
		return *p.Amount
	}
	return 0
}

// Resolve converts output params into an Output.
func (p OutputParams) Resolve() (*Output, error) {
	switch {
	case p.Script != "":
		s, err := script.NewFromHex(p.Script)
		if err != nil {
			return nil, fmt.Errorf("%w: script: %w", ErrInvalidOutput, err)
		}
		return &Output{Kind: OutputScript, Satoshis: p.value(), LockingScript: s}, nil

	case p.Data != nil:
		s, err := EncodeDataScript(p.Data)
		if err != nil {
			return nil, err
		}
		return &Output{Kind: OutputData, LockingScript: s}, nil

	case p.To != "":
		s, err := AddressScript(p.To)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidOutput, err)
		}
		return &Output{Kind: OutputAddress, Satoshis: p.value(), LockingScript: s}, nil
	}
	return nil, fmt.Errorf("%w: expected script, data or to", ErrInvalidOutput)
}

// PrebuiltOutput wraps a transaction output supplied verbatim.
func PrebuiltOutput(to *transaction.TransactionOutput) (*Output, error) {
	if to == nil || to.LockingScript == nil {
		return nil, fmt.Errorf("%w: output has no locking script", ErrInvalidOutput)
	}
	return &Output{Kind: OutputPrebuilt, Satoshis: to.Satoshis, LockingScript: to.LockingScript}, nil
}

// remarshal decodes a generic JSON-shaped map into dst.
func remarshal(m map[string]any, dst any) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

// outputParamsFromMap reads an output descriptor map field by field. Data
// chunks are kept as given, so byte slices stay raw bytes.
func outputParamsFromMap(m map[string]any) (OutputParams, error) {
	var p OutputParams
	var err error
	if p.Satoshis, err = mapUint64(m, "satoshis"); err != nil {
		return p, err
	}
	if p.Amount, err = mapUint64(m, "amount"); err != nil {
		return p, err
	}
	if p.Script, err = mapString(m, "script"); err != nil {
		return p, err
	}
	if p.To, err = mapString(m, "to"); err != nil {
		return p, err
	}

	switch d := m["data"].(type) {
	case nil:
	case []any:
		p.Data = d
	case []string:
		p.Data = make([]any, len(d))
		for i, c := range d {
			p.Data[i] = c
		}
	case [][]byte:
		p.Data = make([]any, len(d))
		for i, c := range d {
			p.Data[i] = c
		}
	default:
		return p, fmt.Errorf("data: expected an array, got %T", d)
	}
	return p, nil
}

func mapString(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: expected a string, got %T", key, v)
	}
	return s, nil
}

func mapUint64(m map[string]any, key string) (*uint64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}

	var n uint64
	switch x := v.(type) {
	case uint64:
		n = x
	case uint32:
		n = uint64(x)
	case uint:
		n = uint64(x)
	case int:
		if x < 0 {
			return nil, fmt.Errorf("%s: negative value %d", key, x)
		}
		n = uint64(x)
	case int64:
		if x < 0 {
			return nil, fmt.Errorf("%s: negative value %d", key, x)
		}
		n = uint64(x)
	case float64:
		if x < 0 || x != math.Trunc(x) || x >= math.Exp2(64) {
			return nil, fmt.Errorf("%s: %v is not a satoshi amount", key, x)
		}
		n = uint64(x)
	case json.Number:
		u, err := strconv.ParseUint(x.String(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		n = u
	default:
		return nil, fmt.Errorf("%s: expected a number, got %T", key, v)
	}
	return &n, nil
}

func resolveInputs(v any) ([]*Input, error) {
	switch in := v.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil input", ErrInvalidInput)
	case []any:
		return collect(in, resolveInputs)
	case []InputParams:
		return collect(in, resolveInputs)
	case []*Input:
		return collect(in, resolveInputs)
	case []*transaction.TransactionInput:
		return collect(in, resolveInputs)
	case *Input:
		if in == nil || in.TxID == nil {
			return nil, fmt.Errorf("%w: input has no txid", ErrInvalidInput)
		}
		return []*Input{in}, nil
	case Input:
		return resolveInputs(&in)
	case InputParams:
		r, err := in.Resolve()
		if err != nil {
			return nil, err
		}
		return []*Input{r}, nil
	case *InputParams:
		if in == nil {
			return nil, fmt.Errorf("%w: nil input", ErrInvalidInput)
		}
		return resolveInputs(*in)
	case map[string]any:
		var p InputParams
		if err := remarshal(in, &p); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return resolveInputs(p)
	case *transaction.TransactionInput:
		r, err := CastInput(in)
		if err != nil {
			return nil, err
		}
		return []*Input{r}, nil
	}
	return nil, fmt.Errorf("%w: unsupported input type %T", ErrInvalidInput, v)
}

func resolveOutputs(v any) ([]*Output, error) {
	switch out := v.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil output", ErrInvalidOutput)
	case []any:
		return collect(out, resolveOutputs)
	case []OutputParams:
		return collect(out, resolveOutputs)
	case []*Output:
		return collect(out, resolveOutputs)
	case []*transaction.TransactionOutput:
		return collect(out, resolveOutputs)
	case *Output:
		if out == nil || out.LockingScript == nil {
			return nil, fmt.Errorf("%w: output has no locking script", ErrInvalidOutput)
		}
		return []*Output{out}, nil
	case Output:
		return resolveOutputs(&out)
	case OutputParams:
		r, err := out.Resolve()
		if err != nil {
			return nil, err
		}
		return []*Output{r}, nil
	case *OutputParams:
		if out == nil {
			return nil, fmt.Errorf("%w: nil output", ErrInvalidOutput)
		}
		return resolveOutputs(*out)
	case map[string]any:
		p, err := outputParamsFromMap(out)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidOutput, err)
		}
		return resolveOutputs(p)
	case *transaction.TransactionOutput:
		r, err := PrebuiltOutput(out)
		if err != nil {
			return nil, err
		}
		return []*Output{r}, nil
	}
	return nil, fmt.Errorf("%w: unsupported output type %T", ErrInvalidOutput, v)
}

func collect[S ~[]E, E any, R any](items S, resolve func(any) ([]R, error)) ([]R, error) {
	var all []R
	for i, item := range items {
		r, err := resolve(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		all = append(all, r...)
	}
	return all, nil
}
