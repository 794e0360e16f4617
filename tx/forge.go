package tx

import (
	"fmt"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
)

// Forge accumulates input and output descriptors and turns them into a
// transaction. A Forge is not safe for concurrent use.
type Forge struct {
	inputs       []*Input
	outputs      []*Output
	rates        Rates
	changeScript *script.Script

	tx       *transaction.Transaction
	selected []*Input
	dirty    bool
}

// BuildOptions controls Forge.Build.
type BuildOptions struct {
	// UseAllInputs spends every input. Otherwise the shortest prefix of
	// inputs that covers the outputs and fee is spent.
	UseAllInputs bool
}

// NewForge creates an empty forge using DefaultRates.
func NewForge() *Forge {
	return &Forge{rates: DefaultRates}
}

// NewForgeWithRates creates an empty forge with the given fee rates.
func NewForgeWithRates(rates Rates) (*Forge, error) {
	if err := rates.Validate(); err != nil {
		return nil, err
	}
	return &Forge{rates: rates}, nil
}

// Rates returns the forge's fee rates.
func (f *Forge) Rates() Rates {
	return f.rates
}

// AddInput adds one or more inputs. v may be an InputParams, a
// map[string]any of the same shape, an *Input, a
// *transaction.TransactionInput carrying its source output, or a slice of
// any of these. Either every input in v is added or none is.
func (f *Forge) AddInput(v any) error {
	ins, err := resolveInputs(v)
	if err != nil {
		return err
	}
	for i, in := range ins {
		if f.HasInput(in.TxID, in.Vout) {
			return fmt.Errorf("%w: %s", ErrDuplicateInput, in.Outpoint())
		}
		for _, prev := range ins[:i] {
			if prev.sameOutpoint(in.TxID, in.Vout) {
				return fmt.Errorf("%w: %s", ErrDuplicateInput, in.Outpoint())
			}
		}
	}
	f.inputs = append(f.inputs, ins...)
	f.dirty = true
	return nil
}

// AddOutput adds one or more outputs. v may be an OutputParams, a
// map[string]any of the same shape, an *Output, a
// *transaction.TransactionOutput, or a slice of any of these. Either every
// output in v is added or none is.
func (f *Forge) AddOutput(v any) error {
	outs, err := resolveOutputs(v)
	if err != nil {
		return err
	}
	f.outputs = append(f.outputs, outs...)
	f.dirty = true
	return nil
}

// HasInput reports whether the outpoint is already spent by the forge.
// txid is in internal byte order.
func (f *Forge) HasInput(txid *chainhash.Hash, vout uint32) bool {
	for _, in := range f.inputs {
		if in.sameOutpoint(txid, vout) {
			return true
		}
	}
	return false
}

// Inputs returns a copy of the input descriptors.
func (f *Forge) Inputs() []*Input {
	return append([]*Input(nil), f.inputs...)
}

// Outputs returns a copy of the output descriptors.
func (f *Forge) Outputs() []*Output {
	return append([]*Output(nil), f.outputs...)
}

// InputSum returns the total value of all inputs.
func (f *Forge) InputSum() uint64 {
	return sumInputs(f.inputs)
}

// OutputSum returns the total value of all outputs.
func (f *Forge) OutputSum() uint64 {
	var sum uint64
	for _, out := range f.outputs {
		sum += out.Satoshis
	}
	return sum
}

func sumInputs(ins []*Input) uint64 {
	var sum uint64
	for _, in := range ins {
		sum += in.Satoshis
	}
	return sum
}

// EstimateFee estimates the fee for the current descriptors. A nil rates
// uses the forge's rates.
func (f *Forge) EstimateFee(rates *Rates, assumeOneChangeInput bool) uint64 {
	r := f.rates
	if rates != nil {
		r = *rates
	}
	return EstimateFee(f.inputs, f.outputs, r, assumeOneChangeInput)
}

// SetChangeScript sets the locking script any change is paid to. A nil
// script disables change.
func (f *Forge) SetChangeScript(s *script.Script) {
	f.changeScript = s
	f.dirty = true
}

// SetChangeAddress pays change to a base58 address.
func (f *Forge) SetChangeAddress(address string) error {
	s, err := AddressScript(address)
	if err != nil {
		return err
	}
	f.SetChangeScript(s)
	return nil
}

// ChangeScript returns the change locking script, or nil.
func (f *Forge) ChangeScript() *script.Script {
	return f.changeScript
}

// Build assembles the transaction: version 1, locktime 0, the selected
// inputs in insertion order, the outputs in insertion order, and a change
// output when a change script is set and the surplus reaches DustLimit.
//
// Build is idempotent until a descriptor or the change script changes.
func (f *Forge) Build(opts BuildOptions) (*transaction.Transaction, error) {
	if f.tx != nil && !f.dirty {
		return f.tx, nil
	}

	selected, fee, err := f.selectInputs(opts.UseAllInputs)
	if err != nil {
		return nil, err
	}

	sdkTx := transaction.NewTransaction()
	for _, in := range selected {
		ti := &transaction.TransactionInput{
			SourceTXID:       in.TxID,
			SourceTxOutIndex: in.Vout,
			SequenceNumber:   transaction.DefaultSequenceNumber,
		}
		ti.SetSourceTxOutput(&transaction.TransactionOutput{
			Satoshis:      in.Satoshis,
			LockingScript: in.LockingScript,
		})
		if in.Kind == InputCast {
			ti.UnlockingScriptTemplate = in.Template
			ti.UnlockingScript = in.UnlockingScript
		}
		sdkTx.Inputs = append(sdkTx.Inputs, ti)
	}

	for _, out := range f.outputs {
		sdkTx.Outputs = append(sdkTx.Outputs, out.TransactionOutput())
	}

	if f.changeScript != nil {
		surplus := sumInputs(selected) - f.OutputSum() - fee
		if surplus >= DustLimit {
			sdkTx.Outputs = append(sdkTx.Outputs, &transaction.TransactionOutput{
				Satoshis:      surplus,
				LockingScript: f.changeScript,
				Change:        true,
			})
		}
	}

	f.tx = sdkTx
	f.selected = selected
	f.dirty = false
	return sdkTx, nil
}

// selectInputs picks the inputs to spend and returns them with the fee
// they require.
func (f *Forge) selectInputs(useAll bool) ([]*Input, uint64, error) {
	outSum := f.OutputSum()

	if useAll {
		fee := EstimateFee(f.inputs, f.outputs, f.rates, false)
		if have := sumInputs(f.inputs); have < outSum+fee {
			return nil, 0, fmt.Errorf("%w: need %d sat, have %d sat",
				ErrInsufficientFunds, outSum+fee, have)
		}
		return f.inputs, fee, nil
	}

	var have uint64
	for i := range f.inputs {
		have += f.inputs[i].Satoshis
		prefix := f.inputs[:i+1]
		fee := EstimateFee(prefix, f.outputs, f.rates, false)
		if have >= outSum+fee {
			return prefix, fee, nil
		}
	}
	fee := EstimateFee(f.inputs, f.outputs, f.rates, false)
	return nil, 0, fmt.Errorf("%w: need %d sat, have %d sat",
		ErrInsufficientFunds, outSum+fee, have)
}

// Built reports whether the transaction is built and reflects the current
// descriptors.
func (f *Forge) Built() bool {
	return f.tx != nil && !f.dirty
}

// Transaction returns the last built transaction, or nil.
func (f *Forge) Transaction() *transaction.Transaction {
	return f.tx
}

// Bytes serializes the last built transaction. Before the first build it
// returns an empty version 1 transaction.
func (f *Forge) Bytes() []byte {
	if f.tx == nil {
		return transaction.NewTransaction().Bytes()
	}
	return f.tx.Bytes()
}

// Hex returns the hex encoding of Bytes.
func (f *Forge) Hex() string {
	if f.tx == nil {
		return transaction.NewTransaction().Hex()
	}
	return f.tx.Hex()
}

// TxID returns the display-order txid of the last built transaction, or an
// empty string.
func (f *Forge) TxID() string {
	if f.tx == nil {
		return ""
	}
	return f.tx.TxID().String()
}
