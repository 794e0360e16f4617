package tx

import (
	"bytes"
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	sighash "github.com/bsv-blockchain/go-sdk/transaction/sighash"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"

	"github.com/bitfsorg/presto-go/internal/log"
)

const (
	placeholderSigLen    = 72
	placeholderPubKeyLen = 33
)

// SignParams carries signing material for Forge.Sign and Forge.SignInput.
type SignParams struct {
	Key *ec.PrivateKey
	// SigHashFlag defaults to SIGHASH_ALL|FORKID when nil.
	SigHashFlag *sighash.Flag
}

// Sign signs every input of the transaction, building it with all inputs
// first if it is unbuilt or stale.
//
// Cast inputs are signed by their own template. P2PKH inputs are signed
// with params.Key when it matches the locking script. Any other input gets
// a zero-filled placeholder unlocking script of signed size; a warning is
// logged and no error is returned.
func (f *Forge) Sign(params SignParams) error {
	sdkTx, err := f.ensureBuilt()
	if err != nil {
		return err
	}
	for i := range sdkTx.Inputs {
		if err := f.signInput(sdkTx, i, params); err != nil {
			return err
		}
	}
	return nil
}

// SignInput signs a single input of the built transaction.
func (f *Forge) SignInput(index int, params SignParams) error {
	sdkTx, err := f.ensureBuilt()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(sdkTx.Inputs) {
		return fmt.Errorf("%w: %d of %d", ErrInputIndex, index, len(sdkTx.Inputs))
	}
	return f.signInput(sdkTx, index, params)
}

func (f *Forge) ensureBuilt() (*transaction.Transaction, error) {
	if f.Built() {
		return f.tx, nil
	}
	return f.Build(BuildOptions{UseAllInputs: true})
}

func (f *Forge) signInput(sdkTx *transaction.Transaction, i int, params SignParams) error {
	in := f.selected[i]
	ti := sdkTx.Inputs[i]

	if in.Kind == InputCast {
		if in.Template == nil {
			// Arrived signed, or is signed elsewhere.
			return nil
		}
		unlock, err := in.Template.Sign(sdkTx, uint32(i))
		if err != nil {
			return fmt.Errorf("%w: input %d: %w", ErrSigningFailed, i, err)
		}
		ti.UnlockingScript = unlock
		in.UnlockingScript = unlock
		return nil
	}

	if !keyMatches(params.Key, in.LockingScript) {
		log.Tx.Warn().
			Int("input", i).
			Str("outpoint", in.Outpoint()).
			Msg("no matching key for input, writing placeholder unlocking script")
		unlock, err := placeholderUnlockingScript()
		if err != nil {
			return err
		}
		ti.UnlockingScript = unlock
		return nil
	}

	unlocker, err := p2pkh.Unlock(params.Key, params.SigHashFlag)
	if err != nil {
		return fmt.Errorf("%w: failed to create unlocker for input %d: %w", ErrSigningFailed, i, err)
	}
	unlock, err := unlocker.Sign(sdkTx, uint32(i))
	if err != nil {
		return fmt.Errorf("%w: input %d: %w", ErrSigningFailed, i, err)
	}
	ti.UnlockingScript = unlock
	in.UnlockingScript = unlock
	return nil
}

// keyMatches reports whether key unlocks the P2PKH locking script.
func keyMatches(key *ec.PrivateKey, lockingScript *script.Script) bool {
	if key == nil || !IsPubKeyHashScript(lockingScript) {
		return false
	}
	pkh, err := lockingScript.PublicKeyHash()
	if err != nil {
		return false
	}
	addr, err := script.NewAddressFromPublicKey(key.PubKey(), true)
	if err != nil {
		return false
	}
	return bytes.Equal(pkh, addr.PublicKeyHash)
}

func placeholderUnlockingScript() (*script.Script, error) {
	s := &script.Script{}
	if err := s.AppendPushData(make([]byte, placeholderSigLen)); err != nil {
		return nil, fmt.Errorf("%w: placeholder signature: %w", ErrScriptBuild, err)
	}
	if err := s.AppendPushData(make([]byte, placeholderPubKeyLen)); err != nil {
		return nil, fmt.Errorf("%w: placeholder public key: %w", ErrScriptBuild, err)
	}
	return s, nil
}
