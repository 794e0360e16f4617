package tx

import (
	"bytes"
	"testing"

	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fundedForge(t *testing.T, sats uint64) (*Forge, SignParams) {
	t.Helper()
	priv, pub := generateTestKeyPair(t)
	f := NewForge()
	require.NoError(t, f.AddInput(keyInputParams(t, pub, 0x40, sats)))
	require.NoError(t, f.AddOutput(OutputParams{To: testAddress(t, pub), Satoshis: u64(1000)}))
	require.NoError(t, f.AddOutput(OutputParams{Data: []any{"presto"}}))
	require.NoError(t, f.SetChangeAddress(testAddress(t, pub)))
	return f, SignParams{Key: priv}
}

func TestSign_RoundTrip(t *testing.T) {
	f, params := fundedForge(t, 10000)
	require.NoError(t, f.Sign(params))

	parsed, err := transaction.NewTransactionFromHex(f.Hex())
	require.NoError(t, err)
	require.Len(t, parsed.Inputs, 1)
	require.Len(t, parsed.Outputs, 3)
	assert.Equal(t, f.TxID(), parsed.TxID().String())
	assert.Equal(t, f.Bytes(), parsed.Bytes())

	unlock := parsed.Inputs[0].UnlockingScript
	require.NotNil(t, unlock)
	assert.NotEqual(t, placeholderBytes(), []byte(*unlock))
	assert.NotNil(t, f.Inputs()[0].UnlockingScript)
}

func TestSign_BuildsWhenStale(t *testing.T) {
	f, params := fundedForge(t, 10000)
	_, err := f.Build(BuildOptions{})
	require.NoError(t, err)

	require.NoError(t, f.AddOutput(OutputParams{Data: []any{"more"}}))
	require.NoError(t, f.Sign(params))
	assert.Len(t, f.Transaction().Outputs, 4)
	assert.True(t, f.Built())
}

func TestSign_MismatchedKeyWritesPlaceholder(t *testing.T) {
	f, _ := fundedForge(t, 10000)
	other, _ := generateTestKeyPair(t)

	require.NoError(t, f.Sign(SignParams{Key: other}))
	unlock := f.Transaction().Inputs[0].UnlockingScript
	require.NotNil(t, unlock)
	assert.Equal(t, placeholderBytes(), []byte(*unlock))
}

func TestSign_NilKeyWritesPlaceholder(t *testing.T) {
	f, _ := fundedForge(t, 10000)
	require.NoError(t, f.Sign(SignParams{}))
	assert.Equal(t, placeholderBytes(), []byte(*f.Transaction().Inputs[0].UnlockingScript))
}

func TestSign_Insufficient(t *testing.T) {
	f, params := fundedForge(t, 500)
	assert.ErrorIs(t, f.Sign(params), ErrInsufficientFunds)
}

func TestSignInput_IndexOutOfRange(t *testing.T) {
	f, params := fundedForge(t, 10000)
	assert.ErrorIs(t, f.SignInput(1, params), ErrInputIndex)
	assert.ErrorIs(t, f.SignInput(-1, params), ErrInputIndex)
	require.NoError(t, f.SignInput(0, params))
}

func TestSign_CastInputUsesTemplate(t *testing.T) {
	priv, pub := generateTestKeyPair(t)
	lock, err := BuildP2PKHScript(pub)
	require.NoError(t, err)

	unlocker, err := p2pkh.Unlock(priv, nil)
	require.NoError(t, err)

	ti := &transaction.TransactionInput{
		SourceTXID:              testTxHash(t, 0x41),
		SequenceNumber:          transaction.DefaultSequenceNumber,
		UnlockingScriptTemplate: unlocker,
	}
	ti.SetSourceTxOutput(&transaction.TransactionOutput{Satoshis: 5000, LockingScript: lock})

	f := NewForge()
	require.NoError(t, f.AddInput(ti))
	require.NoError(t, f.AddOutput(OutputParams{To: testAddress(t, pub), Satoshis: u64(1000)}))

	// No session key: the template alone signs.
	require.NoError(t, f.Sign(SignParams{}))
	unlock := f.Transaction().Inputs[0].UnlockingScript
	require.NotNil(t, unlock)
	assert.NotEqual(t, placeholderBytes(), []byte(*unlock))
}

func placeholderBytes() []byte {
	b := []byte{0x48}
	b = append(b, make([]byte, 72)...)
	b = append(b, 0x21)
	b = append(b, make([]byte, 33)...)
	return b
}

func TestPlaceholderUnlockingScript(t *testing.T) {
	s, err := placeholderUnlockingScript()
	require.NoError(t, err)
	assert.True(t, bytes.Equal(placeholderBytes(), *s))
	assert.Len(t, *s, 107)
}
