package tx

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func generateTestKeyPair(t *testing.T) (*ec.PrivateKey, *ec.PublicKey) {
	t.Helper()
	privKey, err := ec.NewPrivateKey()
	require.NoError(t, err)
	return privKey, privKey.PubKey()
}

func testTxHash(t *testing.T, seed byte) *chainhash.Hash {
	t.Helper()
	h, err := chainhash.NewHash(bytes.Repeat([]byte{seed}, 32))
	require.NoError(t, err)
	return h
}

func testP2PKHOutput(t *testing.T, sats uint64) *Output {
	t.Helper()
	out, err := BuildP2PKHOutput(bytes.Repeat([]byte{0x07}, 20), sats)
	require.NoError(t, err)
	return &Output{Kind: OutputPrebuilt, Satoshis: sats, LockingScript: out.LockingScript}
}

func testP2PKHInput(t *testing.T, seed byte, vout uint32, sats uint64) *Input {
	t.Helper()
	out, err := BuildP2PKHOutput(bytes.Repeat([]byte{seed}, 20), sats)
	require.NoError(t, err)
	return &Input{
		TxID:          testTxHash(t, seed),
		Vout:          vout,
		Satoshis:      sats,
		LockingScript: out.LockingScript,
	}
}

func keyInputParams(t *testing.T, pub *ec.PublicKey, seed byte, sats uint64) InputParams {
	t.Helper()
	s, err := BuildP2PKHScript(pub)
	require.NoError(t, err)
	vout := uint32(0)
	return InputParams{
		TxID:     hex.EncodeToString(bytes.Repeat([]byte{seed}, 32)),
		Vout:     &vout,
		Satoshis: &sats,
		Script:   EncodeHex(s),
	}
}

func testAddress(t *testing.T, pub *ec.PublicKey) string {
	t.Helper()
	addr, err := script.NewAddressFromPublicKey(pub, true)
	require.NoError(t, err)
	return addr.AddressString
}

func u64(v uint64) *uint64 { return &v }
func u32(v uint32) *uint32 { return &v }

func TestForge_EmptyHex(t *testing.T) {
	f := NewForge()
	assert.Equal(t, "01000000000000000000", f.Hex())
	assert.Len(t, f.Bytes(), 10)
	assert.False(t, f.Built())
	assert.Nil(t, f.Transaction())
	assert.Empty(t, f.TxID())
}

func TestForge_NewWithRates(t *testing.T) {
	f, err := NewForgeWithRates(Rates{Standard: 1, Data: 0.1})
	require.NoError(t, err)
	assert.Equal(t, Rates{Standard: 1, Data: 0.1}, f.Rates())

	_, err = NewForgeWithRates(Rates{Standard: -0.5})
	assert.ErrorIs(t, err, ErrInvalidRates)
}

func TestForge_AddInputParams(t *testing.T) {
	_, pub := generateTestKeyPair(t)
	f := NewForge()

	p := keyInputParams(t, pub, 0xaa, 5000)
	require.NoError(t, f.AddInput(p))

	ins := f.Inputs()
	require.Len(t, ins, 1)
	assert.Equal(t, InputPubKeyHash, ins[0].Kind)
	assert.Equal(t, p.TxID, ins[0].TxID.String())
	assert.True(t, ins[0].IsPubKeyHash())
	assert.Equal(t, uint64(5000), f.InputSum())
}

func TestForge_AddInputAliases(t *testing.T) {
	_, pub := generateTestKeyPair(t)
	p := keyInputParams(t, pub, 0x01, 0)
	p.Vout, p.Satoshis = nil, nil
	p.OutputIndex = u32(2)
	p.Amount = u64(700)

	f := NewForge()
	require.NoError(t, f.AddInput(p))
	assert.Equal(t, uint32(2), f.Inputs()[0].Vout)
	assert.Equal(t, uint64(700), f.InputSum())
}

func TestForge_AddInputMap(t *testing.T) {
	_, pub := generateTestKeyPair(t)
	p := keyInputParams(t, pub, 0x03, 1200)

	var m map[string]any
	b, err := json.Marshal(p)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &m))

	f := NewForge()
	require.NoError(t, f.AddInput([]any{m}))
	assert.Equal(t, uint64(1200), f.InputSum())
}

func TestForge_AddInputInvalid(t *testing.T) {
	_, pub := generateTestKeyPair(t)
	valid := keyInputParams(t, pub, 0x04, 1000)

	tests := []struct {
		name   string
		mutate func(p *InputParams)
	}{
		{"missing txid", func(p *InputParams) { p.TxID = "" }},
		{"short txid", func(p *InputParams) { p.TxID = "abcd" }},
		{"missing vout", func(p *InputParams) { p.Vout = nil }},
		{"missing satoshis", func(p *InputParams) { p.Satoshis = nil }},
		{"missing script", func(p *InputParams) { p.Script = "" }},
		{"bad script", func(p *InputParams) { p.Script = "zz" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := valid
			tc.mutate(&p)
			f := NewForge()
			err := f.AddInput([]any{valid, p})
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Empty(t, f.Inputs(), "a failed batch adds nothing")
		})
	}

	f := NewForge()
	assert.ErrorIs(t, f.AddInput(nil), ErrInvalidInput)
	assert.ErrorIs(t, f.AddInput(42), ErrInvalidInput)
}

func TestForge_DuplicateInput(t *testing.T) {
	_, pub := generateTestKeyPair(t)
	p := keyInputParams(t, pub, 0x05, 1000)

	f := NewForge()
	require.NoError(t, f.AddInput(p))
	assert.ErrorIs(t, f.AddInput(p), ErrDuplicateInput)
	assert.Len(t, f.Inputs(), 1)

	g := NewForge()
	assert.ErrorIs(t, g.AddInput([]InputParams{p, p}), ErrDuplicateInput)
	assert.Empty(t, g.Inputs())

	txid, err := chainhash.NewHashFromHex(p.TxID)
	require.NoError(t, err)
	assert.True(t, f.HasInput(txid, 0))
	assert.False(t, f.HasInput(txid, 1))
}

func TestForge_CastInput(t *testing.T) {
	_, pub := generateTestKeyPair(t)
	lock, err := BuildP2PKHScript(pub)
	require.NoError(t, err)

	ti := &transaction.TransactionInput{
		SourceTXID:       testTxHash(t, 0x06),
		SourceTxOutIndex: 1,
		SequenceNumber:   transaction.DefaultSequenceNumber,
	}
	ti.SetSourceTxOutput(&transaction.TransactionOutput{Satoshis: 2500, LockingScript: lock})

	f := NewForge()
	require.NoError(t, f.AddInput(ti))
	in := f.Inputs()[0]
	assert.Equal(t, InputCast, in.Kind)
	assert.Equal(t, uint64(2500), in.Satoshis)

	// Without a source output the value is unknown.
	bare := &transaction.TransactionInput{SourceTXID: testTxHash(t, 0x07)}
	assert.ErrorIs(t, f.AddInput(bare), ErrInvalidInput)
}

func TestForge_AddOutputShapes(t *testing.T) {
	_, pub := generateTestKeyPair(t)
	addr := testAddress(t, pub)
	lock, err := BuildP2PKHScript(pub)
	require.NoError(t, err)

	f := NewForge()
	require.NoError(t, f.AddOutput(OutputParams{To: addr, Satoshis: u64(1000)}))
	require.NoError(t, f.AddOutput(OutputParams{Script: EncodeHex(lock), Amount: u64(200)}))
	require.NoError(t, f.AddOutput(OutputParams{Data: []any{"0xcafe", "hi"}}))
	require.NoError(t, f.AddOutput(&transaction.TransactionOutput{Satoshis: 50, LockingScript: lock}))

	outs := f.Outputs()
	require.Len(t, outs, 4)
	assert.Equal(t, OutputAddress, outs[0].Kind)
	assert.Equal(t, OutputScript, outs[1].Kind)
	assert.Equal(t, OutputData, outs[2].Kind)
	assert.Equal(t, OutputPrebuilt, outs[3].Kind)

	assert.Equal(t, EncodeHex(lock), EncodeHex(outs[0].LockingScript), "to output pays the address")
	assert.Equal(t, uint64(0), outs[2].Satoshis)
	assert.True(t, IsDataScript(outs[2].LockingScript))
	assert.Equal(t, uint64(1250), f.OutputSum())
}

func TestForge_AddOutputPrecedence(t *testing.T) {
	_, pub := generateTestKeyPair(t)
	lock, err := BuildP2PKHScript(pub)
	require.NoError(t, err)

	f := NewForge()
	require.NoError(t, f.AddOutput(OutputParams{
		Script: EncodeHex(lock),
		Data:   []any{"ignored"},
		To:     "ignored",
	}))
	assert.Equal(t, OutputScript, f.Outputs()[0].Kind)
}

func TestForge_AddOutputInvalid(t *testing.T) {
	f := NewForge()
	assert.ErrorIs(t, f.AddOutput(OutputParams{Satoshis: u64(10)}), ErrInvalidOutput)
	assert.ErrorIs(t, f.AddOutput(OutputParams{To: "bogus"}), ErrInvalidOutput)
	assert.ErrorIs(t, f.AddOutput(map[string]any{"foo": "bar"}), ErrInvalidOutput)
	assert.ErrorIs(t, f.AddOutput(&transaction.TransactionOutput{Satoshis: 1}), ErrInvalidOutput)
	assert.ErrorIs(t, f.AddOutput("string"), ErrInvalidOutput)
	assert.Empty(t, f.Outputs())
}

func TestForge_AddOutputMapMatchesParams(t *testing.T) {
	_, pub := generateTestKeyPair(t)
	addr := testAddress(t, pub)
	raw := []byte{0xde, 0xad}

	tests := []struct {
		name   string
		asMap  map[string]any
		params OutputParams
	}{
		{
			"byte chunk",
			map[string]any{"data": []any{raw, "0xbeef", float64(106)}},
			OutputParams{Data: []any{raw, "0xbeef", 106}},
		},
		{
			"address with float satoshis",
			map[string]any{"to": addr, "satoshis": float64(1000)},
			OutputParams{To: addr, Satoshis: u64(1000)},
		},
		{
			"amount alias",
			map[string]any{"to": addr, "amount": json.Number("700")},
			OutputParams{To: addr, Amount: u64(700)},
		},
		{
			"empty data",
			map[string]any{"data": []any{}},
			OutputParams{Data: []any{}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fromMap, fromParams := NewForge(), NewForge()
			require.NoError(t, fromMap.AddOutput(tc.asMap))
			require.NoError(t, fromParams.AddOutput(tc.params))

			got, want := fromMap.Outputs()[0], fromParams.Outputs()[0]
			assert.Equal(t, want.Kind, got.Kind)
			assert.Equal(t, want.Satoshis, got.Satoshis)
			assert.Equal(t, want.LockingScript.Bytes(), got.LockingScript.Bytes())
		})
	}

	f := NewForge()
	require.NoError(t, f.AddOutput(map[string]any{"data": []any{raw}}))
	assert.Equal(t, "006a02dead", EncodeHex(f.Outputs()[0].LockingScript))
}

func TestForge_AddOutputMapInvalid(t *testing.T) {
	_, pub := generateTestKeyPair(t)
	addr := testAddress(t, pub)

	tests := []struct {
		name string
		m    map[string]any
	}{
		{"string satoshis", map[string]any{"to": addr, "satoshis": "1000"}},
		{"negative satoshis", map[string]any{"to": addr, "satoshis": float64(-1)}},
		{"fractional satoshis", map[string]any{"to": addr, "satoshis": 1.5}},
		{"numeric to", map[string]any{"to": 12}},
		{"data not an array", map[string]any{"data": "hello"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := NewForge()
			assert.ErrorIs(t, f.AddOutput(tc.m), ErrInvalidOutput)
			assert.Empty(t, f.Outputs())
		})
	}
}

func TestForge_EstimateFee(t *testing.T) {
	f := NewForge()
	assert.Equal(t, uint64(96), f.EstimateFee(nil, true))
	assert.Equal(t, uint64(192), f.EstimateFee(&Rates{Standard: 1, Data: 1}, true))
}

func TestForge_BuildWithChange(t *testing.T) {
	priv, pub := generateTestKeyPair(t)
	f := NewForge()
	require.NoError(t, f.AddInput(keyInputParams(t, pub, 0x10, 10000)))
	require.NoError(t, f.AddOutput(OutputParams{To: testAddress(t, pub), Satoshis: u64(1000)}))
	require.NoError(t, f.SetChangeAddress(testAddress(t, priv.PubKey())))

	built, err := f.Build(BuildOptions{UseAllInputs: true})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), built.Version)
	assert.Equal(t, uint32(0), built.LockTime)
	require.Len(t, built.Inputs, 1)
	require.Len(t, built.Outputs, 2)

	// fee = ceil(226 * 0.5)
	assert.Equal(t, uint64(10000-1000-113), built.Outputs[1].Satoshis)
	assert.True(t, built.Outputs[1].Change)

	// Inputs are spent in internal byte order.
	want, err := chainhash.NewHashFromHex(hex.EncodeToString(bytes.Repeat([]byte{0x10}, 32)))
	require.NoError(t, err)
	assert.True(t, built.Inputs[0].SourceTXID.IsEqual(want))
	assert.True(t, f.Built())
}

func TestForge_BuildChangeBelowDust(t *testing.T) {
	_, pub := generateTestKeyPair(t)
	f := NewForge()
	require.NoError(t, f.AddInput(keyInputParams(t, pub, 0x11, 1500)))
	require.NoError(t, f.AddOutput(OutputParams{To: testAddress(t, pub), Satoshis: u64(1000)}))
	require.NoError(t, f.SetChangeAddress(testAddress(t, pub)))

	built, err := f.Build(BuildOptions{UseAllInputs: true})
	require.NoError(t, err)
	assert.Len(t, built.Outputs, 1)
}

func TestForge_BuildInsufficientFunds(t *testing.T) {
	_, pub := generateTestKeyPair(t)
	f := NewForge()
	require.NoError(t, f.AddInput(keyInputParams(t, pub, 0x12, 1000)))
	require.NoError(t, f.AddOutput(OutputParams{To: testAddress(t, pub), Satoshis: u64(1000)}))

	_, err := f.Build(BuildOptions{UseAllInputs: true})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	_, err = f.Build(BuildOptions{})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.False(t, f.Built())
}

func TestForge_BuildPrefixSelection(t *testing.T) {
	_, pub := generateTestKeyPair(t)
	f := NewForge()
	for seed := byte(0x20); seed < 0x23; seed++ {
		require.NoError(t, f.AddInput(keyInputParams(t, pub, seed, 5000)))
	}
	require.NoError(t, f.AddOutput(OutputParams{To: testAddress(t, pub), Satoshis: u64(6000)}))

	built, err := f.Build(BuildOptions{})
	require.NoError(t, err)
	assert.Len(t, built.Inputs, 2)

	require.NoError(t, f.AddOutput(OutputParams{Data: []any{"x"}}))
	built, err = f.Build(BuildOptions{UseAllInputs: true})
	require.NoError(t, err)
	assert.Len(t, built.Inputs, 3)
}

func TestForge_BuildIdempotent(t *testing.T) {
	_, pub := generateTestKeyPair(t)
	f := NewForge()
	require.NoError(t, f.AddInput(keyInputParams(t, pub, 0x30, 5000)))
	require.NoError(t, f.AddOutput(OutputParams{To: testAddress(t, pub), Satoshis: u64(1000)}))

	first, err := f.Build(BuildOptions{UseAllInputs: true})
	require.NoError(t, err)
	second, err := f.Build(BuildOptions{UseAllInputs: true})
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, f.AddOutput(OutputParams{To: testAddress(t, pub), Satoshis: u64(500)}))
	assert.False(t, f.Built())
	third, err := f.Build(BuildOptions{UseAllInputs: true})
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Len(t, third.Outputs, 2)
}

func TestForge_InputSumProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		amounts := rapid.SliceOfN(rapid.Uint64Range(0, 21e14), 0, 20).Draw(rt, "amounts")

		f := NewForge()
		var want uint64
		for i, amt := range amounts {
			in := &Input{
				TxID:          &chainhash.Hash{byte(i)},
				Vout:          uint32(i),
				Satoshis:      amt,
				LockingScript: &script.Script{},
			}
			if err := f.AddInput(in); err != nil {
				rt.Fatalf("add input %d: %v", i, err)
			}
			want += amt
		}
		if got := f.InputSum(); got != want {
			rt.Fatalf("InputSum = %d, want %d", got, want)
		}
	})
}
