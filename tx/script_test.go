package tx

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDataScript(t *testing.T) {
	s, err := EncodeDataScript([]any{"0x68656c6c6f", "world", 118})
	require.NoError(t, err)

	want := []byte{script.OpFALSE, script.OpRETURN, 0x05}
	want = append(want, []byte("hello")...)
	want = append(want, 0x05)
	want = append(want, []byte("world")...)
	want = append(want, script.OpDUP)
	assert.Equal(t, want, []byte(*s))
	assert.True(t, IsDataScript(s))
	assert.False(t, IsPubKeyHashScript(s))
}

func TestEncodeDataScript_Empty(t *testing.T) {
	s, err := EncodeDataScript(nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{script.OpFALSE, script.OpRETURN}, []byte(*s))
}

func TestEncodeDataScript_Chunks(t *testing.T) {
	tests := []struct {
		name  string
		chunk any
		want  []byte
	}{
		{"nil is OP_0", nil, []byte{script.Op0}},
		{"int opcode", 0x76, []byte{script.OpDUP}},
		{"uint8 opcode", uint8(0x6a), []byte{script.OpRETURN}},
		{"integral float", float64(0x87), []byte{0x87}},
		{"fractional float", 1.5, []byte{script.Op0}},
		{"op value", Op(script.OpCHECKSIG), []byte{script.OpCHECKSIG}},
		{"op map", map[string]any{"op": float64(0x88)}, []byte{script.OpEQUALVERIFY}},
		{"upper hex prefix", "0XCAFE", []byte{0x02, 0xca, 0xfe}},
		{"utf8 string", "é", []byte{0x02, 0xc3, 0xa9}},
		{"bytes", []byte{0x01, 0x02}, []byte{0x02, 0x01, 0x02}},
		{"json number", json.Number("99"), []byte{0x63}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := EncodeDataScript([]any{tc.chunk})
			require.NoError(t, err)
			assert.Equal(t, tc.want, []byte(*s)[2:])
		})
	}
}

func TestEncodeDataScript_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		chunk any
	}{
		{"bad hex", "0xzz"},
		{"odd hex", "0xabc"},
		{"opcode too large", 256},
		{"negative opcode", -1},
		{"map without op", map[string]any{"foo": 1}},
		{"unsupported type", struct{}{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := EncodeDataScript([]any{"ok", tc.chunk})
			assert.ErrorIs(t, err, ErrInvalidOutput)
		})
	}
}

func TestEncodeDataScript_LargePush(t *testing.T) {
	payload := bytes.Repeat([]byte{0xab}, 300)
	s, err := EncodeDataScript([]any{payload})
	require.NoError(t, err)

	b := []byte(*s)
	assert.Equal(t, byte(script.OpPUSHDATA2), b[2])
	assert.Equal(t, []byte{0x2c, 0x01}, b[3:5])
	assert.Equal(t, payload, b[5:])
}

func TestIsPubKeyHashScript(t *testing.T) {
	_, pub := generateTestKeyPair(t)
	s, err := BuildP2PKHScript(pub)
	require.NoError(t, err)
	assert.True(t, IsPubKeyHashScript(s))
	assert.False(t, IsDataScript(s))

	// One byte short of a canonical P2PKH script.
	short := script.Script((*s)[:24])
	assert.False(t, IsPubKeyHashScript(&short))
	assert.False(t, IsPubKeyHashScript(nil))
}

func TestIsDataScript_BareReturn(t *testing.T) {
	s := script.Script{script.OpRETURN, 0x01, 0xff}
	assert.True(t, IsDataScript(&s))
}

func TestHexRoundTrip(t *testing.T) {
	h := "76a914000102030405060708090a0b0c0d0e0f1011121388ac"
	s, err := DecodeHex(h)
	require.NoError(t, err)
	assert.Equal(t, h, EncodeHex(s))

	upper, err := DecodeHex("76A914000102030405060708090A0B0C0D0E0F1011121388AC")
	require.NoError(t, err)
	assert.Equal(t, h, EncodeHex(upper))

	_, err = DecodeHex("not hex")
	assert.ErrorIs(t, err, ErrScriptBuild)
}

func TestAddressScript(t *testing.T) {
	_, pub := generateTestKeyPair(t)
	addr, err := script.NewAddressFromPublicKey(pub, true)
	require.NoError(t, err)

	s, err := AddressScript(addr.AddressString)
	require.NoError(t, err)
	require.True(t, IsPubKeyHashScript(s))

	pkh, err := s.PublicKeyHash()
	require.NoError(t, err)
	assert.Equal(t, []byte(addr.PublicKeyHash), pkh)

	_, err = AddressScript("not-an-address")
	assert.ErrorIs(t, err, ErrScriptBuild)
}

func TestBuildP2PKHScript_NilKey(t *testing.T) {
	_, err := BuildP2PKHScript(nil)
	assert.ErrorIs(t, err, ErrNilParam)
}

func TestBuildP2PKHOutput(t *testing.T) {
	out, err := BuildP2PKHOutput(bytes.Repeat([]byte{0x01}, 20), 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), out.Satoshis)
	assert.True(t, IsPubKeyHashScript(out.LockingScript))

	_, err = BuildP2PKHOutput([]byte{0x01}, 1000)
	assert.ErrorIs(t, err, ErrScriptBuild)
}
