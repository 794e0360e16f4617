package tx

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"
)

// Op is a data chunk written to a data script as a bare opcode rather than
// a push.
type Op byte

// EncodeDataScript builds an OP_FALSE OP_RETURN script with one element per
// chunk, in order. Chunks are resolved as follows:
//
//	"0x..." string           push of the hex-decoded bytes
//	integer or nil           single opcode (nil is OP_0)
//	Op, or map with "op" key single opcode
//	anything else            push of its bytes (string as UTF-8)
func EncodeDataScript(chunks []any) (*script.Script, error) {
	s := &script.Script{}
	*s = append(*s, script.OpFALSE, script.OpRETURN)
	for i, chunk := range chunks {
		if err := appendDataChunk(s, chunk); err != nil {
			return nil, fmt.Errorf("%w: data chunk %d: %w", ErrInvalidOutput, i, err)
		}
	}
	return s, nil
}

func appendDataChunk(s *script.Script, chunk any) error {
	switch c := chunk.(type) {
	case nil:
		*s = append(*s, script.Op0)
		return nil
	case string:
		if isHexChunk(c) {
			b, err := hex.DecodeString(c[2:])
			if err != nil {
				return fmt.Errorf("invalid hex chunk %q: %w", c, err)
			}
			return s.AppendPushData(b)
		}
		return s.AppendPushData([]byte(c))
	case Op:
		*s = append(*s, byte(c))
		return nil
	case map[string]any:
		op, ok := c["op"]
		if !ok {
			return fmt.Errorf("object chunk without op field")
		}
		code, isInt, err := integerOpcode(op)
		if err != nil {
			return err
		}
		if !isInt {
			return fmt.Errorf("op field must be an integer, got %T", op)
		}
		*s = append(*s, code)
		return nil
	case []byte:
		return s.AppendPushData(c)
	}

	code, isInt, err := integerOpcode(chunk)
	if err != nil {
		return err
	}
	if isInt {
		*s = append(*s, code)
		return nil
	}

	if str, ok := chunk.(fmt.Stringer); ok {
		return s.AppendPushData([]byte(str.String()))
	}
	return fmt.Errorf("unsupported chunk type %T", chunk)
}

func isHexChunk(s string) bool {
	return len(s) >= 2 && strings.EqualFold(s[:2], "0x")
}

// integerOpcode reports whether v is a numeric chunk and, if so, the opcode
// it denotes. Non-integral floats map to OP_0.
func integerOpcode(v any) (byte, bool, error) {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int8:
		n = int64(x)
	case int16:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case uint:
		if uint64(x) > math.MaxUint8 {
			return 0, true, fmt.Errorf("opcode %d out of range", x)
		}
		n = int64(x)
	case uint8:
		n = int64(x)
	case uint16:
		n = int64(x)
	case uint32:
		n = int64(x)
	case uint64:
		if x > math.MaxUint8 {
			return 0, true, fmt.Errorf("opcode %d out of range", x)
		}
		n = int64(x)
	case float32:
		return floatOpcode(float64(x))
	case float64:
		return floatOpcode(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			n = i
		} else if f, err := x.Float64(); err == nil {
			return floatOpcode(f)
		} else {
			return 0, true, fmt.Errorf("invalid number %q", x)
		}
	default:
		return 0, false, nil
	}
	if n < 0 || n > math.MaxUint8 {
		return 0, true, fmt.Errorf("opcode %d out of range", n)
	}
	return byte(n), true, nil
}

func floatOpcode(f float64) (byte, bool, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return script.Op0, true, nil
	}
	if f < 0 || f > math.MaxUint8 {
		return 0, true, fmt.Errorf("opcode %v out of range", f)
	}
	return byte(f), true, nil
}

// IsPubKeyHashScript reports whether s is a canonical P2PKH locking script:
// OP_DUP OP_HASH160 <20 bytes> OP_EQUALVERIFY OP_CHECKSIG.
func IsPubKeyHashScript(s *script.Script) bool {
	return s != nil && s.IsP2PKH()
}

// IsDataScript reports whether s is a provably unspendable null-data script.
func IsDataScript(s *script.Script) bool {
	return s != nil && s.IsData()
}

// DecodeHex parses a hex-encoded script.
func DecodeHex(h string) (*script.Script, error) {
	s, err := script.NewFromHex(h)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid script hex: %w", ErrScriptBuild, err)
	}
	return s, nil
}

// EncodeHex returns the lowercase hex encoding of s.
func EncodeHex(s *script.Script) string {
	if s == nil {
		return ""
	}
	return hex.EncodeToString(*s)
}

// AddressScript returns the P2PKH locking script paying to a base58 address.
func AddressScript(address string) (*script.Script, error) {
	addr, err := script.NewAddressFromString(address)
	if err != nil {
		return nil, fmt.Errorf("%w: address %q: %w", ErrScriptBuild, address, err)
	}
	lockScript, err := p2pkh.Lock(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: P2PKH lock script: %w", ErrScriptBuild, err)
	}
	return lockScript, nil
}

// BuildP2PKHScript creates a P2PKH locking script for the given public key.
func BuildP2PKHScript(pubKey *ec.PublicKey) (*script.Script, error) {
	if pubKey == nil {
		return nil, fmt.Errorf("%w: public key", ErrNilParam)
	}
	addr, err := script.NewAddressFromPublicKey(pubKey, true)
	if err != nil {
		return nil, fmt.Errorf("%w: address from pubkey: %w", ErrScriptBuild, err)
	}
	lockScript, err := p2pkh.Lock(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: P2PKH lock script: %w", ErrScriptBuild, err)
	}
	return lockScript, nil
}

// BuildP2PKHOutput creates a TransactionOutput with a P2PKH locking script
// for the given public key hash (20 bytes) and satoshi amount.
func BuildP2PKHOutput(pubKeyHash []byte, satoshis uint64) (*transaction.TransactionOutput, error) {
	addr, err := script.NewAddressFromPublicKeyHash(pubKeyHash, true)
	if err != nil {
		return nil, fmt.Errorf("%w: address from hash: %w", ErrScriptBuild, err)
	}
	lockScript, err := p2pkh.Lock(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: P2PKH lock: %w", ErrScriptBuild, err)
	}
	return &transaction.TransactionOutput{
		Satoshis:      satoshis,
		LockingScript: lockScript,
	}, nil
}
