package cache

import (
	"encoding/hex"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

// Fingerprint is a 32-byte BLAKE3 digest of every input that determines
// a segment's output. Fingerprints are opaque: the cache only ever
// compares them for equality.
type Fingerprint [32]byte

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer encoding.
// Logically identical configuration always encodes to identical bytes,
// so fingerprints do not depend on YAML key order.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cache: CBOR encoder initialization failed: " + err.Error())
	}
}

// Compute hashes the concatenation of parts into a Fingerprint.
func Compute(parts ...[]byte) Fingerprint {
	h := blake3.New()
	for _, p := range parts {
		_, _ = h.Write(p)
	}
	var f Fingerprint
	copy(f[:], h.Sum(nil))
	return f
}

// ComputeValue fingerprints an arbitrary decoded configuration value
// (descriptor mapping, options block) via deterministic CBOR encoding.
func ComputeValue(v any) (Fingerprint, error) {
	data, err := encMode.Marshal(normalize(v))
	if err != nil {
		return Fingerprint{}, err
	}
	return Compute(data), nil
}

// normalize rewrites decoded YAML values into CBOR-encodable shapes.
// yaml.v3 only produces string-keyed maps, but nested values may carry
// types (e.g. nil interfaces inside slices) the encoder handles fine;
// the rewrite exists so future decoder changes cannot silently alter
// fingerprints.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = normalize(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = normalize(inner)
		}
		return out
	default:
		return v
	}
}
