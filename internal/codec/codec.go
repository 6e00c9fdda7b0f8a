// Package codec converts strategy state to and from its persisted bytes.
//
// The encoding is YAML, which represents NaN and the infinities natively
// (.nan, .inf, -.inf), so "no belief yet" sentinels survive a round trip
// bit for bit instead of collapsing to zero.
package codec

import (
	"math"

	"github.com/rxtech-lab/argo-sizing/internal/types"
	"github.com/rxtech-lab/argo-sizing/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Encode serializes a state value.
func Encode(v types.StateValue) ([]byte, error) {
	out, err := yaml.Marshal(signedZeros(v))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStateEncoding, "failed to encode state", err)
	}

	return out, nil
}

// Decode parses bytes produced by Encode.
func Decode(data []byte) (types.StateValue, error) {
	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStateEncoding, "failed to decode state", err)
	}

	if out == nil {
		out = map[string]any{}
	}

	return types.StateValue(out), nil
}

// negativeZero encodes as an explicit float. A bare "-0" would read back as the integer 0.
type negativeZero struct{}

func (negativeZero) MarshalYAML() (any, error) {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: "-0.0"}, nil //nolint:exhaustruct
}

// signedZeros returns a copy of v with every -0 replaced by negativeZero.
func signedZeros(v types.StateValue) map[string]any {
	out := make(map[string]any, len(v))
	for k, item := range v {
		out[k] = signedZero(item)
	}

	return out
}

func signedZero(v any) any {
	switch n := v.(type) {
	case float64:
		if n == 0 && math.Signbit(n) {
			return negativeZero{}
		}

		return n
	case []any:
		out := make([]any, len(n))
		for i := range n {
			out[i] = signedZero(n[i])
		}

		return out
	case []float64:
		out := make([]any, len(n))
		for i := range n {
			out[i] = signedZero(n[i])
		}

		return out
	case map[string]any:
		return signedZeros(n)
	case types.StateValue:
		return signedZeros(n)
	default:
		return v
	}
}

// ToJSONSafe returns a copy of v in which NaN and the infinities are replaced
// by the strings "NaN", "Infinity" and "-Infinity", which encoding/json accepts.
func ToJSONSafe(v types.StateValue) map[string]any {
	out := make(map[string]any, len(v))
	for k, item := range v {
		out[k] = jsonSafe(item)
	}

	return out
}

func jsonSafe(v any) any {
	switch n := v.(type) {
	case float64:
		return safeFloat(n)
	case float32:
		return safeFloat(float64(n))
	case []any:
		out := make([]any, len(n))
		for i := range n {
			out[i] = jsonSafe(n[i])
		}

		return out
	case []float64:
		out := make([]any, len(n))
		for i := range n {
			out[i] = safeFloat(n[i])
		}

		return out
	case map[string]any:
		return ToJSONSafe(n)
	default:
		return v
	}
}

func safeFloat(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	default:
		return f
	}
}
