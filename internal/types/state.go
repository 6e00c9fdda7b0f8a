package types

import (
	"fmt"
	"math"
	"time"

	"github.com/rxtech-lab/argo-sizing/pkg/errors"
)

// StateValue is the structured form of a strategy state used for persistence.
// Numbers keep NaN and Inf.
type StateValue map[string]any

// Number returns the numeric field stored under key. A missing field reads as zero.
func (v StateValue) Number(key string) (float64, error) {
	raw, ok := v[key]
	if !ok || raw == nil {
		return 0, nil
	}

	n, ok := toFloat(raw)
	if !ok {
		return 0, errors.Newf(errors.ErrCodeStateImport, "field %s is not a number: %T", key, raw)
	}

	return n, nil
}

// Int returns the integer field stored under key. A missing field reads as zero.
func (v StateValue) Int(key string) (int64, error) {
	n, err := v.Number(key)
	if err != nil {
		return 0, err
	}

	return toInt(key, n)
}

// IntArray reads a numeric array into a slice of exactly size elements.
// Missing trailing items read as zero, extra items are ignored.
func (v StateValue) IntArray(key string, size int) ([]int64, error) {
	out := make([]int64, size)

	raw, ok := v[key]
	if !ok || raw == nil {
		return out, nil
	}

	var items []any

	switch arr := raw.(type) {
	case []any:
		items = arr
	case []int64:
		for i := 0; i < size && i < len(arr); i++ {
			out[i] = arr[i]
		}

		return out, nil
	case []int:
		for i := 0; i < size && i < len(arr); i++ {
			out[i] = int64(arr[i])
		}

		return out, nil
	default:
		return nil, errors.Newf(errors.ErrCodeStateImport, "field %s is not an array: %T", key, raw)
	}

	for i := 0; i < size && i < len(items); i++ {
		n, ok := toFloat(items[i])
		if !ok {
			return nil, errors.Newf(errors.ErrCodeStateImport, "field %s[%d] is not a number: %T", key, i, items[i])
		}

		iv, err := toInt(fmt.Sprintf("%s[%d]", key, i), n)
		if err != nil {
			return nil, err
		}

		out[i] = iv
	}

	return out, nil
}

// toInt truncates n. Values outside the int64 range, NaN included, are rejected.
func toInt(key string, n float64) (int64, error) {
	if !(n >= math.MinInt64 && n < math.MaxInt64) {
		return 0, errors.Newf(errors.ErrCodeStateImport, "field %s is not a valid integer: %v", key, n)
	}

	return int64(n), nil
}

func toFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}

		return 0, true
	default:
		return 0, false
	}
}

// StateRecord is a persisted strategy snapshot for one bot.
type StateRecord struct {
	BotID      string    `json:"bot_id"`
	StrategyID string    `json:"strategy_id"`
	Version    string    `json:"version"`
	State      []byte    `json:"state"`
	UpdatedAt  time.Time `json:"updated_at"`
}
