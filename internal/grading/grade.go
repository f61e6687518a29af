// Package grading decides whether a response matches an item's key. The same
// rule scores adaptive answers and fixed-form submissions.
package grading

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/abhisek/adaptiq/internal/catalog"
)

// Result is the outcome of grading one response.
type Result struct {
	Correct bool
	Points  int
}

// Grade compares response against the item's key. Malformed responses, such
// as an out-of-range option index or a string where an index is expected,
// are graded incorrect rather than rejected.
//
// Rules:
// - single: index equality (a list key is compared as a set)
// - multi: set equality of option indices
// - fill: case-insensitive, whitespace-trimmed equality when both sides are
//   strings, otherwise strict equality of scalars with numbers compared by value
func Grade(it *catalog.Item, response any) Result {
	var correct bool
	switch it.Type {
	case catalog.TypeSingle, catalog.TypeMulti:
		correct = checkSelect(it, response)
	default:
		correct = checkFill(it.Key, response)
	}
	if !correct {
		return Result{}
	}
	return Result{Correct: true, Points: it.Points}
}

func checkSelect(it *catalog.Item, response any) bool {
	n := len(it.Options)
	if keys, isList := asList(it.Key); isList || it.Type == catalog.TypeMulti {
		if !isList {
			return false
		}
		want, ok := indexSet(keys, n)
		if !ok {
			return false
		}
		given, ok := asList(response)
		if !ok {
			return false
		}
		got, ok := indexSet(given, n)
		if !ok {
			return false
		}
		return sameSet(want, got)
	}

	want, ok := toIndex(it.Key, n)
	if !ok {
		return false
	}
	got, ok := toIndex(response, n)
	if !ok {
		return false
	}
	return want == got
}

func checkFill(key, response any) bool {
	ks, kok := key.(string)
	rs, rok := response.(string)
	if kok && rok {
		return strings.EqualFold(strings.TrimSpace(ks), strings.TrimSpace(rs))
	}
	if kok != rok {
		return false
	}

	kf, kNum := toFloat(key)
	rf, rNum := toFloat(response)
	if kNum || rNum {
		return kNum && rNum && kf == rf
	}

	switch k := key.(type) {
	case bool:
		r, ok := response.(bool)
		return ok && k == r
	case nil:
		return response == nil
	}
	return false
}

// toIndex converts a JSON-decoded or Go integer value to an option index.
// When n > 0 the index must lie in [0, n).
func toIndex(v any, n int) (int, bool) {
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) || f < 0 {
		return 0, false
	}
	idx := int(f)
	if n > 0 && idx >= n {
		return 0, false
	}
	return idx, true
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return x, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

func asList(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case []int:
		out := make([]any, len(x))
		for i, n := range x {
			out[i] = n
		}
		return out, true
	case []float64:
		out := make([]any, len(x))
		for i, n := range x {
			out[i] = n
		}
		return out, true
	}
	return nil, false
}

func indexSet(vals []any, n int) (map[int]struct{}, bool) {
	set := make(map[int]struct{}, len(vals))
	for _, v := range vals {
		idx, ok := toIndex(v, n)
		if !ok {
			return nil, false
		}
		set[idx] = struct{}{}
	}
	return set, true
}

func sameSet(a, b map[int]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
