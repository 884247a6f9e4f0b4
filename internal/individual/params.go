// Package individual defines the candidate representation (C2): a
// tagged-variant parameter tree, the opaque representation blob, and the
// Individual record itself.
//
// The parameter tree replaces the source's dynamic dict-of-anything
// design (design note §9: "Dynamic dict-of-anything parameters") with an
// explicit tagged variant, in the spirit of avmi-goga's Gene type (one
// struct carrying Int/Flt/String/Byte/Bytes/Func fields, dispatched on
// which is non-nil) — see avmi-goga/population.go's NewPopRandom, which
// switches on g.Int/g.Flt/g.String/g.Byte/g.Bytes/g.Func.
package individual

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Kind discriminates which field of a Param is populated.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindString
	KindList
	KindMap
	// KindWeights is the reserved `factor_weights` variant: a
	// string->float64 map with the invariant that every value is >= 0
	// and the values sum to exactly 1 after any modification.
	KindWeights
)

// Param is one node of the parameter tree. Exactly the field matching
// Kind is meaningful; the others are zero.
type Param struct {
	Kind    Kind
	Int     int64
	Float   float64
	Str     string
	List    []Param
	Map     map[string]Param
	Weights map[string]float64
}

// FactorWeightsKey is the reserved parameter key whose value is always a
// KindWeights node (§3.2).
const FactorWeightsKey = "factor_weights"

// Int builds an integer leaf.
func Int(v int64) Param { return Param{Kind: KindInt, Int: v} }

// Float builds a float leaf.
func Float(v float64) Param { return Param{Kind: KindFloat, Float: v} }

// String builds a string leaf.
func String(v string) Param { return Param{Kind: KindString, Str: v} }

// List builds a list node.
func List(items ...Param) Param { return Param{Kind: KindList, List: items} }

// Map builds a nested mapping node.
func Map(m map[string]Param) Param { return Param{Kind: KindMap, Map: m} }

// Weights builds a factor_weights node, renormalising on construction so
// the invariant holds from the moment it exists.
func Weights(w map[string]float64) Param {
	p := Param{Kind: KindWeights, Weights: cloneWeights(w)}
	Renormalize(&p)
	return p
}

// Params is the top-level string-keyed parameter mapping (§3.2).
type Params map[string]Param

// Clone returns a deep copy of the parameter tree.
func (p Param) Clone() Param {
	switch p.Kind {
	case KindList:
		out := make([]Param, len(p.List))
		for i, item := range p.List {
			out[i] = item.Clone()
		}
		return Param{Kind: KindList, List: out}
	case KindMap:
		out := make(map[string]Param, len(p.Map))
		for k, v := range p.Map {
			out[k] = v.Clone()
		}
		return Param{Kind: KindMap, Map: out}
	case KindWeights:
		return Param{Kind: KindWeights, Weights: cloneWeights(p.Weights)}
	default:
		return p
	}
}

// Clone returns a deep copy of the whole parameter mapping.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v.Clone()
	}
	return out
}

func cloneWeights(w map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Renormalize enforces the factor_weights invariant in place: every
// weight clamped to >= 0, then scaled so the sum is exactly 1. If the sum
// is 0 (including the empty map case treated as "all zero"), every key
// receives an equal share instead (§3.2).
func Renormalize(p *Param) {
	if p.Kind != KindWeights {
		return
	}
	keys := make([]string, 0, len(p.Weights))
	sum := 0.0
	for k, v := range p.Weights {
		if v < 0 {
			v = 0
			p.Weights[k] = 0
		}
		keys = append(keys, k)
		sum += v
	}
	if len(keys) == 0 {
		return
	}
	if sum == 0 {
		sort.Strings(keys) // deterministic assignment order
		equal := 1.0 / float64(len(keys))
		for _, k := range keys {
			p.Weights[k] = equal
		}
		return
	}
	for k, v := range p.Weights {
		p.Weights[k] = v / sum
	}
}

// RenormalizeFactorWeights renormalises params["factor_weights"] in place
// if present; a no-op otherwise. Variation operators call this after any
// modification, per §3.2.
func RenormalizeFactorWeights(p Params) {
	if fw, ok := p[FactorWeightsKey]; ok {
		Renormalize(&fw)
		p[FactorWeightsKey] = fw
	}
}

// wireParam is Param's JSON-on-the-wire shape, used by the archive's
// serialise surface (§4.9, §6.5) — not a method on Individual itself, per
// the capability protocol's persistence exclusion (§4.10).
type wireParam struct {
	Kind    string               `json:"kind"`
	Int     int64                `json:"int,omitempty"`
	Float   float64              `json:"float,omitempty"`
	Str     string               `json:"str,omitempty"`
	List    []Param              `json:"list,omitempty"`
	Map     map[string]Param     `json:"map,omitempty"`
	Weights map[string]float64   `json:"weights,omitempty"`
}

func kindName(k Kind) string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindWeights:
		return "weights"
	default:
		return "unknown"
	}
}

func parseKind(name string) (Kind, error) {
	switch name {
	case "int":
		return KindInt, nil
	case "float":
		return KindFloat, nil
	case "string":
		return KindString, nil
	case "list":
		return KindList, nil
	case "map":
		return KindMap, nil
	case "weights":
		return KindWeights, nil
	default:
		return 0, fmt.Errorf("unknown param kind %q", name)
	}
}

// MarshalJSON renders a Param as a self-describing tagged document so the
// archive's round-trip (§8 "load(serialise(x)) ≡ x") survives the tree's
// variant dispatch.
func (p Param) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireParam{
		Kind:    kindName(p.Kind),
		Int:     p.Int,
		Float:   p.Float,
		Str:     p.Str,
		List:    p.List,
		Map:     p.Map,
		Weights: p.Weights,
	})
}

// UnmarshalJSON parses a Param from its tagged wire form.
func (p *Param) UnmarshalJSON(data []byte) error {
	var w wireParam
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	kind, err := parseKind(w.Kind)
	if err != nil {
		return err
	}
	p.Kind = kind
	p.Int = w.Int
	p.Float = w.Float
	p.Str = w.Str
	p.List = w.List
	p.Map = w.Map
	p.Weights = w.Weights
	return nil
}

// WeightsOverlapRatio computes |keys(a) ∩ keys(b)| / |keys(a) ∪ keys(b)|
// for two factor_weights maps, used by the crossover compatibility check
// (§4.7.2). Returns 0 if either map is empty.
func WeightsOverlapRatio(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
