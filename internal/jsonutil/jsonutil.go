// Package jsonutil is the single JSON codec used for tool arguments, tool
// results and the HTTP payloads that carry them.
package jsonutil

import (
	"github.com/bytedance/sonic"
)

// api mirrors encoding/json behaviour, including sorted map keys, so the same
// value always encodes to the same bytes.
var api = sonic.ConfigStd

func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

func MarshalString(v any) (string, error) {
	return api.MarshalToString(v)
}

func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

func UnmarshalString(s string, v any) error {
	return api.UnmarshalFromString(s, v)
}

func Valid(data []byte) bool {
	return api.Valid(data)
}
