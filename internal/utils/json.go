// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package utils

import (
	"github.com/bytedance/sonic"
)

// std sorts map keys and escapes HTML like encoding/json, so output is stable.
var std = sonic.ConfigStd

// MarshalJSONBytes encodes v compactly.
func MarshalJSONBytes(v any) ([]byte, error) {
	return std.Marshal(v)
}

// MarshalJSONIndent encodes v with two-space indentation.
func MarshalJSONIndent(v any) ([]byte, error) {
	return std.MarshalIndent(v, "", "  ")
}

// UnmarshalJSON decodes data into v.
func UnmarshalJSON(data []byte, v any) error {
	return std.Unmarshal(data, v)
}
