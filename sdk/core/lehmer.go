// Copyright 2025 khoIT
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"encoding/binary"
	"errors"
)

var (
	errSnapshotLen = errors.New("lehmer snapshot must be 8 bytes")
	errSnapshotVal = errors.New("lehmer snapshot state out of range")
)

const (
	lehmerMultiplier uint64 = 16807      // Park–Miller 乘數
	lehmerModulus    uint64 = 2147483647 // 2^31 − 1（梅森質數）
)

// Lehmer 為乘法同餘產生器（Lehmer / Park–Miller，MINSTD）。
//
// 遞迴式：state = state * 16807 mod (2^31 − 1)。
// 狀態永遠落在 [1, 2^31−2]，Float64 = state / (2^31−1) ∈ (0,1)。
//
// 選它而不是 PCG 的理由：引擎的決定性合約以這條遞迴式本身定義
// （下游快照測試固定了整條輸出序列），統計品質在此領域夠用。
type Lehmer struct {
	state uint64
}

// --------------------------------------
// New
// --------------------------------------

// NewLehmerWithSeed 以指定 seed 建立 Lehmer 核心。
//
// seed 會先取模進入 [0, 2^31−2]，再 +1 避開吸收態 0；
// 負 seed 取絕對值。相同 seed 必得相同序列。
func NewLehmerWithSeed(seed int64) *Lehmer {
	r := &Lehmer{}
	r.initWithSeed(seed)
	return r
}

func (r *Lehmer) initWithSeed(seed int64) {
	if seed < 0 {
		seed = -seed
	}
	s := uint64(seed) % (lehmerModulus - 1)
	r.state = s + 1
}

//---------------------------------------
// 回傳介面方法
//---------------------------------------

// Float64 回傳 (0,1) 的浮點亂數（31-bit 精度）。消耗 1 次。
func (r *Lehmer) Float64() float64 {
	return float64(r.next()) / float64(lehmerModulus)
}

// Uint64 回傳 62-bit 亂數，由兩次輸出組成。消耗 2 次。
func (r *Lehmer) Uint64() uint64 {
	hi := r.next()
	lo := r.next()
	return (hi << 31) | lo
}

// UintN 回傳 [0,max) 的 uint 亂數，若 max == 0 回傳 0。消耗 1 次。
func (r *Lehmer) UintN(max uint) uint {
	if max == 0 {
		return 0
	}
	return uint(r.Float64() * float64(max))
}

// IntN 回傳 [0,max) 的亂數；若 max <= 0 回傳 -1。消耗 1 次。
func (r *Lehmer) IntN(max int) int {
	if max <= 0 {
		return -1
	}
	return int(r.Float64() * float64(max))
}

// Snapshot 取得當下內部狀態
func (r *Lehmer) Snapshot() ([]byte, error) {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, r.state)
	return b, nil
}

// Restore 依序列化狀態還原內部狀態
func (r *Lehmer) Restore(data []byte) error {
	if len(data) != 8 {
		return errSnapshotLen
	}
	s := binary.BigEndian.Uint64(data)
	if s == 0 || s >= lehmerModulus {
		return errSnapshotVal
	}
	r.state = s
	return nil
}

//---------------------------------------
// 內部方法
//---------------------------------------

func (r *Lehmer) next() uint64 {
	r.state = (r.state * lehmerMultiplier) % lehmerModulus
	return r.state
}
