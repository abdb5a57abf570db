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

package ltvlab

import "sync/atomic"

const mask63 = uint64(1<<63) - 1

// seedMaker 衍生模擬子 seed：LCG state 走滿 2^63 週期（永不重複），
// 輸出前經可逆 mix63 打散，相鄰衍生 seed 不會帶出相關的亂數流。
type seedMaker struct {
	state atomic.Uint64 // 恆落在 [0, 2^63)
}

func newSeedMaker(seed int64) *seedMaker {
	s := &seedMaker{}
	s.state.Store(uint64(seed) & mask63)
	return s
}

// next 取下一個子 seed。server 端多條 pipeline 會從不同 goroutine
// 同時要 seed，state 推進走 CAS 迴圈，每次呼叫保證拿到唯一的 state。
// 回傳值最高位恆為 0，一定非負。
func (s *seedMaker) next() int64 {
	for {
		old := s.state.Load()
		next := (old*6364136223846793005 + 1442695040888963407) & mask63 // 全週期 LCG mod 2^63
		if s.state.CompareAndSwap(old, next) {
			return int64(mix63(next))
		}
	}
}

// mix63 把循序的 LCG state 打散成看似獨立的值。
// 每一步（xor-shift、乘奇數 mod 2^63）皆可逆，全週期性質得以保留。
func mix63(x uint64) uint64 {
	x &= mask63
	x ^= x >> 30
	x = (x * 0xBF58476D1CE4E5B9) & mask63
	x ^= x >> 27
	x = (x * 0x94D049BB133111EB) & mask63
	x ^= x >> 31
	return x & mask63
}
