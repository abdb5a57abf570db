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

// Package core 提供引擎使用的可重現亂數核心。
//
// 整條管線（母體生成 → 特徵 → 訓練 → 模擬）的決定性合約建立在這裡：
// 相同 seed、相同呼叫順序 ⇒ 位元相同的輸出。因此每個衍生取樣方法
// 都「固定消耗」已知次數的底層 Float64（見各方法註解），呼叫端不可依賴
// 統計等價，必須依賴呼叫順序等價。
package core

import "math"

// PRNG 定義 Core 所需的亂數來源，需同時支援取樣與狀態保存/還原。
type PRNG interface {
	RAND
	Restorable
}

// Restorable 定義可快照與還原的狀態介面。
type Restorable interface {
	// Snapshot 回傳可用於還原的序列化狀態。
	Snapshot() ([]byte, error)
	// Restore 依序列化狀態還原 PRNG 內部狀態。
	Restore([]byte) error
}

// RAND 定義核心亂數取樣能力。
//
// 注意：本引擎全面使用 Float64 衍生 bounded 取樣（floor(u*n)），
// 而不是 rejection sampling。rejection 的重試次數不固定，會破壞
// 「固定消耗次數」的決定性合約；floor 的微小 modulo 偏差在此領域可接受。
type RAND interface {
	// Uint64 回傳 62-bit 亂數（由兩次底層輸出組成，消耗 2 次）。
	Uint64() uint64
	// Float64 回傳 [0,1) 的浮點亂數（消耗 1 次）。
	Float64() float64
	// UintN 回傳 [0,max) 的 uint 亂數，若 max == 0 回傳 0（消耗 1 次）。
	UintN(uint) uint
	// IntN 回傳 [0,max) 的 int 亂數，若 max <= 0 回傳 -1（消耗 1 次）。
	IntN(int) int
}

type PRNGFactory interface {
	// New 以指定 seed 建立新的 PRNG。
	//
	// 合約（很重要）：在同一個實作與同一個版本下，New(seed) 必須是「決定性」的——
	// 相同的 seed 必須產生相同的初始內部狀態與輸出序列。
	New(int64) PRNG
}

// DefaultPRNG 實作預設的 PRNGFactory，回傳 Lehmer 核心。
type DefaultPRNG struct{}

// New 滿足合約
func (d *DefaultPRNG) New(seed int64) PRNG {
	return NewLehmerWithSeed(seed)
}

func Default() *DefaultPRNG {
	return &DefaultPRNG{}
}

// Core 封裝 PRNG，並提供引擎需要的分布取樣與工具方法。
type Core struct {
	PRNG
}

// New 允許使用外部自實現的 PRNG 建立 Core。
func New(rng PRNG) *Core {
	return &Core{rng}
}

// NewWithSeed 以預設 Lehmer 核心建立 Core。
func NewWithSeed(seed int64) *Core {
	return &Core{NewLehmerWithSeed(seed)}
}

// IntRange 回傳 [min,max] 的整數（含兩端）。min > max 時回傳 min。消耗 1 次。
func (c *Core) IntRange(min, max int) int {
	if min >= max {
		return min
	}
	return min + int(c.Float64()*float64(max-min+1))
}

// FloatRange 回傳 [min,max) 的浮點數。消耗 1 次。
func (c *Core) FloatRange(min, max float64) float64 {
	return min + c.Float64()*(max-min)
}

// Bernoulli 以機率 p 回傳 true。消耗 1 次。
func (c *Core) Bernoulli(p float64) bool {
	return c.Float64() < p
}

// PickIndex 回傳 [0,n) 的索引，n <= 0 時回傳 -1。消耗 1 次。
// 熱路徑中只使用哨兵值回傳
func (c *Core) PickIndex(n int) int {
	if n <= 0 {
		return -1
	}
	return c.IntN(n)
}

// Normal 以 Box–Muller 回傳標準常態樣本。固定消耗 2 次（捨棄 sin 分量）。
func (c *Core) Normal() float64 {
	u1 := c.Float64()
	u2 := c.Float64()
	if u1 <= 0 {
		u1 = 1e-12
	}
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// NormalAt 回傳 mu + sigma*Z。固定消耗 2 次。
func (c *Core) NormalAt(mu, sigma float64) float64 {
	return mu + sigma*c.Normal()
}

// Pareto 以反函數法取樣 Pareto(alpha, xm)。固定消耗 1 次。
func (c *Core) Pareto(alpha, xm float64) float64 {
	u := c.Float64()
	if u >= 1 {
		u = 1 - 1e-12
	}
	return xm / math.Pow(1-u, 1/alpha)
}

// LogNormal 回傳 exp(mu + sigma*Z)。固定消耗 2 次。
func (c *Core) LogNormal(mu, sigma float64) float64 {
	return math.Exp(c.NormalAt(mu, sigma))
}

// Pick 從列表中隨機選取一個元素，若列表為空回傳 T 零值。消耗 1 次。
func Pick[T any](c *Core, src []T) T {
	var zero T
	if len(src) == 0 {
		return zero
	}
	return src[c.IntN(len(src))]
}

// PickWeighted 依權重做分類取樣，回傳選中的索引。
//
// 權重總和為 0 或列表為空時回傳 -1。固定消耗 1 次。
func (c *Core) PickWeighted(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 || len(weights) == 0 {
		return -1
	}
	r := c.Float64() * total
	acc := 0.0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		acc += w
		if r < acc {
			return i
		}
	}
	return len(weights) - 1
}

// ShuffleInts 使用 Fisher-Yates (亦稱 Knuth Shuffle) 演算法
// 對[]int進行「就地 (In-place)」隨機重排。固定消耗 len-1 次。
//
//  1. 公平性 (Unbiased)：所有 N! 種排列出現機率嚴格相等。
//  2. 效能：O(N) 時間、O(1) 額外空間。
func (c *Core) ShuffleInts(src []int) {
	if len(src) <= 1 {
		return
	}

	for i := len(src) - 1; i > 0; i-- {
		j := c.IntN(i + 1)
		src[i], src[j] = src[j], src[i]
	}
}
