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

// Package metrics 計算 held-out 預測的迴歸/排序/校準/經濟指標。
//
// 數值邊界一律解析為定義好的 fallback（0 或 1，見各函數註解），
// 絕不讓 Inf/NaN 往外傳播。
package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary held-out 迴歸指標
type Summary struct {
	N        int     `json:"N"`
	MAE      float64 `json:"MAE"`
	RMSE     float64 `json:"RMSE"`
	R2       float64 `json:"R2"`
	Spearman float64 `json:"Spearman"`
}

// Evaluate 一次計算全部迴歸指標。空輸入回傳零值。
func Evaluate(pred, actual []float64) Summary {
	n := len(pred)
	if n == 0 || n != len(actual) {
		return Summary{}
	}
	return Summary{
		N:        n,
		MAE:      MAE(pred, actual),
		RMSE:     RMSE(pred, actual),
		R2:       R2(pred, actual),
		Spearman: Spearman(pred, actual),
	}
}

// MAE 平均絕對誤差。空輸入回傳 0。
func MAE(pred, actual []float64) float64 {
	if len(pred) == 0 {
		return 0
	}
	sum := 0.0
	for i := range pred {
		sum += math.Abs(pred[i] - actual[i])
	}
	return sum / float64(len(pred))
}

// RMSE 均方根誤差。空輸入回傳 0。
func RMSE(pred, actual []float64) float64 {
	if len(pred) == 0 {
		return 0
	}
	sum := 0.0
	for i := range pred {
		d := pred[i] - actual[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(pred)))
}

// R2 = 1 − SSres/SStot。
//
// 防護：SStot == 0（零變異目標）時，SSres == 0 回傳 1、否則回傳 0。
func R2(pred, actual []float64) float64 {
	if len(pred) == 0 {
		return 0
	}
	mean := stat.Mean(actual, nil)
	var ssRes, ssTot float64
	for i := range pred {
		d := actual[i] - pred[i]
		ssRes += d * d
		t := actual[i] - mean
		ssTot += t * t
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

// Spearman 以「名次向量的 Pearson 相關」實作。
//
// 並列值以穩定排序順序給名次、不取平均名次——對大量重複值的輸入，
// 與教科書的 tie-corrected 公式略有出入，屬刻意保留的行為。
func Spearman(pred, actual []float64) float64 {
	n := len(pred)
	if n < 2 {
		return 0
	}
	r := stat.Correlation(ranks(pred), ranks(actual), nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}

// ranks 穩定排序後的名次向量（0 起算）。
func ranks(values []float64) []float64 {
	n := len(values)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return values[idx[a]] < values[idx[b]]
	})
	out := make([]float64, n)
	for rank, i := range idx {
		out[i] = float64(rank)
	}
	return out
}

// Pearson 皮爾森相關，NaN（零變異）時回傳 0。
func Pearson(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}
