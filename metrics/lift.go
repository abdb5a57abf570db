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

package metrics

import "sort"

// LiftPct 固定的分位門檻（百分比），曲線每個門檻一個點。
var LiftPct = []int{1, 2, 5, 10, 15, 20, 30, 50, 75, 100}

// LiftPoint 前 TopPct% 高預測值使用者的排序經濟指標。
//
//   - Lift：該群平均實際值 / 全體平均實際值，TopPct=100 時恆等於 1。
//   - Precision/Recall：以「實際值前 10% 使用者」為正類。
//   - ValueCapture：該群實際值總和佔全體比例，TopPct=100 時恆等於 1。
type LiftPoint struct {
	TopPct       int     `json:"TopPct"`
	N            int     `json:"N"`
	Lift         float64 `json:"Lift"`
	Precision    float64 `json:"Precision"`
	Recall       float64 `json:"Recall"`
	ValueCapture float64 `json:"ValueCapture"`
}

// LiftCurve 計算全部 LiftPct 門檻的曲線。空輸入回傳 nil。
// 全體實際值總和為 0 時 Lift/ValueCapture 定義為 0。
func LiftCurve(pred, actual []float64) []LiftPoint {
	n := len(pred)
	if n == 0 || n != len(actual) {
		return nil
	}
	byPred := sortDesc(pred)
	byActual := sortDesc(actual)

	var total float64
	for _, v := range actual {
		total += v
	}

	// 正類：實際值前 10%
	posCnt := n / 10
	if posCnt < 1 {
		posCnt = 1
	}
	positive := make(map[int]bool, posCnt)
	for _, i := range byActual[:posCnt] {
		positive[i] = true
	}

	out := make([]LiftPoint, 0, len(LiftPct))
	for _, pct := range LiftPct {
		k := n * pct / 100
		if k < 1 {
			k = 1
		}
		var sum float64
		hit := 0
		for _, i := range byPred[:k] {
			sum += actual[i]
			if positive[i] {
				hit++
			}
		}
		pt := LiftPoint{
			TopPct:    pct,
			N:         k,
			Precision: float64(hit) / float64(k),
			Recall:    float64(hit) / float64(posCnt),
		}
		if total > 0 {
			pt.Lift = (sum / float64(k)) / (total / float64(n))
			pt.ValueCapture = sum / total
		}
		out = append(out, pt)
	}
	return out
}

// sortDesc 值降冪的索引序，穩定排序保證並列值順序可重現。
func sortDesc(values []float64) []int {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return values[idx[a]] > values[idx[b]]
	})
	return idx
}
