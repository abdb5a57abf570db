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

import (
	"math"
	"sort"
)

const calibBuckets = 10

// CalibBucket 單一校準桶：依預測值升冪切出的等量分桶。
type CalibBucket struct {
	N          int     `json:"N"`
	MeanPred   float64 `json:"MeanPred"`
	MeanActual float64 `json:"MeanActual"`
}

// Calibration 校準報告。Error 為各非空桶 |MeanPred−MeanActual| 的平均，
// 完美預測器恆為 0。
type Calibration struct {
	Buckets []CalibBucket `json:"Buckets"`
	Error   float64       `json:"Error"`
}

// Calibrate 依預測值穩定排序後切成 10 個等量桶。
// 空輸入回傳零值（無桶、Error 0）。
func Calibrate(pred, actual []float64) Calibration {
	n := len(pred)
	if n == 0 || n != len(actual) {
		return Calibration{}
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return pred[idx[a]] < pred[idx[b]]
	})

	var out Calibration
	gapSum, gapCnt := 0.0, 0
	for b := range calibBuckets {
		lo := b * n / calibBuckets
		hi := (b + 1) * n / calibBuckets
		if lo >= hi {
			continue
		}
		var sp, sa float64
		for _, i := range idx[lo:hi] {
			sp += pred[i]
			sa += actual[i]
		}
		cnt := hi - lo
		bk := CalibBucket{
			N:          cnt,
			MeanPred:   sp / float64(cnt),
			MeanActual: sa / float64(cnt),
		}
		out.Buckets = append(out.Buckets, bk)
		gapSum += math.Abs(bk.MeanPred - bk.MeanActual)
		gapCnt++
	}
	if gapCnt > 0 {
		out.Error = gapSum / float64(gapCnt)
	}
	return out
}
