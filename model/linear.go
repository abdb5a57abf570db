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

package model

import (
	"context"
	"math"

	"github.com/khoIT/mlops-demo-sub003/spec"
)

// 每隔幾個 epoch 記一次 MSE
const linearLossEvery = 2

// linearTrainer 批次梯度下降的線性迴歸。
//
// 特徵先除以母體標準差（零變異欄防護為 1）再下降；收斂後把權重
// 除回標準差，對外的權重與預測都在原始特徵尺度上。
type linearTrainer struct {
	ts    *spec.TrainSetting
	nFeat int
}

func (l *linearTrainer) fit(ctx context.Context, X [][]float64, y []float64, rows []int) (func([]float64) float64, []float64, []float64, error) {
	n := len(rows)
	std := columnStd(X, rows, l.nFeat)

	// 標準化後的訓練視圖
	Z := make([][]float64, n)
	for i, r := range rows {
		z := make([]float64, l.nFeat)
		for j, v := range X[r] {
			z[j] = v / std[j]
		}
		Z[i] = z
	}

	w := make([]float64, l.nFeat)
	bias := 0.0
	loss := make([]float64, 0, l.ts.Epochs/linearLossEvery+1)
	grad := make([]float64, l.nFeat)

	for e := 0; e < l.ts.Epochs; e++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, nil, err
		}
		for j := range grad {
			grad[j] = 0
		}
		gradB := 0.0
		mse := 0.0
		for i, r := range rows {
			pred := bias
			for j, v := range Z[i] {
				pred += w[j] * v
			}
			d := pred - y[r]
			mse += d * d
			gradB += d
			for j, v := range Z[i] {
				grad[j] += d * v
			}
		}
		inv := 2.0 / float64(n)
		bias -= l.ts.LearnStep * gradB * inv
		for j := range w {
			w[j] -= l.ts.LearnStep * grad[j] * inv
		}
		if e%linearLossEvery == 0 {
			loss = append(loss, mse/float64(n))
		}
	}

	// 還原到原始特徵尺度
	final := make([]float64, l.nFeat)
	for j := range final {
		final[j] = w[j] / std[j]
	}
	absW := make([]float64, l.nFeat)
	for j, v := range final {
		absW[j] = math.Abs(v)
	}

	predict := func(x []float64) float64 {
		p := bias
		for j, v := range x {
			p += final[j] * v
		}
		return p
	}
	return predict, loss, absW, nil
}

// columnStd 各欄母體標準差，零變異欄回傳 1。
func columnStd(X [][]float64, rows []int, nFeat int) []float64 {
	n := float64(len(rows))
	mean := make([]float64, nFeat)
	for _, r := range rows {
		for j, v := range X[r] {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= n
	}
	std := make([]float64, nFeat)
	for _, r := range rows {
		for j, v := range X[r] {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / n)
		if std[j] == 0 {
			std[j] = 1
		}
	}
	return std
}
