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

	"github.com/khoIT/mlops-demo-sub003/features"
)

const (
	dummyPayMult  = 3.5
	dummyPayBonus = 5.0
)

// dummyTrainer 啟發式基線，不訓練：
// 預測 = payment_sum_7d × 3.5，付費者再加 5。原始金額尺度，無變換。
// 找不到對應欄時該項視為 0。
type dummyTrainer struct {
	m *features.Matrix
}

func (d *dummyTrainer) fit(_ context.Context, _ [][]float64, _ []float64, _ []int) (func([]float64) float64, []float64, []float64, error) {
	payCol := d.m.Col("payment_sum_7d")
	flagCol := d.m.Col("payer_flag")

	predict := func(x []float64) float64 {
		out := 0.0
		if payCol >= 0 {
			out = x[payCol] * dummyPayMult
		}
		if flagCol >= 0 && x[flagCol] > 0 {
			out += dummyPayBonus
		}
		return out
	}
	return predict, nil, nil, nil
}
