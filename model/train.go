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

// Package model 提供 pLTV 的四種 from-scratch 訓練器：
// 梯度提升樹、隨機森林、線性梯度下降、與 dummy 基線。
//
// 除 dummy 外，目標一律以 log1p 變換後訓練、預測時 expm1 還原並夾 0；
// 樹與 bagging 的隨機性全部來自 sdk/core，與生成端共用同一條決定性合約。
package model

import (
	"context"
	"math"
	"sort"

	"github.com/khoIT/mlops-demo-sub003/errs"
	"github.com/khoIT/mlops-demo-sub003/features"
	"github.com/khoIT/mlops-demo-sub003/metrics"
	"github.com/khoIT/mlops-demo-sub003/sdk/core"
	"github.com/khoIT/mlops-demo-sub003/spec"
)

// PredRow 單一使用者的（實際值, 預測值）配對，原始金額尺度。
type PredRow struct {
	UserID    string  `json:"UserID"`
	Actual    float64 `json:"Actual"`
	Predicted float64 `json:"Predicted"`
}

// Importance 單一特徵的重要度。
// Weight 已正規化（總和 1）；Direction 是該特徵與 held-out 實際值的
// Pearson 相關符號（+1 / -1 / 0），重要度本身不帶方向。
type Importance struct {
	Name      string  `json:"Name"`
	Weight    float64 `json:"Weight"`
	Direction int     `json:"Direction"`
}

// Result 一次訓練的完整產出
type Result struct {
	Model spec.ModelKind     `json:"Model"`
	Tgt   spec.Target        `json:"Target"`
	Split spec.SplitStrategy `json:"Split"`
	Seed  int64              `json:"Seed"`

	Features   []string     `json:"Features"`
	Importance []Importance `json:"Importance"`
	LossTrace  []float64    `json:"LossTrace"`

	Train []PredRow `json:"Train"`
	Test  []PredRow `json:"Test"`

	Report *metrics.Report `json:"Report"`

	predict func([]float64) float64
}

// Predict 讓訓練好的模型對外可重用（activation/uplift 模擬會用到）
func (r *Result) Predict(x []float64) float64 {
	return r.predict(x)
}

type trainer interface {
	// fit 回傳 log 空間（dummy 為原始空間）的預測函數、損失軌跡、分割增益
	fit(ctx context.Context, X [][]float64, y []float64, rows []int) (func([]float64) float64, []float64, []float64, error)
}

// attach 保存最終預測函數，必要時套上 expm1 還原與夾 0。
func (r *Result) attach(f func([]float64) float64, transformed bool) {
	if transformed {
		r.predict = func(x []float64) float64 {
			v := math.Expm1(f(x))
			if v < 0 {
				return 0
			}
			return v
		}
		return
	}
	r.predict = f
}

// Train 在特徵矩陣上訓練單一模型並完成 held-out 評估。
//
// 切分固定 75/25：random 為帶 seed 的 Fisher–Yates、time 依安裝時間排序
// 取前段為訓練。ctx 取消在樹與樹（或 epoch 與 epoch）之間生效。
func Train(ctx context.Context, m *features.Matrix, ts *spec.TrainSetting, cf core.PRNGFactory) (*Result, error) {
	if err := ts.Init(); err != nil {
		return nil, err
	}
	n := len(m.Rows)
	if n < 8 {
		return nil, errs.InvalidConfigf("train: matrix too small: %d rows", n)
	}
	if cf == nil {
		cf = core.Default()
	}
	c := core.New(cf.New(ts.Seed))

	trainIdx, testIdx := splitRows(m, ts, c)

	nFeat := len(m.Columns)
	X := make([][]float64, n)
	for i := range m.Rows {
		X[i] = m.Rows[i].Values
	}
	raw := m.Target(ts.Tgt == spec.TargetLTV90)

	transformed := ts.Model != spec.ModelDummy
	y := raw
	if transformed {
		y = make([]float64, n)
		for i, v := range raw {
			if v < 0 {
				v = 0
			}
			y[i] = math.Log1p(v)
		}
	}

	var tr trainer
	switch ts.Model {
	case spec.ModelGBT:
		tr = &gbtTrainer{ts: ts, c: c, nFeat: nFeat}
	case spec.ModelForest:
		tr = &forestTrainer{ts: ts, c: c, nFeat: nFeat}
	case spec.ModelLinear:
		tr = &linearTrainer{ts: ts, nFeat: nFeat}
	case spec.ModelDummy:
		tr = &dummyTrainer{m: m}
	}
	predictOne, loss, gains, err := tr.fit(ctx, X, y, trainIdx)
	if err != nil {
		return nil, err
	}

	out := &Result{
		Model:     ts.Model,
		Tgt:       ts.Tgt,
		Split:     ts.Split,
		Seed:      ts.Seed,
		Features:  append([]string(nil), m.Columns...),
		LossTrace: loss,
	}
	out.attach(predictOne, transformed)

	out.Train = predRows(m, X, raw, trainIdx, out.predict)
	out.Test = predRows(m, X, raw, testIdx, out.predict)

	pred := make([]float64, len(out.Test))
	actual := make([]float64, len(out.Test))
	for i, r := range out.Test {
		pred[i] = r.Predicted
		actual[i] = r.Actual
	}
	out.Report = metrics.NewReport(string(ts.Model), string(ts.Tgt), pred, actual)
	out.Importance = rankImportance(m, gains, testIdx, actual)
	return out, nil
}

func predRows(m *features.Matrix, X [][]float64, raw []float64, idx []int, f func([]float64) float64) []PredRow {
	out := make([]PredRow, len(idx))
	for i, r := range idx {
		out[i] = PredRow{
			UserID:    m.Rows[r].UserID,
			Actual:    raw[r],
			Predicted: f(X[r]),
		}
	}
	return out
}

// splitRows 75/25 切分，回傳（訓練列, 測試列）的矩陣列索引。
func splitRows(m *features.Matrix, ts *spec.TrainSetting, c *core.Core) ([]int, []int) {
	n := len(m.Rows)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	switch ts.Split {
	case spec.SplitRandom:
		c.ShuffleInts(idx)
	case spec.SplitTime:
		sort.SliceStable(idx, func(a, b int) bool {
			return m.Rows[idx[a]].InstallTime < m.Rows[idx[b]].InstallTime
		})
	}
	cut := n * 3 / 4
	return idx[:cut], idx[cut:]
}

// rankImportance 正規化增益（或 |權重|）成總和 1，
// 方向取特徵在 held-out 列上與實際值的相關符號。
func rankImportance(m *features.Matrix, gains []float64, testIdx []int, actual []float64) []Importance {
	if len(gains) == 0 {
		return nil
	}
	total := 0.0
	for _, g := range gains {
		total += g
	}
	out := make([]Importance, len(m.Columns))
	for j, name := range m.Columns {
		w := 0.0
		if total > 0 {
			w = gains[j] / total
		}
		col := make([]float64, len(testIdx))
		for i, r := range testIdx {
			col[i] = m.Rows[r].Values[j]
		}
		out[j] = Importance{
			Name:      name,
			Weight:    w,
			Direction: sign(metrics.Pearson(col, actual)),
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Weight > out[b].Weight
	})
	return out
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
