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

import (
	"math"
	"sort"

	"github.com/khoIT/mlops-demo-sub003/errs"
	"github.com/khoIT/mlops-demo-sub003/metrics"
	"github.com/khoIT/mlops-demo-sub003/model"
	"github.com/khoIT/mlops-demo-sub003/sdk/core"
)

// 實現曲線的天區段：第一週前傾，之後遞減。
// 四段比例總和 1，段內每天均攤。
var revenueBands = []struct {
	fromDay, toDay int // 含兩端
	frac           float64
}{
	{1, 7, 0.40},
	{8, 30, 0.35},
	{31, 60, 0.15},
	{61, 90, 0.10},
}

const (
	activationHorizon = 90
	curveStep         = 5
	baselinePct       = 10 // 經濟影響的隨機基準切片
)

// ActivationSetting 活動模擬參數
type ActivationSetting struct {
	TopKPct           float64 `yaml:"top_k_pct"          json:"top_k_pct"`          // 目標前 K%（依預測值）
	CPI               float64 `yaml:"cpi"                json:"cpi"`                // 每位送達用戶的成本
	RevenueMultiplier float64 `yaml:"revenue_multiplier" json:"revenue_multiplier"` // 實現營收倍率
	ConversionNoise   float64 `yaml:"conversion_noise"   json:"conversion_noise"`   // 對稱有界雜訊幅度
	DeliveryRate      float64 `yaml:"delivery_rate"      json:"delivery_rate"`      // 觸達率
}

func (as *ActivationSetting) valid() error {
	if as.TopKPct <= 0 || as.TopKPct > 100 {
		return errs.InvalidConfigf("activation: top_k_pct must in (0,100], got %v", as.TopKPct)
	}
	if as.CPI < 0 {
		return errs.InvalidConfigf("activation: cpi must >= 0, got %v", as.CPI)
	}
	if as.DeliveryRate < 0 || as.DeliveryRate > 1 {
		return errs.InvalidConfigf("activation: delivery_rate must in [0,1], got %v", as.DeliveryRate)
	}
	if as.ConversionNoise < 0 || as.ConversionNoise > 1 {
		return errs.InvalidConfigf("activation: conversion_noise must in [0,1], got %v", as.ConversionNoise)
	}
	return nil
}

// CurvePoint 稀疏累積營收曲線上的一點（每 5 天一點）
type CurvePoint struct {
	Day     int     `json:"Day"`
	Revenue float64 `json:"Revenue"` // 累積
}

// ActivationResult 單一 K 門檻的活動模擬結果
type ActivationResult struct {
	TopKPct   float64      `json:"TopKPct"`
	Selected  int          `json:"Selected"`
	Delivered int          `json:"Delivered"`
	Cost      float64      `json:"Cost"`
	Revenue   float64      `json:"Revenue"` // 90 天實現營收
	Profit    float64      `json:"Profit"`
	ROI       float64      `json:"ROI"` // (Revenue-Cost)/Cost，Cost 0 時為 0
	Curve     []CurvePoint `json:"Curve"`
}

// SimulateActivation 模擬「對預測值前 K% 用戶投放」：
// 依觸達率決定送達名單、成本 = 送達 × CPI，每位送達用戶的實際值
// 乘上倍率與有界雜訊後，按天區段攤進 90 天實現曲線。
//
// 選取池是模型結果的全部列（訓練 + 測試），依預測值降冪穩定排序。
func SimulateActivation(res *model.Result, set ActivationSetting, seed int64, cf core.PRNGFactory) (*ActivationResult, error) {
	if err := set.valid(); err != nil {
		return nil, err
	}
	if cf == nil {
		cf = core.Default()
	}
	pool := scoredPool(res)
	if len(pool) == 0 {
		return nil, errs.NewWarn("model result has no prediction rows")
	}
	c := core.New(cf.New(seed))
	return runActivation(pool, set, c), nil
}

func runActivation(pool []model.PredRow, set ActivationSetting, c *core.Core) *ActivationResult {
	n := len(pool)
	k := int(math.Round(float64(n) * set.TopKPct / 100))
	if k > n {
		k = n
	}

	out := &ActivationResult{TopKPct: set.TopKPct, Selected: k}
	daily := make([]float64, activationHorizon+1)
	for _, row := range pool[:k] {
		// 固定消耗：每位入選用戶 2 次（觸達 + 雜訊），送達與否都一樣
		delivered := c.Bernoulli(set.DeliveryRate)
		noise := c.FloatRange(-1, 1) * set.ConversionNoise
		if !delivered {
			continue
		}
		out.Delivered++
		total := row.Actual * set.RevenueMultiplier * (1 + noise)
		if total < 0 {
			total = 0
		}
		for _, band := range revenueBands {
			days := band.toDay - band.fromDay + 1
			perDay := total * band.frac / float64(days)
			for d := band.fromDay; d <= band.toDay; d++ {
				daily[d] += perDay
			}
		}
	}
	out.Cost = round2(float64(out.Delivered) * set.CPI)

	cum := 0.0
	for d := 1; d <= activationHorizon; d++ {
		cum += daily[d]
		if d%curveStep == 0 {
			out.Curve = append(out.Curve, CurvePoint{Day: d, Revenue: cum})
		}
	}
	out.Revenue = cum
	out.Profit = out.Revenue - out.Cost
	if out.Cost > 0 {
		out.ROI = out.Profit / out.Cost
	}
	return out
}

// ImpactRow 單一 K 門檻對「固定 10% 隨機基準」的經濟影響
type ImpactRow struct {
	TopPct      int     `json:"TopPct"`
	Selected    int     `json:"Selected"`
	Delivered   int     `json:"Delivered"`
	Cost        float64 `json:"Cost"`
	Revenue     float64 `json:"Revenue"`
	Baseline    float64 `json:"Baseline"`    // 隨機基準營收，依切片大小等比縮放
	Incremental float64 `json:"Incremental"` // Revenue − Baseline
	Uplift      float64 `json:"Uplift"`      // Revenue / Baseline，基準 0 時為 0
	ROI         float64 `json:"ROI"`
}

// ComputeEconomicImpact 對一組固定 K 門檻重複活動模擬，
// 並對照「seed 決定的 10% 隨機切片」基準（受控反事實比較，不是實驗）。
//
// 每個 K 的模擬用獨立推導的 seed，基準切片在全部 K 之間共用。
func ComputeEconomicImpact(res *model.Result, set ActivationSetting, seed int64, cf core.PRNGFactory) ([]ImpactRow, error) {
	if err := set.valid(); err != nil {
		return nil, err
	}
	if cf == nil {
		cf = core.Default()
	}
	pool := scoredPool(res)
	n := len(pool)
	if n == 0 {
		return nil, errs.NewWarn("model result has no prediction rows")
	}

	// 固定基準：隨機 10% 切片的實現營收（無觸達/雜訊的期望口徑）
	baseC := core.New(cf.New(seed))
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	baseC.ShuffleInts(idx)
	baseK := n * baselinePct / 100
	if baseK < 1 {
		baseK = 1
	}
	baseSum := 0.0
	for _, i := range idx[:baseK] {
		v := pool[i].Actual * set.RevenueMultiplier * set.DeliveryRate
		if v > 0 {
			baseSum += v
		}
	}

	sm := newSeedMaker(seed)
	out := make([]ImpactRow, 0, len(metrics.LiftPct))
	for _, pct := range metrics.LiftPct {
		s := set
		s.TopKPct = float64(pct)
		c := core.New(cf.New(sm.next()))
		ar := runActivation(pool, s, c)

		row := ImpactRow{
			TopPct:    pct,
			Selected:  ar.Selected,
			Delivered: ar.Delivered,
			Cost:      ar.Cost,
			Revenue:   ar.Revenue,
			ROI:       ar.ROI,
		}
		row.Baseline = baseSum * float64(ar.Selected) / float64(baseK)
		row.Incremental = row.Revenue - row.Baseline
		if row.Baseline > 0 {
			row.Uplift = row.Revenue / row.Baseline
		}
		out = append(out, row)
	}
	return out, nil
}

// scoredPool 訓練 + 測試列合併後依預測值降冪穩定排序。
func scoredPool(res *model.Result) []model.PredRow {
	pool := make([]model.PredRow, 0, len(res.Train)+len(res.Test))
	pool = append(pool, res.Train...)
	pool = append(pool, res.Test...)
	sort.SliceStable(pool, func(a, b int) bool {
		return pool[a].Predicted > pool[b].Predicted
	})
	return pool
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
