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
	"github.com/khoIT/mlops-demo-sub003/errs"
	"github.com/khoIT/mlops-demo-sub003/metrics"
	"github.com/khoIT/mlops-demo-sub003/model"
	"github.com/khoIT/mlops-demo-sub003/sdk/core"
)

const upliftDeciles = 10

// 合成處理效應的範圍：基礎效應隨預測值名次線性放大，
// 再乘上 [0.5,1.5) 的隨機係數。
const (
	upliftEffectFloor = 0.08
	upliftEffectSlope = 0.30
)

// UpliftDecile 依預測值十分位的條件平均處理效應。
// 對照組是按比例切出的位置對齊切片，不是配對設計。
type UpliftDecile struct {
	Decile      int     `json:"Decile"` // 1 = 預測值最高的十分位
	NTreat      int     `json:"NTreat"`
	NControl    int     `json:"NControl"`
	MeanTreat   float64 `json:"MeanTreat"`
	MeanControl float64 `json:"MeanControl"`
	CATE        float64 `json:"CATE"`
}

// UpliftCurvePoint 觸達前 TopPct% 時的累積增益
type UpliftCurvePoint struct {
	TopPct int     `json:"TopPct"`
	NTreat int     `json:"NTreat"`
	Uplift float64 `json:"Uplift"` // 該觸達範圍內 treatment − control 的平均結果差
}

// UpliftResult 一次增益模擬的完整產出
type UpliftResult struct {
	NTreat   int                `json:"NTreat"`
	NControl int                `json:"NControl"`
	ATE      float64            `json:"ATE"`
	Deciles  []UpliftDecile     `json:"Deciles"`
	Curve    []UpliftCurvePoint `json:"Curve"`
}

// SimulateUplift 把已評分母體隨機分成 treatment/control 後，
// 對 treatment 套用「預測值越高、反應越好」的合成處理效應：
//
//	outcome = actual × (1 + (0.08 + 0.30×rankPct) × U[0.5,1.5))
//
// control 的結果維持 actual 不變。回報 ATE、依預測值十分位的 CATE、
// 與跨觸達百分比的累積增益曲線。
func SimulateUplift(res *model.Result, treatmentFraction float64, seed int64, cf core.PRNGFactory) (*UpliftResult, error) {
	if treatmentFraction <= 0 || treatmentFraction >= 1 {
		return nil, errs.InvalidConfigf("uplift: treatment_fraction must in (0,1), got %v", treatmentFraction)
	}
	if cf == nil {
		cf = core.Default()
	}
	pool := scoredPool(res) // 預測值降冪
	n := len(pool)
	if n < upliftDeciles {
		return nil, errs.NewWarn("population too small for uplift simulation")
	}
	c := core.New(cf.New(seed))

	// pool 已依預測值降冪，名次百分位 = 1 − i/(n−1)
	var treat, control []float64
	for i, row := range pool {
		// 固定消耗：每位用戶 2 次（分組 + 效應係數）
		inTreat := c.Bernoulli(treatmentFraction)
		u := c.FloatRange(0.5, 1.5)
		rankPct := 1 - float64(i)/float64(n-1)
		if inTreat {
			effect := (upliftEffectFloor + upliftEffectSlope*rankPct) * u
			treat = append(treat, row.Actual*(1+effect))
		} else {
			control = append(control, row.Actual)
		}
	}
	if len(treat) == 0 || len(control) == 0 {
		return nil, errs.NewWarn("uplift: degenerate assignment, adjust treatment_fraction or seed")
	}

	out := &UpliftResult{NTreat: len(treat), NControl: len(control)}
	out.ATE = meanOutcome(treat) - meanOutcome(control)

	// 十分位 CATE：兩組各自依預測值序（pool 已排序，append 保序）等量切片
	nt, nc := len(treat), len(control)
	for d := 0; d < upliftDeciles; d++ {
		tLo, tHi := d*nt/upliftDeciles, (d+1)*nt/upliftDeciles
		cLo, cHi := d*nc/upliftDeciles, (d+1)*nc/upliftDeciles
		if tLo >= tHi || cLo >= cHi {
			continue
		}
		mt := meanOutcome(treat[tLo:tHi])
		mc := meanOutcome(control[cLo:cHi])
		out.Deciles = append(out.Deciles, UpliftDecile{
			Decile:      d + 1,
			NTreat:      tHi - tLo,
			NControl:    cHi - cLo,
			MeanTreat:   mt,
			MeanControl: mc,
			CATE:        mt - mc,
		})
	}

	// 累積增益曲線：觸達前 pct% 的 treatment 對等比例 control
	for _, pct := range metrics.LiftPct {
		tK := nt * pct / 100
		cK := nc * pct / 100
		if tK < 1 || cK < 1 {
			continue
		}
		out.Curve = append(out.Curve, UpliftCurvePoint{
			TopPct: pct,
			NTreat: tK,
			Uplift: meanOutcome(treat[:tK]) - meanOutcome(control[:cK]),
		})
	}
	return out, nil
}

func meanOutcome(s []float64) float64 {
	if len(s) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range s {
		sum += v
	}
	return sum / float64(len(s))
}
