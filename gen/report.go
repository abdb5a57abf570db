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

package gen

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

const histBins = 10

// CI 信賴區間
type CI struct {
	Lo float64 `json:"Lo"`
	Hi float64 `json:"Hi"`
}

// Histogram 十格等寬直方圖
type Histogram struct {
	Labels []string `json:"Labels"`
	Counts []int    `json:"Counts"`
}

// Report 生成結果統計報告。
//
// 紀錄過程只累積原始值，完成後由 Done() 一次性計算統計結果。
type Report struct {
	Cohort       int     `json:"Cohort"`
	TotalRevenue float64 `json:"TotalRevenue"` // 淨退款後 D90 收益
	PayerCount   int     `json:"PayerCount"`
	PayerRate    float64 `json:"PayerRate"`
	PayerRateCI  CI      `json:"PayerRateCI"`
	ARPU         float64 `json:"ARPU"`
	ARPPU        float64 `json:"ARPPU"`
	LTVMean      float64 `json:"LTVMean"`
	LTVStd       float64 `json:"LTVStd"`
	Gini         float64 `json:"Gini"`

	RevenueHist Histogram `json:"RevenueHist"` // 每付費用戶 D90 收益
	TxnHist     Histogram `json:"TxnHist"`     // 每付費用戶交易數
	LTVHist     Histogram `json:"LTVHist"`     // 全用戶 D90 LTV

	isDone bool
}

// recorder 邊生成邊累積，Done 時轉成 Report。
type recorder struct {
	ltv90    []float64 // 每位用戶（含 0）
	payerLTV []float64
	payerTxn []float64
}

func newRecorder() *recorder {
	return &recorder{}
}

func (r *recorder) observe(u *userState) {
	v := u.label.LTVD90
	r.ltv90 = append(r.ltv90, v)
	if u.label.PayerD90 {
		r.payerLTV = append(r.payerLTV, v)
		r.payerTxn = append(r.payerTxn, float64(u.txns))
	}
}

// Done 把累積值轉換為最終統計結果。
//
// 空母體 ⇒ 所有統計為 0，絕不產生 NaN（除法皆有防護）。
func (r *recorder) Done(cohort int) *Report {
	rep := &Report{Cohort: cohort}
	n := len(r.ltv90)
	if n == 0 {
		rep.isDone = true
		return rep
	}

	total := 0.0
	for _, v := range r.ltv90 {
		total += v
	}
	rep.TotalRevenue = total
	rep.PayerCount = len(r.payerLTV)
	rep.PayerRate = float64(rep.PayerCount) / float64(n)
	rep.PayerRateCI = proportionCI(rep.PayerRate, n)
	rep.ARPU = total / float64(n)
	if rep.PayerCount > 0 {
		rep.ARPPU = total / float64(rep.PayerCount)
	}
	rep.LTVMean = stat.Mean(r.ltv90, nil)
	if n > 1 {
		rep.LTVStd = stat.StdDev(r.ltv90, nil)
	}
	rep.Gini = Gini(r.ltv90)

	rep.RevenueHist = buildHist(r.payerLTV)
	rep.TxnHist = buildHist(r.payerTxn)
	rep.LTVHist = buildHist(r.ltv90)

	rep.isDone = true
	return rep
}

// Gini 標準 rank-weighted 公式（對排序後的非負向量）。
//
// G = (2*Σ i*x_i)/(n*Σx) − (n+1)/n，i 為 1 起算的升冪名次。
// 總收益為 0 時回傳 0；輸出保證落在 [0,1]。
func Gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var total, weighted float64
	for i, v := range sorted {
		total += v
		weighted += float64(i+1) * v
	}
	if total <= 0 {
		return 0
	}
	g := 2*weighted/(float64(n)*total) - (float64(n)+1)/float64(n)
	return clampF(g, 0, 1)
}

// proportionCI 付費率的 95% 常態近似信賴區間。
func proportionCI(p float64, n int) CI {
	if n == 0 {
		return CI{}
	}
	z := distuv.Normal{Mu: 0, Sigma: 1}.Quantile(0.975)
	half := z * math.Sqrt(p*(1-p)/float64(n))
	return CI{Lo: clampF(p-half, 0, 1), Hi: clampF(p+half, 0, 1)}
}

// buildHist 十格等寬直方圖，範圍 [0, max]。
func buildHist(values []float64) Histogram {
	h := Histogram{
		Labels: make([]string, histBins),
		Counts: make([]int, histBins),
	}
	maxV := 0.0
	for _, v := range values {
		if v > maxV {
			maxV = v
		}
	}
	if maxV <= 0 {
		for i := range h.Labels {
			h.Labels[i] = "0"
		}
		return h
	}
	width := maxV / histBins
	for i := range h.Labels {
		h.Labels[i] = histLabel(float64(i)*width, float64(i+1)*width)
	}
	for _, v := range values {
		idx := int(v / width)
		if idx >= histBins {
			idx = histBins - 1
		}
		h.Counts[idx]++
	}
	return h
}

func histLabel(lo, hi float64) string {
	return fmt.Sprintf("[%.1f,%.1f)", lo, hi)
}
