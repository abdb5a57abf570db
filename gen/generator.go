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

// Package gen 實作母體與行為生成器。
//
// 每位用戶的模擬流程：安裝時間 → 類別（archetype）→ 潛在分數 →
// 30 天留存過程 → session/事件 → 付費決策與交易 → 標籤與雜訊。
// 所有隨機性來自單一 core.Core，依固定呼叫順序消耗；
// 相同 seed 與設定 ⇒ 位元相同的五張表。
package gen

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/khoIT/mlops-demo-sub003/errs"
	"github.com/khoIT/mlops-demo-sub003/sdk/core"
	"github.com/khoIT/mlops-demo-sub003/spec"
	"github.com/khoIT/mlops-demo-sub003/table"
)

const retentionDays = 30 // 行為模擬天數（D30 內）
const maxTxnPerPayer = 25
const refundRate = 0.01
const payerSlope = 2.2 // 付費 logistic 的 latent 斜率

// Generator 母體生成器。一個實例綁一份設定與一顆亂數核心；
// 核心由建立該實例的呼叫獨占，不可跨 run 隱式共用。
type Generator struct {
	gs   *spec.GenSetting
	core *core.Core

	weights      []float64 // 調整後的類別權重
	expectedRaw  float64   // 付費 logistic 的置中基準（類別混合期望 latent）
	payBias      float64   // 校準後的 logistic 截距
	payBiasShift float64   // payer_rate_shift 開啟時，後半窗用的截距
	engWeight    float64   // 0.15 + 0.45*correlation

	// Progress 在每位用戶完成後被呼叫（可為 nil）。
	Progress func(done, total int)
}

// New 建立生成器。設定會先做 fail-fast 檢查。
func New(gs *spec.GenSetting, cf core.PRNGFactory) (*Generator, error) {
	if gs == nil {
		return nil, errs.NewFatal("gen setting required")
	}
	if cf == nil {
		return nil, errs.NewFatal("core factory required")
	}
	if err := gs.Init(); err != nil {
		return nil, err
	}

	g := &Generator{
		gs:        gs,
		core:      core.New(cf.New(gs.Simulation.Seed)),
		weights:   adjustedWeights(gs),
		engWeight: 0.15 + 0.45*gs.Behavior.CorrelationStrength,
	}

	// 付費校準：每 run 解析算一次，不消耗亂數。
	// 置中基準 expectedRaw 取類別混合的期望 latent；截距則對類別混合解
	// 1-D 單調方程（見 solvePayerBias），讓母體平均付費機率貼近設定值。
	// 個別用戶的 latent 雜訊仍會讓實際付費率偏移一點上下。
	coefE := gs.Behavior.CorrelationStrength + g.engWeight
	raws := make([]float64, len(archetypes))
	for i, a := range archetypes {
		raws[i] = a.SpendPrior + coefE*a.EngPrior
		g.expectedRaw += g.weights[i] * raws[i]
	}

	ms := ambientRawShift(gs, coefE)
	// 每用戶兩次 σ=0.35 的常態抽樣造成的 latent 離散；
	// 以 logit-normal 平均近似（斜率除以 κ）折進求解
	s2 := 0.35 * 0.35 * (1 + coefE*coefE)
	kappa := math.Sqrt(1 + math.Pi/8*payerSlope*payerSlope*s2)

	rate := gs.Monetization.PayerRate
	g.payBias = solvePayerBias(raws, g.weights, g.expectedRaw, ms, kappa, rate)
	g.payBiasShift = g.payBias
	if gs.Noise.PayerRateShift {
		g.payBiasShift = solvePayerBias(raws, g.weights, g.expectedRaw, ms, kappa, clampF(rate*1.5, 0, 1))
	}
	return g, nil
}

// solvePayerBias 解 Σᵢ wᵢ·sigmoid((slope·(rawᵢ+shift−center)+b)/κ) = rate
// 的截距 b。左式對 b 單調遞增，二分 60 步收斂到浮點精度。
func solvePayerBias(raws, weights []float64, center, shift, kappa, rate float64) float64 {
	lo, hi := -40.0, 40.0
	for k := 0; k < 60; k++ {
		mid := (lo + hi) / 2
		sum := 0.0
		for i, r := range raws {
			sum += weights[i] * sigmoid((payerSlope*(r+shift-center)+mid)/kappa)
		}
		if sum < rate {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

// ambientRawShift 類別以外的母體平均 latent 位移：
// 渠道，加上 geo_mix / device_mix 開啟時的國別與裝置項，以及回流加成。
func ambientRawShift(gs *spec.GenSetting, coefE float64) float64 {
	var chW, chS float64
	for _, a := range channels {
		chW += a.Weight
		chS += a.Weight * (a.SpendShift + coefE*a.EngShift)
	}
	ms := chS / chW
	if gs.Population.GeoMix {
		var cw, cs float64
		for _, a := range countries {
			cw += a.Weight
			cs += a.Weight * (a.SpendShift + coefE*a.EngShift)
		}
		ms += cs / cw
	}
	if gs.Population.DeviceMix {
		var dw, de float64
		for _, a := range devices {
			dw += a.Weight
			de += a.Weight * a.EngShift
		}
		ms += coefE * de / dw
	}
	return ms + gs.Population.ReturningRate*coefE*0.2
}

// Generate 產出五張表與統計報告。
//
// 取消點在「用戶之間」檢查：一位用戶的模擬不會被中途打斷。
func (g *Generator) Generate(ctx context.Context) (*table.Dataset, *Report, error) {
	n := g.gs.Population.Cohort
	ds := &table.Dataset{
		Players: make([]table.Player, 0, n),
		Labels:  make([]table.LabelRow, 0, n),
	}
	rec := newRecorder()

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return nil, nil, errs.NewWarn("generate canceled: " + ctx.Err().Error())
		default:
		}
		u := g.simUser(i, ds)
		rec.observe(u)
		if g.Progress != nil {
			g.Progress(i+1, n)
		}
	}

	g.emitUACosts(ds)
	return ds, rec.Done(n), nil
}

// userState 一位用戶模擬期間的累積狀態。
type userState struct {
	id          string
	installDay  int
	installTime int64
	arch        *Archetype
	engLatent   float64
	spendLatent float64
	engScore    float64 // sigmoid 壓縮後 [0,1]
	spendScore  float64
	channel     channelAttr
	country     countryAttr
	device      deviceAttr
	campaign    campaignAttr // organic 時為零值
	returning   bool

	activeDays  []int
	level       int
	maxLevelW7  int
	sessionsW7  int
	activeW7    int
	lastLoginAt int64
	eventBudget int // 語意事件餘額（session 起迄不計）
	txns        int // 非退款交易數

	label table.LabelRow
}

// simUser 模擬單一用戶並把列附加到 ds。回傳狀態供報告累積。
func (g *Generator) simUser(idx int, ds *table.Dataset) *userState {
	c := g.core
	u := &userState{
		id:          fmt.Sprintf("u%06d", idx+1),
		level:       1,
		eventBudget: g.gs.Simulation.MaxEventsPerUser,
	}

	// 1) 安裝時間
	u.installDay = g.drawInstallDay()
	u.installTime = table.Epoch + int64(u.installDay)*table.DaySeconds + int64(c.IntRange(0, int(table.DaySeconds)-1))
	u.lastLoginAt = u.installTime

	// 2) 類別
	ai := c.PickWeighted(g.weights)
	if ai < 0 {
		ai = len(archetypes) - 1
	}
	u.arch = &archetypes[ai]

	// 回流用戶：參與度偏高、視為自然流量
	u.returning = c.Bernoulli(g.gs.Population.ReturningRate)

	// 3) 獲取屬性與潛在分數
	u.channel = pickWeightedChannel(c)
	if u.returning {
		u.channel = channels[0] // organic
	}
	u.country = pickWeightedCountry(c)
	u.device = pickWeightedDevice(c)
	if u.channel.Paid {
		u.campaign = core.Pick(c, campaignsByChannel(u.channel.Name))
	}

	geo := 0.0
	if g.gs.Population.GeoMix {
		geo = 1.0
	}
	dev := 0.0
	if g.gs.Population.DeviceMix {
		dev = 1.0
	}
	corr := g.gs.Behavior.CorrelationStrength

	u.engLatent = u.arch.EngPrior + c.NormalAt(0, 0.35) + u.channel.EngShift + geo*u.country.EngShift + dev*u.device.EngShift
	if u.returning {
		u.engLatent += 0.2
	}
	u.spendLatent = u.arch.SpendPrior + c.NormalAt(0, 0.35) + u.channel.SpendShift + geo*u.country.SpendShift + corr*u.engLatent
	u.engScore = sigmoid(u.engLatent)
	u.spendScore = sigmoid(u.spendLatent)

	// 4-5) 留存 + session/事件
	g.simRetention(u)
	g.simSessions(u, ds)

	// 6-8) 付費與標籤
	g.simMonetization(u, ds)

	// player 列
	ds.Players = append(ds.Players, g.buildPlayer(u))
	ds.Labels = append(ds.Labels, u.label)
	return u
}

// drawInstallDay 安裝日 offset。campaign 模式群聚在 4 個波段中心附近
// （高斯抖動 σ=10 天），uniform 模式在窗內均勻。
func (g *Generator) drawInstallDay() int {
	window := g.gs.Population.InstallWindowDays
	if g.gs.Population.CohortMode == spec.CohortCampaign {
		center := g.core.IntN(4)
		day := float64(window)*(2*float64(center)+1)/8 + g.core.NormalAt(0, 10)
		return clampInt(int(day), 0, window-1)
	}
	return g.core.IntN(window)
}

func (g *Generator) buildPlayer(u *userState) table.Player {
	c := g.core
	campaignID := "organic"
	adset := "organic"
	creative := "organic"
	if u.channel.Paid {
		campaignID = u.campaign.ID
		adset = core.Pick(c, adsets)
		creative = core.Pick(c, creatives)
	}
	osName := "android"
	if strings.HasPrefix(u.device.Model, "iPhone") {
		osName = "ios"
	}
	return table.Player{
		GameUserID:       u.id,
		InstallID:        fmt.Sprintf("%016x", c.Uint64()),
		InstallTime:      u.installTime,
		CampaignID:       campaignID,
		AdsetID:          adset,
		CreativeID:       creative,
		Channel:          u.channel.Name,
		Country:          u.country.Code,
		OS:               osName,
		DeviceModel:      u.device.Model,
		DeviceTier:       u.device.Tier,
		ConsentTracking:  c.Bernoulli(0.82),
		ConsentMarketing: c.Bernoulli(0.55),
	}
}

// ------------------------------------------------------------
// 小工具
// ------------------------------------------------------------

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func pickWeightedChannel(c *core.Core) channelAttr {
	w := make([]float64, len(channels))
	for i := range channels {
		w[i] = channels[i].Weight
	}
	i := c.PickWeighted(w)
	if i < 0 {
		i = 0
	}
	return channels[i]
}

func pickWeightedCountry(c *core.Core) countryAttr {
	w := make([]float64, len(countries))
	for i := range countries {
		w[i] = countries[i].Weight
	}
	i := c.PickWeighted(w)
	if i < 0 {
		i = 0
	}
	return countries[i]
}

func pickWeightedDevice(c *core.Core) deviceAttr {
	w := make([]float64, len(devices))
	for i := range devices {
		w[i] = devices[i].Weight
	}
	i := c.PickWeighted(w)
	if i < 0 {
		i = 0
	}
	return devices[i]
}
