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

	"github.com/khoIT/mlops-demo-sub003/spec"
	"github.com/khoIT/mlops-demo-sub003/table"
)

// simMonetization 付費決策 → 交易排程 → LTV 累積 → 標籤與雜訊。
func (g *Generator) simMonetization(u *userState, ds *table.Dataset) {
	c := g.core
	m := g.gs.Monetization

	// 付費與否：logistic 模型。截距在 New 對類別混合解方程校準，
	// 使母體平均付費機率貼近目標付費率。
	bias := g.payBias
	if g.gs.Noise.PayerRateShift && u.installDay*2 >= g.gs.Population.InstallWindowDays {
		bias = g.payBiasShift
	}
	raw := u.spendLatent + g.engWeight*u.engLatent
	pPay := sigmoid(payerSlope*(raw-g.expectedRaw) + bias)
	isPayer := c.Bernoulli(pPay)

	var ltv3, ltv7, ltv30, ltv90 float64
	firstPayDay := -1

	if isPayer && g.gs.Population.Cohort > 0 {
		nTxn := clampInt(int(m.AvgTxnPerPayer*(0.3+1.7*u.spendScore)*(0.7+0.6*c.Float64())+0.5), 1, maxTxnPerPayer)
		mode := g.drawDayMode(u)
		burstDay := -1
		if m.Burst && c.Bernoulli(0.3) {
			burstDay = c.IntRange(0, 2)
		}

		for t := 0; t < nTxn; t++ {
			day := g.drawTxnDay(u, mode)
			if burstDay >= 0 && c.Bernoulli(0.6) {
				day = burstDay
			}
			if g.gs.Noise.DelayedRevenue && day <= 7 && c.Bernoulli(0.5) {
				day = clampInt(day+c.IntRange(4, 10), 0, 89)
			}

			amount := g.drawAmount(u)
			refund := c.Bernoulli(refundRate)
			txnTime := u.installTime + int64(day)*table.DaySeconds + int64(c.IntRange(0, int(table.DaySeconds)-1))

			ds.Payments = append(ds.Payments, table.Payment{
				GameUserID:     u.id,
				TxnTime:        txnTime,
				AmountUSD:      amount,
				ProductSKU:     skuFor(amount),
				PaymentChannel: payChannel(u),
				IsRefund:       refund,
			})
			if refund {
				continue // 退款列保留做稽核，淨收益為 0
			}
			u.txns++
			if firstPayDay < 0 || day < firstPayDay {
				firstPayDay = day
			}
			if day < 3 {
				ltv3 += amount
			}
			if day < 7 {
				ltv7 += amount
			}
			if day < 30 {
				ltv30 += amount
			}
			if day < 90 {
				ltv90 += amount
			}
		}
	}

	uaCost := 0.0
	if u.channel.Paid {
		uaCost = round2(u.campaign.CPIBase * c.FloatRange(0.7, 1.4))
	}

	lb := table.LabelRow{
		GameUserID:      u.id,
		InstallDate:     table.FormatDate(u.installTime),
		UACost:          uaCost,
		LTVD3:           round2(ltv3),
		LTVD7:           round2(ltv7),
		LTVD30:          round2(ltv30),
		LTVD90:          round2(ltv90),
		PayerD3:         ltv3 > 0,
		PayerD7:         ltv7 > 0,
		PayerD30:        ltv30 > 0,
		PayerD90:        ltv90 > 0,
		ProfitD90:       round2(ltv90 - uaCost),
		LateMonetizer:   firstPayDay >= 8,
		FalseEarlyPayer: ltv7 > 0 && ltv90-ltv7 <= 1e-9,
		ActiveDaysW7:    u.activeW7,
		SessionsCntW7:   u.sessionsW7,
		MaxLevelW7:      u.maxLevelW7,
	}

	g.applyLabelNoise(&lb)
	u.label = lb
}

// drawDayMode 選擇交易日分布模式。
//
// 深晚期（day 15+）偏向高參與用戶，且隨耦合強度放大——
// 故意製造 naive D7/D14 收益窗看不見、要靠行為特徵才能偵測的訊號。
func (g *Generator) drawDayMode(u *userState) int {
	c := g.core
	corr := g.gs.Behavior.CorrelationStrength
	pDeep := 0.35 * corr * u.engScore
	pMid := 0.15 * corr
	r := c.Float64()
	switch {
	case r < pDeep:
		return dayModeDeepLate
	case r < pDeep+pMid:
		return dayModeMidLate
	default:
		return dayModeEarly
	}
}

const (
	dayModeEarly = iota
	dayModeMidLate  // day 8–14
	dayModeDeepLate // day 15+
)

// drawTxnDay 依模式抽交易日 offset（0–89）。
func (g *Generator) drawTxnDay(u *userState, mode int) int {
	c := g.core
	switch mode {
	case dayModeDeepLate:
		// 15+，前段較密
		return 15 + clampInt(int(75*math.Pow(c.Float64(), 1.5)), 0, 74)
	case dayModeMidLate:
		return c.IntRange(8, 14)
	default:
		// 早期爆發後指數衰減
		decay := g.gs.Monetization.PurchaseDecay
		if decay <= 0 {
			decay = 0.12
		}
		u1 := c.Float64()
		return clampInt(int(-math.Log(1-u1)/decay), 0, 89)
	}
}

// drawAmount 依定價階與分布族抽金額（USD，最低 0.99）。
func (g *Generator) drawAmount(u *userState) float64 {
	c := g.core
	m := g.gs.Monetization
	tiers := m.PriceTiers

	// 消費分數決定落在哪個價位階附近
	idx := clampInt(int(u.spendScore*float64(len(tiers)))+c.IntRange(-1, 1), 0, len(tiers)-1)
	base := tiers[idx]

	var amt float64
	switch m.RevenueDist {
	case spec.DistUniform:
		amt = base * c.FloatRange(0.9, 1.1)
	case spec.DistPareto:
		alpha := math.Max(1.1, 2.6-1.2*m.HeavyTail-0.6*m.WhaleShare)
		amt = base * c.Pareto(alpha, 1)
	default: // lognormal
		amt = base * c.LogNormal(0, 0.25+0.5*m.HeavyTail)
	}

	if g.gs.Population.GeoMix {
		amt *= u.country.SpendMult
	}
	if g.gs.Noise.EconomyShift && u.installDay*2 >= g.gs.Population.InstallWindowDays {
		amt *= 1.25
	}
	return math.Max(0.99, round2(amt))
}

// applyLabelNoise 依序套用：晚期標籤雜訊 → D7 欄位遮蔽 → 洩漏注入。
func (g *Generator) applyLabelNoise(lb *table.LabelRow) {
	c := g.core
	n := g.gs.Noise

	if n.LabelNoisePct > 0 && c.Bernoulli(n.LabelNoisePct) {
		lb.LTVD30 = round2(math.Max(0, lb.LTVD30*(1+0.25*c.Normal())))
		lb.LTVD90 = round2(math.Max(0, lb.LTVD90*(1+0.25*c.Normal())))
	}
	if n.MissingFeaturePct > 0 && c.Bernoulli(n.MissingFeaturePct) {
		lb.ActiveDaysW7 = 0
		lb.SessionsCntW7 = 0
		lb.MaxLevelW7 = 0
	}
	if n.LeakageInjection && c.Bernoulli(0.25) {
		// 故意做錯：把一部分 D30 收益灌進 D7 標籤，供下游練習洩漏偵測
		lb.LTVD7 = round2(lb.LTVD7 + 0.5*(lb.LTVD30-lb.LTVD7))
	}
}

// emitUACosts 每個付費 campaign 每天一列。installs = spend / CPI 四捨五入。
func (g *Generator) emitUACosts(ds *table.Dataset) {
	c := g.core
	window := g.gs.Population.InstallWindowDays

	for _, cmp := range campaigns {
		kindMult := 1.4
		if cmp.Kind == "retarget" {
			kindMult = 0.6
		}
		for day := 0; day < window; day++ {
			spend := round2(cmp.SpendBase * kindMult * c.FloatRange(0.6, 1.4))
			cpi := cmp.CPIBase * c.FloatRange(0.7, 1.3)
			installs := int(spend/cpi + 0.5)
			clicks := installs * c.IntRange(4, 12)
			impressions := clicks * c.IntRange(20, 60)
			ds.UACosts = append(ds.UACosts, table.UACost{
				CampaignID:  cmp.ID,
				Date:        table.FormatDate(table.Epoch + int64(day)*table.DaySeconds),
				Spend:       spend,
				Impressions: impressions,
				Clicks:      clicks,
				Installs:    installs,
			})
		}
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// skuFor 以分計價的 SKU 代碼，例如 $4.99 → sku_gems_0499。
func skuFor(amount float64) string {
	return fmt.Sprintf("sku_gems_%04d", int(math.Round(amount*100)))
}

func payChannel(u *userState) string {
	if u.device.Model != "" && u.device.Model[0] == 'i' {
		return "appstore"
	}
	return "playstore"
}
