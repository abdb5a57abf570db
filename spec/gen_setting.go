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

// Package spec 定義引擎的設定結構（generator 與 trainer 兩大塊）。
//
// 所有可辨識欄位都在結構上完整列舉，沒有 runtime 部分合併：
// 預設組態以「具名 preset 實例」提供（見 presets.go），而不是缺欄位補值。
package spec

import (
	"fmt"

	"github.com/khoIT/mlops-demo-sub003/errs"
)

// CohortMode 安裝時間分布模式
type CohortMode string

const (
	CohortUniform  CohortMode = "uniform"  // 安裝窗內均勻
	CohortCampaign CohortMode = "campaign" // 群聚在 4 個投放波段附近
)

// RevenueDist 收益金額分布族
type RevenueDist string

const (
	DistUniform   RevenueDist = "uniform"
	DistLogNormal RevenueDist = "lognormal"
	DistPareto    RevenueDist = "pareto"
)

// GenSetting 包含一次母體生成所需的所有設定。
type GenSetting struct {
	Name         string              `yaml:"name"          json:"name"`
	Population   PopulationSetting   `yaml:"population"    json:"population"`
	Monetization MonetizationSetting `yaml:"monetization"  json:"monetization"`
	Behavior     BehaviorSetting     `yaml:"behavior"      json:"behavior"`
	Noise        NoiseSetting        `yaml:"noise"         json:"noise"`
	Simulation   SimulationSetting   `yaml:"simulation"    json:"simulation"`
}

// PopulationSetting 母體（cohort）相關設定
type PopulationSetting struct {
	Cohort            int        `yaml:"cohort"               json:"cohort"`                // 用戶數
	InstallWindowDays int        `yaml:"install_window_days"  json:"install_window_days"`   // 安裝窗長度（天）
	CohortMode        CohortMode `yaml:"cohort_mode"          json:"cohort_mode"`           // uniform / campaign
	ReturningRate     float64    `yaml:"returning_rate"       json:"returning_rate"`        // 回流用戶比例
	GeoMix            bool       `yaml:"geo_mix"              json:"geo_mix"`               // 是否啟用國別差異
	DeviceMix         bool       `yaml:"device_mix"           json:"device_mix"`            // 是否啟用裝置差異
}

// MonetizationSetting 變現相關設定
type MonetizationSetting struct {
	PayerRate      float64     `yaml:"payer_rate"        json:"payer_rate"`       // 目標付費率（母體平均）
	RevenueDist    RevenueDist `yaml:"revenue_dist"      json:"revenue_dist"`     // 金額分布族
	WhaleShare     float64     `yaml:"whale_share"       json:"whale_share"`      // 鯨魚集中度 [0,1]
	GiniTarget     float64     `yaml:"gini_target"       json:"gini_target"`      // 目標 Gini（僅影響分布參數）
	HeavyTail      float64     `yaml:"heavy_tail"        json:"heavy_tail"`       // 重尾強度 [0,1]
	AvgTxnPerPayer float64     `yaml:"avg_txn_per_payer" json:"avg_txn_per_payer"`
	PurchaseDecay  float64     `yaml:"purchase_decay"    json:"purchase_decay"`   // 交易日 offset 衰減
	Burst          bool        `yaml:"burst"             json:"burst"`            // 是否出現短期爆買
	PriceTiers     []float64   `yaml:"price_tiers"       json:"price_tiers"`      // 定價階（USD）
}

// BehaviorSetting 行為相關設定
type BehaviorSetting struct {
	SessionsPerDay      float64 `yaml:"sessions_per_day"     json:"sessions_per_day"`     // 平均 session 數
	ProgressionSpeed    float64 `yaml:"progression_speed"    json:"progression_speed"`    // 升級速度
	EngagementDecay     float64 `yaml:"engagement_decay"     json:"engagement_decay"`     // 參與度衰減
	Volatility          float64 `yaml:"volatility"           json:"volatility"`           // 日常抖動
	CorrelationStrength float64 `yaml:"correlation_strength" json:"correlation_strength"` // 參與↔付費耦合 [0,1]
}

// NoiseSetting 雜訊/資料品質設定。
//
// LeakageInjection 是「故意做錯」的開關：把一部分未來（D30）收益灌進
// D7 標籤欄位，用來在下游練習洩漏偵測。正常組態請保持關閉。
type NoiseSetting struct {
	LabelNoisePct     float64 `yaml:"label_noise_pct"     json:"label_noise_pct"`     // 晚期 LTV 乘性高斯雜訊比例
	MissingFeaturePct float64 `yaml:"missing_feature_pct" json:"missing_feature_pct"` // D7 相關標籤欄位遮蔽比例
	DelayedRevenue    bool    `yaml:"delayed_revenue"     json:"delayed_revenue"`     // 把部分早期交易推遲到第 8-14 天
	LeakageInjection  bool    `yaml:"leakage_injection"   json:"leakage_injection"`
	PayerRateShift    bool    `yaml:"payer_rate_shift"    json:"payer_rate_shift"` // 安裝窗中點後付費率位移
	EconomyShift      bool    `yaml:"economy_shift"       json:"economy_shift"`    // 安裝窗中點後定價位移
}

// SimulationSetting 模擬控制
type SimulationSetting struct {
	MaxEventsPerUser int   `yaml:"max_events_per_user" json:"max_events_per_user"` // 語意事件上限（session 起迄不計入）
	Seed             int64 `yaml:"seed"                json:"seed"`
}

// Init 執行基本檢查，如需更多驗證可在此擴充。
func (gs *GenSetting) Init() error {
	return gs.valid()
}

// valid 執行最基本的設定檔檢查。
//
// Fail-fast：有效組態的輸出不受驗證影響，壞組態在進入生成前就擋下。
func (gs *GenSetting) valid() error {
	p := gs.Population
	if p.Cohort < 0 {
		return errs.InvalidConfigf("preset %s: population.cohort must >= 0, got %d", gs.Name, p.Cohort)
	}
	if p.InstallWindowDays < 1 {
		return errs.InvalidConfigf("preset %s: population.install_window_days must >= 1, got %d", gs.Name, p.InstallWindowDays)
	}
	if p.CohortMode != CohortUniform && p.CohortMode != CohortCampaign {
		return errs.InvalidConfigf("preset %s: population.cohort_mode must be uniform or campaign, got %q", gs.Name, p.CohortMode)
	}

	m := gs.Monetization
	if m.PayerRate < 0 || m.PayerRate > 1 {
		return errs.InvalidConfigf("preset %s: monetization.payer_rate must be in [0,1], got %v", gs.Name, m.PayerRate)
	}
	switch m.RevenueDist {
	case DistUniform, DistLogNormal, DistPareto:
	default:
		return errs.InvalidConfigf("preset %s: monetization.revenue_dist unknown: %q", gs.Name, m.RevenueDist)
	}
	if len(m.PriceTiers) == 0 {
		return errs.InvalidConfigf("preset %s: monetization.price_tiers must not be empty", gs.Name)
	}
	for _, t := range m.PriceTiers {
		if t < 0.99 {
			return errs.InvalidConfigf("preset %s: monetization.price_tiers entries must >= 0.99, got %v", gs.Name, t)
		}
	}
	if m.AvgTxnPerPayer <= 0 {
		return errs.InvalidConfigf("preset %s: monetization.avg_txn_per_payer must > 0, got %v", gs.Name, m.AvgTxnPerPayer)
	}

	b := gs.Behavior
	if b.CorrelationStrength < 0 || b.CorrelationStrength > 1 {
		return errs.InvalidConfigf("preset %s: behavior.correlation_strength must be in [0,1], got %v", gs.Name, b.CorrelationStrength)
	}
	if b.SessionsPerDay <= 0 {
		return errs.InvalidConfigf("preset %s: behavior.sessions_per_day must > 0, got %v", gs.Name, b.SessionsPerDay)
	}

	n := gs.Noise
	if n.LabelNoisePct < 0 || n.LabelNoisePct > 1 {
		return errs.InvalidConfigf("preset %s: noise.label_noise_pct must be in [0,1], got %v", gs.Name, n.LabelNoisePct)
	}
	if n.MissingFeaturePct < 0 || n.MissingFeaturePct > 1 {
		return errs.InvalidConfigf("preset %s: noise.missing_feature_pct must be in [0,1], got %v", gs.Name, n.MissingFeaturePct)
	}

	if gs.Simulation.MaxEventsPerUser < 0 {
		return errs.InvalidConfigf("preset %s: simulation.max_events_per_user must >= 0, got %d", gs.Name, gs.Simulation.MaxEventsPerUser)
	}
	return nil
}

// String 摘要輸出（CLI banner 用）
func (gs *GenSetting) String() string {
	return fmt.Sprintf("%s cohort=%d window=%dd payer=%.2f dist=%s seed=%d",
		gs.Name, gs.Population.Cohort, gs.Population.InstallWindowDays,
		gs.Monetization.PayerRate, gs.Monetization.RevenueDist, gs.Simulation.Seed)
}
