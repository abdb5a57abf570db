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

import "github.com/khoIT/mlops-demo-sub003/spec"

// Archetype 潛在行為類別，提供每位用戶模擬的先驗。
type Archetype struct {
	Name           string
	Weight         float64 // 基礎權重，依設定調整後再正規化
	EngPrior       float64 // 參與度先驗（latent 空間）
	SpendPrior     float64 // 消費先驗（latent 空間）
	LevelMin       int
	LevelMax       int
	RetentionBase  float64 // 每日留存基礎機率
	RetentionDecay float64 // 留存指數衰減速率
}

// 六個類別的順序固定（決定性取樣依賴迭代順序）。
var archetypes = [6]Archetype{
	{Name: "whale", Weight: 0.015, EngPrior: 1.2, SpendPrior: 2.2, LevelMin: 25, LevelMax: 60, RetentionBase: 0.92, RetentionDecay: 0.02},
	{Name: "dolphin", Weight: 0.055, EngPrior: 0.8, SpendPrior: 1.1, LevelMin: 15, LevelMax: 45, RetentionBase: 0.85, RetentionDecay: 0.04},
	{Name: "minnow", Weight: 0.13, EngPrior: 0.4, SpendPrior: 0.3, LevelMin: 8, LevelMax: 30, RetentionBase: 0.75, RetentionDecay: 0.06},
	{Name: "free_engaged", Weight: 0.20, EngPrior: 0.9, SpendPrior: -1.2, LevelMin: 12, LevelMax: 40, RetentionBase: 0.82, RetentionDecay: 0.05},
	{Name: "free_casual", Weight: 0.30, EngPrior: -0.3, SpendPrior: -1.8, LevelMin: 3, LevelMax: 15, RetentionBase: 0.6, RetentionDecay: 0.1},
	{Name: "churned", Weight: 0.30, EngPrior: -1.3, SpendPrior: -2.4, LevelMin: 1, LevelMax: 6, RetentionBase: 0.35, RetentionDecay: 0.22},
}

// adjustedWeights 依設定調整類別權重並正規化為總和 1。
//
// 重尾強度放大 whale/dolphin，留存衰減放大 churned。
func adjustedWeights(gs *spec.GenSetting) []float64 {
	w := make([]float64, len(archetypes))
	for i, a := range archetypes {
		w[i] = a.Weight
	}
	w[0] *= 1 + 1.5*gs.Monetization.HeavyTail + gs.Monetization.WhaleShare
	w[1] *= 1 + 0.5*gs.Monetization.HeavyTail
	w[5] *= 1 + 0.8*gs.Behavior.EngagementDecay

	total := 0.0
	for _, v := range w {
		total += v
	}
	for i := range w {
		w[i] /= total
	}
	return w
}

// channelAttr 獲取渠道屬性
type channelAttr struct {
	Name       string
	Weight     float64
	EngShift   float64
	SpendShift float64
	Paid       bool
}

var channels = []channelAttr{
	{Name: "organic", Weight: 0.35, EngShift: 0.1, SpendShift: 0.05, Paid: false},
	{Name: "meta_ads", Weight: 0.22, EngShift: 0.0, SpendShift: 0.1, Paid: true},
	{Name: "google_uac", Weight: 0.2, EngShift: -0.05, SpendShift: 0.0, Paid: true},
	{Name: "unity_ads", Weight: 0.13, EngShift: -0.15, SpendShift: -0.1, Paid: true},
	{Name: "tiktok_ads", Weight: 0.1, EngShift: 0.05, SpendShift: -0.05, Paid: true},
}

type countryAttr struct {
	Code       string
	Weight     float64
	EngShift   float64
	SpendShift float64
	SpendMult  float64 // 金額乘數（購買力差異）
}

var countries = []countryAttr{
	{Code: "US", Weight: 0.3, EngShift: 0.0, SpendShift: 0.15, SpendMult: 1.0},
	{Code: "JP", Weight: 0.15, EngShift: 0.05, SpendShift: 0.25, SpendMult: 1.2},
	{Code: "KR", Weight: 0.12, EngShift: 0.1, SpendShift: 0.2, SpendMult: 1.1},
	{Code: "DE", Weight: 0.13, EngShift: 0.0, SpendShift: 0.05, SpendMult: 0.9},
	{Code: "BR", Weight: 0.15, EngShift: 0.05, SpendShift: -0.2, SpendMult: 0.6},
	{Code: "IN", Weight: 0.15, EngShift: -0.05, SpendShift: -0.3, SpendMult: 0.45},
}

type deviceAttr struct {
	Model    string
	Tier     string // low / mid / high
	Weight   float64
	EngShift float64
}

var devices = []deviceAttr{
	{Model: "iPhone15,3", Tier: "high", Weight: 0.12, EngShift: 0.1},
	{Model: "iPhone12,1", Tier: "mid", Weight: 0.14, EngShift: 0.05},
	{Model: "SM-S918B", Tier: "high", Weight: 0.1, EngShift: 0.08},
	{Model: "SM-A525F", Tier: "mid", Weight: 0.22, EngShift: 0.0},
	{Model: "Redmi Note 11", Tier: "low", Weight: 0.24, EngShift: -0.08},
	{Model: "Infinix X669", Tier: "low", Weight: 0.18, EngShift: -0.12},
}

// campaignAttr 投放活動（UA cost 列的主體）。
type campaignAttr struct {
	ID        string
	Channel   string
	Kind      string // launch / retarget
	SpendBase float64
	CPIBase   float64
}

var campaigns = []campaignAttr{
	{ID: "cmp_meta_launch", Channel: "meta_ads", Kind: "launch", SpendBase: 850, CPIBase: 2.4},
	{ID: "cmp_meta_retarget", Channel: "meta_ads", Kind: "retarget", SpendBase: 260, CPIBase: 1.1},
	{ID: "cmp_guac_launch", Channel: "google_uac", Kind: "launch", SpendBase: 700, CPIBase: 2.1},
	{ID: "cmp_guac_retarget", Channel: "google_uac", Kind: "retarget", SpendBase: 180, CPIBase: 0.9},
	{ID: "cmp_unity_launch", Channel: "unity_ads", Kind: "launch", SpendBase: 420, CPIBase: 1.6},
	{ID: "cmp_tiktok_launch", Channel: "tiktok_ads", Kind: "launch", SpendBase: 380, CPIBase: 1.8},
}

// campaignsByChannel 固定迭代順序查表（不可用 map，決定性要求）。
func campaignsByChannel(channel string) []campaignAttr {
	out := make([]campaignAttr, 0, 2)
	for _, c := range campaigns {
		if c.Channel == channel {
			out = append(out, c)
		}
	}
	return out
}

var adsets = []string{"as_broad", "as_lookalike", "as_interest", "as_retention"}
var creatives = []string{"cr_video_a", "cr_video_b", "cr_playable", "cr_static"}

// 語意遊戲事件（session 起迄之外的事件種類，受個人事件上限管制）。
var semanticEvents = []string{
	"quest_complete", "pvp_battle", "loot_open", "chat_message",
	"guild_activity", "dungeon_run",
}
