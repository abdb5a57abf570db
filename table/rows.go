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

// Package table 定義五張原始表的列型別與 CSV 編解碼。
//
// 每張表是一個扁平矩形結構：固定表頭一行、一列一筆。欄位順序是相容性
// 合約的一部分（見各 *Header 變數），不可重排。
package table

import (
	"sort"
	"strings"
	"time"
)

// 所有時間欄位以 Unix 秒儲存、以 UTC RFC3339 序列化。
// 生成管線的曆元（cohort 起點）。
const Epoch int64 = 1735689600 // 2025-01-01T00:00:00Z

const DaySeconds int64 = 86400

// FormatTime 以 UTC RFC3339 輸出時間欄位。
func FormatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(time.RFC3339)
}

// ParseTime 解析 RFC3339 時間欄位為 Unix 秒。
func ParseTime(s string) (int64, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}

// FormatDate 以 YYYY-MM-DD 輸出日期欄位。
func FormatDate(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02")
}

// Player 一位被獲取的用戶
type Player struct {
	GameUserID       string
	InstallID        string
	InstallTime      int64 // unix 秒；落在設定的安裝窗內
	CampaignID       string
	AdsetID          string
	CreativeID       string
	Channel          string
	Country          string
	OS               string
	DeviceModel      string
	DeviceTier       string // low / mid / high
	ConsentTracking  bool
	ConsentMarketing bool
}

// Event 一筆遙測事件。
//
// Params 維持 `k=v;k=v` 的線上格式（相容性），內部以有序 KV 持有，
// 消費端請用 Get 取值而不是重新解析字串。
type Event struct {
	GameUserID string
	EventTime  int64
	EventName  string
	SessionID  string
	Params     Params
}

// KV 事件參數鍵值對
type KV struct {
	Key string
	Val string
}

// Params 有序鍵值參數集。序列化順序 = 加入順序（決定性輸出需要）。
type Params []KV

// Get 回傳第一個符合 key 的值。
func (p Params) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Val, true
		}
	}
	return "", false
}

// Encode 輸出 `k=v;k=v` 線上格式。
func (p Params) Encode() string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	for i, kv := range p {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(kv.Key)
		b.WriteByte('=')
		b.WriteString(kv.Val)
	}
	return b.String()
}

// ParseParams 解析 `k=v;k=v`。空字串回傳 nil；
// 缺 `=` 的片段視為 value 為空的 key（寬容解析，不報錯）。
func ParseParams(s string) Params {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make(Params, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		out = append(out, KV{Key: k, Val: v})
	}
	return out
}

// Payment 一筆（可能被退款的）交易。
// 退款交易淨收益為 0，但保留列做稽核計數。
type Payment struct {
	GameUserID     string
	TxnTime        int64
	AmountUSD      float64 // >= 0.99，除非退款
	ProductSKU     string
	PaymentChannel string
	IsRefund       bool
}

// UACost 單一 campaign 單日的投放成本列
type UACost struct {
	CampaignID  string
	Date        string // YYYY-MM-DD
	Spend       float64
	Impressions int
	Clicks      int
	Installs    int // spend / CPI 四捨五入
}

// LabelRow 每位用戶的 ground-truth 結果。
//
// 不變量（無雜訊注入時）：LTVD3 <= LTVD7 <= LTVD30 <= LTVD90。
type LabelRow struct {
	GameUserID      string
	InstallDate     string // YYYY-MM-DD
	UACost          float64
	LTVD3           float64
	LTVD7           float64
	LTVD30          float64
	LTVD90          float64
	PayerD3         bool
	PayerD7         bool
	PayerD30        bool
	PayerD90        bool
	ProfitD90       float64
	LateMonetizer   bool // 首購日 >= 8
	FalseEarlyPayer bool // D7 已付費但 D7 後再無收益
	ActiveDaysW7    int
	SessionsCntW7   int
	MaxLevelW7      int
}

// Dataset 一次生成的五張表。建構後不再變動（append-only 管線）。
type Dataset struct {
	Players  []Player   `json:"players"`
	Events   []Event    `json:"events"`
	Payments []Payment  `json:"payments"`
	UACosts  []UACost   `json:"ua_costs"`
	Labels   []LabelRow `json:"labels"`
}

// SortEventsStable 依 (user, time, name) 穩定排序事件，輸出前整理用。
func SortEventsStable(evts []Event) {
	sort.SliceStable(evts, func(i, j int) bool {
		if evts[i].GameUserID != evts[j].GameUserID {
			return evts[i].GameUserID < evts[j].GameUserID
		}
		if evts[i].EventTime != evts[j].EventTime {
			return evts[i].EventTime < evts[j].EventTime
		}
		return evts[i].EventName < evts[j].EventName
	})
}
