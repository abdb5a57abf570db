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

package features

import (
	"fmt"
	"strconv"

	"github.com/khoIT/mlops-demo-sub003/errs"
	"github.com/khoIT/mlops-demo-sub003/spec"
	"github.com/khoIT/mlops-demo-sub003/table"
)

// 視窗型模板：對每個設定視窗各展開一欄（欄名 = 模板_Nd）。
var windowedTemplates = []string{
	"sessions_cnt", "active_days", "payment_sum", "payment_cnt",
	"pvp_win_rate", "quest_cnt", "dungeon_cnt", "chat_cnt", "guild_cnt",
}

// 非視窗純量模板：每用戶各算一次。
// 純量的觀察點是 D7（付費旗標、首購延遲、等級），login gap 以 D14 為界。
var scalarTemplates = []string{
	"last_login_gap_days", "payer_flag", "first_purchase_latency_days",
	"max_level", "ua_cost", "device_tier", "os_ios",
}

// 洩漏模板：由預測點之後的資料計算，故意提供給洩漏偵測研究。
var leakageTemplates = []string{
	"future_payment_d8_30", "ltv_d30_leak",
}

// Build 依設定把五張表組成特徵矩陣。
//
// join 規則：labels 為主表，label 找不到對應 player 時安靜跳過
// （部分資料集下的預期 join miss，不是錯誤）。
func Build(ds *table.Dataset, fs spec.FeatureSetting) (*Matrix, error) {
	if ds == nil {
		return nil, errs.NewFatal("dataset required")
	}
	windows := fs.Windows
	if len(windows) == 0 {
		windows = []int{3, 7, 14}
	}
	for _, w := range windows {
		if w < 1 {
			return nil, errs.InvalidConfigf("features.windows entries must >= 1, got %d", w)
		}
	}

	wantWindowed, wantScalar, err := selectTemplates(fs.Templates)
	if err != nil {
		return nil, err
	}

	m := &Matrix{}
	for _, t := range wantWindowed {
		for _, w := range windows {
			m.Columns = append(m.Columns, fmt.Sprintf("%s_%dd", t, w))
			m.LeakageRisk = append(m.LeakageRisk, false)
		}
	}
	for _, t := range wantScalar {
		m.Columns = append(m.Columns, t)
		m.LeakageRisk = append(m.LeakageRisk, false)
	}
	if fs.IncludeLeakage {
		for _, t := range leakageTemplates {
			m.Columns = append(m.Columns, t)
			m.LeakageRisk = append(m.LeakageRisk, true)
		}
	}

	players := make(map[string]*table.Player, len(ds.Players))
	for i := range ds.Players {
		players[ds.Players[i].GameUserID] = &ds.Players[i]
	}
	eventsBy := make(map[string][]int, len(ds.Players))
	for i := range ds.Events {
		id := ds.Events[i].GameUserID
		eventsBy[id] = append(eventsBy[id], i)
	}
	paysBy := make(map[string][]int)
	for i := range ds.Payments {
		id := ds.Payments[i].GameUserID
		paysBy[id] = append(paysBy[id], i)
	}

	for li := range ds.Labels {
		lb := &ds.Labels[li]
		pl, ok := players[lb.GameUserID]
		if !ok {
			continue // join miss：預期情況，安靜跳過
		}
		row := Row{
			UserID:      lb.GameUserID,
			InstallTime: pl.InstallTime,
			InstallDate: lb.InstallDate,
			LTV30:       lb.LTVD30,
			LTV90:       lb.LTVD90,
			Values:      make([]float64, 0, len(m.Columns)),
		}

		evts := eventsBy[lb.GameUserID]
		pays := paysBy[lb.GameUserID]

		for _, t := range wantWindowed {
			for _, w := range windows {
				row.Values = append(row.Values, windowedValue(t, w, pl, ds, evts, pays))
			}
		}
		for _, t := range wantScalar {
			row.Values = append(row.Values, scalarValue(t, pl, lb, ds, evts, pays))
		}
		if fs.IncludeLeakage {
			row.Values = append(row.Values, futurePaySum(pl, ds, pays), lb.LTVD30)
		}
		m.Rows = append(m.Rows, row)
	}
	return m, nil
}

func selectTemplates(names []string) (windowed, scalar []string, err error) {
	if len(names) == 0 {
		return windowedTemplates, scalarTemplates, nil
	}
	for _, n := range names {
		switch {
		case contains(windowedTemplates, n):
			windowed = append(windowed, n)
		case contains(scalarTemplates, n):
			scalar = append(scalar, n)
		default:
			return nil, nil, errs.InvalidConfigf("features.templates unknown: %q", n)
		}
	}
	return windowed, scalar, nil
}

func contains(src []string, s string) bool {
	for _, v := range src {
		if v == s {
			return true
		}
	}
	return false
}

// inWindow 視窗判定：0 <= (ts − install) <= window 天。
func inWindow(ts, install int64, windowDays int) bool {
	d := ts - install
	return d >= 0 && d <= int64(windowDays)*table.DaySeconds
}

func windowedValue(tpl string, w int, pl *table.Player, ds *table.Dataset, evts, pays []int) float64 {
	switch tpl {
	case "sessions_cnt":
		seen := map[string]struct{}{}
		for _, i := range evts {
			e := &ds.Events[i]
			if e.EventName == "session_start" && inWindow(e.EventTime, pl.InstallTime, w) {
				seen[e.SessionID] = struct{}{}
			}
		}
		return float64(len(seen))
	case "active_days":
		seen := map[int64]struct{}{}
		for _, i := range evts {
			e := &ds.Events[i]
			if inWindow(e.EventTime, pl.InstallTime, w) {
				seen[(e.EventTime-pl.InstallTime)/table.DaySeconds] = struct{}{}
			}
		}
		return float64(len(seen))
	case "payment_sum":
		sum := 0.0
		for _, i := range pays {
			p := &ds.Payments[i]
			if !p.IsRefund && inWindow(p.TxnTime, pl.InstallTime, w) {
				sum += p.AmountUSD
			}
		}
		return sum
	case "payment_cnt":
		n := 0
		for _, i := range pays {
			p := &ds.Payments[i]
			if !p.IsRefund && inWindow(p.TxnTime, pl.InstallTime, w) {
				n++
			}
		}
		return float64(n)
	case "pvp_win_rate":
		var wins, battles float64
		for _, i := range evts {
			e := &ds.Events[i]
			if e.EventName != "pvp_battle" || !inWindow(e.EventTime, pl.InstallTime, w) {
				continue
			}
			battles++
			if r, ok := e.Params.Get("result"); ok && r == "win" {
				wins++
			}
		}
		if battles == 0 {
			return 0
		}
		return wins / battles
	case "quest_cnt":
		return eventCount(ds, evts, pl.InstallTime, w, "quest_complete")
	case "dungeon_cnt":
		return eventCount(ds, evts, pl.InstallTime, w, "dungeon_run")
	case "chat_cnt":
		return eventCount(ds, evts, pl.InstallTime, w, "chat_message")
	case "guild_cnt":
		return eventCount(ds, evts, pl.InstallTime, w, "guild_activity")
	}
	return 0
}

func eventCount(ds *table.Dataset, evts []int, install int64, w int, name string) float64 {
	n := 0
	for _, i := range evts {
		e := &ds.Events[i]
		if e.EventName == name && inWindow(e.EventTime, install, w) {
			n++
		}
	}
	return float64(n)
}

func scalarValue(tpl string, pl *table.Player, lb *table.LabelRow, ds *table.Dataset, evts, pays []int) float64 {
	switch tpl {
	case "last_login_gap_days":
		// 以 D14 為觀察界：界內最後一次活動距界線幾天
		var last int64 = pl.InstallTime
		for _, i := range evts {
			e := &ds.Events[i]
			if inWindow(e.EventTime, pl.InstallTime, 14) && e.EventTime > last {
				last = e.EventTime
			}
		}
		gap := float64(pl.InstallTime+14*table.DaySeconds-last) / float64(table.DaySeconds)
		if gap < 0 {
			return 0
		}
		return float64(int(gap))
	case "payer_flag":
		if firstPayDay(pl, ds, pays) >= 0 {
			return 1
		}
		return 0
	case "first_purchase_latency_days":
		d := firstPayDay(pl, ds, pays)
		if d < 0 {
			return -1
		}
		return float64(d)
	case "max_level":
		maxLv := 1.0
		for _, i := range evts {
			e := &ds.Events[i]
			if e.EventName != "level_up" || !inWindow(e.EventTime, pl.InstallTime, 7) {
				continue
			}
			if s, ok := e.Params.Get("level"); ok {
				if lv, err := strconv.Atoi(s); err == nil && float64(lv) > maxLv {
					maxLv = float64(lv)
				}
			}
		}
		return maxLv
	case "ua_cost":
		return lb.UACost
	case "device_tier":
		return deviceTierOrdinal(pl.DeviceTier)
	case "os_ios":
		if pl.OS == "ios" {
			return 1
		}
		return 0
	}
	return 0
}

// firstPayDay D7 內第一筆非退款交易的日 offset；沒有則 -1。
func firstPayDay(pl *table.Player, ds *table.Dataset, pays []int) int {
	first := -1
	for _, i := range pays {
		p := &ds.Payments[i]
		if p.IsRefund || !inWindow(p.TxnTime, pl.InstallTime, 7) {
			continue
		}
		d := int((p.TxnTime - pl.InstallTime) / table.DaySeconds)
		if first < 0 || d < first {
			first = d
		}
	}
	return first
}

// futurePaySum 洩漏特徵：第 8–30 天的付款總額（預測點之後的資料）。
func futurePaySum(pl *table.Player, ds *table.Dataset, pays []int) float64 {
	sum := 0.0
	lo := pl.InstallTime + 8*table.DaySeconds
	hi := pl.InstallTime + 30*table.DaySeconds
	for _, i := range pays {
		p := &ds.Payments[i]
		if !p.IsRefund && p.TxnTime >= lo && p.TxnTime < hi {
			sum += p.AmountUSD
		}
	}
	return sum
}

func deviceTierOrdinal(tier string) float64 {
	switch tier {
	case "mid":
		return 1
	case "high":
		return 2
	default:
		return 0
	}
}
