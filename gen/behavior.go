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
	"strconv"

	"github.com/khoIT/mlops-demo-sub003/table"
)

// simRetention 逐日模擬最多 30 天的留存過程。
//
// 每日續留機率 = 類別基礎留存 × 指數衰減（受設定與參與度調整）
// + hazard 項（早期缺席後回流會降低後續流失）+ 小抖動。
// 安裝日（day 0）必定活躍。
func (g *Generator) simRetention(u *userState) {
	c := g.core
	u.activeDays = append(u.activeDays, 0)

	decay := u.arch.RetentionDecay * (1 + g.gs.Behavior.EngagementDecay) * (1.2 - 0.4*u.engScore)
	absence := 0   // 連續缺席天數
	returned := false // 是否發生過「缺席後回流」

	for day := 1; day < retentionDays; day++ {
		p := u.arch.RetentionBase * math.Exp(-decay*float64(day))
		if absence >= 2 && day <= 12 {
			// 早期缺席：給一個與參與度成正比的回流機會
			p += 0.12 * u.engScore
		}
		if returned {
			// 回流過的用戶後續流失風險下降
			p *= 1.08
		}
		p += g.gs.Behavior.Volatility * 0.05 * c.Normal()
		p = clampF(p, 0.02, 0.98)

		if c.Float64() < p {
			if absence >= 2 {
				returned = true
			}
			absence = 0
			u.activeDays = append(u.activeDays, day)
		} else {
			absence++
		}
	}
}

// simSessions 為每個活躍日產生 1–6 個 session 與其事件。
//
// session_start / session_end 永遠成對送出且「不受」個人事件上限管制
// （下游特徵計算依賴它們）；語意事件才扣 eventBudget。
func (g *Generator) simSessions(u *userState, ds *table.Dataset) {
	c := g.core
	spd := g.gs.Behavior.SessionsPerDay
	// 參與度最高與最低的用戶 session 數差距約 4.7 倍
	factor := (0.4 + 1.48*u.engScore) / 1.14

	sessionSeq := 0
	for _, day := range u.activeDays {
		dayStart := u.installTime + int64(day)*table.DaySeconds
		count := clampInt(int(spd*factor*(0.75+0.5*c.Float64())+0.5), 1, 6)

		for s := 0; s < count; s++ {
			sessionSeq++
			sid := fmt.Sprintf("%s-s%04d", u.id, sessionSeq)
			start := dayStart + int64(c.IntRange(0, int(table.DaySeconds)-3700))
			dur := int64(c.IntRange(120, 3600))

			ds.Events = append(ds.Events, table.Event{
				GameUserID: u.id, EventTime: start, EventName: "session_start",
				SessionID: sid,
				Params:    table.Params{{Key: "day", Val: strconv.Itoa(day)}},
			})

			g.emitSemanticEvents(u, ds, sid, start, dur)

			ds.Events = append(ds.Events, table.Event{
				GameUserID: u.id, EventTime: start + dur, EventName: "session_end",
				SessionID: sid,
				Params:    table.Params{{Key: "dur_s", Val: strconv.FormatInt(dur, 10)}},
			})
			if day < 7 {
				u.sessionsW7++
			}
			if start+dur > u.lastLoginAt {
				u.lastLoginAt = start + dur
			}
		}
		if day < 7 {
			u.activeW7++
		}
		if day < 7 {
			u.maxLevelW7 = u.level
		}
	}
}

// emitSemanticEvents 在一個 session 內產生語意遊戲事件（受上限管制）。
func (g *Generator) emitSemanticEvents(u *userState, ds *table.Dataset, sid string, start, dur int64) {
	c := g.core
	want := c.IntRange(1, 2+int(6*u.engScore))

	for e := 0; e < want; e++ {
		if u.eventBudget <= 0 {
			return
		}
		u.eventBudget--
		offset := int64(float64(dur) * float64(e+1) / float64(want+1))
		at := start + offset

		// 升級優先於一般事件：有機會升級時送 level_up
		if u.level < u.arch.LevelMax && c.Bernoulli(0.25*g.gs.Behavior.ProgressionSpeed*(0.5+u.engScore)) {
			u.level++
			ds.Events = append(ds.Events, table.Event{
				GameUserID: u.id, EventTime: at, EventName: "level_up", SessionID: sid,
				Params: table.Params{{Key: "level", Val: strconv.Itoa(u.level)}},
			})
			continue
		}

		name := semanticEvents[c.IntN(len(semanticEvents))]
		ds.Events = append(ds.Events, table.Event{
			GameUserID: u.id, EventTime: at, EventName: name, SessionID: sid,
			Params: g.eventParams(u, name),
		})
	}
}

// eventParams 依事件類型產生合成參數（`k=v;k=v` 線上格式的內部版）。
func (g *Generator) eventParams(u *userState, name string) table.Params {
	c := g.core
	switch name {
	case "quest_complete":
		return table.Params{
			{Key: "quest_id", Val: "q" + strconv.Itoa(c.IntRange(1, 120))},
			{Key: "reward", Val: strconv.Itoa(c.IntRange(10, 500))},
		}
	case "pvp_battle":
		result := "lose"
		if c.Bernoulli(0.35 + 0.3*u.engScore) {
			result = "win"
		}
		return table.Params{
			{Key: "result", Val: result},
			{Key: "rating", Val: strconv.Itoa(900 + 40*u.level + c.IntRange(-80, 80))},
		}
	case "loot_open":
		rarity := lootRarity(c.Float64())
		return table.Params{
			{Key: "box", Val: "b" + strconv.Itoa(c.IntRange(1, 8))},
			{Key: "rarity", Val: rarity},
		}
	case "chat_message":
		return table.Params{{Key: "len", Val: strconv.Itoa(c.IntRange(1, 140))}}
	case "guild_activity":
		return table.Params{{Key: "action", Val: guildAction(c.Float64())}}
	case "dungeon_run":
		return table.Params{
			{Key: "dungeon_id", Val: "d" + strconv.Itoa(c.IntRange(1, 25))},
			{Key: "depth", Val: strconv.Itoa(clampInt(u.level/3+c.IntRange(0, 4), 1, 30))},
		}
	}
	return nil
}

func lootRarity(u float64) string {
	switch {
	case u < 0.6:
		return "common"
	case u < 0.85:
		return "rare"
	case u < 0.97:
		return "epic"
	default:
		return "legendary"
	}
}

func guildAction(u float64) string {
	switch {
	case u < 0.5:
		return "donate"
	case u < 0.8:
		return "raid"
	default:
		return "promote"
	}
}
