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
	"math"
	"testing"

	"github.com/khoIT/mlops-demo-sub003/spec"
	"github.com/khoIT/mlops-demo-sub003/table"
)

const day = table.DaySeconds

// fixtureDataset: one payer with controlled event/payment times and one
// quiet user, installed at the epoch.
func fixtureDataset() *table.Dataset {
	install := table.Epoch
	return &table.Dataset{
		Players: []table.Player{
			{GameUserID: "u1", InstallTime: install, OS: "ios", DeviceTier: "high"},
			{GameUserID: "u2", InstallTime: install + day, OS: "android", DeviceTier: "low"},
		},
		Events: []table.Event{
			{GameUserID: "u1", EventTime: install + 1*day, EventName: "session_start", SessionID: "s1"},
			{GameUserID: "u1", EventTime: install + 2*day, EventName: "session_start", SessionID: "s2"},
			{GameUserID: "u1", EventTime: install + 10*day, EventName: "session_start", SessionID: "s3"},
			{GameUserID: "u1", EventTime: install + 1*day, EventName: "quest_complete"},
			{GameUserID: "u1", EventTime: install + 5*day, EventName: "quest_complete"},
			{GameUserID: "u1", EventTime: install + 2*day, EventName: "pvp_battle",
				Params: table.Params{{Key: "result", Val: "win"}}},
			{GameUserID: "u1", EventTime: install + 3*day, EventName: "pvp_battle",
				Params: table.Params{{Key: "result", Val: "lose"}}},
			{GameUserID: "u1", EventTime: install + 4*day, EventName: "level_up",
				Params: table.Params{{Key: "level", Val: "9"}}},
		},
		Payments: []table.Payment{
			{GameUserID: "u1", TxnTime: install + 2*day, AmountUSD: 4.99},
			{GameUserID: "u1", TxnTime: install + 10*day, AmountUSD: 19.99},
			{GameUserID: "u1", TxnTime: install + 5*day, AmountUSD: 9.99, IsRefund: true},
		},
		Labels: []table.LabelRow{
			{GameUserID: "u1", InstallDate: "2025-01-01", UACost: 2.5, LTVD30: 24.98, LTVD90: 24.98},
			{GameUserID: "u2", InstallDate: "2025-01-02", LTVD30: 0, LTVD90: 0},
		},
	}
}

func TestBuildShapeAndJoin(t *testing.T) {
	m, err := Build(fixtureDataset(), spec.FeatureSetting{Windows: []int{3, 7, 14}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(m.Rows) != 2 {
		t.Fatalf("rows: got %d want 2", len(m.Rows))
	}
	want := len(windowedTemplates)*3 + len(scalarTemplates)
	if len(m.Columns) != want {
		t.Fatalf("columns: got %d want %d", len(m.Columns), want)
	}
	if len(m.LeakageRisk) != len(m.Columns) {
		t.Fatalf("leakage mask misaligned")
	}
	for i := range m.Rows {
		if len(m.Rows[i].Values) != len(m.Columns) {
			t.Fatalf("row %d values misaligned", i)
		}
	}
}

func TestBuildSkipsOrphanLabels(t *testing.T) {
	ds := fixtureDataset()
	ds.Labels = append(ds.Labels, table.LabelRow{GameUserID: "ghost"})
	m, err := Build(ds, spec.FeatureSetting{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(m.Rows) != 2 {
		t.Fatalf("join miss should be skipped: got %d rows", len(m.Rows))
	}
}

func TestWindowedValues(t *testing.T) {
	m, err := Build(fixtureDataset(), spec.FeatureSetting{Windows: []int{3, 7, 14}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	u1 := m.Rows[0]
	get := func(name string) float64 {
		idx := m.Col(name)
		if idx < 0 {
			t.Fatalf("column missing: %s", name)
		}
		return u1.Values[idx]
	}

	if got := get("sessions_cnt_3d"); got != 2 {
		t.Fatalf("sessions_cnt_3d: got %v want 2", got)
	}
	if got := get("sessions_cnt_14d"); got != 3 {
		t.Fatalf("sessions_cnt_14d: got %v want 3", got)
	}
	if got := get("quest_cnt_3d"); got != 1 {
		t.Fatalf("quest_cnt_3d: got %v want 1", got)
	}
	if got := get("quest_cnt_7d"); got != 2 {
		t.Fatalf("quest_cnt_7d: got %v want 2", got)
	}
	// refund excluded, day-10 payment outside the 7d window
	if got := get("payment_sum_7d"); math.Abs(got-4.99) > 1e-9 {
		t.Fatalf("payment_sum_7d: got %v want 4.99", got)
	}
	if got := get("payment_sum_14d"); math.Abs(got-24.98) > 1e-9 {
		t.Fatalf("payment_sum_14d: got %v want 24.98", got)
	}
	if got := get("payment_cnt_7d"); got != 1 {
		t.Fatalf("payment_cnt_7d: got %v want 1", got)
	}
	if got := get("pvp_win_rate_7d"); got != 0.5 {
		t.Fatalf("pvp_win_rate_7d: got %v want 0.5", got)
	}
}

func TestScalarValues(t *testing.T) {
	m, err := Build(fixtureDataset(), spec.FeatureSetting{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	u1, u2 := m.Rows[0], m.Rows[1]
	col := func(name string) int {
		idx := m.Col(name)
		if idx < 0 {
			t.Fatalf("column missing: %s", name)
		}
		return idx
	}

	if got := u1.Values[col("payer_flag")]; got != 1 {
		t.Fatalf("payer_flag u1: got %v want 1", got)
	}
	if got := u2.Values[col("payer_flag")]; got != 0 {
		t.Fatalf("payer_flag u2: got %v want 0", got)
	}
	if got := u1.Values[col("first_purchase_latency_days")]; got != 2 {
		t.Fatalf("first_purchase_latency_days u1: got %v want 2", got)
	}
	if got := u2.Values[col("first_purchase_latency_days")]; got != -1 {
		t.Fatalf("first_purchase_latency_days u2: got %v want -1", got)
	}
	if got := u1.Values[col("max_level")]; got != 9 {
		t.Fatalf("max_level u1: got %v want 9", got)
	}
	if got := u1.Values[col("os_ios")]; got != 1 {
		t.Fatalf("os_ios u1: got %v want 1", got)
	}
	if got := u1.Values[col("device_tier")]; got != 2 {
		t.Fatalf("device_tier u1: got %v want 2", got)
	}
	if got := u2.Values[col("device_tier")]; got != 0 {
		t.Fatalf("device_tier u2: got %v want 0", got)
	}
	if got := u1.Values[col("ua_cost")]; got != 2.5 {
		t.Fatalf("ua_cost u1: got %v want 2.5", got)
	}
}

func TestLeakageColumnsOptIn(t *testing.T) {
	ds := fixtureDataset()

	clean, err := Build(ds, spec.FeatureSetting{})
	if err != nil {
		t.Fatalf("Build clean: %v", err)
	}
	if clean.Col("ltv_d30_leak") != -1 || clean.Col("future_payment_d8_30") != -1 {
		t.Fatalf("leakage columns present without opt-in")
	}
	for _, risk := range clean.LeakageRisk {
		if risk {
			t.Fatalf("clean matrix flagged leakage risk")
		}
	}

	leaky, err := Build(ds, spec.FeatureSetting{IncludeLeakage: true})
	if err != nil {
		t.Fatalf("Build leaky: %v", err)
	}
	idx := leaky.Col("ltv_d30_leak")
	if idx < 0 {
		t.Fatalf("ltv_d30_leak missing with opt-in")
	}
	if !leaky.LeakageRisk[idx] {
		t.Fatalf("ltv_d30_leak not flagged as risk")
	}
	if got := leaky.Rows[0].Values[idx]; got != 24.98 {
		t.Fatalf("ltv_d30_leak: got %v want 24.98", got)
	}
	// day-10 payment falls inside the 8-30d future window
	fidx := leaky.Col("future_payment_d8_30")
	if got := leaky.Rows[0].Values[fidx]; got != 19.99 {
		t.Fatalf("future_payment_d8_30: got %v want 19.99", got)
	}
}

func TestSelectTemplatesUnknown(t *testing.T) {
	if _, err := Build(fixtureDataset(), spec.FeatureSetting{Templates: []string{"no_such"}}); err == nil {
		t.Fatalf("expected error for unknown template")
	}
}

func TestBadWindowRejected(t *testing.T) {
	if _, err := Build(fixtureDataset(), spec.FeatureSetting{Windows: []int{0}}); err == nil {
		t.Fatalf("expected error for zero window")
	}
}

func TestTargetVectors(t *testing.T) {
	m, err := Build(fixtureDataset(), spec.FeatureSetting{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	y30 := m.Target(false)
	y90 := m.Target(true)
	if y30[0] != 24.98 || y90[0] != 24.98 {
		t.Fatalf("u1 target mismatch: %v %v", y30[0], y90[0])
	}
	if y30[1] != 0 {
		t.Fatalf("u2 target mismatch: %v", y30[1])
	}
}
