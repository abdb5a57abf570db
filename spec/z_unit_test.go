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

package spec

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestPresetsAreValid(t *testing.T) {
	for _, gs := range []*GenSetting{Baseline(), HeavyTailStress()} {
		if err := gs.Init(); err != nil {
			t.Fatalf("preset %s: %v", gs.Name, err)
		}
	}
	for _, ts := range []*TrainSetting{DefaultTrain(), ForestTrain()} {
		if err := ts.Init(); err != nil {
			t.Fatalf("train preset %s: %v", ts.Model, err)
		}
	}
}

func TestGenSettingRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*GenSetting)
	}{
		{"negative cohort", func(gs *GenSetting) { gs.Population.Cohort = -1 }},
		{"zero install window", func(gs *GenSetting) { gs.Population.InstallWindowDays = 0 }},
		{"bad cohort mode", func(gs *GenSetting) { gs.Population.CohortMode = "wave" }},
		{"payer rate above one", func(gs *GenSetting) { gs.Monetization.PayerRate = 1.5 }},
		{"unknown revenue dist", func(gs *GenSetting) { gs.Monetization.RevenueDist = "gamma" }},
		{"empty price tiers", func(gs *GenSetting) { gs.Monetization.PriceTiers = nil }},
		{"tier below floor", func(gs *GenSetting) { gs.Monetization.PriceTiers = []float64{0.49} }},
		{"zero avg txn", func(gs *GenSetting) { gs.Monetization.AvgTxnPerPayer = 0 }},
		{"correlation above one", func(gs *GenSetting) { gs.Behavior.CorrelationStrength = 2 }},
		{"zero sessions", func(gs *GenSetting) { gs.Behavior.SessionsPerDay = 0 }},
		{"label noise above one", func(gs *GenSetting) { gs.Noise.LabelNoisePct = 1.2 }},
		{"negative missing pct", func(gs *GenSetting) { gs.Noise.MissingFeaturePct = -0.1 }},
		{"negative event cap", func(gs *GenSetting) { gs.Simulation.MaxEventsPerUser = -1 }},
	}
	for _, tc := range cases {
		gs := Baseline()
		tc.mutate(gs)
		if err := gs.Init(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestTrainSettingRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*TrainSetting)
	}{
		{"unknown model", func(ts *TrainSetting) { ts.Model = "svm" }},
		{"unknown target", func(ts *TrainSetting) { ts.Tgt = "ltv180" }},
		{"unknown split", func(ts *TrainSetting) { ts.Split = "stratified" }},
		{"zero trees", func(ts *TrainSetting) { ts.Trees = 0 }},
		{"zero depth", func(ts *TrainSetting) { ts.Depth = 0 }},
		{"zero min leaf", func(ts *TrainSetting) { ts.MinLeaf = 0 }},
		{"zero learning rate", func(ts *TrainSetting) { ts.LearningRate = 0 }},
	}
	for _, tc := range cases {
		ts := DefaultTrain()
		tc.mutate(ts)
		if err := ts.Init(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}

	// linear 專屬欄位只在 linear 模型上驗證
	lin := DefaultTrain()
	lin.Model = ModelLinear
	lin.Epochs = 0
	if err := lin.Init(); err == nil {
		t.Fatalf("linear without epochs accepted")
	}
	lin = DefaultTrain()
	lin.Model = ModelLinear
	lin.LearnStep = 0
	if err := lin.Init(); err == nil {
		t.Fatalf("linear without learn step accepted")
	}
	dummy := DefaultTrain()
	dummy.Model = ModelDummy
	dummy.Trees = 0
	dummy.LearningRate = 0
	if err := dummy.Init(); err != nil {
		t.Fatalf("dummy should skip tree hyperparams: %v", err)
	}
}

func TestGetGenSettingByYAML(t *testing.T) {
	doc := `
name: mini
population:
  cohort: 100
  install_window_days: 7
  cohort_mode: uniform
monetization:
  payer_rate: 0.1
  revenue_dist: lognormal
  avg_txn_per_payer: 3
  price_tiers: [0.99, 4.99]
behavior:
  sessions_per_day: 2
  correlation_strength: 0.5
simulation:
  max_events_per_user: 100
  seed: 7
`
	gs, err := GetGenSettingByYAML([]byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if gs.Name != "mini" || gs.Population.Cohort != 100 || gs.Simulation.Seed != 7 {
		t.Fatalf("fields: %+v", gs)
	}
	if _, err := GetGenSettingByYAML([]byte("\tname: tab-indent")); err == nil {
		t.Fatalf("malformed yaml accepted")
	}
	if _, err := GetGenSettingByYAML([]byte("name: bad\npopulation:\n  cohort: -5")); err == nil {
		t.Fatalf("invalid setting accepted")
	}
}

func TestGetGenSettingByJSON(t *testing.T) {
	doc := `{
  "name": "mini-json",
  "population": {"cohort": 50, "install_window_days": 3, "cohort_mode": "campaign"},
  "monetization": {"payer_rate": 0.05, "revenue_dist": "pareto", "avg_txn_per_payer": 2, "price_tiers": [0.99]},
  "behavior": {"sessions_per_day": 1.5, "correlation_strength": 0.3},
  "simulation": {"max_events_per_user": 50, "seed": 1}
}`
	gs, err := GetGenSettingByJSON([]byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if gs.Name != "mini-json" || gs.Population.CohortMode != CohortCampaign {
		t.Fatalf("fields: %+v", gs)
	}
	if _, err := GetGenSettingByJSON([]byte("{broken")); err == nil {
		t.Fatalf("malformed json accepted")
	}
}

const validDoc = `
name: %s
population:
  cohort: 10
  install_window_days: 7
  cohort_mode: uniform
monetization:
  payer_rate: 0.1
  revenue_dist: uniform
  avg_txn_per_payer: 1
  price_tiers: [0.99]
behavior:
  sessions_per_day: 1
  correlation_strength: 0
simulation:
  max_events_per_user: 10
  seed: 1
`

func doc(name string) []byte {
	return []byte(strings.Replace(validDoc, "%s", name, 1))
}

func TestLoadGenSettings(t *testing.T) {
	src := fstest.MapFS{
		"a.yaml":        &fstest.MapFile{Data: doc("alpha")},
		"sub/b.yml":     &fstest.MapFile{Data: doc("beta")},
		"notes/read.md": &fstest.MapFile{Data: []byte("ignored")},
	}
	got, err := LoadGenSettings(src)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got["alpha"] == nil || got["beta"] == nil {
		t.Fatalf("presets: %v", got)
	}
}

func TestLoadGenSettingsFailFast(t *testing.T) {
	dup := fstest.MapFS{
		"a.yaml": &fstest.MapFile{Data: doc("same")},
		"b.yaml": &fstest.MapFile{Data: doc("same")},
	}
	if _, err := LoadGenSettings(dup); err == nil {
		t.Fatalf("duplicate names accepted")
	}
	noName := fstest.MapFS{
		"a.yaml": &fstest.MapFile{Data: doc("")},
	}
	if _, err := LoadGenSettings(noName); err == nil {
		t.Fatalf("empty name accepted")
	}
	broken := fstest.MapFS{
		"a.yaml": &fstest.MapFile{Data: doc("fine")},
		"b.yaml": &fstest.MapFile{Data: []byte("name: bad\npopulation: {cohort: -1}")},
	}
	if _, err := LoadGenSettings(broken); err == nil {
		t.Fatalf("broken file accepted")
	}
}
