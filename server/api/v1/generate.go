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

package v1

import (
	"bytes"
	"encoding/json"
	"net/http"

	ltvlab "github.com/khoIT/mlops-demo-sub003"
	"github.com/khoIT/mlops-demo-sub003/errs"
	"github.com/khoIT/mlops-demo-sub003/gen"
	"github.com/khoIT/mlops-demo-sub003/sdk/core"
	"github.com/khoIT/mlops-demo-sub003/server/httperr"
	"github.com/khoIT/mlops-demo-sub003/spec"
	"github.com/khoIT/mlops-demo-sub003/table"
)

type GenHandler struct {
	Lab *ltvlab.Ltvlab
}

func NewGenHandler(lab *ltvlab.Ltvlab) (*GenHandler, error) {
	if lab == nil {
		return nil, errs.NewFatal("ltvlab is required")
	}
	return &GenHandler{Lab: lab}, nil
}

// Generate 生成五張表並以 CSV 文本回傳（dashboard 的上游資料來源）。
//
// 請求可帶 preset 名稱（走已載入的設定）或整份 setting（inline 覆寫）；
// seed 帶了就蓋過 preset 內的值。
func (gh *GenHandler) Generate(w http.ResponseWriter, q *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type GenRequestBody struct {
		Preset  string           `json:"preset,omitempty"`
		Setting *spec.GenSetting `json:"setting,omitempty"`
		Seed    *int64           `json:"seed,omitempty"`
	}
	type GenResponse struct {
		Report   *gen.Report `json:"report"`
		Players  string      `json:"players"`
		Events   string      `json:"events"`
		Payments string      `json:"payments"`
		UACosts  string      `json:"uaCosts"`
		Labels   string      `json:"labels"`
	}
	// ---
	if q.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req := new(GenRequestBody)
	if err := json.NewDecoder(q.Body).Decode(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var gs *spec.GenSetting
	switch {
	case req.Setting != nil:
		gs = req.Setting
		if err := gs.Init(); err != nil {
			httperr.Errs(w, err)
			return
		}
	case req.Preset != "":
		preset, ok := gh.Lab.Setting(req.Preset)
		if !ok {
			httperr.Errs(w, errs.NewWarn("preset not exist: "+req.Preset))
			return
		}
		cp := *preset
		gs = &cp
	default:
		httperr.Errs(w, errs.NewWarn("preset or setting is required"))
		return
	}
	if req.Seed != nil {
		gs.Simulation.Seed = *req.Seed
	}

	g, err := gen.New(gs, core.Default())
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	ds, report, err := g.Generate(q.Context())
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	resp := &GenResponse{Report: report}
	if resp.Players, err = csvText(func(b *bytes.Buffer) error { return table.WritePlayersCSV(b, ds.Players) }); err != nil {
		httperr.Errs(w, err)
		return
	}
	if resp.Events, err = csvText(func(b *bytes.Buffer) error { return table.WriteEventsCSV(b, ds.Events) }); err != nil {
		httperr.Errs(w, err)
		return
	}
	if resp.Payments, err = csvText(func(b *bytes.Buffer) error { return table.WritePaymentsCSV(b, ds.Payments) }); err != nil {
		httperr.Errs(w, err)
		return
	}
	if resp.UACosts, err = csvText(func(b *bytes.Buffer) error { return table.WriteUACostsCSV(b, ds.UACosts) }); err != nil {
		httperr.Errs(w, err)
		return
	}
	if resp.Labels, err = csvText(func(b *bytes.Buffer) error { return table.WriteLabelsCSV(b, ds.Labels) }); err != nil {
		httperr.Errs(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func csvText(write func(*bytes.Buffer) error) (string, error) {
	var b bytes.Buffer
	if err := write(&b); err != nil {
		return "", err
	}
	return b.String(), nil
}
