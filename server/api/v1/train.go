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
	"encoding/json"
	"net/http"

	ltvlab "github.com/khoIT/mlops-demo-sub003"
	"github.com/khoIT/mlops-demo-sub003/errs"
	"github.com/khoIT/mlops-demo-sub003/gen"
	"github.com/khoIT/mlops-demo-sub003/model"
	"github.com/khoIT/mlops-demo-sub003/server/httperr"
	"github.com/khoIT/mlops-demo-sub003/spec"
)

type TrainHandler struct {
	Lab *ltvlab.Ltvlab
}

func NewTrainHandler(lab *ltvlab.Ltvlab) (*TrainHandler, error) {
	if lab == nil {
		return nil, errs.NewFatal("ltvlab is required")
	}
	return &TrainHandler{Lab: lab}, nil
}

// Train 從 preset 起一條完整管線（生成 → 特徵 → 訓練 → 評估）。
// 訓練設定以 preset 慣用值為底，request 欄位逐項覆寫。
func (th *TrainHandler) Train(w http.ResponseWriter, q *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type TrainRequestBody struct {
		Preset string              `json:"preset"`
		Model  spec.ModelKind      `json:"model,omitempty"`
		Target spec.Target         `json:"target,omitempty"`
		Split  spec.SplitStrategy  `json:"split,omitempty"`
		Seed   *int64              `json:"seed,omitempty"`
		Feats  *spec.FeatureSetting `json:"features,omitempty"`
	}
	type TrainResponse struct {
		GenReport *gen.Report   `json:"gen_report"`
		Model     *model.Result `json:"model"`
		UsedMs    int64         `json:"used_ms"`
	}
	// ---
	if q.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req := new(TrainRequestBody)
	if err := json.NewDecoder(q.Body).Decode(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Preset == "" {
		httperr.Errs(w, errs.NewWarn("preset is required"))
		return
	}

	ts := spec.DefaultTrain()
	if req.Model != "" {
		ts.Model = req.Model
	}
	if req.Model == spec.ModelForest {
		ts = spec.ForestTrain()
	}
	if req.Target != "" {
		ts.Tgt = req.Target
	}
	if req.Split != "" {
		ts.Split = req.Split
	}
	if req.Seed != nil {
		ts.Seed = *req.Seed
	}
	if req.Feats != nil {
		ts.Features = *req.Feats
	}

	p, err := th.Lab.NewPipeline(req.Preset, ts)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	result, err := p.Run(q.Context(), false)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := &TrainResponse{
		GenReport: result.GenReport,
		Model:     result.Model,
		UsedMs:    result.Used.Milliseconds(),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
