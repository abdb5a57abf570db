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

package ltvlab

import (
	"context"
	"io"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/khoIT/mlops-demo-sub003/errs"
	"github.com/khoIT/mlops-demo-sub003/features"
	"github.com/khoIT/mlops-demo-sub003/gen"
	"github.com/khoIT/mlops-demo-sub003/model"
	"github.com/khoIT/mlops-demo-sub003/sdk/core"
	"github.com/khoIT/mlops-demo-sub003/spec"
	"github.com/khoIT/mlops-demo-sub003/table"
)

// Pipeline 一次完整實驗：生成 → 特徵 → 訓練 → 評估。
//
// 資料流嚴格單向，每一段都是「輸入 + RNG 狀態」的純轉換，
// 不存在回饋迴路；產出交給下游後一律唯讀。
type Pipeline struct {
	gs *spec.GenSetting
	ts *spec.TrainSetting
	cf core.PRNGFactory

	// 生成後保留，讓同一份資料集可重複訓練不同模型
	ds     *table.Dataset
	report *gen.Report
}

// RunResult 一次 Run 的完整產出
type RunResult struct {
	Dataset   *table.Dataset `json:"-"`
	GenReport *gen.Report    `json:"GenReport"`
	Model     *model.Result  `json:"Model"`
	Used      time.Duration  `json:"Used"`
}

func newPipeline(gs *spec.GenSetting, ts *spec.TrainSetting, cf core.PRNGFactory) (*Pipeline, error) {
	if ts == nil {
		return nil, errs.NewFatal("train setting required")
	}
	if err := ts.Init(); err != nil {
		return nil, err
	}
	return &Pipeline{gs: gs, ts: ts, cf: cf}, nil
}

// Run 執行完整管線並回傳結果與用時。
//
// 資料集只生成一次：重複呼叫 Run（例如換模型比較）會重用第一次的產出，
// 想換母體請建新的 Pipeline。
func (p *Pipeline) Run(ctx context.Context, showpb bool) (*RunResult, error) {
	start := time.Now()
	if p.ds == nil {
		if err := p.generate(ctx, showpb); err != nil {
			return nil, err
		}
	}

	matrix, err := features.Build(p.ds, p.ts.Features)
	if err != nil {
		return nil, err
	}
	result, err := model.Train(ctx, matrix, p.ts, p.cf)
	if err != nil {
		return nil, err
	}

	return &RunResult{
		Dataset:   p.ds,
		GenReport: p.report,
		Model:     result,
		Used:      time.Since(start),
	}, nil
}

// RunModels 在同一份生成資料集上訓練多個模型設定（模型比較的慣用入口）。
func (p *Pipeline) RunModels(ctx context.Context, showpb bool, tss ...*spec.TrainSetting) ([]*RunResult, error) {
	if len(tss) == 0 {
		return nil, errs.NewWarn("at least one train setting required")
	}
	out := make([]*RunResult, 0, len(tss))
	for _, ts := range tss {
		p.ts = ts
		r, err := p.Run(ctx, showpb)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Dataset 回傳已生成的資料集（尚未生成時為 nil）。
func (p *Pipeline) Dataset() *table.Dataset { return p.ds }

func (p *Pipeline) generate(ctx context.Context, showpb bool) error {
	g, err := gen.New(p.gs, p.cf)
	if err != nil {
		return err
	}
	bar := pb.StartNew(p.gs.Population.Cohort)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	g.Progress = func(done, total int) {
		bar.Increment()
	}
	ds, report, err := g.Generate(ctx)
	bar.Finish()
	if err != nil {
		return err
	}
	p.ds = ds
	p.report = report
	return nil
}
