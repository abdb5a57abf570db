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

// Package ltvlab 提供 pLTV 實驗引擎的「組裝入口（assembler）」與「運行入口」。
//
// Ltvlab 把兩個必需的地基組裝在一起，並提供建立 Pipeline 的入口：
//  1. Preset 目錄：以 fs.FS 注入的生成設定檔來源（YAML/JSON），以 Name 當 key。
//  2. CoreFactory：亂數核心工廠（PRNG factory），保證可重現（reproducible）。
//
// 設計重點：
//   - Ltvlab 本身不綁定任何「檔案路徑」概念：設定檔來源一律以 fs.FS 的形式注入
//     （go:embed、os.DirFS 都可以）。
//   - 整條管線（生成 → 特徵 → 訓練 → 模擬）的隨機性都來自同一個 factory，
//     seed 決定一切。
//
// 典型使用情境：
//   - 後端服務（HTTP）：由 Ltvlab 建立 Pipeline 產出資料集與模型結果。
//   - 批次實驗（cmd/run）：同一份 preset 跑多模型比較。
package ltvlab

import (
	"crypto/rand"
	"math"
	"math/big"
	"sort"

	"io/fs"

	"github.com/khoIT/mlops-demo-sub003/errs"
	"github.com/khoIT/mlops-demo-sub003/sdk/core"
	"github.com/khoIT/mlops-demo-sub003/spec"
)

// Configs 用來把一或多個設定檔來源（fs.FS）打包成 New() 需要的參數。
func Configs(cfgs ...fs.FS) []fs.FS {
	return cfgs
}

// Ltvlab 是組裝器：持有 preset 目錄與 RNG 工廠。
//
// 使用流程分成兩階段：
//   - 組裝階段：New() 載入全部設定檔來源，fail-fast 檢查與跨來源重名檢查。
//   - 執行階段：依 preset 名稱產生 Pipeline，並在 Pipeline 上執行 Run。
type Ltvlab struct {
	presets map[string]*spec.GenSetting
	cf      core.PRNGFactory
	sm      *seedMaker
}

// New 建立一個 Ltvlab instance。
//
// 參數要求（是合約的一部分）：
//   - cf 不能為 nil：沒有 RNG 工廠就無法建立可重現的核心。
//   - cfgs 至少一個：沒有設定檔來源就沒有 preset 可跑。
func New(cf core.PRNGFactory, cfgs []fs.FS) (*Ltvlab, error) {
	if cf == nil {
		return nil, errs.NewFatal("core factory required")
	}
	if len(cfgs) == 0 {
		return nil, errs.NewFatal("configs required")
	}
	merged := map[string]*spec.GenSetting{}
	for _, src := range cfgs {
		m, err := spec.LoadGenSettings(src)
		if err != nil {
			return nil, err
		}
		for name, gs := range m {
			if _, dup := merged[name]; dup {
				return nil, errs.InvalidConfigf("duplicated preset name across sources: %q", name)
			}
			merged[name] = gs
		}
	}
	if len(merged) == 0 {
		return nil, errs.NewFatal("no config files found")
	}

	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return nil, err
	}
	return &Ltvlab{
		presets: merged,
		cf:      cf,
		sm:      newSeedMaker(seed.Int64()),
	}, nil
}

// Presets 回傳全部 preset 名稱（排序後，determinism）。
func (l *Ltvlab) Presets() []string {
	names := make([]string, 0, len(l.presets))
	for name := range l.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Setting 依名稱取 preset。
func (l *Ltvlab) Setting(name string) (*spec.GenSetting, bool) {
	gs, ok := l.presets[name]
	return gs, ok
}

// NextSeed 從內部種子生成器取一個新 seed（併發安全）。
func (l *Ltvlab) NextSeed() int64 {
	return l.sm.next()
}

// NewPipeline 依 preset 名稱建立 Pipeline，生成 seed 以 preset 內的
// simulation.seed 為準（可重現的預設路徑）。
func (l *Ltvlab) NewPipeline(preset string, ts *spec.TrainSetting) (*Pipeline, error) {
	gs, ok := l.presets[preset]
	if !ok {
		return nil, errs.NewWarn("preset not exist: " + preset)
	}
	return newPipeline(gs, ts, l.cf)
}

// NewPipelineByYAML 讓呼叫端直接帶一份設定（例如 HTTP request body）。
func (l *Ltvlab) NewPipelineByYAML(raw []byte, ts *spec.TrainSetting) (*Pipeline, error) {
	gs, err := spec.GetGenSettingByYAML(raw)
	if err != nil {
		return nil, err
	}
	return newPipeline(gs, ts, l.cf)
}

// NewPipelineByJSON 同上，JSON 版。
func (l *Ltvlab) NewPipelineByJSON(raw []byte, ts *spec.TrainSetting) (*Pipeline, error) {
	gs, err := spec.GetGenSettingByJSON(raw)
	if err != nil {
		return nil, err
	}
	return newPipeline(gs, ts, l.cf)
}
