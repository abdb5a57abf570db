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

import "github.com/khoIT/mlops-demo-sub003/errs"

// ModelKind 模型類型
type ModelKind string

const (
	ModelGBT    ModelKind = "gbt"
	ModelForest ModelKind = "forest"
	ModelLinear ModelKind = "linear"
	ModelDummy  ModelKind = "dummy"
)

// Target 迴歸目標
type Target string

const (
	TargetLTV30 Target = "ltv30"
	TargetLTV90 Target = "ltv90"
)

// SplitStrategy 訓練/測試切分策略
type SplitStrategy string

const (
	SplitRandom SplitStrategy = "random" // 帶 seed 的 Fisher–Yates 洗牌後切分
	SplitTime   SplitStrategy = "time"   // 依安裝時間排序後切分（forward-chaining）
)

// FeatureSetting 特徵矩陣建置設定
type FeatureSetting struct {
	Templates      []string `yaml:"templates"       json:"templates"`       // 啟用的特徵模板名稱；空 = 全部
	Windows        []int    `yaml:"windows"         json:"windows"`         // 視窗天數（僅套用於視窗型模板）
	IncludeLeakage bool     `yaml:"include_leakage" json:"include_leakage"` // 是否加入洩漏特徵
}

// TrainSetting 一次訓練所需的所有設定。
//
// 超參數全部列舉在這裡；preset 提供各模型的慣用值，
// GBT 與 forest 共用樹相關欄位（MinLeaf、Depth）。
type TrainSetting struct {
	Model ModelKind     `yaml:"model"  json:"model"`
	Tgt   Target        `yaml:"target" json:"target"`
	Split SplitStrategy `yaml:"split"  json:"split"`
	Seed  int64         `yaml:"seed"   json:"seed"`

	Features FeatureSetting `yaml:"features" json:"features"`

	Trees        int     `yaml:"trees"         json:"trees"`         // GBT: 80–120 / forest
	Depth        int     `yaml:"depth"         json:"depth"`         // GBT 4 / forest 5
	MinLeaf      int     `yaml:"min_leaf"      json:"min_leaf"`      // 葉節點最小樣本數
	LearningRate float64 `yaml:"learning_rate" json:"learning_rate"` // GBT 0.08
	Epochs       int     `yaml:"epochs"        json:"epochs"`        // linear: 200
	LearnStep    float64 `yaml:"learn_step"    json:"learn_step"`    // linear 的 GD 步長
}

// Init 執行基本檢查。
func (ts *TrainSetting) Init() error {
	switch ts.Model {
	case ModelGBT, ModelForest, ModelLinear, ModelDummy:
	default:
		return errs.InvalidConfigf("train: model unknown: %q", ts.Model)
	}
	switch ts.Tgt {
	case TargetLTV30, TargetLTV90:
	default:
		return errs.InvalidConfigf("train: target must be ltv30 or ltv90, got %q", ts.Tgt)
	}
	switch ts.Split {
	case SplitRandom, SplitTime:
	default:
		return errs.InvalidConfigf("train: split must be random or time, got %q", ts.Split)
	}
	if ts.Model == ModelGBT || ts.Model == ModelForest {
		if ts.Trees < 1 {
			return errs.InvalidConfigf("train: trees must >= 1, got %d", ts.Trees)
		}
		if ts.Depth < 1 {
			return errs.InvalidConfigf("train: depth must >= 1, got %d", ts.Depth)
		}
		if ts.MinLeaf < 1 {
			return errs.InvalidConfigf("train: min_leaf must >= 1, got %d", ts.MinLeaf)
		}
	}
	if ts.Model == ModelGBT && ts.LearningRate <= 0 {
		return errs.InvalidConfigf("train: learning_rate must > 0, got %v", ts.LearningRate)
	}
	if ts.Model == ModelLinear {
		if ts.Epochs < 1 {
			return errs.InvalidConfigf("train: epochs must >= 1, got %d", ts.Epochs)
		}
		if ts.LearnStep <= 0 {
			return errs.InvalidConfigf("train: learn_step must > 0, got %v", ts.LearnStep)
		}
	}
	return nil
}
