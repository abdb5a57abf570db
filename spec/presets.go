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

// Baseline 標準組態：中等規模、中度耦合、無雜訊注入。
//
// preset 是「完整實例」：修改時請複製整份再改，不要做部分覆寫。
func Baseline() *GenSetting {
	return &GenSetting{
		Name: "baseline",
		Population: PopulationSetting{
			Cohort:            2000,
			InstallWindowDays: 30,
			CohortMode:        CohortUniform,
			ReturningRate:     0.05,
			GeoMix:            true,
			DeviceMix:         true,
		},
		Monetization: MonetizationSetting{
			PayerRate:      0.08,
			RevenueDist:    DistLogNormal,
			WhaleShare:     0.3,
			GiniTarget:     0.75,
			HeavyTail:      0.5,
			AvgTxnPerPayer: 4,
			PurchaseDecay:  0.12,
			Burst:          false,
			PriceTiers:     []float64{0.99, 4.99, 9.99, 19.99, 49.99, 99.99},
		},
		Behavior: BehaviorSetting{
			SessionsPerDay:      2.5,
			ProgressionSpeed:    1.0,
			EngagementDecay:     0.08,
			Volatility:          0.2,
			CorrelationStrength: 0.6,
		},
		Noise: NoiseSetting{},
		Simulation: SimulationSetting{
			MaxEventsPerUser: 400,
			Seed:             42,
		},
	}
}

// HeavyTailStress 壓力組態：重尾變現 + 全部雜訊開關打開。
// 用來驗證下游指標在髒資料下的退化行為。
func HeavyTailStress() *GenSetting {
	return &GenSetting{
		Name: "heavytail-stress",
		Population: PopulationSetting{
			Cohort:            5000,
			InstallWindowDays: 30,
			CohortMode:        CohortCampaign,
			ReturningRate:     0.1,
			GeoMix:            true,
			DeviceMix:         true,
		},
		Monetization: MonetizationSetting{
			PayerRate:      0.05,
			RevenueDist:    DistPareto,
			WhaleShare:     0.6,
			GiniTarget:     0.9,
			HeavyTail:      0.9,
			AvgTxnPerPayer: 6,
			PurchaseDecay:  0.08,
			Burst:          true,
			PriceTiers:     []float64{0.99, 4.99, 9.99, 19.99, 49.99, 99.99, 199.99},
		},
		Behavior: BehaviorSetting{
			SessionsPerDay:      3,
			ProgressionSpeed:    1.2,
			EngagementDecay:     0.1,
			Volatility:          0.35,
			CorrelationStrength: 0.8,
		},
		Noise: NoiseSetting{
			LabelNoisePct:     0.1,
			MissingFeaturePct: 0.05,
			DelayedRevenue:    true,
			LeakageInjection:  true,
			PayerRateShift:    true,
			EconomyShift:      true,
		},
		Simulation: SimulationSetting{
			MaxEventsPerUser: 600,
			Seed:             1042,
		},
	}
}

// DefaultTrain GBT 慣用超參數。
func DefaultTrain() *TrainSetting {
	return &TrainSetting{
		Model: ModelGBT,
		Tgt:   TargetLTV30,
		Split: SplitRandom,
		Seed:  42,
		Features: FeatureSetting{
			Templates:      nil, // 全部
			Windows:        []int{3, 7, 14},
			IncludeLeakage: false,
		},
		Trees:        100,
		Depth:        4,
		MinLeaf:      10,
		LearningRate: 0.08,
		Epochs:       200,
		LearnStep:    0.05,
	}
}

// ForestTrain 隨機森林慣用超參數（較淺、葉節點較小）。
func ForestTrain() *TrainSetting {
	ts := DefaultTrain()
	ts.Model = ModelForest
	ts.Trees = 60
	ts.Depth = 5
	ts.MinLeaf = 5
	return ts
}
