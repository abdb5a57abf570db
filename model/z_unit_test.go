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

package model

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/khoIT/mlops-demo-sub003/features"
	"github.com/khoIT/mlops-demo-sub003/spec"
)

// mkMatrix builds a matrix where row i carries values[i] and the target
// is derived per row by ltv.
func mkMatrix(cols []string, values [][]float64, ltv func(i int) float64) *features.Matrix {
	m := &features.Matrix{
		Columns:     cols,
		LeakageRisk: make([]bool, len(cols)),
	}
	for i, v := range values {
		m.Rows = append(m.Rows, features.Row{
			UserID:      fmt.Sprintf("u%03d", i),
			InstallTime: int64(1000 * i),
			LTV30:       ltv(i),
			LTV90:       ltv(i) * 1.5,
			Values:      v,
		})
	}
	return m
}

func signalMatrix(n int) *features.Matrix {
	values := make([][]float64, n)
	for i := range values {
		values[i] = []float64{float64(i), float64((i * 37) % 100), 1}
	}
	return mkMatrix([]string{"spend_score", "noise", "constant"}, values, func(i int) float64 {
		return float64(i)
	})
}

func gbtSetting() *spec.TrainSetting {
	ts := spec.DefaultTrain()
	ts.Trees = 50
	return ts
}

func TestTrainRejectsTinyMatrix(t *testing.T) {
	m := signalMatrix(4)
	if _, err := Train(context.Background(), m, gbtSetting(), nil); err == nil {
		t.Fatalf("expected error for tiny matrix")
	}
}

func TestTrainRejectsBadSetting(t *testing.T) {
	ts := gbtSetting()
	ts.Model = "svm"
	if _, err := Train(context.Background(), signalMatrix(100), ts, nil); err == nil {
		t.Fatalf("expected error for unknown model")
	}
}

func TestSplitSizes(t *testing.T) {
	m := signalMatrix(100)
	res, err := Train(context.Background(), m, gbtSetting(), nil)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if len(res.Train) != 75 || len(res.Test) != 25 {
		t.Fatalf("split sizes: got %d/%d want 75/25", len(res.Train), len(res.Test))
	}
}

func TestTimeSplitOrdering(t *testing.T) {
	m := signalMatrix(100)
	ts := gbtSetting()
	ts.Split = spec.SplitTime
	res, err := Train(context.Background(), m, ts, nil)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	// UserID 編號 = 安裝順序：訓練段必須全部早於測試段
	maxTrain := ""
	for _, r := range res.Train {
		if r.UserID > maxTrain {
			maxTrain = r.UserID
		}
	}
	for _, r := range res.Test {
		if r.UserID <= maxTrain {
			t.Fatalf("time split leaked later install into train: %s <= %s", r.UserID, maxTrain)
		}
	}
}

func TestDummyBaselineFormula(t *testing.T) {
	values := [][]float64{
		{0, 0}, {1, 1}, {2.5, 1}, {0, 1}, {10, 1}, {0, 0},
		{4.99, 1}, {0, 0}, {3, 1}, {0, 0}, {7.5, 1}, {0, 0},
	}
	m := mkMatrix([]string{"payment_sum_7d", "payer_flag"}, values, func(i int) float64 {
		return values[i][0] * 4
	})
	ts := gbtSetting()
	ts.Model = spec.ModelDummy
	res, err := Train(context.Background(), m, ts, nil)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	check := func(rows []PredRow) {
		for _, r := range rows {
			var i int
			fmt.Sscanf(r.UserID, "u%d", &i)
			want := values[i][0] * 3.5
			if values[i][1] > 0 {
				want += 5
			}
			if math.Abs(r.Predicted-want) > 1e-12 {
				t.Fatalf("%s: got %v want %v", r.UserID, r.Predicted, want)
			}
		}
	}
	check(res.Train)
	check(res.Test)
	if res.LossTrace != nil || res.Importance != nil {
		t.Fatalf("dummy should carry no loss trace or importance")
	}
}

func TestGBTLearnsSignal(t *testing.T) {
	res, err := Train(context.Background(), signalMatrix(200), gbtSetting(), nil)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if len(res.LossTrace) != 50 {
		t.Fatalf("loss trace length: got %d want 50", len(res.LossTrace))
	}
	if res.LossTrace[len(res.LossTrace)-1] >= res.LossTrace[0] {
		t.Fatalf("training loss did not decrease: %v -> %v",
			res.LossTrace[0], res.LossTrace[len(res.LossTrace)-1])
	}
	if res.Report.Summary.Spearman < 0.8 {
		t.Fatalf("held-out rank correlation too weak: %v", res.Report.Summary.Spearman)
	}
	for _, r := range res.Test {
		if r.Predicted < 0 {
			t.Fatalf("prediction below zero after inverse transform: %v", r.Predicted)
		}
	}
}

func TestForestLearnsSignal(t *testing.T) {
	ts := spec.ForestTrain()
	ts.Trees = 30
	res, err := Train(context.Background(), signalMatrix(200), ts, nil)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if len(res.LossTrace) != 30 {
		t.Fatalf("loss trace length: got %d want 30", len(res.LossTrace))
	}
	if res.Report.Summary.Spearman < 0.8 {
		t.Fatalf("held-out rank correlation too weak: %v", res.Report.Summary.Spearman)
	}
}

func TestLinearLossDecreases(t *testing.T) {
	ts := gbtSetting()
	ts.Model = spec.ModelLinear
	res, err := Train(context.Background(), signalMatrix(200), ts, nil)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if len(res.LossTrace) == 0 {
		t.Fatalf("expected loss trace for linear trainer")
	}
	first := res.LossTrace[0]
	last := res.LossTrace[len(res.LossTrace)-1]
	if last >= first {
		t.Fatalf("GD loss did not decrease: %v -> %v", first, last)
	}
}

func TestTrainDeterminism(t *testing.T) {
	r1, err := Train(context.Background(), signalMatrix(120), gbtSetting(), nil)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	r2, err := Train(context.Background(), signalMatrix(120), gbtSetting(), nil)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if !reflect.DeepEqual(r1.Test, r2.Test) {
		t.Fatalf("same seed produced different held-out predictions")
	}
	if !reflect.DeepEqual(r1.Importance, r2.Importance) {
		t.Fatalf("same seed produced different importance ranking")
	}
}

func TestTrainCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Train(ctx, signalMatrix(120), gbtSetting(), nil); err == nil {
		t.Fatalf("expected error on canceled context")
	}
}

func TestLeakyColumnDominatesImportance(t *testing.T) {
	n := 200
	values := make([][]float64, n)
	ltv := func(i int) float64 { return float64((i*53)%97) * 1.7 }
	for i := range values {
		values[i] = []float64{float64(i % 7), float64(i % 11), ltv(i)}
	}
	m := mkMatrix([]string{"sessions_cnt_7d", "quest_cnt_7d", "ltv_d30_leak"}, values, ltv)
	m.LeakageRisk[2] = true

	res, err := Train(context.Background(), m, gbtSetting(), nil)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if res.Importance[0].Name != "ltv_d30_leak" {
		t.Fatalf("perfect predictor column not ranked first: %+v", res.Importance[0])
	}
	if res.Importance[0].Weight < 0.5 {
		t.Fatalf("leaky column weight too small: %v", res.Importance[0].Weight)
	}
}

func TestImportanceNormalized(t *testing.T) {
	res, err := Train(context.Background(), signalMatrix(150), gbtSetting(), nil)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	sum := 0.0
	for _, imp := range res.Importance {
		if imp.Weight < 0 {
			t.Fatalf("negative importance: %+v", imp)
		}
		sum += imp.Weight
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("importance weights not normalized: sum=%v", sum)
	}
	// spend_score 與目標同向
	for _, imp := range res.Importance {
		if imp.Name == "spend_score" && imp.Direction != 1 {
			t.Fatalf("expected positive direction for signal column, got %d", imp.Direction)
		}
	}
}

func TestSearchSplitStep(t *testing.T) {
	n := 20
	X := make([][]float64, n)
	y := make([]float64, n)
	rows := make([]int, n)
	for i := 0; i < n; i++ {
		X[i] = []float64{float64(i)}
		if i >= 10 {
			y[i] = 10
		}
		rows[i] = i
	}
	r := searchSplit(X, y, rows, 0, 2)
	if r.threshold != 9 {
		t.Fatalf("threshold: got %v want 9", r.threshold)
	}
	if math.Abs(r.gain-500) > 1e-9 {
		t.Fatalf("gain: got %v want 500", r.gain)
	}
}

func TestQuantileThresholds(t *testing.T) {
	X := [][]float64{{1}, {1}, {2}, {3}, {3}}
	ord := []int{0, 1, 2, 3, 4}
	got := quantileThresholds(X, ord, 0)
	want := []float64{1, 2}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("few distinct: got %v want %v", got, want)
	}

	n := 200
	X2 := make([][]float64, n)
	ord2 := make([]int, n)
	for i := 0; i < n; i++ {
		X2[i] = []float64{float64(i)}
		ord2[i] = i
	}
	thr := quantileThresholds(X2, ord2, 0)
	if len(thr) == 0 || len(thr) > maxThresholds {
		t.Fatalf("threshold count out of bounds: %d", len(thr))
	}
	for _, v := range thr {
		if v >= float64(n-1) {
			t.Fatalf("threshold at or above max value: %v", v)
		}
	}

	if got := quantileThresholds([][]float64{{5}, {5}}, []int{0, 1}, 0); got != nil {
		t.Fatalf("constant column should yield no thresholds: %v", got)
	}
}

func TestBuildTreePerfectSplit(t *testing.T) {
	n := 40
	X := make([][]float64, n)
	y := make([]float64, n)
	rows := make([]int, n)
	for i := 0; i < n; i++ {
		X[i] = []float64{float64(i), 1}
		if i >= 20 {
			y[i] = 4
		}
		rows[i] = i
	}
	gains := make([]float64, 2)
	tree := buildTree(X, y, rows, []int{0, 1}, treeParams{maxDepth: 3, minLeaf: 2}, gains)
	if got := tree.predict([]float64{5, 1}); got != 0 {
		t.Fatalf("left side: got %v want 0", got)
	}
	if got := tree.predict([]float64{30, 1}); got != 4 {
		t.Fatalf("right side: got %v want 4", got)
	}
	if gains[0] == 0 || gains[1] != 0 {
		t.Fatalf("gains misattributed: %v", gains)
	}
}

func TestMeanSSEClamp(t *testing.T) {
	mean, sse := meanSSE([]float64{3, 3, 3}, []int{0, 1, 2})
	if mean != 3 || sse != 0 {
		t.Fatalf("constant vector: mean=%v sse=%v", mean, sse)
	}
	if _, sse := meanSSE(nil, nil); sse != 0 {
		t.Fatalf("empty rows: sse=%v", sse)
	}
}
