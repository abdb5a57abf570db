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

package metrics

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestMAEAndRMSE(t *testing.T) {
	pred := []float64{1, 2, 3, 4}
	actual := []float64{1, 2, 3, 4}
	if got := MAE(pred, actual); got != 0 {
		t.Fatalf("perfect MAE: got %v", got)
	}
	if got := RMSE(pred, actual); got != 0 {
		t.Fatalf("perfect RMSE: got %v", got)
	}

	pred = []float64{0, 0}
	actual = []float64{3, 4}
	if got := MAE(pred, actual); !almost(got, 3.5) {
		t.Fatalf("MAE: got %v want 3.5", got)
	}
	if got := RMSE(pred, actual); !almost(got, math.Sqrt(12.5)) {
		t.Fatalf("RMSE: got %v want sqrt(12.5)", got)
	}
	if got := MAE(nil, nil); got != 0 {
		t.Fatalf("empty MAE: got %v", got)
	}
}

func TestR2(t *testing.T) {
	actual := []float64{1, 2, 3, 4, 5}
	if got := R2(actual, actual); got != 1 {
		t.Fatalf("perfect R2: got %v", got)
	}
	mean := []float64{3, 3, 3, 3, 3}
	if got := R2(mean, actual); got != 0 {
		t.Fatalf("mean predictor R2: got %v", got)
	}
	// 比常數預測還差 ⇒ 負值
	worse := []float64{5, 4, 3, 2, 1}
	if got := R2(worse, actual); got >= 0 {
		t.Fatalf("anti-predictor should be negative: %v", got)
	}

	// 零變異目標：完美 ⇒ 1，其他 ⇒ 0
	flat := []float64{2, 2, 2}
	if got := R2(flat, flat); got != 1 {
		t.Fatalf("flat perfect: got %v", got)
	}
	if got := R2([]float64{1, 2, 3}, flat); got != 0 {
		t.Fatalf("flat imperfect: got %v", got)
	}
}

func TestSpearman(t *testing.T) {
	pred := []float64{10, 20, 30, 40}
	actual := []float64{1, 2, 3, 4}
	if got := Spearman(pred, actual); !almost(got, 1) {
		t.Fatalf("monotone: got %v want 1", got)
	}
	rev := []float64{4, 3, 2, 1}
	if got := Spearman(pred, rev); !almost(got, -1) {
		t.Fatalf("reversed: got %v want -1", got)
	}
	if got := Spearman([]float64{1}, []float64{2}); got != 0 {
		t.Fatalf("single point: got %v", got)
	}
}

func TestSpearmanTiesKeepStableOrder(t *testing.T) {
	// 並列值不取平均名次：常數向量的名次 = 原始順序
	pred := []float64{5, 5, 5}
	actual := []float64{1, 2, 3}
	if got := Spearman(pred, actual); !almost(got, 1) {
		t.Fatalf("stable-order ranks: got %v want 1", got)
	}
}

func TestSpearmanNonlinearMonotone(t *testing.T) {
	// 排序指標只看名次：單調非線性變換不影響結果
	pred := []float64{1, 10, 100, 1000, 10000}
	actual := []float64{1, 2, 3, 4, 5}
	if got := Spearman(pred, actual); !almost(got, 1) {
		t.Fatalf("got %v want 1", got)
	}
}

func TestPearsonGuards(t *testing.T) {
	if got := Pearson([]float64{1}, []float64{2}); got != 0 {
		t.Fatalf("short input: got %v", got)
	}
	if got := Pearson([]float64{3, 3, 3}, []float64{1, 2, 3}); got != 0 {
		t.Fatalf("zero variance: got %v", got)
	}
	if got := Pearson([]float64{1, 2, 3}, []float64{2, 4, 6}); !almost(got, 1) {
		t.Fatalf("linear: got %v want 1", got)
	}
}

func TestCalibratePerfectPredictor(t *testing.T) {
	n := 100
	pred := make([]float64, n)
	for i := range pred {
		pred[i] = float64(i) * 1.5
	}
	c := Calibrate(pred, pred)
	if len(c.Buckets) != 10 {
		t.Fatalf("buckets: got %d want 10", len(c.Buckets))
	}
	if c.Error != 0 {
		t.Fatalf("perfect predictor error: got %v", c.Error)
	}
	total := 0
	for _, b := range c.Buckets {
		if b.N != 10 {
			t.Fatalf("unequal bucket size: %d", b.N)
		}
		total += b.N
	}
	if total != n {
		t.Fatalf("buckets drop rows: %d != %d", total, n)
	}
	// 桶依預測值升冪
	for i := 1; i < len(c.Buckets); i++ {
		if c.Buckets[i].MeanPred < c.Buckets[i-1].MeanPred {
			t.Fatalf("bucket means not ascending at %d", i)
		}
	}
}

func TestCalibrateBias(t *testing.T) {
	pred := []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 10}
	actual := []float64{5, 5, 5, 5, 5, 5, 5, 5, 5, 5}
	c := Calibrate(pred, actual)
	if !almost(c.Error, 5) {
		t.Fatalf("uniform bias: got %v want 5", c.Error)
	}
}

func TestCalibrateSmallAndEmpty(t *testing.T) {
	c := Calibrate(nil, nil)
	if len(c.Buckets) != 0 || c.Error != 0 {
		t.Fatalf("empty input: %+v", c)
	}
	c = Calibrate([]float64{1, 2, 3}, []float64{1, 2, 3})
	if len(c.Buckets) != 3 {
		t.Fatalf("n<10 should produce n singleton buckets, got %d", len(c.Buckets))
	}
}

func TestLiftCurveEndpoints(t *testing.T) {
	n := 100
	pred := make([]float64, n)
	actual := make([]float64, n)
	for i := range pred {
		pred[i] = float64(i)
		actual[i] = float64(i) * 2
	}
	pts := LiftCurve(pred, actual)
	if len(pts) != len(LiftPct) {
		t.Fatalf("points: got %d want %d", len(pts), len(LiftPct))
	}
	last := pts[len(pts)-1]
	if last.TopPct != 100 {
		t.Fatalf("last point pct: %d", last.TopPct)
	}
	if !almost(last.Lift, 1) || !almost(last.ValueCapture, 1) {
		t.Fatalf("full population must have lift=1 capture=1: %+v", last)
	}
	if !almost(last.Recall, 1) {
		t.Fatalf("full population recall: %v", last.Recall)
	}

	// 完美排序下前 10% 正類全中
	for _, pt := range pts {
		if pt.TopPct == 10 {
			if !almost(pt.Precision, 1) || !almost(pt.Recall, 1) {
				t.Fatalf("perfect ranking at 10%%: %+v", pt)
			}
		}
	}
	// lift 不遞增（排序越淺越濃）
	for i := 1; i < len(pts); i++ {
		if pts[i].Lift > pts[i-1].Lift+1e-9 {
			t.Fatalf("lift increased along curve at %d: %+v", i, pts[i])
		}
	}
}

func TestLiftCurveDegenerate(t *testing.T) {
	if pts := LiftCurve(nil, nil); pts != nil {
		t.Fatalf("empty input: %v", pts)
	}
	pred := []float64{3, 2, 1, 0}
	zero := []float64{0, 0, 0, 0}
	for _, pt := range LiftCurve(pred, zero) {
		if pt.Lift != 0 || pt.ValueCapture != 0 {
			t.Fatalf("zero total must define lift=0: %+v", pt)
		}
	}
}

func TestLiftMinimumK(t *testing.T) {
	pred := []float64{4, 3, 2, 1}
	actual := []float64{8, 6, 4, 2}
	pts := LiftCurve(pred, actual)
	if pts[0].TopPct != 1 || pts[0].N != 1 {
		t.Fatalf("K floor: %+v", pts[0])
	}
}

func TestReportRenderers(t *testing.T) {
	pred := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	rep := NewReport("gbt", "ltv30", pred, pred)
	if rep.Summary.N != 10 || rep.Summary.MAE != 0 {
		t.Fatalf("report summary: %+v", rep.Summary)
	}

	var jbuf bytes.Buffer
	if err := (&JsonReportRender{}).Write(&jbuf, rep); err != nil {
		t.Fatalf("json render: %v", err)
	}
	round := &Report{}
	if err := json.Unmarshal(jbuf.Bytes(), round); err != nil {
		t.Fatalf("json round trip: %v", err)
	}
	if round.Model != "gbt" || round.Target != "ltv30" {
		t.Fatalf("json round trip fields: %+v", round)
	}

	var ybuf bytes.Buffer
	if err := (&YAMLReportRender{}).Write(&ybuf, rep); err != nil {
		t.Fatalf("yaml render: %v", err)
	}
	// yaml.v3 ignores json tags, keys come out as lowercased field names
	if !strings.Contains(ybuf.String(), "model: gbt") {
		t.Fatalf("yaml output missing model field:\n%s", ybuf.String())
	}
}

func TestFmtTableAlignment(t *testing.T) {
	out := fmtTable("title", []string{"a", "bb"}, map[string]string{"a": "1", "bb": "22"})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) < 5 {
		t.Fatalf("table too short:\n%s", out)
	}
	width := len(lines[0])
	for i, ln := range lines {
		if len(ln) != width {
			t.Fatalf("ragged table at line %d:\n%s", i, out)
		}
	}
}
