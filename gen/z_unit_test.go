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

package gen

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/khoIT/mlops-demo-sub003/sdk/core"
	"github.com/khoIT/mlops-demo-sub003/spec"
	"github.com/khoIT/mlops-demo-sub003/table"
)

func mustGenerate(t *testing.T, gs *spec.GenSetting) (*table.Dataset, *Report) {
	t.Helper()
	g, err := New(gs, core.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ds, rep, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return ds, rep
}

func TestGenerateCohortSize(t *testing.T) {
	gs := spec.Baseline()
	ds, rep := mustGenerate(t, gs)
	if len(ds.Players) != gs.Population.Cohort {
		t.Fatalf("players: got %d want %d", len(ds.Players), gs.Population.Cohort)
	}
	if len(ds.Labels) != gs.Population.Cohort {
		t.Fatalf("labels: got %d want %d", len(ds.Labels), gs.Population.Cohort)
	}
	if rep.Cohort != gs.Population.Cohort {
		t.Fatalf("report cohort: got %d want %d", rep.Cohort, gs.Population.Cohort)
	}
	if len(ds.Payments) == 0 {
		t.Fatalf("expected some payments in baseline cohort")
	}
	if len(ds.UACosts) == 0 {
		t.Fatalf("expected ua cost rows for paid campaigns")
	}
}

func TestPayerRateNearTarget(t *testing.T) {
	gs := spec.Baseline()
	_, rep := mustGenerate(t, gs)
	// 截距校準後母體平均應貼近目標；2pp 含個體雜訊偏移與抽樣誤差
	if math.Abs(rep.PayerRate-gs.Monetization.PayerRate) > 0.02 {
		t.Fatalf("payer rate too far from target: got %.4f want %.2f±0.02", rep.PayerRate, gs.Monetization.PayerRate)
	}
	if rep.PayerRateCI.Lo > rep.PayerRate || rep.PayerRateCI.Hi < rep.PayerRate {
		t.Fatalf("CI does not contain point estimate: %+v", rep.PayerRateCI)
	}
	if rep.PayerCount == 0 {
		t.Fatalf("expected payers in 2000-user baseline cohort")
	}
}

func TestPayerBiasSolvesMixture(t *testing.T) {
	g, err := New(spec.Baseline(), core.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	coefE := spec.Baseline().Behavior.CorrelationStrength + g.engWeight
	raws := make([]float64, len(archetypes))
	for i, a := range archetypes {
		raws[i] = a.SpendPrior + coefE*a.EngPrior
	}
	// 代回求解方程：混合平均 sigmoid 應等於目標付費率
	for _, rate := range []float64{0.02, 0.08, 0.2, 0.5} {
		b := solvePayerBias(raws, g.weights, g.expectedRaw, 0, 1, rate)
		sum := 0.0
		for i, r := range raws {
			sum += g.weights[i] * sigmoid(payerSlope*(r-g.expectedRaw)+b)
		}
		if math.Abs(sum-rate) > 1e-9 {
			t.Fatalf("rate %v: mixture mean %v after solve", rate, sum)
		}
	}
	// 截距必須遠低於無視先驗離散的天真值 log(rate/(1-rate))
	naive := math.Log(0.08 / 0.92)
	if g.payBias >= naive {
		t.Fatalf("bias %v not below naive intercept %v", g.payBias, naive)
	}
}

func TestPayerRateShiftRaisesLateWindow(t *testing.T) {
	gs := spec.Baseline()
	gs.Noise.PayerRateShift = true
	g, err := New(gs, core.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if g.payBiasShift <= g.payBias {
		t.Fatalf("shifted bias %v should exceed base bias %v", g.payBiasShift, g.payBias)
	}
}

func TestLTVWindowsMonotone(t *testing.T) {
	ds, _ := mustGenerate(t, spec.Baseline()) // noise toggles all off
	for _, lb := range ds.Labels {
		if lb.LTVD3 > lb.LTVD7 || lb.LTVD7 > lb.LTVD30 || lb.LTVD30 > lb.LTVD90 {
			t.Fatalf("%s: LTV windows not monotone: %v %v %v %v",
				lb.GameUserID, lb.LTVD3, lb.LTVD7, lb.LTVD30, lb.LTVD90)
		}
		if lb.PayerD90 != (lb.LTVD90 > 0) {
			t.Fatalf("%s: payer flag inconsistent with LTV", lb.GameUserID)
		}
	}
}

func TestGenerateDeterminism(t *testing.T) {
	ds1, rep1 := mustGenerate(t, spec.Baseline())
	ds2, rep2 := mustGenerate(t, spec.Baseline())
	if !reflect.DeepEqual(ds1, ds2) {
		t.Fatalf("same seed produced different datasets")
	}
	if !reflect.DeepEqual(rep1, rep2) {
		t.Fatalf("same seed produced different reports")
	}
}

func TestGenerateSeedSeparation(t *testing.T) {
	gs2 := spec.Baseline()
	gs2.Simulation.Seed = 4242
	ds1, _ := mustGenerate(t, spec.Baseline())
	ds2, _ := mustGenerate(t, gs2)
	if reflect.DeepEqual(ds1.Payments, ds2.Payments) {
		t.Fatalf("different seeds produced identical payments")
	}
}

func TestGenerateCancel(t *testing.T) {
	g, err := New(spec.Baseline(), core.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := g.Generate(ctx); err == nil {
		t.Fatalf("expected error on canceled context")
	}
}

func TestGenerateEmptyCohort(t *testing.T) {
	gs := spec.Baseline()
	gs.Population.Cohort = 0
	ds, rep := mustGenerate(t, gs)
	if len(ds.Players) != 0 || len(ds.Labels) != 0 {
		t.Fatalf("empty cohort emitted rows")
	}
	for _, v := range []float64{rep.PayerRate, rep.ARPU, rep.ARPPU, rep.LTVMean, rep.Gini} {
		if math.IsNaN(v) {
			t.Fatalf("empty cohort produced NaN stat")
		}
	}
}

func TestGini(t *testing.T) {
	if got := Gini(nil); got != 0 {
		t.Fatalf("empty: got %v", got)
	}
	if got := Gini([]float64{5, 5, 5, 5}); got != 0 {
		t.Fatalf("equal values: got %v", got)
	}
	concentrated := Gini([]float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 100})
	spread := Gini([]float64{8, 9, 10, 11, 12})
	if concentrated <= spread {
		t.Fatalf("concentration ordering violated: %v <= %v", concentrated, spread)
	}
	for _, v := range []float64{concentrated, spread} {
		if v < 0 || v > 1 {
			t.Fatalf("Gini out of [0,1]: %v", v)
		}
	}
}

func TestLeakageInjectionContaminatesD7(t *testing.T) {
	gs := spec.Baseline()
	gs.Noise.LeakageInjection = true
	g, err := New(gs, core.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	hit := false
	for i := 0; i < 200; i++ {
		lb := table.LabelRow{LTVD7: 10, LTVD30: 100}
		g.applyLabelNoise(&lb)
		if lb.LTVD7 == 55 { // 10 + 0.5*(100-10)
			hit = true
		}
		if lb.LTVD7 != 10 && lb.LTVD7 != 55 {
			t.Fatalf("unexpected contaminated value: %v", lb.LTVD7)
		}
		if lb.LTVD7 > lb.LTVD30 {
			t.Fatalf("injection broke window ordering")
		}
	}
	if !hit {
		t.Fatalf("injection never fired in 200 labels")
	}
}
