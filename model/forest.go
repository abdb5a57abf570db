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

	"github.com/khoIT/mlops-demo-sub003/sdk/core"
	"github.com/khoIT/mlops-demo-sub003/spec"
)

// forestTrainer 隨機森林：每棵樹獨立 bootstrap、不做提升，預測取平均。
// 損失軌跡記錄「前 t 棵樹平均」在全訓練集上的 MSE。
type forestTrainer struct {
	ts    *spec.TrainSetting
	c     *core.Core
	nFeat int
}

func (f *forestTrainer) fit(ctx context.Context, X [][]float64, y []float64, rows []int) (func([]float64) float64, []float64, []float64, error) {
	n := len(rows)
	gains := make([]float64, f.nFeat)
	loss := make([]float64, 0, f.ts.Trees)
	trees := make([]*treeNode, 0, f.ts.Trees)
	p := treeParams{maxDepth: f.ts.Depth, minLeaf: f.ts.MinLeaf}

	// 各訓練列的目前累計輸出（未除以樹數）
	sum := make([]float64, n)

	for t := 0; t < f.ts.Trees; t++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, nil, err
		}
		bag := bootstrapRows(f.c, rows, 1.0)
		tree := buildTree(X, y, bag, columnSubset(f.c, f.nFeat), p, gains)
		trees = append(trees, tree)

		mse := 0.0
		inv := 1.0 / float64(t+1)
		for i, r := range rows {
			sum[i] += tree.predict(X[r])
			d := y[r] - sum[i]*inv
			mse += d * d
		}
		loss = append(loss, mse/float64(n))
	}

	predict := func(x []float64) float64 {
		s := 0.0
		for _, tr := range trees {
			s += tr.predict(x)
		}
		return s / float64(len(trees))
	}
	return predict, loss, gains, nil
}
