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
	"math"

	"github.com/khoIT/mlops-demo-sub003/sdk/core"
	"github.com/khoIT/mlops-demo-sub003/spec"
)

// 每回合 bootstrap 取樣的訓練列比例
const bagFraction = 0.8

// gbtTrainer 殘差提升：每回合在 bootstrap 子樣本與 ceil(sqrt(F)) 個
// 特徵欄上長一棵淺樹，以 learning rate 縮放葉值後累加進模型。
type gbtTrainer struct {
	ts    *spec.TrainSetting
	c     *core.Core
	nFeat int
}

func (g *gbtTrainer) fit(ctx context.Context, X [][]float64, y []float64, rows []int) (func([]float64) float64, []float64, []float64, error) {
	n := len(rows)
	gains := make([]float64, g.nFeat)
	loss := make([]float64, 0, g.ts.Trees)
	trees := make([]*treeNode, 0, g.ts.Trees)
	p := treeParams{maxDepth: g.ts.Depth, minLeaf: g.ts.MinLeaf}

	// 目前模型在每個訓練列上的累計輸出
	cur := make([]float64, n)
	resid := make([]float64, len(y))

	for t := 0; t < g.ts.Trees; t++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, nil, err
		}
		bag := bootstrapRows(g.c, rows, bagFraction)
		for i, r := range rows {
			resid[r] = y[r] - cur[i]
		}
		tree := buildTree(X, resid, bag, columnSubset(g.c, g.nFeat), p, gains)
		tree.scale(g.ts.LearningRate)
		trees = append(trees, tree)

		mse := 0.0
		for i, r := range rows {
			cur[i] += tree.predict(X[r])
			d := y[r] - cur[i]
			mse += d * d
		}
		loss = append(loss, mse/float64(n))
	}

	predict := func(x []float64) float64 {
		sum := 0.0
		for _, tr := range trees {
			sum += tr.predict(x)
		}
		return sum
	}
	return predict, loss, gains, nil
}

// bootstrapRows 有放回抽出 frac×len(rows) 筆（至少 1 筆）。
func bootstrapRows(c *core.Core, rows []int, frac float64) []int {
	k := int(frac * float64(len(rows)))
	if k < 1 {
		k = 1
	}
	out := make([]int, k)
	for i := range out {
		out[i] = rows[c.IntN(len(rows))]
	}
	return out
}

// columnSubset 洗牌後取前 ceil(sqrt(F)) 個特徵欄。
func columnSubset(c *core.Core, nFeat int) []int {
	k := int(math.Ceil(math.Sqrt(float64(nFeat))))
	if k > nFeat {
		k = nFeat
	}
	idx := make([]int, nFeat)
	for i := range idx {
		idx[i] = i
	}
	c.ShuffleInts(idx)
	return idx[:k]
}
