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

import "sort"

const (
	// 每個特徵最多評估的分割門檻數
	maxThresholds = 32
	// 分割增益下限：父節點 SSE 的 0.5%，低於就不分
	minGainRatio = 0.005
)

// treeNode 迴歸樹節點。leaf 時只有 value 有效。
type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

func (n *treeNode) predict(x []float64) float64 {
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// 縮放所有葉節點值（boosting 的 learning rate 在建完樹後套用）
func (n *treeNode) scale(f float64) {
	if n.leaf {
		n.value *= f
		return
	}
	n.left.scale(f)
	n.right.scale(f)
}

type treeParams struct {
	maxDepth int
	minLeaf  int
}

// buildTree 在 rows（X 的列索引）上以貪婪 SSE 最小化長出一棵迴歸樹。
// featIdx 限定本棵樹可用的特徵欄；gains 依全域特徵索引累加被採用分割的增益。
func buildTree(X [][]float64, y []float64, rows []int, featIdx []int, p treeParams, gains []float64) *treeNode {
	return growNode(X, y, rows, featIdx, p, gains, 0)
}

func growNode(X [][]float64, y []float64, rows []int, featIdx []int, p treeParams, gains []float64, depth int) *treeNode {
	mean, sse := meanSSE(y, rows)
	if depth >= p.maxDepth || len(rows) < 2*p.minLeaf || sse == 0 {
		return &treeNode{leaf: true, value: mean}
	}

	minGain := minGainRatio * sse
	best := splitResult{gain: 0}
	for _, f := range featIdx {
		if r := searchSplit(X, y, rows, f, p.minLeaf); r.gain > best.gain && r.gain > minGain {
			best = r
		}
	}
	if best.gain <= 0 {
		return &treeNode{leaf: true, value: mean}
	}
	gains[best.feature] += best.gain

	var lRows, rRows []int
	for _, i := range rows {
		if X[i][best.feature] <= best.threshold {
			lRows = append(lRows, i)
		} else {
			rRows = append(rRows, i)
		}
	}
	return &treeNode{
		feature:   best.feature,
		threshold: best.threshold,
		left:      growNode(X, y, lRows, featIdx, p, gains, depth+1),
		right:     growNode(X, y, rRows, featIdx, p, gains, depth+1),
	}
}

type splitResult struct {
	feature   int
	threshold float64
	gain      float64
}

// searchSplit 對單一特徵找最佳門檻。
// 先依特徵值排序一次，前綴和讓每個門檻的左右 SSE 為 O(1)；
// 同增益時保留先遇到的門檻，確保結果可重現。
func searchSplit(X [][]float64, y []float64, rows []int, feature, minLeaf int) splitResult {
	n := len(rows)
	ord := make([]int, n)
	copy(ord, rows)
	sort.SliceStable(ord, func(a, b int) bool {
		return X[ord[a]][feature] < X[ord[b]][feature]
	})

	// 前綴和：prefY[i] = 前 i 筆 y 的和
	prefY := make([]float64, n+1)
	prefY2 := make([]float64, n+1)
	for i, r := range ord {
		prefY[i+1] = prefY[i] + y[r]
		prefY2[i+1] = prefY2[i] + y[r]*y[r]
	}
	totY, totY2 := prefY[n], prefY2[n]
	parentSSE := totY2 - totY*totY/float64(n)

	thresholds := quantileThresholds(X, ord, feature)
	if len(thresholds) == 0 {
		return splitResult{}
	}

	best := splitResult{feature: feature}
	pos := 0
	for _, thr := range thresholds {
		// 左側筆數 = 特徵值 <= thr 的列數；門檻遞增所以 pos 只往前走
		for pos < n && X[ord[pos]][feature] <= thr {
			pos++
		}
		if pos < minLeaf || n-pos < minLeaf {
			continue
		}
		lN, rN := float64(pos), float64(n-pos)
		lSSE := prefY2[pos] - prefY[pos]*prefY[pos]/lN
		rY := totY - prefY[pos]
		rSSE := (totY2 - prefY2[pos]) - rY*rY/rN
		if gain := parentSSE - lSSE - rSSE; gain > best.gain {
			best.threshold = thr
			best.gain = gain
		}
	}
	return best
}

// quantileThresholds 從已排序的列取分割門檻：
// 相異值 <= 32 時取「除最大值外的每個相異值」，否則取 32 個分位點。
func quantileThresholds(X [][]float64, ord []int, feature int) []float64 {
	n := len(ord)
	distinct := make([]float64, 0, n)
	for i, r := range ord {
		v := X[r][feature]
		if i == 0 || v != distinct[len(distinct)-1] {
			distinct = append(distinct, v)
		}
	}
	if len(distinct) < 2 {
		return nil
	}
	if len(distinct) <= maxThresholds {
		return distinct[:len(distinct)-1]
	}
	out := make([]float64, 0, maxThresholds)
	for q := 1; q <= maxThresholds; q++ {
		i := q * n / (maxThresholds + 1)
		v := X[ord[i]][feature]
		if len(out) == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	// 全列最大值當門檻會產生空右子樹，剔除
	maxV := distinct[len(distinct)-1]
	for len(out) > 0 && out[len(out)-1] >= maxV {
		out = out[:len(out)-1]
	}
	return out
}

func meanSSE(y []float64, rows []int) (mean, sse float64) {
	if len(rows) == 0 {
		return 0, 0
	}
	var sum, sum2 float64
	for _, i := range rows {
		sum += y[i]
		sum2 += y[i] * y[i]
	}
	n := float64(len(rows))
	mean = sum / n
	sse = sum2 - sum*sum/n
	if sse < 0 {
		sse = 0
	}
	return mean, sse
}
