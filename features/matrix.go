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

// Package features 把原始表組裝成訓練用特徵矩陣。
package features

import "github.com/khoIT/mlops-demo-sub003/errs"

// Row 一位用戶的訓練樣本：特徵值向量 + 兩個迴歸目標。
type Row struct {
	UserID      string
	InstallTime int64
	InstallDate string
	LTV30       float64 // 目標一
	LTV90       float64 // 目標二
	Values      []float64 // 與 Matrix.Columns 對齊
}

// Matrix 特徵矩陣。欄位集合 = 設定的模板 × 視窗組合，建構後不再變動。
type Matrix struct {
	Columns     []string
	LeakageRisk []bool // 與 Columns 對齊；true = 洩漏特徵（故意提供，請勿正式使用）
	Rows        []Row
}

// Col 回傳欄位索引，找不到回傳 -1。
func (m *Matrix) Col(name string) int {
	for i, c := range m.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Target 依名稱取目標向量。
func (m *Matrix) Target(useLTV90 bool) []float64 {
	out := make([]float64, len(m.Rows))
	for i := range m.Rows {
		if useLTV90 {
			out[i] = m.Rows[i].LTV90
		} else {
			out[i] = m.Rows[i].LTV30
		}
	}
	return out
}

// Column 取一整欄特徵值。
func (m *Matrix) Column(idx int) ([]float64, error) {
	if idx < 0 || idx >= len(m.Columns) {
		return nil, errs.Warnf("column index out of range: %d", idx)
	}
	out := make([]float64, len(m.Rows))
	for i := range m.Rows {
		out[i] = m.Rows[i].Values[idx]
	}
	return out, nil
}
