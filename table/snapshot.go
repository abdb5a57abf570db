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

package table

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/khoIT/mlops-demo-sub003/errs"
	"github.com/klauspost/compress/zstd"
)

// SaveSnapshot 把整份 Dataset 存成單一 zstd 壓縮 JSON 檔。
//
// 用途：把一次生成結果固定下來，供之後的訓練/評估重複使用，
// 不必每次重跑生成器。
func SaveSnapshot(path string, ds *Dataset) error {
	if ds == nil {
		return errs.Warnf("snapshot: dataset is nil")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errs.Wrap(err, "snapshot: mkdir output dir")
		}
	}

	jsonBytes, err := json.Marshal(ds)
	if err != nil {
		return errs.Wrap(err, "snapshot: marshal dataset json")
	}

	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(err, "snapshot: create file")
	}
	defer func() { _ = f.Close() }()

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return errs.Wrap(err, "snapshot: create zstd writer")
	}
	if _, err := zw.Write(jsonBytes); err != nil {
		_ = zw.Close()
		return errs.Wrap(err, "snapshot: write dataset")
	}
	if err := zw.Close(); err != nil {
		return errs.Wrap(err, "snapshot: close zstd writer")
	}
	return f.Close()
}

// LoadSnapshot 讀回 SaveSnapshot 產出的檔案。
func LoadSnapshot(path string) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(err, "snapshot: read file")
	}
	zr, err := zstd.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, errs.Wrap(err, "snapshot: create zstd reader")
	}
	defer zr.Close()

	jsonBytes, err := io.ReadAll(zr)
	if err != nil {
		return nil, errs.Wrap(err, "snapshot: decompress dataset")
	}
	ds := &Dataset{}
	if err := json.Unmarshal(jsonBytes, ds); err != nil {
		return nil, errs.Wrap(errs.MalformedInputf("snapshot: not a dataset"), err.Error())
	}
	return ds, nil
}
