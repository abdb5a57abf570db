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

package v1

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/khoIT/mlops-demo-sub003/errs"
	"github.com/khoIT/mlops-demo-sub003/server/httperr"
)

// 匯出落地的固定檔名，與 dashboard 的讀取端約定一致。
var exportFiles = map[string]string{
	"players":  "players.csv",
	"events":   "events.csv",
	"payments": "payments.csv",
	"uaCosts":  "ua_costs.csv",
	"labels":   "labels.csv",
}

type ExportHandler struct {
	Dir string
}

func NewExportHandler(dir string) (*ExportHandler, error) {
	if dir == "" {
		return nil, errs.NewFatal("export dir is required")
	}
	return &ExportHandler{Dir: dir}, nil
}

// Export 把五個具名文本 blob 原樣落地成固定檔名。
//
// 五個寫入併發執行；任一失敗即整體失敗（無部分寫入回復，
// 已寫檔案不回滾——這是實驗資料落地，不是交易）。
func (eh *ExportHandler) Export(w http.ResponseWriter, q *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type ExportRequestBody struct {
		Players  string `json:"players"`
		Events   string `json:"events"`
		Payments string `json:"payments"`
		UACosts  string `json:"uaCosts"`
		Labels   string `json:"labels"`
	}
	type ExportResponse struct {
		OK    bool     `json:"ok"`
		Files []string `json:"files,omitempty"`
		Error string   `json:"error,omitempty"`
	}
	// ---
	if q.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req := new(ExportRequestBody)
	if err := json.NewDecoder(q.Body).Decode(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	blobs := map[string]string{
		"players":  req.Players,
		"events":   req.Events,
		"payments": req.Payments,
		"uaCosts":  req.UACosts,
		"labels":   req.Labels,
	}
	for name, blob := range blobs {
		if blob == "" {
			httperr.Errs(w, errs.NewWarn("blob is required: "+name))
			return
		}
	}

	if err := os.MkdirAll(eh.Dir, 0o755); err != nil {
		httperr.Errs(w, errs.Wrap(err, "create export dir"))
		return
	}

	errCh := make(chan error, len(blobs))
	wg := new(sync.WaitGroup)
	files := make([]string, 0, len(blobs))
	for name, blob := range blobs {
		path := filepath.Join(eh.Dir, exportFiles[name])
		files = append(files, path)
		wg.Add(1)
		go func(path, blob string) {
			defer wg.Done()
			errCh <- os.WriteFile(path, []byte(blob), 0o644)
		}(path, blob)
	}
	wg.Wait()
	close(errCh)

	w.Header().Set("Content-Type", "application/json")
	for err := range errCh {
		if err != nil {
			w.WriteHeader(httperr.StatusCode(errs.Wrap(err, "export write failed")))
			_ = json.NewEncoder(w).Encode(&ExportResponse{OK: false, Error: err.Error()})
			return
		}
	}
	_ = json.NewEncoder(w).Encode(&ExportResponse{OK: true, Files: files})
}
