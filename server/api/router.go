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

package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	v1 "github.com/khoIT/mlops-demo-sub003/server/api/v1"
	"github.com/khoIT/mlops-demo-sub003/server/netsvr"
	"github.com/khoIT/mlops-demo-sub003/server/netsvr/middleware"
	"github.com/khoIT/mlops-demo-sub003/server/svrcfg"
)

// RegisterRoutes 註冊
func RegisterRoutes(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) error {
	registerMiddleware(svr, sCfg.Log) // 1. 註冊 middleware
	registerIndex(svr, sCfg)          // 2. 註冊主頁
	return registerV1API(svr, sCfg)   // 3. 註冊 v1 api
}

// 註冊 middleware
func registerMiddleware(svr netsvr.NetSvr, log *slog.Logger) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(log))
	svr.Use(middleware.Recover)
	svr.Use(middleware.Compression)
}

// 主頁：列出可用 preset 與路由
func registerIndex(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) {
	svr.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"service": "ltvlab",
			"presets": sCfg.Lab.Presets(),
			"routes":  []string{"POST /v1/generate", "POST /v1/train", "POST /v1/export"},
		})
	})
}

// 註冊 v1 api
func registerV1API(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) error {
	g, err := v1.NewGenHandler(sCfg.Lab)
	if err != nil {
		return err
	}
	t, err := v1.NewTrainHandler(sCfg.Lab)
	if err != nil {
		return err
	}
	e, err := v1.NewExportHandler(sCfg.ExportDir)
	if err != nil {
		return err
	}
	svr.Group("/v1", func(vOne netsvr.NetRouter) {
		vOne.Post("/generate", g.Generate)
		vOne.Post("/train", t.Train)
		vOne.Post("/export", e.Export)
	})
	return nil
}
