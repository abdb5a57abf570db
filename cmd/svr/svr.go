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

package main

import (
	"flag"
	"fmt"

	ltvlab "github.com/khoIT/mlops-demo-sub003"
	"github.com/khoIT/mlops-demo-sub003/configs"
	"github.com/khoIT/mlops-demo-sub003/sdk/core"
	"github.com/khoIT/mlops-demo-sub003/server"
	"github.com/khoIT/mlops-demo-sub003/server/logger"
	"github.com/khoIT/mlops-demo-sub003/server/svrcfg"
)

// This command is intentionally a "lab server" entrypoint for the repo.
// It enables all developer endpoints by default.
// For production deployments, use a separate scaffold project and run ModeProd.
func main() {
	cfg, err := loadConfigFromFlags()
	if err != nil {
		fmt.Println(err)
		return
	}
	server.Run(cfg)
}

type config struct {
	LogMode   string
	ExportDir string
}

func loadConfigFromFlags() (*svrcfg.SvrCfg, error) {
	cfg := new(config)
	flag.StringVar(&cfg.LogMode, "log-mode", "ModeDev", "log mode: ModeDev|ModeProd|ModeSilence")
	flag.StringVar(&cfg.ExportDir, "export", "export", "directory for dataset CSV exports")

	flag.Parse()

	log, _ := logger.NewAsync(4096, cfg.norm())

	lab, err := ltvlab.New(
		core.Default(),
		ltvlab.Configs(configs.FS),
	)
	if err != nil {
		return nil, err
	}
	sCfg := &svrcfg.SvrCfg{
		Log:       log,
		Lab:       lab,
		ExportDir: cfg.ExportDir,
	}
	return sCfg, nil
}

func (cfg *config) norm() logger.LogMode {
	switch cfg.LogMode {
	case "ModeDev":
		return logger.ModeDev
	case "ModeProd":
		return logger.ModeProd
	case "ModeSilence":
		return logger.ModeSilence
	default:
		return logger.ModeDev
	}
}
