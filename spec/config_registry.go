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

package spec

import (
	"encoding/json"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/khoIT/mlops-demo-sub003/errs"
	"gopkg.in/yaml.v3"
)

// GetGenSettingByYAML
// 會讀取 YAML 設定、初始化並執行基本檢查後回傳
func GetGenSettingByYAML(data []byte) (*GenSetting, error) {
	gs := &GenSetting{}
	if err := yaml.Unmarshal(data, gs); err != nil {
		return nil, errs.Wrap(err, "failed to unmarshall yaml")
	}
	if err := gs.Init(); err != nil {
		return nil, errs.Wrap(err, "gen setting initialized err")
	}
	return gs, nil
}

// GetGenSettingByJSON
// 會讀取 Json 設定、初始化並執行基本檢查後回傳
func GetGenSettingByJSON(data []byte) (*GenSetting, error) {
	gs := &GenSetting{}
	if err := json.Unmarshal(data, gs); err != nil {
		return nil, errs.Wrap(err, "can not unmarshall json byte")
	}
	if err := gs.Init(); err != nil {
		return nil, errs.Wrap(err, "gen setting initialized err")
	}
	return gs, nil
}

// LoadGenSettings 掃描設定檔來源（fs.FS），把所有可辨識的設定檔
// （.yaml/.yml/.json）解析成 *GenSetting，以 Name 為 key 回傳。
//
// 行為特性（重要）：
//  1. Fail-fast：任何一個檔案讀取/解析/基本檢查失敗，都會立刻回傳 error。
//  2. 原子性：只有全部檔案都成功時才回傳結果，不會出現半完成的 map。
//  3. 穩定性：依檔名排序後再處理，確保行為 determinism。
func LoadGenSettings(src fs.FS) (map[string]*GenSetting, error) {
	var paths []string
	walkErr := fs.WalkDir(src, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml", ".json":
			paths = append(paths, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, errs.Wrap(walkErr, "walk config fs failed")
	}
	sort.Strings(paths)

	out := make(map[string]*GenSetting, len(paths))
	for _, path := range paths {
		data, err := fs.ReadFile(src, path)
		if err != nil {
			return nil, errs.Wrap(err, "read config failed: "+path)
		}
		var gs *GenSetting
		if strings.ToLower(filepath.Ext(path)) == ".json" {
			gs, err = GetGenSettingByJSON(data)
		} else {
			gs, err = GetGenSettingByYAML(data)
		}
		if err != nil {
			return nil, errs.Wrap(err, "parse config failed: "+path)
		}
		if gs.Name == "" {
			return nil, errs.InvalidConfigf("config %s: name must not be empty", path)
		}
		if _, dup := out[gs.Name]; dup {
			return nil, errs.InvalidConfigf("config %s: duplicated preset name %q", path, gs.Name)
		}
		out[gs.Name] = gs
	}
	return out, nil
}
