// Copyright 2020-2021 Dolthub, Inc.
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
	"os"

	"gopkg.in/yaml.v2"
)

// Config is the bootstrap file clariumctl loads before opening a session:
// which database/schema/graph a bare identifier defaults to, and where the
// vector-index/graph sidecar manifests live on disk.
type Config struct {
	Database   string `yaml:"database"`
	Schema     string `yaml:"schema"`
	Graph      string `yaml:"graph"`
	SidecarDir string `yaml:"sidecar_dir"`
}

func defaultConfig() *Config {
	return &Config{Database: "clarium", Schema: "public"}
}

// loadConfig reads path as YAML, falling back to defaultConfig's values
// for any field the file leaves unset.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
