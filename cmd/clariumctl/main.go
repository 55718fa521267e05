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

// Command clariumctl is a thin external-boundary stub: it loads a YAML
// config, opens one in-memory engine, and either runs a single --query or
// reads statements from stdin, printing the {status, results|error}
// envelope (exec/result.go) as JSON per statement. It is not the CLI the
// core is designed against (spec §1 places that boundary out of scope);
// it exists to give the engine an entry point a real server driver can
// replace.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/euanmacinnes/clarium/catalog"
	"github.com/euanmacinnes/clarium/exec"
	"github.com/euanmacinnes/clarium/store"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "", "path to a YAML session config")
		query      = pflag.StringP("query", "q", "", "run a single statement and exit")
	)
	pflag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "clariumctl: "+err.Error())
		os.Exit(1)
	}

	e, ctx, err := newEngine(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "clariumctl: "+err.Error())
		os.Exit(1)
	}

	if *query != "" {
		printResponse(e.Query(ctx, *query))
		return
	}
	runRepl(e, ctx)
}

func newEngine(cfg *Config) (*exec.Engine, *exec.Context, error) {
	st := store.NewCatalog()
	if _, err := st.CreateDatabase(cfg.Database); err != nil {
		return nil, nil, err
	}
	cat, err := catalog.New(st, cfg.SidecarDir)
	if err != nil {
		return nil, nil, err
	}
	cat.RegisterDB(cfg.Database)

	e := exec.NewEngine(st, cat)
	ctx := exec.NewContext(context.Background(), &exec.Session{
		DB:     cfg.Database,
		Schema: cfg.Schema,
		Graph:  cfg.Graph,
	})
	return e, ctx, nil
}

// runRepl reads one statement per line from stdin until EOF, matching the
// original CLI's "read a line, print {status, ...}" contract.
func runRepl(e *exec.Engine, ctx *exec.Context) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		printResponse(e.Query(ctx, line))
	}
}

func printResponse(resp exec.Response) {
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(resp)
}
