package main

import "github.com/khoIT/mlops-demo-sub003/sdk/perf"

// makefile runner
func main() {
	bindVar()
	perf.RunPProf(executeExperiment, cfg.pprofmode)
}
