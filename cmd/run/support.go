package main

import (
	"context"
	"crypto/rand"
	"flag"
	"log"
	"math"
	"math/big"
	"os"
	"path/filepath"

	ltvlab "github.com/khoIT/mlops-demo-sub003"
	"github.com/khoIT/mlops-demo-sub003/configs"
	"github.com/khoIT/mlops-demo-sub003/gen"
	"github.com/khoIT/mlops-demo-sub003/sdk/core"
	"github.com/khoIT/mlops-demo-sub003/spec"
	"github.com/khoIT/mlops-demo-sub003/table"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var cfg *config = new(config)

type config struct {
	preset    string
	model     string
	target    string
	split     string
	seed      int64
	topk      float64
	cpi       float64
	exportDir string
	snapshot  string
	simulate  bool
	pprofmode string
}

func bindVar() {
	// 綁定 Flag 到本地變數的指標 (&)
	flag.StringVar(&cfg.preset, "preset", "baseline", "generator preset name")
	flag.StringVar(&cfg.model, "model", "gbt", "model: gbt, forest, linear, dummy, all")
	flag.StringVar(&cfg.target, "target", "ltv30", "regression target: ltv30, ltv90")
	flag.StringVar(&cfg.split, "split", "random", "train/test split: random, time")
	flag.Int64Var(&cfg.seed, "seed", -1, "int64 seed for random number generator")
	flag.Float64Var(&cfg.topk, "topk", 5, "activation top K percent")
	flag.Float64Var(&cfg.cpi, "cpi", 0.5, "cost per delivered user (USD)")
	flag.StringVar(&cfg.exportDir, "export", "", "export dataset CSVs to this directory")
	flag.StringVar(&cfg.snapshot, "snapshot", "", "save dataset snapshot (zstd json) to this path")
	flag.BoolVar(&cfg.simulate, "sim", false, "run activation / impact / uplift simulations")
	flag.StringVar(&cfg.pprofmode, "p", "", "pprof: '', cpu, heap, allocs")

	flag.Parse()

	// given seed illeagel -> default seed
	if cfg.seed < 1 {
		seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		if err != nil {
			log.Fatal(err)
		}
		cfg.seed = seed.Int64()
	}
}

// 這裡解析並分支要執行的實驗
func executeExperiment() {
	cfg.valid() // 基本檢查

	lab, err := ltvlab.New(
		core.Default(),
		ltvlab.Configs(configs.FS),
	)
	if err != nil {
		log.Fatal(err)
	}
	pipe, err := lab.NewPipeline(cfg.preset, cfg.trainSettings()[0])
	if err != nil {
		log.Fatal(err)
	}
	gs, _ := lab.Setting(cfg.preset)
	// 至此確保可執行
	green := "\033[1;32m"
	reset := "\033[0m"
	p := message.NewPrinter(language.English)
	p.Printf("%s[PRESET:%s] [MODEL:%s] [TARGET:%s] [SEED:%d]%s\n", green, gs.String(), cfg.model, cfg.target, cfg.seed, reset)

	ctx := context.Background()
	results, err := pipe.RunModels(ctx, true, cfg.trainSettings()...)
	if err != nil {
		log.Fatal(err)
	}

	genStdOut(results[0].GenReport)
	for _, r := range results {
		r.Model.Report.StdOut()
		importanceOut(r)
		p.Printf("used: %v\n\n", r.Used)
	}

	if cfg.simulate {
		simulateOut(results[len(results)-1])
	}
	if cfg.exportDir != "" {
		exportCSV(results[0].Dataset)
	}
	if cfg.snapshot != "" {
		if err := table.SaveSnapshot(cfg.snapshot, results[0].Dataset); err != nil {
			log.Fatal(err)
		}
		p.Printf("snapshot saved: %s\n", cfg.snapshot)
	}
}

// trainSettings 把 CLI 旗標展開成一組訓練設定；model=all 會比較全部四種。
func (cfg *config) trainSettings() []*spec.TrainSetting {
	kinds := []spec.ModelKind{spec.ModelKind(cfg.model)}
	if cfg.model == "all" {
		kinds = []spec.ModelKind{spec.ModelDummy, spec.ModelLinear, spec.ModelForest, spec.ModelGBT}
	}
	out := make([]*spec.TrainSetting, 0, len(kinds))
	for _, kind := range kinds {
		ts := spec.DefaultTrain()
		if kind == spec.ModelForest {
			ts = spec.ForestTrain()
		}
		ts.Model = kind
		ts.Tgt = spec.Target(cfg.target)
		ts.Split = spec.SplitStrategy(cfg.split)
		ts.Seed = cfg.seed
		out = append(out, ts)
	}
	return out
}

func genStdOut(rep *gen.Report) {
	p := message.NewPrinter(language.English)
	p.Printf("cohort=%d payers=%d (rate %.3f [%.3f,%.3f]) revenue=%.2f arpu=%.3f arppu=%.2f gini=%.3f\n",
		rep.Cohort, rep.PayerCount, rep.PayerRate, rep.PayerRateCI.Lo, rep.PayerRateCI.Hi,
		rep.TotalRevenue, rep.ARPU, rep.ARPPU, rep.Gini)
}

func importanceOut(r *ltvlab.RunResult) {
	p := message.NewPrinter(language.English)
	top := r.Model.Importance
	if len(top) > 5 {
		top = top[:5]
	}
	for _, imp := range top {
		dir := "+"
		if imp.Direction < 0 {
			dir = "-"
		}
		p.Printf("  %-28s %s%.4f\n", imp.Name, dir, imp.Weight)
	}
}

func simulateOut(r *ltvlab.RunResult) {
	p := message.NewPrinter(language.English)
	set := ltvlab.ActivationSetting{
		TopKPct:           cfg.topk,
		CPI:               cfg.cpi,
		RevenueMultiplier: 1.0,
		ConversionNoise:   0.1,
		DeliveryRate:      0.95,
	}
	ar, err := ltvlab.SimulateActivation(r.Model, set, cfg.seed, core.Default())
	if err != nil {
		log.Fatal(err)
	}
	p.Printf("activation top%.0f%%: selected=%d delivered=%d cost=%.2f revenue=%.2f roi=%.2f\n",
		ar.TopKPct, ar.Selected, ar.Delivered, ar.Cost, ar.Revenue, ar.ROI)

	impact, err := ltvlab.ComputeEconomicImpact(r.Model, set, cfg.seed, core.Default())
	if err != nil {
		log.Fatal(err)
	}
	for _, row := range impact {
		p.Printf("  K=%3d%%: revenue=%10.2f baseline=%10.2f incremental=%10.2f uplift=%.2fx roi=%.2f\n",
			row.TopPct, row.Revenue, row.Baseline, row.Incremental, row.Uplift, row.ROI)
	}

	up, err := ltvlab.SimulateUplift(r.Model, 0.5, cfg.seed, core.Default())
	if err != nil {
		log.Fatal(err)
	}
	p.Printf("uplift: treat=%d control=%d ate=%.4f\n", up.NTreat, up.NControl, up.ATE)
	for _, d := range up.Deciles {
		p.Printf("  decile %2d: cate=%.4f (treat %.3f vs control %.3f)\n", d.Decile, d.CATE, d.MeanTreat, d.MeanControl)
	}
}

func exportCSV(ds *table.Dataset) {
	if err := os.MkdirAll(cfg.exportDir, 0o755); err != nil {
		log.Fatal(err)
	}
	write := func(name string, fn func(f *os.File) error) {
		f, err := os.Create(filepath.Join(cfg.exportDir, name))
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		if err := fn(f); err != nil {
			log.Fatal(err)
		}
	}
	write("players.csv", func(f *os.File) error { return table.WritePlayersCSV(f, ds.Players) })
	write("events.csv", func(f *os.File) error { return table.WriteEventsCSV(f, ds.Events) })
	write("payments.csv", func(f *os.File) error { return table.WritePaymentsCSV(f, ds.Payments) })
	write("ua_costs.csv", func(f *os.File) error { return table.WriteUACostsCSV(f, ds.UACosts) })
	write("labels.csv", func(f *os.File) error { return table.WriteLabelsCSV(f, ds.Labels) })
}

func (cfg *config) valid() {
	p := message.NewPrinter(language.English)

	switch cfg.model {
	case "gbt", "forest", "linear", "dummy", "all":
	default:
		log.Fatal("value err : model must be gbt, forest, linear, dummy or all")
	}
	if cfg.target != "ltv30" && cfg.target != "ltv90" {
		log.Fatal("value err : target must be ltv30 or ltv90")
	}
	if cfg.split != "random" && cfg.split != "time" {
		log.Fatal("value err : split must be random or time")
	}
	if cfg.topk <= 0 {
		log.Fatal("value err : topk must > 0")
	}
	// 超過全體就是全選，直接 resize
	if cfg.topk > 100 {
		p.Printf("topk %v resized to 100\n", cfg.topk)
		cfg.topk = 100
	}
	if cfg.cpi < 0 {
		log.Fatal("value err : cpi must >= 0")
	}
}
