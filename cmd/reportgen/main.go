package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ecomreport/internal/catalog"
	"ecomreport/internal/chart"
	"ecomreport/internal/config"
	"ecomreport/internal/exporter"
	"ecomreport/internal/interactive"
	"ecomreport/internal/pipeline"
	"ecomreport/internal/server"
	"ecomreport/internal/store"
)

func main() {
	fmt.Println("==========================================")
	fmt.Println("  reportgen - 电商数据报表生成工具")
	fmt.Println("==========================================")

	// 加载配置
	cfg, info, err := config.LoadConfigWithInfo()
	if err != nil {
		log.Printf("加载配置失败，使用默认配置: %v", err)
		cfg = config.DefaultConfig()
		info = config.LoadConfigInfo{}
	}
	if info.FromFile {
		fmt.Printf("配置文件: %s\n", info.Path)
	}

	// 输出目录以可执行文件所在目录为根
	baseDir, err := config.GetExeDir()
	if err != nil {
		baseDir = "."
	}
	dirs, err := config.EnsureOutputDirs(cfg, baseDir)
	if err != nil {
		log.Fatalf("创建输出目录失败: %v", err)
	}
	fmt.Printf("图表目录: %s\n", dirs.Charts)
	fmt.Printf("导出目录: %s\n", dirs.Exports)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 本地快照不存在时从数据集 CSV 建立
	if cfg.Database.Driver == "sqlite3" && cfg.Database.SeedDir != "" {
		if _, err := os.Stat(cfg.Database.Name); os.IsNotExist(err) {
			fmt.Printf("正在从 %s 建立本地快照: %s\n", cfg.Database.SeedDir, cfg.Database.Name)
			counts, err := store.SeedSnapshot(ctx, cfg.Database.Name, cfg.Database.SeedDir)
			if err != nil {
				log.Fatalf("建立本地快照失败: %v", err)
			}
			for _, c := range counts {
				fmt.Printf("  %s: %d 行\n", c.Table, c.Rows)
			}
		}
	}

	reports, err := catalog.Default(cfg.Database.Driver)
	if err != nil {
		log.Fatalf("加载报表目录失败: %v", err)
	}

	exec := store.NewExecutor(cfg.Database)
	fmt.Printf("数据源: %s\n", exec.Source())

	p := pipeline.New(reports, exec, chart.NewRenderer(), exporter.NewAggregator(), interactive.NewBuilder(), pipeline.Options{
		ChartDir:     dirs.Charts,
		WorkbookPath: dirs.WorkbookPath(cfg),
	})
	p.Progress = func(e exporter.ProgressEvent) {
		fmt.Printf("[%3d%%] %s\n", e.Percent, e.Stage)
	}

	run, err := p.Run(ctx)
	if err != nil {
		log.Printf("运行中止: %v", err)
		stop()
		os.Exit(1)
	}
	log.Printf("run %s: %d 张图表，%d 个报表失败", run.RunID, len(run.Charts()), len(run.Failures()))
	fmt.Println(run.SummaryLine())

	if run.View == nil {
		if run.ViewError != "" {
			log.Printf("交互视图未生成: %s", run.ViewError)
		}
		return
	}

	if cfg.Viewer.Mode == config.ViewerServe {
		fmt.Println("\n按 Ctrl+C 停止服务...")
	}
	presenter := server.NewPresenter(cfg.Viewer)
	if err := presenter.Present(ctx, server.Options{
		View:         run.View,
		ChartDir:     dirs.Charts,
		WorkbookPath: dirs.WorkbookPath(cfg),
		Summary:      run,
	}); err != nil {
		log.Printf("展示交互视图失败: %v", err)
	}
}
