// =============================================================================
// ResearchFlow 主入口
// =============================================================================
// 研究管线命令行：检索、报告合成、章节报告、聊天、自定义查询与运维服务
//
// 使用方法:
//
//	researchflow research --objective "..."      # 检索并保存片段
//	researchflow report --id <report-id>         # 用已保存片段合成报告
//	researchflow report --v2 --objective "..."   # 分章节生成报告
//	researchflow chat --report <id> --message .. # 基于报告聊天
//	researchflow serve                           # 健康检查与 /metrics
//	researchflow migrate up                      # 运行数据库迁移
// =============================================================================

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	args := os.Args[2:]
	switch os.Args[1] {
	case "research":
		runCommand("research", args, researchCommand)
	case "report":
		runCommand("report", args, reportCommand)
	case "outline":
		runCommand("outline", args, outlineCommand)
	case "chat":
		runCommand("chat", args, chatCommand)
	case "query":
		runCommand("query", args, queryCommand)
	case "serve":
		runCommand("serve", args, serveCommand)
	case "migrate":
		runMigrate(args)
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// command 注册自己的 flag，并返回在装配好的 app 上执行的函数
type command func(fs *flag.FlagSet) func(ctx context.Context, a *app) error

// runCommand 解析 flag、加载配置、装配依赖并执行命令
func runCommand(name string, args []string, cmd command) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	run := cmd(fs)
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", zap.String("command", name), zap.Error(err))
		os.Exit(1)
	}

	err = run(ctx, a)
	a.close(context.Background())
	if err != nil {
		logger.Error("command failed", zap.String("command", name), zap.Error(err))
		os.Exit(1)
	}
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("ResearchFlow %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`ResearchFlow - cited research reports from web, internal and file sources

Usage:
  researchflow <command> [options]

Commands:
  research  Create a report and gather reranked fragments
  report    Synthesize a stored report, or write one section by section (--v2)
  outline   Generate a report outline
  chat      Ask a question about a report, or upload chat files
  query     Run one custom query against a backend of a report
  serve     Serve health checks and Prometheus metrics
  migrate   Database migration commands
  version   Show version information
  help      Show this help message

Common options:
  --config <path>   Path to configuration file (YAML)

Examples:
  researchflow research --tenant acme --objective "Grid storage outlook" --file notes.txt
  researchflow report --id 6f1c...
  researchflow report --v2 --objective "Grid storage outlook" --sections 5
  researchflow outline --objective "Grid storage outlook"
  researchflow chat --report 6f1c... --session s1 --message "Which source covers costs?"
  researchflow query --report 6f1c... --type WEB --query "sodium-ion cost per kWh"
  researchflow serve --config /etc/researchflow/config.yaml
  researchflow migrate up`)
}
