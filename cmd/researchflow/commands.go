package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/researchflow/internal/server"
	"github.com/BaSui01/researchflow/rag/loader"
	"github.com/BaSui01/researchflow/research"
	"github.com/BaSui01/researchflow/types"
)

// stdout 命令结果的输出位置，日志写 stderr
var stdout io.Writer = os.Stdout

// fileList 可重复的 --file 参数
type fileList []string

func (f *fileList) String() string     { return strings.Join(*f, ",") }
func (f *fileList) Set(v string) error { *f = append(*f, v); return nil }

func (f fileList) uploads() ([]loader.Upload, error) {
	uploads := make([]loader.Upload, 0, len(f))
	for _, path := range f {
		u, err := loader.ReadUpload(path)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, u)
	}
	return uploads, nil
}

// reportFlags 报告输入的公共参数
type reportFlags struct {
	tenant, objective, audience, info *string
}

func addReportFlags(fs *flag.FlagSet) reportFlags {
	return reportFlags{
		tenant:    fs.String("tenant", "", "Tenant id"),
		objective: fs.String("objective", "", "Report objective"),
		audience:  fs.String("audience", "", "Target audience"),
		info:      fs.String("info", "", "Additional information; URLs in it are researched too"),
	}
}

func (r reportFlags) input() research.ReportInput {
	return research.ReportInput{
		TenantID:              *r.tenant,
		Objective:             *r.objective,
		TargetAudience:        *r.audience,
		AdditionalInformation: *r.info,
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// =============================================================================
// 🔎 research
// =============================================================================

func researchCommand(fs *flag.FlagSet) func(context.Context, *app) error {
	in := addReportFlags(fs)
	var files fileList
	fs.Var(&files, "file", "Text file to research (repeatable)")
	synthesize := fs.Bool("synthesize", false, "Synthesize the report after gathering")

	return func(ctx context.Context, a *app) error {
		uploads, err := files.uploads()
		if err != nil {
			return err
		}
		res, err := a.service.InitiateResearch(ctx, research.ResearchRequest{ReportInput: in.input(), Files: uploads})
		if err != nil {
			return err
		}
		for _, f := range res.Failures {
			a.logger.Warn("backend contributed nothing", zap.String("backend", string(f.Type)), zap.String("stage", f.Stage), zap.Error(f.Err))
		}
		if !*synthesize {
			return printJSON(res)
		}

		out, err := a.service.GenerateReport(ctx, res.Report.ID, res.All())
		if err != nil {
			return err
		}
		if out.Exhausted {
			return out.LastError
		}
		return printJSON(out.Report)
	}
}

// =============================================================================
// 📝 report
// =============================================================================

func reportCommand(fs *flag.FlagSet) func(context.Context, *app) error {
	id := fs.String("id", "", "Report id to synthesize from its stored fragments")
	v2 := fs.Bool("v2", false, "Create a new report and write it section by section")
	sections := fs.Int("sections", 0, "Section count when the outline is generated")
	in := addReportFlags(fs)
	var files fileList
	fs.Var(&files, "file", "Text file to research (repeatable, --v2 only)")

	return func(ctx context.Context, a *app) error {
		if *v2 {
			uploads, err := files.uploads()
			if err != nil {
				return err
			}
			res, err := a.service.GenerateReportV2(ctx, research.ReportV2Request{
				ReportInput:  in.input(),
				SectionCount: *sections,
				Files:        uploads,
			})
			if err != nil {
				return err
			}
			for _, f := range res.Failed {
				a.logger.Warn("section failed", zap.String("title", f.Title), zap.Error(f.Err))
			}
			return printJSON(res)
		}

		if *id == "" {
			return errors.New("report: --id or --v2 is required")
		}
		fragments, err := a.store.Fragments.FindByReport(ctx, *id, 0, 0)
		if err != nil {
			return err
		}
		out, err := a.service.GenerateReport(ctx, *id, fragments)
		if err != nil {
			return err
		}
		if out.Exhausted {
			return out.LastError
		}
		return printJSON(out.Report)
	}
}

// =============================================================================
// 🗂️ outline
// =============================================================================

func outlineCommand(fs *flag.FlagSet) func(context.Context, *app) error {
	in := addReportFlags(fs)
	sections := fs.Int("sections", 0, "Section count (default from config)")

	return func(ctx context.Context, a *app) error {
		outline, err := a.service.GenerateTemplate(ctx, in.input(), *sections)
		if err != nil {
			return err
		}
		return printJSON(outline)
	}
}

// =============================================================================
// 💬 chat
// =============================================================================

func chatCommand(fs *flag.FlagSet) func(context.Context, *app) error {
	reportID := fs.String("report", "", "Report id")
	session := fs.String("session", "", "Chat session id")
	message := fs.String("message", "", "Question to ask")
	chatType := fs.String("type", "report", "Chat type used to name the uploaded file index")
	var files fileList
	fs.Var(&files, "file", "Text file to upload into the session index (repeatable)")

	return func(ctx context.Context, a *app) error {
		if *session == "" {
			return errors.New("chat: --session is required")
		}
		if len(files) > 0 {
			uploads, err := files.uploads()
			if err != nil {
				return err
			}
			n, err := a.service.UploadChatFiles(ctx, *chatType, *session, uploads)
			if err != nil {
				return err
			}
			a.logger.Info("chat files indexed", zap.Int("chunks", n))
		}
		if *message == "" {
			return nil
		}
		if *reportID == "" {
			return errors.New("chat: --report is required with --message")
		}

		reply, err := a.service.ChatWithReport(ctx, *reportID, *session, *message)
		if err != nil {
			return err
		}
		return printJSON(reply)
	}
}

// =============================================================================
// 🎯 query
// =============================================================================

func queryCommand(fs *flag.FlagSet) func(context.Context, *app) error {
	reportID := fs.String("report", "", "Report id")
	query := fs.String("query", "", "Query text")
	typ := fs.String("type", string(types.FragmentWeb), "Backend: INTERNAL, WEB, FILE or URL")
	top := fs.Int("top", 0, "Fragments to keep (default from config)")

	return func(ctx context.Context, a *app) error {
		t, err := types.ParseFragmentType(*typ)
		if err != nil {
			return err
		}
		fragments, err := a.service.RunCustomQuery(ctx, *reportID, *query, t, *top)
		if err != nil {
			return err
		}
		return printJSON(fragments)
	}
}

// =============================================================================
// 🖥️ serve
// =============================================================================

func serveCommand(fs *flag.FlagSet) func(context.Context, *app) error {
	port := fs.Int("port", 0, "HTTP port (default from config)")

	return func(ctx context.Context, a *app) error {
		cfg := a.cfg.Server
		if *port > 0 {
			cfg.HTTPPort = *port
		}

		checks := map[string]server.Checker{"database": a.pool.Ping}
		if a.cache != nil {
			checks["redis"] = a.cache.Ping
		}
		handler := server.NewOpsHandler(server.OpsOptions{
			Gatherer: a.registry,
			Checks:   checks,
			Version:  Version,
			Recorder: a.collector,
			Logger:   a.logger,
		})

		srvCfg := server.DefaultConfig()
		srvCfg.Addr = ":" + strconv.Itoa(cfg.HTTPPort)
		srvCfg.ReadTimeout = cfg.ReadTimeout
		srvCfg.WriteTimeout = cfg.WriteTimeout
		srvCfg.ShutdownTimeout = cfg.ShutdownTimeout

		a.logger.Info("starting ResearchFlow",
			zap.String("version", Version),
			zap.String("build_time", BuildTime),
			zap.String("git_commit", GitCommit))
		if err := server.NewManager(handler, srvCfg, a.logger).Run(ctx); err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		a.logger.Info("ResearchFlow stopped")
		return nil
	}
}
