package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/subforge/subforge/internal/fetch"
	"github.com/subforge/subforge/internal/httpapi"
	"github.com/subforge/subforge/internal/logging"
	"github.com/subforge/subforge/internal/model"
	"github.com/subforge/subforge/internal/prep"
	"github.com/subforge/subforge/internal/render"
	"github.com/subforge/subforge/internal/rules"
	"github.com/subforge/subforge/internal/settings"
	"github.com/subforge/subforge/internal/sub"
)

func main() {
	root := &cobra.Command{
		Use:           "subforge",
		Short:         "订阅转换服务：把各种订阅格式转换为目标客户端配置",
		Version:       httpapi.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), convertCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var (
		listen          string
		prefPath        string
		logLevel        string
		console         bool
		shutdownTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 转换服务",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logging.Setup(logLevel, console)
			log := logging.WithComponent("serve")

			store, err := settings.NewStore(prefPath, logging.WithComponent("settings"))
			if err != nil {
				return err
			}
			snap := store.Current()
			if logLevel == "" {
				logging.Setup(snap.LogLevel, console)
			}
			addr := listen
			if addr == "" {
				addr = snap.Listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if prefPath != "" {
				go func() {
					if err := store.Watch(ctx); err != nil {
						log.Warn().Err(err).Msg("配置监听退出")
					}
				}()
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           httpapi.New(store, logging.WithComponent("http")),
				ReadHeaderTimeout: 5 * time.Second,
			}

			log.Info().Str("listen", addr).Msg("服务已启动")

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
				log.Info().Msg("收到退出信号，开始优雅退出")
				shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shCtx); err != nil {
					log.Warn().Err(err).Msg("优雅退出失败，强制关闭")
					_ = srv.Close()
				}
				err := <-errCh
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP 监听地址（默认取 pref 文件）")
	cmd.Flags().StringVar(&prefPath, "pref", "pref.ini", "配置文件路径")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "日志级别（debug/info/warn/error）")
	cmd.Flags().BoolVar(&console, "console", false, "人类可读的日志输出")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 10*time.Second, "优雅退出等待时间")
	return cmd
}

func convertCmd() *cobra.Command {
	var (
		target   string
		in       []string
		basePath string
		prefPath string
		out      string
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "单次转换：读取订阅并输出目标配置",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logging.Setup("warn", true)
			log := logging.WithComponent("convert")

			snap, err := settings.Load(prefPath)
			if err != nil {
				return err
			}
			if target == "" {
				target = snap.DefaultTarget
			}
			tgt, ok := render.ParseTarget(target)
			if !ok {
				return fmt.Errorf("不支持的 target：%s", target)
			}
			if len(in) == 0 {
				return errors.New("缺少 --in（订阅 URL 或本地文件，可重复）")
			}

			ctx := cmd.Context()
			opts := fetch.Options{
				Timeout:  time.Duration(snap.FetchTimeoutSec) * time.Second,
				MaxBytes: snap.MaxFetchBytes,
			}

			var nodes []model.Proxy
			for _, source := range in {
				res, err := fetch.TextWithOptions(ctx, fetch.KindSubscription, source, opts)
				if err != nil {
					return err
				}
				parsed, err := sub.ParseAny(log, source, res.Text)
				if err != nil {
					return err
				}
				nodes = append(nodes, parsed...)
			}
			if len(nodes) == 0 {
				return errors.New("订阅来源未产生可用节点")
			}
			prep.Apply(nodes, snap.PrepOptions())

			var rulesets []model.RulesetContent
			if snap.EnableRuleGenerator {
				for _, src := range snap.Rulesets {
					res, err := fetch.TextWithOptions(ctx, fetch.KindRuleset, src.URL, opts)
					if err != nil {
						return err
					}
					parsed, err := rules.ParseRulesetText(src.URL, res.Text)
					if err != nil {
						return err
					}
					rulesets = append(rulesets, model.RulesetContent{Group: src.Group, Rules: parsed})
				}
			}

			base := ""
			if basePath != "" {
				res, err := fetch.TextWithOptions(ctx, fetch.KindTemplate, basePath, opts)
				if err != nil {
					return err
				}
				base = res.Text
			}

			text, err := render.Emit(tgt, nodes, base, rulesets, snap.Groups, snap.Extra())
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				fmt.Print(text)
				return nil
			}
			return os.WriteFile(out, []byte(text), 0o644)
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "目标格式（clash/surge/...，默认取 pref 文件）")
	cmd.Flags().StringSliceVar(&in, "in", nil, "订阅 URL 或本地文件（可重复）")
	cmd.Flags().StringVar(&basePath, "base", "", "基础模板 URL 或本地文件")
	cmd.Flags().StringVar(&prefPath, "pref", "", "配置文件路径")
	cmd.Flags().StringVarP(&out, "out", "o", "", "输出文件（默认 stdout）")
	return cmd
}
