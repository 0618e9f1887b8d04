package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"live-ticker-go/aggregator"
	"live-ticker-go/config"
	"live-ticker-go/exchange"
	"live-ticker-go/fanout"
	"live-ticker-go/infrastructure/logger"
	"live-ticker-go/metrics"
	"live-ticker-go/server"
	"live-ticker-go/ticker"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	pair := flag.String("pair", "", "交易对（例如 ETH-USD），覆盖配置文件")
	listen := flag.String("listen", "", "流式端点监听地址，覆盖配置文件")
	metricsAddr := flag.String("metricsAddr", "", "Prometheus metrics 监听地址，覆盖配置文件")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if *pair != "" {
		cfg.Pair = *pair
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	appLog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer appLog.Close()

	if cfg.MetricsAddr != "" {
		metrics.StartMetricsServer(cfg.MetricsAddr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ingest := make(chan ticker.Quote, cfg.IngestBuffer)
	hub := fanout.NewHub(cfg.SubscriberBuffer)

	started := 0
	for name, vc := range cfg.Venues {
		if !vc.Enabled {
			continue
		}
		var adapter exchange.Adapter
		instrument := vc.Instrument
		switch name {
		case "binance":
			a := exchange.NewBinance(appLog)
			if vc.URL != "" {
				a.Endpoint = vc.URL
			}
			if instrument == "" {
				instrument = exchange.BinanceInstrument(cfg.Pair)
			}
			adapter = a
		case "okx":
			a := exchange.NewOKX(appLog)
			if vc.URL != "" {
				a.Endpoint = vc.URL
			}
			if instrument == "" {
				instrument = exchange.OKXInstrument(cfg.Pair)
			}
			adapter = a
		default:
			appLog.Warn("未知 venue，忽略", zap.String("venue", name))
			continue
		}
		adapter.Start(ctx, instrument, ingest)
		appLog.Info("adapter started",
			zap.String("venue", adapter.Name()),
			zap.String("instrument", instrument),
		)
		started++
	}
	if started == 0 {
		log.Fatalf("没有可用的 venue（配置中均未启用或不被识别）")
	}

	agg := aggregator.New(hub, appLog)
	go agg.Run(ingest)

	// 配置热更新：只动态应用日志级别
	reloader, err := config.NewHotReloader(*cfgPath, config.DefaultHotReloadConfig(), func(newCfg config.AppConfig) {
		if err := appLog.SetLevel(newCfg.Log.Level); err != nil {
			appLog.Warn("热更新日志级别失败", zap.Error(err))
			return
		}
		appLog.Info("日志级别已更新", zap.String("level", newCfg.Log.Level))
	})
	if err != nil {
		appLog.Warn("热更新不可用", zap.Error(err))
	} else {
		if err := reloader.Start(); err != nil {
			appLog.Warn("热更新启动失败", zap.Error(err))
		}
		defer reloader.Stop()
	}

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: server.New(hub, appLog).Routes(),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("流式端点启动失败: %v", err)
		}
	}()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	appLog.Info("live ticker started",
		zap.String("pair", cfg.Pair),
		zap.String("listen", cfg.Listen),
		zap.Int("venues", started),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	appLog.Info("shutting down")
	cancel()
	_ = srv.Close()
}
