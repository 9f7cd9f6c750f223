package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"airnet"
	"airnet/afn"
	"airnet/afn/debug"
	"airnet/config"
	"airnet/metrics"

	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

var (
	configFile   = flag.StringP("config", "c", "", "ini 配置文件")
	output       = flag.StringP("output", "o", "-", "结果输出文件, - 为标准输出")
	format       = flag.StringP("format", "f", "yaml", "结果格式 yaml|json")
	exportFile   = flag.String("export", "", "输出补全默认值后的网络定义")
	logLevel     = flag.String("log-level", "", "日志级别, 覆盖配置文件")
	maxIteration = flag.Int("max-iteration", 0, "最大迭代次数, 覆盖配置文件")
	listen       = flag.String("listen", "", "图表、实时推送与指标服务地址, 覆盖配置文件")
	wait         = flag.Duration("wait", 0, "启动服务后等待客户端连接的时间")
	serve        = flag.Bool("serve", false, "求解后继续提供服务直到中断")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "用法: %s [选项] 网络定义.yaml\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(flag.Arg(0)); err != nil {
		log.WithError(err).Fatal("求解失败")
	}
}

func settings() (*config.Settings, error) {
	s := config.Default()
	if *configFile != "" {
		var err error
		if s, err = config.Load(*configFile); err != nil {
			return nil, err
		}
	}
	if *logLevel != "" {
		s.Log.Level = *logLevel
	}
	if *maxIteration > 0 {
		s.Solver.MaxIteration = *maxIteration
	}
	if *listen != "" {
		s.Debug.Listen = *listen
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, s.ApplyLog()
}

func run(filename string) error {
	cfg, err := settings()
	if err != nil {
		return err
	}
	def := &airnet.Definition{Environment: cfg.Environment, Solver: cfg.Solver}
	if err := def.ReadFile(filename); err != nil {
		return err
	}
	model, err := airnet.New(def)
	if err != nil {
		return err
	}
	if *exportFile != "" {
		if err := writeFile(*exportFile, def.Write); err != nil {
			return err
		}
	}

	reg := metrics.NewRegistry()
	model.Solver.Metrics = reg
	hooks := outputs{settings: &cfg.Debug}
	model.Solver.Debug = hooks.attach()

	var srv *http.Server
	if cfg.Debug.Listen != "" {
		srv = hooks.serve(cfg.Debug.Listen, reg)
		if *wait > 0 {
			log.WithField("wait", *wait).Info("等待调试客户端连接")
			time.Sleep(*wait)
		}
	}

	res, err := model.Simulate()
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"file":       filename,
		"iterations": res.Iterations,
		"state":      res.State,
	}).Info("气流网络求解完成")
	if err := writeFile(*output, func(w io.Writer) error {
		return airnet.WriteResult(w, res, *format)
	}); err != nil {
		return err
	}
	if err := hooks.write(); err != nil {
		return err
	}

	if srv != nil {
		if *serve {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			<-ctx.Done()
			stop()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
	return nil
}

// outputs 按配置启用的调试输出
type outputs struct {
	settings *config.Debug
	charts   *debug.Charts
	plot     *debug.Plot
	vectors  *debug.Vectors
	stream   *debug.Stream
	vecFile  *os.File
}

func (o *outputs) attach() afn.Debug {
	var hooks debug.Multi
	s := o.settings
	if s.Record != "" || s.Archive != "" || s.Charts != "" || s.Listen != "" {
		o.charts = &debug.Charts{}
		hooks = append(hooks, o.charts)
	}
	if s.Plot != "" {
		o.plot = debug.NewPlot()
		if ext := strings.TrimPrefix(filepath.Ext(s.Plot), "."); ext != "" {
			o.plot.Format = ext
		}
		hooks = append(hooks, o.plot)
	}
	if s.Vectors != "" {
		f, err := os.Create(s.Vectors)
		if err != nil {
			log.WithError(err).Warn("向量输出文件创建失败")
		} else {
			o.vecFile = f
			o.vectors = &debug.Vectors{W: f}
			hooks = append(hooks, o.vectors)
		}
	}
	if s.Listen != "" {
		o.stream = debug.NewStream()
		hooks = append(hooks, o.stream)
	}
	if len(hooks) == 0 {
		return nil
	}
	return hooks
}

func (o *outputs) serve(addr string, reg *metrics.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", o.charts.Handler)
	mux.Handle("/ws", o.stream)
	mux.Handle("/metrics", reg.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("调试服务退出")
		}
	}()
	log.WithField("addr", addr).Info("调试服务已启动")
	return srv
}

func (o *outputs) write() error {
	s := o.settings
	if o.vecFile != nil {
		if err := o.vecFile.Close(); err != nil {
			return err
		}
	}
	if o.charts != nil {
		if s.Record != "" {
			if err := writeFile(s.Record, o.charts.Record.Render); err != nil {
				return err
			}
		}
		if s.Archive != "" {
			if err := writeFile(s.Archive, o.charts.RenderCompressed); err != nil {
				return err
			}
		}
		if s.Charts != "" {
			if err := writeFile(s.Charts, o.charts.Render); err != nil {
				return err
			}
		}
	}
	if o.plot != nil {
		if err := writeFile(s.Plot, o.plot.Render); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(name string, render func(io.Writer) error) error {
	if name == "-" {
		return render(os.Stdout)
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", name, err)
	}
	return f.Close()
}
