// Command hdrprview loads a YAML scene or a glTF asset and renders it until it converges, headless or in a window.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Carmen-Shannon/hdrpr/common"
	"github.com/Carmen-Shannon/hdrpr/engine"
	"github.com/Carmen-Shannon/hdrpr/engine/camera"
	"github.com/Carmen-Shannon/hdrpr/engine/config"
	"github.com/Carmen-Shannon/hdrpr/engine/image"
	"github.com/Carmen-Shannon/hdrpr/engine/loader"
	"github.com/Carmen-Shannon/hdrpr/engine/logger"
	"github.com/Carmen-Shannon/hdrpr/engine/profiler"
	"github.com/Carmen-Shannon/hdrpr/engine/renderer"
	"github.com/Carmen-Shannon/hdrpr/engine/renderpass"
	"github.com/Carmen-Shannon/hdrpr/engine/scene"
	"github.com/Carmen-Shannon/hdrpr/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type options struct {
	configPath string
	scenePath  string
	windowed   bool
	gpu        bool
	tickRate   float64
}

func parseFlags(args []string, output io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("hdrprview", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&o.configPath, "config", "", "render settings YAML; watched for changes")
	fs.StringVar(&o.scenePath, "scene", "cmd/hdrprview/scene.yaml", "scene description YAML, or a .gltf/.glb asset")
	fs.BoolVar(&o.windowed, "window", false, "open a viewer window instead of rendering headless")
	fs.BoolVar(&o.gpu, "gpu", false, "mirror textures to a wgpu device")
	fs.Float64Var(&o.tickRate, "tick-rate", 60, "scene sync ticks per second")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	return o, nil
}

func main() {
	o, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o); err != nil {
		fmt.Fprintln(os.Stderr, "hdrprview:", err)
		os.Exit(1)
	}
}

// loadScene reads a YAML scene, or imports a glTF asset lit by a single distant light.
func loadScene(path string, log *zap.Logger) (*scene.MemoryDelegate, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gltf", ".glb":
		sd, err := loader.NewImporter(loader.WithLogger(log)).Load(path)
		if err != nil {
			return nil, err
		}
		sd.AddPrim(&scene.Prim{
			ID:        "/defaultLight",
			Type:      scene.PrimTypeDistantLight,
			Values:    map[scene.Token]scene.Value{scene.TokenIntensity: float32(3), scene.TokenAngle: float32(0.53)},
			Transform: common.Single(mgl32.HomogRotate3DX(-0.8)),
			Visible:   true,
		})
		return sd, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open scene")
	}
	defer f.Close()
	return scene.LoadYAML(f)
}

func run(ctx context.Context, o options) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "hdrprview",
		Plugin:  cfg.Plugin,
	})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	sd, err := loadScene(o.scenePath, log)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics, err := profiler.NewMetrics(reg)
	if err != nil {
		return err
	}
	prof := profiler.NewProfiler(profiler.WithLogger(log), profiler.WithIterationCounter(metrics.RenderIterations))

	var win window.Window
	if o.windowed {
		win, err = window.NewWindow(window.WithTitle("hdrprview - "+o.scenePath), window.WithSize(cfg.Width, cfg.Height))
		if err != nil {
			return err
		}
	}

	mem := renderer.NewMemoryContext(renderer.WithPluginType(cfg.PluginType()))
	var rctx renderer.Context = mem
	if o.gpu {
		var surface *wgpu.SurfaceDescriptor
		if win != nil {
			surface = win.SurfaceDescriptor()
		}
		device, err := renderer.NewGPUDevice(surface, false)
		if err != nil {
			return err
		}
		defer device.Release()
		rctx = renderer.NewGPUImageContext(mem, device.Device, device.Queue, log)
	}

	api, err := renderer.NewAPI(rctx,
		renderer.WithAPILogger(log),
		renderer.WithMaxSamples(cfg.MaxSamples),
		renderer.WithIterationHook(func() { prof.Tick() }),
		renderer.WithThreadOptions(
			renderer.WithThreadLogger(log),
			renderer.WithStopHook(metrics.RenderStops.Inc),
		),
	)
	if err != nil {
		return err
	}
	api.Thread().Run()
	defer api.Thread().Close()

	delegateOptions := []engine.DelegateBuilderOption{
		engine.WithDelegateLogger(log),
		engine.WithSyncWorkers(cfg.SyncWorkers),
		engine.WithLightSegments(cfg.LightSegments),
		engine.WithMetrics(metrics),
	}
	var watcher *image.Watcher
	if cfg.WatchImages {
		if watcher, err = image.NewWatcher(log); err != nil {
			return err
		}
		delegateOptions = append(delegateOptions, engine.WithImageWatcher(watcher))
	}
	d := engine.NewDelegate(api, sd, sd, delegateOptions...)
	defer d.Finalize()
	for _, id := range sd.Prims("") {
		if err := d.InsertPrim(id, sd.Prim(id).Type); err != nil {
			log.Warn("skipping prim", zap.Error(err))
		}
	}

	store := config.NewStore(cfg, config.WithLogger(log))
	cam := camera.NewCamera(camera.WithRadius(8))
	viewport := engine.NewViewport(cam, cfg.Width, cfg.Height, "color")
	pass := renderpass.NewRenderPass(api, renderpass.WithLogger(log), renderpass.WithConfig(store))

	engineOptions := []engine.EngineBuilderOption{
		engine.WithLogger(log),
		engine.WithTickRate(o.tickRate),
		engine.WithQuitOnConverged(win == nil),
	}
	if win != nil {
		engineOptions = append(engineOptions, engine.WithWindow(win))
		bindInput(win, api, cam)
	}
	e := engine.NewEngine(d, pass, viewport, engineOptions...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	if o.configPath != "" {
		g.Go(func() error { return store.Watch(gctx, o.configPath) })
	}
	if watcher != nil {
		g.Go(func() error { return watcher.Run(gctx, d.Images()) })
	}
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsHandler(reg), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			log.Info("serving metrics", zap.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "metrics server")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	start := time.Now()
	runErr := e.Run(gctx)
	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("background task failed", zap.Error(err))
		if runErr == nil {
			runErr = err
		}
	}

	stats := mem.Stats()
	log.Info("render finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Uint64("ticks", e.Ticks()),
		zap.Int("iterations", stats.RenderIterations),
		zap.Int("meshes", stats.MeshesCreated),
		zap.Int("lights", stats.LightsCreated),
		zap.Int("samples", viewport.Buffer("color").Samples()),
	)
	return runErr
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}

// bindInput maps the viewer controls: drag orbits, scroll zooms, R restarts accumulation and space
// pauses or resumes rendering.
func bindInput(win window.Window, api *renderer.API, cam *camera.Camera) {
	paused := false
	restart := func() {
		ed := api.AcquireForEdit()
		ed.MarkChanged()
		ed.Release()
	}

	win.SetDragCallback(cam.Orbit)
	win.SetScrollCallback(cam.Zoom)
	win.SetKeyDownCallback(func(key uint32) {
		switch key {
		case common.KeyR:
			restart()
		case common.KeySpace:
			paused = !paused
			if paused {
				api.Thread().StopRender()
			} else {
				restart()
			}
		}
	})
}
