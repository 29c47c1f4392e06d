package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mogaika/model_viewer/config"
	"github.com/mogaika/model_viewer/render"
	"github.com/mogaika/model_viewer/status"
	"github.com/mogaika/model_viewer/vfs"
	"github.com/mogaika/model_viewer/viewer"
	"github.com/mogaika/model_viewer/web"
)

func main() {
	var configPath, params string
	var dump, cull, listEncodings bool
	flag.StringVar(&configPath, "config", "", "Path to yaml config")
	flag.StringVar(&params, "params", "", "Query string overrides, e.g. model=x&point_light=0.5")
	flag.String("base", config.DefaultBaseURL, "Base url or directory of model files")
	flag.String("model", config.DefaultModel, "Model name without extension")
	flag.String("i", ":8000", "Address of server")
	flag.String("assets", "", "Directory served under /assets/")
	flag.Int("fps", 60, "Frames per second")
	flag.String("encoding", config.EncodingUTF8, "Text encoding of mtl and obj files")
	flag.BoolVar(&dump, "dump", false, "Dump loaded materials and node tree to stdout")
	flag.BoolVar(&cull, "cull", false, "Skip back faces when rendering")
	flag.BoolVar(&listEncodings, "encodings", false, "List supported encodings and exit")
	flag.Parse()

	if listEncodings {
		for _, name := range config.ListEncodings() {
			log.Println(name)
		}
		return
	}

	cfg := config.Default()
	if configPath != "" {
		if err := cfg.LoadFile(configPath); err != nil {
			log.Fatal(err)
		}
	}
	for _, err := range cfg.ApplyQuery(params) {
		log.Printf("[main] Ignoring parameter: %v", err)
	}
	applyFlags(&cfg)
	for _, err := range cfg.Sanitize() {
		log.Printf("[main] Using default: %v", err)
	}

	source, err := vfs.NewSource(cfg.BaseURL, &http.Client{Timeout: 2 * time.Minute})
	if err != nil {
		log.Fatal(err)
	}

	hub := status.NewHub()
	defer hub.Close()

	renderer := render.New(cfg.Viewport.Width, cfg.Viewport.Height)
	renderer.CullBackfaces = cull

	inspectors := []viewer.Inspector{viewer.LogInspector{}}
	if dump {
		inspectors = append(inspectors, viewer.DumpInspector{W: os.Stdout})
	}
	v, err := viewer.New(cfg, source, renderer, hub, nil, inspectors...)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := web.StartServer(ctx, cfg.Listen, web.NewServer(v, hub, renderer, cfg.AssetsDir)); err != nil {
			log.Printf("[main] Web server error: %v", err)
			stop()
		}
	}()

	if err := v.Run(ctx); err != nil && err != context.Canceled {
		log.Fatal(err)
	}
}

// applyFlags overrides cfg with flags given on the command line only
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		value := f.Value.String()
		switch f.Name {
		case "base":
			cfg.BaseURL = value
		case "model":
			for _, err := range cfg.ApplyQuery("model=" + value) {
				log.Printf("[main] Ignoring flag: %v", err)
			}
		case "i":
			cfg.Listen = value
		case "assets":
			cfg.AssetsDir = value
		case "fps":
			if g, ok := f.Value.(flag.Getter); ok {
				cfg.Viewport.FPS = g.Get().(int)
			}
		case "encoding":
			cfg.Encoding = value
		}
	})
}
