package web

import (
	"context"
	"embed"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/mogaika/model_viewer/render"
	"github.com/mogaika/model_viewer/status"
	"github.com/mogaika/model_viewer/viewer"
)

//go:embed data
var data embed.FS

// FrameSource exposes the last presented frame
type FrameSource interface {
	EncodePNG(w io.Writer) error
	Stats() render.Stats
}

type Server struct {
	viewer    *viewer.Viewer
	hub       *status.Hub
	frames    FrameSource
	assetsDir string
	upgrader  websocket.Upgrader
}

func NewServer(v *viewer.Viewer, hub *status.Hub, frames FrameSource, assetsDir string) *Server {
	return &Server{
		viewer:    v,
		hub:       hub,
		frames:    frames,
		assetsDir: assetsDir,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/json/state", s.HandlerState).Methods("GET")
	r.HandleFunc("/json/config", s.HandlerConfig).Methods("GET")
	r.HandleFunc("/frame.png", s.HandlerFrame).Methods("GET")
	r.HandleFunc("/action/resize/{width:[0-9]+}/{height:[0-9]+}", s.HandlerResize)
	r.HandleFunc("/action/orbit", s.HandlerOrbit)
	r.HandleFunc("/action/reset", s.HandlerReset)
	r.HandleFunc("/action/load/{model}", s.HandlerLoad)
	r.HandleFunc("/dump/config.yaml", s.HandlerDumpConfig).Methods("GET")
	r.HandleFunc("/dump/model.glb", s.HandlerDumpModel).Methods("GET")
	r.HandleFunc("/ws/status", s.HandlerStatus)

	if s.assetsDir != "" {
		r.PathPrefix("/assets/").Handler(http.StripPrefix("/assets/", http.FileServer(http.Dir(s.assetsDir))))
	}
	static, err := fs.Sub(data, "data")
	if err != nil {
		panic(err)
	}
	r.PathPrefix("/").Handler(http.FileServer(http.FS(static)))
	return r
}

func (s *Server) Handler() http.Handler {
	h := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(s.Router())
	return handlers.LoggingHandler(os.Stdout, h)
}

// StartServer serves until ctx is done
func StartServer(ctx context.Context, addr string, s *Server) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[web] Shutdown error: %v", err)
		}
	}()

	log.Printf("[web] Starting server %v", addr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
