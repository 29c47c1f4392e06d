package web

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/mogaika/model_viewer/config"
	"github.com/mogaika/model_viewer/loader"
	"github.com/mogaika/model_viewer/render"
	"github.com/mogaika/model_viewer/viewer"
	"github.com/mogaika/model_viewer/webutils"
)

type stateResponse struct {
	viewer.Info
	Loading bool         `json:"loading"`
	Render  render.Stats `json:"render"`
}

func (s *Server) HandlerState(w http.ResponseWriter, r *http.Request) {
	info, err := s.viewer.Info(r.Context())
	if err != nil {
		webutils.WriteError(w, http.StatusServiceUnavailable, err)
		return
	}
	webutils.WriteJson(w, &stateResponse{
		Info:    info,
		Loading: s.hub.LoadingVisible(),
		Render:  s.frames.Stats(),
	})
}

func (s *Server) HandlerConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.viewer.Config()
	if r.URL.Query().Get("format") == "yaml" {
		webutils.WriteYaml(w, &cfg)
	} else {
		webutils.WriteJson(w, &cfg)
	}
}

func (s *Server) HandlerDumpConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.viewer.Config()
	data, err := cfg.YAML()
	if err != nil {
		webutils.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	webutils.WriteFile(w, bytes.NewReader(data), "config.yaml")
}

func (s *Server) HandlerFrame(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.frames.EncodePNG(&buf); err != nil {
		webutils.WriteError(w, http.StatusServiceUnavailable, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	webutils.WriteResult(w, buf.Bytes())
}

func (s *Server) HandlerResize(w http.ResponseWriter, r *http.Request) {
	width, errW := strconv.Atoi(mux.Vars(r)["width"])
	height, errH := strconv.Atoi(mux.Vars(r)["height"])
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		webutils.WriteError(w, http.StatusBadRequest, errors.Errorf("invalid size %sx%s",
			mux.Vars(r)["width"], mux.Vars(r)["height"]))
		return
	}
	s.viewer.Resize(width, height)
	webutils.WriteJson(w, map[string]int{"width": width, "height": height})
}

func (s *Server) HandlerOrbit(w http.ResponseWriter, r *http.Request) {
	var params [5]float32
	for i, key := range []string{"theta", "phi", "zoom", "panx", "pany"} {
		def := float32(0)
		if key == "zoom" {
			def = 1
		}
		v, err := webutils.FloatParam(r, key, def)
		if err != nil {
			webutils.WriteError(w, http.StatusBadRequest, err)
			return
		}
		params[i] = v
	}
	if err := s.viewer.Orbit(r.Context(), params[0], params[1], params[2], params[3], params[4]); err != nil {
		webutils.WriteError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.HandlerState(w, r)
}

func (s *Server) HandlerReset(w http.ResponseWriter, r *http.Request) {
	if err := s.viewer.ResetView(r.Context()); err != nil {
		webutils.WriteError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.HandlerState(w, r)
}

func (s *Server) HandlerLoad(w http.ResponseWriter, r *http.Request) {
	model := mux.Vars(r)["model"]
	if err := config.ValidateModelName(model); err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.viewer.Load(model); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, loader.ErrLoadInFlight) {
			code = http.StatusConflict
		}
		webutils.WriteError(w, code, err)
		return
	}
	webutils.WriteJson(w, map[string]string{"model": model, "phase": "loading"})
}

func (s *Server) HandlerDumpModel(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.viewer.ExportGLB(r.Context(), &buf); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, viewer.ErrNoModel) {
			code = http.StatusNotFound
		}
		webutils.WriteError(w, code, err)
		return
	}
	info, err := s.viewer.Info(r.Context())
	name := "model"
	if err == nil && info.Model != "" {
		name = info.Model
	}
	webutils.WriteFile(w, &buf, name+".glb")
}

func (s *Server) HandlerStatus(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader already replied
		return
	}
	s.hub.NewClient(conn)
}
