package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/roofsolar/internal/export"
	"github.com/sells-group/roofsolar/internal/model"
	"github.com/sells-group/roofsolar/internal/roof"
	"github.com/sells-group/roofsolar/internal/survey"
)

// SceneSummary counts what a render pass would show.
type SceneSummary struct {
	Segments   int            `json:"segments"`
	Visible    int            `json:"visible"`
	Hidden     map[string]int `json:"hidden"`
	Panels     int            `json:"panels"`
	Orphaned   int            `json:"orphaned"`
	Suppressed int            `json:"suppressed"`
}

// Summarize reports segment visibility and panel counts for scene.
func Summarize(scene roof.Scene) SceneSummary {
	sum := SceneSummary{
		Segments:   len(scene.Segments),
		Hidden:     map[string]int{},
		Panels:     len(scene.Panels),
		Orphaned:   scene.Orphaned,
		Suppressed: scene.Suppressed,
	}
	for _, seg := range scene.Segments {
		if seg.Hidden == roof.HideNone {
			sum.Visible++
			continue
		}
		sum.Hidden[string(seg.Hidden)]++
	}
	return sum
}

type viewResponse struct {
	ID      string              `json:"id,omitempty"`
	View    model.SolarViewData `json:"view"`
	Summary SceneSummary        `json:"summary"`
}

func wantsGeoJSON(r *http.Request) bool {
	return r.URL.Query().Get("format") == "geojson"
}

func (s *Server) writeScene(w http.ResponseWriter, status int, scene roof.Scene) {
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(status)
	if err := export.WriteGeoJSON(w, scene); err != nil {
		s.log.Warn("write geojson", zap.Error(err))
	}
}

func (s *Server) createView(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	payload, err := survey.Decode(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid survey payload")
		return
	}
	view := survey.Map(payload)
	scene := roof.BuildScene(view, s.scene)

	resp := viewResponse{View: view, Summary: Summarize(scene)}
	status := http.StatusOK
	if s.shouldPersist(r) {
		rows, err := export.SegmentRows(scene)
		if err != nil {
			s.log.Error("segment rows", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "geometry encoding failed")
			return
		}
		rec, err := s.store.CreateView(r.Context(), r.URL.Query().Get("label"), view, rows)
		if err != nil {
			s.storeFailure(w, err, "create view")
			return
		}
		resp.ID = rec.ID
		status = http.StatusCreated
	}

	if wantsGeoJSON(r) {
		if resp.ID != "" {
			w.Header().Set("Location", "/v1/views/"+resp.ID)
		}
		s.writeScene(w, status, scene)
		return
	}
	writeJSON(w, status, resp)
}

func (s *Server) getView(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	rec, err := s.store.GetView(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeFailure(w, err, "get view")
		return
	}
	scene := roof.BuildScene(rec.View, s.scene)
	if wantsGeoJSON(r) {
		s.writeScene(w, http.StatusOK, scene)
		return
	}
	writeJSON(w, http.StatusOK, viewResponse{ID: rec.ID, View: rec.View, Summary: Summarize(scene)})
}

// listViewSegments returns the stored segment footprints of a view as GeoJSON.
func (s *Server) listViewSegments(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	id := chi.URLParam(r, "id")
	rec, err := s.store.GetView(r.Context(), id)
	if err != nil {
		s.storeFailure(w, err, "get view")
		return
	}
	rows, err := s.store.ListSegments(r.Context(), id)
	if err != nil {
		s.storeFailure(w, err, "list segments")
		return
	}
	fc, err := export.SegmentFeatures(rows, rec.View)
	if err != nil {
		s.log.Error("segment features", zap.String("view", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "geometry decoding failed")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	if err := export.WriteFeatures(w, fc); err != nil {
		s.log.Warn("write geojson", zap.Error(err))
	}
}

func (s *Server) deleteView(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	if err := s.store.DeleteView(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.storeFailure(w, err, "delete view")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
