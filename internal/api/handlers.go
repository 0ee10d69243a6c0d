package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"strconv"

	"github.com/google/uuid"

	"github.com/skywatch-data/lightcurve.report/internal/archive"
	"github.com/skywatch-data/lightcurve.report/internal/db"
	"github.com/skywatch-data/lightcurve.report/internal/httputil"
	"github.com/skywatch-data/lightcurve.report/internal/lightcurve"
	"github.com/skywatch-data/lightcurve.report/internal/render"
	"github.com/skywatch-data/lightcurve.report/internal/tpf"
	"github.com/skywatch-data/lightcurve.report/internal/units"
	"github.com/skywatch-data/lightcurve.report/internal/version"
)

// loadTPF resolves a file id to its cache record and opens the file.
func (s *Server) loadTPF(w http.ResponseWriter, r *http.Request) (*tpf.TargetPixelFile, db.FileRecord, bool) {
	id := r.PathValue("id")
	rec, err := s.db.GetFile(id)
	if errors.Is(err, sql.ErrNoRows) {
		httputil.NotFound(w, fmt.Sprintf("no file with id '%s'", id))
		return nil, rec, false
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to look up file: %v", err))
		return nil, rec, false
	}

	t, err := tpf.Open(rec.Path)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to open '%s': %v", rec.Path, err))
		return nil, rec, false
	}
	return t, rec, true
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.db.ListFiles()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list files: %v", err))
		return
	}
	if files == nil {
		files = []db.FileRecord{}
	}
	httputil.WriteJSON(w, http.StatusOK, files)
}

// fileDetail extends a cache record with metadata read from the file
// itself. RA and Dec are pointers so absent coordinates serialise as
// null rather than NaN.
type fileDetail struct {
	db.FileRecord
	Rows      int      `json:"rows"`
	Cols      int      `json:"cols"`
	TimeScale string   `json:"time_scale"`
	TimeStart *float64 `json:"time_start"`
	TimeEnd   *float64 `json:"time_end"`
	RA        *float64 `json:"ra"`
	Dec       *float64 `json:"dec"`
}

func finitePtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func (s *Server) showFile(w http.ResponseWriter, r *http.Request) {
	t, rec, ok := s.loadTPF(w, r)
	if !ok {
		return
	}

	rows, cols := t.Shape()
	detail := fileDetail{
		FileRecord: rec,
		Rows:       rows,
		Cols:       cols,
		TimeScale:  t.TimeScale(),
	}

	// First and last finite timestamps bound the observation window.
	for i := 0; i < t.NCadences(); i++ {
		if v := t.Time(i); !math.IsNaN(v) {
			detail.TimeStart = finitePtr(v)
			break
		}
	}
	for i := t.NCadences() - 1; i >= 0; i-- {
		if v := t.Time(i); !math.IsNaN(v) {
			detail.TimeEnd = finitePtr(v)
			break
		}
	}

	ra, dec := t.RADec()
	detail.RA = finitePtr(ra)
	detail.Dec = finitePtr(dec)

	httputil.WriteJSON(w, http.StatusOK, detail)
}

// curveParams holds the parsed light curve extraction options shared by
// the JSON, CSV, and PNG endpoints.
type curveParams struct {
	aperture  string
	sigma     float64
	quality   int32
	scale     string
	normalize bool
	bin       int
	flatten   int
}

func (s *Server) parseCurveParams(r *http.Request) (curveParams, error) {
	q := r.URL.Query()
	p := curveParams{
		aperture: "pipeline",
		sigma:    3.0,
		quality:  s.quality,
	}

	if a := q.Get("aperture"); a != "" {
		switch a {
		case "pipeline", "threshold", "all":
			p.aperture = a
		default:
			return p, fmt.Errorf("invalid 'aperture' parameter '%s' (valid: pipeline, threshold, all)", a)
		}
	}
	if sv := q.Get("sigma"); sv != "" {
		parsed, err := strconv.ParseFloat(sv, 64)
		if err != nil || parsed <= 0 {
			return p, fmt.Errorf("invalid 'sigma' parameter '%s'", sv)
		}
		p.sigma = parsed
	}
	if qn := q.Get("quality"); qn != "" {
		mask, ok := tpf.QualityMaskByName(qn)
		if !ok {
			return p, fmt.Errorf("invalid 'quality' parameter '%s' (valid: none, default, hard)", qn)
		}
		p.quality = mask
	}
	// "units" is accepted as an alias for "scale"
	sc := q.Get("scale")
	if sc == "" {
		sc = q.Get("units")
	}
	if sc != "" {
		if !units.IsValid(sc) {
			return p, fmt.Errorf("invalid 'scale' parameter '%s' (valid: %s)", sc, units.GetValidScalesString())
		}
		p.scale = sc
	}
	if nv := q.Get("normalize"); nv != "" {
		parsed, err := strconv.ParseBool(nv)
		if err != nil {
			return p, fmt.Errorf("invalid 'normalize' parameter '%s'", nv)
		}
		p.normalize = parsed
	}
	if bv := q.Get("bin"); bv != "" {
		parsed, err := strconv.Atoi(bv)
		if err != nil || parsed < 1 {
			return p, fmt.Errorf("invalid 'bin' parameter '%s'", bv)
		}
		p.bin = parsed
	}
	if fv := q.Get("flatten"); fv != "" {
		parsed, err := strconv.Atoi(fv)
		if err != nil || parsed < 3 {
			return p, fmt.Errorf("invalid 'flatten' parameter '%s' (window must be at least 3)", fv)
		}
		p.flatten = parsed
	}
	return p, nil
}

// extractCurve runs the full extraction pipeline for one file.
func extractCurve(t *tpf.TargetPixelFile, p curveParams) (*lightcurve.LightCurve, error) {
	var mask tpf.Mask
	switch p.aperture {
	case "threshold":
		mask = t.ThresholdAperture(p.sigma)
	case "all":
		mask = t.AllPixels()
	default:
		mask = t.PipelineAperture()
	}

	lc, err := t.ExtractLightCurve(mask, p.quality)
	if err != nil {
		return nil, err
	}

	if p.flatten > 0 {
		if lc, err = lc.Flatten(p.flatten); err != nil {
			return nil, err
		}
	}
	if p.normalize {
		if lc, err = lc.Normalize(); err != nil {
			return nil, err
		}
	}
	if p.bin > 1 {
		if lc, err = lc.Bin(p.bin); err != nil {
			return nil, err
		}
	}
	if p.scale != "" && p.scale != lc.TimeScale {
		if lc, err = lc.ConvertTimeScale(p.scale); err != nil {
			return nil, err
		}
	}
	return lc, nil
}

// curveResponse is the JSON shape of an extracted light curve.
type curveResponse struct {
	Target    string             `json:"target"`
	Mission   string             `json:"mission"`
	TimeScale string             `json:"time_scale"`
	Aperture  string             `json:"aperture"`
	Pixels    int                `json:"aperture_pixels"`
	Cadences  int                `json:"cadences"`
	Time      []float64          `json:"time"`
	Flux      []float64          `json:"flux"`
	FluxErr   []float64          `json:"flux_err,omitempty"`
	Cadence   []int32            `json:"cadence,omitempty"`
	Quality   []int32            `json:"quality,omitempty"`
	Stats     lightcurve.Summary `json:"stats"`
}

func (s *Server) showLightCurve(w http.ResponseWriter, r *http.Request) {
	t, rec, ok := s.loadTPF(w, r)
	if !ok {
		return
	}

	p, err := s.parseCurveParams(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	lc, err := extractCurve(t, p)
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("failed to extract light curve: %v", err))
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%s_lightcurve.csv", rec.ID))
		if err := lc.WriteCSV(w); err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to write csv: %v", err))
		}
		return
	}

	var pixels int
	switch p.aperture {
	case "threshold":
		pixels = t.ThresholdAperture(p.sigma).CountSelected()
	case "all":
		pixels = t.AllPixels().CountSelected()
	default:
		pixels = t.PipelineAperture().CountSelected()
	}

	httputil.WriteJSON(w, http.StatusOK, curveResponse{
		Target:    rec.Target,
		Mission:   rec.Mission,
		TimeScale: lc.TimeScale,
		Aperture:  p.aperture,
		Pixels:    pixels,
		Cadences:  lc.Len(),
		Time:      lc.Time,
		Flux:      lc.Flux,
		FluxErr:   lc.FluxErr,
		Cadence:   lc.Cadence,
		Quality:   lc.Quality,
		Stats:     lc.Stats(),
	})
}

func (s *Server) frameImage(w http.ResponseWriter, r *http.Request) {
	t, rec, ok := s.loadTPF(w, r)
	if !ok {
		return
	}

	var frame tpf.Frame
	title := rec.Target
	if cv := r.URL.Query().Get("cadence"); cv == "median" {
		frame = t.MedianFrame()
		title += " (median frame)"
	} else {
		idx := 0
		if cv != "" {
			parsed, err := strconv.Atoi(cv)
			if err != nil || parsed < 0 || parsed >= t.NCadences() {
				httputil.BadRequest(w,
					fmt.Sprintf("invalid 'cadence' parameter '%s' (0..%d or 'median')", cv, t.NCadences()-1))
				return
			}
			idx = parsed
		}
		frame = t.Flux(idx)
		title += fmt.Sprintf(" (cadence %d)", idx)
	}

	var buf bytes.Buffer
	if err := render.WriteFramePNG(&buf, frame, title); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render frame: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) curveImage(w http.ResponseWriter, r *http.Request) {
	t, rec, ok := s.loadTPF(w, r)
	if !ok {
		return
	}

	p, err := s.parseCurveParams(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	lc, err := extractCurve(t, p)
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("failed to extract light curve: %v", err))
		return
	}

	var buf bytes.Buffer
	if err := render.WriteCurvePNG(&buf, lc, rec.Target); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render curve: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) debugChart(w http.ResponseWriter, r *http.Request) {
	t, rec, ok := s.loadTPF(w, r)
	if !ok {
		return
	}

	p, err := s.parseCurveParams(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	lc, err := extractCurve(t, p)
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("failed to extract light curve: %v", err))
		return
	}

	var buf bytes.Buffer
	if err := render.WriteTargetHTML(&buf, t.MedianFrame(), lc, rec.Target); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render charts: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// deleteFile drops a file from the index and removes it from the cache.
func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := s.db.GetFile(id)
	if errors.Is(err, sql.ErrNoRows) {
		httputil.NotFound(w, fmt.Sprintf("no file with id '%s'", id))
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to look up file: %v", err))
		return
	}

	if err := s.db.DeleteFile(id); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to delete record: %v", err))
		return
	}
	if err := os.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
		httputil.InternalServerError(w, fmt.Sprintf("record removed but file deletion failed: %v", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fetchRequest is the JSON body of POST /api/fetch.
type fetchRequest struct {
	Target   string `json:"target"`
	Mission  string `json:"mission"`
	Quarter  int    `json:"quarter"`
	Sector   int    `json:"sector"`
	Campaign int    `json:"campaign"`
}

func (s *Server) fetchTarget(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil || s.downloader == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "archive client not configured")
		return
	}

	var req fetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Target == "" {
		httputil.BadRequest(w, "missing 'target'")
		return
	}

	products, err := s.archive.Search(r.Context(), req.Target, archive.SearchOptions{
		Mission:  req.Mission,
		Quarter:  req.Quarter,
		Sector:   req.Sector,
		Campaign: req.Campaign,
		Limit:    1,
	})
	if errors.Is(err, archive.ErrNotFound) {
		httputil.NotFound(w, fmt.Sprintf("no products found for target '%s'", req.Target))
		return
	}
	if err != nil {
		httputil.WriteJSONError(w, http.StatusBadGateway, fmt.Sprintf("archive search failed: %v", err))
		return
	}

	product := products[0]
	path, err := s.downloader.Download(r.Context(), product)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusBadGateway, fmt.Sprintf("download failed: %v", err))
		return
	}

	t, err := tpf.Open(path)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("downloaded file is not readable: %v", err))
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to stat download: %v", err))
		return
	}

	rec := db.FileRecord{
		ID:       "tpf_" + uuid.NewString(),
		Target:   product.Target,
		Object:   t.Object(),
		Mission:  t.Mission(),
		Path:     path,
		Size:     info.Size(),
		Cadences: t.NCadences(),
	}
	if period := t.ObservingPeriod(); period >= 0 {
		if t.Mission() == "TESS" {
			rec.Sector = period
		} else {
			rec.Quarter = period
		}
	}

	if err := s.db.RecordFile(rec); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to index download: %v", err))
		return
	}

	// A re-fetch of a cached product upserts onto the existing row, so
	// read back the stored record rather than returning rec.
	stored, err := s.db.GetFileByPath(path)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to read back record: %v", err))
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, stored)
}

func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.Stats()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to read cache stats: %v", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"cache_dir":  s.cacheDir,
		"quality":    s.quality,
		"time_scale": s.timeScale,
	})
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}
