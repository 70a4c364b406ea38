package webui

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"img2img/logging"
	"img2img/metrics"
	"img2img/studio"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100

	// multipartOverhead allows for part headers and boundaries around an
	// image of exactly the upload limit.
	multipartOverhead = 64 << 10
)

type pageData struct {
	Variant     string
	State       string
	AuthEnabled bool
	Upload      string
	Fields      []FieldView
	Output      OutputView
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Variant:     s.cfg.Variant,
		State:       studio.StateIdle.String(),
		AuthEnabled: s.deps.Guard != nil,
		Fields:      newFieldViews(s.deps.Form.Fields()),
		Output:      newOutputView(s.deps.Surface.Current()),
	}
	if s.deps.Status != nil {
		data.State = s.deps.Status.State().String()
	}
	if u := s.deps.Form.Pending(); u != nil {
		data.Upload = fmt.Sprintf("%s (%d bytes)", u.Filename, u.Size())
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.page.Execute(w, data); err != nil {
		s.logger.Error("render page", zap.Error(err))
	}
}

type fieldsResponse struct {
	Fields []FieldView `json:"fields"`
	Errors []string    `json:"errors,omitempty"`
}

func (s *Server) handleGetFields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, fieldsResponse{Fields: newFieldViews(s.deps.Form.Fields())})
}

// handleSetFields accepts a form post or a JSON object of field values.
// Valid fields are stored even when others are rejected.
func (s *Server) handleSetFields(w http.ResponseWriter, r *http.Request) {
	values, err := readFieldValues(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := fieldsResponse{}
	status := http.StatusOK
	if err := s.deps.Form.SetFields(values); err != nil {
		status = http.StatusBadRequest
		resp.Errors = splitErrors(err)
		s.logger.Debug("rejected field values", zap.Strings("errors", resp.Errors))
	}
	resp.Fields = newFieldViews(s.deps.Form.Fields())
	writeJSON(w, status, resp)
}

func readFieldValues(r *http.Request) (map[string]string, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
		dec.UseNumber()
		var raw map[string]any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
		values := make(map[string]string, len(raw))
		for k, v := range raw {
			switch v := v.(type) {
			case nil:
				values[k] = ""
			case string:
				values[k] = v
			case json.Number:
				values[k] = v.String()
			case bool:
				values[k] = strconv.FormatBool(v)
			default:
				return nil, fmt.Errorf("field %q: unsupported JSON value", k)
			}
		}
		return values, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("invalid form body: %w", err)
	}
	values := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		values[k] = r.PostForm.Get(k)
	}
	return values, nil
}

func splitErrors(err error) []string {
	var out []string
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}

type uploadResponse struct {
	Filename string `json:"filename"`
	Size     int    `json:"size"`
}

// handleUpload stores the multipart "image" part in the upload slot. The
// bytes are not decoded until Generate.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.MaxUploadBytes
	tooLarge := func() {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("image larger than %d bytes", limit))
	}
	if r.ContentLength > limit+multipartOverhead {
		tooLarge()
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(limit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			tooLarge()
			return
		}
		writeError(w, http.StatusBadRequest, "expected a multipart upload")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, `missing "image" file`)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading upload failed")
		return
	}
	if int64(len(content)) > limit {
		tooLarge()
		return
	}

	s.deps.Form.Upload(content, header.Filename)
	s.logger.Info("image uploaded", logging.UploadFields(header.Filename, len(content))...)
	writeJSON(w, http.StatusOK, uploadResponse{Filename: header.Filename, Size: len(content)})
}

// handleGenerate runs one press and blocks until it finishes. Failures are
// part of the 200 response because they are already on the output region.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if t := s.deps.Tracker; t != nil {
		if !t.Start() {
			writeError(w, http.StatusServiceUnavailable, "server is shutting down")
			return
		}
		defer t.Done()
	}

	out, err := s.deps.Trigger.OnTrigger(r.Context())
	switch {
	case errors.Is(err, studio.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.logger.Error("generate", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newGenerateResponse(out, s.deps.Surface.Current()))
}

func (s *Server) handleOutput(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newOutputView(s.deps.Surface.Current()))
}

func (s *Server) handleOutputImage(w http.ResponseWriter, r *http.Request) {
	cur := s.deps.Surface.Current()
	if cur.Render == nil {
		http.NotFound(w, r)
		return
	}

	var data []byte
	switch r.PathValue("name") {
	case "input.png":
		data = cur.Render.Input
	case "generated.png":
		data = cur.Render.Generated
	case "figure.png":
		data = cur.Render.Figure
	default:
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("ETag", strconv.Quote(fmt.Sprintf("%s-%d", cur.Render.ID, cur.Version)))
	w.Write(data)
}

type healthResponse struct {
	Status  string           `json:"status"`
	State   string           `json:"state,omitempty"`
	Busy    bool             `json:"busy"`
	Variant string           `json:"variant"`
	Version string           `json:"version"`
	Uptime  string           `json:"uptime"`
	Summary *metrics.Summary `json:"summary,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Variant: s.cfg.Variant,
		Version: s.cfg.Version,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
	}
	if st := s.deps.Status; st != nil {
		resp.State = st.State().String()
		resp.Busy = st.Busy()
	}
	if h := s.deps.History; h != nil {
		sum := h.Summary()
		resp.Summary = &sum
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		http.NotFound(w, r)
		return
	}
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	writeJSON(w, http.StatusOK, s.deps.History.Recent(limit))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
