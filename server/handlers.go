package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/minios-linux/lehrer/block"
	"github.com/minios-linux/lehrer/pipeline"
	"github.com/minios-linux/lehrer/render"
	"github.com/minios-linux/lehrer/sentence"
)

type renderRequest struct {
	Block     string `json:"block"`
	Separator string `json:"separator,omitempty"`
}

type sentencesRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	if o := s.opts.Runner.Orchestrator; o != nil && o.Translator != nil {
		resp["translator"] = o.Translator.Name()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRender runs the pipeline on one block. The response is the JSON
// result unless ?format= asks for html, markdown or text.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	format := render.FormatJSON
	if q := r.URL.Query().Get("format"); q != "" {
		f, err := render.ParseFormat(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		format = f
	}

	var req renderRequest
	if isJSON(r) {
		if err := s.decodeJSON(w, r, &req); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
	} else {
		body, err := s.readBody(w, r)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		req.Block = body
		req.Separator = r.URL.Query().Get("separator")
	}

	runner := *s.opts.Runner
	if req.Separator != "" {
		sep, err := block.ParseSeparator(req.Separator)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		runner.Separator = sep
	}

	res, err := runner.Run(r.Context(), req.Block)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrTranslation) {
			status = http.StatusBadGateway
		}
		s.log.Warn().Err(err).Int("status", status).Msg("render failed")
		writeError(w, status, err)
		return
	}

	if format == render.FormatJSON {
		writeJSON(w, http.StatusOK, res)
		return
	}

	var buf bytes.Buffer
	if err := render.Write(&buf, format, res); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	ct := "text/plain; charset=utf-8"
	switch format {
	case render.FormatHTML:
		ct = "text/html; charset=utf-8"
	case render.FormatMarkdown:
		ct = "text/markdown; charset=utf-8"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleSentences(w http.ResponseWriter, r *http.Request) {
	var text string
	if isJSON(r) {
		var req sentencesRequest
		if err := s.decodeJSON(w, r, &req); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		text = req.Text
	} else {
		body, err := s.readBody(w, r)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		text = body
	}

	out := sentence.Tokenize(text)
	if out == nil {
		out = []string{}
	}
	writeJSON(w, http.StatusOK, out)
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) (string, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

var errBadJSON = errors.New("malformed JSON body")

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return err
		}
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	return nil
}

func statusFor(err error) int {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
