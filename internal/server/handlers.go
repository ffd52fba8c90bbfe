package server

import (
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	openai "github.com/danilofalcao/llama-gateway/internal/api/openai/v1"
	"github.com/danilofalcao/llama-gateway/internal/auth"
	"github.com/danilofalcao/llama-gateway/internal/backend"
	"github.com/danilofalcao/llama-gateway/internal/server/response"
	logutils "github.com/danilofalcao/llama-gateway/internal/utils/logger"
	"github.com/pkg/errors"
)

const ownedBy = "llama.cpp"

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lgr := logutils.FromContext(ctx)
	// Validate request method
	if r.Method != http.MethodPost {
		lgr.Infof(ctx, "Invalid method %s", r.Method)
		response.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	form, images, err := parseChatForm(r)
	if err != nil {
		lgr.Error(ctx, err.Error())
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	content := form.Get("content")
	if strings.TrimSpace(content) == "" {
		response.WriteError(w, http.StatusBadRequest, "Missing prompt content")
		return
	}

	schema, err := backend.ParseSchema(form.Get("json_schema"))
	if err != nil {
		lgr.Warnf(ctx, "rejecting json_schema: %s", err)
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := &backend.Request{
		Model:        strings.TrimSpace(form.Get("model")),
		Content:      content,
		Mode:         backend.ParseMode(form.Get("llama_mode")),
		SystemPrompt: form.Get("system_prompt"),
		Images:       images,
		Schema:       schema,
	}
	if req.Model == "" {
		req.Model = s.defaultModel
	}
	if req.Mode == "" {
		req.Mode = backend.ModeCLI
	}

	lgr.Debugf(ctx, "chat request from %s: model=%s mode=%s images=%d",
		auth.PrincipalFromContext(ctx), req.Model, req.Mode, len(req.Images))

	res, err := s.dispatcher.Route(ctx, req)
	if err != nil {
		status := response.StatusFor(err)
		lgr.Errorf(ctx, "chat failed with %d: %s", status, err)
		response.WriteError(w, status, err.Error())
		return
	}

	w.Header().Set("X-Backend", res.Backend)
	if err := response.WriteJSON(w, http.StatusOK, res.Text); err != nil {
		lgr.Error(ctx, errors.Wrap(err, "error encoding response").Error())
	}
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lgr := logutils.FromContext(ctx)
	// Validate request method
	if r.Method != http.MethodGet {
		lgr.Infof(ctx, "Invalid method %s", r.Method)
		response.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	resp := openai.ModelsResponse{Object: "list", Data: []openai.Model{}}
	if s.models != nil {
		for _, name := range s.models.List() {
			resp.Data = append(resp.Data, openai.Model{ID: name, Object: "model", OwnedBy: ownedBy})
		}
	}

	if err := response.WriteJSON(w, http.StatusOK, resp); err != nil {
		lgr.Error(ctx, errors.Wrap(err, "error encoding response").Error())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		response.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseChatForm reads the form fields and, for multipart bodies, every
// uploaded file in the order it was sent.
func parseChatForm(r *http.Request) (url.Values, []backend.Image, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		if err := r.ParseForm(); err != nil {
			return nil, nil, errors.Wrap(err, "error parsing form")
		}
		return r.PostForm, nil, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, nil, errors.Wrap(err, "error parsing multipart form")
	}

	values := url.Values{}
	var images []backend.Image
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrap(err, "error parsing multipart form")
		}
		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, nil, errors.Wrap(err, "error reading multipart form")
		}

		switch {
		case part.FileName() != "":
			images = append(images, backend.Image{Filename: part.FileName(), Data: data})
		case part.FormName() != "":
			values.Add(part.FormName(), string(data))
		}
	}
	return values, images, nil
}
