package handler

import (
	"contest_room/internal/api/view"
	"contest_room/internal/app/service"
	"contest_room/internal/common"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// maxSubmissionBytes caps the submit body; source files are small.
const maxSubmissionBytes = 1 << 20

type ContestHandler struct {
	contestService *service.ContestService
	logger         *slog.Logger
}

func NewContestHandler(cs *service.ContestService, logger *slog.Logger) *ContestHandler {
	return &ContestHandler{contestService: cs, logger: logger}
}

func (h *ContestHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.home)
	r.Get("/create-room", h.createRoom)
	r.Get("/join-room", h.joinRoom)
	r.Post("/submit-code", h.submitCode)
}

func (h *ContestHandler) home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.Home)
}

func (h *ContestHandler) createRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.contestService.CreateRoom(r.Context())
	if err != nil {
		respondWithDomainError(w, r, h.logger, err)
		return
	}
	h.render(w, r, http.StatusOK, func() ([]byte, error) { return view.RoomCreated(room) })
}

func (h *ContestHandler) joinRoom(w http.ResponseWriter, r *http.Request) {
	details, err := h.contestService.JoinRoom(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		respondWithDomainError(w, r, h.logger, err)
		return
	}
	h.render(w, r, http.StatusOK, func() ([]byte, error) { return view.Join(details) })
}

func (h *ContestHandler) submitCode(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSubmissionBytes)

	req, err := decodeSubmission(r)
	if err != nil {
		respondWithDomainError(w, r, h.logger, common.Errorf("invalid submission: %v: %w", err, common.ErrBadRequest))
		return
	}

	result, err := h.contestService.SubmitCode(r.Context(), req)
	if err != nil {
		respondWithDomainError(w, r, h.logger, err)
		return
	}
	h.render(w, r, http.StatusOK, func() ([]byte, error) { return view.Submitted(result) })
}

// decodeSubmission accepts a JSON body or regular form fields.
func decodeSubmission(r *http.Request) (service.SubmitCodeRequest, error) {
	var req service.SubmitCodeRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, err
		}
		return req, nil
	}
	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req.RoomCode = r.PostFormValue("roomCode")
	req.Username = r.PostFormValue("username")
	req.Code = r.PostFormValue("code")
	req.Language = r.PostFormValue("language")
	return req, nil
}

func (h *ContestHandler) render(w http.ResponseWriter, r *http.Request, status int, page func() ([]byte, error)) {
	body, err := page()
	if err != nil {
		respondWithDomainError(w, r, h.logger, common.Errorf("render: %v: %w", err, common.ErrInternalServer))
		return
	}
	common.RespondWithHTML(w, status, body)
}

// respondWithDomainError picks the page for err. Server-side failures are logged and shown
// without detail.
func respondWithDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := common.HTTPStatusFromError(err)

	var (
		body    []byte
		viewErr error
	)
	switch {
	case errors.Is(err, common.ErrNotFound):
		body, viewErr = view.RoomNotFound()
	case errors.Is(err, common.ErrContestOver):
		body, viewErr = view.ContestOver()
	case status >= http.StatusInternalServerError:
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chiMiddleware.GetReqID(r.Context()),
			"error", err)
		body, viewErr = view.Error("Submission failed, please try again later")
	default:
		body, viewErr = view.Error(err.Error())
	}
	if viewErr != nil {
		common.RespondWithError(w, status, http.StatusText(status))
		return
	}
	common.RespondWithHTML(w, status, body)
}
