// Package api exposes student workspaces over JSON/HTTP. The student is
// identified by the X-Student-ID header set by the upstream auth proxy.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/pai-study/internal/conversation"
	"github.com/p-n-ai/pai-study/internal/identity"
	"github.com/p-n-ai/pai-study/internal/profile"
	"github.com/p-n-ai/pai-study/internal/progress"
	"github.com/p-n-ai/pai-study/internal/quiz"
	"github.com/p-n-ai/pai-study/internal/workspace"
)

const (
	HeaderStudentID   = "X-Student-ID"
	HeaderStudentName = "X-Student-Name"

	maxBodyBytes = 64 << 10
)

// Handler serves the /v1 API.
type Handler struct {
	reg *workspace.Registry
}

func NewHandler(reg *workspace.Registry) *Handler {
	return &Handler{reg: reg}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/library", h.authed(h.handleLibrary))

	mux.HandleFunc("PUT /v1/scope", h.authed(h.handleSetScope))
	mux.HandleFunc("DELETE /v1/scope", h.authed(h.handleClearScope))

	mux.HandleFunc("GET /v1/conversation", h.authed(h.handleConversation))
	mux.HandleFunc("POST /v1/conversation/messages", h.authed(h.handleSendMessage))

	mux.HandleFunc("GET /v1/quiz", h.authed(h.handleGetQuiz))
	mux.HandleFunc("POST /v1/quiz", h.authed(h.handleGenerateQuiz))
	mux.HandleFunc("DELETE /v1/quiz", h.authed(h.handleDiscardQuiz))
	mux.HandleFunc("PUT /v1/quiz/answers/{index}", h.authed(h.handleSelectAnswer))
	mux.HandleFunc("POST /v1/quiz/finalize", h.authed(h.handleFinalizeQuiz))

	mux.HandleFunc("GET /v1/dashboard", h.authed(h.handleDashboard))
	mux.HandleFunc("GET /v1/dashboard/report.xlsx", h.authed(h.handleDashboardReport))

	mux.HandleFunc("GET /v1/profile", h.authed(h.handleGetProfile))
	mux.HandleFunc("PATCH /v1/profile", h.authed(h.handlePatchProfile))
}

type authedHandler func(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace, id identity.Identity)

func (h *Handler) authed(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identity.Identity{
			StudentID:   r.Header.Get(HeaderStudentID),
			DisplayName: r.Header.Get(HeaderStudentName),
		}
		if id.StudentID == "" {
			writeError(w, http.StatusUnauthorized, "missing "+HeaderStudentID+" header")
			return
		}
		ws, err := h.reg.Get(id)
		if err != nil {
			writeErr(w, err)
			return
		}
		next(w, r, ws, id)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeErr maps domain errors onto HTTP statuses.
func writeErr(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, workspace.ErrSignedOut):
		return http.StatusUnauthorized
	case errors.Is(err, workspace.ErrUnknownChapter),
		errors.Is(err, workspace.ErrUnknownSubject),
		errors.Is(err, quiz.ErrNoQuiz):
		return http.StatusNotFound
	case errors.Is(err, conversation.ErrEmptyMessage),
		errors.Is(err, quiz.ErrNoTopic),
		errors.Is(err, quiz.ErrUnknownItem),
		errors.Is(err, quiz.ErrUnknownOption),
		errors.Is(err, profile.ErrInvalidProfile),
		errors.Is(err, progress.ErrNonPositiveGoal):
		return http.StatusBadRequest
	case errors.Is(err, conversation.ErrBusy),
		errors.Is(err, conversation.ErrStale),
		errors.Is(err, quiz.ErrBusy),
		errors.Is(err, quiz.ErrStale),
		errors.Is(err, quiz.ErrFinalized),
		errors.Is(err, quiz.ErrIncomplete):
		return http.StatusConflict
	case errors.Is(err, quiz.ErrMalformedQuiz):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
