package api

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/p-n-ai/pai-study/internal/conversation"
	"github.com/p-n-ai/pai-study/internal/dashboard"
	"github.com/p-n-ai/pai-study/internal/identity"
	"github.com/p-n-ai/pai-study/internal/library"
	"github.com/p-n-ai/pai-study/internal/profile"
	"github.com/p-n-ai/pai-study/internal/quiz"
	"github.com/p-n-ai/pai-study/internal/scope"
	"github.com/p-n-ai/pai-study/internal/workspace"
)

type libraryView struct {
	Grade    int               `json:"grade,omitempty"`
	Subjects []library.Subject `json:"subjects"`
}

// handleLibrary lists chapters for the student's grade; ?grade=all lists
// everything and ?grade=N overrides the profile grade.
func (h *Handler) handleLibrary(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace, _ identity.Identity) {
	catalog := h.reg.Library()

	switch g := r.URL.Query().Get("grade"); g {
	case "all":
		writeJSON(w, http.StatusOK, libraryView{Subjects: catalog.Subjects()})
	case "":
		grade := ws.Grade(r.Context())
		writeJSON(w, http.StatusOK, libraryView{Grade: grade, Subjects: catalog.ForGrade(grade).Subjects()})
	default:
		grade, err := strconv.Atoi(g)
		if err != nil {
			writeError(w, http.StatusBadRequest, "grade must be a number or 'all'")
			return
		}
		writeJSON(w, http.StatusOK, libraryView{Grade: grade, Subjects: catalog.ForGrade(grade).Subjects()})
	}
}

type scopeView struct {
	Kind       string `json:"kind"`
	Subject    string `json:"subject,omitempty"`
	ChapterID  string `json:"chapter_id,omitempty"`
	Title      string `json:"title,omitempty"`
	Generation uint64 `json:"generation"`
}

func newScopeView(s scope.Scope, gen uint64) scopeView {
	return scopeView{
		Kind:       s.Kind().String(),
		Subject:    s.Subject(),
		ChapterID:  s.ChapterID(),
		Title:      s.Title(),
		Generation: gen,
	}
}

type setScopeRequest struct {
	Subject   string `json:"subject"`
	ChapterID string `json:"chapter_id"`
}

func (h *Handler) handleSetScope(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace, _ identity.Identity) {
	var req setScopeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	switch {
	case req.ChapterID != "":
		if err := ws.SelectChapter(r.Context(), req.ChapterID); err != nil {
			writeErr(w, err)
			return
		}
	case req.Subject != "":
		if _, err := ws.SelectSubject(req.Subject); err != nil {
			writeErr(w, err)
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "subject or chapter_id is required")
		return
	}

	writeJSON(w, http.StatusOK, newScopeView(ws.Resolver.Current()))
}

func (h *Handler) handleClearScope(w http.ResponseWriter, _ *http.Request, ws *workspace.Workspace, _ identity.Identity) {
	c := ws.Resolver.Clear()
	writeJSON(w, http.StatusOK, newScopeView(c.Scope, c.Generation))
}

type conversationView struct {
	Scope      scopeView               `json:"scope"`
	Busy       bool                    `json:"busy"`
	Transcript []conversation.Exchange `json:"transcript"`
}

func (h *Handler) conversationView(ws *workspace.Workspace) conversationView {
	s, gen := ws.Resolver.Current()
	return conversationView{
		Scope:      newScopeView(s, gen),
		Busy:       ws.Conversation.Busy(),
		Transcript: ws.Conversation.Transcript(),
	}
}

func (h *Handler) handleConversation(w http.ResponseWriter, _ *http.Request, ws *workspace.Workspace, _ identity.Identity) {
	writeJSON(w, http.StatusOK, h.conversationView(ws))
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type sendMessageResponse struct {
	Reply conversation.Exchange `json:"reply"`
	conversationView
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace, _ identity.Identity) {
	var req sendMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	reply, err := ws.Conversation.Send(r.Context(), req.Text)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sendMessageResponse{Reply: reply, conversationView: h.conversationView(ws)})
}

type quizItemView struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Correct string   `json:"correct,omitempty"`
}

type quizView struct {
	ID         string           `json:"id"`
	Topic      string           `json:"topic"`
	Items      []quizItemView   `json:"items"`
	Flashcards []quiz.Flashcard `json:"flashcards"`
	Answers    map[int]string   `json:"answers"`
	Finalized  bool             `json:"finalized"`
	Score      *int             `json:"score,omitempty"`
}

// newQuizView hides the correct options until the quiz is finalized.
func newQuizView(q quiz.Quiz) quizView {
	v := quizView{
		ID:         q.ID,
		Topic:      q.Topic,
		Flashcards: q.Flashcards,
		Answers:    q.Answers,
		Finalized:  q.Finalized,
	}
	for _, it := range q.Items {
		item := quizItemView{Prompt: it.Prompt, Options: it.Options}
		if q.Finalized {
			item.Correct = it.Correct
		}
		v.Items = append(v.Items, item)
	}
	if q.Finalized {
		score := q.Score
		v.Score = &score
	}
	return v
}

func (h *Handler) handleGetQuiz(w http.ResponseWriter, _ *http.Request, ws *workspace.Workspace, _ identity.Identity) {
	q, ok := ws.Quiz.Current()
	if !ok {
		writeErr(w, quiz.ErrNoQuiz)
		return
	}
	writeJSON(w, http.StatusOK, newQuizView(q))
}

type generateQuizRequest struct {
	Topic string `json:"topic"`
}

func (h *Handler) handleGenerateQuiz(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace, _ identity.Identity) {
	var req generateQuizRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	q, err := ws.Quiz.Generate(r.Context(), req.Topic)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			// Transport failures from the inference service.
			status = http.StatusBadGateway
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, newQuizView(q))
}

func (h *Handler) handleDiscardQuiz(w http.ResponseWriter, _ *http.Request, ws *workspace.Workspace, _ identity.Identity) {
	ws.Quiz.Discard()
	w.WriteHeader(http.StatusNoContent)
}

type selectAnswerRequest struct {
	Option string `json:"option"`
}

func (h *Handler) handleSelectAnswer(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace, _ identity.Identity) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be a number")
		return
	}
	var req selectAnswerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := ws.Quiz.SelectAnswer(index, req.Option); err != nil {
		writeErr(w, err)
		return
	}
	q, _ := ws.Quiz.Current()
	writeJSON(w, http.StatusOK, newQuizView(q))
}

func (h *Handler) handleFinalizeQuiz(w http.ResponseWriter, _ *http.Request, ws *workspace.Workspace, _ identity.Identity) {
	if _, err := ws.Quiz.Finalize(); err != nil {
		writeErr(w, err)
		return
	}
	q, _ := ws.Quiz.Current()
	writeJSON(w, http.StatusOK, newQuizView(q))
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request, _ *workspace.Workspace, id identity.Identity) {
	d, err := h.reg.Dashboard(r.Context(), id)
	if err != nil {
		slog.Error("dashboard load failed", "student_id", id.StudentID, "error", err)
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) handleDashboardReport(w http.ResponseWriter, r *http.Request, _ *workspace.Workspace, id identity.Identity) {
	d, err := h.reg.Dashboard(r.Context(), id)
	if err != nil {
		slog.Error("dashboard load failed", "student_id", id.StudentID, "error", err)
		writeErr(w, err)
		return
	}

	var buf bytes.Buffer
	if err := dashboard.WriteReport(&buf, d); err != nil {
		slog.Error("dashboard report failed", "student_id", id.StudentID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not render report")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="study-report.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Warn("failed to write report", "error", err)
	}
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request, _ *workspace.Workspace, id identity.Identity) {
	p, err := profile.Load(r.Context(), h.reg.Profiles(), id.StudentID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handlePatchProfile(w http.ResponseWriter, r *http.Request, _ *workspace.Workspace, id identity.Identity) {
	var patch profile.Patch
	if !decodeBody(w, r, &patch) {
		return
	}

	if err := h.reg.Profiles().Write(r.Context(), id.StudentID, patch); err != nil {
		if !errors.Is(err, profile.ErrInvalidProfile) {
			slog.Error("profile write failed", "student_id", id.StudentID, "error", err)
		}
		writeErr(w, err)
		return
	}

	p, err := profile.Load(r.Context(), h.reg.Profiles(), id.StudentID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
