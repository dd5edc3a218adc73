package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"shule-quiz-service/internal/domain"
	"shule-quiz-service/internal/generator"
	"shule-quiz-service/internal/quiz"
)

// NewRouter mounts the quiz API and the websocket attempt channel.
func NewRouter(engine *quiz.Engine, ws *WSHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Route("/api", func(r chi.Router) {
		r.Post("/profiles", CreateProfileHandler(engine))
		r.Get("/profiles/{profileID}", GetProfileHandler(engine))
		r.Post("/sessions", CreateSessionHandler(engine))
		r.Get("/sessions/{sessionID}", GetSessionHandler(engine))
		r.Post("/sessions/{sessionID}/answers", SubmitAnswerHandler(engine))
		r.Post("/sessions/{sessionID}/complete", CompleteQuizHandler(engine))
		r.Post("/notes", TopicNotesHandler(engine))
	})
	if ws != nil {
		r.Get("/ws", ws.ServeWS)
	}
	return r
}

type sessionResponse struct {
	domain.Session
	CurrentQuestionIndex int `json:"currentQuestionIndex"`
	CorrectAnswers       int `json:"correctAnswers"`
}

func CreateSessionHandler(engine *quiz.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req quiz.CreateSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		if req.UserID == "" || req.ProfileID == "" || req.Subject == "" {
			writeError(w, http.StatusBadRequest, "userId, profileId, and subject required")
			return
		}
		session, err := engine.CreateSession(r.Context(), req)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		session.Snapshot = quiz.RedactSnapshot(session.Snapshot)
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, sessionResponse{Session: session})
	}
}

func GetSessionHandler(engine *quiz.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		session, cursor, correct, err := engine.GetSession(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, sessionResponse{
			Session:              session,
			CurrentQuestionIndex: cursor,
			CorrectAnswers:       correct,
		})
	}
}

func SubmitAnswerHandler(engine *quiz.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		var sub domain.AnswerSubmission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		if sub.QuestionID == "" || sub.Choice == "" {
			writeError(w, http.StatusBadRequest, "questionId and choice required")
			return
		}
		result, err := engine.SubmitAnswer(r.Context(), id, sub)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, result)
	}
}

func CompleteQuizHandler(engine *quiz.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		result, err := engine.Complete(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, result)
	}
}

func CreateProfileHandler(engine *quiz.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID     string `json:"userId"`
			Curriculum string `json:"curriculum"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		if req.UserID == "" {
			writeError(w, http.StatusBadRequest, "userId required")
			return
		}
		profile, err := engine.CreateProfile(r.Context(), req.UserID, req.Curriculum)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, profile)
	}
}

func GetProfileHandler(engine *quiz.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "profileID")
		profile, err := engine.GetProfile(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, profile)
	}
}

func TopicNotesHandler(engine *quiz.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var gc domain.GenerationContext
		if err := json.NewDecoder(r.Body).Decode(&gc); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		if gc.Subject == "" {
			writeError(w, http.StatusBadRequest, "subject required")
			return
		}
		notes, err := engine.GenerateTopicNotes(r.Context(), gc)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, map[string]string{"notes": notes})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// writeDomainError maps sentinel errors onto HTTP statuses; generator
// failures surface as bad gateway, everything else as internal failure.
func writeDomainError(w http.ResponseWriter, err error) {
	var genErr *generator.GenerateError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrProfileNotFound),
		errors.Is(err, domain.ErrTemplateNotFound),
		errors.Is(err, domain.ErrQuestionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrSessionCompleted),
		errors.Is(err, domain.ErrQuestionAnswered),
		errors.Is(err, domain.ErrNoQuestionsLeft):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrChoiceNotFound),
		errors.Is(err, domain.ErrInvalidBatch):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &genErr):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
