package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/jonathan/cv-builder/internal/conversation"
	"github.com/jonathan/cv-builder/internal/types"
)

// maxInputBytes bounds a single user message.
const maxInputBytes = 16 << 10

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// CreateSessionRequest is the body of POST /sessions. Both fields are optional.
type CreateSessionRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Language  string `json:"language,omitempty"`
}

// MessageRequest is the body of POST /sessions/{id}/messages.
type MessageRequest struct {
	Text string `json:"text"`
}

// ReplyResponse is returned by every turn endpoint.
type ReplyResponse struct {
	SessionID string       `json:"session_id"`
	Message   string       `json:"message"`
	Section   string       `json:"current_section"`
	Complete  bool         `json:"is_complete"`
	State     *types.State `json:"state,omitempty"`
}

func newReplyResponse(r *conversation.Reply) ReplyResponse {
	return ReplyResponse{
		SessionID: r.SessionID,
		Message:   r.Message,
		Section:   string(r.State.CurrentSection),
		Complete:  r.State.IsComplete,
		State:     r.State,
	}
}

// sessionID reads and checks the {id} path value.
func sessionID(r *http.Request) (string, error) {
	id := r.PathValue("id")
	if !sessionIDPattern.MatchString(id) {
		return "", &ErrValidation{Field: "session_id", Message: "must be 1-128 letters, digits, '-' or '_'"}
	}
	return id, nil
}

// language parses raw, falling back to the server default when empty.
func (s *Server) language(raw string) (types.Language, error) {
	if raw == "" {
		return s.defaultLang, nil
	}
	lang, err := types.ParseLanguage(raw)
	if err != nil {
		return "", &ErrValidation{Field: "language", Message: err.Error()}
	}
	return lang, nil
}

// decode reads a JSON body. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	body := http.MaxBytesReader(nil, r.Body, maxInputBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	return nil
}

// withSession runs fn holding the session's lock under the turn deadline.
func (s *Server) withSession(ctx context.Context, id string, fn func(context.Context) (*conversation.Reply, error)) (*conversation.Reply, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, s.turnTimeout)
	defer cancel()
	return fn(ctx)
}

// handleCreateSession starts a session, or resumes it when the id exists.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decode(r, &req); err != nil {
		s.failure(w, r, err)
		return
	}

	id := req.SessionID
	if id == "" {
		id = uuid.NewString()
	} else if !sessionIDPattern.MatchString(id) {
		s.failure(w, r, &ErrValidation{Field: "session_id", Message: "must be 1-128 letters, digits, '-' or '_'"})
		return
	}

	lang, err := s.language(req.Language)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	reply, err := s.withSession(r.Context(), id, func(ctx context.Context) (*conversation.Reply, error) {
		return s.conv.Start(ctx, id, lang)
	})
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, newReplyResponse(reply))
}

// handleGetSession returns the stored state.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	st, err := s.conv.Snapshot(r.Context(), id)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, st)
}

// handleResetSession starts the session over. The language query parameter
// switches the language; without it the session keeps its current one.
func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	raw := r.URL.Query().Get("language")
	if raw == "" {
		if st, err := s.conv.Snapshot(r.Context(), id); err == nil {
			raw = string(st.Language)
		}
	}
	lang, err := s.language(raw)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	reply, err := s.withSession(r.Context(), id, func(ctx context.Context) (*conversation.Reply, error) {
		return s.conv.Reset(ctx, id, lang)
	})
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, newReplyResponse(reply))
}

// handleMessage runs one turn.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	var req MessageRequest
	if err := decode(r, &req); err != nil {
		s.failure(w, r, err)
		return
	}

	reply, err := s.withSession(r.Context(), id, func(ctx context.Context) (*conversation.Reply, error) {
		return s.conv.Turn(ctx, id, req.Text)
	})
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, newReplyResponse(reply))
}

// handleMessageStream runs one turn and reports it as server-sent events:
// "status" when the turn is accepted, then "reply" or "error", then
// "complete". Useful when semantic validation makes turns slow.
func (s *Server) handleMessageStream(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	var req MessageRequest
	if err := decode(r, &req); err != nil {
		s.failure(w, r, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := sse.WriteEvent("status", map[string]string{"session_id": id, "status": "processing"}); err != nil {
		return
	}

	reply, err := s.withSession(r.Context(), id, func(ctx context.Context) (*conversation.Reply, error) {
		return s.conv.Turn(ctx, id, req.Text)
	})
	if err != nil {
		if HTTPStatus(err) >= http.StatusInternalServerError {
			s.logger.Error("streamed turn failed", "session_id", id, "error", err)
		}
		sse.WriteError(publicMessage(err))
		sse.WriteComplete(id, "failed")
		return
	}

	if err := sse.WriteEvent("reply", newReplyResponse(reply)); err != nil {
		return
	}
	sse.WriteComplete(id, string(reply.State.CurrentSection))
}
