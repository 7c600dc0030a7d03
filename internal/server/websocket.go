package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jonathan/cv-builder/internal/conversation"
	"github.com/jonathan/cv-builder/internal/session"
)

const (
	wsPath        = "/ws/cv_builder"
	wsWriteWait   = 10 * time.Second
	wsPongWait    = 60 * time.Second
	wsPingPeriod  = wsPongWait * 9 / 10
	senderChatbot = "chatbot"
	senderSystem  = "system"
)

// ChatMessage is sent by the browser client. A message without text is the
// connection handshake; change_language restarts the session in language.
type ChatMessage struct {
	SessionID      string  `json:"session_id"`
	Text           *string `json:"text,omitempty"`
	Language       string  `json:"language,omitempty"`
	ChangeLanguage bool    `json:"change_language,omitempty"`
}

// ChatReply is sent to the browser client.
type ChatReply struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Language  string `json:"language,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Section   string `json:"current_section,omitempty"`
}

// handleWebSocket serves the chat client. Messages on one connection are
// handled in order.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	client := s.extractClientID(r)
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(maxInputBytes)
	conn.SetReadDeadline(time.Now().Add(wsPongWait)) //nolint:errcheck
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// All writes go through one goroutine; gorilla connections allow a
	// single concurrent writer.
	out := make(chan ChatReply, 4)
	done := make(chan struct{})
	go s.wsWriter(conn, out, done, cancel)

	s.logger.Info("websocket connected", "remote", client)
	defer s.logger.Info("websocket disconnected", "remote", client)

	for {
		var msg ChatMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!errors.Is(err, context.Canceled) {
				s.logger.Debug("websocket read ended", "remote", client, "error", err)
			}
			break
		}

		if allowed, _ := s.rateLimiter.Allow(client, wsPath, "MESSAGE"); !allowed {
			if !s.send(ctx, out, ChatReply{Sender: senderSystem, Text: "Rate limit exceeded. Please slow down."}) {
				break
			}
			continue
		}

		reply := s.chat(ctx, msg)
		if !s.send(ctx, out, reply) {
			break
		}
	}

	close(out)
	<-done
}

// send queues reply for the writer. It reports false once the connection
// is going away.
func (s *Server) send(ctx context.Context, out chan<- ChatReply, reply ChatReply) bool {
	select {
	case out <- reply:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Server) wsWriter(conn *websocket.Conn, out <-chan ChatReply, done chan<- struct{}, cancel context.CancelFunc) {
	defer close(done)
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case reply, ok := <-out:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait)) //nolint:errcheck
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")) //nolint:errcheck
				return
			}
			if err := conn.WriteJSON(reply); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				s.abandon(conn, out, cancel)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait)) //nolint:errcheck
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.abandon(conn, out, cancel)
				return
			}
		}
	}
}

// abandon unblocks the reader after a failed write: the connection is
// closed, the turn context cancelled and pending replies discarded.
func (s *Server) abandon(conn *websocket.Conn, out <-chan ChatReply, cancel context.CancelFunc) {
	cancel()
	conn.Close() //nolint:errcheck
	for range out { //nolint:revive // drain
	}
}

// chat maps one client message onto the conversation.
func (s *Server) chat(ctx context.Context, msg ChatMessage) ChatReply {
	id := msg.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	if !sessionIDPattern.MatchString(id) {
		return ChatReply{Sender: senderSystem, Text: "Invalid session id."}
	}

	var (
		reply *conversation.Reply
		err   error
	)
	switch {
	case msg.ChangeLanguage:
		lang, langErr := s.language(msg.Language)
		if langErr != nil {
			return ChatReply{Sender: senderSystem, Text: langErr.Error(), SessionID: id}
		}
		reply, err = s.withSession(ctx, id, func(ctx context.Context) (*conversation.Reply, error) {
			return s.conv.Reset(ctx, id, lang)
		})

	case msg.Text == nil:
		lang, langErr := s.language(msg.Language)
		if langErr != nil {
			lang = s.defaultLang
		}
		reply, err = s.withSession(ctx, id, func(ctx context.Context) (*conversation.Reply, error) {
			return s.conv.Start(ctx, id, lang)
		})

	default:
		reply, err = s.withSession(ctx, id, func(ctx context.Context) (*conversation.Reply, error) {
			return s.conv.Turn(ctx, id, *msg.Text)
		})
		if errors.Is(err, session.ErrNotFound) {
			// The session expired between messages; start over.
			lang, _ := s.language(msg.Language)
			if lang == "" {
				lang = s.defaultLang
			}
			reply, err = s.withSession(ctx, id, func(ctx context.Context) (*conversation.Reply, error) {
				return s.conv.Start(ctx, id, lang)
			})
		}
	}

	if err != nil {
		if HTTPStatus(err) >= http.StatusInternalServerError {
			s.logger.Error("websocket turn failed", "session_id", id, "error", err)
		}
		return ChatReply{Sender: senderSystem, Text: publicMessage(err), SessionID: id}
	}

	return ChatReply{
		Sender:    senderChatbot,
		Text:      reply.Message,
		Language:  string(reply.State.Language),
		SessionID: id,
		Section:   string(reply.State.CurrentSection),
	}
}
