package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/examforge/examforge-backend/internal/exam"
	"github.com/examforge/examforge-backend/internal/middleware"
	"github.com/examforge/examforge-backend/internal/response"
	ws "github.com/examforge/examforge-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// actionTimeout bounds the store writes one client action may trigger.
const actionTimeout = 10 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a live exam session over WebSocket.
type WSHandler struct {
	hub      *ws.Hub
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(hub *ws.Hub, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub:      hub,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/sessions/stream?token=...
// Pushes session notifications and accepts exam actions.
func (h *WSHandler) SessionStream(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := h.hub.Register(sess.ID(), conn)
	defer h.hub.Unregister(client)
	go client.WritePump()

	wsLog := h.log.With().
		Str("session_id", sess.ID()).
		Str("class_id", sess.ClassID()).
		Logger()
	wsLog.Info().Msg("Student connected")

	client.Send(ws.StateResponse{Event: ws.EventState, State: sess.State()})

	// Actions must complete even if the student disconnects mid-request.
	base := context.WithoutCancel(c.Request.Context())

	for {
		var msg ws.Request
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		ctx, cancel := context.WithTimeout(base, actionTimeout)
		reply := h.handle(ctx, sess, &msg)
		cancel()

		if !client.Send(reply) {
			wsLog.Warn().Msg("Client too slow, closing connection")
			return
		}
	}
}

// handle applies one client action and returns the reply.
func (h *WSHandler) handle(ctx context.Context, sess *exam.Session, msg *ws.Request) interface{} {
	switch msg.Action {
	case ws.ActionPing:
		return ws.PongResponse{Event: ws.EventPong}

	case ws.ActionState:
		// Reply below.

	case ws.ActionAnswer:
		if msg.QuestionID == "" || msg.Option == "" {
			return wsError(response.ErrValidation, "question_id and option are required")
		}
		if err := sess.SelectAnswer(msg.QuestionID, msg.Option); err != nil {
			return h.wsFail(err)
		}

	case ws.ActionFlag:
		flagged, err := sess.ToggleFlag(msg.QuestionID)
		if err != nil {
			return h.wsFail(err)
		}
		return ws.FlagResponse{Event: ws.EventFlag, QuestionID: msg.QuestionID, Flagged: flagged}

	case ws.ActionNavigate:
		switch msg.Direction {
		case "next", "previous", "goto":
			navigate(sess, msg.Direction, msg.Index)
		default:
			return wsError(response.ErrValidation, "direction must be one of [next previous goto]")
		}

	case ws.ActionFocusLost:
		if _, err := sess.ReportFocusLoss(ctx); err != nil {
			return h.wsFail(err)
		}

	case ws.ActionSubmit:
		res, err := sess.Submit(ctx)
		if err != nil {
			return h.wsFail(err)
		}
		return ws.SubmittedResponse{Event: ws.EventSubmitted, Result: res}

	default:
		h.log.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
		return wsError(response.ErrInvalidPayload, "unknown action: "+string(msg.Action))
	}

	return ws.StateResponse{Event: ws.EventState, State: sess.State()}
}

func (h *WSHandler) wsFail(err error) ws.ErrorResponse {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("WebSocket action failed")
	}
	return wsError(code, response.GetMessage(code))
}

func wsError(code response.ErrCode, msg string) ws.ErrorResponse {
	return ws.ErrorResponse{Event: ws.EventError, Code: string(code), Error: msg}
}
