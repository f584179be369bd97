// Package httpd exposes the session operations over HTTP. It is a thin shell:
// all invariants live in the session manager, this layer only decodes
// requests, maps typed errors and renders user-facing text.
package httpd

import (
	"encoding/json"
	"errors"
	"net"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/hyeok-dev/chess-sessiond/internal/msgcat"
	"github.com/hyeok-dev/chess-sessiond/internal/obslog"
	"github.com/hyeok-dev/chess-sessiond/internal/render"
	"github.com/hyeok-dev/chess-sessiond/internal/session"
	"github.com/hyeok-dev/chess-sessiond/pkg/sessiondto"
)

type Server struct {
	mgr  *session.Manager
	msgs *msgcat.Catalog
	srv  *fasthttp.Server
}

func New(mgr *session.Manager, msgs *msgcat.Catalog) *Server {
	s := &Server{mgr: mgr, msgs: msgs}
	s.srv = &fasthttp.Server{
		Handler: s.Handle,
		Name:    "chess-sessiond",
	}
	return s
}

func (s *Server) ListenAndServe(addr string) error { return s.srv.ListenAndServe(addr) }

// Serve accepts connections from ln; used by tests with in-memory listeners.
func (s *Server) Serve(ln net.Listener) error { return s.srv.Serve(ln) }

func (s *Server) Shutdown() error { return s.srv.Shutdown() }

func (s *Server) Handle(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	switch {
	case path == "/v1/session" && ctx.IsPost():
		s.handleCreate(ctx)
	case path == "/v1/board" && ctx.IsGet():
		s.handleBoard(ctx)
	case path == "/v1/board.png" && ctx.IsGet():
		s.handleBoardPNG(ctx)
	case path == "/v1/move/white" && ctx.IsPost():
		s.handleMove(ctx, session.White)
	case path == "/v1/move/black" && ctx.IsPost():
		s.handleMove(ctx, session.Black)
	default:
		writeJSON(ctx, fasthttp.StatusNotFound, sessiondto.ErrorResponse{Code: "not_found", Message: "no such route"})
	}
}

func (s *Server) handleCreate(ctx *fasthttp.RequestCtx) {
	var req sessiondto.CreateSessionRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeJSON(ctx, fasthttp.StatusBadRequest, sessiondto.ErrorResponse{Code: "bad_request", Message: "malformed JSON body"})
		return
	}
	sess, err := s.mgr.CreateSession(ctx, req.PlayerKey)
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusCreated, sessiondto.SessionResponse{
		ID:        sess.ID,
		PlayerKey: sess.PlayerKey,
		FEN:       sess.FEN,
		Board:     sess.Board,
		Turn:      string(sess.Turn),
		Checkmate: sess.Checkmate,
		CreatedAt: sess.CreatedAt,
	})
}

func (s *Server) handleBoard(ctx *fasthttp.RequestCtx) {
	playerKey := string(ctx.QueryArgs().Peek("player_key"))
	board, err := s.mgr.GetBoard(ctx, playerKey)
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, sessiondto.BoardResponse{Board: board})
}

func (s *Server) handleBoardPNG(ctx *fasthttp.RequestCtx) {
	playerKey := string(ctx.QueryArgs().Peek("player_key"))
	sess, err := s.mgr.GetSession(ctx, playerKey)
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	img, err := render.PNG(sess.FEN)
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("image/png")
	_, _ = ctx.Write(img)
}

func (s *Server) handleMove(ctx *fasthttp.RequestCtx, side session.Color) {
	var req sessiondto.MoveRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeJSON(ctx, fasthttp.StatusBadRequest, sessiondto.ErrorResponse{Code: "bad_request", Message: "malformed JSON body"})
		return
	}
	res, err := s.mgr.SubmitMove(ctx, req.PlayerKey, side, req.From, req.To, req.Promotion)
	if err != nil {
		s.writeError(ctx, err)
		return
	}

	out := sessiondto.MoveResponse{
		Board:     res.Board,
		Turn:      string(res.Turn),
		SAN:       res.SAN,
		Checkmate: res.Checkmate,
	}
	if res.Checkmate {
		out.Notice = s.msgs.Text("move.checkmate")
	} else if res.SAN != "" {
		if notice, rerr := s.msgs.Render("move.played", map[string]string{"Side": string(side), "SAN": res.SAN}); rerr == nil {
			out.Notice = notice
		}
	}
	writeJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) writeError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeJSON(ctx, fasthttp.StatusNotFound, sessiondto.ErrorResponse{Code: "not_found", Message: s.msgs.Text("session.missing")})
	case errors.Is(err, session.ErrSessionExists):
		writeJSON(ctx, fasthttp.StatusConflict, sessiondto.ErrorResponse{Code: "duplicate_session", Message: s.msgs.Text("session.exists")})
	case errors.Is(err, session.ErrNotYourTurn):
		writeJSON(ctx, fasthttp.StatusConflict, sessiondto.ErrorResponse{Code: "turn_violation", Message: s.msgs.Text("move.not_your_turn")})
	case errors.Is(err, session.ErrInvalidMove):
		writeJSON(ctx, fasthttp.StatusUnprocessableEntity, sessiondto.ErrorResponse{Code: "illegal_move", Message: err.Error()})
	default:
		obslog.L().Error("http_internal_error", zap.String("path", string(ctx.Path())), zap.Error(err))
		writeJSON(ctx, fasthttp.StatusInternalServerError, sessiondto.ErrorResponse{Code: "internal", Message: "internal error"})
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json; charset=utf-8")
	body, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	_, _ = ctx.Write(body)
}
