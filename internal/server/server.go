package server

import (
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/kweller/sms-games-bot/internal/creation"
	"github.com/kweller/sms-games-bot/internal/obslog"
	"github.com/kweller/sms-games-bot/internal/storycfg"
	"github.com/kweller/sms-games-bot/pkg/smsdto"
)

// PathCreateFromMobile receives the alpha's responses through the game
// creation flow. Routing metadata rides the query string; the message body
// carries the sender and text, the way the SMS gateway posts them.
const PathCreateFromMobile = "/sms-multiplayer-game/create-from-mobile"

// Server frames inbound turn webhooks. Valid turns are acknowledged
// immediately and processed asynchronously by the manager.
type Server struct {
	cat *storycfg.Catalog
	mgr *creation.Manager
	srv *fasthttp.Server
}

func New(cat *storycfg.Catalog, mgr *creation.Manager) *Server {
	s := &Server{cat: cat, mgr: mgr}
	s.srv = &fasthttp.Server{
		Handler: s.handle,
		Name:    "sms-games-bot",
	}
	return s
}

func (s *Server) ListenAndServe(addr string) error { return s.srv.ListenAndServe(addr) }

func (s *Server) Shutdown() error { return s.srv.Shutdown() }

func (s *Server) handle(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case PathCreateFromMobile:
		s.handleCreateFromMobile(ctx)
	case "/healthz":
		ctx.SetStatusCode(fasthttp.StatusOK)
	default:
		ctx.Error("not found", fasthttp.StatusNotFound)
	}
}

func (s *Server) handleCreateFromMobile(ctx *fasthttp.RequestCtx) {
	if !ctx.IsPost() {
		ctx.Error("method not allowed", fasthttp.StatusMethodNotAllowed)
		return
	}

	ev := &smsdto.TurnEvent{
		StoryID:   string(ctx.QueryArgs().Peek("story_id")),
		StoryType: string(ctx.QueryArgs().Peek("story_type")),
		GameMode:  string(ctx.QueryArgs().Peek("game_mode")),
		Phone:     string(ctx.PostArgs().Peek("phone")),
		Args:      string(ctx.PostArgs().Peek("args")),
	}

	turn, story, err := ValidateTurn(ev, s.cat)
	if err != nil {
		ctx.Error(err.Error(), fasthttp.StatusNotAcceptable)
		return
	}

	if err := s.mgr.Submit(turn, story); err != nil {
		obslog.L().Warn("turn_submit_rejected", zap.String("alpha", turn.AlphaPhone), zap.Error(err))
		ctx.Error(err.Error(), fasthttp.StatusNotAcceptable)
		return
	}

	// Ack now; conversational side effects happen off the request path.
	ctx.SetStatusCode(fasthttp.StatusOK)
}
