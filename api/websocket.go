package api

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/ratiodash/internal/agent"
	"github.com/seenimoa/ratiodash/internal/render"
	"github.com/seenimoa/ratiodash/pkg/models"
	"github.com/seenimoa/ratiodash/pkg/utils"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Message types sent on /ws/analysis, in the order a client sees them:
// one ratios (or one error), any number of chunks, then done.
const (
	MsgRatios = "ratios"
	MsgChunk  = "chunk"
	MsgError  = "error"
	MsgDone   = "done"
)

// WSMessage is the envelope of every websocket frame.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// RatiosPayload is the data of a ratios message.
type RatiosPayload struct {
	Ticker string          `json:"ticker"`
	Ratios models.RatioSet `json:"ratios"`
}

// DonePayload is the data of the final message of a stream.
type DonePayload struct {
	Recommendation string               `json:"recommendation"`
	HTML           string               `json:"html,omitempty"`
	Verdict        string               `json:"verdict,omitempty"`
	Model          string               `json:"model,omitempty"`
	Headlines      []models.NewsArticle `json:"headlines,omitempty"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	origins := s.origins()
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(origins, r.Header.Get("Origin"), r.Host)
		},
	}
}

// originAllowed accepts same-host requests, requests without an Origin
// header and any origin listed in the CORS configuration.
func originAllowed(allowed []string, origin, host string) bool {
	if origin == "" {
		return true
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == host
}

// wsSession serialises writes to one connection. gorilla/websocket allows a
// single concurrent writer; control frames may be written from anywhere.
type wsSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (ws *wsSession) send(msg WSMessage) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	_ = ws.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.conn.WriteJSON(msg)
}

func (ws *wsSession) closeNormal(reason string) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	_ = ws.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
		time.Now().Add(writeWait))
}

// readPump discards client frames and cancels the stream once the peer
// goes away.
func (ws *wsSession) readPump(cancel context.CancelFunc, log *zerolog.Logger) {
	defer cancel()
	ws.conn.SetReadLimit(maxMessageSize)
	_ = ws.conn.SetReadDeadline(time.Now().Add(pongWait))
	ws.conn.SetPongHandler(func(string) error {
		_ = ws.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := ws.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("websocket read")
			}
			return
		}
	}
}

func (ws *wsSession) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ws.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// handleAnalysisStream upgrades to a websocket and streams one analysis
// for the ticker query parameter.
func (s *Server) handleAnalysisStream(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ws := &wsSession{conn: conn}
	go ws.readPump(cancel, log)
	go ws.pingLoop(ctx)

	s.streamAnalysis(ctx, ws, r.URL.Query().Get("ticker"))
}

func (s *Server) streamAnalysis(ctx context.Context, ws *wsSession, ticker string) {
	set, err := s.analyst.Ratios(ctx, ticker)
	if err != nil {
		_ = ws.send(WSMessage{Type: MsgError, Data: agent.ErrorMapping(err)})
		ws.closeNormal("error")
		return
	}
	symbol := utils.NormalizeTicker(ticker)
	if err := ws.send(WSMessage{Type: MsgRatios, Data: RatiosPayload{Ticker: symbol, Ratios: set}}); err != nil {
		return
	}

	var (
		done      DonePayload
		headlines []models.NewsArticle
		g         errgroup.Group
	)
	g.Go(func() error {
		headlines = s.analyst.Headlines(ctx, symbol)
		return nil
	})

	if adv := s.analyst.Advisor(); adv != nil {
		done.Model = adv.Model()
		done.Recommendation = adv.Stream(ctx, set, func(chunk string) {
			_ = ws.send(WSMessage{Type: MsgChunk, Data: chunk})
		})
		done.Verdict = render.VerdictClass(done.Recommendation)
		if html, err := render.HTML(done.Recommendation); err == nil {
			done.HTML = string(html)
		} else {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("render narrative")
		}
	}

	_ = g.Wait()
	done.Headlines = headlines

	if ctx.Err() != nil {
		return
	}
	_ = ws.send(WSMessage{Type: MsgDone, Data: done})
	ws.closeNormal("done")
}
