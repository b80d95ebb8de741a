package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Gateway upgrades subscribers to websockets and streams the one channel
// their token grants.
type Gateway struct {
	tokens   *Tokens
	broker   Broker
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewGateway(tokens *Tokens, broker Broker, logger *slog.Logger, allowedOrigins []string) *Gateway {
	gateway := &Gateway{
		tokens: tokens,
		broker: broker,
		logger: logger.With("module", "realtime_gateway"),
	}

	gateway.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return gateway
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}

		for _, candidate := range allowed {
			if candidate == "*" || strings.EqualFold(candidate, origin) {
				return true
			}
		}

		return false
	}
}

// Handler routes GET /realtime to the gateway and GET /health to a liveness probe.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /realtime", g)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return mux
}

func tokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}

	return ""
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, err := g.tokens.Verify(tokenFromRequest(r))
	if err != nil {
		g.logger.DebugContext(r.Context(), "Rejected subscription", "error", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)

		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.WarnContext(r.Context(), "Websocket upgrade failed", "error", err)

		return
	}
	defer func() { _ = conn.Close() }()

	logger := g.logger.With("channel", claims.Channel, "user_id", claims.Subject)

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	messages, err := g.broker.Subscribe(ctx, claims.Channel)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to subscribe", "error", err)
		g.close(conn, websocket.CloseInternalServerErr, "subscription failed")

		return
	}

	logger.InfoContext(ctx, "Subscriber connected")

	go g.readPump(conn, cancel)

	expiry := time.Until(claims.ExpiresAt.Time)
	if expiry < 0 {
		expiry = 0
	}

	expired := time.NewTimer(expiry)
	defer expired.Stop()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "Subscriber disconnected")

			return
		case <-expired.C:
			g.close(conn, websocket.ClosePolicyViolation, "token expired")

			return
		case msg, ok := <-messages:
			if !ok {
				g.close(conn, websocket.CloseGoingAway, "")

				return
			}

			if !claims.AllowsTopic(msg.Topic) {
				continue
			}

			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := conn.WriteJSON(msg); err != nil {
				logger.WarnContext(ctx, "Failed to write status message", "error", err)

				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames and cancels the subscription when the
// peer goes away.
func (g *Gateway) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (g *Gateway) close(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
}
