package http

import (
	"net/http"
	"net/url"
	"time"

	"framewire/internal/core/domain"
	"framewire/internal/core/services"
	"framewire/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// FeedMessage is one push on the metrics feed.
type FeedMessage struct {
	Type    string              `json:"type"`
	Time    time.Time           `json:"time"`
	Session *domain.SessionInfo `json:"session,omitempty"`
}

// MetricsFeed streams the current session's info to websocket clients at a
// fixed interval.
type MetricsFeed struct {
	manager  *services.SessionManager
	limiter  *middleware.ConnectionLimiter
	upgrader websocket.Upgrader

	interval     time.Duration
	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration

	logger *zap.SugaredLogger
}

func NewMetricsFeed(
	manager *services.SessionManager,
	limiter *middleware.ConnectionLimiter,
	interval time.Duration,
	allowedOrigins []string,
	logger *zap.SugaredLogger,
) *MetricsFeed {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &MetricsFeed{
		manager: manager,
		limiter: limiter,
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(allowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		interval:     interval,
		pingInterval: 30 * time.Second,
		readTimeout:  60 * time.Second,
		writeTimeout: 10 * time.Second,
		logger:       logger,
	}
}

// SetPingInterval sets ping interval for websocket connections
func (f *MetricsFeed) SetPingInterval(interval time.Duration) {
	f.pingInterval = interval
}

func (f *MetricsFeed) Handle(c *gin.Context) {
	release, appErr := f.limiter.Acquire(c.Request)
	if appErr != nil {
		c.Error(appErr)
		return
	}
	defer release()

	conn, err := f.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		f.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	f.logger.Infow("metrics feed client connected", "remote", remote)

	conn.SetReadDeadline(time.Now().Add(f.readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(f.readTimeout))
		return nil
	})

	// clients never send anything meaningful; reading surfaces close frames and
	// dead connections
	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				readErr <- err
				return
			}
			conn.SetReadDeadline(time.Now().Add(f.readTimeout))
		}
	}()

	pushTicker := time.NewTicker(f.interval)
	defer pushTicker.Stop()
	pingTicker := time.NewTicker(f.pingInterval)
	defer pingTicker.Stop()

	if err := f.push(conn); err != nil {
		f.logger.Infow("metrics feed write failed", "remote", remote, "error", err)
		return
	}

	for {
		select {
		case <-pushTicker.C:
			if err := f.push(conn); err != nil {
				f.logger.Infow("metrics feed write failed", "remote", remote, "error", err)
				return
			}

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(f.writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				f.logger.Infow("error sending ping", "remote", remote, "error", err)
				return
			}

		case err := <-readErr:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				f.logger.Infow("metrics feed read error", "remote", remote, "error", err)
			}
			f.logger.Infow("metrics feed client disconnected", "remote", remote)
			return

		case <-c.Request.Context().Done():
			return
		}
	}
}

func (f *MetricsFeed) push(conn *websocket.Conn) error {
	msg := FeedMessage{Type: "idle", Time: time.Now()}
	if session := f.manager.Current(); session != nil {
		info := session.Info()
		msg.Type = "session"
		msg.Session = &info
	}
	conn.SetWriteDeadline(time.Now().Add(f.writeTimeout))
	return conn.WriteJSON(msg)
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set[origin]; ok {
			return true
		}
		// same-origin requests are always allowed
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}
