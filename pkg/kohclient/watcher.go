package kohclient

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/ellecpu/king-of-hills/pkg/kohdto"
)

// ViewCallback receives one MatchView per update pushed by the server.
type ViewCallback func(view kohdto.MatchView)

type WatcherState int

const (
	WatchDisconnected WatcherState = iota
	WatchConnecting
	WatchConnected
	WatchFailed
)

// Watcher maintains a WebSocket subscription to one match, reconnecting
// with a fixed delay until Stop is called or too many attempts fail.
type Watcher struct {
	wsURL string

	conn   *websocket.Conn
	state  WatcherState
	stateM sync.RWMutex

	onView ViewCallback

	reconnectAttempts    int
	maxReconnectAttempts int
	reconnectDelay       time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	headers HeaderProvider
}

// NewWatcher builds a watcher for ws(s)://host/api/matches/{id}/watch.
// The URL is derived from the client base URL when you use Client.Watch.
func NewWatcher(wsURL string, onView ViewCallback, maxReconnectAttempts int, reconnectDelay time.Duration) *Watcher {
	return &Watcher{
		wsURL:                wsURL,
		state:                WatchDisconnected,
		onView:               onView,
		maxReconnectAttempts: maxReconnectAttempts,
		reconnectDelay:       reconnectDelay,
		stopCh:               make(chan struct{}),
	}
}

// Watch creates a Watcher wired to this client's server and headers.
func (c *Client) Watch(matchID string, onView ViewCallback) *Watcher {
	wsBase := strings.Replace(c.baseURL, "http", "ws", 1)
	w := NewWatcher(wsBase+"/api/matches/"+matchID+"/watch", onView, 10, 3*time.Second)
	w.headers = c.headers
	return w
}

func (w *Watcher) Connect(ctx context.Context) error {
	w.stateM.Lock()
	if w.state == WatchConnected || w.state == WatchConnecting {
		w.stateM.Unlock()
		return nil
	}
	w.state = WatchConnecting
	w.stateM.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, w.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      w.buildHeaders(),
	})
	if err != nil {
		w.setState(WatchFailed)
		w.scheduleReconnect()
		return err
	}

	w.conn = conn
	w.reconnectAttempts = 0
	w.setState(WatchConnected)

	w.wg.Add(1)
	go w.listen()
	return nil
}

// Stop closes the connection and cancels any pending reconnect.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.stateM.Lock()
	conn := w.conn
	w.conn = nil
	w.stateM.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "client stop")
	}
	w.wg.Wait()
	w.setState(WatchDisconnected)
}

func (w *Watcher) State() WatcherState {
	w.stateM.RLock()
	defer w.stateM.RUnlock()
	return w.state
}

func (w *Watcher) listen() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		w.stateM.RLock()
		conn := w.conn
		w.stateM.RUnlock()
		if conn == nil {
			return
		}

		var view kohdto.MatchView
		if err := wsjson.Read(context.Background(), conn, &view); err != nil {
			select {
			case <-w.stopCh:
				return
			default:
			}
			w.setState(WatchFailed)
			w.scheduleReconnect()
			return
		}
		if w.onView != nil {
			w.onView(view)
		}
	}
}

func (w *Watcher) scheduleReconnect() {
	w.stateM.Lock()
	if w.maxReconnectAttempts > 0 && w.reconnectAttempts >= w.maxReconnectAttempts {
		w.stateM.Unlock()
		return
	}
	w.reconnectAttempts++
	w.stateM.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		t := time.NewTimer(w.reconnectDelay)
		defer t.Stop()
		select {
		case <-w.stopCh:
			return
		case <-t.C:
		}
		w.stateM.Lock()
		w.state = WatchDisconnected
		w.stateM.Unlock()
		_ = w.Connect(context.Background())
	}()
}

func (w *Watcher) setState(s WatcherState) {
	w.stateM.Lock()
	w.state = s
	w.stateM.Unlock()
}

func (w *Watcher) buildHeaders() http.Header {
	if w.headers == nil {
		return nil
	}
	h := http.Header{}
	for k, v := range w.headers() {
		if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
			h.Set(k, v)
		}
	}
	return h
}
