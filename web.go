package wavelamp

// This module implements the browser facing surface.  A single page holds a
// full window canvas onto which the frames streamed over a websocket are
// drawn, together with the button that asks the ingestor to connect to the
// sensor device.  The button is hidden for good once it has been pressed

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-stack/stack"
	"github.com/karlmutch/errors"

	"github.com/gorilla/websocket"

	"github.com/mgutz/logxi"

	"github.com/TeamNorCal/wavelamp/model"
)

const (
	wsWriteTimeout = 250 * time.Millisecond
)

// Connector is the part of the ingestor used by the connect button
type Connector interface {
	Connect(quitC <-chan struct{}) (err errors.Error)
}

// SurfaceMsg is the websocket message sent to the page for every frame
type SurfaceMsg struct {
	Frame         *model.Frame `json:"frame"`
	ConnectHidden bool         `json:"connectHidden"`
}

// WebSurface serves the page, the connect button and the frame stream
type WebSurface struct {
	canvas    *Canvas
	connector Connector
	errorC    chan<- errors.Error
	quitC     <-chan struct{}

	upgrader websocket.Upgrader
	clients  map[*websocket.Conn]bool

	connectPressed bool

	logger logxi.Logger
	sync.Mutex
}

func NewWebSurface(canvas *Canvas, connector Connector, errorC chan<- errors.Error, quitC <-chan struct{}) (web *WebSurface) {
	return &WebSurface{
		canvas:    canvas,
		connector: connector,
		errorC:    errorC,
		quitC:     quitC,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: map[*websocket.Conn]bool{},
		logger:  logxi.New("web"),
	}
}

// Handler returns the routes of the surface
func (web *WebSurface) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", web.serveIndex)
	mux.HandleFunc("/connect", web.serveConnect)
	mux.HandleFunc("/frame.png", web.serveFrame)
	mux.HandleFunc("/ws", web.serveWS)
	return mux
}

// ConnectHidden reports whether the connect button has been pressed
func (web *WebSurface) ConnectHidden() bool {
	web.Lock()
	defer web.Unlock()
	return web.connectPressed
}

func (web *WebSurface) serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

// serveConnect starts the device connection on the first press of the
// button, the outcome is only visible in the logs
func (web *WebSurface) serveConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "connect must be requested using POST", http.StatusMethodNotAllowed)
		return
	}

	web.Lock()
	pressed := web.connectPressed
	web.connectPressed = true
	web.Unlock()

	if pressed {
		http.Error(w, "device connection already requested", http.StatusConflict)
		return
	}

	web.logger.Info("device connection requested", "remote", r.RemoteAddr)

	go func() {
		if err := web.connector.Connect(web.quitC); err != nil {
			reportError(err, web.errorC)
		}
	}()

	w.WriteHeader(http.StatusAccepted)
}

func (web *WebSurface) serveFrame(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := web.canvas.EncodePNG(w); err != nil {
		web.logger.Warn("frame not encoded", "error", err.Error())
	}
}

func (web *WebSurface) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, errGo := web.upgrader.Upgrade(w, r, nil)
	if errGo != nil {
		web.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", errGo.Error())
		return
	}

	web.Lock()
	web.clients[conn] = true
	count := len(web.clients)
	web.Unlock()
	web.logger.Debug("websocket client added", "remote", r.RemoteAddr, "clients", count)

	// The page never sends anything, reads are only used to detect the
	// client going away
	go func() {
		defer web.drop(conn)
		for {
			if _, _, errGo := conn.ReadMessage(); errGo != nil {
				return
			}
		}
	}()
}

func (web *WebSurface) drop(conn *websocket.Conn) {
	web.Lock()
	_, present := web.clients[conn]
	delete(web.clients, conn)
	web.Unlock()

	if present {
		conn.Close()
		web.logger.Debug("websocket client dropped", "remote", conn.RemoteAddr().String())
	}
}

// Broadcast subscribes to rendered frames and relays them to every
// connected page until quitC is closed
func (web *WebSurface) Broadcast(subscribeC chan chan *model.Frame) {

	frameC := make(chan *model.Frame, 1)
	subscribeC <- frameC

	go func() {
		defer close(frameC)
		for {
			select {
			case frame := <-frameC:
				if frame != nil {
					web.send(frame)
				}
			case <-web.quitC:
				web.Lock()
				for conn := range web.clients {
					conn.Close()
				}
				web.clients = map[*websocket.Conn]bool{}
				web.Unlock()
				return
			}
		}
	}()
}

func (web *WebSurface) send(frame *model.Frame) {
	web.Lock()
	msg := &SurfaceMsg{
		Frame:         frame,
		ConnectHidden: web.connectPressed,
	}
	conns := make([]*websocket.Conn, 0, len(web.clients))
	for conn := range web.clients {
		conns = append(conns, conn)
	}
	web.Unlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if errGo := conn.WriteJSON(msg); errGo != nil {
			web.logger.Debug("websocket write failed", "remote", conn.RemoteAddr().String(), "error", errGo.Error())
			web.drop(conn)
		}
	}
}

// Serve listens for page requests until quitC is closed
func (web *WebSurface) Serve(listen string) (err errors.Error) {
	server := &http.Server{
		Addr:    listen,
		Handler: web.Handler(),
	}

	go func() {
		<-web.quitC
		server.Close()
	}()

	web.logger.Info("serving surface", "listen", listen)
	if errGo := server.ListenAndServe(); errGo != nil && errGo != http.ErrServerClosed {
		return errors.Wrap(errGo).With("listen", listen).With("stack", stack.Trace().TrimRuntime())
	}
	return nil
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>wavelamp</title>
  <style>
    html, body { margin: 0; padding: 0; overflow: hidden; }
    canvas { display: block; }
    #connect { position: absolute; top: 10px; left: 10px; }
  </style>
</head>
<body>
  <canvas id="waveCanvas"></canvas>
  <button id="connect">Connect device</button>
  <script>
    const canvas = document.getElementById('waveCanvas');
    const button = document.getElementById('connect');
    const ctx = canvas.getContext('2d');

    // Sized once to the window at load
    canvas.width = window.innerWidth;
    canvas.height = window.innerHeight;

    button.addEventListener('click', () => {
      button.style.display = 'none';
      fetch('/connect', { method: 'POST' });
    });

    function draw(frame) {
      const sx = canvas.width / frame.width;
      const sy = canvas.height / frame.height;
      ctx.clearRect(0, 0, canvas.width, canvas.height);
      ctx.fillStyle = 'white';
      ctx.fillRect(0, 0, canvas.width, canvas.height);
      for (const bar of frame.bars) {
        ctx.fillStyle = 'hsl(' + bar.hue + ', 100%, 50%)';
        ctx.fillRect(bar.x * sx, bar.y * sy, bar.w * sx, bar.h * sy);
      }
    }

    const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
    ws.onmessage = (ev) => {
      const msg = JSON.parse(ev.data);
      if (msg.connectHidden) {
        button.style.display = 'none';
      }
      if (msg.frame) {
        window.requestAnimationFrame(() => draw(msg.frame));
      }
    };
  </script>
</body>
</html>
`
