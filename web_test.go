package wavelamp

import (
	"image/png"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/karlmutch/errors"

	"github.com/TeamNorCal/wavelamp/model"
	"github.com/TeamNorCal/wavelamp/test"
)

type fakeConnector struct {
	calls int
	sync.Mutex
}

func (fake *fakeConnector) Connect(quitC <-chan struct{}) (err errors.Error) {
	fake.Lock()
	fake.calls++
	fake.Unlock()
	return errors.New("no serial ports available")
}

func (fake *fakeConnector) Calls() int {
	fake.Lock()
	defer fake.Unlock()
	return fake.calls
}

func newTestSurface(t *testing.T, quitC <-chan struct{}) (web *WebSurface, connector *fakeConnector, errorC chan errors.Error) {
	t.Helper()

	canvas, err := NewCanvas(96, 64)
	test.DemandEquality(t, err == nil, true)
	NewRenderer(canvas, model.NewSpeedParameters()).Step()

	connector = &fakeConnector{}
	errorC = make(chan errors.Error, 1)
	return NewWebSurface(canvas, connector, errorC, quitC), connector, errorC
}

func TestWebIndex(t *testing.T) {
	quitC := make(chan struct{})
	defer close(quitC)
	web, _, _ := newTestSurface(t, quitC)

	server := httptest.NewServer(web.Handler())
	defer server.Close()

	resp, errGo := http.Get(server.URL + "/")
	test.DemandEquality(t, errGo == nil, true)
	body, _ := ioutil.ReadAll(resp.Body)
	resp.Body.Close()

	test.ExpectEquality(t, resp.StatusCode, http.StatusOK)
	test.ExpectSuccess(t, strings.Contains(string(body), "Connect device"))
	test.ExpectSuccess(t, strings.Contains(string(body), "waveCanvas"))

	resp, errGo = http.Get(server.URL + "/missing")
	test.DemandEquality(t, errGo == nil, true)
	resp.Body.Close()
	test.ExpectEquality(t, resp.StatusCode, http.StatusNotFound)
}

func TestWebConnectOnce(t *testing.T) {
	quitC := make(chan struct{})
	defer close(quitC)
	web, connector, errorC := newTestSurface(t, quitC)

	server := httptest.NewServer(web.Handler())
	defer server.Close()

	resp, errGo := http.Get(server.URL + "/connect")
	test.DemandEquality(t, errGo == nil, true)
	resp.Body.Close()
	test.ExpectEquality(t, resp.StatusCode, http.StatusMethodNotAllowed)
	test.ExpectEquality(t, web.ConnectHidden(), false)

	resp, errGo = http.Post(server.URL+"/connect", "text/plain", nil)
	test.DemandEquality(t, errGo == nil, true)
	resp.Body.Close()
	test.ExpectEquality(t, resp.StatusCode, http.StatusAccepted)
	test.ExpectEquality(t, web.ConnectHidden(), true)

	// The failure of the connection is reported, the button stays hidden
	select {
	case err := <-errorC:
		test.ExpectFailure(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("connection failure was not reported")
	}
	test.ExpectEquality(t, web.ConnectHidden(), true)

	resp, errGo = http.Post(server.URL+"/connect", "text/plain", nil)
	test.DemandEquality(t, errGo == nil, true)
	resp.Body.Close()
	test.ExpectEquality(t, resp.StatusCode, http.StatusConflict)
	test.ExpectEquality(t, connector.Calls(), 1)
}

func TestWebFramePNG(t *testing.T) {
	quitC := make(chan struct{})
	defer close(quitC)
	web, _, _ := newTestSurface(t, quitC)

	server := httptest.NewServer(web.Handler())
	defer server.Close()

	resp, errGo := http.Get(server.URL + "/frame.png")
	test.DemandEquality(t, errGo == nil, true)
	defer resp.Body.Close()

	test.ExpectEquality(t, resp.Header.Get("Content-Type"), "image/png")
	img, errGo := png.Decode(resp.Body)
	test.DemandEquality(t, errGo == nil, true)
	test.ExpectEquality(t, img.Bounds().Dx(), 96)
	test.ExpectEquality(t, img.Bounds().Dy(), 64)
}

func TestWebStreamsFrames(t *testing.T) {
	quitC := make(chan struct{})
	defer close(quitC)
	web, _, _ := newTestSurface(t, quitC)

	server := httptest.NewServer(web.Handler())
	defer server.Close()

	inC, subC := startFanOut(quitC)
	web.Broadcast(subC)

	conn, _, errGo := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", nil)
	test.DemandEquality(t, errGo == nil, true)
	defer conn.Close()

	msgC := make(chan *SurfaceMsg, 1)
	go func() {
		msg := &SurfaceMsg{}
		if errGo := conn.ReadJSON(msg); errGo == nil {
			msgC <- msg
		}
	}()

	deadline := time.After(3 * time.Second)
	for {
		select {
		case msg := <-msgC:
			test.DemandEquality(t, msg.Frame != nil, true)
			test.ExpectEquality(t, msg.Frame.Tick, uint64(9))
			test.ExpectEquality(t, msg.ConnectHidden, false)
			return
		case inC <- &model.Frame{Tick: 9, Width: 96, Height: 64}:
			time.Sleep(5 * time.Millisecond)
		case <-deadline:
			t.Fatal("no frame streamed to the websocket client")
		}
	}
}
