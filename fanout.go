package wavelamp

import (
	"sync"
	"time"

	"github.com/mgutz/logxi"

	"github.com/TeamNorCal/wavelamp/model"
)

const (
	// Frames arrive at the display refresh rate so a subscriber gets a
	// short window before its copy of the frame is skipped
	fanOutSendTimeout = 10 * time.Millisecond
)

type Subs struct {
	subs []chan *model.Frame
	sync.Mutex
}

// startFanOut implement a broadcast mechanisim for accepting rendered frames
// and relaying then to subscribers.  The function returns a single channel
// to which frames get sent and, a channel that can be used to add
// listeners.  Subscribers leave by closing their channel.
//
func startFanOut(quitC <-chan struct{}) (inC chan *model.Frame, subC chan chan *model.Frame) {

	inC = make(chan *model.Frame, 1)
	subC = make(chan chan *model.Frame, 1)

	logger := logxi.New("fanout")

	subs := &Subs{
		subs: []chan *model.Frame{},
	}

	go func(quitC <-chan struct{}) {
		defer logger.Debug("fanout stopped")
		for {
			select {
			case <-quitC:
				return
			case sub := <-subC:
				if nil != sub {
					subs.Lock()
					subs.subs = append(subs.subs, sub)
					subs.Unlock()
					logger.Debug("subscription added")
				}
			case frame := <-inC:
				// The subscriptions are notified of a frame and are groomed out
				// when their channel has been closed, using
				// https://github.com/golang/go/wiki/SliceTricks#filtering-without-allocating
				subs.Lock()
				newSubs := subs.subs[:0]
				for _, ch := range subs.subs {
					if send(ch, frame, logger) {
						newSubs = append(newSubs, ch)
					}
				}
				subs.subs = newSubs
				subs.Unlock()
			}
		}
	}(quitC)

	return inC, subC
}

// send delivers one frame, returning false if the subscriber has gone away
func send(ch chan *model.Frame, frame *model.Frame, logger logxi.Logger) (kept bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("subscription dropped, channel closed")
			kept = false
		}
	}()

	select {
	case ch <- frame:
	case <-time.After(fanOutSendTimeout):
		logger.Trace("subscription skipped a frame")
	}
	return true
}
