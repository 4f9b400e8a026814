package main

import (
	"fmt"
	"os"

	"github.com/karlmutch/errors"
)

var (
	msgV = os.Stdout
)

// runTUI relays informational messages to the console and errors from the
// background components to the log, the errors are the only place that
// failures such as a missing sensor device surface
func runTUI(msgC <-chan string, errC <-chan errors.Error, quitC <-chan struct{}) {
	msgWatch(msgC, errC, quitC)
}

func msgWatch(msgsC <-chan string, errorC <-chan errors.Error, quitC <-chan struct{}) {
	for {
		select {
		case msg := <-msgsC:
			if msgV != nil {
				fmt.Fprint(msgV, msg)
			}
		case err := <-errorC:
			if err != nil {
				logger.Warn(err.Error())
			}
		case <-quitC:
			return
		}
	}
}
