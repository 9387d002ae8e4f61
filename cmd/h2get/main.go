// Command h2get is a minimal HTTP/2 client built on pkg/h2 and pkg/h2net:
// it dials a real TCP connection, wraps it in h2net.ConnTransport, drives
// a h2.Connection in ModePassive, and prints the response as it streams in.
// It exists to show a concrete "owner" wiring the non-owning core to a real
// socket, which pkg/h2script's memTransport deliberately never does.
package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/nilbound/h2core/pkg/h2"
	"github.com/nilbound/h2core/pkg/h2net"
	"github.com/nilbound/h2core/pkg/logging"
)

func main() {
	rawURL := flag.String("url", "", "https://host[:port]/path to request")
	connect := flag.String("connect", "", "host:port to dial instead of the URL's own authority")
	timeout := flag.Duration("timeout", 10*time.Second, "dial and per-read timeout")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	if *rawURL == "" {
		fmt.Fprintln(os.Stderr, "usage: h2get -url https://host/path")
		os.Exit(2)
	}
	u, err := url.Parse(*rawURL)
	if err != nil {
		fatalf("parse url: %v", err)
	}

	logging.SetVerbose(*verbose)
	logger := logging.NewLogger("h2get")

	dialAddr := *connect
	if dialAddr == "" {
		dialAddr = u.Host
		if u.Port() == "" {
			dialAddr = u.Hostname() + ":443"
		}
	}

	tr, err := h2net.DialTransport(dialAddr, *timeout)
	if err != nil {
		fatalf("dial %s: %v", dialAddr, err)
	}

	conn, err := h2.Connect(tr, h2.ConnectOptions{Mode: h2.ModePassive, Logger: logger})
	if err != nil {
		fatalf("connect: %v", err)
	}
	defer conn.Close()

	path := u.Path
	if path == "" {
		path = "/"
	}
	ref, err := conn.Request(h2.RequestOptions{
		Method:    "GET",
		Scheme:    "https",
		Authority: u.Host,
		Path:      path,
		EndStream: true,
	})
	if err != nil {
		fatalf("request: %v", err)
	}

	for {
		events, err := conn.Recv(*timeout)
		if err != nil {
			fatalf("recv: %v", err)
		}
		if done := printEvents(events, ref); done {
			return
		}
	}
}

// printEvents renders the events belonging to ref (connection-wide events
// carry a zero ref and pass the filter, but only status, headers, data,
// done and error events are acted on) and reports whether the request
// has reached a terminal state.
func printEvents(events []h2.Event, ref h2.RequestRef) bool {
	for _, ev := range events {
		if ev.Ref.Valid() && ev.Ref != ref {
			continue
		}
		switch ev.Kind {
		case h2.EventStatus:
			fmt.Printf("status: %d\n", ev.StatusCode)
		case h2.EventHeaders:
			for _, hd := range ev.Headers {
				fmt.Printf("%s: %s\n", hd.Name, hd.Value)
			}
		case h2.EventData:
			os.Stdout.Write(ev.Data)
		case h2.EventDone:
			return true
		case h2.EventError:
			fatalf("request failed: %v", ev.Err)
		}
	}
	return false
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
