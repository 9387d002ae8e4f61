// Package h2script provides built-in VTC commands
package h2script

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nilbound/h2core/pkg/h2"
	"github.com/nilbound/h2core/pkg/logging"
)

// RegisterH2Commands registers the commands that drive an in-process
// h2.Connection: conn/sendhex/send/txreq/txdata/cancel/ping/close/expect.
// These replace the teacher's client/server/process commands (those drove
// a real subprocess over a real socket; this core never owns one).
func RegisterH2Commands() {
	RegisterCommand("conn", cmdConn, FlagNone)
	RegisterCommand("sendhex", cmdSendHex, FlagNone)
	RegisterCommand("send", cmdSend, FlagNone)
	RegisterCommand("txreq", cmdTxReq, FlagNone)
	RegisterCommand("txdata", cmdTxData, FlagNone)
	RegisterCommand("cancel", cmdCancel, FlagNone)
	RegisterCommand("ping", cmdPing, FlagNone)
	RegisterCommand("close", cmdClose, FlagNone)
	RegisterCommand("expect", cmdExpect, FlagNone)
}

// memTransport is an in-process h2.Transport: bytes the Connection writes
// are recorded in sent, and bytes fed in by sendhex/send are handed back
// through Recv for ModePassive connections (ModeActive connections get
// them directly via Feed, bypassing Recv entirely).
type memTransport struct {
	sent   [][]byte
	inbox  [][]byte
	closed bool
}

func newMemTransport() *memTransport {
	return &memTransport{}
}

func (t *memTransport) Send(b []byte) error {
	if t.closed {
		return h2.NewTransportError("closed", fmt.Errorf("send on closed transport"))
	}
	t.sent = append(t.sent, append([]byte(nil), b...))
	return nil
}

func (t *memTransport) Close() error {
	t.closed = true
	return nil
}

func (t *memTransport) Recv(timeout time.Duration) ([]byte, error) {
	if len(t.inbox) == 0 {
		return nil, h2.NewTransportError("timeout", fmt.Errorf("no queued bytes"))
	}
	b := t.inbox[0]
	t.inbox = t.inbox[1:]
	return b, nil
}

func (t *memTransport) feedInbound(b []byte) {
	t.inbox = append(t.inbox, b)
}

// sentBytes concatenates everything the Connection has written so far,
// for commands that want to inspect the wire rather than the Event stream.
func (t *memTransport) sentBytes() []byte {
	var all []byte
	for _, s := range t.sent {
		all = append(all, s...)
	}
	return all
}

// ScriptConn is one named h2.Connection under test, plus the bookkeeping
// a VTC script needs to refer back to requests it opened and events it
// hasn't asserted on yet.
type ScriptConn struct {
	Name   string
	Conn   *h2.Connection
	Mode   h2.Mode
	Tr     *memTransport
	Events []h2.Event
	Refs   map[string]h2.RequestRef

	nextRef   int
	lastLabel string
}

func getConn(ctx *ExecContext, name string) (*ScriptConn, error) {
	sc, ok := ctx.Conns[name]
	if !ok {
		return nil, fmt.Errorf("unknown connection %q (use 'conn' first)", name)
	}
	return sc, nil
}

// feed pushes peer bytes into sc's connection — directly via Feed in
// ModeActive, or via the transport's inbox and a synchronous Recv in
// ModePassive — and appends whatever Events result.
func (sc *ScriptConn) feed(data []byte) error {
	var (
		events []h2.Event
		err    error
	)
	if sc.Mode == h2.ModeActive {
		events, err = sc.Conn.Feed(data)
	} else {
		sc.Tr.feedInbound(data)
		events, err = sc.Conn.Recv(0)
	}
	if err != nil {
		return err
	}
	sc.Events = append(sc.Events, events...)
	return nil
}

// popEvent removes and returns the oldest queued event matching kind
// (and, if label is non-empty, matching the Ref registered under that
// label), in FIFO order — mirroring how a caller actually drains
// Feed/Recv's returned slice one at a time.
func (sc *ScriptConn) popEvent(kind, label string) (h2.Event, bool) {
	var (
		wantRef h2.RequestRef
		hasWant bool
	)
	if label != "" {
		if r, ok := sc.Refs[label]; ok {
			wantRef = r
			hasWant = true
		}
	}
	for i, e := range sc.Events {
		if !strings.EqualFold(e.Kind.String(), kind) {
			continue
		}
		if hasWant && e.Ref != wantRef {
			continue
		}
		sc.Events = append(sc.Events[:i], sc.Events[i+1:]...)
		return e, true
	}
	return h2.Event{}, false
}

// cmdConn handles the "conn" command: conn <name> [-mode active|passive]
func cmdConn(args []string, priv interface{}, logger *logging.Logger) error {
	ctx, ok := priv.(*ExecContext)
	if !ok {
		return fmt.Errorf("invalid context for conn command")
	}
	if len(args) == 0 {
		return fmt.Errorf("conn: missing connection name")
	}
	name := args[0]
	args = args[1:]

	mode := h2.ModeActive
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-mode":
			if i+1 >= len(args) {
				return fmt.Errorf("conn: -mode requires a value")
			}
			i++
			switch args[i] {
			case "active":
				mode = h2.ModeActive
			case "passive":
				mode = h2.ModePassive
			default:
				return fmt.Errorf("conn: unknown mode %q", args[i])
			}
		default:
			return fmt.Errorf("conn: unknown option: %s", args[i])
		}
	}

	tr := newMemTransport()
	c, err := h2.Connect(tr, h2.ConnectOptions{Mode: mode, Logger: logger})
	if err != nil {
		return fmt.Errorf("conn: %w", err)
	}

	ctx.Conns[name] = &ScriptConn{
		Name: name,
		Conn: c,
		Mode: mode,
		Tr:   tr,
		Refs: make(map[string]h2.RequestRef),
	}
	logger.Debug("conn %s: connected (mode=%d)", name, mode)
	return nil
}

// cmdSendHex handles "sendhex <conn> <hex bytes...>", feeding raw,
// hex-encoded peer bytes (frame headers, HPACK blocks, whole frames) into
// a connection exactly as a real socket read would.
func cmdSendHex(args []string, priv interface{}, logger *logging.Logger) error {
	ctx, ok := priv.(*ExecContext)
	if !ok {
		return fmt.Errorf("invalid context for sendhex command")
	}
	if len(args) < 2 {
		return fmt.Errorf("sendhex: usage: sendhex <conn> <hex>")
	}
	sc, err := getConn(ctx, args[0])
	if err != nil {
		return err
	}

	hexStr := strings.Join(args[1:], "")
	hexStr = strings.ReplaceAll(hexStr, " ", "")
	data, err := hex.DecodeString(hexStr)
	if err != nil {
		return fmt.Errorf("sendhex: invalid hex: %w", err)
	}
	return sc.feed(data)
}

// cmdSend handles "send <conn> <string>", for feeding ASCII peer bytes
// (e.g. a malformed preface) without hex-encoding them.
func cmdSend(args []string, priv interface{}, logger *logging.Logger) error {
	ctx, ok := priv.(*ExecContext)
	if !ok {
		return fmt.Errorf("invalid context for send command")
	}
	if len(args) < 2 {
		return fmt.Errorf("send: usage: send <conn> <text>")
	}
	sc, err := getConn(ctx, args[0])
	if err != nil {
		return err
	}
	text, err := ctx.Macros.Expand(logger, strings.Join(args[1:], " "))
	if err != nil {
		return fmt.Errorf("send: macro expansion failed: %w", err)
	}
	return sc.feed([]byte(processEscapeSequences(text)))
}

// cmdTxReq handles "txreq", opening a client-initiated request:
// txreq <conn> [-req METHOD] [-url PATH] [-scheme S] [-authority A]
//
//	[-hdr NAME VALUE]... [-body TEXT] [-stream] [-noend] [-as LABEL]
func cmdTxReq(args []string, priv interface{}, logger *logging.Logger) error {
	ctx, ok := priv.(*ExecContext)
	if !ok {
		return fmt.Errorf("invalid context for txreq command")
	}
	if len(args) == 0 {
		return fmt.Errorf("txreq: missing connection name")
	}
	sc, err := getConn(ctx, args[0])
	if err != nil {
		return err
	}
	args = args[1:]

	method := "GET"
	path := "/"
	scheme := "https"
	authority := "example.com"
	var body string
	var hdrs []h2.HeaderField
	endStream := true
	streaming := false
	label := ""

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-req":
			if i+1 >= len(args) {
				return fmt.Errorf("txreq: -req requires a value")
			}
			i++
			method = args[i]

		case "-url":
			if i+1 >= len(args) {
				return fmt.Errorf("txreq: -url requires a value")
			}
			i++
			path = args[i]

		case "-scheme":
			if i+1 >= len(args) {
				return fmt.Errorf("txreq: -scheme requires a value")
			}
			i++
			scheme = args[i]

		case "-authority":
			if i+1 >= len(args) {
				return fmt.Errorf("txreq: -authority requires a value")
			}
			i++
			authority = args[i]

		case "-hdr":
			if i+2 >= len(args) {
				return fmt.Errorf("txreq: -hdr requires a name and a value")
			}
			name, value := args[i+1], args[i+2]
			i += 2
			value, err = ctx.Macros.Expand(logger, value)
			if err != nil {
				return fmt.Errorf("txreq: header expansion failed: %w", err)
			}
			hdrs = append(hdrs, h2.HeaderField{Name: name, Value: value})

		case "-body":
			if i+1 >= len(args) {
				return fmt.Errorf("txreq: -body requires a value")
			}
			i++
			body, err = ctx.Macros.Expand(logger, args[i])
			if err != nil {
				return fmt.Errorf("txreq: body expansion failed: %w", err)
			}

		case "-stream":
			streaming = true
			endStream = false

		case "-noend":
			endStream = false

		case "-as":
			if i+1 >= len(args) {
				return fmt.Errorf("txreq: -as requires a label")
			}
			i++
			label = args[i]

		default:
			return fmt.Errorf("txreq: unknown option: %s", args[i])
		}
	}

	var bodyBytes []byte
	if body != "" {
		bodyBytes = []byte(body)
	}
	ref, err := sc.Conn.Request(h2.RequestOptions{
		Method:    method,
		Scheme:    scheme,
		Authority: authority,
		Path:      path,
		Headers:   hdrs,
		Body:      bodyBytes,
		Streaming: streaming,
		EndStream: endStream,
	})
	if err != nil {
		return fmt.Errorf("txreq: %w", err)
	}

	if label == "" {
		sc.nextRef++
		label = fmt.Sprintf("req%d", sc.nextRef)
	}
	sc.Refs[label] = ref
	sc.lastLabel = label
	logger.Debug("txreq %s: opened %s %s as %s", sc.Name, method, path, label)
	return nil
}

// cmdTxData handles "txdata <conn> [-body TEXT] [-noend] [-as LABEL]",
// appending another chunk of request body to a stream opened with -stream.
func cmdTxData(args []string, priv interface{}, logger *logging.Logger) error {
	ctx, ok := priv.(*ExecContext)
	if !ok {
		return fmt.Errorf("invalid context for txdata command")
	}
	if len(args) == 0 {
		return fmt.Errorf("txdata: missing connection name")
	}
	sc, err := getConn(ctx, args[0])
	if err != nil {
		return err
	}
	args = args[1:]

	var body string
	endStream := true
	label := sc.lastLabel

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-body":
			if i+1 >= len(args) {
				return fmt.Errorf("txdata: -body requires a value")
			}
			i++
			body, err = ctx.Macros.Expand(logger, args[i])
			if err != nil {
				return fmt.Errorf("txdata: body expansion failed: %w", err)
			}

		case "-noend":
			endStream = false

		case "-as":
			if i+1 >= len(args) {
				return fmt.Errorf("txdata: -as requires a label")
			}
			i++
			label = args[i]

		default:
			return fmt.Errorf("txdata: unknown option: %s", args[i])
		}
	}

	ref, ok := sc.Refs[label]
	if !ok {
		return fmt.Errorf("txdata: unknown request label %q", label)
	}
	return sc.Conn.StreamRequestBody(ref, []byte(body), endStream, nil)
}

// cmdCancel handles "cancel <conn> [-as LABEL]", resetting a request.
func cmdCancel(args []string, priv interface{}, logger *logging.Logger) error {
	ctx, ok := priv.(*ExecContext)
	if !ok {
		return fmt.Errorf("invalid context for cancel command")
	}
	if len(args) == 0 {
		return fmt.Errorf("cancel: missing connection name")
	}
	sc, err := getConn(ctx, args[0])
	if err != nil {
		return err
	}
	args = args[1:]

	label := sc.lastLabel
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-as":
			if i+1 >= len(args) {
				return fmt.Errorf("cancel: -as requires a label")
			}
			i++
			label = args[i]
		default:
			return fmt.Errorf("cancel: unknown option: %s", args[i])
		}
	}

	ref, ok := sc.Refs[label]
	if !ok {
		return fmt.Errorf("cancel: unknown request label %q", label)
	}
	return sc.Conn.CancelRequest(ref)
}

// cmdPing handles "ping <conn>".
func cmdPing(args []string, priv interface{}, logger *logging.Logger) error {
	ctx, ok := priv.(*ExecContext)
	if !ok {
		return fmt.Errorf("invalid context for ping command")
	}
	if len(args) == 0 {
		return fmt.Errorf("ping: missing connection name")
	}
	sc, err := getConn(ctx, args[0])
	if err != nil {
		return err
	}
	_, err = sc.Conn.Ping()
	return err
}

// cmdClose handles "close <conn>", sending GOAWAY and closing the
// transport. Idempotent, matching Connection.Close.
func cmdClose(args []string, priv interface{}, logger *logging.Logger) error {
	ctx, ok := priv.(*ExecContext)
	if !ok {
		return fmt.Errorf("invalid context for close command")
	}
	if len(args) == 0 {
		return fmt.Errorf("close: missing connection name")
	}
	sc, err := getConn(ctx, args[0])
	if err != nil {
		return err
	}
	return sc.Conn.Close()
}

// cmdExpect handles "expect <conn> <kind> [-as LABEL] [-status N]
// [-hdr NAME VALUE] [-bodylen N] [-err SUBSTRING]", draining the oldest
// matching queued Event and asserting on it.
func cmdExpect(args []string, priv interface{}, logger *logging.Logger) error {
	ctx, ok := priv.(*ExecContext)
	if !ok {
		return fmt.Errorf("invalid context for expect command")
	}
	if len(args) < 2 {
		return fmt.Errorf("expect: usage: expect <conn> <kind> [options]")
	}
	sc, err := getConn(ctx, args[0])
	if err != nil {
		return err
	}
	kind := args[1]
	args = args[2:]

	label := ""
	wantStatus := -1
	wantBodyLen := -1
	wantErr := ""
	hasHdr := false
	var wantHdrName, wantHdrValue string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-as":
			if i+1 >= len(args) {
				return fmt.Errorf("expect: -as requires a label")
			}
			i++
			label = args[i]

		case "-status":
			if i+1 >= len(args) {
				return fmt.Errorf("expect: -status requires a value")
			}
			i++
			n, err := strconv.Atoi(args[i])
			if err != nil {
				return fmt.Errorf("expect: invalid status: %s", args[i])
			}
			wantStatus = n

		case "-hdr":
			if i+2 >= len(args) {
				return fmt.Errorf("expect: -hdr requires a name and a value")
			}
			wantHdrName, wantHdrValue = args[i+1], args[i+2]
			hasHdr = true
			i += 2

		case "-bodylen":
			if i+1 >= len(args) {
				return fmt.Errorf("expect: -bodylen requires a value")
			}
			i++
			n, err := strconv.Atoi(args[i])
			if err != nil {
				return fmt.Errorf("expect: invalid bodylen: %s", args[i])
			}
			wantBodyLen = n

		case "-err":
			if i+1 >= len(args) {
				return fmt.Errorf("expect: -err requires a substring")
			}
			i++
			wantErr = args[i]

		default:
			return fmt.Errorf("expect: unknown option: %s", args[i])
		}
	}
	if label == "" {
		label = sc.lastLabel
	}

	evt, ok := sc.popEvent(kind, label)
	if !ok {
		return fmt.Errorf("expect: no pending %q event on %s", kind, sc.Name)
	}

	if wantStatus >= 0 && evt.StatusCode != wantStatus {
		return fmt.Errorf("expect: status %d, want %d", evt.StatusCode, wantStatus)
	}
	if hasHdr {
		found := false
		for _, h := range evt.Headers {
			if h.Name == wantHdrName && h.Value == wantHdrValue {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("expect: header %s=%s not found", wantHdrName, wantHdrValue)
		}
	}
	if wantBodyLen >= 0 && len(evt.Data) != wantBodyLen {
		return fmt.Errorf("expect: body length %d, want %d", len(evt.Data), wantBodyLen)
	}
	if wantErr != "" {
		if evt.Err == nil {
			return fmt.Errorf("expect: expected error containing %q, got none", wantErr)
		}
		if !strings.Contains(evt.Err.Error(), wantErr) {
			return fmt.Errorf("expect: error %q does not contain %q", evt.Err.Error(), wantErr)
		}
	}
	return nil
}
