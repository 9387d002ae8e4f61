package h2

import "math"

// flowWindow tracks one direction (send or receive) of one flow-control
// window (connection- or stream-scoped). Per RFC 7540 §6.9.1 the window is
// a signed quantity that can go negative (a SETTINGS_INITIAL_WINDOW_SIZE
// decrease applies retroactively) but must never overflow a 32-bit signed
// integer in either direction.
type flowWindow struct {
	size int32
}

func newFlowWindow(initial uint32) flowWindow {
	return flowWindow{size: int32(initial)}
}

// add applies a (possibly negative) delta, returning a flow_control_error
// if doing so would overflow the window's signed 32-bit range.
func (w *flowWindow) add(delta int32, scope string) error {
	next := int64(w.size) + int64(delta)
	if next > math.MaxInt32 || next < math.MinInt32 {
		return ErrFlowControl(scope, "window update overflows the flow control window")
	}
	w.size = int32(next)
	return nil
}

// consume subtracts n bytes sent/received, which may legitimately drive
// the window negative only via settings-induced shrinkage — callers are
// expected to have already checked n does not exceed size.
func (w *flowWindow) consume(n uint32) {
	w.size -= int32(n)
}

// FlowController tracks one connection's four windows: the local and
// remote views of the connection window, plus (per stream, kept on the
// Stream itself) the send/receive windows for that stream. This type
// holds only the connection-scoped pair; per-stream windows live on
// Stream to keep lifetime tied to the stream table.
type FlowController struct {
	// send is this side's budget for sending DATA (shrinks as we send,
	// grows on a WINDOW_UPDATE from the peer).
	send flowWindow
	// recv is this side's budget for receiving DATA before it must emit
	// a WINDOW_UPDATE (shrinks as we receive, grows when we top it up).
	recv            flowWindow
	recvInitial     uint32
	recvHighWater   uint32 // bytes received since the last WINDOW_UPDATE we sent
}

func newFlowController(sendInitial, recvInitial uint32) *FlowController {
	return &FlowController{
		send:        newFlowWindow(sendInitial),
		recv:        newFlowWindow(recvInitial),
		recvInitial: recvInitial,
	}
}

// SendWindow returns the current outbound connection window.
func (fc *FlowController) SendWindow() int32 { return fc.send.size }

// RecvWindow returns the current inbound connection window.
func (fc *FlowController) RecvWindow() int32 { return fc.recv.size }

// ApplyWindowUpdate grows the send window by increment, as observed from
// an inbound WINDOW_UPDATE frame.
func (fc *FlowController) ApplyWindowUpdate(increment uint32) error {
	return fc.send.add(int32(increment), "connection")
}

// applySettingsInitialWindowDelta adjusts w by delta when
// SETTINGS_INITIAL_WINDOW_SIZE changes; per RFC 7540 §6.9.2 this affects
// only stream windows, not the connection window, so FlowController itself
// is never adjusted this way. Nothing calls it: the stream windows are
// adjusted by applyInitialWindowDelta in connection.go.
func applySettingsInitialWindowDelta(w *flowWindow, delta int32, scope string) error {
	return w.add(delta, scope)
}

// ConsumeSend records n bytes of outbound DATA against the connection
// window.
func (fc *FlowController) ConsumeSend(n uint32) { fc.send.consume(n) }

// ConsumeRecv records n bytes of inbound DATA against the connection
// window and its high-water counter.
func (fc *FlowController) ConsumeRecv(n uint32) error {
	if int32(n) > fc.recv.size {
		return ErrFlowControl("connection", "peer sent more data than the connection receive window allows")
	}
	fc.recv.consume(n)
	fc.recvHighWater += n
	return nil
}

// WindowUpdateIncrement returns the increment to send back to the peer
// (refilling the receive window to recvInitial) if recvHighWater has
// crossed half of the window, and 0 (send nothing) otherwise. This
// matches the common "refill at the halfway point" heuristic used by
// production HTTP/2 stacks to avoid a WINDOW_UPDATE per DATA frame.
func (fc *FlowController) WindowUpdateIncrement() uint32 {
	if fc.recvHighWater == 0 {
		return 0
	}
	if fc.recv.size > int32(fc.recvInitial/2) {
		return 0
	}
	inc := fc.recvHighWater
	fc.recvHighWater = 0
	fc.recv.add(int32(inc), "connection") //nolint:errcheck // refill never overflows: inc <= recvInitial
	return inc
}

// EligibleBytes caps a would-be DATA write at min(requested, connection
// send window, stream send window, peer's max frame size) — never
// negative.
func EligibleBytes(requested int, connWindow, streamWindow int32, peerMaxFrameSize uint32) int {
	if connWindow <= 0 || streamWindow <= 0 {
		return 0
	}
	n := requested
	if int64(n) > int64(connWindow) {
		n = int(connWindow)
	}
	if int64(n) > int64(streamWindow) {
		n = int(streamWindow)
	}
	if peerMaxFrameSize > 0 && uint32(n) > peerMaxFrameSize {
		n = int(peerMaxFrameSize)
	}
	if n < 0 {
		return 0
	}
	return n
}
