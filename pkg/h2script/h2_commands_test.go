package h2script

import (
	"testing"

	"github.com/nilbound/h2core/pkg/logging"
)

func newTestExecContext(t *testing.T) *ExecContext {
	t.Helper()
	return NewExecContext(logging.NewLogger("h2script_test"), NewMacroStore(), t.TempDir(), 0)
}

func TestCmdConnAndTxReq(t *testing.T) {
	ctx := newTestExecContext(t)

	if err := cmdConn([]string{"c1", "-mode", "active"}, ctx, ctx.Logger); err != nil {
		t.Fatalf("conn: %v", err)
	}
	sc, err := getConn(ctx, "c1")
	if err != nil {
		t.Fatalf("getConn: %v", err)
	}

	if err := cmdTxReq([]string{"c1", "-url", "/widgets", "-hdr", "x-test", "1"}, ctx, ctx.Logger); err != nil {
		t.Fatalf("txreq: %v", err)
	}

	if len(sc.Tr.sentBytes()) == 0 {
		t.Fatal("expected txreq to write preface/SETTINGS/HEADERS bytes to the transport")
	}
	if _, ok := sc.Refs["req1"]; !ok {
		t.Fatal("expected txreq to register the default label req1")
	}
}

func TestCmdSendHexSettingsChanged(t *testing.T) {
	ctx := newTestExecContext(t)
	if err := cmdConn([]string{"c1"}, ctx, ctx.Logger); err != nil {
		t.Fatalf("conn: %v", err)
	}

	// An empty, non-ack SETTINGS frame from the peer: length=0, type=0x4,
	// flags=0, stream=0.
	if err := cmdSendHex([]string{"c1", "00", "00", "00", "04", "00", "00", "00", "00", "00"}, ctx, ctx.Logger); err != nil {
		t.Fatalf("sendhex: %v", err)
	}

	if err := cmdExpect([]string{"c1", "settings_changed"}, ctx, ctx.Logger); err != nil {
		t.Fatalf("expect settings_changed: %v", err)
	}
}

func TestCmdExpectErrorOnRstStream(t *testing.T) {
	ctx := newTestExecContext(t)
	if err := cmdConn([]string{"c1"}, ctx, ctx.Logger); err != nil {
		t.Fatalf("conn: %v", err)
	}
	if err := cmdTxReq([]string{"c1", "-url", "/"}, ctx, ctx.Logger); err != nil {
		t.Fatalf("txreq: %v", err)
	}

	// RST_STREAM on stream 1 (the request above), error code CANCEL (0x8):
	// length=4, type=0x3, flags=0, stream=1, payload=00000008.
	if err := cmdSendHex([]string{"c1", "000004030000000100000008"}, ctx, ctx.Logger); err != nil {
		t.Fatalf("sendhex: %v", err)
	}

	if err := cmdExpect([]string{"c1", "error", "-as", "req1"}, ctx, ctx.Logger); err != nil {
		t.Fatalf("expect error: %v", err)
	}
}

func TestCmdCancelAndClose(t *testing.T) {
	ctx := newTestExecContext(t)
	if err := cmdConn([]string{"c1"}, ctx, ctx.Logger); err != nil {
		t.Fatalf("conn: %v", err)
	}
	if err := cmdTxReq([]string{"c1", "-url", "/", "-stream"}, ctx, ctx.Logger); err != nil {
		t.Fatalf("txreq: %v", err)
	}
	if err := cmdCancel([]string{"c1"}, ctx, ctx.Logger); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := cmdCancel([]string{"c1"}, ctx, ctx.Logger); err != nil {
		t.Fatalf("cancel should be idempotent: %v", err)
	}
	if err := cmdClose([]string{"c1"}, ctx, ctx.Logger); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := cmdClose([]string{"c1"}, ctx, ctx.Logger); err != nil {
		t.Fatalf("close should be idempotent: %v", err)
	}
}

func TestCmdExpectUnknownConn(t *testing.T) {
	ctx := newTestExecContext(t)
	if err := cmdExpect([]string{"nope", "status"}, ctx, ctx.Logger); err == nil {
		t.Fatal("expected an error referencing an unknown connection")
	}
}
