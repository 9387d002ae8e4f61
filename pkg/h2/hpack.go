package h2

import (
	"bytes"

	xhpack "golang.org/x/net/http2/hpack"
)

// HeaderField aliases the upstream hpack type directly: its Name/Value/
// Sensitive shape is exactly what spec.md's header list needs, and keeping
// the alias means no field-by-field conversion at the encode/decode
// boundary.
type HeaderField = xhpack.HeaderField

// HPACKEncoder serializes header lists into HPACK-encoded header blocks.
// One encoder per direction per connection: its dynamic table is
// connection-scoped state that must persist across every HEADERS frame
// sent on that connection (RFC 7541 §2.3.2).
type HPACKEncoder struct {
	enc *xhpack.Encoder
	buf *bytes.Buffer
}

// NewHPACKEncoder creates an encoder with the given initial dynamic table
// capacity (the peer's SETTINGS_HEADER_TABLE_SIZE).
func NewHPACKEncoder(tableSize uint32) *HPACKEncoder {
	buf := &bytes.Buffer{}
	enc := xhpack.NewEncoder(buf)
	enc.SetMaxDynamicTableSize(tableSize)
	return &HPACKEncoder{enc: enc, buf: buf}
}

// SetMaxDynamicTableSize resizes the dynamic table, e.g. in reaction to a
// peer's SETTINGS_HEADER_TABLE_SIZE change.
func (e *HPACKEncoder) SetMaxDynamicTableSize(n uint32) {
	e.enc.SetMaxDynamicTableSize(n)
}

// Encode serializes fields into a single HPACK header block. The caller
// (facade.go) is responsible for splitting the result across HEADERS/
// CONTINUATION frames via splitHeaderBlock.
func (e *HPACKEncoder) Encode(fields []HeaderField) ([]byte, error) {
	e.buf.Reset()
	for _, f := range fields {
		if err := e.enc.WriteField(f); err != nil {
			return nil, ErrCompression(err.Error())
		}
	}
	out := make([]byte, e.buf.Len())
	copy(out, e.buf.Bytes())
	return out, nil
}

// HPACKDecoder reassembles and decodes header blocks. One decoder per
// direction per connection, for the same dynamic-table-persistence reason
// as HPACKEncoder. It decodes only complete header blocks: Connection
// collects the HEADERS/PUSH_PROMISE and CONTINUATION fragments in its own
// buffer and hands the whole block to DecodeBlock.
type HPACKDecoder struct {
	dec        *xhpack.Decoder
	fields     []HeaderField
	size       uint32
	maxSize    uint32
	maxSizeSet bool
}

// NewHPACKDecoder creates a decoder with the given initial dynamic table
// capacity (this side's own SETTINGS_HEADER_TABLE_SIZE, sent to the peer).
func NewHPACKDecoder(tableSize uint32) *HPACKDecoder {
	d := &HPACKDecoder{}
	d.dec = xhpack.NewDecoder(tableSize, func(f xhpack.HeaderField) {
		d.fields = append(d.fields, f)
		d.size += uint32(len(f.Name)) + uint32(len(f.Value)) + 32
	})
	return d
}

// SetMaxDynamicTableSize resizes the dynamic table in response to this
// side's own SETTINGS_HEADER_TABLE_SIZE change taking effect.
func (d *HPACKDecoder) SetMaxDynamicTableSize(n uint32) {
	d.dec.SetMaxDynamicTableSize(n)
}

// SetMaxHeaderListSize bounds the decoded header list's total size
// (SETTINGS_MAX_HEADER_LIST_SIZE); DecodeBlock reports max_header_list_size_exceeded
// if the reassembled block would exceed it. A false limitSet means no
// limit.
func (d *HPACKDecoder) SetMaxHeaderListSize(limit uint32, limitSet bool) {
	d.maxSize = limit
	d.maxSizeSet = limitSet
}

// DecodeBlock decodes one complete, reassembled header block — the
// concatenation of a HEADERS/PUSH_PROMISE fragment with every
// CONTINUATION fragment up to END_HEADERS. The dynamic table persists
// across calls; only the returned field list is reset.
func (d *HPACKDecoder) DecodeBlock(block []byte) ([]HeaderField, error) {
	d.fields = d.fields[:0]
	d.size = 0
	if _, err := d.dec.Write(block); err != nil {
		return nil, ErrCompression(err.Error())
	}
	if err := d.dec.Close(); err != nil {
		return nil, ErrCompression(err.Error())
	}
	if d.maxSizeSet && d.size > d.maxSize {
		return nil, ErrMaxHeaderListSizeExceeded(d.size, d.maxSize)
	}
	out := d.fields
	d.fields = nil
	return out, nil
}
