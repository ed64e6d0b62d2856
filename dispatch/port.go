// Package dispatch implements the cooperative-concurrency call path
// that turns a resolved module.Symbol plus a caller's argument buffer
// into an executed entry-point call and a result stream (spec.md §4.F,
// §6). Grounded on the teacher's transport package (transport/base.go)
// for the streaming/compression idiom, scoped down to an in-process
// append-only sink instead of a wire protocol.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package dispatch

import (
	"github.com/pierrec/lz4/v3"
	"github.com/sprocd/sprocd/cmn/cos"
	"github.com/sprocd/sprocd/module"
	"github.com/tinylib/msgp/msgp"
)

// Port is the append-only result sink an entry point writes through
// (spec.md §6: "ctx carries a result-port handle"). It implements
// module.ResultSink. Wire encoding is message-pack via
// github.com/tinylib/msgp; buffers above compressThreshold are
// transparently lz4-framed before being handed back to the caller,
// mirroring the teacher's optional stream compression
// (transport/bundle's compressed() check).
type Port struct {
	buf               []byte
	fragments         int
	compressThreshold int
}

const defaultCompressThreshold = 64 << 10 // 64KiB, below which lz4 framing overhead isn't worth it

func NewPort() *Port {
	return &Port{compressThreshold: defaultCompressThreshold}
}

// AppendTuple message-pack encodes v and appends it to the result
// stream (spec.md §6's "append tuple").
func (p *Port) AppendTuple(v any) error {
	enc, err := marshalAny(v)
	if err != nil {
		return cos.NewProcC("encoding result tuple")
	}
	p.buf = append(p.buf, enc...)
	p.fragments++
	return nil
}

// AppendFragment appends a caller-prepared message-pack-encoded
// fragment verbatim (spec.md §6's "append message-pack fragment") —
// used when the entry point has already done its own msgp encoding
// and just wants to hand the runtime raw bytes.
func (p *Port) AppendFragment(b []byte) error {
	p.buf = append(p.buf, b...)
	p.fragments++
	return nil
}

// Fragments reports how many AppendTuple/AppendFragment calls landed
// in this port, for diagnostics and the journal record.
func (p *Port) Fragments() int { return p.fragments }

// Reset clears the port for reuse across dispatches without
// reallocating the backing buffer, the same pattern core.Arena uses
// for its watermark buffer.
func (p *Port) Reset() {
	p.buf = p.buf[:0]
	p.fragments = 0
}

// RawBytes returns the accumulated stream exactly as appended, never
// lz4-framed. This is the accessor argument payloads must go through
// (SPEC_FULL §4.F: "compression is never applied to the buffer handed
// to the entry point itself") — WireBytes below is for the *result*
// port's caller-facing transport only, never for what an entry point
// receives as its own input.
func (p *Port) RawBytes() []byte { return p.buf }

// WireBytes returns the accumulated result stream, lz4-compressing it
// first if it has grown past compressThreshold.
func (p *Port) WireBytes() ([]byte, bool, error) {
	if len(p.buf) < p.compressThreshold {
		return p.buf, false, nil
	}
	out, ok, err := compressLZ4(p.buf)
	if err != nil {
		return nil, false, cos.NewSystemError("compressing result stream", err)
	}
	return out, ok, nil
}

// compressLZ4 returns the lz4-compressed form of src and true, or src
// itself unchanged and false when lz4.CompressBlock reports the input
// as incompressible (n==0) rather than let it expand.
func compressLZ4(src []byte) ([]byte, bool, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(src)))
	var ht [1 << 16]int
	n, err := lz4.CompressBlock(src, dst, ht[:])
	if err != nil {
		return nil, false, err
	}
	if n == 0 {
		return src, false, nil
	}
	return dst[:n], true, nil
}

func marshalAny(v any) ([]byte, error) {
	if m, ok := v.(msgp.Marshaler); ok {
		return m.MarshalMsg(nil)
	}
	return msgp.AppendIntf(nil, v)
}

var _ module.ResultSink = (*Port)(nil)
var _ ArgsPort = (*Port)(nil)
