// Package codec converts MolecularGraphs to and from their persisted and wire
// forms: the binary .arcg snapshot and the JSON structure payload exchanged
// with the recognition backend.
package codec

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/golang/snappy"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/turtacn/ARChemistry/internal/domain/graph"
	"github.com/turtacn/ARChemistry/pkg/errors"
)

// Snapshot header.
const (
	Magic         = "ARCG"
	Version  byte = 1
	FileExt       = ".arcg"
	headerLen     = len(Magic) + 1
)

// Top-level field numbers.
const (
	fieldAtom protowire.Number = 1
	fieldBond protowire.Number = 2
)

// Atom message field numbers.
const (
	atomElement protowire.Number = iota + 1
	atomX
	atomY
	atomX3D
	atomY3D
	atomZ3D
	atomImplicitH
)

// Bond message field numbers.
const (
	bondSource protowire.Number = iota + 1
	bondTarget
	bondOrder
)

// Encode serialises g into the snapshot format: the magic, one version byte,
// and a snappy block holding the atom and bond records.
func Encode(g *graph.MolecularGraph) []byte {
	var body []byte
	for _, a := range g.VertexSet() {
		body = protowire.AppendTag(body, fieldAtom, protowire.BytesType)
		body = protowire.AppendBytes(body, appendAtom(nil, a))
	}
	for _, b := range g.EdgeSet() {
		body = protowire.AppendTag(body, fieldBond, protowire.BytesType)
		body = protowire.AppendBytes(body, appendBond(nil, b))
	}

	out := make([]byte, 0, headerLen+snappy.MaxEncodedLen(len(body)))
	out = append(out, Magic...)
	out = append(out, Version)
	return append(out, snappy.Encode(nil, body)...)
}

func appendAtom(b []byte, a graph.Atom) []byte {
	b = protowire.AppendTag(b, atomElement, protowire.BytesType)
	b = protowire.AppendString(b, a.Element())
	for _, f := range []struct {
		num protowire.Number
		v   float64
	}{
		{atomX, a.X}, {atomY, a.Y}, {atomX3D, a.X3D}, {atomY3D, a.Y3D}, {atomZ3D, a.Z3D},
	} {
		b = protowire.AppendTag(b, f.num, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(f.v))
	}
	b = protowire.AppendTag(b, atomImplicitH, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(int64(a.ImplicitHydrogens)))
}

func appendBond(b []byte, bd graph.Bond) []byte {
	b = protowire.AppendTag(b, bondSource, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(bd.Source)))
	b = protowire.AppendTag(b, bondTarget, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(bd.Target)))
	b = protowire.AppendTag(b, bondOrder, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(int64(bd.Order)))
}

// Decode parses a snapshot produced by Encode.  The resulting graph is
// validated; any structural problem is reported as ErrCodeGraphSnapshotCorrupt.
func Decode(data []byte) (*graph.MolecularGraph, error) {
	if len(data) < headerLen || string(data[:len(Magic)]) != Magic {
		return nil, corrupt("missing ARCG header")
	}
	if v := data[len(Magic)]; v != Version {
		return nil, corrupt(fmt.Sprintf("unsupported snapshot version %d", v))
	}
	body, err := snappy.Decode(nil, data[headerLen:])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGraphSnapshotCorrupt, "snapshot body is not valid snappy")
	}

	var (
		atoms []graph.Atom
		bonds []graph.Bond
	)
	for len(body) > 0 {
		num, typ, n := protowire.ConsumeTag(body)
		if n < 0 {
			return nil, wireErr(n)
		}
		body = body[n:]

		if typ != protowire.BytesType || (num != fieldAtom && num != fieldBond) {
			n = protowire.ConsumeFieldValue(num, typ, body)
			if n < 0 {
				return nil, wireErr(n)
			}
			body = body[n:]
			continue
		}

		msg, n := protowire.ConsumeBytes(body)
		if n < 0 {
			return nil, wireErr(n)
		}
		body = body[n:]

		if num == fieldAtom {
			a, err := parseAtom(msg)
			if err != nil {
				return nil, err
			}
			atoms = append(atoms, a)
		} else {
			b, err := parseBond(msg)
			if err != nil {
				return nil, err
			}
			bonds = append(bonds, b)
		}
	}

	g := graph.FromParts(atoms, bonds)
	if err := g.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGraphSnapshotCorrupt, "snapshot holds an invalid graph")
	}
	return g, nil
}

func parseAtom(b []byte) (graph.Atom, error) {
	var (
		element string
		coords  [5]float64
		hyd     int64
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return graph.Atom{}, wireErr(n)
		}
		b = b[n:]
		switch {
		case num == atomElement && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return graph.Atom{}, wireErr(n)
			}
			element, b = v, b[n:]
		case num >= atomX && num <= atomZ3D && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return graph.Atom{}, wireErr(n)
			}
			coords[num-atomX], b = math.Float64frombits(v), b[n:]
		case num == atomImplicitH && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return graph.Atom{}, wireErr(n)
			}
			hyd, b = protowire.DecodeZigZag(v), b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return graph.Atom{}, wireErr(n)
			}
			b = b[n:]
		}
	}
	a := graph.NewAtom(element, coords[0], coords[1], coords[2], coords[3], coords[4])
	a.ImplicitHydrogens = int(hyd)
	return a, nil
}

func parseBond(b []byte) (graph.Bond, error) {
	var vals [3]int64
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return graph.Bond{}, wireErr(n)
		}
		b = b[n:]
		if num >= bondSource && num <= bondOrder && typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return graph.Bond{}, wireErr(n)
			}
			vals[num-bondSource], b = protowire.DecodeZigZag(v), b[n:]
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return graph.Bond{}, wireErr(n)
		}
		b = b[n:]
	}
	return graph.Bond{
		Source: graph.AtomID(vals[0]),
		Target: graph.AtomID(vals[1]),
		Order:  int(vals[2]),
	}, nil
}

// Write encodes g to w.
func Write(w io.Writer, g *graph.MolecularGraph) error {
	if _, err := w.Write(Encode(g)); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to write snapshot")
	}
	return nil
}

// Read decodes a snapshot from r.
func Read(r io.Reader) (*graph.MolecularGraph, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to read snapshot")
	}
	return Decode(buf.Bytes())
}

func corrupt(detail string) error {
	return errors.New(errors.ErrCodeGraphSnapshotCorrupt, "graph snapshot is corrupt").WithDetail(detail)
}

func wireErr(n int) error {
	return errors.Wrap(protowire.ParseError(n), errors.ErrCodeGraphSnapshotCorrupt, "graph snapshot is corrupt")
}
