package infrared

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

// frame returns the edges of one frame up to and including the done edge.
func frame(c *qt.C, m Message) []Edge {
	e, err := NewEncoder(m.Protocol)
	c.Assert(err, qt.IsNil)
	c.Assert(e.Reset(m), qt.IsNil)

	var edges []Edge
	for {
		edge, done := e.Encode()
		edges = append(edges, edge)
		if done {
			return edges
		}
		c.Assert(len(edges) < 1000, qt.IsTrue)
	}
}

func TestEncodeNEC(t *testing.T) {
	c := qt.New(t)

	edges := frame(c, Message{Protocol: NEC, Address: 0x00, Command: 0x0C})

	c.Assert(edges[0], qt.Equals, Edge{Level: false, Duration: 110000})
	c.Assert(edges[1], qt.Equals, Edge{Level: true, Duration: 9000})
	c.Assert(edges[2], qt.Equals, Edge{Level: false, Duration: 4500})
	c.Assert(edges, qt.HasLen, 3+64+1)

	// address, ~address, command, ~command least significant bit first
	const word = 0xF30CFF00
	for i := 0; i < 32; i++ {
		space := uint32(560)
		if word&(1<<uint(i)) != 0 {
			space = 1690
		}
		c.Assert(edges[3+2*i], qt.Equals, Edge{Level: true, Duration: 560})
		c.Assert(edges[4+2*i], qt.Equals, Edge{Level: false, Duration: space}, qt.Commentf("bit %d", i))
	}
	c.Assert(edges[len(edges)-1], qt.Equals, Edge{Level: true, Duration: 560})
}

func TestEncodeNECRepeat(t *testing.T) {
	c := qt.New(t)

	e, err := NewEncoder(NEC)
	c.Assert(err, qt.IsNil)
	c.Assert(e.Reset(Message{Protocol: NEC, Address: 0x10, Command: 0x20}), qt.IsNil)

	var sum uint32
	for {
		edge, done := e.Encode()
		if edge.Duration != 110000 {
			sum += edge.Duration
		}
		if done {
			break
		}
	}

	var repeat []Edge
	for {
		edge, done := e.Encode()
		repeat = append(repeat, edge)
		if done {
			break
		}
	}

	c.Assert(repeat, qt.HasLen, 4)
	c.Assert(sum+repeat[0].Duration, qt.Equals, uint32(108000))
	c.Assert(repeat[1:], qt.DeepEquals, []Edge{
		{Level: true, Duration: 9000},
		{Level: false, Duration: 2250},
		{Level: true, Duration: 560},
	})
}

func TestEncodeSIRCEndsOnMark(t *testing.T) {
	c := qt.New(t)

	for _, p := range []Protocol{SIRC, SIRC15, SIRC20} {
		c.Run(p.String(), func(c *qt.C) {
			edges := frame(c, Message{Protocol: p, Address: 0x1FFF, Command: 0x7F})
			last := edges[len(edges)-1]
			c.Assert(last, qt.Equals, Edge{Level: true, Duration: 1200})

			d, _ := p.Family().Descriptor()
			bits := map[Protocol]int{SIRC: 12, SIRC15: 15, SIRC20: 20}[p]
			// silence, preamble, a mark per bit and a space between bits
			c.Assert(edges, qt.HasLen, 3+2*bits-1)
			c.Assert(edges[1].Duration, qt.Equals, d.Preamble.Mark)
		})
	}
}

func TestEncodeEdgeBound(t *testing.T) {
	c := qt.New(t)

	for _, p := range Protocols() {
		c.Run(p.String(), func(c *qt.C) {
			d, _ := p.Family().Descriptor()
			edges := frame(c, Message{Protocol: p, Address: 0xFFFFFFFF, Command: 0xFFFFFFFF})
			c.Assert(len(edges) <= 2*d.MaxBitLength()+4, qt.IsTrue, qt.Commentf("%d edges", len(edges)))
			c.Assert(edges[len(edges)-1].Level, qt.IsTrue)
		})
	}
}

func TestEncodeManchesterHalfPeriods(t *testing.T) {
	c := qt.New(t)

	e, err := NewEncoder(RC6)
	c.Assert(err, qt.IsNil)
	c.Assert(e.Reset(Message{Protocol: RC6, Address: 0xFF, Command: 0xFF}), qt.IsNil)

	edges := e.Burst(0).Edges
	c.Assert(edges[0], qt.Equals, Edge{Level: true, Duration: 2666})
	c.Assert(edges[1], qt.Equals, Edge{Level: false, Duration: 889})
	for _, edge := range edges[2:] {
		c.Assert(edge.Duration%444, qt.Equals, uint32(0))
		c.Assert(edge.Duration/444 <= 3, qt.IsTrue)
	}
}

func TestEncodeMasksFields(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		in   Message
		want Message
	}{
		{Message{Protocol: NEC, Address: 0x1234, Command: 0x1FF}, Message{Protocol: NEC, Address: 0x34, Command: 0xFF}},
		{Message{Protocol: SIRC, Address: 0xFF, Command: 0xFF}, Message{Protocol: SIRC, Address: 0x1F, Command: 0x7F}},
		{Message{Protocol: RC5X, Address: 0x3, Command: 0x05}, Message{Protocol: RC5X, Address: 0x3, Command: 0x45}},
		{Message{Protocol: RCA, Address: 0x1F, Command: 0x1AB}, Message{Protocol: RCA, Address: 0xF, Command: 0xAB}},
		{Message{Protocol: Kaseikyo, Address: 0xFFFFFFFF, Command: 0xFFFF, Repeat: true}, Message{Protocol: Kaseikyo, Address: 0x3FFFFFF, Command: 0x3FF}},
	}

	for _, tt := range tests {
		c.Run(tt.in.Protocol.String(), func(c *qt.C) {
			e, err := NewEncoder(tt.in.Protocol)
			c.Assert(err, qt.IsNil)
			c.Assert(e.Reset(tt.in), qt.IsNil)
			c.Assert(e.Message(), qt.Equals, tt.want)
		})
	}
}

func TestEncoderErrors(t *testing.T) {
	c := qt.New(t)

	_, err := NewEncoder(Unknown)
	c.Assert(err, qt.ErrorIs, ErrUnknownProtocol)

	e, err := NewEncoder(NEC)
	c.Assert(err, qt.IsNil)
	c.Assert(e.Reset(Message{Protocol: Samsung32}), qt.ErrorIs, ErrProtocolMismatch)
	c.Assert(e.Reset(Message{Protocol: NECext, Address: 0x1234}), qt.IsNil)

	f, dc := e.Carrier()
	c.Assert(f, qt.Equals, uint32(38000))
	c.Assert(dc, qt.Equals, float32(0.33))
}

func TestMerge(t *testing.T) {
	c := qt.New(t)

	got := Merge([]Edge{
		{Level: false, Duration: 100},
		{Level: false, Duration: 50},
		{Level: true, Duration: 10},
		{Level: true, Duration: 0},
		{Level: true, Duration: 20},
		{Level: false, Duration: 5},
	})
	c.Assert(got, qt.DeepEquals, []Edge{
		{Level: false, Duration: 150},
		{Level: true, Duration: 30},
		{Level: false, Duration: 5},
	})
}

func TestSignalTimings(t *testing.T) {
	c := qt.New(t)

	s := RawSignal(38000, 0.33, []uint32{9000, 4500, 560})
	c.Assert(s.Edges, qt.DeepEquals, []Edge{
		{Level: true, Duration: 9000},
		{Level: false, Duration: 4500},
		{Level: true, Duration: 560},
	})
	c.Assert(s.Timings(), qt.DeepEquals, []uint32{9000, 4500, 560})
}

func TestBurstRepeats(t *testing.T) {
	c := qt.New(t)
	m := Message{Protocol: NEC, Address: 0x04, Command: 0x08}

	for _, n := range []int{-1, MaxRepeats + 1, 100000} {
		_, err := Burst(m, n)
		c.Assert(err, qt.ErrorIs, ErrRepeats, qt.Commentf("repeats %d", n))
	}

	s, err := Burst(m, MaxRepeats)
	c.Assert(err, qt.IsNil)
	c.Assert(s.Edges, qt.HasLen, 67+4*MaxRepeats)

	// the encoder clamps instead of failing
	e, err := NewEncoder(NEC)
	c.Assert(err, qt.IsNil)
	c.Assert(e.Reset(m), qt.IsNil)
	c.Assert(e.Burst(100000).Edges, qt.HasLen, 67+4*MaxRepeats)
}
