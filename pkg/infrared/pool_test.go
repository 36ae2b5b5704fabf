package infrared

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestPoolNEC(t *testing.T) {
	c := qt.New(t)

	p := NewPool()
	_, ok := p.Last()
	c.Assert(ok, qt.IsFalse)

	got := p.DecodeAll(burst(c, Message{Protocol: NEC, Address: 0x00, Command: 0x0C}, 0), true)
	c.Assert(got, qt.DeepEquals, []Message{{Protocol: NEC, Address: 0, Command: 12, Repeat: false}})

	last, ok := p.Last()
	c.Assert(ok, qt.IsTrue)
	c.Assert(last, qt.Equals, got[0])
}

func TestPoolKaseikyoDoesNotDisturbOthers(t *testing.T) {
	c := qt.New(t)

	p, err := NewPoolOf(FamilyRC6, FamilySamsung32, FamilyKaseikyo)
	c.Assert(err, qt.IsNil)

	m := Message{Protocol: Kaseikyo, Address: 0x02200231, Command: 0x1FD}
	var got []Message
	for _, e := range burst(c, m, 0) {
		if msg := p.Decode(e.Level, e.Duration); msg != nil {
			got = append(got, *msg)
		}
		c.Assert(p.Session(FamilyRC6).State(), qt.Equals, WaitPreamble)
		c.Assert(p.Session(FamilySamsung32).State(), qt.Equals, WaitPreamble)
	}
	if msg := p.Decode(false, 0); msg != nil {
		got = append(got, *msg)
	}

	c.Assert(got, qt.DeepEquals, []Message{m})
	c.Assert(p.Session(FamilyKaseikyo).State(), qt.Equals, WaitPreamble)
	c.Assert(p.Session(FamilyNEC), qt.IsNil)
}

func TestPoolMixedStream(t *testing.T) {
	c := qt.New(t)

	msgs := []Message{
		{Protocol: NEC, Address: 0x04, Command: 0x08},
		{Protocol: SIRC, Address: 0x01, Command: 0x15},
		{Protocol: Samsung32, Address: 0x07, Command: 0x02},
		{Protocol: RCA, Address: 0x0A, Command: 0x55},
		{Protocol: Pioneer, Address: 0xAA, Command: 0x1C},
		{Protocol: Kaseikyo, Address: 0x02200231, Command: 0x1FD},
		{Protocol: RC5, Address: 0x05, Command: 0x21},
	}

	p := NewPool()
	var got []Message
	for _, m := range msgs {
		got = append(got, p.DecodeAll(burst(c, m, 0), true)...)
	}
	c.Assert(got, qt.DeepEquals, msgs)
}

func TestPoolReset(t *testing.T) {
	c := qt.New(t)

	p := NewPool()
	edges := burst(c, Message{Protocol: NEC, Address: 0x04, Command: 0x08}, 0)
	for _, e := range edges[:len(edges)-1] {
		c.Assert(p.Decode(e.Level, e.Duration), qt.IsNil)
	}
	c.Assert(p.Session(FamilyNEC).State(), qt.Equals, Decoding)

	p.Reset()
	c.Assert(p.Session(FamilyNEC).State(), qt.Equals, WaitPreamble)
	c.Assert(p.Decode(false, 0), qt.IsNil)
}

func TestPoolCapacity(t *testing.T) {
	c := qt.New(t)

	families := make([]Family, MaxSessions+1)
	for i := range families {
		families[i] = FamilyNEC
	}
	_, err := NewPoolOf(families...)
	c.Assert(err, qt.ErrorIs, ErrPoolFull)

	_, err = NewPoolOf(FamilyNone)
	c.Assert(err, qt.ErrorIs, ErrUnknownProtocol)
}
