package infrared

// interpret validates the collected bits of the session's family and builds
// the message.
func (d *Decoder) interpret() (Message, bool) {
	b := d.bits

	switch d.desc.Family {
	case FamilyNEC:
		return interpretNEC(b)
	case FamilySamsung32:
		return interpretSamsung32(b)
	case FamilySIRC:
		return interpretSIRC(b)
	case FamilyRC5:
		return d.interpretRC5(b)
	case FamilyRC6:
		return d.interpretRC6(b)
	case FamilyRCA:
		return interpretRCA(b)
	case FamilyPioneer:
		return interpretPioneer(b)
	case FamilyKaseikyo:
		return interpretKaseikyo(b)
	default:
		return Message{}, false
	}
}

// complement reports whether inv is the bit complement of v within width bits.
func complement(v, inv uint32, width int) bool {
	mask := uint32(1)<<uint(width) - 1
	return v&mask == ^inv&mask
}

func interpretNEC(b Bits) (Message, bool) {
	switch b.Len() {
	case 32:
		addr, addrInv := b.Field(0, 8), b.Field(8, 8)
		cmd, cmdInv := b.Field(16, 8), b.Field(24, 8)
		if complement(addr, addrInv, 8) && complement(cmd, cmdInv, 8) {
			return Message{Protocol: NEC, Address: addr, Command: cmd}, true
		}
		return Message{Protocol: NECext, Address: b.Field(0, 16), Command: b.Field(16, 16)}, true

	case 42:
		addr, addrInv := b.Field(0, 13), b.Field(13, 13)
		cmd, cmdInv := b.Field(26, 8), b.Field(34, 8)
		if complement(addr, addrInv, 13) && complement(cmd, cmdInv, 8) {
			return Message{Protocol: NEC42, Address: addr, Command: cmd}, true
		}
		return Message{
			Protocol: NEC42ext,
			Address:  addr | addrInv<<13,
			Command:  cmd | cmdInv<<8,
		}, true
	}
	return Message{}, false
}

func interpretSamsung32(b Bits) (Message, bool) {
	if b.Len() != 32 {
		return Message{}, false
	}

	addr1, addr2 := b.Field(0, 8), b.Field(8, 8)
	cmd, cmdInv := b.Field(16, 8), b.Field(24, 8)
	if addr1 != addr2 || !complement(cmd, cmdInv, 8) {
		return Message{}, false
	}
	return Message{Protocol: Samsung32, Address: addr1, Command: cmd}, true
}

func interpretSIRC(b Bits) (Message, bool) {
	var p Protocol
	switch b.Len() {
	case 12:
		p = SIRC
	case 15:
		p = SIRC15
	case 20:
		p = SIRC20
	default:
		return Message{}, false
	}

	return Message{
		Protocol: p,
		Command:  b.Field(0, 7),
		Address:  b.Field(7, sircAddressWidth(p)),
	}, true
}

// interpretRC5 reads start bits, toggle, 5 address and 6 command bits. A
// cleared second start bit extends the command to 7 bits (RC5X).
func (d *Decoder) interpretRC5(raw Bits) (Message, bool) {
	if raw.Len() != 14 {
		return Message{}, false
	}

	b := raw.Not()
	if !b.Bit(0) {
		return Message{}, false
	}

	m := Message{Protocol: RC5, Address: b.FieldMSB(3, 5), Command: b.FieldMSB(8, 6)}
	if !b.Bit(1) {
		m.Protocol = RC5X
		m.Command |= 0x40
	}
	return d.toggled(m, b.Bit(2)), true
}

// interpretRC6 reads mode 0 frames: start bit, 3 mode bits, toggle, 8 address
// and 8 command bits.
func (d *Decoder) interpretRC6(b Bits) (Message, bool) {
	if b.Len() != 21 || !b.Bit(0) || b.FieldMSB(1, 3) != 0 {
		return Message{}, false
	}

	m := Message{Protocol: RC6, Address: b.FieldMSB(5, 8), Command: b.FieldMSB(13, 8)}
	return d.toggled(m, b.Bit(4)), true
}

// toggled marks m as repeat if it equals the previous frame including its toggle bit.
func (d *Decoder) toggled(m Message, toggle bool) Message {
	prev := d.carry
	m.Repeat = prev.valid && prev.toggle == toggle &&
		prev.msg.Protocol == m.Protocol &&
		prev.msg.Address == m.Address &&
		prev.msg.Command == m.Command

	d.carry = toggleCarry{valid: true, toggle: toggle, msg: m}
	return m
}

func interpretRCA(b Bits) (Message, bool) {
	if b.Len() != 24 {
		return Message{}, false
	}

	addr, cmd := b.Field(0, 4), b.Field(4, 8)
	if !complement(addr, b.Field(12, 4), 4) || !complement(cmd, b.Field(16, 8), 8) {
		return Message{}, false
	}
	return Message{Protocol: RCA, Address: addr, Command: cmd}, true
}

func interpretPioneer(b Bits) (Message, bool) {
	if b.Len() != 32 && b.Len() != 33 {
		return Message{}, false
	}

	addr, cmd := b.Field(0, 8), b.Field(16, 8)
	if !complement(addr, b.Field(8, 8), 8) || !complement(cmd, b.Field(24, 8), 8) {
		return Message{}, false
	}
	return Message{Protocol: Pioneer, Address: addr, Command: cmd}, true
}

func interpretKaseikyo(b Bits) (Message, bool) {
	if b.Len() != 48 {
		return Message{}, false
	}

	var p [6]byte
	for i := range p {
		p[i] = byte(b.Field(i*8, 8))
	}

	if p[2]&0x0F != kaseikyoVendorParity(p[0], p[1]) || p[5] != p[2]^p[3]^p[4] {
		return Message{}, false
	}

	vendor := uint32(p[0]) | uint32(p[1])<<8
	genre1 := uint32(p[2] >> 4)
	genre2 := uint32(p[3] & 0x0F)
	data := uint32(p[3]>>4) | uint32(p[4]&0x3F)<<4
	id := uint32(p[4] >> 6)

	return Message{
		Protocol: Kaseikyo,
		Address:  id<<24 | vendor<<8 | genre1<<4 | genre2,
		Command:  data,
	}, true
}
