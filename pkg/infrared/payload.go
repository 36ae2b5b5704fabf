package infrared

import "fmt"

// payload masks the message fields to the widths of its protocol and
// serializes them in wire order.
func payload(m Message, toggle bool) (Message, Bits, error) {
	var b Bits
	m.Repeat = false

	switch m.Protocol {
	case NEC:
		m.Address &= 0xFF
		m.Command &= 0xFF
		pushComplement(&b, m.Address, 8)
		pushComplement(&b, m.Command, 8)
	case NECext:
		m.Address &= 0xFFFF
		m.Command &= 0xFFFF
		_ = b.PushLSB(uint64(m.Address), 16)
		_ = b.PushLSB(uint64(m.Command), 16)
	case NEC42:
		m.Address &= 0x1FFF
		m.Command &= 0xFF
		pushComplement(&b, m.Address, 13)
		pushComplement(&b, m.Command, 8)
	case NEC42ext:
		m.Address &= 0x3FFFFFF
		m.Command &= 0xFFFF
		_ = b.PushLSB(uint64(m.Address), 26)
		_ = b.PushLSB(uint64(m.Command), 16)
	case Samsung32:
		m.Address &= 0xFF
		m.Command &= 0xFF
		_ = b.PushLSB(uint64(m.Address), 8)
		_ = b.PushLSB(uint64(m.Address), 8)
		pushComplement(&b, m.Command, 8)
	case SIRC, SIRC15, SIRC20:
		width := sircAddressWidth(m.Protocol)
		m.Address &= 1<<uint(width) - 1
		m.Command &= 0x7F
		_ = b.PushLSB(uint64(m.Command), 7)
		_ = b.PushLSB(uint64(m.Address), width)
	case RC5, RC5X:
		m.Address &= 0x1F
		if m.Protocol == RC5 {
			m.Command &= 0x3F
		} else {
			m.Command = m.Command&0x3F | 0x40
		}
		var logical Bits
		_ = logical.Push(true)
		_ = logical.Push(m.Protocol == RC5)
		_ = logical.Push(toggle)
		_ = logical.PushMSB(uint64(m.Address), 5)
		_ = logical.PushMSB(uint64(m.Command), 6)
		// a logical one is sent as space then mark
		b = logical.Not()
	case RC6:
		m.Address &= 0xFF
		m.Command &= 0xFF
		_ = b.Push(true)
		_ = b.PushMSB(0, 3)
		_ = b.Push(toggle)
		_ = b.PushMSB(uint64(m.Address), 8)
		_ = b.PushMSB(uint64(m.Command), 8)
	case RCA:
		m.Address &= 0xF
		m.Command &= 0xFF
		_ = b.PushLSB(uint64(m.Address), 4)
		_ = b.PushLSB(uint64(m.Command), 8)
		_ = b.PushLSB(uint64(^m.Address), 4)
		_ = b.PushLSB(uint64(^m.Command), 8)
	case Pioneer:
		m.Address &= 0xFF
		m.Command &= 0xFF
		pushComplement(&b, m.Address, 8)
		pushComplement(&b, m.Command, 8)
	case Kaseikyo:
		m.Address &= 0x3FFFFFF
		m.Command &= 0x3FF
		for _, v := range kaseikyoBytes(m.Address, m.Command) {
			_ = b.PushLSB(uint64(v), 8)
		}
	default:
		return m, b, fmt.Errorf("%w: %v", ErrUnknownProtocol, m.Protocol)
	}

	return m, b, nil
}

// pushComplement appends v followed by its bit complement.
func pushComplement(b *Bits, v uint32, width int) {
	_ = b.PushLSB(uint64(v), width)
	_ = b.PushLSB(uint64(^v), width)
}

func sircAddressWidth(p Protocol) int {
	switch p {
	case SIRC15:
		return 8
	case SIRC20:
		return 13
	default:
		return 5
	}
}

// kaseikyoBytes builds the six payload bytes.
// The address holds id<<24 | vendor<<8 | genre1<<4 | genre2.
func kaseikyoBytes(address, command uint32) [6]byte {
	vendor := uint16(address >> 8)
	genre1 := byte(address>>4) & 0x0F
	genre2 := byte(address) & 0x0F
	id := byte(address>>24) & 0x03

	var p [6]byte
	p[0] = byte(vendor)
	p[1] = byte(vendor >> 8)
	p[2] = kaseikyoVendorParity(p[0], p[1]) | genre1<<4
	p[3] = genre2 | byte(command&0x0F)<<4
	p[4] = byte(command>>4)&0x3F | id<<6
	p[5] = p[2] ^ p[3] ^ p[4]
	return p
}

// kaseikyoVendorParity folds the vendor id into one nibble.
func kaseikyoVendorParity(lo, hi byte) byte {
	v := lo ^ hi
	return (v & 0x0F) ^ (v >> 4)
}
