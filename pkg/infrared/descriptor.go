package infrared

import "fmt"

// Family is a group of protocols sharing one timing descriptor, one decode
// session and one interpreter.
type Family int

const (
	FamilyNone Family = iota
	FamilyNEC
	FamilySamsung32
	FamilySIRC
	FamilyRC5
	FamilyRC6
	FamilyRCA
	FamilyPioneer
	FamilyKaseikyo
)

func (f Family) String() string {
	switch f {
	case FamilyNEC:
		return "NEC"
	case FamilySamsung32:
		return "Samsung32"
	case FamilySIRC:
		return "SIRC"
	case FamilyRC5:
		return "RC5"
	case FamilyRC6:
		return "RC6"
	case FamilyRCA:
		return "RCA"
	case FamilyPioneer:
		return "Pioneer"
	case FamilyKaseikyo:
		return "Kaseikyo"
	default:
		return "None"
	}
}

// Coding is the bit serialization of a protocol.
type Coding int

const (
	// PulseDistance carries the bit value in the mark or the space duration.
	PulseDistance Coding = iota
	// Manchester carries the bit value in the level of the first half period.
	Manchester
)

// Timing is a mark/space pair in µs.
type Timing struct {
	Mark  uint32
	Space uint32
}

// maxVariants is the maximum number of valid frame lengths of a descriptor.
const maxVariants = 4

// Descriptor holds the constant timing data of a protocol family.
// For Manchester protocols Bit1.Mark is the half period.
type Descriptor struct {
	Family            Family
	Coding            Coding
	Preamble          Timing
	Bit1              Timing
	Bit0              Timing
	PreambleTolerance uint32
	BitTolerance      uint32
	// Silence is the inter frame gap the encoder emits before a frame.
	Silence uint32
	// MinSplitTime is the space duration ending a frame, 0 if frames end after the longest variant.
	MinSplitTime uint32
	// Repeat is the preamble of a repeat frame, zero if the protocol replays full frames.
	Repeat       Timing
	RepeatPeriod uint32
	Frequency    uint32
	DutyCycle    float32
	// BitLengths lists the valid frame lengths in bits.
	BitLengths []int
	// StartFromSpace marks Manchester protocols whose first half bit is an invisible space.
	StartFromSpace bool
}

// repeat pause window accepted by the repeat detectors
const (
	repeatPause          = 77000
	repeatPauseTolerance = 73000
)

var descriptors = [...]Descriptor{
	FamilyNEC: {
		Family:            FamilyNEC,
		Coding:            PulseDistance,
		Preamble:          Timing{Mark: 9000, Space: 4500},
		Bit1:              Timing{Mark: 560, Space: 1690},
		Bit0:              Timing{Mark: 560, Space: 560},
		PreambleTolerance: 200,
		BitTolerance:      120,
		Silence:           110000,
		MinSplitTime:      4000,
		Repeat:            Timing{Mark: 9000, Space: 2250},
		RepeatPeriod:      108000,
		Frequency:         38000,
		DutyCycle:         0.33,
		BitLengths:        []int{42, 32},
	},
	FamilySamsung32: {
		Family:            FamilySamsung32,
		Coding:            PulseDistance,
		Preamble:          Timing{Mark: 4500, Space: 4500},
		Bit1:              Timing{Mark: 550, Space: 1650},
		Bit0:              Timing{Mark: 550, Space: 550},
		PreambleTolerance: 200,
		BitTolerance:      120,
		Silence:           145000,
		MinSplitTime:      5000,
		Repeat:            Timing{Mark: 4500, Space: 4500},
		RepeatPeriod:      108000,
		Frequency:         38000,
		DutyCycle:         0.33,
		BitLengths:        []int{32},
	},
	FamilySIRC: {
		Family:            FamilySIRC,
		Coding:            PulseDistance,
		Preamble:          Timing{Mark: 2400, Space: 600},
		Bit1:              Timing{Mark: 1200, Space: 600},
		Bit0:              Timing{Mark: 600, Space: 600},
		PreambleTolerance: 200,
		BitTolerance:      120,
		Silence:           10000,
		MinSplitTime:      2800,
		Frequency:         40000,
		DutyCycle:         0.33,
		BitLengths:        []int{20, 15, 12},
	},
	FamilyRC5: {
		Family:         FamilyRC5,
		Coding:         Manchester,
		Bit1:           Timing{Mark: 889, Space: 889},
		Bit0:           Timing{Mark: 889, Space: 889},
		BitTolerance:   120,
		Silence:        27000,
		MinSplitTime:   2500,
		Frequency:      36000,
		DutyCycle:      0.27,
		BitLengths:     []int{14},
		StartFromSpace: true,
	},
	FamilyRC6: {
		Family:            FamilyRC6,
		Coding:            Manchester,
		Preamble:          Timing{Mark: 2666, Space: 889},
		Bit1:              Timing{Mark: 444, Space: 444},
		Bit0:              Timing{Mark: 444, Space: 444},
		PreambleTolerance: 200,
		BitTolerance:      120,
		Silence:           27000,
		MinSplitTime:      2700,
		Frequency:         36000,
		DutyCycle:         0.33,
		BitLengths:        []int{21},
	},
	FamilyRCA: {
		Family:            FamilyRCA,
		Coding:            PulseDistance,
		Preamble:          Timing{Mark: 4000, Space: 4000},
		Bit1:              Timing{Mark: 500, Space: 2000},
		Bit0:              Timing{Mark: 500, Space: 1000},
		PreambleTolerance: 200,
		BitTolerance:      120,
		Silence:           8000,
		MinSplitTime:      4000,
		Frequency:         56000,
		DutyCycle:         0.33,
		BitLengths:        []int{24},
	},
	FamilyPioneer: {
		Family:            FamilyPioneer,
		Coding:            PulseDistance,
		Preamble:          Timing{Mark: 8500, Space: 4225},
		Bit1:              Timing{Mark: 500, Space: 1500},
		Bit0:              Timing{Mark: 500, Space: 500},
		PreambleTolerance: 200,
		BitTolerance:      120,
		Silence:           26000,
		MinSplitTime:      20000,
		Frequency:         40000,
		DutyCycle:         0.33,
		BitLengths:        []int{33, 32},
	},
	FamilyKaseikyo: {
		Family:            FamilyKaseikyo,
		Coding:            PulseDistance,
		Preamble:          Timing{Mark: 3360, Space: 1665},
		Bit1:              Timing{Mark: 420, Space: 1274},
		Bit0:              Timing{Mark: 420, Space: 420},
		PreambleTolerance: 200,
		BitTolerance:      120,
		Silence:           74000,
		Frequency:         37000,
		DutyCycle:         0.33,
		BitLengths:        []int{48},
	},
}

func init() {
	for f := FamilyNEC; f <= FamilyKaseikyo; f++ {
		if err := descriptors[f].Validate(); err != nil {
			panic(err)
		}
	}
}

// Families returns all protocol families in decode priority order.
func Families() []Family {
	return []Family{
		FamilyNEC, FamilySamsung32, FamilyRC5, FamilyRC6,
		FamilySIRC, FamilyKaseikyo, FamilyRCA, FamilyPioneer,
	}
}

// Descriptor returns a copy of the family's timing descriptor.
func (f Family) Descriptor() (Descriptor, bool) {
	if f <= FamilyNone || f > FamilyKaseikyo {
		return Descriptor{}, false
	}

	d := descriptors[f]
	d.BitLengths = append([]int(nil), d.BitLengths...)
	return d, true
}

// Validate checks the descriptor's frame lengths.
func (d *Descriptor) Validate() error {
	if len(d.BitLengths) == 0 {
		return fmt.Errorf("%w: %v", ErrNoBitLength, d.Family)
	}
	if len(d.BitLengths) > maxVariants {
		return fmt.Errorf("%w: %v has %d variants", ErrBitLength, d.Family, len(d.BitLengths))
	}
	for _, n := range d.BitLengths {
		if n <= 0 || n > MaxBits {
			return fmt.Errorf("%w: %v %d bits", ErrBitLength, d.Family, n)
		}
	}
	return nil
}

// MaxBitLength returns the longest valid frame length.
func (d *Descriptor) MaxBitLength() int {
	m := 0
	for _, n := range d.BitLengths {
		if n > m {
			m = n
		}
	}
	return m
}

func (d *Descriptor) validLength(n int) bool {
	for _, l := range d.BitLengths {
		if l == n {
			return true
		}
	}
	return false
}

// hasRepeat reports whether the protocol sends dedicated repeat frames.
func (d *Descriptor) hasRepeat() bool {
	return d.Repeat.Mark != 0
}

// repeatFrame returns the edges of a repeat frame following the pause.
func (d *Descriptor) repeatFrame() []Edge {
	switch d.Family {
	case FamilyNEC:
		return []Edge{
			{Level: true, Duration: d.Repeat.Mark},
			{Level: false, Duration: d.Repeat.Space},
			{Level: true, Duration: d.Bit1.Mark},
		}
	case FamilySamsung32:
		return []Edge{
			{Level: true, Duration: d.Repeat.Mark},
			{Level: false, Duration: d.Repeat.Space},
			{Level: true, Duration: d.Bit1.Mark},
			{Level: false, Duration: d.Bit1.Space},
			{Level: true, Duration: d.Bit1.Mark},
		}
	default:
		return nil
	}
}

// halfWidth returns the width of the Manchester bit at index i in half periods.
func (d *Descriptor) halfWidth(i int) uint32 {
	if d.Family == FamilyRC6 && i == 4 {
		// toggle bit
		return 2
	}
	return 1
}
