// Package remote loads and saves remote controls, named sets of infrared
// signals stored as TOML files.
//
// A signal is either parsed, a protocol message, or raw, a list of
// alternating mark and space timings in µs starting with a mark:
//
//	name = "tv"
//
//	[[signal]]
//	name = "power"
//	type = "parsed"
//	protocol = "NEC"
//	address = 0x04
//	command = 0x08
//
//	[[signal]]
//	name = "input"
//	type = "raw"
//	frequency = 38000
//	duty_cycle = 0.33
//	data = [9000, 4500, 560, 560, 560, 1690]
package remote

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"irkit/pkg/infrared"

	"github.com/BurntSushi/toml"
	"github.com/womat/debug"
)

// Signal types
const (
	Parsed = "parsed"
	Raw    = "raw"
)

// Defaults of raw signals without carrier settings.
const (
	DefaultFrequency = 38000
	DefaultDutyCycle = 0.33
)

// Ext is the file extension of remote files.
const Ext = ".toml"

var (
	ErrUnknownSignalType = errors.New("remote: unknown signal type")
	ErrEmptyRaw          = errors.New("remote: raw signal without timings")
	ErrUnknownSignal     = errors.New("remote: unknown signal")
	ErrNoName            = errors.New("remote: signal without name")
)

// Remote is a named set of signals.
type Remote struct {
	Name    string   `toml:"name" json:"name"`
	Signals []Signal `toml:"signal" json:"signals"`
	// Path is the file the remote was loaded from or saved to
	Path string `toml:"-" json:"-"`
}

// Signal is a parsed or raw infrared signal of a remote.
type Signal struct {
	Name      string   `toml:"name" json:"name"`
	Type      string   `toml:"type" json:"type"`
	Protocol  string   `toml:"protocol,omitempty" json:"protocol,omitempty"`
	Address   uint32   `toml:"address,omitempty" json:"address,omitempty"`
	Command   uint32   `toml:"command,omitempty" json:"command,omitempty"`
	Frequency uint32   `toml:"frequency,omitempty" json:"frequency,omitempty"`
	DutyCycle float32  `toml:"duty_cycle,omitempty" json:"dutyCycle,omitempty"`
	Data      []uint32 `toml:"data,omitempty" json:"data,omitempty"`
}

// NewParsed returns a parsed signal of message m.
func NewParsed(name string, m infrared.Message) Signal {
	return Signal{
		Name:     name,
		Type:     Parsed,
		Protocol: m.Protocol.String(),
		Address:  m.Address,
		Command:  m.Command,
	}
}

// NewRaw returns a raw signal of the waveform s.
func NewRaw(name string, s infrared.Signal) Signal {
	return Signal{
		Name:      name,
		Type:      Raw,
		Frequency: s.Frequency,
		DutyCycle: s.DutyCycle,
		Data:      s.Timings(),
	}
}

// Learned returns the signal of a captured burst, parsed if a message m was
// decoded from it, raw with the default carrier otherwise. Without a name
// the signal is named Learned_<protocol>.
func Learned(name string, m *infrared.Message, edges []infrared.Edge) Signal {
	if m != nil {
		if name == "" {
			name = "Learned_" + m.Protocol.String()
		}
		return NewParsed(name, *m)
	}

	if name == "" {
		name = "Learned_RAW"
	}
	return NewRaw(name, infrared.Signal{Frequency: DefaultFrequency, DutyCycle: DefaultDutyCycle, Edges: edges})
}

// Message returns the message of a parsed signal.
func (s Signal) Message() (infrared.Message, error) {
	if s.Type != Parsed {
		return infrared.Message{}, fmt.Errorf("%w: %q is %s", ErrUnknownSignalType, s.Name, s.Type)
	}

	var p infrared.Protocol
	if err := p.UnmarshalText([]byte(s.Protocol)); err != nil {
		return infrared.Message{}, err
	}
	return infrared.Message{Protocol: p, Address: s.Address, Command: s.Command}, nil
}

// Waveform returns the waveform to transmit. Parsed signals are sent with
// repeats held key frames, raw signals once.
func (s Signal) Waveform(repeats int) (infrared.Signal, error) {
	if err := infrared.CheckRepeats(repeats); err != nil {
		return infrared.Signal{}, err
	}

	switch s.Type {
	case Parsed:
		m, err := s.Message()
		if err != nil {
			return infrared.Signal{}, err
		}
		return infrared.Burst(m, repeats)

	case Raw:
		if len(s.Data) == 0 {
			return infrared.Signal{}, fmt.Errorf("%w: %q", ErrEmptyRaw, s.Name)
		}
		f, dc := s.Frequency, s.DutyCycle
		if f == 0 {
			f = DefaultFrequency
		}
		if dc == 0 {
			dc = DefaultDutyCycle
		}
		return infrared.RawSignal(f, dc, s.Data), nil

	default:
		return infrared.Signal{}, fmt.Errorf("%w: %q", ErrUnknownSignalType, s.Type)
	}
}

// Validate checks that the signal can be transmitted.
func (s Signal) Validate() error {
	if s.Name == "" {
		return ErrNoName
	}
	_, err := s.Waveform(0)
	return err
}

// Signal returns the signal with the given name.
func (r *Remote) Signal(name string) (Signal, error) {
	for _, s := range r.Signals {
		if s.Name == name {
			return s, nil
		}
	}
	return Signal{}, fmt.Errorf("%w: %s/%s", ErrUnknownSignal, r.Name, name)
}

// Add appends s or replaces the signal of the same name.
func (r *Remote) Add(s Signal) error {
	if err := s.Validate(); err != nil {
		return err
	}

	for i := range r.Signals {
		if r.Signals[i].Name == s.Name {
			r.Signals[i] = s
			return nil
		}
	}
	r.Signals = append(r.Signals, s)
	return nil
}

// Load reads a remote file. The remote is named after the file if the file
// has no name.
func Load(path string) (*Remote, error) {
	r := &Remote{}
	meta, err := toml.DecodeFile(path, r)
	if err != nil {
		return nil, fmt.Errorf("load remote %s: %w", path, err)
	}

	if keys := meta.Undecoded(); len(keys) > 0 {
		debug.ErrorLog.Printf("remote %s: unknown keys %v", path, keys)
	}
	if !meta.IsDefined("name") || strings.TrimSpace(r.Name) == "" {
		r.Name = nameOf(path)
	}
	r.Path = path

	for i, s := range r.Signals {
		if err = s.Validate(); err != nil {
			return nil, fmt.Errorf("load remote %s: signal %d: %w", path, i+1, err)
		}
	}
	return r, nil
}

// LoadOrCreate reads a remote file or returns an empty remote named after
// the file if it doesn't exist.
func LoadOrCreate(path string) (*Remote, error) {
	r, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Remote{Name: nameOf(path), Path: path}, nil
	}
	return r, err
}

// Save writes the remote to path.
func (r *Remote) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err = toml.NewEncoder(f).Encode(r); err != nil {
		_ = f.Close()
		return fmt.Errorf("save remote %s: %w", path, err)
	}
	if err = f.Close(); err != nil {
		return err
	}
	r.Path = path
	return nil
}

func nameOf(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// LoadDir reads all remote files of dir, sorted by name. Files that cannot
// be loaded are skipped.
func LoadDir(dir string) ([]*Remote, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*"+Ext))
	if err != nil {
		return nil, err
	}

	remotes := make([]*Remote, 0, len(files))
	for _, f := range files {
		r, err := Load(f)
		if err != nil {
			debug.ErrorLog.Print(err)
			continue
		}
		remotes = append(remotes, r)
	}

	sort.Slice(remotes, func(i, j int) bool { return remotes[i].Name < remotes[j].Name })
	return remotes, nil
}

// Find returns the remote with the given name.
func Find(remotes []*Remote, name string) (*Remote, bool) {
	for _, r := range remotes {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}
