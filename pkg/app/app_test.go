package app

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"irkit/pkg/app/config"
	"irkit/pkg/infrared"
	"irkit/pkg/receiver"
	"irkit/pkg/remote"
	"irkit/pkg/serialir"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tvRemote = `
name = "tv"

[[signal]]
name = "power"
type = "parsed"
protocol = "NEC"
address = 0x04
command = 0x08

[[signal]]
name = "input"
type = "raw"
data = [9000, 4500, 560]
`

type sender struct {
	sent []infrared.Signal
}

func (s *sender) Send(sig infrared.Signal) error {
	s.sent = append(s.sent, sig)
	return nil
}

func (s *sender) Close() error { return nil }

func newApp(t *testing.T, disabled ...string) *App {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tv.toml"), []byte(tvRemote), 0o644))

	cfg := config.NewConfig()
	cfg.Remotes = dir
	for _, ws := range disabled {
		cfg.Webserver.Webservices[ws] = false
	}

	a, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, a.loadRemotes())
	a.initDefaultRoutes()
	return a
}

func request(t *testing.T, a *App, method, target, body string) (int, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.web.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, b
}

func TestHandleVersion(t *testing.T) {
	status, body := request(t, newApp(t), http.MethodGet, "/version", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"version":"`+VERSION+`","description":"irkit","about":"`+Version()+`"}`, string(body))
}

func TestHandleHealth(t *testing.T) {
	status, body := request(t, newApp(t), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)

	var h struct {
		Version  string
		Receiver bool
		Remotes  int
	}
	require.NoError(t, json.Unmarshal(body, &h))
	assert.Equal(t, VERSION, h.Version)
	assert.False(t, h.Receiver)
	assert.Equal(t, 1, h.Remotes)
}

func TestHandleEncode(t *testing.T) {
	a := newApp(t)

	status, body := request(t, a, http.MethodPost, "/encode", `{"protocol":"NEC","address":4,"command":8,"repeats":2}`)
	require.Equal(t, http.StatusOK, status, string(body))

	var got infrared.Signal
	require.NoError(t, json.Unmarshal(body, &got))
	want, err := infrared.Burst(infrared.Message{Protocol: infrared.NEC, Address: 4, Command: 8}, 2)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	status, _ = request(t, a, http.MethodPost, "/encode", `{"protocol":"Sony","command":8}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = request(t, a, http.MethodPost, "/encode", `{"protocol":"NEC","command":8,"repeats":100000}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Less(t, len(body), 256)
	assert.Contains(t, string(body), "repeats out of range")
}

func TestHandleDecode(t *testing.T) {
	a := newApp(t)
	want := infrared.Message{Protocol: infrared.Samsung32, Address: 0x07, Command: 0x02}
	s, err := infrared.Burst(want, 0)
	require.NoError(t, err)

	data, err := json.Marshal(decodeRequest{Data: serialir.Format(s.Edges)})
	require.NoError(t, err)
	status, body := request(t, a, http.MethodPost, "/decode", string(data))
	require.Equal(t, http.StatusOK, status, string(body))

	var resp struct {
		Messages []infrared.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, []infrared.Message{want}, resp.Messages)

	data, err = json.Marshal(decodeRequest{Timings: s.Timings()})
	require.NoError(t, err)
	status, body = request(t, a, http.MethodPost, "/decode", string(data))
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, []infrared.Message{want}, resp.Messages)

	status, body = request(t, a, http.MethodPost, "/decode", `{"timings":[100,100,100]}`)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"messages":[]}`, string(body))

	status, _ = request(t, a, http.MethodPost, "/decode", `{"data":"+100 -x"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = request(t, a, http.MethodPost, "/decode", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHandleLast(t *testing.T) {
	a := newApp(t)

	status, _ := request(t, a, http.MethodGet, "/last", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)

	rx := make(chan infrared.Edge, 100)
	a.receiver = receiver.New(rx, 0)
	defer a.receiver.Close()

	status, _ = request(t, a, http.MethodGet, "/last", "")
	assert.Equal(t, http.StatusNotFound, status)

	want := infrared.Message{Protocol: infrared.RC5, Address: 0x05, Command: 0x21}
	s, err := infrared.Burst(want, 0)
	require.NoError(t, err)
	for _, e := range s.Edges {
		rx <- e
	}
	close(rx)
	assert.Equal(t, want, <-a.receiver.C)

	status, body := request(t, a, http.MethodGet, "/last", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"protocol":"RC5","address":5,"command":33,"repeat":false}`, string(body))
}

func TestHandleRemotes(t *testing.T) {
	status, body := request(t, newApp(t), http.MethodGet, "/remotes", "")
	assert.Equal(t, http.StatusOK, status)

	var remotes []struct {
		Name    string `json:"name"`
		Signals []struct {
			Name string `json:"name"`
		} `json:"signals"`
	}
	require.NoError(t, json.Unmarshal(body, &remotes))
	require.Len(t, remotes, 1)
	assert.Equal(t, "tv", remotes[0].Name)
	assert.Len(t, remotes[0].Signals, 2)
}

func TestHandleSend(t *testing.T) {
	a := newApp(t)

	status, _ := request(t, a, http.MethodPost, "/remotes/tv/power/send", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)

	tx := &sender{}
	a.transmitter = tx

	status, body := request(t, a, http.MethodPost, "/remotes/tv/power/send", "")
	require.Equal(t, http.StatusOK, status, string(body))
	want, err := infrared.Burst(infrared.Message{Protocol: infrared.NEC, Address: 4, Command: 8}, a.config.Repeats)
	require.NoError(t, err)
	assert.Equal(t, []infrared.Signal{want}, tx.sent)

	status, _ = request(t, a, http.MethodPost, "/remotes/tv/volume/send", "")
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = request(t, a, http.MethodPost, "/remotes/radio/power/send", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Len(t, tx.sent, 1)
}

// transmitting replays the burst of m on a new receiver of a until the test
// ends, with a flush after every burst.
func transmitting(t *testing.T, a *App, m infrared.Message) {
	t.Helper()

	s, err := infrared.Burst(m, 0)
	require.NoError(t, err)
	edges := append(s.Edges, infrared.Edge{})

	rx := make(chan infrared.Edge)
	a.receiver = receiver.New(rx, 0)
	done := make(chan struct{})
	t.Cleanup(func() {
		close(done)
		_ = a.receiver.Close()
	})

	go func() {
		for range a.receiver.C {
		}
	}()
	go func() {
		for {
			for _, e := range edges {
				select {
				case rx <- e:
				case <-done:
					return
				}
			}
		}
	}()
}

func TestHandleLearn(t *testing.T) {
	a := newApp(t)

	status, _ := request(t, a, http.MethodPost, "/remotes/tv/mute/learn", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)

	want := infrared.Message{Protocol: infrared.NEC, Address: 0x04, Command: 0x09}
	transmitting(t, a, want)

	status, body := request(t, a, http.MethodPost, "/remotes/tv/mute/learn", "")
	require.Equal(t, http.StatusOK, status, string(body))
	assert.JSONEq(t, `{"remote":"tv","signal":{"name":"mute","type":"parsed","protocol":"NEC","address":4,"command":9}}`, string(body))

	status, body = request(t, a, http.MethodPost, "/remotes/hifi/power/learn", "")
	require.Equal(t, http.StatusOK, status, string(body))

	l := a.remoteList()
	require.Len(t, l, 2)
	assert.Equal(t, "hifi", l[0].Name)
	assert.Equal(t, "tv", l[1].Name)
	assert.Len(t, l[1].Signals, 3)

	tv, err := remote.Load(filepath.Join(a.config.Remotes, "tv.toml"))
	require.NoError(t, err)
	s, err := tv.Signal("mute")
	require.NoError(t, err)
	assert.Equal(t, remote.NewParsed("mute", want), s)

	hifi, err := remote.Load(filepath.Join(a.config.Remotes, "hifi.toml"))
	require.NoError(t, err)
	assert.Equal(t, []remote.Signal{remote.NewParsed("power", want)}, hifi.Signals)
}

func TestHandleLearnTimeout(t *testing.T) {
	a := newApp(t)
	a.config.Learn.Timeout = 50 * time.Millisecond

	rx := make(chan infrared.Edge)
	a.receiver = receiver.New(rx, 0)
	defer a.receiver.Close()

	status, _ := request(t, a, http.MethodPost, "/remotes/tv/mute/learn", "")
	assert.Equal(t, http.StatusRequestTimeout, status)

	_, err := os.Stat(filepath.Join(a.config.Remotes, "tv.toml"))
	require.NoError(t, err)
	l := a.remoteList()
	require.Len(t, l, 1)
	assert.Len(t, l[0].Signals, 2)
}

func TestDisabledWebservice(t *testing.T) {
	a := newApp(t, "send", "decode", "learn")

	status, _ := request(t, a, http.MethodPost, "/remotes/tv/power/send", "")
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = request(t, a, http.MethodPost, "/remotes/tv/power/learn", "")
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = request(t, a, http.MethodPost, "/decode", `{}`)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = request(t, a, http.MethodGet, "/version", "")
	assert.Equal(t, http.StatusOK, status)
}
