package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"irkit/pkg/remote"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// loadRemotes reads the remote files of the configured directory.
// A missing directory is no error.
func (app *App) loadRemotes() error {
	if app.config.Remotes == "" {
		return nil
	}
	if _, err := os.Stat(app.config.Remotes); errors.Is(err, os.ErrNotExist) {
		debug.InfoLog.Printf("remote directory %s doesn't exist", app.config.Remotes)
		return nil
	}

	l, err := remote.LoadDir(app.config.Remotes)
	if err != nil {
		return err
	}

	debug.InfoLog.Printf("%d remotes loaded from %s", len(l), app.config.Remotes)
	app.remotes.Lock()
	app.remotes.list = l
	app.remotes.Unlock()
	return nil
}

func (app *App) remoteList() []*remote.Remote {
	app.remotes.RLock()
	defer app.remotes.RUnlock()
	return app.remotes.list
}

// HandleRemotes returns the loaded remotes.
func (app *App) HandleRemotes() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request remotes")

		l := app.remoteList()
		if l == nil {
			l = []*remote.Remote{}
		}
		return ctx.JSON(l)
	}
}

// HandleSend transmits a signal of a remote.
func (app *App) HandleSend() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		name, signal := ctx.Params("remote"), ctx.Params("signal")
		debug.InfoLog.Printf("web request send %s/%s", name, signal)

		if app.transmitter == nil {
			return fail(ctx, http.StatusServiceUnavailable, "transmitter disabled")
		}

		r, ok := remote.Find(app.remoteList(), name)
		if !ok {
			return fail(ctx, http.StatusNotFound, "unknown remote "+name)
		}
		s, err := r.Signal(signal)
		if err != nil {
			return fail(ctx, http.StatusNotFound, err.Error())
		}

		w, err := s.Waveform(app.config.Repeats)
		if err != nil {
			return fail(ctx, http.StatusBadRequest, err.Error())
		}
		if err = app.transmitter.Send(w); err != nil {
			return fail(ctx, http.StatusInternalServerError, err.Error())
		}

		return ctx.JSON(fiber.Map{"remote": r.Name, "signal": s.Name, "edges": len(w.Edges)})
	}
}

// HandleLearn waits for the next received signal and stores it as signal of
// a remote. An unknown remote is created in the remote directory.
func (app *App) HandleLearn() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		name, signal := ctx.Params("remote"), ctx.Params("signal")
		debug.InfoLog.Printf("web request learn %s/%s", name, signal)

		if app.receiver == nil {
			return fail(ctx, http.StatusServiceUnavailable, "receiver disabled")
		}

		c, cancel := context.WithTimeout(context.Background(), app.config.Learn.Timeout)
		defer cancel()

		b, err := app.receiver.Learn(c)
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return fail(ctx, http.StatusRequestTimeout, "no signal received")
		case err != nil:
			return fail(ctx, http.StatusServiceUnavailable, err.Error())
		}

		s := remote.Learned(signal, b.Message, b.Edges)
		if err = app.learn(name, s); err != nil {
			return fail(ctx, http.StatusInternalServerError, err.Error())
		}
		return ctx.JSON(fiber.Map{"remote": name, "signal": s})
	}
}

// learn adds s to the remote and saves the remote file. Loaded remotes are
// not modified, the list gets an updated copy.
func (app *App) learn(name string, s remote.Signal) error {
	app.remotes.Lock()
	defer app.remotes.Unlock()

	l := append([]*remote.Remote(nil), app.remotes.list...)
	i := sort.Search(len(l), func(i int) bool { return l[i].Name >= name })

	r := &remote.Remote{Name: name, Path: filepath.Join(app.config.Remotes, name+remote.Ext)}
	found := i < len(l) && l[i].Name == name
	if found {
		*r = *l[i]
		r.Signals = append([]remote.Signal(nil), l[i].Signals...)
	}

	if err := r.Add(s); err != nil {
		return err
	}
	if err := r.Save(r.Path); err != nil {
		return err
	}

	if found {
		l[i] = r
	} else {
		l = append(l, nil)
		copy(l[i+1:], l[i:])
		l[i] = r
	}
	app.remotes.list = l

	debug.InfoLog.Printf("learned %s/%s saved to %s", name, s.Name, r.Path)
	return nil
}
