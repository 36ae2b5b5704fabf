package app

import (
	"net/http"
	"strings"

	"irkit/pkg/infrared"
	"irkit/pkg/serialir"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// encodeRequest is the body of an encode request.
// output example:
//  {"protocol":"NEC","address":4,"command":8,"repeats":1}
type encodeRequest struct {
	infrared.Message
	Repeats int `json:"repeats"`
}

// decodeRequest is the body of a decode request. Data holds signed timings,
// one frame per line, Timings alternating mark and space timings.
// output example:
//  {"data":"+9000 -4500 +560 -560 ..."} or {"timings":[9000,4500,560,560, ...]}
type decodeRequest struct {
	Data    string   `json:"data"`
	Timings []uint32 `json:"timings"`
}

// runWebServer starts the applications web server and listens for web requests.
//  It's designed to run in a separate go function to not block the main go function.
//  e.g.: go runWebServer()
//  See app.Run()
func (app *App) runWebServer() {
	err := app.web.Listen(app.urlParsed.Host)
	debug.ErrorLog.Print(err)
}

// HandleLast returns the last decoded message.
func (app *App) HandleLast() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request last")

		if app.receiver == nil {
			return fail(ctx, http.StatusServiceUnavailable, "receiver disabled")
		}

		m, ok := app.receiver.Last()
		if !ok {
			return fail(ctx, http.StatusNotFound, "no message received")
		}
		return ctx.JSON(m)
	}
}

// HandleEncode returns the waveform of a message.
func (app *App) HandleEncode() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request encode")

		var req encodeRequest
		if err := ctx.BodyParser(&req); err != nil {
			return fail(ctx, http.StatusBadRequest, err.Error())
		}
		s, err := infrared.Burst(req.Message, req.Repeats)
		if err != nil {
			return fail(ctx, http.StatusBadRequest, err.Error())
		}
		return ctx.JSON(s)
	}
}

// HandleDecode returns the messages found in the posted timings.
func (app *App) HandleDecode() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request decode")

		var req decodeRequest
		if err := ctx.BodyParser(&req); err != nil {
			return fail(ctx, http.StatusBadRequest, err.Error())
		}

		var edges []infrared.Edge
		switch {
		case req.Data != "":
			var err error
			if edges, err = serialir.Parse(strings.NewReader(req.Data)); err != nil {
				return fail(ctx, http.StatusBadRequest, err.Error())
			}
		case len(req.Timings) > 0:
			edges = infrared.RawSignal(0, 0, req.Timings).Edges
		default:
			return fail(ctx, http.StatusBadRequest, "no timings")
		}

		messages := infrared.NewPool().DecodeAll(edges, true)
		if messages == nil {
			messages = []infrared.Message{}
		}
		return ctx.JSON(fiber.Map{"messages": messages})
	}
}

func fail(ctx *fiber.Ctx, status int, msg string) error {
	return ctx.Status(status).JSON(fiber.Map{"error": msg})
}
