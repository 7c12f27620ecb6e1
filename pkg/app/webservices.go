package app

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"snesio/pkg/console"
	"snesio/pkg/pipeline"
	"snesio/pkg/snes"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

type resp struct {
	Port       int       // port id
	Status     string    // running or stopped
	State      uint16    // last committed state, 0xffff before the first commit
	Hex        string    // State as hex string
	Bits       string    // validated bits in shift order, 1 = released
	Pressed    []string  // names of the pressed buttons
	Updated    time.Time // timestamp of the last commit
	Cycles     uint64    // captured frames
	Commits    uint64    // accepted groups
	Rejections uint64    // groups without consensus
	Misframed  uint64    // peripheral captures with a wrong bit count
	Sent       uint64    // pass-through frames transmitted
	Dropped    uint64    // pass-through frames replaced before transmission
}

func newResp(i pipeline.Info) resp {
	return resp{
		Port:       i.ID,
		Status:     i.Status,
		State:      i.State,
		Hex:        fmt.Sprintf("%#04x", i.State),
		Bits:       console.Format(i.State),
		Pressed:    snes.Pressed(i.State),
		Updated:    i.Updated,
		Cycles:     i.Cycles,
		Commits:    i.Commits,
		Rejections: i.Rejections,
		Misframed:  i.Misframed,
		Sent:       i.Sent,
		Dropped:    i.Dropped,
	}
}

// runWebServer starts the applications web server and listens for web requests.
//  It's designed to run in a separate go function to not block the main go function.
//  e.g.: go runWebServer()
//  See app.Run()
func (app *App) runWebServer() {
	err := app.web.Listen(app.urlParsed.Host)
	debug.ErrorLog.Print(err)
}

// HandleData returns the state of all ports.
func (app *App) HandleData() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request data")

		infos := app.ports.Ports()
		r := make([]resp, 0, len(infos))
		for _, i := range infos {
			r = append(r, newResp(i))
		}
		return ctx.JSON(r)
	}
}

// HandlePort returns the state of port :id.
func (app *App) HandlePort() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Printf("web request port %v", ctx.Params("id"))

		id, err := portID(ctx)
		if err != nil {
			return err
		}

		i, err := app.ports.Port(id)
		if err != nil {
			return replyError(ctx, err)
		}
		return ctx.JSON(newResp(i))
	}
}

// HandleStart starts the pipeline of port :id with its configuration.
func (app *App) HandleStart() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Printf("web request start port %v", ctx.Params("id"))

		id, err := portID(ctx)
		if err != nil {
			return err
		}
		if err = app.startPort(id); err != nil {
			return replyError(ctx, err)
		}
		return app.replyPort(ctx, id)
	}
}

// HandleStop stops the pipeline of port :id. The last committed state stays readable.
func (app *App) HandleStop() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Printf("web request stop port %v", ctx.Params("id"))

		id, err := portID(ctx)
		if err != nil {
			return err
		}
		if err = app.ports.StopPort(id); err != nil {
			return replyError(ctx, err)
		}
		return app.replyPort(ctx, id)
	}
}

// HandleTrigger requests a capture on a manual cadence port.
func (app *App) HandleTrigger() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.DebugLog.Printf("web request trigger port %v", ctx.Params("id"))

		id, err := portID(ctx)
		if err != nil {
			return err
		}
		if err = app.ports.Trigger(id); err != nil {
			return replyError(ctx, err)
		}
		ctx.Status(http.StatusAccepted)
		return ctx.JSON(fiber.Map{"port": id})
	}
}

// HandleReady returns the network provisioning state.
func (app *App) HandleReady() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request ready")

		return ctx.JSON(fiber.Map{"ready": app.ready.Ready()})
	}
}

// HandleSim sets the buttons of the emulated controller of port :id.
// :buttons is the raw active low state, e.g. 0x0ffe presses B.
func (app *App) HandleSim() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Printf("web request sim port %v buttons %v", ctx.Params("id"), ctx.Params("buttons"))

		id, err := portID(ctx)
		if err != nil {
			return err
		}

		b, err := strconv.ParseUint(ctx.Params("buttons"), 0, 16)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, fmt.Sprintf("invalid buttons %q", ctx.Params("buttons")))
		}

		ctrl, err := app.controller(id)
		if err != nil {
			return replyError(ctx, err)
		}
		ctrl.SetButtons(uint16(b))

		return ctx.JSON(fiber.Map{"port": id, "buttons": fmt.Sprintf("%#04x", b)})
	}
}

func (app *App) replyPort(ctx *fiber.Ctx, id int) error {
	i, err := app.ports.Port(id)
	if err != nil {
		return replyError(ctx, err)
	}
	return ctx.JSON(newResp(i))
}

func portID(ctx *fiber.Ctx) (int, error) {
	id, err := strconv.Atoi(ctx.Params("id"))
	if err != nil {
		return 0, fiber.NewError(http.StatusBadRequest, fmt.Sprintf("invalid port %q", ctx.Params("id")))
	}
	return id, nil
}

// replyError maps the application errors to http status codes.
func replyError(ctx *fiber.Ctx, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, pipeline.ErrUnknownPort):
		status = http.StatusNotFound
	case errors.Is(err, pipeline.ErrPortRunning), errors.Is(err, pipeline.ErrStopped):
		status = http.StatusConflict
	case errors.Is(err, ErrNoEmulator):
		status = http.StatusNotImplemented
	}

	debug.ErrorLog.Printf("web request %s: %v", ctx.Path(), err)
	ctx.Status(status)
	return ctx.JSON(fiber.Map{"error": err.Error()})
}
