// Package server exposes a view service over HTTP for previewing templates
// during development.
package server

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/goliatone/go-views/pkg/view"
)

// Deps groups what the preview server needs.
type Deps struct {
	Service *view.Service
	// Engine names the registered engine used for /views; empty means EJS.
	Engine string
	Logger *zap.Logger
}

// New creates the fiber app with middleware and routes mounted.
func New(deps Deps) *fiber.App {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			msg := "Internal Server Error"

			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
				msg = fe.Message
			}

			log.Warn("Request failed",
				zap.String("path", c.Path()),
				zap.Int("status", code),
				zap.String("message", msg),
			)

			return c.Status(code).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    code,
					"message": msg,
				},
			})
		},
	})

	app.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return xid.New().String()
		},
	}))

	h := &handlers{service: deps.Service, engine: deps.Engine, log: log}
	app.Get("/engines", h.engines)
	app.Get("/views/*", h.render)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

// Start listens on addr until ctx is done, then shuts the app down within
// timeout. It returns once the listener has stopped.
func Start(ctx context.Context, app *fiber.App, addr string, timeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listener(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err = app.ShutdownWithContext(shutdownCtx)

	// Serve may not have registered ln yet, in which case shutdown missed it.
	_ = ln.Close()
	<-errCh
	return err
}

type handlers struct {
	service *view.Service
	engine  string
	log     *zap.Logger
}

func (h *handlers) engines(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"engines": h.service.Engines()})
}

func (h *handlers) render(c *fiber.Ctx) error {
	name := c.Params("*")
	if name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "view name is required")
	}

	rs, err := h.renderService()
	if err != nil {
		return err
	}

	data := make(map[string]any)
	for k, v := range c.Queries() {
		data[k] = v
	}
	requestID := c.GetRespHeader(fiber.HeaderXRequestID)
	data["requestId"] = requestID

	out, err := rs.Render(c.UserContext(), view.Request{View: name, Data: data})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fiber.NewError(fiber.StatusNotFound, "view not found: "+name)
		}
		h.log.Error("Render failed",
			zap.String("view", name),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to render view: "+name)
	}

	h.log.Debug("Rendered view", zap.String("view", name), zap.String("request_id", requestID))
	c.Type("html", "utf-8")
	return c.SendString(out)
}

func (h *handlers) renderService() (view.RenderService, error) {
	if h.engine == "" || h.engine == view.EngineEJS {
		return h.service.EJS(), nil
	}
	rs, err := h.service.Engine(h.engine)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return rs, nil
}
