package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/weather-matrix/internal/metrics"
	"github.com/i474232898/weather-matrix/internal/redraw"
	"github.com/i474232898/weather-matrix/internal/store"
	"github.com/i474232898/weather-matrix/internal/weather"
)

const serviceName = "weather-matrix"

var validate = validator.New()

// SnapshotSource is the read side of weather.Cache.
type SnapshotSource interface {
	Peek() *weather.Snapshot
	Config() weather.CacheConfig
}

// DisplayState is the read side of the renderer.
type DisplayState interface {
	ActiveView() redraw.View
	Scheduler() *redraw.Scheduler
}

type Deps struct {
	Cache   SnapshotSource
	Store   weather.Store
	Display DisplayState
	Metrics *metrics.Metrics
	// Quiet disables the request logger.
	Quiet bool
}

// NewApp builds the status API with its middleware and routes.
func NewApp(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	if !deps.Quiet {
		app.Use(fiberlogger.New())
	}
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  serviceName,
			"snapshot": deps.Cache.Peek() != nil,
		})
	})

	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	RegisterRoutes(app, deps)
	return app
}

// RegisterRoutes wires the /api/v1 handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	v1 := app.Group("/api/v1")

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		snap, err := latest(deps.Cache)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"id":        snap.ID,
			"location":  snap.Location,
			"units":     snap.Units,
			"current":   snap.Current,
			"fetchedAt": snap.FetchedAt,
		})
	})

	v1.Get("/weather/hourly", func(c *fiber.Ctx) error {
		snap, err := latest(deps.Cache)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"id": snap.ID, "units": snap.Units, "hourly": snap.Hourly})
	})

	v1.Get("/weather/daily", func(c *fiber.Ctx) error {
		snap, err := latest(deps.Cache)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"id": snap.ID, "units": snap.Units, "daily": snap.Daily})
	})

	v1.Get("/weather/history", func(c *fiber.Ctx) error {
		if deps.Store == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "history is not enabled")
		}

		var req historyQuery
		if err := req.bind(c, deps.Cache.Config().Place); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		snapshots, err := deps.Store.GetRange(req.Place, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather history")
		}

		return c.JSON(fiber.Map{
			"location":  req.Place,
			"from":      req.From,
			"to":        req.To,
			"snapshots": snapshots,
		})
	})

	v1.Get("/display/state", func(c *fiber.Ctx) error {
		if deps.Display == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "display is not running")
		}

		sched := deps.Display.Scheduler()
		views := make(fiber.Map, len(redraw.Views))
		for _, v := range redraw.Views {
			if state, ok := sched.State(v); ok {
				views[string(v)] = state
			}
		}
		return c.JSON(fiber.Map{
			"activeView":    deps.Display.ActiveView(),
			"frameInterval": sched.FrameInterval().String(),
			"views":         views,
		})
	})
}

func latest(src SnapshotSource) (*weather.Snapshot, error) {
	snap := src.Peek()
	if snap == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "no weather data available yet")
	}
	return snap, nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Place weather.Place
	From  time.Time `validate:"required"`
	To    time.Time `validate:"required,gtefield=From"`
}

// bind reads from/to and an optional city/state/country; without a city the
// configured place is used.
func (h *historyQuery) bind(c *fiber.Ctx, fallback weather.Place) error {
	h.Place = fallback
	if city := c.Query("city"); city != "" {
		h.Place = weather.Place{
			City:    city,
			State:   c.Query("state"),
			Country: c.Query("country"),
		}
	}

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
