package dashboard

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/oncology/dashboard/internal/platform/auth"
)

const dateParamLayout = "2006-01-02"

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RouteOptions adds middleware to individual routes: Ask guards the
// completion call, Roster wraps the patient-level export.
type RouteOptions struct {
	Ask    []echo.MiddlewareFunc
	Roster []echo.MiddlewareFunc
}

func (h *Handler) RegisterRoutes(api *echo.Group, opts RouteOptions) {
	g := api.Group("/dashboard", auth.RequireRole(auth.RoleAnalyst))
	g.GET("/pages", h.ListPages)
	g.GET("/filters", h.GetFilters)
	g.GET("/views/:page", h.GetView)
	g.POST("/ask", h.Ask, opts.Ask...)
	g.GET("/cancers/:name/patients.xlsx", h.ExportRoster, opts.Roster...)
}

type pageInfo struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (h *Handler) ListPages(c echo.Context) error {
	out := make([]pageInfo, len(Pages))
	for i, p := range Pages {
		out[i] = pageInfo{Name: string(p), Slug: p.Slug()}
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) GetFilters(c echo.Context) error {
	opts, err := h.svc.FilterOptions(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, opts)
}

// GetView renders one page. Each request replays the client's selection as
// events on a fresh pipeline, so no state survives between requests.
func (h *Handler) GetView(c echo.Context) error {
	raw, err := pathParam(c, "page")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	page, err := ParsePage(raw)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}

	bounds := h.svc.Session().Bounds
	start, err := dateParam(c, "start", bounds.Start)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	end, err := dateParam(c, "end", bounds.End)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	events := []Event{
		PageSelected{Page: page},
		StatusesChanged{Statuses: c.QueryParams()["status"]},
		DateRangeChanged{Start: start, End: end},
		CancerSelected{Name: c.QueryParam("cancer")},
		QuestionSubmitted{Question: c.QueryParam("q")},
	}

	view, err := NewPipeline(h.svc).Dispatch(c.Request().Context(), events...)
	if err != nil {
		if errors.Is(err, ErrUnknownPage) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, view)
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

func (h *Handler) Ask(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	answer, asked, err := h.svc.Ask(c.Request().Context(), req.Question)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !asked {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, askResponse{Answer: answer})
}

func (h *Handler) ExportRoster(c echo.Context) error {
	name, err := pathParam(c, "name")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid cancer name")
	}
	rows, err := h.svc.CancerPatients(c.Request().Context(), name)
	if err != nil {
		if errors.Is(err, ErrCancerRequired) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	data, err := RosterWorkbook(name, rows)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	filename := strings.Trim(unsafeFileChars.ReplaceAllString(name, "_"), "_")
	if filename == "" {
		filename = "cancer"
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s_patients.xlsx"`, filename))
	return c.Blob(http.StatusOK, xlsxMIME, data)
}

// pathParam returns a route parameter decoded exactly once. Echo matches on
// the already decoded path unless the request kept a distinct RawPath.
func pathParam(c echo.Context, name string) (string, error) {
	v := c.Param(name)
	if c.Request().URL.RawPath == "" {
		return v, nil
	}
	return url.PathUnescape(v)
}

func dateParam(c echo.Context, name string, fallback time.Time) (time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return fallback, nil
	}
	t, err := time.Parse(dateParamLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s date %q, expected YYYY-MM-DD", name, v)
	}
	return t, nil
}
