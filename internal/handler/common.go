// Package handler adapts the services to echo.  Handlers only decode the
// request, call one service method and encode its result; errors are
// returned untouched and rendered by middleware.ErrorHandler.
package handler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/backoffice-api/internal/apperr"
	"github.com/iliyamo/backoffice-api/internal/middleware"
)

// requestTimeout bounds the work of a single request.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// bind decodes the JSON body into v.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return apperr.Validation("Invalid request body")
	}
	return nil
}

// pathID parses the :id path parameter.
func pathID(c echo.Context, what string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("Invalid %s ID", what)
	}
	return id, nil
}

// actor is the authenticated caller; routes without Authorize never use it.
func actor(c echo.Context) uint64 { return middleware.UserID(c) }

// ---- query parameters ----

func queryUint(c echo.Context, name string) (*uint64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return nil, apperr.Validation("Invalid %s", name)
	}
	return &n, nil
}

func queryLimit(c echo.Context) (int, error) {
	raw := strings.TrimSpace(c.QueryParam("limit"))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, apperr.Validation("Limit must be a positive number")
	}
	return n, nil
}

func queryDate(c echo.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, time.UTC)
	if err != nil {
		return nil, apperr.Validation("Invalid %s format, expected YYYY-MM-DD", name)
	}
	return &t, nil
}

func queryDecimal(c echo.Context, name string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return nil, apperr.Validation("Invalid %s", name)
	}
	return &d, nil
}

// querySet collects the first error of a sequence of query parsers.
type querySet struct {
	c   echo.Context
	err error
}

func (q *querySet) uint(name string) *uint64 {
	if q.err != nil {
		return nil
	}
	v, err := queryUint(q.c, name)
	q.err = err
	return v
}

func (q *querySet) date(name string) *time.Time {
	if q.err != nil {
		return nil
	}
	v, err := queryDate(q.c, name)
	q.err = err
	return v
}

func (q *querySet) decimal(name string) *decimal.Decimal {
	if q.err != nil {
		return nil
	}
	v, err := queryDecimal(q.c, name)
	q.err = err
	return v
}

func (q *querySet) limit() int {
	if q.err != nil {
		return 0
	}
	v, err := queryLimit(q.c)
	q.err = err
	return v
}

// str returns the trimmed parameter, or nil when absent.
func (q *querySet) str(name string) *string {
	raw := strings.TrimSpace(q.c.QueryParam(name))
	if raw == "" {
		return nil
	}
	return &raw
}

// dateRange also checks that from is not after to.
func (q *querySet) dateRange() (from, to *time.Time) {
	from, to = q.date("date_from"), q.date("date_to")
	if q.err == nil && from != nil && to != nil && from.After(*to) {
		q.err = apperr.Validation("date_from cannot be after date_to")
	}
	return from, to
}
