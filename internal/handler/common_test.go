package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/backoffice-api/internal/apperr"
	"github.com/iliyamo/backoffice-api/internal/model"
)

func ctxFor(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestPathID(t *testing.T) {
	c := ctxFor("/")
	c.SetParamNames("id")

	c.SetParamValues("42")
	id, err := pathID(c, "order")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	for _, raw := range []string{"", "0", "-3", "abc"} {
		c.SetParamValues(raw)
		_, err := pathID(c, "order")
		assert.ErrorIs(t, err, apperr.ErrValidation, raw)
		assert.Equal(t, "Invalid order ID", apperr.Message(err), raw)
	}
}

func TestOrderFilterParsing(t *testing.T) {
	f, err := orderFilter(ctxFor("/?status=pending&user_id=3&date_from=2024-01-01&date_to=2024-01-31&limit=20"))
	require.NoError(t, err)
	require.NotNil(t, f.Status)
	assert.Equal(t, model.OrderStatus("pending"), *f.Status)
	require.NotNil(t, f.UserID)
	assert.Equal(t, uint64(3), *f.UserID)
	assert.Equal(t, "2024-01-01", f.DateFrom.Format("2006-01-02"))
	assert.Equal(t, "2024-01-31", f.DateTo.Format("2006-01-02"))
	assert.Equal(t, 20, f.Limit)

	f, err = orderFilter(ctxFor("/"))
	require.NoError(t, err)
	assert.Nil(t, f.Status)
	assert.Nil(t, f.UserID)
	assert.Zero(t, f.Limit)
}

func TestQueryErrors(t *testing.T) {
	cases := []struct {
		target string
		msg    string
	}{
		{"/?limit=0", "Limit must be a positive number"},
		{"/?limit=ten", "Limit must be a positive number"},
		{"/?user_id=x", "Invalid user_id"},
		{"/?date_from=01-02-2024", "Invalid date_from format, expected YYYY-MM-DD"},
		{"/?date_from=2024-03-01&date_to=2024-02-01", "date_from cannot be after date_to"},
	}
	for _, tc := range cases {
		_, err := orderFilter(ctxFor(tc.target))
		assert.ErrorIs(t, err, apperr.ErrValidation, tc.target)
		assert.Equal(t, tc.msg, apperr.Message(err), tc.target)
	}
}

func TestFirstQueryErrorWins(t *testing.T) {
	q := querySet{c: ctxFor("/?product_id=bad&limit=-1")}
	assert.Nil(t, q.uint("product_id"))
	assert.Zero(t, q.limit())
	assert.Equal(t, "Invalid product_id", apperr.Message(q.err))
}

func TestQueryDecimal(t *testing.T) {
	q := querySet{c: ctxFor("/?price_min=9.99&price_max=abc")}
	lo := q.decimal("price_min")
	require.NotNil(t, lo)
	assert.Equal(t, "9.99", lo.String())
	assert.Nil(t, q.decimal("price_max"))
	assert.Equal(t, "Invalid price_max", apperr.Message(q.err))

	_, err := queryDecimal(ctxFor("/?price_min=-1"), "price_min")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestBindRejectsMalformedBody(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"items":`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	var v createOrderReq
	err := bind(e.NewContext(req, httptest.NewRecorder()), &v)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "Invalid request body", apperr.Message(err))
}
