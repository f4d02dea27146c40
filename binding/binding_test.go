package binding

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/VanitasCaesar1/problemdetails/problem"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dataQuery struct {
	Value int    `query:"value" validate:"between=0 3"`
	Name  string `query:"name"`
}

type signup struct {
	Email string `json:"email" validate:"required,email"`
	Plan  string `json:"plan" validate:"required,oneof=free pro"`
	Seats int    `json:"seats" validate:"min=1,max=50"`
}

// bind runs fn inside a request and returns the error it produced.
func bind(t *testing.T, req *http.Request, fn func(c *fiber.Ctx) error) error {
	t.Helper()
	var got error
	app := fiber.New()
	app.All("/", func(c *fiber.Ctx) error {
		got = fn(c)
		return nil
	})
	_, err := app.Test(req, -1)
	require.NoError(t, err)
	return got
}

func fieldErrors(t *testing.T, err error) *problem.FieldErrors {
	t.Helper()
	var verr *problem.ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Fields
}

func TestQuery(t *testing.T) {
	b := New()

	tests := []struct {
		target string
		want   map[string][]string
	}{
		{"/?value=2", nil},
		{"/", nil},
		{"/?value=4", map[string][]string{"value": {"must be between 0 and 3"}}},
		{"/?value=-1", map[string][]string{"value": {"must be between 0 and 3"}}},
		{"/?value=abc", map[string][]string{"value": {"must be a valid int"}}},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			var q dataQuery
			err := bind(t, httptest.NewRequest(http.MethodGet, tt.target, nil), func(c *fiber.Ctx) error {
				return b.Query(c, &q)
			})
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			fields := fieldErrors(t, err)
			for field, msgs := range tt.want {
				assert.Equal(t, msgs, fields.Messages(field))
			}
		})
	}
}

func TestBody(t *testing.T) {
	b := New()

	post := func(body string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return req
	}

	var s signup
	err := bind(t, post(`{"email":"a@example.com","plan":"pro","seats":3}`), func(c *fiber.Ctx) error {
		return b.Body(c, &s)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Seats)

	err = bind(t, post(`{"email":"nope","seats":0}`), func(c *fiber.Ctx) error {
		return b.Body(c, &signup{})
	})
	fields := fieldErrors(t, err)
	assert.Equal(t, []string{"email", "plan", "seats"}, fields.Fields())
	assert.Equal(t, []string{"must be a valid email address"}, fields.Messages("email"))
	assert.Equal(t, []string{"required"}, fields.Messages("plan"))
	assert.Equal(t, []string{"must be at least 1"}, fields.Messages("seats"))

	err = bind(t, post(`{"seats":"many"}`), func(c *fiber.Ctx) error {
		return b.Body(c, &signup{})
	})
	assert.Equal(t, []string{"must be a valid int"}, fieldErrors(t, err).Messages("seats"))

	err = bind(t, post(`{"seats":`), func(c *fiber.Ctx) error {
		return b.Body(c, &signup{})
	})
	assert.Equal(t, []string{"body"}, fieldErrors(t, err).Fields())
}

func TestParseRange(t *testing.T) {
	lo, hi, ok := parseRange("0 3")
	assert.True(t, ok)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 3.0, hi)

	_, _, ok = parseRange("3")
	assert.False(t, ok)
}
