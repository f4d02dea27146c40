package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchange_Transitions(t *testing.T) {
	tests := []struct {
		name  string
		steps []state
		want  []bool
	}{
		{"normal", []state{stateInvoking, stateCompleted}, []bool{true, true}},
		{"streamed", []state{stateInvoking, stateResponseStarted, stateCompleted}, []bool{true, true, true}},
		{"handled", []state{stateInvoking, stateHandling, stateCompleted}, []bool{true, true, true}},
		{"handling after start", []state{stateInvoking, stateResponseStarted, stateHandling}, []bool{true, true, false}},
		{"skip invoking", []state{stateHandling}, []bool{false}},
		{"completed is terminal", []state{stateInvoking, stateCompleted, stateHandling}, []bool{true, true, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := &exchange{}
			for i, step := range tt.steps {
				assert.Equal(t, tt.want[i], x.to(step), "step %d to %s", i, step)
			}
		})
	}
}

func TestExchange_ReachesCompleted(t *testing.T) {
	x := &exchange{}
	x.to(stateInvoking)
	x.to(stateHandling)
	x.to(stateCompleted)
	assert.Equal(t, stateCompleted, x.state)
	assert.Equal(t, "completed", x.state.String())
	assert.False(t, x.to(stateHandling))
}

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(RequestIDFrom(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", resp.Header.Get(HeaderRequestID))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	assert.Len(t, resp.Header.Get(HeaderRequestID), 36)
}
