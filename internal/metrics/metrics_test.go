package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveUpstream(t *testing.T) {
	ok := UpstreamRequests.WithLabelValues("test_provider", "success")
	failed := UpstreamRequests.WithLabelValues("test_provider", "error")
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	ObserveUpstream("test_provider", time.Now(), nil)
	ObserveUpstream("test_provider", time.Now(), errors.New("boom"))
	ObserveUpstream("test_provider", time.Now(), errors.New("boom"))

	if got := testutil.ToFloat64(ok) - okBefore; got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(failed) - failedBefore; got != 2 {
		t.Fatalf("expected 2 errors, got %v", got)
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/ping/:id", func(c *fiber.Ctx) error { return c.SendString("pong") })
	app.Get("/metrics", Handler())

	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "/ping/:id", "200")
	before := testutil.ToFloat64(counter)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping/7", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected response %v, %v", resp, err)
	}
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Fatalf("expected request to be counted by route, got %v", got)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "http_requests_total") {
		t.Fatalf("expected exposition to include http_requests_total")
	}
}

var errMissing = errors.New("missing")

func TestMiddlewareRecordsErrorHandlerStatus(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			switch {
			case errors.Is(err, errMissing):
				code = fiber.StatusNotFound
			case errors.As(err, &fe):
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": true, "message": err.Error()})
		},
	})
	app.Use(Middleware())
	app.Get("/things/:id", func(c *fiber.Ctx) error {
		if c.Params("id") == "bad" {
			return fiber.NewError(fiber.StatusBadRequest, "bad id")
		}
		return errMissing
	})

	cases := []struct {
		target string
		status string
		code   int
	}{
		{"/things/7", "404", http.StatusNotFound},
		{"/things/bad", "400", http.StatusBadRequest},
	}
	for _, tc := range cases {
		counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "/things/:id", tc.status)
		before := testutil.ToFloat64(counter)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, tc.target, nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != tc.code {
			t.Fatalf("%s: expected %d, got %d", tc.target, tc.code, resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		if !strings.Contains(string(body), `"error":true`) {
			t.Fatalf("%s: expected error body, got %s", tc.target, body)
		}
		if got := testutil.ToFloat64(counter) - before; got != 1 {
			t.Fatalf("%s: expected status %s to be counted, got %v", tc.target, tc.status, got)
		}
	}
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/things/:id", "200")); got != 0 {
		t.Fatalf("errors must not be counted as 200, got %v", got)
	}
}
