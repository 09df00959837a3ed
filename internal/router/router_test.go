package router

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/cors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T, securityCheck func(*http.Request) (Decision, error)) *Router {
	t.Helper()
	return New(zap.NewNop(), securityCheck)
}

func TestRouteMatchExtractsPathParams(t *testing.T) {
	r := newTestRouter(t, nil)
	var gotID string
	require.NoError(t, r.Register(http.MethodGet, "/users/{id}", "UserController.findById", func(req *Request) (Result, error) {
		gotID = req.PathParam("id")
		return OK(map[string]string{"id": gotID}), nil
	}))

	srv := httptest.NewServer(r.Build(cors.Options{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/users/42")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "42", gotID)
}

func TestFirstMatchWinsInsertionOrder(t *testing.T) {
	r := newTestRouter(t, nil)
	var hit string
	require.NoError(t, r.Register(http.MethodGet, "/items/special", "first", func(req *Request) (Result, error) {
		hit = "literal"
		return OK(nil), nil
	}))
	require.NoError(t, r.Register(http.MethodGet, "/items/{id}", "second", func(req *Request) (Result, error) {
		hit = "param"
		return OK(nil), nil
	}))

	srv := httptest.NewServer(r.Build(cors.Options{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/items/special")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "literal", hit)
}

func TestUnmatchedRouteReturns404(t *testing.T) {
	r := newTestRouter(t, nil)
	require.NoError(t, r.Register(http.MethodGet, "/known", "x", func(req *Request) (Result, error) {
		return OK(nil), nil
	}))

	srv := httptest.NewServer(r.Build(cors.Options{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/unknown")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMethodMismatchReturns405WithAllowHeader(t *testing.T) {
	r := newTestRouter(t, nil)
	require.NoError(t, r.Register(http.MethodGet, "/widgets", "list", func(req *Request) (Result, error) {
		return OK(nil), nil
	}))
	require.NoError(t, r.Register(http.MethodPost, "/widgets", "create", func(req *Request) (Result, error) {
		return Created(nil), nil
	}))

	srv := httptest.NewServer(r.Build(cors.Options{}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/widgets", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	allow := resp.Header.Get("Allow")
	assert.Contains(t, allow, "GET")
	assert.Contains(t, allow, "POST")
}

func TestBodyOnForbiddenVerbReturns400(t *testing.T) {
	r := newTestRouter(t, nil)
	require.NoError(t, r.Register(http.MethodGet, "/widgets", "list", func(req *Request) (Result, error) {
		return OK(nil), nil
	}))

	srv := httptest.NewServer(r.Build(cors.Options{}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/widgets", bytes.NewBufferString(`{"x":1}`))
	req.ContentLength = 7
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEmptyBodyOnWriteVerbReturns400(t *testing.T) {
	r := newTestRouter(t, nil)
	require.NoError(t, r.Register(http.MethodPost, "/widgets", "create", func(req *Request) (Result, error) {
		return Created(nil), nil
	}))

	srv := httptest.NewServer(r.Build(cors.Options{}))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/widgets", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSecurityCheckRejectionShortCircuitsHandler(t *testing.T) {
	called := false
	secCheck := func(req *http.Request) (Decision, error) {
		return Decision{Allowed: false, StatusCode: http.StatusUnauthorized, Message: "missing token"}, nil
	}
	r := newTestRouter(t, secCheck)
	require.NoError(t, r.Register(http.MethodGet, "/secure", "x", func(req *Request) (Result, error) {
		called = true
		return OK(nil), nil
	}))

	srv := httptest.NewServer(r.Build(cors.Options{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/secure")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, called)
}

func TestHandlerValidationErrorReturns400(t *testing.T) {
	r := newTestRouter(t, nil)
	require.NoError(t, r.Register(http.MethodPost, "/widgets", "create", func(req *Request) (Result, error) {
		return Result{}, &ValidationError{Message: "name is required"}
	}))

	srv := httptest.NewServer(r.Build(cors.Options{}))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/widgets", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandlerGenericErrorReturns500AndRecordsFailureMetric(t *testing.T) {
	r := newTestRouter(t, nil)
	require.NoError(t, r.Register(http.MethodGet, "/boom", "x", func(req *Request) (Result, error) {
		return Result{}, assertError{}
	}))

	srv := httptest.NewServer(r.Build(cors.Options{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/boom")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	snap := r.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.FailedRequests)
}

type assertError struct{}

func (assertError) Error() string { return "boom" }

func TestMetricsSnapshotAveragesSuccessfulRequests(t *testing.T) {
	r := newTestRouter(t, nil)
	require.NoError(t, r.Register(http.MethodGet, "/ok", "x", func(req *Request) (Result, error) {
		return OK("fine"), nil
	}))

	srv := httptest.NewServer(r.Build(cors.Options{}))
	defer srv.Close()

	for i := 0; i < 3; i++ {
		resp, err := http.Get(srv.URL + "/ok")
		require.NoError(t, err)
		resp.Body.Close()
	}

	snap := r.Metrics().Snapshot()
	assert.Equal(t, int64(3), snap.TotalRequests)
	assert.Equal(t, int64(3), snap.SuccessfulRequests)
	assert.Equal(t, int64(0), snap.FailedRequests)
}

func TestQueryLastWriteWins(t *testing.T) {
	r := newTestRouter(t, nil)
	var got string
	require.NoError(t, r.Register(http.MethodGet, "/search", "x", func(req *Request) (Result, error) {
		got = req.Query("q")
		return OK(nil), nil
	}))

	srv := httptest.NewServer(r.Build(cors.Options{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/search?q=first&q=second")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "second", got)
}

func TestQueryAsIntDefault(t *testing.T) {
	r := newTestRouter(t, nil)
	var got int
	require.NoError(t, r.Register(http.MethodGet, "/page", "x", func(req *Request) (Result, error) {
		got = req.QueryAsInt("limit", 20)
		return OK(nil), nil
	}))

	srv := httptest.NewServer(r.Build(cors.Options{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/page")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 20, got)
}

func TestRegisterRejectsInvalidPattern(t *testing.T) {
	r := newTestRouter(t, nil)
	err := r.Register(http.MethodGet, "/bad/{", "x", func(req *Request) (Result, error) {
		return OK(nil), nil
	})
	assert.Error(t, err)
}

func TestHasRouteDetectsOverride(t *testing.T) {
	r := newTestRouter(t, nil)
	assert.False(t, r.HasRoute(http.MethodGet, "/things"))
	require.NoError(t, r.Register(http.MethodGet, "/things", "x", func(req *Request) (Result, error) {
		return OK(nil), nil
	}))
	assert.True(t, r.HasRoute(http.MethodGet, "/things"))
}
