package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaoyuanzhu-com/my-todos/db"
	"github.com/xiaoyuanzhu-com/my-todos/notifications"
	"github.com/xiaoyuanzhu-com/my-todos/ordering"
	"github.com/xiaoyuanzhu-com/my-todos/server"
)

type testAPI struct {
	srv     *server.Server
	h       *Handlers
	router  *gin.Engine
	cookies []*http.Cookie
}

func newTestAPI(t *testing.T, authMode string) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv, err := server.New(&server.Config{
		Port:           12345,
		Env:            "development",
		DatabasePath:   filepath.Join(t.TempDir(), "database.sqlite"),
		RequestTimeout: 5 * time.Second,
		AuthMode:       authMode,
	})
	require.NoError(t, err)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	h := NewHandlers(srv)
	SetupRoutes(srv.Router(), h)
	return &testAPI{srv: srv, h: h, router: srv.Router()}
}

func (a *testAPI) do(t *testing.T, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, c := range a.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) json(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return a.do(t, method, path, "application/json", body)
}

func (a *testAPI) form(t *testing.T, method, path string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	return a.do(t, method, path, "application/x-www-form-urlencoded", values.Encode())
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []ordering.Item {
	t.Helper()
	var resp ListResponse[ordering.Item]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func itemIDs(items []ordering.Item) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

// seedTodos creates a, b and c; c ends up on top
func seedTodos(t *testing.T, a *testAPI) {
	t.Helper()
	for _, desc := range []string{"a", "b", "c"} {
		w := a.json(t, http.MethodPost, "/api/todos", fmt.Sprintf(`{"description":%q}`, desc))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
}

func TestListTodos_EmptyIsArray(t *testing.T) {
	a := newTestAPI(t, "none")

	w := a.do(t, http.MethodGet, "/api/todos", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())
}

func TestCreateTodo(t *testing.T) {
	a := newTestAPI(t, "none")

	w := a.json(t, http.MethodPost, "/api/todos", `{"description":"first"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/api/todos/1", w.Header().Get("Location"))

	w = a.form(t, http.MethodPost, "/api/todos", url.Values{"description": {"second"}})
	require.Equal(t, http.StatusCreated, w.Code)

	items := decodeList(t, w)
	require.Len(t, items, 2)
	assert.Equal(t, "second", items[0].Description)
	assert.Equal(t, "first", items[1].Description)
}

func TestCreateTodo_RequiresDescription(t *testing.T) {
	a := newTestAPI(t, "none")

	w := a.json(t, http.MethodPost, "/api/todos", `{"description":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "description", resp.Error.Details[0].Field)
}

func TestReorderTodos_JSON(t *testing.T) {
	a := newTestAPI(t, "none")
	seedTodos(t, a)

	w := a.json(t, http.MethodPost, "/api/todos/order", `{"order":[1,"3",2]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []int64{1, 3, 2}, itemIDs(decodeList(t, w)))
}

func TestReorderTodos_FormWithUnknownAndGarbage(t *testing.T) {
	a := newTestAPI(t, "none")
	seedTodos(t, a)

	w := a.form(t, http.MethodPost, "/api/todos/order", url.Values{"order": {"1", "99", "todo-2", "3"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	items := decodeList(t, w)
	assert.Equal(t, []int64{1, 2, 3}, itemIDs(items))
}

func TestUpdateTodo_DoneFlag(t *testing.T) {
	a := newTestAPI(t, "none")
	seedTodos(t, a)

	w := a.form(t, http.MethodPut, "/api/todos/2", url.Values{"done": {"on"}})
	require.Equal(t, http.StatusOK, w.Code)
	for _, it := range decodeList(t, w) {
		assert.Equal(t, it.ID == 2, it.Done, "todo %d", it.ID)
	}

	w = a.form(t, http.MethodPut, "/api/todos/2", url.Values{})
	require.Equal(t, http.StatusOK, w.Code)
	for _, it := range decodeList(t, w) {
		assert.False(t, it.Done)
	}

	w = a.json(t, http.MethodPut, "/api/todos/3", `{"done":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeList(t, w)[0].Done)
}

func TestUpdateTodo_Errors(t *testing.T) {
	a := newTestAPI(t, "none")

	w := a.form(t, http.MethodPut, "/api/todos/abc", url.Values{"done": {"on"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.form(t, http.MethodPut, "/api/todos/42", url.Values{"done": {"on"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrCodeNotFound, decodeError(t, w).Error.Code)
}

func TestDeleteTodo(t *testing.T) {
	a := newTestAPI(t, "none")
	seedTodos(t, a)

	w := a.do(t, http.MethodDelete, "/api/todos/2", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int64{3, 1}, itemIDs(decodeList(t, w)))

	w = a.do(t, http.MethodDelete, "/api/todos/2", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMoveCompletedToBottomAndClear(t *testing.T) {
	a := newTestAPI(t, "none")
	seedTodos(t, a)

	require.Equal(t, http.StatusOK, a.form(t, http.MethodPut, "/api/todos/3", url.Values{"done": {"on"}}).Code)

	w := a.do(t, http.MethodPost, "/api/todos/move-completed-to-bottom", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int64{2, 1, 3}, itemIDs(decodeList(t, w)))

	w = a.do(t, http.MethodDelete, "/api/todos/completed", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp DataResponse[clearCompletedResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.Removed)
	assert.Equal(t, []int64{2, 1}, itemIDs(resp.Data.Todos))
}

func TestReassignPositions(t *testing.T) {
	a := newTestAPI(t, "none")
	seedTodos(t, a)

	w := a.json(t, http.MethodPut, "/api/todos/positions", `{"positions":[{"id":1,"position":3},{"id":3,"position":1}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []int64{1, 2, 3}, itemIDs(decodeList(t, w)))

	w = a.json(t, http.MethodPut, "/api/todos/positions", `{"positions":[{"id":1,"position":2}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, ErrCodeUnprocessable, resp.Error.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.NotEmpty(t, resp.Error.Details[0].Code)

	w = a.json(t, http.MethodPut, "/api/todos/positions", `{"positions":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReassignPositions_RejectedTargets(t *testing.T) {
	a := newTestAPI(t, "none")
	seedTodos(t, a)

	bodies := map[string]string{
		"max int64": fmt.Sprintf(`{"positions":[{"id":1,"position":%d},{"id":3,"position":5}]}`, int64(math.MaxInt64)),
		"min int64": fmt.Sprintf(`{"positions":[{"id":3,"position":%d}]}`, int64(math.MinInt64)),
		"id zero":   `{"positions":[{"id":0,"position":9}]}`,
		"id absent": `{"positions":[{"position":9}]}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			w := a.json(t, http.MethodPut, "/api/todos/positions", body)
			require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
			assert.Equal(t, ErrCodeUnprocessable, decodeError(t, w).Error.Code)
		})
	}

	// The list is still reorderable afterwards.
	w := a.json(t, http.MethodPost, "/api/todos/order", `{"order":["1","2","3"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []int64{1, 2, 3}, itemIDs(decodeList(t, w)))
}

func TestClearCompleted_NotifiesOnlyWhenRemoved(t *testing.T) {
	a := newTestAPI(t, "none")
	seedTodos(t, a)

	events, unsubscribe := a.srv.Notifications().Subscribe()
	defer unsubscribe()

	w := a.do(t, http.MethodDelete, "/api/todos/completed", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	select {
	case ev := <-events:
		t.Fatalf("unexpected event %q after clearing nothing", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}

	require.Equal(t, http.StatusOK, a.form(t, http.MethodPut, "/api/todos/2", url.Values{"done": {"on"}}).Code)
	ev := <-events
	assert.Equal(t, notifications.EventTodosChanged, ev.Type)

	w = a.do(t, http.MethodDelete, "/api/todos/completed", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	select {
	case ev := <-events:
		assert.Equal(t, notifications.EventTodosChanged, ev.Type)
		assert.Equal(t, map[string]any{"reason": "cleared"}, ev.Data)
	case <-time.After(time.Second):
		t.Fatal("no todos-changed event after clearing")
	}
}

func TestPasswordMode_RegisterLoginLogout(t *testing.T) {
	a := newTestAPI(t, "password")

	w := a.do(t, http.MethodGet, "/api/todos", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.json(t, http.MethodPost, "/api/users", `{"email":"ann@example.com","password":"0123456789","passwordConfirmation":"0123456789"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "0123456789")

	w = a.json(t, http.MethodPost, "/api/auth/login", `{"email":"ann@example.com","password":"wrong password"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.json(t, http.MethodPost, "/api/auth/login", `{"email":"ANN@example.com","password":"0123456789"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	a.cookies = w.Result().Cookies()
	require.NotEmpty(t, a.cookies)
	assert.Equal(t, sessionCookieName, a.cookies[0].Name)
	assert.True(t, a.cookies[0].HttpOnly)

	w = a.do(t, http.MethodGet, "/api/todos", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, http.MethodGet, "/api/auth/me", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ann@example.com")
	assert.Contains(t, w.Body.String(), `"authMode":"password"`)

	w = a.do(t, http.MethodPost, "/api/auth/logout", "", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = a.do(t, http.MethodGet, "/api/todos", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegister_Validation(t *testing.T) {
	a := newTestAPI(t, "password")

	w := a.json(t, http.MethodPost, "/api/users", `{"email":"taken@example.com","password":"0123456789","passwordConfirmation":"0123456789"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	tests := []struct {
		name   string
		body   string
		fields []string
	}{
		{
			name:   "short and mismatched password",
			body:   `{"email":"new@example.com","password":"short","passwordConfirmation":"other"}`,
			fields: []string{"password", "password"},
		},
		{
			name:   "email taken",
			body:   `{"email":"Taken@example.com","password":"0123456789","passwordConfirmation":"0123456789"}`,
			fields: []string{"email"},
		},
		{
			name:   "bad email",
			body:   `{"email":"not-an-email","password":"0123456789","passwordConfirmation":"0123456789"}`,
			fields: []string{"email"},
		},
		{
			name:   "missing everything",
			body:   `{}`,
			fields: []string{"email", "password", "password"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.json(t, http.MethodPost, "/api/users", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			resp := decodeError(t, w)
			assert.Equal(t, ErrCodeValidation, resp.Error.Code)
			var fields []string
			for _, d := range resp.Error.Details {
				fields = append(fields, d.Field)
			}
			assert.Equal(t, tt.fields, fields)
		})
	}
}

func TestOAuthMode_RequiresToken(t *testing.T) {
	a := newTestAPI(t, "oauth")

	w := a.do(t, http.MethodGet, "/api/todos", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// No issuer configured
	w = a.do(t, http.MethodGet, "/api/oauth/authorize", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = a.do(t, http.MethodGet, "/api/oauth/callback?error=access_denied", "", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/?error=access_denied", w.Header().Get("Location"))

	w = a.do(t, http.MethodGet, "/api/oauth/callback?code=abc&state=forged", "", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/?error=invalid_state", w.Header().Get("Location"))
}

func TestSettings(t *testing.T) {
	a := newTestAPI(t, "none")

	w := a.do(t, http.MethodGet, "/api/settings", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"preferences_log_level":"info"}}`, w.Body.String())

	w = a.json(t, http.MethodPut, "/api/settings", `{"preferences_log_level":"debug","theme":"dark"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"preferences_log_level":"debug","theme":"dark"}}`, w.Body.String())

	w = a.json(t, http.MethodPut, "/api/settings", `["nope"]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	a.json(t, http.MethodPut, "/api/settings", `{"preferences_log_level":"info"}`)
}

func TestNotificationStream_TodosChanged(t *testing.T) {
	a := newTestAPI(t, "none")
	a.h.heartbeat = time.Hour

	ts := httptest.NewServer(a.router)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/notifications/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, "data: ") {
				lines <- strings.TrimPrefix(line, "data: ")
			}
		}
		close(lines)
	}()

	next := func() map[string]any {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream closed")
			var ev map[string]any
			require.NoError(t, json.Unmarshal([]byte(line), &ev))
			return ev
		case <-time.After(2 * time.Second):
			t.Fatal("no event")
			return nil
		}
	}

	assert.Equal(t, "connected", next()["type"])

	require.Eventually(t, func() bool { return a.srv.Notifications().SubscriberCount() == 1 }, time.Second, 10*time.Millisecond)
	w := a.json(t, http.MethodPost, "/api/todos", `{"description":"ping"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	ev := next()
	assert.Equal(t, "todos-changed", ev["type"])
	assert.Equal(t, map[string]any{"reason": "created"}, ev["data"])
}

func TestRequestTimeout_SetsDeadline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", RequestTimeout(time.Minute), func(c *gin.Context) {
		deadline, ok := c.Request.Context().Deadline()
		assert.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
		c.Status(http.StatusOK)
	})
	r.GET("/none", RequestTimeout(0), func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		assert.False(t, ok)
		c.Status(http.StatusOK)
	})

	for _, path := range []string{"/", "/none"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRespondStoreError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		code   ErrorCode
	}{
		{"precondition", &ordering.PreconditionError{Reason: "unknown item", ID: 9}, http.StatusUnprocessableEntity, ErrCodeUnprocessable},
		{"not found", fmt.Errorf("park: %w", db.ErrTodoNotFound), http.StatusNotFound, ErrCodeNotFound},
		{"store", &ordering.StoreError{Op: "reorder", Err: errors.New("disk I/O error")}, http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
		{"deadline", &ordering.StoreError{Op: "reorder", Err: context.DeadlineExceeded}, http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			RespondStoreError(c, tt.err, "do things")

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Error.Code)
			assert.True(t, c.IsAborted())
		})
	}
}
