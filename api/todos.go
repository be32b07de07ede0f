package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/xiaoyuanzhu-com/my-todos/log"
	"github.com/xiaoyuanzhu-com/my-todos/ordering"
)

var todosLogger = log.GetLogger("ApiTodos")

// clearCompletedResponse is returned by DELETE /api/todos/completed
type clearCompletedResponse struct {
	Removed int             `json:"removed"`
	Todos   []ordering.Item `json:"todos"`
}

// ListTodos handles GET /api/todos
func (h *Handlers) ListTodos(c *gin.Context) {
	items, ok := h.list(c)
	if !ok {
		return
	}
	RespondList(c, items)
}

// CreateTodo handles POST /api/todos
func (h *Handlers) CreateTodo(c *gin.Context) {
	var body struct {
		Description string `json:"description" form:"description"`
	}
	if err := c.ShouldBind(&body); err != nil {
		RespondBadRequest(c, "Invalid request body")
		return
	}

	description := strings.TrimSpace(body.Description)
	if description == "" {
		RespondValidationError(c, "Invalid todo", []ErrorDetail{{
			Field:   "description",
			Message: "description is required",
		}})
		return
	}

	todo, err := h.db().CreateTodo(c.Request.Context(), description)
	if err != nil {
		RespondStoreError(c, err, "create todo")
		return
	}
	todosLogger.Debug().Int64("id", todo.ID).Int64("position", todo.Position).Msg("todo created")

	h.notifier().NotifyTodosChanged("created")
	items, ok := h.list(c)
	if !ok {
		return
	}
	c.Header("Location", fmt.Sprintf("/api/todos/%d", todo.ID))
	c.JSON(http.StatusCreated, ListResponse[ordering.Item]{Data: items})
}

// UpdateTodo handles PUT /api/todos/:id. done is "on" for checked; a missing
// or other value means not done.
func (h *Handlers) UpdateTodo(c *gin.Context) {
	id, ok := todoID(c)
	if !ok {
		return
	}

	done, err := parseDone(c)
	if err != nil {
		RespondBadRequest(c, "Invalid request body")
		return
	}

	if err := h.db().SetTodoDone(c.Request.Context(), id, done); err != nil {
		RespondStoreError(c, err, "update todo")
		return
	}

	h.respondChanged(c, "updated")
}

// DeleteTodo handles DELETE /api/todos/:id
func (h *Handlers) DeleteTodo(c *gin.Context) {
	id, ok := todoID(c)
	if !ok {
		return
	}

	if err := h.db().DeleteTodo(c.Request.Context(), id); err != nil {
		RespondStoreError(c, err, "delete todo")
		return
	}

	h.respondChanged(c, "deleted")
}

// ReorderTodos handles POST /api/todos/order. The body lists todo ids top to
// bottom, either as repeated form values "order" or as JSON {"order": [...]}.
func (h *Handlers) ReorderTodos(c *gin.Context) {
	tokens, err := orderTokens(c)
	if err != nil {
		RespondBadRequest(c, "Invalid request body")
		return
	}

	if err := h.engine().ReorderByExplicitSequence(c.Request.Context(), tokens); err != nil {
		RespondStoreError(c, err, "reorder todos")
		return
	}

	h.respondChanged(c, "reordered")
}

// ReassignPositions handles PUT /api/todos/positions with
// {"positions": [{"id": 1, "position": 7}, ...]}
func (h *Handlers) ReassignPositions(c *gin.Context) {
	var body struct {
		Positions []struct {
			ID       int64 `json:"id"`
			Position int64 `json:"position"`
		} `json:"positions" binding:"required,dive"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondBadRequest(c, "Invalid request body")
		return
	}

	assignments := make([]ordering.Assignment, len(body.Positions))
	for i, p := range body.Positions {
		assignments[i] = ordering.Assignment{ID: p.ID, Position: p.Position}
	}

	if err := h.engine().ReassignPositions(c.Request.Context(), assignments); err != nil {
		RespondStoreError(c, err, "reassign positions")
		return
	}

	h.respondChanged(c, "reordered")
}

// MoveCompletedToBottom handles POST /api/todos/move-completed-to-bottom
func (h *Handlers) MoveCompletedToBottom(c *gin.Context) {
	if err := h.engine().MoveCompletedToBottom(c.Request.Context()); err != nil {
		RespondStoreError(c, err, "move completed todos")
		return
	}

	h.respondChanged(c, "reordered")
}

// ClearCompleted handles DELETE /api/todos/completed. Subscribers only hear
// about it when something was removed.
func (h *Handlers) ClearCompleted(c *gin.Context) {
	removed, err := h.engine().DeleteCompleted(c.Request.Context())
	if err != nil {
		RespondStoreError(c, err, "clear completed todos")
		return
	}
	if removed > 0 {
		todosLogger.Info().Int("removed", removed).Msg("cleared completed todos")
		h.notifier().NotifyTodosChanged("cleared")
	}

	items, ok := h.list(c)
	if !ok {
		return
	}
	RespondData(c, clearCompletedResponse{Removed: removed, Todos: items})
}

// list reads the current order. When it cannot be read an error response has
// been written and ok is false.
func (h *Handlers) list(c *gin.Context) (items []ordering.Item, ok bool) {
	items, err := h.engine().ListOrdered(c.Request.Context())
	if err != nil {
		RespondStoreError(c, err, "list todos")
		return nil, false
	}
	if items == nil {
		items = []ordering.Item{}
	}
	return items, true
}

// respondChanged publishes a todos-changed event and responds with the fresh list
func (h *Handlers) respondChanged(c *gin.Context, reason string) {
	h.notifier().NotifyTodosChanged(reason)

	items, ok := h.list(c)
	if !ok {
		return
	}
	RespondList(c, items)
}

func todoID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		RespondBadRequest(c, "Invalid todo id")
		return 0, false
	}
	return id, true
}

// parseDone reads the done flag from a form or JSON body. JSON accepts a
// boolean or the form's "on".
func parseDone(c *gin.Context) (bool, error) {
	if c.ContentType() != binding.MIMEJSON {
		return c.PostForm("done") == "on", nil
	}

	var body struct {
		Done json.RawMessage `json:"done"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		return false, err
	}
	switch strings.TrimSpace(string(body.Done)) {
	case "true", `"on"`:
		return true, nil
	default:
		return false, nil
	}
}

// orderTokens returns the raw id tokens of a reorder request. JSON numbers
// keep their literal text so "1.5" stays unparseable downstream.
func orderTokens(c *gin.Context) ([]string, error) {
	if c.ContentType() != binding.MIMEJSON {
		return c.PostFormArray("order"), nil
	}

	var body struct {
		Order []json.RawMessage `json:"order"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		return nil, err
	}

	tokens := make([]string, len(body.Order))
	for i, raw := range body.Order {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			tokens[i] = s
			continue
		}
		tokens[i] = string(raw)
	}
	return tokens, nil
}
