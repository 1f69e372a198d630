package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/tazhibayda/todo-service/internal/domain"
	"github.com/tazhibayda/todo-service/internal/queue"
	"github.com/tazhibayda/todo-service/internal/repo"
)

// ListTodos godoc
// @Summary List the caller's todos, newest first
// @Tags todos
// @Security BearerAuth
// @Produce json
// @Success 200 {array} domain.Todo
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/todos [get]
func (h *Handler) ListTodos(c *gin.Context) {
	owner, ok := h.owner(c)
	if !ok {
		return
	}
	items, err := h.Todos.ListTodosByOwner(c.Request.Context(), owner)
	if err != nil {
		h.todoOutcome("list", "error")
		h.fail(c, http.StatusInternalServerError, "Failed to fetch todos", err)
		return
	}
	if items == nil {
		items = []domain.Todo{}
	}
	h.todoOutcome("list", "ok")
	c.JSON(http.StatusOK, items)
}

type createTodoReq struct {
	Text string `json:"text"`
}

// CreateTodo godoc
// @Summary Create a todo
// @Tags todos
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body createTodoReq true "text"
// @Success 201 {object} domain.Todo
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/todos [post]
func (h *Handler) CreateTodo(c *gin.Context) {
	owner, ok := h.owner(c)
	if !ok {
		return
	}
	var in createTodoReq
	if err := c.ShouldBindJSON(&in); err != nil || blank(in.Text) {
		h.fail(c, http.StatusBadRequest, "Text is required", err)
		return
	}

	t := &domain.Todo{
		Text:   strings.TrimSpace(in.Text),
		Done:   false,
		UserID: owner,
	}
	if err := h.Todos.CreateTodo(c.Request.Context(), t); err != nil {
		h.todoOutcome("create", "error")
		h.fail(c, http.StatusInternalServerError, "Failed to create todo", err)
		return
	}

	h.publish(c, queue.KeyTodoCreated, queue.TodoCreated{TodoID: t.ID.Hex(), UserID: owner.Hex()})
	h.todoOutcome("create", "ok")
	c.JSON(http.StatusCreated, t)
}

// DeleteTodo godoc
// @Summary Delete one of the caller's todos
// @Description A todo owned by someone else is reported exactly like a missing one.
// @Tags todos
// @Security BearerAuth
// @Produce json
// @Param id path string true "todo id"
// @Success 200 {object} map[string]bool
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/todos/{id} [delete]
func (h *Handler) DeleteTodo(c *gin.Context) {
	owner, ok := h.owner(c)
	if !ok {
		return
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		h.todoOutcome("delete", "not_found")
		h.fail(c, http.StatusNotFound, "Todo not found", err)
		return
	}

	if err := h.Todos.DeleteTodoByOwner(c.Request.Context(), id, owner); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			h.todoOutcome("delete", "not_found")
			h.fail(c, http.StatusNotFound, "Todo not found", nil, zap.String("todo_id", id.Hex()))
			return
		}
		h.todoOutcome("delete", "error")
		h.fail(c, http.StatusInternalServerError, "Failed to delete todo", err)
		return
	}

	h.publish(c, queue.KeyTodoDeleted, queue.TodoDeleted{TodoID: id.Hex(), UserID: owner.Hex()})
	h.todoOutcome("delete", "ok")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// owner reads the caller bound by AuthJWT.
func (h *Handler) owner(c *gin.Context) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(c.GetString(uidKey))
	if err != nil {
		h.fail(c, http.StatusUnauthorized, "Invalid token", err)
		return primitive.NilObjectID, false
	}
	return oid, true
}

func (h *Handler) todoOutcome(op, outcome string) {
	if h.Metrics != nil {
		h.Metrics.Todo(op, outcome)
	}
}
