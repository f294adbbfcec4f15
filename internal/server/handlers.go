package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/petasbytes/shop-agent/internal/assistant"
	"github.com/petasbytes/shop-agent/internal/logger"
	"github.com/petasbytes/shop-agent/internal/shop"
	"github.com/petasbytes/shop-agent/tools"
)

type handlers struct {
	assistant *assistant.Assistant
	registry  *tools.Registry
	shop      shop.Store
	orders    shop.OrderReader
}

// postMessage handles POST /v1/messages.
func (h *handlers) postMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	reply, err := h.assistant.Handle(c.Request.Context(), assistant.Inbound{
		ConversationID: req.ConversationID,
		Text:           req.Text,
		ReplyToken:     req.ReplyToken,
		Transcribed:    req.Transcribed,
	})
	switch {
	case errors.Is(err, assistant.ErrEmptyText):
		abortError(c, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	case err != nil:
		logger.WarnX("server", "conversation %s: %v", req.ConversationID, err)
		abortError(c, http.StatusServiceUnavailable, "interrupted", "interaction interrupted")
		return
	}

	texts := reply.Texts
	if texts == nil {
		texts = []string{}
	}
	c.JSON(http.StatusOK, MessageResponse{
		ConversationID: reply.ConversationID,
		ReplyToken:     reply.ReplyToken,
		Messages:       texts,
		Failed:         reply.Failed,
	})
}

// listConversations handles GET /v1/conversations.
func (h *handlers) listConversations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.assistant.Store().List()})
}

// getConversation handles GET /v1/conversations/:id.
func (h *handlers) getConversation(c *gin.Context) {
	id := c.Param("id")
	conv, ok := h.assistant.Store().Get(id)
	if !ok {
		abortError(c, http.StatusNotFound, "not_found", "conversation "+strconv.Quote(id)+" not found")
		return
	}
	c.JSON(http.StatusOK, ConversationResponse{
		ID:        conv.ID(),
		Messages:  conv.Messages(),
		CreatedAt: formatTime(conv.CreatedAt()),
		UpdatedAt: formatTime(conv.UpdatedAt()),
	})
}

// deleteConversation handles DELETE /v1/conversations/:id.
func (h *handlers) deleteConversation(c *gin.Context) {
	id := c.Param("id")
	if !h.assistant.Store().Delete(id) {
		abortError(c, http.StatusNotFound, "not_found", "conversation "+strconv.Quote(id)+" not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "deleted": true})
}

// listTools handles GET /v1/tools.
func (h *handlers) listTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.registry.Declarations()})
}

// listProducts handles GET /v1/products?keyword=&limit=.
func (h *handlers) listProducts(c *gin.Context) {
	limit := shop.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			abortError(c, http.StatusBadRequest, "invalid_request_error", "limit must be a positive integer")
			return
		}
		limit = n
	}

	var (
		products []shop.Product
		err      error
	)
	if keyword := c.Query("keyword"); keyword != "" {
		products, err = h.shop.Search(c.Request.Context(), keyword, limit)
	} else {
		products, err = h.shop.Menu(c.Request.Context(), limit)
	}
	if err != nil {
		logger.ErrorX("server", "list products: %v", err)
		abortError(c, http.StatusInternalServerError, "server_error", "failed to list products")
		return
	}
	if products == nil {
		products = []shop.Product{}
	}
	c.JSON(http.StatusOK, gin.H{"data": products})
}

// listOrders handles GET /v1/orders?customer_id=.
func (h *handlers) listOrders(c *gin.Context) {
	orders, err := h.orders.List(c.Query("customer_id"))
	if err != nil {
		logger.ErrorX("server", "list orders: %v", err)
		abortError(c, http.StatusInternalServerError, "server_error", "failed to list orders")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": orders})
}

// getOrder handles GET /v1/orders/:id.
func (h *handlers) getOrder(c *gin.Context) {
	id := c.Param("id")
	order, err := h.orders.Get(id)
	switch {
	case errors.Is(err, shop.ErrOrderNotFound):
		abortError(c, http.StatusNotFound, "not_found", "order "+strconv.Quote(id)+" not found")
		return
	case err != nil:
		logger.ErrorX("server", "get order %s: %v", id, err)
		abortError(c, http.StatusInternalServerError, "server_error", "failed to get order")
		return
	}
	c.JSON(http.StatusOK, order)
}

func healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
