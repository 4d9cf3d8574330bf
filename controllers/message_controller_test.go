package controllers

import (
	"net/http"
	"testing"

	"github.com/gatsishub/gatsishub-api/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageRouter(user models.User) *gin.Engine {
	r := newRouter()
	g := r.Group("/api/v1", asUser(user))
	g.POST("/messages/send", SendMessage)
	g.GET("/messages/conversation/:customerId", GetConversation)
	return r
}

func TestSendMessage_Customer(t *testing.T) {
	env := setupEnv(t)
	router := messageRouter(env.customer)

	w := performJSON(router, http.MethodPost, "/api/v1/messages/send", gin.H{"text": "Can we change the hook color?"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var message models.Message
	decodeData(t, w, &message)
	assert.Equal(t, env.customer.ID, message.CustomerID)
	assert.Equal(t, env.customer.ID, message.SenderID)
	assert.Equal(t, models.SenderCustomer, message.SenderType)
	assert.Equal(t, env.customer.Name, message.Sender.Name)

	t.Run("into another thread", func(t *testing.T) {
		w := performJSON(router, http.MethodPost, "/api/v1/messages/send", gin.H{"customer_id": env.other.ID, "text": "hi"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("empty text", func(t *testing.T) {
		w := performJSON(router, http.MethodPost, "/api/v1/messages/send", gin.H{"text": ""})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSendMessage_Staff(t *testing.T) {
	env := setupEnv(t)
	router := messageRouter(env.admin)

	w := performJSON(router, http.MethodPost, "/api/v1/messages/send", gin.H{"customer_id": env.customer.ID, "text": "Yes, <b>blue</b> is available"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "<b>blue</b>", "messages are returned without HTML escaping")

	var message models.Message
	decodeData(t, w, &message)
	assert.Equal(t, env.customer.ID, message.CustomerID)
	assert.Equal(t, env.admin.ID, message.SenderID)
	assert.Equal(t, models.SenderEmployee, message.SenderType)

	w = performJSON(router, http.MethodPost, "/api/v1/messages/send", gin.H{"text": "to nobody"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performJSON(router, http.MethodPost, "/api/v1/messages/send", gin.H{"customer_id": env.admin.ID, "text": "to staff"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "CUSTOMER_NOT_FOUND", errorCodeOf(t, w))
}

func TestGetConversation(t *testing.T) {
	env := setupEnv(t)
	performJSON(messageRouter(env.customer), http.MethodPost, "/api/v1/messages/send", gin.H{"text": "first"})
	performJSON(messageRouter(env.admin), http.MethodPost, "/api/v1/messages/send", gin.H{"customer_id": env.customer.ID, "text": "second"})
	performJSON(messageRouter(env.other), http.MethodPost, "/api/v1/messages/send", gin.H{"text": "elsewhere"})

	path := "/api/v1/messages/conversation/" + uintString(env.customer.ID)

	w := performJSON(messageRouter(env.customer), http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var messages []models.Message
	decodeData(t, w, &messages)
	require.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Text)
	assert.Equal(t, "second", messages[1].Text)
	assert.Equal(t, models.SenderEmployee, messages[1].SenderType)

	w = performJSON(messageRouter(env.admin), http.MethodGet, path, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performJSON(messageRouter(env.other), http.MethodGet, path, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = performJSON(messageRouter(env.admin), http.MethodGet, "/api/v1/messages/conversation/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
