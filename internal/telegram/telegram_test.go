package telegram

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledServiceIsNoOp(t *testing.T) {
	s := NewService("", "12345", logrus.New())
	assert.False(t, s.Enabled())
	assert.NoError(t, s.SendMessage("ignored"))
}

func TestSendMessage(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottoken123/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := NewService("token123", "chat42", logrus.New())
	s.apiBase = server.URL

	require.NoError(t, s.SendMessage("hello"))
	assert.Equal(t, "chat42", received["chat_id"])
	assert.Equal(t, "hello", received["text"])
	assert.Equal(t, "HTML", received["parse_mode"])
}

func TestSendMessageMissingChatID(t *testing.T) {
	s := NewService("token123", "", logrus.New())
	assert.Error(t, s.SendMessage("hello"))
}

func TestSendMessageAPIErrors(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{http.StatusUnauthorized, "invalid bot token"},
		{http.StatusBadRequest, "invalid chat ID"},
		{http.StatusForbidden, "blocked"},
		{http.StatusInternalServerError, "status 500"},
	}

	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		s := NewService("token123", "chat42", logrus.New())
		s.apiBase = server.URL

		err := s.SendMessage("hello")
		require.Error(t, err, "status %d", tt.status)
		assert.Contains(t, err.Error(), tt.expected)
		server.Close()
	}
}
