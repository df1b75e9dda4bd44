package sentiment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Analyze_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/analyze-sentiment", r.URL.Path)
		assert.Equal(t, "great food", r.URL.Query().Get("text_input"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sentiment":"positive","confidence":"medium","explanation":"Parsed from text response","raw_response":"POSITIVE"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)

	result, err := client.Analyze(context.Background(), "great food")

	require.NoError(t, err)
	assert.Equal(t, "positive", result.Sentiment)
	assert.Equal(t, "medium", result.Confidence)
}

func TestClient_Analyze_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "classifier down", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)

	result, err := client.Analyze(context.Background(), "great food")

	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestClient_Analyze_EmptyLabel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"confidence":"low"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)

	_, err := client.Analyze(context.Background(), "great food")

	assert.Error(t, err)
}

func TestClient_Analyze_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(server.URL, 20*time.Millisecond)

	_, err := client.Analyze(context.Background(), "great food")

	assert.Error(t, err)
}
