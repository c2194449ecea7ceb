package mockdest

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

func NewRouter(store RequestStore) http.Handler {
	r := gin.Default()

	handlers := Handlers{
		store: store,
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	r.POST("/webhook", handlers.Receive)
	r.POST("/status/:code", handlers.ReceiveWithStatus)
	r.POST("/flaky/:key", handlers.ReceiveFlaky)

	r.GET("/requests", handlers.ListRequests)
	r.DELETE("/requests", handlers.ClearRequests)

	return r.Handler()
}

type Handlers struct {
	store RequestStore
}

// Receive accepts any payload and answers 200.
func (h *Handlers) Receive(c *gin.Context) {
	h.record(c)
	h.delay(c)
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// ReceiveWithStatus accepts the payload, then answers with the requested
// status code. Lets a test drive every branch of failure classification.
func (h *Handlers) ReceiveWithStatus(c *gin.Context) {
	h.record(c)
	h.delay(c)

	code, err := strconv.Atoi(c.Param("code"))
	if err != nil || code < 100 || code > 599 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid status code"})
		return
	}
	if code >= 200 && code < 300 {
		c.JSON(code, gin.H{"received": true})
		return
	}
	c.JSON(code, gin.H{"message": http.StatusText(code)})
}

// ReceiveFlaky fails with 503 until the key's failure budget is spent, then
// answers 200. The budget is taken from the failures query parameter on
// first sight of the key.
func (h *Handlers) ReceiveFlaky(c *gin.Context) {
	h.record(c)
	h.delay(c)

	failures, err := strconv.Atoi(c.DefaultQuery("failures", "1"))
	if err != nil || failures < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid failures"})
		return
	}
	if h.store.ShouldFail(c.Request.Context(), c.Param("key"), failures) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "flaking"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *Handlers) ListRequests(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.List(c.Request.Context()))
}

func (h *Handlers) ClearRequests(c *gin.Context) {
	h.store.Clear(c.Request.Context())
	c.Status(http.StatusOK)
}

func (h *Handlers) record(c *gin.Context) {
	body, _ := io.ReadAll(c.Request.Body)

	headers := make(map[string]string, len(c.Request.Header))
	for name := range c.Request.Header {
		headers[name] = c.Request.Header.Get(name)
	}

	// Non-JSON bodies are stored as a JSON string so listings stay
	// serializable.
	raw := json.RawMessage(body)
	if !json.Valid(body) {
		raw, _ = json.Marshal(string(body))
	}

	h.store.Record(c.Request.Context(), ReceivedWebhook{
		Path:       c.Request.URL.Path,
		Headers:    headers,
		Body:       raw,
		ReceivedAt: time.Now(),
	})
}

// delay honors a ?delay= duration so tests can simulate slow endpoints.
func (h *Handlers) delay(c *gin.Context) {
	raw := c.Query("delay")
	if raw == "" {
		return
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return
	}
	select {
	case <-time.After(d):
	case <-c.Request.Context().Done():
	}
}
