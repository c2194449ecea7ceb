package testutil

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	mathrand "math/rand"
	"os"
	"strconv"
	"testing"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"github.com/webhookhub/webhookhub/internal/logging"
	"github.com/webhookhub/webhookhub/internal/mqs"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// must be sorted
var TestEventTypes = []string{
	"user.created",
	"user.deleted",
	"user.updated",
}

func CheckIntegrationTest(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
}

func Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
}

func Race(t *testing.T) {
	if os.Getenv("TESTRACE") != "1" {
		t.Skip("skipping race test")
	}
}

func CreateTestLogger(t *testing.T) *logging.Logger {
	zapLogger := zaptest.NewLogger(t)
	logger := otelzap.New(zapLogger,
		otelzap.WithMinLevel(zap.InfoLevel),
	)
	return &logging.Logger{Logger: logger}
}

func RandomString(length int) string {
	b := make([]byte, length+2)
	rand.Read(b)
	return fmt.Sprintf("%x", b)[2 : length+2]
}

func RandomPortNumber() int {
	return 10000 + mathrand.Intn(50000)
}

// RandomPort returns a random port string in the range :10000–:59999.
func RandomPort() string {
	return ":" + strconv.Itoa(RandomPortNumber())
}

func MustMarshalJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

// MockMsg is a minimal queue payload for transport tests.
type MockMsg struct {
	ID string `json:"id"`
}

var _ mqs.IncomingMessage = &MockMsg{}

func (m *MockMsg) FromMessage(msg *mqs.Message) error {
	return json.Unmarshal(msg.Body, m)
}

func (m *MockMsg) ToMessage() (*mqs.Message, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return &mqs.Message{Body: body, LoggableID: m.ID}, nil
}
