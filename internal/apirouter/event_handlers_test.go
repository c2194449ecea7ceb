package apirouter_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webhookhub/webhookhub/internal/models"
	"github.com/webhookhub/webhookhub/internal/util/testutil"
)

func seedEvent(t *testing.T, h *apiTest, opts ...func(*models.Event)) models.Event {
	t.Helper()
	event := testutil.EventFactory.Any(opts...)
	inserted, err := h.store.InsertEvent(context.Background(), &event)
	require.NoError(t, err)
	require.True(t, inserted)
	return event
}

func TestAPI_Events(t *testing.T) {
	t.Parallel()

	t.Run("list omits payloads", func(t *testing.T) {
		t.Parallel()

		h := newAPITest(t)
		event := seedEvent(t, h,
			testutil.EventFactory.WithSourceName("orders"),
			testutil.EventFactory.WithPayload([]byte(`{"marker":"should-not-appear"}`)),
		)

		resp := h.do(h.jsonReq(http.MethodGet, baseAPIPath+"/events", nil))
		require.Equal(t, http.StatusOK, resp.Code)

		body := decodeJSON(t, resp)
		data, ok := body["data"].([]any)
		require.True(t, ok)
		require.Len(t, data, 1)
		entry := data[0].(map[string]any)
		assert.Equal(t, event.ID, entry["id"])
		assert.Equal(t, "orders", entry["source_name"])
		assert.NotContains(t, resp.Body.String(), "should-not-appear")
	})

	t.Run("list passes filters and caps the limit", func(t *testing.T) {
		t.Parallel()

		h := newAPITest(t)
		seedEvent(t, h,
			testutil.EventFactory.WithSourceName("orders"),
			testutil.EventFactory.WithEventType("order.created"),
		)
		seedEvent(t, h,
			testutil.EventFactory.WithSourceName("billing"),
			testutil.EventFactory.WithEventType("invoice.paid"),
		)

		resp := h.do(h.jsonReq(http.MethodGet, baseAPIPath+"/events?source=orders&type=order.created&limit=9999", nil))
		require.Equal(t, http.StatusOK, resp.Code)

		data, ok := decodeJSON(t, resp)["data"].([]any)
		require.True(t, ok)
		assert.Len(t, data, 1)

		require.NotNil(t, h.store.lastListEvents)
		assert.Equal(t, "orders", h.store.lastListEvents.SourceName)
		assert.Equal(t, "order.created", h.store.lastListEvents.EventType)
		assert.Equal(t, 500, h.store.lastListEvents.Limit)
	})

	t.Run("list echoes cursor tokens", func(t *testing.T) {
		t.Parallel()

		h := newAPITest(t)
		h.store.listNext = "next-token"
		h.store.listPrev = "prev-token"
		seedEvent(t, h)

		resp := h.do(h.jsonReq(http.MethodGet, baseAPIPath+"/events?next=cursor-in", nil))
		require.Equal(t, http.StatusOK, resp.Code)

		body := decodeJSON(t, resp)
		assert.Equal(t, "next-token", body["next"])
		assert.Equal(t, "prev-token", body["prev"])
		assert.Equal(t, "cursor-in", h.store.lastListEvents.Next)
	})

	t.Run("retrieve includes the payload", func(t *testing.T) {
		t.Parallel()

		h := newAPITest(t)
		event := seedEvent(t, h,
			testutil.EventFactory.WithPayload([]byte(`{"orderId": 42}`)),
		)

		resp := h.do(h.jsonReq(http.MethodGet, baseAPIPath+"/events/"+event.ID, nil))
		require.Equal(t, http.StatusOK, resp.Code)

		body := decodeJSON(t, resp)
		assert.Equal(t, event.ID, body["id"])
		payload, ok := body["payload"].(map[string]any)
		require.True(t, ok, "payload should be embedded JSON, got %T", body["payload"])
		assert.Equal(t, float64(42), payload["orderId"])
	})

	t.Run("retrieve unknown id returns 404", func(t *testing.T) {
		t.Parallel()

		h := newAPITest(t)
		resp := h.do(h.jsonReq(http.MethodGet, baseAPIPath+"/events/evt_missing", nil))
		require.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, "event not found", decodeJSON(t, resp)["message"])
	})

	t.Run("deliveries for an event are scoped to it", func(t *testing.T) {
		t.Parallel()

		h := newAPITest(t)
		event := seedEvent(t, h)
		other := seedEvent(t, h)

		mine := testutil.DeliveryFactory.Any(testutil.DeliveryFactory.WithEventID(event.ID))
		theirs := testutil.DeliveryFactory.Any(testutil.DeliveryFactory.WithEventID(other.ID))
		require.NoError(t, h.store.InsertPendingDeliveries(context.Background(), []models.Delivery{mine, theirs}))

		resp := h.do(h.jsonReq(http.MethodGet, baseAPIPath+"/events/"+event.ID+"/deliveries", nil))
		require.Equal(t, http.StatusOK, resp.Code)

		data, ok := decodeJSON(t, resp)["data"].([]any)
		require.True(t, ok)
		require.Len(t, data, 1)
		assert.Equal(t, mine.ID, data[0].(map[string]any)["id"])
	})

	t.Run("deliveries for unknown event returns 404", func(t *testing.T) {
		t.Parallel()

		h := newAPITest(t)
		resp := h.do(h.jsonReq(http.MethodGet, baseAPIPath+"/events/evt_missing/deliveries", nil))
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}
