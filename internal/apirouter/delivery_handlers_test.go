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

func seedDelivery(t *testing.T, h *apiTest, opts ...func(*models.Delivery)) models.Delivery {
	t.Helper()
	delivery := testutil.DeliveryFactory.Any(opts...)
	require.NoError(t, h.store.InsertPendingDeliveries(context.Background(), []models.Delivery{delivery}))
	return delivery
}

func TestAPI_Deliveries(t *testing.T) {
	t.Parallel()

	t.Run("list passes filters through", func(t *testing.T) {
		t.Parallel()

		h := newAPITest(t)
		dead := seedDelivery(t, h,
			testutil.DeliveryFactory.WithDestinationID("dst_1"),
			testutil.DeliveryFactory.WithStatus(models.DeliveryStatusDead),
		)
		seedDelivery(t, h,
			testutil.DeliveryFactory.WithDestinationID("dst_1"),
			testutil.DeliveryFactory.WithStatus(models.DeliveryStatusDelivered),
		)
		seedDelivery(t, h,
			testutil.DeliveryFactory.WithDestinationID("dst_2"),
			testutil.DeliveryFactory.WithStatus(models.DeliveryStatusDead),
		)

		resp := h.do(h.jsonReq(http.MethodGet, baseAPIPath+"/deliveries?status=DEAD&destination_id=dst_1", nil))
		require.Equal(t, http.StatusOK, resp.Code)

		data, ok := decodeJSON(t, resp)["data"].([]any)
		require.True(t, ok)
		require.Len(t, data, 1)
		assert.Equal(t, dead.ID, data[0].(map[string]any)["id"])

		require.NotNil(t, h.store.lastListDeliveries)
		assert.Equal(t, models.DeliveryStatusDead, h.store.lastListDeliveries.Status)
		assert.Equal(t, "dst_1", h.store.lastListDeliveries.DestinationID)
	})

	t.Run("list with unknown status returns 422", func(t *testing.T) {
		t.Parallel()

		h := newAPITest(t)
		resp := h.do(h.jsonReq(http.MethodGet, baseAPIPath+"/deliveries?status=SLEEPING", nil))
		require.Equal(t, http.StatusUnprocessableEntity, resp.Code)

		body := decodeJSON(t, resp)
		assert.Equal(t, "validation error", body["message"])
		data, ok := body["data"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, data["query.status"], "must be one of")
	})

	t.Run("list without filters returns everything", func(t *testing.T) {
		t.Parallel()

		h := newAPITest(t)
		seedDelivery(t, h)
		seedDelivery(t, h)

		resp := h.do(h.jsonReq(http.MethodGet, baseAPIPath+"/deliveries", nil))
		require.Equal(t, http.StatusOK, resp.Code)

		data, ok := decodeJSON(t, resp)["data"].([]any)
		require.True(t, ok)
		assert.Len(t, data, 2)
	})

	t.Run("retrieve returns the delivery row", func(t *testing.T) {
		t.Parallel()

		h := newAPITest(t)
		delivery := seedDelivery(t, h,
			testutil.DeliveryFactory.WithStatus(models.DeliveryStatusRetrying),
			testutil.DeliveryFactory.WithAttempts(2),
			testutil.DeliveryFactory.WithLastError("503 from destination"),
		)

		resp := h.do(h.jsonReq(http.MethodGet, baseAPIPath+"/deliveries/"+delivery.ID, nil))
		require.Equal(t, http.StatusOK, resp.Code)

		body := decodeJSON(t, resp)
		assert.Equal(t, delivery.ID, body["id"])
		assert.Equal(t, "RETRYING", body["status"])
		assert.Equal(t, float64(2), body["attempts"])
		assert.Equal(t, "503 from destination", body["last_error"])
	})

	t.Run("retrieve unknown id returns 404", func(t *testing.T) {
		t.Parallel()

		h := newAPITest(t)
		resp := h.do(h.jsonReq(http.MethodGet, baseAPIPath+"/deliveries/dlv_missing", nil))
		require.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, "delivery not found", decodeJSON(t, resp)["message"])
	})
}
