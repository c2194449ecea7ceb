package apirouter_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createDestination(t *testing.T, h *apiTest, name string, rules []map[string]any) map[string]any {
	t.Helper()
	resp := h.do(h.jsonReq(http.MethodPost, baseAPIPath+"/destinations", map[string]any{
		"name":       name,
		"target_url": "https://example.com/hooks",
		"rules":      rules,
	}))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decodeJSON(t, resp)
}

func orderRules() []map[string]any {
	return []map[string]any{
		{"source_name": "orders", "event_type": "order.created"},
	}
}

func TestAPI_Destinations(t *testing.T) {
	t.Parallel()

	t.Run("create assigns ids to destination and rules", func(t *testing.T) {
		t.Parallel()

		h := newAPITest(t)
		created := createDestination(t, h, "crm", orderRules())

		id, _ := created["id"].(string)
		assert.True(t, strings.HasPrefix(id, "dst_"), "id: %v", created["id"])
		assert.Equal(t, "crm", created["name"])
		assert.Equal(t, "https://example.com/hooks", created["target_url"])
		assert.Equal(t, true, created["active"])

		rules, ok := created["rules"].([]any)
		require.True(t, ok)
		require.Len(t, rules, 1)
		rule := rules[0].(map[string]any)
		ruleID, _ := rule["id"].(string)
		assert.True(t, strings.HasPrefix(ruleID, "rul_"), "rule id: %v", rule["id"])
		assert.Equal(t, id, rule["destination_id"])
		assert.Equal(t, "orders", rule["source_name"])
		assert.Equal(t, "order.created", rule["event_type"])
	})

	t.Run("create without rules returns 422", func(t *testing.T) {
		t.Parallel()

		h := newAPITest(t)
		resp := h.do(h.jsonReq(http.MethodPost, baseAPIPath+"/destinations", map[string]any{
			"name":       "crm",
			"target_url": "https://example.com/hooks",
		}))
		require.Equal(t, http.StatusUnprocessableEntity, resp.Code)

		body := decodeJSON(t, resp)
		assert.Equal(t, "validation error", body["message"])
		data, ok := body["data"].([]any)
		require.True(t, ok)
		assert.Contains(t, data, "rules is required")
	})

	t.Run("create with empty rules array returns 422", func(t *testing.T) {
		t.Parallel()

		h := newAPITest(t)
		resp := h.do(h.jsonReq(http.MethodPost, baseAPIPath+"/destinations", map[string]any{
			"name":       "crm",
			"target_url": "https://example.com/hooks",
			"rules":      []map[string]any{},
		}))
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})

	t.Run("create with blank rule field returns 422", func(t *testing.T) {
		t.Parallel()

		h := newAPITest(t)
		resp := h.do(h.jsonReq(http.MethodPost, baseAPIPath+"/destinations", map[string]any{
			"name":       "crm",
			"target_url": "https://example.com/hooks",
			"rules": []map[string]any{
				{"source_name": "orders"},
			},
		}))
		require.Equal(t, http.StatusUnprocessableEntity, resp.Code)

		data, ok := decodeJSON(t, resp)["data"].([]any)
		require.True(t, ok)
		assert.Contains(t, data, "event_type is required")
	})

	t.Run("create with non-http target URL returns 400", func(t *testing.T) {
		t.Parallel()

		h := newAPITest(t)
		resp := h.do(h.jsonReq(http.MethodPost, baseAPIPath+"/destinations", map[string]any{
			"name":       "crm",
			"target_url": "ftp://example.com/hooks",
			"rules":      orderRules(),
		}))
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("duplicate name returns 409", func(t *testing.T) {
		t.Parallel()

		h := newAPITest(t)
		createDestination(t, h, "crm", orderRules())

		resp := h.do(h.jsonReq(http.MethodPost, baseAPIPath+"/destinations", map[string]any{
			"name":       "crm",
			"target_url": "https://example.com/hooks",
			"rules":      orderRules(),
		}))
		assert.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("list embeds rules", func(t *testing.T) {
		t.Parallel()

		h := newAPITest(t)
		createDestination(t, h, "crm", orderRules())
		createDestination(t, h, "audit", []map[string]any{
			{"source_name": "orders", "event_type": "order.created"},
			{"source_name": "billing", "event_type": "invoice.paid"},
		})

		resp := h.do(h.jsonReq(http.MethodGet, baseAPIPath+"/destinations", nil))
		require.Equal(t, http.StatusOK, resp.Code)

		data, ok := decodeJSON(t, resp)["data"].([]any)
		require.True(t, ok)
		require.Len(t, data, 2)
		audit := data[1].(map[string]any)
		assert.Len(t, audit["rules"].([]any), 2)
	})

	t.Run("patch replaces the rule set", func(t *testing.T) {
		t.Parallel()

		h := newAPITest(t)
		created := createDestination(t, h, "crm", orderRules())
		id := created["id"].(string)

		resp := h.do(h.jsonReq(http.MethodPatch, baseAPIPath+"/destinations/"+id, map[string]any{
			"rules": []map[string]any{
				{"source_name": "billing", "event_type": "invoice.paid"},
				{"source_name": "billing", "event_type": "invoice.voided"},
			},
		}))
		require.Equal(t, http.StatusOK, resp.Code)

		rules, ok := decodeJSON(t, resp)["rules"].([]any)
		require.True(t, ok)
		require.Len(t, rules, 2)
		first := rules[0].(map[string]any)
		assert.Equal(t, "billing", first["source_name"])
		assert.True(t, strings.HasPrefix(first["id"].(string), "rul_"))
	})

	t.Run("patch without rules keeps the existing set", func(t *testing.T) {
		t.Parallel()

		h := newAPITest(t)
		created := createDestination(t, h, "crm", orderRules())
		id := created["id"].(string)

		resp := h.do(h.jsonReq(http.MethodPatch, baseAPIPath+"/destinations/"+id, map[string]any{
			"active": false,
		}))
		require.Equal(t, http.StatusOK, resp.Code)

		body := decodeJSON(t, resp)
		assert.Equal(t, false, body["active"])
		rules, ok := body["rules"].([]any)
		require.True(t, ok)
		assert.Len(t, rules, 1)

		get := h.do(h.jsonReq(http.MethodGet, baseAPIPath+"/destinations/"+id, nil))
		require.Equal(t, http.StatusOK, get.Code)
		assert.Len(t, decodeJSON(t, get)["rules"].([]any), 1)
	})

	t.Run("patch with invalid target URL returns 400", func(t *testing.T) {
		t.Parallel()

		h := newAPITest(t)
		created := createDestination(t, h, "crm", orderRules())
		id := created["id"].(string)

		resp := h.do(h.jsonReq(http.MethodPatch, baseAPIPath+"/destinations/"+id, map[string]any{
			"target_url": "not-a-url",
		}))
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("retrieve unknown id returns 404", func(t *testing.T) {
		t.Parallel()

		h := newAPITest(t)
		resp := h.do(h.jsonReq(http.MethodGet, baseAPIPath+"/destinations/dst_missing", nil))
		require.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, "destination not found", decodeJSON(t, resp)["message"])
	})

	t.Run("delete removes the destination", func(t *testing.T) {
		t.Parallel()

		h := newAPITest(t)
		created := createDestination(t, h, "crm", orderRules())
		id := created["id"].(string)

		resp := h.do(h.jsonReq(http.MethodDelete, baseAPIPath+"/destinations/"+id, nil))
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, true, decodeJSON(t, resp)["success"])

		get := h.do(h.jsonReq(http.MethodGet, baseAPIPath+"/destinations/"+id, nil))
		assert.Equal(t, http.StatusNotFound, get.Code)
	})
}
