// Package integration contains integration tests for the exchange dashboard backend.
//
// API Integration Tests
// These tests verify the complete HTTP request/response cycle through all layers:
// Handler -> Service -> Repository -> Database, with Binance replaced by a fake upstream.
//
// Run with: go test ./tests/integration/...
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
)

// doRequest performs an HTTP request against the test server with the test token
func doRequest(t *testing.T, ts *TestServer, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, reader)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+testToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	return resp
}

// decodeBody decodes a JSON response body into a map
func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return result
}

func TestHealthAndMetrics(t *testing.T) {
	ts := SetupTestServer(t)
	if ts == nil {
		return
	}
	defer ts.Cleanup()

	t.Run("Health", func(t *testing.T) {
		resp, err := http.Get(ts.Server.URL + "/health")
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("Status = %d, want 200", resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		if string(body) != "OK" {
			t.Errorf("Body = %q, want OK", body)
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		resp, err := http.Get(ts.Server.URL + "/metrics")
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("Status = %d, want 200", resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		if !strings.Contains(string(body), "go_goroutines") {
			t.Error("Expected prometheus metrics in response")
		}
	})
}

func TestAuthentication(t *testing.T) {
	ts := SetupTestServer(t)
	if ts == nil {
		return
	}
	defer ts.Cleanup()

	t.Run("MissingToken", func(t *testing.T) {
		resp, err := http.Get(ts.Server.URL + "/api/v1/exchanges")
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("Status = %d, want 401", resp.StatusCode)
		}
		body := decodeBody(t, resp)
		if body["code"] != "not_authenticated" {
			t.Errorf("Code = %v, want not_authenticated", body["code"])
		}
	})

	t.Run("UnknownToken", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, ts.Server.URL+"/api/v1/exchanges", nil)
		req.Header.Set("Authorization", "Bearer wrong-token")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("Status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("QueryToken", func(t *testing.T) {
		resp, err := http.Get(ts.Server.URL + "/api/v1/exchanges?token=" + testToken)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		defer resp.Body.Close()
		// Profile does not exist yet, identity resolution itself must succeed
		if resp.StatusCode == http.StatusUnauthorized {
			t.Errorf("Status = 401, expected identity to resolve via query token")
		}
	})
}

func TestCredentialsFlow(t *testing.T) {
	ts := SetupTestServer(t)
	if ts == nil {
		return
	}
	defer ts.Cleanup()

	// Create profile first
	resp := doRequest(t, ts, http.MethodPost, "/api/v1/profile", map[string]string{"password": "secret123"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("UpsertProfile status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	t.Run("SetTestnetCredentials", func(t *testing.T) {
		resp := doRequest(t, ts, http.MethodPost, "/api/v1/exchanges/testnet/credentials", map[string]string{
			"api_key":    "integration-api-key-0123456789abcdef0123456789abcdef01234567",
			"api_secret": "integration-api-secret-0123456789abcdef0123456789abcdef012345",
		})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Status = %d, want 200", resp.StatusCode)
		}

		// Keys must be stored encrypted, never as plaintext
		profile, err := ts.ProfileRepo.GetByEmail(testEmail)
		if err != nil {
			t.Fatalf("GetByEmail() error = %v", err)
		}
		if profile.TestnetAPIKey == "" {
			t.Error("TestnetAPIKey not persisted")
		}
		if strings.Contains(profile.TestnetAPIKey, "integration-api-key") {
			t.Error("API key stored in plaintext")
		}
	})

	t.Run("RejectedCredentials", func(t *testing.T) {
		ts.FakeBinance.SetRejectAccount(true)
		defer ts.FakeBinance.SetRejectAccount(false)

		resp := doRequest(t, ts, http.MethodPost, "/api/v1/exchanges/testnet/credentials", map[string]string{
			"api_key":    "another-key-0123456789abcdef0123456789abcdef0123456789abcdef",
			"api_secret": "another-secret-0123456789abcdef0123456789abcdef0123456789ab",
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Status = %d, want 400", resp.StatusCode)
		}
		body := decodeBody(t, resp)
		if body["code"] != "no_credentials" {
			t.Errorf("Code = %v, want no_credentials", body["code"])
		}
	})

	t.Run("UnknownEnv", func(t *testing.T) {
		resp := doRequest(t, ts, http.MethodPost, "/api/v1/exchanges/staging/credentials", map[string]string{
			"api_key":    "key",
			"api_secret": "secret",
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Status = %d, want 400", resp.StatusCode)
		}
		body := decodeBody(t, resp)
		if body["code"] != "unsupported_env" {
			t.Errorf("Code = %v, want unsupported_env", body["code"])
		}
	})

	t.Run("ListExchanges", func(t *testing.T) {
		resp := doRequest(t, ts, http.MethodGet, "/api/v1/exchanges", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Status = %d, want 200", resp.StatusCode)
		}
		body := decodeBody(t, resp)

		exchanges, ok := body["exchanges"].([]interface{})
		if !ok || len(exchanges) != 1 {
			t.Fatalf("Exchanges = %v, want exactly one configured", body["exchanges"])
		}
		first := exchanges[0].(map[string]interface{})
		if first["id"] != "binance:testnet" {
			t.Errorf("ID = %v, want binance:testnet", first["id"])
		}
		// Selector must have healed the empty active value
		if body["active"] != "binance:testnet" {
			t.Errorf("Active = %v, want binance:testnet", body["active"])
		}
	})
}

func TestActiveExchange(t *testing.T) {
	ts := SetupTestServer(t)
	if ts == nil {
		return
	}
	defer ts.Cleanup()

	setupCredentials(t, ts)

	t.Run("SetActive", func(t *testing.T) {
		resp := doRequest(t, ts, http.MethodPut, "/api/v1/exchanges/active", map[string]string{"id": "binance:testnet"})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Status = %d, want 200", resp.StatusCode)
		}
		body := decodeBody(t, resp)
		if body["active"] != "binance:testnet" {
			t.Errorf("Active = %v, want binance:testnet", body["active"])
		}
	})

	t.Run("SetActiveUnconfigured", func(t *testing.T) {
		resp := doRequest(t, ts, http.MethodPut, "/api/v1/exchanges/active", map[string]string{"id": "binance:mainnet"})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Status = %d, want 400", resp.StatusCode)
		}
		body := decodeBody(t, resp)
		if body["code"] != "invalid_exchange_id" {
			t.Errorf("Code = %v, want invalid_exchange_id", body["code"])
		}
	})

	t.Run("GetActive", func(t *testing.T) {
		resp := doRequest(t, ts, http.MethodGet, "/api/v1/exchanges/active", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Status = %d, want 200", resp.StatusCode)
		}
		body := decodeBody(t, resp)
		if body["active"] != "binance:testnet" {
			t.Errorf("Active = %v, want binance:testnet", body["active"])
		}
	})
}

func TestBalancesAndTicker(t *testing.T) {
	ts := SetupTestServer(t)
	if ts == nil {
		return
	}
	defer ts.Cleanup()

	setupCredentials(t, ts)

	t.Run("Balances", func(t *testing.T) {
		resp := doRequest(t, ts, http.MethodGet, "/api/v1/account/balances", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Status = %d, want 200", resp.StatusCode)
		}
		body := decodeBody(t, resp)

		balances, ok := body["balances"].([]interface{})
		if !ok || len(balances) != 2 {
			t.Fatalf("Balances = %v, want BTC and USDT", body["balances"])
		}
		first := balances[0].(map[string]interface{})
		if first["asset"] != "BTC" {
			t.Errorf("Asset = %v, want BTC", first["asset"])
		}
		if first["free"] != 0.5 {
			t.Errorf("Free = %v, want 0.5", first["free"])
		}
	})

	t.Run("Ticker", func(t *testing.T) {
		resp := doRequest(t, ts, http.MethodGet, "/api/v1/ticker?symbol=btcusdt", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Status = %d, want 200", resp.StatusCode)
		}
		body := decodeBody(t, resp)
		if body["symbol"] != "BTCUSDT" {
			t.Errorf("Symbol = %v, want BTCUSDT (normalized)", body["symbol"])
		}
		if body["price"] != "65000.10" {
			t.Errorf("Price = %v, want 65000.10", body["price"])
		}
	})

	t.Run("TickerMissingSymbol", func(t *testing.T) {
		resp := doRequest(t, ts, http.MethodGet, "/api/v1/ticker", nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Status = %d, want 400", resp.StatusCode)
		}
		resp.Body.Close()
	})
}

func TestStreamLifecycle(t *testing.T) {
	ts := SetupTestServer(t)
	if ts == nil {
		return
	}
	defer ts.Cleanup()

	setupCredentials(t, ts)

	t.Run("Start", func(t *testing.T) {
		resp := doRequest(t, ts, http.MethodPost, "/api/v1/stream/start", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Status = %d, want 200", resp.StatusCode)
		}
		body := decodeBody(t, resp)
		if body["listen_key"] != "integration-listen-key" {
			t.Errorf("ListenKey = %v, want integration-listen-key", body["listen_key"])
		}
		if body["env"] != "testnet" {
			t.Errorf("Env = %v, want testnet", body["env"])
		}

		profile, err := ts.ProfileRepo.GetByEmail(testEmail)
		if err != nil {
			t.Fatalf("GetByEmail() error = %v", err)
		}
		if profile.TestnetListenKey != "integration-listen-key" {
			t.Errorf("Persisted listen key = %q", profile.TestnetListenKey)
		}
	})

	t.Run("Keepalive", func(t *testing.T) {
		resp := doRequest(t, ts, http.MethodPost, "/api/v1/stream/keepalive", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Status = %d, want 200", resp.StatusCode)
		}
		resp.Body.Close()

		// Upstream must have seen the PUT
		var sawPut bool
		for _, r := range ts.FakeBinance.Requests() {
			if strings.HasPrefix(r, "PUT ") {
				sawPut = true
			}
		}
		if !sawPut {
			t.Error("Expected keepalive PUT to reach upstream")
		}
	})

	t.Run("MainnetRejected", func(t *testing.T) {
		resp := doRequest(t, ts, http.MethodPost, "/api/v1/stream/start", map[string]string{"env": "mainnet"})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Status = %d, want 400", resp.StatusCode)
		}
		resp.Body.Close()
	})
}

// setupCredentials creates a profile with verified testnet credentials
func setupCredentials(t *testing.T, ts *TestServer) {
	t.Helper()

	resp := doRequest(t, ts, http.MethodPost, "/api/v1/profile", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("UpsertProfile status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doRequest(t, ts, http.MethodPost, "/api/v1/exchanges/testnet/credentials", map[string]string{
		"api_key":    fmt.Sprintf("setup-key-%060d", 1),
		"api_secret": fmt.Sprintf("setup-secret-%060d", 2),
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("SetCredentials status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}
