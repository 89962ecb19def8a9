package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/whaleden-mjtd/maitme-contracts-staking/config"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/tiers"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/vault"
)

const (
	testAdmin = "0xadadadadadadadadadadadadadadadadadadadad"
	testUser  = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	return newTestServerWithConfig(t, config.APIConfig{
		ListenAddr: ":0",
		RateLimit:  1000,
		RateBurst:  1000,
	})
}

func newTestServerWithConfig(t *testing.T, apiCfg config.APIConfig) *Server {
	t.Helper()

	rates := [tiers.TierCount]int64{500, 700, 900, 1100, 1300, 1500}
	var bands [tiers.TierCount]tiers.Band
	for i := range bands {
		bands[i] = tiers.Band{
			Start: int64(i) * 180 * 24 * 60 * 60,
			End:   int64(i+1) * 180 * 24 * 60 * 60,
			Rate:  rates[i],
		}
	}
	bands[tiers.TierCount-1].End = 0

	schedule, err := tiers.NewSchedule(bands)
	require.NoError(t, err)

	v, err := vault.NewVault(config.VaultConfig{
		MinDeposit:             1000,
		MaxPositionsPerAccount: 100,
		NoticePeriodSeconds:    7 * 24 * 60 * 60,
		MaxPendingWithdrawals:  10,
	}, schedule, vault.NopCustodian{},
		vault.WithAuthorizer(func(addr string) bool { return addr == testAdmin }),
	)
	require.NoError(t, err)

	return NewServer(v, apiCfg)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestStakeAndQueryEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.Handler(), "POST", "/api/v1/stake", map[string]interface{}{
		"address": testUser,
		"amount":  50_000,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var staked struct {
		PositionID uint64 `json:"position_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &staked))
	require.Equal(t, uint64(1), staked.PositionID)

	rec = doJSON(t, s.Handler(), "GET", "/api/v1/account/"+testUser+"/positions", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listed struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Equal(t, 1, listed.Count)

	rec = doJSON(t, s.Handler(), "GET", "/api/v1/position/1/tier", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s.Handler(), "GET", "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		TotalStaked int64 `json:"total_staked"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, int64(50_000), status.TotalStaked)
}

func TestRateLimitZeroDisablesLimiting(t *testing.T) {
	s := newTestServerWithConfig(t, config.APIConfig{
		ListenAddr: ":0",
		RateLimit:  0,
	})

	// with no limiter, every request goes through regardless of volume
	for i := 0; i < 50; i++ {
		rec := doJSON(t, s.Handler(), "GET", "/api/v1/health", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimitEnforced(t *testing.T) {
	s := newTestServerWithConfig(t, config.APIConfig{
		ListenAddr: ":0",
		RateLimit:  1,
		RateBurst:  1,
	})

	rec := doJSON(t, s.Handler(), "GET", "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s.Handler(), "GET", "/api/v1/health", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestDomainErrorMapping(t *testing.T) {
	s := newTestServer(t)

	// below the deposit floor
	rec := doJSON(t, s.Handler(), "POST", "/api/v1/stake", map[string]interface{}{
		"address": testUser,
		"amount":  1,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// unknown position
	rec = doJSON(t, s.Handler(), "GET", "/api/v1/position/99/reward", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// non-admin treasury deposit
	rec = doJSON(t, s.Handler(), "POST", "/api/v1/admin/treasury/deposit", map[string]interface{}{
		"caller": testUser,
		"amount": 1000,
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	// malformed body
	req := httptest.NewRequest("POST", "/api/v1/stake", bytes.NewReader([]byte("{")))
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWithdrawalEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.Handler(), "POST", "/api/v1/stake", map[string]interface{}{
		"address": testUser,
		"amount":  50_000,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s.Handler(), "POST", "/api/v1/withdrawals/request", map[string]interface{}{
		"address":     testUser,
		"position_id": 1,
		"amount":      50_000,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// notice period not elapsed
	rec = doJSON(t, s.Handler(), "POST", "/api/v1/withdrawals/execute", map[string]interface{}{
		"address":     testUser,
		"position_id": 1,
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, s.Handler(), "POST", "/api/v1/withdrawals/cancel", map[string]interface{}{
		"address":     testUser,
		"position_id": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s.Handler(), "GET", "/api/v1/account/"+testUser+"/withdrawals?active=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var withdrawals struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &withdrawals))
	require.Equal(t, 0, withdrawals.Count)
}
