package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	vestingengine "tokenvest/contexts/token-economics/vesting-engine"
	vestinghttp "tokenvest/contexts/token-economics/vesting-engine/transport/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const createAccountBody = `{
	"token_mint": "MINT",
	"total_deposited": "1000000",
	"decimals": 6,
	"beneficiaries": [{
		"identity": "bob",
		"allocated_tokens": "1000000",
		"initial_unlock_percent": "10",
		"round_count": 10,
		"round_span": 10000
	}]
}`

var testNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts Options) (*Server, vestingengine.Module) {
	t.Helper()
	module := vestingengine.NewInMemoryModule(nil)
	module.Store.SetNow(testNow)
	require.NoError(t, module.Store.Credit("wallet:alice", 2_000_000_000_000))
	return New(module, nil, ":0", opts), module
}

func serve(server *Server, method string, path string, userID string, idempotencyKey string, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) vestinghttp.ErrorResponse {
	t.Helper()
	var resp vestinghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return resp
}

func createAccount(t *testing.T, server *Server) string {
	t.Helper()
	rr := serve(server, http.MethodPost, "/v1/vesting/accounts", "alice", "idem-create-1", createAccountBody)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp vestinghttp.CreateAccountResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Item.AccountID)
	return resp.Item.AccountID
}

func TestCreateAccountRequiresUser(t *testing.T) {
	server, _ := newTestServer(t, Options{})
	rr := serve(server, http.MethodPost, "/v1/vesting/accounts", "", "idem-1", createAccountBody)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCreateAccountRequiresIdempotencyKey(t *testing.T) {
	server, _ := newTestServer(t, Options{})
	rr := serve(server, http.MethodPost, "/v1/vesting/accounts", "alice", "", createAccountBody)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "idempotency_key_required", decodeError(t, rr).Code)
}

func TestCreateAccountRejectsInvalidConfiguration(t *testing.T) {
	server, _ := newTestServer(t, Options{})
	body := `{"token_mint":"MINT","total_deposited":"10","decimals":0,
		"beneficiaries":[{"identity":"bob","allocated_tokens":"10","round_count":0,"round_span":10}]}`

	rr := serve(server, http.MethodPost, "/v1/vesting/accounts", "alice", "idem-bad", body)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
	assert.Equal(t, "invalid_configuration", decodeError(t, rr).Code)
}

func TestCreateAccountRejectsMalformedAmount(t *testing.T) {
	server, _ := newTestServer(t, Options{})
	body := `{"token_mint":"MINT","total_deposited":"-1","beneficiaries":[]}`

	rr := serve(server, http.MethodPost, "/v1/vesting/accounts", "alice", "idem-bad-amount", body)
	require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
	assert.Equal(t, "invalid_request", decodeError(t, rr).Code)
}

func TestCreateAccountRejectsForeignSourceWallet(t *testing.T) {
	server, module := newTestServer(t, Options{})
	accountID := createAccount(t, server)
	account, err := module.Store.GetAccount(context.Background(), accountID)
	require.NoError(t, err)

	body := `{"token_mint":"MINT","total_deposited":"1","decimals":0,"source_wallet":"` + account.CustodyWallet + `",
		"beneficiaries":[{"identity":"mallory","allocated_tokens":"1","round_count":1}]}`
	rr := serve(server, http.MethodPost, "/v1/vesting/accounts", "mallory", "idem-drain", body)
	require.Equal(t, http.StatusForbidden, rr.Code, rr.Body.String())
	assert.Equal(t, "invalid_sender", decodeError(t, rr).Code)

	custody, err := module.Store.Balance(context.Background(), account.CustodyWallet)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000_000), custody)
}

func TestCreateAccountReplayReturnsOK(t *testing.T) {
	server, _ := newTestServer(t, Options{})
	accountID := createAccount(t, server)

	rr := serve(server, http.MethodPost, "/v1/vesting/accounts", "alice", "idem-create-1", createAccountBody)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp vestinghttp.CreateAccountResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Replayed)
	assert.Equal(t, accountID, resp.Item.AccountID)
}

func TestVestingLifecycleOverHTTP(t *testing.T) {
	server, module := newTestServer(t, Options{})
	accountID := createAccount(t, server)
	base := "/v1/vesting/accounts/" + accountID

	rr := serve(server, http.MethodPost, base+"/claim", "bob", "claim-early", "")
	require.Equal(t, http.StatusConflict, rr.Code, rr.Body.String())
	assert.Equal(t, "not_active", decodeError(t, rr).Code)

	rr = serve(server, http.MethodPost, base+"/release", "bob", "", "")
	require.Equal(t, http.StatusForbidden, rr.Code, rr.Body.String())

	rr = serve(server, http.MethodPost, base+"/release", "alice", "", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = serve(server, http.MethodPost, base+"/release", "alice", "", "")
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "already_active", decodeError(t, rr).Code)

	rr = serve(server, http.MethodPost, base+"/claim", "bob", "claim-1", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var claim vestinghttp.ClaimResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &claim))
	assert.Equal(t, "100000", claim.Receipt.Amount)
	assert.Equal(t, "100000000000", claim.Receipt.TransferAmount)
	assert.Equal(t, "wallet:bob", claim.Receipt.Destination)

	rr = serve(server, http.MethodPost, base+"/claim", "bob", "claim-2", "")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
	assert.Equal(t, "claim_not_allowed", decodeError(t, rr).Code)

	module.Store.SetNow(testNow.Add(5 * time.Hour))
	rr = serve(server, http.MethodPost, base+"/claim", "bob", "claim-3", `{"destination":"wallet:bob-cold"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &claim))
	assert.Equal(t, "wallet:bob-cold", claim.Receipt.Destination)
	assert.Equal(t, "1000000", claim.Receipt.ClaimedTotal)

	rr = serve(server, http.MethodGet, base+"/beneficiaries/bob/schedule", "", "", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var schedule vestinghttp.ScheduleResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &schedule))
	assert.Len(t, schedule.Entries, 11)
	assert.Equal(t, "1000000", schedule.Claimed)
	assert.Equal(t, "0", schedule.Claimable)

	rr = serve(server, http.MethodGet, base+"/beneficiaries/bob/claims", "", "", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var receipts vestinghttp.ListReceiptsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &receipts))
	assert.Len(t, receipts.Items, 2)
}

func TestClaimUnknownBeneficiaryReturnsNotFound(t *testing.T) {
	server, _ := newTestServer(t, Options{})
	accountID := createAccount(t, server)
	base := "/v1/vesting/accounts/" + accountID
	require.Equal(t, http.StatusOK, serve(server, http.MethodPost, base+"/release", "alice", "", "").Code)

	rr := serve(server, http.MethodPost, base+"/claim", "carol", "claim-carol", "")
	require.Equal(t, http.StatusNotFound, rr.Code, rr.Body.String())
}

func TestConfirmRoundOverHTTP(t *testing.T) {
	server, _ := newTestServer(t, Options{})
	accountID := createAccount(t, server)
	path := "/v1/vesting/accounts/" + accountID + "/beneficiaries/bob/confirm"

	rr := serve(server, http.MethodPost, path, "bob", "", `{"round":3}`)
	require.Equal(t, http.StatusForbidden, rr.Code, rr.Body.String())

	rr = serve(server, http.MethodPost, path, "alice", "", `{"round":11}`)
	require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())

	rr = serve(server, http.MethodPost, path, "alice", "", `{"round":3}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp vestinghttp.GetAccountResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Item.Beneficiaries, 1)
	assert.Equal(t, uint32(3), resp.Item.Beneficiaries[0].ConfirmedRound)
}

func TestGetAccountNotFound(t *testing.T) {
	server, _ := newTestServer(t, Options{})
	rr := serve(server, http.MethodGet, "/v1/vesting/accounts/missing", "", "", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", decodeError(t, rr).Code)
}

func TestClaimIsRateLimitedPerIdentity(t *testing.T) {
	server, _ := newTestServer(t, Options{ClaimsPerMinute: 1})

	rr := serve(server, http.MethodPost, "/v1/vesting/accounts/missing/claim", "bob", "claim-1", "")
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = serve(server, http.MethodPost, "/v1/vesting/accounts/missing/claim", "bob", "claim-2", "")
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "rate_limited", decodeError(t, rr).Code)

	rr = serve(server, http.MethodPost, "/v1/vesting/accounts/missing/claim", "carol", "claim-3", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t, Options{})
	rr := serve(server, http.MethodGet, "/healthz", "", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}
