package settlement

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wfunc/fishserver/ledger"
	"github.com/wfunc/fishserver/models"
)

func postJSON(t *testing.T, mux *http.ServeMux, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestDepositEndpoint(t *testing.T) {
	env := newBridgeEnv(t)
	env.seedPlayer("alice", 1000*ledger.Scale)
	env.seedPendingDeposit("D_http", "alice", 100*ledger.Scale)

	mux := http.NewServeMux()
	env.bridge.RegisterRoutes(mux)

	// Unknown order 404s, per the shared-ledger contract.
	rec := postJSON(t, mux, "/api/game/v1/transaction/deposit", signedDeposit("D_missing", "alice", 100))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown order status = %d, want 404", rec.Code)
	}

	// Bad signature 401s.
	bad := signedDeposit("D_http", "alice", 100)
	bad.Signature = "deadbeef"
	rec = postJSON(t, mux, "/api/game/v1/transaction/deposit", bad)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad signature status = %d, want 401", rec.Code)
	}

	// Valid deposit completes.
	rec = postJSON(t, mux, "/api/game/v1/transaction/deposit", signedDeposit("D_http", "alice", 100))
	if rec.Code != http.StatusOK {
		t.Fatalf("deposit status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Code int           `json:"code"`
		Data DepositResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != 200 || resp.Data.Status != models.StatusCompleted {
		t.Errorf("deposit response = %+v", resp)
	}
}

func TestWithdrawEndpointRetainFloor(t *testing.T) {
	env := newBridgeEnv(t)
	env.seedPlayer("alice", 700*ledger.Scale)

	mux := http.NewServeMux()
	env.bridge.RegisterRoutes(mux)

	rec := postJSON(t, mux, "/api/game/v1/transaction/withdraw", &WithdrawRequest{UserID: "alice", Amount: 400})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("floor violation status = %d, want 400", rec.Code)
	}
	if env.store.balance("alice") != 700*ledger.Scale {
		t.Error("rejected withdraw moved money")
	}
}

func TestBalanceEndpoint(t *testing.T) {
	env := newBridgeEnv(t)
	env.seedPlayer("alice", 250*ledger.Scale)

	mux := http.NewServeMux()
	env.bridge.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/game/v1/balance?user_id=alice", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Data BalanceInfo `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.Balance != 250 || resp.Data.Source != "database" {
		t.Errorf("balance response = %+v", resp.Data)
	}
}
