// settlement/http.go
package settlement

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wfunc/fishserver/logger"
)

// apiResponse is the envelope every bridge endpoint answers with.
type apiResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// RegisterRoutes mounts the bridge endpoints on a mux. The deposit and
// withdraw routes are the surface the platform calls; check and balance
// exist for reconciliation.
func (b *Bridge) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/game/v1/transaction/deposit", b.handleDeposit)
	mux.HandleFunc("/api/game/v1/transaction/withdraw", b.handleWithdraw)
	mux.HandleFunc("/api/game/v1/transaction/check", b.handleCheck)
	mux.HandleFunc("/api/game/v1/balance", b.handleBalance)
}

func (b *Bridge) handleDeposit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, apiResponse{Code: 405, Message: "method not allowed"})
		return
	}

	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Code: 400, Message: "invalid payload"})
		return
	}

	result, err := b.Deposit(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Code: 200, Message: "SUCCESS", Data: result})
}

func (b *Bridge) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, apiResponse{Code: 405, Message: "method not allowed"})
		return
	}

	var req WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Code: 400, Message: "invalid payload"})
		return
	}

	result, err := b.Withdraw(r.Context(), &req)
	if err != nil {
		// A compensated saga still reports its order so the caller can
		// reconcile against the FAILED row.
		if result != nil {
			writeJSON(w, http.StatusBadGateway, apiResponse{Code: 502, Message: err.Error(), Data: result})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Code: 200, Message: "SUCCESS", Data: result})
}

func (b *Bridge) handleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, apiResponse{Code: 405, Message: "method not allowed"})
		return
	}

	var req struct {
		OrderID string `json:"order_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Code: 400, Message: "invalid payload"})
		return
	}

	result, err := b.Check(req.OrderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Code: 200, Message: "SUCCESS", Data: result})
}

func (b *Bridge) handleBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, apiResponse{Code: 405, Message: "method not allowed"})
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Code: 400, Message: "user_id required"})
		return
	}

	info, err := b.Balance(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Code: 200, Message: "SUCCESS", Data: info})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidSignature):
		writeJSON(w, http.StatusUnauthorized, apiResponse{Code: 401, Message: "Invalid Signature"})
	case errors.Is(err, ErrUnknownOrder):
		writeJSON(w, http.StatusNotFound, apiResponse{Code: 404, Message: "Order Not Found"})
	case errors.Is(err, ErrOrderMismatch):
		writeJSON(w, http.StatusConflict, apiResponse{Code: 409, Message: "Order Mismatch"})
	case errors.Is(err, ErrInvalidAmount):
		writeJSON(w, http.StatusBadRequest, apiResponse{Code: 400, Message: "Invalid parameters"})
	case errors.Is(err, ErrRetainFloor):
		writeJSON(w, http.StatusBadRequest, apiResponse{Code: 400, Message: "Insufficient balance"})
	default:
		writeJSON(w, http.StatusInternalServerError, apiResponse{Code: 500, Message: "Internal Error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Log.Errorw("write response failed", "error", err)
	}
}
