package handler_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/srgjo27/escrow_booking/internal/adapter/handler"
	"github.com/srgjo27/escrow_booking/internal/adapter/repository/memory"
	"github.com/srgjo27/escrow_booking/internal/core/domain"
	"github.com/srgjo27/escrow_booking/internal/core/ports/mocks"
	"github.com/srgjo27/escrow_booking/internal/core/services"
	"github.com/srgjo27/escrow_booking/internal/platform/clock"
	"github.com/srgjo27/escrow_booking/internal/platform/seed"
)

const (
	ownerAddr = "rPT1Sjq2YGrBMTttX4GZHjKu9dyfzbpAYe"
	payTo     = "rf1BiGeXwwQoi8Z2ueFYTEXSwuJYfV2Jpn"
)

var txHash = strings.Repeat("CD", 32)

type server struct {
	handler http.Handler
	clock   *clock.Manual
	ledger  *mocks.LedgerClient
	signer  *mocks.Signer
}

func newServer(t *testing.T) *server {
	t.Helper()
	s := &server{
		clock:  clock.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		ledger: mocks.NewLedgerClient(t),
		signer: mocks.NewSigner(t),
	}

	directory := services.NewDirectoryService(memory.NewEntityRepository(seed.Default()), nil, nil)
	holds := services.NewHoldService(memory.NewHoldRepository(), directory, s.clock, nil)
	escrow := services.NewEscrowService(s.ledger, s.signer, holds, s.clock, services.EscrowConfig{
		Endpoint: "wss://s.altnet.rippletest.net:51233",
	}, nil)
	confirm := services.NewConfirmationService(holds, s.ledger, escrow, nil, time.Second, nil)
	t.Cleanup(confirm.Wait)

	s.handler = handler.NewRouter(
		handler.RouterConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		handler.NewDirectoryHandler(directory),
		handler.NewBookingHandler(holds, confirm),
		handler.NewEscrowHandler(escrow),
	)
	return s
}

func (s *server) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *server) book(t *testing.T, eventID string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/book", `{"eventId":"`+eventID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode(t, rec)["id"].(string)
}

func TestHealth(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "req-123")
	rec := httptest.NewRecorder()

	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-Id"))
}

func TestListEvents(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/events", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var out []map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 4)
	assert.Equal(t, map[string]string{"id": "hosp_1", "name": "St. Marys", "category": "Hospital"}, out[0])
}

func TestAvailabilityRoutes(t *testing.T) {
	s := newServer(t)

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedSubstr string
	}{
		{"by id", "/events/rest_2/availability", http.StatusOK, `"availableSeats":10`},
		{"by id full", "/events/hosp_2/availability", http.StatusOK, `"No seats available"`},
		{"by id unknown", "/events/nope/availability", http.StatusNotFound, `"error":"Event not found"`},
		{"by name", "/availability?name=%20pasta%20PALACE", http.StatusOK, `"payoutAddress":"` + payTo + `"`},
		{"by name fallback", "/availability?name=Jazz%20Night", http.StatusOK, `"note":"` + services.FallbackNote + `"`},
		{"by name missing", "/availability", http.StatusBadRequest, `"field":"name"`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, tc.path, "")

			assert.Equal(t, tc.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.expectedSubstr)
		})
	}
}

func TestHoldSeatRoute(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/events/rest_1/hold-seat", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Seat held successfully", body["message"])
	assert.Equal(t, float64(1), body["remaining"])

	rec = s.do(t, http.MethodPost, "/events/rest_1/hold-seat", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/events/rest_1/hold-seat", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No seats left to hold", decode(t, rec)["error"])

	rec = s.do(t, http.MethodPost, "/events/nope/hold-seat", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBookAndConfirm(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/api/book", `{"eventId":"TABLE_5"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	hold := decode(t, rec)
	assert.Equal(t, "HELD", hold["status"])
	assert.Equal(t, false, hold["seatReserved"])
	assert.Equal(t, float64(s.clock.Now().Add(10*time.Minute).UnixMilli()), hold["holdExpiresAt"])

	s.ledger.On("Transaction", mock.Anything, txHash).
		Return(domain.LedgerResult{Hash: txHash, Validated: true, ResultCode: domain.ResultSuccess}, nil).Once()

	rec = s.do(t, http.MethodPost, "/api/confirm", `{"bookingId":"`+hold["id"].(string)+`","txHash":"`+txHash+`"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, services.MessageConfirmed, body["message"])
	assert.Equal(t, "CONFIRMED", body["status"])
}

func TestConfirmTooLate(t *testing.T) {
	s := newServer(t)
	id := s.book(t, "rest_2")

	s.clock.Advance(10 * time.Minute)
	rec := s.do(t, http.MethodPost, "/api/confirm", `{"bookingId":"`+id+`","txHash":"`+txHash+`"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, services.MessageExpired, body["message"])
	assert.Equal(t, "EXPIRED", body["status"])

	rec = s.do(t, http.MethodGet, "/events/rest_2/availability", "")
	assert.Contains(t, rec.Body.String(), `"availableSeats":10`)
}

func TestConfirmPending(t *testing.T) {
	s := newServer(t)
	id := s.book(t, "rest_2")

	s.ledger.On("Transaction", mock.Anything, txHash).Return(domain.LedgerResult{}, domain.ErrTxNotFound).Once()

	rec := s.do(t, http.MethodPost, "/api/confirm", `{"bookingId":"`+id+`","txHash":"`+txHash+`"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["retryable"])
	assert.Equal(t, "HELD", body["status"])
}

func TestConfirmErrors(t *testing.T) {
	s := newServer(t)

	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{"invalid json", `{"bookingId":`, http.StatusBadRequest},
		{"missing hash", `{"bookingId":"x"}`, http.StatusBadRequest},
		{"unknown booking", `{"bookingId":"x","txHash":"` + txHash + `"}`, http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/confirm", tc.body)
			assert.Equal(t, tc.expectedStatus, rec.Code)
			body := decode(t, rec)
			assert.NotEmpty(t, body["message"])
			assert.Equal(t, body["error"], body["message"])
		})
	}
}

func TestConfirmLedgerFailureCarriesMessage(t *testing.T) {
	s := newServer(t)
	id := s.book(t, "rest_2")

	s.ledger.On("Transaction", mock.Anything, txHash).Return(domain.LedgerResult{}, errors.New("websocket: close 1006")).Once()

	rec := s.do(t, http.MethodPost, "/api/confirm", `{"bookingId":"`+id+`","txHash":"`+txHash+`"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Contains(t, body["message"], "websocket: close 1006")
	assert.Equal(t, body["error"], body["message"])
}

func TestBookErrorsOmitMessage(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/api/book", `{"eventId":""}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, decode(t, rec), "message")
}

func TestBookingLookupAndCancel(t *testing.T) {
	s := newServer(t)
	id := s.book(t, "rest_2")

	rec := s.do(t, http.MethodGet, "/api/bookings/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["seatReserved"])

	rec = s.do(t, http.MethodPost, "/api/cancel", `{"bookingId":"`+id+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CANCELLED", decode(t, rec)["status"])

	rec = s.do(t, http.MethodPost, "/api/cancel", `{"bookingId":"`+id+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/bookings/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBookValidation(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/api/book", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "eventId", decode(t, rec)["field"])

	rec = s.do(t, http.MethodPost, "/api/book", `{"eventId":"hosp_2"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEscrowHold(t *testing.T) {
	s := newServer(t)

	t.Run("missing cancel after", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/escrow/hold",
			`{"ownerSeed":"sSeed","destination":"`+payTo+`","amount":"1000000"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "cancelAfterSecondsFromNow", body["field"])
		assert.Contains(t, body["error"], "cancelAfterSecondsFromNow")
	})

	t.Run("bad amount shape", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/escrow/hold",
			`{"ownerSeed":"sSeed","destination":"`+payTo+`","amount":{"value":"1"},"cancelAfterSecondsFromNow":600}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "amount", decode(t, rec)["field"])
	})

	t.Run("created", func(t *testing.T) {
		id := s.book(t, "rest_2")

		s.signer.On("Address", mock.Anything, "sSeed").Return(ownerAddr, nil).Once()
		s.ledger.On("CurrentLedgerIndex", mock.Anything).Return(uint32(50), nil).Once()
		s.signer.On("Sign", mock.Anything, mock.AnythingOfType("domain.LedgerTx"), "sSeed").
			Return(domain.SignedTx{Blob: "BLOB", Hash: txHash, Sequence: 77}, nil).Once()
		s.ledger.On("Submit", mock.Anything, "BLOB").
			Return(domain.SubmitResult{EngineResult: domain.ResultSuccess, Hash: txHash}, nil).Once()
		s.ledger.On("WaitForValidation", mock.Anything, txHash, uint32(70)).
			Return(domain.LedgerResult{Hash: txHash, Validated: true, ResultCode: domain.ResultSuccess}, nil).Once()

		rec := s.do(t, http.MethodPost, "/escrow/hold",
			`{"ownerSeed":"sSeed","destination":"`+payTo+`","amount":"1000000","cancelAfterSecondsFromNow":600,"bookingId":"`+id+`"}`)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		body := decode(t, rec)
		assert.Equal(t, map[string]any{"owner": ownerAddr, "offerSequence": float64(77)}, body["pointer"])
		result := body["result"].(map[string]any)
		assert.Equal(t, domain.ResultSuccess, result["resultCode"])
		assert.Equal(t, "https://testnet.xrpl.org/transactions/"+txHash, result["explorerUrl"])

		rec = s.do(t, http.MethodGet, "/api/bookings/"+id, "")
		assert.Equal(t, map[string]any{"owner": ownerAddr, "offerSequence": float64(77)}, decode(t, rec)["escrow"])
	})
}

func TestEscrowStatusAndList(t *testing.T) {
	s := newServer(t)

	s.ledger.On("LedgerEntryEscrow", mock.Anything, ownerAddr, uint32(42)).Return(nil, errors.New("entryNotFound")).Once()
	rec := s.do(t, http.MethodGet, "/escrow/status/"+ownerAddr+"/42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "NOT_HELD", body["status"])
	assert.NotContains(t, body, "escrow")

	rec = s.do(t, http.MethodGet, "/escrow/status/"+ownerAddr+"/x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.ledger.On("AccountObjects", mock.Anything, ownerAddr).Return([]json.RawMessage{
		json.RawMessage(`{"LedgerEntryType":"Escrow","index":"E1","Account":"` + ownerAddr + `","Destination":"` + payTo + `","Amount":"25"}`),
	}, nil).Once()
	rec = s.do(t, http.MethodGet, "/escrow/"+ownerAddr, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, ownerAddr, body["owner"])
	assert.Len(t, body["escrows"], 1)
}

func TestEscrowRefundWithoutOperator(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/escrow/refund", `{"owner":"`+ownerAddr+`","offerSequence":42}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "operatorSeed", decode(t, rec)["field"])
}

func TestEscrowReleaseSurfacesLedgerCode(t *testing.T) {
	s := newServer(t)

	s.signer.On("Address", mock.Anything, "sFinisher").Return(ownerAddr, nil).Once()
	s.ledger.On("CurrentLedgerIndex", mock.Anything).Return(uint32(50), nil).Once()
	s.signer.On("Sign", mock.Anything, mock.AnythingOfType("domain.LedgerTx"), "sFinisher").
		Return(domain.SignedTx{Blob: "BLOB", Hash: txHash, Sequence: 3}, nil).Once()
	s.ledger.On("Submit", mock.Anything, "BLOB").
		Return(domain.SubmitResult{EngineResult: domain.ResultSuccess, Hash: txHash}, nil).Once()
	s.ledger.On("WaitForValidation", mock.Anything, txHash, uint32(70)).
		Return(domain.LedgerResult{Hash: txHash, Validated: true, ResultCode: "tecNO_PERMISSION"}, nil).Once()

	rec := s.do(t, http.MethodPost, "/escrow/release", `{"owner":"`+ownerAddr+`","offerSequence":"42","finisherSeed":"sFinisher"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "tecNO_PERMISSION", decode(t, rec)["code"])
}

func TestCORS(t *testing.T) {
	s := newServer(t)

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/book", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		return rec
	}

	rec := preflight("http://localhost:5173")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = preflight("https://evil.example")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
