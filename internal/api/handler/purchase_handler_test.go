package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/course-token-wallet/internal/domain/ledger"
	"github.com/course-token-wallet/internal/domain/purchase"
	"github.com/course-token-wallet/internal/domain/wallet"
	"github.com/course-token-wallet/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func purchaseRequestBody(t *testing.T, accountID, itemID uuid.UUID, key string) *bytes.Buffer {
	t.Helper()
	jsonBody, err := json.Marshal(CreatePurchaseRequest{
		AccountID:      accountID.String(),
		ItemID:         itemID.String(),
		IdempotencyKey: key,
	})
	assert.NoError(t, err)
	return bytes.NewBuffer(jsonBody)
}

func TestPurchaseHandler_Create(t *testing.T) {
	accID := uuid.New()
	itemID := uuid.New()

	t.Run("FreshPurchaseReturns201", func(t *testing.T) {
		purchaseSvc := new(MockPurchaseService)
		handler := NewPurchaseHandler(newTestLogger(), purchaseSvc)

		rec := purchase.NewRecord(accID, itemID, 100, "key-1", purchase.StatusCompleted)
		entry := ledger.NewEntry(accID, -100, ledger.KindPurchase, "purchase: intro to Go")
		result := &service.PurchaseResult{Record: rec, Entry: entry, NewBalance: 0}
		purchaseSvc.On("Purchase", mock.Anything, accID, itemID, "key-1").Return(result, nil)

		router := setupTestRouter()
		router.POST("/purchases", handler.Create)

		req, _ := http.NewRequest(http.MethodPost, "/purchases", purchaseRequestBody(t, accID, itemID, "key-1"))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		resp := decodeData[PurchaseResponse](t, rr.Body.Bytes())
		assert.Equal(t, rec.ID.String(), resp.ID)
		assert.Equal(t, int64(100), resp.PricePaid)
		assert.False(t, resp.AlreadyOwned)
		assert.NotNil(t, resp.NewBalance)
		assert.Equal(t, int64(0), *resp.NewBalance)
	})

	t.Run("AlreadyOwnedReturns200", func(t *testing.T) {
		purchaseSvc := new(MockPurchaseService)
		handler := NewPurchaseHandler(newTestLogger(), purchaseSvc)

		rec := purchase.NewRecord(accID, itemID, 100, "key-0", purchase.StatusCompleted)
		result := &service.PurchaseResult{Record: rec, AlreadyOwned: true}
		purchaseSvc.On("Purchase", mock.Anything, accID, itemID, "key-1").Return(result, nil)

		router := setupTestRouter()
		router.POST("/purchases", handler.Create)

		req, _ := http.NewRequest(http.MethodPost, "/purchases", purchaseRequestBody(t, accID, itemID, "key-1"))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := decodeData[PurchaseResponse](t, rr.Body.Bytes())
		assert.True(t, resp.AlreadyOwned)
		assert.Nil(t, resp.NewBalance)
	})

	t.Run("InsufficientFundsReturns422", func(t *testing.T) {
		purchaseSvc := new(MockPurchaseService)
		handler := NewPurchaseHandler(newTestLogger(), purchaseSvc)

		purchaseSvc.On("Purchase", mock.Anything, accID, itemID, "key-1").
			Return(nil, wallet.ErrInsufficientFunds{AccountID: accID, Balance: 40, Requested: 100})

		router := setupTestRouter()
		router.POST("/purchases", handler.Create)

		req, _ := http.NewRequest(http.MethodPost, "/purchases", purchaseRequestBody(t, accID, itemID, "key-1"))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

		var topLevel Response
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &topLevel))
		assert.NotNil(t, topLevel.Error)
		assert.Equal(t, "INSUFFICIENT_FUNDS", topLevel.Error.Code)
	})

	t.Run("MissingFieldsReturn400", func(t *testing.T) {
		handler := NewPurchaseHandler(newTestLogger(), new(MockPurchaseService))

		router := setupTestRouter()
		router.POST("/purchases", handler.Create)

		req, _ := http.NewRequest(http.MethodPost, "/purchases", bytes.NewBufferString(`{"account_id": ""}`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestPurchaseHandler_Refund(t *testing.T) {
	purchaseID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		purchaseSvc := new(MockPurchaseService)
		handler := NewPurchaseHandler(newTestLogger(), purchaseSvc)

		entry := ledger.NewEntry(uuid.New(), 80, ledger.KindRefund, "refund of purchase "+purchaseID.String())
		entry.RelatedPurchaseID = &purchaseID
		purchaseSvc.On("Refund", mock.Anything, purchaseID).Return(entry, nil)

		router := setupTestRouter()
		router.POST("/purchases/:id/refund", handler.Refund)

		req, _ := http.NewRequest(http.MethodPost, "/purchases/"+purchaseID.String()+"/refund", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := decodeData[RefundResponse](t, rr.Body.Bytes())
		assert.Equal(t, int64(80), resp.Entry.Amount)
		assert.Equal(t, purchaseID.String(), resp.Entry.RelatedPurchaseID)
	})

	t.Run("AlreadyRefundedReturns409", func(t *testing.T) {
		purchaseSvc := new(MockPurchaseService)
		handler := NewPurchaseHandler(newTestLogger(), purchaseSvc)

		purchaseSvc.On("Refund", mock.Anything, purchaseID).
			Return(nil, purchase.ErrAlreadyRefunded{PurchaseID: purchaseID})

		router := setupTestRouter()
		router.POST("/purchases/:id/refund", handler.Refund)

		req, _ := http.NewRequest(http.MethodPost, "/purchases/"+purchaseID.String()+"/refund", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("UnknownPurchaseReturns404", func(t *testing.T) {
		purchaseSvc := new(MockPurchaseService)
		handler := NewPurchaseHandler(newTestLogger(), purchaseSvc)

		purchaseSvc.On("Refund", mock.Anything, purchaseID).
			Return(nil, purchase.ErrRecordNotFound{PurchaseID: purchaseID})

		router := setupTestRouter()
		router.POST("/purchases/:id/refund", handler.Refund)

		req, _ := http.NewRequest(http.MethodPost, "/purchases/"+purchaseID.String()+"/refund", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
