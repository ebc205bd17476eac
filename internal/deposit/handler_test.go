package deposit_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	gatewaytypes "github.com/frahmantamala/wallet-payments/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/wallet-payments/internal/deposit"
	"github.com/frahmantamala/wallet-payments/internal/pendingorder"
	"github.com/frahmantamala/wallet-payments/pkg/logger"
)

var _ = Describe("Deposit Handler", func() {
	var (
		backend *fakeBackend
		store   *pendingorder.Store
		router  *chi.Mux
	)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body == "" {
			req = httptest.NewRequest(method, path, nil)
		} else {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	BeforeEach(func() {
		backend = newFakeBackend()
		store = pendingorder.NewStore(pendingorder.NewMemoryKV(), logger.Discard())
		service := deposit.NewService(newGateways(backend.server.URL), store, nil, logger.Discard())
		handler := deposit.NewHandler(service, logger.Discard())

		router = chi.NewRouter()
		router.Route("/api/v1/deposits", handler.Routes)
	})

	AfterEach(func() {
		backend.server.Close()
	})

	It("starts a deposit and returns the payment url", func() {
		w := do(http.MethodPost, "/api/v1/deposits/a", `{"amount": 100}`)

		Expect(w.Code).To(Equal(http.StatusOK))
		var body map[string]any
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body["success"]).To(BeTrue())
		Expect(body["order_id"]).To(Equal("ORD1"))
	})

	It("redirects with 303 when asked to", func() {
		w := do(http.MethodPost, "/api/v1/deposits/gateway_a?redirect=true", `{"amount": 100}`)

		Expect(w.Code).To(Equal(http.StatusSeeOther))
		Expect(w.Header().Get("Location")).To(Equal("https://pay.example.com/checkout/ORD1"))
	})

	It("answers 422 with the flattened error for a bad amount", func() {
		w := do(http.MethodPost, "/api/v1/deposits/a", `{"amount": 0.5}`)

		Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
		Expect(w.Body.String()).To(ContainSubstring(`"error":"Invalid amount"`))
	})

	It("rejects a missing amount", func() {
		w := do(http.MethodPost, "/api/v1/deposits/b", `{}`)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("rejects an unknown gateway", func() {
		w := do(http.MethodPost, "/api/v1/deposits/zeta", `{"amount": 10}`)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring("INVALID_GATEWAY"))
	})

	It("reconciles on return", func() {
		Expect(store.Save(context.Background(), gatewaytypes.GatewayA, "ORD1", decimal.NewFromInt(100))).To(Succeed())
		backend.set(func(b *fakeBackend) {
			b.status = "SUCCESS"
			b.statusAmount = 100
		})

		w := do(http.MethodGet, "/api/v1/deposits/a/return", "")

		Expect(w.Code).To(Equal(http.StatusOK))
		var body deposit.OutcomeResponse
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body.Status).To(Equal("SUCCESS"))
		Expect(body.OrderID).To(Equal("ORD1"))
		Expect(body.Amount).To(Equal(json.Number("100")))
	})

	It("writes amounts as bare JSON numbers", func() {
		Expect(store.Save(context.Background(), gatewaytypes.GatewayA, "ORD3", decimal.RequireFromString("100.50"))).To(Succeed())

		w := do(http.MethodGet, "/api/v1/deposits/a/pending", "")

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"amount":100.5`))
		Expect(w.Body.String()).NotTo(ContainSubstring(`"amount":"`))
	})

	It("answers 404 on return when nothing is pending", func() {
		w := do(http.MethodGet, "/api/v1/deposits/a/return", "")

		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("shows and dismisses the pending order", func() {
		Expect(store.Save(context.Background(), gatewaytypes.GatewayB, "ORD7", decimal.NewFromInt(7))).To(Succeed())

		w := do(http.MethodGet, "/api/v1/deposits/b/pending", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"order_id":"ORD7"`))

		w = do(http.MethodDelete, "/api/v1/deposits/b/pending", "")
		Expect(w.Code).To(Equal(http.StatusNoContent))

		w = do(http.MethodGet, "/api/v1/deposits/b/pending", "")
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})
})
