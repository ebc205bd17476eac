package wallet_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/wallet-payments/internal/wallet"
	"github.com/frahmantamala/wallet-payments/pkg/logger"
)

type stubDispatcher struct {
	got    wallet.Action
	result wallet.ActionResult
}

func (s *stubDispatcher) Dispatch(_ context.Context, action wallet.Action) wallet.ActionResult {
	s.got = action
	return s.result
}

var _ = Describe("Wallet Handler", func() {
	var (
		stub    *stubDispatcher
		handler *wallet.Handler
	)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/wallet/actions", strings.NewReader(body))
		w := httptest.NewRecorder()
		handler.DispatchAction(w, req)
		return w
	}

	BeforeEach(func() {
		stub = &stubDispatcher{result: wallet.ActionResult{OK: true, TransactionID: "TX-1"}}
		handler = wallet.NewHandler(stub, logger.Discard())
	})

	It("dispatches the parsed action", func() {
		w := post(`{"action":"redeem_code","code":"WELCOME50"}`)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(stub.got).To(Equal(wallet.RedeemCode{Code: "WELCOME50"}))
		Expect(w.Body.String()).To(ContainSubstring(`"transactionId":"TX-1"`))
	})

	It("answers 422 with the flattened error", func() {
		stub.result = wallet.ActionResult{Error: "Code expired"}

		w := post(`{"action":"redeem_code","code":"OLD"}`)

		Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
		Expect(w.Body.String()).To(ContainSubstring(`"error":"Code expired"`))
	})

	It("answers 400 for an unknown action", func() {
		w := post(`{"action":"transfer"}`)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(stub.got).To(BeNil())
	})

	It("answers 400 for a malformed body", func() {
		w := post(`{"action":`)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})
