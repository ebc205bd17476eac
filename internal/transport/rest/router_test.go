package rest_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/wallet-payments/internal/auth"
	"github.com/frahmantamala/wallet-payments/internal/transport/rest"
	"github.com/frahmantamala/wallet-payments/internal/wallet"
	"github.com/frahmantamala/wallet-payments/pkg/logger"
)

func TestRest(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "REST Router Suite")
}

type okDispatcher struct{}

func (okDispatcher) Dispatch(context.Context, wallet.Action) wallet.ActionResult {
	return wallet.ActionResult{OK: true}
}

var _ = Describe("Router", func() {
	var (
		router   *chi.Mux
		dbErr    error
		verifier *auth.TokenVerifier
	)

	BeforeEach(func() {
		dbErr = nil
		verifier = auth.NewTokenVerifier("router-test-secret-long-enough-for-hs256")
		router = chi.NewRouter()
		rest.RegisterAllRoutes(router, rest.Routes{
			Health: rest.NewHealthHandler(map[string]rest.Checker{
				"postgres": func(context.Context) error { return dbErr },
			}),
			Auth:    auth.NewMiddleware(verifier, true, logger.Discard()),
			Wallet:  wallet.NewHandler(okDispatcher{}, logger.Discard()),
			Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("metrics")) }),
		}, logger.Discard())
	})

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("reports healthy dependencies", func() {
		w := serve(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"status":"healthy"`))
	})

	It("reports an unhealthy dependency with 503", func() {
		dbErr = errors.New("connection refused")

		w := serve(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

		Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
		Expect(w.Body.String()).To(ContainSubstring("connection refused"))
	})

	It("keeps ping and metrics public", func() {
		Expect(serve(httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)).Code).To(Equal(http.StatusOK))
		Expect(serve(httptest.NewRequest(http.MethodGet, "/metrics", nil)).Body.String()).To(Equal("metrics"))
	})

	It("protects wallet actions with the bearer token", func() {
		body := `{"action":"redeem_code","code":"WELCOME50"}`

		w := serve(httptest.NewRequest(http.MethodPost, "/api/v1/wallet/actions", strings.NewReader(body)))
		Expect(w.Code).To(Equal(http.StatusUnauthorized))

		token, err := verifier.IssueToken("u-1", time.Minute)
		Expect(err).NotTo(HaveOccurred())
		req := httptest.NewRequest(http.MethodPost, "/api/v1/wallet/actions", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)

		Expect(serve(req).Code).To(Equal(http.StatusOK))
	})
})
