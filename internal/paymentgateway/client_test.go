package paymentgateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/wallet-payments/internal"
	gatewaytypes "github.com/frahmantamala/wallet-payments/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/wallet-payments/internal/paymentgateway"
	"github.com/frahmantamala/wallet-payments/internal/remote"
	"github.com/frahmantamala/wallet-payments/pkg/logger"
)

func TestPaymentGateway(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Payment Gateway Suite")
}

type panickingDoer struct{}

func (panickingDoer) Do(*http.Request) (*http.Response, error) {
	panic("nil map write")
}

var _ = Describe("Gateway Client", func() {
	var (
		server   *httptest.Server
		calls    int32
		lastBody map[string]any
		respond  func(w http.ResponseWriter, r *http.Request)
		caller   *remote.Client
		gatewayA *paymentgateway.Client
		gatewayB *paymentgateway.Client
		ctx      context.Context
	)

	newClient := func(id gatewaytypes.GatewayID, createPath, statusPath string) *paymentgateway.Client {
		return paymentgateway.NewClient(paymentgateway.Config{
			Gateway:    id,
			CreatePath: createPath,
			StatusPath: statusPath,
		}, caller, nil, logger.Discard())
	}

	BeforeEach(func() {
		ctx = context.Background()
		atomic.StoreInt32(&calls, 0)
		lastBody = nil
		respond = func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success":     true,
				"payment_url": "https://pay.example.com/checkout/ord-1",
				"order_id":    "ord-1",
			})
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			_ = json.NewDecoder(r.Body).Decode(&lastBody)
			w.Header().Set("Content-Type", "application/json")
			respond(w, r)
		}))
		caller = remote.NewClient(server.URL, time.Second, server.Client(), logger.Discard())
		gatewayA = newClient(gatewaytypes.GatewayA, "/gateway-a/create-payment", "/gateway-a/check-status")
		gatewayB = newClient(gatewaytypes.GatewayB, "/gateway-b/create-payment", "")
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("Initiate", func() {
		Context("when the amount is below the gateway minimum", func() {
			It("rejects 0.5 on gateway A without calling the backend", func() {
				result := gatewayA.Initiate(ctx, decimal.RequireFromString("0.5"))

				Expect(result.Success).To(BeFalse())
				Expect(result.Error).To(Equal("Invalid amount"))
				Expect(atomic.LoadInt32(&calls)).To(BeZero())
			})

			It("rejects zero and negative amounts on gateway B without calling the backend", func() {
				Expect(gatewayB.Initiate(ctx, decimal.Zero).Error).To(Equal("Invalid amount"))
				Expect(gatewayB.Initiate(ctx, decimal.NewFromInt(-5)).Error).To(Equal("Invalid amount"))
				Expect(atomic.LoadInt32(&calls)).To(BeZero())
			})
		})

		Context("when the amount is at the gateway minimum", func() {
			It("accepts exactly 1 on gateway A", func() {
				result := gatewayA.Initiate(ctx, decimal.NewFromInt(1))

				Expect(result.Success).To(BeTrue())
				Expect(atomic.LoadInt32(&calls)).To(Equal(int32(1)))
			})

			It("accepts fractional amounts on gateway B", func() {
				result := gatewayB.Initiate(ctx, decimal.RequireFromString("0.01"))

				Expect(result.Success).To(BeTrue())
				Expect(lastBody["amount"]).To(BeNumerically("==", 0.01))
			})
		})

		Context("when the backend creates the payment", func() {
			It("returns the payment url and order id", func() {
				result := gatewayA.Initiate(ctx, decimal.NewFromInt(100))

				Expect(result).To(Equal(paymentgateway.InitiateResult{
					Success:    true,
					PaymentURL: "https://pay.example.com/checkout/ord-1",
					OrderID:    "ord-1",
				}))
				Expect(lastBody["amount"]).To(BeNumerically("==", 100))
			})
		})

		Context("when the backend refuses the payment", func() {
			It("passes the backend message through", func() {
				respond = func(w http.ResponseWriter, r *http.Request) {
					_, _ = w.Write([]byte(`{"success":false,"error":"Gateway A is under maintenance"}`))
				}

				result := gatewayA.Initiate(ctx, decimal.NewFromInt(100))

				Expect(result.Success).To(BeFalse())
				Expect(result.Error).To(Equal("Gateway A is under maintenance"))
			})

			It("uses a default message when the backend gives none", func() {
				respond = func(w http.ResponseWriter, r *http.Request) {
					_, _ = w.Write([]byte(`{"success":false}`))
				}

				Expect(gatewayA.Initiate(ctx, decimal.NewFromInt(100)).Error).To(Equal("Payment could not be created"))
			})
		})

		Context("when the reply is incomplete", func() {
			It("fails when the payment url is missing", func() {
				respond = func(w http.ResponseWriter, r *http.Request) {
					_, _ = w.Write([]byte(`{"success":true,"order_id":"ord-1"}`))
				}

				result := gatewayA.Initiate(ctx, decimal.NewFromInt(100))

				Expect(result.Success).To(BeFalse())
				Expect(result.PaymentURL).To(BeEmpty())
				Expect(result.Error).To(Equal("Payment URL missing from response"))
			})
		})

		Context("when the backend is slow", func() {
			It("reports a timeout", func() {
				respond = func(w http.ResponseWriter, r *http.Request) {
					select {
					case <-r.Context().Done():
					case <-time.After(2 * time.Second):
					}
				}
				caller = remote.NewClient(server.URL, 50*time.Millisecond, server.Client(), logger.Discard())
				gatewayA = newClient(gatewaytypes.GatewayA, "/gateway-a/create-payment", "/gateway-a/check-status")

				result := gatewayA.Initiate(ctx, decimal.NewFromInt(100))

				Expect(result.Success).To(BeFalse())
				Expect(result.Error).To(Equal("Request timed out"))
			})
		})

		Context("when the call panics", func() {
			It("returns a generic failure instead of crashing", func() {
				caller = remote.NewClient(server.URL, time.Second, panickingDoer{}, logger.Discard())
				gatewayA = newClient(gatewaytypes.GatewayA, "/gateway-a/create-payment", "/gateway-a/check-status")

				result := gatewayA.Initiate(ctx, decimal.NewFromInt(100))

				Expect(result.Success).To(BeFalse())
				Expect(result.Error).To(Equal("Unexpected error, please try again"))
				Expect(gatewayA.IsBusy(ctx)).To(BeFalse())
			})
		})

		Context("when an initiation is already in flight", func() {
			It("rejects the second attempt and frees the slot afterwards", func() {
				release := make(chan struct{})
				entered := make(chan struct{}, 1)
				respond = func(w http.ResponseWriter, r *http.Request) {
					entered <- struct{}{}
					<-release
					_, _ = w.Write([]byte(`{"success":true,"payment_url":"https://pay.example.com/x","order_id":"ord-2"}`))
				}

				done := make(chan paymentgateway.InitiateResult, 1)
				go func() {
					defer GinkgoRecover()
					done <- gatewayA.Initiate(ctx, decimal.NewFromInt(100))
				}()
				Eventually(entered).Should(Receive())
				Expect(gatewayA.IsBusy(ctx)).To(BeTrue())

				second := gatewayA.Initiate(ctx, decimal.NewFromInt(100))
				Expect(second.Success).To(BeFalse())
				Expect(second.Error).To(Equal("Payment already in progress"))

				close(release)
				Eventually(done).Should(Receive(HaveField("OrderID", "ord-2")))
				Expect(gatewayA.IsBusy(ctx)).To(BeFalse())
				Expect(atomic.LoadInt32(&calls)).To(Equal(int32(1)))
			})

			It("does not block a different user", func() {
				release := make(chan struct{})
				entered := make(chan struct{}, 2)
				respond = func(w http.ResponseWriter, r *http.Request) {
					entered <- struct{}{}
					<-release
					_, _ = w.Write([]byte(`{"success":true,"payment_url":"https://pay.example.com/x","order_id":"ord-3"}`))
				}
				alice := internal.ContextWithUserID(ctx, "alice")
				bob := internal.ContextWithUserID(ctx, "bob")

				done := make(chan paymentgateway.InitiateResult, 2)
				go func() {
					defer GinkgoRecover()
					done <- gatewayA.Initiate(alice, decimal.NewFromInt(10))
				}()
				Eventually(entered).Should(Receive())

				go func() {
					defer GinkgoRecover()
					done <- gatewayA.Initiate(bob, decimal.NewFromInt(10))
				}()
				Eventually(entered).Should(Receive())

				close(release)
				Eventually(done).Should(Receive(HaveField("Success", true)))
				Eventually(done).Should(Receive(HaveField("Success", true)))
			})
		})
	})

	Describe("CheckStatus", func() {
		It("maps the provider status to the canonical one", func() {
			respond = func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"success":true,"order_id":"ord-1","status":"PAID","amount":100,"transaction_id":"tx-9"}`))
			}

			status := gatewayA.CheckStatus(ctx, "ord-1")

			Expect(status).NotTo(BeNil())
			Expect(status.Canonical).To(Equal(gatewaytypes.PaymentStatusSuccess))
			Expect(status.TransactionID).To(Equal("tx-9"))
			Expect(status.Amount.Equal(decimal.NewFromInt(100))).To(BeTrue())
			Expect(lastBody["order_id"]).To(Equal("ord-1"))
		})

		It("returns nil for a gateway without a status endpoint", func() {
			Expect(gatewayB.SupportsStatus()).To(BeFalse())
			Expect(gatewayB.CheckStatus(ctx, "ord-1")).To(BeNil())
			Expect(atomic.LoadInt32(&calls)).To(BeZero())
		})

		It("returns nil when the backend fails", func() {
			respond = func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}

			Expect(gatewayA.CheckStatus(ctx, "ord-1")).To(BeNil())
		})

		It("returns nil when the backend reports success=false", func() {
			respond = func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"success":false,"status":"UNKNOWN","message":"order not found"}`))
			}

			Expect(gatewayA.CheckStatus(ctx, "ord-1")).To(BeNil())
		})

		It("returns nil when the reply has no status", func() {
			respond = func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"success":true,"order_id":"ord-1"}`))
			}

			Expect(gatewayA.CheckStatus(ctx, "ord-1")).To(BeNil())
		})
	})
})

var _ = Describe("SingleFlight", func() {
	It("admits one holder per key and frees it on release", func() {
		guard := paymentgateway.NewSingleFlight()

		release, ok := guard.TryAcquire("k")
		Expect(ok).To(BeTrue())
		Expect(guard.Busy("k")).To(BeTrue())

		_, again := guard.TryAcquire("k")
		Expect(again).To(BeFalse())

		_, other := guard.TryAcquire("other")
		Expect(other).To(BeTrue())

		release()
		release()
		Expect(guard.Busy("k")).To(BeFalse())
	})
})
