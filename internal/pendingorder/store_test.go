package pendingorder_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/wallet-payments/internal"
	"github.com/frahmantamala/wallet-payments/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/wallet-payments/internal/pendingorder"
	"github.com/frahmantamala/wallet-payments/pkg/logger"
)

func TestPendingOrder(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Pending Order Suite")
}

type brokenKV struct{}

func (brokenKV) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("disk gone")
}
func (brokenKV) Set(context.Context, string, []byte) error { return errors.New("disk gone") }
func (brokenKV) Delete(context.Context, string) error      { return errors.New("disk gone") }
func (brokenKV) DeleteIf(context.Context, string, []byte) (bool, error) {
	return false, errors.New("disk gone")
}

// racingKV runs afterGet once, right after the first read, to simulate a concurrent writer.
type racingKV struct {
	*pendingorder.MemoryKV
	afterGet func()
}

func (r *racingKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, ok, err := r.MemoryKV.Get(ctx, key)
	if hook := r.afterGet; hook != nil {
		r.afterGet = nil
		hook()
	}
	return value, ok, err
}

var _ = Describe("Store", func() {
	var (
		kv    *pendingorder.MemoryKV
		store *pendingorder.Store
		ctx   context.Context
	)

	BeforeEach(func() {
		kv = pendingorder.NewMemoryKV()
		store = pendingorder.NewStore(kv, logger.Discard())
		ctx = context.Background()
	})

	It("returns nothing when no order is pending", func() {
		record, err := store.Load(ctx, paymentgateway.GatewayA)

		Expect(err).NotTo(HaveOccurred())
		Expect(record).To(BeNil())
	})

	It("round-trips a saved order", func() {
		Expect(store.Save(ctx, paymentgateway.GatewayA, "ord-1", decimal.RequireFromString("100.50"))).To(Succeed())

		record, err := store.Load(ctx, paymentgateway.GatewayA)

		Expect(err).NotTo(HaveOccurred())
		Expect(record.OrderID).To(Equal("ord-1"))
		Expect(record.Amount.Equal(decimal.RequireFromString("100.50"))).To(BeTrue())
		Expect(record.CreatedAt).NotTo(BeZero())
	})

	It("keeps one slot per gateway", func() {
		Expect(store.Save(ctx, paymentgateway.GatewayA, "ord-a", decimal.NewFromInt(10))).To(Succeed())
		Expect(store.Save(ctx, paymentgateway.GatewayB, "ord-b", decimal.NewFromInt(20))).To(Succeed())

		a, _ := store.Load(ctx, paymentgateway.GatewayA)
		b, _ := store.Load(ctx, paymentgateway.GatewayB)

		Expect(a.OrderID).To(Equal("ord-a"))
		Expect(b.OrderID).To(Equal("ord-b"))
	})

	It("lets the latest save win", func() {
		Expect(store.Save(ctx, paymentgateway.GatewayA, "ord-1", decimal.NewFromInt(10))).To(Succeed())
		Expect(store.Save(ctx, paymentgateway.GatewayA, "ord-2", decimal.NewFromInt(30))).To(Succeed())

		record, _ := store.Load(ctx, paymentgateway.GatewayA)

		Expect(record.OrderID).To(Equal("ord-2"))
		Expect(kv.Len()).To(Equal(1))
	})

	It("clears a slot", func() {
		Expect(store.Save(ctx, paymentgateway.GatewayA, "ord-1", decimal.NewFromInt(10))).To(Succeed())
		Expect(store.Clear(ctx, paymentgateway.GatewayA)).To(Succeed())

		record, err := store.Load(ctx, paymentgateway.GatewayA)
		Expect(err).NotTo(HaveOccurred())
		Expect(record).To(BeNil())
	})

	Describe("ClearOrder", func() {
		It("clears the slot holding the settled order", func() {
			Expect(store.Save(ctx, paymentgateway.GatewayA, "ord-1", decimal.NewFromInt(10))).To(Succeed())

			cleared, err := store.ClearOrder(ctx, paymentgateway.GatewayA, "ord-1")

			Expect(err).NotTo(HaveOccurred())
			Expect(cleared).To(BeTrue())
			Expect(kv.Len()).To(BeZero())
		})

		It("leaves a different order in place", func() {
			Expect(store.Save(ctx, paymentgateway.GatewayA, "ord-2", decimal.NewFromInt(10))).To(Succeed())

			cleared, err := store.ClearOrder(ctx, paymentgateway.GatewayA, "ord-1")

			Expect(err).NotTo(HaveOccurred())
			Expect(cleared).To(BeFalse())
			record, _ := store.Load(ctx, paymentgateway.GatewayA)
			Expect(record.OrderID).To(Equal("ord-2"))
		})

		It("keeps an order saved between the read and the delete", func() {
			racing := &racingKV{MemoryKV: pendingorder.NewMemoryKV()}
			racyStore := pendingorder.NewStore(racing, logger.Discard())
			Expect(racyStore.Save(ctx, paymentgateway.GatewayA, "ord-1", decimal.NewFromInt(10))).To(Succeed())

			racing.afterGet = func() {
				Expect(racyStore.Save(ctx, paymentgateway.GatewayA, "ord-2", decimal.NewFromInt(20))).To(Succeed())
			}
			cleared, err := racyStore.ClearOrder(ctx, paymentgateway.GatewayA, "ord-1")

			Expect(err).NotTo(HaveOccurred())
			Expect(cleared).To(BeFalse())
			record, _ := racyStore.Load(ctx, paymentgateway.GatewayA)
			Expect(record).NotTo(BeNil())
			Expect(record.OrderID).To(Equal("ord-2"))
		})
	})

	It("separates users sharing a gateway", func() {
		alice := internal.ContextWithUserID(ctx, "alice")
		bob := internal.ContextWithUserID(ctx, "bob")

		Expect(store.Save(alice, paymentgateway.GatewayA, "ord-alice", decimal.NewFromInt(10))).To(Succeed())

		record, _ := store.Load(bob, paymentgateway.GatewayA)
		Expect(record).To(BeNil())

		record, _ = store.Load(alice, paymentgateway.GatewayA)
		Expect(record.OrderID).To(Equal("ord-alice"))
	})

	It("drops a corrupt record", func() {
		Expect(kv.Set(ctx, pendingorder.Key(ctx, paymentgateway.GatewayA), []byte("not json"))).To(Succeed())

		record, err := store.Load(ctx, paymentgateway.GatewayA)

		Expect(err).NotTo(HaveOccurred())
		Expect(record).To(BeNil())
		Expect(kv.Len()).To(BeZero())
	})

	It("surfaces storage failures", func() {
		broken := pendingorder.NewStore(brokenKV{}, logger.Discard())

		Expect(broken.Save(ctx, paymentgateway.GatewayA, "ord-1", decimal.NewFromInt(10))).NotTo(Succeed())
		_, err := broken.Load(ctx, paymentgateway.GatewayA)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Key", func() {
	It("scopes by gateway alone without a user", func() {
		Expect(pendingorder.Key(context.Background(), paymentgateway.GatewayB)).To(Equal("pending_order::gateway_b"))
	})

	It("scopes by user and gateway when a user is known", func() {
		ctx := internal.ContextWithUserID(context.Background(), "u-42")
		Expect(pendingorder.Key(ctx, paymentgateway.GatewayA)).To(Equal("pending_order::u-42::gateway_a"))
	})
})
