package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	goredis "github.com/redis/go-redis/v9"

	"github.com/frahmantamala/wallet-payments/internal/pendingorder"
	"github.com/frahmantamala/wallet-payments/internal/pendingorder/redis"
)

func TestPendingOrderRedis(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Pending Order Redis Suite")
}

var _ = Describe("Pending order KV (redis)", func() {
	var (
		mr     *miniredis.Miniredis
		client *goredis.Client
		kv     pendingorder.KV
		ctx    context.Context
	)

	BeforeEach(func() {
		var err error
		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())

		client = goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
		kv = redis.NewKV(client, time.Hour)
		ctx = context.Background()
	})

	AfterEach(func() {
		_ = client.Close()
		mr.Close()
	})

	It("reports a missing key", func() {
		_, ok, err := kv.Get(ctx, "pending_order::gateway_a")

		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("stores, overwrites and deletes", func() {
		Expect(kv.Set(ctx, "pending_order::gateway_a", []byte("first"))).To(Succeed())
		Expect(kv.Set(ctx, "pending_order::gateway_a", []byte("second"))).To(Succeed())

		value, ok, err := kv.Get(ctx, "pending_order::gateway_a")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(string(value)).To(Equal("second"))

		Expect(kv.Delete(ctx, "pending_order::gateway_a")).To(Succeed())
		Expect(mr.Exists("pending_order::gateway_a")).To(BeFalse())
	})

	It("deletes only while the expected value is still there", func() {
		Expect(kv.Set(ctx, "pending_order::gateway_a", []byte("first"))).To(Succeed())
		Expect(kv.Set(ctx, "pending_order::gateway_a", []byte("second"))).To(Succeed())

		deleted, err := kv.DeleteIf(ctx, "pending_order::gateway_a", []byte("first"))
		Expect(err).NotTo(HaveOccurred())
		Expect(deleted).To(BeFalse())
		Expect(mr.Exists("pending_order::gateway_a")).To(BeTrue())

		deleted, err = kv.DeleteIf(ctx, "pending_order::gateway_a", []byte("second"))
		Expect(err).NotTo(HaveOccurred())
		Expect(deleted).To(BeTrue())
		Expect(mr.Exists("pending_order::gateway_a")).To(BeFalse())
	})

	It("keeps slots without a ttl until they are cleared", func() {
		persistent := redis.NewKV(client, 0)
		Expect(persistent.Set(ctx, "pending_order::gateway_a", []byte("x"))).To(Succeed())
		Expect(mr.TTL("pending_order::gateway_a")).To(BeZero())

		mr.FastForward(30 * 24 * time.Hour)

		_, ok, err := persistent.Get(ctx, "pending_order::gateway_a")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
	})

	It("expires abandoned slots when a ttl is configured", func() {
		Expect(kv.Set(ctx, "pending_order::gateway_b", []byte("x"))).To(Succeed())
		Expect(mr.TTL("pending_order::gateway_b")).To(Equal(time.Hour))

		mr.FastForward(2 * time.Hour)

		_, ok, err := kv.Get(ctx, "pending_order::gateway_b")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("surfaces connection failures", func() {
		mr.Close()

		_, _, err := kv.Get(ctx, "pending_order::gateway_a")
		Expect(err).To(HaveOccurred())
	})
})
