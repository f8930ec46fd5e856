package channel_test

import (
	"context"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aldermoor/swim/transport/channel"
)

var _ = Describe("Network", func() {
	var net *channel.Network[string, string]

	BeforeEach(func() { net = channel.NewNetwork[string, string]() })

	It("Should dispatch a request to the routed handler", func() {
		net.Route(1, func(_ context.Context, rq string) (string, error) {
			return rq + " pong", nil
		})
		rs, err := net.Send(context.Background(), 1, "ping")
		Expect(err).ToNot(HaveOccurred())
		Expect(rs).To(Equal("ping pong"))
	})

	It("Should surface ErrUnrouted for an unbound destination", func() {
		_, err := net.Send(context.Background(), 9, "ping")
		Expect(errors.Is(err, channel.ErrUnrouted)).To(BeTrue())
	})

	It("Should refuse to send on a cancelled context", func() {
		net.Route(1, func(_ context.Context, rq string) (string, error) { return rq, nil })
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := net.Send(ctx, 1, "ping")
		Expect(err).To(MatchError(context.Canceled))
	})

	It("Should propagate handler errors to the caller", func() {
		net.Route(1, func(context.Context, string) (string, error) {
			return "", errors.New("overloaded")
		})
		_, err := net.Send(context.Background(), 1, "ping")
		Expect(err).To(HaveOccurred())
	})
})
