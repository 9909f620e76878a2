package nats

import (
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/directory-console/internal/core/domain"
	"github.com/kirillkom/directory-console/internal/infrastructure/resilience"
)

// connectionTrouble reports failures that clear up once the client
// reconnects to a server.
func connectionTrouble(err error) bool {
	for _, target := range []error{
		nats.ErrNoServers,
		nats.ErrTimeout,
		nats.ErrConnectionClosed,
		nats.ErrConnectionReconnecting,
		nats.ErrDisconnected,
		nats.ErrReconnectBufExceeded,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func classifyNATSError(err error) resilience.ErrorClassification {
	return resilience.Classify(err, connectionTrouble)
}

// publishError marks a failed transition publish as temporary when a later
// transition could still get through.
func publishError(err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifyNATSError(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, "publish_transition", err)
	}
	return err
}
