package interfaces

import "market-gateway/src/models"

// -----------------------------------------------------------------------------
// ISubscriber is an opaque sink for stream messages.
// -----------------------------------------------------------------------------

type ISubscriber interface {

	// Deliver hands a message to the subscriber without blocking.
	// Returns false if the message was dropped (subscriber too slow or gone);
	// the caller must not treat that as fatal. Subscriber identity is
	// reference equality: the same value may be registered under one key only
	// once, and distinct subscribers may share a key.
	Deliver(msg *models.MStreamMessage) bool
}
