package core

import "pkt.systems/pslog"

// Deps captures optional dependencies for the coordinator.
type Deps struct {
	Sink   EventSink
	Opener ConsumerOpener
	Store  KVStore
	Clock  Clock
	Logger pslog.Logger
}
