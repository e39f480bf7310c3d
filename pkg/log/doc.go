/*
Package log provides structured logging for brokerd using zerolog.

A single global zerolog.Logger is initialized once via Init and is safe
for concurrent use from every package. Context loggers (WithBrokerID,
WithTenantID, WithChannel, WithTopic, WithChangeCount, WithRunID) attach
the one field a call site cares about without repeating it at every log
line; chain .With() again to add a second when a site needs both (a
dropped topic delta logs both the topic and the peer's change count).

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	log.Info("brokerd starting")

	peerLog := log.WithBrokerID("b2")
	peerLog.Warn().Msg("peer restarted, clearing subscriptions")

	log.WithTopic("/mycompany/sensors/+").Debug().
		Uint64("change_count", delta.ChangeCount).
		Msg("dropped stale topic delta")

	log.WithRunID(runID).Debug().Str("channel", channel).
		Msg("dispatch publish")

# Design Patterns

Global logger, package-level: initialized once at process start,
accessible from any package without threading a logger through every
constructor. Context loggers are cheap, immutable child loggers built
with .With() — create one per log site rather than caching it, unless
it is reused across many calls in a loop.
*/
package log
