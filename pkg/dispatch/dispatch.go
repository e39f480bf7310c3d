// Package dispatch stands in for the external transport/dispatcher that
// the registry, tenant-metrics and message-finalize components depend on
// to publish outbound sync-protocol and notification events onto the
// fabric. It deliberately knows nothing about wire formats; callers hand
// it a channel name and a payload already written to a codec.Node.
package dispatch

import (
	"sync"

	"github.com/dxlfabric/brokerd/pkg/codec"
)

// Publisher is the dispatcher's consumer-facing contract. A concrete
// implementation bridges this onto the real transport; it is never the
// registry's or tenant-metrics' job to know how.
type Publisher interface {
	Publish(channel string, payload codec.Node) error
}

// Recorder is an in-memory Publisher used by tests: it records every
// publish call instead of sending anything anywhere.
type Recorder struct {
	mu   sync.Mutex
	Sent []Published
	// FailChannel, if non-empty, makes Publish return a synthetic error
	// for that channel without recording it, to exercise the
	// catch-log-swallow error path.
	FailChannel string
}

// Published is one recorded call to Recorder.Publish.
type Published struct {
	Channel string
	Payload codec.Node
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish implements Publisher.
func (r *Recorder) Publish(channel string, payload codec.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailChannel != "" && channel == r.FailChannel {
		return errPublishFailed
	}
	r.Sent = append(r.Sent, Published{Channel: channel, Payload: payload})
	return nil
}

// Count returns how many messages were published on channel.
func (r *Recorder) Count(channel string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.Sent {
		if p.Channel == channel {
			n++
		}
	}
	return n
}

// Last returns the most recently published message on channel, if any.
func (r *Recorder) Last(channel string) (Published, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.Sent) - 1; i >= 0; i-- {
		if r.Sent[i].Channel == channel {
			return r.Sent[i], true
		}
	}
	return Published{}, false
}

type publishError string

func (e publishError) Error() string { return string(e) }

const errPublishFailed = publishError("dispatch: publish failed")
