package notify

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Channel names a delivery path.
type Channel string

const (
	ChannelStore Channel = "store"
	ChannelEmail Channel = "email"
	ChannelLive  Channel = "live"
)

// Outcome records what happened on one channel.
type Outcome struct {
	Channel   Channel
	Attempted bool
	Err       error
}

// Delivered reports whether the channel was tried and succeeded.
func (o Outcome) Delivered() bool {
	return o.Attempted && o.Err == nil
}

// Attempt runs fn for ch and captures its error. A panic inside fn is
// converted into the outcome's error.
func Attempt(ch Channel, fn func() error) (out Outcome) {
	out = Outcome{Channel: ch, Attempted: true}
	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("%s delivery panicked: %v", ch, r)
		}
	}()
	out.Err = fn()
	return out
}

// Skip is the outcome of a channel that was deliberately not used.
func Skip(ch Channel) Outcome {
	return Outcome{Channel: ch}
}

// Log writes o to log: failures at error level, the rest at debug.
func (o Outcome) Log(log zerolog.Logger) {
	switch {
	case !o.Attempted:
		log.Debug().Str("channel", string(o.Channel)).Msg("channel skipped")
	case o.Err != nil:
		log.Error().Err(o.Err).Str("channel", string(o.Channel)).Msg("delivery failed")
	default:
		log.Debug().Str("channel", string(o.Channel)).Msg("delivered")
	}
}

// Report summarises one Notify call.
type Report struct {
	UserID   int64
	Message  string
	Outcomes []Outcome

	// Err is set when the recipient could not be resolved; no channel is
	// attempted in that case.
	Err error
}

// Outcome returns the outcome recorded for ch.
func (r Report) Outcome(ch Channel) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Channel == ch {
			return o, true
		}
	}
	return Outcome{}, false
}
