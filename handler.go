package ttbot

// Handler is an interface that processes incoming events.
//
// The Run method is called when the Bot is run. This allows a handler to
// maintain state and send commands that are not in response to an incoming
// event. Stop is called when the Bot is stopped and must not block.
type Handler interface {
	// HandleEvent is called once per event received from the chat server,
	// in arrival order. A returned error is logged; it does not stop the
	// bot.
	HandleEvent(b *Bot, e *Event) error

	// Run is called when the Bot's Run method is called.
	Run(b *Bot)

	// Stop is called when the Bot's Stop method is called.
	Stop(b *Bot)
}

// HandlerFunc adapts a plain function to the Handler interface with no-op
// Run and Stop methods.
type HandlerFunc func(b *Bot, e *Event) error

// HandleEvent satisfies the Handler interface.
func (f HandlerFunc) HandleEvent(b *Bot, e *Event) error { return f(b, e) }

// Run is a no-op.
func (f HandlerFunc) Run(b *Bot) {}

// Stop is a no-op.
func (f HandlerFunc) Stop(b *Bot) {}

type subEntry struct {
	id int
	h  Handler
}

// Subscription is the handle returned by AddHandler. Removing it stops
// event delivery to the handler.
type Subscription struct {
	b  *Bot
	id int
}

// Remove unregisters the handler. Events already being dispatched may still
// reach it; no event after the current one will.
func (s *Subscription) Remove() {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	for i, e := range s.b.subs {
		if e.id == s.id {
			s.b.subs = append(s.b.subs[:i], s.b.subs[i+1:]...)
			return
		}
	}
}

// AddHandler registers a handler for every event the bot receives and
// returns a handle that can unregister it.
func (b *Bot) AddHandler(h Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextSub++
	b.subs = append(b.subs, subEntry{id: b.nextSub, h: h})
	return &Subscription{b: b, id: b.nextSub}
}

// OnNewSong registers a listener invoked once per newsong event, with the
// event decoded at the boundary. Malformed events are reported as handler
// errors rather than reaching the listener.
func (b *Bot) OnNewSong(f func(*NewSongEvent)) *Subscription {
	return b.AddHandler(HandlerFunc(func(b *Bot, e *Event) error {
		if e.Command != EventNewSong {
			return nil
		}
		ev, err := DecodeNewSong(e)
		if err != nil {
			return err
		}
		f(ev)
		return nil
	}))
}

// OnSpeak registers a listener for chat messages.
func (b *Bot) OnSpeak(f func(*SpeakEvent)) *Subscription {
	return b.AddHandler(HandlerFunc(func(b *Bot, e *Event) error {
		if e.Command != EventSpeak {
			return nil
		}
		ev, err := DecodeSpeak(e)
		if err != nil {
			return err
		}
		f(ev)
		return nil
	}))
}

// handlers snapshots the registered handlers in registration order.
func (b *Bot) handlers() []Handler {
	b.mu.Lock()
	defer b.mu.Unlock()
	hs := make([]Handler, len(b.subs))
	for i, e := range b.subs {
		hs[i] = e.h
	}
	return hs
}
