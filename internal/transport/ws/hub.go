package ws

import (
	"encoding/json"
	"log"
	"sync"

	"guessflag/internal/model"
)

// Hub is the broadcast gateway: a registry of topics keyed by session code,
// each with zero or more subscribers. Delivery is best-effort and unordered
// across topics, but a single dispatch goroutine preserves per-topic emission
// order. There is no replay; a reconnecting client re-fetches authoritative
// state instead.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscriber]struct{}

	register   chan *Subscriber
	unregister chan *Subscriber
	broadcast  chan *envelope
}

// Subscriber is one connection listening on a session topic. Send is a
// buffered channel; slow consumers drop messages rather than block the hub.
type Subscriber struct {
	SessionCode string
	Send        chan []byte
}

type envelope struct {
	code string
	data []byte
}

func NewHub() *Hub {
	h := &Hub{
		topics:     make(map[string]map[*Subscriber]struct{}),
		register:   make(chan *Subscriber),
		unregister: make(chan *Subscriber),
		broadcast:  make(chan *envelope, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case sub := <-h.register:
			h.mu.Lock()
			if h.topics[sub.SessionCode] == nil {
				h.topics[sub.SessionCode] = make(map[*Subscriber]struct{})
			}
			h.topics[sub.SessionCode][sub] = struct{}{}
			h.mu.Unlock()
			log.Printf("subscriber joined topic %s", sub.SessionCode)

		case sub := <-h.unregister:
			h.mu.Lock()
			if subs, ok := h.topics[sub.SessionCode]; ok {
				if _, ok := subs[sub]; ok {
					delete(subs, sub)
					close(sub.Send)
					if len(subs) == 0 {
						delete(h.topics, sub.SessionCode)
					}
					log.Printf("subscriber left topic %s", sub.SessionCode)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for sub := range h.topics[msg.code] {
				select {
				case sub.Send <- msg.data:
				default:
					// Drop rather than block; the client re-syncs on reconnect.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Subscribe attaches a new subscriber to a session topic.
func (h *Hub) Subscribe(code string) *Subscriber {
	sub := &Subscriber{
		SessionCode: code,
		Send:        make(chan []byte, 256),
	}
	h.register <- sub
	return sub
}

// Unsubscribe detaches a subscriber and closes its send channel. The last
// unsubscribe tears the topic down.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.unregister <- sub
}

// Publish delivers an event to every current subscriber of a session topic
// (implements service.Broadcaster).
func (h *Hub) Publish(code string, event model.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("failed to marshal %s event: %v", event.Type, err)
		return
	}
	h.broadcast <- &envelope{code: code, data: data}
}
