package websocket

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"eventhub/internal/metrics"
	"eventhub/internal/models"
)

// Hub maintains the set of active subscribers and fans processed events out
// to them. Delivery is best effort: a subscriber that cannot keep up is
// dropped, and nothing is buffered across disconnects.
type Hub struct {
	// Registered subscribers.
	clients map[*Client]bool

	// Outbound messages for global broadcast.
	Broadcast chan []byte

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Broadcast:  make(chan []byte, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Run starts the Hub's message processing loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
			metrics.ConnectedClients.Set(float64(len(h.clients)))
			log.Info().Int("total_clients", len(h.clients)).Msg("Live feed client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				metrics.ConnectedClients.Set(float64(len(h.clients)))
				log.Info().Int("total_clients", len(h.clients)).Msg("Live feed client disconnected")
			}
		case message := <-h.Broadcast:
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// Slow subscriber: drop it, the others are unaffected.
					close(client.Send)
					delete(h.clients, client)
					metrics.ConnectedClients.Set(float64(len(h.clients)))
				}
			}
		}
	}
}

// BroadcastEvent serializes a processed event and queues it for fan-out.
func (h *Hub) BroadcastEvent(event models.Event) {
	data, err := json.Marshal(Message{Type: "event", Payload: event})
	if err != nil {
		log.Error().Err(err).Int64("event_id", event.ID).Msg("Failed to serialize event for broadcast")
		return
	}
	select {
	case h.Broadcast <- data:
	default:
		// Broadcast queue full; live feed is best effort.
		log.Warn().Int64("event_id", event.ID).Msg("Broadcast queue full, dropping event")
	}
}
