package hub

import (
	"encoding/json"
	"sync"

	"github.com/sovanra-ruos/chat-service/internal/config"
	"github.com/sovanra-ruos/chat-service/pkg/log"
)

// Hub routes broadcast payloads to the clients subscribed to each topic.
// Clients subscribe to a room's chat topic and presence topic separately.
type Hub struct {
	clients    map[string]*Client            // client ID -> client
	topics     map[string]map[string]*Client // topic -> client ID -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *TopicMessage
	mu         sync.RWMutex
	config     config.WebSocketConfig
}

type TopicMessage struct {
	Topic   string
	Message []byte
}

func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		topics:     make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *TopicMessage, 256),
		config:     cfg,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str("client_id", client.ID).Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				for topic, subs := range h.topics {
					delete(subs, client.ID)
					if len(subs) == 0 {
						delete(h.topics, topic)
					}
				}
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str("client_id", client.ID).Msg("client unregistered")

		case msg := <-h.broadcast:
			h.mu.RLock()
			if subs, ok := h.topics[msg.Topic]; ok {
				for _, client := range subs {
					select {
					case client.Send <- msg.Message:
					default:
						go h.removeClient(client)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) Subscribe(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.topics[topic]; !ok {
		h.topics[topic] = make(map[string]*Client)
	}
	h.topics[topic][client.ID] = client
	l := log.L()
	l.Info().Str("client_id", client.ID).Str(log.FieldTopic, topic).Msg("client subscribed")
}

func (h *Hub) Unsubscribe(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.topics[topic]; ok {
		delete(subs, client.ID)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	l := log.L()
	l.Info().Str("client_id", client.ID).Str(log.FieldTopic, topic).Msg("client unsubscribed")
}

// Broadcast queues a payload for every client subscribed to the topic.
func (h *Hub) Broadcast(topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	h.broadcast <- &TopicMessage{
		Topic:   topic,
		Message: data,
	}
	return nil
}

func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if subs, ok := h.topics[topic]; ok {
		return len(subs)
	}
	return 0
}

func (h *Hub) removeClient(client *Client) {
	h.unregister <- client
}
