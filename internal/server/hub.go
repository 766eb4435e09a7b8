package server

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"

	"arkham-nexus/internal/events"
	"arkham-nexus/internal/repository"
)

const maxConnectionsPerUser = 10

// Hub fans scheduling events published on the group channels out to
// connected clients. A client only receives events for groups its user
// is a member of.
type Hub struct {
	clients    map[uuid.UUID]map[string]*Client
	register   chan *Client
	unregister chan *Client
	subscriber events.Subscriber
	userRepo   repository.UserRepository
	logger     *WebSocketLogger
	mu         sync.RWMutex
	stopChan   chan struct{}
	wg         sync.WaitGroup
}

func NewHub(subscriber events.Subscriber, userRepo repository.UserRepository) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[string]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		subscriber: subscriber,
		userRepo:   userRepo,
		logger:     NewWebSocketLogger(),
		stopChan:   make(chan struct{}),
	}
}

// Run pumps registrations and published events until Stop or ctx
// cancellation.
func (h *Hub) Run(ctx context.Context) {
	messages, err := h.subscriber.Subscribe(ctx, events.ChannelPrefixGroup+"*")
	if err != nil {
		h.logger.logger.Error("event stream subscription failed")
		return
	}

	for {
		select {
		case client := <-h.register:
			h.handleRegister(ctx, client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case msg, ok := <-messages:
			if !ok {
				return
			}
			h.handleEvent(msg)

		case <-ctx.Done():
			return

		case <-h.stopChan:
			h.wg.Wait()
			return
		}
	}
}

func (h *Hub) handleRegister(ctx context.Context, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.userID] == nil {
		h.clients[client.userID] = make(map[string]*Client)
	}
	if len(h.clients[client.userID]) >= maxConnectionsPerUser {
		h.logger.Warn("max connections per user reached", client.userID, client.clientID)
		for id, c := range h.clients[client.userID] {
			h.removeClient(c)
			delete(h.clients[client.userID], id)
			break
		}
	}
	h.clients[client.userID][client.clientID] = client

	if err := h.refreshGroups(ctx, client); err != nil {
		h.logger.Error("loading group memberships failed", client.userID, client.clientID, err)
	}

	h.logger.Info("client connected", client.userID, client.clientID)

	go client.writePump()
	go client.readPump()
}

// refreshGroups reloads the client's membership set; the filter the
// broadcast path consults.
func (h *Hub) refreshGroups(ctx context.Context, client *Client) error {
	ids, err := h.userRepo.ListGroupIDs(ctx, client.userID)
	if err != nil {
		return err
	}
	groups := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		groups[id] = true
	}
	client.groups = groups
	return nil
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if userClients, ok := h.clients[client.userID]; ok {
		if _, ok := userClients[client.clientID]; ok {
			delete(userClients, client.clientID)
			h.removeClient(client)
			if len(userClients) == 0 {
				delete(h.clients, client.userID)
			}
			h.logger.Info("client disconnected", client.userID, client.clientID)
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	close(client.send)
	client.conn.Close()
}

// handleEvent routes one published envelope to every member client of
// the owning group.
func (h *Hub) handleEvent(msg events.Message) {
	groupID, err := uuid.Parse(strings.TrimPrefix(msg.Channel, events.ChannelPrefixGroup))
	if err != nil {
		return
	}
	var env events.Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, userClients := range h.clients {
		for _, client := range userClients {
			if !client.groups[groupID] {
				continue
			}
			select {
			case client.send <- msg.Payload:
			default:
				h.logger.Warn("client send buffer full", client.userID, client.clientID)
			}
		}
	}
}

// Stop disconnects every client and halts the hub.
func (h *Hub) Stop() {
	close(h.stopChan)
	h.wg.Wait()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, userClients := range h.clients {
		for _, client := range userClients {
			h.removeClient(client)
		}
	}
	h.clients = make(map[uuid.UUID]map[string]*Client)
}
