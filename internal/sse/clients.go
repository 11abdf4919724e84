// Package sse provides Server-Sent Events client management for real-time communication.
package sse

import (
	"sync"
)

// Event is one server-sent event. An empty Name sends an unnamed message.
type Event struct {
	Name string
	Data string
}

// Client receives the events published on its topic.
type Client struct {
	Msg   chan Event
	Topic string
}

func NewClient(topic string, buffer int) *Client {
	return &Client{
		Msg:   make(chan Event, buffer),
		Topic: topic,
	}
}

type SSEClients struct {
	clients map[*Client]bool
	mu      sync.RWMutex
}

func NewSSEClients() *SSEClients {
	return &SSEClients{
		clients: make(map[*Client]bool),
	}
}

func (s *SSEClients) Add(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = true
}

func (s *SSEClients) Delete(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[client] {
		delete(s.clients, client)
		close(client.Msg)
	}
}

func (s *SSEClients) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Publish sends event to every client on topic. Slow clients miss events
// instead of blocking the publisher.
func (s *SSEClients) Publish(topic string, event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients {
		if client.Topic == topic {
			select {
			case client.Msg <- event:
			default:
			}
		}
	}
}
