// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package dispatcher

import (
	"sync"

	"github.com/atp-router/routerd/adapterrpc"
	"github.com/dgryski/go-rendezvous"
)

// Pool maintains one adapter RPC client per adapter id (§4.4), and uses
// rendezvous hashing over the registered adapter ids to pick a stable
// adapter for a given stream id.
type Pool struct {
	mu       sync.RWMutex
	clients  map[string]AdapterClient
	rendez   *rendezvous.Rendezvous
	shardIDs []string
}

// AdapterClient pairs a registered adapter id with its RPC client.
type AdapterClient struct {
	AdapterID string
	Client    adapterrpc.Client
}

func hashShard(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

// NewPool returns an empty adapter pool.
func NewPool() *Pool {
	return &Pool{
		clients: make(map[string]AdapterClient),
		rendez:  rendezvous.New(nil, func(s string) uint64 { return hashShard(s) }),
	}
}

// Register adds or replaces the client for adapterID.
func (p *Pool) Register(adapterID string, client adapterrpc.Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.clients[adapterID]; !exists {
		p.shardIDs = append(p.shardIDs, adapterID)
		p.rendez.Add(adapterID)
	}
	p.clients[adapterID] = AdapterClient{AdapterID: adapterID, Client: client}
}

// Deregister removes adapterID from the pool.
func (p *Pool) Deregister(adapterID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.clients[adapterID]; !exists {
		return
	}
	delete(p.clients, adapterID)
	p.rendez.Remove(adapterID)
	shards := p.shardIDs[:0]
	for _, id := range p.shardIDs {
		if id != adapterID {
			shards = append(shards, id)
		}
	}
	p.shardIDs = shards
}

// Get returns the client registered for adapterID.
func (p *Pool) Get(adapterID string) (AdapterClient, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.clients[adapterID]
	return c, ok
}

// ShardFor picks the adapter id that owns streamID among all registered
// adapter ids, using rendezvous hashing so that membership
// changes elsewhere in the pool only reassign the streams owned by the
// adapter that changed (§4.4 "pool of adapter RPC clients").
func (p *Pool) ShardFor(streamID string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.shardIDs) == 0 {
		return "", false
	}
	return p.rendez.Lookup(streamID), true
}

// Len returns the number of registered adapters.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.clients)
}
