package videooutput

// ClientRegistry owns every logical producer. Clients are kept in
// registration order so status output is stable.
type ClientRegistry struct {
	clients []*Client
	byID    map[string]*Client
}

func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{byID: make(map[string]*Client)}
}

// Register creates a client called id.
func (r *ClientRegistry) Register(id string) (*Client, error) {
	if _, ok := r.byID[id]; ok {
		return nil, ErrAlreadyRegistered
	}
	c := newClient(id)
	r.clients = append(r.clients, c)
	r.byID[id] = c
	return c, nil
}

// Unregister removes the client called id.
func (r *ClientRegistry) Unregister(id string) error {
	if _, ok := r.byID[id]; !ok {
		return ErrNotRegistered
	}
	delete(r.byID, id)
	for i, c := range r.clients {
		if c.ID == id {
			r.clients = append(r.clients[:i], r.clients[i+1:]...)
			break
		}
	}
	return nil
}

// FindByID returns the client called id, or nil.
func (r *ClientRegistry) FindByID(id string) *Client {
	return r.byID[id]
}

// FindBoundTo returns the active client bound to sinkName, or nil.
func (r *ClientRegistry) FindBoundTo(sinkName string) *Client {
	for _, c := range r.clients {
		if c.Activation && c.SinkName == sinkName {
			return c
		}
	}
	return nil
}

// Bind makes c the only active client of sinkName. A previously bound
// client is deactivated and returned.
func (r *ClientRegistry) Bind(c *Client, sinkName string) *Client {
	prev := r.FindBoundTo(sinkName)
	if prev == c {
		prev = nil
	}
	if prev != nil {
		prev.Activation = false
	}
	c.SinkName = sinkName
	c.Activation = true
	return prev
}

// Len is the number of registered clients.
func (r *ClientRegistry) Len() int {
	return len(r.clients)
}
