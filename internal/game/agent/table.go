package agent

// Table is a map-backed Resolver. Replay hosts and tests populate it directly.
type Table struct {
	agents map[ID]Agent
	names  map[uint32]string
	self   ID
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{
		agents: make(map[ID]Agent),
		names:  make(map[uint32]string),
	}
}

// Put inserts or replaces a's snapshot.
func (t *Table) Put(a Agent) {
	t.agents[a.ID] = a
}

// Remove drops the snapshot for id.
func (t *Table) Remove(id ID) {
	delete(t.agents, id)
}

// Clear drops every agent snapshot. Player names and self are kept.
func (t *Table) Clear() {
	clear(t.agents)
}

// SetName records the display name of a login number.
func (t *Table) SetName(loginNumber uint32, name string) {
	t.names[loginNumber] = name
}

// SetSelf marks id as the local player's agent.
func (t *Table) SetSelf(id ID) {
	t.self = id
}

// Agent implements Resolver.
func (t *Table) Agent(id ID) (Agent, bool) {
	a, ok := t.agents[id]
	return a, ok
}

// PlayerName implements Resolver.
func (t *Table) PlayerName(loginNumber uint32) string {
	return t.names[loginNumber]
}

// Self implements Resolver.
func (t *Table) Self() (Agent, bool) {
	if t.self == 0 {
		return Agent{}, false
	}
	return t.Agent(t.self)
}

// Len returns the number of agent snapshots.
func (t *Table) Len() int {
	return len(t.agents)
}
