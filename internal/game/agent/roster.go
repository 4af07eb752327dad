package agent

// PartyPlayer is a human party member in roster order.
type PartyPlayer struct {
	LoginNumber uint32 `json:"login_number"`
	AgentID     ID     `json:"agent_id"`
}

// PartyAlly is an allied npc (hero) owned by a human party member.
type PartyAlly struct {
	OwnerLogin uint32 `json:"owner_login"`
	AgentID    ID     `json:"agent_id"`
}

// Roster is the host's view of the current party composition.
type Roster struct {
	Players []PartyPlayer `json:"players"`
	Allies  []PartyAlly   `json:"allies"`
}

// Size returns the number of players plus allies.
func (r Roster) Size() int {
	return len(r.Players) + len(r.Allies)
}

// RosterSource provides the party roster.
type RosterSource interface {
	// Roster returns the current roster. The boolean is false while the party
	// is not fully loaded (e.g. during a loading screen).
	Roster() (Roster, bool)
}
