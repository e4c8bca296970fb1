package arena

// Team is one color group of an arena. It only holds participant ids, never
// the participants themselves.
type Team struct {
	// Color is the unique key of the team within the arena.
	Color Color
	// Capacity is the maximum number of members.
	Capacity int
	// members in join order.
	members    []ParticipantID
	bedAlive   bool
	eliminated bool
}

// NewTeam creates an empty Team with an alive bed.
func NewTeam(color Color, capacity int) *Team {
	return &Team{
		Color:    color,
		Capacity: capacity,
		bedAlive: true,
	}
}

// Members returns a copy of the member ids in join order.
func (t *Team) Members() []ParticipantID {
	members := make([]ParticipantID, len(t.members))
	copy(members, t.members)
	return members
}

// Size returns the number of members.
func (t *Team) Size() int {
	return len(t.members)
}

// IsFull checks whether the team reached its capacity.
func (t *Team) IsFull() bool {
	return len(t.members) >= t.Capacity
}

// Has checks whether the participant is a member.
func (t *Team) Has(id ParticipantID) bool {
	for _, member := range t.members {
		if member == id {
			return true
		}
	}
	return false
}

// add the participant. Returns false if full or already a member.
func (t *Team) add(id ParticipantID) bool {
	if t.IsFull() || t.Has(id) {
		return false
	}
	t.members = append(t.members, id)
	return true
}

// remove the participant. Returns false if not a member.
func (t *Team) remove(id ParticipantID) bool {
	for i, member := range t.members {
		if member == id {
			t.members = append(t.members[:i], t.members[i+1:]...)
			return true
		}
	}
	return false
}

// BedAlive describes whether members still respawn.
func (t *Team) BedAlive() bool {
	return t.bedAlive
}

// DestroyBed marks the bed as destroyed. It returns false if it was already
// destroyed.
func (t *Team) DestroyBed() bool {
	if !t.bedAlive {
		return false
	}
	t.bedAlive = false
	return true
}

// Eliminated describes whether the team is out of the match.
func (t *Team) Eliminated() bool {
	return t.eliminated
}

// Eliminate marks the team as eliminated. It returns true only for the call
// that actually eliminated the team. There is no way back except for a reset
// of the arena.
func (t *Team) Eliminate() bool {
	if t.eliminated {
		return false
	}
	t.eliminated = true
	return true
}

// resetFlags restores the bed and clears elimination.
func (t *Team) resetFlags() {
	t.bedAlive = true
	t.eliminated = false
}
