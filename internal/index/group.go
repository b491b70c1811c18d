package index

import "sort"

// GroupIndex maps a group key (an employee ID) to the ascending set of member
// IDs (client IDs) assigned to it. A group with no members has no entry.
type GroupIndex struct {
	groups map[int][]int
}

// NewGroupIndex returns an empty group index.
func NewGroupIndex() *GroupIndex {
	return &GroupIndex{groups: make(map[int][]int)}
}

// Add places member in group. Adding a member already present is a no-op.
func (g *GroupIndex) Add(group, member int) {
	members := g.groups[group]
	i := sort.SearchInts(members, member)
	if i < len(members) && members[i] == member {
		return
	}
	members = append(members, 0)
	copy(members[i+1:], members[i:])
	members[i] = member
	g.groups[group] = members
}

// Remove takes member out of group and reports whether it was present. The
// group entry is deleted once its last member leaves.
func (g *GroupIndex) Remove(group, member int) bool {
	members, ok := g.groups[group]
	if !ok {
		return false
	}
	i := sort.SearchInts(members, member)
	if i >= len(members) || members[i] != member {
		return false
	}
	members = append(members[:i], members[i+1:]...)
	if len(members) == 0 {
		delete(g.groups, group)
		return true
	}
	g.groups[group] = members
	return true
}

// Lookup returns a copy of the members of group. ok is false when the group
// has no members.
func (g *GroupIndex) Lookup(group int) (members []int, ok bool) {
	m, ok := g.groups[group]
	if !ok {
		return nil, false
	}
	out := make([]int, len(m))
	copy(out, m)
	return out, true
}

// Reassign moves member from oldGroup to newGroup.
func (g *GroupIndex) Reassign(oldGroup, newGroup, member int) {
	if oldGroup == newGroup {
		return
	}
	g.Remove(oldGroup, member)
	g.Add(newGroup, member)
}

// Len returns the number of non-empty groups.
func (g *GroupIndex) Len() int { return len(g.groups) }

// Groups returns the keys of all non-empty groups in ascending order.
func (g *GroupIndex) Groups() []int {
	keys := make([]int, 0, len(g.groups))
	for k := range g.groups {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Clear drops every group.
func (g *GroupIndex) Clear() {
	g.groups = make(map[int][]int)
}
