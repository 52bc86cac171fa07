package memory

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/edulab-tools/usersync/pkg/domain/interfaces"
	"github.com/edulab-tools/usersync/pkg/domain/model"
	"github.com/edulab-tools/usersync/pkg/domain/types"
)

type groupMember struct {
	groupID types.GroupID
	userID  types.UserID
}

type groupsRepository struct {
	mu      sync.RWMutex
	groups  map[types.GroupID]*model.Group
	members []groupMember
	nextID  types.GroupID
}

var _ interfaces.GroupsRepository = &groupsRepository{}

func newGroupsRepository() *groupsRepository {
	return &groupsRepository{
		groups: make(map[types.GroupID]*model.Group),
		nextID: 1,
	}
}

func (r *groupsRepository) ListByCourse(ctx context.Context, courseID types.CourseID) ([]model.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []model.Group
	for _, g := range r.groups {
		if g.CourseID == courseID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (r *groupsRepository) Create(ctx context.Context, g *model.Group) (types.GroupID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.groups {
		if existing.CourseID == g.CourseID && existing.Name == g.Name {
			return 0, goerr.Wrap(ErrDuplicate, "group name already exists in course",
				goerr.V("name", g.Name), goerr.V("course", g.CourseID))
		}
	}

	created := *g
	created.ID = r.nextID
	r.nextID++
	r.groups[created.ID] = &created
	return created.ID, nil
}

func (r *groupsRepository) AddMember(ctx context.Context, groupID types.GroupID, userID types.UserID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.groups[groupID]; !ok {
		return false, goerr.Wrap(ErrNotFound, "group not found", goerr.V("id", groupID))
	}
	for _, m := range r.members {
		if m.groupID == groupID && m.userID == userID {
			return false, nil
		}
	}
	r.members = append(r.members, groupMember{groupID: groupID, userID: userID})
	return true, nil
}

// SeedGroup registers a group for tests and development runs.
func (m *Memory) SeedGroup(g model.Group) types.GroupID {
	m.groups.mu.Lock()
	defer m.groups.mu.Unlock()

	if g.ID == 0 {
		g.ID = m.groups.nextID
	}
	if g.ID >= m.groups.nextID {
		m.groups.nextID = g.ID + 1
	}
	stored := g
	m.groups.groups[g.ID] = &stored
	return g.ID
}

// GroupMemberCount returns the membership count of a group, for tests.
func (m *Memory) GroupMemberCount(id types.GroupID) int {
	m.groups.mu.RLock()
	defer m.groups.mu.RUnlock()

	n := 0
	for _, member := range m.groups.members {
		if member.groupID == id {
			n++
		}
	}
	return n
}
