package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhallbot/studyhall"
	"github.com/studyhallbot/studyhall/sqlite"
)

func adminResolver() *PermissionResolver {
	// no stored grants; callers pass platformAdmin to clear the bar
	return NewPermissionResolver(&mockManagerRepo{})
}

func existingGroup() studyhall.ExistingStudyGroupRecord {
	return studyhall.ExistingStudyGroupRecord{
		ExistingRecord: studyhall.NewExistingRecord[studyhall.GroupID]("group-1"),
		StudyGroupRecord: studyhall.StudyGroupRecord{
			Name:          "calc study",
			CreatorID:     "creator",
			MaxSize:       3,
			EndTime:       time.Now().Add(time.Hour),
			GuildID:       "guild123",
			AdminRoleID:   "role-admin",
			SessionRoleID: "role-session",
		},
	}
}

func TestGroupManager_CreateGroup(t *testing.T) {
	t.Parallel()

	t.Run("permission denied for regular users", func(t *testing.T) {
		t.Parallel()
		m := NewGroupManager(&mockGroupRepo{}, adminResolver(), &mockGateway{}, nil, nil, &mockTransactor{})

		_, err := m.CreateGroup(context.Background(), "guild123", "creator", "calc study", 0, false)
		assert.ErrorIs(t, err, studyhall.ErrPermissionDenied)
	})

	t.Run("one group per guild", func(t *testing.T) {
		t.Parallel()
		repo := &mockGroupRepo{
			getGroupByGuildFunc: func(ctx context.Context, guildID string) (studyhall.ExistingStudyGroupRecord, error) {
				return existingGroup(), nil
			},
		}
		m := NewGroupManager(repo, adminResolver(), &mockGateway{}, nil, nil, &mockTransactor{})

		_, err := m.CreateGroup(context.Background(), "guild123", "creator", "another", 0, true)
		assert.ErrorIs(t, err, studyhall.ErrDuplicateGroup)
	})

	t.Run("success provisions roles", func(t *testing.T) {
		t.Parallel()

		var inserted studyhall.StudyGroupRecord
		var addedMember string
		repo := &mockGroupRepo{
			insertGroupFunc: func(ctx context.Context, group studyhall.StudyGroupRecord) (studyhall.ExistingStudyGroupRecord, error) {
				inserted = group
				return studyhall.ExistingStudyGroupRecord{
					ExistingRecord:   studyhall.NewExistingRecord[studyhall.GroupID]("group-1"),
					StudyGroupRecord: group,
				}, nil
			},
			addGroupMemberFunc: func(ctx context.Context, id studyhall.GroupID, userID string) error {
				addedMember = userID
				return nil
			},
		}
		var roleNames []string
		var assignedRoles []string
		gw := &mockGateway{
			createRoleFunc: func(guildID, name string, mentionable bool) (string, error) {
				roleNames = append(roleNames, name)
				return "role-" + name, nil
			},
			assignRoleFunc: func(guildID, userID, roleID string) error {
				assignedRoles = append(assignedRoles, roleID)
				return nil
			},
		}
		m := NewGroupManager(repo, adminResolver(), gw, nil, nil, &mockTransactor{})

		group, err := m.CreateGroup(context.Background(), "guild123", "creator", "calc study", 0, true)
		require.NoError(t, err)

		assert.Equal(t, defaultMaxGroupSize, inserted.MaxSize)
		assert.Equal(t, "creator", addedMember)
		assert.Equal(t, []string{"Study Group: calc study", "In calc study"}, roleNames)
		assert.Equal(t, "role-Study Group: calc study", group.AdminRoleID)
		assert.Equal(t, "role-In calc study", group.SessionRoleID)
		// creator gets both roles
		assert.Equal(t, []string{group.AdminRoleID, group.SessionRoleID}, assignedRoles)
	})

	t.Run("role provisioning failure surfaces after commit", func(t *testing.T) {
		t.Parallel()
		gw := &mockGateway{
			createRoleFunc: func(guildID, name string, mentionable bool) (string, error) {
				return "", assert.AnError
			},
		}
		m := NewGroupManager(&mockGroupRepo{}, adminResolver(), gw, nil, nil, &mockTransactor{})

		group, err := m.CreateGroup(context.Background(), "guild123", "creator", "calc study", 0, true)
		require.Error(t, err)
		// the committed record is returned so the caller can recover
		assert.NotEmpty(t, group.ID)
	})
}

func TestGroupManager_JoinGroup(t *testing.T) {
	t.Parallel()

	t.Run("already in a group", func(t *testing.T) {
		t.Parallel()
		repo := &mockGroupRepo{
			getGroupByMemberFunc: func(ctx context.Context, userID string) (studyhall.ExistingStudyGroupRecord, error) {
				return existingGroup(), nil
			},
		}
		m := NewGroupManager(repo, adminResolver(), &mockGateway{}, nil, nil, &mockTransactor{})

		_, err := m.JoinGroup(context.Background(), "guild123", "user1")
		assert.ErrorIs(t, err, studyhall.ErrAlreadyInGroup)
	})

	t.Run("no group in guild", func(t *testing.T) {
		t.Parallel()
		m := NewGroupManager(&mockGroupRepo{}, adminResolver(), &mockGateway{}, nil, nil, &mockTransactor{})

		_, err := m.JoinGroup(context.Background(), "guild123", "user1")
		assert.ErrorIs(t, err, studyhall.ErrNoSuchGroup)
	})

	t.Run("group full", func(t *testing.T) {
		t.Parallel()
		repo := &mockGroupRepo{
			getGroupByGuildFunc: func(ctx context.Context, guildID string) (studyhall.ExistingStudyGroupRecord, error) {
				return existingGroup(), nil
			},
			getGroupMembersFunc: func(ctx context.Context, id studyhall.GroupID) ([]string, error) {
				return []string{"creator", "a", "b"}, nil
			},
		}
		m := NewGroupManager(repo, adminResolver(), &mockGateway{}, nil, nil, &mockTransactor{})

		_, err := m.JoinGroup(context.Background(), "guild123", "user1")
		assert.ErrorIs(t, err, studyhall.ErrGroupFull)
	})

	t.Run("success assigns session role", func(t *testing.T) {
		t.Parallel()
		var addedMember string
		repo := &mockGroupRepo{
			getGroupByGuildFunc: func(ctx context.Context, guildID string) (studyhall.ExistingStudyGroupRecord, error) {
				return existingGroup(), nil
			},
			getGroupMembersFunc: func(ctx context.Context, id studyhall.GroupID) ([]string, error) {
				return []string{"creator"}, nil
			},
			addGroupMemberFunc: func(ctx context.Context, id studyhall.GroupID, userID string) error {
				addedMember = userID
				return nil
			},
		}
		var assignedRole string
		gw := &mockGateway{
			assignRoleFunc: func(guildID, userID, roleID string) error {
				assignedRole = roleID
				return nil
			},
		}
		m := NewGroupManager(repo, adminResolver(), gw, nil, nil, &mockTransactor{})

		group, err := m.JoinGroup(context.Background(), "guild123", "user1")
		require.NoError(t, err)
		assert.Equal(t, "calc study", group.Name)
		assert.Equal(t, "user1", addedMember)
		assert.Equal(t, "role-session", assignedRole)
	})
}

func TestGroupManager_LeaveGroup(t *testing.T) {
	t.Parallel()

	t.Run("not in the group", func(t *testing.T) {
		t.Parallel()
		repo := &mockGroupRepo{
			getGroupByGuildFunc: func(ctx context.Context, guildID string) (studyhall.ExistingStudyGroupRecord, error) {
				return existingGroup(), nil
			},
			getGroupMembersFunc: func(ctx context.Context, id studyhall.GroupID) ([]string, error) {
				return []string{"creator"}, nil
			},
		}
		m := NewGroupManager(repo, adminResolver(), &mockGateway{}, nil, nil, &mockTransactor{})

		_, _, err := m.LeaveGroup(context.Background(), "guild123", "user1")
		assert.ErrorIs(t, err, studyhall.ErrNotInGroup)
	})

	t.Run("members remain", func(t *testing.T) {
		t.Parallel()
		members := []string{"creator", "user1"}
		deleted := false
		repo := &mockGroupRepo{
			getGroupByGuildFunc: func(ctx context.Context, guildID string) (studyhall.ExistingStudyGroupRecord, error) {
				return existingGroup(), nil
			},
			getGroupMembersFunc: func(ctx context.Context, id studyhall.GroupID) ([]string, error) {
				return members, nil
			},
			removeGroupMemberFunc: func(ctx context.Context, id studyhall.GroupID, userID string) error {
				members = []string{"creator"}
				return nil
			},
			deleteGroupFunc: func(ctx context.Context, id studyhall.GroupID) (studyhall.ExistingStudyGroupRecord, error) {
				deleted = true
				return existingGroup(), nil
			},
		}
		m := NewGroupManager(repo, adminResolver(), &mockGateway{}, nil, nil, &mockTransactor{})

		_, tornDown, err := m.LeaveGroup(context.Background(), "guild123", "user1")
		require.NoError(t, err)
		assert.False(t, tornDown)
		assert.False(t, deleted)
	})

	t.Run("last member leaving tears down", func(t *testing.T) {
		t.Parallel()
		members := []string{"creator"}
		deleteCalls := 0
		repo := &mockGroupRepo{
			getGroupByGuildFunc: func(ctx context.Context, guildID string) (studyhall.ExistingStudyGroupRecord, error) {
				return existingGroup(), nil
			},
			getGroupMembersFunc: func(ctx context.Context, id studyhall.GroupID) ([]string, error) {
				return members, nil
			},
			removeGroupMemberFunc: func(ctx context.Context, id studyhall.GroupID, userID string) error {
				members = nil
				return nil
			},
			deleteGroupFunc: func(ctx context.Context, id studyhall.GroupID) (studyhall.ExistingStudyGroupRecord, error) {
				deleteCalls++
				return existingGroup(), nil
			},
		}
		var deletedRoles []string
		gw := &mockGateway{
			deleteRoleFunc: func(guildID, roleID string) error {
				deletedRoles = append(deletedRoles, roleID)
				return nil
			},
		}
		m := NewGroupManager(repo, adminResolver(), gw, nil, nil, &mockTransactor{})

		_, tornDown, err := m.LeaveGroup(context.Background(), "guild123", "creator")
		require.NoError(t, err)
		assert.True(t, tornDown)
		assert.Equal(t, 1, deleteCalls)
		assert.ElementsMatch(t, []string{"role-admin", "role-session"}, deletedRoles)
	})
}

func TestGroupManager_EndGroup(t *testing.T) {
	t.Parallel()

	t.Run("creator only", func(t *testing.T) {
		t.Parallel()
		repo := &mockGroupRepo{
			getGroupByGuildFunc: func(ctx context.Context, guildID string) (studyhall.ExistingStudyGroupRecord, error) {
				return existingGroup(), nil
			},
		}
		m := NewGroupManager(repo, adminResolver(), &mockGateway{}, nil, nil, &mockTransactor{})

		_, err := m.EndGroup(context.Background(), "guild123", "user1")
		assert.ErrorIs(t, err, studyhall.ErrPermissionDenied)
	})

	t.Run("no group", func(t *testing.T) {
		t.Parallel()
		m := NewGroupManager(&mockGroupRepo{}, adminResolver(), &mockGateway{}, nil, nil, &mockTransactor{})

		_, err := m.EndGroup(context.Background(), "guild123", "creator")
		assert.ErrorIs(t, err, studyhall.ErrNoSuchGroup)
	})

	t.Run("teardown order: gateway resources before rows", func(t *testing.T) {
		t.Parallel()
		var order []string
		repo := &mockGroupRepo{
			getGroupByGuildFunc: func(ctx context.Context, guildID string) (studyhall.ExistingStudyGroupRecord, error) {
				return existingGroup(), nil
			},
			deleteGroupFunc: func(ctx context.Context, id studyhall.GroupID) (studyhall.ExistingStudyGroupRecord, error) {
				order = append(order, "rows")
				return existingGroup(), nil
			},
		}
		gw := &mockGateway{
			deleteRoleFunc: func(guildID, roleID string) error {
				order = append(order, "role")
				return nil
			},
		}
		m := NewGroupManager(repo, adminResolver(), gw, nil, nil, &mockTransactor{})

		_, err := m.EndGroup(context.Background(), "guild123", "creator")
		require.NoError(t, err)
		assert.Equal(t, []string{"role", "role", "rows"}, order)
	})

	t.Run("stops the group's pomodoro session", func(t *testing.T) {
		t.Parallel()
		repo := &mockGroupRepo{
			getGroupByGuildFunc: func(ctx context.Context, guildID string) (studyhall.ExistingStudyGroupRecord, error) {
				return existingGroup(), nil
			},
		}
		pomodoros := NewPomodoroManager(context.Background(), &mockGateway{})
		t.Cleanup(pomodoros.Shutdown)
		req := testPomodoroRequest()
		req.groupID = "group-1"
		_, err := pomodoros.Start(req)
		require.NoError(t, err)

		m := NewGroupManager(repo, adminResolver(), &mockGateway{}, nil, pomodoros, &mockTransactor{})
		_, err = m.EndGroup(context.Background(), "guild123", "creator")
		require.NoError(t, err)
		assert.False(t, pomodoros.Has("group-1"))
	})
}

func TestGroupManager_JoinGroup_ConcurrentCapacity(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	members := []string{"creator", "a"} // one open seat at maxSize 3
	repo := &mockGroupRepo{
		getGroupByGuildFunc: func(ctx context.Context, guildID string) (studyhall.ExistingStudyGroupRecord, error) {
			return existingGroup(), nil
		},
		getGroupMembersFunc: func(ctx context.Context, id studyhall.GroupID) ([]string, error) {
			mu.Lock()
			snapshot := append([]string(nil), members...)
			mu.Unlock()
			// widen the capacity-check window
			time.Sleep(20 * time.Millisecond)
			return snapshot, nil
		},
		addGroupMemberFunc: func(ctx context.Context, id studyhall.GroupID, userID string) error {
			mu.Lock()
			members = append(members, userID)
			mu.Unlock()
			return nil
		},
	}
	m := NewGroupManager(repo, adminResolver(), &mockGateway{}, nil, nil, &mockTransactor{})

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, userID := range []string{"u1", "u2"} {
		wg.Go(func() {
			_, err := m.JoinGroup(context.Background(), "guild123", userID)
			errs <- err
		})
	}
	wg.Wait()
	close(errs)

	var joined, full int
	for err := range errs {
		switch {
		case err == nil:
			joined++
		case errors.Is(err, studyhall.ErrGroupFull):
			full++
		default:
			t.Fatalf("unexpected join error: %v", err)
		}
	}
	assert.Equal(t, 1, joined)
	assert.Equal(t, 1, full)
	assert.Len(t, members, 3)
}

func TestGroupManager_JoinGroup_RepoError(t *testing.T) {
	t.Parallel()

	repo := &mockGroupRepo{
		getGroupByMemberFunc: func(ctx context.Context, userID string) (studyhall.ExistingStudyGroupRecord, error) {
			return studyhall.ExistingStudyGroupRecord{}, sqlite.ErrNotFound
		},
		getGroupByGuildFunc: func(ctx context.Context, guildID string) (studyhall.ExistingStudyGroupRecord, error) {
			return studyhall.ExistingStudyGroupRecord{}, assert.AnError
		},
	}
	m := NewGroupManager(repo, adminResolver(), &mockGateway{}, nil, nil, &mockTransactor{})

	_, err := m.JoinGroup(context.Background(), "guild123", "user1")
	assert.ErrorIs(t, err, assert.AnError)
}
