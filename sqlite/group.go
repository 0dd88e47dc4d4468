package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/studyhallbot/studyhall"
)

const (
	selectAllGroups = "SELECT id, name, creator_id, max_size, end_time, guild_id, admin_role_id, session_role_id, voice_channel_id, created_at, updated_at FROM study_groups"

	selectGroupByMember = `SELECT g.id, g.name, g.creator_id, g.max_size, g.end_time, g.guild_id, g.admin_role_id, g.session_role_id, g.voice_channel_id, g.created_at, g.updated_at
FROM study_groups g JOIN group_members m ON g.id = m.group_id WHERE m.user_id = ?`
)

type groupEntity struct {
	ID             string
	Name           string
	CreatorID      string
	MaxSize        int
	EndTime        int64
	GuildID        string
	AdminRoleID    string
	SessionRoleID  string
	VoiceChannelID string
	CreatedAt      int64
	UpdatedAt      int64
}

type groupRepo struct {
	dbGetter txStdLib.DBGetter
	l        log.Logger
}

func NewGroupRepo(dbGetter txStdLib.DBGetter, logger log.Logger) *groupRepo {
	return &groupRepo{
		dbGetter: dbGetter,
		l:        logger,
	}
}

func (r *groupRepo) InsertGroup(ctx context.Context, group studyhall.StudyGroupRecord) (studyhall.ExistingStudyGroupRecord, error) {
	if group.Name == "" || group.CreatorID == "" || group.GuildID == "" {
		return studyhall.ExistingStudyGroupRecord{}, fmt.Errorf("provide required fields 'Name', 'CreatorID', and 'GuildID'")
	}

	db := r.dbGetter(ctx)

	existingRecord := studyhall.ExistingStudyGroupRecord{
		StudyGroupRecord: group,
		ExistingRecord:   studyhall.NewExistingRecord[studyhall.GroupID](uuid.NewString()),
	}
	e := mapToGroupEntity(existingRecord)

	args := []any{
		e.ID,
		e.Name,
		e.CreatorID,
		e.MaxSize,
		e.EndTime,
		e.GuildID,
		e.AdminRoleID,
		e.SessionRoleID,
		e.VoiceChannelID,
		e.CreatedAt,
		e.UpdatedAt,
	}
	query := "INSERT INTO study_groups (id, name, creator_id, max_size, end_time, guild_id, admin_role_id, session_role_id, voice_channel_id, created_at, updated_at) VALUES " + GenerateParameters(len(args))
	r.l.Debug("creating study group", "query", query, "args", args)
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return studyhall.ExistingStudyGroupRecord{}, err
	}

	return existingRecord, nil
}

func (r *groupRepo) GetGroupByGuild(ctx context.Context, guildID string) (studyhall.ExistingStudyGroupRecord, error) {
	if guildID == "" {
		return studyhall.ExistingStudyGroupRecord{}, fmt.Errorf("provide guildID")
	}

	db := r.dbGetter(ctx)
	row := db.QueryRowContext(ctx, fmt.Sprintf("%s WHERE guild_id=?", selectAllGroups), guildID)
	return extractGroup(row)
}

func (r *groupRepo) GetGroupByMember(ctx context.Context, userID string) (studyhall.ExistingStudyGroupRecord, error) {
	if userID == "" {
		return studyhall.ExistingStudyGroupRecord{}, fmt.Errorf("provide userID")
	}

	db := r.dbGetter(ctx)
	row := db.QueryRowContext(ctx, selectGroupByMember, userID)
	return extractGroup(row)
}

func (r *groupRepo) DeleteGroup(ctx context.Context, id studyhall.GroupID) (studyhall.ExistingStudyGroupRecord, error) {
	existing, err := r.getGroupByID(ctx, id)
	if err != nil {
		return studyhall.ExistingStudyGroupRecord{}, err
	}

	db := r.dbGetter(ctx)
	r.l.Debug("deleting study group", "id", id)
	if _, err := db.ExecContext(ctx, "DELETE FROM group_members WHERE group_id = ?", id); err != nil {
		return studyhall.ExistingStudyGroupRecord{}, err
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM study_groups WHERE id = ?", id); err != nil {
		return studyhall.ExistingStudyGroupRecord{}, err
	}

	return existing, nil
}

func (r *groupRepo) UpdateGroupRoles(ctx context.Context, id studyhall.GroupID, adminRoleID, sessionRoleID string) error {
	query := "UPDATE study_groups SET admin_role_id = ?, session_role_id = ?, updated_at = ? WHERE id = ?"
	r.l.Debug("updating study group roles", "query", query, "id", id)
	res, err := r.dbGetter(ctx).ExecContext(ctx, query, adminRoleID, sessionRoleID, time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *groupRepo) UpdateGroupVoiceChannel(ctx context.Context, id studyhall.GroupID, cid studyhall.VoiceChannelID) error {
	query := "UPDATE study_groups SET voice_channel_id = ?, updated_at = ? WHERE id = ?"
	r.l.Debug("updating study group voice channel", "query", query, "id", id, "cid", cid)
	res, err := r.dbGetter(ctx).ExecContext(ctx, query, string(cid), time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *groupRepo) GetGroupsWithVoiceChannels(ctx context.Context) ([]studyhall.ExistingStudyGroupRecord, error) {
	db := r.dbGetter(ctx)
	query := fmt.Sprintf("%s WHERE voice_channel_id != ''", selectAllGroups)
	r.l.Debug("getting groups with voice channels", "query", query)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint

	var groups []studyhall.ExistingStudyGroupRecord
	for rows.Next() {
		group, err := extractGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *groupRepo) AddGroupMember(ctx context.Context, id studyhall.GroupID, userID string) error {
	if id == "" || userID == "" {
		return fmt.Errorf("provide group id and userID")
	}

	query := "INSERT OR IGNORE INTO group_members (group_id, user_id) VALUES (?, ?)"
	r.l.Debug("adding group member", "groupID", id, "userID", userID)
	_, err := r.dbGetter(ctx).ExecContext(ctx, query, id, userID)
	return err
}

func (r *groupRepo) RemoveGroupMember(ctx context.Context, id studyhall.GroupID, userID string) error {
	query := "DELETE FROM group_members WHERE group_id = ? AND user_id = ?"
	r.l.Debug("removing group member", "groupID", id, "userID", userID)
	_, err := r.dbGetter(ctx).ExecContext(ctx, query, id, userID)
	return err
}

func (r *groupRepo) GetGroupMembers(ctx context.Context, id studyhall.GroupID) ([]string, error) {
	db := r.dbGetter(ctx)
	rows, err := db.QueryContext(ctx, "SELECT user_id FROM group_members WHERE group_id = ?", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint

	var members []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		members = append(members, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}

func (r *groupRepo) getGroupByID(ctx context.Context, id studyhall.GroupID) (studyhall.ExistingStudyGroupRecord, error) {
	if id == "" {
		return studyhall.ExistingStudyGroupRecord{}, fmt.Errorf("provide id")
	}

	db := r.dbGetter(ctx)
	row := db.QueryRowContext(ctx, fmt.Sprintf("%s WHERE id=?", selectAllGroups), id)
	return extractGroup(row)
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func extractGroup(s Scannable) (studyhall.ExistingStudyGroupRecord, error) {
	var e groupEntity
	if err := s.Scan(&e.ID, &e.Name, &e.CreatorID, &e.MaxSize, &e.EndTime, &e.GuildID, &e.AdminRoleID, &e.SessionRoleID, &e.VoiceChannelID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return studyhall.ExistingStudyGroupRecord{}, ErrNotFound
		}
		return studyhall.ExistingStudyGroupRecord{}, err
	}

	return mapToExistingGroupRecord(e), nil
}

func mapToGroupEntity(group studyhall.ExistingStudyGroupRecord) groupEntity {
	return groupEntity{
		ID:             string(group.ID),
		Name:           group.Name,
		CreatorID:      group.CreatorID,
		MaxSize:        group.MaxSize,
		EndTime:        group.EndTime.Unix(),
		GuildID:        group.GuildID,
		AdminRoleID:    group.AdminRoleID,
		SessionRoleID:  group.SessionRoleID,
		VoiceChannelID: string(group.VoiceCID),
		CreatedAt:      group.CreatedAt.Unix(),
		UpdatedAt:      group.UpdatedAt.Unix(),
	}
}

func mapToExistingGroupRecord(e groupEntity) studyhall.ExistingStudyGroupRecord {
	return studyhall.ExistingStudyGroupRecord{
		ExistingRecord: studyhall.ExistingRecord[studyhall.GroupID]{
			ID:        studyhall.GroupID(e.ID),
			CreatedAt: time.Unix(e.CreatedAt, 0),
			UpdatedAt: time.Unix(e.UpdatedAt, 0),
		},
		StudyGroupRecord: studyhall.StudyGroupRecord{
			Name:          e.Name,
			CreatorID:     e.CreatorID,
			MaxSize:       e.MaxSize,
			EndTime:       time.Unix(e.EndTime, 0),
			GuildID:       e.GuildID,
			AdminRoleID:   e.AdminRoleID,
			SessionRoleID: e.SessionRoleID,
			VoiceCID:      studyhall.VoiceChannelID(e.VoiceChannelID),
		},
	}
}
