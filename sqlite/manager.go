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

const selectAllGrants = "SELECT id, user_id, guild_id, permission_level, created_at, updated_at FROM manager_grants"

type grantEntity struct {
	ID              string
	UserID          string
	GuildID         string
	PermissionLevel int
	CreatedAt       int64
	UpdatedAt       int64
}

type managerRepo struct {
	dbGetter txStdLib.DBGetter
	l        log.Logger
}

func NewManagerRepo(dbGetter txStdLib.DBGetter, logger log.Logger) *managerRepo {
	return &managerRepo{
		dbGetter: dbGetter,
		l:        logger,
	}
}

func (r *managerRepo) UpsertGrant(ctx context.Context, grant studyhall.ManagerGrantRecord) (studyhall.ExistingManagerGrantRecord, error) {
	if grant.UserID == "" {
		return studyhall.ExistingManagerGrantRecord{}, fmt.Errorf("provide required field 'UserID'")
	}

	db := r.dbGetter(ctx)

	existingRecord := studyhall.ExistingManagerGrantRecord{
		ManagerGrantRecord: grant,
		ExistingRecord:     studyhall.NewExistingRecord[studyhall.GrantID](uuid.NewString()),
	}
	e := mapToGrantEntity(existingRecord)

	args := []any{
		e.ID,
		e.UserID,
		e.GuildID,
		e.PermissionLevel,
		e.CreatedAt,
		e.UpdatedAt,
	}
	query := "INSERT INTO manager_grants (id, user_id, guild_id, permission_level, created_at, updated_at) VALUES " +
		GenerateParameters(len(args)) +
		" ON CONFLICT (user_id, guild_id) DO UPDATE SET permission_level = excluded.permission_level, updated_at = excluded.updated_at"
	r.l.Debug("upserting manager grant", "query", query, "args", args)
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return studyhall.ExistingManagerGrantRecord{}, err
	}

	return r.GetGrant(ctx, grant.UserID, grant.GuildID)
}

func (r *managerRepo) GetGrant(ctx context.Context, userID, guildID string) (studyhall.ExistingManagerGrantRecord, error) {
	if userID == "" {
		return studyhall.ExistingManagerGrantRecord{}, fmt.Errorf("provide userID")
	}

	db := r.dbGetter(ctx)
	row := db.QueryRowContext(
		ctx,
		fmt.Sprintf("%s WHERE user_id=? AND guild_id=?", selectAllGrants), userID, guildID,
	)

	return extractGrant(row)
}

func (r *managerRepo) DeleteGrant(ctx context.Context, userID, guildID string) (studyhall.ExistingManagerGrantRecord, error) {
	existing, err := r.GetGrant(ctx, userID, guildID)
	if err != nil {
		return studyhall.ExistingManagerGrantRecord{}, err
	}

	db := r.dbGetter(ctx)
	query := "DELETE FROM manager_grants WHERE id = ?"
	r.l.Debug("deleting manager grant", "query", query, "id", existing.ID)
	if _, err := db.ExecContext(ctx, query, existing.ID); err != nil {
		return studyhall.ExistingManagerGrantRecord{}, err
	}

	return existing, nil
}

// GetGuildGrants returns the guild's grants plus bot-wide grants, which
// apply everywhere.
func (r *managerRepo) GetGuildGrants(ctx context.Context, guildID string) ([]studyhall.ExistingManagerGrantRecord, error) {
	db := r.dbGetter(ctx)
	query := fmt.Sprintf("%s WHERE guild_id IN (?, '')", selectAllGrants)
	r.l.Debug("getting guild manager grants", "query", query, "guildID", guildID)
	rows, err := db.QueryContext(ctx, query, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint

	var grants []studyhall.ExistingManagerGrantRecord
	for rows.Next() {
		grant, err := extractGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return grants, nil
}

func extractGrant(s Scannable) (studyhall.ExistingManagerGrantRecord, error) {
	var e grantEntity
	if err := s.Scan(&e.ID, &e.UserID, &e.GuildID, &e.PermissionLevel, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return studyhall.ExistingManagerGrantRecord{}, ErrNotFound
		}
		return studyhall.ExistingManagerGrantRecord{}, err
	}

	return mapToExistingGrantRecord(e), nil
}

func mapToGrantEntity(grant studyhall.ExistingManagerGrantRecord) grantEntity {
	return grantEntity{
		ID:              string(grant.ID),
		UserID:          grant.UserID,
		GuildID:         grant.GuildID,
		PermissionLevel: int(grant.Level),
		CreatedAt:       grant.CreatedAt.Unix(),
		UpdatedAt:       grant.UpdatedAt.Unix(),
	}
}

func mapToExistingGrantRecord(e grantEntity) studyhall.ExistingManagerGrantRecord {
	return studyhall.ExistingManagerGrantRecord{
		ExistingRecord: studyhall.ExistingRecord[studyhall.GrantID]{
			ID:        studyhall.GrantID(e.ID),
			CreatedAt: time.Unix(e.CreatedAt, 0),
			UpdatedAt: time.Unix(e.UpdatedAt, 0),
		},
		ManagerGrantRecord: studyhall.ManagerGrantRecord{
			UserID:  e.UserID,
			GuildID: e.GuildID,
			Level:   studyhall.PermissionLevel(e.PermissionLevel),
		},
	}
}
