package repo

import (
	"context"

	"taskline/internal/domain"
)

func (r Repo) InsertActivity(ctx context.Context, e domain.ActivityEntry) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO activity_log(ts,principal_id,principal_role,action,entity_kind,entity_id,correlation_id) VALUES (?,?,?,?,?,?,?)`,
		e.TS, e.PrincipalID, e.PrincipalRole, e.Action, nullable(e.EntityKind), nullable(e.EntityID), nullable(e.CorrelationID))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LatestActivity returns up to limit entries, newest first, optionally for one principal.
func (r Repo) LatestActivity(ctx context.Context, limit int, principalID int64) ([]domain.ActivityEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id,ts,principal_id,principal_role,action,COALESCE(entity_kind,''),COALESCE(entity_id,''),COALESCE(correlation_id,'') FROM activity_log`
	var args []any
	if principalID != 0 {
		query += ` WHERE principal_id=?`
		args = append(args, principalID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.ActivityEntry{}
	for rows.Next() {
		var e domain.ActivityEntry
		if err := rows.Scan(&e.ID, &e.TS, &e.PrincipalID, &e.PrincipalRole, &e.Action, &e.EntityKind, &e.EntityID, &e.CorrelationID); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
