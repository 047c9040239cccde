package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"taskline/internal/domain"
)

// Directory tables. Users own tasks; admins assign them.
const (
	tableUsers  = "users"
	tableAdmins = "admins"
)

func (r Repo) InsertUser(ctx context.Context, p domain.Person) (int64, error) {
	return r.insertPerson(ctx, tableUsers, p)
}

func (r Repo) InsertAdmin(ctx context.Context, p domain.Person) (int64, error) {
	return r.insertPerson(ctx, tableAdmins, p)
}

func (r Repo) GetUser(ctx context.Context, id int64) (domain.Person, error) {
	return r.getPerson(ctx, nil, tableUsers, id)
}

func (r Repo) GetUserTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Person, error) {
	return r.getPerson(ctx, tx, tableUsers, id)
}

func (r Repo) GetAdmin(ctx context.Context, id int64) (domain.Person, error) {
	return r.getPerson(ctx, nil, tableAdmins, id)
}

func (r Repo) GetAdminTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Person, error) {
	return r.getPerson(ctx, tx, tableAdmins, id)
}

func (r Repo) ListUsers(ctx context.Context) ([]domain.Person, error) {
	return r.listPeople(ctx, tableUsers)
}

func (r Repo) ListAdmins(ctx context.Context) ([]domain.Person, error) {
	return r.listPeople(ctx, tableAdmins)
}

func (r Repo) insertPerson(ctx context.Context, table string, p domain.Person) (int64, error) {
	var id any
	if p.ID != 0 {
		id = p.ID
	}
	if p.CreatedAt == "" {
		p.CreatedAt = time.Now().UTC().Format(domain.TimeLayout)
	}
	res, err := r.DB.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s(id,name,email,created_at) VALUES (?,?,?,?)`, table),
		id, p.Name, nullable(p.Email), p.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) getPerson(ctx context.Context, tx *sql.Tx, table string, id int64) (domain.Person, error) {
	var p domain.Person
	err := r.q(tx).QueryRowContext(ctx, fmt.Sprintf(`SELECT id,name,COALESCE(email,''),created_at FROM %s WHERE id=?`, table), id).
		Scan(&p.ID, &p.Name, &p.Email, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

func (r Repo) listPeople(ctx context.Context, table string) ([]domain.Person, error) {
	rows, err := r.DB.QueryContext(ctx, fmt.Sprintf(`SELECT id,name,COALESCE(email,''),created_at FROM %s ORDER BY id`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Person{}
	for rows.Next() {
		var p domain.Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}
