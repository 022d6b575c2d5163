package repositories

import (
	"context"

	"tailor-pos/internal/models"
)

const userColumns = `id, name, username, password_hash, role, branch_id, branch_name, is_active,
	totp_secret, totp_enabled, created_at, updated_at`

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Username, &u.PasswordHash, &u.Role, &u.BranchID, &u.BranchName,
		&u.IsActive, &u.TOTPSecret, &u.TOTPEnabled, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

func getUser(ctx context.Context, q querier, id string) (*models.User, error) {
	return scanUser(q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	return getUser(ctx, s.DB, id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(s.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(username) = LOWER($1)`, username))
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, mapError(rows.Err())
}

func (t *pgTx) GetUser(ctx context.Context, id string) (*models.User, error) {
	return getUser(ctx, t.q, id)
}

func (t *pgTx) CreateUser(ctx context.Context, u *models.User) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO users(`+userColumns+`) VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		u.ID, u.Name, u.Username, u.PasswordHash, u.Role, u.BranchID, u.BranchName, u.IsActive,
		u.TOTPSecret, u.TOTPEnabled, u.CreatedAt, u.UpdatedAt)
	return mapError(err)
}

func (t *pgTx) UpdateUser(ctx context.Context, u *models.User) error {
	return affectedOne(t.q.Exec(ctx,
		`UPDATE users SET name=$2, role=$3, branch_id=$4, branch_name=$5, is_active=$6, password_hash=$7,
		 totp_secret=$8, totp_enabled=$9, updated_at=$10
		 WHERE id=$1`,
		u.ID, u.Name, u.Role, u.BranchID, u.BranchName, u.IsActive, u.PasswordHash,
		u.TOTPSecret, u.TOTPEnabled, u.UpdatedAt))
}
