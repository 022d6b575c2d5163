package repositories

import (
	"context"

	"tailor-pos/internal/models"
	"tailor-pos/internal/store"
)

func scanBranch(row scanner) (*models.Branch, error) {
	var b models.Branch
	if err := row.Scan(&b.ID, &b.Name, &b.Location, &b.Type, &b.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return &b, nil
}

func getBranch(ctx context.Context, q querier, id string) (*models.Branch, error) {
	return scanBranch(q.QueryRow(ctx, `SELECT id, name, location, type, created_at FROM branches WHERE id = $1`, id))
}

func (s *Store) GetBranch(ctx context.Context, id string) (*models.Branch, error) {
	return getBranch(ctx, s.DB, id)
}

func (s *Store) ListBranches(ctx context.Context) ([]models.Branch, error) {
	rows, err := s.DB.Query(ctx, `SELECT id, name, location, type, created_at FROM branches ORDER BY created_at DESC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	branches := make([]models.Branch, 0)
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, err
		}
		branches = append(branches, *b)
	}
	return branches, mapError(rows.Err())
}

func scanService(row scanner) (*models.Service, error) {
	var sv models.Service
	if err := row.Scan(&sv.ID, &sv.Type, &sv.Name, &sv.Price, &sv.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return &sv, nil
}

func getService(ctx context.Context, q querier, id string) (*models.Service, error) {
	return scanService(q.QueryRow(ctx, `SELECT id, type, name, price, created_at FROM services WHERE id = $1`, id))
}

func (s *Store) GetService(ctx context.Context, id string) (*models.Service, error) {
	return getService(ctx, s.DB, id)
}

func (s *Store) QueryServices(ctx context.Context, q store.ServiceQuery) ([]models.Service, error) {
	var a args
	sql := `SELECT id, type, name, price, created_at FROM services WHERE TRUE`
	if q.Type != "" {
		sql += ` AND type = ` + a.add(q.Type)
	}
	if q.AfterID != "" {
		ok, err := exists(ctx, s.DB, "services", "id", q.AfterID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, store.ErrNotFound
		}
		sql += ` AND (created_at, id) < (SELECT created_at, id FROM services WHERE id = ` + a.add(q.AfterID) + `)`
	}
	sql += ` ORDER BY created_at DESC, id DESC`
	if q.Limit > 0 {
		sql += ` LIMIT ` + a.add(q.Limit)
	}

	rows, err := s.DB.Query(ctx, sql, a...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	services := make([]models.Service, 0)
	for rows.Next() {
		sv, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, *sv)
	}
	return services, mapError(rows.Err())
}

// ============================================
// Tx
// ============================================

func (t *pgTx) GetBranch(ctx context.Context, id string) (*models.Branch, error) {
	return getBranch(ctx, t.q, id)
}

func (t *pgTx) CreateBranch(ctx context.Context, b *models.Branch) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO branches(id, name, location, type, created_at) VALUES($1, $2, $3, $4, $5)`,
		b.ID, b.Name, b.Location, b.Type, b.CreatedAt)
	return mapError(err)
}

func (t *pgTx) UpdateBranch(ctx context.Context, b *models.Branch) error {
	return affectedOne(t.q.Exec(ctx,
		`UPDATE branches SET name = $2, location = $3, type = $4 WHERE id = $1`, b.ID, b.Name, b.Location, b.Type))
}

func (t *pgTx) DeleteBranch(ctx context.Context, id string) error {
	return affectedOne(t.q.Exec(ctx, `DELETE FROM branches WHERE id = $1`, id))
}

func (t *pgTx) GetService(ctx context.Context, id string) (*models.Service, error) {
	return getService(ctx, t.q, id)
}

func (t *pgTx) CreateService(ctx context.Context, sv *models.Service) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO services(id, type, name, price, created_at) VALUES($1, $2, $3, $4, $5)`,
		sv.ID, sv.Type, sv.Name, sv.Price, sv.CreatedAt)
	return mapError(err)
}

func (t *pgTx) UpdateService(ctx context.Context, sv *models.Service) error {
	return affectedOne(t.q.Exec(ctx,
		`UPDATE services SET type = $2, name = $3, price = $4 WHERE id = $1`, sv.ID, sv.Type, sv.Name, sv.Price))
}

func (t *pgTx) DeleteService(ctx context.Context, id string) error {
	return affectedOne(t.q.Exec(ctx, `DELETE FROM services WHERE id = $1`, id))
}
