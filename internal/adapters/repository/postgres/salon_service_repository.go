package postgres

import (
	"context"

	"github.com/IshanMadusanka13/Salon-Capta/internal/core/inventory"
	pgdb "github.com/IshanMadusanka13/Salon-Capta/internal/platform/db/postgres"
)

// SalonServiceRepository は施術メニューの参照実装です。
type SalonServiceRepository struct {
	pool pgdb.Queryer
}

// NewSalonServiceRepository は SalonServiceRepository を生成します。
func NewSalonServiceRepository(pool pgdb.Queryer) *SalonServiceRepository {
	return &SalonServiceRepository{pool: pool}
}

// FindByIDs は ids のメニューを返します。存在しない id は結果に含まれません。
func (r *SalonServiceRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*inventory.SalonService, error) {
	services := make(map[string]*inventory.SalonService, len(ids))
	valid := validUUIDs(ids)
	if len(valid) == 0 {
		return services, nil
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT id, name, price
          FROM salon_services
         WHERE id = ANY($1)
    `, valid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var svc inventory.SalonService
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.Price); err != nil {
			return nil, err
		}
		services[svc.ID] = &svc
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return services, nil
}
