package employee

import "context"

// Repository は社員永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, employee *Employee) (*Employee, error)
	Update(ctx context.Context, employee *Employee) (*Employee, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Employee, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, filter ListEmployeesFilter) ([]*Employee, string, error)
	ListAll(ctx context.Context) ([]*Employee, error)
}

// ListEmployeesFilter は一覧取得用フィルタです。
type ListEmployeesFilter struct {
	Limit  int
	Offset int
}
