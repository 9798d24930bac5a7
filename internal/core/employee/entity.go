package employee

import "time"

// Employee はサロンのスタッフ(施術者)エンティティです。
type Employee struct {
	ID         string
	Name       string
	Email      string
	Phone      string
	BaseSalary float64
	JoinDate   *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
