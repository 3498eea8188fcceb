package sqlseed

import (
	"context"
	"fmt"
	"time"
)

// UsersTable is the table populated by UsersSeed.
const UsersTable = "Users"

// UsersSeedName identifies UsersSeed in the tracking table.
const UsersSeedName = "20210517142222-user"

var userColumns = []string{"name", "email", "birth", "createdAt", "updatedAt"}

// User is one seeded row of the Users table.
type User struct {
	Name      string
	Email     string
	Birth     time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u User) values() []any {
	return []any{u.Name, u.Email, u.Birth, u.CreatedAt, u.UpdatedAt}
}

// Users returns the four seed users, all stamped with now.
func Users(now time.Time) []User {
	users := make([]User, 4)
	for i := range users {
		users[i] = User{
			Name:      fmt.Sprintf("name%d", i+1),
			Email:     fmt.Sprintf("email%d", i+1),
			Birth:     now,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	return users
}

// UsersSeed inserts the four seed users and, on revert, empties the table.
func UsersSeed() *Seed {
	return &Seed{
		Name: UsersSeedName,
		Up:   insertUsers,
		Down: deleteUsers,
	}
}

// DefaultSeeds returns a fresh registry holding the built-in seeds.
func DefaultSeeds() *Seeds {
	seeds := NewSeeds()
	seeds.MustRegister(UsersSeed())
	return seeds
}

func insertUsers(ctx context.Context, qi *QueryInterface) error {
	users := Users(qi.Now())
	rows := make([][]any, len(users))
	for i, u := range users {
		rows[i] = u.values()
	}
	_, err := qi.BulkInsert(ctx, UsersTable, userColumns, rows)
	return err
}

// deleteUsers removes every row, not just the seeded ones.
func deleteUsers(ctx context.Context, qi *QueryInterface) error {
	_, err := qi.BulkDelete(ctx, UsersTable, nil)
	return err
}
