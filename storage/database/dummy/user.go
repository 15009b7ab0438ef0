package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/examguard/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	usr.Roles = append([]string(nil), usr.Roles...)
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if usr, ok := repo.db.table[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

// lookup returns the users with the given IDs that exist.
func (repo *userRepository) lookup(ids []string) map[string]user.User {
	repo.db.RLock()
	defer repo.db.RUnlock()

	found := make(map[string]user.User, len(ids))
	for _, id := range ids {
		if usr, ok := repo.db.table[id]; ok {
			found[id] = *usr
		}
	}
	return found
}
