package auth

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ usersRepo = (*usersRepoMock)(nil)

type usersRepoMock struct {
	Users map[int]User
	mutex sync.Mutex
}

func NewUsersRepoMock() *usersRepoMock {
	return &usersRepoMock{
		Users: map[int]User{},
	}
}

func (r *usersRepoMock) Add(_ context.Context, user User) (*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, existing := range r.Users {
		if existing.Email == user.Email {
			return nil, &pgconn.PgError{Code: "23505"}
		}
	}

	user.ID = len(r.Users) + 1
	r.Users[user.ID] = user
	return &user, nil
}

func (r *usersRepoMock) GetByEmail(_ context.Context, email string) (*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, user := range r.Users {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *usersRepoMock) Get(_ context.Context, id int) (*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, ok := r.Users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &user, nil
}
