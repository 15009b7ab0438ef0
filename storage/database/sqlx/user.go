package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/examguard/core/user"
	"github.com/trezcool/examguard/storage/database"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

type userRow struct {
	ID        string         `db:"id"`
	Name      string         `db:"name"`
	Username  null.String    `db:"username"`
	Email     null.String    `db:"email"`
	IsActive  bool           `db:"is_active"`
	Roles     pq.StringArray `db:"roles"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (repo *userRepository) unrow(row userRow) user.User {
	active := row.IsActive
	return user.User{
		ID:        row.ID,
		Name:      row.Name,
		Username:  row.Username.String,
		Email:     row.Email.String,
		IsActive:  &active,
		Roles:     []string(row.Roles),
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	row := userRow{
		ID:        usr.ID,
		Name:      usr.Name,
		Username:  null.NewString(usr.Username, usr.Username != ""),
		Email:     null.NewString(usr.Email, usr.Email != ""),
		IsActive:  usr.IsActive == nil || *usr.IsActive,
		Roles:     pq.StringArray(usr.Roles),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if row.Roles == nil {
		row.Roles = pq.StringArray{}
	}

	_, err := repo.db.NamedExecContext(ctx, `
INSERT INTO "user" (id, name, username, email, is_active, roles, created_at, updated_at)
VALUES (:id, :name, :username, :email, :is_active, :roles, :created_at, :updated_at)`, row)
	if err != nil {
		return user.User{}, database.WrapErr(err, "inserting user")
	}
	return repo.unrow(row), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	q := `SELECT id, name, username, email, is_active, roles, created_at, updated_at FROM "user" WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user")
	}
	return repo.unrow(row), nil
}
