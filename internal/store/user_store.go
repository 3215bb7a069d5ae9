package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nhle/taskd/internal/model"
)

// ErrInvalidCredentials is returned by Authenticate when the email is
// unknown or the password does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// bcryptCost is the work factor used when hashing new passwords.
const bcryptCost = bcrypt.DefaultCost

const userColumns = "id, name, surname, email, password, admin, created_at"

// CreateUser inserts a new user and returns its assigned ID.
// user.Password is the plain-text password; only its bcrypt hash is stored.
func (s *SQLiteStore) CreateUser(ctx context.Context, user model.User) (int64, error) {
	if strings.TrimSpace(user.Name) == "" {
		return 0, fmt.Errorf("user name must not be empty")
	}

	hash := ""
	if user.Password != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcryptCost)
		if err != nil {
			return 0, fmt.Errorf("hashing password: %w", err)
		}
		hash = string(b)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO users (name, surname, email, password, admin, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		user.Name, user.Surname, strings.TrimSpace(user.Email), hash,
		boolToInt(user.Admin), time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading user id: %w", err)
	}
	return id, nil
}

// GetUserByID retrieves a single user. A missing user yields ErrNotFound.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	row := s.db.QueryRowxContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id,
	)

	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("getting user %d: %w", id, notFound(err))
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by exact email address.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("getting user by email: %w", ErrNotFound)
	}

	row := s.db.QueryRowxContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ?", email,
	)

	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", email, notFound(err))
	}
	return &user, nil
}

// Authenticate checks email and password against the stored hash.
func (s *SQLiteStore) Authenticate(
	ctx context.Context,
	email, password string,
) (*model.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if user.Password == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// scanUser scans a user row selected with userColumns.
func scanUser(row rowScanner) (model.User, error) {
	var (
		user     model.User
		adminInt int
	)

	err := row.Scan(
		&user.ID, &user.Name, &user.Surname, &user.Email,
		&user.Password, &adminInt, &user.CreatedAt,
	)
	if err != nil {
		return model.User{}, fmt.Errorf("scanning user row: %w", err)
	}

	user.Admin = adminInt != 0
	return user, nil
}
