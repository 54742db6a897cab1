package postgres

import (
	"context"
	"errors"
	"log"
	"time"

	"ChatWave/server/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateUser(ctx context.Context, user *models.User) (int, error) {
	query := psql.Insert("users").
		Columns("username", "email", "password_hash", "avatar").
		Values(user.Username, user.Email, user.PasswordHash, user.Avatar).
		Suffix("RETURNING id, created_at")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	err = s.pool.QueryRow(ctx, sqlStr, args...).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		log.Printf("Error creating user %s: %v", user.Username, err)
		return 0, err
	}
	return user.ID, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	return s.getUser(ctx, squirrel.Eq{"id": id})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, squirrel.Eq{"email": email})
}

func (s *Store) getUser(ctx context.Context, where squirrel.Eq) (*models.User, error) {
	query := psql.Select("id", "username", "email", "password_hash", "avatar", "is_online", "last_seen", "created_at").
		From("users").
		Where(where)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var user models.User
	err = s.pool.QueryRow(ctx, sqlStr, args...).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.Avatar, &user.IsOnline, &user.LastSeen, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		log.Printf("Error fetching user: %v", err)
		return nil, err
	}
	return &user, nil
}

func (s *Store) UserExists(ctx context.Context, username, email string) (bool, error) {
	query := psql.Select("COUNT(*)").
		From("users").
		Where(squirrel.Or{
			squirrel.Eq{"username": username},
			squirrel.Eq{"email": email},
		})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return false, err
	}

	var count int
	if err := s.pool.QueryRow(ctx, sqlStr, args...).Scan(&count); err != nil {
		log.Printf("Error checking user existence: %v", err)
		return false, err
	}
	return count > 0, nil
}

func (s *Store) SearchUsers(ctx context.Context, search string, excludeID int) ([]models.User, error) {
	pattern := "%" + search + "%"
	query := psql.Select("id", "username", "email", "password_hash", "avatar", "is_online", "last_seen", "created_at").
		From("users").
		Where(squirrel.And{
			squirrel.Or{
				squirrel.ILike{"username": pattern},
				squirrel.ILike{"email": pattern},
			},
			squirrel.NotEq{"id": excludeID},
		}).
		OrderBy("username").
		Limit(20)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error searching users: %v", err)
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
			&u.Avatar, &u.IsOnline, &u.LastSeen, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) SetUserPresence(ctx context.Context, userID int, isOnline bool, lastSeen time.Time) error {
	query := psql.Update("users").
		Set("is_online", isOnline).
		Set("last_seen", lastSeen).
		Where(squirrel.Eq{"id": userID})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, sqlStr, args...); err != nil {
		log.Printf("Error updating presence for user %d: %v", userID, err)
		return err
	}
	return nil
}
