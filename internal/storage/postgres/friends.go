package postgres

import (
	"context"
	"errors"
	"log"

	"ChatWave/server/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// Friend edges are stored in both directions so lookups never need an OR.

func (s *Store) FriendIDs(ctx context.Context, userID int) ([]int, error) {
	query := psql.Select("friend_id").
		From("friends").
		Where(squirrel.Eq{"user_id": userID})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error fetching friends of user %d: %v", userID, err)
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) ListFriends(ctx context.Context, userID int) ([]models.User, error) {
	query := psql.Select("u.id", "u.username", "u.email", "u.password_hash", "u.avatar", "u.is_online", "u.last_seen", "u.created_at").
		From("users u").
		Join("friends f ON u.id = f.friend_id").
		Where(squirrel.Eq{"f.user_id": userID}).
		OrderBy("u.username")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error listing friends of user %d: %v", userID, err)
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

func (s *Store) AreFriends(ctx context.Context, userID, otherID int) (bool, error) {
	query := psql.Select("COUNT(*)").
		From("friends").
		Where(squirrel.Eq{"user_id": userID, "friend_id": otherID})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return false, err
	}

	var count int
	if err := s.pool.QueryRow(ctx, sqlStr, args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) AddFriendEdge(ctx context.Context, userID, otherID int) error {
	query := psql.Insert("friends").
		Columns("user_id", "friend_id").
		Values(userID, otherID).
		Values(otherID, userID).
		Suffix("ON CONFLICT DO NOTHING")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, sqlStr, args...); err != nil {
		log.Printf("Error adding friend edge %d<->%d: %v", userID, otherID, err)
		return err
	}
	return nil
}

func (s *Store) RemoveFriendEdge(ctx context.Context, userID, otherID int) error {
	query := psql.Delete("friends").
		Where(squirrel.Or{
			squirrel.Eq{"user_id": userID, "friend_id": otherID},
			squirrel.Eq{"user_id": otherID, "friend_id": userID},
		})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, sqlStr, args...); err != nil {
		log.Printf("Error removing friend edge %d<->%d: %v", userID, otherID, err)
		return err
	}
	return nil
}

func (s *Store) CreateFriendRequest(ctx context.Context, toID, fromID int) (int, error) {
	query := psql.Insert("friend_requests").
		Columns("user_id", "from_id", "status").
		Values(toID, fromID, "pending").
		Suffix("RETURNING id")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	var id int
	if err := s.pool.QueryRow(ctx, sqlStr, args...).Scan(&id); err != nil {
		log.Printf("Error creating friend request from %d to %d: %v", fromID, toID, err)
		return 0, err
	}
	return id, nil
}

func (s *Store) PendingRequestExists(ctx context.Context, toID, fromID int) (bool, error) {
	query := psql.Select("COUNT(*)").
		From("friend_requests").
		Where(squirrel.Eq{"user_id": toID, "from_id": fromID, "status": "pending"})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return false, err
	}

	var count int
	if err := s.pool.QueryRow(ctx, sqlStr, args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) GetFriendRequest(ctx context.Context, requestID int) (*models.FriendRequest, error) {
	query := psql.Select("id", "user_id", "from_id", "status", "created_at").
		From("friend_requests").
		Where(squirrel.Eq{"id": requestID})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var req models.FriendRequest
	err = s.pool.QueryRow(ctx, sqlStr, args...).Scan(&req.ID, &req.UserID, &req.FromID, &req.Status, &req.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (s *Store) DeleteFriendRequest(ctx context.Context, requestID int) error {
	query := psql.Delete("friend_requests").Where(squirrel.Eq{"id": requestID})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, sqlStr, args...); err != nil {
		log.Printf("Error deleting friend request %d: %v", requestID, err)
		return err
	}
	return nil
}

func (s *Store) ListFriendRequests(ctx context.Context, userID int) ([]models.FriendRequest, error) {
	query := psql.Select("fr.id", "fr.user_id", "fr.from_id", "fr.status", "fr.created_at",
		"u.id", "u.username", "u.avatar").
		From("friend_requests fr").
		Join("users u ON u.id = fr.from_id").
		Where(squirrel.Eq{"fr.user_id": userID, "fr.status": "pending"}).
		OrderBy("fr.created_at")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error listing friend requests for user %d: %v", userID, err)
		return nil, err
	}
	defer rows.Close()

	var requests []models.FriendRequest
	for rows.Next() {
		var req models.FriendRequest
		var from models.User
		if err := rows.Scan(&req.ID, &req.UserID, &req.FromID, &req.Status, &req.CreatedAt,
			&from.ID, &from.Username, &from.Avatar); err != nil {
			return nil, err
		}
		req.From = &from
		requests = append(requests, req)
	}
	return requests, rows.Err()
}
