package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"arkham-nexus/internal/domain/user"
	"arkham-nexus/pkg/apperrors"
)

type PostgresUserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) CreateUser(ctx context.Context, u *user.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return translateError(r.db.WithContext(ctx).Create(u).Error)
}

func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	var u user.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		return user.User{}, translateError(err)
	}
	return u, nil
}

func (r *PostgresUserRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err != nil {
		return user.User{}, translateError(err)
	}
	return u, nil
}

func (r *PostgresUserRepository) CreateGroup(ctx context.Context, g *user.Group) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return translateError(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(g).Error; err != nil {
			return err
		}
		member := user.GroupMember{GroupID: g.ID, UserID: g.OwnerID, Role: user.RoleOwner}
		return tx.Create(&member).Error
	}))
}

func (r *PostgresUserRepository) GetGroupByID(ctx context.Context, id uuid.UUID) (user.Group, error) {
	var g user.Group
	err := r.db.WithContext(ctx).Preload("Members").Where("id = ?", id).First(&g).Error
	if err != nil {
		return user.Group{}, translateError(err)
	}
	return g, nil
}

func (r *PostgresUserRepository) AddMember(ctx context.Context, m *user.GroupMember) error {
	return translateError(r.db.WithContext(ctx).Create(m).Error)
}

func (r *PostgresUserRepository) IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&user.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	if err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

func (r *PostgresUserRepository) GetMemberRole(ctx context.Context, groupID, userID uuid.UUID) (user.MemberRole, error) {
	var m user.GroupMember
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.ErrForbidden
		}
		return "", translateError(err)
	}
	return m.Role, nil
}

func (r *PostgresUserRepository) ListGroupIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&user.GroupMember{}).
		Where("user_id = ?", userID).
		Pluck("group_id", &ids).Error
	if err != nil {
		return nil, translateError(err)
	}
	return ids, nil
}
