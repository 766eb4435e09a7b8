package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"arkham-nexus/internal/domain/user"
	"arkham-nexus/internal/repository"
	"arkham-nexus/pkg/apperrors"
)

type GroupService struct {
	userRepo repository.UserRepository
}

func NewGroupService(userRepo repository.UserRepository) *GroupService {
	return &GroupService{userRepo: userRepo}
}

type CreateGroupInput struct {
	Name                  string
	Description           *string
	DefaultSessionMinutes int
}

func (s *GroupService) CreateGroup(ctx context.Context, ownerID uuid.UUID, in CreateGroupInput) (user.Group, error) {
	if in.Name == "" {
		return user.Group{}, fmt.Errorf("%w: group name is required", apperrors.ErrInvalidInput)
	}
	if in.DefaultSessionMinutes <= 0 {
		in.DefaultSessionMinutes = 180
	}
	g := &user.Group{
		ID:                    uuid.New(),
		Name:                  in.Name,
		Description:           in.Description,
		OwnerID:               ownerID,
		DefaultSessionMinutes: in.DefaultSessionMinutes,
	}
	if err := s.userRepo.CreateGroup(ctx, g); err != nil {
		return user.Group{}, err
	}
	return *g, nil
}

func (s *GroupService) GetGroup(ctx context.Context, actorID, groupID uuid.UUID) (user.Group, error) {
	if err := s.RequireMember(ctx, groupID, actorID); err != nil {
		return user.Group{}, err
	}
	return s.userRepo.GetGroupByID(ctx, groupID)
}

// AddMember lets the group owner add users; gamemasters may add plain
// members.
func (s *GroupService) AddMember(ctx context.Context, actorID, groupID, userID uuid.UUID, role user.MemberRole) error {
	actorRole, err := s.userRepo.GetMemberRole(ctx, groupID, actorID)
	if err != nil {
		return err
	}
	if actorRole != user.RoleOwner && !(actorRole == user.RoleGamemaster && role == user.RoleMember) {
		return apperrors.ErrForbidden
	}
	switch role {
	case user.RoleOwner, user.RoleGamemaster, user.RoleMember:
	default:
		return fmt.Errorf("%w: unknown role %q", apperrors.ErrInvalidInput, role)
	}
	if _, err := s.userRepo.GetUserByID(ctx, userID); err != nil {
		return err
	}
	err = s.userRepo.AddMember(ctx, &user.GroupMember{GroupID: groupID, UserID: userID, Role: role})
	if err != nil && !errors.Is(err, apperrors.ErrAlreadyExists) {
		return err
	}
	return nil
}

// RequireMember returns ErrForbidden when userID is not in the group.
func (s *GroupService) RequireMember(ctx context.Context, groupID, userID uuid.UUID) error {
	ok, err := s.userRepo.IsMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.ErrForbidden
	}
	return nil
}

// RequireOrganizer returns ErrForbidden unless userID is the group
// owner or a gamemaster.
func (s *GroupService) RequireOrganizer(ctx context.Context, groupID, userID uuid.UUID) error {
	role, err := s.userRepo.GetMemberRole(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if role != user.RoleOwner && role != user.RoleGamemaster {
		return apperrors.ErrForbidden
	}
	return nil
}
