package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/creamcroissant/formboard/internal/repository"
)

// AccountService manages organizations, users and teams.
type AccountService interface {
	Organizations(filter repository.ListFilter) repository.Query[*repository.OrganizationProfile]
	Organization(ctx context.Context, id int64) (*repository.OrganizationProfile, error)
	CreateOrganization(ctx context.Context, in OrganizationInput) (*repository.OrganizationProfile, error)
	UpdateOrganization(ctx context.Context, id int64, in OrganizationInput) (*repository.OrganizationProfile, error)

	Users(filter repository.ListFilter) repository.Query[*repository.UserProfile]
	User(ctx context.Context, id int64) (*repository.UserProfile, error)
	CreateUser(ctx context.Context, in UserInput) (*repository.UserProfile, error)
	UpdateUser(ctx context.Context, id int64, in UserInput) (*repository.UserProfile, error)

	Teams(filter repository.ListFilter) repository.Query[*repository.Team]
	Team(ctx context.Context, id int64) (*repository.Team, error)
	CreateTeam(ctx context.Context, in TeamInput) (*repository.Team, error)
	UpdateTeam(ctx context.Context, id int64, in TeamInput) (*repository.Team, error)
}

// OrganizationInput is a create or partial update payload. Nil fields are left untouched.
type OrganizationInput struct {
	Username *string `json:"username"`
	Name     *string `json:"name"`
	Email    *string `json:"email"`
}

// UserInput is a create or partial update payload.
type UserInput struct {
	Username *string `json:"username"`
	Name     *string `json:"name"`
	City     *string `json:"city"`
	Country  *string `json:"country"`
}

// TeamInput is a create or partial update payload.
type TeamInput struct {
	OrganizationID *int64  `json:"organization"`
	Name           *string `json:"name"`
}

type accountService struct {
	store repository.Store
	clock Clock
}

// NewAccountService wires the account service to the given store.
func NewAccountService(store repository.Store, clock Clock) AccountService {
	return &accountService{store: store, clock: clock}
}

func (s *accountService) Organizations(filter repository.ListFilter) repository.Query[*repository.OrganizationProfile] {
	return s.store.Organizations().List(filter)
}

func (s *accountService) Organization(ctx context.Context, id int64) (*repository.OrganizationProfile, error) {
	org, err := s.store.Organizations().FindByID(ctx, id)
	return org, mapRepoError(err)
}

func (s *accountService) CreateOrganization(ctx context.Context, in OrganizationInput) (*repository.OrganizationProfile, error) {
	org := &repository.OrganizationProfile{}
	applyOrganization(org, in)
	if err := validateUsername(org.Username); err != nil {
		return nil, err
	}
	now := s.clock.now()
	org.Created, org.Modified = now, now
	created, err := s.store.Organizations().Create(ctx, org)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: username %q is taken", ErrConflict, org.Username)
	}
	return created, err
}

func (s *accountService) UpdateOrganization(ctx context.Context, id int64, in OrganizationInput) (*repository.OrganizationProfile, error) {
	org, err := s.Organization(ctx, id)
	if err != nil {
		return nil, err
	}
	applyOrganization(org, in)
	if err := validateUsername(org.Username); err != nil {
		return nil, err
	}
	org.Modified = s.clock.now()
	if err := s.store.Organizations().Update(ctx, org); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: username %q is taken", ErrConflict, org.Username)
		}
		return nil, mapRepoError(err)
	}
	return org, nil
}

func applyOrganization(org *repository.OrganizationProfile, in OrganizationInput) {
	patchString(&org.Username, in.Username, normalizeUsername)
	patchString(&org.Name, in.Name, sanitizeText)
	patchString(&org.Email, in.Email, strings.TrimSpace)
}

func (s *accountService) Users(filter repository.ListFilter) repository.Query[*repository.UserProfile] {
	return s.store.Users().List(filter)
}

func (s *accountService) User(ctx context.Context, id int64) (*repository.UserProfile, error) {
	user, err := s.store.Users().FindByID(ctx, id)
	return user, mapRepoError(err)
}

func (s *accountService) CreateUser(ctx context.Context, in UserInput) (*repository.UserProfile, error) {
	user := &repository.UserProfile{}
	applyUser(user, in)
	if err := validateUsername(user.Username); err != nil {
		return nil, err
	}
	now := s.clock.now()
	user.Created, user.Modified = now, now
	created, err := s.store.Users().Create(ctx, user)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: username %q is taken", ErrConflict, user.Username)
	}
	return created, err
}

func (s *accountService) UpdateUser(ctx context.Context, id int64, in UserInput) (*repository.UserProfile, error) {
	user, err := s.User(ctx, id)
	if err != nil {
		return nil, err
	}
	applyUser(user, in)
	if err := validateUsername(user.Username); err != nil {
		return nil, err
	}
	user.Modified = s.clock.now()
	if err := s.store.Users().Update(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: username %q is taken", ErrConflict, user.Username)
		}
		return nil, mapRepoError(err)
	}
	return user, nil
}

func applyUser(user *repository.UserProfile, in UserInput) {
	patchString(&user.Username, in.Username, normalizeUsername)
	patchString(&user.Name, in.Name, sanitizeText)
	patchString(&user.City, in.City, sanitizeText)
	patchString(&user.Country, in.Country, strings.ToUpper)
}

func (s *accountService) Teams(filter repository.ListFilter) repository.Query[*repository.Team] {
	return s.store.Teams().List(filter)
}

func (s *accountService) Team(ctx context.Context, id int64) (*repository.Team, error) {
	team, err := s.store.Teams().FindByID(ctx, id)
	return team, mapRepoError(err)
}

func (s *accountService) CreateTeam(ctx context.Context, in TeamInput) (*repository.Team, error) {
	if in.OrganizationID == nil {
		return nil, invalid("organization is required")
	}
	if _, err := s.Organization(ctx, *in.OrganizationID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, invalid("organization %d does not exist", *in.OrganizationID)
		}
		return nil, err
	}
	team := &repository.Team{OrganizationID: *in.OrganizationID}
	patchString(&team.Name, in.Name, sanitizeText)
	if team.Name == "" {
		return nil, invalid("name is required")
	}
	now := s.clock.now()
	team.Created, team.Modified = now, now
	return s.store.Teams().Create(ctx, team)
}

func (s *accountService) UpdateTeam(ctx context.Context, id int64, in TeamInput) (*repository.Team, error) {
	team, err := s.Team(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.OrganizationID != nil && *in.OrganizationID != team.OrganizationID {
		return nil, invalid("a team cannot move between organizations")
	}
	patchString(&team.Name, in.Name, sanitizeText)
	if team.Name == "" {
		return nil, invalid("name is required")
	}
	team.Modified = s.clock.now()
	if err := s.store.Teams().Update(ctx, team); err != nil {
		return nil, mapRepoError(err)
	}
	return team, nil
}

func normalizeUsername(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func validateUsername(username string) error {
	if username == "" {
		return invalid("username is required")
	}
	for _, r := range username {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' || r == '-' || r == '.') {
			return invalid("username %q contains invalid characters", username)
		}
	}
	return nil
}
