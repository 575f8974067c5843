package handler

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/creamcroissant/formboard/internal/repository"
	"github.com/creamcroissant/formboard/internal/service"
)

// AccountHandler exposes organizations, users and teams.
type AccountHandler struct {
	orgs  resource[*repository.OrganizationProfile, service.OrganizationInput]
	users resource[*repository.UserProfile, service.UserInput]
	teams resource[*repository.Team, service.TeamInput]
}

// NewAccountHandler constructs the account endpoints.
func NewAccountHandler(accounts service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		orgs: resource[*repository.OrganizationProfile, service.OrganizationInput]{
			action: "orgs",
			list:   accounts.Organizations,
			get:    accounts.Organization,
			create: accounts.CreateOrganization,
			update: accounts.UpdateOrganization,
			logger: logger,
		},
		users: resource[*repository.UserProfile, service.UserInput]{
			action: "users",
			list:   accounts.Users,
			get:    accounts.User,
			create: accounts.CreateUser,
			update: accounts.UpdateUser,
			logger: logger,
		},
		teams: resource[*repository.Team, service.TeamInput]{
			action: "teams",
			parent: "org",
			list:   accounts.Teams,
			get:    accounts.Team,
			create: accounts.CreateTeam,
			update: accounts.UpdateTeam,
			logger: logger,
		},
	}
}

// Mount registers /orgs, /users and /teams.
func (h *AccountHandler) Mount(r chi.Router) {
	mountResource(r, "/orgs", h.orgs, nil)
	mountResource(r, "/users", h.users, nil)
	mountResource(r, "/teams", h.teams, nil)
}
