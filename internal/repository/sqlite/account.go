package sqlite

import (
	"context"

	"github.com/creamcroissant/formboard/internal/repository"
)

var organizationSpec = &tableSpec[*repository.OrganizationProfile]{
	model:       repository.ModelOrganizationProfile,
	table:       "organization_profiles",
	columns:     "id, username, name, email, date_created, date_modified",
	hasModified: true,
	scan: func(row rowScanner) (*repository.OrganizationProfile, error) {
		var (
			org              repository.OrganizationProfile
			created, updated int64
		)
		if err := row.Scan(&org.ID, &org.Username, &org.Name, &org.Email, &created, &updated); err != nil {
			return nil, err
		}
		org.Created, org.Modified = fromMicros(created), fromMicros(updated)
		return &org, nil
	},
}

type organizationRepo struct {
	tableRepo[*repository.OrganizationProfile]
}

func (r *organizationRepo) Create(ctx context.Context, org *repository.OrganizationProfile) (*repository.OrganizationProfile, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO organization_profiles (username, name, email, date_created, date_modified)
		VALUES (?, ?, ?, ?, ?)
	`, org.Username, org.Name, org.Email, toMicros(org.Created), toMicros(org.Modified))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	org.ID = id
	return org, nil
}

func (r *organizationRepo) Update(ctx context.Context, org *repository.OrganizationProfile) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE organization_profiles SET username = ?, name = ?, email = ?, date_modified = ?
		WHERE id = ?
	`, org.Username, org.Name, org.Email, toMicros(org.Modified), org.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

var userProfileSpec = &tableSpec[*repository.UserProfile]{
	model:       repository.ModelUserProfile,
	table:       "user_profiles",
	columns:     "id, username, name, city, country, date_created, date_modified",
	hasModified: true,
	scan: func(row rowScanner) (*repository.UserProfile, error) {
		var (
			user             repository.UserProfile
			created, updated int64
		)
		if err := row.Scan(&user.ID, &user.Username, &user.Name, &user.City, &user.Country, &created, &updated); err != nil {
			return nil, err
		}
		user.Created, user.Modified = fromMicros(created), fromMicros(updated)
		return &user, nil
	},
}

type userProfileRepo struct {
	tableRepo[*repository.UserProfile]
}

func (r *userProfileRepo) Create(ctx context.Context, user *repository.UserProfile) (*repository.UserProfile, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO user_profiles (username, name, city, country, date_created, date_modified)
		VALUES (?, ?, ?, ?, ?, ?)
	`, user.Username, user.Name, user.City, user.Country, toMicros(user.Created), toMicros(user.Modified))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	user.ID = id
	return user, nil
}

func (r *userProfileRepo) Update(ctx context.Context, user *repository.UserProfile) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE user_profiles SET username = ?, name = ?, city = ?, country = ?, date_modified = ?
		WHERE id = ?
	`, user.Username, user.Name, user.City, user.Country, toMicros(user.Modified), user.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

var teamSpec = &tableSpec[*repository.Team]{
	model:        repository.ModelTeam,
	table:        "teams",
	columns:      "id, organization_id, name, date_created, date_modified",
	parentColumn: "organization_id",
	hasModified:  true,
	scan: func(row rowScanner) (*repository.Team, error) {
		var (
			team             repository.Team
			created, updated int64
		)
		if err := row.Scan(&team.ID, &team.OrganizationID, &team.Name, &created, &updated); err != nil {
			return nil, err
		}
		team.Created, team.Modified = fromMicros(created), fromMicros(updated)
		return &team, nil
	},
}

type teamRepo struct {
	tableRepo[*repository.Team]
}

func (r *teamRepo) Create(ctx context.Context, team *repository.Team) (*repository.Team, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO teams (organization_id, name, date_created, date_modified)
		VALUES (?, ?, ?, ?)
	`, team.OrganizationID, team.Name, toMicros(team.Created), toMicros(team.Modified))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	team.ID = id
	return team, nil
}

func (r *teamRepo) Update(ctx context.Context, team *repository.Team) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE teams SET organization_id = ?, name = ?, date_modified = ?
		WHERE id = ?
	`, team.OrganizationID, team.Name, toMicros(team.Modified), team.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
