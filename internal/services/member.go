package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"voucherwheel/internal/datastore"
	"voucherwheel/internal/models"

	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type MemberInput struct {
	FullName string  `json:"full_name"`
	Phone    *string `json:"phone"`
	Email    *string `json:"email"`
	Notes    *string `json:"notes"`
}

type ServiceMember struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
}

func NewServiceMember(container *do.Injector) (*ServiceMember, error) {
	db, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	return &ServiceMember{container, db, readonlyPostgresDB}, nil
}

func (service *ServiceMember) Create(ctx context.Context, input MemberInput) (*models.Member, error) {
	fullName := strings.TrimSpace(input.FullName)
	if utf8.RuneCountInString(fullName) < MIN_FULLNAME_LENGTH {
		return nil, ErrInvalidFullName
	}

	member := &models.Member{
		ID:        uuid.NewString(),
		FullName:  fullName,
		Phone:     trimmed(input.Phone),
		Email:     trimmed(input.Email),
		Notes:     trimmed(input.Notes),
		CreatedAt: time.Now().UTC(),
	}
	err := datastore.InsertMember(ctx, service.postgresDB, member)
	if err != nil {
		return nil, err
	}

	return member, nil
}

// Search matches q against full names, newest first. The limit is clamped to MEMBER_SEARCH_MAX_LIMIT.
func (service *ServiceMember) Search(ctx context.Context, q string, limit int) ([]*models.Member, error) {
	if limit <= 0 {
		limit = MEMBER_SEARCH_DEFAULT_LIMIT
	}
	if limit > MEMBER_SEARCH_MAX_LIMIT {
		limit = MEMBER_SEARCH_MAX_LIMIT
	}

	return datastore.SearchMembers(ctx, service.readonlyPostgresDB, strings.TrimSpace(q), limit)
}

func (service *ServiceMember) Exists(ctx context.Context, id string) (bool, error) {
	return datastore.ExistsMember(ctx, service.postgresDB, id)
}
