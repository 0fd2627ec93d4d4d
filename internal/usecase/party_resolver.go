package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"propchat/infrastructure/cache"
	"propchat/internal/entity"
	"propchat/internal/repository"
	appErrors "propchat/pkg/errors"
)

// PartyResolver maps authenticated accounts to chat parties and names them.
type PartyResolver interface {
	Resolve(ctx context.Context, accountId string) (string, error)
	DisplayName(ctx context.Context, partyId string) (string, error)
	Get(ctx context.Context, partyId string) (entity.Resident, error)
	Register(ctx context.Context, accountId, name string) (entity.Resident, error)
}

type partyResolver struct {
	residentRepo repository.ResidentRepository
	names        *cache.MemCache[string]
	accounts     *cache.MemCache[string]
}

func NewPartyResolver(residentRepo repository.ResidentRepository, cacheTTL time.Duration) PartyResolver {
	return &partyResolver{
		residentRepo: residentRepo,
		names:        cache.NewMemCache[string](cacheTTL, 0),
		accounts:     cache.NewMemCache[string](cacheTTL, 0),
	}
}

// Resolve returns the resident id behind an account
func (p *partyResolver) Resolve(ctx context.Context, accountId string) (string, error) {
	return p.accounts.GetOrLoad(accountId, func() (string, error) {
		resident, err := p.residentRepo.GetByUserId(ctx, accountId)
		if err != nil {
			return "", translateResidentErr(err)
		}
		p.names.Set(resident.Id, resident.Name)
		return resident.Id, nil
	})
}

func (p *partyResolver) DisplayName(ctx context.Context, partyId string) (string, error) {
	return p.names.GetOrLoad(partyId, func() (string, error) {
		resident, err := p.residentRepo.Get(ctx, partyId)
		if err != nil {
			return "", translateResidentErr(err)
		}
		return resident.Name, nil
	})
}

func (p *partyResolver) Get(ctx context.Context, partyId string) (entity.Resident, error) {
	if partyId == "" {
		return entity.Resident{}, ErrMissingPartyId
	}
	resident, err := p.residentRepo.Get(ctx, partyId)
	if err != nil {
		return entity.Resident{}, translateResidentErr(err)
	}
	return resident, nil
}

// Register creates the resident record for an account, or returns the existing one
func (p *partyResolver) Register(ctx context.Context, accountId, name string) (entity.Resident, error) {
	name = strings.TrimSpace(name)
	if accountId == "" || name == "" {
		return entity.Resident{}, appErrors.InvalidArg("account id and name are required")
	}

	resident, err := p.residentRepo.Create(ctx, entity.Resident{UserId: accountId, Name: name})
	if errors.Is(err, repository.ErrDuplicate) {
		return p.residentRepo.GetByUserId(ctx, accountId)
	}
	if err != nil {
		return entity.Resident{}, err
	}

	p.accounts.Set(accountId, resident.Id)
	p.names.Set(resident.Id, resident.Name)
	return resident, nil
}

func translateResidentErr(err error) error {
	if errors.Is(err, repository.ErrResidentNotFound) {
		return ErrPartyNotFound
	}
	return err
}
