package memory

import (
	"context"
	"sync"
	"time"

	"propchat/internal/entity"
	"propchat/internal/repository"

	"github.com/google/uuid"
)

type residentRepository struct {
	mu        sync.RWMutex
	residents map[string]entity.Resident
}

func NewResidentRepository() repository.ResidentRepository {
	return &residentRepository{
		residents: make(map[string]entity.Resident),
	}
}

func (r *residentRepository) Get(ctx context.Context, residentId string) (entity.Resident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	resident, ok := r.residents[residentId]
	if !ok {
		return entity.Resident{}, repository.ErrResidentNotFound
	}
	return resident, nil
}

func (r *residentRepository) GetByUserId(ctx context.Context, userId string) (entity.Resident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, resident := range r.residents {
		if resident.UserId == userId {
			return resident, nil
		}
	}
	return entity.Resident{}, repository.ErrResidentNotFound
}

func (r *residentRepository) IndexByIds(ctx context.Context, residentIds []string) ([]entity.Resident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []entity.Resident
	for _, id := range residentIds {
		if resident, ok := r.residents[id]; ok {
			out = append(out, resident)
		}
	}
	return out, nil
}

func (r *residentRepository) Create(ctx context.Context, resident entity.Resident) (entity.Resident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.residents {
		if resident.UserId != "" && existing.UserId == resident.UserId {
			return entity.Resident{}, repository.ErrDuplicate
		}
	}
	if resident.Id == "" {
		resident.Id = uuid.New().String()
	}
	if resident.CreatedAt.IsZero() {
		resident.CreatedAt = time.Now()
	}
	r.residents[resident.Id] = resident

	return resident, nil
}
