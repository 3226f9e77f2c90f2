package child

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("child not found")

type (
	Repository interface {
		CreateChild(ctx context.Context, chd Child) (Child, error)
		// QueryChildren applies QueryFilter.Search as a case-insensitive
		// match on the child or guardian name and returns the page plus
		// the total count.
		QueryChildren(ctx context.Context, filter *QueryFilter) ([]Child, int, error)
		GetChild(ctx context.Context, id string) (Child, error)
		// UpdateChild replaces the guardian list only when replaceGuardians
		// is set.
		UpdateChild(ctx context.Context, chd Child, replaceGuardians bool) (Child, error)
	}

	ServiceInterface interface {
		Create(nc NewChild) (Child, error)
		Query(filter *QueryFilter) ([]Child, int, error)
		GetByID(id string) (Child, error)
		Update(id string, uc UpdateChild) (Child, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(nc NewChild) (Child, error) {
	now := time.Now().UTC()
	primary := nc.Guardians[0]
	chd := Child{
		Name:          nc.Name,
		GuardianName:  primary.Name,
		GuardianPhone: primary.Phone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, g := range nc.Guardians {
		chd.Guardians = append(chd.Guardians, Guardian{Name: g.Name, Phone: g.Phone})
	}
	return svc.repo.CreateChild(context.Background(), chd)
}

func (svc *Service) Query(filter *QueryFilter) ([]Child, int, error) {
	return svc.repo.QueryChildren(context.Background(), filter)
}

func (svc *Service) GetByID(id string) (Child, error) {
	return svc.repo.GetChild(context.Background(), id)
}

func (svc *Service) Update(id string, uc UpdateChild) (Child, error) {
	ctx := context.Background()

	chd, err := svc.repo.GetChild(ctx, id)
	if err != nil {
		return Child{}, err
	}

	if uc.Name != "" {
		chd.Name = uc.Name
	}
	replaceGuardians := uc.Guardians != nil
	if replaceGuardians {
		chd.Guardians = make([]Guardian, 0, len(uc.Guardians))
		for _, g := range uc.Guardians {
			chd.Guardians = append(chd.Guardians, Guardian{Name: g.Name, Phone: g.Phone})
		}
		primary := uc.Guardians[0]
		chd.GuardianName = primary.Name
		chd.GuardianPhone = primary.Phone
	}
	chd.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateChild(ctx, chd, replaceGuardians)
}
