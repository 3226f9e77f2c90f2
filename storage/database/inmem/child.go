package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/ebivilapaula/backend/core/child"
)

type childRepository struct {
	db *DB
}

var _ child.Repository = (*childRepository)(nil) // interface compliance check

func NewChildRepository(db *DB) *childRepository {
	return &childRepository{db: db}
}

func (repo *childRepository) query() []child.Child {
	children := make([]child.Child, 0, len(repo.db.children))
	for _, c := range repo.db.children {
		children = append(children, *c)
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	return children
}

func (repo *childRepository) CreateChild(ctx context.Context, chd child.Child) (child.Child, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	chd.ID = uuid.New().String()
	for i := range chd.Guardians {
		chd.Guardians[i].ID = uuid.New().String()
		chd.Guardians[i].ChildID = chd.ID
	}
	repo.db.children[chd.ID] = &chd
	return chd, nil
}

func (repo *childRepository) QueryChildren(ctx context.Context, filter *child.QueryFilter) ([]child.Child, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	matched := make([]child.Child, 0)
	for _, chd := range repo.query() {
		if filter != nil && filter.Search != "" {
			search := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(chd.Name), search) &&
				!strings.Contains(strings.ToLower(chd.GuardianName), search) {
				continue
			}
		}
		matched = append(matched, chd)
	}

	total := len(matched)
	if filter != nil {
		offset, limit := filter.Offset(), filter.PageSize
		if offset >= len(matched) {
			matched = []child.Child{}
		} else {
			end := offset + limit
			if end > len(matched) {
				end = len(matched)
			}
			matched = matched[offset:end]
		}
	}
	return matched, total, nil
}

func (repo *childRepository) GetChild(ctx context.Context, id string) (child.Child, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if chd, ok := repo.db.children[id]; ok {
		return *chd, nil
	}
	return child.Child{}, child.ErrNotFound
}

func (repo *childRepository) UpdateChild(ctx context.Context, chd child.Child, replaceGuardians bool) (child.Child, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.children[chd.ID]
	if !ok {
		return child.Child{}, child.ErrNotFound
	}
	if !replaceGuardians {
		chd.Guardians = orig.Guardians
	} else {
		for i := range chd.Guardians {
			chd.Guardians[i].ID = uuid.New().String()
			chd.Guardians[i].ChildID = chd.ID
		}
	}
	repo.db.children[chd.ID] = &chd
	return chd, nil
}
