package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/annel0/hexvoxel/internal/landmass"
)

// MemoryLandmassRepo реализует LandmassRepo в памяти.
// Используется, когда storage.enabled = false, и в тестах.
// ВНИМАНИЕ: Данные теряются при перезапуске сервера!
type MemoryLandmassRepo struct {
	mu   sync.RWMutex
	data map[string]landmass.Landmass
}

// NewMemoryLandmassRepo создает новый репозиторий суши в памяти.
func NewMemoryLandmassRepo() *MemoryLandmassRepo {
	return &MemoryLandmassRepo{
		data: make(map[string]landmass.Landmass),
	}
}

// Save сохраняет сушу в памяти.
func (r *MemoryLandmassRepo) Save(ctx context.Context, lm landmass.Landmass) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := lm.Validate(); err != nil {
		return fmt.Errorf("save %q: %w", lm.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[lm.ID] = clone(lm)
	return nil
}

// Load загружает сушу из памяти.
func (r *MemoryLandmassRepo) Load(ctx context.Context, id string) (landmass.Landmass, bool, error) {
	if err := ctx.Err(); err != nil {
		return landmass.Landmass{}, false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	lm, ok := r.data[id]
	if !ok {
		return landmass.Landmass{}, false, nil
	}
	return clone(lm), true, nil
}

// Delete удаляет сушу из памяти.
func (r *MemoryLandmassRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.data, id)
	return nil
}

// BatchSave сохраняет несколько записей атомарно: при ошибке валидации ничего не пишется.
func (r *MemoryLandmassRepo) BatchSave(ctx context.Context, lms []landmass.Landmass) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, lm := range lms {
		if err := lm.Validate(); err != nil {
			return fmt.Errorf("batch save %q: %w", lm.ID, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, lm := range lms {
		r.data[lm.ID] = clone(lm)
	}
	return nil
}

// List возвращает все записи по возрастанию ID.
func (r *MemoryLandmassRepo) List(ctx context.Context) ([]landmass.Landmass, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]landmass.Landmass, 0, len(r.data))
	for _, lm := range r.data {
		out = append(out, clone(lm))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Close ничего не делает
func (r *MemoryLandmassRepo) Close() error {
	return nil
}

// clone копирует срезы, чтобы вызывающий не мог изменить сохранённое
func clone(lm landmass.Landmass) landmass.Landmass {
	lm.Tiles = append(lm.Tiles[:0:0], lm.Tiles...)
	lm.PeakLevels = append(lm.PeakLevels[:0:0], lm.PeakLevels...)
	return lm
}
