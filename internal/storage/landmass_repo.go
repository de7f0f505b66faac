package storage

import (
	"context"
	"errors"

	"github.com/annel0/hexvoxel/internal/landmass"
)

// ErrNotReady возвращается после Close.
var ErrNotReady = errors.New("storage: not ready")

// LandmassRepo определяет интерфейс для сохранения и загрузки построенной суши.
// Сохраняется результат построения (тайлы, уровни, рамка, статус),
// чтобы при перезапуске не пересчитывать рельеф и не терять смену статуса.
type LandmassRepo interface {
	// Save сохраняет сушу, перезаписывая запись с тем же ID.
	Save(ctx context.Context, lm landmass.Landmass) error

	// Load загружает сушу по ID. bool == false, если записи нет.
	Load(ctx context.Context, id string) (landmass.Landmass, bool, error)

	// Delete удаляет запись; отсутствие записи не ошибка.
	Delete(ctx context.Context, id string) error

	// BatchSave сохраняет несколько записей одной транзакцией.
	BatchSave(ctx context.Context, lms []landmass.Landmass) error

	// List возвращает все записи, упорядоченные по ID.
	List(ctx context.Context) ([]landmass.Landmass, error)

	Close() error
}
