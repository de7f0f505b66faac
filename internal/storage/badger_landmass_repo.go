package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"

	"github.com/annel0/hexvoxel/internal/landmass"
	"github.com/annel0/hexvoxel/internal/logging"
)

const landmassPrefix = "landmass:"

// BadgerLandmassRepo хранит сушу в BadgerDB. Значение - JSON, сжатый zstd:
// у больших материков тысячи тайлов, и id хорошо сжимаются.
type BadgerLandmassRepo struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewBadgerLandmassRepo открывает (или создаёт) хранилище в dataPath/landmasses
func NewBadgerLandmassRepo(dataPath string) (*BadgerLandmassRepo, error) {
	dbPath := filepath.Join(dataPath, "landmasses")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd decoder: %w", err)
	}

	logging.Info("💾 Хранилище суши открыто: %s", dbPath)
	return &BadgerLandmassRepo{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
		encoder: encoder,
		decoder: decoder,
	}, nil
}

// Close закрывает хранилище
func (r *BadgerLandmassRepo) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.isReady {
		return nil
	}

	r.isReady = false
	r.encoder.Close()
	r.decoder.Close()
	return r.db.Close()
}

func landmassKey(id string) []byte {
	return []byte(landmassPrefix + id)
}

func (r *BadgerLandmassRepo) encode(lm landmass.Landmass) ([]byte, error) {
	if err := lm.Validate(); err != nil {
		return nil, fmt.Errorf("save %q: %w", lm.ID, err)
	}
	data, err := json.Marshal(lm)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации суши %q: %w", lm.ID, err)
	}
	return r.encoder.EncodeAll(data, nil), nil
}

func (r *BadgerLandmassRepo) decode(val []byte) (landmass.Landmass, error) {
	data, err := r.decoder.DecodeAll(val, nil)
	if err != nil {
		return landmass.Landmass{}, fmt.Errorf("ошибка распаковки: %w", err)
	}
	var lm landmass.Landmass
	if err := json.Unmarshal(data, &lm); err != nil {
		return landmass.Landmass{}, fmt.Errorf("ошибка десериализации: %w", err)
	}
	return lm, nil
}

// Save сохраняет сушу
func (r *BadgerLandmassRepo) Save(ctx context.Context, lm landmass.Landmass) error {
	return r.BatchSave(ctx, []landmass.Landmass{lm})
}

// BatchSave сохраняет записи одной транзакцией
func (r *BadgerLandmassRepo) BatchSave(ctx context.Context, lms []landmass.Landmass) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if !r.isReady {
		return ErrNotReady
	}

	values := make([][]byte, len(lms))
	for i, lm := range lms {
		val, err := r.encode(lm)
		if err != nil {
			return err
		}
		values[i] = val
	}

	err := r.db.Update(func(txn *badger.Txn) error {
		for i, lm := range lms {
			if err := txn.Set(landmassKey(lm.ID), values[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}

	logging.Debug("💾 Сохранено записей суши: %d", len(lms))
	return nil
}

// Load загружает сушу по ID
func (r *BadgerLandmassRepo) Load(ctx context.Context, id string) (landmass.Landmass, bool, error) {
	if err := ctx.Err(); err != nil {
		return landmass.Landmass{}, false, err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if !r.isReady {
		return landmass.Landmass{}, false, ErrNotReady
	}

	var data []byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(landmassKey(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return landmass.Landmass{}, false, nil
	}
	if err != nil {
		return landmass.Landmass{}, false, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	lm, err := r.decode(data)
	if err != nil {
		return landmass.Landmass{}, false, fmt.Errorf("landmass %q: %w", id, err)
	}
	return lm, true, nil
}

// Delete удаляет запись
func (r *BadgerLandmassRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if !r.isReady {
		return ErrNotReady
	}

	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(landmassKey(id))
	})
}

// List читает все записи; Badger хранит ключи отсортированными, поэтому порядок по ID
func (r *BadgerLandmassRepo) List(ctx context.Context) ([]landmass.Landmass, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if !r.isReady {
		return nil, ErrNotReady
	}

	var out []landmass.Landmass
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(landmassPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			lm, err := r.decode(val)
			if err != nil {
				return fmt.Errorf("key %s: %w", item.Key(), err)
			}
			out = append(out, lm)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}
	return out, nil
}
