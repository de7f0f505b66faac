package logging

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
)

// LoggerManager раздаёт файловые логгеры компонентам сервиса (maps, api, ...)
// и держит для них общий уровень консоли.
type LoggerManager struct {
	mu           sync.Mutex
	loggers      map[string]*Logger
	consoleLevel LogLevel
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает менеджер процесса
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = NewLoggerManager()
	})
	return globalManager
}

// NewLoggerManager создаёт пустой менеджер с консолью на INFO
func NewLoggerManager() *LoggerManager {
	return &LoggerManager{
		loggers:      make(map[string]*Logger),
		consoleLevel: INFO,
	}
}

// SetConsoleLevel меняет уровень консоли у уже выданных и будущих логгеров
func (lm *LoggerManager) SetConsoleLevel(level LogLevel) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.consoleLevel = level
	for _, logger := range lm.loggers {
		logger.SetConsoleLevel(level)
	}
}

// GetLogger возвращает логгер компонента, открывая файл при первом обращении
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if logger, ok := lm.loggers[component]; ok {
		return logger, nil
	}

	logger, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("логгер %s: %w", component, err)
	}
	logger.SetConsoleLevel(lm.consoleLevel)
	lm.loggers[component] = logger
	return logger, nil
}

// Component возвращает логгер компонента. Если файл открыть не удалось,
// компонент пишет только в консоль, а причина уходит в глобальный лог.
func (lm *LoggerManager) Component(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err == nil {
		return logger
	}

	Warn("⚠️ %v, пишем только в консоль", err)

	lm.mu.Lock()
	defer lm.mu.Unlock()
	fallback := NewConsoleLogger(os.Stdout, lm.consoleLevel)
	fallback.component = component
	return fallback
}

// Components возвращает имена компонентов с открытыми логгерами
func (lm *LoggerManager) Components() []string {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	names := make([]string, 0, len(lm.loggers))
	for name := range lm.loggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CloseAll закрывает файлы всех компонентов и забывает их
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var errs []error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("логгер %s: %w", component, err))
		}
	}
	lm.loggers = make(map[string]*Logger)
	return errors.Join(errs...)
}
