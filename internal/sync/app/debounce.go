package app

import (
	"sync"
	"time"
)

// Debouncer планирует отложенный запуск функций по ключу. Повторное
// планирование по тому же ключу отменяет и замещает прежний таймер,
// а не накапливает их.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	pending map[string]*debounceEntry
}

type debounceEntry struct {
	timer *time.Timer
	fn    func()
}

// NewDebouncer создает планировщик с фиксированной задержкой.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:   delay,
		pending: make(map[string]*debounceEntry),
	}
}

// Schedule планирует запуск fn по ключу key после задержки.
// Ранее запланированная по этому ключу функция отменяется.
func (d *Debouncer) Schedule(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if entry, ok := d.pending[key]; ok {
		entry.timer.Stop()
	}

	entry := &debounceEntry{fn: fn}
	entry.timer = time.AfterFunc(d.delay, func() {
		if d.take(key, entry) {
			fn()
		}
	})
	d.pending[key] = entry
}

// Cancel отменяет запланированный запуск; отсутствие записи не ошибка.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if entry, ok := d.pending[key]; ok {
		entry.timer.Stop()
		delete(d.pending, key)
	}
}

// Flush немедленно синхронно выполняет запланированную функцию.
// Возвращает false, если по ключу ничего не запланировано
// (повторный flush безопасен).
func (d *Debouncer) Flush(key string) bool {
	d.mu.Lock()
	entry, ok := d.pending[key]
	if ok {
		entry.timer.Stop()
		delete(d.pending, key)
	}
	d.mu.Unlock()

	if !ok {
		return false
	}
	entry.fn()
	return true
}

// Stop отменяет все запланированные запуски.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, entry := range d.pending {
		entry.timer.Stop()
		delete(d.pending, key)
	}
}

// take удаляет запись по срабатыванию таймера. Возвращает false, если
// запись уже была замещена, отменена или выполнена через Flush.
func (d *Debouncer) take(key string, entry *debounceEntry) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	current, ok := d.pending[key]
	if !ok || current != entry {
		return false
	}
	delete(d.pending, key)
	return true
}
