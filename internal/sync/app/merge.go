// Package app реализует прикладную логику движка синхронизации:
// слияние коллекций, коалесценцию очереди отложенных изменений и
// оркестрацию сохранений.
package app

import (
	"sort"
	"time"

	"notesync/internal/sync/domain/entities"
)

// Mergeable - сущность, участвующая в слиянии коллекций.
type Mergeable interface {
	EntityID() string
	ModifiedAt() time.Time
}

// Merge сводит локальный и удалённый снимки коллекции в один
// авторитетный по правилу last-write-wins.
//
// Удалённый снимок задаёт базу существования записей. Локальная запись
// с временным идентификатором сохраняется всегда. Локальная запись со
// стабильным идентификатором заменяет удалённую только при строго
// более поздней метке обновления; при равенстве побеждает удалённая.
// Стабильный идентификатор, отсутствующий в удалённом снимке,
// считается удалённым на сервере и в результат не попадает.
//
// Результат отсортирован по идентификатору для детерминизма.
func Merge[T Mergeable](local, remote []T) []T {
	byID := make(map[string]T, len(remote))
	for _, entity := range remote {
		byID[entity.EntityID()] = entity
	}

	for _, entity := range local {
		id := entity.EntityID()
		if entities.IsTempID(id) {
			byID[id] = entity
			continue
		}
		current, ok := byID[id]
		if !ok {
			continue
		}
		if entity.ModifiedAt().After(current.ModifiedAt()) {
			byID[id] = entity
		}
	}

	merged := make([]T, 0, len(byID))
	for _, entity := range byID {
		merged = append(merged, entity)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].EntityID() < merged[j].EntityID()
	})
	return merged
}
