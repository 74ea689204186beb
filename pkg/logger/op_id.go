package logger

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// opIDKeyType - тип ключа контекста для идентификатора операции.
type opIDKeyType struct{}

var opIDKey = opIDKeyType{}

// NewOperationContext создает контекст с идентификатором операции
// синхронизации (цикл сохранения, прогон очереди). Пустой идентификатор
// генерируется автоматически.
func NewOperationContext(ctx context.Context, opID string) context.Context {
	if opID == "" {
		opID = uuid.New().String()
	}
	return context.WithValue(ctx, opIDKey, opID)
}

// GetOperationID извлекает идентификатор операции из контекста.
func GetOperationID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(opIDKey).(string)
	return id, ok
}

// withOperationID добавляет поле op_id к набору полей, если
// идентификатор присутствует в контексте.
func withOperationID(ctx context.Context, fields []zap.Field) []zap.Field {
	if id, ok := GetOperationID(ctx); ok {
		return append(fields, zap.String(OperationID, id))
	}
	return fields
}
