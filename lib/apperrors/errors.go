// Package apperrors содержит типизированные ошибки ядра журнала и сборки аудиторских пакетов.
// Код ошибки (Code) сохраняется в запросе на формирование пакета как причина отказа.
package apperrors

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"timeledger-backend/models"
)

const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeIntegrity            = "INTEGRITY_ERROR"
	CodeLineageConflict      = "LINEAGE_CONFLICT"
	CodeDataUnavailable      = "DATA_UNAVAILABLE"
	CodeStorage              = "STORAGE_ERROR"
	CodeTimeout              = "TIMEOUT"
	CodeConcurrencyExhausted = "CONCURRENCY_EXHAUSTED"
	CodeInternal             = "INTERNAL_ERROR"
)

type ValidationItem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError - некорректная или вне политики область запроса. Не повторяется.
type ValidationError struct {
	Items []ValidationItem
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		parts = append(parts, fmt.Sprintf("%s: %s", item.Field, item.Message))
	}
	return "ошибка валидации: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Code() string { return CodeValidation }

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Items: []ValidationItem{{Field: field, Message: message}}}
}

// IntegrityError - расхождение в цепочке хэшей. Пакет с такой цепочкой не формируется.
type IntegrityError struct {
	EmployeeID string
	Status     models.VerdictStatus
	EntryID    string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("нарушена целостность журнала сотрудника %s: %s на записи %s", e.EmployeeID, e.Status, e.EntryID)
}

func (e *IntegrityError) Code() string { return CodeIntegrity }

// LineageConflictError - цикл или развилка в цепочке корректировок
type LineageConflictError struct {
	EmployeeID  string
	RootEntryID string
	Reason      models.LineageConflict
	EntryIDs    []string
}

func (e *LineageConflictError) Error() string {
	return fmt.Sprintf("конфликт корректировок (%s) для записи %s: %s", e.Reason, e.RootEntryID, strings.Join(e.EntryIDs, ","))
}

func (e *LineageConflictError) Code() string { return CodeLineageConflict }

// DataUnavailableError - отсутствует некритичная связанная запись
type DataUnavailableError struct {
	EntityType string
	EntityID   string
	Reason     string
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("данные недоступны (%s %s): %s", e.EntityType, e.EntityID, e.Reason)
}

func (e *DataUnavailableError) Code() string { return CodeDataUnavailable }

// StorageError - ошибка выгрузки в объектное хранилище, повторяемая
type StorageError struct {
	Op    string
	Cause error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("ошибка объектного хранилища (%s): %v", e.Op, e.Cause)
}

func (e *StorageError) Code() string { return CodeStorage }

func (e *StorageError) Unwrap() error { return e.Cause }

// TimeoutError - превышен бюджет времени на одну попытку
type TimeoutError struct {
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("превышено время формирования пакета (%s)", e.Budget)
}

func (e *TimeoutError) Code() string { return CodeTimeout }

func (e *TimeoutError) Unwrap() error { return context.DeadlineExceeded }

// ConcurrencyExhaustedError - исчерпаны попытки compare-and-swap хвоста цепочки
type ConcurrencyExhaustedError struct {
	EmployeeID string
	Attempts   int
}

func (e *ConcurrencyExhaustedError) Error() string {
	return fmt.Sprintf("не удалось добавить запись в журнал сотрудника %s за %d попыток", e.EmployeeID, e.Attempts)
}

func (e *ConcurrencyExhaustedError) Code() string { return CodeConcurrencyExhausted }

type coder interface {
	Code() string
}

// CodeOf возвращает код первой типизированной ошибки в цепочке
func CodeOf(err error) string {
	for err != nil {
		if c, ok := err.(coder); ok {
			return c.Code()
		}
		err = errors.Unwrap(err)
	}
	return CodeInternal
}

// Retryable - имеет ли смысл повторять попытку формирования пакета
func Retryable(err error) bool {
	switch CodeOf(err) {
	case CodeValidation, CodeIntegrity, CodeLineageConflict:
		return false
	}
	return true
}
