package ledger

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrStoreUnavailable - хранилище журнала не ответило, отметку можно отложить в офлайн-очередь
var ErrStoreUnavailable = errors.New("хранилище журнала недоступно")

type storeError struct {
	op    string
	cause error
}

func (e *storeError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.cause)
}

func (e *storeError) Unwrap() error { return e.cause }

func (e *storeError) Is(target error) bool { return target == ErrStoreUnavailable }
