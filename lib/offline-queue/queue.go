// Package offlinequeue - локальная очередь отметок, принятых в момент недоступности хранилища журнала.
// Отметки воспроизводятся в журнал фоновой задачей с origin offline_replayed.
package offlinequeue

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
	ledgerapimodels "timeledger-backend/models/api/ledger"
)

type ActionType string

const (
	ActionClockIn           ActionType = "clock_in"
	ActionClockOut          ActionType = "clock_out"
	ActionCorrection        ActionType = "correction"
	ActionClockOutWithBreak ActionType = "clock_out_with_break"
)

// Payload - данные отложенной отметки. Ровно одно из полей Entry или Break заполнено.
type Payload struct {
	OrganizationID string                           `json:"organization_id"`
	EmployeeID     string                           `json:"employee_id"`
	Entry          *ledgerapimodels.AppendEntryData `json:"entry,omitempty"`
	Break          *ledgerapimodels.AppendBreakData `json:"break,omitempty"`
}

type QueuedAction struct {
	ID         int64
	ActionType ActionType
	Timestamp  time.Time
	Payload    Payload
	RetryCount int
	CreatedAt  time.Time
}

type Provider interface {
	Enqueue(ctx context.Context, payload Payload) (id int64, err error)
	Pending(ctx context.Context, maxRetries, limit int) ([]QueuedAction, error)
	MarkCompleted(ctx context.Context, id int64) error
	IncrementRetry(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
	Close() error
}

var Instance Provider

const schema = `
CREATE TABLE IF NOT EXISTS queue (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	action_type TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	payload TEXT,
	retry_count INTEGER DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_queue_created_at ON queue(created_at);
`

func NewHandler(path string) error {
	queue, err := Open(path)
	if err != nil {
		return err
	}
	Instance = queue
	return nil
}

// Open открывает (или создаёт) файл очереди sqlite
func Open(path string) (*Queue, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, "ошибка создания каталога офлайн-очереди")
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка открытия офлайн-очереди")
	}
	// sqlite допускает одного писателя
	db.SetMaxOpenConns(1)
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ошибка включения WAL")
	}
	if _, err = db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ошибка создания таблицы офлайн-очереди")
	}
	log.WithField("path", path).Info("офлайн-очередь открыта")
	return &Queue{db: db, now: time.Now}, nil
}

type Queue struct {
	db  *sql.DB
	now func() time.Time
}

func (q *Queue) Enqueue(ctx context.Context, payload Payload) (int64, error) {
	actionType, ts, err := describe(payload)
	if err != nil {
		return 0, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, errors.Wrap(err, "ошибка сериализации отметки")
	}
	res, err := q.db.ExecContext(ctx,
		"INSERT INTO queue (action_type, timestamp, payload, created_at) VALUES (?, ?, ?, ?)",
		string(actionType), ts.UnixNano(), string(body), q.now().UnixNano())
	if err != nil {
		return 0, errors.Wrap(err, "ошибка добавления отметки в офлайн-очередь")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "ошибка получения идентификатора отметки")
	}
	log.
		WithField("employee_id", payload.EmployeeID).
		WithField("action_type", actionType).
		WithField("queue_id", id).
		Info("отметка помещена в офлайн-очередь")
	return id, nil
}

// Pending возвращает отметки в порядке поступления, пропуская исчерпавшие попытки
func (q *Queue) Pending(ctx context.Context, maxRetries, limit int) ([]QueuedAction, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, action_type, timestamp, payload, retry_count, created_at
		 FROM queue
		 WHERE retry_count < ?
		 ORDER BY created_at ASC, id ASC
		 LIMIT ?`, maxRetries, limit)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка чтения офлайн-очереди")
	}
	defer rows.Close()
	list := []QueuedAction{}
	for rows.Next() {
		var (
			action    QueuedAction
			ts        int64
			createdAt int64
			body      sql.NullString
		)
		if err = rows.Scan(&action.ID, &action.ActionType, &ts, &body, &action.RetryCount, &createdAt); err != nil {
			return nil, errors.Wrap(err, "ошибка чтения строки офлайн-очереди")
		}
		action.Timestamp = time.Unix(0, ts).UTC()
		action.CreatedAt = time.Unix(0, createdAt).UTC()
		if body.Valid {
			if err = json.Unmarshal([]byte(body.String), &action.Payload); err != nil {
				return nil, errors.Wrapf(err, "повреждена отметка %d в офлайн-очереди", action.ID)
			}
		}
		list = append(list, action)
	}
	return list, rows.Err()
}

func (q *Queue) MarkCompleted(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM queue WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "ошибка удаления отметки из офлайн-очереди")
	}
	return nil
}

func (q *Queue) IncrementRetry(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, "UPDATE queue SET retry_count = retry_count + 1 WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "ошибка обновления счётчика попыток")
	}
	return nil
}

func (q *Queue) Count(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM queue").Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "ошибка подсчёта офлайн-очереди")
	}
	return count, nil
}

func (q *Queue) Close() error {
	return q.db.Close()
}

func describe(payload Payload) (ActionType, time.Time, error) {
	switch {
	case payload.EmployeeID == "":
		return "", time.Time{}, errors.New("отсутствует идентификатор сотрудника")
	case payload.Entry != nil && payload.Break == nil:
		return ActionType(payload.Entry.Kind), payload.Entry.Timestamp, nil
	case payload.Break != nil && payload.Entry == nil:
		return ActionClockOutWithBreak, payload.Break.BreakStart, nil
	}
	return "", time.Time{}, errors.New("отметка должна содержать либо запись, либо перерыв")
}
