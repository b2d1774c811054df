package apiv1

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	xlsexport "timeledger-backend/lib/export/xls"
	"timeledger-backend/lib/ledger"
	ledgerstore "timeledger-backend/lib/ledger/store"
	offlinequeue "timeledger-backend/lib/offline-queue"
	"timeledger-backend/middleware"
	dbmodels "timeledger-backend/models/db"
)

type unavailableStore struct {
	*ledgerstore.MemoryStore
}

func (s unavailableStore) GetTail(context.Context, string) (*dbmodels.ChainTail, error) {
	return nil, errors.New("connection refused")
}

type response struct {
	Status string          `json:"status"`
	Code   string          `json:"code"`
	Data   json.RawMessage `json:"data"`
}

func newLedgerApp(store ledgerstore.Provider, queue offlinequeue.Provider) *fiber.App {
	ledger.Instance = ledger.NewInstance(store, 3)
	xlsexport.NewHandler()
	offlinequeue.Instance = queue
	app := fiber.New()
	app.Use(middleware.OrganizationRequired())
	InitLedgerApiRouters(app)
	return app
}

func call(t *testing.T, app *fiber.App, method, target, body string) (*http.Response, []byte) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(middleware.HeaderOrganizationID, "org-1")
	req.Header.Set(middleware.HeaderUserID, "u-1")
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decode(t *testing.T, data []byte, out interface{}) response {
	var resp response
	require.NoError(t, json.Unmarshal(data, &resp))
	if out != nil {
		require.NoError(t, json.Unmarshal(resp.Data, out))
	}
	return resp
}

func TestLedgerApi(t *testing.T) {
	app := newLedgerApp(ledgerstore.NewMemoryStore(), nil)
	defer func() { offlinequeue.Instance = nil }()

	t.Run(`отметки добавляются в цепочку сотрудника`, func(t *testing.T) {
		resp, data := call(t, app, fiber.MethodPost, "/ledger/e1/entries", `{"kind":"clock_in","timestamp":"2026-03-02T09:00:00Z"}`)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(data))
		var entry struct {
			ID       string `json:"id"`
			Sequence int64  `json:"sequence"`
			Origin   string `json:"origin"`
		}
		decode(t, data, &entry)
		require.EqualValues(t, 1, entry.Sequence)
		require.Equal(t, "interactive", entry.Origin)

		resp, data = call(t, app, fiber.MethodPost, "/ledger/e1/breaks", `{"break_start":"2026-03-02T13:00:00Z","resume_at":"2026-03-02T13:30:00Z"}`)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(data))
		var list []json.RawMessage
		decode(t, data, &list)
		require.Len(t, list, 2)
	})
	t.Run(`цепочка проходит проверку`, func(t *testing.T) {
		resp, data := call(t, app, fiber.MethodGet, "/ledger/e1/verify", "")
		require.Equal(t, fiber.StatusOK, resp.StatusCode, string(data))
		var verdict struct {
			Status  string `json:"status"`
			Checked int    `json:"checked"`
		}
		decode(t, data, &verdict)
		require.Equal(t, "OK", verdict.Status)
		require.Equal(t, 3, verdict.Checked)
	})
	t.Run(`сотрудник на работе после перерыва`, func(t *testing.T) {
		resp, data := call(t, app, fiber.MethodGet, "/ledger/e1/status", "")
		require.Equal(t, fiber.StatusOK, resp.StatusCode, string(data))
		var status struct {
			IsClockedIn bool `json:"is_clocked_in"`
		}
		decode(t, data, &status)
		require.True(t, status.IsClockedIn)
	})
	t.Run(`корректировка без исправляемой записи отклоняется`, func(t *testing.T) {
		resp, data := call(t, app, fiber.MethodPost, "/ledger/e1/entries", `{"kind":"correction","timestamp":"2026-03-02T09:05:00Z"}`)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode, string(data))
		require.Equal(t, "fail", decode(t, data, nil).Status)
	})
	t.Run(`некорректный период отклоняется`, func(t *testing.T) {
		resp, _ := call(t, app, fiber.MethodGet, "/ledger/e1/verify?from=2026-03-03T00:00:00Z&to=2026-03-02T00:00:00Z", "")
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
	t.Run(`табель и отчёт выгружаются файлами`, func(t *testing.T) {
		resp, data := call(t, app, fiber.MethodGet, "/ledger/e1/timesheet", "")
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		require.Contains(t, resp.Header.Get(fiber.HeaderContentType), "spreadsheetml")
		require.True(t, bytes.HasPrefix(data, []byte("PK")))

		resp, data = call(t, app, fiber.MethodGet, "/ledger/e1/report", "")
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		require.Equal(t, "application/pdf", resp.Header.Get(fiber.HeaderContentType))
		require.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	})
}

func TestLedgerApiOffline(t *testing.T) {
	queue, err := offlinequeue.Open(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	defer queue.Close()
	app := newLedgerApp(unavailableStore{ledgerstore.NewMemoryStore()}, queue)
	defer func() { offlinequeue.Instance = nil }()

	t.Run(`при недоступном журнале отметка уходит в офлайн-очередь`, func(t *testing.T) {
		resp, data := call(t, app, fiber.MethodPost, "/ledger/e1/entries", `{"kind":"clock_in","timestamp":"2026-03-02T09:00:00Z"}`)
		require.Equal(t, fiber.StatusAccepted, resp.StatusCode, string(data))
		var queued struct {
			QueueID int64 `json:"queue_id"`
		}
		decode(t, data, &queued)
		require.NotZero(t, queued.QueueID)
	})
	t.Run(`перерыв целиком уходит в очередь, если ничего не записано`, func(t *testing.T) {
		resp, data := call(t, app, fiber.MethodPost, "/ledger/e1/breaks", `{"break_start":"2026-03-02T13:00:00Z","resume_at":"2026-03-02T13:30:00Z"}`)
		require.Equal(t, fiber.StatusAccepted, resp.StatusCode, string(data))

		pending, err := queue.Pending(context.Background(), 5, 0)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		require.Equal(t, offlinequeue.ActionClockIn, pending[0].ActionType)
		require.Equal(t, offlinequeue.ActionClockOutWithBreak, pending[1].ActionType)
		require.Equal(t, "org-1", pending[1].Payload.OrganizationID)
	})
	t.Run(`без очереди ошибка хранилища возвращается клиенту`, func(t *testing.T) {
		offlinequeue.Instance = nil
		resp, data := call(t, app, fiber.MethodPost, "/ledger/e1/entries", `{"kind":"clock_in","timestamp":"2026-03-02T09:00:00Z"}`)
		require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode, string(data))
		require.Equal(t, "INTERNAL_ERROR", decode(t, data, nil).Code)
	})
}
