package apiv1

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	auditpackhandler "timeledger-backend/lib/audit-pack"
	auditpackstore "timeledger-backend/lib/audit-pack/store"
	"timeledger-backend/middleware"
)

func newAuditPackApp() *fiber.App {
	auditpackhandler.Instance = auditpackhandler.NewInstance(auditpackstore.NewMemoryStore(), nil, nil, auditpackhandler.Config{})
	app := fiber.New()
	app.Use(middleware.OrganizationRequired())
	InitAuditPackApiRouters(app)
	return app
}

type requestView struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Attached bool   `json:"attached"`
}

func TestAuditPackApi(t *testing.T) {
	app := newAuditPackApp()
	const scope = `{"employee_ids":["e2","e1"],"from":"2026-03-01T00:00:00Z","to":"2026-04-01T00:00:00Z"}`

	var created requestView
	t.Run(`запрос ставится в очередь`, func(t *testing.T) {
		resp, data := call(t, app, fiber.MethodPost, "/audit_pack", scope)
		require.Equal(t, fiber.StatusAccepted, resp.StatusCode, string(data))
		decode(t, data, &created)
		require.Equal(t, "pending", created.Status)
		require.False(t, created.Attached)
	})
	t.Run(`повторный запрос той же области присоединяется к активному`, func(t *testing.T) {
		resp, data := call(t, app, fiber.MethodPost, "/audit_pack", `{"employee_ids":["e1","e2","e1"],"from":"2026-03-01T00:00:00Z","to":"2026-04-01T00:00:00Z"}`)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, string(data))
		var attached requestView
		decode(t, data, &attached)
		require.Equal(t, created.ID, attached.ID)
		require.True(t, attached.Attached)
	})
	t.Run(`некорректная область отклоняется`, func(t *testing.T) {
		resp, data := call(t, app, fiber.MethodPost, "/audit_pack", `{"employee_ids":[],"from":"2026-03-01T00:00:00Z","to":"2026-04-01T00:00:00Z"}`)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode, string(data))
		require.Equal(t, "VALIDATION_ERROR", decode(t, data, nil).Code)
	})
	t.Run(`состояние запроса`, func(t *testing.T) {
		resp, data := call(t, app, fiber.MethodGet, "/audit_pack/"+created.ID, "")
		require.Equal(t, fiber.StatusOK, resp.StatusCode, string(data))
		var view requestView
		decode(t, data, &view)
		require.Equal(t, created.ID, view.ID)
	})
	t.Run(`запрос другой организации не виден`, func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodGet, "/audit_pack/"+created.ID, nil)
		req.Header.Set(middleware.HeaderOrganizationID, "org-2")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
	t.Run(`незавершённый пакет не скачивается и не повторяется`, func(t *testing.T) {
		resp, data := call(t, app, fiber.MethodGet, "/audit_pack/"+created.ID+"/download", "")
		require.Equal(t, fiber.StatusConflict, resp.StatusCode, string(data))

		resp, data = call(t, app, fiber.MethodPost, "/audit_pack/"+created.ID+"/retry", "")
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode, string(data))
		require.Equal(t, "VALIDATION_ERROR", decode(t, data, nil).Code)
	})
	t.Run(`неизвестный запрос`, func(t *testing.T) {
		resp, _ := call(t, app, fiber.MethodGet, "/audit_pack/"+strings.Repeat("a", 36), "")
		require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}
