package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cotizaciones-api/internal/application/dto"
	"github.com/jhoicas/cotizaciones-api/internal/application/sales"
	"github.com/jhoicas/cotizaciones-api/internal/domain"
	"github.com/jhoicas/cotizaciones-api/internal/domain/workflow"
	apphttp "github.com/jhoicas/cotizaciones-api/internal/interfaces/http"
)

// ──────────────────────────────────────────────────────────────────────────────
// Stubs
// ──────────────────────────────────────────────────────────────────────────────

// stubSales implementa SalesService; cada método sin función configurada responde ErrNotFound.
type stubSales struct {
	create     func(a sales.Actor, in dto.CreateOrderRequest) (*dto.SalesOrderResponse, error)
	transition func(a sales.Actor, id string, action workflow.Action) (*dto.TransitionResponse, error)
	authorize  func(a sales.Actor, id string, in dto.SimulateRequest) (*dto.SalesOrderResponse, error)
	pdf        func(id string) ([]byte, string, error)

	transitionCalls int
	lastFilter      dto.OrderListFilter
}

func (s *stubSales) CreateOrder(_ context.Context, a sales.Actor, in dto.CreateOrderRequest) (*dto.SalesOrderResponse, error) {
	if s.create == nil {
		return nil, domain.ErrNotFound
	}
	return s.create(a, in)
}

func (s *stubSales) GetOrder(context.Context, sales.Actor, string) (*dto.SalesOrderResponse, error) {
	return nil, domain.ErrNotFound
}

func (s *stubSales) ListOrders(_ context.Context, in dto.OrderListFilter) (*dto.SalesOrderListResponse, error) {
	s.lastFilter = in
	return &dto.SalesOrderListResponse{Items: []dto.SalesOrderSummary{}}, nil
}

func (s *stubSales) UpdateOrder(context.Context, sales.Actor, string, dto.UpdateOrderRequest) (*dto.SalesOrderResponse, error) {
	return nil, &domain.InvalidTransitionError{From: "SENT", Action: "edit-pricing", Actor: "vendedor"}
}

func (s *stubSales) DeleteOrder(context.Context, sales.Actor, string) error { return nil }

func (s *stubSales) ListEvents(context.Context, string) ([]dto.OrderEventResponse, error) {
	return []dto.OrderEventResponse{{Action: "create", ToStatus: "DRAFT"}}, nil
}

func (s *stubSales) CheckStaleCosts(context.Context, string) ([]dto.StaleCostResponse, error) {
	return nil, domain.ErrUnavailable
}

func (s *stubSales) RenderPDF(_ context.Context, id string) ([]byte, string, error) {
	if s.pdf == nil {
		return nil, "", domain.ErrNotFound
	}
	return s.pdf(id)
}

func (s *stubSales) Transition(_ context.Context, a sales.Actor, id string, action workflow.Action) (*dto.TransitionResponse, error) {
	s.transitionCalls++
	if s.transition == nil {
		return nil, domain.ErrNotFound
	}
	return s.transition(a, id, action)
}

func (s *stubSales) OpenReview(context.Context, sales.Actor, string) (*dto.ReviewResponse, error) {
	return &dto.ReviewResponse{}, nil
}

func (s *stubSales) Simulate(context.Context, string, dto.SimulateRequest) (*dto.SimulationResponse, error) {
	return &dto.SimulationResponse{GlobalMargin: decimal.NewFromInt(20)}, nil
}

func (s *stubSales) SavePricing(context.Context, sales.Actor, string, dto.SimulateRequest) (*dto.SalesOrderResponse, error) {
	return &dto.SalesOrderResponse{}, nil
}

func (s *stubSales) AuthorizeWithPricing(_ context.Context, a sales.Actor, id string, in dto.SimulateRequest) (*dto.SalesOrderResponse, error) {
	if s.authorize == nil {
		return nil, domain.ErrNotFound
	}
	return s.authorize(a, id, in)
}

type stubAuth struct{}

func (stubAuth) RegisterUser(_ context.Context, in dto.RegisterRequest) (*dto.UserResponse, error) {
	return &dto.UserResponse{Email: in.Email, Role: in.Role}, nil
}

func (stubAuth) Login(context.Context, dto.LoginRequest) (*dto.LoginResponse, error) {
	return nil, domain.ErrUserNotFound
}

func (stubAuth) Me(_ context.Context, userID string) (*dto.UserResponse, error) {
	return &dto.UserResponse{ID: userID}, nil
}

// memStore IdempotencyStore en memoria.
type memStore struct {
	mu   sync.Mutex
	keys map[string]bool
	err  error
}

func newMemStore() *memStore { return &memStore{keys: map[string]bool{}} }

func (m *memStore) Claim(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memStore) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

func newAPI(svc *stubSales, store apphttp.IdempotencyStore) *fiber.App {
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		AuthUC:      stubAuth{},
		SalesUC:     svc,
		Idempotency: store,
		JWTSecret:   testJWTSecret,
		Logger:      zerolog.Nop(),
	})
	return app
}

func call(t *testing.T, app *fiber.App, method, path, role, body string, headers ...string) (*http.Response, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, string(raw)
}

// ──────────────────────────────────────────────────────────────────────────────
// Cotizaciones
// ──────────────────────────────────────────────────────────────────────────────

func TestCreate_PasaActorDelToken(t *testing.T) {
	var got sales.Actor
	svc := &stubSales{create: func(a sales.Actor, in dto.CreateOrderRequest) (*dto.SalesOrderResponse, error) {
		got = a
		return &dto.SalesOrderResponse{ID: "o-1", ProjectName: in.ProjectName, Status: "DRAFT"}, nil
	}}
	resp, body := call(t, newAPI(svc, nil), http.MethodPost, "/api/orders", "vendedor",
		`{"client_id":7,"project_name":"Residencia Lomas","tax_rate_id":1,"items":[]}`)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, sales.Actor{UserID: testUserID, Role: "vendedor"}, got)
	assert.Contains(t, body, `"project_name":"Residencia Lomas"`)
}

func TestCreate_ValidacionDevuelve400ConCampos(t *testing.T) {
	svc := &stubSales{create: func(sales.Actor, dto.CreateOrderRequest) (*dto.SalesOrderResponse, error) {
		return nil, domain.NewValidationError("items[0].quantity", "debe ser mayor que cero")
	}}
	resp, body := call(t, newAPI(svc, nil), http.MethodPost, "/api/orders", "vendedor", `{}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var out dto.ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Equal(t, "VALIDATION", out.Code)
	require.Len(t, out.Fields, 1)
	assert.Equal(t, "items[0].quantity", out.Fields[0].Field)
}

func TestCreate_CuerpoInvalido(t *testing.T) {
	resp, body := call(t, newAPI(&stubSales{}, nil), http.MethodPost, "/api/orders", "vendedor", `{no-json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "INVALID_BODY")
}

func TestOrders_SinTokenEs401(t *testing.T) {
	resp, _ := call(t, newAPI(&stubSales{}, nil), http.MethodGet, "/api/orders", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUpdate_TransicionInvalidaEs409(t *testing.T) {
	resp, body := call(t, newAPI(&stubSales{}, nil), http.MethodPatch, "/api/orders/o-1", "vendedor", `{"notes":"x"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, body, "INVALID_TRANSITION")
}

func TestGet_NoEncontradaEs404(t *testing.T) {
	resp, body := call(t, newAPI(&stubSales{}, nil), http.MethodGet, "/api/orders/o-x", "vendedor", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "NOT_FOUND")
}

func TestDelete_Devuelve204(t *testing.T) {
	resp, _ := call(t, newAPI(&stubSales{}, nil), http.MethodDelete, "/api/orders/o-1", "vendedor", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestEvents_EnvuelveEnItems(t *testing.T) {
	resp, body := call(t, newAPI(&stubSales{}, nil), http.MethodGet, "/api/orders/o-1/events", "gerente", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"items":[`)
	assert.Contains(t, body, `"action":"create"`)
}

func TestStaleCosts_InfraestructuraCaidaEs503(t *testing.T) {
	resp, body := call(t, newAPI(&stubSales{}, nil), http.MethodGet, "/api/orders/o-1/stale-costs", "gerente", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, "UNAVAILABLE")
}

func TestPDF_CabecerasDeDescarga(t *testing.T) {
	svc := &stubSales{pdf: func(id string) ([]byte, string, error) {
		return []byte("%PDF-1.3"), "cotizacion_" + id + ".pdf", nil
	}}
	resp, body := call(t, newAPI(svc, nil), http.MethodGet, "/api/orders/abc/pdf", "vendedor", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `cotizacion_abc.pdf`)
	assert.Equal(t, "%PDF-1.3", body)
}

func TestList_PasaFiltros(t *testing.T) {
	svc := &stubSales{}
	resp, body := call(t, newAPI(svc, nil), http.MethodGet, "/api/orders?status=SENT&client_id=7", "gerente", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"items":[]`)
	assert.Equal(t, "SENT", svc.lastFilter.Status)
	assert.Equal(t, int64(7), svc.lastFilter.ClientID)
}

// ──────────────────────────────────────────────────────────────────────────────
// Transiciones e idempotencia
// ──────────────────────────────────────────────────────────────────────────────

func okTransition(_ sales.Actor, _ string, action workflow.Action) (*dto.TransitionResponse, error) {
	return &dto.TransitionResponse{From: "DRAFT", To: "SENT"}, nil
}

func TestTransition_AccionDesconocidaNoLlamaAlCasoDeUso(t *testing.T) {
	svc := &stubSales{transition: okTransition}
	resp, body := call(t, newAPI(svc, nil), http.MethodPost, "/api/orders/o-1/actions/publish", "vendedor", "")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, `"field":"action"`)
	assert.Equal(t, 0, svc.transitionCalls)
}

func TestTransition_PasaAccion(t *testing.T) {
	var got workflow.Action
	svc := &stubSales{transition: func(a sales.Actor, id string, action workflow.Action) (*dto.TransitionResponse, error) {
		got = action
		return okTransition(a, id, action)
	}}
	resp, body := call(t, newAPI(svc, nil), http.MethodPost, "/api/orders/o-1/actions/request-auth", "vendedor", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, workflow.ActionRequestAuth, got)
	assert.Contains(t, body, `"to":"SENT"`)
}

func TestIdempotency_SegundoEnvioEsDuplicado(t *testing.T) {
	svc := &stubSales{transition: okTransition}
	app := newAPI(svc, newMemStore())

	resp, _ := call(t, app, http.MethodPost, "/api/orders/o-1/actions/request-auth", "vendedor", "", "Idempotency-Key", "k-1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := call(t, app, http.MethodPost, "/api/orders/o-1/actions/request-auth", "vendedor", "", "Idempotency-Key", "k-1")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, body, "DUPLICATE_SUBMISSION")
	assert.Equal(t, 1, svc.transitionCalls)
}

func TestIdempotency_FalloLiberaLaLlave(t *testing.T) {
	fail := true
	svc := &stubSales{transition: func(a sales.Actor, id string, action workflow.Action) (*dto.TransitionResponse, error) {
		if fail {
			return nil, domain.ErrUnavailable
		}
		return okTransition(a, id, action)
	}}
	app := newAPI(svc, newMemStore())

	resp, _ := call(t, app, http.MethodPost, "/api/orders/o-1/actions/request-auth", "vendedor", "", "Idempotency-Key", "k-2")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	fail = false
	resp, _ = call(t, app, http.MethodPost, "/api/orders/o-1/actions/request-auth", "vendedor", "", "Idempotency-Key", "k-2")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, svc.transitionCalls)
}

func TestIdempotency_SinHeaderNoVerifica(t *testing.T) {
	svc := &stubSales{transition: okTransition}
	app := newAPI(svc, newMemStore())

	for i := 0; i < 2; i++ {
		resp, _ := call(t, app, http.MethodPost, "/api/orders/o-1/actions/request-auth", "vendedor", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	assert.Equal(t, 2, svc.transitionCalls)
}

func TestIdempotency_StoreCaidoEs503(t *testing.T) {
	store := newMemStore()
	store.err = errors.Join(domain.ErrUnavailable, errors.New("dial tcp"))
	svc := &stubSales{transition: okTransition}

	resp, _ := call(t, newAPI(svc, store), http.MethodPost, "/api/orders/o-1/actions/cancel", "admin", "", "Idempotency-Key", "k-3")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, 0, svc.transitionCalls)
}

// ──────────────────────────────────────────────────────────────────────────────
// Revisión
// ──────────────────────────────────────────────────────────────────────────────

func TestReview_VendedorNoAccede(t *testing.T) {
	resp, _ := call(t, newAPI(&stubSales{}, nil), http.MethodGet, "/api/orders/o-1/review", "vendedor", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestReview_SimulateGerente(t *testing.T) {
	resp, body := call(t, newAPI(&stubSales{}, nil), http.MethodPost, "/api/orders/o-1/review/simulate", "gerente",
		`{"edits":[{"scope":"global","margin":"20"}]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"global_margin":"20"`)
}

func TestReview_AuthorizeDecodificaEdiciones(t *testing.T) {
	var got dto.SimulateRequest
	svc := &stubSales{authorize: func(_ sales.Actor, _ string, in dto.SimulateRequest) (*dto.SalesOrderResponse, error) {
		got = in
		return &dto.SalesOrderResponse{Status: "ACCEPTED"}, nil
	}}
	resp, body := call(t, newAPI(svc, newMemStore()), http.MethodPost, "/api/orders/o-1/review/authorize", "gerente",
		`{"edits":[{"scope":"item","index":1,"margin":"-5"}],"commission_percent":"0"}`,
		"Idempotency-Key", "k-4")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"ACCEPTED"`)
	require.Len(t, got.Edits, 1)
	assert.Equal(t, 1, got.Edits[0].Index)
	assert.True(t, got.Edits[0].Margin.Equal(decimal.NewFromInt(-5)))
	require.NotNil(t, got.CommissionPercent)
	assert.True(t, got.CommissionPercent.IsZero())
}

// ──────────────────────────────────────────────────────────────────────────────
// Auth
// ──────────────────────────────────────────────────────────────────────────────

func TestLogin_UsuarioInexistenteEs401(t *testing.T) {
	resp, body := call(t, newAPI(&stubSales{}, nil), http.MethodPost, "/api/auth/login", "",
		`{"email":"nadie@x.mx","password":"12345678"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "UNAUTHORIZED")
}

func TestLogin_CamposRequeridos(t *testing.T) {
	resp, _ := call(t, newAPI(&stubSales{}, nil), http.MethodPost, "/api/auth/login", "", `{"email":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegister_SoloAdmin(t *testing.T) {
	app := newAPI(&stubSales{}, nil)
	payload := `{"email":"v@x.mx","password":"12345678","role":"vendedor"}`

	resp, _ := call(t, app, http.MethodPost, "/api/auth/register", "gerente", payload)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := call(t, app, http.MethodPost, "/api/auth/register", "admin", payload)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Contains(t, body, `"email":"v@x.mx"`)
}

func TestMe_DevuelveUsuarioDelToken(t *testing.T) {
	resp, body := call(t, newAPI(&stubSales{}, nil), http.MethodGet, "/api/auth/me", "vendedor", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, testUserID)
}
