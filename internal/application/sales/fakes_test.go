package sales_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/cotizaciones-api/internal/application/sales"
	"github.com/jhoicas/cotizaciones-api/internal/domain/entity"
	"github.com/jhoicas/cotizaciones-api/internal/domain/repository"
	"github.com/jhoicas/cotizaciones-api/internal/domain/workflow"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria de los puertos de persistencia.
// ──────────────────────────────────────────────────────────────────────────────

type memStore struct {
	mu       sync.Mutex
	orders   map[string]*entity.SalesOrder
	events   []*entity.OrderEvent
	users    map[string]*entity.User
	clients  map[int64]*entity.Client
	taxRates map[int64]*entity.TaxRate
	config   *entity.GlobalConfig
	versions map[int64]*entity.VersionCost
	// failWrites simula una caída de la base en escrituras.
	failWrites error
}

func newMemStore() *memStore {
	return &memStore{
		orders:   map[string]*entity.SalesOrder{},
		users:    map[string]*entity.User{},
		clients:  map[int64]*entity.Client{},
		taxRates: map[int64]*entity.TaxRate{},
		versions: map[int64]*entity.VersionCost{},
	}
}

func cloneOrder(o *entity.SalesOrder) *entity.SalesOrder {
	c := *o
	c.Items = append([]entity.SalesOrderItem(nil), o.Items...)
	return &c
}

type orderRepo struct{ s *memStore }

var _ repository.SalesOrderRepository = orderRepo{}

func (r orderRepo) Create(_ context.Context, o *entity.SalesOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWrites != nil {
		return r.s.failWrites
	}
	r.s.orders[o.ID] = cloneOrder(o)
	return nil
}

func (r orderRepo) Update(_ context.Context, o *entity.SalesOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWrites != nil {
		return r.s.failWrites
	}
	r.s.orders[o.ID] = cloneOrder(o)
	return nil
}

func (r orderRepo) UpdateStatus(_ context.Context, id string, status workflow.Status) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWrites != nil {
		return r.s.failWrites
	}
	if o, ok := r.s.orders[id]; ok {
		o.Status = status
	}
	return nil
}

func (r orderRepo) GetByID(_ context.Context, id string) (*entity.SalesOrder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	return cloneOrder(o), nil
}

func (r orderRepo) List(_ context.Context, f repository.SalesOrderFilter) ([]*entity.SalesOrder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.SalesOrder
	for _, o := range r.s.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.ClientID != 0 && o.ClientID != f.ClientID {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r orderRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.orders, id)
	return nil
}

type eventRepo struct{ s *memStore }

func (r eventRepo) Create(_ context.Context, e *entity.OrderEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.events = append(r.s.events, e)
	return nil
}

func (r eventRepo) ListByOrder(_ context.Context, id string) ([]*entity.OrderEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.OrderEvent
	for _, e := range r.s.events {
		if e.SalesOrderID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

type userRepo struct{ s *memStore }

func (r userRepo) Create(_ context.Context, u *entity.User) error {
	r.s.users[u.ID] = u
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	return r.s.users[id], nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range r.s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

type clientRepo struct{ s *memStore }

func (r clientRepo) GetByID(_ context.Context, id int64) (*entity.Client, error) {
	return r.s.clients[id], nil
}

type taxRepo struct{ s *memStore }

func (r taxRepo) GetByID(_ context.Context, id int64) (*entity.TaxRate, error) {
	return r.s.taxRates[id], nil
}

func (r taxRepo) Upsert(_ context.Context, t *entity.TaxRate) error {
	r.s.taxRates[t.ID] = t
	return nil
}

type configRepo struct{ s *memStore }

func (r configRepo) Get(context.Context) (*entity.GlobalConfig, error) { return r.s.config, nil }
func (r configRepo) Save(_ context.Context, c *entity.GlobalConfig) error {
	r.s.config = c
	return nil
}

type recipeRepo struct{ s *memStore }

func (r recipeRepo) GetVersionCost(_ context.Context, id int64) (*entity.VersionCost, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.versions[id], nil
}

type txRunner struct{ s *memStore }

func (t txRunner) RunSales(ctx context.Context, fn func(repository.SalesOrderRepository, repository.OrderEventRepository) error) error {
	return fn(orderRepo{t.s}, eventRepo{t.s})
}

type fakePDF struct{ last sales.QuoteDocument }

func (f *fakePDF) GenerateQuotePDF(_ context.Context, doc sales.QuoteDocument) ([]byte, error) {
	f.last = doc
	return []byte("%PDF-1.4 fake"), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Fixture
// ──────────────────────────────────────────────────────────────────────────────

var (
	vendedor = sales.Actor{UserID: "u-vend", Role: entity.RoleVendedor}
	gerente  = sales.Actor{UserID: "u-ger", Role: entity.RoleGerente}
	admin    = sales.Actor{UserID: "u-admin", Role: entity.RoleAdmin}
	fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func i64(v int64) *int64 { return &v }

func dec(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

type fixture struct {
	store *memStore
	pdf   *fakePDF
	uc    *sales.SalesUseCase
}

func newFixture() *fixture {
	s := newMemStore()
	s.users[vendedor.UserID] = &entity.User{ID: vendedor.UserID, Role: entity.RoleVendedor, CommissionRate: d("0.05")}
	s.users[gerente.UserID] = &entity.User{ID: gerente.UserID, Role: entity.RoleGerente}
	s.users[admin.UserID] = &entity.User{ID: admin.UserID, Role: entity.RoleAdmin}
	s.clients[7] = &entity.Client{ID: 7, FullName: "Constructora del Norte"}
	s.taxRates[1] = &entity.TaxRate{ID: 1, Name: "IVA 16%", Rate: d("0.16")}
	s.taxRates[2] = &entity.TaxRate{ID: 2, Name: "IVA frontera 8%", Rate: d("0.08")}
	s.config = &entity.GlobalConfig{CompanyName: "Carpintería Fina", TargetProfitMargin: d("25")}
	s.versions[100] = &entity.VersionCost{
		VersionID:   100,
		VersionName: "Cubierta v3",
		UnitCost:    d("1000"),
		Ingredients: []entity.Ingredient{
			{SKU: "GRA-01", Name: "Granito", QtyRecipe: d("2"), FrozenUnitCost: d("450"), LineTotal: d("900")},
			{SKU: "PEG-01", Name: "Pegamento", QtyRecipe: d("1"), FrozenUnitCost: d("100"), LineTotal: d("100")},
		},
	}
	s.versions[200] = &entity.VersionCost{VersionID: 200, VersionName: "Tarja v1", UnitCost: d("100")}

	pdf := &fakePDF{}
	uc := sales.NewSalesUseCase(sales.Deps{
		Orders:   orderRepo{s},
		Events:   eventRepo{s},
		Users:    userRepo{s},
		Clients:  clientRepo{s},
		TaxRates: taxRepo{s},
		Config:   configRepo{s},
		Recipes:  recipeRepo{s},
		Tx:       txRunner{s},
		PDF:      pdf,
		Settings: sales.Settings{DefaultMargin: d("40"), FallbackTaxRate: d("0.16")},
		Logger:   zerolog.Nop(),
		Now:      func() time.Time { return fixedNow },
	})
	return &fixture{store: s, pdf: pdf, uc: uc}
}
