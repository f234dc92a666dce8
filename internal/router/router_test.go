package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/mechanic-shop/internal/config"
	"github.com/iliyamo/mechanic-shop/internal/logger"
	"github.com/iliyamo/mechanic-shop/internal/testutil"
)

type server struct {
	t *testing.T
	e *echo.Echo
}

func testConfig() config.Config {
	return config.Config{
		Env:      "test",
		Database: config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"},
		Auth:     config.AuthConfig{JWTSecret: "router-secret", TokenTTL: time.Hour, BcryptCost: bcrypt.MinCost},
	}
}

func newServer(t *testing.T) *server {
	e := New(Deps{Config: testConfig(), DB: testutil.NewDB(t), Log: logger.Discard()})
	return &server{t: t, e: e}
}

type resp struct {
	code int
	body map[string]any
	raw  []byte
	hdr  http.Header
}

func (s *server) do(method, path string, body any, token string) resp {
	s.t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		require.NoError(s.t, err)
		rdr = bytes.NewReader(bs)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	r := resp{code: rec.Code, raw: rec.Body.Bytes(), hdr: rec.Header()}
	if len(r.raw) > 0 && r.raw[0] == '{' {
		require.NoError(s.t, json.Unmarshal(r.raw, &r.body), string(r.raw))
	}
	return r
}

func id(v any) uint64 {
	f, _ := v.(float64)
	return uint64(f)
}

func (s *server) createCustomer(name, email, password string) uint64 {
	s.t.Helper()
	r := s.do(http.MethodPost, "/customers/", map[string]any{
		"name": name, "email": email, "phone": "555", "address": "1 St", "password": password,
	}, "")
	require.Equal(s.t, http.StatusCreated, r.code, string(r.raw))
	return id(r.body["id"])
}

func (s *server) login(email, password string) string {
	s.t.Helper()
	r := s.do(http.MethodPost, "/customers/login", map[string]any{"email": email, "password": password}, "")
	require.Equal(s.t, http.StatusOK, r.code, string(r.raw))
	tok, _ := r.body["token"].(string)
	require.NotEmpty(s.t, tok)
	return tok
}

func (s *server) createMechanic(name string) uint64 {
	s.t.Helper()
	r := s.do(http.MethodPost, "/mechanics", map[string]any{"name": name, "address": "Garage", "salary": 1000}, "")
	require.Equal(s.t, http.StatusCreated, r.code, string(r.raw))
	return id(r.body["id"])
}

func (s *server) createTicket(token, description string) uint64 {
	s.t.Helper()
	r := s.do(http.MethodPost, "/tickets", map[string]any{"description": description}, token)
	require.Equal(s.t, http.StatusCreated, r.code, string(r.raw))
	return id(r.body["id"])
}

func mechanicIDs(body map[string]any) []uint64 {
	out := []uint64{}
	list, _ := body["mechanics"].([]any)
	for _, m := range list {
		out = append(out, id(m.(map[string]any)["id"]))
	}
	return out
}

func TestJohnDoeScenario(t *testing.T) {
	s := newServer(t)

	r := s.do(http.MethodPost, "/customers/", map[string]any{
		"name": "John Doe", "email": "j@x.com", "phone": "555", "address": "1 St", "password": "pw",
	}, "")
	require.Equal(t, http.StatusCreated, r.code, string(r.raw))
	johnID := id(r.body["id"])
	assert.NotZero(t, johnID)
	assert.NotContains(t, string(r.raw), "password")

	tok := s.login("j@x.com", "pw")

	r = s.do(http.MethodPost, "/tickets/", map[string]any{"description": "Oil change"}, tok)
	require.Equal(t, http.StatusCreated, r.code, string(r.raw))
	assert.Equal(t, johnID, id(r.body["customer_id"]))
	assert.Equal(t, "Oil change", r.body["description"])
	assert.NotEmpty(t, r.body["date"])
	assert.Equal(t, []any{}, r.body["mechanics"])
}

func TestTicketCustomerIDComesFromToken(t *testing.T) {
	s := newServer(t)
	a := s.createCustomer("A", "a@x.com", "pw")
	b := s.createCustomer("B", "b@x.com", "pw")
	tok := s.login("a@x.com", "pw")

	r := s.do(http.MethodPost, "/tickets", map[string]any{"description": "x", "customer_id": b}, tok)
	require.Equal(t, http.StatusCreated, r.code)
	assert.Equal(t, a, id(r.body["customer_id"]))
}

func TestMostTicketsEmpty(t *testing.T) {
	s := newServer(t)
	r := s.do(http.MethodGet, "/mechanics/most-tickets", nil, "")
	assert.Equal(t, http.StatusNotFound, r.code)
	assert.Equal(t, "No mechanics or tickets found", r.body["message"])
}

func TestMostTickets(t *testing.T) {
	s := newServer(t)
	s.createCustomer("A", "a@x.com", "pw")
	tok := s.login("a@x.com", "pw")
	m1 := s.createMechanic("One")
	m2 := s.createMechanic("Two")
	t1 := s.createTicket(tok, "first")
	t2 := s.createTicket(tok, "second")

	for _, p := range [][2]uint64{{t1, m2}, {t2, m2}, {t1, m1}} {
		r := s.do(http.MethodPut, fmt.Sprintf("/tickets/%d/assign-mechanic/%d", p[0], p[1]), nil, "")
		require.Equal(t, http.StatusOK, r.code, string(r.raw))
	}

	r := s.do(http.MethodGet, "/mechanics/most-tickets", nil, "")
	require.Equal(t, http.StatusOK, r.code)
	assert.EqualValues(t, 2, r.body["ticket_count"])
	mech := r.body["mechanic"].(map[string]any)
	assert.Equal(t, "Two", mech["name"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newServer(t)
	cid := s.createCustomer("A", "a@x.com", "pw")

	for _, rt := range []struct{ method, path string }{
		{http.MethodPost, "/tickets"},
		{http.MethodGet, "/tickets/my-tickets"},
		{http.MethodGet, "/customers/profile"},
		{http.MethodPut, fmt.Sprintf("/customers/%d", cid)},
		{http.MethodDelete, fmt.Sprintf("/customers/%d", cid)},
	} {
		r := s.do(rt.method, rt.path, map[string]any{"description": "x"}, "")
		assert.Equal(t, http.StatusForbidden, r.code, "%s %s", rt.method, rt.path)
		assert.Equal(t, "token_missing", r.body["error"])

		r = s.do(rt.method, rt.path, map[string]any{"description": "x"}, "garbage")
		assert.Equal(t, http.StatusForbidden, r.code, "%s %s", rt.method, rt.path)
		assert.Equal(t, "token_invalid", r.body["error"])
	}
}

func TestCustomerSelfOnly(t *testing.T) {
	s := newServer(t)
	a := s.createCustomer("A", "a@x.com", "pw")
	b := s.createCustomer("B", "b@x.com", "pw")
	tokA := s.login("a@x.com", "pw")

	r := s.do(http.MethodPut, fmt.Sprintf("/customers/%d", b), map[string]any{"name": "Hacked"}, tokA)
	assert.Equal(t, http.StatusForbidden, r.code)
	r = s.do(http.MethodDelete, fmt.Sprintf("/customers/%d", b), nil, tokA)
	assert.Equal(t, http.StatusForbidden, r.code)

	r = s.do(http.MethodGet, fmt.Sprintf("/customers/%d", b), nil, "")
	require.Equal(t, http.StatusOK, r.code)
	assert.Equal(t, "B", r.body["name"])

	r = s.do(http.MethodPut, fmt.Sprintf("/customers/%d", a), map[string]any{"phone": "777", "unknown": true}, tokA)
	require.Equal(t, http.StatusOK, r.code, string(r.raw))
	assert.Equal(t, "777", r.body["phone"])
	assert.Equal(t, "A", r.body["name"])
}

func TestCustomerPasswordChange(t *testing.T) {
	s := newServer(t)
	a := s.createCustomer("A", "a@x.com", "old")
	tok := s.login("a@x.com", "old")

	r := s.do(http.MethodPut, fmt.Sprintf("/customers/%d", a), map[string]any{"password": "new"}, tok)
	require.Equal(t, http.StatusOK, r.code)

	r = s.do(http.MethodPost, "/customers/login", map[string]any{"email": "a@x.com", "password": "old"}, "")
	assert.Equal(t, http.StatusUnauthorized, r.code)
	s.login("a@x.com", "new")
}

func TestLoginFailures(t *testing.T) {
	s := newServer(t)
	s.createCustomer("A", "a@x.com", "pw")

	r := s.do(http.MethodPost, "/customers/login", map[string]any{"email": "a@x.com", "password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, r.code)
	assert.Equal(t, "invalid_credentials", r.body["error"])

	r = s.do(http.MethodPost, "/customers/login", map[string]any{"email": "ghost@x.com", "password": "pw"}, "")
	assert.Equal(t, http.StatusUnauthorized, r.code)

	r = s.do(http.MethodPost, "/customers/login", map[string]any{"email": "a@x.com"}, "")
	assert.Equal(t, http.StatusBadRequest, r.code)

	// emails are case-insensitive
	s.login(" A@X.COM ", "pw")
}

func TestProfile(t *testing.T) {
	s := newServer(t)
	a := s.createCustomer("A", "a@x.com", "pw")
	tok := s.login("a@x.com", "pw")

	r := s.do(http.MethodGet, "/customers/profile", nil, tok)
	require.Equal(t, http.StatusOK, r.code)
	assert.Equal(t, a, id(r.body["id"]))

	r = s.do(http.MethodDelete, fmt.Sprintf("/customers/%d", a), nil, tok)
	require.Equal(t, http.StatusOK, r.code)

	// the token outlives the customer
	r = s.do(http.MethodGet, "/customers/profile", nil, tok)
	assert.Equal(t, http.StatusNotFound, r.code)
	r = s.do(http.MethodPost, "/tickets", map[string]any{"description": "x"}, tok)
	assert.Equal(t, http.StatusNotFound, r.code)
}

func TestDuplicatesConflict(t *testing.T) {
	s := newServer(t)
	s.createCustomer("A", "a@x.com", "pw")
	r := s.do(http.MethodPost, "/customers", map[string]any{
		"name": "B", "email": "A@x.com", "phone": "1", "address": "a", "password": "pw",
	}, "")
	assert.Equal(t, http.StatusConflict, r.code)
	assert.Equal(t, "conflict", r.body["error"])

	list := s.do(http.MethodGet, "/customers", nil, "")
	assert.EqualValues(t, 1, list.body["total"])

	s.createMechanic("Mo")
	other := s.createMechanic("Jo")
	r = s.do(http.MethodPost, "/mechanics", map[string]any{"name": "Mo", "address": "x", "salary": 1}, "")
	assert.Equal(t, http.StatusConflict, r.code)
	r = s.do(http.MethodPut, fmt.Sprintf("/mechanics/%d", other), map[string]any{"name": "Mo"}, "")
	assert.Equal(t, http.StatusConflict, r.code)
}

func TestValidationErrors(t *testing.T) {
	s := newServer(t)

	r := s.do(http.MethodPost, "/customers", map[string]any{"name": "A", "email": "not-an-email"}, "")
	require.Equal(t, http.StatusBadRequest, r.code)
	assert.Equal(t, "validation_failed", r.body["error"])
	fields := r.body["fields"].(map[string]any)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
	assert.Contains(t, fields, "phone")

	r = s.do(http.MethodPost, "/mechanics", map[string]any{"name": "A", "address": "x", "salary": -1}, "")
	require.Equal(t, http.StatusBadRequest, r.code)
	assert.Contains(t, r.body["fields"], "salary")

	r = s.do(http.MethodPost, "/mechanics", map[string]any{"name": "Zero", "address": "x", "salary": 0}, "")
	assert.Equal(t, http.StatusCreated, r.code, "zero salary is allowed")

	r = s.do(http.MethodPost, "/inventory", map[string]any{"name": "", "quantity": -1, "price": 1}, "")
	require.Equal(t, http.StatusBadRequest, r.code)
	assert.Contains(t, r.body["fields"], "name")
	assert.Contains(t, r.body["fields"], "quantity")

	r = s.do(http.MethodPost, "/inventory", map[string]any{"name": "Oil", "quantity": "three", "price": 1}, "")
	assert.Equal(t, http.StatusBadRequest, r.code)
	assert.Equal(t, "invalid_body", r.body["error"])

	r = s.do(http.MethodGet, "/customers/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, r.code)

	r = s.do(http.MethodGet, "/customers?page=0", nil, "")
	assert.Equal(t, http.StatusBadRequest, r.code)
}

func TestPasswordLimitCountsBytes(t *testing.T) {
	s := newServer(t)
	body := map[string]any{
		"name": "A", "email": "a@x.com", "phone": "1", "address": "a",
		"password": strings.Repeat("é", 40),
	}
	r := s.do(http.MethodPost, "/customers", body, "")
	require.Equal(t, http.StatusBadRequest, r.code, string(r.raw))
	assert.Equal(t, "validation_failed", r.body["error"])
	assert.Contains(t, r.body["fields"], "password")

	body["password"] = strings.Repeat("é", 36)
	r = s.do(http.MethodPost, "/customers", body, "")
	require.Equal(t, http.StatusCreated, r.code, string(r.raw))
	tok := s.login("a@x.com", strings.Repeat("é", 36))

	r = s.do(http.MethodPut, fmt.Sprintf("/customers/%d", id(r.body["id"])), map[string]any{"password": strings.Repeat("ü", 37)}, tok)
	require.Equal(t, http.StatusBadRequest, r.code, string(r.raw))
	assert.Contains(t, r.body["fields"], "password")
}

func TestLongTicketDescription(t *testing.T) {
	s := newServer(t)
	s.createCustomer("A", "a@x.com", "pw")
	tok := s.login("a@x.com", "pw")

	long := strings.Repeat("a", 2000)
	r := s.do(http.MethodPost, "/tickets", map[string]any{"description": long}, tok)
	require.Equal(t, http.StatusCreated, r.code, string(r.raw))
	assert.Equal(t, long, r.body["description"])

	r = s.do(http.MethodPost, "/tickets", map[string]any{"description": long + "a"}, tok)
	assert.Equal(t, http.StatusBadRequest, r.code)
	assert.Contains(t, r.body["fields"], "description")
}

func TestNameIsSanitized(t *testing.T) {
	s := newServer(t)
	r := s.do(http.MethodPost, "/mechanics", map[string]any{
		"name": "<script>alert(1)</script>Tom & Jerry", "address": "<b>Main</b> St", "salary": 1,
	}, "")
	require.Equal(t, http.StatusCreated, r.code, string(r.raw))
	assert.Equal(t, "Tom & Jerry", r.body["name"])
	assert.Equal(t, "Main St", r.body["address"])
}

func TestPagination(t *testing.T) {
	s := newServer(t)
	for i := 0; i < 3; i++ {
		s.createMechanic(fmt.Sprintf("M%d", i))
	}
	r := s.do(http.MethodGet, "/mechanics?page=2&per_page=2", nil, "")
	require.Equal(t, http.StatusOK, r.code)
	assert.EqualValues(t, 3, r.body["total"])
	assert.EqualValues(t, 2, r.body["pages"])
	assert.EqualValues(t, 2, r.body["current_page"])
	assert.Len(t, r.body["mechanics"], 1)

	r = s.do(http.MethodGet, "/mechanics?per_page=1000", nil, "")
	require.Equal(t, http.StatusOK, r.code)
	assert.EqualValues(t, 100, r.body["per_page"])
}

func TestAssignRemoveAndEdit(t *testing.T) {
	s := newServer(t)
	s.createCustomer("A", "a@x.com", "pw")
	tok := s.login("a@x.com", "pw")
	m1 := s.createMechanic("One")
	m2 := s.createMechanic("Two")
	tk := s.createTicket(tok, "job")

	assign := fmt.Sprintf("/tickets/%d/assign-mechanic/%d", tk, m1)
	for i := 0; i < 2; i++ {
		r := s.do(http.MethodPut, assign, nil, "")
		require.Equal(t, http.StatusOK, r.code)
		assert.Equal(t, []uint64{m1}, mechanicIDs(r.body))
	}

	r := s.do(http.MethodPut, fmt.Sprintf("/tickets/%d/assign-mechanic/999", tk), nil, "")
	assert.Equal(t, http.StatusNotFound, r.code)
	r = s.do(http.MethodPut, fmt.Sprintf("/tickets/999/assign-mechanic/%d", m1), nil, "")
	assert.Equal(t, http.StatusNotFound, r.code)
	r = s.do(http.MethodPut, fmt.Sprintf("/tickets/%d/remove-mechanic/999", tk), nil, "")
	assert.Equal(t, http.StatusNotFound, r.code)

	r = s.do(http.MethodPut, fmt.Sprintf("/tickets/%d/edit", tk), map[string]any{
		"add_ids": []uint64{m2, 404}, "remove_ids": []uint64{m1, 505},
	}, "")
	require.Equal(t, http.StatusOK, r.code, string(r.raw))
	assert.Equal(t, []uint64{m2}, mechanicIDs(r.body))

	r = s.do(http.MethodPut, fmt.Sprintf("/tickets/%d/remove-mechanic/%d", tk, m2), nil, "")
	require.Equal(t, http.StatusOK, r.code)
	assert.Empty(t, mechanicIDs(r.body))

	r = s.do(http.MethodPut, "/tickets/999/edit", map[string]any{"add_ids": []uint64{m1}}, "")
	assert.Equal(t, http.StatusNotFound, r.code)
}

func TestTicketItems(t *testing.T) {
	s := newServer(t)
	s.createCustomer("A", "a@x.com", "pw")
	tok := s.login("a@x.com", "pw")
	tk := s.createTicket(tok, "job")

	r := s.do(http.MethodPost, "/inventory", map[string]any{"name": "Oil", "quantity": 5, "price": 12.5}, "")
	require.Equal(t, http.StatusCreated, r.code)
	item := id(r.body["id"])

	r = s.do(http.MethodPut, fmt.Sprintf("/tickets/%d/add-item/%d", tk, item), nil, "")
	require.Equal(t, http.StatusOK, r.code)
	assert.Len(t, r.body["inventory_items"], 1)

	r = s.do(http.MethodPut, fmt.Sprintf("/tickets/%d/remove-item/%d", tk, item), nil, "")
	require.Equal(t, http.StatusOK, r.code)
	assert.Len(t, r.body["inventory_items"], 0)

	r = s.do(http.MethodPut, fmt.Sprintf("/tickets/%d/edit", tk), map[string]any{"add_item_ids": []uint64{item, 77}}, "")
	require.Equal(t, http.StatusOK, r.code)
	assert.Len(t, r.body["inventory_items"], 1)

	r = s.do(http.MethodDelete, fmt.Sprintf("/inventory/%d", item), nil, "")
	require.Equal(t, http.StatusOK, r.code)
	r = s.do(http.MethodGet, fmt.Sprintf("/tickets/%d", tk), nil, "")
	require.Equal(t, http.StatusOK, r.code)
	assert.Len(t, r.body["inventory_items"], 0)
}

func TestMyTicketsScopedToCaller(t *testing.T) {
	s := newServer(t)
	a := s.createCustomer("A", "a@x.com", "pw")
	s.createCustomer("B", "b@x.com", "pw")
	tokA := s.login("a@x.com", "pw")
	tokB := s.login("b@x.com", "pw")

	s.createTicket(tokA, "a1")
	for i := 0; i < 3; i++ {
		s.createTicket(tokB, fmt.Sprintf("b%d", i))
	}

	r := s.do(http.MethodGet, "/tickets/my-tickets", nil, tokA)
	require.Equal(t, http.StatusOK, r.code)
	list := r.body["tickets"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, a, id(list[0].(map[string]any)["customer_id"]))

	r = s.do(http.MethodGet, "/tickets", nil, "")
	require.Equal(t, http.StatusOK, r.code)
	assert.EqualValues(t, 4, r.body["total"])
}

func TestCustomerDeleteCascades(t *testing.T) {
	s := newServer(t)
	a := s.createCustomer("A", "a@x.com", "pw")
	s.createCustomer("B", "b@x.com", "pw")
	tokA := s.login("a@x.com", "pw")
	tokB := s.login("b@x.com", "pw")
	m := s.createMechanic("Mo")
	ta := s.createTicket(tokA, "a")
	tb := s.createTicket(tokB, "b")
	for _, tk := range []uint64{ta, tb} {
		r := s.do(http.MethodPut, fmt.Sprintf("/tickets/%d/assign-mechanic/%d", tk, m), nil, "")
		require.Equal(t, http.StatusOK, r.code)
	}

	r := s.do(http.MethodDelete, fmt.Sprintf("/customers/%d", a), nil, tokA)
	require.Equal(t, http.StatusOK, r.code)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, fmt.Sprintf("/tickets/%d", ta), nil, "").code)
	r = s.do(http.MethodGet, fmt.Sprintf("/tickets/%d", tb), nil, "")
	require.Equal(t, http.StatusOK, r.code)
	assert.Equal(t, []uint64{m}, mechanicIDs(r.body))
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, fmt.Sprintf("/mechanics/%d", m), nil, "").code)
}

func TestTicketUpdateAndDelete(t *testing.T) {
	s := newServer(t)
	a := s.createCustomer("A", "a@x.com", "pw")
	tok := s.login("a@x.com", "pw")
	tk := s.createTicket(tok, "job")

	r := s.do(http.MethodPut, fmt.Sprintf("/tickets/%d", tk), map[string]any{
		"date": "2024-03-01T10:00:00Z", "customer_id": 999,
	}, "")
	require.Equal(t, http.StatusOK, r.code, string(r.raw))
	assert.Equal(t, "job", r.body["description"])
	assert.Equal(t, a, id(r.body["customer_id"]))
	assert.Equal(t, "2024-03-01T10:00:00Z", r.body["date"])

	r = s.do(http.MethodPut, fmt.Sprintf("/tickets/%d", tk), map[string]any{"date": "yesterday"}, "")
	assert.Equal(t, http.StatusBadRequest, r.code)

	assert.Equal(t, http.StatusOK, s.do(http.MethodDelete, fmt.Sprintf("/tickets/%d", tk), nil, "").code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, fmt.Sprintf("/tickets/%d", tk), nil, "").code)
}

func TestResourceCRUDNotFound(t *testing.T) {
	s := newServer(t)
	for _, p := range []string{"/customers/42", "/mechanics/42", "/tickets/42", "/inventory/42"} {
		r := s.do(http.MethodGet, p, nil, "")
		assert.Equal(t, http.StatusNotFound, r.code, p)
		assert.Equal(t, "not_found", r.body["error"], p)
	}
	for _, p := range []string{"/mechanics/42", "/inventory/42"} {
		assert.Equal(t, http.StatusNotFound, s.do(http.MethodPut, p, map[string]any{"name": "x"}, "").code, p)
		assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, p, nil, "").code, p)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newServer(t)
	for _, p := range []string{"/customers/health", "/mechanics/health", "/tickets/health", "/inventory/health"} {
		r := s.do(http.MethodGet, p, nil, "")
		require.Equal(t, http.StatusOK, r.code, p)
		assert.Equal(t, "healthy", r.body["status"])
		assert.Equal(t, "connected", r.body["database"])
	}
	r := s.do(http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, r.code)
	assert.Equal(t, "ok", string(r.raw))
}

func TestHealthReportsBrokenDatabase(t *testing.T) {
	db := testutil.NewDB(t)
	e := New(Deps{Config: testConfig(), DB: db, Log: logger.Discard()})
	require.NoError(t, db.Close())

	s := &server{t: t, e: e}
	r := s.do(http.MethodGet, "/mechanics/health", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, r.code)
	assert.Equal(t, "unhealthy", r.body["status"])

	// internal errors never leak details
	r = s.do(http.MethodGet, "/mechanics", nil, "")
	assert.Equal(t, http.StatusInternalServerError, r.code)
	assert.Equal(t, "internal server error", r.body["message"])
	assert.NotContains(t, string(r.raw), "sql")
}

func TestMostTicketsCacheInvalidatedByAssignments(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	e := New(Deps{
		Config: testConfig(),
		DB:     testutil.NewDB(t),
		Redis:  rdb,
		Cache: config.CacheConfig{
			Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute,
			KeyStrategy: "route_query", Prefix: "cache",
		},
		Log: logger.Discard(),
	})
	s := &server{t: t, e: e}
	s.createCustomer("A", "a@x.com", "pw")
	tok := s.login("a@x.com", "pw")
	m := s.createMechanic("Mo")
	tk := s.createTicket(tok, "job")

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/mechanics/most-tickets", nil, "").code)

	require.Equal(t, http.StatusOK, s.do(http.MethodPut, fmt.Sprintf("/tickets/%d/assign-mechanic/%d", tk, m), nil, "").code)
	r := s.do(http.MethodGet, "/mechanics/most-tickets", nil, "")
	require.Equal(t, http.StatusOK, r.code)
	assert.Equal(t, "MISS", r.hdr.Get("X-Cache"))

	r = s.do(http.MethodGet, "/mechanics/most-tickets", nil, "")
	assert.Equal(t, "HIT", r.hdr.Get("X-Cache"))
	assert.EqualValues(t, 1, r.body["ticket_count"])
}
