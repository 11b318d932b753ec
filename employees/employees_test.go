package employees

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/MrEthical07/hrclient"
)

type recorded struct {
	Method string
	Path   string
	Query  url.Values
	Body   map[string]any
}

type server struct {
	mu   sync.Mutex
	reqs []recorded
	// respond returns status and JSON body for a request.
	respond func(r *http.Request) (int, any)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}
	s.mu.Lock()
	s.reqs = append(s.reqs, recorded{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query(), Body: body})
	respond := s.respond
	s.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer T1" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Not authenticated"}`))
		return
	}

	status, v := respond(r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *server) last() recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reqs[len(s.reqs)-1]
}

func newClient(t *testing.T, respond func(r *http.Request) (int, any)) (*Client, *server) {
	t.Helper()
	s := &server{respond: respond}
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	c, err := hrclient.New().WithBaseURL(srv.URL).Build()
	if err != nil {
		t.Fatalf("build client: %v", err)
	}
	t.Cleanup(c.Close)
	c.SetCredential("T1")
	return New(c), s
}

const employeeJSON = `{
	"id": 7, "user_id": 3, "is_active": true,
	"employee_id": "EMP-007", "first_name": "Grace", "last_name": "Hopper",
	"department": "Engineering", "employee_status": "Active",
	"date_of_joining": "2020-01-15",
	"created_at": "2024-01-01T10:00:00", "updated_at": "2024-02-01T10:00:00.5"
}`

func TestListQueryParameters(t *testing.T) {
	tests := []struct {
		name   string
		params ListParams
		want   url.Values
	}{
		{
			name:   "defaults",
			params: ListParams{},
			want:   url.Values{"skip": {"0"}, "limit": {"20"}},
		},
		{
			name:   "filters",
			params: ListParams{Skip: 40, Limit: 20, Search: "hop", Department: "Engineering", Status: "Active"},
			want: url.Values{
				"skip": {"40"}, "limit": {"20"}, "search": {"hop"},
				"department": {"Engineering"}, "status": {"Active"},
			},
		},
		{
			name:   "limit capped",
			params: ListParams{Skip: -5, Limit: 500},
			want:   url.Values{"skip": {"0"}, "limit": {"100"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, s := newClient(t, func(r *http.Request) (int, any) {
				return http.StatusOK, json.RawMessage(`{"items":[` + employeeJSON + `],"total":41,"page":3,"size":20,"pages":3}`)
			})

			page, err := c.List(context.Background(), tc.params)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			got := s.last()
			if got.Method != http.MethodGet || got.Path != "/api/employees/" {
				t.Fatalf("unexpected request %s %s", got.Method, got.Path)
			}
			if got.Query.Encode() != tc.want.Encode() {
				t.Fatalf("expected query %s, got %s", tc.want.Encode(), got.Query.Encode())
			}
			if page.Total != 41 || page.Pages != 3 || len(page.Items) != 1 {
				t.Fatalf("unexpected page %+v", page)
			}
			e := page.Items[0]
			if e.ID != 7 || e.FirstName != "Grace" || e.DateOfJoining.String() != "2020-01-15" {
				t.Fatalf("unexpected employee %+v", e)
			}
			if e.CreatedAt.IsZero() {
				t.Fatal("expected created_at to decode")
			}
		})
	}
}

func TestListEmptyPageHasNonNilItems(t *testing.T) {
	c, _ := newClient(t, func(r *http.Request) (int, any) {
		return http.StatusOK, map[string]any{"items": nil, "total": 0, "page": 1, "size": 20, "pages": 0}
	})
	page, err := c.List(context.Background(), ListParams{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Items == nil || len(page.Items) != 0 {
		t.Fatalf("expected empty non-nil items, got %#v", page.Items)
	}
}

func TestGetAndGetByUser(t *testing.T) {
	c, s := newClient(t, func(r *http.Request) (int, any) {
		switch r.URL.Path {
		case "/api/employees/7":
			var m map[string]any
			_ = json.Unmarshal([]byte(employeeJSON), &m)
			m["user_email"] = "grace@example.com"
			return http.StatusOK, m
		case "/api/employees/user/3":
			return http.StatusOK, json.RawMessage(employeeJSON)
		}
		return http.StatusNotFound, map[string]string{"detail": "Employee not found"}
	})
	ctx := context.Background()

	d, err := c.Get(ctx, 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if d.ID != 7 || d.UserEmail != "grace@example.com" || d.LastName != "Hopper" {
		t.Fatalf("unexpected detail %+v", d)
	}

	e, err := c.GetByUser(ctx, 3)
	if err != nil {
		t.Fatalf("get by user: %v", err)
	}
	if e.UserID != 3 || s.last().Path != "/api/employees/user/3" {
		t.Fatalf("unexpected employee %+v via %s", e, s.last().Path)
	}

	_, err = c.Get(ctx, 99)
	if !hrclient.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	var reqErr *hrclient.RequestError
	if !errors.As(err, &reqErr) || reqErr.Message != "Employee not found" {
		t.Fatalf("expected backend detail as message, got %v", err)
	}
}

func TestCreateSendsProfile(t *testing.T) {
	c, s := newClient(t, func(r *http.Request) (int, any) {
		return http.StatusOK, json.RawMessage(employeeJSON)
	})
	dob := hrclient.NewDate(1906, 12, 9)

	e, err := c.Create(context.Background(), Create{
		UserID: 3,
		Profile: Profile{
			EmployeeID:  "EMP-007",
			FirstName:   "Grace",
			LastName:    "Hopper",
			DateOfBirth: &dob,
			Department:  "Engineering",
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.ID != 7 {
		t.Fatalf("unexpected employee %+v", e)
	}

	got := s.last()
	if got.Method != http.MethodPost || got.Path != "/api/employees/" {
		t.Fatalf("unexpected request %s %s", got.Method, got.Path)
	}
	if got.Body["user_id"] != float64(3) || got.Body["date_of_birth"] != "1906-12-09" {
		t.Fatalf("unexpected body %v", got.Body)
	}
	if _, ok := got.Body["bio"]; ok {
		t.Fatalf("expected empty optional fields to be omitted, got %v", got.Body)
	}

	if _, err := c.Create(context.Background(), Create{UserID: 1}); !errors.Is(err, hrclient.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestUpdateSendsOnlySetFields(t *testing.T) {
	c, s := newClient(t, func(r *http.Request) (int, any) {
		return http.StatusOK, json.RawMessage(employeeJSON)
	})

	if _, err := c.Update(context.Background(), 7, Update{}); !errors.Is(err, ErrEmptyUpdate) {
		t.Fatalf("expected ErrEmptyUpdate, got %v", err)
	}

	_, err := c.Update(context.Background(), 7, Update{Position: String("Rear Admiral"), Bio: String("")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	got := s.last()
	if got.Method != http.MethodPut || got.Path != "/api/employees/7" {
		t.Fatalf("unexpected request %s %s", got.Method, got.Path)
	}
	if len(got.Body) != 2 || got.Body["position"] != "Rear Admiral" || got.Body["bio"] != "" {
		t.Fatalf("unexpected body %v", got.Body)
	}
}

func TestDeleteAndDocuments(t *testing.T) {
	c, s := newClient(t, func(r *http.Request) (int, any) {
		if r.Method == http.MethodDelete {
			return http.StatusOK, map[string]string{"message": "Employee profile deleted successfully"}
		}
		return http.StatusOK, json.RawMessage(`[{"id":1,"employee_id":7,"document_type":"passport","document_name":"passport.pdf","file_path":"uploads/employee_7/passport.pdf","file_size":2048,"uploaded_at":"2024-03-01T09:00:00","is_verified":false}]`)
	})
	ctx := context.Background()

	msg, err := c.Delete(ctx, 7)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if msg != "Employee profile deleted successfully" || s.last().Method != http.MethodDelete {
		t.Fatalf("unexpected delete result %q", msg)
	}

	docs, err := c.Documents(ctx, 7)
	if err != nil {
		t.Fatalf("documents: %v", err)
	}
	if s.last().Path != "/api/employees/7/documents" {
		t.Fatalf("unexpected path %s", s.last().Path)
	}
	if len(docs) != 1 || docs[0].DocumentType != "passport" || *docs[0].FileSize != 2048 || docs[0].VerifiedAt != nil {
		t.Fatalf("unexpected documents %+v", docs)
	}
}

func TestForbiddenIsClientError(t *testing.T) {
	c, _ := newClient(t, func(r *http.Request) (int, any) {
		return http.StatusForbidden, map[string]string{"detail": "Admin access required"}
	})
	_, err := c.Delete(context.Background(), 7)
	if !errors.Is(err, hrclient.ErrClientError) || hrclient.StatusOf(err) != http.StatusForbidden {
		t.Fatalf("expected 403 client error, got %v", err)
	}
}
