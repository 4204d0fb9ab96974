package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"simpus/config"
	"simpus/models"
	"simpus/store"
	"simpus/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	t   *testing.T
	st  *store.Store
	cfg config.Config
	h   http.Handler
	now time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	st, err := store.Open(config.DriverSQLite, filepath.Join(dir, "simpus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.InitSchema(context.Background()))

	e := &testEnv{t: t, st: st, now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	st.Now = func() time.Time { return e.now }

	e.cfg = config.Config{
		JWTSecret:  "handler-secret",
		TokenTTL:   time.Hour,
		UploadDir:  filepath.Join(dir, "uploads"),
		LoanDays:   14,
		ExtendDays: 7,
	}
	e.h = NewRouter(st, nil, e.cfg)
	return e
}

// user creates an account directly in the store and returns it with a token.
func (e *testEnv) user(email string, role models.Role) (*models.User, string) {
	e.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(e.t, err)
	u, err := e.st.CreateUser(context.Background(), "User "+email, email, string(hash), role)
	require.NoError(e.t, err)
	tok, err := utils.GenerateToken([]byte(e.cfg.JWTSecret), u, time.Hour)
	require.NoError(e.t, err)
	return u, tok
}

func (e *testEnv) book(title string, copies int) *models.Book {
	e.t.Helper()
	b, err := e.st.CreateBook(context.Background(), models.BookRequest{Title: title, Author: "Author " + title, Category: "Fiction", TotalCopies: copies})
	require.NoError(e.t, err)
	return b
}

func (e *testEnv) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func multipartFile(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestRegisterLoginMe(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Ana", "email": "Ana@Example.com", "password": "pw-123",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decode[models.AuthResponse](t, rec)
	assert.Equal(t, "ana@example.com", reg.Email)
	assert.Equal(t, models.RoleMember, reg.Role)
	assert.NotEmpty(t, reg.Token)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "token", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	rec = e.do(http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Ana 2", "email": "ana@example.com", "password": "x",
	}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(http.MethodPost, "/api/auth/register", map[string]string{"email": "b@example.com"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Long", "email": "long@example.com", "password": strings.Repeat("p", 80),
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"Password must be at most 72 bytes"}`, rec.Body.String())

	rec = e.do(http.MethodPost, "/api/auth/login", models.LoginRequest{Email: "ana@example.com", Password: "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Invalid credentials"}`, rec.Body.String())

	rec = e.do(http.MethodPost, "/api/auth/login", models.LoginRequest{Email: "nobody@example.com", Password: "pw-123"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(http.MethodPost, "/api/auth/login", models.LoginRequest{Email: "ANA@example.com", Password: "pw-123"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[models.AuthResponse](t, rec)
	assert.Equal(t, reg.ID, login.ID)

	rec = e.do(http.MethodGet, "/api/auth/me", nil, login.Token)
	assert.JSONEq(t, `{"id":"`+reg.ID+`","name":"Ana","role":"member"}`, rec.Body.String())

	rec = e.do(http.MethodGet, "/api/auth/me", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))

	rec = e.do(http.MethodPost, "/api/auth/logout", nil, login.Token)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestLoginBlockedUserGetsNoToken(t *testing.T) {
	e := newTestEnv(t)
	u, _ := e.user("blocked@example.com", models.RoleMember)
	_, err := e.st.SetUserBlocked(context.Background(), u.ID, true)
	require.NoError(t, err)

	rec := e.do(http.MethodPost, "/api/auth/login", models.LoginRequest{Email: "blocked@example.com", Password: "secret123"}, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"message":"Account blocked"}`, rec.Body.String())
	assert.Empty(t, rec.Header().Values("Set-Cookie"))
}

func TestCatalogWritesNeedStaff(t *testing.T) {
	e := newTestEnv(t)
	_, member := e.user("m@example.com", models.RoleMember)
	_, assistant := e.user("a@example.com", models.RoleAssistant)

	body := models.BookRequest{Title: "Dune", Author: "Herbert", TotalCopies: 2}
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodPost, "/api/books", body, "").Code)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/api/books", body, member).Code)

	rec := e.do(http.MethodPost, "/api/books", body, assistant)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	assert.Equal(t, float64(2), created["availableCopies"])
	id := created["id"].(string)

	rec = e.do(http.MethodPost, "/api/books", models.BookRequest{Title: "No author"}, assistant)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodPut, "/api/books/"+id, map[string]any{"totalCopies": 5}, assistant)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(5), decode[map[string]any](t, rec)["availableCopies"])

	rec = e.do(http.MethodGet, "/api/books?q=dun", nil, "")
	page := decode[map[string]any](t, rec)
	assert.Equal(t, float64(1), page["total"])

	rec = e.do(http.MethodGet, "/api/books/categories", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusOK, e.do(http.MethodDelete, "/api/books/"+id, nil, assistant).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/books/"+id, nil, "").Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodDelete, "/api/books/"+id, nil, assistant).Code)
}

func TestBorrowLastCopyScenario(t *testing.T) {
	e := newTestEnv(t)
	_, x := e.user("x@example.com", models.RoleMember)
	_, y := e.user("y@example.com", models.RoleMember)
	b := e.book("Book A", 1)

	rec := e.do(http.MethodPost, "/api/borrow/borrow/"+b.ID, nil, x)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"ok":true,"dueAt":"2025-03-15T09:00:00Z"}`, rec.Body.String())

	rec = e.do(http.MethodPost, "/api/borrow/borrow/"+b.ID, nil, y)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"No copies available"}`, rec.Body.String())

	rec = e.do(http.MethodGet, "/api/books/"+b.ID, nil, "")
	got := decode[map[string]any](t, rec)
	assert.Equal(t, float64(1), got["borrowedCount"])
	assert.Equal(t, float64(0), got["availableCopies"])

	rec = e.do(http.MethodPost, "/api/borrow/borrow/missing", nil, x)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBorrowExtendReturnFlow(t *testing.T) {
	e := newTestEnv(t)
	_, tok := e.user("reader@example.com", models.RoleMember)
	b := e.book("Book B", 2)

	require.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/api/borrow/borrow/"+b.ID, nil, tok).Code)

	rec := e.do(http.MethodGet, "/api/borrow/my", nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	loans := decode[[]map[string]any](t, rec)
	require.Len(t, loans, 1)
	id := loans[0]["id"].(string)
	assert.Equal(t, "Book B", loans[0]["book"].(map[string]any)["title"])
	assert.Equal(t, false, loans[0]["isOverdue"])
	assert.Equal(t, "borrowed", loans[0]["effectiveStatus"])

	rec = e.do(http.MethodPost, "/api/borrow/extend/"+id, map[string]any{"days": 0}, tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodPost, "/api/borrow/extend/"+id, map[string]any{"days": 7, "reason": "exam week"}, tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"ok":true,"newDueAt":"2025-03-22T09:00:00Z"}`, rec.Body.String())

	// Default extension uses EXTEND_DAYS from the previous due date.
	rec = e.do(http.MethodPost, "/api/borrow/extend/"+id, nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"newDueAt":"2025-03-29T09:00:00Z"}`, rec.Body.String())

	e.now = time.Date(2025, 3, 30, 9, 0, 0, 0, time.UTC)
	rec = e.do(http.MethodGet, "/api/borrow/"+id, nil, tok)
	detail := decode[map[string]any](t, rec)
	assert.Equal(t, true, detail["isOverdue"])
	assert.Equal(t, "overdue", detail["effectiveStatus"])
	assert.Equal(t, "borrowed", detail["status"])
	assert.Len(t, detail["extensions"], 2)

	rec = e.do(http.MethodPost, "/api/borrow/return/"+id, nil, tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ret := decode[map[string]any](t, rec)
	assert.Equal(t, true, ret["ok"])
	tx := ret["transaction"].(map[string]any)
	assert.Equal(t, "overdue", tx["status"])
	assert.Equal(t, "2025-03-30T09:00:00Z", tx["returnedAt"])

	rec = e.do(http.MethodPost, "/api/borrow/return/"+id, nil, tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"Already returned"}`, rec.Body.String())

	rec = e.do(http.MethodPost, "/api/borrow/extend/"+id, nil, tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	got, err := e.st.GetBookByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.BorrowedCount)

	rec = e.do(http.MethodGet, "/api/notifications", nil, tok)
	notifs := decode[[]models.Notification](t, rec)
	require.Len(t, notifs, 4)
	var msgs []string
	for _, n := range notifs {
		msgs = append(msgs, n.Message)
	}
	assert.Contains(t, msgs, "Peminjaman berhasil: Book B. Batas waktu: 15 Mar 2025")
}

func TestMemberCannotActOnAnotherMembersLoan(t *testing.T) {
	e := newTestEnv(t)
	_, owner := e.user("owner@example.com", models.RoleMember)
	_, other := e.user("other@example.com", models.RoleMember)
	_, staff := e.user("staff@example.com", models.RoleAssistant)
	b := e.book("Book C", 1)

	require.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/api/borrow/borrow/"+b.ID, nil, owner).Code)
	loans := decode[[]map[string]any](t, e.do(http.MethodGet, "/api/borrow/my", nil, owner))
	id := loans[0]["id"].(string)

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/api/borrow/return/"+id, nil, other).Code)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/api/borrow/extend/"+id, nil, other).Code)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/api/borrow/"+id, nil, other).Code)

	assert.Equal(t, http.StatusOK, e.do(http.MethodPost, "/api/borrow/extend/"+id, nil, staff).Code)
	assert.Equal(t, http.StatusOK, e.do(http.MethodPost, "/api/borrow/return/"+id, nil, staff).Code)

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPost, "/api/borrow/return/nope", nil, staff).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/borrow/my", nil, "").Code)
}

func TestBorrowWithPhotoUpload(t *testing.T) {
	e := newTestEnv(t)
	_, tok := e.user("photo@example.com", models.RoleMember)
	b := e.book("Book D", 2)

	send := func(filename string) *httptest.ResponseRecorder {
		body, ctype := multipartFile(t, "photo", filename, []byte("fake image"))
		req := httptest.NewRequest(http.MethodPost, "/api/borrow/borrow/"+b.ID, body)
		req.Header.Set("Content-Type", ctype)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		e.h.ServeHTTP(rec, req)
		return rec
	}

	rec := send("evil.exe")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send("cover.png")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	loans := decode[[]map[string]any](t, e.do(http.MethodGet, "/api/borrow/my", nil, tok))
	require.Len(t, loans, 1)
	url, _ := loans[0]["borrowPhotoUrl"].(string)
	require.True(t, strings.HasPrefix(url, "/uploads/borrows/"), url)

	rec = e.do(http.MethodGet, url, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fake image", rec.Body.String())
}

func (e *testEnv) upload(path, token string) *httptest.ResponseRecorder {
	e.t.Helper()
	body, ctype := multipartFile(e.t, "photo", "photo.jpg", []byte("fake image"))
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) uploadedFiles(sub string) []os.DirEntry {
	e.t.Helper()
	entries, err := os.ReadDir(filepath.Join(e.cfg.UploadDir, sub))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(e.t, err)
	return entries
}

func TestFailedBorrowOrReturnRemovesPhoto(t *testing.T) {
	e := newTestEnv(t)
	_, x := e.user("x@example.com", models.RoleMember)
	_, y := e.user("y@example.com", models.RoleMember)
	b := e.book("Book P", 1)

	require.Equal(t, http.StatusCreated, e.upload("/api/borrow/borrow/"+b.ID, x).Code)
	assert.Len(t, e.uploadedFiles("borrows"), 1)

	rec := e.upload("/api/borrow/borrow/"+b.ID, y)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, e.uploadedFiles("borrows"), 1)

	loans := decode[[]map[string]any](t, e.do(http.MethodGet, "/api/borrow/my", nil, x))
	id := loans[0]["id"].(string)

	require.Equal(t, http.StatusOK, e.upload("/api/borrow/return/"+id, x).Code)
	rec = e.upload("/api/borrow/return/"+id, x)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"Already returned"}`, rec.Body.String())
	assert.Len(t, e.uploadedFiles("returns"), 1)
}

func TestRepeatedBorrowReturnKeepsEveryNotification(t *testing.T) {
	e := newTestEnv(t)
	_, tok := e.user("dune@example.com", models.RoleMember)
	b := e.book("Dune", 1)

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/api/borrow/borrow/"+b.ID, nil, tok).Code)
		loans := decode[[]map[string]any](t, e.do(http.MethodGet, "/api/borrow/my", nil, tok))
		id := loans[0]["id"].(string)
		require.Equal(t, http.StatusOK, e.do(http.MethodPost, "/api/borrow/return/"+id, nil, tok).Code)
		e.now = e.now.Add(time.Hour)
	}

	notifs := decode[[]models.Notification](t, e.do(http.MethodGet, "/api/notifications", nil, tok))
	require.Len(t, notifs, 4)
	returns := 0
	for _, n := range notifs {
		if n.Message == "Pengembalian berhasil: Dune." {
			returns++
		}
	}
	assert.Equal(t, 2, returns)
}

func TestExtendRejectsUnrepresentableDueDate(t *testing.T) {
	e := newTestEnv(t)
	_, tok := e.user("far@example.com", models.RoleMember)
	b := e.book("Book F", 1)

	require.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/api/borrow/borrow/"+b.ID, nil, tok).Code)
	loans := decode[[]map[string]any](t, e.do(http.MethodGet, "/api/borrow/my", nil, tok))
	id := loans[0]["id"].(string)

	rec := e.do(http.MethodPost, "/api/borrow/extend/"+id, map[string]any{"days": 5000000}, tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"days must be between 1 and 3650"}`, rec.Body.String())

	loans = decode[[]map[string]any](t, e.do(http.MethodGet, "/api/borrow/my", nil, tok))
	assert.Equal(t, "2025-03-15T09:00:00Z", loans[0]["dueAt"])
	assert.Equal(t, "borrowed", loans[0]["effectiveStatus"])
	assert.NotEqual(t, "0001-01-01T00:00:00Z", loans[0]["book"].(map[string]any)["createdAt"])

	rec = e.do(http.MethodPost, "/api/borrow/extend/"+id, map[string]any{"days": 3650}, tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"ok":true,"newDueAt":"2035-03-13T09:00:00Z"}`, rec.Body.String())
}

func TestOrders(t *testing.T) {
	e := newTestEnv(t)
	_, ana := e.user("ana@example.com", models.RoleMember)
	_, budi := e.user("budi@example.com", models.RoleMember)
	_, staff := e.user("staff@example.com", models.RoleAdmin)

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/orders", models.OrderRequest{}, ana).Code)

	rec := e.do(http.MethodPost, "/api/orders", models.OrderRequest{Title: "Laskar Pelangi", Author: "Andrea Hirata"}, ana)
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decode[models.Order](t, rec)
	assert.Equal(t, models.OrderRequested, order.Status)

	require.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/api/orders", models.OrderRequest{Title: "Bumi Manusia"}, budi).Code)

	assert.Len(t, decode[[]models.Order](t, e.do(http.MethodGet, "/api/orders", nil, ana)), 1)
	assert.Len(t, decode[[]models.Order](t, e.do(http.MethodGet, "/api/orders", nil, staff)), 2)

	path := "/api/orders/" + order.ID + "/status"
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPatch, path, map[string]string{"status": "approved"}, ana).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPatch, path, map[string]string{"status": "shipped"}, staff).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPatch, "/api/orders/nope/status", map[string]string{"status": "approved"}, staff).Code)

	rec = e.do(http.MethodPatch, path, map[string]string{"status": "purchased"}, staff)
	require.Equal(t, http.StatusOK, rec.Code)
	// Transitions are not validated: purchased can go back to requested.
	rec = e.do(http.MethodPatch, path, map[string]string{"status": "requested"}, staff)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.OrderRequested, decode[models.Order](t, rec).Status)
}

func TestAdminEndpoints(t *testing.T) {
	e := newTestEnv(t)
	admin, adminTok := e.user("admin@example.com", models.RoleAdmin)
	_, assistant := e.user("asst@example.com", models.RoleAssistant)
	member, memberTok := e.user("member@example.com", models.RoleMember)
	b := e.book("Book E", 3)
	require.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/api/borrow/borrow/"+b.ID, nil, memberTok).Code)

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/api/admin/users", nil, assistant).Code)
	assert.Len(t, decode[[]models.User](t, e.do(http.MethodGet, "/api/admin/users", nil, adminTok)), 3)

	rec := e.do(http.MethodGet, "/api/admin/borrows", nil, assistant)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[[]map[string]any](t, rec)
	require.Len(t, all, 1)
	assert.Equal(t, "User member@example.com", all[0]["user"].(map[string]any)["name"])
	assert.Equal(t, "Book E", all[0]["book"].(map[string]any)["title"])
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/api/admin/borrows", nil, memberTok).Code)

	rec = e.do(http.MethodGet, "/api/admin/stats", nil, assistant)
	stats := decode[models.DashboardStats](t, rec)
	assert.Equal(t, models.DashboardStats{Users: 3, Books: 1, AvailableCopies: 2, ActiveBorrows: 1}, stats)

	rec = e.do(http.MethodPatch, "/api/admin/users/"+member.ID+"/block", map[string]bool{"blocked": true}, adminTok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.User](t, rec).Blocked)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPatch, "/api/admin/users/"+member.ID+"/block", map[string]string{}, adminTok).Code)

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodDelete, "/api/admin/users/"+admin.ID, nil, adminTok).Code)
	rec = e.do(http.MethodDelete, "/api/admin/users/"+member.ID, nil, adminTok)
	assert.JSONEq(t, `{"message":"User deleted successfully"}`, rec.Body.String())
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodDelete, "/api/admin/users/"+member.ID, nil, adminTok).Code)
}

func TestReviews(t *testing.T) {
	e := newTestEnv(t)
	_, ana := e.user("ana@example.com", models.RoleMember)
	_, budi := e.user("budi@example.com", models.RoleMember)
	b := e.book("Book F", 1)

	bad := models.ReviewRequest{BookID: b.ID, Rating: 6, Title: "t", Content: "c"}
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/reviews", bad, ana).Code)
	long := models.ReviewRequest{BookID: b.ID, Rating: 4, Title: strings.Repeat("x", 101), Content: "c"}
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/reviews", long, ana).Code)

	req := models.ReviewRequest{BookID: b.ID, Rating: 4, Title: "Bagus", Content: "Seru sekali"}
	rec := e.do(http.MethodPost, "/api/reviews", req, ana)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	review := decode[models.Review](t, rec)

	assert.Equal(t, http.StatusConflict, e.do(http.MethodPost, "/api/reviews", req, ana).Code)

	req.BookID = "missing"
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPost, "/api/reviews", req, budi).Code)

	rec = e.do(http.MethodPost, "/api/reviews/"+review.ID+"/helpful", nil, budi)
	assert.JSONEq(t, `{"isHelpful":true,"helpfulCount":1}`, rec.Body.String())

	upd := models.ReviewRequest{Rating: 5, Title: "Luar biasa", Content: "Wajib baca"}
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPut, "/api/reviews/"+review.ID, upd, budi).Code)
	rec = e.do(http.MethodPut, "/api/reviews/"+review.ID, upd, ana)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.Review](t, rec).IsEdited)

	rec = e.do(http.MethodGet, "/api/reviews/book/"+b.ID+"/stats", nil, "")
	stats := decode[models.RatingStats](t, rec)
	assert.Equal(t, 5.0, stats.AverageRating)
	assert.Equal(t, 1, stats.TotalReviews)

	page := decode[models.ReviewPage](t, e.do(http.MethodGet, "/api/reviews/book/"+b.ID, nil, ""))
	assert.Equal(t, 1, page.Total)

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodDelete, "/api/reviews/"+review.ID, nil, budi).Code)
	rec = e.do(http.MethodDelete, "/api/reviews/"+review.ID, nil, ana)
	assert.JSONEq(t, `{"message":"Review deleted successfully"}`, rec.Body.String())
	assert.Empty(t, decode[[]models.Review](t, e.do(http.MethodGet, "/api/reviews/my", nil, ana)))
}

func TestCommunities(t *testing.T) {
	e := newTestEnv(t)
	_, owner := e.user("owner@example.com", models.RoleMember)
	_, joiner := e.user("joiner@example.com", models.RoleMember)

	req := models.CommunityRequest{Name: "Klub Fiksi", Description: "Diskusi novel", Category: "Fiction", MaxMembers: 2}
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/communities",
		models.CommunityRequest{Name: strings.Repeat("n", 101), Description: "d", Category: "c"}, owner).Code)

	rec := e.do(http.MethodPost, "/api/communities", req, owner)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	c := decode[models.Community](t, rec)
	base := "/api/communities/" + c.ID

	msg := models.MessageRequest{Content: "Halo semua"}
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, base+"/messages", msg, joiner).Code)
	assert.Equal(t, http.StatusConflict, e.do(http.MethodPost, base+"/leave", nil, joiner).Code)

	rec = e.do(http.MethodPost, base+"/join", nil, joiner)
	assert.JSONEq(t, `{"message":"Successfully joined community"}`, rec.Body.String())
	assert.Equal(t, http.StatusConflict, e.do(http.MethodPost, base+"/join", nil, joiner).Code)

	_, third := e.user("third@example.com", models.RoleMember)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, base+"/join", nil, third).Code)

	bogus := models.MessageRequest{Content: "x", Type: "video"}
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, base+"/messages", bogus, joiner).Code)

	rec = e.do(http.MethodPost, base+"/messages", msg, joiner)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	m := decode[models.Message](t, rec)
	assert.Equal(t, models.MessageText, m.Type)

	rec = e.do(http.MethodPost, "/api/communities/messages/"+m.ID+"/reply", map[string]string{"content": "Halo juga"}, owner)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, http.StatusForbidden,
		e.do(http.MethodPost, "/api/communities/messages/"+m.ID+"/reply", map[string]string{"content": "hai"}, third).Code)

	rec = e.do(http.MethodPost, "/api/communities/messages/"+m.ID+"/reaction", map[string]string{"emoji": "👍"}, owner)
	assert.JSONEq(t, `{"message":"Reaction added successfully"}`, rec.Body.String())

	page := decode[models.MessagePage](t, e.do(http.MethodGet, base+"/messages", nil, owner))
	require.Len(t, page.Messages, 1)
	assert.Len(t, page.Messages[0].Replies, 1)
	assert.Len(t, page.Messages[0].Reactions, 1)

	rec = e.do(http.MethodPost, base+"/leave", nil, joiner)
	assert.JSONEq(t, `{"message":"Successfully left community"}`, rec.Body.String())
	rec = e.do(http.MethodPost, base+"/leave", nil, owner)
	assert.JSONEq(t, `{"message":"Community deleted as creator left"}`, rec.Body.String())
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, base, nil, "").Code)
}

func TestSendNotification(t *testing.T) {
	e := newTestEnv(t)
	_, admin := e.user("admin@example.com", models.RoleAdmin)
	_, assistant := e.user("asst@example.com", models.RoleAssistant)
	_, member := e.user("member@example.com", models.RoleMember)

	body := map[string]string{"userId": "all", "message": "Perpustakaan tutup hari Minggu"}
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/api/notifications/send", body, assistant).Code)

	rec := e.do(http.MethodPost, "/api/notifications/send", body, admin)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"message":"Notification sent","recipients":3}`, rec.Body.String())

	notifs := decode[[]models.Notification](t, e.do(http.MethodGet, "/api/notifications", nil, member))
	require.Len(t, notifs, 1)
	id := notifs[0].ID

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPost, "/api/notifications/"+id+"/read", nil, assistant).Code)
	assert.Equal(t, http.StatusOK, e.do(http.MethodPost, "/api/notifications/"+id+"/read", nil, member).Code)
	notifs = decode[[]models.Notification](t, e.do(http.MethodGet, "/api/notifications", nil, member))
	assert.True(t, notifs[0].IsRead)

	assert.Equal(t, http.StatusOK, e.do(http.MethodDelete, "/api/notifications/"+id, nil, member).Code)
	assert.Empty(t, decode[[]models.Notification](t, e.do(http.MethodGet, "/api/notifications", nil, member)))

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPost, "/api/notifications/send",
		map[string]string{"userId": "ghost", "message": "hi"}, admin).Code)
}

func TestRecommendations(t *testing.T) {
	e := newTestEnv(t)
	_, tok := e.user("reader@example.com", models.RoleMember)
	e.book("Space Odyssey", 2)

	rec := e.do(http.MethodPost, "/api/books/recommendations", map[string]string{"setting": "space"}, tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[map[string]any](t, rec)
	recs := got["recommendations"].([]any)
	require.Len(t, recs, 1)
	assert.Equal(t, "Space Odyssey", recs[0].(map[string]any)["title"])
	assert.Equal(t, "space", got["preferences"].(map[string]any)["setting"])

	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodPost, "/api/books/recommendations", map[string]string{}, "").Code)
}

func TestWriteStoreErrorHidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	writeStoreError(rec, io.ErrUnexpectedEOF)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Server error"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	writeStoreError(rec, store.ErrConflict)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
