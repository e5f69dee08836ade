package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"bomserver/internal/handler"
	mid "bomserver/internal/middleware"
	"bomserver/internal/model"
	"bomserver/pkg/config"
	"bomserver/pkg/database"
	"bomserver/prometheus"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testConfig *config.Config

func TestMain(m *testing.M) {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	testConfig = cfg
	prometheus.InitMetrics(cfg)
	handler.Init(cfg)
	os.Exit(m.Run())
}

// newTestApp swaps in a fresh in-memory database and builds an Echo instance
// with the same middleware and routes as the real server
func newTestApp(t *testing.T) *echo.Echo {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	database.SetDB(db)

	e := echo.New()
	e.Validator = handler.NewValidator()
	e.Use(mid.SessionMiddleware(testConfig.Session.CookieName))

	authAPI := e.Group("/api/auth")
	authAPI.POST("/register", handler.Register)
	authAPI.POST("/login", handler.Login)
	authAPI.POST("/logout", handler.Logout, mid.RequireAuth)
	authAPI.GET("/me", handler.Me, mid.RequireAuth)

	categoryAPI := e.Group("/api/categories")
	categoryAPI.GET("", handler.ListCategories)
	categoryAPI.GET("/:id", handler.GetCategory)
	categoryAPI.POST("", handler.CreateCategory, mid.RequireAuth)
	categoryAPI.PUT("/:id", handler.UpdateCategory, mid.RequireAuth)
	categoryAPI.PUT("/:id/parent", handler.ReparentCategory, mid.RequireAuth)
	categoryAPI.DELETE("/:id", handler.DeleteCategory, mid.RequireAuth)
	categoryAPI.GET("/duplicates", handler.ListDuplicateRoots, mid.RequireAdmin)
	categoryAPI.POST("/duplicates/resolve", handler.ResolveDuplicateRoots, mid.RequireAdmin)
	categoryAPI.GET("/orphans", handler.ListOrphanCategories, mid.RequireAdmin)

	partAPI := e.Group("/api/parts")
	partAPI.GET("", handler.ListParts)
	partAPI.GET("/:id", handler.GetPart)
	partAPI.GET("/:id/versions", handler.ListPartVersions)
	partAPI.POST("", handler.CreatePart, mid.RequireAuth)
	partAPI.PUT("/:id", handler.UpdatePart, mid.RequireAuth)
	partAPI.DELETE("/:id", handler.DeletePart, mid.RequireAuth)

	manufacturerAPI := e.Group("/api/manufacturers")
	manufacturerAPI.POST("", handler.CreateManufacturer, mid.RequireAuth)
	manufacturerAPI.GET("/:id", handler.GetManufacturer)
	manufacturerAPI.PUT("/:id", handler.UpdateManufacturer, mid.RequireAuth)
	manufacturerAPI.PUT("/:id/custom-fields", handler.ReplaceManufacturerCustomFields, mid.RequireAuth)

	supplierAPI := e.Group("/api/suppliers")
	supplierAPI.POST("", handler.CreateSupplier, mid.RequireAuth)
	supplierAPI.GET("/:id", handler.GetSupplier)

	projectAPI := e.Group("/api/projects")
	projectAPI.POST("", handler.CreateProject, mid.RequireAuth)
	projectAPI.GET("/:id", handler.GetProject)

	fieldAPI := e.Group("/api/custom-fields")
	fieldAPI.POST("", handler.CreateCustomField, mid.RequireAdmin)

	return e
}

// seedUser creates a user plus a live session and returns the session token
func seedUser(t *testing.T, email, role string) (model.User, string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("sup3rsecret"), bcrypt.MinCost)
	require.NoError(t, err)

	user := model.User{Email: email, Password: string(hash), Role: role}
	require.NoError(t, database.GetDB().Create(&user).Error)

	session := model.Session{
		Token:     uuid.New().String(),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, database.GetDB().Create(&session).Error)

	return user, session.Token
}

func doJSON(e *echo.Echo, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRegisterLoginMe(t *testing.T) {
	e := newTestApp(t)

	rec := doJSON(e, http.MethodPost, "/api/auth/register", "", echo.Map{
		"email":    "alice@example.com",
		"password": "sup3rsecret",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/auth/login", "", echo.Map{
		"email":    "alice@example.com",
		"password": "sup3rsecret",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var loginResp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loginResp))
	require.NotEmpty(t, loginResp.Token)

	// The session cookie is also set.
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, testConfig.Session.CookieName, cookies[0].Name)

	rec = doJSON(e, http.MethodGet, "/api/auth/me", loginResp.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	e := newTestApp(t)
	seedUser(t, "bob@example.com", model.RoleUser)

	rec := doJSON(e, http.MethodPost, "/api/auth/login", "", echo.Map{
		"email":    "bob@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAnonymousCannotMutate(t *testing.T) {
	e := newTestApp(t)

	rec := doJSON(e, http.MethodPost, "/api/categories", "", echo.Map{"name": "Electronics"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExpiredSessionIsAnonymous(t *testing.T) {
	e := newTestApp(t)
	user, _ := seedUser(t, "carol@example.com", model.RoleUser)

	expired := model.Session{
		Token:     uuid.New().String(),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, database.GetDB().Create(&expired).Error)

	rec := doJSON(e, http.MethodGet, "/api/auth/me", expired.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutInvalidatesSession(t *testing.T) {
	e := newTestApp(t)
	_, token := seedUser(t, "dave@example.com", model.RoleUser)

	rec := doJSON(e, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCategoryCreateWithEmptyParentIDIsRoot(t *testing.T) {
	e := newTestApp(t)
	_, token := seedUser(t, "alice@example.com", model.RoleUser)

	rec := doJSON(e, http.MethodPost, "/api/categories", token, echo.Map{
		"name":      "Electronics",
		"parent_id": "",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var cat model.Category
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cat))
	assert.Nil(t, cat.ParentID)
}

func TestCategoryRejectsFractionalParentID(t *testing.T) {
	e := newTestApp(t)
	_, token := seedUser(t, "alice@example.com", model.RoleUser)

	rec := doJSON(e, http.MethodPost, "/api/categories", token, echo.Map{"name": "root"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/categories", token, echo.Map{
		"name":      "child",
		"parent_id": 1.9,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCategoryDuplicateRootConflicts(t *testing.T) {
	e := newTestApp(t)
	_, token := seedUser(t, "alice@example.com", model.RoleUser)

	rec := doJSON(e, http.MethodPost, "/api/categories", token, echo.Map{"name": "Electronics"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/categories", token, echo.Map{"name": "Electronics"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCategoryReparentCycleConflicts(t *testing.T) {
	e := newTestApp(t)
	_, token := seedUser(t, "alice@example.com", model.RoleUser)

	rec := doJSON(e, http.MethodPost, "/api/categories", token, echo.Map{"name": "root"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var root model.Category
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &root))

	rec = doJSON(e, http.MethodPost, "/api/categories", token, echo.Map{
		"name":      "child",
		"parent_id": float64(root.ID),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var child model.Category
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &child))

	rec = doJSON(e, http.MethodPut, "/api/categories/1/parent", token, echo.Map{
		"parent_id": float64(child.ID),
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDuplicateEndpointsRequireAdmin(t *testing.T) {
	e := newTestApp(t)
	_, userToken := seedUser(t, "user@example.com", model.RoleUser)
	_, adminToken := seedUser(t, "admin@example.com", model.RoleAdmin)

	rec := doJSON(e, http.MethodGet, "/api/categories/duplicates", userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/categories/duplicates", adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestManufacturerDuplicateNamePerCreator(t *testing.T) {
	e := newTestApp(t)
	_, aliceToken := seedUser(t, "alice@example.com", model.RoleUser)
	_, bobToken := seedUser(t, "bob@example.com", model.RoleUser)

	rec := doJSON(e, http.MethodPost, "/api/manufacturers", aliceToken, echo.Map{"name": "Acme"})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Same creator, same name: conflict.
	rec = doJSON(e, http.MethodPost, "/api/manufacturers", aliceToken, echo.Map{"name": "Acme"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Different creator, same name: fine.
	rec = doJSON(e, http.MethodPost, "/api/manufacturers", bobToken, echo.Map{"name": "Acme"})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestSupplierDuplicateNamePerCreator(t *testing.T) {
	e := newTestApp(t)
	_, aliceToken := seedUser(t, "alice@example.com", model.RoleUser)
	_, bobToken := seedUser(t, "bob@example.com", model.RoleUser)

	rec := doJSON(e, http.MethodPost, "/api/suppliers", aliceToken, echo.Map{"name": "Mouser"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/suppliers", aliceToken, echo.Map{"name": "Mouser"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/suppliers", bobToken, echo.Map{"name": "Mouser"})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestProjectDuplicateNamePerOwner(t *testing.T) {
	e := newTestApp(t)
	_, aliceToken := seedUser(t, "alice@example.com", model.RoleUser)
	_, bobToken := seedUser(t, "bob@example.com", model.RoleUser)

	rec := doJSON(e, http.MethodPost, "/api/projects", aliceToken, echo.Map{"name": "Drone"})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Same owner, same name: conflict.
	rec = doJSON(e, http.MethodPost, "/api/projects", aliceToken, echo.Map{"name": "Drone"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Different owner, same name: fine.
	rec = doJSON(e, http.MethodPost, "/api/projects", bobToken, echo.Map{"name": "Drone"})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestPrivateProjectHiddenFromOthers(t *testing.T) {
	e := newTestApp(t)
	_, aliceToken := seedUser(t, "alice@example.com", model.RoleUser)
	_, bobToken := seedUser(t, "bob@example.com", model.RoleUser)

	rec := doJSON(e, http.MethodPost, "/api/projects", aliceToken, echo.Map{"name": "Secret"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var project model.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &project))

	rec = doJSON(e, http.MethodGet, "/api/projects/1", bobToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/projects/1", aliceToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPartCreateNormalizesPayload(t *testing.T) {
	e := newTestApp(t)
	_, token := seedUser(t, "alice@example.com", model.RoleUser)

	rec := doJSON(e, http.MethodPost, "/api/parts", token, echo.Map{
		"part_number":     "R-1001",
		"name":            "10k resistor",
		"weight":          10,
		"weight_unit":     "",
		"dimensions":      echo.Map{"length": 6.3},
		"dimensions_unit": "mm",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var part model.Part
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &part))
	require.Len(t, part.Versions, 1)

	version := part.Versions[0]
	assert.True(t, version.IsCurrent)
	assert.Equal(t, 1, version.Version)
	assert.Nil(t, version.Weight)
	assert.Nil(t, version.WeightUnit)
	require.NotNil(t, version.DimensionsUnit)
	assert.Equal(t, "mm", *version.DimensionsUnit)
	assert.Contains(t, version.Dimensions, "width")
}

func TestPartUpdateCreatesNewCurrentVersion(t *testing.T) {
	e := newTestApp(t)
	_, token := seedUser(t, "alice@example.com", model.RoleUser)

	rec := doJSON(e, http.MethodPost, "/api/parts", token, echo.Map{
		"part_number": "R-1001",
		"name":        "10k resistor",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodPut, "/api/parts/1", token, echo.Map{
		"part_number": "R-1001",
		"name":        "10k resistor, 1% tolerance",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var versions []model.PartVersion
	require.NoError(t, database.GetDB().Where("part_id = ?", 1).Order("version").Find(&versions).Error)
	require.Len(t, versions, 2)
	assert.False(t, versions[0].IsCurrent)
	assert.True(t, versions[1].IsCurrent)
	assert.Equal(t, 2, versions[1].Version)
}

func TestPartOwnershipEnforced(t *testing.T) {
	e := newTestApp(t)
	_, aliceToken := seedUser(t, "alice@example.com", model.RoleUser)
	_, bobToken := seedUser(t, "bob@example.com", model.RoleUser)

	rec := doJSON(e, http.MethodPost, "/api/parts", aliceToken, echo.Map{
		"part_number": "R-1001",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodPut, "/api/parts/1", bobToken, echo.Map{
		"part_number": "R-1001",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDuplicatePartNumberConflicts(t *testing.T) {
	e := newTestApp(t)
	_, token := seedUser(t, "alice@example.com", model.RoleUser)

	rec := doJSON(e, http.MethodPost, "/api/parts", token, echo.Map{"part_number": "R-1001"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/parts", token, echo.Map{"part_number": "R-1001"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestManufacturerCustomFieldsReplace(t *testing.T) {
	e := newTestApp(t)
	_, token := seedUser(t, "alice@example.com", model.RoleUser)
	_, adminToken := seedUser(t, "admin@example.com", model.RoleAdmin)

	rec := doJSON(e, http.MethodPost, "/api/custom-fields", adminToken, echo.Map{
		"field_name": "iso_certified",
		"data_type":  "boolean",
		"applies_to": "manufacturer",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/manufacturers", token, echo.Map{"name": "Acme"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodPut, "/api/manufacturers/1/custom-fields", token, echo.Map{
		"values": echo.Map{"iso_certified": true},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var values []model.ManufacturerCustomValue
	require.NoError(t, database.GetDB().Where("manufacturer_id = ?", 1).Find(&values).Error)
	require.Len(t, values, 1)
	assert.Equal(t, "true", values[0].Value)

	// Unknown fields are rejected and nothing is half-applied.
	rec = doJSON(e, http.MethodPut, "/api/manufacturers/1/custom-fields", token, echo.Map{
		"values": echo.Map{"made_up_field": 1},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.NoError(t, database.GetDB().Where("manufacturer_id = ?", 1).Find(&values).Error)
	assert.Len(t, values, 1)
}

func TestManufacturerValidation(t *testing.T) {
	e := newTestApp(t)
	_, token := seedUser(t, "alice@example.com", model.RoleUser)

	rec := doJSON(e, http.MethodPost, "/api/manufacturers", token, echo.Map{
		"name":  "Acme",
		"email": "not-an-email",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
