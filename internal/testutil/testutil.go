package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/RobertFent/teambase/internal/database/models"
	"github.com/RobertFent/teambase/internal/identity"
	"github.com/RobertFent/teambase/internal/store"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.Membership{},
		&models.Invitation{},
		&models.ActivityLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// CreateTestTeam creates a test team
func CreateTestTeam(t *testing.T, db *gorm.DB, name string) *models.Team {
	t.Helper()

	team := &models.Team{
		Base: models.Base{ID: uuid.New()},
		Name: name,
	}
	if err := db.Create(team).Error; err != nil {
		t.Fatalf("failed to create test team: %v", err)
	}
	return team
}

// CreateTestUser creates a test user with a unique email and external id
func CreateTestUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()

	suffix := uuid.New().String()[:8]
	user := &models.User{
		Base:       models.Base{ID: uuid.New()},
		ExternalID: "ext_" + suffix,
		Email:      "test-" + suffix + "@example.com",
		Name:       name,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestMembership joins the user to the team
func CreateTestMembership(t *testing.T, db *gorm.DB, team *models.Team, user *models.User, role string) *models.Membership {
	t.Helper()

	m := &models.Membership{
		Base:   models.Base{ID: uuid.New()},
		TeamID: team.ID,
		UserID: user.ID,
		Role:   role,
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("failed to create test membership: %v", err)
	}
	return m
}

// CreateTestTokenService returns the token service used across tests
func CreateTestTokenService() *identity.TokenService {
	return identity.NewTokenService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken mints a valid session token for the given user
func GenerateTestToken(t *testing.T, tokens *identity.TokenService, user *models.User) string {
	t.Helper()

	token, err := tokens.GenerateToken(user.ExternalID)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return token
}

// AuthenticatedRequest creates an HTTP request with a bearer session token
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// FormRequest creates a form-encoded action submission
func FormRequest(t *testing.T, path string, form url.Values, token string) *http.Request {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// FakeProvider records outbound identity-provider calls and fails on demand
type FakeProvider struct {
	mu sync.Mutex

	Invitations []FakeInvitation
	Deletions   []string

	InvitationErr error
	DeletionErr   error
}

type FakeInvitation struct {
	Email  string
	TeamID uuid.UUID
	Role   string
}

func (f *FakeProvider) CreateInvitation(ctx context.Context, email string, teamID uuid.UUID, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InvitationErr != nil {
		return f.InvitationErr
	}
	f.Invitations = append(f.Invitations, FakeInvitation{Email: email, TeamID: teamID, Role: role})
	return nil
}

func (f *FakeProvider) DeleteUser(ctx context.Context, externalID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeletionErr != nil {
		return f.DeletionErr
	}
	f.Deletions = append(f.Deletions, externalID)
	return nil
}

// FakeQueue records deprovision retries enqueued by the gateway
type FakeQueue struct {
	mu       sync.Mutex
	Enqueued []string
}

func (f *FakeQueue) EnqueueDeprovision(ctx context.Context, externalID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Enqueued = append(f.Enqueued, externalID)
	return nil
}

// TestSetup holds the common test dependencies
type TestSetup struct {
	DB       *gorm.DB
	Store    *store.Store
	Tokens   *identity.TokenService
	Provider *FakeProvider
	Queue    *FakeQueue
}

// NewTestContext creates a complete test setup
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	return &TestSetup{
		DB:       db,
		Store:    store.New(db),
		Tokens:   CreateTestTokenService(),
		Provider: &FakeProvider{},
		Queue:    &FakeQueue{},
	}
}

// Cleanup closes the test database
func (ts *TestSetup) Cleanup() {
	if ts.DB != nil {
		sqlDB, err := ts.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}
