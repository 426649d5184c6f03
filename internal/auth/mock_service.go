package auth

import (
	"fmt"
	"strings"
	"sync"

	"github.com/nextolk/backend/internal/models"
)

// MockCall records a method call for assertion
type MockCall struct {
	Method string
	Args   []interface{}
}

// MockAuthService is a mock implementation of AuthServiceInterface for testing.
// Tokens it hands out have the form "mock_<kind>_<user id>".
type MockAuthService struct {
	mu sync.Mutex

	// Call tracking
	Calls []MockCall

	// Configurable function overrides
	RegisterFunc      func(req RegisterRequest) (*models.User, error)
	LoginFunc         func(req LoginRequest) (*TokenPair, error)
	RefreshFunc       func(refreshToken string) (string, error)
	ValidateTokenFunc func(tokenString string) (*models.User, error)

	// Default error to return
	DefaultError error

	// Pre-configured users for testing
	Users  map[string]*models.User // keyed by username
	nextID uint
}

// NewMockAuthService creates a new mock auth service with sensible defaults
func NewMockAuthService() *MockAuthService {
	return &MockAuthService{
		Calls: make([]MockCall, 0),
		Users: make(map[string]*models.User),
	}
}

func (m *MockAuthService) recordCall(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
}

// GetCallsForMethod returns calls for a specific method
func (m *MockAuthService) GetCallsForMethod(method string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []MockCall
	for _, call := range m.Calls {
		if call.Method == method {
			result = append(result, call)
		}
	}
	return result
}

// AssertCalled checks if a method was called at least once
func (m *MockAuthService) AssertCalled(method string) bool {
	return len(m.GetCallsForMethod(method)) > 0
}

// AddUser adds a test user to the mock service, assigning an ID if needed
func (m *MockAuthService) AddUser(user *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == 0 {
		m.nextID++
		user.ID = m.nextID
	} else if user.ID > m.nextID {
		m.nextID = user.ID
	}
	user.IsActive = true
	m.Users[user.Username] = user
}

func (m *MockAuthService) userByID(id uint) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (m *MockAuthService) tokenUser(token, kind string) (*models.User, error) {
	var id uint
	if _, err := fmt.Sscanf(token, "mock_"+kind+"_%d", &id); err != nil || !strings.HasPrefix(token, "mock_"+kind+"_") {
		return nil, ErrInvalidToken
	}
	user := m.userByID(id)
	if user == nil {
		return nil, ErrInvalidToken
	}
	return user, nil
}

func (m *MockAuthService) Register(req RegisterRequest) (*models.User, error) {
	m.recordCall("Register", req)
	if m.RegisterFunc != nil {
		return m.RegisterFunc(req)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}

	m.mu.Lock()
	_, exists := m.Users[req.Username]
	m.mu.Unlock()
	if exists {
		return nil, ErrUsernameExists
	}

	user := &models.User{Username: req.Username, Email: req.Email}
	m.AddUser(user)
	return user, nil
}

func (m *MockAuthService) Login(req LoginRequest) (*TokenPair, error) {
	m.recordCall("Login", req)
	if m.LoginFunc != nil {
		return m.LoginFunc(req)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}

	m.mu.Lock()
	user, exists := m.Users[req.Username]
	m.mu.Unlock()
	if !exists {
		return nil, ErrInvalidCredentials
	}
	return &TokenPair{
		Access:   fmt.Sprintf("mock_access_%d", user.ID),
		Refresh:  fmt.Sprintf("mock_refresh_%d", user.ID),
		UserID:   user.ID,
		Username: user.Username,
	}, nil
}

func (m *MockAuthService) Refresh(refreshToken string) (string, error) {
	m.recordCall("Refresh", refreshToken)
	if m.RefreshFunc != nil {
		return m.RefreshFunc(refreshToken)
	}
	user, err := m.tokenUser(refreshToken, TokenTypeRefresh)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("mock_access_%d", user.ID), nil
}

func (m *MockAuthService) Verify(token string) error {
	m.recordCall("Verify", token)
	if _, err := m.tokenUser(token, TokenTypeAccess); err == nil {
		return nil
	}
	_, err := m.tokenUser(token, TokenTypeRefresh)
	return err
}

func (m *MockAuthService) ValidateToken(tokenString string) (*models.User, error) {
	m.recordCall("ValidateToken", tokenString)
	if m.ValidateTokenFunc != nil {
		return m.ValidateTokenFunc(tokenString)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	return m.tokenUser(tokenString, TokenTypeAccess)
}

// Ensure MockAuthService implements AuthServiceInterface
var _ AuthServiceInterface = (*MockAuthService)(nil)
