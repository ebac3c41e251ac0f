package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/adilet-dev/leadflow/models"
	"github.com/adilet-dev/leadflow/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestUser creates an active user with a bcrypt-hashed password
func (tf *TestFixtures) CreateTestUser(fullName string, isAdmin bool) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		UUID:         uuid.New(),
		Email:        fmt.Sprintf("user.%d@example.com", rand.Intn(900000000)+100000000),
		PasswordHash: string(hashedPassword),
		FullName:     fullName,
		IsActive:     utils.ToPtr(true),
		IsAdmin:      utils.ToPtr(isAdmin),
	}

	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}
	return user, nil
}

// CreateTestTenant creates an active tenant with an optional default owner
func (tf *TestFixtures) CreateTestTenant(name string, defaultOwnerID *uint) (*models.Tenant, error) {
	tenant := &models.Tenant{
		Name:               name,
		Slug:               fmt.Sprintf("%s-%d", name, rand.Intn(900000)+100000),
		IsActive:           utils.ToPtr(true),
		DefaultOwnerUserID: defaultOwnerID,
	}

	if err := tf.DB.DB.Create(tenant).Error; err != nil {
		return nil, fmt.Errorf("failed to create test tenant: %w", err)
	}
	return tenant, nil
}

// CreateTestTenantUser links a user to a tenant with the given role
func (tf *TestFixtures) CreateTestTenantUser(tenantID, userID uint, role string) (*models.TenantUser, error) {
	link := &models.TenantUser{
		TenantID: tenantID,
		UserID:   userID,
		Role:     role,
		IsActive: utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(link).Error; err != nil {
		return nil, fmt.Errorf("failed to create tenant user link: %w", err)
	}
	return link, nil
}

// CreateTestLead creates an unassigned NEW lead in a tenant
func (tf *TestFixtures) CreateTestLead(tenantID uint, city, language string) (*models.Lead, error) {
	source := "test"
	phone := fmt.Sprintf("+7707%07d", rand.Intn(10000000))

	lead := &models.Lead{
		UUID:     uuid.New(),
		TenantID: &tenantID,
		Status:   models.LeadStatusNew,
		Source:   &source,
		Phone:    &phone,
	}
	if city != "" {
		lead.City = &city
	}
	if language != "" {
		lead.Language = &language
	}

	if err := tf.DB.DB.Create(lead).Error; err != nil {
		return nil, fmt.Errorf("failed to create test lead: %w", err)
	}
	return lead, nil
}

// CreateTestRule creates an active auto-assign rule with the given strategy
func (tf *TestFixtures) CreateTestRule(tenantID uint, name string, priority int, strategy models.AssignStrategy) (*models.AutoAssignRule, error) {
	rule := &models.AutoAssignRule{
		TenantID:  tenantID,
		Name:      name,
		IsActive:  utils.ToPtr(true),
		Priority:  priority,
		Strategy:  strategy,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := tf.DB.DB.Create(rule).Error; err != nil {
		return nil, fmt.Errorf("failed to create test rule: %w", err)
	}
	return rule, nil
}
