package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/voxbill/voxbill/internal/cache"
	"github.com/voxbill/voxbill/internal/config"
	"github.com/voxbill/voxbill/internal/domain/exemption"
	"github.com/voxbill/voxbill/internal/domain/jurisdiction"
	"github.com/voxbill/voxbill/internal/domain/taxcategory"
	"github.com/voxbill/voxbill/internal/domain/taxrate"
	"github.com/voxbill/voxbill/internal/logger"
	"github.com/voxbill/voxbill/internal/postgres"
	"github.com/voxbill/voxbill/internal/types"
	"github.com/voxbill/voxbill/internal/validator"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	JurisdictionRepo   jurisdiction.Repository
	TaxCategoryRepo    taxcategory.Repository
	TaxRateRepo        taxrate.Repository
	TaxRateHistoryRepo taxrate.HistoryRepository
	ExemptionRepo      exemption.Repository
	ExemptionUsageRepo exemption.UsageRepository
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	stores Stores
	db     postgres.IClient
	cache  cache.Cache
	logger *logger.Logger
	config *config.Configuration
	now    time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	cfg := config.GetDefaultConfig()
	s.config = cfg

	var err error
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = SetupContext()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		JurisdictionRepo:   NewInMemoryJurisdictionStore(),
		TaxCategoryRepo:    NewInMemoryTaxCategoryStore(),
		TaxRateRepo:        NewInMemoryTaxRateStore(),
		TaxRateHistoryRepo: NewInMemoryTaxRateHistoryStore(),
		ExemptionRepo:      NewInMemoryExemptionStore(),
		ExemptionUsageRepo: NewInMemoryExemptionUsageStore(),
	}

	s.db = NewMockPostgresClient(s.logger)
	s.cache = cache.NewInMemoryCache(s.config, s.logger)
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.JurisdictionRepo.(*InMemoryJurisdictionStore).Clear()
	s.stores.TaxCategoryRepo.(*InMemoryTaxCategoryStore).Clear()
	s.stores.TaxRateRepo.(*InMemoryTaxRateStore).Clear()
	s.stores.TaxRateHistoryRepo.(*InMemoryTaxRateHistoryStore).Clear()
	s.stores.ExemptionRepo.(*InMemoryExemptionStore).Clear()
	s.stores.ExemptionUsageRepo.(*InMemoryExemptionUsageStore).Clear()
}

func (s *BaseServiceTestSuite) ClearStores() {
	s.clearStores()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetStores returns the test stores
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetDB returns the mock postgres client
func (s *BaseServiceTestSuite) GetDB() postgres.IClient {
	return s.db
}

// GetCache returns the test cache
func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}

// GetUUID generates a new UUID for tests
func (s *BaseServiceTestSuite) GetUUID() string {
	return types.GenerateUUID()
}
