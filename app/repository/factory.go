package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Repositories bundles the repository instances
type Repositories struct {
	CheckoutAttempt CheckoutAttemptRepository
}

// NewRepositories creates all repositories for the given database
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		CheckoutAttempt: NewCheckoutAttemptRepository(db),
	}
}

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetCheckoutAttemptRepository returns the checkout attempt repository instance
func (f *Factory) GetCheckoutAttemptRepository() CheckoutAttemptRepository {
	return f.GetRepositories().CheckoutAttempt
}
