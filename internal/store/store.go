package store

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

func New(driver, dsn string) (*Store, error) {
	dialector, err := GetDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// Auto migrate
	if err := db.AutoMigrate(
		&models.User{},
		&models.OTPCode{},
		&models.Record{},
		&models.SessionToken{},
		&models.ShareGrant{},
		&models.AuditLog{},
		&models.AccessLog{},
	); err != nil {
		return nil, err
	}

	// sqlite: one connection only. The pool would otherwise hand each
	// connection its own database for :memory: DSNs, and file DSNs get
	// "database is locked" under concurrent writers.
	if driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	store := &Store{db: db}

	// Seed default data
	if err := store.seedData(); err != nil {
		log.Printf("Warning: failed to seed data: %v", err)
	}

	return store, nil
}

func (s *Store) seedData() error {
	// Create default admin if no users exist
	var userCount int64
	s.db.Model(&models.User{}).Count(&userCount)
	if userCount == 0 {
		password, err := generateRandomPassword(16)
		if err != nil {
			return err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		admin := &models.User{
			ID:           uuid.New().String(),
			Email:        "admin@localhost",
			PasswordHash: string(hash),
			FullName:     "Administrator",
			Role:         models.RoleAdmin,
			Active:       true,
		}
		if err := s.db.Create(admin).Error; err != nil {
			return err
		}
		log.Printf("Created default admin: admin@localhost / %s", password)
	}

	return nil
}

// User operations
func (s *Store) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateUser creates a new user
func (s *Store) CreateUser(user *models.User) error {
	return s.db.Create(user).Error
}

// UpdateUser updates an existing user
func (s *Store) UpdateUser(user *models.User) error {
	return s.db.Save(user).Error
}

// ListUsersPaginated returns users for the admin view
func (s *Store) ListUsersPaginated(
	params PaginationParams,
) ([]models.User, PaginationResult, error) {
	var total int64
	query := s.db.Model(&models.User{})
	if params.Search != "" {
		like := "%" + params.Search + "%"
		query = query.Where("email LIKE ? OR full_name LIKE ?", like, like)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	pagination := CalculatePagination(total, params.Page, params.PageSize)

	var users []models.User
	err := query.Order("created_at DESC").
		Offset((pagination.CurrentPage - 1) * pagination.PageSize).
		Limit(pagination.PageSize).
		Find(&users).Error
	return users, pagination, err
}

// Health checks the database connection
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// DB returns the underlying GORM database connection (for transactions)
func (s *Store) DB() *gorm.DB {
	return s.db
}

// generateRandomPassword generates a random password of specified length
func generateRandomPassword(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	// Use base64 URL encoding to get a safe, printable password
	return base64.URLEncoding.EncodeToString(bytes)[:length], nil
}
