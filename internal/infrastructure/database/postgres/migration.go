// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/your-org/feedmarket-backend/internal/domain/appointment"
	"github.com/your-org/feedmarket-backend/internal/domain/cart"
	"github.com/your-org/feedmarket-backend/internal/domain/order"
	"github.com/your-org/feedmarket-backend/internal/domain/product"
	"github.com/your-org/feedmarket-backend/internal/domain/user"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("Running database auto-migrations...")

	// Dependency order: base tables first
	models := []interface{}{
		&user.User{},
		&user.Address{},

		&product.Store{},
		&product.Product{},
		&product.WeightVariant{},

		&cart.CartItem{},

		&order.Order{},
		&order.OrderItem{},
		&order.StatusHistory{},

		&appointment.Consultant{},
		&appointment.Appointment{},
	}

	for _, model := range models {
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("Database auto-migrations completed")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email_active ON users(email, is_active)",

		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_store_active ON products(store_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_slug ON products(slug)",
		"CREATE INDEX IF NOT EXISTS idx_product_weight_variants_product ON product_weight_variants(product_id, is_active)",

		// Cart indexes
		"CREATE INDEX IF NOT EXISTS idx_cart_items_user_variant ON cart_items(user_id, variant_id)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders(user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_store_status ON orders(store_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_payment_status ON orders(payment_status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_order_status_history_order ON order_status_history(order_id, created_at)",

		// Address indexes
		"CREATE INDEX IF NOT EXISTS idx_addresses_user_primary ON addresses(user_id, is_primary)",

		// Appointment indexes
		"CREATE INDEX IF NOT EXISTS idx_appointments_user ON appointments(user_id, created_at DESC)",
		// A consultant's slot can hold at most one confirmed booking; the
		// index arbitrates when two paid bookings settle concurrently
		"CREATE UNIQUE INDEX IF NOT EXISTS uniq_appointments_confirmed_slot ON appointments(consultant_id, scheduled_date, scheduled_time) WHERE status = 'confirmed' AND deleted_at IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_appointments_payment_status ON appointments(payment_status)",
	}

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("Warning: failed to create index: %v", err)
		}
	}

	return nil
}

// SeedInitialData inserts development fixtures
func (m *Migration) SeedInitialData() error {
	log.Println("Seeding initial data...")

	if err := m.seedUsers(); err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	if err := m.seedStoreAndProducts(); err != nil {
		return fmt.Errorf("failed to seed store and products: %w", err)
	}
	if err := m.seedConsultants(); err != nil {
		return fmt.Errorf("failed to seed consultants: %w", err)
	}

	log.Println("Initial data seeded")
	return nil
}

func (m *Migration) seedUsers() error {
	users := []user.User{
		{
			Email:     "admin@feedmarket.local",
			FirstName: "Platform",
			LastName:  "Admin",
			IsActive:  true,
			IsAdmin:   true,
		},
		{
			Email:     "buyer@feedmarket.local",
			FirstName: "Test",
			LastName:  "Buyer",
			Phone:     "+628123456789",
			IsActive:  true,
		},
	}

	for _, u := range users {
		var existing user.User
		if err := m.db.Where("email = ?", u.Email).First(&existing).Error; err != nil {
			if err := m.db.Create(&u).Error; err != nil {
				return err
			}
			log.Printf("Created user: %s", u.Email)
		}
	}
	return nil
}

func (m *Migration) seedStoreAndProducts() error {
	var count int64
	m.db.Model(&product.Product{}).Count(&count)
	if count > 0 {
		return nil
	}

	var owner user.User
	if err := m.db.Where("email = ?", "admin@feedmarket.local").First(&owner).Error; err != nil {
		return err
	}

	store := product.Store{
		OwnerUserID: owner.ID,
		Name:        "Berkah Ternak Farm Supply",
		Phone:       "+62811222333",
		City:        "Sleman",
		OriginID:    "5819",
	}
	if err := m.db.Create(&store).Error; err != nil {
		return err
	}

	products := []struct {
		p        product.Product
		variants []product.WeightVariant
	}{
		{
			p: product.Product{
				StoreID:     store.ID,
				Name:        "Konsentrat Sapi Perah SP-36",
				Slug:        "konsentrat-sapi-perah-sp-36",
				Description: "Konsentrat protein tinggi untuk sapi perah laktasi.",
				Price:       65000,
				IsActive:    true,
			},
			variants: []product.WeightVariant{
				{Label: "5 kg", WeightGrams: 5000, Price: 65000, IsActive: true},
				{Label: "25 kg", WeightGrams: 25000, Price: 290000, IsActive: true},
			},
		},
		{
			p: product.Product{
				StoreID:     store.ID,
				Name:        "Pakan Ayam Petelur Layer Mash",
				Slug:        "pakan-ayam-petelur-layer-mash",
				Description: "Pakan komplit ayam petelur fase produksi.",
				Price:       9500,
				IsActive:    true,
			},
			variants: []product.WeightVariant{
				{Label: "1 kg", WeightGrams: 1000, Price: 9500, IsActive: true},
				{Label: "50 kg", WeightGrams: 50000, Price: 420000, IsActive: true},
			},
		},
	}

	for _, entry := range products {
		if err := m.db.Create(&entry.p).Error; err != nil {
			return err
		}
		for _, v := range entry.variants {
			v.ProductID = entry.p.ID
			if err := m.db.Create(&v).Error; err != nil {
				return err
			}
		}
		log.Printf("Created product: %s", entry.p.Name)
	}

	return nil
}

func (m *Migration) seedConsultants() error {
	var count int64
	m.db.Model(&appointment.Consultant{}).Count(&count)
	if count > 0 {
		return nil
	}

	consultants := []appointment.Consultant{
		{
			Name:      "drh. Sari Widyastuti",
			Specialty: "Ruminansia",
			Bio:       "Konsultan nutrisi sapi potong dan sapi perah.",
			Fee:       150000,
			IsActive:  true,
		},
		{
			Name:      "Ir. Bambang Prakoso",
			Specialty: "Unggas",
			Bio:       "Formulasi ransum ayam petelur dan broiler.",
			Fee:       100000,
			IsActive:  true,
		},
	}

	for _, c := range consultants {
		if err := m.db.Create(&c).Error; err != nil {
			return err
		}
		log.Printf("Created consultant: %s", c.Name)
	}
	return nil
}
