// Package seed loads the sample relief data used for demos and local development.
package seed

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/relief-management-api/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrAlreadySeeded is returned when the store has data and Reset is false.
var ErrAlreadySeeded = errors.New("database already contains areas; use reset to reseed")

// Options controls a seed run.
type Options struct {
	// Reset deletes every existing row first.
	Reset bool
	// Password is given to the seeded accounts.
	Password string
	// HashCost is the bcrypt cost; zero means bcrypt.DefaultCost.
	HashCost int
}

// Result counts what a seed run created.
type Result struct {
	Categories  int
	Areas       int
	Products    int
	AreaAdmins  int
	Needs       int
	SuperAdmins int
}

var categories = []models.Category{
	{Name: "Food", Description: "Food and nutrition supplies"},
	{Name: "Medicine", Description: "Medical supplies and medicines"},
	{Name: "Shelter", Description: "Temporary shelter and tents"},
	{Name: "Clothing", Description: "Clothes and personal items"},
}

var areas = []models.Area{
	{Name: "Mumbai District", Description: "Mumbai metropolitan area", Address: "Mumbai, Maharashtra, India", PostalCode: "400001"},
	{Name: "Pune District", Description: "Pune city and surrounding areas", Address: "Pune, Maharashtra, India", PostalCode: "411001"},
	{Name: "Delhi District", Description: "Delhi NCR region", Address: "New Delhi, Delhi, India", PostalCode: "110001"},
}

type productSeed struct {
	name, description, category, unit string
}

var products = []productSeed{
	{"Rice", "Basmati rice", "Food", "kg"},
	{"Wheat Flour", "Wheat flour", "Food", "kg"},
	{"Biscuits", "Dry biscuits", "Food", "packets"},
	{"Pain Relievers", "Pain relief medicines", "Medicine", "boxes"},
	{"Antibiotics", "Antibiotic medicines", "Medicine", "strips"},
	{"First Aid Kit", "Complete first aid kit", "Medicine", "kits"},
	{"Tents", "Temporary shelter tents", "Shelter", "units"},
	{"Tarpaulin", "Tarpaulin sheets", "Shelter", "meters"},
	{"Blankets", "Warm blankets", "Shelter", "pieces"},
	{"Clothes", "Used clothes", "Clothing", "pieces"},
	{"Shoes", "Footwear", "Clothing", "pairs"},
}

type adminSeed struct {
	name, email, area string
}

var areaAdmins = []adminSeed{
	{"Rajesh Kumar", "rajesh@relief.example", "Mumbai District"},
	{"Priya Sharma", "priya@relief.example", "Pune District"},
	{"Amit Patel", "amit@relief.example", "Delhi District"},
}

type needSeed struct {
	area, product string
	quantity      int
	notes         string
	priority      models.NeedPriority
}

var needs = []needSeed{
	{"Mumbai District", "Rice", 5000, "Urgent need", models.PriorityUrgent},
	{"Mumbai District", "Pain Relievers", 200, "", models.PriorityMedium},
	{"Mumbai District", "Tents", 150, "High priority", models.PriorityHigh},
	{"Mumbai District", "Clothes", 500, "", models.PriorityMedium},
	{"Pune District", "Wheat Flour", 3000, "", models.PriorityMedium},
	{"Pune District", "Biscuits", 1000, "Dry food needed", models.PriorityHigh},
	{"Pune District", "Antibiotics", 300, "", models.PriorityMedium},
	{"Pune District", "Tarpaulin", 5000, "Coverage material", models.PriorityHigh},
	{"Delhi District", "Rice", 8000, "Large requirement", models.PriorityUrgent},
	{"Delhi District", "First Aid Kit", 500, "", models.PriorityMedium},
	{"Delhi District", "Blankets", 2000, "Winter season", models.PriorityHigh},
	{"Delhi District", "Shoes", 1000, "", models.PriorityMedium},
}

// Run loads the sample data in one transaction.
func Run(db *gorm.DB, opts Options, log *logrus.Logger) (*Result, error) {
	if opts.Password == "" {
		return nil, errors.New("seed password is required")
	}
	cost := opts.HashCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash seed password: %w", err)
	}

	result := &Result{}
	err = db.Transaction(func(tx *gorm.DB) error {
		if opts.Reset {
			if err := deleteAll(tx); err != nil {
				return err
			}
			log.Info("cleared existing data")
		} else {
			var n int64
			if err := tx.Model(&models.Area{}).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return ErrAlreadySeeded
			}
		}

		categoryIDs := map[string]uint64{}
		for _, c := range categories {
			c := c
			if err := tx.Create(&c).Error; err != nil {
				return fmt.Errorf("create category %s: %w", c.Name, err)
			}
			categoryIDs[c.Name] = c.ID
		}
		result.Categories = len(categoryIDs)

		areaIDs := map[string]uint64{}
		for _, a := range areas {
			a := a
			if err := tx.Create(&a).Error; err != nil {
				return fmt.Errorf("create area %s: %w", a.Name, err)
			}
			areaIDs[a.Name] = a.ID
		}
		result.Areas = len(areaIDs)

		productIDs := map[string]uint64{}
		for _, p := range products {
			product := models.Product{Name: p.name, Description: p.description, Unit: p.unit, CategoryID: categoryIDs[p.category]}
			if err := tx.Omit(clause.Associations).Create(&product).Error; err != nil {
				return fmt.Errorf("create product %s: %w", p.name, err)
			}
			productIDs[p.name] = product.ID
		}
		result.Products = len(productIDs)

		superAdmin := models.User{
			Username:     "super_admin",
			Email:        "admin@relief.example",
			PasswordHash: string(hash),
			Role:         models.RoleSuperAdmin,
		}
		if err := tx.Create(&superAdmin).Error; err != nil {
			return fmt.Errorf("create super admin: %w", err)
		}
		result.SuperAdmins = 1

		for i, a := range areaAdmins {
			user := models.User{
				Username:     fmt.Sprintf("area_admin_%d", i+1),
				Email:        a.email,
				PasswordHash: string(hash),
				Role:         models.RoleAreaAdmin,
			}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("create area admin %s: %w", user.Username, err)
			}
			assignment := models.AreaAssignment{
				UserID:   user.ID,
				AreaID:   areaIDs[a.area],
				Name:     a.name,
				Email:    a.email,
				IsActive: true,
			}
			if err := tx.Omit(clause.Associations).Create(&assignment).Error; err != nil {
				return fmt.Errorf("create assignment for %s: %w", user.Username, err)
			}
			result.AreaAdmins++
		}

		for _, n := range needs {
			need := models.Need{
				AreaID:      areaIDs[n.area],
				ProductID:   productIDs[n.product],
				Quantity:    n.quantity,
				Notes:       n.notes,
				Priority:    n.priority,
				Status:      models.NeedStatusPending,
				CreatedByID: &superAdmin.ID,
			}
			if err := tx.Omit(clause.Associations).Create(&need).Error; err != nil {
				return fmt.Errorf("create need: %w", err)
			}
			result.Needs++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"categories":  result.Categories,
		"areas":       result.Areas,
		"products":    result.Products,
		"area_admins": result.AreaAdmins,
		"needs":       result.Needs,
	}).Info("sample data loaded")
	return result, nil
}

// deleteAll deletes every row, children first.
func deleteAll(tx *gorm.DB) error {
	all := models.All()
	for i := len(all) - 1; i >= 0; i-- {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(all[i]).Error; err != nil {
			return fmt.Errorf("clear %T: %w", all[i], err)
		}
	}
	return nil
}
