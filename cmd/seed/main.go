// Command seed loads a demo villager, buyer, and a few listings into the
// database. Intended for local development only.
package main

import (
	"log"
	"time"

	"go-farm-market/internal/model"
	"go-farm-market/internal/repository"
	"go-farm-market/pkg/database"
	_ "go-farm-market/pkg/database/migrations"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	db := database.ConnectDB()
	if err := database.Migrate(db); err != nil {
		log.Fatal("Migration failed: ", err)
	}

	userRepo := repository.NewUserRepo(db)
	productRepo := repository.NewProductRepo(db)

	villager := seedUser(userRepo, &model.User{
		Email:       "villager@example.com",
		Role:        model.RoleVillager,
		FarmName:    "Demo Farm",
		Address:     "123 Hillside Road",
		ContactInfo: "villager@example.com",
	})
	seedUser(userRepo, &model.User{
		Email: "buyer@example.com",
		Role:  model.RoleUser,
	})

	products := []model.Product{
		{OwnerID: villager.ID, Name: "Mango", Category: "Sweet", Price: 3.5, Stock: 100, LowStockThreshold: 10},
		{OwnerID: villager.ID, Name: "Sticky Rice", Category: "Staple", Price: 2.0, Stock: 40, LowStockThreshold: 5},
		{OwnerID: villager.ID, Name: "Chili Paste", Category: "Savoury", Price: 6.0, Stock: 6, LowStockThreshold: 7},
	}
	for i := range products {
		p := products[i]
		if p.Stock <= p.LowStockThreshold {
			now := time.Now()
			p.LowStockSinceDate = &now
		}
		if err := productRepo.Create(&p); err != nil {
			log.Printf("seed product %s: %v", p.Name, err)
		} else {
			log.Printf("seeded product %s (%gkg)", p.Name, p.Stock)
		}
	}

	log.Println("Seed complete. Demo password for both accounts: password123")
}

func seedUser(repo repository.UserRepository, u *model.User) *model.User {
	if existing, err := repo.FindByEmail(u.Email); err == nil {
		log.Printf("user %s already present", u.Email)
		return existing
	}
	if err := u.SetPassword("password123"); err != nil {
		log.Fatal(err)
	}
	if err := repo.Create(u); err != nil {
		log.Fatal("seed user: ", err)
	}
	log.Printf("seeded user %s (%s)", u.Email, u.Role)
	return u
}
