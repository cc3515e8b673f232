package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/hotelbridge/liteapi-booking/internal/config"
	"github.com/hotelbridge/liteapi-booking/internal/database"
	"github.com/hotelbridge/liteapi-booking/internal/services"
	"github.com/hotelbridge/liteapi-booking/internal/utils"
	"github.com/hotelbridge/liteapi-booking/pkg/jwt"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	var (
		adminEmail    string
		adminPassword string
		adminName     string
		adminRole     string
	)
	flag.StringVar(&adminEmail, "admin-email", "", "create (or reset) an admin user with this email")
	flag.StringVar(&adminPassword, "admin-password", "", "password for the admin user")
	flag.StringVar(&adminName, "admin-name", "Administrator", "full name of the admin user")
	flag.StringVar(&adminRole, "admin-role", "admin", "role of the admin user (admin, super_admin)")
	flag.Parse()

	fmt.Println("===========================================")
	fmt.Println("Secret Generator for the LiteAPI booking backend")
	fmt.Println("===========================================")
	fmt.Println()

	secret, err := utils.GenerateSecret(32)
	if err != nil {
		log.Fatalf("Failed to generate secret: %v", err)
	}

	fmt.Println("Add this to your .env file or deployment secrets:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", secret)
	fmt.Println()

	if adminEmail == "" {
		fmt.Println("IMPORTANT: Keep this secret safe and never commit it to version control!")
		fmt.Println("===========================================")
		return
	}
	if len(adminPassword) < 8 {
		log.Fatal("-admin-password must be at least 8 characters")
	}

	// Only the database section is needed here
	_ = godotenv.Load()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     2,
		MaxIdleConnections: 1,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	logger := logrus.New()
	authService := services.NewAdminAuthService(
		database.NewAdminUserRepository(db),
		jwt.NewService(secret, time.Hour),
		bcrypt.DefaultCost,
		logger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	admin, err := authService.CreateAdmin(ctx, adminEmail, adminPassword, adminName, adminRole)
	if err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}

	fmt.Printf("Admin user ready: %s (%s, role=%s)\n", admin.Email, admin.ID, admin.Role)
	fmt.Println("===========================================")
}
