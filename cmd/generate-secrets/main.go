package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/eventhall/booking-wizard/internal/utils"
	"github.com/eventhall/booking-wizard/pkg/jwt"
	"github.com/google/uuid"
)

func main() {
	devToken := flag.Bool("dev-token", false, "also print an access token signed with the new secret")
	email := flag.String("email", "dev@example.com", "email claim of the dev token")
	phone := flag.String("phone", "0771234567", "phone claim of the dev token")
	issuer := flag.String("issuer", "venue-booking", "issuer claim of the dev token")
	cost := flag.Int("bcrypt-cost", 12, "bcrypt cost of the admin key hash")
	flag.Parse()

	fmt.Println("===========================================")
	fmt.Println("Secret Generator for the booking wizard")
	fmt.Println("===========================================")
	fmt.Println()

	jwtSecret, err := utils.GenerateSecret(32)
	if err != nil {
		log.Fatalf("Failed to generate JWT secret: %v", err)
	}

	adminKey, adminKeyHash, err := utils.GenerateAdminKey(*cost)
	if err != nil {
		log.Fatalf("Failed to generate admin key: %v", err)
	}

	fmt.Println("✅ Secrets generated successfully!")
	fmt.Println()
	fmt.Println("Add these to your .env file:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", jwtSecret)
	fmt.Printf("ADMIN_API_KEY_HASH='%s'\n", adminKeyHash)
	fmt.Println()
	fmt.Println("Send this key in the X-Admin-Key header for /api/v1/admin requests:")
	fmt.Printf("ADMIN_API_KEY=%s\n", adminKey)

	if *devToken {
		service := jwt.NewService(jwtSecret, *issuer, 24*time.Hour)
		token, err := service.GenerateAccessToken(uuid.NewString(), "Dev User", *email, *phone)
		if err != nil {
			log.Fatalf("Failed to generate dev token: %v", err)
		}
		fmt.Println()
		fmt.Println("Dev access token (valid 24h):")
		fmt.Println(token)
	}

	fmt.Println()
	fmt.Println("⚠️  IMPORTANT: Keep these secrets safe and never commit them to version control!")
	fmt.Println("===========================================")
}
