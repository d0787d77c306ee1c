package main

import (
	"flag"
	"log"
	"strings"

	"bitbucket.org/mmdatafocus/garage_backend/config"
	"bitbucket.org/mmdatafocus/garage_backend/models"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
	"github.com/joho/godotenv"
)

// seed-admin bootstraps a tenant: default chart of accounts plus one admin
// user holding every capability. Safe to re-run; existing rows are kept.
func main() {
	godotenv.Load()

	businessId := flag.String("business", "", "business (tenant) id to seed")
	email := flag.String("email", "", "admin email")
	password := flag.String("password", "", "admin password")
	name := flag.String("name", "Administrator", "admin display name")
	laborRate := flag.String("labor-rate", "10000", "default hourly rate for seeded service types")
	flag.Parse()

	if *businessId == "" || *email == "" || *password == "" {
		log.Fatal("usage: seed-admin -business <id> -email <email> -password <password> [-name <name>]")
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	models.MigrateTable()

	if err := models.EnsureDefaultAccounts(db, *businessId); err != nil {
		log.Fatalf("seed chart of accounts: %v", err)
	}
	if err := models.EnsureDefaultPaymentModes(db, *businessId); err != nil {
		log.Fatalf("seed payment modes: %v", err)
	}
	rate, err := utils.ParseDecimal(*laborRate)
	if err != nil {
		log.Fatalf("parse -labor-rate: %v", err)
	}
	if err := models.EnsureDefaultServiceTypes(db, *businessId, rate); err != nil {
		log.Fatalf("seed service types: %v", err)
	}

	var existing int64
	if err := db.Model(&models.User{}).
		Where("business_id = ? AND email = ?", *businessId, *email).
		Count(&existing).Error; err != nil {
		log.Fatalf("check existing user: %v", err)
	}
	if existing > 0 {
		log.Printf("user %s already exists for business %s; nothing to do", *email, *businessId)
		return
	}

	hash, err := utils.HashPassword(*password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	user := models.User{
		BusinessId:   *businessId,
		Name:         *name,
		Email:        *email,
		PasswordHash: string(hash),
		Role:         "admin",
		IsAdmin:      true,
		Capabilities: strings.Join([]string{
			models.CapabilityRecordDelete,
			models.CapabilityFinancialReverse,
		}, ","),
		Status: models.StatusActive,
	}
	if err := db.Create(&user).Error; err != nil {
		log.Fatalf("create admin user: %v", err)
	}

	log.Printf("seeded business %s with admin %s (user id %d)", *businessId, *email, user.ID)
}
