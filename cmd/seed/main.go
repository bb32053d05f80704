// Command seed provisions the demo accounts and a starter class so the API
// is usable immediately after first boot. Safe to run repeatedly.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"schoolattend/internal/auth"
	"schoolattend/internal/config"
	"schoolattend/internal/logger"
	"schoolattend/internal/store"
	"schoolattend/internal/user"
)

type seedUser struct {
	Username string
	Email    string
	Password string
	Role     string
	Name     string
}

var seedUsers = []seedUser{
	{Username: "admin", Email: "admin@school.edu", Password: "admin123", Role: user.RoleAdmin, Name: "System Administrator"},
	{Username: "staff1", Email: "staff1@school.edu", Password: "staff123", Role: user.RoleStaff, Name: "John Smith"},
	{Username: "student1", Email: "student1@school.edu", Password: "student123", Role: user.RoleStudent, Name: "Alice Brown"},
	{Username: "student2", Email: "student2@school.edu", Password: "student123", Role: user.RoleStudent, Name: "Bob Wilson"},
	{Username: "student3", Email: "student3@school.edu", Password: "student123", Role: user.RoleStudent, Name: "Carol Davis"},
}

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database unreachable")
	}
	defer db.Close()

	if err := store.Migrate(ctx, db.Client); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}

	users := user.NewRepository(db.Client)

	var staffID string
	var studentIDs []string
	for _, su := range seedUsers {
		existing, err := users.GetByUsername(ctx, su.Username)
		if err != nil {
			log.Fatal().Err(err).Str("username", su.Username).Msg("lookup failed")
		}
		var id string
		if existing != nil {
			id = existing.ID
			log.Info().Str("username", su.Username).Msg("user already present")
		} else {
			hash, err := auth.HashPassword(su.Password)
			if err != nil {
				log.Fatal().Err(err).Msg("hash failed")
			}
			created, err := users.Create(ctx, user.User{
				Username:     su.Username,
				Email:        su.Email,
				PasswordHash: hash,
				Role:         su.Role,
				Name:         su.Name,
			})
			if err != nil {
				log.Fatal().Err(err).Str("username", su.Username).Msg("create failed")
			}
			id = created.ID
			log.Info().Str("username", su.Username).Str("role", su.Role).Msg("user created")
		}
		switch su.Role {
		case user.RoleStaff:
			staffID = id
		case user.RoleStudent:
			studentIDs = append(studentIDs, id)
		}
	}

	classes, err := users.ListClasses(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("class list failed")
	}
	classID := 0
	for _, c := range classes {
		if c.Name == "Class 10A" {
			classID = c.ID
			break
		}
	}
	if classID == 0 {
		classID, err = users.CreateClass(ctx, "Class 10A", staffID)
		if err != nil {
			log.Fatal().Err(err).Msg("class create failed")
		}
		log.Info().Int("class_id", classID).Msg("class created")
	}

	for i, studentID := range studentIDs {
		rollNo := fmt.Sprintf("%02d", i+1)
		if err := users.Enroll(ctx, classID, studentID, rollNo); err != nil {
			log.Fatal().Err(err).Str("roll_no", rollNo).Msg("enroll failed")
		}
	}

	log.Info().Int("users", len(seedUsers)).Int("class_id", classID).Msg("seed complete")
}
