// Command seed creates the initial admin user so a fresh deployment has an
// account that can create tasks and manage roles.
package main

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"taskboard/internal/config"
	"taskboard/internal/db"
	"taskboard/internal/model"
	"taskboard/internal/repository"
	"taskboard/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(context.Background())
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.LogLevel, true)

	email := strings.ToLower(os.Getenv("ADMIN_EMAIL"))
	password := os.Getenv("ADMIN_PASSWORD")
	name := os.Getenv("ADMIN_NAME")
	if email == "" || password == "" {
		log.Fatal().Msg("ADMIN_EMAIL and ADMIN_PASSWORD are required")
	}
	if name == "" {
		name = "Administrator"
	}

	gormDB, err := db.NewMySQL(cfg.MySQL.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database init failed")
	}
	if err := gormDB.AutoMigrate(&model.User{}, &model.Task{}); err != nil {
		log.Fatal().Err(err).Msg("auto-migrate failed")
	}

	ctx := context.Background()
	users := repository.NewUserRepository(gormDB)

	if existing, err := users.FindByEmail(ctx, email); err == nil {
		log.Info().Str("user_id", existing.ID.String()).Msg("admin already exists, nothing to do")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Fatal().Err(err).Msg("lookup failed")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	if err != nil {
		log.Fatal().Err(err).Msg("hash password failed")
	}

	admin := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashed),
		Role:         model.RoleAdmin,
	}
	if err := users.Create(ctx, admin); err != nil {
		log.Fatal().Err(err).Msg("create admin failed")
	}
	log.Info().Str("user_id", admin.ID.String()).Msg("admin user created")
}
