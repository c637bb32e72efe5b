package seeder

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/Additional-Code/burgerbar/internal/config"
	"github.com/Additional-Code/burgerbar/internal/entity"
	menurepo "github.com/Additional-Code/burgerbar/internal/repository/menu"
	userrepo "github.com/Additional-Code/burgerbar/internal/repository/user"
)

//go:embed data/menu.yaml
var defaultMenu []byte

// Module provides the seeder to Fx.
var Module = fx.Options(
	menurepo.Module,
	userrepo.Module,
	fx.Provide(New),
)

// MenuFile is the yaml document describing seed menu items.
type MenuFile struct {
	Items []MenuSeed `yaml:"items"`
}

// MenuSeed is one seed menu item.
type MenuSeed struct {
	Name     string            `yaml:"name"`
	Type     entity.ItemType   `yaml:"type"`
	Size     *entity.DrinkSize `yaml:"size"`
	Price    string            `yaml:"price"`
	Inactive bool              `yaml:"inactive"`
}

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	menu   *menurepo.Repository
	users  *userrepo.Repository
	cfg    config.Config
	logger *zap.Logger
}

// New constructs a Seeder.
func New(menu *menurepo.Repository, users *userrepo.Repository, cfg config.Config, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{menu: menu, users: users, cfg: cfg, logger: logger}
}

// Run seeds the menu and, when configured, the admin account.
func (s *Seeder) Run(ctx context.Context) error {
	if err := s.Menu(ctx); err != nil {
		return err
	}
	return s.Admin(ctx)
}

// Menu inserts menu items that are not there yet. Existing rows, matched on
// name, type and size, are left alone so orders keep their references.
func (s *Seeder) Menu(ctx context.Context) error {
	file, err := s.loadMenu()
	if err != nil {
		return err
	}

	existing, err := s.menu.List(ctx, menurepo.Filter{})
	if err != nil {
		return fmt.Errorf("list menu: %w", err)
	}
	known := make(map[string]struct{}, len(existing))
	for i := range existing {
		known[seedKey(existing[i].Name, existing[i].Type, existing[i].Size)] = struct{}{}
	}

	inserted := 0
	for i, item := range file.Items {
		key := seedKey(item.Name, item.Type, item.Size)
		if _, ok := known[key]; ok {
			continue
		}
		variant, err := entity.ParseVariant(item.Type, item.Size)
		if err != nil {
			return fmt.Errorf("menu item %d (%s): %w", i, item.Name, err)
		}
		price, err := decimal.NewFromString(item.Price)
		if err != nil {
			return fmt.Errorf("menu item %d (%s): price: %w", i, item.Name, err)
		}
		row := &entity.MenuItem{
			Name:      item.Name,
			Price:     price,
			IsActive:  !item.Inactive,
			CreatedAt: time.Now().UTC(),
		}
		row.SetVariant(variant)
		if err := s.menu.Create(ctx, row); err != nil {
			return fmt.Errorf("insert menu item %s: %w", item.Name, err)
		}
		known[key] = struct{}{}
		inserted++
	}

	s.logger.Info("seeded menu", zap.Int("inserted", inserted), zap.Int("total", len(file.Items)))
	return nil
}

// Admin creates the admin account from SEED_ADMIN_EMAIL/SEED_ADMIN_PASSWORD.
// It is a no-op without a password or when the account exists.
func (s *Seeder) Admin(ctx context.Context) error {
	seed := s.cfg.Seed
	if seed.AdminEmail == "" || seed.AdminPassword == "" {
		s.logger.Info("admin seed skipped; SEED_ADMIN_PASSWORD not set")
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(seed.AdminPassword), s.cfg.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	admin := &entity.User{
		Name:         "Administrator",
		Phone:        "-",
		Email:        seed.AdminEmail,
		PasswordHash: string(hash),
		Role:         entity.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	err = s.users.Create(ctx, admin)
	if errors.Is(err, userrepo.ErrDuplicateEmail) {
		s.logger.Info("admin already present", zap.String("email", seed.AdminEmail))
		return nil
	}
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	s.logger.Info("seeded admin", zap.String("email", admin.Email))
	return nil
}

func (s *Seeder) loadMenu() (*MenuFile, error) {
	raw := defaultMenu
	if path := s.cfg.Seed.MenuFile; path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read seed menu: %w", err)
		}
		raw = b
	}
	var file MenuFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse seed menu: %w", err)
	}
	return &file, nil
}

func seedKey(name string, t entity.ItemType, size *entity.DrinkSize) string {
	if size == nil {
		return fmt.Sprintf("%s|%s|", name, t)
	}
	return fmt.Sprintf("%s|%s|%s", name, t, *size)
}
