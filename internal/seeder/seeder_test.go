package seeder

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Additional-Code/burgerbar/internal/config"
	"github.com/Additional-Code/burgerbar/internal/database/dbtest"
	"github.com/Additional-Code/burgerbar/internal/entity"
	menurepo "github.com/Additional-Code/burgerbar/internal/repository/menu"
	userrepo "github.com/Additional-Code/burgerbar/internal/repository/user"
)

func newSeeder(t *testing.T, cfg config.Config) (*Seeder, *menurepo.Repository, *userrepo.Repository) {
	t.Helper()
	conns := dbtest.SQLite(t)
	menu := menurepo.NewRepository(conns)
	users := userrepo.NewRepository(conns)
	cfg.Auth.BcryptCost = bcrypt.MinCost
	return New(menu, users, cfg, nil), menu, users
}

func TestMenuSeedIsIdempotent(t *testing.T) {
	s, menu, _ := newSeeder(t, config.Config{})
	ctx := context.Background()

	require.NoError(t, s.Menu(ctx))
	require.NoError(t, s.Menu(ctx))

	items, err := menu.List(ctx, menurepo.Filter{})
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, "Cheeseburger", items[0].Name)
	assert.Equal(t, "Soft drink (LARGE)", items[3].DisplayName())
	assert.Equal(t, "5", items[3].Price.String())
}

func TestMenuSeedFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "menu.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
items:
  - name: Veggie burger
    type: BURGER
    price: "17.50"
  - name: Shake
    type: DRINK
    size: LARGE
    price: "7"
    inactive: true
`), 0o600))

	var cfg config.Config
	cfg.Seed.MenuFile = path
	s, menu, _ := newSeeder(t, cfg)
	ctx := context.Background()
	require.NoError(t, s.Menu(ctx))

	inactive := false
	items, err := menu.List(ctx, menurepo.Filter{IsActive: &inactive})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Shake", items[0].Name)
}

func TestMenuSeedSkipsRepeatedEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "menu.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
items:
  - name: Soft drink
    type: DRINK
    size: SMALL
    price: "4"
  - name: Soft drink
    type: DRINK
    size: SMALL
    price: "4.50"
  - name: Soft drink
    type: DRINK
    size: LARGE
    price: "5"
`), 0o600))

	var cfg config.Config
	cfg.Seed.MenuFile = path
	s, menu, _ := newSeeder(t, cfg)
	ctx := context.Background()
	require.NoError(t, s.Menu(ctx))

	items, err := menu.List(ctx, menurepo.Filter{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Soft drink (SMALL)", items[0].DisplayName())
	assert.Equal(t, "4", items[0].Price.String())
}

func TestMenuSeedRejectsInvalidVariant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "menu.yaml")
	require.NoError(t, os.WriteFile(path, []byte("items:\n  - name: Odd\n    type: BURGER\n    size: SMALL\n    price: 1\n"), 0o600))

	var cfg config.Config
	cfg.Seed.MenuFile = path
	s, _, _ := newSeeder(t, cfg)
	assert.ErrorIs(t, s.Menu(context.Background()), entity.ErrInvalidVariant)
}

func TestAdminSeed(t *testing.T) {
	var cfg config.Config
	cfg.Seed.AdminEmail = "admin@burgerbar.local"
	cfg.Seed.AdminPassword = "changeme"
	s, _, users := newSeeder(t, cfg)
	ctx := context.Background()

	require.NoError(t, s.Admin(ctx))
	require.NoError(t, s.Admin(ctx))

	admin, err := users.FindByEmail(ctx, "admin@burgerbar.local")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, admin.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("changeme")))
}

func TestAdminSeedSkippedWithoutPassword(t *testing.T) {
	s, _, users := newSeeder(t, config.Config{})
	require.NoError(t, s.Admin(context.Background()))
	_, err := users.FindByEmail(context.Background(), "admin@burgerbar.local")
	assert.ErrorIs(t, err, userrepo.ErrNotFound)
}
