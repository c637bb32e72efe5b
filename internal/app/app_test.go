package app

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/Additional-Code/burgerbar/internal/migration"
	"github.com/Additional-Code/burgerbar/internal/seeder"
)

func TestGraphsResolve(t *testing.T) {
	cases := map[string]fx.Option{
		"http":    HTTP,
		"worker":  Worker,
		"migrate": fx.Options(Base, migration.Module, fx.Invoke(func(*migration.Migrator) {})),
		"seed":    fx.Options(Base, seeder.Module, fx.Invoke(func(*seeder.Seeder) {})),
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, fx.ValidateApp(opts))
		})
	}
}
