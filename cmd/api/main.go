// Command api runs the HTTP and gRPC services without the CLI wrapper.
package main

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/burgerbar/internal/app"
)

func main() {
	fx.New(app.HTTP).Run()
}
