package store

import (
	"context"
	"fmt"
)

// Config selecciona el driver de persistencia.
type Config struct {
	Driver string // "mongo" | "postgres" | "memory"
	Mongo  struct {
		URI      string
		Database string
	}
	Postgres struct {
		DSN     string
		Migrate bool
	}
}

// openFuncs lo llenan los drivers via Register para no acoplar este paquete
// a sus dependencias (el binario importa los drivers que quiere).
var openFuncs = map[string]func(ctx context.Context, cfg Config) (AccountRepository, error){}

// Register registra la función de apertura de un driver.
func Register(name string, open func(ctx context.Context, cfg Config) (AccountRepository, error)) {
	openFuncs[name] = open
}

// HasDriver indica si un driver se registró bajo ese nombre.
func HasDriver(name string) bool {
	_, ok := openFuncs[name]
	return ok
}

// Open crea el repositorio según cfg.Driver.
func Open(ctx context.Context, cfg Config) (AccountRepository, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "memory"
	}
	open, ok := openFuncs[driver]
	if !ok {
		return nil, fmt.Errorf("store: unknown driver %q", driver)
	}
	return open(ctx, cfg)
}
