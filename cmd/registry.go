package main

import "context"

// schemaRegistrars and migrators are populated by an application's own
// packages via RegisterSchema/RegisterMigration, called from their init()
// functions via blank import, the same side-effect-registration shape as
// every other package in this module that registers itself on import.
// This package ships no concrete schema of its own — schema.Register[M]
// is inherently generic per entity type, so only the consuming
// application can name M.
var (
	schemaRegistrars []func()
	migrators        []func(context.Context) error
)

// RegisterSchema queues fn to run once, after Bootstrap and before Serve
// starts accepting connections. fn is expected to call schema.Register[M]
// and router.Register[M] for one schema.
func RegisterSchema(fn func()) {
	schemaRegistrars = append(schemaRegistrars, fn)
}

// RegisterMigration queues fn to run when the migrate subcommand executes.
// fn typically calls schema.Register[M] for a schema's database tier only,
// which drives the driver's RegisterModel/AutoMigrate step as a side effect.
func RegisterMigration(fn func(context.Context) error) {
	migrators = append(migrators, fn)
}
