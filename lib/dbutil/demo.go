package dbutil

import (
	"fmt"

	"github.com/ValentinKolb/petlaDB/lib/docstore"
	"github.com/ValentinKolb/petlaDB/lib/document"
)

type demoUser struct {
	nombre, email, rol, telefono, password string
}

var demoUsers = []demoUser{
	{"Administrador PetLA", "admin@petla.com", "admin", "+52 55 1234 5678", "admin123"},
	{"Dr. Carlos Ruiz", "carlos.ruiz@petla.com", "veterinario", "+52 55 1234 5679", "vet123"},
	{"Cliente Demo", "cliente@demo.com", "cliente", "+52 55 1234 5680", "demo123"},
}

// demoCollections are created empty next to usuarios
var demoCollections = []string{
	"mascotas",
	"citas",
	"preCitas",
	"historialClinico",
	"suscriptoresNewsletter",
	"newsletterEmails",
	"notificaciones",
}

type demoIndex struct {
	collection, field string
	opts              docstore.IndexOptions
}

var demoIndexes = []demoIndex{
	{"mascotas", "clienteId", docstore.IndexOptions{}},
	{"citas", "mascota", docstore.IndexOptions{}},
	{"citas", "estado", docstore.IndexOptions{}},
	{"historialClinico", "mascotaId", docstore.IndexOptions{}},
	{"suscriptoresNewsletter", "email", docstore.IndexOptions{Unique: true}},
	{"notificaciones", "usuarioId", docstore.IndexOptions{}},
}

// SetupDemoData seeds the demo users, collections and indexes. It does nothing and
// returns false if usuarios already holds documents.
func (u *Utils) SetupDemoData() (bool, error) {
	n, err := u.db.Count("usuarios", nil)
	if err != nil {
		return false, fmt.Errorf("failed to setup demo data: %w", err)
	}
	if n > 0 {
		log.Infof("demo data already exists (%d users)", n)
		return false, nil
	}

	if err := u.db.CreateCollection("usuarios"); err != nil {
		return false, fmt.Errorf("failed to setup demo data: %w", err)
	}
	if err := u.db.CreateIndex("usuarios", "email", docstore.IndexOptions{Unique: true}); err != nil {
		return false, fmt.Errorf("failed to setup demo data: %w", err)
	}

	for _, user := range demoUsers {
		hash, err := HashPassword(user.password)
		if err != nil {
			return false, fmt.Errorf("failed to setup demo data: %w", err)
		}
		fields := document.Fields{
			{Name: "nombre", Value: document.String(user.nombre)},
			{Name: "email", Value: document.String(user.email)},
			{Name: "rol", Value: document.String(user.rol)},
			{Name: "telefono", Value: document.String(user.telefono)},
			{Name: "password", Value: document.String(hash)},
		}
		if _, err := u.db.InsertOne("usuarios", fields); err != nil {
			return false, fmt.Errorf("failed to setup demo data: %w", err)
		}
	}

	for _, name := range demoCollections {
		if err := u.db.CreateCollection(name); err != nil {
			return false, fmt.Errorf("failed to setup demo data: %w", err)
		}
	}
	for _, idx := range demoIndexes {
		if err := u.db.CreateIndex(idx.collection, idx.field, idx.opts); err != nil {
			return false, fmt.Errorf("failed to setup demo data: %w", err)
		}
	}

	log.Infof("demo data setup completed")
	return true, nil
}
