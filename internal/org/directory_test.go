package org

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Universitas Indonesia!":  "universitas-indonesia",
		"  Faculty of Science  ":  "faculty-of-science",
		"Tech & Design Academy":   "tech--design-academy",
		"CS-101":                  "cs-101",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCreateDerivesSlugAndLevel(t *testing.T) {
	store := NewInMemory()
	now := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	dir := NewDirectory(store, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	root, err := dir.Create(ctx, Draft{Name: "Universitas Indonesia"}, "uid-root")
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	if root.Slug != "universitas-indonesia" {
		t.Fatalf("slug = %q", root.Slug)
	}
	if root.Level != 0 {
		t.Fatalf("root level = %d", root.Level)
	}
	if !root.Active || root.ID == "" {
		t.Fatalf("root not initialized: %+v", root)
	}
	if !root.CreatedAt.Equal(now) {
		t.Fatalf("CreatedAt not taken from clock: %v", root.CreatedAt)
	}

	child, err := dir.Create(ctx, Draft{Name: "Fakultas Teknik", ParentOrgID: root.ID}, "uid-root")
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	if child.Level != 1 {
		t.Fatalf("child level = %d, want 1", child.Level)
	}

	grand, err := dir.Create(ctx, Draft{Name: "Departemen Informatika", ParentOrgID: child.ID}, "uid-root")
	if err != nil {
		t.Fatalf("create grandchild: %v", err)
	}
	if grand.Level != 2 {
		t.Fatalf("grandchild level = %d, want 2", grand.Level)
	}

	children, err := dir.Children(ctx, root.ID)
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	if len(children) != 1 || children[0].ID != child.ID {
		t.Fatalf("unexpected children: %+v", children)
	}
}

func TestCreateValidation(t *testing.T) {
	dir := NewDirectory(NewInMemory())
	ctx := context.Background()

	if _, err := dir.Create(ctx, Draft{Name: "   "}, "x"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank name: got %v", err)
	}
	if _, err := dir.Create(ctx, Draft{Name: "Orphan", ParentOrgID: "org-missing"}, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing parent: got %v", err)
	}
}

func TestExists(t *testing.T) {
	store := NewInMemory()
	dir := NewDirectory(store)
	ctx := context.Background()

	o, err := dir.Create(ctx, Draft{Name: "Kampus"}, "x")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ok, err := dir.Exists(ctx, o.ID)
	if err != nil || !ok {
		t.Fatalf("Exists(%s) = %v, %v", o.ID, ok, err)
	}
	ok, err = dir.Exists(ctx, "nope")
	if err != nil || ok {
		t.Fatalf("Exists(nope) = %v, %v", ok, err)
	}
}
