package endpoint

import (
	"context"
	"testing"
	"time"

	"github.com/HerbHall/fleetgate/internal/store"
	"github.com/HerbHall/fleetgate/internal/testutil"
	"github.com/HerbHall/fleetgate/pkg/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	if err := db.Migrate(ctx, "endpoint", Migrations()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewStore(db.DB())
}

func TestInsertAndGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	ep := testutil.NewEndpoint(
		testutil.WithName("prod-cf"),
		testutil.WithEndpointMetadata("region", "us-east"),
	)
	if err := s.Insert(ctx, &ep); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := s.Get(ctx, ep.GUID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil {
		t.Fatal("Get() = nil, want endpoint")
	}
	if got.Name != "prod-cf" {
		t.Errorf("Name = %q, want %q", got.Name, "prod-cf")
	}
	if got.Type != models.EndpointTypeCloudFoundry {
		t.Errorf("Type = %q, want %q", got.Type, models.EndpointTypeCloudFoundry)
	}
	if got.Metadata["region"] != "us-east" {
		t.Errorf("Metadata[region] = %q, want %q", got.Metadata["region"], "us-east")
	}
}

func TestGet_Missing(t *testing.T) {
	s := testStore(t)

	got, err := s.Get(context.Background(), "no-such-guid")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Errorf("Get() = %+v, want nil", got)
	}
}

func TestList_RegistrationOrder(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	names := []string{"first", "second", "third"}
	for _, name := range names {
		ep := testutil.NewEndpoint(testutil.WithName(name))
		if err := s.Insert(ctx, &ep); err != nil {
			t.Fatalf("Insert(%s) error = %v", name, err)
		}
	}

	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != len(names) {
		t.Fatalf("len = %d, want %d", len(got), len(names))
	}
	for i, name := range names {
		if got[i].Name != name {
			t.Errorf("got[%d].Name = %q, want %q", i, got[i].Name, name)
		}
	}
}

func TestDelete(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	ep := testutil.NewEndpoint()
	if err := s.Insert(ctx, &ep); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	n, err := s.Delete(ctx, ep.GUID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Delete() = %d rows, want 1", n)
	}

	n, err = s.Delete(ctx, ep.GUID)
	if err != nil {
		t.Fatalf("Delete() second call error = %v", err)
	}
	if n != 0 {
		t.Errorf("Delete() second call = %d rows, want 0", n)
	}
}

func TestUpdateDisplay(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	ep := testutil.NewEndpoint(testutil.WithName("old-name"))
	if err := s.Insert(ctx, &ep); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	before := ep.UpdatedAt
	time.Sleep(5 * time.Millisecond)

	meta := map[string]string{"owner": "platform-team"}
	if err := s.UpdateDisplay(ctx, ep.GUID, "new-name", "2.1", meta); err != nil {
		t.Fatalf("UpdateDisplay() error = %v", err)
	}

	got, err := s.Get(ctx, ep.GUID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "new-name" {
		t.Errorf("Name = %q, want %q", got.Name, "new-name")
	}
	if got.Version != "2.1" {
		t.Errorf("Version = %q, want %q", got.Version, "2.1")
	}
	if got.Metadata["owner"] != "platform-team" {
		t.Errorf("Metadata[owner] = %q, want %q", got.Metadata["owner"], "platform-team")
	}
	if !got.UpdatedAt.After(before) {
		t.Errorf("UpdatedAt = %v, want after %v", got.UpdatedAt, before)
	}
}
