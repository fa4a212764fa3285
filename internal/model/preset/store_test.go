package preset

import "testing"

func TestFindByNameMatchesNameOrID(t *testing.T) {
	store := NewMemoryStore(Seed())

	byName, ok := store.FindByName("ホラー")
	if !ok {
		t.Fatal("expected ホラー to be found")
	}
	byID, ok := store.FindByName(byName.ID)
	if !ok || byID.Name != "ホラー" {
		t.Fatalf("expected lookup by id %s", byName.ID)
	}
	if _, ok := store.FindByName("西部劇"); ok {
		t.Fatal("free-text genres are not presets")
	}
}

func TestOptionsDefaults(t *testing.T) {
	opts := NewMemoryStore(Seed()).Options()

	if opts.DefaultGender != "男性" || opts.DefaultAge != "15" || opts.DefaultGenre != "ファンタジー" {
		t.Fatalf("unexpected defaults %+v", opts)
	}
	if opts.DefaultSetting != DefaultSetting {
		t.Fatal("expected default setting")
	}

	empty := NewMemoryStore(nil).Options()
	if empty.DefaultGenre != "" || len(empty.Genres) != 0 {
		t.Fatalf("expected no genres, got %+v", empty)
	}
}

func TestListReturnsCopy(t *testing.T) {
	store := NewMemoryStore(Seed())
	list := store.List()
	list[0].Name = "changed"

	if store.List()[0].Name == "changed" {
		t.Fatal("List must not expose internal slice")
	}
}
