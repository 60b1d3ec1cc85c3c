package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/refshelf/refshelf-server/internal/domain"
	domainerrors "github.com/refshelf/refshelf-server/internal/errors"
)

func keysOf(refs []*domain.Reference) []string {
	keys := make([]string, len(refs))
	for i, r := range refs {
		keys[i] = r.Key
	}
	return keys
}

func TestListReferences_PublicView(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice")

	saveOwned(t, s, alice, "Smith2020", true, map[string]string{"title": "Public"})
	saveOwned(t, s, alice, "Priv2024", false, map[string]string{"title": "Private"})
	saveOwned(t, s, nil, "Orphan2019", true, map[string]string{"title": "Nobody"})

	public, err := s.ListReferences(ctx, "")
	if err != nil {
		t.Fatalf("ListReferences public: %v", err)
	}
	if got := keysOf(public); len(got) != 1 || got[0] != "Smith2020" {
		t.Errorf("public view: got %v, want [Smith2020]", got)
	}

	owned, err := s.ListReferences(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListReferences owner: %v", err)
	}
	// Newest first.
	if got := keysOf(owned); len(got) != 2 || got[0] != "Priv2024" || got[1] != "Smith2020" {
		t.Errorf("owner view: got %v, want [Priv2024 Smith2020]", got)
	}
	if owned[0].Fields["title"] != "Private" {
		t.Errorf("fields not attached: %v", owned[0].Fields)
	}
}

func TestListReferences_Empty(t *testing.T) {
	s := newSeededStore(t)

	refs, err := s.ListReferences(context.Background(), "")
	if err != nil {
		t.Fatalf("ListReferences: %v", err)
	}
	if refs == nil || len(refs) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", refs)
	}
}

func TestLinkOwner(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice")
	refID := saveOwned(t, s, alice, "Smith2020", true, nil)

	// Linking twice is a no-op.
	if err := s.LinkOwner(ctx, alice.ID, refID); err != nil {
		t.Fatalf("second LinkOwner: %v", err)
	}
	if n := countRows(t, s, `SELECT COUNT(*) FROM user_references`); n != 1 {
		t.Errorf("user_references: got %d, want 1", n)
	}

	if err := s.LinkOwner(ctx, "user-missing", refID); !errors.Is(err, domainerrors.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
	if err := s.LinkOwner(ctx, alice.ID, "ref-missing"); !errors.Is(err, domainerrors.ErrReferenceNotFound) {
		t.Errorf("expected ErrReferenceNotFound, got %v", err)
	}
}

func TestLinkOwner_SecondOwnerSeesPrivateReference(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice")
	bob := createTestUser(t, s, "bob")
	refID := saveOwned(t, s, alice, "Smith2020", false, nil)

	if err := s.LinkOwner(ctx, bob.ID, refID); err != nil {
		t.Fatalf("LinkOwner: %v", err)
	}

	refs, err := s.ListReferences(ctx, bob.ID)
	if err != nil {
		t.Fatalf("ListReferences: %v", err)
	}
	if len(refs) != 1 || refs[0].Key != "Smith2020" {
		t.Fatalf("bob's references: got %v, want [Smith2020]", refs)
	}

	// Dropping one owner leaves the other in place.
	if err := s.UnlinkOwner(ctx, alice.ID, refID); err != nil {
		t.Fatalf("UnlinkOwner: %v", err)
	}
	ref, err := s.GetReference(ctx, "Smith2020", bob.ID)
	if err != nil {
		t.Fatalf("GetReference: %v", err)
	}
	if ref == nil {
		t.Fatal("expected bob to still own Smith2020")
	}
}

func TestUnlinkOwner_KeepsReference(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice")
	refID := saveOwned(t, s, alice, "Smith2020", true, nil)

	if err := s.UnlinkOwner(ctx, alice.ID, refID); err != nil {
		t.Fatalf("UnlinkOwner: %v", err)
	}
	if n := countRows(t, s, `SELECT COUNT(*) FROM bib_references`); n != 1 {
		t.Errorf("reference removed by unlink")
	}

	// Without an owner it drops out of the public view.
	refs, _ := s.ListReferences(ctx, "")
	if len(refs) != 0 {
		t.Errorf("unowned reference listed publicly: %v", keysOf(refs))
	}
}

func TestSearchReferences(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice")

	saveOwned(t, s, alice, "Smith2020", true, map[string]string{"title": "Deep Learning Basics"})
	saveOwned(t, s, alice, "Jones2021", true, map[string]string{"title": "Graph Theory", "journal": "Über Journal"})
	saveOwned(t, s, alice, "Hidden2022", false, map[string]string{"title": "Deep Secrets"})

	tests := []struct {
		name    string
		query   string
		ownerID string
		want    []string
	}{
		{"title match ignores case", "deep", "", []string{"Smith2020"}},
		{"owner sees private", "DEEP", alice.ID, []string{"Hidden2022", "Smith2020"}},
		{"matches key", "jones", "", []string{"Jones2021"}},
		{"unicode fold", "über", "", []string{"Jones2021"}},
		{"blank query lists all", "  ", "", []string{"Jones2021", "Smith2020"}},
		{"no match", "quantum", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs, err := s.SearchReferences(ctx, tt.query, tt.ownerID)
			if err != nil {
				t.Fatalf("SearchReferences: %v", err)
			}
			got := keysOf(refs)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("position %d: got %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// Every listing only returns what the viewer may see, whatever mix of owners
// and visibility was written.
func TestListReferences_VisibilityProperty(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()
	users := []*domain.User{
		createTestUser(t, s, "alice"),
		createTestUser(t, s, "bob"),
	}

	type written struct {
		owner  int // -1 for unowned
		public bool
	}
	state := map[string]written{}
	n := 0

	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 4).Draw(rt, "count")
		for i := 0; i < count; i++ {
			n++
			key := fmt.Sprintf("Ref%04d", n)
			owner := rapid.IntRange(-1, len(users)-1).Draw(rt, "owner")
			public := rapid.Bool().Draw(rt, "public")

			var u *domain.User
			if owner >= 0 {
				u = users[owner]
			}
			saveOwned(t, s, u, key, public, map[string]string{"title": key})
			state[key] = written{owner: owner, public: public}
		}

		publicRefs, err := s.ListReferences(ctx, "")
		if err != nil {
			rt.Fatalf("public list: %v", err)
		}
		for _, r := range publicRefs {
			w := state[r.Key]
			if !w.public || w.owner < 0 {
				rt.Fatalf("%s listed publicly (public=%v owner=%d)", r.Key, w.public, w.owner)
			}
		}

		for ui, u := range users {
			refs, err := s.ListReferences(ctx, u.ID)
			if err != nil {
				rt.Fatalf("owner list: %v", err)
			}
			want := 0
			for _, w := range state {
				if w.owner == ui {
					want++
				}
			}
			if len(refs) != want {
				rt.Fatalf("%s sees %d references, owns %d", u.Username, len(refs), want)
			}
			for _, r := range refs {
				if state[r.Key].owner != ui {
					rt.Fatalf("%s sees %s owned by %d", u.Username, r.Key, state[r.Key].owner)
				}
			}
		}
	})
}
