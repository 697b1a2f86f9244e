package manifest

import (
	"path/filepath"
	"testing"

	"badc0de.net/pkg/go-celeste/meta"
	"badc0de.net/pkg/go-celeste/ttesting"
)

func sample() *meta.Metadata {
	return &meta.Metadata{
		Header: meta.Header{Version: 0, Description: "Gameplay", Flags: 7},
		DataFiles: []meta.DataFile{
			{Path: "Gameplay0", Sprites: []meta.Sprite{
				{Path: "characters/player/idle00", X: 1, Y: 2, Width: 16, Height: 32, OffsetX: 3, OffsetY: 4, RealWidth: 20, RealHeight: 36},
				{Path: "objects/door", X: 17, Width: 8, Height: 8, RealWidth: 8, RealHeight: 8},
			}},
			{Path: "Gameplay1", Sprites: []meta.Sprite{
				{Path: "objects/door", X: 40000, Y: 65535, Width: 8, Height: 8, RealWidth: 8, RealHeight: 8},
			}},
		},
	}
}

func TestAddAndFind(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "manifest.db"))
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	defer db.Close()

	if err := db.AddMetadata("Graphics/Atlases/Gameplay.meta", sample()); err != nil {
		t.Fatalf("failed to add: %v", err)
	}

	rows, err := db.FindSprite("characters/player/idle00")
	if err != nil {
		t.Fatalf("failed to find: %v", err)
	}
	ttesting.AssertEqualInt(t, "rows", len(rows), 1)
	if len(rows) == 1 {
		if rows[0].Sprite != sample().DataFiles[0].Sprites[0] {
			t.Errorf("got %+v; want %+v", rows[0].Sprite, sample().DataFiles[0].Sprites[0])
		}
		ttesting.AssertEqualString(t, "data file", rows[0].DataFile, "Gameplay0")
		ttesting.AssertEqualString(t, "index", rows[0].Index, "Graphics/Atlases/Gameplay.meta")
	}

	doors, err := db.FindSprite("objects/door")
	if err != nil {
		t.Fatalf("failed to find: %v", err)
	}
	ttesting.AssertEqualInt(t, "doors", len(doors), 2)
	if len(doors) == 2 {
		ttesting.AssertEqualString(t, "first door", doors[0].DataFile, "Gameplay0")
		ttesting.AssertEqualInt(t, "second door x", int(doors[1].X), 40000)
		ttesting.AssertEqualInt(t, "second door y", int(doors[1].Y), 65535)
	}
}

func TestAddReplaces(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "manifest.db"))
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	defer db.Close()

	for i := 0; i < 2; i++ {
		if err := db.AddMetadata("Gameplay.meta", sample()); err != nil {
			t.Fatalf("failed to add (pass %d): %v", i, err)
		}
	}
	n, err := db.CountSprites("Gameplay.meta", "Gameplay0")
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	ttesting.AssertEqualInt(t, "sprites after re-adding", n, 2)
}
