package zone

import "testing"

func TestNewIndexAssignsSequentialIndexes(t *testing.T) {
	idx, err := NewIndex([]Zone{{Name: "front"}, {Name: "back"}, {Name: "side"}})
	if err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", idx.Len())
	}
	for i, name := range []string{"front", "back", "side"} {
		z, ok := idx.ByIndex(i)
		if !ok {
			t.Fatalf("ByIndex(%d) not found", i)
		}
		if z.Index != i || z.Name != name {
			t.Errorf("ByIndex(%d) = %+v, want Index=%d Name=%q", i, z, i, name)
		}
	}
}

func TestNewIndexDefaultsOnLevelToHigh(t *testing.T) {
	idx, err := NewIndex([]Zone{{Name: "front"}})
	if err != nil {
		t.Fatal(err)
	}
	z, _ := idx.ByIndex(0)
	if z.On != LevelHigh {
		t.Errorf("On = %q, want %q", z.On, LevelHigh)
	}
}

func TestNewIndexPreservesExplicitOnLevel(t *testing.T) {
	idx, err := NewIndex([]Zone{{Name: "front", On: LevelLow}})
	if err != nil {
		t.Fatal(err)
	}
	z, _ := idx.ByIndex(0)
	if z.On != LevelLow {
		t.Errorf("On = %q, want %q", z.On, LevelLow)
	}
}

func TestNewIndexRejectsDuplicateNames(t *testing.T) {
	_, err := NewIndex([]Zone{{Name: "front"}, {Name: "front"}})
	if err == nil {
		t.Fatal("expected error for duplicate zone name")
	}
}

func TestByNameAndNameIndex(t *testing.T) {
	idx, err := NewIndex([]Zone{{Name: "front"}, {Name: "back"}})
	if err != nil {
		t.Fatal(err)
	}
	z, ok := idx.ByName("back")
	if !ok || z.Index != 1 {
		t.Fatalf("ByName(%q) = %+v, %v", "back", z, ok)
	}
	i, ok := idx.NameIndex("front")
	if !ok || i != 0 {
		t.Fatalf("NameIndex(%q) = %d, %v", "front", i, ok)
	}
	if _, ok := idx.ByName("missing"); ok {
		t.Error("ByName(missing) should return false")
	}
}

func TestByIndexOutOfRange(t *testing.T) {
	idx, err := NewIndex([]Zone{{Name: "front"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := idx.ByIndex(-1); ok {
		t.Error("ByIndex(-1) should return false")
	}
	if _, ok := idx.ByIndex(5); ok {
		t.Error("ByIndex(5) should return false")
	}
}

func TestAllReturnsIndependentCopy(t *testing.T) {
	idx, err := NewIndex([]Zone{{Name: "front"}})
	if err != nil {
		t.Fatal(err)
	}
	all := idx.All()
	all[0].Name = "mutated"

	z, _ := idx.ByIndex(0)
	if z.Name != "front" {
		t.Errorf("mutating All()'s result affected the Index: Name = %q", z.Name)
	}
}
